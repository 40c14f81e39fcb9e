package quizgen

import (
	"fmt"
	"strings"

	"github.com/ggproduction/onboarding/internal/curriculum"
)

const systemPrompt = `You are an expert poker training instructor creating quiz questions for a professional poker production training program. You reply with raw JSON only.`

func buildPrompt(day curriculum.Day, lesson curriculum.Lesson, req Request) string {
	types := make([]string, len(req.QuestionTypes))
	for i, t := range req.QuestionTypes {
		types[i] = string(t)
	}
	description := lesson.Description
	if description == "" {
		description = "No description"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Lesson context:\n- Day: %d - %s\n- Lesson: %s\n- Description: %s\n\n",
		day.Number, day.Title, lesson.Title, description)
	fmt.Fprintf(&b, "Lesson content:\n%s\n\n", lesson.Content)
	fmt.Fprintf(&b, "Task:\nGenerate %d quiz questions to test understanding of this lesson content.\n\n", req.QuestionCount)
	fmt.Fprintf(&b, `Requirements:
- Question types to include: %s
- Each question must directly relate to the lesson content
- Include a clear, educational explanation for each answer
- For multiple_choice questions, provide 4 options (one correct, three plausible distractors)
- For true_false questions, make statements clear and unambiguous
- Assign 10 to 20 points per question based on difficulty

`, strings.Join(types, ", "))
	b.WriteString(`Output format:
{
  "quizzes": [
    {
      "question": "Question text here",
      "question_type": "multiple_choice",
      "options": [
        {"id": "a", "text": "Option A", "is_correct": false},
        {"id": "b", "text": "Option B", "is_correct": true},
        {"id": "c", "text": "Option C", "is_correct": false},
        {"id": "d", "text": "Option D", "is_correct": false}
      ],
      "correct_answer": "b",
      "explanation": "Why this is correct",
      "points": 10
    }
  ]
}

Rules:
- For multiple_choice questions, correct_answer is the id of the correct option
- For true_false questions, correct_answer is "true" or "false"
- For short_answer questions, options is null
- Return only valid JSON without markdown code blocks
`)
	return b.String()
}

const contentSystemPrompt = `You are an expert poker production trainer who turns rough training notes into clear, structured lessons for new staff. You reply with raw JSON only.`

func buildContentPrompt(raw string, lesson *curriculum.Lesson) string {
	var b strings.Builder
	if lesson != nil {
		fmt.Fprintf(&b, "Lesson: %s\n", lesson.Title)
		if lesson.Description != "" {
			fmt.Fprintf(&b, "Description: %s\n", lesson.Description)
		}
		b.WriteString("\n")
	}
	fmt.Fprintf(&b, "Raw training notes:\n%s\n\n", raw)
	b.WriteString(`Task:
Rewrite these notes as a lesson for trainees joining a poker broadcast production crew.

Requirements:
- Write the lesson body in Markdown with headings, short paragraphs and lists
- Keep every fact from the notes and do not invent procedures
- List 3 to 5 learning objectives
- List 5 to 10 key concepts or terms
- Grade the difficulty as easy, medium or hard
- Estimate the minutes a trainee needs to study the lesson

Output format:
{
  "content": "# Lesson title\n\nMarkdown body",
  "learning_objectives": ["Objective one"],
  "key_concepts": ["Concept one"],
  "difficulty_level": "easy",
  "estimated_duration_minutes": 20,
  "summary": "One sentence summary"
}

Return only valid JSON without markdown code blocks
`)
	return b.String()
}
