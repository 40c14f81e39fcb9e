package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ggproduction/onboarding/internal/apperr"
	"github.com/ggproduction/onboarding/internal/curriculum"
	"github.com/ggproduction/onboarding/internal/learner"
	"github.com/ggproduction/onboarding/internal/platform/database"
	"github.com/ggproduction/onboarding/internal/progress"
	"github.com/ggproduction/onboarding/internal/quiz"
	"github.com/ggproduction/onboarding/internal/ranking"
)

const dbTimeout = 5 * time.Second

// Postgres error codes mapped onto domain errors.
const (
	pgForeignKeyViolation = "23503"
	pgInvalidTextValue    = "22P02"
	pgCheckViolation      = "23514"
	pgUniqueViolation     = "23505"
)

// PostgresStore is a PostgreSQL-backed Store implementation.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a PostgreSQL-backed store. The schema must already
// be applied.
func NewPostgresStore(pool *pgxpool.Pool) (*PostgresStore, error) {
	if pool == nil {
		return nil, fmt.Errorf("pool is nil")
	}
	return &PostgresStore{pool: pool}, nil
}

const daySelect = `SELECT id::text, day_number, title, description, objectives, duration_hours, is_active, updated_at
	FROM curriculum_days`

func (s *PostgresStore) ListDays(ctx context.Context, activeOnly bool) ([]curriculum.Day, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	query := daySelect
	if activeOnly {
		query += ` WHERE is_active`
	}
	query += ` ORDER BY day_number ASC`

	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list days: %w", err)
	}
	defer rows.Close()

	var days []curriculum.Day
	for rows.Next() {
		var d curriculum.Day
		if err := rows.Scan(&d.ID, &d.Number, &d.Title, &d.Description, &d.Objectives,
			&d.DurationHours, &d.IsActive, &d.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan day: %w", err)
		}
		days = append(days, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate days: %w", err)
	}
	return days, nil
}

const lessonSelect = `SELECT l.id::text, l.day_id::text, l.order_index, l.title, l.description, l.content,
	l.lesson_type, l.duration_minutes, l.points_reward, l.is_required,
	l.learning_objectives, l.key_concepts, l.difficulty_level, l.raw_content, l.ai_processed_at
	FROM lessons l`

func scanLesson(row pgx.Row) (curriculum.Lesson, error) {
	var l curriculum.Lesson
	var lessonType, difficulty string
	err := row.Scan(&l.ID, &l.DayID, &l.OrderIndex, &l.Title, &l.Description, &l.Content,
		&lessonType, &l.DurationMinutes, &l.PointsReward, &l.IsRequired,
		&l.Objectives, &l.KeyConcepts, &difficulty, &l.RawContent, &l.ProcessedAt)
	l.Type = curriculum.LessonType(lessonType)
	l.Difficulty = curriculum.Difficulty(difficulty)
	return l, err
}

// textArray keeps NOT NULL array columns from receiving NULL.
func textArray(v []string) []string {
	if v == nil {
		return []string{}
	}
	return v
}

func (s *PostgresStore) ListLessons(ctx context.Context, dayID string) ([]curriculum.Lesson, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	var (
		rows pgx.Rows
		err  error
	)
	if dayID == "" {
		rows, err = s.pool.Query(ctx, lessonSelect+`
			JOIN curriculum_days d ON d.id = l.day_id
			ORDER BY d.day_number ASC, l.order_index ASC`)
	} else {
		rows, err = s.pool.Query(ctx, lessonSelect+`
			WHERE l.day_id::text = $1
			ORDER BY l.order_index ASC`, dayID)
	}
	if err != nil {
		return nil, fmt.Errorf("list lessons: %w", err)
	}
	defer rows.Close()

	var lessons []curriculum.Lesson
	for rows.Next() {
		l, err := scanLesson(rows)
		if err != nil {
			return nil, fmt.Errorf("scan lesson: %w", err)
		}
		lessons = append(lessons, l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate lessons: %w", err)
	}
	return lessons, nil
}

func (s *PostgresStore) GetLesson(ctx context.Context, id string) (curriculum.Lesson, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	l, err := scanLesson(s.pool.QueryRow(ctx, lessonSelect+` WHERE l.id::text = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return curriculum.Lesson{}, apperr.NotFound("lesson", id)
	}
	if err != nil {
		return curriculum.Lesson{}, fmt.Errorf("get lesson: %w", err)
	}
	return l, nil
}

// UpsertDay matches existing days by day number.
func (s *PostgresStore) UpsertDay(ctx context.Context, d curriculum.Day) (curriculum.Day, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	objectives := d.Objectives
	if objectives == nil {
		objectives = []string{}
	}
	err := s.pool.QueryRow(ctx,
		`INSERT INTO curriculum_days (day_number, title, description, objectives, duration_hours, is_active, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, now())
		 ON CONFLICT (day_number) DO UPDATE SET
			title = EXCLUDED.title,
			description = EXCLUDED.description,
			objectives = EXCLUDED.objectives,
			duration_hours = EXCLUDED.duration_hours,
			is_active = EXCLUDED.is_active,
			updated_at = now()
		 RETURNING id::text, updated_at`,
		d.Number, d.Title, d.Description, objectives, d.DurationHours, d.IsActive,
	).Scan(&d.ID, &d.UpdatedAt)
	if err != nil {
		return curriculum.Day{}, mapError(fmt.Errorf("upsert day %d: %w", d.Number, err), "day", fmt.Sprint(d.Number))
	}
	d.Lessons = nil
	return d, nil
}

// UpsertLesson matches existing lessons by (day, order index).
func (s *PostgresStore) UpsertLesson(ctx context.Context, l curriculum.Lesson) (curriculum.Lesson, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	err := s.pool.QueryRow(ctx,
		`INSERT INTO lessons (day_id, order_index, title, description, content, lesson_type,
			duration_minutes, points_reward, is_required, learning_objectives, key_concepts, difficulty_level)
		 VALUES ($1::uuid, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		 ON CONFLICT (day_id, order_index) DO UPDATE SET
			title = EXCLUDED.title,
			description = EXCLUDED.description,
			content = EXCLUDED.content,
			lesson_type = EXCLUDED.lesson_type,
			duration_minutes = EXCLUDED.duration_minutes,
			points_reward = EXCLUDED.points_reward,
			is_required = EXCLUDED.is_required,
			learning_objectives = EXCLUDED.learning_objectives,
			key_concepts = EXCLUDED.key_concepts,
			difficulty_level = EXCLUDED.difficulty_level
		 RETURNING id::text, raw_content, ai_processed_at`,
		l.DayID, l.OrderIndex, l.Title, l.Description, l.Content, string(l.Type),
		l.DurationMinutes, l.PointsReward, l.IsRequired,
		textArray(l.Objectives), textArray(l.KeyConcepts), string(l.Difficulty),
	).Scan(&l.ID, &l.RawContent, &l.ProcessedAt)
	if err != nil {
		return curriculum.Lesson{}, mapError(fmt.Errorf("upsert lesson: %w", err), "day", l.DayID)
	}
	return l, nil
}

// InsertLesson appends to the day when l.OrderIndex is zero.
func (s *PostgresStore) InsertLesson(ctx context.Context, l curriculum.Lesson) (curriculum.Lesson, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	err := s.pool.QueryRow(ctx,
		`INSERT INTO lessons (day_id, order_index, title, description, content, lesson_type,
			duration_minutes, points_reward, is_required, learning_objectives, key_concepts, difficulty_level)
		 VALUES ($1::uuid,
			CASE WHEN $2::int > 0 THEN $2::int
				ELSE (SELECT COALESCE(MAX(order_index), 0) + 1 FROM lessons WHERE day_id = $1::uuid) END,
			$3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		 RETURNING id::text, order_index`,
		l.DayID, l.OrderIndex, l.Title, l.Description, l.Content, string(l.Type),
		l.DurationMinutes, l.PointsReward, l.IsRequired,
		textArray(l.Objectives), textArray(l.KeyConcepts), string(l.Difficulty),
	).Scan(&l.ID, &l.OrderIndex)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
		return curriculum.Lesson{}, apperr.InvalidInput("order_index", "is already used in this day")
	}
	if err != nil {
		return curriculum.Lesson{}, mapError(fmt.Errorf("insert lesson: %w", err), "day", l.DayID)
	}
	l.RawContent, l.ProcessedAt = "", nil
	return l, nil
}

func (s *PostgresStore) ReviseLessonContent(ctx context.Context, lessonID string, r curriculum.Revision) (curriculum.Lesson, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	tag, err := s.pool.Exec(ctx,
		`UPDATE lessons SET
			raw_content = $2,
			content = $3,
			learning_objectives = $4,
			key_concepts = $5,
			difficulty_level = $6,
			duration_minutes = CASE WHEN $7::int > 0 THEN $7::int ELSE duration_minutes END,
			ai_processed_at = $8
		 WHERE id::text = $1`,
		lessonID, r.RawContent, r.Content, textArray(r.Objectives), textArray(r.KeyConcepts),
		string(r.Difficulty), r.DurationMinutes, r.RevisedAt,
	)
	if err != nil {
		return curriculum.Lesson{}, mapError(fmt.Errorf("revise lesson: %w", err), "lesson", lessonID)
	}
	if tag.RowsAffected() == 0 {
		return curriculum.Lesson{}, apperr.NotFound("lesson", lessonID)
	}
	return s.GetLesson(ctx, lessonID)
}

const progressSelect = `SELECT learner_id, lesson_id::text, status, started_at, completed_at,
	time_spent_minutes, notes, updated_at
	FROM user_progress`

func scanProgress(row pgx.Row) (progress.Record, error) {
	var r progress.Record
	var status string
	err := row.Scan(&r.LearnerID, &r.LessonID, &status, &r.StartedAt, &r.CompletedAt,
		&r.TimeSpentMinutes, &r.Notes, &r.UpdatedAt)
	r.Status = progress.Status(status)
	return r, err
}

func (s *PostgresStore) GetProgress(ctx context.Context, learnerID string) (map[string]progress.Record, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	rows, err := s.pool.Query(ctx, progressSelect+` WHERE learner_id = $1`, learnerID)
	if err != nil {
		return nil, fmt.Errorf("get progress: %w", err)
	}
	defer rows.Close()

	records := make(map[string]progress.Record)
	for rows.Next() {
		r, err := scanProgress(rows)
		if err != nil {
			return nil, fmt.Errorf("scan progress: %w", err)
		}
		records[r.LessonID] = r
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate progress: %w", err)
	}
	return records, nil
}

// UpsertProgress serializes concurrent writers on the (learner, lesson) row:
// the row is created if missing and then locked FOR UPDATE before fn runs.
func (s *PostgresStore) UpsertProgress(ctx context.Context, learnerID, lessonID string, fn ProgressFunc) (progress.Record, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	var saved progress.Record
	err := database.WithTx(ctx, s.pool, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx,
			`INSERT INTO user_progress (learner_id, lesson_id, status)
			 VALUES ($1, $2::uuid, 'not_started')
			 ON CONFLICT (learner_id, lesson_id) DO NOTHING`,
			learnerID, lessonID,
		)
		if err != nil {
			return mapError(fmt.Errorf("create progress row: %w", err), "lesson", lessonID)
		}
		created := tag.RowsAffected() == 1

		current, err := scanProgress(tx.QueryRow(ctx,
			progressSelect+` WHERE learner_id = $1 AND lesson_id = $2::uuid FOR UPDATE`,
			learnerID, lessonID,
		))
		if err != nil {
			return fmt.Errorf("lock progress row: %w", err)
		}
		var existing *progress.Record
		if !created {
			existing = &current
		}

		next, award, err := fn(existing)
		if err != nil {
			return err
		}

		_, err = tx.Exec(ctx,
			`UPDATE user_progress SET status = $3, started_at = $4, completed_at = $5,
				time_spent_minutes = $6, notes = $7, updated_at = $8
			 WHERE learner_id = $1 AND lesson_id = $2::uuid`,
			learnerID, lessonID, string(next.Status), next.StartedAt, next.CompletedAt,
			next.TimeSpentMinutes, next.Notes, next.UpdatedAt,
		)
		if err != nil {
			return mapError(fmt.Errorf("update progress: %w", err), "lesson", lessonID)
		}

		if award > 0 {
			if err := addPoints(ctx, tx, learnerID, award); err != nil {
				return err
			}
		}
		next.LearnerID = learnerID
		next.LessonID = lessonID
		saved = next
		return nil
	})
	if err != nil {
		return progress.Record{}, err
	}
	return saved, nil
}

func addPoints(ctx context.Context, tx pgx.Tx, learnerID string, points int) error {
	tag, err := tx.Exec(ctx, `UPDATE learners SET points = points + $2 WHERE id = $1`, learnerID, points)
	if err != nil {
		return fmt.Errorf("add points: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("learner", learnerID)
	}
	return nil
}

func (s *PostgresStore) CompletedLessonCounts(ctx context.Context) (map[string]int, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	rows, err := s.pool.Query(ctx,
		`SELECT learner_id, count(*) FROM user_progress WHERE status = 'completed' GROUP BY learner_id`)
	if err != nil {
		return nil, fmt.Errorf("count completed lessons: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var id string
		var n int
		if err := rows.Scan(&id, &n); err != nil {
			return nil, fmt.Errorf("scan completed count: %w", err)
		}
		counts[id] = n
	}
	return counts, rows.Err()
}

const learnerSelect = `SELECT id, email, full_name, department, role, points, created_at FROM learners`

func scanLearner(row pgx.Row) (learner.Learner, error) {
	var l learner.Learner
	var role string
	err := row.Scan(&l.ID, &l.Email, &l.FullName, &l.Department, &role, &l.Points, &l.CreatedAt)
	l.Role = learner.Role(role)
	return l, err
}

func (s *PostgresStore) EnsureLearner(ctx context.Context, l learner.Learner) (learner.Learner, error) {
	if l.ID == "" {
		return learner.Learner{}, apperr.InvalidInput("id", "is required")
	}
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	role := l.Role
	if role == "" {
		role = learner.RoleTrainee
	}
	_, err := s.pool.Exec(ctx,
		`INSERT INTO learners (id, email, full_name, department, role)
		 VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT (id) DO NOTHING`,
		l.ID, l.Email, l.FullName, l.Department, string(role),
	)
	if err != nil {
		return learner.Learner{}, mapError(fmt.Errorf("ensure learner: %w", err), "learner", l.ID)
	}
	return s.GetLearner(ctx, l.ID)
}

func (s *PostgresStore) GetLearner(ctx context.Context, id string) (learner.Learner, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	l, err := scanLearner(s.pool.QueryRow(ctx, learnerSelect+` WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return learner.Learner{}, apperr.NotFound("learner", id)
	}
	if err != nil {
		return learner.Learner{}, fmt.Errorf("get learner: %w", err)
	}
	return l, nil
}

func (s *PostgresStore) ListLearners(ctx context.Context, role learner.Role) ([]learner.Learner, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	rows, err := s.pool.Query(ctx, learnerSelect+` WHERE $1 = '' OR role = $1 ORDER BY id`, string(role))
	if err != nil {
		return nil, fmt.Errorf("list learners: %w", err)
	}
	defer rows.Close()

	var out []learner.Learner
	for rows.Next() {
		l, err := scanLearner(rows)
		if err != nil {
			return nil, fmt.Errorf("scan learner: %w", err)
		}
		out = append(out, l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate learners: %w", err)
	}
	return out, nil
}

func (s *PostgresStore) ListLearnerPoints(ctx context.Context, role learner.Role) ([]ranking.LearnerPoints, error) {
	learners, err := s.ListLearners(ctx, role)
	if err != nil {
		return nil, err
	}
	points := make([]ranking.LearnerPoints, 0, len(learners))
	for _, l := range learners {
		points = append(points, ranking.LearnerPoints{ID: l.ID, FullName: l.DisplayName(), Points: l.Points})
	}
	return points, nil
}

const quizSelect = `SELECT id::text, lesson_id::text, question, question_type, options, correct_answer,
	explanation, points, order_index, is_active, created_at
	FROM quizzes`

func scanQuiz(row pgx.Row) (quiz.Item, error) {
	var q quiz.Item
	var qType string
	var options []byte
	if err := row.Scan(&q.ID, &q.LessonID, &q.Question, &qType, &options, &q.CorrectAnswer,
		&q.Explanation, &q.Points, &q.OrderIndex, &q.IsActive, &q.CreatedAt); err != nil {
		return quiz.Item{}, err
	}
	q.Type = quiz.QuestionType(qType)
	if len(options) > 0 {
		if err := json.Unmarshal(options, &q.Options); err != nil {
			return quiz.Item{}, apperr.DataIntegrity("quiz %s has malformed options: %v", q.ID, err)
		}
	}
	return q, nil
}

func (s *PostgresStore) GetQuiz(ctx context.Context, id string) (quiz.Item, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	q, err := scanQuiz(s.pool.QueryRow(ctx, quizSelect+` WHERE id::text = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return quiz.Item{}, apperr.NotFound("quiz", id)
	}
	if err != nil {
		return quiz.Item{}, fmt.Errorf("get quiz: %w", err)
	}
	return q, nil
}

func (s *PostgresStore) ListQuizzes(ctx context.Context, lessonID string, activeOnly bool) ([]quiz.Item, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	rows, err := s.pool.Query(ctx,
		quizSelect+` WHERE lesson_id::text = $1 AND (is_active OR NOT $2) ORDER BY order_index, id`,
		lessonID, activeOnly,
	)
	if err != nil {
		return nil, fmt.Errorf("list quizzes: %w", err)
	}
	defer rows.Close()

	var out []quiz.Item
	for rows.Next() {
		q, err := scanQuiz(rows)
		if err != nil {
			return nil, fmt.Errorf("scan quiz: %w", err)
		}
		out = append(out, q)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate quizzes: %w", err)
	}
	return out, nil
}

func (s *PostgresStore) InsertQuizzes(ctx context.Context, items []quiz.Item) ([]quiz.Item, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	out := make([]quiz.Item, 0, len(items))
	err := database.WithTx(ctx, s.pool, func(tx pgx.Tx) error {
		for _, q := range items {
			options := q.Options
			if options == nil {
				options = []quiz.Option{}
			}
			raw, err := json.Marshal(options)
			if err != nil {
				return fmt.Errorf("encode options: %w", err)
			}
			err = tx.QueryRow(ctx,
				`INSERT INTO quizzes (lesson_id, question, question_type, options, correct_answer,
					explanation, points, order_index, is_active)
				 VALUES ($1::uuid, $2, $3, $4::jsonb, $5, $6, $7, $8, $9)
				 RETURNING id::text, created_at`,
				q.LessonID, q.Question, string(q.Type), string(raw), q.CorrectAnswer,
				q.Explanation, q.Points, q.OrderIndex, q.IsActive,
			).Scan(&q.ID, &q.CreatedAt)
			if err != nil {
				return mapError(fmt.Errorf("insert quiz: %w", err), "lesson", q.LessonID)
			}
			out = append(out, q)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *PostgresStore) SetQuizActive(ctx context.Context, id string, active bool) error {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	tag, err := s.pool.Exec(ctx, `UPDATE quizzes SET is_active = $2 WHERE id::text = $1`, id, active)
	if err != nil {
		return fmt.Errorf("set quiz active: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("quiz", id)
	}
	return nil
}

func (s *PostgresStore) ListAttempts(ctx context.Context, learnerID string, quizIDs []string) ([]quiz.Attempt, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	query := `SELECT id::text, learner_id, quiz_id::text, user_answer, is_correct, points_earned, attempted_at
		FROM quiz_attempts WHERE learner_id = $1`
	args := []any{learnerID}
	if quizIDs != nil {
		query += ` AND quiz_id::text = ANY($2::text[])`
		args = append(args, quizIDs)
	}
	query += ` ORDER BY attempted_at DESC, id DESC`

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list attempts: %w", err)
	}
	defer rows.Close()

	var out []quiz.Attempt
	for rows.Next() {
		var a quiz.Attempt
		if err := rows.Scan(&a.ID, &a.LearnerID, &a.QuizID, &a.SubmittedAnswer, &a.IsCorrect,
			&a.PointsEarned, &a.AttemptedAt); err != nil {
			return nil, fmt.Errorf("scan attempt: %w", err)
		}
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate attempts: %w", err)
	}
	return out, nil
}

func (s *PostgresStore) RecordAttempt(ctx context.Context, a quiz.Attempt) (quiz.Attempt, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	if a.AttemptedAt.IsZero() {
		a.AttemptedAt = time.Now()
	}
	err := database.WithTx(ctx, s.pool, func(tx pgx.Tx) error {
		err := tx.QueryRow(ctx,
			`INSERT INTO quiz_attempts (learner_id, quiz_id, user_answer, is_correct, points_earned, attempted_at)
			 VALUES ($1, $2::uuid, $3, $4, $5, $6)
			 RETURNING id::text`,
			a.LearnerID, a.QuizID, a.SubmittedAnswer, a.IsCorrect, a.PointsEarned, a.AttemptedAt,
		).Scan(&a.ID)
		if err != nil {
			return mapError(fmt.Errorf("insert attempt: %w", err), "quiz", a.QuizID)
		}
		if a.PointsEarned > 0 {
			return addPoints(ctx, tx, a.LearnerID, a.PointsEarned)
		}
		return nil
	})
	if err != nil {
		return quiz.Attempt{}, err
	}
	return a, nil
}

// mapError turns constraint failures into domain errors. A foreign key or
// malformed UUID means the referenced row does not exist.
func mapError(err error, resource, id string) error {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return err
	}
	switch pgErr.Code {
	case pgForeignKeyViolation, pgInvalidTextValue:
		return apperr.NotFound(resource, id)
	case pgCheckViolation, pgUniqueViolation:
		return apperr.DataIntegrity("%s %s: %s", resource, id, pgErr.Message)
	}
	return err
}
