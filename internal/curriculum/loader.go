package curriculum

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/ggproduction/onboarding/internal/apperr"
)

// dayFile is the on-disk shape of one day. Days are active unless the file
// says otherwise.
type dayFile struct {
	Day    `yaml:",inline"`
	Active *bool `yaml:"active"`
}

// Loader reads curriculum seed files (one YAML file per day) from disk.
// Lesson bodies may live inline under `content` or in a sibling markdown
// file named by `content_file`.
type Loader struct {
	rootDir string
	days    map[int]Day
	mu      sync.RWMutex
}

// NewLoader creates a loader and reads every day file under rootDir.
func NewLoader(rootDir string) (*Loader, error) {
	l := &Loader{
		rootDir: rootDir,
		days:    make(map[int]Day),
	}

	if err := l.loadAll(); err != nil {
		return nil, fmt.Errorf("loading curriculum: %w", err)
	}

	slog.Info("curriculum loaded", "days", len(l.days), "root", rootDir)
	return l, nil
}

// Days returns the loaded days ordered by day number.
func (l *Loader) Days() []Day {
	l.mu.RLock()
	defer l.mu.RUnlock()
	days := make([]Day, 0, len(l.days))
	for _, d := range l.days {
		days = append(days, d)
	}
	sort.Slice(days, func(i, j int) bool { return days[i].Number < days[j].Number })
	return days
}

// GetDay returns a day by its number.
func (l *Loader) GetDay(number int) (Day, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	d, ok := l.days[number]
	return d, ok
}

func (l *Loader) loadAll() error {
	return filepath.Walk(l.rootDir, func(path string, info os.FileInfo, err error) error {
		if err != nil || info.IsDir() {
			return nil
		}
		if strings.HasSuffix(path, ".yaml") || strings.HasSuffix(path, ".yml") {
			return l.loadDay(path)
		}
		return nil
	})
}

func (l *Loader) loadDay(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	var f dayFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		slog.Warn("skipping invalid day YAML", "path", path, "error", err)
		return nil
	}
	if f.Number <= 0 {
		return nil // Not a day file
	}

	day := f.Day
	day.IsActive = f.Active == nil || *f.Active

	for i := range day.Lessons {
		lesson := &day.Lessons[i]
		if lesson.OrderIndex == 0 {
			lesson.OrderIndex = i + 1
		}
		if lesson.Type == "" {
			lesson.Type = LessonTheory
		}
		if !lesson.Type.Valid() {
			return apperr.DataIntegrity("%s: lesson %q has unknown type %q", path, lesson.Title, lesson.Type)
		}
		if lesson.Difficulty != "" && !lesson.Difficulty.Valid() {
			return apperr.DataIntegrity("%s: lesson %q has unknown difficulty %q", path, lesson.Title, lesson.Difficulty)
		}
		if lesson.ContentFile != "" && lesson.Content == "" {
			body, err := os.ReadFile(filepath.Join(filepath.Dir(path), lesson.ContentFile))
			if err != nil {
				return fmt.Errorf("%s: reading content for %q: %w", path, lesson.Title, err)
			}
			lesson.Content = string(body)
		}
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if existing, dup := l.days[day.Number]; dup {
		return apperr.DataIntegrity("day %d defined twice (%q and %q)", day.Number, existing.Title, day.Title)
	}
	l.days[day.Number] = day
	return nil
}

// Seeder persists curriculum days and lessons. Upserts are keyed on the day
// number and on (day, order index) so seeding is repeatable.
type Seeder interface {
	UpsertDay(ctx context.Context, d Day) (Day, error)
	UpsertLesson(ctx context.Context, l Lesson) (Lesson, error)
}

// Seed writes every loaded day and its lessons through s.
func (l *Loader) Seed(ctx context.Context, s Seeder) error {
	for _, d := range l.Days() {
		lessons := d.Lessons
		saved, err := s.UpsertDay(ctx, d)
		if err != nil {
			return fmt.Errorf("seed day %d: %w", d.Number, err)
		}
		for _, lesson := range lessons {
			lesson.DayID = saved.ID
			if _, err := s.UpsertLesson(ctx, lesson); err != nil {
				return fmt.Errorf("seed day %d lesson %d: %w", d.Number, lesson.OrderIndex, err)
			}
		}
		slog.Debug("curriculum day seeded", "day_number", d.Number, "lessons", len(lessons))
	}
	return nil
}
