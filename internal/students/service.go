package students

import (
	"context"
	"fmt"
	"strings"

	"ms-invoicing/internal/cache"
	"ms-invoicing/internal/logger"
	"ms-invoicing/internal/models"
	"ms-invoicing/internal/store"
)

type NewStudent struct {
	Name    string `json:"name"`
	Class   string `json:"class"`
	Section string `json:"section"`
	RollNo  string `json:"rollNo"`
}

// Directory is the student list together with its total.
type Directory struct {
	Students []models.Student `json:"students"`
	Total    int              `json:"total"`
}

type Service struct {
	Students store.Collection[models.Student]
	Cache    *cache.StatsCache
	Logger   *logger.Logger
}

func NewService(students store.Collection[models.Student], statsCache *cache.StatsCache, log *logger.Logger) *Service {
	return &Service{Students: students, Cache: statsCache, Logger: log}
}

func (s *Service) AddStudent(ctx context.Context, in NewStudent) (*models.Student, error) {
	student := &models.Student{
		Name:    strings.TrimSpace(in.Name),
		Class:   strings.TrimSpace(in.Class),
		Section: strings.TrimSpace(in.Section),
		RollNo:  strings.TrimSpace(in.RollNo),
	}

	id, err := s.Students.Insert(ctx, student)
	if err != nil {
		s.Logger.Error("STUDENT", fmt.Sprintf("Failed to add student %q: %v", student.Name, err))
		return nil, fmt.Errorf("add student: %w", err)
	}

	if err := s.Cache.Invalidate(ctx, cache.KeyTotalStudents); err != nil {
		s.Logger.Warn("STUDENT", err.Error())
	}
	s.Logger.LogStudent("ADD", id, student.Name)
	return student, nil
}

// ListStudents returns every student, newest first.
func (s *Service) ListStudents(ctx context.Context) (*Directory, error) {
	list, err := s.Students.List(ctx, store.OrderBy("created_at", true))
	if err != nil {
		s.Logger.Error("STUDENT", fmt.Sprintf("Failed to list students: %v", err))
		return nil, fmt.Errorf("list students: %w", err)
	}
	return &Directory{Students: list, Total: len(list)}, nil
}

func (s *Service) CountStudents(ctx context.Context) (int, error) {
	n, err := s.Cache.GetOrLoad(ctx, cache.KeyTotalStudents, func(ctx context.Context) (int64, error) {
		n, err := s.Students.Count(ctx)
		return int64(n), err
	})
	return int(n), err
}
