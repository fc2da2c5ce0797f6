// Package rag wires the store, tools, dispatcher, orchestrator and session
// manager into the caller-facing query surface.
package rag

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/quillmont/coursechat/internal/metrics"
	"github.com/quillmont/coursechat/internal/orchestrator"
	"github.com/quillmont/coursechat/internal/session"
	"github.com/quillmont/coursechat/tools"
)

// Catalog is the slice of the store the facade needs for analytics.
type Catalog interface {
	CourseCount(ctx context.Context) (int, error)
	CourseTitles(ctx context.Context) ([]string, error)
}

// Analytics summarizes the loaded catalog.
type Analytics struct {
	TotalCourses int
	CourseTitles []string
}

// System answers course-material questions. One query is a self-contained
// synchronous unit of work; the shared dispatcher source slot is guarded
// internally.
type System struct {
	generator  *orchestrator.Generator
	dispatcher *tools.Dispatcher
	sessions   *session.Manager
	catalog    Catalog
	logger     *zap.Logger
}

// New assembles a System.
func New(gen *orchestrator.Generator, disp *tools.Dispatcher, sessions *session.Manager, catalog Catalog, logger *zap.Logger) *System {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &System{
		generator:  gen,
		dispatcher: disp,
		sessions:   sessions,
		catalog:    catalog,
		logger:     logger,
	}
}

// Query answers one question. An empty sessionID starts a new session; the
// (possibly fresh) session id is returned alongside the answer and the
// citation sources gathered during tool execution.
func (s *System) Query(ctx context.Context, query, sessionID string) (string, []tools.Source, string, error) {
	if sessionID == "" {
		sessionID = s.sessions.Create()
	}
	history := s.sessions.History(sessionID)

	prompt := fmt.Sprintf("Answer this question about course materials: %s", query)
	answer, err := s.generator.GenerateAnswer(ctx, prompt, history, s.dispatcher.Definitions(), s.dispatcher)
	if err != nil {
		metrics.QueriesTotal.WithLabelValues("error").Inc()
		s.dispatcher.ResetSources()
		return "", nil, sessionID, fmt.Errorf("generate answer: %w", err)
	}

	sources := s.dispatcher.Sources()
	s.dispatcher.ResetSources()

	s.sessions.AddExchange(sessionID, query, answer)

	metrics.QueriesTotal.WithLabelValues("success").Inc()
	s.logger.Info("query answered",
		zap.String("session_id", sessionID),
		zap.Int("answer_len", len(answer)),
		zap.Int("sources", len(sources)),
	)
	return answer, sources, sessionID, nil
}

// CourseAnalytics reports how many courses are loaded and their titles.
func (s *System) CourseAnalytics(ctx context.Context) (Analytics, error) {
	count, err := s.catalog.CourseCount(ctx)
	if err != nil {
		return Analytics{}, fmt.Errorf("course count: %w", err)
	}
	titles, err := s.catalog.CourseTitles(ctx)
	if err != nil {
		return Analytics{}, fmt.Errorf("course titles: %w", err)
	}
	return Analytics{TotalCourses: count, CourseTitles: titles}, nil
}
