package study

import (
	"context"
	"math/rand"
	"sync"

	"golang.org/x/sync/singleflight"

	"study-app/internal/logger"
)

type Service struct {
	repo      Repository
	generator QuestionGenerator
	broker    *Broker
	log       *logger.Logger

	inflight  singleflight.Group
	flightsMu sync.Mutex
	flights   map[string]*flight

	sessionsMu sync.Mutex
	sessions   map[int64]*Session

	shuffleMu sync.Mutex
	rng       *rand.Rand
}

type ServiceOption func(*Service)

// WithRand makes question shuffling deterministic.
func WithRand(rng *rand.Rand) ServiceOption {
	return func(s *Service) { s.rng = rng }
}

func WithBroker(broker *Broker) ServiceOption {
	return func(s *Service) { s.broker = broker }
}

func WithLogger(log *logger.Logger) ServiceOption {
	return func(s *Service) { s.log = log }
}

func NewService(repo Repository, generator QuestionGenerator, opts ...ServiceOption) *Service {
	s := &Service{
		repo:      repo,
		generator: generator,
		flights:   make(map[string]*flight),
		sessions:  make(map[int64]*Session),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.broker == nil {
		s.broker = NewBroker()
	}
	if s.log == nil {
		s.log = logger.Nop()
	}
	if s.rng == nil {
		s.rng = rand.New(rand.NewSource(rand.Int63()))
	}
	s.log = s.log.With("component", "study")
	return s
}

func (s *Service) Broker() *Broker {
	return s.broker
}

// SeedIfEmpty inserts subjects only when the store has none. It reports
// whether anything was written.
func (s *Service) SeedIfEmpty(ctx context.Context, subjects []SeedSubject) (bool, error) {
	count, err := s.repo.CountSubjects(ctx)
	if err != nil {
		return false, err
	}
	if count > 0 || len(subjects) == 0 {
		return false, nil
	}
	if err := s.repo.SeedContent(ctx, subjects); err != nil {
		return false, err
	}
	s.log.Info("seeded content", "subjects", len(subjects))
	s.broker.Publish(TopicContent, 0)
	return true, nil
}

func (s *Service) ListSubjects(ctx context.Context) ([]Subject, error) {
	return s.repo.ListSubjects(ctx)
}

func (s *Service) GetSubject(ctx context.Context, subjectID int64) (Subject, error) {
	return s.repo.GetSubject(ctx, subjectID)
}

func (s *Service) ListModules(ctx context.Context, subjectID int64) ([]Module, error) {
	if _, err := s.repo.GetSubject(ctx, subjectID); err != nil {
		return nil, err
	}
	return s.repo.ListModules(ctx, subjectID)
}

func (s *Service) GetModuleDetail(ctx context.Context, moduleID int64) (ModuleDetail, error) {
	module, err := s.repo.GetModule(ctx, moduleID)
	if err != nil {
		return ModuleDetail{}, err
	}
	submodules, err := s.repo.ListSubmodules(ctx, moduleID)
	if err != nil {
		return ModuleDetail{}, err
	}
	return ModuleDetail{Module: module, Submodules: submodules}, nil
}

func (s *Service) DeleteModule(ctx context.Context, moduleID int64) error {
	if _, err := s.repo.GetModule(ctx, moduleID); err != nil {
		return err
	}
	if err := s.repo.DeleteModule(ctx, moduleID); err != nil {
		return err
	}
	s.dropModuleSessions(moduleID)
	s.broker.Publish(TopicContent, moduleID)
	return nil
}

func (s *Service) ListAttempts(ctx context.Context, moduleID int64) ([]TestAttempt, error) {
	if _, err := s.repo.GetModule(ctx, moduleID); err != nil {
		return nil, err
	}
	return s.repo.ListAttempts(ctx, moduleID)
}

func (s *Service) shuffle(questions []Question) []Question {
	out := make([]Question, len(questions))
	copy(out, questions)

	s.shuffleMu.Lock()
	s.rng.Shuffle(len(out), func(i, j int) {
		out[i], out[j] = out[j], out[i]
	})
	s.shuffleMu.Unlock()
	return out
}
