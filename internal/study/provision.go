package study

import (
	"context"
	"errors"
	"strconv"
	"strings"

	"study-app/internal/completion"
)

type ProvisionSource string

const (
	SourceCached    ProvisionSource = "cached"
	SourceGenerated ProvisionSource = "generated"
	SourceNoContent ProvisionSource = "no_content"
	SourceFailed    ProvisionSource = "failed"
)

// Provisioning is the outcome of EnsureQuestions. An empty Questions slice
// means generation did not produce a usable set, never that the module is
// legitimately question-free.
type Provisioning struct {
	Questions []Question
	Source    ProvisionSource
	Outcome   completion.Outcome
	Detail    string
}

func (p Provisioning) Empty() bool {
	return len(p.Questions) == 0
}

// flight tracks the callers waiting on one module's generation so the work
// is cancelled once every one of them has gone away.
type flight struct {
	ctx     context.Context
	cancel  context.CancelFunc
	waiters int
}

// EnsureQuestions returns the module's stored questions, generating and
// persisting a set first when none exist. Concurrent callers for the same
// module share one generation.
func (s *Service) EnsureQuestions(ctx context.Context, moduleID int64) (Provisioning, error) {
	if _, err := s.repo.GetModule(ctx, moduleID); err != nil {
		return Provisioning{}, err
	}

	existing, err := s.repo.ListQuestions(ctx, moduleID)
	if err != nil {
		return Provisioning{}, err
	}
	if len(existing) > 0 {
		return Provisioning{Questions: existing, Source: SourceCached}, nil
	}

	return s.shareGeneration(ctx, moduleID, false)
}

// RegenerateQuestions drops the module's questions, which takes its attempts
// and answers with them, and generates a fresh set unconditionally.
func (s *Service) RegenerateQuestions(ctx context.Context, moduleID int64) (Provisioning, error) {
	if _, err := s.repo.GetModule(ctx, moduleID); err != nil {
		return Provisioning{}, err
	}
	return s.shareGeneration(ctx, moduleID, true)
}

func (s *Service) shareGeneration(ctx context.Context, moduleID int64, replace bool) (Provisioning, error) {
	key := strconv.FormatInt(moduleID, 10)

	s.flightsMu.Lock()
	if replace {
		// Later callers join the regeneration rather than an older flight.
		s.inflight.Forget(key)
		delete(s.flights, key)
	}
	f := s.flights[key]
	if f == nil || f.ctx.Err() != nil {
		// An abandoned call may still be unwinding under this key; start a
		// fresh one instead of inheriting its cancellation.
		s.inflight.Forget(key)
		fctx, cancel := context.WithCancel(context.WithoutCancel(ctx))
		f = &flight{ctx: fctx, cancel: cancel}
		s.flights[key] = f
	}
	f.waiters++
	results := s.inflight.DoChan(key, func() (any, error) {
		defer s.endFlight(key, f)
		return s.generate(f.ctx, moduleID, replace)
	})
	s.flightsMu.Unlock()

	select {
	case <-ctx.Done():
		s.leaveFlight(key, f)
		return Provisioning{}, ctx.Err()
	case res := <-results:
		s.leaveFlight(key, f)
		if res.Err != nil {
			return Provisioning{}, res.Err
		}
		if res.Shared {
			s.log.Debug("joined in-flight generation", "module_id", moduleID)
		}
		return res.Val.(Provisioning), nil
	}
}

func (s *Service) endFlight(key string, f *flight) {
	s.flightsMu.Lock()
	defer s.flightsMu.Unlock()
	if s.flights[key] == f {
		delete(s.flights, key)
	}
	f.cancel()
}

func (s *Service) leaveFlight(key string, f *flight) {
	s.flightsMu.Lock()
	defer s.flightsMu.Unlock()
	f.waiters--
	if f.waiters > 0 {
		return
	}
	f.cancel()
	if s.flights[key] == f {
		delete(s.flights, key)
	}
}

func (s *Service) generate(ctx context.Context, moduleID int64, replace bool) (Provisioning, error) {
	if replace {
		if err := s.repo.DeleteQuestions(ctx, moduleID); err != nil {
			return Provisioning{}, err
		}
		s.dropModuleSessions(moduleID)
		s.log.Info("questions discarded for regeneration", "module_id", moduleID)
		s.broker.Publish(TopicQuestions, moduleID)
		s.broker.Publish(TopicAttempts, moduleID)
	} else {
		// A flight that finished just before this one may already have stored a set.
		existing, err := s.repo.ListQuestions(ctx, moduleID)
		if err != nil {
			return Provisioning{}, err
		}
		if len(existing) > 0 {
			return Provisioning{Questions: existing, Source: SourceCached}, nil
		}
	}

	content, err := s.moduleContent(ctx, moduleID)
	if err != nil {
		return Provisioning{}, err
	}
	if strings.TrimSpace(content) == "" {
		return Provisioning{Source: SourceNoContent, Outcome: completion.OutcomeSkipped}, nil
	}
	if s.generator == nil {
		return Provisioning{Source: SourceFailed, Outcome: completion.OutcomeNotConfigured}, nil
	}

	result := s.generator.GenerateQuestions(ctx, moduleID, content)
	if err := ctx.Err(); err != nil {
		return Provisioning{}, err
	}
	if !result.OK() {
		s.log.Warn("question generation failed", "module_id", moduleID, "result", result.String())
		return Provisioning{Source: SourceFailed, Outcome: result.Outcome, Detail: result.String()}, nil
	}

	questions, err := s.repo.InsertQuestions(ctx, moduleID, result.Questions)
	if errors.Is(err, ErrQuestionsExist) {
		// Another flight stored a set while this one was generating; keep it.
		existing, listErr := s.repo.ListQuestions(ctx, moduleID)
		if listErr != nil {
			return Provisioning{}, listErr
		}
		return Provisioning{Questions: existing, Source: SourceCached}, nil
	}
	if err != nil {
		return Provisioning{}, err
	}
	s.broker.Publish(TopicQuestions, moduleID)
	return Provisioning{Questions: questions, Source: SourceGenerated, Outcome: completion.OutcomeSuccess}, nil
}

func (s *Service) moduleContent(ctx context.Context, moduleID int64) (string, error) {
	submodules, err := s.repo.ListSubmodules(ctx, moduleID)
	if err != nil {
		return "", err
	}
	parts := make([]string, 0, len(submodules))
	for _, sub := range submodules {
		if body := strings.TrimSpace(sub.Body); body != "" {
			parts = append(parts, body)
		}
	}
	return strings.Join(parts, "\n\n"), nil
}
