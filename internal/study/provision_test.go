package study

import (
	"context"
	"errors"
	"math/rand"
	"strconv"
	"sync"
	"testing"
	"time"

	"study-app/internal/completion"
)

func newTestService(repo *fakeRepo, gen QuestionGenerator) *Service {
	return NewService(repo, gen, WithRand(rand.New(rand.NewSource(7))))
}

func waitForWaiters(t *testing.T, svc *Service, moduleID int64, want int) {
	t.Helper()
	key := strconv.FormatInt(moduleID, 10)
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		svc.flightsMu.Lock()
		f := svc.flights[key]
		got := 0
		if f != nil {
			got = f.waiters
		}
		svc.flightsMu.Unlock()
		if got == want {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("timed out waiting for %d waiters", want)
}

func TestEnsureQuestionsReturnsCachedWithoutGenerating(t *testing.T) {
	repo := newFakeRepo()
	moduleID := repo.addModule("Layer 1 text")
	stored := repo.addQuestions(moduleID, "A", "B")
	gen := &fakeGenerator{result: draftSet("C")}
	svc := newTestService(repo, gen)

	prov, err := svc.EnsureQuestions(context.Background(), moduleID)
	if err != nil {
		t.Fatalf("EnsureQuestions failed: %v", err)
	}
	if prov.Source != SourceCached || len(prov.Questions) != 2 || prov.Questions[0].ID != stored[0].ID {
		t.Fatalf("unexpected provisioning: %+v", prov)
	}
	if gen.callCount() != 0 {
		t.Fatalf("expected no generator call, got %d", gen.callCount())
	}
}

func TestEnsureQuestionsGeneratesAndPersists(t *testing.T) {
	repo := newFakeRepo()
	moduleID := repo.addModule("Layer 1 text", "  ", "Layer 2 text")
	gen := &fakeGenerator{result: draftSet("A", "B", "C")}
	svc := newTestService(repo, gen)

	changes, cancel := svc.Broker().Subscribe(4)
	defer cancel()

	prov, err := svc.EnsureQuestions(context.Background(), moduleID)
	if err != nil {
		t.Fatalf("EnsureQuestions failed: %v", err)
	}
	if prov.Source != SourceGenerated || prov.Outcome != completion.OutcomeSuccess || len(prov.Questions) != 3 {
		t.Fatalf("unexpected provisioning: %+v", prov)
	}
	if gen.contents[0] != "Layer 1 text\n\nLayer 2 text" {
		t.Fatalf("unexpected content sent to generator: %q", gen.contents[0])
	}

	stored, _ := repo.ListQuestions(context.Background(), moduleID)
	if len(stored) != 3 || stored[0].ModuleID != moduleID {
		t.Fatalf("expected generated questions persisted, got %+v", stored)
	}

	select {
	case change := <-changes:
		if change.Topic != TopicQuestions || change.ID != moduleID {
			t.Fatalf("unexpected change: %+v", change)
		}
	default:
		t.Fatalf("expected a questions change")
	}
}

func TestEnsureQuestionsBlankContentSkipsGenerator(t *testing.T) {
	repo := newFakeRepo()
	moduleID := repo.addModule("", " \n\t")
	gen := &fakeGenerator{result: draftSet("A")}
	svc := newTestService(repo, gen)

	prov, err := svc.EnsureQuestions(context.Background(), moduleID)
	if err != nil {
		t.Fatalf("EnsureQuestions failed: %v", err)
	}
	if !prov.Empty() || prov.Source != SourceNoContent {
		t.Fatalf("unexpected provisioning: %+v", prov)
	}
	if gen.callCount() != 0 {
		t.Fatalf("expected no generator call, got %d", gen.callCount())
	}
}

func TestEnsureQuestionsDegradesOnGeneratorFailure(t *testing.T) {
	tests := []struct {
		name   string
		gen    QuestionGenerator
		expect completion.Outcome
	}{
		{
			name:   "api error",
			gen:    &fakeGenerator{result: completion.Result{Outcome: completion.OutcomeAPIError, Message: "quota"}},
			expect: completion.OutcomeAPIError,
		},
		{
			name:   "malformed",
			gen:    &fakeGenerator{result: completion.Result{Outcome: completion.OutcomeMalformed, Err: errors.New("bad json")}},
			expect: completion.OutcomeMalformed,
		},
		{
			name:   "no generator",
			gen:    nil,
			expect: completion.OutcomeNotConfigured,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			repo := newFakeRepo()
			moduleID := repo.addModule("Layer 1 text")
			svc := newTestService(repo, tc.gen)

			prov, err := svc.EnsureQuestions(context.Background(), moduleID)
			if err != nil {
				t.Fatalf("EnsureQuestions failed: %v", err)
			}
			if !prov.Empty() || prov.Source != SourceFailed || prov.Outcome != tc.expect {
				t.Fatalf("unexpected provisioning: %+v", prov)
			}
			if repo.insertCalls != 0 {
				t.Fatalf("expected nothing persisted, got %d inserts", repo.insertCalls)
			}
		})
	}
}

func TestEnsureQuestionsUnknownModule(t *testing.T) {
	svc := newTestService(newFakeRepo(), &fakeGenerator{})
	if _, err := svc.EnsureQuestions(context.Background(), 42); !errors.Is(err, ErrModuleNotFound) {
		t.Fatalf("expected ErrModuleNotFound, got %v", err)
	}
}

func TestEnsureQuestionsSharesOneGeneration(t *testing.T) {
	repo := newFakeRepo()
	moduleID := repo.addModule("Layer 1 text")
	gen := &fakeGenerator{
		result:  draftSet("A", "B"),
		block:   make(chan struct{}),
		started: make(chan struct{}, 1),
	}
	svc := newTestService(repo, gen)

	const callers = 3
	var wg sync.WaitGroup
	results := make([]Provisioning, callers)
	errs := make([]error, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = svc.EnsureQuestions(context.Background(), moduleID)
		}(i)
	}

	<-gen.started
	waitForWaiters(t, svc, moduleID, callers)
	close(gen.block)
	wg.Wait()

	for i := 0; i < callers; i++ {
		if errs[i] != nil {
			t.Fatalf("caller %d failed: %v", i, errs[i])
		}
		if results[i].Source != SourceGenerated || len(results[i].Questions) != 2 {
			t.Fatalf("caller %d got %+v", i, results[i])
		}
	}
	if gen.callCount() != 1 {
		t.Fatalf("expected one generation, got %d", gen.callCount())
	}
	if repo.insertCalls != 1 {
		t.Fatalf("expected one insert, got %d", repo.insertCalls)
	}
}

func TestEnsureQuestionsCancelledCallerDoesNotAbortOthers(t *testing.T) {
	repo := newFakeRepo()
	moduleID := repo.addModule("Layer 1 text")
	gen := &fakeGenerator{
		result:  draftSet("A", "B"),
		block:   make(chan struct{}),
		started: make(chan struct{}, 1),
	}
	svc := newTestService(repo, gen)

	leaving, leave := context.WithCancel(context.Background())
	leftErr := make(chan error, 1)
	go func() {
		_, err := svc.EnsureQuestions(leaving, moduleID)
		leftErr <- err
	}()
	<-gen.started

	stayed := make(chan Provisioning, 1)
	go func() {
		prov, _ := svc.EnsureQuestions(context.Background(), moduleID)
		stayed <- prov
	}()
	waitForWaiters(t, svc, moduleID, 2)

	leave()
	if err := <-leftErr; !errors.Is(err, context.Canceled) {
		t.Fatalf("expected cancelled caller to get context.Canceled, got %v", err)
	}

	close(gen.block)
	prov := <-stayed
	if prov.Source != SourceGenerated || len(prov.Questions) != 2 {
		t.Fatalf("remaining caller got %+v", prov)
	}
	if gen.callCount() != 1 {
		t.Fatalf("expected one generation, got %d", gen.callCount())
	}
}

func TestEnsureQuestionsAfterAbandonedFlightStartsFresh(t *testing.T) {
	repo := newFakeRepo()
	moduleID := repo.addModule("Layer 1 text")

	hold := make(chan struct{})
	t.Cleanup(func() { close(hold) })
	firstStarted := make(chan struct{})
	var once sync.Once
	gen := &fakeGenerator{result: draftSet("A", "B")}
	gen.onCall = func(int64) {
		held := false
		once.Do(func() {
			held = true
			close(firstStarted)
		})
		if held {
			// The first call ignores cancellation and keeps running.
			<-hold
		}
	}
	svc := newTestService(repo, gen)

	leaving, leave := context.WithCancel(context.Background())
	leftErr := make(chan error, 1)
	go func() {
		_, err := svc.EnsureQuestions(leaving, moduleID)
		leftErr <- err
	}()
	<-firstStarted
	leave()
	if err := <-leftErr; !errors.Is(err, context.Canceled) {
		t.Fatalf("expected the abandoning caller to get context.Canceled, got %v", err)
	}

	type outcome struct {
		prov Provisioning
		err  error
	}
	fresh := make(chan outcome, 1)
	go func() {
		prov, err := svc.EnsureQuestions(context.Background(), moduleID)
		fresh <- outcome{prov, err}
	}()

	select {
	case got := <-fresh:
		if got.err != nil {
			t.Fatalf("fresh caller failed: %v", got.err)
		}
		if got.prov.Source != SourceGenerated || len(got.prov.Questions) != 2 {
			t.Fatalf("fresh caller got %+v", got.prov)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("fresh caller joined the abandoned generation")
	}
	if gen.callCount() != 2 {
		t.Fatalf("generator calls = %d, want 2", gen.callCount())
	}
}

func TestRegenerateQuestionsDeletesBeforeGenerating(t *testing.T) {
	repo := newFakeRepo()
	moduleID := repo.addModule("Layer 1 text")
	repo.addQuestions(moduleID, "A", "B")
	attempt, _ := repo.CreateAttempt(context.Background(), TestAttempt{ModuleID: moduleID, Status: AttemptPending, TotalQuestions: 2})

	var questionsAtCall int
	gen := &fakeGenerator{result: draftSet("C", "D", "A")}
	gen.onCall = func(id int64) {
		repo.mu.Lock()
		questionsAtCall = len(repo.questions[id])
		repo.mu.Unlock()
	}
	svc := newTestService(repo, gen)

	prov, err := svc.RegenerateQuestions(context.Background(), moduleID)
	if err != nil {
		t.Fatalf("RegenerateQuestions failed: %v", err)
	}
	if repo.deleteCalls != 1 || questionsAtCall != 0 {
		t.Fatalf("expected delete before generate, deletes=%d questionsAtCall=%d", repo.deleteCalls, questionsAtCall)
	}
	if prov.Source != SourceGenerated || len(prov.Questions) != 3 {
		t.Fatalf("unexpected provisioning: %+v", prov)
	}
	if _, err := repo.GetAttempt(context.Background(), attempt.ID); !errors.Is(err, ErrAttemptNotFound) {
		t.Fatalf("expected attempts removed with the old questions, got %v", err)
	}
}

func TestRegenerateQuestionsFailureLeavesModuleEmpty(t *testing.T) {
	repo := newFakeRepo()
	moduleID := repo.addModule("Layer 1 text")
	repo.addQuestions(moduleID, "A")
	gen := &fakeGenerator{result: completion.Result{Outcome: completion.OutcomeTransport, Err: errors.New("offline")}}
	svc := newTestService(repo, gen)

	prov, err := svc.RegenerateQuestions(context.Background(), moduleID)
	if err != nil {
		t.Fatalf("RegenerateQuestions failed: %v", err)
	}
	if !prov.Empty() || prov.Outcome != completion.OutcomeTransport {
		t.Fatalf("unexpected provisioning: %+v", prov)
	}
	if stored, _ := repo.ListQuestions(context.Background(), moduleID); len(stored) != 0 {
		t.Fatalf("expected no questions after failed regeneration, got %d", len(stored))
	}
}
