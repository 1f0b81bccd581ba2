package study

import (
	"context"
	"sort"
	"sync"
	"time"

	"study-app/internal/completion"
)

type fakeRepo struct {
	mu sync.Mutex

	subjects   map[int64]Subject
	modules    map[int64]Module
	submodules map[int64][]Submodule
	questions  map[int64][]Question
	attempts   map[int64]TestAttempt
	answers    map[int64][]UserAnswer
	nextID     int64

	insertCalls int
	deleteCalls int
	// completeErrs are returned, in order, by the next CompleteAttempt calls.
	completeErrs []error
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		subjects:   make(map[int64]Subject),
		modules:    make(map[int64]Module),
		submodules: make(map[int64][]Submodule),
		questions:  make(map[int64][]Question),
		attempts:   make(map[int64]TestAttempt),
		answers:    make(map[int64][]UserAnswer),
	}
}

func (f *fakeRepo) id() int64 {
	f.nextID++
	return f.nextID
}

// addModule creates a subject with one module holding the given submodule
// bodies and returns the module id.
func (f *fakeRepo) addModule(bodies ...string) int64 {
	f.mu.Lock()
	defer f.mu.Unlock()

	subject := Subject{ID: f.id(), Name: "Networks"}
	f.subjects[subject.ID] = subject
	module := Module{ID: f.id(), SubjectID: subject.ID, Title: "OSI"}
	f.modules[module.ID] = module
	for i, body := range bodies {
		f.submodules[module.ID] = append(f.submodules[module.ID], Submodule{
			ID:       f.id(),
			ModuleID: module.ID,
			Title:    "Part " + string(rune('1'+i)),
			Body:     body,
		})
	}
	return module.ID
}

func (f *fakeRepo) addQuestions(moduleID int64, answers ...string) []Question {
	f.mu.Lock()
	defer f.mu.Unlock()

	out := make([]Question, 0, len(answers))
	for i, answer := range answers {
		q := Question{
			ID:            f.id(),
			ModuleID:      moduleID,
			Text:          "Question " + string(rune('A'+i)),
			OptionA:       "a",
			OptionB:       "b",
			OptionC:       "c",
			OptionD:       "d",
			CorrectAnswer: answer,
		}
		out = append(out, q)
	}
	f.questions[moduleID] = append(f.questions[moduleID], out...)
	return out
}

func (f *fakeRepo) CountSubjects(context.Context) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.subjects), nil
}

func (f *fakeRepo) SeedContent(_ context.Context, subjects []SeedSubject) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, s := range subjects {
		subject := Subject{ID: f.id(), Name: s.Name}
		f.subjects[subject.ID] = subject
		for _, m := range s.Modules {
			module := Module{ID: f.id(), SubjectID: subject.ID, Title: m.Title, Description: m.Description}
			f.modules[module.ID] = module
			for _, sub := range m.Submodules {
				f.submodules[module.ID] = append(f.submodules[module.ID], Submodule{ID: f.id(), ModuleID: module.ID, Title: sub.Title, Body: sub.Body})
			}
		}
	}
	return nil
}

func (f *fakeRepo) ListSubjects(context.Context) ([]Subject, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]Subject, 0, len(f.subjects))
	for _, s := range f.subjects {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f *fakeRepo) GetSubject(_ context.Context, subjectID int64) (Subject, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.subjects[subjectID]
	if !ok {
		return Subject{}, ErrSubjectNotFound
	}
	return s, nil
}

func (f *fakeRepo) ListModules(_ context.Context, subjectID int64) ([]Module, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]Module, 0)
	for _, m := range f.modules {
		if m.SubjectID == subjectID {
			out = append(out, m)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f *fakeRepo) GetModule(_ context.Context, moduleID int64) (Module, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	m, ok := f.modules[moduleID]
	if !ok {
		return Module{}, ErrModuleNotFound
	}
	return m, nil
}

func (f *fakeRepo) ListSubmodules(_ context.Context, moduleID int64) ([]Submodule, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Submodule(nil), f.submodules[moduleID]...), nil
}

func (f *fakeRepo) DeleteModule(_ context.Context, moduleID int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.modules[moduleID]; !ok {
		return ErrModuleNotFound
	}
	delete(f.modules, moduleID)
	delete(f.submodules, moduleID)
	delete(f.questions, moduleID)
	f.deleteAttemptsLocked(moduleID)
	return nil
}

func (f *fakeRepo) ListQuestions(_ context.Context, moduleID int64) ([]Question, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Question(nil), f.questions[moduleID]...), nil
}

func (f *fakeRepo) InsertQuestions(_ context.Context, moduleID int64, drafts []completion.QuestionDraft) ([]Question, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.insertCalls++
	if len(f.questions[moduleID]) > 0 {
		return nil, ErrQuestionsExist
	}
	out := make([]Question, 0, len(drafts))
	for _, d := range drafts {
		out = append(out, Question{
			ID:            f.id(),
			ModuleID:      moduleID,
			Text:          d.QuestionText,
			OptionA:       d.OptionA,
			OptionB:       d.OptionB,
			OptionC:       d.OptionC,
			OptionD:       d.OptionD,
			CorrectAnswer: d.CorrectAnswer,
		})
	}
	f.questions[moduleID] = out
	return append([]Question(nil), out...), nil
}

func (f *fakeRepo) DeleteQuestions(_ context.Context, moduleID int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleteCalls++
	delete(f.questions, moduleID)
	f.deleteAttemptsLocked(moduleID)
	return nil
}

func (f *fakeRepo) deleteAttemptsLocked(moduleID int64) {
	for id, a := range f.attempts {
		if a.ModuleID == moduleID {
			delete(f.attempts, id)
			delete(f.answers, id)
		}
	}
}

func (f *fakeRepo) CreateAttempt(_ context.Context, attempt TestAttempt) (TestAttempt, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	attempt.ID = f.id()
	if attempt.CreatedAt.IsZero() {
		attempt.CreatedAt = time.Now().UTC()
	}
	f.attempts[attempt.ID] = attempt
	return attempt, nil
}

func (f *fakeRepo) GetAttempt(_ context.Context, attemptID int64) (TestAttempt, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.attempts[attemptID]
	if !ok {
		return TestAttempt{}, ErrAttemptNotFound
	}
	return a, nil
}

func (f *fakeRepo) ListAttempts(_ context.Context, moduleID int64) ([]TestAttempt, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]TestAttempt, 0)
	for _, a := range f.attempts {
		if a.ModuleID == moduleID {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

func (f *fakeRepo) RecordAnswer(_ context.Context, answer UserAnswer, nextIndex, correctSoFar int) (UserAnswer, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.attempts[answer.AttemptID]
	if !ok {
		return UserAnswer{}, ErrAttemptNotFound
	}
	if a.Status == AttemptCompleted {
		return UserAnswer{}, ErrAttemptCompleted
	}
	answer.ID = f.id()
	f.answers[answer.AttemptID] = append(f.answers[answer.AttemptID], answer)
	a.CurrentQuestionIndex = nextIndex
	a.CorrectAnswers = correctSoFar
	f.attempts[a.ID] = a
	return answer, nil
}

func (f *fakeRepo) CompleteAttempt(_ context.Context, attemptID int64, correct, total int, score float64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.completeErrs) > 0 {
		err := f.completeErrs[0]
		f.completeErrs = f.completeErrs[1:]
		return err
	}
	a, ok := f.attempts[attemptID]
	if !ok {
		return ErrAttemptNotFound
	}
	a.Status = AttemptCompleted
	a.CorrectAnswers = correct
	a.TotalQuestions = total
	a.CurrentQuestionIndex = total
	a.Score = score
	f.attempts[attemptID] = a
	return nil
}

func (f *fakeRepo) ListAnswers(_ context.Context, attemptID int64) ([]UserAnswer, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]UserAnswer(nil), f.answers[attemptID]...), nil
}

// removeQuestion simulates a question disappearing after it was answered.
func (f *fakeRepo) removeQuestion(moduleID, questionID int64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	kept := f.questions[moduleID][:0]
	for _, q := range f.questions[moduleID] {
		if q.ID != questionID {
			kept = append(kept, q)
		}
	}
	f.questions[moduleID] = kept
}

type fakeGenerator struct {
	mu       sync.Mutex
	calls    int
	contents []string
	result   completion.Result
	// block, when set, holds every call until it is closed.
	block   chan struct{}
	started chan struct{}
	onCall  func(moduleID int64)
}

func (g *fakeGenerator) GenerateQuestions(ctx context.Context, moduleID int64, content string) completion.Result {
	g.mu.Lock()
	g.calls++
	g.contents = append(g.contents, content)
	result := g.result
	g.mu.Unlock()

	if g.onCall != nil {
		g.onCall(moduleID)
	}
	if g.started != nil {
		select {
		case g.started <- struct{}{}:
		default:
		}
	}
	if g.block != nil {
		select {
		case <-g.block:
		case <-ctx.Done():
			return completion.Result{Outcome: completion.OutcomeTransport, Err: ctx.Err()}
		}
	}

	questions := make([]completion.QuestionDraft, len(result.Questions))
	for i, q := range result.Questions {
		q.ModuleID = moduleID
		questions[i] = q
	}
	result.Questions = questions
	return result
}

func (g *fakeGenerator) callCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.calls
}

func draftSet(answers ...string) completion.Result {
	drafts := make([]completion.QuestionDraft, 0, len(answers))
	for i, answer := range answers {
		drafts = append(drafts, completion.QuestionDraft{
			QuestionText:  "Generated " + string(rune('A'+i)),
			OptionA:       "a",
			OptionB:       "b",
			OptionC:       "c",
			OptionD:       "d",
			CorrectAnswer: answer,
		})
	}
	return completion.Result{Outcome: completion.OutcomeSuccess, Questions: drafts}
}
