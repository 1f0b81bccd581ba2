package completion

import "fmt"

// Outcome tags how a generation request ended.
type Outcome string

const (
	OutcomeSuccess       Outcome = "success"
	OutcomeSkipped       Outcome = "skipped"
	OutcomeNotConfigured Outcome = "not_configured"
	OutcomeTransport     Outcome = "transport_error"
	OutcomeAPIError      Outcome = "api_error"
	OutcomeMalformed     Outcome = "malformed_response"
)

// QuestionDraft is a generated question not yet persisted.
type QuestionDraft struct {
	ModuleID      int64
	QuestionText  string
	OptionA       string
	OptionB       string
	OptionC       string
	OptionD       string
	CorrectAnswer string
}

// Result is returned instead of an error: every failure path is a value.
type Result struct {
	Outcome   Outcome
	Questions []QuestionDraft
	Message   string
	Err       error
}

func (r Result) OK() bool {
	return r.Outcome == OutcomeSuccess && len(r.Questions) > 0
}

func (r Result) String() string {
	switch {
	case r.Message != "":
		return fmt.Sprintf("%s: %s", r.Outcome, r.Message)
	case r.Err != nil:
		return fmt.Sprintf("%s: %v", r.Outcome, r.Err)
	default:
		return string(r.Outcome)
	}
}

func success(questions []QuestionDraft) Result {
	return Result{Outcome: OutcomeSuccess, Questions: questions}
}

func skipped(message string) Result {
	return Result{Outcome: OutcomeSkipped, Message: message}
}

func notConfigured() Result {
	return Result{Outcome: OutcomeNotConfigured, Message: "llm credentials are missing"}
}

func transportError(err error) Result {
	return Result{Outcome: OutcomeTransport, Err: err}
}

func apiError(message string) Result {
	return Result{Outcome: OutcomeAPIError, Message: message}
}

func malformed(err error) Result {
	return Result{Outcome: OutcomeMalformed, Err: err}
}
