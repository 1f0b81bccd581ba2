package httpapi

import (
	"study-app/internal/completion"
	"study-app/internal/study"
)

type subjectsResponse struct {
	Subjects []study.Subject `json:"subjects"`
}

type modulesResponse struct {
	Subject study.Subject  `json:"subject"`
	Modules []study.Module `json:"modules"`
}

type attemptsResponse struct {
	ModuleID int64               `json:"module_id"`
	Attempts []study.TestAttempt `json:"attempts"`
}

type questionsResponse struct {
	ModuleID      int64                  `json:"module_id"`
	Source        study.ProvisionSource  `json:"source"`
	Outcome       completion.Outcome     `json:"outcome,omitempty"`
	QuestionCount int                    `json:"question_count"`
	Questions     []study.PublicQuestion `json:"questions"`
	Message       string                 `json:"message,omitempty"`
}

type sessionResponse struct {
	study.SessionState
	Message string `json:"message,omitempty"`
}

type selectRequest struct {
	Answer string `json:"answer"`
}

type chatRequest struct {
	Messages []completion.Message `json:"messages"`
}

type chatResponse struct {
	Message completion.Message `json:"message"`
}

type legalResponse struct {
	Text string `json:"text"`
}

type errorResponse struct {
	Error string `json:"error"`
}
