package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"study-app/internal/backup"
	"study-app/internal/completion"
	"study-app/internal/study"
)

const emptyQuizMessage = "could not generate questions, try again"

func writeServiceError(w http.ResponseWriter, err error) {
	var apiErr *completion.APIError
	switch {
	case errors.Is(err, study.ErrSubjectNotFound):
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "subject not found"})
	case errors.Is(err, study.ErrModuleNotFound):
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "module not found"})
	case errors.Is(err, study.ErrAttemptNotFound):
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "attempt not found"})
	case errors.Is(err, study.ErrInvalidAnswer):
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
	case errors.Is(err, study.ErrNoSelection),
		errors.Is(err, study.ErrSessionNotActive),
		errors.Is(err, study.ErrSessionFinished),
		errors.Is(err, study.ErrAttemptCompleted):
		writeJSON(w, http.StatusConflict, errorResponse{Error: err.Error()})
	case errors.Is(err, backup.ErrInvalidBackup):
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "uploaded file is not a valid backup"})
	case errors.Is(err, completion.ErrNotConfigured):
		writeJSON(w, http.StatusServiceUnavailable, errorResponse{Error: "chat is not configured"})
	case errors.As(err, &apiErr):
		writeJSON(w, http.StatusBadGateway, errorResponse{Error: apiErr.Message})
	default:
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "request failed"})
	}
}

// parseIDParam reads a positive integer path parameter.
func parseIDParam(r *http.Request, key string) (int64, error) {
	value := strings.TrimSpace(chi.URLParam(r, key))
	if value == "" {
		return 0, errors.New(key + " is required")
	}

	parsed, err := strconv.ParseInt(value, 10, 64)
	if err != nil || parsed <= 0 {
		return 0, errors.New(key + " must be a positive integer")
	}
	return parsed, nil
}

func toQuestionsResponse(moduleID int64, prov study.Provisioning) questionsResponse {
	questions := make([]study.PublicQuestion, 0, len(prov.Questions))
	for _, q := range prov.Questions {
		questions = append(questions, q.Public())
	}
	response := questionsResponse{
		ModuleID:      moduleID,
		Source:        prov.Source,
		Outcome:       prov.Outcome,
		QuestionCount: len(questions),
		Questions:     questions,
	}
	if prov.Empty() {
		response.Message = provisioningMessage(prov.Source)
	}
	return response
}

func provisioningMessage(source study.ProvisionSource) string {
	if source == study.SourceNoContent {
		return "this module has no study material to build questions from"
	}
	return emptyQuizMessage
}

func writeJSON(w http.ResponseWriter, statusCode int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(payload)
}
