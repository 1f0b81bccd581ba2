package httpapi

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"study-app/internal/study"
)

const (
	maxJSONBodyBytes    = 1 << 20
	maxRestoreBodyBytes = 512 << 20
	eventHeartbeat      = 15 * time.Second
)

func (a *API) HandleListSubjects(w http.ResponseWriter, r *http.Request) {
	subjects, err := a.service.ListSubjects(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, subjectsResponse{Subjects: subjects})
}

func (a *API) HandleListModules(w http.ResponseWriter, r *http.Request) {
	subjectID, err := parseIDParam(r, "subjectID")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}

	subject, err := a.service.GetSubject(r.Context(), subjectID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	modules, err := a.service.ListModules(r.Context(), subjectID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, modulesResponse{Subject: subject, Modules: modules})
}

func (a *API) HandleGetModule(w http.ResponseWriter, r *http.Request) {
	moduleID, err := parseIDParam(r, "moduleID")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}

	detail, err := a.service.GetModuleDetail(r.Context(), moduleID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, detail)
}

func (a *API) HandleDeleteModule(w http.ResponseWriter, r *http.Request) {
	moduleID, err := parseIDParam(r, "moduleID")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}

	if err := a.service.DeleteModule(r.Context(), moduleID); err != nil {
		writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleQuestions returns the module's questions, generating them on first
// use. A generation failure is a 200 with an empty list and a message.
func (a *API) HandleQuestions(w http.ResponseWriter, r *http.Request) {
	moduleID, err := parseIDParam(r, "moduleID")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}

	prov, err := a.service.EnsureQuestions(r.Context(), moduleID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toQuestionsResponse(moduleID, prov))
}

func (a *API) HandleRegenerateQuestions(w http.ResponseWriter, r *http.Request) {
	moduleID, err := parseIDParam(r, "moduleID")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}

	prov, err := a.service.RegenerateQuestions(r.Context(), moduleID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toQuestionsResponse(moduleID, prov))
}

func (a *API) HandleListAttempts(w http.ResponseWriter, r *http.Request) {
	moduleID, err := parseIDParam(r, "moduleID")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}

	attempts, err := a.service.ListAttempts(r.Context(), moduleID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, attemptsResponse{ModuleID: moduleID, Attempts: attempts})
}

func (a *API) HandleStartQuiz(w http.ResponseWriter, r *http.Request) {
	moduleID, err := parseIDParam(r, "moduleID")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}

	sess, err := a.service.StartSession(r.Context(), moduleID)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	state := sess.State()
	if state.Status == study.SessionEmptyQuestions {
		writeJSON(w, http.StatusOK, sessionResponse{SessionState: state, Message: provisioningMessage(state.Provisioning)})
		return
	}
	writeJSON(w, http.StatusCreated, sessionResponse{SessionState: state})
}

func (a *API) HandleGetAttempt(w http.ResponseWriter, r *http.Request) {
	attemptID, err := parseIDParam(r, "attemptID")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}

	state, err := a.service.AttemptState(r.Context(), attemptID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sessionResponse{SessionState: state})
}

func (a *API) HandleResumeAttempt(w http.ResponseWriter, r *http.Request) {
	attemptID, err := parseIDParam(r, "attemptID")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}

	sess, err := a.service.ResumeSession(r.Context(), attemptID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sessionResponse{SessionState: sess.State()})
}

func (a *API) HandleSelectAnswer(w http.ResponseWriter, r *http.Request) {
	attemptID, err := parseIDParam(r, "attemptID")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}

	defer r.Body.Close()
	var request selectRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxJSONBodyBytes)).Decode(&request); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid JSON body"})
		return
	}

	sess, ok := a.service.LiveSession(attemptID)
	if !ok {
		writeServiceError(w, a.inactiveSessionError(r, attemptID))
		return
	}
	state, err := sess.Select(request.Answer)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sessionResponse{SessionState: state})
}

// HandleNextQuestion scores the selected answer. Without a selection it
// answers 409 and the session does not move.
func (a *API) HandleNextQuestion(w http.ResponseWriter, r *http.Request) {
	attemptID, err := parseIDParam(r, "attemptID")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}

	sess, ok := a.service.LiveSession(attemptID)
	if !ok {
		writeServiceError(w, a.inactiveSessionError(r, attemptID))
		return
	}
	state, err := sess.Next(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sessionResponse{SessionState: state})
}

// inactiveSessionError explains why attemptID has no live session: the
// attempt is unknown, already finished, or pending but not resumed.
func (a *API) inactiveSessionError(r *http.Request, attemptID int64) error {
	state, err := a.service.AttemptState(r.Context(), attemptID)
	switch {
	case err != nil:
		return err
	case state.Status == study.SessionFinished:
		return study.ErrSessionFinished
	default:
		return study.ErrSessionNotActive
	}
}

func (a *API) HandleReview(w http.ResponseWriter, r *http.Request) {
	attemptID, err := parseIDParam(r, "attemptID")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}

	review, err := a.service.AssembleReview(r.Context(), attemptID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, review)
}

func (a *API) HandleChat(w http.ResponseWriter, r *http.Request) {
	if a.chat == nil {
		writeJSON(w, http.StatusServiceUnavailable, errorResponse{Error: "chat is not configured"})
		return
	}

	defer r.Body.Close()
	var request chatRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxJSONBodyBytes)).Decode(&request); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid JSON body"})
		return
	}
	if len(request.Messages) == 0 {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "messages is required"})
		return
	}

	reply, err := a.chat.Chat(r.Context(), request.Messages)
	if err != nil {
		a.log.Warn("chat failed", "error", err)
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, chatResponse{Message: reply})
}

// HandleBackup buffers the copy so the store is not held for as long as a
// slow client takes to download it.
func (a *API) HandleBackup(w http.ResponseWriter, r *http.Request) {
	if a.backups == nil {
		writeJSON(w, http.StatusServiceUnavailable, errorResponse{Error: "backups are unavailable"})
		return
	}

	var buf bytes.Buffer
	if _, err := a.backups.Backup(r.Context(), &buf); err != nil {
		writeServiceError(w, err)
		return
	}

	filename := fmt.Sprintf("study-backup-%s.db", time.Now().UTC().Format("20060102-150405"))
	w.Header().Set("Content-Type", "application/vnd.sqlite3")
	w.Header().Set("Content-Disposition", `attachment; filename="`+filename+`"`)
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.WriteHeader(http.StatusOK)
	_, _ = buf.WriteTo(w)
}

func (a *API) HandleRestore(w http.ResponseWriter, r *http.Request) {
	if a.backups == nil {
		writeJSON(w, http.StatusServiceUnavailable, errorResponse{Error: "backups are unavailable"})
		return
	}

	defer r.Body.Close()
	body := http.MaxBytesReader(w, r.Body, maxRestoreBodyBytes)
	if err := a.backups.Restore(r.Context(), body); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeJSON(w, http.StatusRequestEntityTooLarge, errorResponse{Error: "backup file is too large"})
			return
		}
		writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *API) HandleLegal(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, legalResponse{Text: study.LegalNotice})
}

// HandleEvents streams store changes as server-sent events until the client
// goes away.
func (a *API) HandleEvents(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "streaming unsupported"})
		return
	}

	topics := make(map[study.Topic]bool)
	for _, raw := range strings.Split(r.URL.Query().Get("topics"), ",") {
		if topic := strings.TrimSpace(raw); topic != "" {
			topics[study.Topic(topic)] = true
		}
	}

	changes, cancel := a.service.Broker().Subscribe(32)
	defer cancel()

	w.Header().Set("Content-Type", "text/event-stream; charset=utf-8")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	_, _ = fmt.Fprint(w, ": connected\n\n")
	flusher.Flush()

	heartbeat := time.NewTicker(eventHeartbeat)
	defer heartbeat.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-heartbeat.C:
			_, _ = fmt.Fprint(w, ": ping\n\n")
			flusher.Flush()
		case change, open := <-changes:
			if !open {
				return
			}
			if len(topics) > 0 && !topics[change.Topic] {
				continue
			}
			payload, err := json.Marshal(change)
			if err != nil {
				a.log.Warn("failed to marshal change", "error", err)
				continue
			}
			_, _ = fmt.Fprintf(w, "event: %s\ndata: %s\n\n", change.Topic, payload)
			flusher.Flush()
		}
	}
}
