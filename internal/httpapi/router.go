package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

type RouterOptions struct {
	CORSOrigins []string
}

func NewRouter(api *API, opts RouterOptions) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP, api.requestLogger, middleware.Recoverer)

	origins := opts.CORSOrigins
	if len(origins) == 0 {
		origins = []string{"http://localhost:3000"}
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type"},
		ExposedHeaders:   []string{"Content-Length", "Content-Disposition"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "not found"})
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusMethodNotAllowed, errorResponse{Error: "method not allowed"})
	})

	r.Get("/subjects", api.HandleListSubjects)
	r.Get("/subjects/{subjectID}/modules", api.HandleListModules)

	r.Route("/modules/{moduleID}", func(mr chi.Router) {
		mr.Get("/", api.HandleGetModule)
		mr.Delete("/", api.HandleDeleteModule)
		mr.Get("/questions", api.HandleQuestions)
		mr.Post("/questions/regenerate", api.HandleRegenerateQuestions)
		mr.Get("/attempts", api.HandleListAttempts)
		mr.Post("/quiz", api.HandleStartQuiz)
	})

	r.Route("/attempts/{attemptID}", func(ar chi.Router) {
		ar.Get("/", api.HandleGetAttempt)
		ar.Post("/resume", api.HandleResumeAttempt)
		ar.Post("/select", api.HandleSelectAnswer)
		ar.Post("/next", api.HandleNextQuestion)
		ar.Get("/review", api.HandleReview)
	})

	r.Post("/chat", api.HandleChat)
	r.Get("/backup", api.HandleBackup)
	r.Post("/restore", api.HandleRestore)
	r.Get("/legal", api.HandleLegal)
	r.Get("/events", api.HandleEvents)

	return r
}
