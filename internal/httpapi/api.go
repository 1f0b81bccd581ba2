package httpapi

import (
	"context"
	"io"

	"study-app/internal/completion"
	"study-app/internal/logger"
	"study-app/internal/study"
)

// Chatter is satisfied by *completion.Client.
type Chatter interface {
	Chat(ctx context.Context, history []completion.Message) (completion.Message, error)
}

// Backups is satisfied by *backup.Manager.
type Backups interface {
	Backup(ctx context.Context, w io.Writer) (int64, error)
	Restore(ctx context.Context, r io.Reader) error
}

type API struct {
	service *study.Service
	chat    Chatter
	backups Backups
	log     *logger.Logger
}

func NewAPI(service *study.Service, chat Chatter, backups Backups, log *logger.Logger) *API {
	if log == nil {
		log = logger.Nop()
	}
	return &API{
		service: service,
		chat:    chat,
		backups: backups,
		log:     log.With("component", "httpapi"),
	}
}
