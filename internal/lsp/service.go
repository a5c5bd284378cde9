package lsp

import (
	"context"

	"github.com/opencode-ai/lspbridge/internal/lsp/protocol"
	"github.com/opencode-ai/lspbridge/internal/pubsub"
)

// Service is the language-service surface an editor session depends on.
type Service interface {
	Start(ctx context.Context, docs DocumentSource)
	State() ServerState
	SubscribeState(ctx context.Context) <-chan pubsub.Event[ServerState]
	RegisterNotificationHandler(method string, handler NotificationHandler)

	OpenFile(ctx context.Context, doc TextDocument) error
	NotifyChange(ctx context.Context, doc TextDocument) error
	CloseFile(ctx context.Context, uri string) error

	Format(ctx context.Context, uri string, opts FormattingOptions) ([]protocol.TextEdit, error)
	Rename(ctx context.Context, oldURI string, doc TextDocument) error

	Close(ctx context.Context) error
}

var _ Service = (*Client)(nil)
