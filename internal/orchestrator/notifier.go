package orchestrator

import (
	"context"

	"github.com/rezonia/facturador/internal/logger"
	"github.com/rezonia/facturador/internal/model"
)

// Notifier is told about authorized documents so delivery (email,
// printable copy) can happen elsewhere. Fire and forget: a notifier
// failure never changes the document's fiscal status.
type Notifier interface {
	DocumentAuthorized(ctx context.Context, doc *model.Document)
}

// NopNotifier discards notifications.
type NopNotifier struct{}

func (NopNotifier) DocumentAuthorized(context.Context, *model.Document) {}

// LogNotifier records authorizations in the log. Default when no
// delivery collaborator is wired.
type LogNotifier struct {
	Log *logger.Logger
}

func (n LogNotifier) DocumentAuthorized(_ context.Context, doc *model.Document) {
	n.Log.Infow("document authorized",
		"kind", doc.Kind,
		"sequence", doc.Sequence,
		"accessKey", doc.AccessKey,
		"authorizationNumber", doc.AuthorizationNumber,
	)
}
