package webhooks

import (
	"context"
	"io"
	"net/http"

	"github.com/rahulnegi20/recolora-backend/api/responses"
	phonepewebhook "github.com/rahulnegi20/recolora-backend/internal/webhooks/phonepe"
	pkgerrors "github.com/rahulnegi20/recolora-backend/pkg/errors"
	"github.com/rahulnegi20/recolora-backend/pkg/logger"
)

// maxWebhookBody caps gateway callback bodies; real payloads are far
// smaller.
const maxWebhookBody = 1 << 20

type PhonePeWebhookService interface {
	HandleEvent(ctx context.Context, event *phonepewebhook.CallbackEvent) (*phonepewebhook.Result, error)
}

type callbackValidator interface {
	ValidateCallback(authorization string) bool
}

type webhookGuard interface {
	CheckAndMark(ctx context.Context, deliveryID string) (bool, error)
	Delete(ctx context.Context, deliveryID string) error
}

// PhonePeWebhook receives PhonePe server-to-server callbacks. The gateway
// retries until it sees 2xx, so every verified delivery is acknowledged
// even when it changes nothing.
func PhonePeWebhook(svc PhonePeWebhookService, validator callbackValidator, guard webhookGuard, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		if svc == nil || validator == nil || guard == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "webhook handler unavailable"))
			return
		}

		if !validator.ValidateCallback(r.Header.Get("Authorization")) {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid callback credentials"))
			return
		}

		payload, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody))
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "read request body"))
			return
		}

		event, err := phonepewebhook.ParseEvent(payload)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		alreadyProcessed, err := guard.CheckAndMark(ctx, event.DedupeID())
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check idempotency"))
			return
		}
		if alreadyProcessed {
			responses.WriteSuccess(w, map[string]string{"status": "success"})
			return
		}

		if _, err := svc.HandleEvent(ctx, event); err != nil {
			_ = guard.Delete(ctx, event.DedupeID())
			responses.WriteError(ctx, logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]string{"status": "success"})
	}
}
