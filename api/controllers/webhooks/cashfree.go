package webhooks

import (
	"context"
	"io"
	"net/http"

	"github.com/rahulnegi20/recolora-backend/api/responses"
	cashfreewebhook "github.com/rahulnegi20/recolora-backend/internal/webhooks/cashfree"
	pkgerrors "github.com/rahulnegi20/recolora-backend/pkg/errors"
	"github.com/rahulnegi20/recolora-backend/pkg/logger"
)

type CashfreeWebhookService interface {
	HandleEvent(ctx context.Context, event *cashfreewebhook.CallbackEvent) (*cashfreewebhook.Result, error)
}

type signatureVerifier interface {
	Verify(payload []byte, timestamp, signature string) error
}

// CashfreeWebhook receives callbacks from the legacy Cashfree integration.
// Orders created through it are still settled here until the migration
// window closes.
func CashfreeWebhook(svc CashfreeWebhookService, verifier signatureVerifier, guard webhookGuard, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		if svc == nil || verifier == nil || guard == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "webhook handler unavailable"))
			return
		}

		payload, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody))
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "read request body"))
			return
		}

		timestamp := r.Header.Get("x-webhook-timestamp")
		signature := r.Header.Get("x-webhook-signature")
		if err := verifier.Verify(payload, timestamp, signature); err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid webhook signature"))
			return
		}

		event, err := cashfreewebhook.ParseEvent(payload)
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
