package orchestrator

import (
	"context"
	"errors"

	"github.com/cenkalti/backoff/v4"

	"github.com/rezonia/facturador/internal/model"
	"github.com/rezonia/facturador/internal/sri"
)

// errStillProcessing drives the backoff loop while the authority has
// no determination yet.
var errStillProcessing = errors.New("authority still processing")

// poll queries the authorization endpoint up to the configured number
// of attempts with a fixed delay. The single polling routine for the
// whole orchestrator: every path retries with the same policy.
//
// Returns the last result plus exhausted=true when the budget ran out
// without a determination. Transport errors are retried like
// PROCESSING (queries are always safe to retry); only context
// cancellation aborts with an error.
func (o *Orchestrator) poll(ctx context.Context, doc *model.Document) (sri.AuthorizationResult, bool, error) {
	var last sri.AuthorizationResult

	operation := func() error {
		res, err := o.authority.QueryAuthorization(ctx, doc.AccessKey)
		if err != nil {
			o.log.Debugw("authorization query failed, will retry", "error", err)
			return err
		}
		last = res

		switch res.State {
		case sri.AuthorizationAuthorized, sri.AuthorizationNotAuthorized:
			return nil
		case sri.AuthorizationProcessing:
			if doc.Status != model.StatusProcessing {
				doc.Status = model.StatusProcessing
				o.persist(ctx, doc)
			}
			return errStillProcessing
		default: // NOT_FOUND: ambiguous, keep polling
			return errStillProcessing
		}
	}

	policy := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewConstantBackOff(o.pollDelay), uint64(o.pollAttempts-1)),
		ctx,
	)

	err := backoff.Retry(operation, policy)
	if err == nil {
		return last, false, nil
	}
	if ctx.Err() != nil {
		return last, false, model.NewTransportError("queryAuthorization", ctx.Err())
	}
	// Budget exhausted with an ambiguous answer.
	return last, true, nil
}
