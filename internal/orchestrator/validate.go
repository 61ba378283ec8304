package orchestrator

import (
	"context"
	"net/mail"
	"time"

	"github.com/rezonia/facturador/internal/model"
)

// validate runs every check that must fail fast, before any network
// call. Credit note preconditions are hard business rejections and
// are never retried.
func (o *Orchestrator) validate(ctx context.Context, doc *model.Document) error {
	if !doc.Kind.Valid() {
		return model.NewValidationError("kind", "unsupported document kind code")
	}
	if len(doc.Lines) == 0 {
		return model.NewValidationError("lines", "document has no lines")
	}
	if doc.Buyer.Identification == "" {
		return model.NewValidationError("buyer.identification", "required")
	}
	if doc.Buyer.Email != "" {
		if _, err := mail.ParseAddress(doc.Buyer.Email); err != nil {
			return model.NewValidationError("buyer.email", "not a valid email address")
		}
	}

	now := o.now().In(o.location)
	if doc.EmissionDate.IsZero() {
		doc.EmissionDate = now
	}

	// Same-day transmission guard: the embedded emission date must be
	// today. A legal requirement, not a transport concern, so it is
	// non-retryable.
	if !sameDate(doc.EmissionDate.In(o.location), now) {
		return model.NewValidationError("emissionDate",
			"must equal the current date (same-day transmission requirement)")
	}

	if doc.Kind == model.KindCreditNote {
		return o.validateCreditNote(ctx, doc, now)
	}
	return nil
}

func (o *Orchestrator) validateCreditNote(ctx context.Context, doc *model.Document, now time.Time) error {
	if !doc.Reason.Valid() {
		return model.NewValidationError("reason", "unknown credit note reason code")
	}
	if doc.ModifiedAccessKey == "" {
		return model.NewValidationError("modifiedAccessKey", "credit note must reference an invoice")
	}

	original, err := o.records.FindByAccessKey(ctx, doc.ModifiedAccessKey)
	if err != nil {
		return model.NewValidationError("modifiedAccessKey", "referenced invoice not found")
	}
	if original.Kind != model.KindInvoice {
		return model.NewValidationError("modifiedAccessKey", "referenced document is not an invoice")
	}
	if original.Status != model.StatusAuthorized || original.AccessKey == "" {
		return model.NewValidationError("modifiedAccessKey", "referenced invoice is not authorized")
	}
	if original.Buyer.Identification == model.FinalConsumerID {
		return model.NewValidationError("buyer.identification",
			"credit notes are not allowed against final consumer invoices")
	}

	// Deadline: the 7th day of the month following the invoice's
	// emission month, inclusive through end of day.
	emitted := original.EmissionDate.In(o.location)
	deadline := time.Date(emitted.Year(), emitted.Month(), 1, 0, 0, 0, 0, o.location).
		AddDate(0, 1, 6)
	if dateOnly(now).After(dateOnly(deadline)) {
		return model.NewValidationError("emissionDate",
			"credit note deadline passed (7th day of the following month)")
	}

	// Carry the reference fields from the stored invoice.
	doc.ModifiedSequence = original.Sequence
	doc.ModifiedEmissionDate = original.EmissionDate
	return nil
}

func sameDate(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

func dateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
