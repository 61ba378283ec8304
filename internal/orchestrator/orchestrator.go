// Package orchestrator drives a fiscal document through submission,
// polling, recovery resend and sequence auto-heal. It is the only
// component that spans the full lifecycle of a document.
package orchestrator

import (
	"context"
	"time"

	"github.com/rezonia/facturador/internal/logger"
	"github.com/rezonia/facturador/internal/model"
	"github.com/rezonia/facturador/internal/sequence"
	"github.com/rezonia/facturador/internal/signer"
	"github.com/rezonia/facturador/internal/sri"
	"github.com/rezonia/facturador/internal/store"
)

// AuthorityClient is the slice of the transport client the
// orchestrator needs.
type AuthorityClient interface {
	Submit(ctx context.Context, signedXML []byte) (sri.ReceptionResult, error)
	QueryAuthorization(ctx context.Context, accessKey string) (sri.AuthorizationResult, error)
}

// DocumentBuilder renders a document and returns its fresh access key.
type DocumentBuilder interface {
	Build(doc *model.Document) (xml []byte, accessKey string, err error)
}

// Result is the caller-facing outcome of one issue or status call.
type Result struct {
	Status                 model.Status `json:"status"`
	AccessKey              string       `json:"accessKey,omitempty"`
	AuthorizationNumber    string       `json:"authorizationNumber,omitempty"`
	AuthorizationTimestamp *time.Time   `json:"authorizationTimestamp,omitempty"`
	Messages               []string     `json:"messages,omitempty"`
}

// Orchestrator owns in-flight documents for the duration of one
// lifecycle. Multiple documents may be in flight concurrently; the
// sequence allocator is the only shared writable state between them.
type Orchestrator struct {
	issuer    model.Issuer
	alloc     sequence.Allocator
	builder   DocumentBuilder
	signer    signer.Signer
	authority AuthorityClient
	records   store.Store
	notifier  Notifier
	log       *logger.Logger

	pollAttempts int
	pollDelay    time.Duration
	location     *time.Location
	now          func() time.Time
}

// Option configures the orchestrator.
type Option func(*Orchestrator)

// WithNotifier sets the post-authorization notifier.
func WithNotifier(n Notifier) Option {
	return func(o *Orchestrator) { o.notifier = n }
}

// WithLogger sets the logger.
func WithLogger(l *logger.Logger) Option {
	return func(o *Orchestrator) { o.log = l }
}

// WithPolling overrides the authorization polling budget.
func WithPolling(attempts int, delay time.Duration) Option {
	return func(o *Orchestrator) {
		if attempts > 0 {
			o.pollAttempts = attempts
		}
		if delay > 0 {
			o.pollDelay = delay
		}
	}
}

// WithClock overrides the time source and issuer time zone. The zone
// governs the same-day transmission guard and the credit note
// deadline.
func WithClock(now func() time.Time, loc *time.Location) Option {
	return func(o *Orchestrator) {
		if now != nil {
			o.now = now
		}
		if loc != nil {
			o.location = loc
		}
	}
}

// New wires an orchestrator.
func New(issuer model.Issuer, alloc sequence.Allocator, builder DocumentBuilder,
	sig signer.Signer, authority AuthorityClient, records store.Store, opts ...Option) *Orchestrator {

	o := &Orchestrator{
		issuer:       issuer,
		alloc:        alloc,
		builder:      builder,
		signer:       sig,
		authority:    authority,
		records:      records,
		notifier:     NopNotifier{},
		log:          logger.Nop(),
		pollAttempts: 10,
		pollDelay:    2500 * time.Millisecond,
		location:     time.Local,
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Issue runs a document through the full lifecycle and returns its
// terminal (or RETRY_PENDING) outcome. Validation failures surface as
// *model.ValidationError before any network call.
func (o *Orchestrator) Issue(ctx context.Context, doc *model.Document) (*Result, error) {
	if err := o.validate(ctx, doc); err != nil {
		return nil, err
	}

	if doc.Sequence == "" {
		n, err := o.alloc.Next(ctx, doc.Kind)
		if err != nil {
			return nil, err
		}
		doc.Sequence = model.FormatSequence(n)
	}

	doc.Status = model.StatusPending
	o.persist(ctx, doc)

	return o.submitAndPoll(ctx, doc)
}

// CheckStatus resumes a previously issued document by access key and
// updates the stored record. Terminal documents are returned as-is.
// A document still PENDING never had a submit accepted, so its key
// must not be queried; it re-enters the lifecycle with a fresh
// submission instead. Documents past reception resume the full
// polling budget; an ambiguous answer after exhaustion leaves them
// RETRY_PENDING for a later check.
func (o *Orchestrator) CheckStatus(ctx context.Context, accessKey string) (*Result, error) {
	doc, err := o.records.FindByAccessKey(ctx, accessKey)
	if err != nil {
		return nil, err
	}
	if doc.Status.Terminal() {
		return resultOf(doc), nil
	}

	if doc.Status == model.StatusPending {
		return o.submitAndPoll(ctx, doc)
	}

	res, _, err := o.poll(ctx, doc)
	if err != nil {
		return nil, err
	}
	switch res.State {
	case sri.AuthorizationAuthorized:
		o.finalizeAuthorized(ctx, doc, res)
	case sri.AuthorizationNotAuthorized:
		doc.Status = model.StatusRejected
		doc.AppendMessages(sri.Texts(res.Messages)...)
		o.persist(ctx, doc)
	default:
		doc.Status = model.StatusRetryPending
		doc.AppendMessages(sri.Texts(res.Messages)...)
		o.persist(ctx, doc)
	}
	return resultOf(doc), nil
}

// submitAndPoll is the state machine core. Recovery resend (fresh key,
// same sequence) and sequence auto-heal each run at most once per
// document; when every path is exhausted the document lands in
// TIMEOUT with its accumulated messages, never silently in SENT.
func (o *Orchestrator) submitAndPoll(ctx context.Context, doc *model.Document) (*Result, error) {
	var resendUsed, healUsed bool

	for {
		// Same-day transmission guard runs before every submit, not
		// just the first: a recovery resend that crosses midnight
		// would transmit a stale-dated document.
		if !sameDate(doc.EmissionDate.In(o.location), o.now().In(o.location)) {
			doc.Status = model.StatusRetryPending
			o.persist(ctx, doc)
			return nil, model.NewValidationError("emissionDate",
				"must equal the current date (same-day transmission requirement)")
		}

		xml, key, err := o.builder.Build(doc)
		if err != nil {
			return nil, err
		}
		doc.AccessKey = key
		o.persist(ctx, doc)

		signed, err := o.signer.Sign(ctx, xml)
		if err != nil {
			return nil, err
		}

		rec, err := o.authority.Submit(ctx, signed)
		if err != nil {
			doc.Status = model.StatusRetryPending
			o.persist(ctx, doc)
			return nil, err
		}

		action := o.receptionAction(rec)
		doc.AppendMessages(sri.Texts(rec.Messages)...)

		switch action {
		case actionPoll:
			doc.Status = model.StatusSent
			o.persist(ctx, doc)

		case actionResendNewKey:
			if resendUsed {
				return o.timeOut(ctx, doc), nil
			}
			resendUsed = true
			o.log.Infow("access key collision, resending with fresh key",
				"sequence", doc.Sequence)
			continue

		case actionHealSequence:
			if healUsed {
				return o.timeOut(ctx, doc), nil
			}
			healUsed = true
			n, err := o.alloc.Next(ctx, doc.Kind)
			if err != nil {
				return nil, err
			}
			o.log.Warnw("sequence collision, auto-healing",
				"old", doc.Sequence, "new", model.FormatSequence(n))
			doc.Sequence = model.FormatSequence(n)
			continue

		case actionReject:
			doc.Status = model.StatusRejected
			o.persist(ctx, doc)
			return resultOf(doc), nil
		}

		// SENT: poll the authorization endpoint.
		res, exhausted, err := o.poll(ctx, doc)
		if err != nil {
			return nil, err
		}

		switch {
		case res.State == sri.AuthorizationAuthorized:
			o.finalizeAuthorized(ctx, doc, res)
			return resultOf(doc), nil

		case res.State == sri.AuthorizationNotAuthorized:
			// Terminal business rejection, never retried.
			doc.Status = model.StatusRejected
			doc.AppendMessages(sri.Texts(res.Messages)...)
			o.persist(ctx, doc)
			return resultOf(doc), nil

		case exhausted && !resendUsed:
			// Ambiguous after the full polling budget: one recovery
			// resend with a fresh key on the same sequence.
			resendUsed = true
			o.log.Warnw("polling exhausted without determination, recovery resend",
				"sequence", doc.Sequence, "accessKey", doc.AccessKey)
			continue

		default:
			return o.timeOut(ctx, doc), nil
		}
	}
}

type receptionAction int

const (
	actionPoll receptionAction = iota
	actionResendNewKey
	actionHealSequence
	actionReject
)

func (o *Orchestrator) receptionAction(rec sri.ReceptionResult) receptionAction {
	switch rec.State {
	case sri.ReceptionReceived:
		return actionPoll
	case sri.ReceptionReturned:
		switch sri.Classify(rec.Messages) {
		case sri.ReturnAlreadyProcessing:
			// Equivalent to RECEIVED: the authority already has it.
			return actionPoll
		case sri.ReturnKeyRegistered:
			return actionResendNewKey
		case sri.ReturnSequenceRegistered:
			return actionHealSequence
		}
		return actionReject
	}
	// Unknown reception shape: the query endpoint is always safe, so
	// resolve the ambiguity by polling instead of guessing.
	return actionPoll
}

func (o *Orchestrator) finalizeAuthorized(ctx context.Context, doc *model.Document, res sri.AuthorizationResult) {
	doc.Status = model.StatusAuthorized
	doc.AuthorizationNumber = res.Number
	ts := res.Timestamp
	if ts.IsZero() {
		ts = o.now()
	}
	doc.AuthorizationTimestamp = &ts
	doc.AppendMessages(sri.Texts(res.Messages)...)
	o.persist(ctx, doc)

	o.log.Infow("authority authorized document",
		"number", doc.DocumentNumber(o.issuer),
		"authorizationNumber", doc.AuthorizationNumber)

	if doc.Kind == model.KindCreditNote && doc.ModifiedAccessKey != "" {
		o.voidOriginal(ctx, doc.ModifiedAccessKey)
	}

	o.notifier.DocumentAuthorized(ctx, doc)
}

// voidOriginal flags the credited invoice as voided. Best effort: a
// store failure here is logged, the credit note's authorization
// stands.
func (o *Orchestrator) voidOriginal(ctx context.Context, accessKey string) {
	original, err := o.records.FindByAccessKey(ctx, accessKey)
	if err != nil {
		o.log.Errorw("loading credited invoice to void", "accessKey", accessKey, "error", err)
		return
	}
	original.Voided = true
	if _, err := o.records.Upsert(ctx, original); err != nil {
		o.log.Errorw("voiding credited invoice", "accessKey", accessKey, "error", err)
	}
}

func (o *Orchestrator) timeOut(ctx context.Context, doc *model.Document) *Result {
	doc.Status = model.StatusTimeout
	doc.AppendMessages("no authority determination after retries; query status again later")
	o.persist(ctx, doc)
	return resultOf(doc)
}

// persist pushes the current state through the keyed upsert. Failures
// are logged, never rolled back: a stale local status is the safer
// failure mode once the authority has spoken.
func (o *Orchestrator) persist(ctx context.Context, doc *model.Document) {
	if _, err := o.records.Upsert(ctx, doc); err != nil {
		o.log.Errorw("persisting document state",
			"sequence", doc.Sequence, "status", doc.Status, "error", err)
	}
}

func resultOf(doc *model.Document) *Result {
	return &Result{
		Status:                 doc.Status,
		AccessKey:              doc.AccessKey,
		AuthorizationNumber:    doc.AuthorizationNumber,
		AuthorizationTimestamp: doc.AuthorizationTimestamp,
		Messages:               doc.Messages,
	}
}
