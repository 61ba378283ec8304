package server

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/rezonia/facturador/internal/model"
)

// LineInput is a billed item as submitted by the caller. Amounts are
// tax inclusive; tax base and value are computed server side.
type LineInput struct {
	Code        string          `json:"code,omitempty"`
	Description string          `json:"description"`
	Quantity    decimal.Decimal `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unitPrice"`
}

// InvoiceRequest is the payload for POST /api/v1/invoices.
type InvoiceRequest struct {
	Buyer   model.Party     `json:"buyer"`
	Lines   []LineInput     `json:"lines"`
	TaxRate decimal.Decimal `json:"taxRate"`
}

// CreditNoteRequest is the payload for POST /api/v1/credit-notes.
type CreditNoteRequest struct {
	Buyer             model.Party            `json:"buyer"`
	Lines             []LineInput            `json:"lines"`
	TaxRate           decimal.Decimal        `json:"taxRate"`
	ModifiedAccessKey string                 `json:"modifiedAccessKey"`
	Reason            model.CreditNoteReason `json:"reason"`
}

// IssueResponse is the outcome for issuance and status endpoints.
type IssueResponse struct {
	Status                 model.Status `json:"status"`
	AccessKey              string       `json:"accessKey,omitempty"`
	AuthorizationNumber    string       `json:"authorizationNumber,omitempty"`
	AuthorizationTimestamp *time.Time   `json:"authorizationTimestamp,omitempty"`
	Messages               []string     `json:"messages,omitempty"`
}

// ErrorResponse is the standard error response
type ErrorResponse struct {
	Error    string   `json:"error"`
	Field    string   `json:"field,omitempty"`
	Messages []string `json:"messages,omitempty"`
}

func (r InvoiceRequest) document() *model.Document {
	return &model.Document{
		Kind:    model.KindInvoice,
		Buyer:   r.Buyer,
		Lines:   modelLines(r.Lines),
		TaxRate: r.TaxRate,
	}
}

func (r CreditNoteRequest) document() *model.Document {
	return &model.Document{
		Kind:              model.KindCreditNote,
		Buyer:             r.Buyer,
		Lines:             modelLines(r.Lines),
		TaxRate:           r.TaxRate,
		ModifiedAccessKey: r.ModifiedAccessKey,
		Reason:            r.Reason,
	}
}

func modelLines(in []LineInput) []model.Line {
	lines := make([]model.Line, len(in))
	for i, l := range in {
		lines[i] = model.Line{
			Code:        l.Code,
			Description: l.Description,
			Quantity:    l.Quantity,
			UnitPrice:   l.UnitPrice,
		}
	}
	return lines
}
