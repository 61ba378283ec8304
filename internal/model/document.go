package model

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// DocumentKind is the authority's two-digit document type code.
type DocumentKind string

const (
	KindInvoice    DocumentKind = "01"
	KindCreditNote DocumentKind = "04"
)

// Valid reports whether the kind is one of the supported codes.
func (k DocumentKind) Valid() bool {
	return k == KindInvoice || k == KindCreditNote
}

// Environment selects the authority host set. The code is embedded in
// the access key.
type Environment string

const (
	EnvTest       Environment = "1"
	EnvProduction Environment = "2"
)

// IsProduction reports whether documents are sent to the live host.
func (e Environment) IsProduction() bool { return e == EnvProduction }

// Status is the lifecycle state of a fiscal document.
type Status string

const (
	StatusPending      Status = "PENDING"
	StatusSent         Status = "SENT"
	StatusProcessing   Status = "PROCESSING"
	StatusAuthorized   Status = "AUTHORIZED"
	StatusRejected     Status = "REJECTED"
	StatusRetryPending Status = "RETRY_PENDING"
	StatusTimeout      Status = "TIMEOUT"
)

// Terminal reports whether no further transitions are possible
// without operator action.
func (s Status) Terminal() bool {
	return s == StatusAuthorized || s == StatusRejected || s == StatusTimeout
}

// Buyer identification type codes.
const (
	BuyerIDRUC           = "04"
	BuyerIDCedula        = "05"
	BuyerIDPassport      = "06"
	BuyerIDFinalConsumer = "07"
)

// FinalConsumerID is the generic buyer identifier. Credit notes may
// not reference invoices issued to it.
const FinalConsumerID = "9999999999999"

// CreditNoteReason is the authority's reason code for a credit note.
type CreditNoteReason string

const (
	ReasonMerchandiseReturn CreditNoteReason = "01"
	ReasonGrantedDiscount   CreditNoteReason = "02"
	ReasonVoidedReturn      CreditNoteReason = "03"
	ReasonRUCError          CreditNoteReason = "04"
	ReasonDescriptionError  CreditNoteReason = "05"
	ReasonPriceCorrection   CreditNoteReason = "06"
)

// Valid reports whether the reason is part of the fixed enumeration.
func (r CreditNoteReason) Valid() bool {
	switch r {
	case ReasonMerchandiseReturn, ReasonGrantedDiscount, ReasonVoidedReturn,
		ReasonRUCError, ReasonDescriptionError, ReasonPriceCorrection:
		return true
	}
	return false
}

// Description returns the reason text embedded in the motivo field.
func (r CreditNoteReason) Description() string {
	switch r {
	case ReasonMerchandiseReturn:
		return "DEVOLUCION DE MERCADERIA"
	case ReasonGrantedDiscount:
		return "DESCUENTO CONCEDIDO"
	case ReasonVoidedReturn:
		return "DEVOLUCION POR COMPROBANTE ANULADO"
	case ReasonRUCError:
		return "ERROR EN RUC"
	case ReasonDescriptionError:
		return "ERROR EN DESCRIPCION"
	case ReasonPriceCorrection:
		return "CORRECCION DE PRECIO"
	}
	return ""
}

// Party identifies a buyer.
type Party struct {
	Identification     string `json:"identification"`
	IdentificationType string `json:"identificationType"`
	Name               string `json:"name"`
	Address            string `json:"address,omitempty"`
	Email              string `json:"email,omitempty"`
	Phone              string `json:"phone,omitempty"`
}

// Line is a single billed item. UnitPrice is tax inclusive with up to
// six decimals; TaxBase and TaxValue are rounded to two decimals at
// the line level.
type Line struct {
	Code        string          `json:"code,omitempty"`
	Description string          `json:"description"`
	Quantity    decimal.Decimal `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unitPrice"`
	TaxBase     decimal.Decimal `json:"taxBase"`
	TaxValue    decimal.Decimal `json:"taxValue"`
}

// Issuer is the taxpayer emitting documents. Loaded from
// configuration, never mutated during issuance.
type Issuer struct {
	RUC                  string      `json:"ruc"`
	LegalName            string      `json:"legalName"`
	TradeName            string      `json:"tradeName,omitempty"`
	HeadOfficeAddress    string      `json:"headOfficeAddress"`
	EstablishmentAddress string      `json:"establishmentAddress"`
	Establishment        string      `json:"establishment"`
	EmissionPoint        string      `json:"emissionPoint"`
	Environment          Environment `json:"environment"`
	AccountingRequired   bool        `json:"accountingRequired"`
}

// Document is an invoice or credit note across its whole lifecycle.
// The access key is regenerated on every resend; the sequence is
// allocated once and survives recovery.
type Document struct {
	ID           uuid.UUID       `json:"id"`
	Kind         DocumentKind    `json:"kind"`
	Sequence     string          `json:"sequence"`
	AccessKey    string          `json:"accessKey,omitempty"`
	EmissionDate time.Time       `json:"emissionDate"`
	Buyer        Party           `json:"buyer"`
	Lines        []Line          `json:"lines"`
	TaxRate      decimal.Decimal `json:"taxRate"`

	TotalWithoutTax decimal.Decimal `json:"totalWithoutTax"`
	TotalTax        decimal.Decimal `json:"totalTax"`
	GrandTotal      decimal.Decimal `json:"grandTotal"`

	Status                 Status     `json:"status"`
	AuthorizationNumber    string     `json:"authorizationNumber,omitempty"`
	AuthorizationTimestamp *time.Time `json:"authorizationTimestamp,omitempty"`
	Messages               []string   `json:"messages,omitempty"`

	// Voided is set on an invoice when a credit note against it
	// reaches AUTHORIZED.
	Voided bool `json:"voided,omitempty"`

	// Credit note reference to the modified invoice.
	ModifiedAccessKey    string           `json:"modifiedAccessKey,omitempty"`
	ModifiedSequence     string           `json:"modifiedSequence,omitempty"`
	ModifiedEmissionDate time.Time        `json:"modifiedEmissionDate,omitzero"`
	Reason               CreditNoteReason `json:"reason,omitempty"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// FormatSequence renders an allocated counter value as the 9-digit
// zero-padded commercial sequence.
func FormatSequence(n int64) string {
	return fmt.Sprintf("%09d", n)
}

// DocumentNumber is the human-facing number, e.g. "001-002-000000123".
func (d *Document) DocumentNumber(issuer Issuer) string {
	return fmt.Sprintf("%s-%s-%s", issuer.Establishment, issuer.EmissionPoint, d.Sequence)
}

// AppendMessages records authority diagnostics for operator audit,
// skipping empty strings.
func (d *Document) AppendMessages(msgs ...string) {
	for _, m := range msgs {
		if m != "" {
			d.Messages = append(d.Messages, m)
		}
	}
}
