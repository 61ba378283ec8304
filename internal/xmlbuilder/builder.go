// Package xmlbuilder renders fiscal documents into the authority's
// canonical XML schema.
package xmlbuilder

import (
	"time"

	"github.com/beevik/etree"
	"github.com/shopspring/decimal"

	"github.com/rezonia/facturador/internal/accesskey"
	"github.com/rezonia/facturador/internal/model"
	"github.com/rezonia/facturador/internal/money"
)

const (
	schemaVersion = "1.1.0"
	dateLayout    = "02/01/2006"
	vatTaxCode    = "2"
	currency      = "DOLAR"
)

// Builder renders invoices and credit notes for one issuer.
type Builder struct {
	issuer model.Issuer
}

// NewBuilder creates a builder for the given issuer configuration.
func NewBuilder(issuer model.Issuer) *Builder {
	return &Builder{issuer: issuer}
}

// Build computes line taxes and totals on doc, generates a fresh
// access key, and renders the canonical XML. The key is fresh on
// every call, even when re-rendering the same sequence.
func (b *Builder) Build(doc *model.Document) (xml []byte, key string, err error) {
	if len(doc.Lines) == 0 {
		return nil, "", model.NewValidationError("lines", "document has no lines")
	}
	if err := Totalize(doc); err != nil {
		return nil, "", err
	}

	key, err = accesskey.Generate(accesskey.Input{
		EmissionDate:  doc.EmissionDate,
		Kind:          doc.Kind,
		RUC:           b.issuer.RUC,
		Environment:   b.issuer.Environment,
		Establishment: b.issuer.Establishment,
		EmissionPoint: b.issuer.EmissionPoint,
		Sequence:      doc.Sequence,
	})
	if err != nil {
		return nil, "", err
	}

	tree := etree.NewDocument()
	tree.CreateProcInst("xml", `version="1.0" encoding="UTF-8"`)

	var root *etree.Element
	switch doc.Kind {
	case model.KindInvoice:
		root = tree.CreateElement("factura")
	case model.KindCreditNote:
		root = tree.CreateElement("notaCredito")
	default:
		return nil, "", model.NewValidationError("kind", "unsupported document kind code")
	}
	root.CreateAttr("id", "comprobante")
	root.CreateAttr("version", schemaVersion)

	b.buildInfoTributaria(root, doc, key)

	switch doc.Kind {
	case model.KindInvoice:
		if err := b.buildInfoFactura(root, doc); err != nil {
			return nil, "", err
		}
	case model.KindCreditNote:
		if err := b.buildInfoNotaCredito(root, doc); err != nil {
			return nil, "", err
		}
	}

	if err := b.buildDetalles(root, doc); err != nil {
		return nil, "", err
	}
	b.buildInfoAdicional(root, doc)

	tree.Indent(2)
	out, err := tree.WriteToBytes()
	if err != nil {
		return nil, "", err
	}
	return out, key, nil
}

// Totalize computes per-line tax base and value with 2-decimal
// line-level rounding, then aggregates totals onto doc.
func Totalize(doc *model.Document) error {
	if doc.TaxRate.IsNegative() {
		return model.NewValidationError("taxRate", "must not be negative")
	}
	bases := make([]decimal.Decimal, 0, len(doc.Lines))
	taxes := make([]decimal.Decimal, 0, len(doc.Lines))
	for i := range doc.Lines {
		line := &doc.Lines[i]
		if !line.Quantity.IsPositive() {
			return model.NewValidationError("lines", "quantity must be positive")
		}
		total := money.InclusiveTotal(line.Quantity, line.UnitPrice)
		line.TaxBase = money.BaseFromInclusive(total, doc.TaxRate)
		line.TaxValue = money.Tax(line.TaxBase, doc.TaxRate)
		bases = append(bases, line.TaxBase)
		taxes = append(taxes, line.TaxValue)
	}
	doc.TotalWithoutTax = money.Sum(bases)
	doc.TotalTax = money.Sum(taxes)
	doc.GrandTotal = doc.TotalWithoutTax.Add(doc.TotalTax)
	return nil
}

func (b *Builder) buildInfoTributaria(root *etree.Element, doc *model.Document, key string) {
	info := root.CreateElement("infoTributaria")
	info.CreateElement("ambiente").SetText(string(b.issuer.Environment))
	info.CreateElement("tipoEmision").SetText(accesskey.EmissionNormal)
	info.CreateElement("razonSocial").SetText(Sanitize(b.issuer.LegalName))
	if b.issuer.TradeName != "" {
		info.CreateElement("nombreComercial").SetText(Sanitize(b.issuer.TradeName))
	}
	info.CreateElement("ruc").SetText(b.issuer.RUC)
	info.CreateElement("claveAcceso").SetText(key)
	info.CreateElement("codDoc").SetText(string(doc.Kind))
	info.CreateElement("estab").SetText(b.issuer.Establishment)
	info.CreateElement("ptoEmi").SetText(b.issuer.EmissionPoint)
	info.CreateElement("secuencial").SetText(doc.Sequence)
	info.CreateElement("dirMatriz").SetText(Sanitize(b.issuer.HeadOfficeAddress))
}

func (b *Builder) buildInfoFactura(root *etree.Element, doc *model.Document) error {
	info := root.CreateElement("infoFactura")
	info.CreateElement("fechaEmision").SetText(doc.EmissionDate.Format(dateLayout))
	info.CreateElement("dirEstablecimiento").SetText(Sanitize(b.issuer.EstablishmentAddress))
	info.CreateElement("obligadoContabilidad").SetText(accountingFlag(b.issuer))
	info.CreateElement("tipoIdentificacionComprador").SetText(doc.Buyer.IdentificationType)
	info.CreateElement("razonSocialComprador").SetText(Sanitize(doc.Buyer.Name))
	info.CreateElement("identificacionComprador").SetText(doc.Buyer.Identification)
	info.CreateElement("totalSinImpuestos").SetText(money.Format2(doc.TotalWithoutTax))
	info.CreateElement("totalDescuento").SetText("0.00")

	if err := b.buildTotalConImpuestos(info, doc); err != nil {
		return err
	}

	info.CreateElement("propina").SetText("0.00")
	info.CreateElement("importeTotal").SetText(money.Format2(doc.GrandTotal))
	info.CreateElement("moneda").SetText(currency)
	return nil
}

func (b *Builder) buildInfoNotaCredito(root *etree.Element, doc *model.Document) error {
	info := root.CreateElement("infoNotaCredito")
	info.CreateElement("fechaEmision").SetText(doc.EmissionDate.Format(dateLayout))
	info.CreateElement("dirEstablecimiento").SetText(Sanitize(b.issuer.EstablishmentAddress))
	info.CreateElement("tipoIdentificacionComprador").SetText(doc.Buyer.IdentificationType)
	info.CreateElement("razonSocialComprador").SetText(Sanitize(doc.Buyer.Name))
	info.CreateElement("identificacionComprador").SetText(doc.Buyer.Identification)
	info.CreateElement("obligadoContabilidad").SetText(accountingFlag(b.issuer))
	info.CreateElement("codDocModificado").SetText(string(model.KindInvoice))
	info.CreateElement("numDocModificado").SetText(b.modifiedNumber(doc))
	info.CreateElement("fechaEmisionDocSustento").SetText(doc.ModifiedEmissionDate.Format(dateLayout))
	info.CreateElement("totalSinImpuestos").SetText(money.Format2(doc.TotalWithoutTax))
	info.CreateElement("valorModificacion").SetText(money.Format2(doc.GrandTotal))
	info.CreateElement("moneda").SetText(currency)

	if err := b.buildTotalConImpuestos(info, doc); err != nil {
		return err
	}

	info.CreateElement("motivo").SetText(doc.Reason.Description())
	return nil
}

func (b *Builder) buildTotalConImpuestos(info *etree.Element, doc *model.Document) error {
	code, err := rateCode(doc.TaxRate)
	if err != nil {
		return err
	}
	wrapper := info.CreateElement("totalConImpuestos")
	tax := wrapper.CreateElement("totalImpuesto")
	tax.CreateElement("codigo").SetText(vatTaxCode)
	tax.CreateElement("codigoPorcentaje").SetText(code)
	tax.CreateElement("baseImponible").SetText(money.Format2(doc.TotalWithoutTax))
	tax.CreateElement("valor").SetText(money.Format2(doc.TotalTax))
	return nil
}

func (b *Builder) buildDetalles(root *etree.Element, doc *model.Document) error {
	code, err := rateCode(doc.TaxRate)
	if err != nil {
		return err
	}
	ratePercent := doc.TaxRate.Mul(decimal.NewFromInt(100))

	detalles := root.CreateElement("detalles")
	for _, line := range doc.Lines {
		d := detalles.CreateElement("detalle")
		if line.Code != "" {
			d.CreateElement("codigoPrincipal").SetText(Sanitize(line.Code))
		}
		d.CreateElement("descripcion").SetText(Sanitize(line.Description))
		d.CreateElement("cantidad").SetText(money.Format6(line.Quantity))
		d.CreateElement("precioUnitario").SetText(money.Format6(line.UnitPrice))
		d.CreateElement("descuento").SetText("0.00")
		d.CreateElement("precioTotalSinImpuesto").SetText(money.Format2(line.TaxBase))

		impuestos := d.CreateElement("impuestos")
		impuesto := impuestos.CreateElement("impuesto")
		impuesto.CreateElement("codigo").SetText(vatTaxCode)
		impuesto.CreateElement("codigoPorcentaje").SetText(code)
		impuesto.CreateElement("tarifa").SetText(ratePercent.StringFixed(0))
		impuesto.CreateElement("baseImponible").SetText(money.Format2(line.TaxBase))
		impuesto.CreateElement("valor").SetText(money.Format2(line.TaxValue))
	}
	return nil
}

func (b *Builder) buildInfoAdicional(root *etree.Element, doc *model.Document) {
	fields := []struct{ name, value string }{
		{"Direccion", doc.Buyer.Address},
		{"Email", doc.Buyer.Email},
		{"Telefono", doc.Buyer.Phone},
	}
	var info *etree.Element
	for _, f := range fields {
		if f.value == "" {
			continue
		}
		if info == nil {
			info = root.CreateElement("infoAdicional")
		}
		campo := info.CreateElement("campoAdicional")
		campo.CreateAttr("nombre", f.name)
		campo.SetText(Sanitize(f.value))
	}
}

func (b *Builder) modifiedNumber(doc *model.Document) string {
	return b.issuer.Establishment + "-" + b.issuer.EmissionPoint + "-" + doc.ModifiedSequence
}

func accountingFlag(issuer model.Issuer) string {
	if issuer.AccountingRequired {
		return "SI"
	}
	return "NO"
}

// rateCode maps a fractional VAT rate to the authority's percentage
// code table.
func rateCode(rate decimal.Decimal) (string, error) {
	switch money.Format2(rate.Mul(decimal.NewFromInt(100))) {
	case "0.00":
		return "0", nil
	case "5.00":
		return "5", nil
	case "12.00":
		return "2", nil
	case "13.00":
		return "10", nil
	case "14.00":
		return "3", nil
	case "15.00":
		return "4", nil
	}
	return "", model.NewValidationError("taxRate", "no percentage code for rate "+rate.String())
}

// EmissionDateOf parses the fechaEmision text of a rendered document
// back into a time. Used by tests and status tooling.
func EmissionDateOf(text string) (time.Time, error) {
	return time.Parse(dateLayout, text)
}
