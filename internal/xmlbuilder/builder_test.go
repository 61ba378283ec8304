package xmlbuilder_test

import (
	"testing"
	"time"

	"github.com/beevik/etree"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rezonia/facturador/internal/accesskey"
	"github.com/rezonia/facturador/internal/model"
	"github.com/rezonia/facturador/internal/money"
	"github.com/rezonia/facturador/internal/xmlbuilder"
)

func testIssuer() model.Issuer {
	return model.Issuer{
		RUC:                  "1790012345001",
		LegalName:            "Picantería La Tradición CÍA LTDA",
		TradeName:            "La Tradición",
		HeadOfficeAddress:    "Av. Amazonas N12-34 y Colón",
		EstablishmentAddress: "Av. Amazonas N12-34 y Colón",
		Establishment:        "001",
		EmissionPoint:        "002",
		Environment:          model.EnvTest,
		AccountingRequired:   false,
	}
}

func testInvoice() *model.Document {
	return &model.Document{
		Kind:         model.KindInvoice,
		Sequence:     "000000123",
		EmissionDate: time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC),
		TaxRate:      money.MustFromString("0.15"),
		Buyer: model.Party{
			Identification:     "1712345678",
			IdentificationType: model.BuyerIDCedula,
			Name:               "María Pérez",
			Email:              "maria@example.com",
		},
		Lines: []model.Line{
			{Description: "Seco de chivo", Quantity: money.MustFromString("2"), UnitPrice: money.MustFromString("8.50")},
			{Description: "Jugo de naranja", Quantity: money.MustFromString("1"), UnitPrice: money.MustFromString("2.30")},
		},
	}
}

func TestBuildInvoice(t *testing.T) {
	b := xmlbuilder.NewBuilder(testIssuer())
	doc := testInvoice()

	xml, key, err := b.Build(doc)
	require.NoError(t, err)
	require.Len(t, key, 49)
	assert.True(t, accesskey.Valid(key))

	tree := etree.NewDocument()
	require.NoError(t, tree.ReadFromBytes(xml))

	root := tree.Root()
	require.NotNil(t, root)
	assert.Equal(t, "factura", root.Tag)
	assert.Equal(t, "comprobante", root.SelectAttrValue("id", ""))

	info := root.FindElement("infoTributaria")
	require.NotNil(t, info)
	assert.Equal(t, key, info.FindElement("claveAcceso").Text())
	assert.Equal(t, "01", info.FindElement("codDoc").Text())
	assert.Equal(t, "000000123", info.FindElement("secuencial").Text())
	assert.Equal(t, "1790012345001", info.FindElement("ruc").Text())

	factura := root.FindElement("infoFactura")
	require.NotNil(t, factura)
	assert.Equal(t, "30/08/2026", factura.FindElement("fechaEmision").Text())
	assert.Equal(t, "NO", factura.FindElement("obligadoContabilidad").Text())
	assert.Equal(t, "1712345678", factura.FindElement("identificacionComprador").Text())

	details := root.FindElements("detalles/detalle")
	require.Len(t, details, 2)
}

func TestBuildComputesLineLevelRounding(t *testing.T) {
	b := xmlbuilder.NewBuilder(testIssuer())
	doc := testInvoice()
	doc.Lines = doc.Lines[:1] // 2 x 8.50 inclusive at 15%

	xml, _, err := b.Build(doc)
	require.NoError(t, err)

	tree := etree.NewDocument()
	require.NoError(t, tree.ReadFromBytes(xml))

	detail := tree.FindElement("//detalle")
	require.NotNil(t, detail)
	assert.Equal(t, "14.78", detail.FindElement("precioTotalSinImpuesto").Text())
	assert.Equal(t, "14.78", detail.FindElement("impuestos/impuesto/baseImponible").Text())
	assert.Equal(t, "2.22", detail.FindElement("impuestos/impuesto/valor").Text())
	assert.Equal(t, "15", detail.FindElement("impuestos/impuesto/tarifa").Text())
	assert.Equal(t, "4", detail.FindElement("impuestos/impuesto/codigoPorcentaje").Text())
}

func TestBuildTotalsRoundTrip(t *testing.T) {
	b := xmlbuilder.NewBuilder(testIssuer())
	doc := testInvoice()

	xml, _, err := b.Build(doc)
	require.NoError(t, err)

	tree := etree.NewDocument()
	require.NoError(t, tree.ReadFromBytes(xml))

	info := tree.FindElement("//infoFactura")
	require.NotNil(t, info)
	total := money.MustFromString(info.FindElement("importeTotal").Text())
	sinImpuestos := money.MustFromString(info.FindElement("totalSinImpuestos").Text())
	impuesto := money.MustFromString(info.FindElement("totalConImpuestos/totalImpuesto/valor").Text())

	// totalWithoutTax + totalTax == grandTotal exactly at 2 decimals.
	assert.True(t, sinImpuestos.Add(impuesto).Equal(total),
		"%s + %s != %s", sinImpuestos, impuesto, total)
}

func TestBuildFreshKeyEveryCall(t *testing.T) {
	b := xmlbuilder.NewBuilder(testIssuer())
	doc := testInvoice()

	_, first, err := b.Build(doc)
	require.NoError(t, err)
	_, second, err := b.Build(doc)
	require.NoError(t, err)

	assert.NotEqual(t, first, second, "re-rendering the same sequence must produce a new key")
}

func TestBuildCreditNote(t *testing.T) {
	b := xmlbuilder.NewBuilder(testIssuer())
	doc := testInvoice()
	doc.Kind = model.KindCreditNote
	doc.Reason = model.ReasonMerchandiseReturn
	doc.ModifiedSequence = "000000100"
	doc.ModifiedAccessKey = "3008202601179001234500110010020000001000123456781"
	doc.ModifiedEmissionDate = time.Date(2026, 8, 3, 0, 0, 0, 0, time.UTC)

	xml, key, err := b.Build(doc)
	require.NoError(t, err)
	assert.True(t, accesskey.Valid(key))

	tree := etree.NewDocument()
	require.NoError(t, tree.ReadFromBytes(xml))

	root := tree.Root()
	assert.Equal(t, "notaCredito", root.Tag)
	assert.Equal(t, "04", root.FindElement("infoTributaria/codDoc").Text())

	nc := root.FindElement("infoNotaCredito")
	require.NotNil(t, nc)
	assert.Equal(t, "01", nc.FindElement("codDocModificado").Text())
	assert.Equal(t, "001-002-000000100", nc.FindElement("numDocModificado").Text())
	assert.Equal(t, "03/08/2026", nc.FindElement("fechaEmisionDocSustento").Text())
	assert.Equal(t, "DEVOLUCION DE MERCADERIA", nc.FindElement("motivo").Text())
	require.NotNil(t, nc.FindElement("valorModificacion"))
}

func TestBuildSanitizesFreeText(t *testing.T) {
	b := xmlbuilder.NewBuilder(testIssuer())
	doc := testInvoice()
	doc.Buyer.Name = "Niño & Cía <Ñandú>\x07"

	xml, _, err := b.Build(doc)
	require.NoError(t, err)

	tree := etree.NewDocument()
	require.NoError(t, tree.ReadFromBytes(xml))
	got := tree.FindElement("//razonSocialComprador").Text()
	assert.Equal(t, "Nino & Cia <Nandu>", got)

	// The serialized bytes carry the escaped metacharacters.
	assert.Contains(t, string(xml), "Nino &amp; Cia &lt;Nandu&gt;")
}

func TestBuildRejectsEmptyLines(t *testing.T) {
	b := xmlbuilder.NewBuilder(testIssuer())
	doc := testInvoice()
	doc.Lines = nil

	_, _, err := b.Build(doc)
	var verr *model.ValidationError
	require.ErrorAs(t, err, &verr)
}

func TestBuildRejectsUnknownRate(t *testing.T) {
	b := xmlbuilder.NewBuilder(testIssuer())
	doc := testInvoice()
	doc.TaxRate = money.MustFromString("0.21")

	_, _, err := b.Build(doc)
	var verr *model.ValidationError
	require.ErrorAs(t, err, &verr)
}

func TestSanitize(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"áéíóúÁÉÍÓÚ", "aeiouAEIOU"},
		{"ñÑüÜ", "nNuU"},
		{"plain ascii", "plain ascii"},
		{"tab\tand\nnewline", "tabandnewline"},
		{"", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, xmlbuilder.Sanitize(tt.in), tt.in)
	}
}

func TestEmissionDateOf(t *testing.T) {
	d, err := xmlbuilder.EmissionDateOf("30/08/2026")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 8, 30, 0, 0, 0, 0, time.UTC), d)
}
