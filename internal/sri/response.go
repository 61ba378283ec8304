package sri

import "encoding/xml"

// Wire shapes of the authority's SOAP responses. Matching is by local
// element name; the namespace prefixes vary between environments.

type soapMensaje struct {
	Identificador        string `xml:"identificador"`
	Mensaje              string `xml:"mensaje"`
	InformacionAdicional string `xml:"informacionAdicional"`
	Tipo                 string `xml:"tipo"`
}

type receptionEnvelope struct {
	XMLName   xml.Name `xml:"Envelope"`
	Respuesta struct {
		Estado       string `xml:"estado"`
		Comprobantes []struct {
			ClaveAcceso string        `xml:"claveAcceso"`
			Mensajes    []soapMensaje `xml:"mensajes>mensaje"`
		} `xml:"comprobantes>comprobante"`
	} `xml:"Body>validarComprobanteResponse>RespuestaRecepcionComprobante"`
}

type authorizationEnvelope struct {
	XMLName   xml.Name `xml:"Envelope"`
	Respuesta struct {
		ClaveAccesoConsultada string `xml:"claveAccesoConsultada"`
		NumeroComprobantes    string `xml:"numeroComprobantes"`
		Autorizaciones        []struct {
			Estado             string        `xml:"estado"`
			NumeroAutorizacion string        `xml:"numeroAutorizacion"`
			FechaAutorizacion  string        `xml:"fechaAutorizacion"`
			Ambiente           string        `xml:"ambiente"`
			Comprobante        string        `xml:"comprobante"`
			Mensajes           []soapMensaje `xml:"mensajes>mensaje"`
		} `xml:"autorizaciones>autorizacion"`
	} `xml:"Body>autorizacionComprobanteResponse>RespuestaAutorizacionComprobante"`
}
