// Package sri talks to the tax authority's reception and
// authorization web services.
package sri

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/beevik/etree"

	"github.com/rezonia/facturador/internal/model"
)

// Endpoint hosts per environment.
const (
	testReceptionURL     = "https://celcer.sri.gob.ec/comprobantes-electronicos-ws/RecepcionComprobantesOffline"
	testAuthorizationURL = "https://celcer.sri.gob.ec/comprobantes-electronicos-ws/AutorizacionComprobantesOffline"
	prodReceptionURL     = "https://cel.sri.gob.ec/comprobantes-electronicos-ws/RecepcionComprobantesOffline"
	prodAuthorizationURL = "https://cel.sri.gob.ec/comprobantes-electronicos-ws/AutorizacionComprobantesOffline"

	receptionNamespace     = "http://ec.gob.sri.ws.recepcion"
	authorizationNamespace = "http://ec.gob.sri.ws.autorizacion"
	soapEnvelopeNamespace  = "http://schemas.xmlsoap.org/soap/envelope/"

	// DefaultTimeout bounds one round trip to the authority.
	DefaultTimeout = 30 * time.Second
)

// Client submits signed documents and queries their authorization.
type Client struct {
	httpClient       *http.Client
	receptionURL     string
	authorizationURL string
}

// Option configures the client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithEndpoints overrides both service URLs. Used by tests and by
// deployments behind a proxy.
func WithEndpoints(reception, authorization string) Option {
	return func(c *Client) {
		c.receptionURL = reception
		c.authorizationURL = authorization
	}
}

// NewClient creates a client for the given environment's hosts.
func NewClient(env model.Environment, opts ...Option) *Client {
	c := &Client{
		httpClient:       &http.Client{Timeout: DefaultTimeout},
		receptionURL:     testReceptionURL,
		authorizationURL: testAuthorizationURL,
	}
	if env.IsProduction() {
		c.receptionURL = prodReceptionURL
		c.authorizationURL = prodAuthorizationURL
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Submit posts the signed XML (base64-encoded inside a SOAP envelope)
// to the reception endpoint. A transport-level failure is returned as
// *model.TransportError, distinct from a well-formed RETURNED
// response. Never blindly retried by callers: the authority treats
// re-submission of a registered key as an error.
func (c *Client) Submit(ctx context.Context, signedXML []byte) (ReceptionResult, error) {
	payload := base64.StdEncoding.EncodeToString(signedXML)
	envelope := buildEnvelope(receptionNamespace, "validarComprobante", "xml", payload)

	body, err := c.post(ctx, c.receptionURL, envelope)
	if err != nil {
		return ReceptionResult{}, model.NewTransportError("submit", err)
	}

	var parsed receptionEnvelope
	if err := xml.Unmarshal(body, &parsed); err != nil {
		return ReceptionResult{}, model.NewTransportError("submit", fmt.Errorf("decoding reception response: %w", err))
	}

	result := ReceptionResult{State: ReceptionUnknown}
	switch parsed.Respuesta.Estado {
	case "RECIBIDA":
		result.State = ReceptionReceived
	case "DEVUELTA":
		result.State = ReceptionReturned
	}
	for _, comp := range parsed.Respuesta.Comprobantes {
		for _, m := range comp.Mensajes {
			result.Messages = append(result.Messages, Message{
				Identifier:     m.Identificador,
				Text:           m.Mensaje,
				AdditionalInfo: m.InformacionAdicional,
				Type:           m.Tipo,
			})
		}
	}
	return result, nil
}

// QueryAuthorization asks the authorization endpoint for the outcome
// of one access key. Zero results map to AuthorizationNotFound, which
// is ambiguous and left to the caller's retry policy. Always safe to
// retry.
func (c *Client) QueryAuthorization(ctx context.Context, accessKey string) (AuthorizationResult, error) {
	envelope := buildEnvelope(authorizationNamespace, "autorizacionComprobante", "claveAccesoComprobante", accessKey)

	body, err := c.post(ctx, c.authorizationURL, envelope)
	if err != nil {
		return AuthorizationResult{}, model.NewTransportError("queryAuthorization", err)
	}

	var parsed authorizationEnvelope
	if err := xml.Unmarshal(body, &parsed); err != nil {
		return AuthorizationResult{}, model.NewTransportError("queryAuthorization", fmt.Errorf("decoding authorization response: %w", err))
	}

	if len(parsed.Respuesta.Autorizaciones) == 0 {
		return AuthorizationResult{State: AuthorizationNotFound}, nil
	}

	auth := parsed.Respuesta.Autorizaciones[0]
	result := AuthorizationResult{
		Number:        auth.NumeroAutorizacion,
		AuthorizedXML: auth.Comprobante,
	}
	for _, m := range auth.Mensajes {
		result.Messages = append(result.Messages, Message{
			Identifier:     m.Identificador,
			Text:           m.Mensaje,
			AdditionalInfo: m.InformacionAdicional,
			Type:           m.Tipo,
		})
	}
	switch auth.Estado {
	case "AUTORIZADO":
		result.State = AuthorizationAuthorized
		if ts, err := time.Parse(time.RFC3339, auth.FechaAutorizacion); err == nil {
			result.Timestamp = ts
		}
	case "NO AUTORIZADO", "RECHAZADA":
		result.State = AuthorizationNotAuthorized
	case "EN PROCESO", "EN PROCESAMIENTO", "PPR":
		result.State = AuthorizationProcessing
	default:
		// Treat unknown states as still processing rather than
		// inventing a terminal outcome.
		result.State = AuthorizationProcessing
	}
	return result, nil
}

func (c *Client) post(ctx context.Context, url string, envelope []byte) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(envelope))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", `text/xml; charset=utf-8`)
	req.Header.Set("SOAPAction", "")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("authority answered HTTP %d: %s", resp.StatusCode, truncate(body, 200))
	}
	return body, nil
}

// buildEnvelope wraps one operation with a single text argument in a
// SOAP 1.1 envelope.
func buildEnvelope(namespace, operation, argName, argValue string) []byte {
	doc := etree.NewDocument()
	doc.CreateProcInst("xml", `version="1.0" encoding="UTF-8"`)

	env := doc.CreateElement("soapenv:Envelope")
	env.CreateAttr("xmlns:soapenv", soapEnvelopeNamespace)
	env.CreateAttr("xmlns:ec", namespace)
	env.CreateElement("soapenv:Header")
	body := env.CreateElement("soapenv:Body")
	op := body.CreateElement("ec:" + operation)
	op.CreateElement(argName).SetText(argValue)

	out, _ := doc.WriteToBytes()
	return out
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
