package server_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rezonia/facturador/internal/model"
	"github.com/rezonia/facturador/internal/money"
	"github.com/rezonia/facturador/internal/orchestrator"
	"github.com/rezonia/facturador/internal/server"
	"github.com/rezonia/facturador/internal/store"
)

const testKey = "3008202601179001234500110010020000000010123456781"

// fakeService replays scripted lifecycle outcomes.
type fakeService struct {
	issueResult  *orchestrator.Result
	issueErr     error
	issuedDocs   []*model.Document
	statusResult *orchestrator.Result
	statusErr    error
	statusKeys   []string
}

func (s *fakeService) Issue(_ context.Context, doc *model.Document) (*orchestrator.Result, error) {
	s.issuedDocs = append(s.issuedDocs, doc)
	return s.issueResult, s.issueErr
}

func (s *fakeService) CheckStatus(_ context.Context, accessKey string) (*orchestrator.Result, error) {
	s.statusKeys = append(s.statusKeys, accessKey)
	return s.statusResult, s.statusErr
}

func newTestServer(svc *fakeService, records store.Store) *server.Server {
	if records == nil {
		records = store.NewMemoryStore()
	}
	config := &server.Config{
		Address: ":8080",
		Debug:   true,
	}
	return server.NewServer(config, svc, records)
}

func invoiceBody(t *testing.T) []byte {
	t.Helper()
	body, err := json.Marshal(map[string]any{
		"taxRate": "0.15",
		"buyer": map[string]string{
			"identification":     "1712345678",
			"identificationType": model.BuyerIDCedula,
			"name":               "Cliente",
		},
		"lines": []map[string]any{
			{"description": "Almuerzo", "quantity": "2", "unitPrice": "8.50"},
		},
	})
	require.NoError(t, err)
	return body
}

func TestHealthEndpoint(t *testing.T) {
	srv := newTestServer(&fakeService{}, nil)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()

	srv.Handler().ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var response map[string]interface{}
	err := json.Unmarshal(w.Body.Bytes(), &response)
	require.NoError(t, err)

	assert.Equal(t, "ok", response["status"])
	assert.NotEmpty(t, response["time"])
}

func TestIssueInvoiceAuthorized(t *testing.T) {
	ts := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)
	svc := &fakeService{
		issueResult: &orchestrator.Result{
			Status:                 model.StatusAuthorized,
			AccessKey:              testKey,
			AuthorizationNumber:    testKey,
			AuthorizationTimestamp: &ts,
		},
	}
	srv := newTestServer(svc, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/invoices", bytes.NewReader(invoiceBody(t)))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()

	srv.Handler().ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var response server.IssueResponse
	err := json.Unmarshal(w.Body.Bytes(), &response)
	require.NoError(t, err)
	assert.Equal(t, model.StatusAuthorized, response.Status)
	assert.Equal(t, testKey, response.AccessKey)

	require.Len(t, svc.issuedDocs, 1)
	doc := svc.issuedDocs[0]
	assert.Equal(t, model.KindInvoice, doc.Kind)
	assert.Equal(t, "1712345678", doc.Buyer.Identification)
	require.Len(t, doc.Lines, 1)
	assert.True(t, doc.Lines[0].UnitPrice.Equal(money.MustFromString("8.50")))
}

func TestIssueInvoiceRejectedMapsTo422(t *testing.T) {
	svc := &fakeService{
		issueResult: &orchestrator.Result{
			Status:    model.StatusRejected,
			AccessKey: testKey,
			Messages:  []string{"CLAVE ACCESO EN ESTADO NO AUTORIZADO"},
		},
	}
	srv := newTestServer(svc, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/invoices", bytes.NewReader(invoiceBody(t)))
	w := httptest.NewRecorder()

	srv.Handler().ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)

	var response server.IssueResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	assert.Equal(t, model.StatusRejected, response.Status)
	assert.NotEmpty(t, response.Messages)
}

func TestIssueInvoiceTimeoutMapsTo202(t *testing.T) {
	svc := &fakeService{
		issueResult: &orchestrator.Result{Status: model.StatusTimeout, AccessKey: testKey},
	}
	srv := newTestServer(svc, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/invoices", bytes.NewReader(invoiceBody(t)))
	w := httptest.NewRecorder()

	srv.Handler().ServeHTTP(w, req)

	assert.Equal(t, http.StatusAccepted, w.Code)
}

func TestIssueInvoiceValidationError(t *testing.T) {
	svc := &fakeService{
		issueErr: model.NewValidationError("buyer.identification", "required"),
	}
	srv := newTestServer(svc, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/invoices", bytes.NewReader(invoiceBody(t)))
	w := httptest.NewRecorder()

	srv.Handler().ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)

	var response server.ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	assert.Equal(t, "buyer.identification", response.Field)
}

func TestIssueInvoiceTransportErrorMapsTo502(t *testing.T) {
	svc := &fakeService{
		issueErr: model.NewTransportError("submit", assert.AnError),
	}
	srv := newTestServer(svc, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/invoices", bytes.NewReader(invoiceBody(t)))
	w := httptest.NewRecorder()

	srv.Handler().ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadGateway, w.Code)
}

func TestIssueInvoiceMalformedBody(t *testing.T) {
	srv := newTestServer(&fakeService{}, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/invoices", bytes.NewReader([]byte("{not json")))
	w := httptest.NewRecorder()

	srv.Handler().ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestIssueCreditNote(t *testing.T) {
	svc := &fakeService{
		issueResult: &orchestrator.Result{Status: model.StatusAuthorized, AccessKey: testKey},
	}
	srv := newTestServer(svc, nil)

	body, err := json.Marshal(map[string]any{
		"taxRate":           "0.15",
		"modifiedAccessKey": testKey,
		"reason":            model.ReasonMerchandiseReturn,
		"buyer": map[string]string{
			"identification": "1712345678",
			"name":           "Cliente",
		},
		"lines": []map[string]any{
			{"description": "Almuerzo", "quantity": "1", "unitPrice": "5.75"},
		},
	})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/credit-notes", bytes.NewReader(body))
	w := httptest.NewRecorder()

	srv.Handler().ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	require.Len(t, svc.issuedDocs, 1)
	doc := svc.issuedDocs[0]
	assert.Equal(t, model.KindCreditNote, doc.Kind)
	assert.Equal(t, testKey, doc.ModifiedAccessKey)
	assert.Equal(t, model.ReasonMerchandiseReturn, doc.Reason)
}

func TestGetDocument(t *testing.T) {
	records := store.NewMemoryStore()
	doc := &model.Document{
		Kind:      model.KindInvoice,
		Sequence:  "000000001",
		AccessKey: testKey,
		Status:    model.StatusAuthorized,
		Buyer:     model.Party{Identification: "1712345678", Name: "Cliente"},
	}
	_, err := records.Upsert(context.Background(), doc)
	require.NoError(t, err)

	srv := newTestServer(&fakeService{}, records)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/documents/"+testKey, nil)
	w := httptest.NewRecorder()

	srv.Handler().ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var got model.Document
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.Equal(t, testKey, got.AccessKey)
	assert.Equal(t, model.StatusAuthorized, got.Status)
}

func TestGetDocumentNotFound(t *testing.T) {
	srv := newTestServer(&fakeService{}, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/documents/"+testKey, nil)
	w := httptest.NewRecorder()

	srv.Handler().ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestCheckStatusEndpoint(t *testing.T) {
	svc := &fakeService{
		statusResult: &orchestrator.Result{Status: model.StatusRetryPending, AccessKey: testKey},
	}
	srv := newTestServer(svc, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/documents/"+testKey+"/status", nil)
	w := httptest.NewRecorder()

	srv.Handler().ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	require.Len(t, svc.statusKeys, 1)
	assert.Equal(t, testKey, svc.statusKeys[0])

	var response server.IssueResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	assert.Equal(t, model.StatusRetryPending, response.Status)
}
