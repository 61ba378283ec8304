package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/rezonia/facturador/internal/model"
	"github.com/rezonia/facturador/internal/orchestrator"
	"github.com/rezonia/facturador/internal/store"
)

// Config holds server configuration
type Config struct {
	Address      string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	Debug        bool
}

// Service runs the document lifecycle. Satisfied by
// *orchestrator.Orchestrator.
type Service interface {
	Issue(ctx context.Context, doc *model.Document) (*orchestrator.Result, error)
	CheckStatus(ctx context.Context, accessKey string) (*orchestrator.Result, error)
}

// Server represents the HTTP API server
type Server struct {
	config  *Config
	router  *gin.Engine
	service Service
	records store.Store
}

// NewServer creates a new API server
func NewServer(config *Config, service Service, records store.Store) *Server {
	if !config.Debug {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	if config.Debug {
		router.Use(gin.Logger())
	}

	s := &Server{
		config:  config,
		router:  router,
		service: service,
		records: records,
	}

	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	// Health check
	s.router.GET("/health", s.handleHealth)

	// API v1
	v1 := s.router.Group("/api/v1")
	{
		v1.POST("/invoices", s.handleIssueInvoice)
		v1.POST("/credit-notes", s.handleIssueCreditNote)
		v1.GET("/documents/:accessKey", s.handleGetDocument)
		v1.GET("/documents/:accessKey/status", s.handleCheckStatus)
	}
}

// Run starts the HTTP server
func (s *Server) Run() error {
	srv := &http.Server{
		Addr:         s.config.Address,
		Handler:      s.router,
		ReadTimeout:  s.config.ReadTimeout,
		WriteTimeout: s.config.WriteTimeout,
	}
	return srv.ListenAndServe()
}

// Handler returns the http.Handler for use with custom servers
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
		"time":   time.Now().UTC().Format(time.RFC3339),
	})
}

func (s *Server) handleIssueInvoice(c *gin.Context) {
	var req InvoiceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "malformed request body"})
		return
	}
	s.issue(c, req.document())
}

func (s *Server) handleIssueCreditNote(c *gin.Context) {
	var req CreditNoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "malformed request body"})
		return
	}
	s.issue(c, req.document())
}

func (s *Server) issue(c *gin.Context, doc *model.Document) {
	res, err := s.service.Issue(c.Request.Context(), doc)
	if err != nil {
		s.renderError(c, err)
		return
	}
	c.JSON(statusCode(res.Status), issueResponse(res))
}

func (s *Server) handleGetDocument(c *gin.Context) {
	doc, err := s.records.FindByAccessKey(c.Request.Context(), c.Param("accessKey"))
	if err != nil {
		s.renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, doc)
}

func (s *Server) handleCheckStatus(c *gin.Context) {
	res, err := s.service.CheckStatus(c.Request.Context(), c.Param("accessKey"))
	if err != nil {
		s.renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, issueResponse(res))
}

// statusCode maps terminal lifecycle outcomes onto HTTP. A rejection
// by the authority is the caller's problem, not the server's.
func statusCode(st model.Status) int {
	switch st {
	case model.StatusAuthorized:
		return http.StatusOK
	case model.StatusRejected:
		return http.StatusUnprocessableEntity
	case model.StatusTimeout:
		return http.StatusAccepted
	default:
		return http.StatusAccepted
	}
}

func (s *Server) renderError(c *gin.Context, err error) {
	var verr *model.ValidationError
	var terr *model.TransportError

	switch {
	case errors.Is(err, store.ErrNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "document not found"})
	case errors.As(err, &verr):
		c.JSON(http.StatusUnprocessableEntity, ErrorResponse{Error: verr.Message, Field: verr.Field})
	case errors.As(err, &terr):
		c.JSON(http.StatusBadGateway, ErrorResponse{Error: err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: err.Error()})
	}
}

func issueResponse(res *orchestrator.Result) IssueResponse {
	return IssueResponse{
		Status:                 res.Status,
		AccessKey:              res.AccessKey,
		AuthorizationNumber:    res.AuthorizationNumber,
		AuthorizationTimestamp: res.AuthorizationTimestamp,
		Messages:               res.Messages,
	}
}
