// Package server exposes the reconciliation service over HTTP.
//
// Routes:
//
//	GET  /health                  liveness probe
//	POST /api/v1/match            score one payment against the ledger
//	POST /api/v1/dispositions     apply a confirmed payment or dispute
//	GET  /api/v1/metrics/dso      DSO and liquidity metrics
//	GET  /api/v1/metrics/aging    receivables aging report
//	GET  /api/v1/metrics/esg      ESG-weighted exposure profile
//	GET  /api/v1/audit            audit trail query
package server

import (
	"net/http"
	"strconv"
	"time"

	"treasury-reconciliation-service/internal/analytics"
	"treasury-reconciliation-service/internal/compliance"
	"treasury-reconciliation-service/internal/models"
	"treasury-reconciliation-service/internal/reconciler"
	"treasury-reconciliation-service/pkg/errors"
	"treasury-reconciliation-service/pkg/logger"

	"github.com/gin-gonic/gin"
)

// Server wires the reconciliation service into a gin router
type Server struct {
	service   *reconciler.Service
	analytics *analytics.Analytics
	router    *gin.Engine
	log       logger.Logger
}

// New creates an HTTP server over the given reconciliation service
func New(service *reconciler.Service, metrics *analytics.Analytics) *Server {
	if metrics == nil {
		metrics = analytics.New()
	}

	s := &Server{
		service:   service,
		analytics: metrics,
		log:       logger.GetGlobalLogger().WithComponent("server"),
	}

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())

	router.GET("/health", s.handleHealth)

	api := router.Group("/api/v1")
	{
		api.POST("/match", s.handleMatch)
		api.POST("/dispositions", s.handleDisposition)
		api.GET("/metrics/dso", s.handleDSOMetrics)
		api.GET("/metrics/aging", s.handleAgingMetrics)
		api.GET("/metrics/esg", s.handleESGMetrics)
		api.GET("/audit", s.handleAuditQuery)
	}

	s.router = router
	return s
}

// Router returns the underlying gin engine, used by tests and by Run
func (s *Server) Router() *gin.Engine {
	return s.router
}

// Run starts the HTTP server on the given address
func (s *Server) Run(addr string) error {
	s.log.WithField("addr", addr).Info("Starting HTTP server")
	return s.router.Run(addr)
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
		"time":   time.Now().UTC().Format(time.RFC3339),
	})
}

// matchRequest is the payload for POST /api/v1/match
type matchRequest struct {
	Amount    string `json:"amount" binding:"required"`
	Currency  string `json:"currency" binding:"required"`
	PayerName string `json:"payer_name" binding:"required"`
	Reference string `json:"reference"`
}

func (s *Server) handleMatch(c *gin.Context) {
	var req matchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body: " + err.Error()})
		return
	}

	payment, err := models.CreateIncomingPaymentFromCSV(req.Amount, req.Currency, req.PayerName, req.Reference)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result, err := s.service.MatchPayment(payment)
	if err != nil {
		s.renderError(c, err)
		return
	}

	// An empty candidate list is a successful outcome, not an error
	c.JSON(http.StatusOK, result)
}

// dispositionRequest is the payload for POST /api/v1/dispositions
type dispositionRequest struct {
	InvoiceID string `json:"invoice_id" binding:"required"`
	Action    string `json:"action" binding:"required"`
	Amount    string `json:"amount"`
	Principal string `json:"principal"`
}

func (s *Server) handleDisposition(c *gin.Context) {
	var req dispositionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body: " + err.Error()})
		return
	}

	switch req.Action {
	case "apply":
		amount, err := models.ParseDecimalFromString(req.Amount)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid amount: " + err.Error()})
			return
		}

		inv, err := s.service.ApplyDisposition(c.Request.Context(), req.InvoiceID, amount, req.Principal)
		if err != nil {
			s.renderError(c, err)
			return
		}
		c.JSON(http.StatusOK, inv)

	case "dispute":
		inv, err := s.service.DisputeInvoice(c.Request.Context(), req.InvoiceID, req.Principal)
		if err != nil {
			s.renderError(c, err)
			return
		}
		c.JSON(http.StatusOK, inv)

	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown action: " + req.Action})
	}
}

func (s *Server) handleDSOMetrics(c *gin.Context) {
	snapshot := s.service.Ledger().Snapshot()

	stressDays := 0
	if raw := c.Query("stress_days"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "stress_days must be a non-negative integer"})
			return
		}
		stressDays = parsed
	}

	c.JSON(http.StatusOK, gin.H{
		"dso":       s.analytics.DaysSalesOutstanding(snapshot),
		"cer":       s.analytics.CollectionEffectiveness(snapshot),
		"forecast":  s.analytics.Forecast(snapshot),
		"liquidity": s.analytics.SimulateLiquidity(snapshot, stressDays),
	})
}

func (s *Server) handleAgingMetrics(c *gin.Context) {
	c.JSON(http.StatusOK, s.analytics.Aging(s.service.Ledger().Snapshot()))
}

func (s *Server) handleESGMetrics(c *gin.Context) {
	profile := s.analytics.ESGRiskProfile(s.service.Ledger().Snapshot())
	if profile == nil {
		profile = []analytics.ESGExposure{}
	}
	c.JSON(http.StatusOK, gin.H{"exposure": profile})
}

func (s *Server) handleAuditQuery(c *gin.Context) {
	filter := compliance.Filter{
		InvoiceID: c.Query("invoice_id"),
		Action:    c.Query("action"),
	}

	if raw := c.Query("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a non-negative integer"})
			return
		}
		filter.Limit = limit
	}

	events, err := s.service.Audit().List(c.Request.Context(), filter)
	if err != nil {
		s.renderError(c, err)
		return
	}
	if events == nil {
		events = []compliance.AuditEvent{}
	}

	c.JSON(http.StatusOK, gin.H{"events": events})
}

// renderError maps application errors onto HTTP status codes
func (s *Server) renderError(c *gin.Context, err error) {
	rerr, ok := errors.AsReconcilerError(err)
	if !ok {
		s.log.WithError(err).Error("Unhandled error")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}

	status := http.StatusInternalServerError
	switch rerr.Category {
	case errors.CategoryValidation, errors.CategoryParse:
		status = http.StatusBadRequest
	case errors.CategoryLedger:
		switch rerr.Code {
		case errors.CodeUnknownInvoice:
			status = http.StatusNotFound
		default:
			status = http.StatusConflict
		}
	}

	c.JSON(status, gin.H{
		"error": rerr.Message,
		"code":  rerr.Code,
	})
}
