package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/ridhampc123-lang/mango/internal/service/reporting"
)

// ReportHandler serves the dashboard summary, daily reports and reconciliation.
type ReportHandler struct {
	reporting *reporting.Service
	loc       *time.Location
	logger    *zap.Logger
}

// NewReportHandler constructs the reporting HTTP adapter. Daily reports use loc's calendar.
func NewReportHandler(svc *reporting.Service, loc *time.Location, logger *zap.Logger) *ReportHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	if loc == nil {
		loc = time.UTC
	}
	return &ReportHandler{reporting: svc, loc: loc, logger: logger}
}

func (h *ReportHandler) Summary(c *gin.Context) {
	summary, err := h.reporting.Summary(c.Request.Context(), h.loc)
	if err != nil {
		fail(c, h.logger, err)
		return
	}
	respond(c, http.StatusOK, "", summary)
}

// MonthlySales returns revenue, expenses and profit per month of ?year=,
// the current year when omitted.
func (h *ReportHandler) MonthlySales(c *gin.Context) {
	year := time.Now().In(h.loc).Year()
	if raw := c.Query("year"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			badRequest(c, "year must be a positive integer")
			return
		}
		year = parsed
	}

	trend, err := h.reporting.MonthlyTrend(c.Request.Context(), year, h.loc)
	if err != nil {
		fail(c, h.logger, err)
		return
	}
	respondList(c, trend)
}

// TopCustomers ranks buyers by spend; ?limit= defaults to 10.
func (h *ReportHandler) TopCustomers(c *gin.Context) {
	limit := reporting.DefaultTopCustomers
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			badRequest(c, "limit must be a positive integer")
			return
		}
		limit = parsed
	}

	ranked, err := h.reporting.TopCustomers(c.Request.Context(), limit)
	if err != nil {
		fail(c, h.logger, err)
		return
	}
	respondList(c, ranked)
}

// Daily builds the report for ?date= (YYYY-MM-DD), today when omitted.
func (h *ReportHandler) Daily(c *gin.Context) {
	day := time.Now().In(h.loc)
	if raw := c.Query("date"); raw != "" {
		parsed, err := time.ParseInLocation(dateLayout, raw, h.loc)
		if err != nil {
			badRequest(c, "date must be YYYY-MM-DD")
			return
		}
		day = parsed
	}

	report, err := h.reporting.BuildDailyReport(c.Request.Context(), day, h.loc)
	if err != nil {
		fail(c, h.logger, err)
		return
	}
	respond(c, http.StatusOK, "", report)
}

// Reconciliation checks every stored aggregate against its rules and history.
func (h *ReportHandler) Reconciliation(c *gin.Context) {
	report, err := h.reporting.Reconcile(c.Request.Context())
	if err != nil {
		fail(c, h.logger, err)
		return
	}
	message := "ledger consistent"
	if !report.Consistent() {
		message = "ledger has violations"
	}
	respond(c, http.StatusOK, message, report)
}
