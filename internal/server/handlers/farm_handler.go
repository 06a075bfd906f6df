package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/ridhampc123-lang/mango/internal/repository"
	"github.com/ridhampc123-lang/mango/internal/service/ledger"
	"github.com/ridhampc123-lang/mango/internal/service/registry"
)

// FarmHandler serves labour wages and operating expenses.
type FarmHandler struct {
	ledger   *ledger.Service
	registry *registry.Service
	logger   *zap.Logger
}

// NewFarmHandler constructs the labour and expense HTTP adapter.
func NewFarmHandler(ledgerSvc *ledger.Service, registrySvc *registry.Service, logger *zap.Logger) *FarmHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FarmHandler{ledger: ledgerSvc, registry: registrySvc, logger: logger}
}

type labourRequest struct {
	WorkerName  string  `json:"workerName" binding:"required"`
	PhoneNumber string  `json:"phoneNumber"`
	HoursWorked float64 `json:"hoursWorked"`
	RatePerHour float64 `json:"ratePerHour"`
	WorkDate    string  `json:"workDate"`
	Notes       string  `json:"notes"`
}

type expenseRequest struct {
	Title    string  `json:"title" binding:"required"`
	Amount   float64 `json:"amount"`
	Category string  `json:"category"`
	Date     string  `json:"date"`
}

func (h *FarmHandler) CreateLabour(c *gin.Context) {
	var req labourRequest
	if !bind(c, &req) {
		return
	}
	workDate, err := parseDate(req.WorkDate)
	if err != nil {
		badRequest(c, "workDate: "+err.Error())
		return
	}

	entry, err := h.registry.CreateLabour(c.Request.Context(), registry.LabourInput{
		WorkerName:  req.WorkerName,
		PhoneNumber: req.PhoneNumber,
		HoursWorked: req.HoursWorked,
		RatePerHour: req.RatePerHour,
		WorkDate:    workDate,
		Notes:       req.Notes,
	})
	if err != nil {
		fail(c, h.logger, err)
		return
	}
	respond(c, http.StatusCreated, "labour entry created", entry)
}

// ListLabour supports ?isPaid=, ?workerName=, ?startDate= and ?endDate=.
func (h *FarmHandler) ListLabour(c *gin.Context) {
	filter := repository.LabourFilter{WorkerName: c.Query("workerName")}

	if raw := c.Query("isPaid"); raw != "" {
		paid, err := strconv.ParseBool(raw)
		if err != nil {
			badRequest(c, "isPaid must be true or false")
			return
		}
		filter.IsPaid = &paid
	}

	var ok bool
	if filter.From, ok = dateQuery(c, "startDate"); !ok {
		return
	}
	if filter.To, ok = dateQuery(c, "endDate"); !ok {
		return
	}
	filter.To = endOfDay(filter.To)

	entries, err := h.registry.ListLabour(c.Request.Context(), filter)
	if err != nil {
		fail(c, h.logger, err)
		return
	}
	respondList(c, entries)
}

func (h *FarmHandler) PendingLabour(c *gin.Context) {
	pending, err := h.registry.PendingLabour(c.Request.Context())
	if err != nil {
		fail(c, h.logger, err)
		return
	}
	respond(c, http.StatusOK, "", pending)
}

func (h *FarmHandler) GetLabour(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	entry, err := h.registry.GetLabour(c.Request.Context(), id)
	if err != nil {
		fail(c, h.logger, err)
		return
	}
	respond(c, http.StatusOK, "", entry)
}

func (h *FarmHandler) DeleteLabour(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	if err := h.registry.DeleteLabour(c.Request.Context(), id); err != nil {
		fail(c, h.logger, err)
		return
	}
	respond(c, http.StatusOK, "labour entry deleted", nil)
}

// PayLabour marks an entry paid. The id comes from the path or from ?id=.
func (h *FarmHandler) PayLabour(c *gin.Context) {
	raw := c.Param("id")
	if raw == "" {
		raw = c.Query("id")
	}
	if raw == "" {
		badRequest(c, "id is required")
		return
	}
	id, ok := objectID(c, raw)
	if !ok {
		return
	}

	entry, err := h.ledger.MarkLabourPaid(c.Request.Context(), ledger.LabourPayRequest{LabourID: id})
	if err != nil {
		fail(c, h.logger, err)
		return
	}
	respond(c, http.StatusOK, "labour marked paid", entry)
}

func (h *FarmHandler) CreateExpense(c *gin.Context) {
	var req expenseRequest
	if !bind(c, &req) {
		return
	}
	date, err := parseDate(req.Date)
	if err != nil {
		badRequest(c, "date: "+err.Error())
		return
	}

	expense, err := h.registry.CreateExpense(c.Request.Context(), registry.ExpenseInput{
		Title:    req.Title,
		Amount:   req.Amount,
		Category: req.Category,
		Date:     date,
	})
	if err != nil {
		fail(c, h.logger, err)
		return
	}
	respond(c, http.StatusCreated, "expense recorded", expense)
}

// ListExpenses supports ?category=, ?startDate= and ?endDate=.
func (h *FarmHandler) ListExpenses(c *gin.Context) {
	filter := repository.ExpenseFilter{Category: c.Query("category")}

	var ok bool
	if filter.From, ok = dateQuery(c, "startDate"); !ok {
		return
	}
	if filter.To, ok = dateQuery(c, "endDate"); !ok {
		return
	}
	filter.To = endOfDay(filter.To)

	expenses, err := h.registry.ListExpenses(c.Request.Context(), filter)
	if err != nil {
		fail(c, h.logger, err)
		return
	}
	respondList(c, expenses)
}
