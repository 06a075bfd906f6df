package handlers

import (
	"bytes"
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/ridhampc123-lang/mango/internal/service/export"
	"github.com/ridhampc123-lang/mango/internal/service/ledger"
	"github.com/ridhampc123-lang/mango/internal/service/registry"
)

// CustomerHandler serves customers and their credit/payment log.
type CustomerHandler struct {
	ledger   *ledger.Service
	registry *registry.Service
	export   *export.Service
	logger   *zap.Logger
}

// NewCustomerHandler constructs the customer HTTP adapter.
func NewCustomerHandler(ledgerSvc *ledger.Service, registrySvc *registry.Service, exportSvc *export.Service, logger *zap.Logger) *CustomerHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CustomerHandler{ledger: ledgerSvc, registry: registrySvc, export: exportSvc, logger: logger}
}

type customerRequest struct {
	Name    string `json:"name" binding:"required"`
	Mobile  string `json:"mobile" binding:"required"`
	Address string `json:"address"`
	City    string `json:"city"`
	State   string `json:"state"`
	Pincode string `json:"pincode"`
}

func (r customerRequest) input() registry.CustomerInput {
	return registry.CustomerInput{
		Name:    r.Name,
		Mobile:  r.Mobile,
		Address: r.Address,
		City:    r.City,
		State:   r.State,
		Pincode: r.Pincode,
	}
}

type entryRequest struct {
	Amount      float64 `json:"amount"`
	Description string  `json:"description"`
}

func (h *CustomerHandler) Create(c *gin.Context) {
	var req customerRequest
	if !bind(c, &req) {
		return
	}
	customer, err := h.registry.CreateCustomer(c.Request.Context(), req.input())
	if err != nil {
		fail(c, h.logger, err)
		return
	}
	respond(c, http.StatusCreated, "customer created", customer)
}

func (h *CustomerHandler) List(c *gin.Context) {
	customers, err := h.registry.ListCustomers(c.Request.Context(), c.Query("search"))
	if err != nil {
		fail(c, h.logger, err)
		return
	}
	respondList(c, customers)
}

func (h *CustomerHandler) Get(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	customer, err := h.registry.GetCustomer(c.Request.Context(), id)
	if err != nil {
		fail(c, h.logger, err)
		return
	}
	respond(c, http.StatusOK, "", customer)
}

func (h *CustomerHandler) GetByMobile(c *gin.Context) {
	customer, err := h.registry.GetCustomerByMobile(c.Request.Context(), c.Param("mobile"))
	if err != nil {
		fail(c, h.logger, err)
		return
	}
	respond(c, http.StatusOK, "", customer)
}

// Update edits identity fields only; balances move through credit and payment.
func (h *CustomerHandler) Update(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var req customerRequest
	if !bind(c, &req) {
		return
	}
	customer, err := h.registry.UpdateCustomer(c.Request.Context(), id, req.input())
	if err != nil {
		fail(c, h.logger, err)
		return
	}
	respond(c, http.StatusOK, "customer updated", customer)
}

func (h *CustomerHandler) Delete(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	if err := h.registry.DeleteCustomer(c.Request.Context(), id); err != nil {
		fail(c, h.logger, err)
		return
	}
	respond(c, http.StatusOK, "customer deleted", nil)
}

// PendingBalance lists customers who owe money and the total owed.
func (h *CustomerHandler) PendingBalance(c *gin.Context) {
	pending, err := h.registry.PendingBalances(c.Request.Context())
	if err != nil {
		fail(c, h.logger, err)
		return
	}
	respond(c, http.StatusOK, "", pending)
}

func (h *CustomerHandler) Credit(c *gin.Context) {
	h.entry(c, "credit recorded", h.ledger.RecordCustomerCredit)
}

func (h *CustomerHandler) Payment(c *gin.Context) {
	h.entry(c, "payment recorded", h.ledger.RecordCustomerPayment)
}

func (h *CustomerHandler) entry(c *gin.Context, message string, record func(context.Context, ledger.CustomerEntryRequest) (*ledger.CustomerResult, error)) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var req entryRequest
	if !bind(c, &req) {
		return
	}
	result, err := record(c.Request.Context(), ledger.CustomerEntryRequest{
		CustomerID:  id,
		Amount:      req.Amount,
		Description: req.Description,
	})
	if err != nil {
		fail(c, h.logger, err)
		return
	}
	respond(c, http.StatusCreated, message, result)
}

func (h *CustomerHandler) Transactions(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	txs, err := h.registry.CustomerTransactions(c.Request.Context(), id)
	if err != nil {
		fail(c, h.logger, err)
		return
	}
	respondList(c, txs)
}

func (h *CustomerHandler) Export(c *gin.Context) {
	var buf bytes.Buffer
	if err := h.export.ExportCustomers(c.Request.Context(), &buf); err != nil {
		fail(c, h.logger, err)
		return
	}
	sendWorkbook(c, "customers.xlsx", buf.Bytes())
}
