package handlers

import (
	"bytes"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/ridhampc123-lang/mango/internal/domain/models"
	"github.com/ridhampc123-lang/mango/internal/repository"
	"github.com/ridhampc123-lang/mango/internal/service/export"
	"github.com/ridhampc123-lang/mango/internal/service/registry"
)

// OrderHandler serves customer orders and their invoices.
type OrderHandler struct {
	registry *registry.Service
	export   *export.Service
	logger   *zap.Logger
}

// NewOrderHandler constructs the order HTTP adapter.
func NewOrderHandler(registrySvc *registry.Service, exportSvc *export.Service, logger *zap.Logger) *OrderHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &OrderHandler{registry: registrySvc, export: exportSvc, logger: logger}
}

type orderRequest struct {
	CustomerName   string  `json:"customerName" binding:"required"`
	CustomerMobile string  `json:"customerMobile" binding:"required"`
	Address        string  `json:"address" binding:"required"`
	BoxType        int     `json:"boxType"`
	BoxPrice       float64 `json:"boxPrice"`
	BoxQuantity    int     `json:"boxQuantity"`
	PaymentStatus  string  `json:"paymentStatus"`
	Date           string  `json:"date"`
}

type orderUpdateRequest struct {
	CustomerMobile *string  `json:"customerMobile"`
	Address        *string  `json:"address"`
	BoxType        *int     `json:"boxType"`
	BoxPrice       *float64 `json:"boxPrice"`
	BoxQuantity    *int     `json:"boxQuantity"`
	PaymentStatus  *string  `json:"paymentStatus"`
}

type paymentStatusRequest struct {
	PaymentStatus string `json:"paymentStatus" binding:"required"`
}

func (h *OrderHandler) Create(c *gin.Context) {
	var req orderRequest
	if !bind(c, &req) {
		return
	}
	date, err := parseDate(req.Date)
	if err != nil {
		badRequest(c, "date: "+err.Error())
		return
	}

	order, err := h.registry.CreateOrder(c.Request.Context(), registry.OrderInput{
		CustomerName:   req.CustomerName,
		CustomerMobile: req.CustomerMobile,
		Address:        req.Address,
		BoxType:        req.BoxType,
		BoxPrice:       req.BoxPrice,
		BoxQuantity:    req.BoxQuantity,
		PaymentStatus:  req.PaymentStatus,
		Date:           date,
	})
	if err != nil {
		fail(c, h.logger, err)
		return
	}
	respond(c, http.StatusCreated, "order created", order)
}

// orderFilter reads ?search=, ?paymentStatus= (All means any), ?startDate= and ?endDate=.
func orderFilter(c *gin.Context) (repository.OrderFilter, bool) {
	filter := repository.OrderFilter{Search: c.Query("search")}

	if raw := strings.TrimSpace(c.Query("paymentStatus")); raw != "" && !strings.EqualFold(raw, "all") {
		status, err := models.ParsePaymentStatus(raw)
		if err != nil {
			badRequest(c, err.Error())
			return filter, false
		}
		filter.PaymentStatus = status
	}

	var ok bool
	if filter.From, ok = dateQuery(c, "startDate"); !ok {
		return filter, false
	}
	if filter.To, ok = dateQuery(c, "endDate"); !ok {
		return filter, false
	}
	filter.To = endOfDay(filter.To)
	return filter, true
}

func (h *OrderHandler) List(c *gin.Context) {
	filter, ok := orderFilter(c)
	if !ok {
		return
	}
	orders, err := h.registry.ListOrders(c.Request.Context(), filter)
	if err != nil {
		fail(c, h.logger, err)
		return
	}
	respondList(c, orders)
}

func (h *OrderHandler) Get(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	order, err := h.registry.GetOrder(c.Request.Context(), id)
	if err != nil {
		fail(c, h.logger, err)
		return
	}
	respond(c, http.StatusOK, "", order)
}

func (h *OrderHandler) Update(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var req orderUpdateRequest
	if !bind(c, &req) {
		return
	}

	order, err := h.registry.UpdateOrder(c.Request.Context(), id, registry.OrderUpdate{
		CustomerMobile: req.CustomerMobile,
		Address:        req.Address,
		BoxType:        req.BoxType,
		BoxPrice:       req.BoxPrice,
		BoxQuantity:    req.BoxQuantity,
		PaymentStatus:  req.PaymentStatus,
	})
	if err != nil {
		fail(c, h.logger, err)
		return
	}
	respond(c, http.StatusOK, "order updated", order)
}

func (h *OrderHandler) SetPaymentStatus(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var req paymentStatusRequest
	if !bind(c, &req) {
		return
	}

	order, err := h.registry.SetOrderPaymentStatus(c.Request.Context(), id, req.PaymentStatus)
	if err != nil {
		fail(c, h.logger, err)
		return
	}
	respond(c, http.StatusOK, "payment status updated", order)
}

func (h *OrderHandler) Delete(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	if err := h.registry.DeleteOrder(c.Request.Context(), id); err != nil {
		fail(c, h.logger, err)
		return
	}
	respond(c, http.StatusOK, "order deleted", nil)
}

// Export accepts the same filters as List.
func (h *OrderHandler) Export(c *gin.Context) {
	filter, ok := orderFilter(c)
	if !ok {
		return
	}
	var buf bytes.Buffer
	if err := h.export.ExportOrders(c.Request.Context(), filter, &buf); err != nil {
		fail(c, h.logger, err)
		return
	}
	sendWorkbook(c, "orders.xlsx", buf.Bytes())
}
