package handlers

import (
	"bytes"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/ridhampc123-lang/mango/internal/domain/models"
	"github.com/ridhampc123-lang/mango/internal/service/export"
	"github.com/ridhampc123-lang/mango/internal/service/ledger"
	"github.com/ridhampc123-lang/mango/internal/service/registry"
	"github.com/ridhampc123-lang/mango/internal/service/whatsapp"
)

// FarmerHandler serves farmers, purchases, payments, batches and stock.
type FarmerHandler struct {
	ledger    *ledger.Service
	registry  *registry.Service
	export    *export.Service
	messaging whatsapp.MessagingService
	logger    *zap.Logger
}

// NewFarmerHandler constructs the farmer HTTP adapter.
func NewFarmerHandler(ledgerSvc *ledger.Service, registrySvc *registry.Service, exportSvc *export.Service, messaging whatsapp.MessagingService, logger *zap.Logger) *FarmerHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	if messaging == nil {
		messaging = whatsapp.DisabledService{}
	}
	return &FarmerHandler{
		ledger:    ledgerSvc,
		registry:  registrySvc,
		export:    exportSvc,
		messaging: messaging,
		logger:    logger,
	}
}

type farmerRequest struct {
	Name    string `json:"name" binding:"required"`
	Mobile  string `json:"mobile"`
	Village string `json:"village"`
}

func (r farmerRequest) input() registry.FarmerInput {
	return registry.FarmerInput{Name: r.Name, Mobile: r.Mobile, Village: r.Village}
}

type purchaseRequest struct {
	FarmerID     string  `json:"farmerId" binding:"required"`
	Variety      string  `json:"variety" binding:"required"`
	BoxType      int     `json:"boxType" binding:"required"`
	BoxQuantity  int     `json:"boxQuantity"`
	RatePerBox   float64 `json:"ratePerBox"`
	PaymentGiven float64 `json:"paymentGiven"`
	Date         string  `json:"date"`
}

type paymentRequest struct {
	Amount float64 `json:"amount"`
	Date   string  `json:"date"`
}

type batchRequest struct {
	FarmerID     string  `json:"farmerId" binding:"required"`
	Variety      string  `json:"variety" binding:"required"`
	Box5         int     `json:"box5"`
	Box10        int     `json:"box10"`
	CostPerBox5  float64 `json:"costPerBox5"`
	CostPerBox10 float64 `json:"costPerBox10"`
	ArrivalDate  string  `json:"arrivalDate"`
}

// Create registers a farmer.
func (h *FarmerHandler) Create(c *gin.Context) {
	var req farmerRequest
	if !bind(c, &req) {
		return
	}
	farmer, err := h.registry.CreateFarmer(c.Request.Context(), req.input())
	if err != nil {
		fail(c, h.logger, err)
		return
	}
	respond(c, http.StatusCreated, "farmer created", farmer)
}

// List returns farmers, optionally filtered by ?search=.
func (h *FarmerHandler) List(c *gin.Context) {
	farmers, err := h.registry.ListFarmers(c.Request.Context(), c.Query("search"))
	if err != nil {
		fail(c, h.logger, err)
		return
	}
	respondList(c, farmers)
}

func (h *FarmerHandler) Get(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	farmer, err := h.registry.GetFarmer(c.Request.Context(), id)
	if err != nil {
		fail(c, h.logger, err)
		return
	}
	respond(c, http.StatusOK, "", farmer)
}

// Update edits name, mobile and village. Totals are never touched here.
func (h *FarmerHandler) Update(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var req farmerRequest
	if !bind(c, &req) {
		return
	}
	farmer, err := h.registry.UpdateFarmer(c.Request.Context(), id, req.input())
	if err != nil {
		fail(c, h.logger, err)
		return
	}
	respond(c, http.StatusOK, "farmer updated", farmer)
}

func (h *FarmerHandler) Delete(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	if err := h.registry.DeleteFarmer(c.Request.Context(), id); err != nil {
		fail(c, h.logger, err)
		return
	}
	respond(c, http.StatusOK, "farmer deleted", nil)
}

// Ledger returns the farmer with their purchases, payments and batches.
func (h *FarmerHandler) Ledger(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	statement, err := h.registry.FarmerLedger(c.Request.Context(), id)
	if err != nil {
		fail(c, h.logger, err)
		return
	}
	respond(c, http.StatusOK, "", statement)
}

// Purchase records boxes bought from a farmer.
func (h *FarmerHandler) Purchase(c *gin.Context) {
	var req purchaseRequest
	if !bind(c, &req) {
		return
	}
	farmerID, ok := objectID(c, req.FarmerID)
	if !ok {
		return
	}
	date, err := parseDate(req.Date)
	if err != nil {
		badRequest(c, "date: "+err.Error())
		return
	}

	result, err := h.ledger.RecordFarmerPurchase(c.Request.Context(), ledger.PurchaseRequest{
		FarmerID:     farmerID,
		Variety:      req.Variety,
		BoxType:      models.BoxType(req.BoxType),
		BoxQuantity:  req.BoxQuantity,
		RatePerBox:   req.RatePerBox,
		PaymentGiven: req.PaymentGiven,
		Date:         date,
	})
	if err != nil {
		fail(c, h.logger, err)
		return
	}
	respond(c, http.StatusCreated, "purchase recorded", result)
}

// Payment pays a farmer against their pending balance.
func (h *FarmerHandler) Payment(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var req paymentRequest
	if !bind(c, &req) {
		return
	}
	date, err := parseDate(req.Date)
	if err != nil {
		badRequest(c, "date: "+err.Error())
		return
	}

	result, err := h.ledger.RecordFarmerPayment(c.Request.Context(), ledger.FarmerPaymentRequest{
		FarmerID: id,
		Amount:   req.Amount,
		Date:     date,
	})
	if err != nil {
		fail(c, h.logger, err)
		return
	}
	respond(c, http.StatusCreated, "payment recorded", result)
}

// Remind sends the farmer their statement over WhatsApp.
func (h *FarmerHandler) Remind(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	farmer, err := h.registry.GetFarmer(c.Request.Context(), id)
	if err != nil {
		fail(c, h.logger, err)
		return
	}

	err = h.messaging.SendFarmerStatement(c.Request.Context(), *farmer)
	switch {
	case errors.Is(err, whatsapp.ErrDisabled):
		c.AbortWithStatusJSON(http.StatusServiceUnavailable, envelope{Message: err.Error()})
		return
	case err != nil:
		h.logger.Warn("farmer reminder failed", zap.String("farmer_id", id.Hex()), zap.Error(err))
		c.AbortWithStatusJSON(http.StatusBadGateway, envelope{Message: "unable to send reminder"})
		return
	}
	respond(c, http.StatusAccepted, "reminder sent", nil)
}

// Export streams every farmer as an Excel workbook.
func (h *FarmerHandler) Export(c *gin.Context) {
	var buf bytes.Buffer
	if err := h.export.ExportFarmers(c.Request.Context(), &buf); err != nil {
		fail(c, h.logger, err)
		return
	}
	sendWorkbook(c, "farmers.xlsx", buf.Bytes())
}

// RecordBatch records a mixed 5kg/10kg arrival.
func (h *FarmerHandler) RecordBatch(c *gin.Context) {
	var req batchRequest
	if !bind(c, &req) {
		return
	}
	farmerID, ok := objectID(c, req.FarmerID)
	if !ok {
		return
	}
	arrival, err := parseDate(req.ArrivalDate)
	if err != nil {
		badRequest(c, "arrivalDate: "+err.Error())
		return
	}

	result, err := h.ledger.RecordBatchArrival(c.Request.Context(), ledger.BatchRequest{
		FarmerID:     farmerID,
		Variety:      req.Variety,
		Box5:         req.Box5,
		Box10:        req.Box10,
		CostPerBox5:  req.CostPerBox5,
		CostPerBox10: req.CostPerBox10,
		ArrivalDate:  arrival,
	})
	if err != nil {
		fail(c, h.logger, err)
		return
	}
	respond(c, http.StatusCreated, "batch recorded", result)
}

func (h *FarmerHandler) ListBatches(c *gin.Context) {
	batches, err := h.registry.ListBatches(c.Request.Context())
	if err != nil {
		fail(c, h.logger, err)
		return
	}
	respondList(c, batches)
}

func (h *FarmerHandler) ListStock(c *gin.Context) {
	stocks, err := h.registry.ListVarietyStocks(c.Request.Context())
	if err != nil {
		fail(c, h.logger, err)
		return
	}
	respondList(c, stocks)
}

func (h *FarmerHandler) GetStock(c *gin.Context) {
	stock, err := h.registry.GetVarietyStock(c.Request.Context(), c.Param("variety"))
	if err != nil {
		fail(c, h.logger, err)
		return
	}
	respond(c, http.StatusOK, "", stock)
}
