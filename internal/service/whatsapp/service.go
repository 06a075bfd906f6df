package whatsapp

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/ridhampc123-lang/mango/internal/config"
	"github.com/ridhampc123-lang/mango/internal/domain/models"
	client "github.com/ridhampc123-lang/mango/pkg/clients/whatsapp"
)

// ErrDisabled is returned when no WhatsApp credentials are configured.
var ErrDisabled = errors.New("whatsapp messaging is not configured")

// MessagingService describes the outbound notifications the application sends.
type MessagingService interface {
	SendOutbound(ctx context.Context, req models.OutboundMessageRequest) error
	SendFarmerStatement(ctx context.Context, farmer models.Farmer) error
}

// MetaWhatsAppService is the production implementation backed by WhatsApp Cloud API.
type MetaWhatsAppService struct {
	cfg    config.WhatsAppConfig
	client client.Client
	logger *zap.Logger
}

// NewMetaWhatsAppService wires a new service instance.
func NewMetaWhatsAppService(cfg config.WhatsAppConfig, client client.Client, logger *zap.Logger) *MetaWhatsAppService {
	svc := &MetaWhatsAppService{
		cfg:    cfg,
		client: client,
		logger: logger,
	}
	if svc.logger == nil {
		svc.logger = zap.NewNop()
	}
	return svc
}

// SendOutbound pushes a plain text message.
func (s *MetaWhatsAppService) SendOutbound(ctx context.Context, req models.OutboundMessageRequest) error {
	to := normalizeNumber(req.To)
	if to == "" {
		return errors.New("recipient number is required")
	}

	ctxWithTimeout, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	resp, err := s.client.SendTextMessage(ctxWithTimeout, client.SendTextMessageRequest{
		To:         to,
		Body:       req.Message,
		PreviewURL: req.PreviewURL,
	})
	if err != nil {
		return err
	}

	if len(resp.Messages) > 0 {
		s.logger.Info("whatsapp message sent", zap.String("to", to), zap.String("message_id", resp.Messages[0].ID))
	}
	return nil
}

// SendFarmerStatement sends a farmer their running account with the business.
func (s *MetaWhatsAppService) SendFarmerStatement(ctx context.Context, farmer models.Farmer) error {
	if strings.TrimSpace(farmer.Mobile) == "" {
		return fmt.Errorf("farmer %s has no mobile number", farmer.ID.Hex())
	}
	return s.SendOutbound(ctx, models.OutboundMessageRequest{
		To:      s.withCountryCode(farmer.Mobile),
		Message: FarmerStatement(farmer),
	})
}

// FarmerStatement renders the statement text for a farmer.
func FarmerStatement(f models.Farmer) string {
	return fmt.Sprintf(
		"Namaste %s,\nMango account statement\nBoxes supplied: %d x 5kg, %d x 10kg\nTotal purchase: %.2f\nPaid so far: %.2f\nPending payment: %.2f",
		f.Name, f.TotalBoxes5, f.TotalBoxes10, f.TotalPurchaseAmount, f.TotalPaymentGiven, f.PendingPayment,
	)
}

func (s *MetaWhatsAppService) withCountryCode(mobile string) string {
	number := normalizeNumber(mobile)
	if len(number) == 10 && s.cfg.DefaultCountryCode != "" {
		return s.cfg.DefaultCountryCode + number
	}
	return number
}

func normalizeNumber(number string) string {
	var b strings.Builder
	for _, r := range number {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// DisabledService satisfies MessagingService when WhatsApp is not configured.
type DisabledService struct{}

func (DisabledService) SendOutbound(context.Context, models.OutboundMessageRequest) error {
	return ErrDisabled
}

func (DisabledService) SendFarmerStatement(context.Context, models.Farmer) error {
	return ErrDisabled
}
