package whatsapp

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/mamadbah2/tally/internal/config"
	"github.com/mamadbah2/tally/internal/domain/models"
	"github.com/mamadbah2/tally/internal/service/ledger"
	client "github.com/mamadbah2/tally/pkg/clients/whatsapp"
)

const sendTimeout = 10 * time.Second

// ErrNoRecipient indicates a notification with nowhere to go.
var ErrNoRecipient = errors.New("no report recipient configured")

// MessagingService describes the operations the HTTP layer can perform.
type MessagingService interface {
	VerifyWebhookToken(mode, verifyToken, challenge string) (string, error)
	HandleWebhook(ctx context.Context, payload models.WebhookPayload) error
	SendOutbound(ctx context.Context, req models.OutboundMessageRequest) error
}

// Recorder turns an inventory message into a stored batch.
type Recorder interface {
	Record(ctx context.Context, source, text string) (models.InventoryBatch, error)
}

// MetaWhatsAppService is the production implementation backed by WhatsApp Cloud API.
type MetaWhatsAppService struct {
	cfg      config.WhatsAppConfig
	client   client.Client
	recorder Recorder
	sessions *SessionManager
	logger   *zap.Logger
}

// NewMetaWhatsAppService wires a new service instance.
func NewMetaWhatsAppService(cfg config.WhatsAppConfig, client client.Client, recorder Recorder, logger *zap.Logger) *MetaWhatsAppService {
	svc := &MetaWhatsAppService{
		cfg:      cfg,
		client:   client,
		recorder: recorder,
		sessions: NewSessionManager(),
		logger:   logger,
	}
	if svc.logger == nil {
		svc.logger = zap.NewNop()
	}
	return svc
}

// VerifyWebhookToken validates the callback verification token.
func (s *MetaWhatsAppService) VerifyWebhookToken(mode, verifyToken, challenge string) (string, error) {
	if mode == "" || verifyToken == "" {
		return "", errors.New("missing mode or verify token")
	}

	if !strings.EqualFold(mode, "subscribe") {
		return "", fmt.Errorf("unsupported hub.mode %s", mode)
	}

	if verifyToken != s.cfg.VerifyToken {
		return "", errors.New("invalid verify token")
	}

	return challenge, nil
}

// HandleWebhook records every text message in the payload as an inventory
// list and answers the sender with what was understood.
func (s *MetaWhatsAppService) HandleWebhook(ctx context.Context, payload models.WebhookPayload) error {
	var firstErr error

	for _, entry := range payload.Entry {
		for _, change := range entry.Changes {
			for _, werr := range change.Value.Errors {
				s.logger.Warn("webhook reported error", zap.Int("code", werr.Code), zap.String("title", werr.Title), zap.String("message", werr.Message))
			}
			for _, st := range change.Value.Statuses {
				s.logger.Debug("delivery status", zap.String("message_id", st.ID), zap.String("status", st.Status))
			}
			for _, msg := range change.Value.Messages {
				if err := s.handleInboundMessage(ctx, msg); err != nil {
					s.logger.Error("failed to handle inbound message", zap.Error(err), zap.String("message_id", msg.ID))
					if firstErr == nil {
						firstErr = err
					}
				}
			}
		}
	}

	return firstErr
}

func (s *MetaWhatsAppService) handleInboundMessage(ctx context.Context, msg models.InboundMessage) error {
	text := extractMessageText(msg)
	if strings.TrimSpace(text) == "" {
		s.logger.Debug("ignoring message without text", zap.String("type", msg.Type), zap.String("message_id", msg.ID))
		return nil
	}
	if !s.sessions.Claim(msg.From, msg.ID) {
		s.logger.Info("duplicate delivery ignored", zap.String("message_id", msg.ID))
		return nil
	}

	batch, recordErr := s.recorder.Record(ctx, "whatsapp:"+msg.From, text)
	if recordErr != nil && batch.ID == "" {
		return recordErr
	}

	s.logger.Info("inventory message recorded",
		zap.String("from", msg.From),
		zap.String("batch_id", batch.ID),
		zap.Int("records", len(batch.Records)))

	if err := s.send(ctx, msg.From, ledger.Reply(batch), false); err != nil {
		return errors.Join(recordErr, err)
	}
	return recordErr
}

// SendOutbound lets internal operators push quick notifications via HTTP.
func (s *MetaWhatsAppService) SendOutbound(ctx context.Context, req models.OutboundMessageRequest) error {
	return s.send(ctx, req.To, req.Message, req.PreviewURL)
}

// Notify sends message to the configured report recipient.
func (s *MetaWhatsAppService) Notify(ctx context.Context, message string) error {
	if s.cfg.ReportRecipient == "" {
		return ErrNoRecipient
	}
	return s.send(ctx, s.cfg.ReportRecipient, message, false)
}

func (s *MetaWhatsAppService) send(ctx context.Context, to, body string, preview bool) error {
	ctxWithTimeout, cancel := context.WithTimeout(ctx, sendTimeout)
	defer cancel()

	_, err := s.client.SendTextMessage(ctxWithTimeout, client.SendTextMessageRequest{
		To:         to,
		Body:       body,
		PreviewURL: preview,
	})
	return err
}

func extractMessageText(msg models.InboundMessage) string {
	if msg.Text != nil {
		return msg.Text.Body
	}
	if msg.Document != nil && msg.Document.Caption != "" {
		return msg.Document.Caption
	}
	return ""
}
