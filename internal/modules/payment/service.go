package payment

import (
	"context"
	"errors"
	"net/url"
	"time"

	"fieldbooking/internal/domain"
	"fieldbooking/internal/pkg/logger"
	"fieldbooking/internal/repository"

	"go.uber.org/zap"
)

type Service struct {
	store   *repository.Store
	gateway Gateway
	logger  *zap.Logger
	now     func() time.Time
}

func NewService(store *repository.Store, gateway Gateway, log *zap.Logger) *Service {
	return &Service{
		store:   store,
		gateway: gateway,
		logger:  logger.OrNop(log),
		now:     time.Now,
	}
}

// dedupKey identifies a callback. Gateways that omit their own transaction id fall back to our reference.
func dedupKey(cb *domain.GatewayCallback) string {
	if cb.GatewayTxnID != "" {
		return cb.GatewayTxnID
	}
	return "ref:" + cb.TxnRef
}

// HandleWebhook applies a verified gateway callback at most once per gateway transaction id.
// A paid payment is never moved back to failed.
func (s *Service) HandleWebhook(ctx context.Context, query url.Values) (*WebhookResult, error) {
	cb, err := s.gateway.VerifyCallback(query)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidSignature) {
			s.logger.Warn("payment callback rejected", zap.String("reason", "invalid signature"))
			return nil, domain.ForbiddenError{Msg: "invalid payment signature", Err: err}
		}
		return nil, domain.ValidationError{Field: "query", Msg: "malformed payment callback", Err: err}
	}
	if cb.TxnRef == "" {
		return nil, domain.ValidationError{Field: "txn_ref", Msg: "missing transaction reference"}
	}
	key := dedupKey(cb)

	var (
		result    *WebhookResult
		duplicate bool
	)
	err = s.store.TransactionWithRetry(ctx, func(tx *repository.Store) error {
		duplicate = false
		p, err := tx.Payments().GetByTxnRefForUpdate(ctx, cb.TxnRef)
		if err != nil {
			return err
		}
		if cb.Amount != p.Amount {
			return domain.ValidationError{Field: "amount", Msg: "callback amount does not match the payment", Err: domain.ErrAmountMismatch}
		}

		ev, err := tx.Payments().FindEvent(ctx, p.ID, key)
		if err != nil {
			return err
		}
		if ev != nil {
			duplicate = true
			result = resultFromEvent(p, ev)
			return nil
		}

		status := p.Status
		switch {
		case p.Status == domain.PaymentPaid || p.Status == domain.PaymentRefunded:
		case cb.Success:
			status = domain.PaymentPaid
		default:
			status = domain.PaymentFailed
		}

		ev = &domain.PaymentEvent{
			PaymentID:    p.ID,
			GatewayTxnID: key,
			Success:      cb.Success,
			ResultStatus: status,
			Amount:       cb.Amount,
			ResponseCode: cb.ResponseCode,
			RawQuery:     cb.RawQuery,
		}
		if err := tx.Payments().CreateEvent(ctx, ev); err != nil {
			return err
		}

		if status != p.Status {
			var paidAt *time.Time
			if status == domain.PaymentPaid {
				paidAt = cb.PaidAt
				if paidAt == nil {
					now := s.now().UTC()
					paidAt = &now
				}
			}
			if err := tx.Payments().MarkResult(ctx, p.ID, status, cb.GatewayTxnID, paidAt); err != nil {
				return err
			}
			if err := tx.Bookings().SetGroupPaymentStatus(ctx, p.GroupID, status); err != nil {
				return err
			}
		}
		result = resultFromEvent(p, ev)
		return nil
	})

	// A concurrent delivery of the same callback won the insert; answer with what it stored.
	if err != nil && domain.IsConflict(err) {
		return s.storedResult(ctx, cb.TxnRef, key)
	}
	if err != nil {
		s.logger.Warn("payment callback failed",
			zap.String("txn_ref", cb.TxnRef),
			zap.String("gateway_txn_id", cb.GatewayTxnID),
			zap.Error(err),
		)
		return nil, err
	}

	s.logger.Info("payment callback processed",
		zap.Int64("payment_id", result.PaymentID),
		zap.Int64("group_id", result.GroupID),
		zap.String("gateway_txn_id", key),
		zap.String("status", string(result.Status)),
		zap.Bool("duplicate", duplicate),
	)
	return result, nil
}

func (s *Service) storedResult(ctx context.Context, txnRef, key string) (*WebhookResult, error) {
	p, err := s.store.Payments().GetByTxnRef(ctx, txnRef)
	if err != nil {
		return nil, err
	}
	ev, err := s.store.Payments().FindEvent(ctx, p.ID, key)
	if err != nil {
		return nil, err
	}
	if ev == nil {
		return nil, domain.InternalError{Msg: "payment event missing after conflict"}
	}
	return resultFromEvent(p, ev), nil
}

func resultFromEvent(p *domain.Payment, ev *domain.PaymentEvent) *WebhookResult {
	return &WebhookResult{
		PaymentID: p.ID,
		GroupID:   p.GroupID,
		TxnRef:    p.TxnRef,
		Success:   ev.Success,
		Status:    ev.ResultStatus,
	}
}
