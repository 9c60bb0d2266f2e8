package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"go-event-ticketing/internal/gateway"
	"go-event-ticketing/internal/ledger"
	"go-event-ticketing/internal/model"
	"go-event-ticketing/internal/repository"
	"go-event-ticketing/monitoring"
	apperrors "go-event-ticketing/pkg/app_errors"
	"go-event-ticketing/pkg/logger"
)

const (
	transitionRetries = 3
	transitionBackoff = 20 * time.Millisecond
)

// PaymentSession 回傳給買家的付款入口
type PaymentSession struct {
	Ticket      *model.Ticket `json:"ticket"`
	Token       string        `json:"token"`
	RedirectURL string        `json:"redirect_url"`
}

// PaymentService 是內部狀態與金流閘道之間的 reconciler：
// orderId 是雙方共用的冪等鍵，所有票券狀態轉換都經過這裡。
type PaymentService interface {
	// InitiatePayment 取得閘道 token 並把預約轉換成 pending 票券。
	// 閘道呼叫失敗時預約保持 active，買家可直接重試。
	InitiatePayment(ctx context.Context, reservationID, buyerID uuid.UUID, details model.BuyerDetails) (*PaymentSession, error)
	// HandleCallback 將閘道 webhook 映射為票券狀態轉換。可安全地以
	// 相同 orderId 重複呼叫。
	HandleCallback(ctx context.Context, payload gateway.CallbackPayload) error
	// CancelTicket 退票：pending 釋放 held 席次，paid 釋放 confirmed 席次。
	CancelTicket(ctx context.Context, ticketID, buyerID uuid.UUID, isAdmin bool) error

	GetTicket(ctx context.Context, id uuid.UUID) (*model.Ticket, error)
	ListTicketsByBuyer(ctx context.Context, buyerID uuid.UUID) ([]*model.Ticket, error)
}

type PaymentServiceImpl struct {
	reservationSvc ReservationService
	reservations   repository.ReservationRepository
	events         repository.EventRepository
	tickets        repository.TicketRepository
	inventory      ledger.InventoryLedger
	gateway        gateway.Client
	serverKey      string
	log            *zap.Logger
}

func NewPaymentService(
	reservationSvc ReservationService,
	reservations repository.ReservationRepository,
	events repository.EventRepository,
	tickets repository.TicketRepository,
	inventory ledger.InventoryLedger,
	gatewayClient gateway.Client,
	serverKey string,
) PaymentService {
	return &PaymentServiceImpl{
		reservationSvc: reservationSvc,
		reservations:   reservations,
		events:         events,
		tickets:        tickets,
		inventory:      inventory,
		gateway:        gatewayClient,
		serverKey:      serverKey,
		log:            logger.WithComponent("payment"),
	}
}

func (s *PaymentServiceImpl) InitiatePayment(ctx context.Context, reservationID, buyerID uuid.UUID, details model.BuyerDetails) (*PaymentSession, error) {
	details.Normalize()
	if err := details.Validate(); err != nil {
		return nil, err
	}

	reservation, err := s.reservations.FindByID(ctx, reservationID)
	if err != nil {
		return nil, err
	}
	if reservation.BuyerID != buyerID {
		return nil, apperrors.ErrForbidden
	}
	if reservation.Status != model.ReservationStatusActive || reservation.Expired(time.Now().UTC()) {
		return nil, apperrors.ErrReservationNotActive
	}

	event, err := s.events.FindByID(ctx, reservation.EventID)
	if err != nil {
		return nil, err
	}

	orderID := "ORD-" + uuid.New().String()
	grossAmount := event.Price * int64(reservation.Quantity)

	start := time.Now()
	resp, err := s.gateway.CreateTransaction(ctx, gateway.CreateTransactionRequest{
		OrderID:     orderID,
		GrossAmount: grossAmount,
		Customer:    details,
		Items: []gateway.TransactionItem{{
			ID:       event.ID.String(),
			Name:     event.Name,
			Price:    event.Price,
			Quantity: reservation.Quantity,
		}},
	})
	monitoring.ObserveGatewayLatency(time.Since(start))
	if err != nil {
		// 預約保持 active，買家不會因為閘道抖動而失去持有
		return nil, err
	}

	ticket, err := s.reservationSvc.Convert(ctx, reservationID, event.Price, orderID, resp.Token)
	if err != nil {
		return nil, err
	}

	return &PaymentSession{
		Ticket:      ticket,
		Token:       resp.Token,
		RedirectURL: resp.RedirectURL,
	}, nil
}

func (s *PaymentServiceImpl) HandleCallback(ctx context.Context, payload gateway.CallbackPayload) error {
	if !payload.VerifySignature(s.serverKey) {
		s.log.Warn("callback signature mismatch", zap.String("order_id", payload.OrderID))
		return apperrors.ErrForbidden
	}

	outcome := payload.Outcome()
	monitoring.TrackCallback(string(outcome))
	log := s.log.With(
		zap.String("order_id", payload.OrderID),
		zap.String("transaction_status", payload.TransactionStatus),
		zap.String("fraud_status", payload.FraudStatus))

	ticket, err := s.tickets.FindByOrderID(ctx, payload.OrderID)
	if err != nil {
		if errors.Is(err, apperrors.ErrTicketNotFound) {
			// 可能是偽造或重放到錯環境的 callback，記錄後 ack
			log.Warn("callback for unknown order")
			return nil
		}
		return err
	}

	amount, err := payload.GrossAmountValue()
	if err != nil || amount != ticket.TotalPrice {
		log.Error("callback amount mismatch",
			zap.String("gross_amount", payload.GrossAmount),
			zap.Int64("expected", ticket.TotalPrice))
		return nil
	}

	switch outcome {
	case gateway.OutcomeSettled:
		return s.applyTransition(ctx, ticket, model.TicketStatePaid)
	case gateway.OutcomePending:
		// 已經持有席次，不需要任何 ledger 變更
		return nil
	case gateway.OutcomeFailed:
		return s.applyTransition(ctx, ticket, model.TicketStateFailed)
	case gateway.OutcomeCancelled:
		return s.applyTransition(ctx, ticket, model.TicketStateCancelled)
	default:
		// fail-safe：無法辨識的狀態絕不默默確認
		log.Error("unrecognized callback status")
		return nil
	}
}

// applyTransition moves a ticket along the lifecycle with a version CAS and
// performs the ledger side effect exactly once, on the winning write.
// Duplicate deliveries land on the no-op branch. Callbacks may only move a
// ticket out of pending: a late cancel/expire/deny on an already settled
// ticket is an out-of-order delivery, logged as an anomaly and acked but
// never applied (paid -> cancelled 只能走 CancelTicket 的退票路徑,
// 那裡釋放的是 confirmed 而不是 held 席次).
func (s *PaymentServiceImpl) applyTransition(ctx context.Context, ticket *model.Ticket, to model.TicketState) error {
	for attempt := 0; attempt < transitionRetries; attempt++ {
		if ticket.State == to {
			return nil
		}
		if ticket.State != model.TicketStatePending || !ticket.State.CanTransitionTo(to) {
			s.log.Error("out-of-order transition requested by callback",
				zap.String("ticket_id", ticket.ID.String()),
				zap.String("order_id", ticket.OrderID),
				zap.String("from", string(ticket.State)),
				zap.String("to", string(to)))
			return nil
		}

		updated, err := s.tickets.UpdateState(ctx, ticket.ID, ticket.State, to, ticket.Version, nil)
		if err != nil {
			if errors.Is(err, apperrors.ErrConflict) {
				time.Sleep(transitionBackoff * time.Duration(attempt+1))
				ticket, err = s.tickets.FindByID(ctx, ticket.ID)
				if err != nil {
					return err
				}
				continue
			}
			return err
		}

		return s.settleLedger(ctx, updated, to)
	}
	return fmt.Errorf("ticket %s transition to %s: %w", ticket.ID, to, apperrors.ErrConflict)
}

func (s *PaymentServiceImpl) settleLedger(ctx context.Context, ticket *model.Ticket, to model.TicketState) error {
	switch to {
	case model.TicketStatePaid:
		return s.inventory.ConfirmHold(ctx, ticket.EventID, ticket.Quantity)
	case model.TicketStateFailed, model.TicketStateCancelled:
		return s.inventory.ReleaseHold(ctx, ticket.EventID, ticket.Quantity)
	}
	return nil
}

func (s *PaymentServiceImpl) CancelTicket(ctx context.Context, ticketID, buyerID uuid.UUID, isAdmin bool) error {
	ticket, err := s.tickets.FindByID(ctx, ticketID)
	if err != nil {
		return err
	}
	if !isAdmin && ticket.BuyerID != buyerID {
		return apperrors.ErrForbidden
	}

	for attempt := 0; attempt < transitionRetries; attempt++ {
		switch ticket.State {
		case model.TicketStateCancelled:
			return nil
		case model.TicketStatePending, model.TicketStatePaid:
		default:
			return apperrors.ErrIllegalTransition
		}
		wasPaid := ticket.State == model.TicketStatePaid

		updated, err := s.tickets.UpdateState(ctx, ticket.ID, ticket.State, model.TicketStateCancelled, ticket.Version, nil)
		if err != nil {
			if errors.Is(err, apperrors.ErrConflict) {
				time.Sleep(transitionBackoff * time.Duration(attempt+1))
				ticket, err = s.tickets.FindByID(ctx, ticket.ID)
				if err != nil {
					return err
				}
				continue
			}
			return err
		}

		if wasPaid {
			return s.inventory.ReleaseConfirmed(ctx, updated.EventID, updated.Quantity)
		}
		return s.inventory.ReleaseHold(ctx, updated.EventID, updated.Quantity)
	}
	return apperrors.ErrConflict
}

func (s *PaymentServiceImpl) GetTicket(ctx context.Context, id uuid.UUID) (*model.Ticket, error) {
	return s.tickets.FindByID(ctx, id)
}

func (s *PaymentServiceImpl) ListTicketsByBuyer(ctx context.Context, buyerID uuid.UUID) ([]*model.Ticket, error) {
	return s.tickets.FindByBuyerID(ctx, buyerID)
}
