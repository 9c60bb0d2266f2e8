package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"go-event-ticketing/internal/model"
	"go-event-ticketing/internal/repository"
	"go-event-ticketing/monitoring"
	apperrors "go-event-ticketing/pkg/app_errors"
	"go-event-ticketing/pkg/logger"
)

// CheckInResult 入場掃描結果
type CheckInResult string

const (
	CheckInAccepted      CheckInResult = "accepted"
	CheckInAlreadyUsed   CheckInResult = "already_used"
	CheckInWrongEvent    CheckInResult = "wrong_event"
	CheckInOutsideWindow CheckInResult = "outside_window"
	CheckInNotPaid       CheckInResult = "not_paid"
	CheckInNotFound      CheckInResult = "not_found"
)

type CheckInOutcome struct {
	Result CheckInResult `json:"result"`
	Ticket *model.Ticket `json:"ticket,omitempty"`
}

// CheckInService 消費掃描到的票券並原子性標記已使用。同一張票掃兩次
// 恰好得到一個 accepted，其餘都是 already_used。
type CheckInService interface {
	CheckIn(ctx context.Context, ticketID, eventID uuid.UUID, now time.Time) (*CheckInOutcome, error)
}

type CheckInServiceImpl struct {
	tickets  repository.TicketRepository
	events   repository.EventRepository
	leadTime time.Duration
	log      *zap.Logger
}

func NewCheckInService(
	tickets repository.TicketRepository,
	events repository.EventRepository,
	leadTime time.Duration,
) CheckInService {
	return &CheckInServiceImpl{
		tickets:  tickets,
		events:   events,
		leadTime: leadTime,
		log:      logger.WithComponent("checkin"),
	}
}

func (s *CheckInServiceImpl) CheckIn(ctx context.Context, ticketID, eventID uuid.UUID, now time.Time) (*CheckInOutcome, error) {
	ticket, err := s.tickets.FindByID(ctx, ticketID)
	if err != nil {
		if errors.Is(err, apperrors.ErrTicketNotFound) {
			return s.outcome(CheckInNotFound, nil), nil
		}
		return nil, err
	}

	if ticket.EventID != eventID {
		return s.outcome(CheckInWrongEvent, nil), nil
	}

	for attempt := 0; attempt < transitionRetries; attempt++ {
		switch ticket.State {
		case model.TicketStateCheckedIn:
			return s.outcome(CheckInAlreadyUsed, ticket), nil
		case model.TicketStatePaid:
		default:
			return s.outcome(CheckInNotPaid, ticket), nil
		}

		event, err := s.events.FindByID(ctx, ticket.EventID)
		if err != nil {
			return nil, err
		}
		// 完整時間戳比較，不是日曆日期：跨日活動同樣適用
		opensAt, closesAt := event.CheckInWindow(s.leadTime)
		if now.Before(opensAt) || now.After(closesAt) {
			return s.outcome(CheckInOutsideWindow, ticket), nil
		}

		scanTime := now.UTC()
		updated, err := s.tickets.UpdateState(ctx, ticket.ID,
			model.TicketStatePaid, model.TicketStateCheckedIn, ticket.Version, &scanTime)
		if err != nil {
			if errors.Is(err, apperrors.ErrConflict) {
				// 同一張票的另一台掃描器贏了這次 CAS，重讀後判定
				ticket, err = s.tickets.FindByID(ctx, ticket.ID)
				if err != nil {
					return nil, err
				}
				continue
			}
			return nil, err
		}

		return s.outcome(CheckInAccepted, updated), nil
	}

	return nil, apperrors.ErrConflict
}

func (s *CheckInServiceImpl) outcome(result CheckInResult, ticket *model.Ticket) *CheckInOutcome {
	monitoring.TrackCheckIn(string(result))
	if result != CheckInAccepted && result != CheckInAlreadyUsed {
		s.log.Warn("check-in rejected", zap.String("result", string(result)))
	}
	return &CheckInOutcome{Result: result, Ticket: ticket}
}
