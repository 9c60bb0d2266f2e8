package service_test

import (
	"context"
	"crypto/sha512"
	"encoding/hex"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"go-event-ticketing/internal/gateway"
	"go-event-ticketing/internal/ledger"
	"go-event-ticketing/internal/model"
	"go-event-ticketing/internal/service"
)

const (
	testServerKey = "test-server-key"
	testTTL       = 15 * time.Minute
	testMaxOrder  = 10
	testLeadTime  = 2 * time.Hour
)

type testEnv struct {
	events       *fakeEventRepo
	reservations *fakeReservationRepo
	tickets      *fakeTicketRepo
	inventory    ledger.InventoryLedger
	gateway      *fakeGateway

	reservationSvc service.ReservationService
	paymentSvc     service.PaymentService
	checkInSvc     service.CheckInService
}

func newTestEnv() *testEnv {
	env := &testEnv{
		events:       newFakeEventRepo(),
		reservations: newFakeReservationRepo(),
		tickets:      newFakeTicketRepo(),
		gateway:      &fakeGateway{},
	}
	env.inventory = ledger.NewInventoryLedger(env.events, nil)
	env.reservationSvc = service.NewReservationService(
		env.reservations, env.tickets, env.inventory, nil, testTTL, testMaxOrder)
	env.paymentSvc = service.NewPaymentService(
		env.reservationSvc, env.reservations, env.events, env.tickets,
		env.inventory, env.gateway, testServerKey)
	env.checkInSvc = service.NewCheckInService(env.tickets, env.events, testLeadTime)
	return env
}

// seedEvent 建立一個正在售票中的活動(現在落在入場視窗內)
func (env *testEnv) seedEvent(t *testing.T, capacity int, price int64) *model.Event {
	t.Helper()
	now := time.Now().UTC()
	event, err := model.NewEvent("Concert", "music", capacity, price,
		now.Add(-time.Hour), now.Add(4*time.Hour))
	require.NoError(t, err)
	created, err := env.events.Create(context.Background(), event)
	require.NoError(t, err)
	return created
}

// seedPaidTicket 走完整流程:預約、付款、結算,回傳 paid 票券
func (env *testEnv) seedPaidTicket(t *testing.T, event *model.Event, buyerID uuid.UUID, quantity int) *model.Ticket {
	t.Helper()
	ctx := context.Background()

	reservation, err := env.reservationSvc.CreateReservation(ctx, event.ID, buyerID, quantity)
	require.NoError(t, err)

	session, err := env.paymentSvc.InitiatePayment(ctx, reservation.ID, buyerID, validBuyer())
	require.NoError(t, err)

	require.NoError(t, env.paymentSvc.HandleCallback(ctx,
		signedCallback(session.Ticket, "settlement", "")))

	ticket, err := env.tickets.FindByID(ctx, session.Ticket.ID)
	require.NoError(t, err)
	require.Equal(t, model.TicketStatePaid, ticket.State)
	return ticket
}

func validBuyer() model.BuyerDetails {
	return model.BuyerDetails{
		Name:  "Chen Wei",
		Email: "chen@example.com",
		Phone: "+886912345678",
	}
}

// signedCallback 產生簽章正確的閘道 webhook payload
func signedCallback(ticket *model.Ticket, status, fraud string) gateway.CallbackPayload {
	payload := gateway.CallbackPayload{
		OrderID:           ticket.OrderID,
		TransactionStatus: status,
		FraudStatus:       fraud,
		StatusCode:        "200",
		GrossAmount:       fmt.Sprintf("%d.00", ticket.TotalPrice),
	}
	sum := sha512.Sum512([]byte(payload.OrderID + payload.StatusCode + payload.GrossAmount + testServerKey))
	payload.SignatureKey = hex.EncodeToString(sum[:])
	return payload
}
