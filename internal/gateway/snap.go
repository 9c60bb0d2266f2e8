package gateway

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"go-event-ticketing/internal/model"
	apperrors "go-event-ticketing/pkg/app_errors"
	"go-event-ticketing/pkg/logger"
)

// Client talks to the Snap-style payment gateway. The gateway is reached
// only through this token-based protocol; nothing else in the core may
// assume anything about its internals.
type Client interface {
	CreateTransaction(ctx context.Context, req CreateTransactionRequest) (*CreateTransactionResponse, error)
}

type CreateTransactionRequest struct {
	OrderID     string
	GrossAmount int64
	Customer    model.BuyerDetails
	Items       []TransactionItem
}

type TransactionItem struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Price    int64  `json:"price"`
	Quantity int    `json:"quantity"`
}

type CreateTransactionResponse struct {
	Token       string `json:"token"`
	RedirectURL string `json:"redirect_url"`
}

type SnapClient struct {
	baseURL   string
	serverKey string
	client    *http.Client
	log       *zap.Logger
}

// NewSnapClient builds a gateway client with a bounded timeout. On timeout
// no ticket is created upstream, so retrying the purchase is safe.
func NewSnapClient(baseURL, serverKey string, timeout time.Duration) *SnapClient {
	return &SnapClient{
		baseURL:   baseURL,
		serverKey: serverKey,
		client:    &http.Client{Timeout: timeout},
		log:       logger.WithComponent("gateway"),
	}
}

func (c *SnapClient) CreateTransaction(ctx context.Context, req CreateTransactionRequest) (*CreateTransactionResponse, error) {
	body := map[string]interface{}{
		"transaction_details": map[string]interface{}{
			"order_id":     req.OrderID,
			"gross_amount": req.GrossAmount,
		},
		"customer_details": map[string]interface{}{
			"first_name": req.Customer.Name,
			"email":      req.Customer.Email,
			"phone":      req.Customer.Phone,
		},
		"item_details": req.Items,
	}

	jsonBody, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshal transaction request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/snap/v1/transactions", bytes.NewBuffer(jsonBody))
	if err != nil {
		return nil, fmt.Errorf("build transaction request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set("Authorization", "Basic "+
		base64.StdEncoding.EncodeToString([]byte(c.serverKey+":")))

	resp, err := c.client.Do(httpReq)
	if err != nil {
		c.log.Warn("gateway unreachable", zap.String("order_id", req.OrderID), zap.Error(err))
		return nil, fmt.Errorf("%w: %v", apperrors.ErrGatewayUnavailable, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("%w: read response: %v", apperrors.ErrGatewayUnavailable, err)
	}

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		var result CreateTransactionResponse
		if err := json.Unmarshal(respBody, &result); err != nil {
			return nil, fmt.Errorf("%w: decode response: %v", apperrors.ErrGatewayUnavailable, err)
		}
		if result.Token == "" {
			return nil, fmt.Errorf("%w: empty token", apperrors.ErrGatewayRejected)
		}
		return &result, nil
	case resp.StatusCode >= 400 && resp.StatusCode < 500:
		// Permanent rejection (bad credentials, duplicate order id). Needs
		// operator attention, not a buyer-facing payment failure.
		c.log.Error("gateway rejected transaction",
			zap.String("order_id", req.OrderID),
			zap.Int("status", resp.StatusCode),
			zap.ByteString("body", respBody))
		return nil, fmt.Errorf("%w: status %d", apperrors.ErrGatewayRejected, resp.StatusCode)
	default:
		c.log.Warn("gateway server error",
			zap.String("order_id", req.OrderID),
			zap.Int("status", resp.StatusCode))
		return nil, fmt.Errorf("%w: status %d", apperrors.ErrGatewayUnavailable, resp.StatusCode)
	}
}

var _ Client = (*SnapClient)(nil)

// errGrossAmount reported when a callback's gross_amount cannot be parsed.
var errGrossAmount = errors.New("malformed gross amount")
