package escrow

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const defaultTimeout = 10 * time.Second

// HTTPClient implements Client against the custody service's JSON API.
type HTTPClient struct {
	baseURL string
	client  *http.Client
}

// NewHTTPClient creates a client for the custody service at baseURL.
func NewHTTPClient(baseURL string, timeout time.Duration) *HTTPClient {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &HTTPClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: timeout},
	}
}

type depositRequest struct {
	TableID       string `json:"tableId"`
	PlayerAddress string `json:"playerAddress"`
	Amount        int64  `json:"amount"`
}

type settleRequest struct {
	TableID       string `json:"tableId"`
	PlayerAddress string `json:"playerAddress"`
	Amount        int64  `json:"amount"`
}

type batchSettleRequest struct {
	TableID     string       `json:"tableId"`
	Settlements []Settlement `json:"settlements"`
}

type refundRequest struct {
	TableID string `json:"tableId"`
}

type escrowResponse struct {
	OK      bool   `json:"ok"`
	TxHash  string `json:"txHash,omitempty"`
	Balance int64  `json:"balance,omitempty"`
	Error   string `json:"error,omitempty"`
}

func (c *HTTPClient) Deposit(ctx context.Context, tableID, playerAddress string, amount int64) (string, error) {
	resp, err := c.post(ctx, "/escrow/deposit", depositRequest{
		TableID:       tableID,
		PlayerAddress: playerAddress,
		Amount:        amount,
	})
	if err != nil {
		return "", err
	}
	return resp.TxHash, nil
}

func (c *HTTPClient) Settle(ctx context.Context, tableID, playerAddress string, finalStack int64) (string, error) {
	resp, err := c.post(ctx, "/escrow/settle", settleRequest{
		TableID:       tableID,
		PlayerAddress: playerAddress,
		Amount:        finalStack,
	})
	if err != nil {
		return "", err
	}
	return resp.TxHash, nil
}

func (c *HTTPClient) BatchSettle(ctx context.Context, tableID string, settlements []Settlement) (string, error) {
	resp, err := c.post(ctx, "/escrow/settle/batch", batchSettleRequest{
		TableID:     tableID,
		Settlements: settlements,
	})
	if err != nil {
		return "", err
	}
	return resp.TxHash, nil
}

func (c *HTTPClient) EmergencyRefundTable(ctx context.Context, tableID string) error {
	_, err := c.post(ctx, "/escrow/refund", refundRequest{TableID: tableID})
	return err
}

func (c *HTTPClient) EscrowedBalance(ctx context.Context, tableID, playerAddress string) (int64, error) {
	path := "/escrow/balance?tableId=" + url.QueryEscape(tableID) +
		"&playerAddress=" + url.QueryEscape(playerAddress)
	resp, err := c.do(ctx, http.MethodGet, path, nil)
	if err != nil {
		return 0, err
	}
	return resp.Balance, nil
}

func (c *HTTPClient) post(ctx context.Context, path string, body any) (*escrowResponse, error) {
	return c.do(ctx, http.MethodPost, path, body)
}

func (c *HTTPClient) do(ctx context.Context, method, path string, body any) (*escrowResponse, error) {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("marshal request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.client.Do(req)
	if err != nil {
		// Network errors and timeouts are retryable.
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusBadRequest, http.StatusUnauthorized, http.StatusForbidden,
		http.StatusConflict, http.StatusUnprocessableEntity:
		return nil, fmt.Errorf("%w: status %d", ErrRejected, resp.StatusCode)
	default:
		return nil, fmt.Errorf("%w: status %d", ErrUnavailable, resp.StatusCode)
	}

	// Limit response bodies to 1MB to avoid pathological responses.
	var er escrowResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&er); err != nil {
		return nil, fmt.Errorf("%w: decode error: %v", ErrUnavailable, err)
	}
	if !er.OK {
		if er.Error != "" {
			return nil, fmt.Errorf("%w: %s", ErrRejected, er.Error)
		}
		return nil, ErrRejected
	}
	return &er, nil
}
