package payments

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"
)

// HTTPClient implementa Provider contra una API estilo Dwolla.
type HTTPClient struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

// NewHTTPClient construye un cliente HTTP apuntando al proveedor de pagos.
func NewHTTPClient(baseURL, apiKey string) *HTTPClient {
	return &HTTPClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		client:  &http.Client{Timeout: 20 * time.Second},
	}
}

type transferRequest struct {
	Source      string `json:"source"`
	Destination string `json:"destination"`
	Amount      string `json:"amount"`
	Currency    string `json:"currency"`
	Note        string `json:"note,omitempty"`
}

type transferResponse struct {
	ID          string `json:"id"`
	Status      string `json:"status"`
	SubmittedAt string `json:"created_at"`
	Message     string `json:"message"`
}

func (c *HTTPClient) SubmitTransfer(ctx context.Context, sub TransferSubmission) (Confirmation, error) {
	reqBody := transferRequest{
		Source:      sub.SourceRef,
		Destination: sub.DestinationRef,
		Amount:      sub.Amount.StringFixed(2),
		Currency:    "USD",
		Note:        sub.Note,
	}

	bodyBytes, err := json.Marshal(reqBody)
	if err != nil {
		return Confirmation{}, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/transfers", bytes.NewReader(bodyBytes))
	if err != nil {
		return Confirmation{}, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		// Un timeout despues de enviar la orden deja el resultado desconocido;
		// nunca se clasifica como rechazo.
		if isTimeout(err) {
			return Confirmation{}, fmt.Errorf("%w: %v", ErrTimeout, err)
		}
		return Confirmation{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return Confirmation{}, fmt.Errorf("%w: read response: %v", ErrTimeout, err)
	}

	if resp.StatusCode >= 500 {
		return Confirmation{}, fmt.Errorf("%w: status=%d", ErrUnavailable, resp.StatusCode)
	}
	if resp.StatusCode >= 400 {
		var tr transferResponse
		_ = json.Unmarshal(respBody, &tr)
		if tr.Message != "" {
			return Confirmation{}, fmt.Errorf("%w: %s", ErrRejected, tr.Message)
		}
		return Confirmation{}, fmt.Errorf("%w: status=%d", ErrRejected, resp.StatusCode)
	}

	var tr transferResponse
	if err := json.Unmarshal(respBody, &tr); err != nil {
		return Confirmation{}, fmt.Errorf("unmarshal response: %w", err)
	}

	submittedAt, err := time.Parse(time.RFC3339, tr.SubmittedAt)
	if err != nil {
		submittedAt = time.Now().UTC()
	}
	return Confirmation{
		TransferID:  tr.ID,
		Status:      tr.Status,
		SubmittedAt: submittedAt,
	}, nil
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
