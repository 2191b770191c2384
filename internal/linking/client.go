package linking

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// HTTPClient implementa Provider contra una API estilo Plaid.
type HTTPClient struct {
	baseURL  string
	clientID string
	secret   string
	client   *http.Client
}

// NewHTTPClient construye un cliente HTTP apuntando al proveedor de link.
func NewHTTPClient(baseURL, clientID, secret string) *HTTPClient {
	return &HTTPClient{
		baseURL:  strings.TrimRight(baseURL, "/"),
		clientID: clientID,
		secret:   secret,
		client:   &http.Client{Timeout: 15 * time.Second},
	}
}

type linkTokenResponse struct {
	LinkToken  string `json:"link_token"`
	Expiration string `json:"expiration"`
}

type exchangeResponse struct {
	AccessToken string `json:"access_token"`
}

type accountsResponse struct {
	Accounts []struct {
		AccountID string `json:"account_id"`
		Name      string `json:"name"`
		Mask      string `json:"mask"`
		Balances  struct {
			Available decimal.Decimal `json:"available"`
			Current   decimal.Decimal `json:"current"`
		} `json:"balances"`
	} `json:"accounts"`
}

func (c *HTTPClient) CreateLinkToken(ctx context.Context, userID string) (LinkToken, error) {
	payload := map[string]any{
		"client_user_id": userID,
		"products":       []string{"auth", "transactions"},
	}
	var res linkTokenResponse
	if err := c.post(ctx, "/link/token/create", payload, &res); err != nil {
		return LinkToken{}, err
	}
	expiresAt, err := time.Parse(time.RFC3339, res.Expiration)
	if err != nil {
		expiresAt = time.Now().UTC().Add(30 * time.Minute)
	}
	return LinkToken{Token: res.LinkToken, ExpiresAt: expiresAt}, nil
}

func (c *HTTPClient) ExchangePublicToken(ctx context.Context, publicToken string) (string, error) {
	payload := map[string]any{"public_token": publicToken}
	var res exchangeResponse
	if err := c.post(ctx, "/item/public_token/exchange", payload, &res); err != nil {
		return "", err
	}
	if res.AccessToken == "" {
		return "", fmt.Errorf("%w: empty access token", ErrRejected)
	}
	return res.AccessToken, nil
}

func (c *HTTPClient) GetAccounts(ctx context.Context, accessToken string) ([]AccountData, error) {
	payload := map[string]any{"access_token": accessToken}
	var res accountsResponse
	if err := c.post(ctx, "/accounts/get", payload, &res); err != nil {
		return nil, err
	}
	accounts := make([]AccountData, 0, len(res.Accounts))
	for _, a := range res.Accounts {
		accounts = append(accounts, AccountData{
			ID:               a.AccountID,
			Name:             a.Name,
			Mask:             a.Mask,
			AvailableBalance: a.Balances.Available,
			CurrentBalance:   a.Balances.Current,
		})
	}
	return accounts, nil
}

func (c *HTTPClient) post(ctx context.Context, path string, payload map[string]any, out any) error {
	payload["client_id"] = c.clientID
	payload["secret"] = c.secret

	bodyBytes, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(bodyBytes))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%w: read response: %v", ErrUnavailable, err)
	}

	if resp.StatusCode >= 500 {
		return fmt.Errorf("%w: status=%d", ErrUnavailable, resp.StatusCode)
	}
	if resp.StatusCode >= 400 {
		return fmt.Errorf("%w: status=%d body=%s", ErrRejected, resp.StatusCode, string(respBody))
	}

	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("unmarshal response: %w", err)
	}
	return nil
}
