package linking

import (
	"context"
	"time"
)

// MockProvider permite tests sin llamar a un proveedor real.
type MockProvider struct {
	LinkTokenValue  LinkToken
	AccessToken     string
	Accounts        []AccountData
	Err             error
	LinkTokenCalls  int
	ExchangeCalls   int
	GetAccountCalls int
	LastPublicToken string
}

func (m *MockProvider) CreateLinkToken(_ context.Context, _ string) (LinkToken, error) {
	m.LinkTokenCalls++
	if m.Err != nil {
		return LinkToken{}, m.Err
	}
	token := m.LinkTokenValue
	if token.Token == "" {
		token = LinkToken{Token: "link-token", ExpiresAt: time.Now().UTC().Add(30 * time.Minute)}
	}
	return token, nil
}

func (m *MockProvider) ExchangePublicToken(_ context.Context, publicToken string) (string, error) {
	m.ExchangeCalls++
	m.LastPublicToken = publicToken
	if m.Err != nil {
		return "", m.Err
	}
	return m.AccessToken, nil
}

func (m *MockProvider) GetAccounts(_ context.Context, _ string) ([]AccountData, error) {
	m.GetAccountCalls++
	if m.Err != nil {
		return nil, m.Err
	}
	return m.Accounts, nil
}
