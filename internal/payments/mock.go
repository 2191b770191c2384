package payments

import "context"

// MockProvider permite tests sin llamar a un proveedor real.
type MockProvider struct {
	Result      Confirmation
	Err         error
	SubmitCalls int
	LastRequest TransferSubmission
}

func (m *MockProvider) SubmitTransfer(_ context.Context, sub TransferSubmission) (Confirmation, error) {
	m.SubmitCalls++
	m.LastRequest = sub
	if m.Err != nil {
		return Confirmation{}, m.Err
	}
	return m.Result, nil
}
