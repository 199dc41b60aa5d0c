package authorizer

import (
	"context"
	"sync"

	"github.com/mrz1836/signerd/internal/secret"
)

// Mock is a hard-coded-password Authorizer double for tests, per spec.md
// §9's design-note instruction to provide one. It answers every Password
// call with the same password, records every Wake prompt and counts Sleep
// calls for assertions. Setup and Ack calls are not recorded.
type Mock struct {
	mu sync.Mutex

	Password_ *secret.Password
	SetupFn   func(ctx context.Context, dataExists bool) (Setup, error)

	WakeCalls  []Prompt
	SleepCalls int
}

// NewMock constructs a Mock that always answers Password with pw.
func NewMock(pw string) *Mock {
	return &Mock{Password_: secret.NewPassword([]byte(pw))}
}

// Setup defers to SetupFn if set, otherwise returns a Login decision.
func (m *Mock) Setup(ctx context.Context, dataExists bool) (Setup, error) {
	if m.SetupFn != nil {
		return m.SetupFn(ctx, dataExists)
	}
	return Setup{Kind: Login}, nil
}

// Password always returns the mock's configured password.
func (m *Mock) Password(_ context.Context) (*secret.Password, error) {
	return m.Password_, nil
}

// Wake records the prompt it was called with.
func (m *Mock) Wake(_ context.Context, prompt Prompt) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.WakeCalls = append(m.WakeCalls, prompt)
	return nil
}

// Ack is a no-op: Mock has no pending channel hand-off to unblock.
func (m *Mock) Ack(_ context.Context, _ bool) error { return nil }

// Sleep counts how many times it was called.
func (m *Mock) Sleep(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.SleepCalls++
	return nil
}

// WakeCount reports how many times Wake has been called, safe for
// concurrent use with the interface methods above.
func (m *Mock) WakeCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.WakeCalls)
}
