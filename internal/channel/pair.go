package channel

import (
	"context"

	"github.com/mrz1836/signerd/internal/secret"
)

// PasswordChannel hands passwords from the authorizer's UI adapter to the
// server's password-verification loop, one attempt at a time, with a
// retry ack on mismatch (spec.md §4.2/§4.6).
type PasswordChannel struct {
	inner *Single[*secret.Password]
}

// NewPasswordChannel constructs an empty PasswordChannel.
func NewPasswordChannel() *PasswordChannel {
	return &PasswordChannel{inner: NewSingle[*secret.Password]()}
}

// Load waits for the next password attempt. The caller must ack(true) if
// the password verified, or ack(false) to request a different attempt.
func (c *PasswordChannel) Load(ctx context.Context) (*secret.Password, func(accept bool), error) {
	return c.inner.Load(ctx)
}

// Send pushes a password attempt and blocks for the verification result.
func (c *PasswordChannel) Send(ctx context.Context, pw *secret.Password) (bool, error) {
	return c.inner.Send(ctx, pw)
}

// MnemonicChannel hands a BIP-39 recovery phrase from the authorizer to the
// server during account creation or recovery. There is no retry loop: the
// mnemonic is validated before it is sent, so the receiver always accepts.
type MnemonicChannel struct {
	inner *Single[string]
}

// NewMnemonicChannel constructs an empty MnemonicChannel.
func NewMnemonicChannel() *MnemonicChannel {
	return &MnemonicChannel{inner: NewSingle[string]()}
}

// LoadExact waits for the next mnemonic and accepts it unconditionally.
func (c *MnemonicChannel) LoadExact(ctx context.Context) (string, error) {
	return c.inner.LoadExact(ctx)
}

// Send pushes a mnemonic phrase, blocking until it is consumed.
func (c *MnemonicChannel) Send(ctx context.Context, mnemonic string) error {
	_, err := c.inner.Send(ctx, mnemonic)
	return err
}
