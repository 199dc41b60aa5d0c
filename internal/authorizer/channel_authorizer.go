package authorizer

import (
	"context"

	"github.com/mrz1836/signerd/internal/channel"
	"github.com/mrz1836/signerd/internal/secret"
)

// WakeFunc is invoked whenever the server wants to surface a Prompt to the
// embedding UI (e.g. emit an event to a desktop-shell window). It must not
// block long; the actual password retrieval happens over PasswordChannel.
type WakeFunc func(ctx context.Context, prompt Prompt) error

// ChannelAuthorizer is the reference Authorizer implementation: it hands
// prompts to an embedding host via WakeFunc and receives passwords and
// mnemonics over single-slot channels the host's UI adapter pushes into.
// This is the Go analogue of the Tauri event/command bridge in
// original_source's archived desktop-shell code, generalized to a plain
// function + channel pair since the UI binding itself is out of scope here.
type ChannelAuthorizer struct {
	passwords *channel.PasswordChannel
	mnemonics *channel.MnemonicChannel
	selection chan Setup
	wake      WakeFunc

	pendingAck func(accept bool)
}

// NewChannelAuthorizer constructs a ChannelAuthorizer. selection must be fed
// exactly once per Setup call by the embedding host (e.g. in response to a
// "create account" vs "recover/login" user choice).
func NewChannelAuthorizer(wake WakeFunc) *ChannelAuthorizer {
	return &ChannelAuthorizer{
		passwords: channel.NewPasswordChannel(),
		mnemonics: channel.NewMnemonicChannel(),
		selection: make(chan Setup),
		wake:      wake,
	}
}

// Passwords exposes the password channel so the embedding host's UI adapter
// can push password attempts.
func (a *ChannelAuthorizer) Passwords() *channel.PasswordChannel { return a.passwords }

// Mnemonics exposes the mnemonic channel so the embedding host's UI adapter
// can push a freshly generated or recovered mnemonic during account
// creation.
func (a *ChannelAuthorizer) Mnemonics() *channel.MnemonicChannel { return a.mnemonics }

// SubmitSelection delivers the host's create-vs-login decision to a pending
// Setup call.
func (a *ChannelAuthorizer) SubmitSelection(ctx context.Context, s Setup) error {
	select {
	case a.selection <- s:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Setup blocks until SubmitSelection delivers a decision, then (for
// CreateAccount) blocks further for the mnemonic.
func (a *ChannelAuthorizer) Setup(ctx context.Context, _ bool) (Setup, error) {
	select {
	case s := <-a.selection:
		if s.Kind == CreateAccount && s.Mnemonic == "" {
			mnemonic, err := a.mnemonics.LoadExact(ctx)
			if err != nil {
				return Setup{}, err
			}
			s.Mnemonic = mnemonic
		}
		return s, nil
	case <-ctx.Done():
		return Setup{}, ctx.Err()
	}
}

// Password retrieves the next password attempt pushed by the host. If a
// prior attempt is still unacknowledged (the server called Password again
// without an intervening Ack — itself the retry signal per spec.md §4.2),
// it is acked as a retry before the next value is loaded.
func (a *ChannelAuthorizer) Password(ctx context.Context) (*secret.Password, error) {
	if a.pendingAck != nil {
		a.pendingAck(false)
		a.pendingAck = nil
	}

	pw, ack, err := a.passwords.Load(ctx)
	if err != nil {
		return nil, err
	}
	a.pendingAck = ack
	return pw, nil
}

// Ack reports the verification outcome of the most recent Password call
// back to the sender, unblocking its Send call. It implements the
// Authorizer interface's Ack method.
func (a *ChannelAuthorizer) Ack(_ context.Context, accept bool) error {
	if a.pendingAck != nil {
		a.pendingAck(accept)
		a.pendingAck = nil
	}
	return nil
}

// Wake notifies the embedding host that a password is being requested.
func (a *ChannelAuthorizer) Wake(ctx context.Context, prompt Prompt) error {
	if a.wake == nil {
		return nil
	}
	return a.wake(ctx, prompt)
}

// Sleep is a no-op for the channel authorizer: there is no resource to
// release between prompts.
func (a *ChannelAuthorizer) Sleep(_ context.Context) error { return nil }
