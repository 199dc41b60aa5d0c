// Package authorizer defines the contract between the signer server and
// whatever drives the user's interactive password/mnemonic prompts.
package authorizer

import (
	"context"

	"github.com/mrz1836/signerd/internal/network"
	"github.com/mrz1836/signerd/internal/secret"
)

// SetupKind distinguishes a fresh account creation from a login against
// existing encrypted state.
type SetupKind int

const (
	// Login means signer state already exists on disk; the authorizer
	// should only ever supply the existing password.
	Login SetupKind = iota
	// CreateAccount means no signer state exists yet; the authorizer must
	// supply a fresh (generated or recovered) mnemonic.
	CreateAccount
)

// Setup is the authorizer's answer to Authorizer.Setup: whether to create a
// new account (carrying its mnemonic) or log into an existing one.
type Setup struct {
	Kind     SetupKind
	Mnemonic string // populated only when Kind == CreateAccount
}

// Prompt describes what the authorizer should show the user while it waits
// for Password to be called. Network is nil for prompts not tied to a
// specific network (e.g. the unlock-on-startup prompt).
type Prompt struct {
	Network *network.Network
	Reason  string // e.g. "unlock", "sign"
	Detail  string // human-readable summary of the operation being authorized
}

// Authorizer is the interface the signer server drives to obtain passwords
// and mnemonics and to notify the user when their attention is needed. It is
// deliberately abstract: this module specifies how the core drives it, not
// how any particular UI renders prompts.
type Authorizer interface {
	// Setup is called once at server construction, before any password is
	// requested, so the authorizer can decide (and possibly prompt for)
	// whether the user is creating a new account or logging into one.
	Setup(ctx context.Context, dataExists bool) (Setup, error)

	// Password retrieves the current password attempt. It may be called
	// multiple times in a row (once per retry) after a single Wake call.
	Password(ctx context.Context) (*secret.Password, error)

	// Wake notifies the authorizer that a password is being requested for
	// the given prompt. Password should be called after Wake returns.
	Wake(ctx context.Context, prompt Prompt) error

	// Ack reports the outcome of verifying the password most recently
	// returned by Password: true if it matched the stored hash, false if
	// the caller should prompt again. The channel-backed adapter uses this
	// to unblock the UI side's pending Send call; adapters with no such
	// hand-off (e.g. Mock) may treat it as a no-op.
	Ack(ctx context.Context, accept bool) error

	// Sleep notifies the authorizer that no further password retrieval is
	// needed for the current prompt.
	Sleep(ctx context.Context) error
}
