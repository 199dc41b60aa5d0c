package server

import (
	"context"
	"os"

	"github.com/mrz1836/signerd/internal/authorizer"
	"github.com/mrz1836/signerd/internal/network"
	"github.com/mrz1836/signerd/internal/secret"
	"github.com/mrz1836/signerd/internal/statefile"
	"github.com/mrz1836/signerd/pkg/signererr"
)

// This file implements the shell-command control surface from spec.md §6:
// in-process operations a hosting shell invokes (not remote wallets, which
// only see the HTTP surface in internal/httpapi). They are exported methods
// on *Server rather than framework-specific command handlers, since the
// desktop-shell binding itself is out of scope (spec.md §1).

// channelAuthorizer returns the server's authorizer as a *authorizer.ChannelAuthorizer
// if it is one, so the shell-command methods below can reach its channel
// endpoints. Authorizer implementations that aren't channel-backed (e.g.
// authorizer.Mock in tests) simply don't support these commands.
func (s *Server) channelAuthorizer() (*authorizer.ChannelAuthorizer, bool) {
	ca, ok := s.authorizer.(*authorizer.ChannelAuthorizer)
	return ca, ok
}

// SendPassword delivers a password attempt typed by the user, returning
// whether it was accepted (the retry-boolean's negation, spec.md §4.2).
func (s *Server) SendPassword(ctx context.Context, password string) (bool, error) {
	ca, ok := s.channelAuthorizer()
	if !ok {
		return false, signererr.New("NOT_CHANNEL_AUTHORIZER", "server is not using a channel-backed authorizer")
	}
	return ca.Passwords().Send(ctx, secret.NewPassword([]byte(password)))
}

// StopPasswordPrompt delivers the unknown-password sentinel, signalling
// that the user declined or cancelled the current prompt.
func (s *Server) StopPasswordPrompt(ctx context.Context) error {
	ca, ok := s.channelAuthorizer()
	if !ok {
		return signererr.New("NOT_CHANNEL_AUTHORIZER", "server is not using a channel-backed authorizer")
	}
	_, err := ca.Passwords().Send(ctx, nil)
	return err
}

// SendMnemonic delivers a freshly generated or user-recovered mnemonic
// during account creation.
func (s *Server) SendMnemonic(ctx context.Context, mnemonic string) error {
	ca, ok := s.channelAuthorizer()
	if !ok {
		return signererr.New("NOT_CHANNEL_AUTHORIZER", "server is not using a channel-backed authorizer")
	}
	return ca.Mnemonics().Send(ctx, mnemonic)
}

// UserSelection delivers the user's create-vs-login decision to a pending
// authorizer.Setup call.
func (s *Server) UserSelection(ctx context.Context, kind authorizer.SetupKind) error {
	ca, ok := s.channelAuthorizer()
	if !ok {
		return signererr.New("NOT_CHANNEL_AUTHORIZER", "server is not using a channel-backed authorizer")
	}
	return ca.SubmitSelection(ctx, authorizer.Setup{Kind: kind})
}

// GetRecoveryPhrase authorizes via the check routine (spec.md §4.8) and
// then returns the account's mnemonic, recovered from any one network's
// signer since it is identical across all three (spec.md §3, invariant i).
func (s *Server) GetRecoveryPhrase(ctx context.Context, detail string) (string, error) {
	if err := s.checkAuthorization(ctx, authorizer.Prompt{Reason: "export", Detail: detail}); err != nil {
		return "", err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	sg, ok := s.state.signers[network.Dolphin]
	if !ok {
		for _, n := range network.All() {
			if candidate, ok2 := s.state.signers[n]; ok2 {
				sg = candidate
				ok = true
				break
			}
		}
	}
	if !ok {
		return "", signererr.New("NO_SIGNER", "no signer is loaded for any network")
	}

	st, err := sg.State()
	if err != nil {
		return "", signererr.Wrap(err, "capturing signer state to recover mnemonic")
	}
	return st.Mnemonic, nil
}

// ResetAccount implements spec.md §4.8's reset_account command: abort any
// in-flight sign, optionally delete each network's primary and backup
// state files, and report whether the hosting shell should restart the
// process (AllowRestart) or the caller should rebuild the server in place
// with a fresh authorizer.
func (s *Server) ResetAccount(ctx context.Context, deleteData bool) (restart bool, err error) {
	s.CancelSign()

	if deleteData {
		s.mu.Lock()
		cfg := s.state.config
		s.mu.Unlock()
		for _, n := range network.All() {
			path := cfg.StatePath(n)
			if rmErr := os.Remove(path); rmErr != nil && !os.IsNotExist(rmErr) {
				return false, signererr.Wrap(rmErr, "deleting state file for %s", n)
			}
			if rmErr := os.Remove(path + ".backup"); rmErr != nil && !os.IsNotExist(rmErr) {
				return false, signererr.Wrap(rmErr, "deleting backup state file for %s", n)
			}
			_ = statefile.Exists(path) // best-effort; absence is the success condition
		}
	}

	s.mu.Lock()
	allow := s.state.config.AllowRestart
	s.mu.Unlock()
	return allow, nil
}

// ConnectUI and DisconnectUI mark whether an embedding host's UI is
// currently attached, mirroring the original's connect_ui/disconnect_ui
// shell commands. They carry no behavior beyond the flag: the server does
// not buffer prompts for a disconnected UI.
func (s *Server) ConnectUI() {
	s.mu.Lock()
	s.uiConnected = true
	s.mu.Unlock()
}

// DisconnectUI clears the UI-connected flag.
func (s *Server) DisconnectUI() {
	s.mu.Lock()
	s.uiConnected = false
	s.mu.Unlock()
}

// UIConnected reports whether ConnectUI was called more recently than
// DisconnectUI.
func (s *Server) UIConnected() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.uiConnected
}

// SetSignerReady marks the server as having completed startup and being
// ready to serve, mirroring the original's set_signer_ready shell command
// used to coordinate first-paint timing with the hosting shell's UI.
func (s *Server) SetSignerReady() {
	s.mu.Lock()
	s.ready = true
	s.mu.Unlock()
}

// Ready reports whether SetSignerReady has been called.
func (s *Server) Ready() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ready
}
