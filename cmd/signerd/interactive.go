package main

import (
	"context"
	"fmt"
	"os"
	"syscall"

	"golang.org/x/term"

	"github.com/mrz1836/signerd/internal/authorizer"
	"github.com/mrz1836/signerd/internal/config"
	"github.com/mrz1836/signerd/internal/network"
	"github.com/mrz1836/signerd/internal/secret"
	"github.com/mrz1836/signerd/internal/signer"
	"github.com/mrz1836/signerd/internal/statefile"
)

// newInteractiveAuthorizer wires a authorizer.ChannelAuthorizer to the
// controlling terminal: driveSetup makes the create-vs-login decision from
// the existing state files, password attempts are read from stdin, and
// Authorizer.Wake prompts are printed to stderr. This
// is the terminal-hosted stand-in for the desktop-shell UI that drives the
// Authorizer contract in a real deployment (spec.md §1 excludes the UI
// shell itself; this is signerd's own minimal embedding of that contract
// for headless use).
func newInteractiveAuthorizer(ctx context.Context, cfg *config.Config) *authorizer.ChannelAuthorizer {
	var ca *authorizer.ChannelAuthorizer
	ca = authorizer.NewChannelAuthorizer(func(_ context.Context, prompt authorizer.Prompt) error {
		reason := prompt.Reason
		if prompt.Network != nil {
			reason = fmt.Sprintf("%s (%s)", reason, prompt.Network.String())
		}
		fmt.Fprintf(os.Stderr, "\nsignerd: password required — %s\n", reason)
		go promptPassword(ctx, ca)
		return nil
	})

	go driveSetup(ctx, ca, cfg)
	return ca
}

// driveSetup decides Login vs CreateAccount by checking which networks
// already have persisted state, generating a fresh mnemonic for a brand
// new account, and feeding the decision into ca.
func driveSetup(ctx context.Context, ca *authorizer.ChannelAuthorizer, cfg *config.Config) {
	dataExists := false
	for _, n := range network.All() {
		if statefile.Exists(cfg.StatePath(n)) {
			dataExists = true
			break
		}
	}

	if dataExists {
		_ = ca.SubmitSelection(ctx, authorizer.Setup{Kind: authorizer.Login})
		return
	}

	mnemonic, err := signer.GenerateMnemonic(12)
	if err != nil {
		fmt.Fprintf(os.Stderr, "signerd: failed to generate a recovery phrase: %v\n", err)
		return
	}
	fmt.Fprintln(os.Stderr, "signerd: no existing account found. Generated a new recovery phrase:")
	fmt.Fprintln(os.Stderr, mnemonic)
	fmt.Fprintln(os.Stderr, "signerd: write this down. It is the only way to recover your account.")

	_ = ca.SubmitSelection(ctx, authorizer.Setup{Kind: authorizer.CreateAccount})
	_ = ca.Mnemonics().Send(ctx, mnemonic)
}

// promptPassword reads password attempts from the controlling terminal with
// echo disabled and pushes them to ca, one attempt per line, until one is
// accepted. An empty line or a read error (including EOF) sends the
// unknown sentinel (nil) instead and stops. It loops internally because the server's
// Password() retry loop calls Password again without a fresh Wake on
// mismatch (spec.md §4.2's retry contract).
func promptPassword(ctx context.Context, ca *authorizer.ChannelAuthorizer) {
	for {
		fmt.Fprint(os.Stderr, "password: ")
		pw, err := term.ReadPassword(syscall.Stdin)
		fmt.Fprintln(os.Stderr)
		if err != nil {
			fmt.Fprintf(os.Stderr, "signerd: reading password failed: %v\n", err)
			_, _ = ca.Passwords().Send(ctx, nil)
			return
		}

		if len(pw) == 0 {
			_, _ = ca.Passwords().Send(ctx, nil)
			return
		}

		accepted, err := ca.Passwords().Send(ctx, secret.NewPassword(pw))
		if err != nil {
			fmt.Fprintf(os.Stderr, "signerd: password delivery failed: %v\n", err)
			return
		}
		if accepted {
			return
		}
		fmt.Fprintln(os.Stderr, "signerd: incorrect password, try again")
	}
}
