// Package setup implements the post-start operations spec.md §4.8 exposes
// to the hosting shell rather than to remote wallets: recovery-phrase
// export and full account reset. It is a thin, testable wrapper around the
// corresponding *server.Server methods, grounded on original_source's
// archived src-tauri/src/lib.rs command layer re-expressed as plain Go
// methods since the UI-shell binding itself is out of scope (spec.md §1).
package setup

import (
	"context"

	"github.com/mrz1836/signerd/internal/server"
)

// Flow wraps a *server.Server with the post-start operations a hosting
// shell drives. First-run create-vs-login is decided in server.Build.
type Flow struct {
	srv *server.Server
}

// NewFlow constructs a Flow around srv.
func NewFlow(srv *server.Server) *Flow {
	return &Flow{srv: srv}
}

// GetStoredMnemonic authorizes the caller via the server's check routine
// and returns the account's recovery phrase, for user-initiated export
// (spec.md §4.8's get_stored_mnemonic).
func (f *Flow) GetStoredMnemonic(ctx context.Context) (string, error) {
	return f.srv.GetRecoveryPhrase(ctx, "export recovery phrase")
}

// ResetAccount aborts any in-flight sign, optionally deletes each
// network's persisted state, and reports whether the hosting shell should
// perform a full process restart (spec.md §4.8's reset_account). When
// restart is false, the caller is expected to rebuild the server in place
// (e.g. via server.Build with a fresh authorizer) rather than exit.
func (f *Flow) ResetAccount(ctx context.Context, deleteData bool) (restart bool, err error) {
	return f.srv.ResetAccount(ctx, deleteData)
}
