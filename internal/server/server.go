// Package server implements signerd's core: secrets, authorization gating,
// persistence, and RPC routing to per-network signers. It is the Go
// analogue of original_source/src/service.rs's Service, restructured around
// a synchronous state mutex plus a size-1 semaphore standing in for the
// original's async authorizer mutex.
package server

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/mrz1836/signerd/internal/authorizer"
	"github.com/mrz1836/signerd/internal/config"
	"github.com/mrz1836/signerd/internal/metrics"
	"github.com/mrz1836/signerd/internal/network"
	"github.com/mrz1836/signerd/internal/secret"
	"github.com/mrz1836/signerd/internal/signer"
	"github.com/mrz1836/signerd/internal/statefile"
	"github.com/mrz1836/signerd/internal/zkp"
	"github.com/mrz1836/signerd/pkg/signererr"
)

// Version is the compile-time version string /version and the version
// shell command return. cmd/signerd overrides it via -ldflags.
var Version = "dev"

// PasswordRetryInterval is how long the authorization-gating loop waits
// after a mismatched password before prompting again (spec.md §4.6,
// confirmed by original_source/src/service.rs's PASSWORD_RETRY_INTERVAL).
// Server.Build honors config.SecurityConfig.PasswordRetryMillis instead
// when it is set to a value greater than zero.
const PasswordRetryInterval = 1 * time.Second

// Phase names the sign request state machine's three states (spec.md §4.6).
type Phase int

const (
	// Idle means no sign request is in flight.
	Idle Phase = iota
	// Gating means a sign request is waiting on authorization.
	Gating
	// Proving means a sign request passed authorization and is generating
	// its zero-knowledge proof.
	Proving
)

// sharedState is the record guarded by Server.mu: the config, one signer
// per network, and the single process-wide mid-sign marker (spec.md §3,
// §5 "Mid-sign exclusion").
type sharedState struct {
	config  *config.Config
	signers map[network.Network]*signer.Signer
	midSign *network.Network
	phase   Phase
}

// Server is signerd's core. It owns the authorizer exclusively, persists
// encrypted per-network state, and dispatches sync/sign/address requests.
type Server struct {
	mu    sync.Mutex
	state sharedState

	authorizer    authorizer.Authorizer
	authLock      chan struct{} // size-1 semaphore: the async authorizer mutex
	logger        *config.Logger
	passwordHash  *secret.PasswordHash
	retryInterval time.Duration

	prover zkp.Prover
	params map[network.Network]*zkp.Parameters
	model  map[network.Network]*zkp.UtxoAccumulatorModel

	uiConnected bool
	ready       bool
}

// Build performs the full startup sequence from spec.md §4.6: load static
// parameters, probe per-network data existence, invoke authorizer.Setup,
// then drive the create-account or login password loop to completion.
func Build(ctx context.Context, cfg *config.Config, az authorizer.Authorizer, logger *config.Logger, prover zkp.Prover) (*Server, error) {
	if logger == nil {
		logger = config.NullLogger()
	}
	logger.DebugAttrs("building signer server")

	retry := PasswordRetryInterval
	if cfg.Security.PasswordRetryMillis > 0 {
		retry = time.Duration(cfg.Security.PasswordRetryMillis) * time.Millisecond
	}

	s := &Server{
		authorizer:    az,
		authLock:      make(chan struct{}, 1),
		logger:        logger,
		retryInterval: retry,
		prover:        prover,
		params:        make(map[network.Network]*zkp.Parameters),
		model:         make(map[network.Network]*zkp.UtxoAccumulatorModel),
		state: sharedState{
			config:  cfg,
			signers: make(map[network.Network]*signer.Signer),
		},
	}

	for _, n := range network.All() {
		model, err := zkp.LoadUtxoAccumulatorModel(cfg.ParamsPath(n))
		if err != nil {
			return nil, signererr.Wrap(signererr.ErrParameterLoading, "loading utxo accumulator model for %s", n)
		}
		params, err := zkp.LoadParameters(cfg.ParamsPath(n))
		if err != nil {
			return nil, signererr.Wrap(signererr.ErrParameterLoading, "loading proving parameters for %s", n)
		}
		s.model[n] = model
		s.params[n] = params
	}

	dataExists := false
	existing := make(map[network.Network]bool, len(network.All()))
	for _, n := range network.All() {
		e := statefile.Exists(cfg.StatePath(n))
		existing[n] = e
		dataExists = dataExists || e
	}

	logger.DebugAttrs("invoking authorizer setup", slog.Bool("data_exists", dataExists))
	setup, err := az.Setup(ctx, dataExists)
	if err != nil {
		return nil, signererr.Wrap(err, "authorizer setup")
	}

	if err := s.acquireAuthLock(ctx); err != nil {
		return nil, err
	}
	defer s.releaseAuthLock()

	if err := az.Wake(ctx, authorizer.Prompt{Reason: "unlock"}); err != nil {
		return nil, signererr.Wrap(err, "waking authorizer for startup prompt")
	}

	var hash *secret.PasswordHash
	switch setup.Kind {
	case authorizer.CreateAccount:
		hash, err = s.createAccountLoop(ctx, setup.Mnemonic)
	case authorizer.Login:
		hash, err = s.loginLoop(ctx, existing)
	default:
		err = signererr.New("UNKNOWN_SETUP_KIND", "authorizer.Setup returned an unrecognized kind")
	}
	if err != nil {
		return nil, err
	}

	if err := az.Sleep(ctx); err != nil {
		logger.ErrorAttrs("authorizer sleep failed", slog.String("error", err.Error()))
	}

	s.passwordHash = hash
	logger.DebugAttrs("signer server ready")
	return s, nil
}

// createAccountLoop requests a password, builds three fresh per-network
// signers from mnemonic, and persists them under the new hash. It retries
// on every attempt since account creation cannot itself "fail" except on
// disk errors, which are fatal.
func (s *Server) createAccountLoop(ctx context.Context, mnemonic string) (*secret.PasswordHash, error) {
	for {
		pw, err := s.authorizer.Password(ctx)
		if err != nil {
			return nil, signererr.Wrap(err, "requesting password for account creation")
		}
		if pw == nil {
			if err := s.authorizer.Ack(ctx, false); err != nil {
				s.logger.ErrorAttrs("authorizer ack failed", slog.String("error", err.Error()))
			}
			return nil, signererr.ErrAuthorization
		}

		hash, err := secret.NewPasswordHash(pw, s.hashParams())
		if err != nil {
			return nil, signererr.Wrap(err, "deriving password hash")
		}

		signers := make(map[network.Network]*signer.Signer, len(network.All()))
		for _, n := range network.All() {
			sg, err := signer.New(n, mnemonic, s.model[n])
			if err != nil {
				return nil, signererr.Wrap(err, "constructing signer for %s", n)
			}
			signers[n] = sg
		}

		saveErr := s.saveAll(signers, hash)
		if saveErr != nil {
			_ = s.authorizer.Ack(ctx, false)
			return nil, saveErr
		}

		if err := s.authorizer.Ack(ctx, true); err != nil {
			s.logger.ErrorAttrs("authorizer ack failed", slog.String("error", err.Error()))
		}

		s.mu.Lock()
		s.state.signers = signers
		s.mu.Unlock()
		return hash, nil
	}
}

// loginLoop requests a password, derives its hash, and tries to decrypt
// whichever per-network state files exist. Implements spec.md §4.6's
// partial-existence policy: recover the mnemonic from whichever network
// decrypted, then synthesize and persist the missing ones.
func (s *Server) loginLoop(ctx context.Context, existing map[network.Network]bool) (*secret.PasswordHash, error) {
	for {
		pw, err := s.authorizer.Password(ctx)
		if err != nil {
			return nil, signererr.Wrap(err, "requesting password for login")
		}
		if pw == nil {
			if err := s.authorizer.Ack(ctx, false); err != nil {
				s.logger.ErrorAttrs("authorizer ack failed", slog.String("error", err.Error()))
			}
			return nil, signererr.ErrAuthorization
		}

		hash, err := secret.NewPasswordHash(pw, s.hashParams())
		if err != nil {
			return nil, signererr.Wrap(err, "deriving password hash")
		}

		signers := make(map[network.Network]*signer.Signer, len(network.All()))
		var recoveredMnemonic string
		decryptedAny := false
		for _, n := range network.All() {
			if !existing[n] {
				continue
			}
			state, err := statefile.Load(s.state.config.StatePath(n), hash)
			if err != nil {
				continue
			}
			sg, err := signer.FromPersistedState(n, s.model[n], state)
			if err != nil {
				return nil, signererr.Wrap(err, "restoring signer for %s", n)
			}
			signers[n] = sg
			recoveredMnemonic = state.Mnemonic
			decryptedAny = true
		}

		if !decryptedAny {
			if err := s.authorizer.Ack(ctx, false); err != nil {
				s.logger.ErrorAttrs("authorizer ack failed", slog.String("error", err.Error()))
			}
			select {
			case <-time.After(s.retryInterval):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
			continue
		}

		for _, n := range network.All() {
			if _, ok := signers[n]; ok {
				continue
			}
			sg, err := signer.New(n, recoveredMnemonic, s.model[n])
			if err != nil {
				return nil, signererr.Wrap(err, "synthesizing missing signer for %s", n)
			}
			if err := statefile.Save(s.state.config.StatePath(n), hash, mustState(sg)); err != nil {
				return nil, signererr.Wrap(signererr.ErrSave, "persisting synthesized state for %s", n)
			}
			signers[n] = sg
		}

		if err := s.authorizer.Ack(ctx, true); err != nil {
			s.logger.ErrorAttrs("authorizer ack failed", slog.String("error", err.Error()))
		}

		s.mu.Lock()
		s.state.signers = signers
		s.mu.Unlock()
		return hash, nil
	}
}

func mustState(sg *signer.Signer) *signer.PersistedState {
	st, err := sg.State()
	if err != nil {
		// sg was just constructed; a fresh accumulator always marshals.
		panic(err)
	}
	return st
}

func (s *Server) saveAll(signers map[network.Network]*signer.Signer, hash *secret.PasswordHash) error {
	for _, n := range network.All() {
		if err := statefile.Save(s.state.config.StatePath(n), hash, mustState(signers[n])); err != nil {
			return signererr.Wrap(signererr.ErrSave, "saving signer state for %s", n)
		}
	}
	return nil
}

func (s *Server) hashParams() secret.HashParams {
	sec := s.state.config.Security
	p := secret.DefaultHashParams()
	if sec.ArgonTimeCost > 0 {
		p.Time = sec.ArgonTimeCost
	}
	if sec.ArgonMemoryKiB > 0 {
		p.MemoryKiB = sec.ArgonMemoryKiB
	}
	if sec.ArgonThreads > 0 {
		p.Threads = sec.ArgonThreads
	}
	return p
}

func (s *Server) acquireAuthLock(ctx context.Context) error {
	select {
	case s.authLock <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Server) releaseAuthLock() {
	<-s.authLock
}

// Config returns the server's resolved configuration.
func (s *Server) Config() *config.Config {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.config
}

// Sync folds a per-network accumulator update and schedules an async save
// (spec.md §4.6 dispatch: "sync"). Sync requires no authorization.
func (s *Server) Sync(n network.Network, req signer.SyncRequest) (signer.SyncResponse, error) {
	s.mu.Lock()
	sg, ok := s.state.signers[n]
	s.mu.Unlock()
	if !ok {
		err := signererr.WithDetails(signererr.ErrUnknownNetwork, map[string]string{"network": n.String()})
		metrics.Global.RecordSync(err)
		return signer.SyncResponse{}, err
	}

	s.logger.DebugAttrs("processing sync request", slog.String("network", n.String()))
	resp := sg.Sync(req)
	metrics.Global.RecordSync(nil)
	go s.saveDetached(n)
	return resp, nil
}

// saveDetached persists network's current signer state, logging (not
// returning) any failure, matching spec.md §4.6's "spawn a detached task"
// dispatch note for sync.
func (s *Server) saveDetached(n network.Network) {
	if err := s.Save(n); err != nil {
		s.logger.ErrorAttrs("detached save failed", slog.String("network", n.String()), slog.String("error", err.Error()))
	}
}

// Save persists network's current signer state under the session's
// password hash, following the rename-backup discipline in
// internal/statefile.
func (s *Server) Save(n network.Network) error {
	s.mu.Lock()
	sg, ok := s.state.signers[n]
	path := s.state.config.StatePath(n)
	hash := s.passwordHash
	s.mu.Unlock()
	if !ok {
		return signererr.WithDetails(signererr.ErrUnknownNetwork, map[string]string{"network": n.String()})
	}

	st, err := sg.State()
	if err != nil {
		return signererr.Wrap(signererr.ErrSave, "capturing signer state for %s", n)
	}
	return statefile.Save(path, hash, st)
}

// Address derives count receiving addresses from network's signer.
func (s *Server) Address(n network.Network, count int) ([]string, error) {
	s.mu.Lock()
	sg, ok := s.state.signers[n]
	s.mu.Unlock()
	if !ok {
		return nil, signererr.WithDetails(signererr.ErrUnknownNetwork, map[string]string{"network": n.String()})
	}
	return sg.Address(count)
}

// Version returns the compile-time version string.
func (s *Server) Version() string { return Version }

// beginSign claims the mid-sign marker for n, or reports SignerBusy if
// another sign is already in flight anywhere (spec.md §5 "Mid-sign
// exclusion": the marker is per-process, not per-network).
func (s *Server) beginSign(n network.Network) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state.midSign != nil {
		return false
	}
	netCopy := n
	s.state.midSign = &netCopy
	s.state.phase = Gating
	return true
}

func (s *Server) setPhase(p Phase) {
	s.mu.Lock()
	s.state.phase = p
	s.mu.Unlock()
}

// endSign clears the mid-sign marker, returning the server to Idle.
func (s *Server) endSign() {
	s.mu.Lock()
	s.state.midSign = nil
	s.state.phase = Idle
	s.mu.Unlock()
}

// CancelSign implements the cooperative cancellation path from spec.md
// §4.8/§5: it clears the mid-sign marker without producing a proof. A sign
// already past the authorization gate may still finish computing a proof
// that is simply discarded by the caller that observed the cancellation.
func (s *Server) CancelSign() {
	s.mu.Lock()
	s.state.midSign = nil
	s.state.phase = Idle
	s.mu.Unlock()
}

// Phase reports the server's current position in the sign state machine.
func (s *Server) Phase() Phase {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.phase
}

// Sign drives the full state machine for a sign request (spec.md §4.6/§6):
// mid-sign exclusion, authorization gating for non-deposit shapes, proof
// generation, and a final async save.
func (s *Server) Sign(ctx context.Context, n network.Network, tx signer.Transaction) (zkp.Proof, error) {
	start := time.Now()
	if !s.beginSign(n) {
		metrics.Global.RecordSign(time.Since(start), true, nil)
		return zkp.Proof{}, signererr.ErrSignerBusy
	}
	defer s.endSign()

	requestID := uuid.NewString()
	s.logger.DebugAttrs("processing sign request", slog.String("network", n.String()), slog.String("request_id", requestID))

	if tx.Shape.RequiresAuthorization() {
		detail := "sign " + n.String() + " " + requestID
		if err := s.checkAuthorization(ctx, authorizer.Prompt{Network: &n, Reason: "sign", Detail: detail}); err != nil {
			metrics.Global.RecordSign(time.Since(start), false, err)
			return zkp.Proof{}, err
		}
	}

	s.setPhase(Proving)

	s.mu.Lock()
	sg, ok := s.state.signers[n]
	params := s.params[n]
	cancelled := s.state.midSign == nil
	s.mu.Unlock()
	if !ok {
		err := signererr.WithDetails(signererr.ErrUnknownNetwork, map[string]string{"network": n.String()})
		metrics.Global.RecordSign(time.Since(start), false, err)
		return zkp.Proof{}, err
	}

	// Cooperative cancellation: CancelSign clears midSign; observe it just
	// before committing to the (potentially expensive) proof call.
	if cancelled {
		err := signererr.ErrSignCancelled
		metrics.Global.RecordSign(time.Since(start), false, err)
		return zkp.Proof{}, err
	}

	proof, err := sg.Sign(s.prover, params, 0, tx)
	if err != nil {
		wrapped := signererr.Wrap(err, "generating proof for %s", n)
		metrics.Global.RecordSign(time.Since(start), false, wrapped)
		return zkp.Proof{}, wrapped
	}

	metrics.Global.RecordSign(time.Since(start), false, nil)
	go s.saveDetached(n)
	return proof, nil
}

// checkAuthorization is the "check" routine from spec.md §4.6: wake the
// authorizer, then loop receiving and verifying passwords until one
// matches (Sleep and success) or the authorizer reports the user declined
// (unknown sentinel, surfaced here as a nil *secret.Password).
func (s *Server) checkAuthorization(ctx context.Context, prompt authorizer.Prompt) error {
	if err := s.acquireAuthLock(ctx); err != nil {
		return err
	}
	defer s.releaseAuthLock()

	if err := s.authorizer.Wake(ctx, prompt); err != nil {
		return signererr.Wrap(err, "waking authorizer for sign authorization")
	}

	for {
		pw, err := s.authorizer.Password(ctx)
		if err != nil {
			return signererr.Wrap(err, "requesting password for authorization")
		}
		if pw == nil {
			metrics.Global.RecordAuth(false)
			if err := s.authorizer.Ack(ctx, false); err != nil {
				s.logger.ErrorAttrs("authorizer ack failed", slog.String("error", err.Error()))
			}
			return signererr.ErrAuthorization
		}

		ok := s.passwordHash != nil && s.passwordHash.Verify(pw)
		metrics.Global.RecordAuth(ok)
		if err := s.authorizer.Ack(ctx, ok); err != nil {
			s.logger.ErrorAttrs("authorizer ack failed", slog.String("error", err.Error()))
		}
		if ok {
			if err := s.authorizer.Sleep(ctx); err != nil {
				s.logger.ErrorAttrs("authorizer sleep failed", slog.String("error", err.Error()))
			}
			return nil
		}

		select {
		case <-time.After(s.retryInterval):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}
