// Package httpapi implements signerd's loopback HTTP surface: route
// dispatch, CORS, JSON request/response framing, and the body-size and
// status-code policy from spec.md §6, grounded on the other_examples
// signer-daemon reference's http.NewServeMux()-based router adapted to
// this spec's four routes and interactive-password gating instead of a
// static API token.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rs/cors"

	"github.com/mrz1836/signerd/internal/config"
	"github.com/mrz1836/signerd/internal/network"
	"github.com/mrz1836/signerd/internal/signer"
	"github.com/mrz1836/signerd/internal/zkp"
	"github.com/mrz1836/signerd/pkg/signererr"
)

// MaxBodyBytes is the request body size cap from spec.md §6.
const MaxBodyBytes = 128 * 1024

// Dispatcher is the subset of *server.Server the HTTP surface drives. It is
// defined here (rather than imported from internal/server) so httpapi has
// no import-cycle dependency on the server package's internals; cmd/signerd
// wires a concrete *server.Server in, which satisfies it structurally.
type Dispatcher interface {
	Version() string
	Sync(n network.Network, req signer.SyncRequest) (signer.SyncResponse, error)
	Sign(ctx context.Context, n network.Network, tx signer.Transaction) (zkp.Proof, error)
	Address(n network.Network, count int) ([]string, error)
}

// NewRouter builds the HTTP handler for d: GET /version, POST /sync,
// POST /sign, POST /address (alias /receivingKeys), wrapped in CORS per
// cfg.Origins (empty allow-list means any origin, spec.md §6).
func NewRouter(d Dispatcher, cfg *config.Config) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /version", handleVersion(d))
	mux.HandleFunc("POST /sync", handleSync(d))
	mux.HandleFunc("POST /sign", handleSign(d))
	mux.HandleFunc("POST /address", handleAddress(d))
	mux.HandleFunc("POST /receivingKeys", handleAddress(d))

	mux.HandleFunc("/", func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, signererr.ErrUnknownRoute)
	})

	corsOpts := cors.Options{
		AllowedMethods:   []string{http.MethodGet, http.MethodPost},
		AllowCredentials: false,
	}
	if len(cfg.Origins) == 0 {
		corsOpts.AllowedOrigins = []string{"*"}
	} else {
		corsOpts.AllowedOrigins = cfg.Origins
	}

	return cors.New(corsOpts).Handler(mux)
}

func handleVersion(d Dispatcher) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, d.Version())
	}
}

type syncRequestBody struct {
	Network     network.Network  `json:"network"`
	Checkpoint  uint64           `json:"checkpoint"`
	Commitments []zkp.Commitment `json:"commitments"`
	Nullifiers  []zkp.Commitment `json:"nullifiers"`
}

func handleSync(d Dispatcher) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body syncRequestBody
		if !decodeBody(w, r, &body) {
			return
		}

		resp, err := d.Sync(body.Network, signer.SyncRequest{
			Checkpoint:  body.Checkpoint,
			Commitments: body.Commitments,
			Nullifiers:  body.Nullifiers,
		})
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

type signRequestBody struct {
	Network     network.Network    `json:"network"`
	Transaction signer.Transaction `json:"transaction"`
	Metadata    map[string]string  `json:"metadata,omitempty"`
}

// signResponseBody carries either a successful proof or the SignerBusy
// variant inline with status 200, per spec.md §7: "SignerBusy ... Returned
// in the response body, status 200."
type signResponseBody struct {
	Busy  bool       `json:"busy"`
	Proof *zkp.Proof `json:"proof,omitempty"`
}

func handleSign(d Dispatcher) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body signRequestBody
		if !decodeBody(w, r, &body) {
			return
		}

		proof, err := d.Sign(r.Context(), body.Network, body.Transaction)
		if err != nil {
			if errors.Is(err, signererr.ErrSignerBusy) {
				writeJSON(w, http.StatusOK, signResponseBody{Busy: true})
				return
			}
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, signResponseBody{Proof: &proof})
	}
}

type addressRequestBody struct {
	Network network.Network `json:"network"`
	Count   int             `json:"count"`
}

func handleAddress(d Dispatcher) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body addressRequestBody
		if !decodeBody(w, r, &body) {
			return
		}
		if body.Count <= 0 {
			body.Count = 1
		}

		addrs, err := d.Address(body.Network, body.Count)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, addrs)
	}
}

// decodeBody reads and JSON-decodes r's body into dst, capped at
// MaxBodyBytes. It writes an error response and returns false on failure.
func decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, MaxBodyBytes)
	defer func() { _ = r.Body.Close() }()

	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			writeError(w, signererr.ErrRequestTooLarge)
			return false
		}
		writeError(w, signererr.ErrInvalidRequest)
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, err error) {
	status := signererr.HTTPStatus(err)
	// spec.md §6: body-too-large and unknown-route map to 500/404 already
	// carried by their sentinel's Status; everything else not already a
	// SignerError also collapses to 500 via HTTPStatus's default.
	writeJSON(w, status, map[string]string{"error": err.Error()})
}
