package api

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"Satellite/internal/logger"
	"Satellite/internal/program"
	"Satellite/internal/runtime"
	"Satellite/internal/state"
)

const (
	// maxTxSize is the maximum transaction size in bytes.
	maxTxSize = 1 << 20 // 1 MB
)

// Runtime executes transactions and exposes the committed state.
type Runtime interface {
	Execute(tx *runtime.Transaction) (*runtime.Receipt, error)
	Account(key solana.PublicKey) (*state.Account, error)
	ProgramID() solana.PublicKey
	Custody() (solana.PublicKey, uint8)
	Executed() uint64
	Snapshot() ([]byte, error)
}

// Server is the HTTP API server.
type Server struct {
	addr    string       // addr is the HTTP listen address
	runtime Runtime      // runtime executes submitted transactions
	metrics *Metrics     // metrics counts transaction outcomes
	server  *http.Server // server is the underlying HTTP server
}

// New creates a new HTTP API server.
func New(addr string, rt Runtime, metrics *Metrics) *Server {
	return &Server{
		addr:    addr,
		runtime: rt,
		metrics: metrics,
	}
}

// Handler returns the routed API.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /tx", s.handleSubmitTx)
	mux.HandleFunc("GET /accounts/{address}", s.handleAccount)
	mux.HandleFunc("GET /status", s.handleStatus)
	mux.HandleFunc("GET /snapshot", s.handleSnapshot)
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.Handle("GET /metrics", promhttp.HandlerFor(s.metrics.registry, promhttp.HandlerOpts{}))

	return mux
}

// Start starts the HTTP server in a goroutine.
func (s *Server) Start() error {
	s.server = &http.Server{
		Addr:         s.addr,
		Handler:      s.Handler(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	go func() {
		logger.Info("http api started", "addr", s.addr)

		if err := s.server.ListenAndServe(); err != http.ErrServerClosed {
			logger.Error("http server error", "error", err)
		}
	}()

	return nil
}

// Stop gracefully shuts down the HTTP server.
func (s *Server) Stop() error {
	if s.server == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	return s.server.Shutdown(ctx)
}

// handleSubmitTx handles POST /tx requests.
func (s *Server) handleSubmitTx(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxTxSize))
	if err != nil {
		writeError(w, http.StatusBadRequest, "failed to read body")
		return
	}

	if len(body) == 0 {
		s.metrics.rejected("malformed")
		writeError(w, http.StatusBadRequest, "empty transaction")
		return
	}

	tx, err := runtime.DecodeTransaction(body)
	if err != nil {
		s.metrics.rejected("malformed")
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	receipt, err := s.runtime.Execute(tx)
	if err != nil {
		s.writeExecuteError(w, err)
		return
	}

	s.metrics.TxExecuted.Inc()

	writeJSON(w, http.StatusOK, map[string]any{
		"hash":     hex.EncodeToString(receipt.Hash[:]),
		"sequence": receipt.Sequence,
	})
}

// writeExecuteError maps an execution failure to its HTTP status.
func (s *Server) writeExecuteError(w http.ResponseWriter, err error) {
	var pe *program.Error
	if errors.As(err, &pe) {
		s.metrics.rejected("program")
		writeJSON(w, http.StatusUnprocessableEntity, map[string]any{
			"error":  pe.Label,
			"label":  pe.Label,
			"code":   pe.Code,
			"detail": strings.Split(err.Error(), "\n"), // detail is the wrap chain, outermost first
		})
		return
	}

	switch {
	case errors.Is(err, runtime.ErrBadSignature):
		s.metrics.rejected("signature")
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, runtime.ErrReplay):
		s.metrics.rejected("replay")
		writeError(w, http.StatusConflict, err.Error())
	default:
		s.metrics.rejected("internal")
		logger.Error("transaction execution failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

// handleAccount handles GET /accounts/{address} requests.
func (s *Server) handleAccount(w http.ResponseWriter, r *http.Request) {
	key, err := solana.PublicKeyFromBase58(r.PathValue("address"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid address")
		return
	}

	acc, err := s.runtime.Account(key)
	if err != nil {
		logger.Error("account lookup failed", "address", key, "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	if acc == nil {
		writeError(w, http.StatusNotFound, "account not found")
		return
	}

	writeJSON(w, http.StatusOK, viewAccount(key, acc))
}

// handleStatus handles GET /status requests.
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	custody, bump := s.runtime.Custody()

	writeJSON(w, http.StatusOK, map[string]any{
		"programId": s.runtime.ProgramID().String(),
		"custody":   custody.String(),
		"bump":      bump,
		"executed":  s.runtime.Executed(),
	})
}

// handleSnapshot handles GET /snapshot requests.
func (s *Server) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	data, err := s.runtime.Snapshot()
	if err != nil {
		logger.Error("snapshot export failed", "error", err)
		writeError(w, http.StatusInternalServerError, "snapshot failed")
		return
	}

	s.metrics.Snapshots.Inc()

	w.Header().Set("Content-Type", "application/zstd")
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}

// handleHealth handles GET /health requests.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status": "ok",
	})
}

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// writeError writes an error response.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{
		"error": message,
	})
}
