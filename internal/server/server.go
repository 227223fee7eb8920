// Package server exposes the bridge's HTTP surface: on-demand conversation
// reads, on-demand sends, and a health probe. Handlers talk to the automation
// layer through a narrow interface and never touch the page directly.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"voicebridge/internal/browser"
)

// Conversations is the slice of the automation session the HTTP layer needs.
type Conversations interface {
	Ready() bool
	ReadByItemID(ctx context.Context, account int, itemID string) ([]browser.Message, error)
	ReadByLabel(ctx context.Context, account int, label string) ([]browser.Message, error)
	Send(ctx context.Context, account int, text string) error
}

// Pinger reports persistent store reachability for the health probe.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Server is the HTTP frontend.
type Server struct {
	conv Conversations
	st   Pinger
	log  *zap.Logger
}

// New creates the HTTP frontend.
func New(conv Conversations, st Pinger, log *zap.Logger) *Server {
	return &Server{conv: conv, st: st, log: log}
}

// Handler builds the route table with request logging.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/conversation-send", s.handleSend)
	mux.HandleFunc("/conversation", s.handleConversation)
	mux.HandleFunc("/healthz", s.handleHealthz)
	return s.logRequests(mux)
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{Addr: addr, Handler: s.Handler()}

	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	s.log.Info("http server listening", zap.String("addr", addr))
	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

type sendRequest struct {
	Text         string `json:"text"`
	AccountIndex *int   `json:"account_index"`
}

func (s *Server) handleSend(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if !s.conv.Ready() {
		http.Error(w, browser.ErrSessionNotReady.Error(), http.StatusInternalServerError)
		return
	}

	var req sendRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.Text == "" {
		http.Error(w, "text is required.", http.StatusBadRequest)
		return
	}
	account := 0
	if req.AccountIndex != nil {
		account = *req.AccountIndex
	}

	if err := s.conv.Send(r.Context(), account, req.Text); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	fmt.Fprintf(w, "Message sent in conversation using account index %d.", account)
}

func (s *Server) handleConversation(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if !s.conv.Ready() {
		http.Error(w, browser.ErrSessionNotReady.Error(), http.StatusInternalServerError)
		return
	}

	account := 0
	if v := r.URL.Query().Get("account_index"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeJSONError(w, http.StatusBadRequest, "invalid account_index")
			return
		}
		account = n
	}

	if itemID := r.URL.Query().Get("itemId"); itemID != "" {
		msgs, err := s.conv.ReadByItemID(r.Context(), account, itemID)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusOK, msgs)
		return
	}

	label := r.URL.Query().Get("phone")
	if label == "" {
		writeJSONError(w, http.StatusBadRequest, "Missing 'phone' query param.")
		return
	}

	msgs, err := s.conv.ReadByLabel(r.Context(), account, label)
	if err != nil {
		if errors.Is(err, browser.ErrConversationNotFound) {
			writeJSONError(w, http.StatusNotFound, fmt.Sprintf("No conversation for: %s", label))
			return
		}
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, msgs)
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	status := http.StatusOK
	storeStatus := "ok"
	if err := s.st.Ping(r.Context()); err != nil {
		status = http.StatusServiceUnavailable
		storeStatus = err.Error()
	}
	writeJSON(w, status, map[string]interface{}{
		"session_ready": s.conv.Ready(),
		"store":         storeStatus,
	})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeJSONError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// statusRecorder captures the response code for request logging.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		reqID := uuid.NewString()

		next.ServeHTTP(rec, r)

		s.log.Info("http request",
			zap.String("req", reqID),
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", rec.status),
			zap.Duration("elapsed", time.Since(start)))
	})
}
