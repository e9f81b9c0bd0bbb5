// Package server exposes the dispatcher and notification history over HTTP.
package server

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"io"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/riverfjs/tghtml"
	"github.com/riverfjs/tghtml/internal/dispatch"
	"github.com/riverfjs/tghtml/internal/store"
)

const (
	// APIKeyHeader carries the shared secret when one is configured.
	APIKeyHeader = "X-Api-Key"

	maxBodyBytes    = 1 << 20
	shutdownTimeout = 5 * time.Second
)

// Notifier delivers messages. *dispatch.Dispatcher implements it.
type Notifier interface {
	Send(ctx context.Context, chatID int64, markdown string, opts ...dispatch.SendOption) (dispatch.Result, error)
	SendJobNotification(ctx context.Context, chatID int64, job tghtml.JobNotification, opts ...dispatch.SendOption) (dispatch.Result, error)
	Broadcast(ctx context.Context, chatIDs []int64, markdown string, opts ...dispatch.SendOption) (map[int64]dispatch.Result, error)
}

// History reads and updates delivered notifications. *store.Store implements it.
type History interface {
	List(ctx context.Context, limit int) ([]store.Notification, error)
	UnreadCount(ctx context.Context) (int, error)
	MarkRead(ctx context.Context, id string) error
	MarkAllRead(ctx context.Context) (int64, error)
}

// Options configures a Server. History may be nil, in which case the
// notification routes answer 503.
type Options struct {
	Notifier Notifier
	History  History
	APIKey   string
	Logger   *zap.Logger
}

// Server is the HTTP front of the dispatcher.
type Server struct {
	notifier Notifier
	history  History
	apiKey   string
	logger   *zap.Logger
}

// New returns a Server.
func New(opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{
		notifier: opts.Notifier,
		history:  opts.History,
		apiKey:   strings.TrimSpace(opts.APIKey),
		logger:   logger,
	}
}

// Handler returns the route table.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/heartbeat", s.handleHeartbeat)
	mux.HandleFunc("POST /api/notify", s.auth(s.handleNotify))
	mux.HandleFunc("POST /api/notify/job", s.auth(s.handleNotifyJob))
	mux.HandleFunc("GET /api/notifications", s.auth(s.handleListNotifications))
	mux.HandleFunc("POST /api/notifications/read", s.auth(s.handleMarkRead))
	return mux
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts down.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("server_start", zap.String("addr", addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		s.logger.Info("server_stop", zap.String("addr", addr))
		return srv.Shutdown(shutdownCtx)
	}
}

func (s *Server) auth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s.apiKey != "" {
			got := strings.TrimSpace(r.Header.Get(APIKeyHeader))
			if subtle.ConstantTimeCompare([]byte(got), []byte(s.apiKey)) != 1 {
				writeError(w, http.StatusUnauthorized, "unauthorized")
				return
			}
		}
		next(w, r)
	}
}

func (s *Server) handleHeartbeat(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// notifyRequest 填 chat_ids 时广播，chat_id 也会并入目标列表
type notifyRequest struct {
	ChatID         int64   `json:"chat_id"`
	ChatIDs        []int64 `json:"chat_ids,omitempty"`
	Text           string  `json:"text"`
	DisablePreview *bool   `json:"disable_preview,omitempty"`
}

func (r notifyRequest) targets() []int64 {
	var ids []int64
	if r.ChatID != 0 {
		ids = append(ids, r.ChatID)
	}
	return append(ids, r.ChatIDs...)
}

type notifyResponse struct {
	Chunks     int   `json:"chunks"`
	MessageIDs []int `json:"message_ids"`
}

func (s *Server) handleNotify(w http.ResponseWriter, r *http.Request) {
	var req notifyRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	targets := req.targets()
	if len(targets) == 0 {
		writeError(w, http.StatusBadRequest, "missing chat_id")
		return
	}
	for _, id := range targets {
		if id == 0 {
			writeError(w, http.StatusBadRequest, "invalid chat_ids")
			return
		}
	}
	if strings.TrimSpace(req.Text) == "" {
		writeError(w, http.StatusBadRequest, "missing text")
		return
	}

	var opts []dispatch.SendOption
	if req.DisablePreview != nil {
		opts = append(opts, dispatch.WithDisablePreview(*req.DisablePreview))
	}
	if len(req.ChatIDs) == 0 {
		res, err := s.notifier.Send(r.Context(), req.ChatID, req.Text, opts...)
		s.writeDelivery(w, req.ChatID, res, err)
		return
	}
	results, err := s.notifier.Broadcast(r.Context(), targets, req.Text, opts...)
	s.writeBroadcast(w, results, err)
}

type notifyJobRequest struct {
	ChatID int64 `json:"chat_id"`
	tghtml.JobNotification
}

func (s *Server) handleNotifyJob(w http.ResponseWriter, r *http.Request) {
	var req notifyJobRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.ChatID == 0 {
		writeError(w, http.StatusBadRequest, "missing chat_id")
		return
	}
	if strings.TrimSpace(req.JobID) == "" {
		writeError(w, http.StatusBadRequest, "missing job_id")
		return
	}

	res, err := s.notifier.SendJobNotification(r.Context(), req.ChatID, req.JobNotification)
	s.writeDelivery(w, req.ChatID, res, err)
}

func (s *Server) writeDelivery(w http.ResponseWriter, chatID int64, res dispatch.Result, err error) {
	if errors.Is(err, dispatch.ErrEmptyMessage) {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err != nil {
		s.logger.Warn("notify failed",
			zap.Int64("chat_id", chatID),
			zap.Int("delivered", res.Chunks()),
			zap.Error(err),
		)
		writeJSON(w, http.StatusBadGateway, map[string]any{
			"error":       err.Error(),
			"chunks":      res.Chunks(),
			"message_ids": nonNil(res.MessageIDs),
		})
		return
	}
	writeJSON(w, http.StatusOK, notifyResponse{
		Chunks:     res.Chunks(),
		MessageIDs: nonNil(res.MessageIDs),
	})
}

type broadcastResponse struct {
	Error   string                   `json:"error,omitempty"`
	Results map[int64]notifyResponse `json:"results"`
}

func (s *Server) writeBroadcast(w http.ResponseWriter, results map[int64]dispatch.Result, err error) {
	if errors.Is(err, dispatch.ErrEmptyMessage) && len(results) == 0 {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	out := broadcastResponse{Results: make(map[int64]notifyResponse, len(results))}
	for id, res := range results {
		out.Results[id] = notifyResponse{Chunks: res.Chunks(), MessageIDs: nonNil(res.MessageIDs)}
	}
	if err != nil {
		s.logger.Warn("broadcast failed", zap.Int("chats", len(results)), zap.Error(err))
		out.Error = err.Error()
		writeJSON(w, http.StatusBadGateway, out)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

type listResponse struct {
	Notifications []store.Notification `json:"notifications"`
	Unread        int                  `json:"unread"`
}

func (s *Server) handleListNotifications(w http.ResponseWriter, r *http.Request) {
	if s.history == nil {
		writeError(w, http.StatusServiceUnavailable, "notification store disabled")
		return
	}
	limit := 0
	if raw := strings.TrimSpace(r.URL.Query().Get("limit")); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		limit = n
	}

	list, err := s.history.List(r.Context(), limit)
	if err != nil {
		s.internalError(w, err)
		return
	}
	unread, err := s.history.UnreadCount(r.Context())
	if err != nil {
		s.internalError(w, err)
		return
	}
	if list == nil {
		list = []store.Notification{}
	}
	writeJSON(w, http.StatusOK, listResponse{Notifications: list, Unread: unread})
}

type markReadRequest struct {
	ID string `json:"id"`
}

// handleMarkRead 请求体为空时全部标记已读
func (s *Server) handleMarkRead(w http.ResponseWriter, r *http.Request) {
	if s.history == nil {
		writeError(w, http.StatusServiceUnavailable, "notification store disabled")
		return
	}
	var req markReadRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}

	id := strings.TrimSpace(req.ID)
	if id != "" {
		err := s.history.MarkRead(r.Context(), id)
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "notification not found")
			return
		}
		if err != nil {
			s.internalError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]int64{"updated": 1})
		return
	}

	n, err := s.history.MarkAllRead(r.Context())
	if err != nil {
		s.internalError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int64{"updated": n})
}

func (s *Server) internalError(w http.ResponseWriter, err error) {
	s.logger.Error("request failed", zap.Error(err))
	writeError(w, http.StatusInternalServerError, "internal error")
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func nonNil(ids []int) []int {
	if ids == nil {
		return []int{}
	}
	return ids
}
