package webhook

import (
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

const maxBodyBytes = 1 << 20

type Server struct {
	notifier Notifier
	secret   string
	logger   *zap.Logger
}

func NewServer(notifier Notifier, secret string, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{notifier: notifier, secret: secret, logger: logger}
}

func (s *Server) Router() *mux.Router {
	router := mux.NewRouter()
	router.HandleFunc("/webhook", s.handleWebhook).Methods(http.MethodPost)
	router.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	}).Methods(http.MethodGet)
	return router
}

func (s *Server) handleWebhook(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "failed to read body"})
		return
	}

	if s.secret != "" {
		if err := Verify(s.secret, r.Header.Get(SignatureHeader), body); err != nil {
			s.logger.Warn("webhook signature rejected", zap.Error(err), zap.String("remote", r.RemoteAddr))
			writeJSON(w, http.StatusUnauthorized, map[string]any{"error": err.Error()})
			return
		}
	}

	var payload Payload
	if err := json.Unmarshal(body, &payload); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "invalid JSON payload"})
		return
	}
	if payload.guildID() == "" || payload.Thread.UserID == "" {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "guild_id and thread.user_id are required"})
		return
	}

	switch payload.Type {
	case TypeThreadClosed:
		err = s.notifier.ThreadClosed(r.Context(), payload.closedEvent())
	case TypeThreadMessage:
		if strings.TrimSpace(payload.Content) == "" {
			writeJSON(w, http.StatusBadRequest, map[string]any{"error": "content is required"})
			return
		}
		err = s.notifier.ThreadMessage(r.Context(), payload.messageEvent())
	default:
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "Unknown webhook type"})
		return
	}
	if err != nil {
		s.logger.Warn("webhook "+payload.Type+" failed", zap.Error(err), zap.String("guild_id", payload.guildID()), zap.Int64("thread_id", payload.Thread.ID))
		writeJSON(w, http.StatusInternalServerError, map[string]any{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
