package web

import (
	"embed"
	"io/fs"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/lexiqai/voice-assistant/internal/assistant"
	"github.com/lexiqai/voice-assistant/internal/observability"
)

//go:embed static/*
var staticFS embed.FS

// SessionFactory builds a new assistant session for one connection
type SessionFactory func(opts ...assistant.Option) *assistant.Session

// Server exposes the chat page and its websocket session endpoint
type Server struct {
	newSession      SessionFactory
	maxCaptureBytes int64
	logger          zerolog.Logger
}

// NewServer creates the UI server. maxCaptureBytes bounds a single recorded clip.
func NewServer(newSession SessionFactory, maxCaptureBytes int64) *Server {
	return &Server{
		newSession:      newSession,
		maxCaptureBytes: maxCaptureBytes,
		logger:          observability.GetLogger().With().Str("component", "web").Logger(),
	}
}

// Register mounts / (embedded page) and /ws on mux
func (s *Server) Register(mux *http.ServeMux) {
	sub, err := fs.Sub(staticFS, "static")
	if err != nil {
		s.logger.Error().Err(err).Msg("Static UI filesystem unavailable")
		sub = staticFS
	}
	mux.Handle("/", http.FileServer(http.FS(sub)))
	mux.HandleFunc("/ws", s.handleWS)
}
