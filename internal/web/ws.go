package web

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/lexiqai/voice-assistant/internal/assistant"
	"github.com/lexiqai/voice-assistant/internal/observability"
	"github.com/lexiqai/voice-assistant/internal/transcript"
)

const writeWait = 10 * time.Second

// Event types sent to the page
const (
	EventState   = "state"
	EventTurn    = "turn"
	EventNotice  = "notice"
	EventAudio   = "audio"
	EventCleared = "cleared"
	EventHistory = "history"
)

var upgrader = websocket.Upgrader{
	// The page is served from this same process
	CheckOrigin:     func(r *http.Request) bool { return true },
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
}

// Event is one server-to-page message
type Event struct {
	Type        string            `json:"type"`
	SessionID   string            `json:"session_id,omitempty"`
	State       string            `json:"state,omitempty"`
	Turn        *transcript.Turn  `json:"turn,omitempty"`
	Turns       []transcript.Turn `json:"turns,omitempty"`
	Notice      *assistant.Notice `json:"notice,omitempty"`
	AudioBase64 string            `json:"audio_base64,omitempty"`
	MIME        string            `json:"mime,omitempty"`
}

// ClientMessage is a page-to-server text frame. Captures arrive as binary frames.
type ClientMessage struct {
	Type string `json:"type"`
}

// client adapts one websocket connection to assistant.Observer
type client struct {
	conn   *websocket.Conn
	mu     sync.Mutex
	logger zerolog.Logger
}

func (c *client) send(ev Event) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := c.conn.WriteJSON(ev); err != nil {
		c.logger.Debug().Err(err).Str("event", ev.Type).Msg("Failed to send event")
	}
}

func (c *client) OnStateChange(state assistant.State) {
	c.send(Event{Type: EventState, State: state.String()})
}

func (c *client) OnTurn(turn transcript.Turn) {
	c.send(Event{Type: EventTurn, Turn: &turn})
}

func (c *client) OnNotice(notice assistant.Notice) {
	c.send(Event{Type: EventNotice, Notice: &notice})
}

func (c *client) OnAudio(wav []byte) {
	c.send(Event{Type: EventAudio, MIME: "audio/wav", AudioBase64: base64.StdEncoding.EncodeToString(wav)})
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn().Err(err).Msg("Failed to upgrade connection to WebSocket")
		return
	}
	defer conn.Close()

	// Captures can take a while to record; only the size is bounded
	conn.SetReadDeadline(time.Time{})
	if s.maxCaptureBytes > 0 {
		conn.SetReadLimit(s.maxCaptureBytes)
	}

	c := &client{conn: conn, logger: s.logger}
	session := s.newSession(assistant.WithObserver(c))
	c.logger = observability.SessionLogger(session.ID())

	observability.SessionOpened()
	defer observability.SessionClosed()
	c.logger.Info().Str("remote_addr", r.RemoteAddr).Msg("Session started")

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	c.send(Event{Type: EventHistory, SessionID: session.ID(), Turns: session.Turns()})
	c.send(Event{Type: EventState, State: session.State().String()})

	for {
		msgType, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.logger.Warn().Err(err).Msg("WebSocket read error")
			}
			break
		}

		switch msgType {
		case websocket.BinaryMessage:
			// One capture at a time; the next frame is read after playback
			session.HandleCapture(ctx, data)

		case websocket.TextMessage:
			var msg ClientMessage
			if err := json.Unmarshal(data, &msg); err != nil {
				c.logger.Debug().Err(err).Msg("Failed to parse client message")
				c.OnNotice(assistant.Notice{Kind: assistant.NoticeInternal, Message: "Unrecognized message"})
				continue
			}
			s.handleMessage(c, session, msg)
		}
	}

	c.logger.Info().Int("turns", len(session.Turns())).Msg("Session ended")
}

func (s *Server) handleMessage(c *client, session *assistant.Session, msg ClientMessage) {
	switch msg.Type {
	case "clear":
		session.Clear()
		c.send(Event{Type: EventCleared})
	case "history":
		c.send(Event{Type: EventHistory, SessionID: session.ID(), Turns: session.Turns()})
	default:
		c.logger.Debug().Str("type", msg.Type).Msg("Unknown client message")
		c.OnNotice(assistant.Notice{Kind: assistant.NoticeInternal, Message: "Unrecognized message"})
	}
}
