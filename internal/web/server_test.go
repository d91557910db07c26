package web

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/lexiqai/voice-assistant/internal/assistant"
	"github.com/lexiqai/voice-assistant/internal/audio"
	"github.com/lexiqai/voice-assistant/internal/audio/audiotest"
	"github.com/lexiqai/voice-assistant/internal/cache"
	"github.com/lexiqai/voice-assistant/internal/llm"
	"github.com/lexiqai/voice-assistant/internal/stt"
)

type fakeTranscriber struct{ err error }

func (f *fakeTranscriber) Transcribe(ctx context.Context, clip *audio.Clip) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	return "Hello", nil
}

type fakeCompleter struct{}

func (fakeCompleter) Complete(ctx context.Context, messages []llm.Message) (string, error) {
	return "Hi there!", nil
}

type fakeSynthesizer struct{ dir string }

func (f *fakeSynthesizer) Synthesize(ctx context.Context, text string) (*audio.Artifact, error) {
	return audio.NewArtifact(f.dir, "speech-*.wav", audiotest.SpeechWAV())
}

func newTestServer(t *testing.T, transcriber stt.Transcriber) *httptest.Server {
	t.Helper()
	dir := t.TempDir()
	responder := llm.NewResponder(fakeCompleter{}, cache.New(0))
	factory := func(opts ...assistant.Option) *assistant.Session {
		opts = append([]assistant.Option{assistant.WithArtifactDir(dir)}, opts...)
		return assistant.NewSession(transcriber, responder, &fakeSynthesizer{dir: dir}, opts...)
	}

	mux := http.NewServeMux()
	NewServer(factory, 1<<20).Register(mux)
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func dial(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("Dial failed: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readEvent(t *testing.T, conn *websocket.Conn) Event {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	var ev Event
	if err := conn.ReadJSON(&ev); err != nil {
		t.Fatalf("ReadJSON failed: %v", err)
	}
	return ev
}

// readUntilIdle collects events until the session reports idle again
func readUntilIdle(t *testing.T, conn *websocket.Conn) []Event {
	t.Helper()
	var events []Event
	for {
		ev := readEvent(t, conn)
		events = append(events, ev)
		if ev.Type == EventState && ev.State == assistant.StateIdle.String() {
			return events
		}
	}
}

func readGreeting(t *testing.T, conn *websocket.Conn) {
	t.Helper()
	if ev := readEvent(t, conn); ev.Type != EventHistory || ev.SessionID == "" {
		t.Fatalf("Expected history event with session id, got %+v", ev)
	}
	if ev := readEvent(t, conn); ev.Type != EventState || ev.State != "idle" {
		t.Fatalf("Expected idle state event, got %+v", ev)
	}
}

func TestIndexPage(t *testing.T) {
	srv := newTestServer(t, &fakeTranscriber{})

	resp, err := http.Get(srv.URL + "/")
	if err != nil {
		t.Fatalf("GET / failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", resp.StatusCode)
	}
	body, _ := io.ReadAll(resp.Body)
	if !strings.Contains(string(body), "Clear chat") {
		t.Error("Expected page to contain the clear control")
	}

	resp, err = http.Get(srv.URL + "/app.js")
	if err != nil {
		t.Fatalf("GET /app.js failed: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("Expected status 200 for app.js, got %d", resp.StatusCode)
	}
}

func TestWebSocket_CaptureCycle(t *testing.T) {
	srv := newTestServer(t, &fakeTranscriber{})
	conn := dial(t, srv)
	readGreeting(t, conn)

	if err := conn.WriteMessage(websocket.BinaryMessage, audiotest.SpeechWAV()); err != nil {
		t.Fatalf("WriteMessage failed: %v", err)
	}

	var turns []string
	var sawAudio bool
	for _, ev := range readUntilIdle(t, conn) {
		switch ev.Type {
		case EventTurn:
			turns = append(turns, string(ev.Turn.Role)+":"+ev.Turn.Content)
		case EventAudio:
			sawAudio = ev.AudioBase64 != "" && ev.MIME == "audio/wav"
		case EventNotice:
			t.Errorf("Unexpected notice: %+v", ev.Notice)
		}
	}

	if len(turns) != 2 || turns[0] != "user:Hello" || turns[1] != "assistant:Hi there!" {
		t.Errorf("Expected user then assistant turns, got %v", turns)
	}
	if !sawAudio {
		t.Error("Expected an audio event")
	}
}

func TestWebSocket_TranscriptionNotice(t *testing.T) {
	srv := newTestServer(t, &fakeTranscriber{err: &stt.ServiceError{Provider: "Google", Err: errors.New("unreachable")}})
	conn := dial(t, srv)
	readGreeting(t, conn)

	conn.WriteMessage(websocket.BinaryMessage, audiotest.SpeechWAV())

	var notice *assistant.Notice
	for _, ev := range readUntilIdle(t, conn) {
		if ev.Type == EventTurn {
			t.Errorf("Expected no turns, got %+v", ev.Turn)
		}
		if ev.Type == EventNotice {
			notice = ev.Notice
		}
	}
	if notice == nil || notice.Kind != assistant.NoticeTranscriptionUnavailable {
		t.Fatalf("Expected transcription notice, got %+v", notice)
	}
}

func TestWebSocket_ClearAndHistory(t *testing.T) {
	srv := newTestServer(t, &fakeTranscriber{})
	conn := dial(t, srv)
	readGreeting(t, conn)

	conn.WriteMessage(websocket.BinaryMessage, audiotest.SpeechWAV())
	readUntilIdle(t, conn)

	conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"history"}`))
	if ev := readEvent(t, conn); ev.Type != EventHistory || len(ev.Turns) != 2 {
		t.Fatalf("Expected history with 2 turns, got %+v", ev)
	}

	conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"clear"}`))
	if ev := readEvent(t, conn); ev.Type != EventCleared {
		t.Fatalf("Expected cleared event, got %+v", ev)
	}

	conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"history"}`))
	if ev := readEvent(t, conn); ev.Type != EventHistory || len(ev.Turns) != 0 {
		t.Errorf("Expected empty history after clear, got %+v", ev)
	}
}

func TestWebSocket_BadTextFrame(t *testing.T) {
	srv := newTestServer(t, &fakeTranscriber{})
	conn := dial(t, srv)
	readGreeting(t, conn)

	conn.WriteMessage(websocket.TextMessage, []byte("not json"))
	ev := readEvent(t, conn)
	if ev.Type != EventNotice || ev.Notice == nil {
		t.Fatalf("Expected notice event, got %+v", ev)
	}
}
