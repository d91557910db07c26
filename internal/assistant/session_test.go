package assistant

import (
	"context"
	"errors"
	"os"
	"strings"
	"sync"
	"testing"

	"github.com/lexiqai/voice-assistant/internal/audio"
	"github.com/lexiqai/voice-assistant/internal/audio/audiotest"
	"github.com/lexiqai/voice-assistant/internal/cache"
	"github.com/lexiqai/voice-assistant/internal/llm"
	"github.com/lexiqai/voice-assistant/internal/stt"
	"github.com/lexiqai/voice-assistant/internal/transcript"
	"github.com/lexiqai/voice-assistant/internal/tts"
)

type fakeTranscriber struct {
	texts []string
	err   error
	calls int
}

func (f *fakeTranscriber) Transcribe(ctx context.Context, clip *audio.Clip) (string, error) {
	f.calls++
	if f.err != nil {
		return "", f.err
	}
	if len(f.texts) == 0 {
		return "Hello", nil
	}
	text := f.texts[0]
	if len(f.texts) > 1 {
		f.texts = f.texts[1:]
	}
	return text, nil
}

type fakeCompleter struct {
	mu    sync.Mutex
	calls int
	err   error
}

func (f *fakeCompleter) Complete(ctx context.Context, messages []llm.Message) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return "", f.err
	}
	last := messages[len(messages)-1].Content
	if last == "Hello" {
		return "Hi there!", nil
	}
	return "You said: " + last, nil
}

type fakeSynthesizer struct {
	dir   string
	err   error
	calls int
}

func (f *fakeSynthesizer) Synthesize(ctx context.Context, text string) (*audio.Artifact, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return audio.NewArtifact(f.dir, "speech-*.wav", audiotest.SpeechWAV())
}

type recordingObserver struct {
	states  []State
	turns   []transcript.Turn
	notices []Notice
	audio   [][]byte
}

func (r *recordingObserver) OnStateChange(state State)   { r.states = append(r.states, state) }
func (r *recordingObserver) OnTurn(turn transcript.Turn) { r.turns = append(r.turns, turn) }
func (r *recordingObserver) OnNotice(notice Notice)      { r.notices = append(r.notices, notice) }
func (r *recordingObserver) OnAudio(wav []byte)          { r.audio = append(r.audio, wav) }

type harness struct {
	dir         string
	cache       *cache.Cache
	transcriber *fakeTranscriber
	completer   *fakeCompleter
	synthesizer *fakeSynthesizer
	observer    *recordingObserver
	session     *Session
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	dir := t.TempDir()
	h := &harness{
		dir:         dir,
		cache:       cache.New(0),
		transcriber: &fakeTranscriber{},
		completer:   &fakeCompleter{},
		synthesizer: &fakeSynthesizer{dir: dir},
		observer:    &recordingObserver{},
	}
	responder := llm.NewResponder(h.completer, h.cache)
	h.session = NewSession(h.transcriber, responder, h.synthesizer,
		WithObserver(h.observer),
		WithArtifactDir(dir),
		WithSessionID("sess-test"),
	)
	return h
}

func (h *harness) assertNoArtifacts(t *testing.T) {
	t.Helper()
	entries, err := os.ReadDir(h.dir)
	if err != nil {
		t.Fatalf("ReadDir failed: %v", err)
	}
	if len(entries) != 0 {
		t.Errorf("Expected no leftover artifacts, found %d", len(entries))
	}
}

func TestHandleCapture_Success(t *testing.T) {
	h := newHarness(t)

	out := h.session.HandleCapture(context.Background(), audiotest.SpeechWAV())
	if out.Notice != nil {
		t.Fatalf("Expected no notice, got %+v", out.Notice)
	}
	if out.Transcript != "Hello" || out.Response != "Hi there!" {
		t.Errorf("Expected Hello -> Hi there!, got %q -> %q", out.Transcript, out.Response)
	}
	if out.Cached {
		t.Error("Expected first response to come from the backend")
	}
	if len(out.Audio) == 0 {
		t.Error("Expected playback audio")
	}

	turns := h.session.Turns()
	if len(turns) != 2 {
		t.Fatalf("Expected 2 turns, got %d", len(turns))
	}
	if turns[0].Role != transcript.RoleUser || turns[0].Content != "Hello" {
		t.Errorf("Expected user turn 'Hello', got %+v", turns[0])
	}
	if turns[1].Role != transcript.RoleAssistant || turns[1].Content != "Hi there!" {
		t.Errorf("Expected assistant turn 'Hi there!', got %+v", turns[1])
	}

	want := []State{StateCaptured, StateTranscribing, StateResponding, StateSynthesizing, StatePlayback, StateIdle}
	if len(h.observer.states) != len(want) {
		t.Fatalf("Expected states %v, got %v", want, h.observer.states)
	}
	for i, s := range want {
		if h.observer.states[i] != s {
			t.Errorf("Expected state %d to be %s, got %s", i, s, h.observer.states[i])
		}
	}
	if len(h.observer.turns) != 2 || len(h.observer.audio) != 1 {
		t.Errorf("Expected 2 turns and 1 audio event, got %d and %d", len(h.observer.turns), len(h.observer.audio))
	}
	if h.session.State() != StateIdle {
		t.Errorf("Expected idle after cycle, got %s", h.session.State())
	}
	h.assertNoArtifacts(t)
}

func TestHandleCapture_SameTextTwiceCallsBackendOnce(t *testing.T) {
	h := newHarness(t)

	first := h.session.HandleCapture(context.Background(), audiotest.SpeechWAV())
	second := h.session.HandleCapture(context.Background(), audiotest.SpeechWAV())

	if h.completer.calls != 1 {
		t.Errorf("Expected 1 completion call, got %d", h.completer.calls)
	}
	if !second.Cached {
		t.Error("Expected second response to be cached")
	}
	if first.Response != second.Response {
		t.Errorf("Expected identical responses, got %q and %q", first.Response, second.Response)
	}
	if h.session.transcript.Len() != 4 {
		t.Errorf("Expected 4 turns, got %d", h.session.transcript.Len())
	}
	h.assertNoArtifacts(t)
}

func TestHandleCapture_DistinctTextsCachedIndependently(t *testing.T) {
	h := newHarness(t)
	h.transcriber.texts = []string{"Hello", "What time is it"}

	h.session.HandleCapture(context.Background(), audiotest.SpeechWAV())
	out := h.session.HandleCapture(context.Background(), audiotest.SpeechWAV())

	if h.completer.calls != 2 {
		t.Errorf("Expected 2 completion calls, got %d", h.completer.calls)
	}
	if out.Cached {
		t.Error("Expected distinct text to miss the cache")
	}
	if h.cache.Len() != 2 {
		t.Errorf("Expected 2 cache entries, got %d", h.cache.Len())
	}
}

func TestHandleCapture_TranscriptionFailure(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantKind NoticeKind
	}{
		{"unintelligible", stt.ErrUnintelligible, NoticeUnintelligible},
		{"service unavailable", &stt.ServiceError{Provider: "Google", Err: errors.New("connection refused")}, NoticeTranscriptionUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t)
			h.transcriber.err = tt.err

			out := h.session.HandleCapture(context.Background(), audiotest.SpeechWAV())
			if out.Notice == nil || out.Notice.Kind != tt.wantKind {
				t.Fatalf("Expected notice %s, got %+v", tt.wantKind, out.Notice)
			}
			if h.session.transcript.Len() != 0 {
				t.Errorf("Expected transcript unchanged, got %d turns", h.session.transcript.Len())
			}
			if h.completer.calls != 0 || h.synthesizer.calls != 0 {
				t.Error("Expected no completion or synthesis after failed transcription")
			}
			if len(h.observer.notices) != 1 {
				t.Errorf("Expected 1 notice event, got %d", len(h.observer.notices))
			}
			if h.session.State() != StateIdle {
				t.Errorf("Expected idle, got %s", h.session.State())
			}
			h.assertNoArtifacts(t)
		})
	}
}

func TestHandleCapture_ServiceErrorDetailReachesNotice(t *testing.T) {
	h := newHarness(t)
	h.transcriber.err = &stt.ServiceError{Provider: "Google", Err: errors.New("connection refused")}

	out := h.session.HandleCapture(context.Background(), audiotest.SpeechWAV())
	if !strings.HasPrefix(out.Notice.Message, "Could not request results from Google") {
		t.Errorf("Expected Google service message, got '%s'", out.Notice.Message)
	}
	if !strings.Contains(out.Notice.Message, "connection refused") {
		t.Errorf("Expected underlying detail in notice, got '%s'", out.Notice.Message)
	}
}

func TestHandleCapture_InvalidWAV(t *testing.T) {
	h := newHarness(t)

	out := h.session.HandleCapture(context.Background(), []byte("definitely not a wav file"))
	if out.Notice == nil || out.Notice.Kind != NoticeUnintelligible {
		t.Fatalf("Expected unintelligible notice, got %+v", out.Notice)
	}
	if h.transcriber.calls != 0 {
		t.Errorf("Expected transcriber not to be called, got %d calls", h.transcriber.calls)
	}
	h.assertNoArtifacts(t)
}

func TestHandleCapture_CompletionFailureKeepsUserTurn(t *testing.T) {
	h := newHarness(t)
	h.completer.err = errors.New("backend exploded")

	out := h.session.HandleCapture(context.Background(), audiotest.SpeechWAV())
	if out.Notice == nil || out.Notice.Kind != NoticeCompletionFailed {
		t.Fatalf("Expected completion notice, got %+v", out.Notice)
	}

	turns := h.session.Turns()
	if len(turns) != 1 || turns[0].Role != transcript.RoleUser {
		t.Fatalf("Expected only the user turn, got %+v", turns)
	}
	if h.synthesizer.calls != 0 {
		t.Error("Expected no synthesis after failed completion")
	}
	if h.cache.Len() != 0 {
		t.Error("Expected failed completion not to be cached")
	}
	h.assertNoArtifacts(t)
}

func TestHandleCapture_SynthesisFailureKeepsBothTurns(t *testing.T) {
	h := newHarness(t)
	h.synthesizer.err = &tts.SynthesisError{Engine: "espeak", Err: errors.New("exit status 1")}

	out := h.session.HandleCapture(context.Background(), audiotest.SpeechWAV())
	if out.Notice == nil || out.Notice.Kind != NoticeSynthesisFailed {
		t.Fatalf("Expected synthesis notice, got %+v", out.Notice)
	}
	if h.session.transcript.Len() != 2 {
		t.Errorf("Expected 2 turns, got %d", h.session.transcript.Len())
	}
	if len(out.Audio) != 0 || len(h.observer.audio) != 0 {
		t.Error("Expected no playback")
	}
	h.assertNoArtifacts(t)
}

func TestClear_EmptiesTranscriptKeepsCache(t *testing.T) {
	h := newHarness(t)
	h.transcriber.texts = []string{"Hello", "Tell me a joke"}

	h.session.HandleCapture(context.Background(), audiotest.SpeechWAV())
	h.session.HandleCapture(context.Background(), audiotest.SpeechWAV())
	if h.session.transcript.Len() != 4 {
		t.Fatalf("Expected 4 turns before clear, got %d", h.session.transcript.Len())
	}

	h.session.Clear()

	if h.session.transcript.Len() != 0 {
		t.Errorf("Expected 0 turns after clear, got %d", h.session.transcript.Len())
	}
	response, ok := h.cache.Lookup(cache.Fingerprint("Hello"))
	if !ok || response != "Hi there!" {
		t.Errorf("Expected cache to still hold 'Hi there!', got %q (ok=%v)", response, ok)
	}
}

func TestSharedCacheAcrossSessions(t *testing.T) {
	dir := t.TempDir()
	shared := cache.New(0)
	completer := &fakeCompleter{}
	responder := llm.NewResponder(completer, shared)

	a := NewSession(&fakeTranscriber{}, responder, &fakeSynthesizer{dir: dir}, WithArtifactDir(dir))
	b := NewSession(&fakeTranscriber{}, responder, &fakeSynthesizer{dir: dir}, WithArtifactDir(dir))

	a.HandleCapture(context.Background(), audiotest.SpeechWAV())
	out := b.HandleCapture(context.Background(), audiotest.SpeechWAV())

	if completer.calls != 1 {
		t.Errorf("Expected 1 completion call across sessions, got %d", completer.calls)
	}
	if !out.Cached {
		t.Error("Expected second session to hit the shared cache")
	}
	if a.ID() == b.ID() {
		t.Error("Expected distinct session ids")
	}
}

func TestStateString(t *testing.T) {
	if StateSynthesizing.String() != "synthesizing" {
		t.Errorf("Expected 'synthesizing', got '%s'", StateSynthesizing.String())
	}
	if State(42).String() != "unknown" {
		t.Errorf("Expected 'unknown', got '%s'", State(42).String())
	}
}
