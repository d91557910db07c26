package assistant

import (
	"context"
	"os"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/lexiqai/voice-assistant/internal/audio"
	"github.com/lexiqai/voice-assistant/internal/observability"
	"github.com/lexiqai/voice-assistant/internal/stt"
	"github.com/lexiqai/voice-assistant/internal/transcript"
	"github.com/lexiqai/voice-assistant/internal/tts"
)

// Responder produces the assistant's reply for one user utterance
type Responder interface {
	Respond(ctx context.Context, text string, history []transcript.Turn) (response string, cached bool, err error)
}

// Outcome reports what one cycle produced
type Outcome struct {
	Transcript string
	Response   string
	Cached     bool
	Audio      []byte
	Notice     *Notice
}

// Session runs capture-to-playback cycles for one browser connection
type Session struct {
	id          string
	transcriber stt.Transcriber
	responder   Responder
	synthesizer tts.Synthesizer
	transcript  *transcript.Transcript
	observer    Observer
	artifactDir string
	sttTimeout  time.Duration
	ttsTimeout  time.Duration
	logger      zerolog.Logger

	// cycleMu is held for a whole cycle; cycles never overlap
	cycleMu sync.Mutex

	stateMu sync.RWMutex
	state   State
}

// Option customizes a Session
type Option func(*Session)

// WithObserver registers the UI adapter
func WithObserver(o Observer) Option {
	return func(s *Session) {
		if o != nil {
			s.observer = o
		}
	}
}

// WithSessionID overrides the generated session id
func WithSessionID(id string) Option {
	return func(s *Session) { s.id = id }
}

// WithArtifactDir sets where temporary audio files are written
func WithArtifactDir(dir string) Option {
	return func(s *Session) { s.artifactDir = dir }
}

// WithStageTimeouts bounds transcription and synthesis calls; zero means no extra bound
func WithStageTimeouts(transcription, synthesis time.Duration) Option {
	return func(s *Session) {
		s.sttTimeout = transcription
		s.ttsTimeout = synthesis
	}
}

// NewSession creates an idle session with an empty transcript
func NewSession(transcriber stt.Transcriber, responder Responder, synthesizer tts.Synthesizer, opts ...Option) *Session {
	s := &Session{
		transcriber: transcriber,
		responder:   responder,
		synthesizer: synthesizer,
		transcript:  transcript.New(),
		observer:    noopObserver{},
		artifactDir: os.TempDir(),
		state:       StateIdle,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.id == "" {
		s.id = observability.NewSessionID()
	}
	s.logger = observability.SessionLogger(s.id)
	return s
}

// ID returns the session id
func (s *Session) ID() string {
	return s.id
}

// State returns the current cycle state
func (s *Session) State() State {
	s.stateMu.RLock()
	defer s.stateMu.RUnlock()
	return s.state
}

// Turns returns a copy of the transcript
func (s *Session) Turns() []transcript.Turn {
	return s.transcript.Turns()
}

// Clear empties the transcript. The response cache is not touched.
func (s *Session) Clear() {
	s.cycleMu.Lock()
	defer s.cycleMu.Unlock()
	s.transcript.Clear()
	s.logger.Info().Msg("Transcript cleared")
}

// HandleCapture runs one full cycle for a recorded WAV clip. Failures are
// reported as a notice on the outcome and to the observer; the session always
// ends the cycle back in StateIdle with every temporary artifact removed.
func (s *Session) HandleCapture(ctx context.Context, wav []byte) Outcome {
	s.cycleMu.Lock()
	defer s.cycleMu.Unlock()

	cycleID := observability.NewCycleID()
	logger := s.logger.With().Str("cycle_id", cycleID).Logger()
	metrics := observability.NewCycleMetrics(cycleID)
	metrics.RecordAudioBytes("in", int64(len(wav)))

	c := &cycle{session: s, logger: logger, metrics: metrics}
	defer s.setState(StateIdle)
	defer func() {
		if err := c.scope.ReleaseAll(); err != nil {
			logger.Warn().Err(err).Msg("Failed to release audio artifacts")
		}
	}()

	return c.run(ctx, wav)
}

func (s *Session) setState(state State) {
	s.stateMu.Lock()
	changed := s.state != state
	s.state = state
	s.stateMu.Unlock()

	if changed {
		s.observer.OnStateChange(state)
	}
}

// cycle carries the per-cycle bookkeeping of HandleCapture
type cycle struct {
	session *Session
	logger  zerolog.Logger
	metrics *observability.CycleMetrics
	scope   audio.Scope
	outcome Outcome
}

func (c *cycle) run(ctx context.Context, wav []byte) Outcome {
	s := c.session

	s.setState(StateCaptured)
	clip, err := c.capture(wav)
	if err != nil {
		return c.fail(err, "capture")
	}

	s.setState(StateTranscribing)
	text, err := c.transcribe(ctx, clip)
	if err != nil {
		return c.fail(err, observability.StageTranscription)
	}
	c.outcome.Transcript = text

	history := s.transcript.Turns()
	s.observer.OnTurn(s.transcript.Append(transcript.RoleUser, text))

	s.setState(StateResponding)
	response, cached, err := c.respond(ctx, text, history)
	if err != nil {
		return c.fail(err, observability.StageCompletion)
	}
	c.outcome.Response = response
	c.outcome.Cached = cached
	s.observer.OnTurn(s.transcript.Append(transcript.RoleAssistant, response))

	s.setState(StateSynthesizing)
	speech, err := c.synthesize(ctx, response)
	if err != nil {
		return c.fail(err, observability.StageSynthesis)
	}

	s.setState(StatePlayback)
	c.outcome.Audio = speech
	c.metrics.RecordAudioBytes("out", int64(len(speech)))
	s.observer.OnAudio(speech)

	c.metrics.RecordCycleEnd("success")
	c.logger.Info().
		Int("transcript_len", len(text)).
		Int("response_len", len(response)).
		Bool("cached", cached).
		Msg("Cycle completed")
	return c.outcome
}

// capture stores the upload as an artifact and decodes it from there.
// An unreadable container is treated the same as unintelligible speech.
func (c *cycle) capture(wav []byte) (*audio.Clip, error) {
	artifact, err := audio.NewArtifact(c.session.artifactDir, "capture-*.wav", wav)
	if err != nil {
		return nil, err
	}
	c.scope.Track(artifact)

	data, err := artifact.ReadAll()
	if err != nil {
		return nil, err
	}
	clip, err := audio.DecodeWAV(data)
	if err != nil {
		c.logger.Debug().Err(err).Msg("Rejected capture")
		return nil, stt.ErrUnintelligible
	}
	return clip, nil
}

func (c *cycle) transcribe(ctx context.Context, clip *audio.Clip) (string, error) {
	if d := c.session.sttTimeout; d > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d)
		defer cancel()
	}

	c.metrics.RecordStageStart(observability.StageTranscription)
	text, err := c.session.transcriber.Transcribe(ctx, clip)
	c.metrics.RecordStageEnd(observability.StageTranscription, err == nil)
	if err != nil {
		return "", err
	}
	if text == "" {
		return "", stt.ErrUnintelligible
	}
	return text, nil
}

func (c *cycle) respond(ctx context.Context, text string, history []transcript.Turn) (string, bool, error) {
	c.metrics.RecordStageStart(observability.StageCompletion)
	response, cached, err := c.session.responder.Respond(ctx, text, history)
	c.metrics.RecordStageEnd(observability.StageCompletion, err == nil)
	return response, cached, err
}

// synthesize returns the WAV bytes of the spoken response
func (c *cycle) synthesize(ctx context.Context, text string) ([]byte, error) {
	if d := c.session.ttsTimeout; d > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d)
		defer cancel()
	}

	c.metrics.RecordStageStart(observability.StageSynthesis)
	artifact, err := c.session.synthesizer.Synthesize(ctx, text)
	c.scope.Track(artifact)
	if err == nil {
		var data []byte
		data, err = artifact.ReadAll()
		if err == nil {
			c.metrics.RecordStageEnd(observability.StageSynthesis, true)
			return data, nil
		}
		err = &tts.SynthesisError{Engine: "artifact", Err: err}
	}
	c.metrics.RecordStageEnd(observability.StageSynthesis, false)
	return nil, err
}

func (c *cycle) fail(err error, component string) Outcome {
	notice := NoticeFor(err)
	c.outcome.Notice = &notice

	c.metrics.RecordError(string(notice.Kind), component)
	c.metrics.RecordCycleEnd(string(notice.Kind))
	c.logger.Warn().
		Err(err).
		Str("component", component).
		Str("notice", string(notice.Kind)).
		Msg("Cycle ended with notice")

	c.session.observer.OnNotice(notice)
	return c.outcome
}
