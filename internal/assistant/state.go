package assistant

import "github.com/lexiqai/voice-assistant/internal/transcript"

// State is a step of the capture-to-playback cycle
type State int

const (
	StateIdle State = iota
	StateCaptured
	StateTranscribing
	StateResponding
	StateSynthesizing
	StatePlayback
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateCaptured:
		return "captured"
	case StateTranscribing:
		return "transcribing"
	case StateResponding:
		return "responding"
	case StateSynthesizing:
		return "synthesizing"
	case StatePlayback:
		return "playback"
	default:
		return "unknown"
	}
}

// Observer receives everything the UI needs to render a session.
// Calls happen on the goroutine running the cycle.
type Observer interface {
	OnStateChange(state State)
	OnTurn(turn transcript.Turn)
	OnNotice(notice Notice)
	OnAudio(wav []byte)
}

type noopObserver struct{}

func (noopObserver) OnStateChange(State)    {}
func (noopObserver) OnTurn(transcript.Turn) {}
func (noopObserver) OnNotice(Notice)        {}
func (noopObserver) OnAudio([]byte)         {}
