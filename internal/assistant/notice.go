package assistant

import (
	"errors"
	"fmt"
	"unicode"
	"unicode/utf8"

	"github.com/lexiqai/voice-assistant/internal/llm"
	"github.com/lexiqai/voice-assistant/internal/stt"
	"github.com/lexiqai/voice-assistant/internal/tts"
)

// NoticeKind identifies which step of a cycle failed
type NoticeKind string

const (
	NoticeUnintelligible           NoticeKind = "unintelligible"
	NoticeTranscriptionUnavailable NoticeKind = "transcription_unavailable"
	NoticeCompletionFailed         NoticeKind = "completion_failed"
	NoticeSynthesisFailed          NoticeKind = "synthesis_failed"
	NoticeInternal                 NoticeKind = "internal"
)

// Notice is a user-facing, already formatted failure report. A notice never
// ends the session.
type Notice struct {
	Kind    NoticeKind `json:"kind"`
	Message string     `json:"message"`
}

// NoticeFor converts an adapter failure into a notice
func NoticeFor(err error) Notice {
	var svcErr *stt.ServiceError
	var complErr *llm.CompletionError
	var synthErr *tts.SynthesisError

	switch {
	case errors.Is(err, stt.ErrUnintelligible):
		return Notice{Kind: NoticeUnintelligible, Message: "Could not understand the audio"}
	case errors.As(err, &svcErr):
		return Notice{Kind: NoticeTranscriptionUnavailable, Message: capitalize(svcErr.Error())}
	case errors.Is(err, stt.ErrServiceUnavailable):
		return Notice{Kind: NoticeTranscriptionUnavailable, Message: capitalize(err.Error())}
	case errors.As(err, &complErr):
		return Notice{Kind: NoticeCompletionFailed, Message: completionMessage(complErr)}
	case errors.As(err, &synthErr):
		return Notice{Kind: NoticeSynthesisFailed, Message: fmt.Sprintf("Could not play the response; %v", synthErr)}
	case err == nil:
		return Notice{Kind: NoticeInternal, Message: "Something went wrong"}
	}
	return Notice{Kind: NoticeInternal, Message: capitalize(err.Error())}
}

func completionMessage(err *llm.CompletionError) string {
	switch err.Kind {
	case llm.KindAuth:
		return "The assistant rejected our credentials; check GROQ_API_KEY"
	case llm.KindRateLimit:
		return "The assistant is rate limiting requests; try again shortly"
	case llm.KindNetwork:
		return fmt.Sprintf("Could not reach the assistant; %v", err.Err)
	case llm.KindEmpty:
		return "The assistant returned an empty response"
	}
	return fmt.Sprintf("The assistant failed to respond; %v", err.Err)
}

func capitalize(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return s
	}
	return string(unicode.ToUpper(r)) + s[size:]
}
