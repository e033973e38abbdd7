// Package events is the diagnostic stream emitted by TLS sessions and HTTP probes.
// Consumers choose what they see with a Filter over typed fields rather than by grepping log text.
package events

import (
	"fmt"
	"time"
)

type Kind int

const (
	KindStage Kind = iota // a handshake or connection milestone
	KindData              // bytes moving in one direction
	KindText              // free-form diagnostic
)

func (k Kind) String() string {
	switch k {
	case KindStage:
		return "stage"
	case KindData:
		return "data"
	case KindText:
		return "text"
	default:
		return "unknown"
	}
}

type Stage string

const (
	StageDNSStart      Stage = "dns-start"
	StageDNSDone       Stage = "dns-done"
	StageConnect       Stage = "connect"
	StageConnected     Stage = "connected"
	StageClientHello   Stage = "client-hello"
	StageVerify        Stage = "verify"
	StageHandshakeDone Stage = "handshake-done"
	StageALPN          Stage = "alpn"
	StageProtocol      Stage = "protocol"
	StageClose         Stage = "close"
)

type Direction int

const (
	DirIn Direction = iota
	DirOut
)

func (d Direction) String() string {
	if d == DirOut {
		return "out"
	}
	return "in"
}

// Event is a tagged variant: Stage is set for KindStage, Direction and Bytes for KindData. Text may accompany any kind.
type Event struct {
	Time      time.Time
	Kind      Kind
	Stage     Stage
	Direction Direction
	Bytes     int
	Text      string
}

func (e Event) String() string {
	switch e.Kind {
	case KindStage:
		if e.Text != "" {
			return fmt.Sprintf("[%s] %s", e.Stage, e.Text)
		}
		return fmt.Sprintf("[%s]", e.Stage)
	case KindData:
		return fmt.Sprintf("[data-%s] %d bytes", e.Direction, e.Bytes)
	default:
		return e.Text
	}
}

type Filter func(Event) bool

type Sink func(Event)

func All(Event) bool  { return true }
func None(Event) bool { return false }

func Only(kinds ...Kind) Filter {
	return func(e Event) bool {
		for _, k := range kinds {
			if e.Kind == k {
				return true
			}
		}
		return false
	}
}

func Stages(stages ...Stage) Filter {
	return func(e Event) bool {
		if e.Kind != KindStage {
			return false
		}
		for _, s := range stages {
			if e.Stage == s {
				return true
			}
		}
		return false
	}
}

func Or(fs ...Filter) Filter {
	return func(e Event) bool {
		for _, f := range fs {
			if f(e) {
				return true
			}
		}
		return false
	}
}

// Emitter pairs a Sink with the Filter deciding what reaches it. The zero value drops everything.
type Emitter struct {
	Sink   Sink
	Filter Filter
	Now    func() time.Time
}

func (em Emitter) Emit(e Event) {
	if em.Sink == nil {
		return
	}
	if em.Filter != nil && !em.Filter(e) {
		return
	}
	if e.Time.IsZero() {
		if em.Now != nil {
			e.Time = em.Now()
		} else {
			e.Time = time.Now()
		}
	}
	em.Sink(e)
}

func (em Emitter) Stage(s Stage, text string) {
	em.Emit(Event{Kind: KindStage, Stage: s, Text: text})
}

func (em Emitter) Data(d Direction, n int) {
	em.Emit(Event{Kind: KindData, Direction: d, Bytes: n})
}

func (em Emitter) Text(format string, args ...interface{}) {
	em.Emit(Event{Kind: KindText, Text: fmt.Sprintf(format, args...)})
}

// Recorder is a Sink that keeps everything, for tests and for printing after the fact.
type Recorder struct {
	Events []Event
}

func (r *Recorder) Sink(e Event) {
	r.Events = append(r.Events, e)
}
