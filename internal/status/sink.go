package status

import (
	"github.com/sirupsen/logrus"
)

// chanSink is the message-passing Sink described in the package doc: a
// bounded channel sized generously enough that producers never observe
// backpressure in practice, with sends best-effort so a full buffer (an
// unresponsive consumer) is dropped rather than blocking Redis work.
type chanSink struct {
	events chan Event
}

const sinkBuffer = 4096

func newChanSink() *chanSink {
	return &chanSink{events: make(chan Event, sinkBuffer)}
}

func (s *chanSink) Emit(slot Slot, status Status) {
	select {
	case s.events <- Event{StatusUpdate: true, Slot: slot, Status: status}:
	default:
		// Buffer full: drop rather than block the caller.
	}
}

func (s *chanSink) Log(level Level, message string) {
	select {
	case s.events <- Event{Level: level, Message: message}:
	default:
	}
}

// NewStandardSink returns a Sink whose consumer forwards every event to
// the given logrus logger. It is the default, always-on path: rich mode
// layers a terminal renderer in front of the same event stream, but every
// event still reaches structured logging there too (see NewRichSink).
func NewStandardSink(logger *logrus.Logger) Sink {
	s := newChanSink()
	go consumeStandard(s.events, logger)
	return s
}

func consumeStandard(events <-chan Event, logger *logrus.Logger) {
	for ev := range events {
		if ev.StatusUpdate {
			logger.WithFields(logrus.Fields{"slot": slotName(ev.Slot)}).Info(ev.Status.String())
			continue
		}
		entry := logger.WithField("component", "pool")
		switch ev.Level {
		case LevelDebug:
			entry.Debug(ev.Message)
		case LevelWarn:
			entry.Warn(ev.Message)
		case LevelError:
			entry.Error(ev.Message)
		default:
			entry.Info(ev.Message)
		}
	}
}

func slotName(slot Slot) string {
	if slot == Redis {
		return "redis"
	}
	return "server"
}
