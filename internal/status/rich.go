package status

import (
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"
)

// richState is the mutable panel state redrawn on every event, modeled on
// console/state.rs's ConsoleState.
type richState struct {
	serverStatus Status
	redisStatus  Status
	serverAddr   string
	redisAddr    string
	connections  int
	maxRetry     int
	version      string
}

// RichConsole renders server and Redis status as a small full-screen
// panel, redrawn on every event. It is a much simpler cousin of
// console/render.rs's ratatui-based renderer: no external terminal-UI
// dependency is pulled in for a feature that is off by default (see
// DESIGN.md), but the layout mirrors the original: a banner, then
// Server/Redis status lines, then the static configuration.
type RichConsole struct {
	out io.Writer
	mu  sync.Mutex
	st  richState
}

// NewRichSink starts a Sink whose consumer redraws a terminal panel on
// every event, in addition to forwarding every event to structured
// logging via logger (so `journalctl`/log-scraping still sees everything
// rich mode shows interactively).
func NewRichSink(out io.Writer, logger *logrus.Logger, serverAddr, redisAddr string, connections, maxRetry int, version string) (Sink, *RichConsole) {
	rc := &RichConsole{
		out: out,
		st: richState{
			serverStatus: Starting,
			redisStatus:  Establishing,
			serverAddr:   serverAddr,
			redisAddr:    redisAddr,
			connections:  connections,
			maxRetry:     maxRetry,
			version:      version,
		},
	}
	s := newChanSink()
	go func() {
		for ev := range s.events {
			if ev.StatusUpdate {
				rc.update(ev.Slot, ev.Status)
				logger.WithField("slot", slotName(ev.Slot)).Info(ev.Status.String())
				continue
			}
			// Rich mode shows only the status panel; log lines still reach
			// structured logging for operators tailing files.
			logger.WithField("component", "pool").Log(logrusLevel(ev.Level), ev.Message)
		}
	}()
	rc.draw()
	return s, rc
}

func logrusLevel(l Level) logrus.Level {
	switch l {
	case LevelDebug:
		return logrus.DebugLevel
	case LevelWarn:
		return logrus.WarnLevel
	case LevelError:
		return logrus.ErrorLevel
	default:
		return logrus.InfoLevel
	}
}

func (rc *RichConsole) update(slot Slot, s Status) {
	rc.mu.Lock()
	if slot == Redis {
		rc.st.redisStatus = s
	} else {
		rc.st.serverStatus = s
	}
	state := rc.st
	rc.mu.Unlock()
	rc.paint(state)
}

func (rc *RichConsole) draw() {
	rc.mu.Lock()
	state := rc.st
	rc.mu.Unlock()
	rc.paint(state)
}

const banner = "" +
	"  _____ _           _     _              \n" +
	" / ____| |         | |   | |             \n" +
	"| (___ | | __ _ ___| |__ | | ___  ___ ___\n" +
	" \\___ \\| |/ _' |/ __| '_ \\| |/ _ \\/ __/ __|\n" +
	" ____) | | (_| \\__ \\ | | | |  __/\\__ \\__ \\\n" +
	"|_____/|_|\\__,_|___/_| |_|_|\\___||___/___/\n"

func (rc *RichConsole) paint(st richState) {
	rc.mu.Lock()
	defer rc.mu.Unlock()

	var b strings.Builder
	b.WriteString("\x1b[2J\x1b[H") // clear screen, cursor home
	b.WriteString(banner)
	fmt.Fprintf(&b, "  v%s\n\n", st.version)
	fmt.Fprintf(&b, "  Server Status     %s\n", st.serverStatus)
	fmt.Fprintf(&b, "  Redis Status      %s\n\n", st.redisStatus)
	fmt.Fprintf(&b, "  Listen Address    %s\n", st.serverAddr)
	fmt.Fprintf(&b, "  Redis Endpoint    %s\n", st.redisAddr)
	fmt.Fprintf(&b, "  Pool Size         %d\n", st.connections)
	if st.maxRetry == -1 {
		b.WriteString("  Max Retries       unlimited\n")
	} else {
		fmt.Fprintf(&b, "  Max Retries       %d\n", st.maxRetry)
	}
	io.WriteString(rc.out, b.String())
}

// Cleanup restores the terminal to a plain, scrollable state. It must be
// called before the process exits on every path, including after a
// shutdown signal, so that the final log line is not left under a
// full-screen panel.
func (rc *RichConsole) Cleanup() {
	io.WriteString(rc.out, "\x1b[2J\x1b[H")
}
