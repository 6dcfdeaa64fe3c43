package render

import (
	"fmt"
	"log"
	"os"
	"strings"
)

// LogSink is the default Sink: it emits the terminal output contract
// lines spec.md §6 names verbatim, plus a compact line-oriented dump
// of the document and active peers, all through a *log.Logger so it
// composes with the rest of a peer process's logging.
type LogSink struct {
	logger *log.Logger
}

// NewLogSink wraps logger. A nil logger is replaced by one over
// os.Stdout using the same log.LstdFlags convention the rest of the
// module's component loggers use.
func NewLogSink(logger *log.Logger) *LogSink {
	if logger == nil {
		logger = log.New(os.Stdout, "", log.LstdFlags)
	}
	return &LogSink{logger: logger}
}

func (s *LogSink) Render(docName string, lines []string, peers []Peer, last *LastChange) {
	var b strings.Builder
	fmt.Fprintf(&b, "Document: %s\n", docName)
	for i, l := range lines {
		fmt.Fprintf(&b, "Line %d: %s", i, l)
		if last != nil && last.Line == i {
			b.WriteString(" [MODIFIED]")
		}
		b.WriteByte('\n')
	}
	b.WriteString("Active users: ")
	if len(peers) == 0 {
		b.WriteString("(none)")
	} else {
		names := make([]string, len(peers))
		for i, p := range peers {
			names[i] = p.UserID
		}
		b.WriteString(strings.Join(names, ", "))
	}
	b.WriteByte('\n')
	if last != nil && last.ColStart >= 0 {
		fmt.Fprintf(&b, "Change detected: Line %d, col %d-%d, %q -> %q\n",
			last.Line, last.ColStart, last.ColEnd, last.OldText, last.NewText)
	}
	s.logger.Print(b.String())
}

func (s *LogSink) QueueCreated(name string) {
	s.logger.Printf("Message queue created: %s", name)
}

func (s *LogSink) Registered(userID string) {
	s.logger.Printf("Registered as %s", userID)
}

func (s *LogSink) Broadcasting(count int) {
	s.logger.Printf("Broadcasting %d operations...", count)
}

func (s *LogSink) ReceivedFrom(sender string) {
	s.logger.Printf("Received update from %s", sender)
}

func (s *LogSink) MergedSuccessfully() {
	s.logger.Print("All updates merged successfully")
}
