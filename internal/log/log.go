// Package log configures apex/log for the CLI.
package log

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/apex/log"
)

// Init installs the compact handler writing to stderr. The level comes from
// KUBDASH_LOG when set, otherwise from level, otherwise "error".
func Init(level string) {
	if env := os.Getenv("KUBDASH_LOG"); env != "" {
		level = env
	}
	if level == "" {
		level = "error"
	}
	log.SetHandler(&Handler{Writer: os.Stderr})
	lvl, err := log.ParseLevel(strings.ToLower(level))
	if err != nil {
		log.SetLevel(log.ErrorLevel)
		log.WithField("level", level).Warn("unknown log level, using error")
		return
	}
	log.SetLevel(lvl)
}

// Handler formats entries as "timestamp L message key=value ...".
type Handler struct {
	Writer io.Writer
}

// HandleLog implements the log.Handler interface.
func (h *Handler) HandleLog(e *log.Entry) error {
	timestamp := e.Timestamp
	if timestamp.IsZero() {
		timestamp = time.Now()
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s %.1s %s", timestamp.Format("2006-01-02 15:04:05"), strings.ToUpper(e.Level.String()), e.Message)

	for _, name := range e.Fields.Names() {
		fmt.Fprintf(&b, " %s=%v", name, e.Fields.Get(name))
	}
	b.WriteByte('\n')

	_, err := io.WriteString(h.Writer, b.String())
	return err
}
