// Package telemetry wires up the host's ambient logging and metrics stack:
// a logutils-filtered leveled logger with colorized debug output and a
// syslog fan-out for production errors, plus an armon/go-metrics sink for
// transaction and RPC counters/timers. This is the same trio (logutils +
// fatih/color + mattn/go-colorable) generalized to the host's two named
// levels.
package telemetry

import (
	"io"
	"log"
	"os"
	"strings"

	"github.com/fatih/color"
	gsyslog "github.com/hashicorp/go-syslog"
	"github.com/hashicorp/logutils"
	colorable "github.com/mattn/go-colorable"
)

// Level mirrors the host configuration's logLevel field.
type Level string

const (
	LevelProd  Level = "prod"
	LevelDebug Level = "debug"
)

var allLevels = []logutils.LogLevel{"DEBUG", "INFO", "WARN", "ERROR"}

// LoggerConfig controls NewLogger.
type LoggerConfig struct {
	// Level selects the minimum severity and, indirectly, the output
	// destinations below.
	Level Level
	// Writer overrides the debug-level colorable stdout writer, mainly for
	// tests; nil selects colorable.NewColorableStdout().
	Writer io.Writer
	// Facility selects the syslog facility used in "prod" mode; empty
	// selects "LOCAL0".
	Facility string
	// Prefix is prepended to every line.
	Prefix string
}

// NewLogger builds a *log.Logger filtered to cfg.Level. In debug mode it
// writes colorized lines to a colorable stdout; in prod mode it writes
// plain lines to stdout and fans ERROR+ out to syslog (best-effort: if
// syslog is unavailable, as it commonly is outside Unix hosts, the syslog
// writer is silently omitted rather than failing startup).
func NewLogger(cfg LoggerConfig) *log.Logger {
	minLevel := logutils.LogLevel("WARN")
	if cfg.Level == LevelDebug {
		minLevel = "DEBUG"
	}

	var dest io.Writer
	if cfg.Writer != nil {
		dest = cfg.Writer
	} else if cfg.Level == LevelDebug {
		dest = colorable.NewColorableStdout()
	} else {
		dest = os.Stdout
	}

	if cfg.Level == LevelDebug {
		dest = &colorizer{w: dest}
	}

	writers := []io.Writer{dest}
	if cfg.Level == LevelProd {
		if sw, err := gsyslog.NewLogger(gsyslog.LOG_ERR, facilityOrDefault(cfg.Facility), "actionhost"); err == nil {
			writers = append(writers, &syslogLevelWriter{w: sw})
		}
	}

	filter := &logutils.LevelFilter{
		Levels:   allLevels,
		MinLevel: minLevel,
		Writer:   io.MultiWriter(writers...),
	}

	return log.New(filter, cfg.Prefix, log.LstdFlags)
}

func facilityOrDefault(f string) string {
	if f == "" {
		return "LOCAL0"
	}
	return f
}

// colorizer tints well-known level prefixes ("[ERROR]"/"[ERR]", "[WARN]", ...)
// before handing the line to the underlying writer, colorizing output with
// fatih/color.
type colorizer struct{ w io.Writer }

func (c *colorizer) Write(p []byte) (int, error) {
	s := string(p)
	switch {
	case strings.Contains(s, "[ERROR]") || strings.Contains(s, "[ERR]"):
		s = color.RedString("%s", s)
	case strings.Contains(s, "[WARN]"):
		s = color.YellowString("%s", s)
	case strings.Contains(s, "[DEBUG]"):
		s = color.New(color.Faint).Sprintf("%s", s)
	}
	n, err := c.w.Write([]byte(s))
	if err != nil {
		return n, err
	}
	return len(p), nil
}

// syslogLevelWriter only forwards lines at WARN/ERROR; logutils already
// filtered below MinLevel, but in prod mode MinLevel is WARN so this is a
// second, narrower filter keeping INFO (if ever re-enabled) off syslog.
type syslogLevelWriter struct{ w gsyslog.Syslogger }

func (s *syslogLevelWriter) Write(p []byte) (int, error) {
	line := string(p)
	if strings.Contains(line, "[ERROR]") || strings.Contains(line, "[ERR]") {
		_ = s.w.WriteLevel(gsyslog.LOG_ERR, p)
	} else if strings.Contains(line, "[WARN]") {
		_ = s.w.WriteLevel(gsyslog.LOG_WARNING, p)
	}
	return len(p), nil
}
