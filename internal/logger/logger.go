package logger

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/adrg/xdg"
	"github.com/fatih/color"
	"github.com/mattn/go-isatty"
	"github.com/rs/zerolog"
)

// Name is printed after the level label on every console line.
const Name = "provision"

// Options controls how a Logger is built.
type Options struct {
	// Debug lowers the level from INFO to DEBUG.
	Debug bool
	// NoColor disables ANSI colours on the console regardless of the terminal.
	NoColor bool
	// Console receives human readable lines. Defaults to os.Stderr.
	Console io.Writer
	// File, when set, receives a JSON copy of every line (appended).
	File string
}

// Logger writes leveled lines to the console and optionally to a JSON log file.
// It is built once per run and handed to whoever needs it.
type Logger struct {
	zl      zerolog.Logger
	console io.Writer
	level   zerolog.Level
	file    *os.File
	noColor bool
}

// levelColors mirrors the classic bold ANSI palette used for installer output.
var levelColors = map[zerolog.Level]color.Attribute{
	zerolog.DebugLevel: color.FgBlue,
	zerolog.InfoLevel:  color.FgGreen,
	zerolog.WarnLevel:  color.FgYellow,
	zerolog.ErrorLevel: color.FgRed,
	zerolog.FatalLevel: color.FgMagenta,
}

// New builds a Logger. Failing to open the log file is not fatal: the logger
// falls back to console only and says so with a warning.
func New(opts Options) *Logger {
	console := opts.Console
	if console == nil {
		console = os.Stderr
	}
	noColor := opts.NoColor || !ColorSupported(console)

	level := zerolog.InfoLevel
	if opts.Debug {
		level = zerolog.DebugLevel
	}

	l := &Logger{
		console: newConsoleWriter(console, noColor),
		level:   level,
		noColor: noColor,
	}
	l.build()

	if opts.File != "" {
		if err := l.OpenFile(opts.File); err != nil {
			l.Warn("Logging to console only: %v", err)
		}
	}
	return l
}

// build (re)creates the zerolog logger over the console and the file, if open.
func (l *Logger) build() {
	writers := []io.Writer{l.console}
	if l.file != nil {
		writers = append(writers, l.file)
	}
	l.zl = zerolog.New(zerolog.MultiLevelWriter(writers...)).Level(l.level).With().Timestamp().Logger()
}

// OpenFile starts appending a JSON copy of every line to path. The logger
// stays console only when the file cannot be opened.
func (l *Logger) OpenFile(path string) error {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("failed to open log file %s: %w", path, err)
	}
	if l.file != nil {
		_ = l.file.Close()
	}
	l.file = f
	l.build()
	return nil
}

// Nop returns a logger that discards everything. Handy in tests.
func Nop() *Logger {
	return &Logger{zl: zerolog.Nop(), console: io.Discard, level: zerolog.Disabled, noColor: true}
}

// ColorSupported reports whether w is a colour capable terminal. NO_COLOR
// always wins.
func ColorSupported(w io.Writer) bool {
	if _, ok := os.LookupEnv("NO_COLOR"); ok {
		return false
	}
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// DefaultFile returns $XDG_STATE_HOME/provision/provision.log, creating the
// parent directory.
func DefaultFile() (string, error) {
	return xdg.StateFile(Name + "/" + Name + ".log")
}

func newConsoleWriter(out io.Writer, noColor bool) zerolog.ConsoleWriter {
	return zerolog.ConsoleWriter{
		Out:        out,
		NoColor:    noColor,
		PartsOrder: []string{zerolog.LevelFieldName, zerolog.MessageFieldName},
		FormatLevel: func(i any) string {
			lvl, err := zerolog.ParseLevel(fmt.Sprint(i))
			if err != nil {
				lvl = zerolog.NoLevel
			}
			label := fmt.Sprintf("%-8s", levelLabel(lvl))
			attr, ok := levelColors[lvl]
			if noColor || !ok {
				return label
			}
			c := color.New(attr, color.Bold)
			c.EnableColor()
			return c.Sprint(label)
		},
		FormatMessage: func(i any) string {
			if i == nil {
				return Name + ":"
			}
			return fmt.Sprintf("%s: %v", Name, i)
		},
	}
}

func levelLabel(lvl zerolog.Level) string {
	switch lvl {
	case zerolog.WarnLevel:
		return "WARNING"
	case zerolog.FatalLevel:
		return "CRITICAL"
	case zerolog.NoLevel:
		return "-"
	default:
		return strings.ToUpper(lvl.String())
	}
}

// NoColor reports whether console output is uncoloured.
func (l *Logger) NoColor() bool { return l.noColor }

// Debug logs a printf style message at DEBUG.
func (l *Logger) Debug(format string, a ...any) { l.zl.Debug().Msgf(format, a...) }

// Info logs a printf style message at INFO.
func (l *Logger) Info(format string, a ...any) { l.zl.Info().Msgf(format, a...) }

// Warn logs a printf style message at WARNING.
func (l *Logger) Warn(format string, a ...any) { l.zl.Warn().Msgf(format, a...) }

// Error logs a printf style message at ERROR.
func (l *Logger) Error(format string, a ...any) { l.zl.Error().Msgf(format, a...) }

// Close releases the log file, if any.
func (l *Logger) Close() error {
	if l.file == nil {
		return nil
	}
	err := l.file.Close()
	l.file = nil
	l.build()
	return err
}
