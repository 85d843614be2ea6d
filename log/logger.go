package log

import "os"

// Level specifies the minimum severity a logger emits.
type Level int

const (
	// DebugLevel logs everything.
	DebugLevel Level = iota
	// InfoLevel logs informational messages and above.
	InfoLevel
	// WarnLevel logs warnings and errors.
	WarnLevel
	// ErrorLevel logs errors only.
	ErrorLevel
)

// Logger represents an active logging object that generates lines of
// output to an io.Writer.
type Logger interface {
	// Debug starts a new message with debug level.
	Debug(...any)
	// Debugf starts a new message with debug level.
	Debugf(string, ...any)
	// Info starts a new message with info level.
	Info(...any)
	// Infof starts a new message with info level.
	Infof(string, ...any)
	// Warn starts a new message with warn level.
	Warn(...any)
	// Warnf starts a new message with warn level.
	Warnf(string, ...any)
	// Error starts a new message with error level.
	Error(...any)
	// Errorf starts a new message with error level.
	Errorf(string, ...any)
}

var (
	// DefaultLogger outputs messages at InfoLevel and above to stdout.
	DefaultLogger Logger = NewZap(InfoLevel, os.Stdout)

	// DebugLogger outputs messages at DebugLevel and above to stdout.
	DebugLogger Logger = NewZap(DebugLevel, os.Stdout)

	// DiscardLogger drops every message.
	DiscardLogger Logger = discardLogger{}
)
