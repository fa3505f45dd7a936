// Package logger is a minimal leveled logger over the standard log
// package: Errorf/Infof/Debugf/Tracef write through a single global
// verbosity gate, in the same style as the teacher's own wrapper around
// log.Printf.
package logger

import (
	"log"
	"os"
)

// Level is a logging verbosity tier. Higher values are more verbose.
type Level int

const (
	Error Level = iota
	Info
	Debug
	Trace
)

// String renders a level as the bracketed prefix it logs under.
func (l Level) String() string {
	switch l {
	case Error:
		return "[ERROR]"
	case Info:
		return "[INFO] "
	case Debug:
		return "[DEBUG]"
	case Trace:
		return "[TRACE]"
	default:
		return "[?????]"
	}
}

// current is the active verbosity; only messages at or below it log.
var current = Info

func init() {
	log.SetOutput(os.Stderr)
	log.SetFlags(log.LstdFlags | log.Lshortfile)
}

// SetVerbosity sets the global logging verbosity, typically once at
// startup after flags are parsed.
func SetVerbosity(v int) {
	current = Level(v)
}

func logf(l Level, format string, args ...any) {
	if current >= l {
		log.Printf(l.String()+" "+format, args...)
	}
}

// Errorf logs a failure that requires attention.
func Errorf(format string, args ...any) { logf(Error, format, args...) }

// Infof logs a major lifecycle event.
func Infof(format string, args ...any) { logf(Info, format, args...) }

// Debugf logs diagnostic output useful while developing.
func Debugf(format string, args ...any) { logf(Debug, format, args...) }

// Tracef logs fine-grained execution detail; expect high volume.
func Tracef(format string, args ...any) { logf(Trace, format, args...) }
