// Package log provides the process-wide leveled logger. Transports and the
// command-line daemon log through it; structured status reporting goes through
// the status.Sink instead.
package log

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"
)

type Level int

const (
	LevelNone    Level = iota // Disables logging.
	LevelError                // Anomalies not expected during normal use.
	LevelWarning              // Anomalies expected to occur occasionally.
	LevelInfo                 // Major events.
	LevelDebug                // Detailed IO.
)

var labels = map[Level]string{
	LevelDebug:   "[debug]",
	LevelInfo:    "[info ]",
	LevelWarning: "[warn ]",
	LevelError:   "[error]",
}

var (
	mu     sync.Mutex
	level  Level     = LevelInfo
	output io.Writer = os.Stderr
)

// SetLevel sets the global logging level.
func SetLevel(l Level) {
	mu.Lock()
	level = l
	mu.Unlock()
}

// SetOutput redirects log output, primarily for tests.
func SetOutput(w io.Writer) {
	mu.Lock()
	output = w
	mu.Unlock()
}

func write(l Level, format string, a ...interface{}) {
	mu.Lock()
	defer mu.Unlock()
	if l > level {
		return
	}
	msg := fmt.Sprintf("%s %s ", time.Now().Format(time.RFC3339), labels[l])
	msg += fmt.Sprintf(format, a...)
	fmt.Fprintln(output, msg)
}

func Debug(format string, a ...interface{}) {
	write(LevelDebug, format, a...)
}

func Info(format string, a ...interface{}) {
	write(LevelInfo, format, a...)
}

func Warning(format string, a ...interface{}) {
	write(LevelWarning, format, a...)
}

func Error(format string, a ...interface{}) {
	write(LevelError, format, a...)
}
