// Package logx implements a small structured logger used across
// tensorcore's packages for operation-level tracing. It is adapted from
// the teacher's hand-rolled kernel/utils logger: level + component +
// colorized output + key/value Fields, without the syscall/js console
// bridge (host console logging is out of scope per spec.md §1).
package logx

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"
)

// Level is the severity of a log message.
type Level int

const (
	Debug Level = iota
	Info
	Warn
	Error
)

var levelNames = map[Level]string{
	Debug: "DEBUG",
	Info:  "INFO",
	Warn:  "WARN",
	Error: "ERROR",
}

var levelColors = map[Level]string{
	Debug: "\033[36m",
	Info:  "\033[32m",
	Warn:  "\033[33m",
	Error: "\033[31m",
}

const colorReset = "\033[0m"

// Field is a key/value pair attached to a log line.
type Field struct {
	Key   string
	Value any
}

func (f Field) format() string {
	switch v := f.Value.(type) {
	case string:
		return fmt.Sprintf("%q", v)
	case error:
		return fmt.Sprintf("%q", v.Error())
	case time.Duration:
		return v.String()
	default:
		return fmt.Sprintf("%v", v)
	}
}

func String(key, value string) Field    { return Field{key, value} }
func Int(key string, value int) Field   { return Field{key, value} }
func Uint64(key string, v uint64) Field { return Field{key, v} }
func Float64(key string, v float64) Field { return Field{key, v} }
func Bool(key string, v bool) Field     { return Field{key, v} }
func Err(err error) Field               { return Field{"error", err} }
func Any(key string, v any) Field       { return Field{key, v} }

// Logger is a minimal level-gated, component-tagged logger.
type Logger struct {
	mu        sync.Mutex
	level     Level
	component string
	output    io.Writer
	colorize  bool
}

// Config configures a Logger.
type Config struct {
	Level     Level
	Component string
	Output    io.Writer
	Colorize  bool
}

// New creates a Logger from Config, defaulting Output to os.Stdout.
func New(cfg Config) *Logger {
	if cfg.Output == nil {
		cfg.Output = os.Stdout
	}
	return &Logger{level: cfg.Level, component: cfg.Component, output: cfg.Output, colorize: cfg.Colorize}
}

// Default returns a Logger at Info level tagged with component.
func Default(component string) *Logger {
	return New(Config{Level: Info, Component: component, Colorize: true})
}

// With returns a logger for a different component sharing this one's sink.
func (l *Logger) With(component string) *Logger {
	return &Logger{level: l.level, component: component, output: l.output, colorize: l.colorize}
}

func (l *Logger) Debug(msg string, fields ...Field) { l.log(Debug, msg, fields...) }
func (l *Logger) Info(msg string, fields ...Field)  { l.log(Info, msg, fields...) }
func (l *Logger) Warn(msg string, fields ...Field)  { l.log(Warn, msg, fields...) }
func (l *Logger) Error(msg string, fields ...Field) { l.log(Error, msg, fields...) }

func (l *Logger) log(level Level, msg string, fields ...Field) {
	if level < l.level {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	var b strings.Builder
	if l.colorize {
		b.WriteString(levelColors[level])
	}
	b.WriteString("[")
	b.WriteString(time.Now().Format("15:04:05.000"))
	b.WriteString("] [")
	b.WriteString(fmt.Sprintf("%-5s", levelNames[level]))
	b.WriteString("] ")
	if l.component != "" {
		b.WriteString("[")
		b.WriteString(l.component)
		b.WriteString("] ")
	}
	b.WriteString(msg)
	for i, f := range fields {
		if i == 0 {
			b.WriteString(" ")
		} else {
			b.WriteString(" ")
		}
		b.WriteString(f.Key)
		b.WriteString("=")
		b.WriteString(f.format())
	}
	if l.colorize {
		b.WriteString(colorReset)
	}
	b.WriteString("\n")
	_, _ = l.output.Write([]byte(b.String()))
}
