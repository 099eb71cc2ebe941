// Copyright 2015-2023 National Technology & Engineering Solutions of Sandia, LLC (NTESS).
// Under the terms of Contract DE-NA0003525 with NTESS, the U.S. Government retains certain
// rights in this software.

// Package dicelog extends Go's logging functionality to allow for
// multiple named loggers, each filtered to its own level. Level tags
// are colorized through github.com/fatih/color when a logger opts in.
package dicelog

import (
	"fmt"
	"io"
	golog "log"
	"os"
	"sync"

	"github.com/fatih/color"
)

// Level orders DEBUG -> INFO -> WARN -> ERROR -> FATAL.
type Level int

const (
	Debug Level = iota
	Info
	Warn
	Error
	Fatal
)

func (l Level) String() string {
	switch l {
	case Debug:
		return "DEBUG"
	case Info:
		return "INFO"
	case Warn:
		return "WARN"
	case Error:
		return "ERROR"
	case Fatal:
		return "FATAL"
	default:
		return "UNKNOWN"
	}
}

var levelColor = map[Level]*color.Color{
	Debug: color.New(color.FgBlue),
	Info:  color.New(color.FgGreen),
	Warn:  color.New(color.FgYellow),
	Error: color.New(color.FgRed),
	Fatal: color.New(color.FgRed, color.Bold),
}

type logger struct {
	std   *golog.Logger
	level Level
	color bool
}

var (
	mu      sync.RWMutex
	loggers = make(map[string]*logger)
)

// AddLogger registers a named output that receives every message at
// level or higher. Calling AddLogger again with the same name replaces
// it.
func AddLogger(name string, output io.Writer, level Level, useColor bool) {
	mu.Lock()
	defer mu.Unlock()
	loggers[name] = &logger{std: golog.New(output, "", golog.LstdFlags), level: level, color: useColor}
}

// DelLogger removes a previously registered named logger.
func DelLogger(name string) {
	mu.Lock()
	defer mu.Unlock()
	delete(loggers, name)
}

// SetLevel changes a named logger's filter level.
func SetLevel(name string, level Level) error {
	mu.Lock()
	defer mu.Unlock()
	l, ok := loggers[name]
	if !ok {
		return fmt.Errorf("dicelog: no such logger %q", name)
	}
	l.level = level
	return nil
}

// Default installs a single "stdio" logger writing to stderr at Info
// level, the common case for a dicey server/client binary's main().
func Default() {
	AddLogger("stdio", os.Stderr, Info, true)
}

func dispatch(level Level, format string, args ...interface{}) {
	mu.RLock()
	defer mu.RUnlock()

	msg := fmt.Sprintf(format, args...)
	for _, l := range loggers {
		if level < l.level {
			continue
		}
		tag := level.String()
		if l.color {
			tag = levelColor[level].Sprint(tag)
		}
		l.std.Printf("[%s] %s", tag, msg)
	}
}

func Debugf(format string, args ...interface{}) { dispatch(Debug, format, args...) }
func Infof(format string, args ...interface{})  { dispatch(Info, format, args...) }
func Warnf(format string, args ...interface{})  { dispatch(Warn, format, args...) }
func Errorf(format string, args ...interface{}) { dispatch(Error, format, args...) }

// Fatalf logs at FATAL to every logger and then exits the process.
func Fatalf(format string, args ...interface{}) {
	dispatch(Fatal, format, args...)
	os.Exit(1)
}
