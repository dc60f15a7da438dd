// Package tlog is a "toggled logger" that can be enabled and disabled and
// provides coloring.
package tlog

import (
	"fmt"
	"io"
	"log"
	"log/syslog"
	"os"
	"strings"

	"golang.org/x/term"
)

const (
	// ProgramName is used in log reports.
	ProgramName = "cryptopuck"
	wpanicMsg   = "-wpanic turns this warning into a panic: "
)

// Escape sequences for terminal colors. These are set in init() if and only
// if stdout is a terminal. Otherwise they are empty strings.
var (
	// ColorReset is used to reset terminal colors.
	ColorReset string
	// ColorGrey is a terminal color setting string.
	ColorGrey string
	// ColorRed is a terminal color setting string.
	ColorRed string
	// ColorGreen is a terminal color setting string.
	ColorGreen string
	// ColorYellow is a terminal color setting string.
	ColorYellow string
)

// toggledLogger - a Logger than can be enabled and disabled
type toggledLogger struct {
	// Enable or disable output
	Enabled bool
	// Panic after logging a message, useful in regression tests
	Wpanic bool
	// Private prefix and postfix are used for coloring
	prefix  string
	postfix string

	Logger *log.Logger
}

// trimNewline removes one trailing newline from "msg"
func trimNewline(msg string) string {
	if len(msg) == 0 {
		return msg
	}
	if msg[len(msg)-1] == '\n' {
		return msg[:len(msg)-1]
	}
	return msg
}

func (l *toggledLogger) Printf(format string, v ...interface{}) {
	if !l.Enabled {
		return
	}
	msg := trimNewline(fmt.Sprintf(format, v...))
	l.Logger.Printf("%s%s%s", l.prefix, msg, l.postfix)
	if l.Wpanic {
		l.Logger.Panic(wpanicMsg + msg)
	}
}

func (l *toggledLogger) Println(v ...interface{}) {
	if !l.Enabled {
		return
	}
	msg := trimNewline(fmt.Sprintln(v...))
	l.Logger.Printf("%s%s%s", l.prefix, msg, l.postfix)
	if l.Wpanic {
		l.Logger.Panic(wpanicMsg + msg)
	}
}

// SetOutput redirects this logger to "w" without touching the prefix colors.
func (l *toggledLogger) SetOutput(w io.Writer) {
	l.Logger.SetOutput(w)
}

// Debug logs debug messages
// Can be enabled by passing "-d"
var Debug *toggledLogger

// Info logs informational message
// Can be disabled by passing "-q"
var Info *toggledLogger

// Warn logs warnings,
// meaning nothing serious by itself but might indicate problems.
var Warn *toggledLogger

// Fatal error, we are about to exit
var Fatal *toggledLogger

func init() {
	if term.IsTerminal(int(os.Stdout.Fd())) {
		ColorReset = "\033[0m"
		ColorGrey = "\033[2m"
		ColorRed = "\033[31m"
		ColorGreen = "\033[32m"
		ColorYellow = "\033[33m"
	}

	Debug = &toggledLogger{
		Logger: log.New(os.Stdout, "", 0),
	}
	Info = &toggledLogger{
		Enabled: true,
		Logger:  log.New(os.Stdout, "", 0),
	}
	Warn = &toggledLogger{
		Enabled: true,
		Logger:  log.New(os.Stderr, "", 0),
		prefix:  ColorYellow,
		postfix: ColorReset,
	}
	Fatal = &toggledLogger{
		Enabled: true,
		Logger:  log.New(os.Stderr, "", 0),
		prefix:  ColorRed,
		postfix: ColorReset,
	}
}

// SwitchToSyslog redirects the output of this logger to syslog.
// p = facility | severity
func (l *toggledLogger) SwitchToSyslog(p syslog.Priority) {
	w, err := syslog.New(p, ProgramName)
	if err != nil {
		Warn.Printf("SwitchToSyslog: %v", err)
	} else {
		l.SetOutput(w)
		// Disable colors
		l.prefix = ""
		l.postfix = ""
	}
}

// SwitchAllToSyslog redirects all four loggers and the standard library
// logger to syslog. Used by "cryptopuck watch -syslog".
func SwitchAllToSyslog() {
	Info.SwitchToSyslog(syslog.LOG_USER | syslog.LOG_INFO)
	Debug.SwitchToSyslog(syslog.LOG_USER | syslog.LOG_DEBUG)
	Warn.SwitchToSyslog(syslog.LOG_USER | syslog.LOG_WARNING)
	Fatal.SwitchToSyslog(syslog.LOG_USER | syslog.LOG_CRIT)
	w, err := syslog.New(syslog.LOG_USER|syslog.LOG_WARNING, ProgramName)
	if err != nil {
		Warn.Printf("SwitchAllToSyslog: %v", err)
		return
	}
	// Disable printing the timestamp, syslog already provides that
	log.SetFlags(0)
	log.SetOutput(w)
}

// RunTag returns the first 8 characters of a run id, which is enough to tell
// runs apart in the log.
func RunTag(id string) string {
	id = strings.TrimSpace(id)
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
