/*************************************************************************
 * Copyright 2026 CoreDaemon Authors. All rights reserved.
 *
 * This software may be modified and distributed under the terms of the
 * BSD 2-clause license. See the LICENSE file for details.
 *************************************************************************/

package dmn

import (
	"fmt"
	"io"
	"log/syslog"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/crewjam/rfc5424"
	"github.com/shirou/gopsutil/host"
)

// Level is a log severity: higher numbers are more severe (the reverse of
// syslog's LOG_* numbering, which priority() maps onto). Named and ordered
// the way the teacher's ingest/log package names its own Level type.
type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarning
	LevelError
	LevelFatal
)

var levelPrefix = [...]string{
	LevelDebug:   " debug: ",
	LevelInfo:    " info: ",
	LevelWarning: " warning: ",
	LevelError:   " error: ",
	LevelFatal:   " fatal: ",
}

func (l Level) prefix() string {
	if int(l) >= 0 && int(l) < len(levelPrefix) {
		return levelPrefix[l]
	}
	return " ???: "
}

func (l Level) priority() syslog.Priority {
	switch l {
	case LevelDebug:
		return syslog.LOG_DAEMON | syslog.LOG_DEBUG
	case LevelInfo:
		return syslog.LOG_DAEMON | syslog.LOG_INFO
	case LevelWarning:
		return syslog.LOG_DAEMON | syslog.LOG_WARNING
	case LevelError:
		return syslog.LOG_DAEMON | syslog.LOG_ERR
	case LevelFatal:
		return syslog.LOG_DAEMON | syslog.LOG_CRIT
	}
	return syslog.LOG_DAEMON | syslog.LOG_DEBUG
}

func (l Level) rfc5424Severity() rfc5424.Priority {
	switch l {
	case LevelDebug:
		return rfc5424.Daemon | rfc5424.Debug
	case LevelInfo:
		return rfc5424.Daemon | rfc5424.Info
	case LevelWarning:
		return rfc5424.Daemon | rfc5424.Warning
	case LevelError:
		return rfc5424.Daemon | rfc5424.Error
	case LevelFatal:
		return rfc5424.Daemon | rfc5424.Crit
	}
	return rfc5424.Daemon | rfc5424.Debug
}

// logState is the logging half of the process-global state block (spec
// section 3): which stream messages go to, whether syslog is open, and the
// writer lock serializing both. Grounded on dmn.c's state.stderr_out /
// state.syslog_alive plus the teacher's mutex-serialized Logger.writeOutput.
type logState struct {
	mtx        sync.Mutex
	stderrOut  io.Writer
	closeable  io.Closer // non-nil only when stderrOut is a duplicated fd we must close at Finish
	syslogConn io.WriteCloser
	name       string
}

// Loggerf writes a leveled, formatted log line. Behavior matches
// dmn_loggerv exactly: emit to the stderr stream under lock when one is
// set and (level != Info or StderrInfo), emit to syslog when open, then
// reset the format buffer. Callable from any phase >= Init1Phase.
func (h *Handle) Loggerf(level Level, format string, args ...interface{}) {
	h.phaseCheck("Loggerf()", Init1Phase, Uninit, nil)
	h.logState.mtx.Lock()
	defer h.logState.mtx.Unlock()

	withFmtArena(func(a *fmtArena) {
		scratch, bucket := a.scratch()
		formatted := fmt.Appendf(scratch, format, args...)
		a.commit(bucket, len(formatted))
		msg := trimTrailing(string(formatted))
		if h.logState.stderrOut != nil && (level != LevelInfo || h.params.StderrInfo) {
			line := level.prefix() + msg + "\n"
			io.WriteString(h.logState.stderrOut, line)
			if f, ok := h.logState.stderrOut.(interface{ Sync() error }); ok {
				f.Sync()
			}
		}
		if h.logState.syslogConn != nil {
			b, err := buildRFC5424(level, h.logState.name, msg)
			if err == nil {
				h.logState.syslogConn.Write(b)
			}
		}
	})
}

func (h *Handle) Debugf(format string, args ...interface{})   { h.Loggerf(LevelDebug, format, args...) }
func (h *Handle) Infof(format string, args ...interface{})    { h.Loggerf(LevelInfo, format, args...) }
func (h *Handle) Warningf(format string, args ...interface{}) { h.Loggerf(LevelWarning, format, args...) }
func (h *Handle) Errorf(format string, args ...interface{})   { h.Loggerf(LevelError, format, args...) }

// Fatalf logs at fatal level and terminates the process, matching
// dmn_log_fatal's "log then abort" contract.
func (h *Handle) Fatalf(format string, args ...interface{}) {
	h.Loggerf(LevelFatal, format, args...)
	os.Exit(1)
}

// buildRFC5424 encodes a syslog message the way the teacher's
// GenRFCMessage/genRfcOutput does: plain human text to stderr, RFC5424
// framing reserved for the wire format shipped to the system log.
func buildRFC5424(level Level, appname, msg string) ([]byte, error) {
	hostname, _ := os.Hostname()
	m := rfc5424.Message{
		Priority:  level.rfc5424Severity(),
		Timestamp: time.Now(),
		Hostname:  hostname,
		AppName:   appname,
		Message:   []byte(msg),
	}
	return m.MarshalBinary()
}

// logPlatformBanner writes a one-line OS/platform banner at debug level
// during Init1, grounded directly on the teacher's ingest/log/utils.go
// PrintOSInfo helper (same gopsutil/host call, folded into our leveled
// logger instead of an io.Writer side channel).
func (h *Handle) logPlatformBanner() {
	platform, _, version, err := host.PlatformInformation()
	if err != nil {
		h.Debugf("platform info unavailable: %s", err)
		return
	}
	h.Debugf("platform: %s (%s)", platform, version)
}

// Errno formats an error the way dmn_strerror formats errno, for
// interpolation into a log line. dmn_strerror exists because C's
// strerror_r writes into a caller-supplied scratch buffer that must
// outlive the call; Go's errors are already immutable, self-describing
// values, so the buffer isn't load-bearing for correctness here -- but
// Errno is almost always called inline inside a Loggerf argument list, so
// it checks out the same arena to build its copy of the message instead
// of letting err.Error() alone decide the allocation, for call-site
// symmetry with Loggerf's own formatting path.
func Errno(err error) string {
	if err == nil {
		return "success"
	}
	var out string
	withFmtArena(func(a *fmtArena) {
		scratch, bucket := a.scratch()
		buf := append(scratch, err.Error()...)
		a.commit(bucket, len(buf))
		out = string(buf)
	})
	return out
}

func trimTrailing(s string) string {
	return strings.TrimRight(s, "\n\t\r")
}
