package logger

import (
	"fmt"
	stdlog "log"
	"os"
	"strings"
	"time"
)

type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

var (
	currentLevel = LevelInfo
	logger       = stdlog.New(os.Stdout, "", 0)
)

func (l Level) String() string {
	switch l {
	case LevelDebug:
		return "DEBUG"
	case LevelInfo:
		return "INFO"
	case LevelWarn:
		return "WARN"
	case LevelError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

func SetLevel(level string) {
	switch strings.ToUpper(level) {
	case "DEBUG":
		currentLevel = LevelDebug
	case "INFO":
		currentLevel = LevelInfo
	case "WARN":
		currentLevel = LevelWarn
	case "ERROR":
		currentLevel = LevelError
	}
}

func log(level Level, format string, v ...any) {
	if level < currentLevel {
		return
	}

	timestamp := time.Now().Format("2006-01-02 15:04:05")
	prefix := fmt.Sprintf("[%s] [%s] ", timestamp, level.String())
	message := fmt.Sprintf(format, v...)
	logger.Println(prefix + message)
}

func Debug(format string, v ...any) {
	log(LevelDebug, format, v...)
}

func Info(format string, v ...any) {
	log(LevelInfo, format, v...)
}

func Warn(format string, v ...any) {
	log(LevelWarn, format, v...)
}

func Error(format string, v ...any) {
	log(LevelError, format, v...)
}

// fields renders a flat key/value list as "k1=v1 k2=v2 ...", the
// grep-able shape the apply and read paths use instead of free-text
// messages, since a shard's log volume is dominated by one line per
// request.
func fields(kv []any) string {
	if len(kv) == 0 {
		return ""
	}
	var b strings.Builder
	for i := 0; i+1 < len(kv); i += 2 {
		if i > 0 {
			b.WriteByte(' ')
		}
		fmt.Fprintf(&b, "%v=%v", kv[i], kv[i+1])
	}
	return b.String()
}

func logKV(level Level, msg string, kv ...any) {
	if level < currentLevel {
		return
	}
	timestamp := time.Now().Format("2006-01-02 15:04:05")
	prefix := fmt.Sprintf("[%s] [%s] ", timestamp, level.String())
	if f := fields(kv); f != "" {
		logger.Println(prefix + msg + " " + f)
	} else {
		logger.Println(prefix + msg)
	}
}

// DebugKV, InfoKV, WarnKV, ErrorKV log msg with a trailing list of
// alternating key/value pairs, used by the engine's apply and read
// paths where the interesting part is the fields (index, kind,
// file_id, ...), not a formatted sentence.
func DebugKV(msg string, kv ...any) { logKV(LevelDebug, msg, kv...) }
func InfoKV(msg string, kv ...any)  { logKV(LevelInfo, msg, kv...) }
func WarnKV(msg string, kv ...any)  { logKV(LevelWarn, msg, kv...) }
func ErrorKV(msg string, kv ...any) { logKV(LevelError, msg, kv...) }

// Fatal logs msg at error level with its fields, then terminates the
// process. The apply path calls this on corrupted or non-contiguous
// state (spec §4.5/§7: "assertion failures during apply terminate the
// process") — there is no recovery path for a state machine that
// cannot trust its own invariants.
func Fatal(msg string, kv ...any) {
	logKV(LevelError, "FATAL: "+msg, kv...)
	os.Exit(1)
}
