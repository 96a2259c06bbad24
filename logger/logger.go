package logger

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
)

// LogFileName is the name of the log file written next to db.json.
const LogFileName = "xrdmods.log"

// Logger writes to the console and, optionally, to a log file. The same
// message with the same fields is written at most once per interval.
type Logger struct {
	logger      *log.Logger
	fileLogger  *log.Logger
	file        io.Closer
	lastLogTime map[string]time.Time
	logInterval time.Duration
	mu          sync.Mutex
}

// New returns a Logger writing to stderr and to <logDir>/xrdmods.log.
func New(logDir string, level log.Level) (*Logger, error) {
	if err := os.MkdirAll(logDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}

	logFile, err := os.OpenFile(filepath.Join(logDir, LogFileName), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file: %w", err)
	}

	l := NewConsole(os.Stderr, level)
	l.fileLogger = log.NewWithOptions(logFile, log.Options{
		ReportTimestamp: true,
		Level:           log.DebugLevel,
		Formatter:       log.LogfmtFormatter,
	})
	l.file = logFile
	return l, nil
}

// NewConsole returns a Logger with a single sink.
func NewConsole(w io.Writer, level log.Level) *Logger {
	return &Logger{
		logger: log.NewWithOptions(w, log.Options{
			ReportTimestamp: true,
			Level:           level,
		}),
		lastLogTime: make(map[string]time.Time),
		logInterval: 5 * time.Second,
	}
}

// Nop returns a Logger that discards everything.
func Nop() *Logger {
	return NewConsole(io.Discard, log.FatalLevel)
}

// ParseLevel maps a level name to a log.Level, defaulting to info.
func ParseLevel(name string) log.Level {
	level, err := log.ParseLevel(strings.ToLower(strings.TrimSpace(name)))
	if err != nil {
		return log.InfoLevel
	}
	return level
}

func (l *Logger) SetLevel(level log.Level) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.logger.SetLevel(level)
}

func (l *Logger) Close() error {
	if l.file == nil {
		return nil
	}
	return l.file.Close()
}

func (l *Logger) Log(level log.Level, message string, keyvals ...interface{}) {
	if l == nil {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	key := dedupKey(level, message, keyvals)
	now := time.Now()
	if lastLog, exists := l.lastLogTime[key]; exists && now.Sub(lastLog) < l.logInterval {
		return
	}
	l.lastLogTime[key] = now

	l.logger.Log(level, message, keyvals...)
	if l.fileLogger != nil {
		l.fileLogger.Log(level, message, keyvals...)
	}
}

func (l *Logger) Info(message string, keyvals ...interface{}) {
	l.Log(log.InfoLevel, message, keyvals...)
}

func (l *Logger) Debug(message string, keyvals ...interface{}) {
	l.Log(log.DebugLevel, message, keyvals...)
}

func (l *Logger) Error(message string, keyvals ...interface{}) {
	l.Log(log.ErrorLevel, message, keyvals...)
}

func (l *Logger) Warn(message string, keyvals ...interface{}) {
	l.Log(log.WarnLevel, message, keyvals...)
}

func dedupKey(level log.Level, message string, keyvals []interface{}) string {
	var b strings.Builder
	b.WriteString(level.String())
	b.WriteByte('|')
	b.WriteString(message)
	for _, kv := range keyvals {
		fmt.Fprintf(&b, "|%v", kv)
	}
	return b.String()
}
