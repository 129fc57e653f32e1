package logger

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/fatih/color"
)

type LogLevel int

const (
	DEBUG LogLevel = iota
	INFO
	WARN
	ERROR
	FATAL
)

type LogEntry struct {
	Timestamp string `json:"timestamp"`
	Level     string `json:"level"`
	Category  string `json:"category"`
	Message   string `json:"message"`
	File      string `json:"file,omitempty"`
	Line      int    `json:"line,omitempty"`
}

type Options struct {
	// Dir receives the daily JSON log file. Empty disables file output.
	Dir     string
	Service string
	Level   string
	// Stdout receives the coloured terminal output. Defaults to os.Stdout.
	Stdout  io.Writer
	NoColor bool
}

type Logger struct {
	mu           sync.Mutex
	out          io.Writer
	logFile      io.WriteCloser
	minLevel     LogLevel
	colorEnabled bool
}

func NewLogger(opts Options) (*Logger, error) {
	out := opts.Stdout
	if out == nil {
		out = os.Stdout
	}

	l := &Logger{
		out:          out,
		minLevel:     ParseLevel(opts.Level),
		colorEnabled: !opts.NoColor,
	}

	if opts.Dir != "" {
		if err := os.MkdirAll(opts.Dir, 0o755); err != nil {
			return nil, fmt.Errorf("create log directory: %w", err)
		}

		service := opts.Service
		if service == "" {
			service = "invoicing"
		}
		name := filepath.Join(opts.Dir, fmt.Sprintf("%s-%s.log", service, time.Now().Format("2006-01-02")))

		f, err := os.OpenFile(name, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, fmt.Errorf("open log file: %w", err)
		}
		l.logFile = f
		l.Info("LOGGER", fmt.Sprintf("Log file: %s", name))
	}

	return l, nil
}

// Discard returns a logger that drops everything. Used by tests.
func Discard() *Logger {
	return &Logger{out: io.Discard, minLevel: FATAL + 1}
}

func ParseLevel(s string) LogLevel {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return DEBUG
	case "warn", "warning":
		return WARN
	case "error":
		return ERROR
	case "fatal":
		return FATAL
	default:
		return INFO
	}
}

func (l *Logger) log(level LogLevel, category, message string) {
	if level < l.minLevel {
		return
	}

	_, file, line, ok := runtime.Caller(2)
	if ok {
		file = filepath.Base(file)
	}

	entry := LogEntry{
		Timestamp: time.Now().UTC().Format("2006-01-02T15:04:05.000Z"),
		Level:     levelToString(level),
		Category:  strings.ToUpper(category),
		Message:   message,
		File:      file,
		Line:      line,
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	fmt.Fprint(l.out, l.formatTerminalOutput(entry))
	if l.logFile != nil {
		_, _ = io.WriteString(l.logFile, formatJSONOutput(entry)+"\n")
	}
}

func (l *Logger) formatTerminalOutput(entry LogEntry) string {
	timestamp := entry.Timestamp[11:19]

	if !l.colorEnabled {
		return fmt.Sprintf("%s %-5s [%-12s] %s\n", timestamp, entry.Level, entry.Category, entry.Message)
	}

	var levelColor, categoryColor *color.Color
	switch entry.Level {
	case "DEBUG":
		levelColor = color.New(color.FgCyan)
		categoryColor = color.New(color.FgCyan, color.Bold)
	case "INFO":
		levelColor = color.New(color.FgGreen)
		categoryColor = color.New(color.FgGreen, color.Bold)
	case "WARN":
		levelColor = color.New(color.FgYellow)
		categoryColor = color.New(color.FgYellow, color.Bold)
	default:
		levelColor = color.New(color.FgRed)
		categoryColor = color.New(color.FgRed, color.Bold)
	}

	timeStr := color.New(color.FgBlue).Sprint(timestamp)
	levelStr := levelColor.Sprintf("%-5s", entry.Level)
	categoryStr := categoryColor.Sprintf("[%-12s]", entry.Category)

	if entry.File != "" && entry.Line > 0 {
		fileInfo := color.New(color.FgMagenta).Sprintf(" (%s:%d)", entry.File, entry.Line)
		return fmt.Sprintf("%s %s %s %s%s\n", timeStr, levelStr, categoryStr, entry.Message, fileInfo)
	}
	return fmt.Sprintf("%s %s %s %s\n", timeStr, levelStr, categoryStr, entry.Message)
}

func formatJSONOutput(entry LogEntry) string {
	b, _ := json.Marshal(entry)
	return string(b)
}

func levelToString(level LogLevel) string {
	switch level {
	case DEBUG:
		return "DEBUG"
	case WARN:
		return "WARN"
	case ERROR:
		return "ERROR"
	case FATAL:
		return "FATAL"
	default:
		return "INFO"
	}
}

func (l *Logger) Debug(category, message string) {
	l.log(DEBUG, category, message)
}

func (l *Logger) Info(category, message string) {
	l.log(INFO, category, message)
}

func (l *Logger) Warn(category, message string) {
	l.log(WARN, category, message)
}

func (l *Logger) Error(category, message string) {
	l.log(ERROR, category, message)
}

func (l *Logger) Fatal(category, message string) {
	l.log(FATAL, category, message)
	os.Exit(1)
}

// Component helpers

func (l *Logger) LogStore(operation, collection, message string) {
	l.Debug("STORE", fmt.Sprintf("[%s] %s - %s", operation, collection, message))
}

func (l *Logger) LogStudent(action, studentID, message string) {
	l.Info("STUDENT", fmt.Sprintf("[%s] %s - %s", action, studentID, message))
}

func (l *Logger) LogCatalog(action, id, message string) {
	l.Info("CATALOG", fmt.Sprintf("[%s] %s - %s", action, id, message))
}

func (l *Logger) LogRegistration(action, registrationID, message string) {
	l.Info("REGISTRATION", fmt.Sprintf("[%s] %s - %s", action, registrationID, message))
}

func (l *Logger) LogInvoice(action, invoiceNo, message string) {
	l.Info("INVOICE", fmt.Sprintf("[%s] %s - %s", action, invoiceNo, message))
}

func (l *Logger) LogAPI(method, path, status, duration string) {
	l.Info("API", fmt.Sprintf("%s %s - %s (%s)", method, path, status, duration))
}

func (l *Logger) LogKafka(action, topic, message string) {
	l.Info("KAFKA", fmt.Sprintf("[%s] %s - %s", action, topic, message))
}

func (l *Logger) LogSecurity(event, message string) {
	l.Warn("SECURITY", fmt.Sprintf("[%s] %s", event, message))
}

func (l *Logger) Close() error {
	if l.logFile == nil {
		return nil
	}
	l.Info("LOGGER", "Closing log file")
	return l.logFile.Close()
}
