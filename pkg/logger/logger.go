package logger

import (
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/google/uuid"
)

// LogLevel represents logging levels
type LogLevel string

const (
	LevelDebug LogLevel = "debug"
	LevelInfo  LogLevel = "info"
	LevelWarn  LogLevel = "warn"
	LevelError LogLevel = "error"
)

// Config holds logger configuration
type Config struct {
	Level        LogLevel `json:"level" yaml:"level"`
	Format       string   `json:"format" yaml:"format"`               // "json", "text"
	Output       string   `json:"output" yaml:"output"`               // "stdout", "stderr", file path
	EnableCaller bool     `json:"enable_caller" yaml:"enable_caller"` // Include file and line info on errors
	Component    string   `json:"component" yaml:"component"`
	Environment  string   `json:"environment" yaml:"environment"`
}

// Logger wraps slog.Logger with component and chat-update helpers
type Logger struct {
	*slog.Logger
	config Config
	output io.Writer
}

// RequestContext holds request-specific logging context for the ops HTTP server
type RequestContext struct {
	RequestID  string        `json:"request_id"`
	Method     string        `json:"method"`
	Path       string        `json:"path"`
	RemoteAddr string        `json:"remote_addr"`
	StartTime  time.Time     `json:"start_time"`
	Duration   time.Duration `json:"duration,omitempty"`
	StatusCode int           `json:"status_code,omitempty"`
}

// UpdateContext holds logging context for one inbound chat event
type UpdateContext struct {
	RequestID string        `json:"request_id"`
	UpdateID  int           `json:"update_id"`
	UserID    int64         `json:"user_id"`
	ChatID    int64         `json:"chat_id"`
	Action    string        `json:"action"`
	StartTime time.Time     `json:"start_time"`
	Duration  time.Duration `json:"duration,omitempty"`
	Err       error         `json:"-"`
}

// DefaultConfig returns a default logger configuration
func DefaultConfig() Config {
	return Config{
		Level:        LevelInfo,
		Format:       "json",
		Output:       "stdout",
		EnableCaller: true,
		Environment:  "development",
	}
}

// ParseLevel maps a free-form level name onto a LogLevel, defaulting to info
func ParseLevel(s string) LogLevel {
	switch LogLevel(strings.ToLower(strings.TrimSpace(s))) {
	case LevelDebug:
		return LevelDebug
	case LevelWarn, "warning":
		return LevelWarn
	case LevelError:
		return LevelError
	default:
		return LevelInfo
	}
}

// New creates a logger instance
func New(config Config) *Logger {
	var output io.Writer
	switch config.Output {
	case "", "stdout":
		output = os.Stdout
	case "stderr":
		output = os.Stderr
	default:
		if file, err := os.OpenFile(config.Output, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o666); err == nil {
			output = file
		} else {
			output = os.Stdout
		}
	}
	return NewWithWriter(config, output)
}

// NewWithWriter creates a logger that writes to w regardless of config.Output
func NewWithWriter(config Config, w io.Writer) *Logger {
	var level slog.Level
	switch config.Level {
	case LevelDebug:
		level = slog.LevelDebug
	case LevelWarn:
		level = slog.LevelWarn
	case LevelError:
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	if config.Format == "text" {
		handler = slog.NewTextHandler(w, opts)
	} else {
		handler = slog.NewJSONHandler(w, opts)
	}

	slogLogger := slog.New(handler)
	if config.Component != "" {
		slogLogger = slogLogger.With("component", config.Component)
	}
	if config.Environment != "" {
		slogLogger = slogLogger.With("environment", config.Environment)
	}

	return &Logger{
		Logger: slogLogger,
		config: config,
		output: w,
	}
}

// Discard returns a logger that drops everything; used by tests
func Discard() *Logger {
	return NewWithWriter(Config{Level: LevelError}, io.Discard)
}

// WithContext creates a new logger with additional context
func (l *Logger) WithContext(args ...interface{}) *Logger {
	return &Logger{
		Logger: l.Logger.With(args...),
		config: l.config,
		output: l.output,
	}
}

// WithComponent creates a logger with component context
func (l *Logger) WithComponent(component string) *Logger {
	return l.WithContext("component", component)
}

// WithRequest creates a logger with HTTP request context
func (l *Logger) WithRequest(ctx *RequestContext) *Logger {
	return l.WithContext(
		"request_id", ctx.RequestID,
		"method", ctx.Method,
		"path", ctx.Path,
		"remote_addr", ctx.RemoteAddr,
	)
}

// WithUpdate creates a logger with chat event context
func (l *Logger) WithUpdate(ctx *UpdateContext) *Logger {
	return l.WithContext(
		"request_id", ctx.RequestID,
		"update_id", ctx.UpdateID,
		"user_id", ctx.UserID,
		"chat_id", ctx.ChatID,
		"action", ctx.Action,
	)
}

func (l *Logger) Debug(msg string, args ...interface{}) {
	l.Logger.Debug(msg, args...)
}

func (l *Logger) Info(msg string, args ...interface{}) {
	l.Logger.Info(msg, args...)
}

func (l *Logger) Warn(msg string, args ...interface{}) {
	l.Logger.Warn(msg, args...)
}

// Error logs at error level with caller information
func (l *Logger) Error(msg string, args ...interface{}) {
	if l.config.EnableCaller {
		if _, file, line, ok := runtime.Caller(1); ok {
			args = append(args, "caller", fmt.Sprintf("%s:%d", filepath.Base(file), line))
		}
	}
	l.Logger.Error(msg, args...)
}

// NewUpdateContext starts timing a chat event and assigns it a request id
func NewUpdateContext(updateID int, userID, chatID int64, action string) *UpdateContext {
	return &UpdateContext{
		RequestID: generateRequestID(),
		UpdateID:  updateID,
		UserID:    userID,
		ChatID:    chatID,
		Action:    action,
		StartTime: time.Now(),
	}
}

// LogUpdate logs the arrival of a chat event
func (l *Logger) LogUpdate(ctx *UpdateContext) {
	l.WithUpdate(ctx).Debug("Chat update received")
}

// LogUpdateResult logs how a chat event was handled
func (l *Logger) LogUpdateResult(ctx *UpdateContext) {
	ctx.Duration = time.Since(ctx.StartTime)
	log := l.WithUpdate(ctx)
	if ctx.Err != nil {
		log.Error("Chat update failed", "error", ctx.Err, "duration_ms", ctx.Duration.Milliseconds())
		return
	}
	log.Info("Chat update handled", "duration_ms", ctx.Duration.Milliseconds())
}

// LogRequest logs HTTP request information
func (l *Logger) LogRequest(ctx *RequestContext) {
	l.WithRequest(ctx).Debug("HTTP request started",
		"start_time", ctx.StartTime,
	)
}

// LogResponse logs HTTP response information
func (l *Logger) LogResponse(ctx *RequestContext) {
	duration := time.Since(ctx.StartTime)
	ctx.Duration = duration

	logger := l.WithRequest(ctx)
	args := []interface{}{
		"status_code", ctx.StatusCode,
		"duration_ms", duration.Milliseconds(),
	}

	switch {
	case ctx.StatusCode >= 500:
		logger.Error("HTTP request completed", args...)
	case ctx.StatusCode >= 400:
		logger.Warn("HTTP request completed", args...)
	default:
		logger.Debug("HTTP request completed", args...)
	}
}

// HTTPMiddleware returns a standard HTTP middleware for request logging
func (l *Logger) HTTPMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get("X-Request-ID")
		if requestID == "" {
			requestID = generateRequestID()
		}

		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

		ctx := &RequestContext{
			RequestID:  requestID,
			Method:     r.Method,
			Path:       r.URL.Path,
			RemoteAddr: getClientIP(r),
			StartTime:  time.Now(),
		}

		l.LogRequest(ctx)
		next.ServeHTTP(rw, r)

		ctx.StatusCode = rw.statusCode
		l.LogResponse(ctx)
	})
}

// responseWriter wraps http.ResponseWriter to capture the status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(statusCode int) {
	rw.statusCode = statusCode
	rw.ResponseWriter.WriteHeader(statusCode)
}

// getClientIP extracts the real client IP from the request
func getClientIP(r *http.Request) string {
	if xForwardedFor := r.Header.Get("X-Forwarded-For"); xForwardedFor != "" {
		if ips := strings.Split(xForwardedFor, ","); len(ips) > 0 {
			return strings.TrimSpace(ips[0])
		}
	}
	if xRealIP := r.Header.Get("X-Real-IP"); xRealIP != "" {
		return xRealIP
	}
	if i := strings.LastIndex(r.RemoteAddr, ":"); i > 0 {
		return r.RemoteAddr[:i]
	}
	return r.RemoteAddr
}

func generateRequestID() string {
	return uuid.NewString()
}

// Close closes the underlying file when logging to one
func (l *Logger) Close() error {
	if l.output == os.Stdout || l.output == os.Stderr {
		return nil
	}
	if closer, ok := l.output.(io.Closer); ok {
		return closer.Close()
	}
	return nil
}
