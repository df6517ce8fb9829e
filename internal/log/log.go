package log

import (
	"io"
	"os"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
)

var (
	mu     sync.RWMutex
	logger = newLogger(os.Stdout, zerolog.InfoLevel)
)

func init() {
	zerolog.TimestampFieldName = "ts"
	zerolog.ErrorFieldName = "err"
	zerolog.TimeFieldFormat = time.RFC3339
}

func newLogger(w io.Writer, lvl zerolog.Level) zerolog.Logger {
	return zerolog.New(w).Level(lvl).With().Timestamp().Logger()
}

// Setup points the request logger at w with the given level name.
// Unknown levels fall back to info.
func Setup(w io.Writer, level string) {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil || level == "" {
		lvl = zerolog.InfoLevel
	}
	mu.Lock()
	logger = newLogger(w, lvl)
	mu.Unlock()
}

// SetOutput swaps the sink and returns a func restoring the previous logger.
func SetOutput(w io.Writer) (restore func()) {
	mu.Lock()
	prev := logger
	logger = newLogger(w, prev.GetLevel())
	mu.Unlock()
	return func() {
		mu.Lock()
		logger = prev
		mu.Unlock()
	}
}

// Logger returns the current base logger for non-request code.
func Logger() *zerolog.Logger {
	mu.RLock()
	defer mu.RUnlock()
	l := logger
	return &l
}

func write(ev *zerolog.Event, c *fiber.Ctx, action string, err error, fields map[string]any) {
	if c != nil {
		ev = ev.Str("ip", c.IP()).
			Str("method", c.Method()).
			Str("path", c.Path()).
			Int("status", c.Response().StatusCode())
		if rid, ok := c.Locals("requestid").(string); ok && rid != "" {
			ev = ev.Str("req_id", rid)
		}
	}
	if action != "" {
		ev = ev.Str("action", action)
	}
	if err != nil {
		ev = ev.Err(err)
	}
	if len(fields) > 0 {
		ev = ev.Interface("fields", fields)
	}
	ev.Send()
}

func Info(c *fiber.Ctx, action string, fields map[string]any) {
	write(Logger().Info(), c, action, nil, fields)
}

// Audit records a state change on a domain record.
func Audit(c *fiber.Ctx, action string, fields map[string]any) {
	l := Logger()
	if l.GetLevel() > zerolog.InfoLevel {
		return
	}
	write(l.Log().Str(zerolog.LevelFieldName, "audit"), c, action, nil, fields)
}

func Security(c *fiber.Ctx, action string, fields map[string]any) {
	write(Logger().Warn(), c, action, nil, fields)
}

func Warn(c *fiber.Ctx, action string, fields map[string]any) {
	write(Logger().Warn(), c, action, nil, fields)
}

func Error(c *fiber.Ctx, action string, err error, fields map[string]any) {
	write(Logger().Error(), c, action, err, fields)
}

// Middleware emits one access record per request with latency.
func Middleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()
		if err != nil {
			// let the app error handler set the final status first
			if herr := c.App().ErrorHandler(c, err); herr != nil {
				_ = c.SendStatus(fiber.StatusInternalServerError)
			}
		}
		l := Logger()
		ev := l.Info()
		if c.Response().StatusCode() >= fiber.StatusInternalServerError {
			ev = l.Error()
		}
		ev = ev.Int64("latency_ms", time.Since(start).Milliseconds())
		write(ev, c, "http.access", nil, nil)
		return nil
	}
}
