package logging

import (
	"os"
	"path/filepath"
	"strings"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

var (
	mu     sync.RWMutex
	logger *Logger

	// Noop logger as safe fallback when not initialized.
	noopLogger = &Logger{zap.NewNop().Sugar()}

	atomicLevel = zap.NewAtomicLevelAt(zap.InfoLevel)
)

// Logger wraps zap's SugaredLogger.
type Logger struct {
	*zap.SugaredLogger
}

// Options controls where and how much the console logs.
type Options struct {
	// Path of the log file. Empty selects ~/.local/state/hrdesk/hrdesk.log.
	Path  string
	Level string
	// Dev switches to the human-readable console encoder.
	Dev bool
}

// With adds structured fields and returns a new instance.
func (l *Logger) With(args ...interface{}) *Logger {
	if l == nil {
		return noopLogger
	}
	return &Logger{l.SugaredLogger.With(args...)}
}

// L returns the global logger or a no-op fallback if uninitialized.
func L() *Logger {
	mu.RLock()
	defer mu.RUnlock()
	if logger == nil {
		return noopLogger
	}
	return logger
}

// Init installs the global logger. The terminal belongs to the UI, so logs
// always go to a rotating file.
func Init(opts Options) (cleanup func(), err error) {
	path := opts.Path
	if path == "" {
		path = defaultPath()
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	atomicLevel.SetLevel(ParseLevel(opts.Level, opts.Dev))

	rotator := &lumberjack.Logger{
		Filename:   path,
		MaxSize:    10, // MB
		MaxBackups: 3,
		MaxAge:     14, // days
		Compress:   true,
	}

	encoderCfg := zap.NewProductionEncoderConfig()
	encoderCfg.TimeKey = "ts"
	encoderCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	encoderCfg.EncodeLevel = zapcore.CapitalLevelEncoder

	var encoder zapcore.Encoder
	if opts.Dev {
		encoder = zapcore.NewConsoleEncoder(encoderCfg)
	} else {
		encoder = zapcore.NewJSONEncoder(encoderCfg)
	}

	core := zapcore.NewCore(encoder, zapcore.AddSync(rotator), atomicLevel)
	l := &Logger{zap.New(core, zap.AddCaller()).Sugar()}

	mu.Lock()
	logger = l
	mu.Unlock()

	l.Infow("logger initialized", "path", path, "level", atomicLevel.Level().String())
	return func() {
		_ = l.Sync()
		_ = rotator.Close()
		mu.Lock()
		if logger == l {
			logger = nil
		}
		mu.Unlock()
	}, nil
}

// SetLevel changes the level at runtime.
func SetLevel(level zapcore.Level) {
	atomicLevel.SetLevel(level)
}

// ParseLevel maps a config string to a zap level. Unknown values fall back
// to debug in dev mode and info otherwise.
func ParseLevel(s string, dev bool) zapcore.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return zap.DebugLevel
	case "info":
		return zap.InfoLevel
	case "warn", "warning":
		return zap.WarnLevel
	case "error":
		return zap.ErrorLevel
	default:
		if dev {
			return zap.DebugLevel
		}
		return zap.InfoLevel
	}
}

func defaultPath() string {
	if xdg := os.Getenv("XDG_STATE_HOME"); xdg != "" {
		return filepath.Join(xdg, "hrdesk", "hrdesk.log")
	}
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, ".local", "state", "hrdesk", "hrdesk.log")
	}
	return filepath.Join(os.TempDir(), "hrdesk", "hrdesk.log")
}
