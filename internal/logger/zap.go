package logger

import (
	"strings"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/tphakala/pcmring/internal/errors"
)

// zapLogger implements Logger on top of a zap core.
// base carries accumulated With fields; z additionally carries the module field.
type zapLogger struct {
	base   *zap.Logger
	z      *zap.Logger
	module string
}

// NewLogger creates a zap backed Logger from the given configuration
func NewLogger(cfg Config) (Logger, error) {
	applyConfigDefaults(&cfg)

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return nil, errors.Newf("invalid log level %q: %w", cfg.Level, err).
			Component("logger").
			Category(errors.CategoryConfiguration).
			Build()
	}

	sink, _, err := zap.Open(cfg.OutputPath)
	if err != nil {
		return nil, errors.New(err).
			Component("logger").
			Category(errors.CategoryFileIO).
			FileContext(cfg.OutputPath).
			Context("operation", "open_log_output").
			Build()
	}

	core := zapcore.NewCore(newEncoder(cfg.JSON), sink, zap.NewAtomicLevelAt(level))

	opts := []zap.Option{
		zap.AddCaller(),
		zap.AddCallerSkip(1),
	}
	if cfg.Development {
		opts = append(opts, zap.Development())
	}

	return newZapLogger(zap.New(core, opts...)), nil
}

// NewWithCore wraps a custom zap core. Used by tests and embedding applications.
func NewWithCore(core zapcore.Core) Logger {
	return newZapLogger(zap.New(core))
}

// NewNop returns a logger that discards everything
func NewNop() Logger {
	return newZapLogger(zap.NewNop())
}

func newZapLogger(z *zap.Logger) *zapLogger {
	return &zapLogger{base: z, z: z}
}

func newEncoder(json bool) zapcore.Encoder {
	encCfg := zap.NewProductionEncoderConfig()
	encCfg.TimeKey = "time"
	encCfg.MessageKey = "msg"
	encCfg.EncodeTime = zapcore.RFC3339TimeEncoder
	encCfg.EncodeDuration = zapcore.StringDurationEncoder

	if json {
		return zapcore.NewJSONEncoder(encCfg)
	}

	encCfg.EncodeLevel = zapcore.CapitalLevelEncoder
	return zapcore.NewConsoleEncoder(encCfg)
}

func (l *zapLogger) Module(name string) Logger {
	module := name
	if l.module != "" {
		module = l.module + "." + name
	}
	return &zapLogger{
		base:   l.base,
		z:      l.base.With(zap.String("module", module)),
		module: module,
	}
}

func (l *zapLogger) Debug(msg string, fields ...Field) {
	l.z.Debug(msg, toZapFields(fields)...)
}

func (l *zapLogger) Info(msg string, fields ...Field) {
	l.z.Info(msg, toZapFields(fields)...)
}

func (l *zapLogger) Warn(msg string, fields ...Field) {
	l.z.Warn(msg, toZapFields(fields)...)
}

func (l *zapLogger) Error(msg string, fields ...Field) {
	l.z.Error(msg, toZapFields(fields)...)
}

func (l *zapLogger) Log(level LogLevel, msg string, fields ...Field) {
	if ce := l.z.Check(zapLevel(level), msg); ce != nil {
		ce.Write(toZapFields(fields)...)
	}
}

func (l *zapLogger) With(fields ...Field) Logger {
	zf := toZapFields(fields)
	return &zapLogger{
		base:   l.base.With(zf...),
		z:      l.z.With(zf...),
		module: l.module,
	}
}

func (l *zapLogger) Flush() error {
	return l.z.Sync()
}

// zapLevel maps LogLevel to zap levels; unknown levels log at info
func zapLevel(level LogLevel) zapcore.Level {
	switch LogLevel(strings.ToLower(string(level))) {
	case LogLevelDebug:
		return zapcore.DebugLevel
	case LogLevelWarn:
		return zapcore.WarnLevel
	case LogLevelError:
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

func toZapFields(fields []Field) []zap.Field {
	if len(fields) == 0 {
		return nil
	}

	out := make([]zap.Field, 0, len(fields))
	for _, f := range fields {
		switch v := f.Value.(type) {
		case string:
			out = append(out, zap.String(f.Key, v))
		case int:
			out = append(out, zap.Int(f.Key, v))
		case int64:
			out = append(out, zap.Int64(f.Key, v))
		case uint64:
			out = append(out, zap.Uint64(f.Key, v))
		case float64:
			out = append(out, zap.Float64(f.Key, v))
		case bool:
			out = append(out, zap.Bool(f.Key, v))
		case time.Duration:
			out = append(out, zap.Duration(f.Key, v))
		case time.Time:
			out = append(out, zap.Time(f.Key, v))
		case error:
			out = append(out, zap.NamedError(f.Key, v))
		default:
			out = append(out, zap.Any(f.Key, v))
		}
	}
	return out
}
