// Package logger is the structured logger shared by every package.
//
// Fields are passed as alternating key/value pairs. Before a line is written,
// values under credential-like keys are replaced and listener identifiers are
// hashed, so request logs can be shipped without carrying personal data.
package logger

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const redacted = "[REDACTED]"

type fieldAction int

const (
	keep fieldAction = iota
	redact
	hash
)

// fieldRules match on a lowercased key fragment. First match wins.
var fieldRules = []struct {
	fragment string
	action   fieldAction
}{
	{"token", redact},
	{"authorization", redact},
	{"secret", redact},
	{"api_key", redact},
	{"apikey", redact},
	{"email", redact},
	{"user_id", hash},
	{"session_id", hash},
}

// Logger wraps a zap sugared logger with field sanitizing.
type Logger struct {
	sugar *zap.SugaredLogger
}

// New builds a development logger unless mode is "prod" or "production".
func New(mode string) (*Logger, error) {
	var cfg zap.Config
	switch strings.ToLower(mode) {
	case "prod", "production":
		cfg = zap.NewProductionConfig()
	default:
		cfg = zap.NewDevelopmentConfig()
		cfg.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	}
	z, err := cfg.Build(zap.AddCallerSkip(1))
	if err != nil {
		return nil, fmt.Errorf("build logger: %w", err)
	}
	return &Logger{sugar: z.Sugar()}, nil
}

// FromCore wraps an existing core, e.g. a zaptest/observer core in tests.
func FromCore(core zapcore.Core) *Logger {
	return &Logger{sugar: zap.New(core).Sugar()}
}

// Nop discards everything.
func Nop() *Logger {
	return &Logger{sugar: zap.NewNop().Sugar()}
}

// Sync flushes buffered entries. Call it before exit.
func (l *Logger) Sync() {
	_ = l.sugar.Sync()
}

// With returns a child logger that adds the given fields to every line.
func (l *Logger) With(kv ...interface{}) *Logger {
	return &Logger{sugar: l.sugar.With(sanitizeKVs(kv)...)}
}

func (l *Logger) Debug(msg string, kv ...interface{}) { l.sugar.Debugw(msg, sanitizeKVs(kv)...) }
func (l *Logger) Info(msg string, kv ...interface{})  { l.sugar.Infow(msg, sanitizeKVs(kv)...) }
func (l *Logger) Warn(msg string, kv ...interface{})  { l.sugar.Warnw(msg, sanitizeKVs(kv)...) }
func (l *Logger) Error(msg string, kv ...interface{}) { l.sugar.Errorw(msg, sanitizeKVs(kv)...) }

// DPanic marks a state the code should never reach. It panics in development
// builds and logs at error level in production.
func (l *Logger) DPanic(msg string, kv ...interface{}) { l.sugar.DPanicw(msg, sanitizeKVs(kv)...) }

// Fatal logs and exits the process. Only cmd should use it.
func (l *Logger) Fatal(msg string, kv ...interface{}) { l.sugar.Fatalw(msg, sanitizeKVs(kv)...) }

func sanitizeKVs(kv []interface{}) []interface{} {
	if len(kv) == 0 {
		return kv
	}
	out := make([]interface{}, 0, len(kv))
	for i := 0; i+1 < len(kv); i += 2 {
		key := toString(kv[i])
		out = append(out, key, sanitizeValue(strings.ToLower(strings.TrimSpace(key)), kv[i+1]))
	}
	if len(kv)%2 == 1 {
		out = append(out, kv[len(kv)-1])
	}
	return out
}

func sanitizeValue(key string, val interface{}) interface{} {
	switch actionFor(key) {
	case redact:
		return redacted
	case hash:
		return hashValue(val)
	}
	if s, ok := val.(string); ok && looksLikeJWT(s) {
		return redacted
	}
	return val
}

func actionFor(key string) fieldAction {
	for _, r := range fieldRules {
		if strings.Contains(key, r.fragment) {
			return r.action
		}
	}
	return keep
}

// hashValue gives a short stable pseudonym. LOG_HASH_SALT keeps it from being
// reversed by hashing known ids.
func hashValue(val interface{}) string {
	s := toString(val)
	if s == "" {
		return ""
	}
	sum := sha256.Sum256([]byte(os.Getenv("LOG_HASH_SALT") + s))
	return hex.EncodeToString(sum[:])[:12]
}

func looksLikeJWT(s string) bool {
	return strings.HasPrefix(s, "eyJ") && strings.Count(s, ".") == 2
}

func toString(v interface{}) string {
	switch t := v.(type) {
	case string:
		return t
	case fmt.Stringer:
		return t.String()
	default:
		return fmt.Sprint(v)
	}
}
