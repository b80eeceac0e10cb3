package logging

import (
	"fmt"
	"os"
	"strings"

	log "github.com/sirupsen/logrus"
)

// Redacted replaces the value of sensitive fields.
const Redacted = "[REDACTED]"

// SensitiveFields are the field names whose values never reach the log output.
var SensitiveFields = []string{
	"svix_signature",
	"authorization",
	"session_token",
	"webhook_secret",
	"payload",
}

// Init configures the standard logger: JSON to stdout at the given level with sensitive fields redacted.
func Init(level string) error {
	// Log as JSON instead of the default ASCII formatter.
	log.SetFormatter(&log.JSONFormatter{})
	log.SetOutput(os.Stdout)

	lvl, err := log.ParseLevel(level)
	if err != nil {
		return fmt.Errorf("invalid log level %q: %w", level, err)
	}
	log.SetLevel(lvl)
	log.AddHook(NewRedactHook(SensitiveFields...))
	return nil
}

// RedactHook is a logrus hook overwriting the value of the configured fields.
type RedactHook struct {
	fields map[string]struct{}
}

// NewRedactHook creates a RedactHook. Field names are matched case-insensitively.
func NewRedactHook(fields ...string) *RedactHook {
	h := &RedactHook{fields: make(map[string]struct{}, len(fields))}
	for _, f := range fields {
		h.fields[strings.ToLower(f)] = struct{}{}
	}
	return h
}

func (h *RedactHook) Levels() []log.Level {
	return log.AllLevels
}

func (h *RedactHook) Fire(entry *log.Entry) error {
	for k := range entry.Data {
		if _, ok := h.fields[strings.ToLower(k)]; ok {
			entry.Data[k] = Redacted
		}
	}
	return nil
}
