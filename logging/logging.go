// Package logging sets up the global logrus logger. Import it with the blank
// identifier from main so LOG_LEVEL and LOG_FORMAT apply before anything logs.
package logging

import (
	"os"
	"strconv"
	"strings"

	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/trace"
)

const (
	Debug = "DEBUG"
	Info  = "INFO"
	Warn  = "WARN"
	Error = "ERROR"
)

const redacted = "[redacted]"

// Fields whose values never reach the output.
var secretFields = []string{"api_key", "apikey", "macaroon", "password", "x-api-key"}

func init() {
	log.AddHook(&logrusContextHook{})
	log.AddHook(&logrusRedactHook{})

	logLevel, ok := os.LookupEnv("LOG_LEVEL")
	if !ok {
		logLevel = "info"
	}

	if err := Configure(logLevel, os.Getenv("LOG_FORMAT")); err != nil {
		log.Fatal(err)
	}
}

// Configure sets the level and the format ("json" or text) of the global
// logger. Debug level also reports the caller.
func Configure(level, format string) error {
	parsed, err := log.ParseLevel(level)
	if err != nil {
		return err
	}

	log.SetLevel(parsed)
	log.SetFormatter(formatter(format))
	log.SetReportCaller(parsed >= log.DebugLevel)

	return nil
}

func formatter(format string) log.Formatter {
	if strings.EqualFold(format, "json") {
		return &log.JSONFormatter{}
	}

	return &log.TextFormatter{FullTimestamp: true}
}

type logrusContextHook struct{}

func (hook *logrusContextHook) Levels() []log.Level {
	return log.AllLevels
}

// Fire adds the trace and span ids of the entry context, following the
// Datadog naming convention.
func (hook *logrusContextHook) Fire(entry *log.Entry) error {
	if entry.Context == nil {
		return nil
	}
	span := trace.SpanFromContext(entry.Context).SpanContext()

	if span.IsValid() {
		entry.Data["dd.trace_id"] = convertTraceID(span.TraceID().String())
		entry.Data["dd.span_id"] = convertTraceID(span.SpanID().String())
	}

	return nil
}

type logrusRedactHook struct{}

func (h *logrusRedactHook) Levels() []log.Level {
	return log.AllLevels
}

func (h *logrusRedactHook) Fire(entry *log.Entry) error {
	for key := range entry.Data {
		if isSecret(key) {
			entry.Data[key] = redacted
		}
	}

	return nil
}

func isSecret(key string) bool {
	key = strings.ToLower(key)
	for _, secret := range secretFields {
		if key == secret {
			return true
		}
	}

	return false
}

// Took from DD https://docs.datadoghq.com/tracing/other_telemetry/connect_logs_and_traces/opentelemetry?tab=go
func convertTraceID(id string) string {
	if len(id) < 16 {
		return ""
	}
	if len(id) > 16 {
		id = id[16:]
	}
	intValue, err := strconv.ParseUint(id, 16, 64)
	if err != nil {
		return ""
	}

	return strconv.FormatUint(intValue, 10)
}
