package logging

import (
	"context"
	"encoding/json"
	"io"
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/Metatronsdoob369/arbiterOS-legal-confidant/internal/observability"
	"github.com/Metatronsdoob369/arbiterOS-legal-confidant/internal/version"
)

const SchemaVersion = "1.0"

// EventPrefix namespaces every event for downstream filtering.
const EventPrefix = "arbiter."

type jsonlLogger struct {
	writer   io.Writer
	closer   io.Closer
	minLevel int
	mu       sync.Mutex
}

type logEntry struct {
	Timestamp      string         `json:"ts"`
	Level          string         `json:"level"`
	Event          string         `json:"event,omitempty"`
	Component      string         `json:"component"`
	OpID           string         `json:"op_id"`
	RunID          string         `json:"run_id,omitempty"`
	SchemaVersion  string         `json:"schema_version"`
	ArbiterVersion string         `json:"arbiter_version,omitempty"`
	GoVersion      string         `json:"go_version,omitempty"`
	Message        string         `json:"msg,omitempty"`
	Fields         map[string]any `json:"fields,omitempty"`
}

func (j *jsonlLogger) newEntry(level, component string) logEntry {
	return logEntry{
		Timestamp:      time.Now().UTC().Format(time.RFC3339Nano),
		Level:          level,
		Component:      component,
		SchemaVersion:  SchemaVersion,
		ArbiterVersion: version.BuildVersion(),
		GoVersion:      runtime.Version(),
	}
}

func (j *jsonlLogger) log(level, component, msg string, fields ...any) {
	if levelPriority(level) < j.minLevel {
		return
	}

	entry := j.newEntry(level, component)
	entry.Message = msg
	if len(fields) > 0 {
		entry.Fields = make(map[string]any)
		for i := 0; i+1 < len(fields); i += 2 {
			if key, ok := fields[i].(string); ok {
				entry.Fields[key] = fields[i+1]
			}
		}
	}
	j.writeEntry(entry)
}

// Event logs at info. The component is the event's first dotted segment,
// so "tool.invoke" is logged under "tool".
func (j *jsonlLogger) Event(ctx context.Context, event string, fields map[string]any) {
	if levelPriority(LevelInfo) < j.minLevel {
		return
	}

	component := event
	if i := strings.IndexByte(event, '.'); i > 0 {
		component = event[:i]
	}
	entry := j.newEntry(LevelInfo, component)
	entry.Event = EventPrefix + event
	entry.OpID = observability.OpID(ctx)
	entry.RunID = observability.RunID(ctx)
	entry.Fields = fields
	j.writeEntry(entry)
}

func (j *jsonlLogger) writeEntry(entry logEntry) {
	data, err := json.Marshal(entry)
	if err != nil {
		return // skip unencodable fields
	}
	data = append(data, '\n')

	j.mu.Lock()
	defer j.mu.Unlock()
	_, _ = j.writer.Write(data) // best effort
}

func (j *jsonlLogger) Debug(component, msg string, fields ...any) {
	j.log(LevelDebug, component, msg, fields...)
}

func (j *jsonlLogger) Info(component, msg string, fields ...any) {
	j.log(LevelInfo, component, msg, fields...)
}

func (j *jsonlLogger) Warn(component, msg string, fields ...any) {
	j.log(LevelWarn, component, msg, fields...)
}

func (j *jsonlLogger) Error(component, msg string, fields ...any) {
	j.log(LevelError, component, msg, fields...)
}

func (j *jsonlLogger) Close() error {
	if j.closer != nil {
		return j.closer.Close()
	}
	return nil
}
