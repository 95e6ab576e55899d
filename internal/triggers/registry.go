package triggers

import (
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/adhocore/gronx"
	"gopkg.in/yaml.v3"

	"github.com/anonto42/nano-midea/functions/internal/metrics"
)

//go:embed registry.yaml
var defaultRegistry []byte

// Trigger sources.
const (
	SourceFirestore = "firestore"
	SourceStorage   = "storage"
	SourceSchedule  = "schedule"
)

// Document event types.
const (
	EventCreate   = "create"
	EventUpdate   = "update"
	EventFinalize = "finalize"
)

// Descriptor is one entry of the trigger table.
type Descriptor struct {
	Name     string `yaml:"name" json:"name"`
	Source   string `yaml:"source" json:"source"`
	Document string `yaml:"document,omitempty" json:"document,omitempty"`
	Event    string `yaml:"event,omitempty" json:"event,omitempty"`
	Schedule string `yaml:"schedule,omitempty" json:"schedule,omitempty"`
	Timezone string `yaml:"timezone,omitempty" json:"timezone,omitempty"`
	Handler  string `yaml:"handler" json:"handler"`

	location *time.Location
}

// Location is the timezone a schedule is evaluated in.
func (d Descriptor) Location() *time.Location {
	if d.location == nil {
		return time.UTC
	}
	return d.location
}

// DocumentEvent is a document write delivered by the trigger runtime.
type DocumentEvent struct {
	ID       string
	Type     string
	Document string
	Params   map[string]string
	Before   json.RawMessage
	After    json.RawMessage
}

// StorageObject is a finalized upload.
type StorageObject struct {
	Bucket      string
	Name        string
	ContentType string
}

type (
	DocumentHandler func(ctx context.Context, ev DocumentEvent) Outcome
	StorageHandler  func(ctx context.Context, obj StorageObject) Outcome
	JobHandler      func(ctx context.Context, now time.Time) Outcome
)

// Handlers binds handler names used in the table to code.
type Handlers struct {
	Documents map[string]DocumentHandler
	Storage   map[string]StorageHandler
	Jobs      map[string]JobHandler
}

// Registry is the loaded trigger table.
type Registry struct {
	descriptors []Descriptor
	handlers    Handlers
	log         *slog.Logger
}

// LoadDefault loads the embedded trigger table.
func LoadDefault(h Handlers, log *slog.Logger) (*Registry, error) {
	return Load(defaultRegistry, h, log)
}

// Load parses a trigger table and checks every descriptor against h.
func Load(data []byte, h Handlers, log *slog.Logger) (*Registry, error) {
	var table struct {
		Triggers []Descriptor `yaml:"triggers"`
	}
	if err := yaml.Unmarshal(data, &table); err != nil {
		return nil, fmt.Errorf("parse trigger table: %w", err)
	}

	seen := make(map[string]struct{}, len(table.Triggers))
	for i := range table.Triggers {
		d := &table.Triggers[i]
		if d.Name == "" {
			return nil, fmt.Errorf("trigger %d: name is required", i)
		}
		if _, dup := seen[d.Name]; dup {
			return nil, fmt.Errorf("trigger %s: duplicate name", d.Name)
		}
		seen[d.Name] = struct{}{}
		if err := validate(d, h); err != nil {
			return nil, fmt.Errorf("trigger %s: %w", d.Name, err)
		}
	}
	return &Registry{descriptors: table.Triggers, handlers: h, log: log}, nil
}

func validate(d *Descriptor, h Handlers) error {
	switch d.Source {
	case SourceFirestore:
		if !validPattern(d.Document) {
			return fmt.Errorf("invalid document pattern %q", d.Document)
		}
		if d.Event != EventCreate && d.Event != EventUpdate {
			return fmt.Errorf("unsupported document event %q", d.Event)
		}
		if _, ok := h.Documents[d.Handler]; !ok {
			return fmt.Errorf("unknown handler %q", d.Handler)
		}
	case SourceStorage:
		if d.Event != "" && d.Event != EventFinalize {
			return fmt.Errorf("unsupported storage event %q", d.Event)
		}
		if _, ok := h.Storage[d.Handler]; !ok {
			return fmt.Errorf("unknown handler %q", d.Handler)
		}
	case SourceSchedule:
		if !gronx.IsValid(d.Schedule) {
			return fmt.Errorf("invalid cron expression %q", d.Schedule)
		}
		tz := d.Timezone
		if tz == "" {
			tz = "UTC"
		}
		loc, err := time.LoadLocation(tz)
		if err != nil {
			return fmt.Errorf("invalid timezone %q: %w", d.Timezone, err)
		}
		d.location = loc
		if _, ok := h.Jobs[d.Handler]; !ok {
			return fmt.Errorf("unknown handler %q", d.Handler)
		}
	default:
		return fmt.Errorf("unknown source %q", d.Source)
	}
	return nil
}

// Descriptors returns a copy of the table.
func (r *Registry) Descriptors() []Descriptor {
	return append([]Descriptor(nil), r.descriptors...)
}

// Schedules returns the scheduled descriptors.
func (r *Registry) Schedules() []Descriptor {
	var out []Descriptor
	for _, d := range r.descriptors {
		if d.Source == SourceSchedule {
			out = append(out, d)
		}
	}
	return out
}

// NormalizeEventType maps runtime event type names onto create/update.
func NormalizeEventType(t string) string {
	t = strings.ToLower(strings.TrimSpace(t))
	switch {
	case strings.HasSuffix(t, ".created"), t == "created":
		return EventCreate
	case strings.HasSuffix(t, ".updated"), t == "updated":
		return EventUpdate
	}
	return t
}

// DispatchDocument runs every handler whose pattern and event match ev.
func (r *Registry) DispatchDocument(ctx context.Context, ev DocumentEvent) []Outcome {
	evType := NormalizeEventType(ev.Type)
	var outcomes []Outcome
	for _, d := range r.descriptors {
		if d.Source != SourceFirestore || d.Event != evType {
			continue
		}
		params, ok := matchDocument(d.Document, ev.Document)
		if !ok {
			continue
		}
		matched := ev
		matched.Type = evType
		matched.Params = params
		outcomes = append(outcomes, r.run(d, func() Outcome {
			return r.handlers.Documents[d.Handler](ctx, matched)
		}))
	}
	return outcomes
}

// DispatchStorage runs every storage handler for obj.
func (r *Registry) DispatchStorage(ctx context.Context, obj StorageObject) []Outcome {
	var outcomes []Outcome
	for _, d := range r.descriptors {
		if d.Source != SourceStorage {
			continue
		}
		outcomes = append(outcomes, r.run(d, func() Outcome {
			return r.handlers.Storage[d.Handler](ctx, obj)
		}))
	}
	return outcomes
}

// RunJob runs the scheduled trigger called name. ok is false when no such
// schedule exists.
func (r *Registry) RunJob(ctx context.Context, name string, now time.Time) (Outcome, bool) {
	for _, d := range r.descriptors {
		if d.Source == SourceSchedule && d.Name == name {
			return r.run(d, func() Outcome {
				return r.handlers.Jobs[d.Handler](ctx, now)
			}), true
		}
	}
	return Outcome{}, false
}

// run invokes fn and turns a panic into a failed outcome.
func (r *Registry) run(d Descriptor, fn func() Outcome) (out Outcome) {
	start := time.Now()
	defer func() {
		if p := recover(); p != nil {
			out = Failed(fmt.Errorf("panic: %v", p))
		}
		out.Trigger = d.Name
		metrics.ObserveTrigger(d.Handler, string(out.Status))

		attrs := []any{"trigger", d.Name, "status", out.Status, "duration", time.Since(start)}
		switch out.Status {
		case StatusFailed:
			r.log.Error("trigger_failed", append(attrs, "error", out.Error)...)
		case StatusIgnored:
			r.log.Info("trigger_ignored", append(attrs, "reason", out.Reason)...)
		default:
			r.log.Info("trigger_done", attrs...)
		}
	}()
	return fn()
}
