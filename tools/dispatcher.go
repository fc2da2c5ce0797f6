package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/quillmont/coursechat/internal/metrics"
)

// Dispatcher holds the registered tools, routes execution-by-name calls, and
// remembers the citation sources of the last execution that produced any.
type Dispatcher struct {
	byName map[string]Tool
	order  []Tool

	mu          sync.Mutex
	lastSources []Source

	logger *zap.Logger
}

// NewDispatcher creates a dispatcher and registers the given tools in order.
func NewDispatcher(logger *zap.Logger, ts ...Tool) (*Dispatcher, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	d := &Dispatcher{byName: make(map[string]Tool), logger: logger}
	for _, t := range ts {
		if err := d.Register(t); err != nil {
			return nil, err
		}
	}
	return d, nil
}

// Register adds a tool under its definition name. A tool whose definition
// lacks a name is a configuration error. Re-registering a name replaces the
// prior entry.
func (d *Dispatcher) Register(t Tool) error {
	def := t.Definition()
	if def.Name == "" {
		return fmt.Errorf("tool definition must have a name")
	}
	if _, exists := d.byName[def.Name]; exists {
		for i, prev := range d.order {
			if prev.Definition().Name == def.Name {
				d.order[i] = t
				break
			}
		}
	} else {
		d.order = append(d.order, t)
	}
	d.byName[def.Name] = t
	return nil
}

// Definitions returns one definition per registered tool, in registration
// order.
func (d *Dispatcher) Definitions() []ToolDefinition {
	defs := make([]ToolDefinition, 0, len(d.order))
	for _, t := range d.order {
		defs = append(defs, t.Definition())
	}
	return defs
}

// Execute runs the named tool and returns its text. An unknown name or a
// failing tool is not an error at this layer: the outcome is rendered as
// text and flows back into the reasoning transcript like any other result.
// Sources returned by the tool replace the remembered ones; executions that
// yield no sources leave them untouched.
func (d *Dispatcher) Execute(ctx context.Context, name string, input json.RawMessage) string {
	t, ok := d.byName[name]
	if !ok {
		metrics.ToolExecutionsTotal.WithLabelValues(name, "not_found").Inc()
		d.logger.Warn("tool not found", zap.String("tool", name))
		return fmt.Sprintf("Tool '%s' not found", name)
	}

	start := time.Now()
	res, err := t.Execute(ctx, input)
	if err != nil {
		metrics.ToolExecutionsTotal.WithLabelValues(name, "error").Inc()
		d.logger.Warn("tool execution failed",
			zap.String("tool", name),
			zap.Duration("duration", time.Since(start)),
			zap.Error(err),
		)
		return err.Error()
	}

	if len(res.Sources) > 0 {
		d.mu.Lock()
		d.lastSources = res.Sources
		d.mu.Unlock()
	}

	metrics.ToolExecutionsTotal.WithLabelValues(name, "success").Inc()
	d.logger.Debug("tool executed",
		zap.String("tool", name),
		zap.Duration("duration", time.Since(start)),
		zap.Int("input_size", len(input)),
		zap.Int("output_size", len(res.Text)),
		zap.Int("sources", len(res.Sources)),
	)
	return res.Text
}

// Sources returns the citation sources of the most recent execution that
// produced any, or an empty slice.
func (d *Dispatcher) Sources() []Source {
	d.mu.Lock()
	defer d.mu.Unlock()
	if len(d.lastSources) == 0 {
		return []Source{}
	}
	out := make([]Source, len(d.lastSources))
	copy(out, d.lastSources)
	return out
}

// ResetSources clears the remembered sources. Idempotent.
func (d *Dispatcher) ResetSources() {
	d.mu.Lock()
	d.lastSources = nil
	d.mu.Unlock()
}
