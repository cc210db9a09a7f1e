// Package routing stores and retrieves the routing identifier of a script
// execution context.
package routing

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"sync"
)

const logPrefix = "routing:routing"

// SlotIndex is the embedder data slot reserved for the routing identifier.
const SlotIndex = 12

// Context is the per-execution-context key/value storage the embedder
// provides. The routing identifier lives at SlotIndex.
type Context interface {
	EmbedderData(index int) any
	SetEmbedderData(index int, value any)
}

// GetRoutingID returns the routing identifier stored in ctx, or 0 when none
// is set or the stored value is not a number. An invalid value is logged
// but never fails the caller.
func GetRoutingID(ctx Context) int {
	if ctx == nil {
		slog.Warn(fmt.Sprintf("%s - Failed to get routing id: nil context", logPrefix))
		return 0
	}
	id, ok := toInt(ctx.EmbedderData(SlotIndex))
	if !ok {
		slog.Warn(fmt.Sprintf("%s - Failed to get routing id from context", logPrefix))
		return 0
	}
	return id
}

// SetRoutingID stores id in ctx for the lifetime of the context. The value
// is not validated here; senders reject identifiers below 1.
func SetRoutingID(ctx Context, id int) {
	ctx.SetEmbedderData(SlotIndex, id)
}

// toInt accepts any numeric slot value. Floats are truncated toward zero.
func toInt(v any) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int8:
		return int(n), true
	case int16:
		return int(n), true
	case int32:
		return int(n), true
	case int64:
		return int(n), true
	case uint:
		return int(n), true
	case uint8:
		return int(n), true
	case uint16:
		return int(n), true
	case uint32:
		return int(n), true
	case uint64:
		return int(n), true
	case float32:
		return floatToInt(float64(n))
	case float64:
		return floatToInt(n)
	case json.Number:
		if i, err := n.Int64(); err == nil {
			return int(i), true
		}
		f, err := n.Float64()
		if err != nil {
			return 0, false
		}
		return floatToInt(f)
	default:
		return 0, false
	}
}

func floatToInt(f float64) (int, bool) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return int(f), true
}

// Slots is an in-memory Context. It is safe for concurrent use.
type Slots struct {
	mu   sync.RWMutex
	data map[int]any
}

// NewSlots creates an empty Slots.
func NewSlots() *Slots {
	return &Slots{data: make(map[int]any)}
}

// NewSlotsWithRoutingID creates a Slots with the routing identifier already set.
func NewSlotsWithRoutingID(id int) *Slots {
	s := NewSlots()
	SetRoutingID(s, id)
	return s
}

// EmbedderData returns the value at index, or nil.
func (s *Slots) EmbedderData(index int) any {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.data[index]
}

// SetEmbedderData stores value at index.
func (s *Slots) SetEmbedderData(index int, value any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[index] = value
}
