package reconcile

import (
	"fmt"

	"gitlab.com/voxtel/api/call-transfer-reconciler/internal/validator"
)

// QueueMap is an immutable lookup from queue extension to the callee
// identifier expected on the matching inbound call, plus optional per-queue
// default agent extensions applied when no inbound match exists at all.
// It is injected into the engine explicitly so tests and multi-tenant
// deployments can substitute their own tables.
type QueueMap struct {
	callees  map[string]string
	defaults map[string]string
}

// NewQueueMap builds a QueueMap from the given tables. Both maps are copied.
func NewQueueMap(callees, defaults map[string]string) QueueMap {
	m := QueueMap{
		callees:  make(map[string]string, len(callees)),
		defaults: make(map[string]string, len(defaults)),
	}
	for k, v := range callees {
		m.callees[k] = v
	}
	for k, v := range defaults {
		m.defaults[k] = v
	}
	return m
}

// DefaultQueueMap returns the hand-maintained reference table.
func DefaultQueueMap() QueueMap {
	return NewQueueMap(map[string]string{
		"8000": "7013",
		"8001": "7014",
		"8002": "7015",
		"8003": "7016",
		"8004": "7017",
		"8005": "7018",
		"8006": "7019",
		"8007": "7020",
		"8008": "7021",
		"8009": "7022",
		"8010": "7023",
		"8011": "7024",
		"8012": "7025",
		"8013": "7026",
		"8014": "7027",
		"8015": "7028",
		"8016": "7029",
		"8017": "7030",
		"8018": "7031",
		"8019": "7032",
	}, nil)
}

// Callee returns the callee identifier expected for a queue extension.
// Absence is not an error; callers degrade to identifier-unconstrained
// matching.
func (m QueueMap) Callee(queueExt string) (string, bool) {
	callee, ok := m.callees[queueExt]
	return callee, ok
}

// DefaultAgent returns the configured fallback agent extension for a queue,
// if any.
func (m QueueMap) DefaultAgent(queueExt string) (string, bool) {
	ext, ok := m.defaults[queueExt]
	return ext, ok
}

// Len returns the number of queue-to-callee entries.
func (m QueueMap) Len() int {
	return len(m.callees)
}

// Validate checks that every key is a well-formed queue extension and every
// value a numeric identifier.
func (m QueueMap) Validate() error {
	for queueExt, callee := range m.callees {
		if !IsQueueExtension(queueExt) {
			return fmt.Errorf("queue map key %q is not a queue extension", queueExt)
		}
		if err := validator.ValidateVar(callee, "required,numeric"); err != nil {
			return fmt.Errorf("queue map value %q for key %q: %w", callee, queueExt, err)
		}
	}
	for queueExt, agentExt := range m.defaults {
		if !IsQueueExtension(queueExt) {
			return fmt.Errorf("queue defaults key %q is not a queue extension", queueExt)
		}
		if err := validator.ValidateVar(agentExt, "required,numeric"); err != nil {
			return fmt.Errorf("queue defaults value %q for key %q: %w", agentExt, queueExt, err)
		}
	}
	return nil
}
