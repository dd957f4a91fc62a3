package utils

import (
	"reflect"

	"github.com/nats-io/nats.go"
)

// StreamConfigEqual compares the fields of two stream configurations that we
// actually manage. Server-populated fields are ignored so an existing stream
// is not needlessly updated.
func StreamConfigEqual(a, b nats.StreamConfig) bool {
	if a.Name != b.Name {
		return false
	}
	if !reflect.DeepEqual(a.Subjects, b.Subjects) {
		return false
	}
	if a.Retention != b.Retention {
		return false
	}
	if a.MaxAge != b.MaxAge {
		return false
	}
	if a.Storage != b.Storage {
		return false
	}
	return true
}
