package reconcile

import "strconv"

// Queue extensions occupy the 8000-8999 range. Anything else is a direct
// agent line or an external number.
const (
	queueExtensionMin = 8000
	queueExtensionMax = 8999
)

// IsQueueExtension reports whether the extension denotes a call-routing
// queue: exactly 4 characters, leading '8', numeric value in [8000, 8999].
// Non-numeric, wrong-length and empty input evaluate to false, never panic.
func IsQueueExtension(ext string) bool {
	if len(ext) != 4 || ext[0] != '8' {
		return false
	}
	n, err := strconv.Atoi(ext)
	if err != nil {
		return false
	}
	return n >= queueExtensionMin && n <= queueExtensionMax
}
