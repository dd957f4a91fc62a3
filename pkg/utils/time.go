package utils

import "time"

// secondsToMillisThreshold is the magnitude below which a unix timestamp is
// assumed to be expressed in seconds rather than milliseconds. Values under
// this threshold correspond to dates before year 2286 when read as seconds,
// and before year 1970-04 when read as milliseconds, so seconds is the safer
// reading. This is a heuristic over heterogeneous source data, not a
// protocol guarantee.
const secondsToMillisThreshold = int64(10_000_000_000)

// Now returns the current time in UTC timezone
func Now() time.Time {
	return time.Now().UTC()
}

// NormalizeMillis converts a unix timestamp that may be expressed in seconds
// or milliseconds into milliseconds. Non-positive inputs yield zero.
func NormalizeMillis(timestamp int64) int64 {
	if timestamp <= 0 {
		return 0
	}
	if timestamp < secondsToMillisThreshold {
		return timestamp * 1000
	}
	return timestamp
}

// AbsMillis returns the absolute difference between two millisecond timestamps.
func AbsMillis(a, b int64) int64 {
	if a > b {
		return a - b
	}
	return b - a
}

// UnixToTime converts a unix timestamp in seconds to a UTC time.Time
func UnixToTime(timestamp int64) time.Time {
	if timestamp <= 0 {
		return time.Time{}
	}
	return time.Unix(timestamp, 0).UTC()
}

// MillisToTime converts a unix timestamp in milliseconds to a UTC time.Time
func MillisToTime(timestamp int64) time.Time {
	if timestamp <= 0 {
		return time.Time{}
	}
	seconds := timestamp / 1000
	nanos := (timestamp % 1000) * 1000000
	return time.Unix(seconds, nanos).UTC()
}

// FormatISO8601 formats a time.Time to ISO8601 format in UTC
func FormatISO8601(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}
