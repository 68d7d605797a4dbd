package utils

import (
	"fmt"
	"time"
)

// TimeNowUTC is the single clock used for persisted timestamps.
func TimeNowUTC() time.Time {
	return time.Now().UTC()
}

// TruncateToStorage drops precision PostgreSQL timestamps cannot hold so that
// values read back compare equal to the ones written.
func TruncateToStorage(t time.Time) time.Time {
	return t.UTC().Truncate(time.Microsecond)
}

// EqualTimePtr reports whether two optional timestamps denote the same instant
// at storage precision.
func EqualTimePtr(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return TruncateToStorage(*a).Equal(TruncateToStorage(*b))
}

func PrettyDate(date time.Time) string {
	date = date.UTC()
	return fmt.Sprintf("%02d %s %d - %02d:%02d UTC",
		date.Day(),
		date.Month().String()[:3],
		date.Year(),
		date.Hour(),
		date.Minute(),
	)
}
