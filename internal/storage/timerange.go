package storage

import "fmt"

// MaxRangeSecs bounds a single history query.
const MaxRangeSecs = 366 * 24 * 60 * 60

// ValidateRange checks a [from, to] unix epoch query range.
func ValidateRange(from, to int64) error {
	if from < 0 {
		return fmt.Errorf("from must not be negative, got %d", from)
	}
	if to < from {
		return fmt.Errorf("to (%d) must not be before from (%d)", to, from)
	}
	if to-from > MaxRangeSecs {
		return fmt.Errorf("range of %d seconds exceeds the %d second limit", to-from, MaxRangeSecs)
	}
	return nil
}
