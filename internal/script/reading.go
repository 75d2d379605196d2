package script

import (
	"fmt"
	"math"
	"time"
)

// WordsPerMinute is the speaking rate assumed by reading-time estimates.
const WordsPerMinute = 150

// ReadingTime estimates how long count words take to read aloud.
func ReadingTime(count int) time.Duration {
	if count <= 0 {
		return 0
	}
	minutes := float64(count) / WordsPerMinute
	return time.Duration(minutes * float64(time.Minute))
}

// FormatReadingTime renders an estimate as "~42s read", "~3m 20s read", or "~75m read".
func FormatReadingTime(count int) string {
	if count <= 0 {
		return ""
	}

	minutes := ReadingTime(count).Minutes()
	switch {
	case minutes < 1:
		seconds := int(math.Max(1, math.Round(minutes*60)))
		return fmt.Sprintf("~%ds read", seconds)
	case minutes < 60:
		m := int(math.Floor(minutes))
		s := int(math.Round((minutes - float64(m)) * 60))
		if s > 0 {
			return fmt.Sprintf("~%dm %ds read", m, s)
		}
		return fmt.Sprintf("~%dm read", m)
	default:
		return fmt.Sprintf("~%dm read", int(math.Round(minutes)))
	}
}
