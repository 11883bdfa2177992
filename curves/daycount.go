package curves

import (
	"strings"
	"time"

	"github.com/bcdannyboy/cmdty/errs"
)

// DayCount maps a (start, end) date pair to a year fraction.
type DayCount func(start, end time.Time) float64

func days(start, end time.Time) float64 {
	return Normalize(end).Sub(Normalize(start)).Hours() / 24
}

// Act365 counts actual days over a 365 day year.
func Act365(start, end time.Time) float64 {
	return days(start, end) / 365
}

// Act360 counts actual days over a 360 day year.
func Act360(start, end time.Time) float64 {
	return days(start, end) / 360
}

// Act36525 counts actual days over a 365.25 day year.
func Act36525(start, end time.Time) float64 {
	return days(start, end) / 365.25
}

// DayCountByName resolves a configured convention name such as "act/365".
func DayCountByName(name string) (DayCount, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "act/365", "act365", "actual/365":
		return Act365, nil
	case "act/360", "act360", "actual/360":
		return Act360, nil
	case "act/365.25", "act36525", "actual/365.25":
		return Act36525, nil
	}
	return nil, errs.Config("dayCount", "unknown convention %q", name)
}
