// Package curves provides the day-keyed curve used for forward prices and
// volatilities, plus the day-count functions that turn dates into year
// fractions.
package curves

import (
	"sort"
	"time"

	"github.com/bcdannyboy/cmdty/errs"
)

// Day returns midnight UTC of the given calendar date.
func Day(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

// Normalize drops the clock part of t, keeping its calendar date.
func Normalize(t time.Time) time.Time {
	y, m, d := t.Date()
	return Day(y, m, d)
}

// Curve is an ordered sequence of (period, value) pairs. Periods are
// calendar days, strictly increasing and unique. A Curve is immutable.
type Curve struct {
	periods []time.Time
	values  []float64
}

// New builds a curve from parallel slices of periods and values.
func New(periods []time.Time, values []float64) (*Curve, error) {
	if len(periods) != len(values) {
		return nil, errs.Config("periods", "got %d periods for %d values", len(periods), len(values))
	}

	c := &Curve{
		periods: make([]time.Time, len(periods)),
		values:  make([]float64, len(values)),
	}
	copy(c.values, values)
	for i, p := range periods {
		c.periods[i] = Normalize(p)
		if i > 0 && !c.periods[i].After(c.periods[i-1]) {
			return nil, errs.Config("periods", "period %s does not follow %s",
				c.periods[i].Format(time.DateOnly), c.periods[i-1].Format(time.DateOnly))
		}
	}
	return c, nil
}

// FromMap builds a curve from an unordered map. Keys falling on the same
// calendar day are rejected as duplicates.
func FromMap(m map[time.Time]float64) (*Curve, error) {
	periods := make([]time.Time, 0, len(m))
	for p := range m {
		periods = append(periods, p)
	}
	sort.Slice(periods, func(i, j int) bool { return periods[i].Before(periods[j]) })

	values := make([]float64, len(periods))
	for i, p := range periods {
		values[i] = m[p]
	}
	return New(periods, values)
}

// Daily builds a curve with one point per calendar day from start to end
// inclusive, valued by fn.
func Daily(start, end time.Time, fn func(day time.Time) float64) (*Curve, error) {
	start, end = Normalize(start), Normalize(end)
	if end.Before(start) {
		return nil, errs.Config("end", "%s is before start %s", end.Format(time.DateOnly), start.Format(time.DateOnly))
	}

	n := int(end.Sub(start).Hours()/24) + 1
	c := &Curve{
		periods: make([]time.Time, n),
		values:  make([]float64, n),
	}
	for i := 0; i < n; i++ {
		day := start.AddDate(0, 0, i)
		c.periods[i] = day
		c.values[i] = fn(day)
	}
	return c, nil
}

// Constant builds a daily curve holding value from start to end inclusive.
func Constant(start, end time.Time, value float64) (*Curve, error) {
	return Daily(start, end, func(time.Time) float64 { return value })
}

func (c *Curve) Len() int {
	if c == nil {
		return 0
	}
	return len(c.periods)
}

func (c *Curve) IsEmpty() bool { return c.Len() == 0 }

// Start returns the first period. It panics on an empty curve.
func (c *Curve) Start() time.Time { return c.periods[0] }

// End returns the last period. It panics on an empty curve.
func (c *Curve) End() time.Time { return c.periods[len(c.periods)-1] }

// At returns the i-th point.
func (c *Curve) At(i int) (time.Time, float64) {
	return c.periods[i], c.values[i]
}

// IndexOf returns the position of period, or -1 if the curve has no point on
// that day.
func (c *Curve) IndexOf(period time.Time) int {
	if c.IsEmpty() {
		return -1
	}
	period = Normalize(period)
	i := sort.Search(len(c.periods), func(i int) bool { return !c.periods[i].Before(period) })
	if i < len(c.periods) && c.periods[i].Equal(period) {
		return i
	}
	return -1
}

// Value looks up the value on period.
func (c *Curve) Value(period time.Time) (float64, bool) {
	i := c.IndexOf(period)
	if i < 0 {
		return 0, false
	}
	return c.values[i], true
}

// Contains reports whether the curve has a point on period.
func (c *Curve) Contains(period time.Time) bool {
	return c.IndexOf(period) >= 0
}

// Covers reports whether [start, end] lies within the curve's range.
func (c *Curve) Covers(start, end time.Time) bool {
	if c.IsEmpty() {
		return false
	}
	return !Normalize(start).Before(c.Start()) && !Normalize(end).After(c.End())
}

// Periods returns a copy of the curve's periods.
func (c *Curve) Periods() []time.Time {
	out := make([]time.Time, c.Len())
	copy(out, c.periods)
	return out
}

// Values returns a copy of the curve's values.
func (c *Curve) Values() []float64 {
	out := make([]float64, c.Len())
	copy(out, c.values)
	return out
}
