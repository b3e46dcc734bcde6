package rankingdomain

import (
	"fmt"
	"strings"
	"time"

	"github.com/olebedev/when"
	"github.com/olebedev/when/rules/common"
	"github.com/olebedev/when/rules/en"
)

// Day truncates t to its UTC calendar day.
func Day(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// DateRange is an inclusive range of calendar days. A zero bound is open.
type DateRange struct {
	From time.Time
	To   time.Time
}

// SingleDay is the range covering exactly one calendar day.
func SingleDay(t time.Time) DateRange {
	d := Day(t)
	return DateRange{From: d, To: d}
}

// Days lists every day in the range. Both bounds must be set.
func (r DateRange) Days() []time.Time {
	if r.From.IsZero() || r.To.IsZero() {
		return nil
	}
	var out []time.Time
	for d := Day(r.From); !d.After(Day(r.To)); d = d.AddDate(0, 0, 1) {
		out = append(out, d)
	}
	return out
}

var dateParser = func() *when.Parser {
	w := when.New(nil)
	w.Add(en.All...)
	w.Add(common.All...)
	return w
}()

// ParseDate accepts YYYY-MM-DD or a relative phrase such as "yesterday" or
// "last friday", resolved against now. An empty input means today.
func ParseDate(input string, now time.Time) (time.Time, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return Day(now), nil
	}
	if t, err := time.Parse(time.DateOnly, input); err == nil {
		return t, nil
	}

	r, err := dateParser.Parse(strings.ToLower(input), now.UTC())
	if err != nil {
		return time.Time{}, fmt.Errorf("could not parse date %q: %w", input, err)
	}
	if r == nil {
		return time.Time{}, fmt.Errorf("could not parse date %q", input)
	}
	return Day(r.Time), nil
}
