package underwriting

import (
	"fmt"
	"sort"
	"time"
)

const dateLayout = "2006-01-02"

// CheckContinuity sorts the statement periods and reports whether they form
// an unbroken date range. A gap exists when more than one calendar day lies
// between one period's end and the next period's start; overlapping periods
// are allowed.
func CheckContinuity(periods []Period) (Continuity, error) {
	out := Continuity{
		Periods:      append([]Period(nil), periods...),
		IsContiguous: true,
		Gaps:         []Gap{},
	}
	if len(out.Periods) == 0 {
		return out, fmt.Errorf("no statement periods found")
	}

	type parsed struct {
		start, end time.Time
		period     Period
	}
	ranges := make([]parsed, 0, len(out.Periods))
	for _, p := range out.Periods {
		start, err := time.Parse(dateLayout, p.StartDate)
		if err != nil {
			return out, fmt.Errorf("invalid start date %q: %w", p.StartDate, err)
		}
		end, err := time.Parse(dateLayout, p.EndDate)
		if err != nil {
			return out, fmt.Errorf("invalid end date %q: %w", p.EndDate, err)
		}
		if end.Before(start) {
			return out, fmt.Errorf("period %s ends before it starts", p.SourceFile)
		}
		ranges = append(ranges, parsed{start: start, end: end, period: p})
	}

	sort.Slice(ranges, func(i, j int) bool {
		return ranges[i].start.Before(ranges[j].start)
	})
	for i, r := range ranges {
		out.Periods[i] = r.period
	}

	covered := ranges[0].end
	for _, r := range ranges[1:] {
		missing := int(r.start.Sub(covered).Hours()/24) - 1
		if missing > 0 {
			out.IsContiguous = false
			out.Gaps = append(out.Gaps, Gap{
				After:       covered.Format(dateLayout),
				Before:      r.start.Format(dateLayout),
				MissingDays: missing,
			})
		}
		if r.end.After(covered) {
			covered = r.end
		}
	}

	return out, nil
}
