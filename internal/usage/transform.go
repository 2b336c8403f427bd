// Package usage turns raw usage records into display aggregates.
package usage

import (
	"math"
	"strconv"
	"time"

	"github.com/goodtune/timeleak/internal/storage"
)

const (
	msPerMinute = 60000

	// MinutesPerDay bounds a plausible goal expressed in minutes. Larger goal
	// values are taken to be milliseconds.
	MinutesPerDay = 1440

	// DefaultDateLayout matches the long US date style, e.g. "January 2, 2006".
	DefaultDateLayout = "January 2, 2006"
)

// Transformer converts raw usage records into aggregates. The zero value is usable
// and formats dates in UTC with DefaultDateLayout, mapping every app to Other.
type Transformer struct {
	Categories CategoryMap
	Location   *time.Location
	DateLayout string
}

// NewTransformer creates a transformer.
func NewTransformer(categories CategoryMap, loc *time.Location, dateLayout string) *Transformer {
	return &Transformer{
		Categories: categories,
		Location:   loc,
		DateLayout: dateLayout,
	}
}

// Transform derives the aggregate for a record. It never fails: absent or
// negative numeric fields are treated as zero. Minutes are rounded per field, so
// the breakdown may differ from the total by a minute.
func (t *Transformer) Transform(rec storage.UsageRecord) Aggregate {
	total := Minutes(rec.TotalScreenTimeMs)
	social := Minutes(rec.SocialMediaTimeMs)
	entertainment := Minutes(rec.EntertainmentTimeMs)
	other := total - social - entertainment

	agg := Aggregate{
		PhoneNumber:            rec.PhoneNumber,
		DisplayDate:            t.FormatDate(rec.Date),
		TotalScreenTimeMinutes: total,
		Apps:                   make([]App, 0, len(rec.AppUsage)),
		CategoryBreakdown: map[Category]int{
			CategorySocialMedia:   social,
			CategoryEntertainment: entertainment,
			CategoryProductivity:  0,
			CategoryMessaging:     0,
			CategoryOther:         other,
		},
		Inconsistent: other < 0,
	}

	if rec.GoalTime != nil {
		goal, _ := GoalMinutes(*rec.GoalTime)
		agg.GoalTimeMinutes = &goal
	}

	for _, app := range rec.AppUsage {
		agg.Apps = append(agg.Apps, App{
			Name:             app.Package,
			TimeSpentMinutes: Minutes(app.Ms),
			Category:         t.Categories.Lookup(app.Package),
		})
	}

	return agg
}

// Minutes converts milliseconds to whole minutes, rounding half up.
// Negative input is treated as zero.
func Minutes(ms int64) int {
	if ms <= 0 {
		return 0
	}
	return int(math.Round(float64(ms) / msPerMinute))
}

// GoalMinutes interprets a stored goal. Values above MinutesPerDay are taken to
// be milliseconds; fromMs reports when that branch applied. A genuine goal above
// one day in minutes is indistinguishable from milliseconds and is misread.
func GoalMinutes(raw int64) (minutes int, fromMs bool) {
	if raw > MinutesPerDay {
		return Minutes(raw), true
	}
	if raw < 0 {
		return 0, false
	}
	return int(raw), false
}

// FormatDate renders a stored date for display. It accepts time values, the
// store-native {seconds: n} timestamp shape and strings; strings that are not
// recognizable dates are returned unchanged.
func (t *Transformer) FormatDate(v any) string {
	loc := t.Location
	if loc == nil {
		loc = time.UTC
	}
	layout := t.DateLayout
	if layout == "" {
		layout = DefaultDateLayout
	}

	switch d := v.(type) {
	case nil:
		return ""
	case time.Time:
		if d.IsZero() {
			return ""
		}
		return d.In(loc).Format(layout)
	case *time.Time:
		if d == nil || d.IsZero() {
			return ""
		}
		return d.In(loc).Format(layout)
	case string:
		for _, l := range []string{time.RFC3339Nano, time.RFC3339} {
			if ts, err := time.Parse(l, d); err == nil {
				return ts.In(loc).Format(layout)
			}
		}
		if ts, err := time.ParseInLocation(time.DateOnly, d, loc); err == nil {
			return ts.Format(layout)
		}
		return d
	case map[string]any:
		seconds, ok := d["seconds"]
		if !ok {
			seconds, ok = d["_seconds"]
		}
		if !ok {
			return ""
		}
		ms := storage.Int64Value(seconds) * 1000
		return time.UnixMilli(ms).In(loc).Format(layout)
	}
	return ""
}

// FormatMinutes renders a duration in minutes as "45m", "2h" or "4h 37m".
func FormatMinutes(minutes int) string {
	if minutes < 0 {
		return "-" + FormatMinutes(-minutes)
	}
	hours := minutes / 60
	mins := minutes % 60

	switch {
	case hours == 0:
		return strconv.Itoa(mins) + "m"
	case mins == 0:
		return strconv.Itoa(hours) + "h"
	default:
		return strconv.Itoa(hours) + "h " + strconv.Itoa(mins) + "m"
	}
}
