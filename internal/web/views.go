package web

import (
	"math"
	"sort"

	"github.com/goodtune/timeleak/internal/severity"
	"github.com/goodtune/timeleak/internal/usage"
)

var categoryEmoji = map[usage.Category]string{
	usage.CategorySocialMedia:   "📘",
	usage.CategoryEntertainment: "🎬",
	usage.CategoryProductivity:  "💼",
	usage.CategoryMessaging:     "💬",
	usage.CategoryOther:         "❓",
}

// ResultsView is the presentation model of one lookup.
type ResultsView struct {
	PhoneNumber  string
	Date         string
	TotalMinutes int
	GoalMinutes  int
	GoalDefault  bool // goal came from configuration, not the record
	TotalColor   string
	Categories   []CategoryRow
	TopApps      []AppRow
	Inconsistent bool
}

// CategoryRow is one bar of the category breakdown.
type CategoryRow struct {
	Name    string
	Emoji   string
	Minutes int
	Percent int
	Width   int
	Color   string
}

// AppRow is one entry of the most used apps list.
type AppRow struct {
	Rank     int
	Name     string
	Category string
	Minutes  int
	Percent  int
}

// NewResultsView builds the presentation model for agg. defaultGoal applies
// when the record carries no goal; at most topApps apps are listed.
func NewResultsView(agg *usage.Aggregate, defaultGoal, topApps int) *ResultsView {
	view := &ResultsView{
		PhoneNumber:  agg.PhoneNumber,
		Date:         agg.DisplayDate,
		TotalMinutes: agg.TotalScreenTimeMinutes,
		GoalMinutes:  defaultGoal,
		GoalDefault:  true,
		Inconsistent: agg.Inconsistent,
	}
	if agg.GoalTimeMinutes != nil && *agg.GoalTimeMinutes > 0 {
		view.GoalMinutes = *agg.GoalTimeMinutes
		view.GoalDefault = false
	}
	view.TotalColor = severity.ForTotalVsGoal(float64(view.TotalMinutes), float64(view.GoalMinutes)).Hex()

	for _, category := range usage.Categories {
		minutes := agg.CategoryBreakdown[category]
		if minutes <= 0 {
			continue
		}
		pct := percent(minutes, view.TotalMinutes)
		view.Categories = append(view.Categories, CategoryRow{
			Name:    string(category),
			Emoji:   categoryEmoji[category],
			Minutes: minutes,
			Percent: pct,
			Width:   min(max(pct, 0), 100),
			Color:   severity.ForCategory(float64(minutes)).Hex(),
		})
	}

	apps := make([]usage.App, len(agg.Apps))
	copy(apps, agg.Apps)
	sort.SliceStable(apps, func(i, j int) bool {
		return apps[i].TimeSpentMinutes > apps[j].TimeSpentMinutes
	})
	if topApps > 0 && len(apps) > topApps {
		apps = apps[:topApps]
	}
	for i, app := range apps {
		view.TopApps = append(view.TopApps, AppRow{
			Rank:     i + 1,
			Name:     app.Name,
			Category: string(app.Category),
			Minutes:  app.TimeSpentMinutes,
			Percent:  percent(app.TimeSpentMinutes, view.TotalMinutes),
		})
	}

	return view
}

func percent(part, total int) int {
	if total <= 0 {
		return 0
	}
	return int(math.Round(float64(part) / float64(total) * 100))
}

// ScreenTimeResponse is the JSON API representation of a lookup.
type ScreenTimeResponse struct {
	*usage.Aggregate
	Colors ColorSet `json:"colors"`
}

// ColorSet carries severity colors as hex strings.
type ColorSet struct {
	Total      string                    `json:"total"`
	Categories map[usage.Category]string `json:"categories"`
}

// NewScreenTimeResponse attaches severity colors to agg.
func NewScreenTimeResponse(agg *usage.Aggregate, defaultGoal int) ScreenTimeResponse {
	goal := defaultGoal
	if agg.GoalTimeMinutes != nil && *agg.GoalTimeMinutes > 0 {
		goal = *agg.GoalTimeMinutes
	}

	colors := ColorSet{
		Total:      severity.ForTotalVsGoal(float64(agg.TotalScreenTimeMinutes), float64(goal)).Hex(),
		Categories: make(map[usage.Category]string, len(agg.CategoryBreakdown)),
	}
	for category, minutes := range agg.CategoryBreakdown {
		colors.Categories[category] = severity.ForCategory(float64(minutes)).Hex()
	}

	return ScreenTimeResponse{Aggregate: agg, Colors: colors}
}
