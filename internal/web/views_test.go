package web

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/goodtune/timeleak/internal/severity"
	"github.com/goodtune/timeleak/internal/usage"
)

func TestNewResultsView(t *testing.T) {
	view := NewResultsView(sampleAggregate(), 120, 5)

	assert.Equal(t, 277, view.TotalMinutes)
	assert.Equal(t, 120, view.GoalMinutes)
	assert.True(t, view.GoalDefault)
	assert.Equal(t, severity.ForTotalVsGoal(277, 120).Hex(), view.TotalColor)

	require.Len(t, view.Categories, 3)
	assert.Equal(t, CategoryRow{Name: "Social Media", Emoji: "📘", Minutes: 130, Percent: 47, Width: 47, Color: severity.ForCategory(130).Hex()}, view.Categories[0])
	assert.Equal(t, "Entertainment", view.Categories[1].Name)
	assert.Equal(t, 29, view.Categories[1].Percent)
	assert.Equal(t, "Other", view.Categories[2].Name)
	assert.Equal(t, 24, view.Categories[2].Percent)

	require.Len(t, view.TopApps, 5)
	names := make([]string, 0, len(view.TopApps))
	for i, app := range view.TopApps {
		assert.Equal(t, i+1, app.Rank)
		names = append(names, app.Name)
	}
	assert.Equal(t, []string{
		"com.instagram.android",
		"com.example.game",
		"com.zhiliaoapp.musically",
		"com.snapchat.android",
		"com.google.android.youtube",
	}, names)
	assert.Equal(t, 31, view.TopApps[0].Percent)
}

func TestNewResultsView_DoesNotReorderAggregate(t *testing.T) {
	agg := sampleAggregate()
	NewResultsView(agg, 120, 5)
	assert.Equal(t, "com.zhiliaoapp.musically", agg.Apps[0].Name)
}

func TestNewResultsView_RecordGoal(t *testing.T) {
	agg := sampleAggregate()
	goal := 300
	agg.GoalTimeMinutes = &goal

	view := NewResultsView(agg, 120, 5)

	assert.Equal(t, 300, view.GoalMinutes)
	assert.False(t, view.GoalDefault)
	assert.Equal(t, severity.ForTotalVsGoal(277, 300).Hex(), view.TotalColor)
}

func TestNewResultsView_EmptyDay(t *testing.T) {
	agg := &usage.Aggregate{
		CategoryBreakdown: map[usage.Category]int{usage.CategoryOther: 0},
		Apps:              []usage.App{},
	}

	view := NewResultsView(agg, 120, 5)

	assert.Empty(t, view.Categories)
	assert.Empty(t, view.TopApps)
	assert.Equal(t, severity.BrightGreen.Hex(), view.TotalColor)
}

func TestNewResultsView_EqualUsageKeepsRecordOrder(t *testing.T) {
	agg := &usage.Aggregate{
		TotalScreenTimeMinutes: 30,
		Apps: []usage.App{
			{Name: "b", TimeSpentMinutes: 10},
			{Name: "a", TimeSpentMinutes: 10},
			{Name: "c", TimeSpentMinutes: 10},
		},
	}

	view := NewResultsView(agg, 120, 2)

	require.Len(t, view.TopApps, 2)
	assert.Equal(t, "b", view.TopApps[0].Name)
	assert.Equal(t, "a", view.TopApps[1].Name)
	assert.Equal(t, 33, view.TopApps[0].Percent)
}

func TestNewResultsView_InconsistentRecord(t *testing.T) {
	agg := &usage.Aggregate{
		TotalScreenTimeMinutes: 100,
		CategoryBreakdown: map[usage.Category]int{
			usage.CategorySocialMedia:   80,
			usage.CategoryEntertainment: 40,
			usage.CategoryOther:         -20,
		},
		Inconsistent: true,
	}

	view := NewResultsView(agg, 120, 5)

	assert.True(t, view.Inconsistent)
	require.Len(t, view.Categories, 2, "negative Other is not drawn")
	assert.Equal(t, 80, view.Categories[0].Percent)
	assert.Equal(t, 40, view.Categories[1].Width)
}

func TestNewResultsView_WidthClamped(t *testing.T) {
	agg := &usage.Aggregate{
		TotalScreenTimeMinutes: 10,
		CategoryBreakdown:      map[usage.Category]int{usage.CategorySocialMedia: 25},
	}

	view := NewResultsView(agg, 120, 5)

	require.Len(t, view.Categories, 1)
	assert.Equal(t, 250, view.Categories[0].Percent)
	assert.Equal(t, 100, view.Categories[0].Width)
}

func TestRateLimiter_Window(t *testing.T) {
	limiter := NewRateLimiter(2, time.Minute)
	defer limiter.Stop()

	now := time.Date(2024, 3, 9, 12, 0, 0, 0, time.UTC)
	limiter.now = func() time.Time { return now }

	assert.True(t, limiter.Allow("a"))
	assert.True(t, limiter.Allow("a"))
	assert.False(t, limiter.Allow("a"))
	assert.True(t, limiter.Allow("b"), "clients are limited independently")

	now = now.Add(61 * time.Second)
	assert.True(t, limiter.Allow("a"))
}

func TestRateLimiter_StopIsIdempotent(t *testing.T) {
	limiter := NewRateLimiter(1, time.Minute)
	limiter.Stop()
	limiter.Stop()
}
