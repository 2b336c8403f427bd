// Package severity maps screen-time minutes to display colors, from calm green
// for light use to stop red for heavy use.
package severity

import (
	"fmt"
	"math"
)

// RGB is a color with 0-255 channels.
type RGB struct {
	R, G, B uint8
}

// Hex returns the color as "#rrggbb".
func (c RGB) Hex() string {
	return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)
}

// CSS returns the color as "rgb(r, g, b)".
func (c RGB) CSS() string {
	return fmt.Sprintf("rgb(%d, %d, %d)", c.R, c.G, c.B)
}

// Palette anchors.
var (
	CalmGreen   = RGB{34, 197, 94}
	Caution     = RGB{234, 179, 8}
	StopRed     = RGB{255, 0, 0}
	BrightGreen = RGB{0, 200, 83}
	YellowGreen = RGB{154, 205, 50}
	Orange      = RGB{255, 165, 0}
	RedOrange   = RGB{255, 69, 0}
)

const (
	// CategoryThreshold is where category usage turns from green toward red.
	CategoryThreshold = 60.0

	// overGoalSpan is the fraction of the goal past which the color stays red.
	overGoalSpan = 0.5

	// orangeShare is the part of the over-goal range spent going orange to red-orange.
	orangeShare = 0.375
)

// ForCategory returns the color for minutes spent in one category. Up to
// CategoryThreshold the color goes green to amber; beyond it, amber to red,
// reaching pure red at twice the threshold.
func ForCategory(minutes float64) RGB {
	if minutes <= CategoryThreshold {
		return categoryLow(minutes)
	}
	return categoryHigh(minutes)
}

func categoryLow(minutes float64) RGB {
	return Lerp(CalmGreen, Caution, minutes/CategoryThreshold)
}

func categoryHigh(minutes float64) RGB {
	return Lerp(Caution, StopRed, (minutes-CategoryThreshold)/CategoryThreshold)
}

// ForTotalVsGoal returns the color for total minutes against a daily goal.
// At or under the goal the color stays green; over it the color moves through
// orange to red, reaching pure red at 150% of the goal.
func ForTotalVsGoal(minutes, goal float64) RGB {
	if goal <= 0 {
		if minutes <= 0 {
			return BrightGreen
		}
		return StopRed
	}

	if minutes <= goal {
		return Lerp(BrightGreen, YellowGreen, minutes/goal)
	}

	r := math.Min((minutes-goal)/(overGoalSpan*goal), 1)
	if r <= orangeShare {
		return Lerp(Orange, RedOrange, r/orangeShare)
	}
	return Lerp(RedOrange, StopRed, (r-orangeShare)/(1-orangeShare))
}

// Lerp interpolates from a to b. t is clamped to [0, 1] and channels are rounded.
func Lerp(a, b RGB, t float64) RGB {
	if math.IsNaN(t) || t < 0 {
		t = 0
	}
	if t > 1 {
		t = 1
	}
	return RGB{
		R: channel(a.R, b.R, t),
		G: channel(a.G, b.G, t),
		B: channel(a.B, b.B, t),
	}
}

func channel(a, b uint8, t float64) uint8 {
	return uint8(math.Round(float64(a) + (float64(b)-float64(a))*t))
}
