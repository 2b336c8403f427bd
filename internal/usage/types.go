package usage

// Category classifies where screen time was spent.
type Category string

const (
	CategorySocialMedia   Category = "Social Media"
	CategoryEntertainment Category = "Entertainment"
	CategoryProductivity  Category = "Productivity"
	CategoryMessaging     Category = "Messaging"
	CategoryOther         Category = "Other"
)

// Categories lists every category in display order.
var Categories = []Category{
	CategorySocialMedia,
	CategoryEntertainment,
	CategoryProductivity,
	CategoryMessaging,
	CategoryOther,
}

// ParseCategory returns the category with the given display name.
func ParseCategory(name string) (Category, bool) {
	for _, c := range Categories {
		if string(c) == name {
			return c, true
		}
	}
	return "", false
}

// App is one app's usage for the day.
type App struct {
	Name             string   `json:"name"`
	TimeSpentMinutes int      `json:"timeSpent"`
	Category         Category `json:"category"`
}

// Aggregate is the display-ready screen-time summary for one number and day.
// It is produced once per lookup and not modified afterwards.
type Aggregate struct {
	PhoneNumber            string           `json:"phoneNumber"`
	DisplayDate            string           `json:"date"`
	TotalScreenTimeMinutes int              `json:"totalScreenTime"`
	GoalTimeMinutes        *int             `json:"goalTime,omitempty"`
	Apps                   []App            `json:"apps"`
	CategoryBreakdown      map[Category]int `json:"categoryBreakdown"`

	// Inconsistent is set when the category subtotals exceed the total, leaving
	// Other negative.
	Inconsistent bool `json:"inconsistent,omitempty"`
}

// BreakdownSum returns the sum of all category minutes.
func (a *Aggregate) BreakdownSum() int {
	sum := 0
	for _, minutes := range a.CategoryBreakdown {
		sum += minutes
	}
	return sum
}
