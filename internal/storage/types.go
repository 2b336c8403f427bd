package storage

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strconv"
	"time"
)

// Document field names shared by every backend.
const (
	FieldPhoneNumber       = "phoneNumber"
	FieldDate              = "date"
	FieldTotalScreenTime   = "totalScreenTime"
	FieldAppUsage          = "appUsage"
	FieldSocialMediaTime   = "socialMediaTime"
	FieldEntertainmentTime = "entertainmentTime"
	FieldGoalTime          = "goalTime"
	FieldTaglineText       = "text"
)

// UsageRecord is one day's usage snapshot as stored by the uploader.
// Numeric fields are milliseconds unless noted. Decoding is lenient: absent or
// malformed numbers become zero so that a trusted writer's quirks never block a read.
type UsageRecord struct {
	PhoneNumber         string   `json:"phoneNumber"`
	Date                any      `json:"date,omitempty"` // time.Time, {seconds: n} or string
	TotalScreenTimeMs   int64    `json:"totalScreenTime"`
	AppUsage            AppUsage `json:"appUsage"`
	SocialMediaTimeMs   int64    `json:"socialMediaTime"`
	EntertainmentTimeMs int64    `json:"entertainmentTime"`
	GoalTime            *int64   `json:"goalTime,omitempty"` // minutes or milliseconds, see usage.GoalMinutes
}

// AppTime is the usage of a single app package.
type AppTime struct {
	Package string
	Ms      int64
}

// AppUsage keeps per-package usage in document order.
type AppUsage []AppTime

// Map returns the usage as a plain map, for backends that store maps natively.
func (a AppUsage) Map() map[string]int64 {
	m := make(map[string]int64, len(a))
	for _, app := range a {
		m[app.Package] = app.Ms
	}
	return m
}

// MarshalJSON writes the usage as a JSON object, preserving order.
func (a AppUsage) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, app := range a {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(app.Package)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.WriteString(strconv.FormatInt(app.Ms, 10))
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON reads a JSON object of package -> ms in document order.
// Non-numeric values become zero; null yields an empty list.
func (a *AppUsage) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if tok == nil {
		*a = nil
		return nil
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("appUsage: expected object, got %v", tok)
	}

	var apps AppUsage
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return err
		}
		key, ok := keyTok.(string)
		if !ok {
			return fmt.Errorf("appUsage: unexpected key %v", keyTok)
		}
		var value any
		if err := dec.Decode(&value); err != nil {
			return err
		}
		apps = append(apps, AppTime{Package: key, Ms: Int64Value(value)})
	}
	if _, err := dec.Token(); err != nil {
		return err
	}

	*a = apps
	return nil
}

// UnmarshalJSON decodes a stored document leniently.
func (r *UsageRecord) UnmarshalJSON(data []byte) error {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return err
	}

	var rec UsageRecord
	if raw, ok := fields[FieldPhoneNumber]; ok {
		var v any
		if err := json.Unmarshal(raw, &v); err == nil {
			if s, ok := v.(string); ok {
				rec.PhoneNumber = s
			}
		}
	}
	if raw, ok := fields[FieldDate]; ok {
		rec.Date = decodeLoose(raw)
	}
	if raw, ok := fields[FieldAppUsage]; ok {
		var apps AppUsage
		if err := json.Unmarshal(raw, &apps); err == nil {
			rec.AppUsage = apps
		}
	}
	rec.TotalScreenTimeMs = Int64Value(decodeLoose(fields[FieldTotalScreenTime]))
	rec.SocialMediaTimeMs = Int64Value(decodeLoose(fields[FieldSocialMediaTime]))
	rec.EntertainmentTimeMs = Int64Value(decodeLoose(fields[FieldEntertainmentTime]))
	if raw, ok := fields[FieldGoalTime]; ok {
		if v := decodeLoose(raw); v != nil {
			goal := Int64Value(v)
			rec.GoalTime = &goal
		}
	}

	*r = rec
	return nil
}

// RecordFromFields builds a record from a generic document map, as returned by
// document stores that decode into map[string]any. Map-valued appUsage has no
// order, so apps are sorted by package name.
func RecordFromFields(fields map[string]any) UsageRecord {
	var rec UsageRecord
	if s, ok := fields[FieldPhoneNumber].(string); ok {
		rec.PhoneNumber = s
	}
	rec.Date = fields[FieldDate]
	rec.TotalScreenTimeMs = Int64Value(fields[FieldTotalScreenTime])
	rec.SocialMediaTimeMs = Int64Value(fields[FieldSocialMediaTime])
	rec.EntertainmentTimeMs = Int64Value(fields[FieldEntertainmentTime])
	if v, ok := fields[FieldGoalTime]; ok && v != nil {
		goal := Int64Value(v)
		rec.GoalTime = &goal
	}

	if m, ok := fields[FieldAppUsage].(map[string]any); ok {
		keys := make([]string, 0, len(m))
		for k := range m {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		rec.AppUsage = make(AppUsage, 0, len(keys))
		for _, k := range keys {
			rec.AppUsage = append(rec.AppUsage, AppTime{Package: k, Ms: Int64Value(m[k])})
		}
	}

	return rec
}

// Fields is the inverse of RecordFromFields.
func (r UsageRecord) Fields() map[string]any {
	fields := map[string]any{
		FieldPhoneNumber:       r.PhoneNumber,
		FieldTotalScreenTime:   r.TotalScreenTimeMs,
		FieldAppUsage:          r.AppUsage.Map(),
		FieldSocialMediaTime:   r.SocialMediaTimeMs,
		FieldEntertainmentTime: r.EntertainmentTimeMs,
	}
	if r.Date != nil {
		fields[FieldDate] = r.Date
	}
	if r.GoalTime != nil {
		fields[FieldGoalTime] = *r.GoalTime
	}
	return fields
}

// Int64Value converts a loosely typed document number to int64.
// Fractional values are rounded; anything unparseable is zero.
func Int64Value(v any) int64 {
	switch n := v.(type) {
	case int:
		return int64(n)
	case int32:
		return int64(n)
	case int64:
		return n
	case uint32:
		return int64(n)
	case uint64:
		if n > math.MaxInt64 {
			return 0
		}
		return int64(n)
	case float32:
		return roundFloat(float64(n))
	case float64:
		return roundFloat(n)
	case json.Number:
		if i, err := n.Int64(); err == nil {
			return i
		}
		if f, err := n.Float64(); err == nil {
			return roundFloat(f)
		}
	case string:
		if f, err := strconv.ParseFloat(n, 64); err == nil {
			return roundFloat(f)
		}
	case time.Duration:
		return n.Milliseconds()
	}
	return 0
}

func roundFloat(f float64) int64 {
	if math.IsNaN(f) || math.IsInf(f, 0) || f > math.MaxInt64 || f < math.MinInt64 {
		return 0
	}
	return int64(math.Round(f))
}

func decodeLoose(raw json.RawMessage) any {
	if len(raw) == 0 {
		return nil
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil
	}
	return v
}
