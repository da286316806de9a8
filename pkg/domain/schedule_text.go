package domain

import (
	"sort"
	"strconv"
	"strings"
)

// Schedule text is the comma separated "week:value" syntax used when editing
// schedules and EC curves by hand, e.g. "1:2.0, 2:2.27, 3:2.54". Parsing is
// all-or-nothing: the first malformed entry rejects the whole string.

func parseWeekValues(text string) (map[int]float64, error) {
	values := map[int]float64{}
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return values, nil
	}
	for _, fragment := range strings.Split(trimmed, ",") {
		entry := strings.TrimSpace(fragment)
		if entry == "" {
			return nil, ErrMalformedSchedule{Fragment: fragment, Reason: "empty entry"}
		}
		weekPart, valuePart, found := strings.Cut(entry, ":")
		if !found {
			return nil, ErrMalformedSchedule{Fragment: entry, Reason: "missing ':' separator"}
		}
		week, err := strconv.Atoi(strings.TrimSpace(weekPart))
		if err != nil {
			return nil, ErrMalformedSchedule{Fragment: entry, Reason: "week is not an integer"}
		}
		if week < 1 {
			return nil, ErrMalformedSchedule{Fragment: entry, Reason: "week must be positive"}
		}
		value, err := strconv.ParseFloat(strings.TrimSpace(valuePart), 64)
		if err != nil {
			return nil, ErrMalformedSchedule{Fragment: entry, Reason: "value is not a number"}
		}
		values[week] = value
	}
	return values, nil
}

func formatWeekValues(values map[int]float64) string {
	if len(values) == 0 {
		return ""
	}
	weeks := make([]int, 0, len(values))
	for week := range values {
		weeks = append(weeks, week)
	}
	sort.Ints(weeks)
	parts := make([]string, 0, len(weeks))
	for _, week := range weeks {
		parts = append(parts, strconv.Itoa(week)+":"+strconv.FormatFloat(values[week], 'g', -1, 64))
	}
	return strings.Join(parts, ", ")
}

// ParseScheduleText parses schedule text into a ScheduleTable. Empty or
// all-whitespace input yields a legal empty table.
func ParseScheduleText(text string) (ScheduleTable, error) {
	values, err := parseWeekValues(text)
	if err != nil {
		return nil, err
	}
	return ScheduleTable(values), nil
}

// ParseEcCurveText parses schedule text into an EcCurve (values in mS/cm).
func ParseEcCurveText(text string) (EcCurve, error) {
	values, err := parseWeekValues(text)
	if err != nil {
		return nil, err
	}
	return EcCurve(values), nil
}

// FormatScheduleText renders a table in canonical form with weeks ascending.
func FormatScheduleText(t ScheduleTable) string { return formatWeekValues(t) }

// FormatEcCurveText renders a curve in canonical form with weeks ascending.
func FormatEcCurveText(c EcCurve) string { return formatWeekValues(c) }
