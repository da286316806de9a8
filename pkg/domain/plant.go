package domain

import (
	"strings"
	"time"
)

// DateLayout is the day-first layout used throughout the plant records.
const DateLayout = "02.01.2006"

// ParseDate parses a DD.MM.YYYY value, trimming surrounding whitespace.
func ParseDate(value string) (time.Time, error) {
	t, err := time.Parse(DateLayout, strings.TrimSpace(value))
	if err != nil {
		return time.Time{}, ErrMalformedDate{Value: value}
	}
	return t, nil
}

// FormatDate renders a date in the DD.MM.YYYY layout.
func FormatDate(t time.Time) string {
	return t.Format(DateLayout)
}

// PlantStatus is the derived position of a plant in its lifecycle.
type PlantStatus struct {
	Week      int         `json:"week"`
	Phase     GrowthPhase `json:"phase"`
	Reference time.Time   `json:"reference"`
}

func dateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func daysBetween(from, to time.Time) int {
	return int(dateOnly(to).Sub(dateOnly(from)).Hours() / 24)
}

// StatusAt derives the plant's week and phase for the given day. The week
// counts from the flowering start when one is set and not in the future,
// otherwise from germination, and never drops below 1.
func (p PlantRecord) StatusAt(today time.Time) PlantStatus {
	reference := p.GerminationDate
	phase := PhaseVegetative
	if p.FloweringStart != nil && !dateOnly(*p.FloweringStart).After(dateOnly(today)) {
		reference = *p.FloweringStart
		phase = PhaseFlowering
	}
	week := daysBetween(reference, today)/7 + 1
	if week < 1 {
		week = 1
	}
	return PlantStatus{Week: week, Phase: phase, Reference: reference}
}
