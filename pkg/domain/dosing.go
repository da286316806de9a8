package domain

// Dosage resolution and EC arithmetic. The EC model is linear and additive:
// each product contributes EcFactor µS/cm per ml per litre, independently of
// what else is in the reservoir. Interactions between products are not
// modelled.

// maxWeekOf returns the largest defined week, or 0 for an empty map.
func maxWeekOf(values map[int]float64) int {
	max := 0
	for week := range values {
		if week > max {
			max = week
		}
	}
	return max
}

// resolveWeek applies the shared clamping lookup: weeks past the last
// defined entry saturate at the last week, weeks below 1 resolve to week 1.
func resolveWeek(values map[int]float64, week int) (float64, error) {
	if len(values) == 0 {
		return 0, ErrNoData
	}
	effective := week
	if max := maxWeekOf(values); week > max {
		effective = max
	} else if week < 1 {
		effective = 1
	}
	value, ok := values[effective]
	if !ok {
		return 0, ErrScheduleGap{Week: effective}
	}
	return value, nil
}

// MaxWeek returns the highest week the table defines, or 0 when empty.
func (t ScheduleTable) MaxWeek() int { return maxWeekOf(t) }

// Resolve returns the dosage per litre for the given week using clamped
// lookup. ErrNoData is returned for an empty table; ErrScheduleGap when the
// effective week has no stored value.
func (t ScheduleTable) Resolve(week int) (float64, error) {
	return resolveWeek(t, week)
}

// MaxWeek returns the highest week the curve defines, or 0 when empty.
func (c EcCurve) MaxWeek() int { return maxWeekOf(c) }

// Resolve returns the target EC in mS/cm for the given week using clamped
// lookup.
func (c EcCurve) Resolve(week int) (float64, error) {
	return resolveWeek(c, week)
}

// DoseMl computes the absolute dose in ml for a fertilizer at the given week
// and water volume. Callers validate that waterLitres is positive before
// calling; the volume is multiplied through unchecked.
func DoseMl(def FertilizerDefinition, week int, waterLitres float64) (float64, error) {
	perLitre, err := def.Schedule.Resolve(week)
	if err != nil {
		return 0, err
	}
	return perLitre * waterLitres, nil
}

// TargetEc returns the scheme's EC target in mS/cm for the given week.
func TargetEc(s Scheme, week int) (float64, error) {
	return s.EcCurve.Resolve(week)
}

// RequiredMl computes how many ml of a product raise the reservoir from
// ecNow to ecTarget at the given water volume. All EC arguments and the
// factor must share one unit (the helpers work in µS/cm). A measured value
// at or above the target needs no product and returns exactly zero before
// the factor is inspected.
func RequiredMl(ecNow, ecTarget, waterLitres, ecFactor float64) (float64, error) {
	if ecNow >= ecTarget {
		return 0, nil
	}
	if ecFactor <= 0 {
		return 0, ErrInvalidEcFactor{Factor: ecFactor}
	}
	ml := (ecTarget - ecNow) / ecFactor * waterLitres
	if ml < 0 {
		ml = 0
	}
	return ml, nil
}
