package core

import (
	"context"
	"fmt"
	"sort"

	"growcore/pkg/domain"
)

// ScheduleWeeksRule enforces that created or updated schemes only carry
// positive week keys in fertilizer schedules and EC curves. Text parsing and
// file loading reject or drop such keys already; the rule catches schedules
// assembled programmatically.
func ScheduleWeeksRule() domain.Rule {
	return scheduleWeeksRule{}
}

type scheduleWeeksRule struct{}

func (scheduleWeeksRule) Name() string { return "schedule_weeks" }

func (scheduleWeeksRule) Evaluate(_ context.Context, _ domain.RuleView, changes []domain.Change) (domain.Result, error) {
	res := domain.Result{}
	for _, change := range changes {
		if change.Entity != domain.EntityScheme {
			continue
		}
		if change.Action != domain.ActionCreate && change.Action != domain.ActionUpdate {
			continue
		}
		scheme, ok := schemeFromChange(change.After)
		if !ok {
			continue
		}
		validateSchemeWeeks(&res, scheme)
	}
	return res, nil
}

func validateSchemeWeeks(res *domain.Result, scheme domain.Scheme) {
	names := make([]string, 0, len(scheme.Fertilizers))
	for name := range scheme.Fertilizers {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		for week := range scheme.Fertilizers[name].Schedule {
			if week < 1 {
				res.Violations = append(res.Violations, weekViolation(scheme.Name,
					fmt.Sprintf("fertilizer %q defines non-positive week %d", name, week)))
			}
		}
	}
	for week := range scheme.EcCurve {
		if week < 1 {
			res.Violations = append(res.Violations, weekViolation(scheme.Name,
				fmt.Sprintf("ec curve defines non-positive week %d", week)))
		}
	}
}

func weekViolation(schemeName, message string) domain.Violation {
	return domain.Violation{
		Rule:     "schedule_weeks",
		Severity: domain.SeverityBlock,
		Message:  message,
		Entity:   domain.EntityScheme,
		EntityID: schemeName,
	}
}
