package core

import (
	"context"
	"fmt"

	"growcore/pkg/domain"
)

// ActiveSchemeRule enforces that the active scheme pointer names an existing
// scheme whenever schemes or settings change.
func ActiveSchemeRule() domain.Rule {
	return activeSchemeRule{}
}

type activeSchemeRule struct{}

func (activeSchemeRule) Name() string { return "active_scheme" }

func (activeSchemeRule) Evaluate(_ context.Context, view domain.RuleView, changes []domain.Change) (domain.Result, error) {
	res := domain.Result{}
	if !touchesEntity(changes, domain.EntityScheme, domain.EntitySettings) {
		return res, nil
	}
	active := view.Settings().ActiveSchemeName
	if _, ok := view.FindScheme(active); !ok {
		res.Violations = append(res.Violations, domain.Violation{
			Rule:     "active_scheme",
			Severity: domain.SeverityBlock,
			Message:  fmt.Sprintf("active scheme %q does not exist", active),
			Entity:   domain.EntitySettings,
			EntityID: active,
		})
	}
	return res, nil
}
