package core

import (
	"context"

	"growcore/pkg/domain"
)

// SchemePresenceRule enforces that at least one scheme survives any
// transaction that touches schemes. The store refuses to delete the last
// scheme on its own; this rule backstops bulk mutations.
func SchemePresenceRule() domain.Rule {
	return schemePresenceRule{}
}

type schemePresenceRule struct{}

func (schemePresenceRule) Name() string { return "scheme_presence" }

func (schemePresenceRule) Evaluate(_ context.Context, view domain.RuleView, changes []domain.Change) (domain.Result, error) {
	res := domain.Result{}
	if !touchesEntity(changes, domain.EntityScheme) {
		return res, nil
	}
	if len(view.ListSchemes()) == 0 {
		res.Violations = append(res.Violations, domain.Violation{
			Rule:     "scheme_presence",
			Severity: domain.SeverityBlock,
			Message:  "at least one scheme must remain",
			Entity:   domain.EntityScheme,
		})
	}
	return res, nil
}
