package core

import (
	"context"
	"fmt"

	"growcore/pkg/domain"
)

// PlantDatesRule warns when a plant's flowering start predates its
// germination date. Imported legacy rows may carry such dates, so the rule
// does not block; the service refuses to set them going forward.
func PlantDatesRule() domain.Rule {
	return plantDatesRule{}
}

type plantDatesRule struct{}

func (plantDatesRule) Name() string { return "plant_dates" }

func (plantDatesRule) Evaluate(_ context.Context, _ domain.RuleView, changes []domain.Change) (domain.Result, error) {
	res := domain.Result{}
	for _, change := range changes {
		if change.Entity != domain.EntityPlant {
			continue
		}
		if change.Action != domain.ActionCreate && change.Action != domain.ActionUpdate {
			continue
		}
		plant, ok := plantFromChange(change.After)
		if !ok {
			continue
		}
		if plant.FloweringStart == nil {
			continue
		}
		if plant.FloweringStart.Before(plant.GerminationDate) {
			res.Violations = append(res.Violations, domain.Violation{
				Rule:     "plant_dates",
				Severity: domain.SeverityWarn,
				Message: fmt.Sprintf("flowering start %s predates germination %s",
					domain.FormatDate(*plant.FloweringStart), domain.FormatDate(plant.GerminationDate)),
				Entity:   domain.EntityPlant,
				EntityID: plant.Name,
			})
		}
	}
	return res, nil
}
