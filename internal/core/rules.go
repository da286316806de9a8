package core

import "growcore/pkg/domain"

// NewRulesEngine constructs an engine instance with no rules registered.
func NewRulesEngine() *domain.RulesEngine {
	return domain.NewRulesEngine()
}

// NewDefaultRulesEngine builds a rules engine with the built-in invariant set.
func NewDefaultRulesEngine() *domain.RulesEngine {
	engine := NewRulesEngine()
	engine.Register(SchemePresenceRule())
	engine.Register(ActiveSchemeRule())
	engine.Register(ScheduleWeeksRule())
	engine.Register(PlantDatesRule())
	return engine
}

// touchesEntity reports whether any change affects one of the given entity types.
func touchesEntity(changes []domain.Change, entities ...domain.EntityType) bool {
	for _, change := range changes {
		for _, entity := range entities {
			if change.Entity == entity {
				return true
			}
		}
	}
	return false
}

// schemeFromChange recovers a scheme from a change record. Stores record
// typed structs; payload-encoded changes from external integrations are
// decoded as a fallback.
func schemeFromChange(value any) (domain.Scheme, bool) {
	switch v := value.(type) {
	case domain.Scheme:
		return v, true
	case *domain.Scheme:
		if v != nil {
			return *v, true
		}
	case domain.ChangePayload:
		return decodeChangePayload[domain.Scheme](v)
	}
	return domain.Scheme{}, false
}

// plantFromChange recovers a plant record from a change record, accepting the
// same typed and payload-encoded shapes as schemeFromChange.
func plantFromChange(value any) (domain.PlantRecord, bool) {
	switch v := value.(type) {
	case domain.PlantRecord:
		return v, true
	case *domain.PlantRecord:
		if v != nil {
			return *v, true
		}
	case domain.ChangePayload:
		return decodeChangePayload[domain.PlantRecord](v)
	}
	return domain.PlantRecord{}, false
}
