// Package domain defines the core persistent entities, value types, and
// rule evaluation primitives used by growcore.
package domain

import "time"

// EntityType identifies the type of record stored in the core domain.
type EntityType string

// Supported entity type identifiers used in Change records and persistence buckets.
const (
	// EntityScheme identifies a nutrient scheme record.
	EntityScheme EntityType = "scheme"
	// EntityFertilizer identifies a fertilizer definition within a scheme.
	EntityFertilizer EntityType = "fertilizer"
	// EntityPlant identifies a tracked plant record.
	EntityPlant EntityType = "plant"
	// EntitySettings identifies repository-level settings (active scheme, default factors).
	EntitySettings EntityType = "settings"
	// EntityStatus identifies the EC helper usage status record.
	EntityStatus EntityType = "status"
)

// GrowthPhase represents the canonical plant lifecycle phases used for
// schedule selection.
type GrowthPhase string

// Canonical growth phases derived from plant dates.
const (
	PhaseVegetative GrowthPhase = "vegetative"
	PhaseFlowering  GrowthPhase = "flowering"
)

// Severity captures rule outcomes.
type Severity string

// Rule evaluation severities determine commit behavior and logging.
const (
	// SeverityBlock blocks transaction commit.
	SeverityBlock Severity = "block"
	// SeverityWarn logs a warning but allows commit.
	SeverityWarn Severity = "warn"
	SeverityLog  Severity = "log"
)

// ScheduleTable maps a growth week (starting at 1) to a dosage in ml per
// litre of water. Weeks beyond the last defined entry saturate at the last
// value; weeks before the first entry resolve to week 1.
type ScheduleTable map[int]float64

// EcCurve maps a growth week (starting at 1) to a target EC in mS/cm.
// Values are converted to µS/cm only at presentation boundaries.
type EcCurve map[int]float64

// FertilizerDefinition describes one nutrient product within a scheme.
type FertilizerDefinition struct {
	Name     string        `json:"name"`
	Schedule ScheduleTable `json:"schedule"`
	// EcFactor is the EC contribution in µS/cm added by one ml of product
	// per litre of water. A factor of zero or below disables the inverse
	// dosage calculation for this product.
	EcFactor float64 `json:"ec_contribution_factor"`
}

// Scheme bundles a named set of fertilizer schedules with one EC target curve.
type Scheme struct {
	Name        string                          `json:"name"`
	Fertilizers map[string]FertilizerDefinition `json:"fertilizer_data"`
	EcCurve     EcCurve                         `json:"ec_values"`
}

// PlantRecord tracks one plant by name with its reference dates.
type PlantRecord struct {
	Name            string     `json:"name"`
	GerminationDate time.Time  `json:"germination_date"`
	FloweringStart  *time.Time `json:"flowering_start_date,omitempty"`
	Genetics        string     `json:"genetics"`
	Notes           string     `json:"notes"`
}

// EcHelperStatus records the last time the EC helper was used. A zero
// LastUsed means no prior usage.
type EcHelperStatus struct {
	LastUsed time.Time `json:"ec_helper_last_used"`
}

// Settings holds repository-level state outside of any single scheme.
type Settings struct {
	ActiveSchemeName string             `json:"active_scheme_name"`
	DefaultEcFactors map[string]float64 `json:"default_ec_factors"`
}

// Clone returns an independent copy of the schedule table.
func (t ScheduleTable) Clone() ScheduleTable {
	if t == nil {
		return nil
	}
	cp := make(ScheduleTable, len(t))
	for week, dose := range t {
		cp[week] = dose
	}
	return cp
}

// Clone returns an independent copy of the EC curve.
func (c EcCurve) Clone() EcCurve {
	if c == nil {
		return nil
	}
	cp := make(EcCurve, len(c))
	for week, ec := range c {
		cp[week] = ec
	}
	return cp
}

// Clone returns an independent copy of the fertilizer definition.
func (f FertilizerDefinition) Clone() FertilizerDefinition {
	cp := f
	cp.Schedule = f.Schedule.Clone()
	return cp
}

// Clone returns an independent deep copy of the scheme, suitable as a
// template for new schemes.
func (s Scheme) Clone() Scheme {
	cp := s
	if s.Fertilizers != nil {
		cp.Fertilizers = make(map[string]FertilizerDefinition, len(s.Fertilizers))
		for name, def := range s.Fertilizers {
			cp.Fertilizers[name] = def.Clone()
		}
	}
	cp.EcCurve = s.EcCurve.Clone()
	return cp
}

// Clone returns an independent copy of the plant record.
func (p PlantRecord) Clone() PlantRecord {
	cp := p
	if p.FloweringStart != nil {
		t := *p.FloweringStart
		cp.FloweringStart = &t
	}
	return cp
}

// Clone returns an independent copy of the settings.
func (s Settings) Clone() Settings {
	cp := s
	if s.DefaultEcFactors != nil {
		cp.DefaultEcFactors = make(map[string]float64, len(s.DefaultEcFactors))
		for name, factor := range s.DefaultEcFactors {
			cp.DefaultEcFactors[name] = factor
		}
	}
	return cp
}

// Change describes a mutation applied to an entity during a transaction.
type Change struct {
	Entity EntityType
	Action Action
	Before any
	After  any
}

// Action indicates the type of modification performed.
type Action string

// Change actions enumerate supported CRUD operations captured in audit trail.
const (
	// ActionCreate indicates an entity was created.
	ActionCreate Action = "create"
	// ActionUpdate indicates an entity was updated.
	ActionUpdate Action = "update"
	ActionDelete Action = "delete"
)

// Violation reports a failed rule evaluation.
type Violation struct {
	Rule     string
	Severity Severity
	Message  string
	Entity   EntityType
	EntityID string
}

// Result aggregates violations from the rules engine.
type Result struct {
	Violations []Violation
}

// Merge appends violations from another result.
func (r *Result) Merge(other Result) {
	if len(other.Violations) == 0 {
		return
	}
	r.Violations = append(r.Violations, other.Violations...)
}

// HasBlocking returns true if the result contains blocking violations.
func (r Result) HasBlocking() bool {
	for _, v := range r.Violations {
		if v.Severity == SeverityBlock {
			return true
		}
	}
	return false
}

// RuleViolationError is returned when blocking violations are present.
type RuleViolationError struct {
	Result Result
}

func (e RuleViolationError) Error() string {
	return "transaction blocked by rules"
}
