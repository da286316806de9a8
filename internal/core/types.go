package core

import "growcore/pkg/domain"

type (
	EntityType           = domain.EntityType
	GrowthPhase          = domain.GrowthPhase
	Severity             = domain.Severity
	ScheduleTable        = domain.ScheduleTable
	EcCurve              = domain.EcCurve
	FertilizerDefinition = domain.FertilizerDefinition
	Scheme               = domain.Scheme
	PlantRecord          = domain.PlantRecord
	PlantStatus          = domain.PlantStatus
	Settings             = domain.Settings
	EcHelperStatus       = domain.EcHelperStatus
	Change               = domain.Change
	Action               = domain.Action
	Violation            = domain.Violation
	Result               = domain.Result
	RuleViolationError   = domain.RuleViolationError
	RulesEngine          = domain.RulesEngine
)

const (
	EntityScheme     = domain.EntityScheme
	EntityFertilizer = domain.EntityFertilizer
	EntityPlant      = domain.EntityPlant
	EntitySettings   = domain.EntitySettings
	EntityStatus     = domain.EntityStatus
)

const (
	PhaseVegetative = domain.PhaseVegetative
	PhaseFlowering  = domain.PhaseFlowering
)

const (
	SeverityBlock = domain.SeverityBlock
	SeverityWarn  = domain.SeverityWarn
	SeverityLog   = domain.SeverityLog
)

const (
	ActionCreate = domain.ActionCreate
	ActionUpdate = domain.ActionUpdate
	ActionDelete = domain.ActionDelete
)
