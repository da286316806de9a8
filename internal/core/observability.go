package core

import (
	"context"
	"time"

	"growcore/pkg/domain"
)

// Logger is the narrow structured logging surface the service depends on.
// *slog.Logger satisfies it directly.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Clock supplies the current time for audit timestamps and date-derived
// domain computations.
type Clock interface {
	Now() time.Time
}

// ClockFunc adapts a plain function to the Clock interface. A nil function
// falls back to the system clock. Results are always in UTC.
type ClockFunc func() time.Time

// Now returns the function's time converted to UTC, or the system UTC time
// when the function is nil.
func (f ClockFunc) Now() time.Time {
	if f == nil {
		return time.Now().UTC()
	}
	return f().UTC()
}

// AuditStatus marks an audit entry as a success or failure.
type AuditStatus string

const (
	AuditStatusSuccess AuditStatus = "success"
	AuditStatusError   AuditStatus = "error"
)

// AuditEntry records one completed state-changing operation.
type AuditEntry struct {
	Operation string            `json:"operation"`
	Entity    domain.EntityType `json:"entity"`
	Action    domain.Action     `json:"action"`
	EntityID  string            `json:"entity_id"`
	Status    AuditStatus       `json:"status"`
	Duration  time.Duration     `json:"duration"`
	Timestamp time.Time         `json:"timestamp"`
	Error     string            `json:"error,omitempty"`
	// Payload holds the operation's resulting record serialized as JSON,
	// when one exists. Deletes and failed operations leave it undefined.
	Payload domain.ChangePayload `json:"-"`
}

// AuditRecorder receives audit entries for state-changing operations.
type AuditRecorder interface {
	Record(ctx context.Context, entry AuditEntry)
}

type noopAuditRecorder struct{}

func (noopAuditRecorder) Record(context.Context, AuditEntry) {}

// MetricsRecorder observes per-operation outcomes and latencies.
type MetricsRecorder interface {
	Observe(ctx context.Context, operation string, success bool, duration time.Duration)
}

type noopMetricsRecorder struct{}

func (noopMetricsRecorder) Observe(context.Context, string, bool, time.Duration) {}

// Tracer starts spans around service operations.
type Tracer interface {
	Start(ctx context.Context, operation string) (context.Context, TraceSpan)
}

// TraceSpan ends a span started by a Tracer.
type TraceSpan interface {
	End(err error)
}

type noopTracer struct{}

type noopSpan struct{}

func (noopSpan) End(error) {}

func (noopTracer) Start(ctx context.Context, _ string) (context.Context, TraceSpan) {
	return ctx, noopSpan{}
}

// auditOperations maps service operation names to the entity and action an
// audit entry reports. Operations missing from the table are not audited.
var auditOperations = map[string]struct {
	Entity EntityType
	Action Action
}{
	"create_scheme":         {Entity: EntityScheme, Action: ActionCreate},
	"rename_scheme":         {Entity: EntityScheme, Action: ActionUpdate},
	"delete_scheme":         {Entity: EntityScheme, Action: ActionDelete},
	"activate_scheme":       {Entity: EntitySettings, Action: ActionUpdate},
	"upsert_fertilizer":     {Entity: EntityFertilizer, Action: ActionUpdate},
	"delete_fertilizer":     {Entity: EntityFertilizer, Action: ActionDelete},
	"set_ec_curve":          {Entity: EntityScheme, Action: ActionUpdate},
	"set_default_ec_factor": {Entity: EntitySettings, Action: ActionUpdate},
	"add_plant":             {Entity: EntityPlant, Action: ActionCreate},
	"update_plant_notes":    {Entity: EntityPlant, Action: ActionUpdate},
	"set_flowering_start":   {Entity: EntityPlant, Action: ActionUpdate},
	"delete_plant":          {Entity: EntityPlant, Action: ActionDelete},
	"mark_ec_helper_used":   {Entity: EntityStatus, Action: ActionUpdate},
}

func (s *Service) recordAuditSuccess(ctx context.Context, operation, entityID string, duration time.Duration, payload domain.ChangePayload) {
	s.recordAudit(ctx, operation, entityID, AuditStatusSuccess, duration, payload, nil)
}

func (s *Service) recordAuditError(ctx context.Context, operation, entityID string, duration time.Duration, opErr error) {
	s.recordAudit(ctx, operation, entityID, AuditStatusError, duration, domain.UndefinedChangePayload(), opErr)
}

func (s *Service) recordAudit(ctx context.Context, operation, entityID string, status AuditStatus, duration time.Duration, payload domain.ChangePayload, opErr error) {
	meta, ok := auditOperations[operation]
	if !ok {
		return
	}
	entry := AuditEntry{
		Operation: operation,
		Entity:    meta.Entity,
		Action:    meta.Action,
		EntityID:  entityID,
		Status:    status,
		Duration:  duration,
		Timestamp: s.now(),
		Payload:   payload,
	}
	if opErr != nil {
		entry.Error = opErr.Error()
	}
	s.audit.Record(ctx, entry)
}

// extractRulesEngine returns the engine of stores that expose one, or nil.
func extractRulesEngine(store domain.PersistentStore) *domain.RulesEngine {
	if provider, ok := store.(interface{ RulesEngine() *domain.RulesEngine }); ok {
		return provider.RulesEngine()
	}
	return nil
}

// selectNowFunc picks the time source for the service: a store-provided
// function wins, then the configured clock, then the system UTC clock.
func selectNowFunc(store domain.PersistentStore, clock Clock) func() time.Time {
	if provider, ok := store.(interface{ NowFunc() func() time.Time }); ok {
		if fn := provider.NowFunc(); fn != nil {
			return func() time.Time { return fn().UTC() }
		}
	}
	if clock != nil {
		return clock.Now
	}
	return func() time.Time { return time.Now().UTC() }
}
