package core

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"time"

	blobcore "growcore/internal/blob/core"
	"growcore/internal/infra/persistence/file"
	"growcore/internal/infra/persistence/memory"
	"growcore/pkg/domain"
)

// Service exposes the transactional operations of the dosing engine over a
// persistent store: scheme and plant lifecycle, dosage and EC resolution,
// helper status tracking, and state backups. Observability hooks are attached
// through options and default to no-ops.
type Service struct {
	store   domain.PersistentStore
	archive blobcore.Store
	logger  Logger
	audit   AuditRecorder
	metrics MetricsRecorder
	tracer  Tracer
	clock   Clock
	nowFn   func() time.Time
}

// ServiceOption customizes a Service during construction.
type ServiceOption func(*Service)

// WithLogger attaches a structured logger to the service.
func WithLogger(logger Logger) ServiceOption {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithAuditRecorder attaches an audit sink for state-changing operations.
func WithAuditRecorder(recorder AuditRecorder) ServiceOption {
	return func(s *Service) {
		if recorder != nil {
			s.audit = recorder
		}
	}
}

// WithMetricsRecorder attaches a metrics sink observing every operation.
func WithMetricsRecorder(recorder MetricsRecorder) ServiceOption {
	return func(s *Service) {
		if recorder != nil {
			s.metrics = recorder
		}
	}
}

// WithTracer attaches a tracer that spans every operation.
func WithTracer(tracer Tracer) ServiceOption {
	return func(s *Service) {
		if tracer != nil {
			s.tracer = tracer
		}
	}
}

// WithClock overrides the time source used for audit timestamps and
// date-derived computations. Stores that provide their own time win.
func WithClock(clock Clock) ServiceOption {
	return func(s *Service) {
		if clock != nil {
			s.clock = clock
		}
	}
}

// WithArchiveStore attaches the archive backend used by backups.
func WithArchiveStore(archive blobcore.Store) ServiceOption {
	return func(s *Service) {
		if archive != nil {
			s.archive = archive
		}
	}
}

// NewService constructs a service backed by the supplied store.
func NewService(store domain.PersistentStore, opts ...ServiceOption) *Service {
	s := &Service{
		store:   store,
		logger:  noopLogger{},
		audit:   noopAuditRecorder{},
		metrics: noopMetricsRecorder{},
		tracer:  noopTracer{},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	s.nowFn = selectNowFunc(store, s.clock)
	return s
}

// NewInMemoryService creates a service over a fresh in-memory store. A nil
// engine is replaced with the default rule set.
func NewInMemoryService(engine *domain.RulesEngine, opts ...ServiceOption) *Service {
	if engine == nil {
		engine = NewDefaultRulesEngine()
	}
	return NewService(memory.NewStore(engine), opts...)
}

// Store returns the underlying storage implementation.
func (s *Service) Store() domain.PersistentStore {
	return s.store
}

// RulesEngine returns the engine of stores that expose one, or nil.
func (s *Service) RulesEngine() *domain.RulesEngine {
	return extractRulesEngine(s.store)
}

// Diagnostics reports tolerated data problems collected at load time by
// stores that track them.
func (s *Service) Diagnostics() []string {
	provider, ok := s.store.(interface{ LoadDiagnostics() []file.Diagnostic })
	if !ok {
		return nil
	}
	diags := provider.LoadDiagnostics()
	out := make([]string, 0, len(diags))
	for _, diag := range diags {
		out = append(out, diag.String())
	}
	return out
}

func (s *Service) now() time.Time {
	return s.nowFn()
}

// instrument wraps an operation with a trace span and a metrics observation.
func (s *Service) instrument(ctx context.Context, operation string, fn func(ctx context.Context) error) error {
	ctx, span := s.tracer.Start(ctx, operation)
	start := time.Now()
	err := fn(ctx)
	duration := time.Since(start)
	span.End(err)
	s.metrics.Observe(ctx, operation, err == nil, duration)
	return err
}

// runMutation executes fn inside a store transaction with tracing, metrics,
// logging, and audit recording. after supplies the operation's result for the
// audit payload once the transaction has committed.
func (s *Service) runMutation(ctx context.Context, operation, entityID string, fn func(tx domain.Transaction) error, after func() any) (domain.Result, error) {
	ctx, span := s.tracer.Start(ctx, operation)
	start := time.Now()
	res, err := s.store.RunInTransaction(ctx, fn)
	duration := time.Since(start)
	span.End(err)
	s.metrics.Observe(ctx, operation, err == nil, duration)
	if err != nil {
		s.logger.Error("operation failed", "operation", operation, "entity_id", entityID, "error", err)
		s.recordAuditError(ctx, operation, entityID, duration, err)
		return res, err
	}
	s.logViolations(operation, res)
	payload := domain.UndefinedChangePayload()
	if after != nil {
		if value := after(); value != nil {
			encoded, perr := domain.NewChangePayloadFromValue(value)
			if perr != nil {
				s.logger.Warn("audit payload not encoded", "operation", operation, "error", perr)
			} else {
				payload = encoded
			}
		}
	}
	s.recordAuditSuccess(ctx, operation, entityID, duration, payload)
	return res, nil
}

// logViolations reports non-blocking rule violations that committed with the
// transaction.
func (s *Service) logViolations(operation string, res domain.Result) {
	for _, v := range res.Violations {
		switch v.Severity {
		case domain.SeverityWarn:
			s.logger.Warn("rule violation", "operation", operation, "rule", v.Rule, "entity_id", v.EntityID, "message", v.Message)
		case domain.SeverityLog:
			s.logger.Info("rule violation", "operation", operation, "rule", v.Rule, "entity_id", v.EntityID, "message", v.Message)
		}
	}
}

// CreateScheme creates a scheme, empty or deep-copied from a template scheme.
func (s *Service) CreateScheme(ctx context.Context, name, template string) (Scheme, Result, error) {
	var created Scheme
	res, err := s.runMutation(ctx, "create_scheme", name, func(tx domain.Transaction) error {
		scheme := Scheme{
			Name:        name,
			Fertilizers: map[string]FertilizerDefinition{},
			EcCurve:     EcCurve{},
		}
		if template != "" {
			source, ok := tx.FindScheme(template)
			if !ok {
				return domain.ErrNotFound{Entity: EntityScheme, Name: template}
			}
			scheme = source.Clone()
			scheme.Name = name
		}
		var err error
		created, err = tx.CreateScheme(scheme)
		return err
	}, func() any { return created })
	return created, res, err
}

// RenameScheme renames a scheme, keeping the active pointer intact when the
// active scheme is renamed.
func (s *Service) RenameScheme(ctx context.Context, oldName, newName string) (Scheme, Result, error) {
	var renamed Scheme
	res, err := s.runMutation(ctx, "rename_scheme", newName, func(tx domain.Transaction) error {
		var err error
		renamed, err = tx.RenameScheme(oldName, newName)
		return err
	}, func() any { return renamed })
	return renamed, res, err
}

// DeleteScheme removes a scheme. Deleting the last remaining scheme fails
// with ErrLastScheme; deleting the active scheme repoints the active pointer
// to the first remaining name in sort order.
func (s *Service) DeleteScheme(ctx context.Context, name string) (Result, error) {
	return s.runMutation(ctx, "delete_scheme", name, func(tx domain.Transaction) error {
		return tx.DeleteScheme(name)
	}, nil)
}

// ActivateScheme switches the active scheme pointer.
func (s *Service) ActivateScheme(ctx context.Context, name string) (Settings, Result, error) {
	var updated Settings
	res, err := s.runMutation(ctx, "activate_scheme", name, func(tx domain.Transaction) error {
		if _, ok := tx.FindScheme(name); !ok {
			return domain.ErrNotFound{Entity: EntityScheme, Name: name}
		}
		var err error
		updated, err = tx.UpdateSettings(func(settings *Settings) error {
			settings.ActiveSchemeName = name
			return nil
		})
		return err
	}, func() any { return updated })
	return updated, res, err
}

// UpsertFertilizer creates or replaces a fertilizer definition in a scheme.
// The schedule text is parsed in full before any mutation. A non-empty
// prevName different from name renames the definition; the new name must not
// collide with another existing fertilizer.
func (s *Service) UpsertFertilizer(ctx context.Context, schemeName, prevName, name, scheduleText string, ecFactor float64) (Scheme, Result, error) {
	var updated Scheme
	res, err := s.runMutation(ctx, "upsert_fertilizer", name, func(tx domain.Transaction) error {
		schedule, err := domain.ParseScheduleText(scheduleText)
		if err != nil {
			return err
		}
		if name == "" {
			return fmt.Errorf("fertilizer name cannot be empty")
		}
		updated, err = tx.UpdateScheme(schemeName, func(scheme *Scheme) error {
			if prevName != "" && prevName != name {
				if _, ok := scheme.Fertilizers[prevName]; !ok {
					return domain.ErrNotFound{Entity: EntityFertilizer, Name: prevName}
				}
			}
			if prevName != name {
				if _, ok := scheme.Fertilizers[name]; ok {
					return domain.ErrDuplicate{Entity: EntityFertilizer, Name: name}
				}
			}
			if prevName != "" && prevName != name {
				delete(scheme.Fertilizers, prevName)
			}
			scheme.Fertilizers[name] = FertilizerDefinition{
				Name:     name,
				Schedule: schedule,
				EcFactor: ecFactor,
			}
			return nil
		})
		return err
	}, func() any { return updated })
	return updated, res, err
}

// DeleteFertilizer removes a fertilizer definition from a scheme.
func (s *Service) DeleteFertilizer(ctx context.Context, schemeName, name string) (Scheme, Result, error) {
	var updated Scheme
	res, err := s.runMutation(ctx, "delete_fertilizer", name, func(tx domain.Transaction) error {
		var err error
		updated, err = tx.UpdateScheme(schemeName, func(scheme *Scheme) error {
			if _, ok := scheme.Fertilizers[name]; !ok {
				return domain.ErrNotFound{Entity: EntityFertilizer, Name: name}
			}
			delete(scheme.Fertilizers, name)
			return nil
		})
		return err
	}, func() any { return updated })
	return updated, res, err
}

// SetEcCurve replaces a scheme's EC curve with one parsed from week:value text.
func (s *Service) SetEcCurve(ctx context.Context, schemeName, curveText string) (Scheme, Result, error) {
	var updated Scheme
	res, err := s.runMutation(ctx, "set_ec_curve", schemeName, func(tx domain.Transaction) error {
		curve, err := domain.ParseEcCurveText(curveText)
		if err != nil {
			return err
		}
		updated, err = tx.UpdateScheme(schemeName, func(scheme *Scheme) error {
			scheme.EcCurve = curve
			return nil
		})
		return err
	}, func() any { return updated })
	return updated, res, err
}

// SetDefaultEcFactor stores a named EC contribution preset.
func (s *Service) SetDefaultEcFactor(ctx context.Context, name string, value float64) (Settings, Result, error) {
	var updated Settings
	res, err := s.runMutation(ctx, "set_default_ec_factor", name, func(tx domain.Transaction) error {
		if name == "" {
			return fmt.Errorf("ec factor preset name cannot be empty")
		}
		var err error
		updated, err = tx.UpdateSettings(func(settings *Settings) error {
			settings.DefaultEcFactors[name] = value
			return nil
		})
		return err
	}, func() any { return updated })
	return updated, res, err
}

// AddPlant records a new plant. The germination date must not be in the future.
func (s *Service) AddPlant(ctx context.Context, plant PlantRecord) (PlantRecord, Result, error) {
	var created PlantRecord
	res, err := s.runMutation(ctx, "add_plant", plant.Name, func(tx domain.Transaction) error {
		if plant.GerminationDate.After(s.now()) {
			return fmt.Errorf("germination date %s is in the future", domain.FormatDate(plant.GerminationDate))
		}
		var err error
		created, err = tx.CreatePlant(plant)
		return err
	}, func() any { return created })
	return created, res, err
}

// UpdatePlantNotes replaces a plant's notes.
func (s *Service) UpdatePlantNotes(ctx context.Context, name, notes string) (PlantRecord, Result, error) {
	var updated PlantRecord
	res, err := s.runMutation(ctx, "update_plant_notes", name, func(tx domain.Transaction) error {
		var err error
		updated, err = tx.UpdatePlant(name, func(plant *PlantRecord) error {
			plant.Notes = notes
			return nil
		})
		return err
	}, func() any { return updated })
	return updated, res, err
}

// SetFloweringStart sets or clears a plant's flowering start date. A nil
// start clears the date; a set date must not precede germination.
func (s *Service) SetFloweringStart(ctx context.Context, name string, start *time.Time) (PlantRecord, Result, error) {
	var updated PlantRecord
	res, err := s.runMutation(ctx, "set_flowering_start", name, func(tx domain.Transaction) error {
		var err error
		updated, err = tx.UpdatePlant(name, func(plant *PlantRecord) error {
			if start == nil {
				plant.FloweringStart = nil
				return nil
			}
			if start.Before(plant.GerminationDate) {
				return fmt.Errorf("flowering start %s is before germination %s",
					domain.FormatDate(*start), domain.FormatDate(plant.GerminationDate))
			}
			t := *start
			plant.FloweringStart = &t
			return nil
		})
		return err
	}, func() any { return updated })
	return updated, res, err
}

// DeletePlant removes a plant record.
func (s *Service) DeletePlant(ctx context.Context, name string) (Result, error) {
	return s.runMutation(ctx, "delete_plant", name, func(tx domain.Transaction) error {
		return tx.DeletePlant(name)
	}, nil)
}

// MarkEcHelperUsed records the current time as the EC helper's last usage.
func (s *Service) MarkEcHelperUsed(ctx context.Context) (EcHelperStatus, Result, error) {
	var updated EcHelperStatus
	res, err := s.runMutation(ctx, "mark_ec_helper_used", "ec_helper", func(tx domain.Transaction) error {
		var err error
		updated, err = tx.UpdateStatus(func(status *EcHelperStatus) error {
			status.LastUsed = s.now()
			return nil
		})
		return err
	}, func() any { return updated })
	return updated, res, err
}

// GetScheme returns the named scheme.
func (s *Service) GetScheme(ctx context.Context, name string) (Scheme, error) {
	var scheme Scheme
	err := s.instrument(ctx, "get_scheme", func(ctx context.Context) error {
		return s.store.View(ctx, func(view domain.TransactionView) error {
			found, ok := view.FindScheme(name)
			if !ok {
				return domain.ErrNotFound{Entity: EntityScheme, Name: name}
			}
			scheme = found
			return nil
		})
	})
	return scheme, err
}

// ListSchemes returns all schemes sorted by name.
func (s *Service) ListSchemes(ctx context.Context) ([]Scheme, error) {
	var schemes []Scheme
	err := s.instrument(ctx, "list_schemes", func(ctx context.Context) error {
		return s.store.View(ctx, func(view domain.TransactionView) error {
			schemes = view.ListSchemes()
			sort.Slice(schemes, func(i, j int) bool { return schemes[i].Name < schemes[j].Name })
			return nil
		})
	})
	return schemes, err
}

// ActiveScheme returns the scheme the active pointer names.
func (s *Service) ActiveScheme(ctx context.Context) (Scheme, error) {
	var scheme Scheme
	err := s.instrument(ctx, "active_scheme", func(ctx context.Context) error {
		return s.store.View(ctx, func(view domain.TransactionView) error {
			found, err := resolveScheme(view, "")
			if err != nil {
				return err
			}
			scheme = found
			return nil
		})
	})
	return scheme, err
}

// Settings returns the repository settings.
func (s *Service) Settings(ctx context.Context) (Settings, error) {
	var settings Settings
	err := s.instrument(ctx, "get_settings", func(ctx context.Context) error {
		return s.store.View(ctx, func(view domain.TransactionView) error {
			settings = view.Settings()
			return nil
		})
	})
	return settings, err
}

// GetPlant returns the named plant record.
func (s *Service) GetPlant(ctx context.Context, name string) (PlantRecord, error) {
	var plant PlantRecord
	err := s.instrument(ctx, "get_plant", func(ctx context.Context) error {
		return s.store.View(ctx, func(view domain.TransactionView) error {
			found, ok := view.FindPlant(name)
			if !ok {
				return domain.ErrNotFound{Entity: EntityPlant, Name: name}
			}
			plant = found
			return nil
		})
	})
	return plant, err
}

// ListPlants returns all plant records sorted by name.
func (s *Service) ListPlants(ctx context.Context) ([]PlantRecord, error) {
	var plants []PlantRecord
	err := s.instrument(ctx, "list_plants", func(ctx context.Context) error {
		return s.store.View(ctx, func(view domain.TransactionView) error {
			plants = view.ListPlants()
			sort.Slice(plants, func(i, j int) bool { return plants[i].Name < plants[j].Name })
			return nil
		})
	})
	return plants, err
}

// PlantStatus derives the named plant's current week, phase, and reference date.
func (s *Service) PlantStatus(ctx context.Context, name string) (PlantStatus, error) {
	var status PlantStatus
	err := s.instrument(ctx, "plant_status", func(ctx context.Context) error {
		return s.store.View(ctx, func(view domain.TransactionView) error {
			plant, ok := view.FindPlant(name)
			if !ok {
				return domain.ErrNotFound{Entity: EntityPlant, Name: name}
			}
			status = plant.StatusAt(s.now())
			return nil
		})
	})
	return status, err
}

// EcHelperLastUsed returns the EC helper usage status.
func (s *Service) EcHelperLastUsed(ctx context.Context) (EcHelperStatus, error) {
	var status EcHelperStatus
	err := s.instrument(ctx, "ec_helper_status", func(ctx context.Context) error {
		return s.store.View(ctx, func(view domain.TransactionView) error {
			status = view.Status()
			return nil
		})
	})
	return status, err
}

// DoseForWeek resolves the absolute dose in ml for one fertilizer at the
// given week and water volume. An empty schemeName selects the active scheme.
// A schedule gap inside a non-empty table is logged and yields a zero dose;
// an empty schedule returns ErrNoData.
func (s *Service) DoseForWeek(ctx context.Context, schemeName, fertilizer string, week int, waterLitres float64) (float64, error) {
	var dose float64
	err := s.instrument(ctx, "dose_for_week", func(ctx context.Context) error {
		return s.store.View(ctx, func(view domain.TransactionView) error {
			scheme, err := resolveScheme(view, schemeName)
			if err != nil {
				return err
			}
			def, ok := scheme.Fertilizers[fertilizer]
			if !ok {
				return domain.ErrNotFound{Entity: EntityFertilizer, Name: fertilizer}
			}
			value, err := domain.DoseMl(def, week, waterLitres)
			var gap domain.ErrScheduleGap
			if errors.As(err, &gap) {
				s.logger.Warn("schedule gap resolved to zero dose",
					"scheme", scheme.Name, "fertilizer", fertilizer, "week", gap.Week)
				dose = 0
				return nil
			}
			if err != nil {
				return err
			}
			dose = value
			return nil
		})
	})
	return dose, err
}

// TargetEc resolves a scheme's EC target in mS/cm for the given week. An
// empty schemeName selects the active scheme. An empty curve returns
// ErrNoData; a curve gap is logged and yields zero.
func (s *Service) TargetEc(ctx context.Context, schemeName string, week int) (float64, error) {
	var target float64
	err := s.instrument(ctx, "target_ec", func(ctx context.Context) error {
		return s.store.View(ctx, func(view domain.TransactionView) error {
			scheme, err := resolveScheme(view, schemeName)
			if err != nil {
				return err
			}
			value, err := domain.TargetEc(scheme, week)
			var gap domain.ErrScheduleGap
			if errors.As(err, &gap) {
				s.logger.Warn("ec curve gap resolved to zero target",
					"scheme", scheme.Name, "week", gap.Week)
				target = 0
				return nil
			}
			if err != nil {
				return err
			}
			target = value
			return nil
		})
	})
	return target, err
}

// RequiredMl computes how many ml of a product raise the reservoir from
// ecNow to ecTarget at the given volume. All EC values share one unit.
func (s *Service) RequiredMl(ctx context.Context, ecNow, ecTarget, waterLitres, ecFactor float64) (float64, error) {
	var ml float64
	err := s.instrument(ctx, "required_ml", func(context.Context) error {
		var err error
		ml, err = domain.RequiredMl(ecNow, ecTarget, waterLitres, ecFactor)
		return err
	})
	return ml, err
}

const (
	backupPrefix    = "backups"
	backupKeyLayout = "20060102T150405Z"
)

// backupDocument is the JSON document written to the archive store.
type backupDocument struct {
	CreatedAt time.Time       `json:"created_at"`
	State     memory.Snapshot `json:"state"`
}

// CreateBackup serializes the whole repository state and stores it in the
// archive under a timestamped key.
func (s *Service) CreateBackup(ctx context.Context) (blobcore.Info, error) {
	var info blobcore.Info
	err := s.instrument(ctx, "create_backup", func(ctx context.Context) error {
		if s.archive == nil {
			return fmt.Errorf("archive store not configured")
		}
		doc := backupDocument{CreatedAt: s.now()}
		if err := s.store.View(ctx, func(view domain.TransactionView) error {
			doc.State = snapshotFromView(view)
			return nil
		}); err != nil {
			return err
		}
		data, err := json.MarshalIndent(doc, "", "  ")
		if err != nil {
			return fmt.Errorf("encode backup: %w", err)
		}
		key := backupPrefix + "/" + doc.CreatedAt.Format(backupKeyLayout) + ".json"
		stored, err := s.archive.Put(ctx, key, bytes.NewReader(data), blobcore.PutOptions{
			ContentType: "application/json",
			Metadata: map[string]string{
				"schemes": strconv.Itoa(len(doc.State.Schemes)),
				"plants":  strconv.Itoa(len(doc.State.Plants)),
			},
		})
		if err != nil {
			return err
		}
		info = stored
		s.logger.Info("backup stored", "key", stored.Key, "bytes", stored.Size)
		return nil
	})
	return info, err
}

// ListBackups returns the stored backups.
func (s *Service) ListBackups(ctx context.Context) ([]blobcore.Info, error) {
	var infos []blobcore.Info
	err := s.instrument(ctx, "list_backups", func(ctx context.Context) error {
		if s.archive == nil {
			return fmt.Errorf("archive store not configured")
		}
		out, err := s.archive.List(ctx, backupPrefix+"/")
		if err != nil {
			return err
		}
		infos = out
		return nil
	})
	return infos, err
}

// resolveScheme finds a scheme by name, falling back to the active scheme
// for an empty name.
func resolveScheme(view domain.RuleView, name string) (domain.Scheme, error) {
	if name == "" {
		name = view.Settings().ActiveSchemeName
	}
	scheme, ok := view.FindScheme(name)
	if !ok {
		return domain.Scheme{}, domain.ErrNotFound{Entity: domain.EntityScheme, Name: name}
	}
	return scheme, nil
}

// snapshotFromView assembles the canonical state snapshot from a read view.
func snapshotFromView(view domain.RuleView) memory.Snapshot {
	schemes := make(map[string]domain.Scheme)
	for _, scheme := range view.ListSchemes() {
		schemes[scheme.Name] = scheme
	}
	plants := make(map[string]domain.PlantRecord)
	for _, plant := range view.ListPlants() {
		plants[plant.Name] = plant
	}
	return memory.Snapshot{
		Schemes:  schemes,
		Plants:   plants,
		Settings: view.Settings(),
		Status:   view.Status(),
	}
}
