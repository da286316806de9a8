// Package memory provides an in-memory implementation of the core persistence
// store, used directly for tests and embedded as the transactional engine by
// the durable drivers.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"growcore/pkg/domain"
)

// Compile-time contract assertion ensuring memory.Store adheres to the domain persistence interfaces.
var _ domain.PersistentStore = (*Store)(nil)

type (
	// Scheme aliases domain.Scheme for in-memory persistence operations.
	Scheme = domain.Scheme
	// FertilizerDefinition aliases domain.FertilizerDefinition.
	FertilizerDefinition = domain.FertilizerDefinition
	// PlantRecord aliases domain.PlantRecord.
	PlantRecord = domain.PlantRecord
	// Settings aliases domain.Settings.
	Settings = domain.Settings
	// EcHelperStatus aliases domain.EcHelperStatus.
	EcHelperStatus = domain.EcHelperStatus
	// Change aliases domain.Change captured in transactions.
	Change = domain.Change
	// Result aliases domain.Result summarizing rule evaluation.
	Result = domain.Result
	// RulesEngine aliases domain.RulesEngine used to evaluate rules.
	RulesEngine = domain.RulesEngine
	// Transaction aliases domain.Transaction representing a mutable unit of work.
	Transaction = domain.Transaction
	// TransactionView aliases domain.TransactionView providing read-only state.
	TransactionView = domain.TransactionView
	// PersistentStore aliases domain.PersistentStore abstraction.
	PersistentStore = domain.PersistentStore
)

type memoryState struct {
	schemes  map[string]Scheme
	plants   map[string]PlantRecord
	settings Settings
	status   EcHelperStatus
}

// Snapshot captures a point-in-time clone of the store state.
type Snapshot struct {
	Schemes  map[string]Scheme      `json:"schemes"`
	Plants   map[string]PlantRecord `json:"plants"`
	Settings Settings               `json:"settings"`
	Status   EcHelperStatus         `json:"status"`
}

func newMemoryState() memoryState {
	return memoryState{
		schemes:  make(map[string]Scheme),
		plants:   make(map[string]PlantRecord),
		settings: Settings{DefaultEcFactors: map[string]float64{}},
	}
}

func (s memoryState) clone() memoryState {
	cp := memoryState{
		schemes:  make(map[string]Scheme, len(s.schemes)),
		plants:   make(map[string]PlantRecord, len(s.plants)),
		settings: s.settings.Clone(),
		status:   s.status,
	}
	for name, scheme := range s.schemes {
		cp.schemes[name] = scheme.Clone()
	}
	for name, plant := range s.plants {
		cp.plants[name] = plant.Clone()
	}
	return cp
}

func snapshotFromMemoryState(state memoryState) Snapshot {
	snap := Snapshot{
		Schemes:  make(map[string]Scheme, len(state.schemes)),
		Plants:   make(map[string]PlantRecord, len(state.plants)),
		Settings: state.settings.Clone(),
		Status:   state.status,
	}
	for name, scheme := range state.schemes {
		snap.Schemes[name] = scheme.Clone()
	}
	for name, plant := range state.plants {
		snap.Plants[name] = plant.Clone()
	}
	return snap
}

func memoryStateFromSnapshot(snap Snapshot) memoryState {
	state := newMemoryState()
	for name, scheme := range snap.Schemes {
		state.schemes[name] = scheme.Clone()
	}
	for name, plant := range snap.Plants {
		state.plants[name] = plant.Clone()
	}
	state.settings = snap.Settings.Clone()
	if state.settings.DefaultEcFactors == nil {
		state.settings.DefaultEcFactors = map[string]float64{}
	}
	state.status = snap.Status
	return state
}

// migrateSnapshot normalizes snapshots loaded from durable storage: nil maps
// become empty and record names are forced back onto their map keys.
func migrateSnapshot(snap Snapshot) Snapshot {
	if snap.Schemes == nil {
		snap.Schemes = map[string]Scheme{}
	}
	if snap.Plants == nil {
		snap.Plants = map[string]PlantRecord{}
	}
	if snap.Settings.DefaultEcFactors == nil {
		snap.Settings.DefaultEcFactors = map[string]float64{}
	}
	for name, scheme := range snap.Schemes {
		scheme.Name = name
		if scheme.Fertilizers == nil {
			scheme.Fertilizers = map[string]FertilizerDefinition{}
		}
		for fertName, def := range scheme.Fertilizers {
			def.Name = fertName
			if def.Schedule == nil {
				def.Schedule = domain.ScheduleTable{}
			}
			scheme.Fertilizers[fertName] = def
		}
		if scheme.EcCurve == nil {
			scheme.EcCurve = domain.EcCurve{}
		}
		snap.Schemes[name] = scheme
	}
	for name, plant := range snap.Plants {
		plant.Name = name
		snap.Plants[name] = plant
	}
	return snap
}

// Store provides an in-memory transactional store for the core domain.
type Store struct {
	mu     sync.RWMutex
	state  memoryState
	engine *RulesEngine
	nowFn  func() time.Time
}

// NewStore constructs an in-memory store backed by the provided rules engine.
func NewStore(engine *RulesEngine) *Store {
	if engine == nil {
		engine = domain.NewRulesEngine()
	}
	return &Store{
		state:  newMemoryState(),
		engine: engine,
		nowFn:  func() time.Time { return time.Now().UTC() },
	}
}

// ExportState clones the current store state for external persistence.
func (s *Store) ExportState() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return snapshotFromMemoryState(s.state)
}

// ImportState replaces the store state with the provided snapshot.
func (s *Store) ImportState(snapshot Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = memoryStateFromSnapshot(migrateSnapshot(snapshot))
}

// RulesEngine exposes the currently configured engine for integration points.
func (s *Store) RulesEngine() *RulesEngine {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.engine
}

// NowFunc returns the time provider used by the in-memory store.
func (s *Store) NowFunc() func() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.nowFn
}

// transaction represents a mutation set applied to the store state.
type transaction struct {
	state   memoryState
	changes []Change
}

// transactionView exposes a read-only snapshot of the transactional state to
// rules and read operations.
type transactionView struct {
	state *memoryState
}

func newTransactionView(state *memoryState) transactionView {
	return transactionView{state: state}
}

// ListSchemes returns all schemes within the transaction snapshot.
func (v transactionView) ListSchemes() []Scheme {
	out := make([]Scheme, 0, len(v.state.schemes))
	for _, scheme := range v.state.schemes {
		out = append(out, scheme.Clone())
	}
	return out
}

// FindScheme retrieves a scheme by name from the snapshot.
func (v transactionView) FindScheme(name string) (Scheme, bool) {
	scheme, ok := v.state.schemes[name]
	if !ok {
		return Scheme{}, false
	}
	return scheme.Clone(), true
}

// ListPlants returns all plant records within the transaction snapshot.
func (v transactionView) ListPlants() []PlantRecord {
	out := make([]PlantRecord, 0, len(v.state.plants))
	for _, plant := range v.state.plants {
		out = append(out, plant.Clone())
	}
	return out
}

// FindPlant retrieves a plant record by name from the snapshot.
func (v transactionView) FindPlant(name string) (PlantRecord, bool) {
	plant, ok := v.state.plants[name]
	if !ok {
		return PlantRecord{}, false
	}
	return plant.Clone(), true
}

// Settings returns the repository settings within the snapshot.
func (v transactionView) Settings() Settings {
	return v.state.settings.Clone()
}

// Status returns the EC helper status within the snapshot.
func (v transactionView) Status() EcHelperStatus {
	return v.state.status
}

// RunInTransaction executes fn within a transactional copy of the store state.
func (s *Store) RunInTransaction(ctx context.Context, fn func(tx Transaction) error) (Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx := &transaction{state: s.state.clone()}

	if err := fn(tx); err != nil {
		return Result{}, err
	}

	var result Result
	if s.engine != nil {
		view := newTransactionView(&tx.state)
		res, err := s.engine.Evaluate(ctx, view, tx.changes)
		if err != nil {
			return Result{}, err
		}
		result = res
		if res.HasBlocking() {
			return res, domain.RuleViolationError{Result: res}
		}
	}

	s.state = tx.state
	return result, nil
}

// View executes fn against a read-only snapshot of the store state.
func (s *Store) View(_ context.Context, fn func(TransactionView) error) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snapshot := s.state.clone()
	view := newTransactionView(&snapshot)
	return fn(view)
}

func (tx *transaction) recordChange(change Change) {
	tx.changes = append(tx.changes, change)
}

// Snapshot returns a read-only view over the transactional state.
func (tx *transaction) Snapshot() TransactionView {
	return newTransactionView(&tx.state)
}

// FindScheme exposes scheme lookup within the transaction scope.
func (tx *transaction) FindScheme(name string) (Scheme, bool) {
	scheme, ok := tx.state.schemes[name]
	if !ok {
		return Scheme{}, false
	}
	return scheme.Clone(), true
}

// FindPlant exposes plant lookup within the transaction scope.
func (tx *transaction) FindPlant(name string) (PlantRecord, bool) {
	plant, ok := tx.state.plants[name]
	if !ok {
		return PlantRecord{}, false
	}
	return plant.Clone(), true
}

// CreateScheme stores a new scheme within the transaction.
func (tx *transaction) CreateScheme(scheme Scheme) (Scheme, error) {
	if scheme.Name == "" {
		return Scheme{}, fmt.Errorf("scheme name cannot be empty")
	}
	if _, exists := tx.state.schemes[scheme.Name]; exists {
		return Scheme{}, domain.ErrDuplicate{Entity: domain.EntityScheme, Name: scheme.Name}
	}
	if scheme.Fertilizers == nil {
		scheme.Fertilizers = map[string]FertilizerDefinition{}
	}
	if scheme.EcCurve == nil {
		scheme.EcCurve = domain.EcCurve{}
	}
	tx.state.schemes[scheme.Name] = scheme.Clone()
	tx.recordChange(Change{Entity: domain.EntityScheme, Action: domain.ActionCreate, After: scheme.Clone()})
	return scheme.Clone(), nil
}

// UpdateScheme mutates a scheme using the provided mutator function. The
// scheme name is fixed; use RenameScheme to move a scheme to a new name.
func (tx *transaction) UpdateScheme(name string, mutator func(*Scheme) error) (Scheme, error) {
	current, ok := tx.state.schemes[name]
	if !ok {
		return Scheme{}, domain.ErrNotFound{Entity: domain.EntityScheme, Name: name}
	}
	before := current.Clone()
	updated := current.Clone()
	if err := mutator(&updated); err != nil {
		return Scheme{}, err
	}
	updated.Name = name
	if updated.Fertilizers == nil {
		updated.Fertilizers = map[string]FertilizerDefinition{}
	}
	if updated.EcCurve == nil {
		updated.EcCurve = domain.EcCurve{}
	}
	tx.state.schemes[name] = updated.Clone()
	tx.recordChange(Change{Entity: domain.EntityScheme, Action: domain.ActionUpdate, Before: before, After: updated.Clone()})
	return updated.Clone(), nil
}

// RenameScheme moves a scheme to a new name. When the renamed scheme is
// active, the active pointer follows it.
func (tx *transaction) RenameScheme(oldName, newName string) (Scheme, error) {
	current, ok := tx.state.schemes[oldName]
	if !ok {
		return Scheme{}, domain.ErrNotFound{Entity: domain.EntityScheme, Name: oldName}
	}
	if newName == "" {
		return Scheme{}, fmt.Errorf("scheme name cannot be empty")
	}
	if newName == oldName {
		return current.Clone(), nil
	}
	if _, exists := tx.state.schemes[newName]; exists {
		return Scheme{}, domain.ErrDuplicate{Entity: domain.EntityScheme, Name: newName}
	}
	before := current.Clone()
	renamed := current.Clone()
	renamed.Name = newName
	delete(tx.state.schemes, oldName)
	tx.state.schemes[newName] = renamed.Clone()
	tx.recordChange(Change{Entity: domain.EntityScheme, Action: domain.ActionUpdate, Before: before, After: renamed.Clone()})
	if tx.state.settings.ActiveSchemeName == oldName {
		settingsBefore := tx.state.settings.Clone()
		tx.state.settings.ActiveSchemeName = newName
		tx.recordChange(Change{Entity: domain.EntitySettings, Action: domain.ActionUpdate, Before: settingsBefore, After: tx.state.settings.Clone()})
	}
	return renamed.Clone(), nil
}

// DeleteScheme removes a scheme. The last remaining scheme cannot be
// deleted. Deleting the active scheme repoints the active name to the first
// remaining scheme in lexical order.
func (tx *transaction) DeleteScheme(name string) error {
	current, ok := tx.state.schemes[name]
	if !ok {
		return domain.ErrNotFound{Entity: domain.EntityScheme, Name: name}
	}
	if len(tx.state.schemes) == 1 {
		return domain.ErrLastScheme
	}
	delete(tx.state.schemes, name)
	tx.recordChange(Change{Entity: domain.EntityScheme, Action: domain.ActionDelete, Before: current.Clone()})
	if tx.state.settings.ActiveSchemeName == name {
		names := make([]string, 0, len(tx.state.schemes))
		for remaining := range tx.state.schemes {
			names = append(names, remaining)
		}
		sort.Strings(names)
		settingsBefore := tx.state.settings.Clone()
		tx.state.settings.ActiveSchemeName = names[0]
		tx.recordChange(Change{Entity: domain.EntitySettings, Action: domain.ActionUpdate, Before: settingsBefore, After: tx.state.settings.Clone()})
	}
	return nil
}

// CreatePlant stores a new plant record within the transaction.
func (tx *transaction) CreatePlant(plant PlantRecord) (PlantRecord, error) {
	if plant.Name == "" {
		return PlantRecord{}, fmt.Errorf("plant name cannot be empty")
	}
	if plant.GerminationDate.IsZero() {
		return PlantRecord{}, fmt.Errorf("plant %q needs a germination date", plant.Name)
	}
	if _, exists := tx.state.plants[plant.Name]; exists {
		return PlantRecord{}, domain.ErrDuplicate{Entity: domain.EntityPlant, Name: plant.Name}
	}
	tx.state.plants[plant.Name] = plant.Clone()
	tx.recordChange(Change{Entity: domain.EntityPlant, Action: domain.ActionCreate, After: plant.Clone()})
	return plant.Clone(), nil
}

// UpdatePlant mutates a plant record using the provided mutator function.
func (tx *transaction) UpdatePlant(name string, mutator func(*PlantRecord) error) (PlantRecord, error) {
	current, ok := tx.state.plants[name]
	if !ok {
		return PlantRecord{}, domain.ErrNotFound{Entity: domain.EntityPlant, Name: name}
	}
	before := current.Clone()
	updated := current.Clone()
	if err := mutator(&updated); err != nil {
		return PlantRecord{}, err
	}
	updated.Name = name
	tx.state.plants[name] = updated.Clone()
	tx.recordChange(Change{Entity: domain.EntityPlant, Action: domain.ActionUpdate, Before: before, After: updated.Clone()})
	return updated.Clone(), nil
}

// DeletePlant removes a plant record from the transaction state.
func (tx *transaction) DeletePlant(name string) error {
	current, ok := tx.state.plants[name]
	if !ok {
		return domain.ErrNotFound{Entity: domain.EntityPlant, Name: name}
	}
	delete(tx.state.plants, name)
	tx.recordChange(Change{Entity: domain.EntityPlant, Action: domain.ActionDelete, Before: current.Clone()})
	return nil
}

// UpdateSettings mutates the repository settings.
func (tx *transaction) UpdateSettings(mutator func(*Settings) error) (Settings, error) {
	before := tx.state.settings.Clone()
	updated := tx.state.settings.Clone()
	if err := mutator(&updated); err != nil {
		return Settings{}, err
	}
	if updated.DefaultEcFactors == nil {
		updated.DefaultEcFactors = map[string]float64{}
	}
	tx.state.settings = updated.Clone()
	tx.recordChange(Change{Entity: domain.EntitySettings, Action: domain.ActionUpdate, Before: before, After: updated.Clone()})
	return updated.Clone(), nil
}

// UpdateStatus mutates the EC helper status record.
func (tx *transaction) UpdateStatus(mutator func(*EcHelperStatus) error) (EcHelperStatus, error) {
	before := tx.state.status
	updated := tx.state.status
	if err := mutator(&updated); err != nil {
		return EcHelperStatus{}, err
	}
	tx.state.status = updated
	tx.recordChange(Change{Entity: domain.EntityStatus, Action: domain.ActionUpdate, Before: before, After: updated})
	return updated, nil
}

// GetScheme retrieves a scheme by name from committed state.
func (s *Store) GetScheme(name string) (Scheme, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	scheme, ok := s.state.schemes[name]
	if !ok {
		return Scheme{}, false
	}
	return scheme.Clone(), true
}

// ListSchemes returns all schemes from committed state.
func (s *Store) ListSchemes() []Scheme {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Scheme, 0, len(s.state.schemes))
	for _, scheme := range s.state.schemes {
		out = append(out, scheme.Clone())
	}
	return out
}

// GetPlant retrieves a plant record by name from committed state.
func (s *Store) GetPlant(name string) (PlantRecord, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	plant, ok := s.state.plants[name]
	if !ok {
		return PlantRecord{}, false
	}
	return plant.Clone(), true
}

// ListPlants returns all plant records from committed state.
func (s *Store) ListPlants() []PlantRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]PlantRecord, 0, len(s.state.plants))
	for _, plant := range s.state.plants {
		out = append(out, plant.Clone())
	}
	return out
}

// Settings returns the repository settings from committed state.
func (s *Store) Settings() Settings {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.settings.Clone()
}

// Status returns the EC helper status from committed state.
func (s *Store) Status() EcHelperStatus {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.status
}
