package domain

import "context"

// Transaction exposes the domain operations that a persistence implementation
// must support within an atomic scope.
type Transaction interface {
	Snapshot() TransactionView
	CreateScheme(Scheme) (Scheme, error)
	UpdateScheme(name string, mutator func(*Scheme) error) (Scheme, error)
	RenameScheme(oldName, newName string) (Scheme, error)
	DeleteScheme(name string) error
	CreatePlant(PlantRecord) (PlantRecord, error)
	UpdatePlant(name string, mutator func(*PlantRecord) error) (PlantRecord, error)
	DeletePlant(name string) error
	UpdateSettings(mutator func(*Settings) error) (Settings, error)
	UpdateStatus(mutator func(*EcHelperStatus) error) (EcHelperStatus, error)
	FindScheme(name string) (Scheme, bool)
	FindPlant(name string) (PlantRecord, bool)
}

// TransactionView provides read-only access to snapshot data for rules and
// read operations.
type TransactionView interface {
	RuleView
}

// PersistentStore is a minimal abstraction over durable backends. It mirrors
// the subset of store capabilities used directly by higher layers.
type PersistentStore interface {
	RunInTransaction(ctx context.Context, fn func(Transaction) error) (Result, error)
	View(ctx context.Context, fn func(TransactionView) error) error
	GetScheme(name string) (Scheme, bool)
	ListSchemes() []Scheme
	GetPlant(name string) (PlantRecord, bool)
	ListPlants() []PlantRecord
	Settings() Settings
	Status() EcHelperStatus
}
