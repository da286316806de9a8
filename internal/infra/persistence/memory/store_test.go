package memory

import (
	"context"
	"errors"
	"reflect"
	"testing"
	"time"

	"growcore/pkg/domain"
)

func date(day, month, year int) time.Time {
	return time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
}

func TestStoreRunInTransactionAndSnapshots(t *testing.T) {
	store := NewStore(nil)
	ctx := context.Background()
	_, err := store.RunInTransaction(ctx, func(tx domain.Transaction) error {
		if _, ok := tx.FindScheme("missing"); ok {
			t.Fatalf("expected missing scheme lookup")
		}
		created, err := tx.CreateScheme(domain.Scheme{Name: "substrate"})
		if err != nil {
			return err
		}
		if created.Fertilizers == nil || created.EcCurve == nil {
			t.Fatalf("expected initialized maps on created scheme")
		}
		if _, err := tx.UpdateSettings(func(s *domain.Settings) error {
			s.ActiveSchemeName = "substrate"
			return nil
		}); err != nil {
			return err
		}
		view := tx.Snapshot()
		if len(view.ListSchemes()) != 1 {
			t.Fatalf("snapshot mismatch")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("run transaction: %v", err)
	}
	if len(store.ListSchemes()) != 1 {
		t.Fatalf("expected persisted scheme")
	}
	snapshot := store.ExportState()
	store.ImportState(Snapshot{})
	if len(store.ListSchemes()) != 0 {
		t.Fatalf("expected cleared state")
	}
	store.ImportState(snapshot)
	if len(store.ListSchemes()) != 1 {
		t.Fatalf("expected restored state")
	}
	if store.RulesEngine() == nil {
		t.Fatalf("expected rules engine")
	}
	if store.NowFunc() == nil {
		t.Fatalf("expected now func")
	}
}

func TestStoreRuleViolation(t *testing.T) {
	store := NewStore(domain.NewRulesEngine())
	store.RulesEngine().Register(blockingRule{})
	_, err := store.RunInTransaction(context.Background(), func(tx domain.Transaction) error {
		_, e := tx.CreateScheme(domain.Scheme{Name: "blocked"})
		return e
	})
	var violation domain.RuleViolationError
	if !errors.As(err, &violation) {
		t.Fatalf("expected rule violation error, got %v", err)
	}
	if len(store.ListSchemes()) != 0 {
		t.Fatalf("blocked transaction must not commit")
	}
}

type blockingRule struct{}

func (blockingRule) Name() string { return "block" }

func (blockingRule) Evaluate(ctx context.Context, view domain.RuleView, changes []domain.Change) (domain.Result, error) {
	res := domain.Result{}
	res.Merge(domain.Result{Violations: []domain.Violation{{Rule: "block", Severity: domain.SeverityBlock}}})
	return res, nil
}

func seedStore(t *testing.T, store *Store, schemes ...string) {
	t.Helper()
	_, err := store.RunInTransaction(context.Background(), func(tx domain.Transaction) error {
		for _, name := range schemes {
			if _, err := tx.CreateScheme(domain.Scheme{Name: name}); err != nil {
				return err
			}
		}
		_, err := tx.UpdateSettings(func(s *domain.Settings) error {
			s.ActiveSchemeName = schemes[0]
			return nil
		})
		return err
	})
	if err != nil {
		t.Fatalf("seed store: %v", err)
	}
}

func TestCreateSchemeDuplicate(t *testing.T) {
	store := NewStore(nil)
	seedStore(t, store, "substrate")
	_, err := store.RunInTransaction(context.Background(), func(tx domain.Transaction) error {
		_, e := tx.CreateScheme(domain.Scheme{Name: "substrate"})
		return e
	})
	var dup domain.ErrDuplicate
	if !errors.As(err, &dup) {
		t.Fatalf("expected duplicate error, got %v", err)
	}
	if dup.Entity != domain.EntityScheme || dup.Name != "substrate" {
		t.Fatalf("unexpected duplicate detail: %+v", dup)
	}
}

func TestUpdateSchemeErrors(t *testing.T) {
	store := NewStore(nil)
	ctx := context.Background()
	_, err := store.RunInTransaction(ctx, func(tx domain.Transaction) error {
		if _, err := tx.UpdateScheme("missing", func(*domain.Scheme) error { return nil }); err == nil {
			t.Fatalf("expected missing scheme error")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("run transaction: %v", err)
	}
}

func TestUpdateSchemePinsName(t *testing.T) {
	store := NewStore(nil)
	seedStore(t, store, "substrate")
	_, err := store.RunInTransaction(context.Background(), func(tx domain.Transaction) error {
		updated, err := tx.UpdateScheme("substrate", func(s *domain.Scheme) error {
			s.Name = "sneaky-rename"
			s.EcCurve = domain.EcCurve{1: 0.4}
			return nil
		})
		if err != nil {
			return err
		}
		if updated.Name != "substrate" {
			t.Fatalf("update must pin the scheme name, got %q", updated.Name)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("run transaction: %v", err)
	}
	if _, ok := store.GetScheme("sneaky-rename"); ok {
		t.Fatalf("mutator rename must not take effect")
	}
}

func TestRenameSchemeMovesActivePointer(t *testing.T) {
	store := NewStore(nil)
	seedStore(t, store, "substrate", "hydro")
	_, err := store.RunInTransaction(context.Background(), func(tx domain.Transaction) error {
		_, e := tx.RenameScheme("substrate", "soil")
		return e
	})
	if err != nil {
		t.Fatalf("rename: %v", err)
	}
	if _, ok := store.GetScheme("substrate"); ok {
		t.Fatalf("old name still present")
	}
	renamed, ok := store.GetScheme("soil")
	if !ok || renamed.Name != "soil" {
		t.Fatalf("renamed scheme missing or misnamed: %+v", renamed)
	}
	if store.Settings().ActiveSchemeName != "soil" {
		t.Fatalf("active pointer did not follow rename: %q", store.Settings().ActiveSchemeName)
	}
}

func TestRenameSchemeCollision(t *testing.T) {
	store := NewStore(nil)
	seedStore(t, store, "substrate", "hydro")
	_, err := store.RunInTransaction(context.Background(), func(tx domain.Transaction) error {
		_, e := tx.RenameScheme("substrate", "hydro")
		return e
	})
	var dup domain.ErrDuplicate
	if !errors.As(err, &dup) {
		t.Fatalf("expected duplicate error, got %v", err)
	}
}

func TestDeleteSchemeRepairsActivePointer(t *testing.T) {
	store := NewStore(nil)
	seedStore(t, store, "substrate", "hydro", "coco")
	_, err := store.RunInTransaction(context.Background(), func(tx domain.Transaction) error {
		return tx.DeleteScheme("substrate")
	})
	if err != nil {
		t.Fatalf("delete: %v", err)
	}
	// First remaining name in lexical order.
	if got := store.Settings().ActiveSchemeName; got != "coco" {
		t.Fatalf("active pointer after delete: got %q, want %q", got, "coco")
	}
}

func TestDeleteSchemeKeepsForeignActivePointer(t *testing.T) {
	store := NewStore(nil)
	seedStore(t, store, "substrate", "hydro")
	_, err := store.RunInTransaction(context.Background(), func(tx domain.Transaction) error {
		return tx.DeleteScheme("hydro")
	})
	if err != nil {
		t.Fatalf("delete: %v", err)
	}
	if got := store.Settings().ActiveSchemeName; got != "substrate" {
		t.Fatalf("active pointer changed unexpectedly: %q", got)
	}
}

func TestDeleteLastSchemeFails(t *testing.T) {
	store := NewStore(nil)
	seedStore(t, store, "substrate")
	before := store.ExportState()
	_, err := store.RunInTransaction(context.Background(), func(tx domain.Transaction) error {
		return tx.DeleteScheme("substrate")
	})
	if !errors.Is(err, domain.ErrLastScheme) {
		t.Fatalf("expected last scheme error, got %v", err)
	}
	if !reflect.DeepEqual(store.ExportState(), before) {
		t.Fatalf("failed delete must leave state unchanged")
	}
}

func TestPlantCrud(t *testing.T) {
	store := NewStore(nil)
	seedStore(t, store, "substrate")
	ctx := context.Background()
	germination := date(1, 3, 2025)

	_, err := store.RunInTransaction(ctx, func(tx domain.Transaction) error {
		if _, err := tx.CreatePlant(domain.PlantRecord{Name: "aurora", GerminationDate: germination, Genetics: "auto"}); err != nil {
			return err
		}
		if _, err := tx.CreatePlant(domain.PlantRecord{Name: "aurora", GerminationDate: germination}); err == nil {
			t.Fatalf("expected duplicate plant error")
		}
		if _, err := tx.CreatePlant(domain.PlantRecord{Name: "undated"}); err == nil {
			t.Fatalf("expected germination date error")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("create plants: %v", err)
	}

	_, err = store.RunInTransaction(ctx, func(tx domain.Transaction) error {
		_, e := tx.UpdatePlant("aurora", func(p *domain.PlantRecord) error {
			p.Notes = "repotted"
			return nil
		})
		return e
	})
	if err != nil {
		t.Fatalf("update plant: %v", err)
	}
	plant, ok := store.GetPlant("aurora")
	if !ok || plant.Notes != "repotted" {
		t.Fatalf("plant update not visible: %+v", plant)
	}

	_, err = store.RunInTransaction(ctx, func(tx domain.Transaction) error {
		return tx.DeletePlant("aurora")
	})
	if err != nil {
		t.Fatalf("delete plant: %v", err)
	}
	if len(store.ListPlants()) != 0 {
		t.Fatalf("expected empty plant list")
	}

	_, err = store.RunInTransaction(ctx, func(tx domain.Transaction) error {
		return tx.DeletePlant("aurora")
	})
	var notFound domain.ErrNotFound
	if !errors.As(err, &notFound) {
		t.Fatalf("expected not found error, got %v", err)
	}
}

func TestStatusUpdateVisibleAfterCommit(t *testing.T) {
	store := NewStore(nil)
	seedStore(t, store, "substrate")
	used := date(24, 3, 2025)
	_, err := store.RunInTransaction(context.Background(), func(tx domain.Transaction) error {
		_, e := tx.UpdateStatus(func(st *domain.EcHelperStatus) error {
			st.LastUsed = used
			return nil
		})
		return e
	})
	if err != nil {
		t.Fatalf("update status: %v", err)
	}
	if !store.Status().LastUsed.Equal(used) {
		t.Fatalf("status not committed: %v", store.Status().LastUsed)
	}
}

func TestTransactionIsolationOnError(t *testing.T) {
	store := NewStore(nil)
	seedStore(t, store, "substrate")
	sentinel := errors.New("abort")
	_, err := store.RunInTransaction(context.Background(), func(tx domain.Transaction) error {
		if _, err := tx.CreateScheme(domain.Scheme{Name: "doomed"}); err != nil {
			return err
		}
		return sentinel
	})
	if !errors.Is(err, sentinel) {
		t.Fatalf("expected sentinel error, got %v", err)
	}
	if _, ok := store.GetScheme("doomed"); ok {
		t.Fatalf("aborted transaction leaked state")
	}
}

func TestViewSeesCommittedStateOnly(t *testing.T) {
	store := NewStore(nil)
	seedStore(t, store, "substrate")
	err := store.View(context.Background(), func(view domain.TransactionView) error {
		if len(view.ListSchemes()) != 1 {
			t.Fatalf("expected one scheme in view")
		}
		if _, ok := view.FindScheme("substrate"); !ok {
			t.Fatalf("expected scheme in view")
		}
		if view.Settings().ActiveSchemeName != "substrate" {
			t.Fatalf("expected active scheme in view settings")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("view: %v", err)
	}
}
