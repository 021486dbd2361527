package database

import (
	"context"
	"errors"
	"testing"

	"github.com/infrahive/assetvec/domain/repository"
)

// widget / widgetModel give the generic Repository a minimal domain/model
// pair to run against.
type widget struct {
	ID   int64
	Name string
}

type widgetModel struct {
	ID   int64  `gorm:"column:id;primaryKey"`
	Name string `gorm:"column:name"`
}

func (widgetModel) TableName() string { return "widgets" }

type widgetMapper struct{}

func (widgetMapper) ToDomain(m widgetModel) widget { return widget{ID: m.ID, Name: m.Name} }
func (widgetMapper) ToModel(d widget) widgetModel  { return widgetModel{ID: d.ID, Name: d.Name} }

func newWidgetRepo(t *testing.T) (Repository[widget, widgetModel], Database) {
	t.Helper()
	ctx := context.Background()

	db, err := NewDatabase(ctx, "sqlite:///:memory:")
	if err != nil {
		t.Fatalf("NewDatabase: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	if err := db.Session(ctx).Exec("CREATE TABLE widgets (id INTEGER PRIMARY KEY, name TEXT)").Error; err != nil {
		t.Fatalf("create table: %v", err)
	}
	for _, name := range []string{"alpha", "beta", "gamma"} {
		if err := db.Session(ctx).Exec("INSERT INTO widgets (name) VALUES (?)", name).Error; err != nil {
			t.Fatalf("insert: %v", err)
		}
	}

	return NewRepository[widget, widgetModel](db, widgetMapper{}, "widget"), db
}

func TestRepository_Find(t *testing.T) {
	ctx := context.Background()
	repo, _ := newWidgetRepo(t)

	all, err := repo.Find(ctx, repository.WithOrderAsc("id"))
	if err != nil {
		t.Fatalf("Find: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("Find returned %d widgets, want 3", len(all))
	}
	if all[0].Name != "alpha" || all[2].Name != "gamma" {
		t.Errorf("unexpected order: %v", all)
	}
}

func TestRepository_FindWithCondition(t *testing.T) {
	ctx := context.Background()
	repo, _ := newWidgetRepo(t)

	found, err := repo.Find(ctx, repository.WithCondition("name", "beta"))
	if err != nil {
		t.Fatalf("Find: %v", err)
	}
	if len(found) != 1 || found[0].Name != "beta" {
		t.Errorf("Find = %v, want single beta", found)
	}
}

func TestRepository_FindWithWhere(t *testing.T) {
	ctx := context.Background()
	repo, _ := newWidgetRepo(t)

	found, err := repo.Find(ctx, repository.WithWhere("id > ?", 1), repository.WithOrderAsc("id"))
	if err != nil {
		t.Fatalf("Find: %v", err)
	}
	if len(found) != 2 {
		t.Fatalf("Find returned %d widgets, want 2", len(found))
	}
	if found[0].Name != "beta" {
		t.Errorf("first widget = %v, want beta", found[0])
	}
}

func TestRepository_FindOne(t *testing.T) {
	ctx := context.Background()
	repo, _ := newWidgetRepo(t)

	w, err := repo.FindOne(ctx, repository.WithID(2))
	if err != nil {
		t.Fatalf("FindOne: %v", err)
	}
	if w.Name != "beta" {
		t.Errorf("FindOne = %v, want beta", w)
	}
}

func TestRepository_FindOne_NotFound(t *testing.T) {
	ctx := context.Background()
	repo, _ := newWidgetRepo(t)

	_, err := repo.FindOne(ctx, repository.WithID(99))
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("FindOne error = %v, want ErrNotFound", err)
	}
}

func TestRepository_Count(t *testing.T) {
	ctx := context.Background()
	repo, _ := newWidgetRepo(t)

	count, err := repo.Count(ctx)
	if err != nil {
		t.Fatalf("Count: %v", err)
	}
	if count != 3 {
		t.Errorf("Count = %d, want 3", count)
	}

	count, err = repo.Count(ctx, repository.WithCondition("name", "alpha"))
	if err != nil {
		t.Fatalf("Count: %v", err)
	}
	if count != 1 {
		t.Errorf("Count with condition = %d, want 1", count)
	}
}

func TestRepository_WithDatabase(t *testing.T) {
	ctx := context.Background()
	repo, db := newWidgetRepo(t)

	err := WithTransaction(ctx, db, func(tx Database) error {
		txRepo := repo.WithDatabase(tx)
		if err := txRepo.DB(ctx).Exec("INSERT INTO widgets (name) VALUES (?)", "delta").Error; err != nil {
			return err
		}
		count, err := txRepo.Count(ctx)
		if err != nil {
			return err
		}
		if count != 4 {
			t.Errorf("count inside transaction = %d, want 4", count)
		}
		return errors.New("force rollback")
	})
	if err == nil {
		t.Fatal("expected forced error")
	}

	count, err := repo.Count(ctx)
	if err != nil {
		t.Fatalf("Count: %v", err)
	}
	if count != 3 {
		t.Errorf("count after rollback = %d, want 3", count)
	}
}
