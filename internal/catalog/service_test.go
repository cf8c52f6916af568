package catalog

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/heimdex/heimdex-annotator/internal/db"
	"github.com/heimdex/heimdex-annotator/internal/domain"
)

func setupTestDB(t *testing.T) (*db.DB, Repository) {
	tmpDir := t.TempDir()
	dbPath := filepath.Join(tmpDir, "test.db")

	database, err := db.New(dbPath, nil)
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}

	repo := NewRepository(database.Conn())
	return database, repo
}

type fakePurger struct {
	deleted []string
}

func (p *fakePurger) DeleteCategory(ctx context.Context, categoryID string) error {
	p.deleted = append(p.deleted, categoryID)
	return nil
}

func TestService_LoadSeedsDefault(t *testing.T) {
	database, repo := setupTestDB(t)
	defer database.Close()

	svc := NewService(repo, nil)
	if err := svc.Load(context.Background()); err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	ev := svc.FindEvent(DefaultCategoryID, DefaultEventID)
	if ev == nil {
		t.Fatal("default event not seeded")
	}
	if ev.Color != DefaultColor {
		t.Errorf("default event color = %s, want %s", ev.Color, DefaultColor)
	}

	// Loading again must not duplicate the seed.
	if err := svc.Load(context.Background()); err != nil {
		t.Fatalf("second Load() error = %v", err)
	}
	cats, _ := svc.Categories(context.Background())
	if len(cats) != 1 {
		t.Errorf("categories = %d, want 1", len(cats))
	}
}

func TestService_CreateCategory(t *testing.T) {
	database, repo := setupTestDB(t)
	defer database.Close()

	svc := NewService(repo, nil)
	ctx := context.Background()

	c, err := svc.CreateCategory(ctx, CategoryInput{Name: "Football Match", Color: "#00ff00"})
	if err != nil {
		t.Fatalf("CreateCategory() error = %v", err)
	}
	if c.ID != "football_match" {
		t.Errorf("category id = %s, want football_match", c.ID)
	}
	if svc.FindCategory("football_match") == nil {
		t.Error("index not refreshed after create")
	}

	_, err = svc.CreateCategory(ctx, CategoryInput{Name: "football match", Color: "#00ff00"})
	if !errors.Is(err, domain.ErrAlreadyExists) {
		t.Errorf("duplicate CreateCategory() error = %v, want ErrAlreadyExists", err)
	}
}

func TestService_CreateCategory_Invalid(t *testing.T) {
	database, repo := setupTestDB(t)
	defer database.Close()

	svc := NewService(repo, nil)

	_, err := svc.CreateCategory(context.Background(), CategoryInput{Name: "", Color: "red"})
	var ve *domain.ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("error = %v, want ValidationError", err)
	}
	if len(ve.Errors) < 2 {
		t.Errorf("expected name and color errors, got %v", ve.Errors)
	}
}

func TestService_AddEvent(t *testing.T) {
	database, repo := setupTestDB(t)
	defer database.Close()

	svc := NewService(repo, nil)
	ctx := context.Background()

	if _, err := svc.CreateCategory(ctx, CategoryInput{Name: "Sport", Color: "#ff0000"}); err != nil {
		t.Fatalf("CreateCategory() error = %v", err)
	}

	ev, err := svc.AddEvent(ctx, "sport", EventInput{
		Name:  "Goal Kick",
		Color: "#0000ff",
		CustomFields: []FieldSchema{
			{Name: "team", Type: FieldSelect, Required: true, Options: []string{"Home", "Away"}},
		},
	})
	if err != nil {
		t.Fatalf("AddEvent() error = %v", err)
	}
	if ev.ID != "goal_kick" {
		t.Errorf("event id = %s, want goal_kick", ev.ID)
	}

	found := svc.FindEvent("sport", "goal_kick")
	if found == nil || len(found.CustomFields) != 1 {
		t.Fatalf("FindEvent() = %+v, want event with one field", found)
	}

	if _, err := svc.AddEvent(ctx, "sport", EventInput{Name: "Goal Kick", Color: "#0000ff"}); !errors.Is(err, domain.ErrAlreadyExists) {
		t.Errorf("duplicate AddEvent() error = %v, want ErrAlreadyExists", err)
	}
	if _, err := svc.AddEvent(ctx, "missing", EventInput{Name: "X", Color: "#0000ff"}); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("AddEvent() on missing category error = %v, want ErrNotFound", err)
	}
}

func TestService_AddEvent_SelectWithoutOptions(t *testing.T) {
	database, repo := setupTestDB(t)
	defer database.Close()

	svc := NewService(repo, nil)
	ctx := context.Background()
	svc.CreateCategory(ctx, CategoryInput{Name: "Sport", Color: "#ff0000"})

	_, err := svc.AddEvent(ctx, "sport", EventInput{
		Name:         "Foul",
		Color:        "#0000ff",
		CustomFields: []FieldSchema{{Name: "card", Type: FieldSelect}},
	})
	if !errors.Is(err, domain.ErrValidation) {
		t.Errorf("error = %v, want ErrValidation", err)
	}
}

func TestService_SaveCategory_KeepsIDsOnRename(t *testing.T) {
	database, repo := setupTestDB(t)
	defer database.Close()

	svc := NewService(repo, nil)
	ctx := context.Background()

	_, err := svc.SaveCategory(ctx, CategorySetup{
		Name:  "Sport",
		Color: "#ff0000",
		Events: []EventInput{
			{Name: "Run", Color: "#00ff00"},
			{Name: "Jump", Color: "#0000ff"},
		},
	})
	if err != nil {
		t.Fatalf("SaveCategory() error = %v", err)
	}

	saved, err := svc.SaveCategory(ctx, CategorySetup{
		ID:    "sport",
		Name:  "Athletics",
		Color: "#ff0000",
		Events: []EventInput{
			{ID: "run", Name: "Sprint", Color: "#00ff00"},
		},
	})
	if err != nil {
		t.Fatalf("SaveCategory() rename error = %v", err)
	}
	if saved.ID != "sport" {
		t.Errorf("renamed category id = %s, want sport", saved.ID)
	}

	got, err := svc.Category(ctx, "sport")
	if err != nil {
		t.Fatalf("Category() error = %v", err)
	}
	if got.Name != "Athletics" || len(got.Events) != 1 || got.Events[0].ID != "run" || got.Events[0].Name != "Sprint" {
		t.Errorf("category after rename = %+v", got)
	}
}

func TestService_SaveCategory_DuplicateEvents(t *testing.T) {
	database, repo := setupTestDB(t)
	defer database.Close()

	svc := NewService(repo, nil)

	_, err := svc.SaveCategory(context.Background(), CategorySetup{
		Name:  "Sport",
		Color: "#ff0000",
		Events: []EventInput{
			{Name: "Run", Color: "#00ff00"},
			{Name: "run", Color: "#00ff00"},
		},
	})
	if !errors.Is(err, domain.ErrValidation) {
		t.Errorf("error = %v, want ErrValidation", err)
	}
}

func TestService_DeleteCategory(t *testing.T) {
	database, repo := setupTestDB(t)
	defer database.Close()

	svc := NewService(repo, nil)
	purger := &fakePurger{}
	svc.SetPurger(purger)
	ctx := context.Background()

	svc.SaveCategory(ctx, CategorySetup{Name: "Sport", Color: "#ff0000", Events: []EventInput{{Name: "Run", Color: "#00ff00"}}})

	if err := svc.DeleteCategory(ctx, "sport"); err != nil {
		t.Fatalf("DeleteCategory() error = %v", err)
	}
	if svc.FindCategory("sport") != nil {
		t.Error("category still indexed after delete")
	}
	if len(purger.deleted) != 1 || purger.deleted[0] != "sport" {
		t.Errorf("purger calls = %v, want [sport]", purger.deleted)
	}
}

func TestRepository_Config(t *testing.T) {
	database, repo := setupTestDB(t)
	defer database.Close()
	ctx := context.Background()

	v, err := repo.GetConfig(ctx, "auth_token")
	if err != nil || v != "" {
		t.Fatalf("GetConfig() = %q, %v; want empty", v, err)
	}
	if err := repo.SetConfig(ctx, "auth_token", "a"); err != nil {
		t.Fatalf("SetConfig() error = %v", err)
	}
	if err := repo.SetConfig(ctx, "auth_token", "b"); err != nil {
		t.Fatalf("SetConfig() overwrite error = %v", err)
	}
	v, _ = repo.GetConfig(ctx, "auth_token")
	if v != "b" {
		t.Errorf("GetConfig() = %q, want b", v)
	}
}
