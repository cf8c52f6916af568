package catalog

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
)

type Repository interface {
	ListCategories(ctx context.Context) ([]Category, error)
	GetCategory(ctx context.Context, id string) (*Category, error)
	CreateCategory(ctx context.Context, c *Category) error
	ReplaceCategory(ctx context.Context, c *Category) error
	DeleteCategory(ctx context.Context, id string) error
	AddEvent(ctx context.Context, categoryID string, ev *EventDefinition) error

	GetConfig(ctx context.Context, key string) (string, error)
	SetConfig(ctx context.Context, key, value string) error
}

type SQLiteRepository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

var categoryColumns = []string{"id", "name", "color", "description", "created_at"}

func (r *SQLiteRepository) ListCategories(ctx context.Context) ([]Category, error) {
	query, args, err := sq.Select(categoryColumns...).
		From("categories").
		OrderBy("position", "created_at").
		ToSql()
	if err != nil {
		return nil, err
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var categories []Category
	for rows.Next() {
		var c Category
		var createdAt string
		if err := rows.Scan(&c.ID, &c.Name, &c.Color, &c.Description, &createdAt); err != nil {
			return nil, err
		}
		c.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
		categories = append(categories, c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	events, err := r.listEvents(ctx, "")
	if err != nil {
		return nil, err
	}
	for i := range categories {
		categories[i].Events = events[categories[i].ID]
		if categories[i].Events == nil {
			categories[i].Events = []EventDefinition{}
		}
	}
	return categories, nil
}

func (r *SQLiteRepository) GetCategory(ctx context.Context, id string) (*Category, error) {
	query, args, err := sq.Select(categoryColumns...).
		From("categories").
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return nil, err
	}

	var c Category
	var createdAt string
	err = r.db.QueryRowContext(ctx, query, args...).Scan(&c.ID, &c.Name, &c.Color, &c.Description, &createdAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	c.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)

	events, err := r.listEvents(ctx, id)
	if err != nil {
		return nil, err
	}
	c.Events = events[id]
	if c.Events == nil {
		c.Events = []EventDefinition{}
	}
	return &c, nil
}

// listEvents returns events grouped by category id, in position order.
// An empty categoryID lists every category.
func (r *SQLiteRepository) listEvents(ctx context.Context, categoryID string) (map[string][]EventDefinition, error) {
	b := sq.Select("category_id", "id", "name", "color", "description", "custom_fields").
		From("events").
		OrderBy("category_id", "position")
	if categoryID != "" {
		b = b.Where(sq.Eq{"category_id": categoryID})
	}
	query, args, err := b.ToSql()
	if err != nil {
		return nil, err
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[string][]EventDefinition)
	for rows.Next() {
		var catID, fields string
		var ev EventDefinition
		if err := rows.Scan(&catID, &ev.ID, &ev.Name, &ev.Color, &ev.Description, &fields); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(fields), &ev.CustomFields); err != nil {
			return nil, fmt.Errorf("decode custom fields of %s/%s: %w", catID, ev.ID, err)
		}
		if ev.CustomFields == nil {
			ev.CustomFields = []FieldSchema{}
		}
		out[catID] = append(out[catID], ev)
	}
	return out, rows.Err()
}

func (r *SQLiteRepository) CreateCategory(ctx context.Context, c *Category) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var position int
	if err := tx.QueryRowContext(ctx, "SELECT COALESCE(MAX(position), -1) + 1 FROM categories").Scan(&position); err != nil {
		return err
	}

	query, args, err := sq.Insert("categories").
		Columns("id", "name", "color", "description", "position", "created_at").
		Values(c.ID, c.Name, c.Color, c.Description, position, c.CreatedAt.Format(time.RFC3339)).
		ToSql()
	if err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		return err
	}

	if err := insertEvents(ctx, tx, c.ID, c.Events, 0); err != nil {
		return err
	}
	return tx.Commit()
}

// ReplaceCategory upserts the category row and replaces its event list.
func (r *SQLiteRepository) ReplaceCategory(ctx context.Context, c *Category) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var position int
	if err := tx.QueryRowContext(ctx, "SELECT COALESCE(MAX(position), -1) + 1 FROM categories").Scan(&position); err != nil {
		return err
	}

	query, args, err := sq.Insert("categories").
		Columns("id", "name", "color", "description", "position", "created_at").
		Values(c.ID, c.Name, c.Color, c.Description, position, c.CreatedAt.Format(time.RFC3339)).
		Suffix("ON CONFLICT(id) DO UPDATE SET name = excluded.name, color = excluded.color, description = excluded.description").
		ToSql()
	if err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		return err
	}

	query, args, err = sq.Delete("events").Where(sq.Eq{"category_id": c.ID}).ToSql()
	if err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		return err
	}

	if err := insertEvents(ctx, tx, c.ID, c.Events, 0); err != nil {
		return err
	}
	return tx.Commit()
}

func (r *SQLiteRepository) DeleteCategory(ctx context.Context, id string) error {
	query, args, err := sq.Delete("categories").Where(sq.Eq{"id": id}).ToSql()
	if err != nil {
		return err
	}
	_, err = r.db.ExecContext(ctx, query, args...)
	return err
}

func (r *SQLiteRepository) AddEvent(ctx context.Context, categoryID string, ev *EventDefinition) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var position int
	err = tx.QueryRowContext(ctx,
		"SELECT COALESCE(MAX(position), -1) + 1 FROM events WHERE category_id = ?", categoryID,
	).Scan(&position)
	if err != nil {
		return err
	}

	if err := insertEvents(ctx, tx, categoryID, []EventDefinition{*ev}, position); err != nil {
		return err
	}
	return tx.Commit()
}

func insertEvents(ctx context.Context, tx *sql.Tx, categoryID string, events []EventDefinition, startPos int) error {
	if len(events) == 0 {
		return nil
	}

	b := sq.Insert("events").
		Columns("category_id", "id", "name", "color", "description", "custom_fields", "position")
	for i, ev := range events {
		fields := ev.CustomFields
		if fields == nil {
			fields = []FieldSchema{}
		}
		encoded, err := json.Marshal(fields)
		if err != nil {
			return err
		}
		b = b.Values(categoryID, ev.ID, ev.Name, ev.Color, ev.Description, string(encoded), startPos+i)
	}

	query, args, err := b.ToSql()
	if err != nil {
		return err
	}
	_, err = tx.ExecContext(ctx, query, args...)
	return err
}

func (r *SQLiteRepository) GetConfig(ctx context.Context, key string) (string, error) {
	var value string
	err := r.db.QueryRowContext(ctx, "SELECT value FROM settings WHERE key = ?", key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", nil
	}
	return value, err
}

func (r *SQLiteRepository) SetConfig(ctx context.Context, key, value string) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO settings (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value
	`, key, value)
	return err
}
