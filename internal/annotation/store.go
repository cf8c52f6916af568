package annotation

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
)

// VideoKey identifies one annotation set: a video within a category.
type VideoKey struct {
	CategoryID string `json:"categoryId"`
	Video      string `json:"video"`
}

func (k VideoKey) String() string {
	return k.CategoryID + "/" + k.Video
}

type SetInfo struct {
	Key       VideoKey  `json:"key"`
	UpdatedAt time.Time `json:"updatedAt"`
}

type Store interface {
	Load(ctx context.Context, key VideoKey) (Snapshot, bool, error)
	Save(ctx context.Context, key VideoKey, snap Snapshot) error
	List(ctx context.Context, categoryID string) ([]SetInfo, error)
	DeleteCategory(ctx context.Context, categoryID string) error
}

// SQLiteStore keeps each annotation set as a JSON document.
type SQLiteStore struct {
	db *sql.DB
}

func NewStore(db *sql.DB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

func (s *SQLiteStore) Load(ctx context.Context, key VideoKey) (Snapshot, bool, error) {
	query, args, err := sq.Select("payload").
		From("annotation_sets").
		Where(sq.Eq{"category_id": key.CategoryID, "video": key.Video}).
		ToSql()
	if err != nil {
		return Snapshot{}, false, err
	}

	var payload string
	err = s.db.QueryRowContext(ctx, query, args...).Scan(&payload)
	if err == sql.ErrNoRows {
		return Snapshot{}, false, nil
	}
	if err != nil {
		return Snapshot{}, false, err
	}

	var snap Snapshot
	if err := json.Unmarshal([]byte(payload), &snap); err != nil {
		return Snapshot{}, false, fmt.Errorf("decode annotation set %s: %w", key, err)
	}
	return snap, true, nil
}

func (s *SQLiteStore) Save(ctx context.Context, key VideoKey, snap Snapshot) error {
	if snap.Records == nil {
		snap.Records = []Record{}
	}
	payload, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("encode annotation set %s: %w", key, err)
	}

	query, args, err := sq.Insert("annotation_sets").
		Columns("category_id", "video", "payload", "updated_at").
		Values(key.CategoryID, key.Video, string(payload), time.Now().UTC().Format(time.RFC3339)).
		Suffix("ON CONFLICT(category_id, video) DO UPDATE SET payload = excluded.payload, updated_at = excluded.updated_at").
		ToSql()
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, query, args...)
	return err
}

func (s *SQLiteStore) List(ctx context.Context, categoryID string) ([]SetInfo, error) {
	b := sq.Select("category_id", "video", "updated_at").
		From("annotation_sets").
		OrderBy("category_id", "video")
	if categoryID != "" {
		b = b.Where(sq.Eq{"category_id": categoryID})
	}
	query, args, err := b.ToSql()
	if err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sets []SetInfo
	for rows.Next() {
		var info SetInfo
		var updatedAt string
		if err := rows.Scan(&info.Key.CategoryID, &info.Key.Video, &updatedAt); err != nil {
			return nil, err
		}
		info.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt)
		sets = append(sets, info)
	}
	return sets, rows.Err()
}

func (s *SQLiteStore) DeleteCategory(ctx context.Context, categoryID string) error {
	query, args, err := sq.Delete("annotation_sets").Where(sq.Eq{"category_id": categoryID}).ToSql()
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, query, args...)
	return err
}
