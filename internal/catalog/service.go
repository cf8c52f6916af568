package catalog

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/heimdex/heimdex-annotator/internal/domain"
)

type CatalogService interface {
	Categories(ctx context.Context) ([]Category, error)
	Category(ctx context.Context, id string) (*Category, error)
	CreateCategory(ctx context.Context, in CategoryInput) (*Category, error)
	AddEvent(ctx context.Context, categoryID string, in EventInput) (*EventDefinition, error)
	SaveCategory(ctx context.Context, setup CategorySetup) (*Category, error)
	DeleteCategory(ctx context.Context, id string) error

	FindCategory(id string) *Category
	FindEvent(categoryID, eventID string) *EventDefinition
	SearchEvents(query string, limit int) []EventMatch
}

type CategoryInput struct {
	Name        string `json:"name"`
	Color       string `json:"color"`
	Description string `json:"description,omitempty"`
}

type EventInput struct {
	ID           string        `json:"id,omitempty"`
	Name         string        `json:"name"`
	Color        string        `json:"color"`
	Description  string        `json:"description,omitempty"`
	CustomFields []FieldSchema `json:"customFields,omitempty"`
}

// CategorySetup is a full category definition as edited in one form.
// Ids are kept when present so renames do not change them.
type CategorySetup struct {
	ID          string       `json:"id,omitempty"`
	Name        string       `json:"name"`
	Color       string       `json:"color"`
	Description string       `json:"description,omitempty"`
	Events      []EventInput `json:"events"`
}

// Purger removes data owned by a category outside the catalog.
type Purger interface {
	DeleteCategory(ctx context.Context, categoryID string) error
}

type Service struct {
	repo   Repository
	logger *slog.Logger
	purger Purger

	mu    sync.RWMutex
	index *Catalog
}

func NewService(repo Repository, logger *slog.Logger) *Service {
	return &Service{repo: repo, logger: logger, index: NewCatalog(nil)}
}

// SetPurger registers the store whose per-category data is removed with the category.
func (s *Service) SetPurger(p Purger) {
	s.purger = p
}

// Load seeds the default category into an empty catalog and builds the index.
func (s *Service) Load(ctx context.Context) error {
	categories, err := s.repo.ListCategories(ctx)
	if err != nil {
		return fmt.Errorf("list categories: %w", err)
	}
	if len(categories) == 0 {
		def := DefaultCategory()
		def.CreatedAt = time.Now()
		if err := s.repo.CreateCategory(ctx, &def); err != nil {
			return fmt.Errorf("seed default category: %w", err)
		}
		if s.logger != nil {
			s.logger.Info("seeded default category", "category_id", def.ID)
		}
	}
	return s.refresh(ctx)
}

func (s *Service) refresh(ctx context.Context) error {
	categories, err := s.repo.ListCategories(ctx)
	if err != nil {
		return fmt.Errorf("list categories: %w", err)
	}
	idx := NewCatalog(categories)

	s.mu.Lock()
	s.index = idx
	s.mu.Unlock()
	return nil
}

func (s *Service) snapshot() *Catalog {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.index
}

func (s *Service) Categories(ctx context.Context) ([]Category, error) {
	return s.snapshot().Categories(), nil
}

func (s *Service) Category(ctx context.Context, id string) (*Category, error) {
	c := s.snapshot().FindCategory(id)
	if c == nil {
		return nil, domain.NewNotFound("category", id)
	}
	cp := *c
	return &cp, nil
}

func (s *Service) FindCategory(id string) *Category {
	return s.snapshot().FindCategory(id)
}

func (s *Service) FindEvent(categoryID, eventID string) *EventDefinition {
	return s.snapshot().FindEvent(categoryID, eventID)
}

func (s *Service) SearchEvents(query string, limit int) []EventMatch {
	return s.snapshot().SearchEvents(query, limit)
}

func (s *Service) CreateCategory(ctx context.Context, in CategoryInput) (*Category, error) {
	c := &Category{
		ID:          Slug(in.Name),
		Name:        strings.TrimSpace(in.Name),
		Color:       in.Color,
		Description: in.Description,
		Events:      []EventDefinition{},
		CreatedAt:   time.Now(),
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}

	existing, err := s.repo.GetCategory(ctx, c.ID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, fmt.Errorf("category %q: %w", c.ID, domain.ErrAlreadyExists)
	}

	if err := s.repo.CreateCategory(ctx, c); err != nil {
		return nil, err
	}
	if err := s.refresh(ctx); err != nil {
		return nil, err
	}

	if s.logger != nil {
		s.logger.Info("category created", "category_id", c.ID)
	}
	return c, nil
}

func (s *Service) AddEvent(ctx context.Context, categoryID string, in EventInput) (*EventDefinition, error) {
	cat, err := s.repo.GetCategory(ctx, categoryID)
	if err != nil {
		return nil, err
	}
	if cat == nil {
		return nil, domain.NewNotFound("category", categoryID)
	}

	ev := eventFromInput(in)
	if cat.Event(ev.ID) != nil {
		return nil, fmt.Errorf("event %q in category %q: %w", ev.ID, categoryID, domain.ErrAlreadyExists)
	}
	if errs := validateEvent("", ev); len(errs) > 0 {
		return nil, domain.NewValidationErrors(errs)
	}

	if err := s.repo.AddEvent(ctx, categoryID, &ev); err != nil {
		return nil, err
	}
	if err := s.refresh(ctx); err != nil {
		return nil, err
	}

	if s.logger != nil {
		s.logger.Info("event added", "category_id", categoryID, "event_id", ev.ID)
	}
	return &ev, nil
}

// SaveCategory creates or replaces a category with its full event list.
func (s *Service) SaveCategory(ctx context.Context, setup CategorySetup) (*Category, error) {
	id := setup.ID
	if id == "" {
		id = Slug(setup.Name)
	}

	c := &Category{
		ID:          id,
		Name:        strings.TrimSpace(setup.Name),
		Color:       setup.Color,
		Description: setup.Description,
		Events:      make([]EventDefinition, 0, len(setup.Events)),
		CreatedAt:   time.Now(),
	}
	for _, in := range setup.Events {
		c.Events = append(c.Events, eventFromInput(in))
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}

	if existing, err := s.repo.GetCategory(ctx, id); err != nil {
		return nil, err
	} else if existing != nil {
		c.CreatedAt = existing.CreatedAt
	}

	if err := s.repo.ReplaceCategory(ctx, c); err != nil {
		return nil, err
	}
	if err := s.refresh(ctx); err != nil {
		return nil, err
	}

	if s.logger != nil {
		s.logger.Info("category saved", "category_id", c.ID, "events", len(c.Events))
	}
	return c, nil
}

// DeleteCategory removes the category, its events, and (through the purger)
// every annotation set recorded under it.
func (s *Service) DeleteCategory(ctx context.Context, id string) error {
	if err := s.repo.DeleteCategory(ctx, id); err != nil {
		return err
	}
	if s.purger != nil {
		if err := s.purger.DeleteCategory(ctx, id); err != nil {
			return fmt.Errorf("purge annotations of %q: %w", id, err)
		}
	}
	if err := s.refresh(ctx); err != nil {
		return err
	}

	if s.logger != nil {
		s.logger.Info("category deleted", "category_id", id)
	}
	return nil
}

func eventFromInput(in EventInput) EventDefinition {
	id := in.ID
	if id == "" {
		id = Slug(in.Name)
	}
	fields := in.CustomFields
	if fields == nil {
		fields = []FieldSchema{}
	}
	return EventDefinition{
		ID:           id,
		Name:         strings.TrimSpace(in.Name),
		Color:        in.Color,
		Description:  in.Description,
		CustomFields: fields,
	}
}
