package annotation

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"

	"github.com/heimdex/heimdex-annotator/internal/catalog"
	"github.com/heimdex/heimdex-annotator/internal/domain"
	"github.com/heimdex/heimdex-annotator/internal/logging"
)

// PointInput carries one toggle or instant action from the player.
type PointInput struct {
	EventID string         `json:"eventId"`
	Time    float64        `json:"time"`
	Fields  map[string]any `json:"fields"`
}

// EditInput changes the time and/or fields of a record. Nil members keep
// the current value.
type EditInput struct {
	Time   *float64       `json:"time"`
	Fields map[string]any `json:"fields"`
}

// Service keeps one Session per opened video.
type Service struct {
	store  Store
	lookup Lookup
	logger *slog.Logger

	mu       sync.Mutex
	sessions map[VideoKey]*Session
}

func NewService(store Store, lookup Lookup, logger *slog.Logger) *Service {
	return &Service{
		store:    store,
		lookup:   lookup,
		logger:   logger,
		sessions: make(map[VideoKey]*Session),
	}
}

// Open loads the stored annotation set for key into a fresh engine,
// replacing any state already held for that video.
func (s *Service) Open(ctx context.Context, key VideoKey) (*Session, []Warning, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.openLocked(ctx, key)
}

// Session returns the open session for key, opening it on first use.
func (s *Service) Session(ctx context.Context, key VideoKey) (*Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if sess, ok := s.sessions[key]; ok {
		return sess, nil
	}
	sess, _, err := s.openLocked(ctx, key)
	return sess, err
}

func (s *Service) openLocked(ctx context.Context, key VideoKey) (*Session, []Warning, error) {
	if err := validateKey(key); err != nil {
		return nil, nil, err
	}

	engine := NewEngine()
	snap, found, err := s.store.Load(ctx, key)
	if err != nil {
		return nil, nil, fmt.Errorf("load annotations %s: %w", key, err)
	}
	var warnings []Warning
	if found {
		warnings = engine.Load(snap)
	}

	sess, ok := s.sessions[key]
	if ok {
		sess.mu.Lock()
		sess.engine = engine
		sess.mu.Unlock()
	} else {
		sess = &Session{
			key:    key,
			store:  s.store,
			lookup: s.lookup,
			logger: s.sessionLogger(key),
			engine: engine,
		}
		s.sessions[key] = sess
	}

	sess.logWarnings(warnings)
	if sess.logger != nil {
		sess.logger.Info("annotations opened", "records", engine.Len(), "active", len(engine.active), "stored", found)
	}
	return sess, warnings, nil
}

// DeleteCategory drops open sessions and stored sets of a category.
func (s *Service) DeleteCategory(ctx context.Context, categoryID string) error {
	s.mu.Lock()
	for key := range s.sessions {
		if key.CategoryID == categoryID {
			delete(s.sessions, key)
		}
	}
	s.mu.Unlock()

	return s.store.DeleteCategory(ctx, categoryID)
}

func (s *Service) List(ctx context.Context, categoryID string) ([]SetInfo, error) {
	return s.store.List(ctx, categoryID)
}

func (s *Service) sessionLogger(key VideoKey) *slog.Logger {
	if s.logger == nil {
		return nil
	}
	return logging.WithVideo(s.logger, key.CategoryID, key.Video)
}

func validateKey(key VideoKey) error {
	var errs []domain.FieldError
	if key.CategoryID == "" {
		errs = append(errs, domain.FieldError{Field: "categoryId", Message: "is required"})
	}
	if key.Video == "" {
		errs = append(errs, domain.FieldError{Field: "video", Message: "is required"})
	}
	if len(errs) > 0 {
		return domain.NewValidationErrors(errs)
	}
	return nil
}

// Session binds an Engine to one video. Calls are serialized; every
// mutation is saved before the call returns. A failed save is reported as a
// *domain.PersistError and the in-memory change is kept.
type Session struct {
	key    VideoKey
	store  Store
	lookup Lookup
	logger *slog.Logger

	mu     sync.Mutex
	engine *Engine
}

func (s *Session) Key() VideoKey {
	return s.key
}

func (s *Session) Toggle(ctx context.Context, in PointInput) (Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var fields map[string]any
	if _, open := s.engine.active[in.EventID]; !open {
		var err error
		fields, err = s.collectFields(in.EventID, in.Fields)
		if err != nil {
			return Record{}, err
		}
	}

	rec, err := s.engine.Toggle(in.EventID, s.key.CategoryID, in.Time, fields)
	if err != nil {
		return Record{}, err
	}
	if s.logger != nil {
		s.logger.Info("annotation toggled", "record_id", rec.ID, "event_id", rec.EventID, "type", rec.Type, "time", rec.Time)
	}
	return rec, s.persist(ctx)
}

func (s *Session) RecordInstant(ctx context.Context, in PointInput) (Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	fields, err := s.collectFields(in.EventID, in.Fields)
	if err != nil {
		return Record{}, err
	}
	rec, err := s.engine.RecordInstant(in.EventID, s.key.CategoryID, in.Time, fields)
	if err != nil {
		return Record{}, err
	}
	if s.logger != nil {
		s.logger.Info("instant annotation recorded", "record_id", rec.ID, "event_id", rec.EventID, "time", rec.Time)
	}
	return rec, s.persist(ctx)
}

// Edit updates a record. An unknown id is a no-op and returns found=false.
func (s *Session) Edit(ctx context.Context, id string, in EditInput) (Record, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.engine.Record(id)
	if !ok {
		if s.logger != nil {
			s.logger.Debug("edit of unknown annotation ignored", "record_id", id)
		}
		return Record{}, false, nil
	}

	t := current.Time
	if in.Time != nil {
		t = *in.Time
	}
	fields := current.Fields
	if in.Fields != nil {
		fields = in.Fields
		// events removed from the catalog keep their stored fields unchecked
		if ev := s.lookup.FindEvent(current.CategoryID, current.EventID); ev != nil {
			coerced, err := catalog.CoerceFields(ev.CustomFields, in.Fields)
			if err != nil {
				return Record{}, true, err
			}
			fields = coerced
		}
	}

	if err := s.engine.Edit(id, t, fields); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return Record{}, false, nil
		}
		return Record{}, true, err
	}
	updated, _ := s.engine.Record(id)
	if s.logger != nil {
		s.logger.Info("annotation edited", "record_id", id, "event_id", updated.EventID, "time", updated.Time)
	}
	return updated, true, s.persist(ctx)
}

// Delete removes a record. An unknown id is a no-op and returns false.
func (s *Session) Delete(ctx context.Context, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.engine.Delete(id); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			if s.logger != nil {
				s.logger.Debug("delete of unknown annotation ignored", "record_id", id)
			}
			return false, nil
		}
		return false, err
	}
	if s.logger != nil {
		s.logger.Info("annotation deleted", "record_id", id)
	}
	return true, s.persist(ctx)
}

// Import appends converted records and saves the set.
func (s *Session) Import(ctx context.Context, records []Record) ([]Warning, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range records {
		records[i].CategoryID = s.key.CategoryID
	}
	warnings := s.engine.Import(records)
	s.logWarnings(warnings)
	if s.logger != nil {
		s.logger.Info("annotations imported", "records", len(records))
	}
	return warnings, s.persist(ctx)
}

// Save writes the current state again. It is the retry path after a failed
// automatic save.
func (s *Session) Save(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.persist(ctx)
}

// Check rebuilds the active index and returns the inconsistencies found.
func (s *Session) Check() []Warning {
	s.mu.Lock()
	defer s.mu.Unlock()
	warnings := s.engine.RebuildActive()
	s.logWarnings(warnings)
	return warnings
}

func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.engine.Snapshot()
}

func (s *Session) Active() map[string]Record {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.engine.Active()
}

// Intervals returns the complete intervals ordered by start time.
func (s *Session) Intervals() []Interval {
	s.mu.Lock()
	seq := s.engine.CompleteIntervals()
	s.mu.Unlock()

	intervals := slices.Collect(seq)
	slices.SortStableFunc(intervals, func(a, b Interval) int {
		return cmp.Compare(a.StartTime, b.StartTime)
	})
	return intervals
}

func (s *Session) Markers(duration float64) []Marker {
	return BuildMarkers(s.Snapshot(), s.lookup, duration)
}

func (s *Session) List(filterEventID string) []ListItem {
	s.mu.Lock()
	records := s.engine.Records()
	s.mu.Unlock()
	return BuildList(records, filterEventID)
}

// collectFields validates raw field values against the event schema.
func (s *Session) collectFields(eventID string, raw map[string]any) (map[string]any, error) {
	if eventID == "" {
		return nil, domain.NewValidationError("eventId", "no event selected")
	}
	if s.lookup.FindCategory(s.key.CategoryID) == nil {
		return nil, domain.NewNotFound("category", s.key.CategoryID)
	}
	ev := s.lookup.FindEvent(s.key.CategoryID, eventID)
	if ev == nil {
		return nil, domain.NewNotFound("event", eventID)
	}
	return catalog.CoerceFields(ev.CustomFields, raw)
}

func (s *Session) persist(ctx context.Context) error {
	if err := s.store.Save(ctx, s.key, s.engine.Snapshot()); err != nil {
		if s.logger != nil {
			s.logger.Error("failed to save annotations", "error", err)
		}
		return &domain.PersistError{Err: err}
	}
	return nil
}

func (s *Session) logWarnings(warnings []Warning) {
	if s.logger == nil {
		return
	}
	for _, w := range warnings {
		s.logger.Warn("annotation data inconsistency",
			"kind", w.Kind,
			"record_id", w.RecordID,
			"event_id", w.EventID,
			"detail", w.Message,
		)
	}
}
