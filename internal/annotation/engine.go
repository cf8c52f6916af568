package annotation

import (
	"fmt"
	"iter"
	"maps"
	"math"
	"slices"

	"github.com/google/uuid"

	"github.com/heimdex/heimdex-annotator/internal/domain"
)

// Engine holds the annotation records of one video and the index of open
// start records per event. Records are kept in insertion order. The active
// index is always derivable from the records.
//
// Engine is not safe for concurrent use; Session serializes access.
type Engine struct {
	records []Record
	active  map[string]string
	newID   func() string
}

func NewEngine() *Engine {
	return &Engine{
		active: make(map[string]string),
		newID:  uuid.NewString,
	}
}

func validatePoint(eventID string, t float64) error {
	if eventID == "" {
		return domain.NewValidationError("eventId", "no event selected")
	}
	return validateTime(t)
}

func validateTime(t float64) error {
	if math.IsNaN(t) || math.IsInf(t, 0) {
		return domain.NewValidationError("time", "must be a finite number")
	}
	if t < 0 {
		return domain.NewValidationError("time", "must not be negative")
	}
	return nil
}

func (e *Engine) indexOf(id string) int {
	return slices.IndexFunc(e.records, func(r Record) bool { return r.ID == id })
}

// Toggle opens an interval for eventID, or closes the open one. A closing
// end record copies the fields of its start.
func (e *Engine) Toggle(eventID, categoryID string, t float64, fields map[string]any) (Record, error) {
	if err := validatePoint(eventID, t); err != nil {
		return Record{}, err
	}

	if startID, ok := e.active[eventID]; ok {
		if i := e.indexOf(startID); i >= 0 {
			start := e.records[i]
			rec := Record{
				ID:                e.newID(),
				Time:              t,
				CategoryID:        categoryID,
				EventID:           eventID,
				Fields:            cloneFields(start.Fields),
				Type:              TypeEnd,
				StartAnnotationID: start.ID,
			}
			e.records = append(e.records, rec)
			delete(e.active, eventID)
			return rec.clone(), nil
		}
		delete(e.active, eventID)
	}

	rec := Record{
		ID:         e.newID(),
		Time:       t,
		CategoryID: categoryID,
		EventID:    eventID,
		Fields:     cloneFields(fields),
		Type:       TypeStart,
	}
	e.records = append(e.records, rec)
	e.active[eventID] = rec.ID
	return rec.clone(), nil
}

func (e *Engine) RecordInstant(eventID, categoryID string, t float64, fields map[string]any) (Record, error) {
	if err := validatePoint(eventID, t); err != nil {
		return Record{}, err
	}
	rec := Record{
		ID:         e.newID(),
		Time:       t,
		CategoryID: categoryID,
		EventID:    eventID,
		Fields:     cloneFields(fields),
		Type:       TypeInstant,
	}
	e.records = append(e.records, rec)
	return rec.clone(), nil
}

// Edit moves the record to time t and replaces its fields. Fields are shared
// by both halves of a pair, so editing either half updates both; only the
// targeted record's time changes.
func (e *Engine) Edit(id string, t float64, fields map[string]any) error {
	i := e.indexOf(id)
	if i < 0 {
		return domain.NewNotFound("annotation", id)
	}
	if err := validateTime(t); err != nil {
		return err
	}

	e.records[i].Time = t
	e.records[i].Fields = cloneFields(fields)

	if e.records[i].Type == TypeInstant {
		return nil
	}
	if j := pairRecords(e.records).partner(e.records, i); j >= 0 {
		e.records[j].Fields = cloneFields(fields)
	}
	return nil
}

// Delete removes one record. The other half of a pair is kept; an end whose
// start is deleted stays as an orphan, and a start whose end is deleted
// becomes active again.
func (e *Engine) Delete(id string) error {
	i := e.indexOf(id)
	if i < 0 {
		return domain.NewNotFound("annotation", id)
	}
	e.records = slices.Delete(e.records, i, i+1)
	e.RebuildActive()
	return nil
}

// CompleteIntervals yields every start joined with its end, in the order
// the starts were recorded. The sequence reads a copy of the records taken
// at call time and can be ranged over more than once.
func (e *Engine) CompleteIntervals() iter.Seq[Interval] {
	return Intervals(slices.Clone(e.records))
}

// RebuildActive recomputes the active index from the records alone.
func (e *Engine) RebuildActive() []Warning {
	p := pairRecords(e.records)
	active, warnings := deriveActive(e.records, p)
	e.active = active
	return append(p.warnings, warnings...)
}

// Load replaces the engine state with a stored snapshot. Records without an
// id or with an unknown type are repaired. The stored active map is only
// compared against the rebuilt one.
func (e *Engine) Load(snap Snapshot) []Warning {
	e.records = nil
	warnings := e.appendRecords(snap.Records)
	warnings = append(warnings, e.RebuildActive()...)

	if snap.Active != nil {
		for _, eventID := range slices.Sorted(maps.Keys(snap.Active)) {
			hint := snap.Active[eventID]
			if e.active[eventID] != hint.ID {
				warnings = append(warnings, Warning{
					Kind:     WarnStaleActive,
					RecordID: hint.ID,
					EventID:  eventID,
					Message:  fmt.Sprintf("stored active start %q for event %q does not match records", hint.ID, eventID),
				})
			}
		}
		for _, eventID := range slices.Sorted(maps.Keys(e.active)) {
			if _, ok := snap.Active[eventID]; !ok {
				warnings = append(warnings, Warning{
					Kind:     WarnStaleActive,
					RecordID: e.active[eventID],
					EventID:  eventID,
					Message:  fmt.Sprintf("open start %q for event %q missing from stored active map", e.active[eventID], eventID),
				})
			}
		}
	}
	return warnings
}

// Import appends records produced outside the engine, such as converted
// legacy files, and rebuilds the active index.
func (e *Engine) Import(records []Record) []Warning {
	warnings := e.appendRecords(records)
	return append(warnings, e.RebuildActive()...)
}

func (e *Engine) appendRecords(records []Record) []Warning {
	var warnings []Warning
	seen := make(map[string]bool, len(e.records)+len(records))
	for _, r := range e.records {
		seen[r.ID] = true
	}

	for _, r := range records {
		r = r.clone()
		if r.ID == "" || seen[r.ID] {
			old := r.ID
			r.ID = e.newID()
			warnings = append(warnings, Warning{
				Kind:     WarnRepaired,
				RecordID: r.ID,
				EventID:  r.EventID,
				Message:  fmt.Sprintf("record id %q missing or duplicated, assigned %q", old, r.ID),
			})
		}
		if !r.Type.Valid() {
			warnings = append(warnings, Warning{
				Kind:     WarnRepaired,
				RecordID: r.ID,
				EventID:  r.EventID,
				Message:  fmt.Sprintf("record type %q treated as instant", r.Type),
			})
			r.Type = TypeInstant
		}
		if r.Type != TypeEnd {
			r.StartAnnotationID = ""
		}
		if r.Time < 0 || math.IsNaN(r.Time) {
			warnings = append(warnings, Warning{
				Kind:     WarnRepaired,
				RecordID: r.ID,
				EventID:  r.EventID,
				Message:  fmt.Sprintf("invalid time %v reset to 0", r.Time),
			})
			r.Time = 0
		}
		seen[r.ID] = true
		e.records = append(e.records, r)
	}
	return warnings
}

func (e *Engine) Len() int {
	return len(e.records)
}

func (e *Engine) Record(id string) (Record, bool) {
	i := e.indexOf(id)
	if i < 0 {
		return Record{}, false
	}
	return e.records[i].clone(), true
}

func (e *Engine) Records() []Record {
	out := make([]Record, len(e.records))
	for i, r := range e.records {
		out[i] = r.clone()
	}
	return out
}

// Active returns the open start record of every event with an open interval.
func (e *Engine) Active() map[string]Record {
	out := make(map[string]Record, len(e.active))
	for eventID, id := range e.active {
		if i := e.indexOf(id); i >= 0 {
			out[eventID] = e.records[i].clone()
		}
	}
	return out
}

func (e *Engine) Snapshot() Snapshot {
	return Snapshot{Records: e.Records(), Active: e.Active()}
}

// Intervals pairs starts and ends of an arbitrary record list. Unmatched
// starts and orphan ends are skipped. When several ends reference one start,
// the first recorded end closes it.
func Intervals(records []Record) iter.Seq[Interval] {
	return func(yield func(Interval) bool) {
		p := pairRecords(records)
		for _, r := range records {
			if r.Type != TypeStart {
				continue
			}
			j, ok := p.endFor[r.ID]
			if !ok {
				continue
			}
			end := records[j]
			iv := Interval{
				CategoryID: r.CategoryID,
				EventID:    r.EventID,
				Fields:     cloneFields(r.Fields),
				StartTime:  r.Time,
				EndTime:    end.Time,
				Duration:   end.Time - r.Time,
				StartID:    r.ID,
				EndID:      end.ID,
			}
			if !yield(iv) {
				return
			}
		}
	}
}

type pairing struct {
	endFor   map[string]int
	startFor map[string]int
	warnings []Warning
}

func pairRecords(records []Record) pairing {
	starts := make(map[string]int)
	for i, r := range records {
		if r.Type == TypeStart {
			starts[r.ID] = i
		}
	}

	p := pairing{
		endFor:   make(map[string]int),
		startFor: make(map[string]int),
	}
	for i, r := range records {
		if r.Type != TypeEnd {
			continue
		}
		si, ok := starts[r.StartAnnotationID]
		if !ok {
			p.warnings = append(p.warnings, Warning{
				Kind:     WarnOrphanEnd,
				RecordID: r.ID,
				EventID:  r.EventID,
				Message:  fmt.Sprintf("end %q references missing start %q", r.ID, r.StartAnnotationID),
			})
			continue
		}
		if _, taken := p.endFor[r.StartAnnotationID]; taken {
			p.warnings = append(p.warnings, Warning{
				Kind:     WarnDuplicateEnd,
				RecordID: r.ID,
				EventID:  r.EventID,
				Message:  fmt.Sprintf("start %q is already closed, end %q ignored", r.StartAnnotationID, r.ID),
			})
			continue
		}
		p.endFor[r.StartAnnotationID] = i
		p.startFor[r.ID] = si
	}
	return p
}

// partner returns the index of the other half of the pair containing
// records[i], or -1.
func (p pairing) partner(records []Record, i int) int {
	r := records[i]
	switch r.Type {
	case TypeStart:
		if j, ok := p.endFor[r.ID]; ok {
			return j
		}
	case TypeEnd:
		if j, ok := p.startFor[r.ID]; ok {
			return j
		}
	}
	return -1
}

// deriveActive maps each event to its unmatched start. With several
// unmatched starts for one event the latest wins and the others are
// reported.
func deriveActive(records []Record, p pairing) (map[string]string, []Warning) {
	active := make(map[string]string)
	var warnings []Warning
	for _, r := range records {
		if r.Type != TypeStart {
			continue
		}
		if _, closed := p.endFor[r.ID]; closed {
			continue
		}
		if prev, ok := active[r.EventID]; ok {
			warnings = append(warnings, Warning{
				Kind:     WarnDuplicateStart,
				RecordID: prev,
				EventID:  r.EventID,
				Message:  fmt.Sprintf("unmatched start %q for event %q superseded by %q", prev, r.EventID, r.ID),
			})
		}
		active[r.EventID] = r.ID
	}
	return active, warnings
}
