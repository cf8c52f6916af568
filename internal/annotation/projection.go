package annotation

import (
	"cmp"
	"fmt"
	"math"
	"slices"

	"github.com/heimdex/heimdex-annotator/internal/catalog"
)

// Lookup resolves catalog entries for rendering and field validation.
type Lookup interface {
	FindCategory(id string) *catalog.Category
	FindEvent(categoryID, eventID string) *catalog.EventDefinition
}

type MarkerKind string

const (
	MarkerInstant MarkerKind = "instant"
	MarkerStart   MarkerKind = "start"
	MarkerEnd     MarkerKind = "end"
	MarkerActive  MarkerKind = "active"
)

type Marker struct {
	RecordID string     `json:"recordId"`
	Position float64    `json:"position"`
	Time     float64    `json:"time"`
	Color    string     `json:"color"`
	Label    string     `json:"label"`
	Kind     MarkerKind `json:"kind"`
}

// BuildMarkers places timeline markers for a snapshot on a video of the
// given duration in seconds. Records whose category or event is no longer
// in the catalog are skipped, as are orphan ends and superseded starts.
func BuildMarkers(snap Snapshot, lookup Lookup, duration float64) []Marker {
	if duration <= 0 || math.IsNaN(duration) || math.IsInf(duration, 0) {
		return []Marker{}
	}

	p := pairRecords(snap.Records)
	markers := make([]Marker, 0, len(snap.Records))

	for _, r := range snap.Records {
		cat := lookup.FindCategory(r.CategoryID)
		ev := lookup.FindEvent(r.CategoryID, r.EventID)
		if cat == nil || ev == nil {
			continue
		}

		var kind MarkerKind
		switch r.Type {
		case TypeInstant:
			kind = MarkerInstant
		case TypeStart:
			if _, closed := p.endFor[r.ID]; closed {
				kind = MarkerStart
			} else if open, ok := snap.Active[r.EventID]; ok && open.ID == r.ID {
				kind = MarkerActive
			}
		case TypeEnd:
			if _, paired := p.startFor[r.ID]; paired {
				kind = MarkerEnd
			}
		}
		if kind == "" {
			continue
		}

		markers = append(markers, Marker{
			RecordID: r.ID,
			Position: min(max(r.Time/duration, 0), 1),
			Time:     r.Time,
			Color:    ev.Color,
			Label:    markerLabel(cat, ev, r, kind),
			Kind:     kind,
		})
	}

	slices.SortStableFunc(markers, func(a, b Marker) int {
		return cmp.Compare(a.Position, b.Position)
	})
	return markers
}

func markerLabel(cat *catalog.Category, ev *catalog.EventDefinition, r Record, kind MarkerKind) string {
	label := fmt.Sprintf("%s - %s: %s", cat.Name, ev.Name, FormatTime(r.Time))
	switch kind {
	case MarkerStart, MarkerEnd:
		label += " (" + string(kind) + ")"
	case MarkerActive:
		label += " (open)"
	}
	return label
}

type ListItem struct {
	Record   Record `json:"record"`
	Label    string `json:"label"`
	PairedID string `json:"pairedId,omitempty"`
}

// FilterAll disables event filtering in BuildList.
const FilterAll = "all"

// BuildList returns the records ordered by time, optionally restricted to
// one event id. Halves of a pair are labelled with both times when the
// other half exists.
func BuildList(records []Record, filterEventID string) []ListItem {
	p := pairRecords(records)
	items := make([]ListItem, 0, len(records))

	for i, r := range records {
		if filterEventID != "" && filterEventID != FilterAll && r.EventID != filterEventID {
			continue
		}

		item := ListItem{Record: r.clone()}
		switch r.Type {
		case TypeStart:
			if j, ok := p.endFor[r.ID]; ok {
				item.PairedID = records[j].ID
				item.Label = fmt.Sprintf("Start: %s (End: %s)", FormatTime(r.Time), FormatTime(records[j].Time))
			} else {
				item.Label = "Start: " + FormatTime(r.Time)
			}
		case TypeEnd:
			if j := p.partner(records, i); j >= 0 {
				item.PairedID = records[j].ID
				item.Label = fmt.Sprintf("End: %s (Start: %s)", FormatTime(r.Time), FormatTime(records[j].Time))
			} else {
				item.Label = "End: " + FormatTime(r.Time)
			}
		default:
			item.Label = FormatTime(r.Time)
		}
		items = append(items, item)
	}

	slices.SortStableFunc(items, func(a, b ListItem) int {
		return cmp.Compare(a.Record.Time, b.Record.Time)
	})
	return items
}

// FormatTime renders seconds as mm:ss. Minutes are not wrapped into hours.
func FormatTime(seconds float64) string {
	if seconds < 0 || math.IsNaN(seconds) || math.IsInf(seconds, 0) {
		seconds = 0
	}
	total := int64(math.Floor(seconds))
	return fmt.Sprintf("%02d:%02d", total/60, total%60)
}
