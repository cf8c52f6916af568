package annotation

import (
	"fmt"
	"maps"
)

type RecordType string

const (
	TypeInstant RecordType = "instant"
	TypeStart   RecordType = "start"
	TypeEnd     RecordType = "end"
)

func (t RecordType) Valid() bool {
	switch t {
	case TypeInstant, TypeStart, TypeEnd:
		return true
	}
	return false
}

// Record is one annotation on a video timeline. End records reference the
// start they close through StartAnnotationID and carry a copy of its fields.
type Record struct {
	ID                string         `json:"id"`
	Time              float64        `json:"time"`
	CategoryID        string         `json:"categoryId"`
	EventID           string         `json:"eventId"`
	Fields            map[string]any `json:"fields"`
	Type              RecordType     `json:"type"`
	StartAnnotationID string         `json:"startAnnotationId,omitempty"`
}

func (r Record) clone() Record {
	r.Fields = cloneFields(r.Fields)
	return r
}

func cloneFields(f map[string]any) map[string]any {
	if f == nil {
		return map[string]any{}
	}
	return maps.Clone(f)
}

// Interval is a start record joined with the end record that closes it.
type Interval struct {
	CategoryID string         `json:"categoryId"`
	EventID    string         `json:"eventId"`
	Fields     map[string]any `json:"fields"`
	StartTime  float64        `json:"startTime"`
	EndTime    float64        `json:"endTime"`
	Duration   float64        `json:"duration"`
	StartID    string         `json:"startId"`
	EndID      string         `json:"endId"`
}

// Snapshot is the persisted form of an annotation set. Active is a hint
// keyed by event id; Records is authoritative.
type Snapshot struct {
	Records []Record          `json:"records"`
	Active  map[string]Record `json:"active,omitempty"`
}

type WarningKind string

const (
	WarnOrphanEnd      WarningKind = "orphan_end"
	WarnDuplicateEnd   WarningKind = "duplicate_end"
	WarnDuplicateStart WarningKind = "duplicate_start"
	WarnStaleActive    WarningKind = "stale_active"
	WarnRepaired       WarningKind = "repaired_record"
)

// Warning reports an inconsistency in a record set. Warnings never abort an
// operation.
type Warning struct {
	Kind     WarningKind `json:"kind"`
	RecordID string      `json:"recordId,omitempty"`
	EventID  string      `json:"eventId,omitempty"`
	Message  string      `json:"message"`
}

func (w Warning) String() string {
	return fmt.Sprintf("%s: %s", w.Kind, w.Message)
}
