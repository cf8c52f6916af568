package api

import (
	"github.com/heimdex/heimdex-annotator/internal/annotation"
	"github.com/heimdex/heimdex-annotator/internal/catalog"
	"github.com/heimdex/heimdex-annotator/internal/domain"
)

type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version"`
	UptimeS int64  `json:"uptime_s"`
}

type CategoriesResponse struct {
	Categories []catalog.Category `json:"categories"`
}

type FieldsResponse struct {
	CategoryID string                `json:"categoryId"`
	EventID    string                `json:"eventId"`
	Fields     []catalog.FieldSchema `json:"fields"`
}

type SearchResponse struct {
	Results []catalog.EventMatch `json:"results"`
}

type OpenResponse struct {
	Records  []annotation.Record          `json:"records"`
	Active   map[string]annotation.Record `json:"active"`
	Warnings []annotation.Warning         `json:"warnings"`
}

type AnnotationsResponse struct {
	Items []annotation.ListItem `json:"items"`
}

// MutationResponse carries the changed record. SaveError is set when the
// change was applied in memory but could not be stored.
type MutationResponse struct {
	Record    annotation.Record `json:"record"`
	SaveError string            `json:"save_error,omitempty"`
}

type ActiveResponse struct {
	Active map[string]annotation.Record `json:"active"`
}

type MarkersResponse struct {
	Markers []annotation.Marker `json:"markers"`
}

type IntervalsResponse struct {
	Intervals []annotation.Interval `json:"intervals"`
}

type CheckResponse struct {
	Warnings []annotation.Warning `json:"warnings"`
}

type SaveResponse struct {
	Status    string `json:"status"`
	Records   int    `json:"records"`
	SaveError string `json:"save_error,omitempty"`
}

type ErrorResponse struct {
	Error  string              `json:"error"`
	Code   string              `json:"code,omitempty"`
	Fields []domain.FieldError `json:"fields,omitempty"`
}

func emptyIfNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
