package annotation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/heimdex/heimdex-annotator/internal/catalog"
)

type fakeLookup struct {
	catalog *catalog.Catalog
}

func (f fakeLookup) FindCategory(id string) *catalog.Category {
	return f.catalog.FindCategory(id)
}

func (f fakeLookup) FindEvent(categoryID, eventID string) *catalog.EventDefinition {
	return f.catalog.FindEvent(categoryID, eventID)
}

func sportLookup() fakeLookup {
	return fakeLookup{catalog: catalog.NewCatalog([]catalog.Category{{
		ID: "sport", Name: "Sport", Color: "#000000",
		Events: []catalog.EventDefinition{
			{ID: "run", Name: "Run", Color: "#ff0000"},
			{ID: "goal", Name: "Goal", Color: "#00ff00", CustomFields: []catalog.FieldSchema{
				{Name: "team", Type: catalog.FieldSelect, Required: true, Options: []string{"Home", "Away"}},
			}},
		},
	}})}
}

func TestBuildMarkers(t *testing.T) {
	e := newTestEngine()
	_, _ = e.RecordInstant("goal", "sport", 10, nil)
	_, _ = e.Toggle("run", "sport", 20, nil)
	_, _ = e.Toggle("run", "sport", 50, nil)
	open, _ := e.Toggle("run", "sport", 80, nil)
	_, _ = e.RecordInstant("gone", "sport", 30, nil)
	_, _ = e.RecordInstant("run", "other", 40, nil)

	markers := BuildMarkers(e.Snapshot(), sportLookup(), 100)
	require.Len(t, markers, 4)

	assert.Equal(t, MarkerInstant, markers[0].Kind)
	assert.InDelta(t, 0.1, markers[0].Position, 1e-9)
	assert.Equal(t, "#00ff00", markers[0].Color)
	assert.Equal(t, "Sport - Goal: 00:10", markers[0].Label)

	assert.Equal(t, MarkerStart, markers[1].Kind)
	assert.Equal(t, MarkerEnd, markers[2].Kind)
	assert.Equal(t, markers[1].Color, markers[2].Color)

	assert.Equal(t, MarkerActive, markers[3].Kind)
	assert.Equal(t, open.ID, markers[3].RecordID)
}

func TestBuildMarkers_ClampsAndRejectsDuration(t *testing.T) {
	e := newTestEngine()
	_, _ = e.RecordInstant("goal", "sport", 150, nil)

	markers := BuildMarkers(e.Snapshot(), sportLookup(), 100)
	require.Len(t, markers, 1)
	assert.Equal(t, 1.0, markers[0].Position)

	assert.Empty(t, BuildMarkers(e.Snapshot(), sportLookup(), 0))
}

func TestBuildMarkers_SkipsOrphanEnd(t *testing.T) {
	e := newTestEngine()
	s, _ := e.Toggle("run", "sport", 20, nil)
	_, _ = e.Toggle("run", "sport", 50, nil)
	_ = e.Delete(s.ID)

	assert.Empty(t, BuildMarkers(e.Snapshot(), sportLookup(), 100))
}

func TestBuildList(t *testing.T) {
	e := newTestEngine()
	s, _ := e.Toggle("run", "sport", 65, nil)
	_, _ = e.RecordInstant("goal", "sport", 5, nil)
	en, _ := e.Toggle("run", "sport", 130, nil)
	_, _ = e.Toggle("run", "sport", 200, nil)

	items := BuildList(e.Records(), "")
	require.Len(t, items, 4)

	assert.Equal(t, "00:05", items[0].Label)
	assert.Equal(t, "Start: 01:05 (End: 02:10)", items[1].Label)
	assert.Equal(t, en.ID, items[1].PairedID)
	assert.Equal(t, "End: 02:10 (Start: 01:05)", items[2].Label)
	assert.Equal(t, s.ID, items[2].PairedID)
	assert.Equal(t, "Start: 03:20", items[3].Label)
	assert.Empty(t, items[3].PairedID)
}

func TestBuildList_Filter(t *testing.T) {
	e := newTestEngine()
	_, _ = e.Toggle("run", "sport", 1, nil)
	_, _ = e.RecordInstant("goal", "sport", 2, nil)

	assert.Len(t, BuildList(e.Records(), FilterAll), 2)

	items := BuildList(e.Records(), "goal")
	require.Len(t, items, 1)
	assert.Equal(t, "goal", items[0].Record.EventID)
}

func TestBuildList_OrphanEndShowsKnownSide(t *testing.T) {
	e := newTestEngine()
	s, _ := e.Toggle("run", "sport", 10, nil)
	_, _ = e.Toggle("run", "sport", 20, nil)
	_ = e.Delete(s.ID)

	items := BuildList(e.Records(), "")
	require.Len(t, items, 1)
	assert.Equal(t, "End: 00:20", items[0].Label)
}

func TestBuildList_DoesNotMutate(t *testing.T) {
	e := newTestEngine()
	_, _ = e.RecordInstant("goal", "sport", 9, map[string]any{"team": "Home"})
	_, _ = e.RecordInstant("goal", "sport", 3, nil)

	records := e.Records()
	items := BuildList(records, "")
	items[0].Record.Fields["x"] = 1

	assert.Equal(t, 9.0, records[0].Time, "input order preserved")
	assert.NotContains(t, records[1].Fields, "x")
}

func TestFormatTime(t *testing.T) {
	tests := []struct {
		in   float64
		want string
	}{
		{0, "00:00"},
		{5.9, "00:05"},
		{65, "01:05"},
		{3599, "59:59"},
		{3725, "62:05"},
		{-3, "00:00"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, FormatTime(tt.in), "FormatTime(%v)", tt.in)
	}
}
