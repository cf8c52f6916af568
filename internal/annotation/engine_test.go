package annotation

import (
	"fmt"
	"math"
	"slices"
	"testing"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/heimdex/heimdex-annotator/internal/domain"
)

func newTestEngine() *Engine {
	e := NewEngine()
	n := 0
	e.newID = func() string {
		n++
		return fmt.Sprintf("r%d", n)
	}
	return e
}

func nan() float64 { return math.NaN() }

func collect(e *Engine) []Interval {
	return slices.Collect(e.CompleteIntervals())
}

func TestEngine_RunScenario(t *testing.T) {
	e := newTestEngine()

	start, err := e.Toggle("run", "sport", 10, map[string]any{"note": "x"})
	require.NoError(t, err)
	assert.Equal(t, TypeStart, start.Type)
	require.Contains(t, e.Active(), "run")
	assert.Equal(t, start.ID, e.Active()["run"].ID)

	end, err := e.Toggle("run", "sport", 25, map[string]any{})
	require.NoError(t, err)
	assert.Equal(t, TypeEnd, end.Type)
	assert.Equal(t, start.ID, end.StartAnnotationID)
	assert.Empty(t, e.Active())
	assert.Equal(t, 2, e.Len())

	intervals := collect(e)
	require.Len(t, intervals, 1)
	iv := intervals[0]
	assert.Equal(t, 10.0, iv.StartTime)
	assert.Equal(t, 25.0, iv.EndTime)
	assert.Equal(t, 15.0, iv.Duration)
	assert.Equal(t, map[string]any{"note": "x"}, iv.Fields)
	assert.Equal(t, "sport", iv.CategoryID)
	assert.Equal(t, "run", iv.EventID)
}

func TestEngine_PairingAlternates(t *testing.T) {
	gofakeit.Seed(42)
	e := newTestEngine()

	n := gofakeit.IntRange(1, 40)
	var lastStart Record
	for i := 0; i < n; i++ {
		rec, err := e.Toggle("goal", "football", gofakeit.Float64Range(0, 5400), nil)
		require.NoError(t, err)

		if i%2 == 0 {
			require.Equal(t, TypeStart, rec.Type, "call %d", i)
			lastStart = rec
		} else {
			require.Equal(t, TypeEnd, rec.Type, "call %d", i)
			require.Equal(t, lastStart.ID, rec.StartAnnotationID)
		}
	}

	active := e.Active()
	if n%2 == 0 {
		assert.NotContains(t, active, "goal")
	} else {
		require.Contains(t, active, "goal")
		assert.Equal(t, lastStart.ID, active["goal"].ID)
	}
}

func TestEngine_IndependentEvents(t *testing.T) {
	e := newTestEngine()

	_, _ = e.Toggle("run", "sport", 1, nil)
	_, _ = e.Toggle("jump", "sport", 2, nil)
	_, _ = e.Toggle("run", "sport", 3, nil)

	active := e.Active()
	assert.NotContains(t, active, "run")
	assert.Contains(t, active, "jump")
}

func TestEngine_EndInheritsStartFields(t *testing.T) {
	e := newTestEngine()

	fields := map[string]any{"team": "Home", "player": gofakeit.Name()}
	start, _ := e.Toggle("foul", "football", 5, fields)
	end, err := e.Toggle("foul", "football", 9, map[string]any{"team": "Away"})
	require.NoError(t, err)

	assert.Equal(t, start.Fields, end.Fields)

	// caller maps are copied, not aliased
	fields["team"] = "Changed"
	got, _ := e.Record(start.ID)
	assert.Equal(t, "Home", got.Fields["team"])
}

func TestEngine_RecordInstantLeavesActive(t *testing.T) {
	e := newTestEngine()

	_, _ = e.Toggle("run", "sport", 1, nil)
	rec, err := e.RecordInstant("run", "sport", 2, map[string]any{"a": 1.0})
	require.NoError(t, err)

	assert.Equal(t, TypeInstant, rec.Type)
	assert.Contains(t, e.Active(), "run")
	assert.Empty(t, collect(e))
}

func TestEngine_RejectsInvalidPoints(t *testing.T) {
	e := newTestEngine()

	_, err := e.Toggle("", "sport", 1, nil)
	assert.ErrorIs(t, err, domain.ErrValidation)

	_, err = e.Toggle("run", "sport", -1, nil)
	assert.ErrorIs(t, err, domain.ErrValidation)

	_, err = e.RecordInstant("run", "sport", nan(), nil)
	assert.ErrorIs(t, err, domain.ErrValidation)

	assert.Zero(t, e.Len())
	assert.Empty(t, e.Active())
}

func TestEngine_EditPropagatesFieldsAcrossPair(t *testing.T) {
	for _, target := range []string{"start", "end"} {
		t.Run(target, func(t *testing.T) {
			e := newTestEngine()
			s, _ := e.Toggle("run", "sport", 10, map[string]any{"note": "x"})
			en, _ := e.Toggle("run", "sport", 20, nil)

			id, other := s.ID, en
			if target == "end" {
				id, other = en.ID, s
			}

			f := map[string]any{"note": "y", "pace": 4.5}
			require.NoError(t, e.Edit(id, 12, f))

			gotS, _ := e.Record(s.ID)
			gotE, _ := e.Record(en.ID)
			assert.Equal(t, f, gotS.Fields)
			assert.Equal(t, f, gotE.Fields)

			edited, _ := e.Record(id)
			untouched, _ := e.Record(other.ID)
			assert.Equal(t, 12.0, edited.Time)
			assert.Equal(t, other.Time, untouched.Time)
		})
	}
}

func TestEngine_EditInstantOnlyItself(t *testing.T) {
	e := newTestEngine()
	a, _ := e.RecordInstant("goal", "football", 1, map[string]any{"n": 1.0})
	b, _ := e.RecordInstant("goal", "football", 2, map[string]any{"n": 2.0})

	require.NoError(t, e.Edit(a.ID, 3, map[string]any{"n": 9.0}))

	gotA, _ := e.Record(a.ID)
	gotB, _ := e.Record(b.ID)
	assert.Equal(t, 3.0, gotA.Time)
	assert.Equal(t, 9.0, gotA.Fields["n"])
	assert.Equal(t, 2.0, gotB.Fields["n"])
}

func TestEngine_EditKeepsIdentity(t *testing.T) {
	e := newTestEngine()
	s, _ := e.Toggle("run", "sport", 10, nil)
	en, _ := e.Toggle("run", "sport", 20, nil)

	require.NoError(t, e.Edit(en.ID, 30, nil))

	got, _ := e.Record(en.ID)
	assert.Equal(t, TypeEnd, got.Type)
	assert.Equal(t, s.ID, got.StartAnnotationID)
	assert.Equal(t, "run", got.EventID)
	assert.Equal(t, "sport", got.CategoryID)
}

func TestEngine_EditErrors(t *testing.T) {
	e := newTestEngine()
	rec, _ := e.RecordInstant("goal", "football", 1, nil)

	err := e.Edit("missing", 1, nil)
	var nf *domain.NotFoundError
	require.ErrorAs(t, err, &nf)
	assert.Equal(t, "missing", nf.ID)

	assert.ErrorIs(t, e.Edit(rec.ID, -5, nil), domain.ErrValidation)
	got, _ := e.Record(rec.ID)
	assert.Equal(t, 1.0, got.Time)
}

func TestEngine_DeleteStartDoesNotCascade(t *testing.T) {
	e := newTestEngine()
	s, _ := e.Toggle("run", "sport", 10, nil)
	en, _ := e.Toggle("run", "sport", 20, nil)

	require.NoError(t, e.Delete(s.ID))

	got, ok := e.Record(en.ID)
	require.True(t, ok, "end record must survive")
	assert.Equal(t, s.ID, got.StartAnnotationID)
	assert.Empty(t, collect(e))
	assert.Empty(t, e.Active())

	warnings := e.RebuildActive()
	require.Len(t, warnings, 1)
	assert.Equal(t, WarnOrphanEnd, warnings[0].Kind)
}

func TestEngine_DeleteOpenStart(t *testing.T) {
	e := newTestEngine()
	s, _ := e.Toggle("run", "sport", 10, nil)

	require.NoError(t, e.Delete(s.ID))
	assert.Empty(t, e.Active())

	// the next toggle starts a new interval
	rec, _ := e.Toggle("run", "sport", 11, nil)
	assert.Equal(t, TypeStart, rec.Type)
}

func TestEngine_DeleteEndReopensStart(t *testing.T) {
	e := newTestEngine()
	s, _ := e.Toggle("run", "sport", 10, nil)
	en, _ := e.Toggle("run", "sport", 20, nil)

	require.NoError(t, e.Delete(en.ID))

	active := e.Active()
	require.Contains(t, active, "run")
	assert.Equal(t, s.ID, active["run"].ID)
}

func TestEngine_DeleteUnknown(t *testing.T) {
	e := newTestEngine()
	assert.ErrorIs(t, e.Delete("nope"), domain.ErrNotFound)
}

func TestEngine_CompleteIntervalsExcludesOpenAndInstant(t *testing.T) {
	gofakeit.Seed(7)
	e := newTestEngine()
	events := []string{"run", "jump", "swim"}

	for i := 0; i < 60; i++ {
		ev := events[gofakeit.IntRange(0, len(events)-1)]
		if gofakeit.Bool() {
			_, _ = e.Toggle(ev, "sport", float64(i), nil)
		} else {
			_, _ = e.RecordInstant(ev, "sport", float64(i), nil)
		}
	}

	active := e.Active()
	instant := map[string]bool{}
	for _, r := range e.Records() {
		if r.Type == TypeInstant {
			instant[r.ID] = true
		}
	}

	for iv := range e.CompleteIntervals() {
		for _, open := range active {
			assert.NotEqual(t, open.ID, iv.StartID)
		}
		assert.False(t, instant[iv.StartID])
		assert.False(t, instant[iv.EndID])
	}
}

func TestEngine_CompleteIntervalsRestartable(t *testing.T) {
	e := newTestEngine()
	_, _ = e.Toggle("run", "sport", 1, nil)
	_, _ = e.Toggle("run", "sport", 2, nil)
	_, _ = e.Toggle("jump", "sport", 3, nil)
	_, _ = e.Toggle("jump", "sport", 4, nil)

	seq := e.CompleteIntervals()
	first := slices.Collect(seq)
	second := slices.Collect(seq)
	assert.Len(t, first, 2)
	assert.Equal(t, first, second)

	// early break
	count := 0
	for range seq {
		count++
		break
	}
	assert.Equal(t, 1, count)
}

func TestEngine_RebuildIdempotent(t *testing.T) {
	gofakeit.Seed(99)
	e := newTestEngine()
	for i := 0; i < 30; i++ {
		_, _ = e.Toggle(fmt.Sprintf("e%d", gofakeit.IntRange(0, 4)), "c", float64(i), nil)
	}
	// corrupt the set so duplicate starts and orphans exist
	_ = e.Delete(e.Records()[0].ID)

	e.RebuildActive()
	once := e.Active()
	e.RebuildActive()
	assert.Equal(t, once, e.Active())
}

func TestEngine_LoadDuplicateStartsLaterWins(t *testing.T) {
	e := newTestEngine()
	warnings := e.Load(Snapshot{Records: []Record{
		{ID: "a", Time: 1, CategoryID: "c", EventID: "run", Type: TypeStart},
		{ID: "b", Time: 2, CategoryID: "c", EventID: "run", Type: TypeStart},
	}})

	active := e.Active()
	require.Contains(t, active, "run")
	assert.Equal(t, "b", active["run"].ID)

	require.Len(t, warnings, 1)
	assert.Equal(t, WarnDuplicateStart, warnings[0].Kind)
	assert.Equal(t, "a", warnings[0].RecordID)
	assert.Equal(t, 2, e.Len(), "superseded start stays in records")
}

func TestEngine_LoadValidatesActiveHint(t *testing.T) {
	e := newTestEngine()
	warnings := e.Load(Snapshot{
		Records: []Record{
			{ID: "a", Time: 1, CategoryID: "c", EventID: "run", Type: TypeStart},
			{ID: "b", Time: 2, CategoryID: "c", EventID: "run", Type: TypeEnd, StartAnnotationID: "a"},
		},
		Active: map[string]Record{"run": {ID: "a"}},
	})

	assert.Empty(t, e.Active(), "stale hint must not be trusted")
	require.Len(t, warnings, 1)
	assert.Equal(t, WarnStaleActive, warnings[0].Kind)
}

func TestEngine_LoadRepairsRecords(t *testing.T) {
	e := newTestEngine()
	warnings := e.Load(Snapshot{Records: []Record{
		{Time: 4, CategoryID: "c", EventID: "goal"},
		{ID: "x", Time: 5, CategoryID: "c", EventID: "goal", Type: TypeInstant, StartAnnotationID: "bogus"},
		{ID: "x", Time: 6, CategoryID: "c", EventID: "goal", Type: TypeInstant},
	}})

	recs := e.Records()
	require.Len(t, recs, 3)
	assert.NotEmpty(t, recs[0].ID)
	assert.Equal(t, TypeInstant, recs[0].Type)
	assert.Empty(t, recs[1].StartAnnotationID)
	assert.NotEqual(t, "x", recs[2].ID)
	assert.NotNil(t, recs[0].Fields)
	assert.Len(t, warnings, 3)
}

func TestEngine_LoadReplacesState(t *testing.T) {
	e := newTestEngine()
	_, _ = e.Toggle("run", "sport", 1, nil)

	e.Load(Snapshot{})
	assert.Zero(t, e.Len())
	assert.Empty(t, e.Active())
}

func TestEngine_DuplicateEndsFirstWins(t *testing.T) {
	e := newTestEngine()
	warnings := e.Load(Snapshot{Records: []Record{
		{ID: "s", Time: 1, EventID: "run", Type: TypeStart},
		{ID: "e1", Time: 5, EventID: "run", Type: TypeEnd, StartAnnotationID: "s"},
		{ID: "e2", Time: 9, EventID: "run", Type: TypeEnd, StartAnnotationID: "s"},
	}})

	intervals := collect(e)
	require.Len(t, intervals, 1)
	assert.Equal(t, "e1", intervals[0].EndID)
	require.Len(t, warnings, 1)
	assert.Equal(t, WarnDuplicateEnd, warnings[0].Kind)
}

func TestEngine_SnapshotIsACopy(t *testing.T) {
	e := newTestEngine()
	rec, _ := e.RecordInstant("goal", "c", 1, map[string]any{"n": 1.0})

	snap := e.Snapshot()
	snap.Records[0].Fields["n"] = 2.0
	snap.Records[0].Time = 99

	got, _ := e.Record(rec.ID)
	assert.Equal(t, 1.0, got.Fields["n"])
	assert.Equal(t, 1.0, got.Time)
}
