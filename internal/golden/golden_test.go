package golden

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"math"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/san-kum/phytrace/internal/dynamo"
	"github.com/san-kum/phytrace/internal/evidence"
	"github.com/san-kum/phytrace/internal/invariant"
	"github.com/san-kum/phytrace/internal/provenance"
	"github.com/san-kum/phytrace/internal/trace"
)

var env = provenance.Static(provenance.Environment{
	GoVersion: provenance.Captured("go1.24.0"),
	Module:    provenance.Unavailable[string]("test binary"),
	Packages:  provenance.Captured(map[string]string{}),
	System:    provenance.Captured(provenance.System{OS: "linux", Arch: "amd64", NumCPU: 1}),
	Git:       provenance.Unavailable[provenance.Git]("not a git repository"),
})

func decay(_ float64, y dynamo.State, p dynamo.Params) dynamo.State {
	return dynamo.State{-p.Get("k", 1) * y[0]}
}

func decaySpec(k float64) trace.Spec {
	return trace.Spec{
		System:     dynamo.SystemFunc(decay),
		Params:     dynamo.Params{"k": k},
		Span:       dynamo.Span{Start: 0, End: 2},
		Y0:         dynamo.State{1},
		Invariants: []invariant.Checkable{invariant.Finite()},
		Logger:     slog.New(slog.NewTextHandler(io.Discard, nil)),
		Capturer:   env,
	}
}

func runner(k float64) RunFunc {
	return func(ctx context.Context) (*trace.Result, error) {
		return trace.Run(ctx, decaySpec(k))
	}
}

func snapshot(t []float64, rows ...[]float64) Snapshot {
	return Snapshot{Version: SnapshotVersion, Name: "s", T: t, Y: rows, Success: true, ChecksPassed: true}
}

func TestCompare_RoundTripZeroDiff(t *testing.T) {
	res, err := trace.Run(context.Background(), decaySpec(1))
	require.NoError(t, err)

	store := NewDirStore(t.TempDir())
	ctx := context.Background()
	require.NoError(t, StoreResult(ctx, store, res, "decay"))

	loaded, err := LoadSnapshot(ctx, store, "decay")
	require.NoError(t, err)

	report := Compare(FromResult("decay", res), loaded, WithTolerance(0, 0))
	assert.True(t, report.Match(), report.String())
	assert.True(t, report.SameGrid)
	assert.Empty(t, report.ParamDiffs)
	for d := range report.MaxDiff {
		assert.Zero(t, report.MaxDiff[d])
		assert.Zero(t, report.RMSDiff[d])
	}
	assert.Len(t, report.Divergence, DefaultPoints)
}

func TestCompare_Tolerance(t *testing.T) {
	ref := snapshot([]float64{0, 1, 2}, []float64{1, 2, 4})
	cand := snapshot([]float64{0, 1, 2}, []float64{1, 2.001, 4})

	assert.False(t, Compare(cand, ref, WithTolerance(1e-6, 1e-9)).WithinTolerance)
	assert.True(t, Compare(cand, ref, WithTolerance(1e-3, 0)).WithinTolerance)
	assert.True(t, Compare(cand, ref, WithTolerance(0, 1e-3+1e-12)).WithinTolerance)

	r := Compare(cand, ref, WithPoints(3))
	require.Len(t, r.MaxDiff, 1)
	assert.InDelta(t, 0.001, r.MaxDiff[0], 1e-12)
	assert.InDelta(t, 0.001/math.Sqrt(3), r.RMSDiff[0], 1e-12)
	assert.Equal(t, []float64{0, 1, 2}, r.Grid)
	assert.InDelta(t, 0.001, r.Divergence[1], 1e-12)
	assert.InDelta(t, 0.001, r.MaxAbsDiff(), 1e-12)
}

func TestCompare_OverlapAndGrids(t *testing.T) {
	ref := snapshot([]float64{0, 1, 2, 3}, []float64{0, 1, 2, 3})
	cand := snapshot([]float64{1, 2.5, 4}, []float64{1, 2.5, 4})

	r := Compare(cand, ref, WithPoints(5))
	assert.False(t, r.SameGrid)
	assert.Equal(t, 1.0, r.Start)
	assert.Equal(t, 3.0, r.End)
	assert.Len(t, r.Grid, 5)
	assert.True(t, r.WithinTolerance, r.String())
}

func TestCompare_Issues(t *testing.T) {
	ref := snapshot([]float64{0, 1}, []float64{0, 1})

	r := Compare(snapshot([]float64{0, 1}, []float64{0, 1}, []float64{0, 1}), ref)
	assert.False(t, r.Match())
	assert.Contains(t, r.Issues[0], "dimension")

	r = Compare(snapshot([]float64{2, 3}, []float64{0, 1}), ref)
	assert.False(t, r.Match())
	assert.Contains(t, r.Issues[0], "overlap")

	bad := snapshot([]float64{0, 1}, []float64{0, 1})
	bad.ChecksPassed = false
	r = Compare(bad, ref)
	assert.True(t, r.WithinTolerance)
	assert.False(t, r.Match())

	r = Compare(snapshot([]float64{0, 1}, []float64{0, math.NaN()}), ref)
	assert.False(t, r.WithinTolerance)
}

func TestCompare_ParamDiffs(t *testing.T) {
	a := snapshot([]float64{0, 1}, []float64{0, 1})
	b := snapshot([]float64{0, 1}, []float64{0, 1})
	a.Params = map[string]float64{"k": 1, "m": 2, "only_a": 3}
	b.Params = map[string]float64{"k": 1, "m": 2.5, "only_b": 4}

	diffs := Compare(a, b).ParamDiffs
	require.Len(t, diffs, 3)
	assert.Equal(t, "m", diffs[0].Name)
	assert.Equal(t, 2.0, *diffs[0].Candidate)
	assert.Equal(t, 2.5, *diffs[0].Reference)
	assert.Equal(t, "only_a", diffs[1].Name)
	assert.Nil(t, diffs[1].Reference)
	assert.Equal(t, "only_b", diffs[2].Name)
	assert.Nil(t, diffs[2].Candidate)
}

func storeContract(t *testing.T, store Store) {
	ctx := context.Background()

	names, err := store.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, names)

	_, err = store.Load(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, store.Delete(ctx, "missing"), ErrNotFound)
	assert.ErrorIs(t, store.Save(ctx, "a/b", Snapshot{}), ErrInvalidName)

	s := snapshot([]float64{0, 0.5, 1}, []float64{1, 0.5, 0.25})
	s.Params = map[string]float64{"k": 1}
	require.NoError(t, store.Save(ctx, "beta", s))
	require.NoError(t, store.Save(ctx, "alpha", s))

	got, err := store.Load(ctx, "beta")
	require.NoError(t, err)
	assert.Equal(t, "beta", got.Name)
	assert.Equal(t, s.T, got.T)
	assert.Equal(t, s.Y, got.Y)
	assert.Equal(t, s.Params, got.Params)

	s.Y = [][]float64{{2, 1, 0.5}}
	require.NoError(t, store.Save(ctx, "beta", s))
	got, err = store.Load(ctx, "beta")
	require.NoError(t, err)
	assert.Equal(t, s.Y, got.Y)

	names, err = store.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"alpha", "beta"}, names)

	require.NoError(t, store.Delete(ctx, "alpha"))
	names, err = store.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"beta"}, names)

	diverged := snapshot([]float64{0, 0.5, 1}, []float64{1, math.Inf(1), math.NaN()})
	diverged.FinalTime = math.Inf(1)
	diverged.Y = append(diverged.Y, []float64{0, math.Inf(-1), 1})
	require.NoError(t, store.Save(ctx, "diverged", diverged))
	got, err = store.Load(ctx, "diverged")
	require.NoError(t, err)
	assert.Equal(t, diverged.T, got.T)
	assert.True(t, math.IsInf(got.Y[0][1], 1))
	assert.True(t, math.IsNaN(got.Y[0][2]))
	assert.True(t, math.IsInf(got.Y[1][1], -1))
	assert.True(t, math.IsInf(got.FinalTime, 1))
	require.NoError(t, store.Delete(ctx, "diverged"))
}

func TestDirStore(t *testing.T) {
	storeContract(t, NewDirStore(filepath.Join(t.TempDir(), "golden")))
	assert.Equal(t, DefaultDir, NewDirStore("").Dir())
}

func TestBadgerStore(t *testing.T) {
	store, err := OpenBadger(BadgerConfig{InMemory: true})
	require.NoError(t, err)
	defer store.Close()
	storeContract(t, store)
}

func TestOpen(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	store, closeStore, err := Open("", filepath.Join(dir, "plain"), nil)
	require.NoError(t, err)
	assert.IsType(t, &DirStore{}, store)
	assert.NoError(t, closeStore())

	path := filepath.Join(dir, "db")
	store, closeStore, err = Open("badger", path, nil)
	require.NoError(t, err)
	require.IsType(t, &BadgerStore{}, store)
	require.NoError(t, store.Save(ctx, "decay", snapshot([]float64{0, 1}, []float64{1, 0.5})))
	require.NoError(t, closeStore())

	store, closeStore, err = Open("BADGER", path, nil)
	require.NoError(t, err)
	defer closeStore()
	names, err := store.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"decay"}, names)

	_, _, err = Open("sqlite", path, nil)
	assert.ErrorIs(t, err, ErrUnknownBackend)
}

func TestBadgerStore_RequiresPath(t *testing.T) {
	_, err := OpenBadger(BadgerConfig{})
	assert.Error(t, err)
}

func TestVerify(t *testing.T) {
	t.Setenv(UpdateEnv, "")
	ctx := context.Background()
	store := NewDirStore(t.TempDir())

	_, err := Verify(ctx, store, "decay", runner(1), VerifyOptions{})
	assert.ErrorIs(t, err, ErrNotFound)

	v, err := Verify(ctx, store, "decay", runner(1), VerifyOptions{AllowCreate: true})
	require.NoError(t, err)
	assert.True(t, v.Stored)

	v, err = Verify(ctx, store, "decay", runner(1), VerifyOptions{})
	require.NoError(t, err)
	assert.False(t, v.Stored)
	assert.True(t, v.Report.Match())

	_, err = Verify(ctx, store, "decay", runner(1.5), VerifyOptions{})
	var mismatch *MismatchError
	require.True(t, errors.As(err, &mismatch), "got %v", err)
	assert.Equal(t, "decay", mismatch.Name)
	assert.False(t, mismatch.Report.WithinTolerance)
	require.Len(t, mismatch.Report.ParamDiffs, 1)
	assert.Equal(t, "k", mismatch.Report.ParamDiffs[0].Name)
}

func TestVerify_UpdateEnvOverwrites(t *testing.T) {
	ctx := context.Background()
	store := NewDirStore(t.TempDir())
	require.NoError(t, store.Save(ctx, "decay", snapshot([]float64{0, 2}, []float64{5, 5})))

	t.Setenv(UpdateEnv, "1")
	v, err := Verify(ctx, store, "decay", runner(1), VerifyOptions{})
	require.NoError(t, err)
	assert.True(t, v.Stored)

	t.Setenv(UpdateEnv, "false")
	v = Require(t, store, "decay", runner(1), VerifyOptions{})
	assert.False(t, v.Stored)
}

func TestVerify_RunError(t *testing.T) {
	boom := errors.New("boom")
	_, err := Verify(context.Background(), NewDirStore(t.TempDir()), "x", func(context.Context) (*trace.Result, error) {
		return nil, boom
	}, VerifyOptions{AllowCreate: true})
	assert.ErrorIs(t, err, boom)
}

func TestFromPack_MatchesResult(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "pack")
	spec := decaySpec(1)
	spec.EvidenceDir = dir
	spec.Writer = evidence.NewWriter(evidence.WithRenderer(nil))
	res, err := trace.Run(context.Background(), spec)
	require.NoError(t, err)
	require.NoError(t, res.EvidenceErr)

	fromPack, err := FromPack("decay", dir)
	require.NoError(t, err)
	fromResult := FromResult("decay", res)

	assert.Equal(t, fromResult, fromPack)
	assert.True(t, Compare(fromPack, fromResult, WithTolerance(0, 0)).Match())
}

func TestFromPack_NotAPack(t *testing.T) {
	_, err := FromPack("x", t.TempDir())
	assert.Error(t, err)
}

func TestLoad_RejectsUnknownVersion(t *testing.T) {
	_, err := decode("x", []byte(`{"version": 99, "t": [], "y": []}`))
	assert.ErrorIs(t, err, ErrVersionMismatch)
}

func TestEncode_NonFiniteAsStrings(t *testing.T) {
	data, err := encode(snapshot([]float64{0, 1}, []float64{math.Inf(-1), math.NaN()}))
	require.NoError(t, err)
	assert.Contains(t, string(data), `"-Inf"`)
	assert.Contains(t, string(data), `"NaN"`)

	got, err := decode("x", []byte(`{"version": 1, "t": [0, 1], "y": [[2, "+Inf"]], "final_time": 1}`))
	require.NoError(t, err)
	assert.Equal(t, 2.0, got.Y[0][0])
	assert.True(t, math.IsInf(got.Y[0][1], 1))
}

func TestReport_GrowthRate(t *testing.T) {
	grid := []float64{0, 1, 2, 3, 4}
	div := make([]float64, len(grid))
	for i, x := range grid {
		div[i] = 1e-8 * math.Exp(0.7*x)
	}
	assert.InDelta(t, 0.7, Report{Grid: grid, Divergence: div}.GrowthRate(), 1e-9)

	div[0] = 0
	assert.InDelta(t, 0.7, Report{Grid: grid, Divergence: div}.GrowthRate(), 1e-9)

	assert.Zero(t, Report{Grid: grid[:1], Divergence: div[1:2]}.GrowthRate())
	assert.Zero(t, Report{}.GrowthRate())
}
