package checkpoints

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"

	"github.com/flowstone-io/flowstone/pkg/state"
)

func sampleContext(t *testing.T) *state.Context {
	t.Helper()
	fc := state.NewContext()
	require.NoError(t, fc.Begin())
	fc.SetVariable("user", "ada")
	fc.MarkCompletedStep("fetch")
	r := state.NewStepResult("fetch")
	r.MarkRunning()
	r.MarkCompleted("body", 1)
	fc.RecordResult(r)
	return fc
}

func requireEquivalent(t *testing.T, want *state.Context, got *state.Context) {
	t.Helper()
	require.Equal(t, want.FlowID(), got.FlowID())
	require.Equal(t, want.Status(), got.Status())
	require.Equal(t, want.CompletedSteps(), got.CompletedSteps())
	require.Equal(t, want.Variables(), got.Variables())

	r, ok := got.Result("fetch")
	require.True(t, ok)
	require.Equal(t, state.StepCompleted, r.Status)
	require.Equal(t, "body", r.Output)
	require.Equal(t, 1, r.Retries)
}

func TestCaptureRestore(t *testing.T) {
	t.Parallel()

	fc := sampleContext(t)
	restored, err := Restore(Capture(fc))
	require.NoError(t, err)
	requireEquivalent(t, fc, restored)
}

func TestRestoreNil(t *testing.T) {
	t.Parallel()
	_, err := Restore(nil)
	require.Error(t, err)
}

func testStoreRoundTrip(t *testing.T, store Store) {
	t.Helper()
	ctx := context.Background()
	fc := sampleContext(t)

	require.NoError(t, store.Save(ctx, Capture(fc)))

	loaded, err := store.Load(ctx, fc.FlowID())
	require.NoError(t, err)
	require.Equal(t, fc.FlowID(), loaded.FlowID)

	restored, err := Restore(loaded)
	require.NoError(t, err)
	require.Equal(t, fc.FlowID(), restored.FlowID())
	require.Equal(t, fc.Status(), restored.Status())
	require.Equal(t, fc.CompletedSteps(), restored.CompletedSteps())
	require.Equal(t, fc.Variables(), restored.Variables())

	// JSON round trip: numeric retry counts survive inside StepResult.
	r, ok := restored.Result("fetch")
	require.True(t, ok)
	require.Equal(t, state.StepCompleted, r.Status)
	require.Equal(t, 1, r.Retries)

	// Saving again overwrites.
	fc.SetVariable("round", 2)
	require.NoError(t, store.Save(ctx, Capture(fc)))
	loaded, err = store.Load(ctx, fc.FlowID())
	require.NoError(t, err)
	restored, err = Restore(loaded)
	require.NoError(t, err)
	v, ok := restored.Variable("round")
	require.True(t, ok)
	require.EqualValues(t, 2, v)

	require.NoError(t, store.Delete(ctx, fc.FlowID()))
	_, err = store.Load(ctx, fc.FlowID())
	require.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryStore(t *testing.T) {
	t.Parallel()
	testStoreRoundTrip(t, NewMemoryStore())
}

func TestSQLiteStore(t *testing.T) {
	t.Parallel()

	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	store, err := NewSQLiteStore(db)
	require.NoError(t, err)
	testStoreRoundTrip(t, store)
}

func TestLoadMissing(t *testing.T) {
	t.Parallel()
	_, err := NewMemoryStore().Load(context.Background(), "no-such-flow")
	require.ErrorIs(t, err, ErrNotFound)
}
