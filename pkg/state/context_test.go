package state

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestContextLifecycle(t *testing.T) {
	t.Parallel()

	t.Run("HappyPath", func(t *testing.T) {
		t.Parallel()
		c := NewContext()
		require.NotEmpty(t, c.FlowID())
		require.Equal(t, FlowPending, c.Status())

		require.NoError(t, c.Begin())
		require.Equal(t, FlowRunning, c.Status())
		require.False(t, c.StartedAt().IsZero())

		require.NoError(t, c.Complete(42))
		require.Equal(t, FlowCompleted, c.Status())
		require.Equal(t, 42, c.Output())
		require.NotNil(t, c.CompletedAt())
	})

	t.Run("FailRecordsError", func(t *testing.T) {
		t.Parallel()
		c := NewContext()
		require.NoError(t, c.Begin())
		require.NoError(t, c.Fail(errors.New("boom")))
		require.Equal(t, FlowFailed, c.Status())
		require.Equal(t, "boom", c.Err())
	})

	t.Run("ForwardOnlyTransitions", func(t *testing.T) {
		t.Parallel()
		c := NewContext()
		require.NoError(t, c.Begin())
		require.NoError(t, c.Complete(nil))

		// Terminal statuses admit no further transitions.
		require.Error(t, c.Begin())
		require.Error(t, c.Fail(errors.New("late")))
		require.Error(t, c.Cancel())
		require.Error(t, c.Pause())
	})

	t.Run("CompleteRequiresRunning", func(t *testing.T) {
		t.Parallel()
		c := NewContext()
		require.Error(t, c.Complete(nil))
	})

	t.Run("PauseAndResume", func(t *testing.T) {
		t.Parallel()
		c := NewContext()
		require.NoError(t, c.Begin())
		require.NoError(t, c.Pause())
		require.Equal(t, FlowPaused, c.Status())
		require.NoError(t, c.Resume())
		require.Equal(t, FlowRunning, c.Status())
	})

	t.Run("CancelStopsBoundRun", func(t *testing.T) {
		t.Parallel()
		c := NewContext()
		require.NoError(t, c.Begin())

		ctx, cancel := context.WithCancel(context.Background())
		c.Bind(cancel)

		require.NoError(t, c.Cancel())
		require.Equal(t, FlowCancelled, c.Status())
		select {
		case <-ctx.Done():
		default:
			t.Fatal("bound context was not cancelled")
		}
	})
}

func TestContextRecords(t *testing.T) {
	t.Parallel()

	t.Run("StepResults", func(t *testing.T) {
		t.Parallel()
		c := NewContext()
		r := NewStepResult("fetch")
		r.MarkRunning()
		c.RecordResult(r)
		c.SetCurrentStep("fetch")

		got, ok := c.Result("fetch")
		require.True(t, ok)
		require.Equal(t, StepRunning, got.Status)
		require.Equal(t, "fetch", c.CurrentStep())

		r.MarkCompleted("body", 1)
		require.Equal(t, StepCompleted, got.Status)
		require.Equal(t, "body", got.Output)
		require.Equal(t, 1, got.Retries)
		require.False(t, got.Duration() < 0)
	})

	t.Run("CompletionHistoryIsOrdered", func(t *testing.T) {
		t.Parallel()
		c := NewContext()
		c.MarkCompletedStep("a")
		c.MarkCompletedStep("b")
		c.MarkCompletedStep("c")
		require.Equal(t, []string{"a", "b", "c"}, c.CompletedSteps())
	})

	t.Run("VariablesBag", func(t *testing.T) {
		t.Parallel()
		c := NewContext()
		c.SetVariable("attempts", 3)
		v, ok := c.Variable("attempts")
		require.True(t, ok)
		require.Equal(t, 3, v)

		_, ok = c.Variable("missing")
		require.False(t, ok)

		vars := c.Variables()
		vars["attempts"] = 99 // copies do not write back
		v, _ = c.Variable("attempts")
		require.Equal(t, 3, v)
	})
}

func TestSnapshotRoundTrip(t *testing.T) {
	t.Parallel()

	c := NewContext()
	require.NoError(t, c.Begin())
	c.SetVariable("user", "ada")
	c.SetVariable("count", 2)
	c.MarkCompletedStep("fetch")
	r := NewStepResult("fetch")
	r.MarkRunning()
	r.MarkCompleted("ok", 0)
	c.RecordResult(r)
	require.NoError(t, c.Complete("done"))

	restored, err := FromSnapshot(c.Snapshot())
	require.NoError(t, err)

	require.Equal(t, c.FlowID(), restored.FlowID())
	require.Equal(t, FlowCompleted, restored.Status())
	require.Equal(t, []string{"fetch"}, restored.CompletedSteps())
	require.Equal(t, c.Variables(), restored.Variables())
	require.Equal(t, "done", restored.Output())

	got, ok := restored.Result("fetch")
	require.True(t, ok)
	require.Equal(t, StepCompleted, got.Status)
	require.Equal(t, "ok", got.Output)
}

func TestFromSnapshotRejectsEmpty(t *testing.T) {
	t.Parallel()
	_, err := FromSnapshot(Snapshot{})
	require.Error(t, err)
}

func TestRunContextHelpers(t *testing.T) {
	t.Parallel()
	fc := NewContext()
	ctx := WithContext(context.Background(), fc)
	require.Same(t, fc, FromContext(ctx))
	require.Nil(t, FromContext(context.Background()))
}
