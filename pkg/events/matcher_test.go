package events

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMatchers(t *testing.T) {
	t.Parallel()

	completed := New(StepCompleted, "worker-3", 42)
	failed := New(StepFailed, "router", "boom")

	t.Run("Type", func(t *testing.T) {
		t.Parallel()
		require.True(t, MatchType(StepCompleted)(completed))
		require.False(t, MatchType(StepCompleted)(failed))
		require.True(t, MatchType(Wildcard)(failed))
	})

	t.Run("SourceExactAndGlob", func(t *testing.T) {
		t.Parallel()
		require.True(t, MatchSource("worker-3")(completed))
		require.True(t, MatchSource("worker-*")(completed))
		require.False(t, MatchSource("worker-*")(failed))
	})

	t.Run("Data", func(t *testing.T) {
		t.Parallel()
		isBig := MatchData(func(v any) bool {
			n, ok := v.(int)
			return ok && n > 10
		})
		require.True(t, isBig(completed))
		require.False(t, isBig(failed))
		require.False(t, isBig(New(Custom, "x", nil)))
	})

	t.Run("Combinators", func(t *testing.T) {
		t.Parallel()
		m := And(MatchType(StepCompleted), MatchSource("worker-*"))
		require.True(t, m(completed))
		require.False(t, m(failed))

		either := Or(MatchType(StepFailed), MatchSource("worker-*"))
		require.True(t, either(completed))
		require.True(t, either(failed))
		require.False(t, either(New(Custom, "elsewhere", nil)))

		require.False(t, Not(m)(completed))
		require.True(t, Not(m)(failed))
	})
}

func TestOnMatch(t *testing.T) {
	t.Parallel()
	b := NewBus()
	var got []Event
	b.OnMatch(And(MatchType(StepCompleted), MatchSource("w*")), func(e Event) {
		got = append(got, e)
	})

	b.Emit(New(StepCompleted, "worker", nil))
	b.Emit(New(StepCompleted, "other", nil))
	b.Emit(New(StepFailed, "worker", nil))

	require.Len(t, got, 1)
	require.Equal(t, "worker", got[0].Source)
}
