package flow

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/flowstone-io/flowstone/pkg/events"
	"github.com/flowstone-io/flowstone/pkg/state"
)

func double(_ context.Context, input any) (any, error) {
	return input.(int) * 2, nil
}

func addOne(_ context.Context, input any) (any, error) {
	return input.(int) + 1, nil
}

func passthrough(_ context.Context, input any) (any, error) {
	return input, nil
}

func TestSequentialFlow(t *testing.T) {
	t.Parallel()

	f := New("arith").
		Start("begin", passthrough).
		Step("double", double, After("begin")).
		Step("addOne", addOne, After("double"))

	findings, err := f.Validate()
	require.NoError(t, err)
	require.Empty(t, findings)

	fctx, err := f.Run(context.Background(), 3)
	require.NoError(t, err)
	require.Equal(t, state.FlowCompleted, fctx.Status())
	require.Equal(t, 7, fctx.Output())
	require.Equal(t, []string{"begin", "double", "addOne"}, fctx.CompletedSteps())
}

func TestDuplicateStepSurfacesOnBuild(t *testing.T) {
	t.Parallel()

	f := New("dup").
		Start("begin", passthrough).
		Step("work", passthrough, After("begin")).
		Step("work", passthrough, After("begin"))

	_, err := f.Validate()
	require.Error(t, err)
	require.Contains(t, err.Error(), `step "work"`)
}

func TestRouterFlow(t *testing.T) {
	t.Parallel()

	f := New("routing").
		Start("begin", passthrough).
		Router("decide", func(_ context.Context, input any) (any, error) {
			if input.(int) >= 10 {
				return "high", nil
			}
			return "low", nil
		}, After("begin"), Routes("high", "low")).
		Step("high", func(_ context.Context, input any) (any, error) {
			return input.(int) * 10, nil
		}).
		Step("low", passthrough)

	findings, err := f.Validate()
	require.NoError(t, err)
	require.Empty(t, findings)

	fctx, err := f.Run(context.Background(), 10)
	require.NoError(t, err)
	require.Equal(t, 100, fctx.Output())

	fctx, err = f.Run(context.Background(), 4)
	require.NoError(t, err)
	require.Equal(t, 4, fctx.Output())
}

func TestParallelFlow(t *testing.T) {
	t.Parallel()

	mul := func(factor int) Handler {
		return func(_ context.Context, input any) (any, error) {
			return input.(int) * factor, nil
		}
	}

	f := New("fanout").
		Start("begin", passthrough).
		Step("x2", mul(2)).
		Step("x3", mul(3)).
		Step("x4", mul(4)).
		Parallel("spread", After("begin"), Members("x2", "x3", "x4"), JoinTo("gather")).
		Join("gather", func(_ context.Context, input any) (any, error) {
			sum := 0
			for _, v := range input.([]any) {
				sum += v.(int)
			}
			return sum, nil
		})

	findings, err := f.Validate()
	require.NoError(t, err)
	require.Empty(t, findings)

	fctx, err := f.Run(context.Background(), 10)
	require.NoError(t, err)
	require.Equal(t, 90, fctx.Output())
}

func TestAllOfPromotesStepToJoin(t *testing.T) {
	t.Parallel()

	f := New("allof").
		Start("begin", passthrough).
		Step("a", passthrough).
		Step("b", passthrough).
		Parallel("spread", After("begin"), Members("a", "b"), JoinTo("both")).
		Step("both", passthrough, AllOf("a", "b"))

	findings, err := f.Validate()
	require.NoError(t, err)
	require.Empty(t, findings)

	fctx, err := f.Run(context.Background(), 5)
	require.NoError(t, err)
	require.Equal(t, []any{5, 5}, fctx.Output())
}

func TestConditionalFlow(t *testing.T) {
	t.Parallel()

	f := New("branching").
		Start("begin", passthrough).
		Conditional("check", []Branch{
			{When: func(_ context.Context, input any) bool { return input.(int) > 5 }, To: "big"},
		}, "small", After("begin")).
		Step("big", func(_ context.Context, input any) (any, error) {
			return "big", nil
		}).
		Step("small", func(_ context.Context, input any) (any, error) {
			return "small", nil
		})

	fctx, err := f.Run(context.Background(), 7)
	require.NoError(t, err)
	require.Equal(t, "big", fctx.Output())

	r, ok := fctx.Result("small")
	require.True(t, ok)
	require.Equal(t, state.StepSkipped, r.Status)

	fctx, err = f.Run(context.Background(), 2)
	require.NoError(t, err)
	require.Equal(t, "small", fctx.Output())
}

func TestRetriesAndTimeout(t *testing.T) {
	t.Parallel()

	var calls int
	f := New("flaky").
		Start("begin", passthrough).
		Step("fragile", func(_ context.Context, input any) (any, error) {
			calls++
			if calls < 3 {
				return nil, errors.New("transient")
			}
			return input, nil
		}, After("begin"), WithRetries(2), WithBackoff(BackoffFixed, time.Millisecond, 0))

	fctx, err := f.Run(context.Background(), "v")
	require.NoError(t, err)
	require.Equal(t, "v", fctx.Output())

	r, ok := fctx.Result("fragile")
	require.True(t, ok)
	require.Equal(t, 2, r.Retries)
}

func TestFlowEvents(t *testing.T) {
	t.Parallel()

	bus := events.NewBus()
	var types []events.Type
	bus.On(events.Wildcard, func(e events.Event) { types = append(types, e.Type) })

	f := New("observed", WithBus(bus)).
		Start("begin", passthrough).
		Step("work", passthrough, After("begin"))

	_, err := f.Run(context.Background(), 1)
	require.NoError(t, err)

	require.Equal(t, []events.Type{
		events.FlowStarted,
		events.StepStarted, events.StepCompleted,
		events.StepStarted, events.StepCompleted,
		events.FlowCompleted,
	}, types)
}

func TestVariablesBag(t *testing.T) {
	t.Parallel()

	f := New("vars").
		Start("begin", func(ctx context.Context, input any) (any, error) {
			ContextFrom(ctx).SetVariable("seen", input)
			return input, nil
		}).
		Step("read", func(ctx context.Context, _ any) (any, error) {
			v, _ := ContextFrom(ctx).Variable("seen")
			return v, nil
		}, After("begin"))

	fctx, err := f.Run(context.Background(), "hello")
	require.NoError(t, err)
	require.Equal(t, "hello", fctx.Output())
}

func TestValidateFindings(t *testing.T) {
	t.Parallel()

	f := New("broken").
		Step("floating", passthrough).
		Step("orphan", passthrough, After("nowhere"))

	findings, err := f.Validate()
	require.NoError(t, err)
	require.Contains(t, findings, "missing start node")
	require.NotEmpty(t, findings)
}

func TestChainBuilder(t *testing.T) {
	t.Parallel()

	f := New("chained")
	c := f.Begin("begin", passthrough).
		Then("double", double).
		ThenAll(
			Member{Name: "left", Handler: addOne},
			Member{Name: "right", Handler: double},
		).
		Join("gather", func(_ context.Context, input any) (any, error) {
			outs := input.([]any)
			return outs[0].(int) + outs[1].(int), nil
		}).
		Then("finish", passthrough)
	require.NoError(t, c.Err())

	findings, err := f.Validate()
	require.NoError(t, err)
	require.Empty(t, findings)

	fctx, err := f.Run(context.Background(), 3)
	require.NoError(t, err)
	// 3 -> 6, fan-out: 6+1 and 6*2, joined: 7+12.
	require.Equal(t, 19, fctx.Output())
}

func TestChainThenIf(t *testing.T) {
	t.Parallel()

	f := New("gated")
	c := f.Begin("begin", passthrough).
		ThenIf(func(_ context.Context, input any) bool { return input.(int) > 0 },
			"positive", "negative",
			func(_ context.Context, _ any) (any, error) { return "+", nil },
			func(_ context.Context, _ any) (any, error) { return "-", nil })
	require.NoError(t, c.Err())

	fctx, err := f.Run(context.Background(), 1)
	require.NoError(t, err)
	require.Equal(t, "+", fctx.Output())

	fctx, err = f.Run(context.Background(), -1)
	require.NoError(t, err)
	require.Equal(t, "-", fctx.Output())
}

func TestChainThenAllRequiresMembers(t *testing.T) {
	t.Parallel()

	f := New("empty-fanout")
	c := f.Begin("begin", passthrough).ThenAll().Join("gather", passthrough)
	require.Error(t, c.Err())
}

func TestPauseAndResume(t *testing.T) {
	t.Parallel()

	fctx := state.NewContext()
	require.NoError(t, fctx.Begin())
	require.NoError(t, fctx.Pause())

	f := New("resumable").
		Start("begin", passthrough).
		Step("work", double, After("begin"))

	require.NoError(t, f.RunWith(context.Background(), fctx, 4))
	require.Equal(t, state.FlowCompleted, fctx.Status())
	require.Equal(t, 8, fctx.Output())
}

func TestRender(t *testing.T) {
	t.Parallel()

	f := New("drawn").
		Start("begin", passthrough).
		Step("work", passthrough, After("begin"))

	out, err := f.Render()
	require.NoError(t, err)
	require.True(t, strings.Contains(out, "begin"))
	require.True(t, strings.Contains(out, "work"))

	info, err := f.Describe()
	require.NoError(t, err)
	require.Len(t, info.Nodes, 2)
	require.Len(t, info.Edges, 1)
}
