// Explicit fan-out and join: three workers run concurrently on the same
// input and a join step gathers their outputs in declaration order. The run
// is checkpointed afterwards and restored to show the round trip.
package main

import (
	"context"
	"fmt"
	"log"

	"github.com/flowstone-io/flowstone/pkg/checkpoints"
	"github.com/flowstone-io/flowstone/pkg/flow"
)

func mul(factor int) flow.Handler {
	return func(_ context.Context, input any) (any, error) {
		return input.(int) * factor, nil
	}
}

func main() {
	f := flow.New("spread")
	err := f.Begin("begin", nil).
		ThenAll(
			flow.Member{Name: "x2", Handler: mul(2)},
			flow.Member{Name: "x3", Handler: mul(3)},
			flow.Member{Name: "x4", Handler: mul(4)},
		).
		Join("sum", func(_ context.Context, input any) (any, error) {
			total := 0
			for _, v := range input.([]any) {
				total += v.(int)
			}
			return total, nil
		}).
		Err()
	if err != nil {
		log.Fatalf("build failed: %v", err)
	}

	ctx := context.Background()
	fctx, err := f.Run(ctx, 10)
	if err != nil {
		log.Fatalf("run failed: %v", err)
	}
	fmt.Printf("sum: %v\n", fctx.Output())

	store := checkpoints.NewMemoryStore()
	if err := store.Save(ctx, checkpoints.Capture(fctx)); err != nil {
		log.Fatalf("checkpoint failed: %v", err)
	}
	cp, err := store.Load(ctx, fctx.FlowID())
	if err != nil {
		log.Fatalf("load failed: %v", err)
	}
	restored, err := checkpoints.Restore(cp)
	if err != nil {
		log.Fatalf("restore failed: %v", err)
	}
	fmt.Printf("restored flow %s in status %s with %d step results\n",
		restored.FlowID(), restored.Status(), len(restored.Results()))
}
