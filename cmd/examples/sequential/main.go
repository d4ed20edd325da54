// A minimal sequential pipeline: three steps run in order, each receiving
// the previous step's output, with lifecycle events printed as they happen.
package main

import (
	"context"
	"fmt"
	"log"

	"github.com/flowstone-io/flowstone/pkg/events"
	"github.com/flowstone-io/flowstone/pkg/flow"
)

func main() {
	f := flow.New("arithmetic").
		Start("begin", func(_ context.Context, input any) (any, error) {
			return input, nil
		}).
		Step("double", func(_ context.Context, input any) (any, error) {
			return input.(int) * 2, nil
		}, flow.After("begin")).
		Step("addOne", func(_ context.Context, input any) (any, error) {
			return input.(int) + 1, nil
		}, flow.After("double"))

	f.Bus().On(events.Wildcard, func(e events.Event) {
		fmt.Printf("event: %-15s source=%s\n", e.Type, e.Source)
	})

	if findings, err := f.Validate(); err != nil {
		log.Fatalf("build failed: %v", err)
	} else if len(findings) > 0 {
		log.Fatalf("graph findings: %v", findings)
	}

	fctx, err := f.Run(context.Background(), 3)
	if err != nil {
		log.Fatalf("run failed: %v", err)
	}

	fmt.Printf("output: %v\n", fctx.Output())
	fmt.Printf("steps:  %v\n", fctx.CompletedSteps())
}
