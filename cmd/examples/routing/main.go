// A data-dependent branch: a router step inspects its input and returns the
// name of the step that should run next.
package main

import (
	"context"
	"fmt"
	"log"

	"github.com/flowstone-io/flowstone/pkg/flow"
)

func main() {
	f := flow.New("triage").
		Start("intake", func(_ context.Context, input any) (any, error) {
			return input, nil
		}).
		Router("classify", func(_ context.Context, input any) (any, error) {
			if input.(int) >= 100 {
				return "escalate", nil
			}
			return "autoclose", nil
		}, flow.After("intake"), flow.Routes("escalate", "autoclose")).
		Step("escalate", func(_ context.Context, input any) (any, error) {
			return fmt.Sprintf("ticket %d assigned to an operator", input), nil
		}).
		Step("autoclose", func(_ context.Context, input any) (any, error) {
			return fmt.Sprintf("ticket %d closed automatically", input), nil
		})

	for _, severity := range []int{42, 250} {
		fctx, err := f.Run(context.Background(), severity)
		if err != nil {
			log.Fatalf("run failed: %v", err)
		}
		fmt.Println(fctx.Output())
	}
}
