package observe_test

import (
	"context"
	"errors"
	"fmt"

	"github.com/jonwraymond/breadcrumb/observe"
)

func ExampleNewObserver() {
	cfg := observe.Config{
		ServiceName: "trailctl",
		Version:     "1.0.0",
		Tracing:     observe.TracingConfig{Enabled: true, Exporter: "none", SamplePct: 1},
		Logging:     observe.LoggingConfig{Enabled: true, Level: "info"},
	}

	ctx := context.Background()
	obs, err := observe.NewObserver(ctx, cfg)
	if err != nil {
		fmt.Println("error:", err)
		return
	}
	defer func() { _ = obs.Shutdown(ctx) }()

	fmt.Println("observer ready")
	// Output:
	// observer ready
}

func ExampleConfig_Validate() {
	var cfg observe.Config
	err := cfg.Validate()
	fmt.Println(errors.Is(err, observe.ErrMissingServiceName))
	// Output:
	// true
}

func ExampleMiddleware_Wrap() {
	mw := observe.NewMiddleware(observe.NopTracer(), observe.NopMetrics(), observe.NopLogger())

	build := mw.Wrap(func(ctx context.Context, page observe.PageMeta) (int, error) {
		return 2, nil
	})

	n, err := build(context.Background(), observe.PageMeta{Title: "Docs/Guide/Install"})
	fmt.Println(n, err)
	// Output:
	// 2 <nil>
}
