package config_test

import (
	"fmt"
	"log"

	"github.com/timescale-go/timescale/pkg/config"
)

// ExampleNewDefault demonstrates the default configuration.
func ExampleNewDefault() {
	cfg := config.NewDefault()

	fmt.Printf("Method: %s\n", cfg.Align.Method)
	fmt.Printf("Budget: %d + %d\n", cfg.Align.Points, cfg.Align.Iterations)
	fmt.Printf("Scale freedom: %g\n", cfg.Search.ScaleFreedom)

	// Output:
	// Method: correlation
	// Budget: 100 + 20
	// Scale freedom: 1.6
}

// ExampleConfig_Validate shows how to validate a configuration
// before using it.
func ExampleConfig_Validate() {
	cfg := config.NewDefault()
	cfg.Align.Method = "function sum"
	cfg.Search.Strategy = "grid"

	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	settings, _ := cfg.Align.Settings()
	fmt.Println("Configuration is valid!")
	fmt.Println(settings.Method)

	// Output:
	// Configuration is valid!
	// sum
}

// ExampleSearchConfig_ToBounds converts an explicit search region.
func ExampleSearchConfig_ToBounds() {
	cfg := config.NewDefault()
	cfg.Search.Bounds = &config.BoundsConfig{ScaleMin: 0.5, ScaleMax: 2, OffsetMin: -10, OffsetMax: 10}

	b := cfg.Search.ToBounds()
	fmt.Println(b.Scale.Min, b.Scale.Max, b.Offset.Min, b.Offset.Max)

	// Output:
	// 0.5 2 -10 10
}
