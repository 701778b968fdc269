// Package pipeline composes transforms into an ordered, reusable sequence.
//
// # Overview
//
// A Pipeline holds Transforms in push order and applies them left to right:
// the output of step i is the input of step i+1. Apply works on a deep copy,
// so the caller's Series is never observably altered, even when a step fails.
// ApplyInPlace writes the final result back into the caller's Series.
//
// # Basic Usage
//
//	p := pipeline.New().
//		Push(transform.InterpolateToCount{N: 200}).
//		Push(transform.IndexToTime{}).
//		Push(transform.Translate{Offset: 3.5}).
//		Push(transform.Normalize{Min: -1, Max: 1})
//
//	out, err := p.Apply(s)
//	fmt.Println(p) // Pipeline: [interpolate_to_count(n=200) | index_to_time | ...]
//
// # Declarative Steps
//
// Pipelines can also be described as data, which is how the CLI reads them
// from YAML:
//
//	steps:
//	  - op: interpolate_by_factor
//	    factor: 2
//	  - op: normalize
//	    min: -1
//	    max: 1
//
//	p, err := pipeline.FromSteps(steps)
//
// # Monitoring
//
// Every applied step is timed into the timescale_transform_duration_seconds
// histogram, labelled by the transform kind.
package pipeline
