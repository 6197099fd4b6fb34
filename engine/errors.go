// Package engine implements the conviction-weighted position-sizing and
// portfolio-rebalancing core: conviction normalization, capital allocation
// under per-position and per-sector caps, order diffing with SELL-before-BUY
// sequencing, and constraint validation.
//
// Every function here is pure and synchronous. PortfolioState is an immutable
// snapshot supplied by the caller; no I/O, caching, or clock access happens
// inside the engine (the validator takes an explicit `now`).
package engine

import "fmt"

// InvalidScoreError reports a malformed conviction input. Invalid scores are
// never silently defaulted or clamped into range: a 95 on a declared 1-10
// scale is a caller bug that must surface, not become weight 1.0.
type InvalidScoreError struct {
	Score    float64
	ScaleMax float64
	Reason   string
}

func (e *InvalidScoreError) Error() string {
	return fmt.Sprintf("invalid conviction score %v on scale max %v: %s", e.Score, e.ScaleMax, e.Reason)
}

// ConfigError reports a structurally invalid allocation or constraint
// configuration. It is raised at construction time so misconfiguration fails
// before any cycle runs.
type ConfigError struct {
	Field  string
	Value  interface{}
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("invalid config %s=%v: %s", e.Field, e.Value, e.Reason)
}
