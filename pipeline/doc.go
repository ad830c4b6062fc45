// Package pipeline provides orchestration for the extraction pipeline.
//
// The Orchestrator type manages one full run over a collected snapshot set:
//   - Loading snapshot files into typed raw entities
//   - Running one Processor per enabled entity type
//   - Writing canonical document streams and run metadata
//   - Recording the run in the history store
//
// Cleaning and extraction fan out over a bounded worker pool; tagging is
// batched against the configured backend; assembly and the canonical writes
// happen in stable input-derived order. Entity-local failures are logged and
// counted but never fail the run.
package pipeline
