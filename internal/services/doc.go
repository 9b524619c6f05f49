// Package services defines shared utilities consumed by the reconciliation
// pipeline stages and the registration store boundary.
//
// Key responsibilities:
//   - Context helpers that stamp run IDs, training IDs, and stage names for
//     logging.
//   - Structured error markers plus the Wrap helper that keep the failure
//     category (malformed input, empty input, invalid configuration,
//     persistence) attached to otherwise free-form error messages.
//
// Use these helpers when wiring new stage logic so operational behaviour
// (error handling, observability) stays uniform across the pipeline.
package services
