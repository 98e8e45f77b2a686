// Package tasks runs merge uploads end to end with real-time progress reporting.
//
// # Core Operations
//
//  1. [MergeEngine.Run] : merge one ordered selection
//     - Starts an [upload.Machine] attempt
//     - Uploads the files through a [services.Merger]
//     - Saves the result into the output directory (generated.pdf, generated-2.pdf, ...)
//     - Records the outcome when a [MergeRecorder] is configured
//
//  2. [MergeEngine.BatchMerge] : merge several selections concurrently
//     - Worker pool bounded to 10 workers
//     - Jobs are rate limited with [rate.Limiter]
//     - Writes a JSON manifest of the results
//
// The building blocks [MergeEngine.Send], [MergeEngine.Save] and [MergeEngine.Record] are exported for callers that
// drive the upload machine themselves (the TUI).
//
// # Progress Reporting
//
// All operations use non-blocking channels for progress updates.
//
// The [ProgressUpdate] struct contains phase, step counters, messages, and optional data for advanced UI rendering.
// Updates use select with default to prevent blocking.
//
// # History
//
// The optional [MergeRecorder] interface persists every outcome (repositories.MergeRepository).
//
// Recording errors are logged and otherwise ignored so they never turn a saved merge into a failure.
package tasks
