// Package services implements the HTTP client for the remote PDF merge service.
//
// # Merge Request
//
// [MergeService.Merge] sends one multipart/form-data POST to {base_url}{endpoint}. Each selected file becomes a part
// named after the configured field (default "files"), in list order, with its file name as the part filename. When page
// numbering is requested two extra fields are added:
//   - startingPageNo : first number to stamp
//   - pageNoPosition : TOP_LEFT, TOP_CENTER, TOP_RIGHT, BOTTOM_LEFT, BOTTOM_CENTER or BOTTOM_RIGHT
//
// The body is built in memory so its length is known, which lets the upload report byte progress through a
// [ProgressFunc]. Reports are throttled with [rate.Sometimes]; the final byte is always reported.
//
// # Errors
//
//   - [shared.ErrMergeFailed] : non-2xx status, the message carries the status and a trimmed body
//   - [shared.ErrServiceUnavailable] : health check failed
//
// Transport errors are wrapped with context and returned as is. Responses that do not look like a PDF are returned
// anyway and logged at warn level.
package services
