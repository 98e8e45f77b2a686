// Package server provides HTTP routing, middleware, and a local PDF merge service for development and offline use.
//
// # Router Infrastructure
//
// The [Router] interface defines HTTP routing with middleware support.
//
// [Middleware] wraps handlers in reverse order (last added executes first), following the standard Go pattern.
//
// The [BasicRouter] implementation uses [http.ServeMux] internally with method filtering.
//
// # Merge Endpoint
//
// [MergeHandler] serves POST /pdf/merge with the same contract as the remote service the client talks to:
//   - repeated "files" parts, merged in the order received
//   - optional startingPageNo and pageNoPosition fields stamp page numbers
//   - the response is the merged document as application/pdf
//
// Errors are JSON bodies of the form {"error": "..."}:
//   - 400 : no file parts, unreadable form, invalid page numbering
//   - 413 : body larger than server.max_upload_mb
//   - 415 : a part is not a PDF
//   - 422 : the documents could not be merged
//
// Merging is delegated to a [Merger]; [PDFCPUMerger] uses pdfcpu with relaxed validation.
//
// # Handler Interface
//
// Custom handlers implement the [Handler] interface, which wraps the stdlib handler interface and adds routes,
// allowing handlers to register multiple routes to encapsulate route definitions within the implementation.
package server
