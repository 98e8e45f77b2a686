// Package files holds the ordered selection of documents to merge.
//
// [List] assigns every added file a [models.FileID] from a counter that only moves forward,
// so an id never refers to two different files over the lifetime of a list, even after removals.
//
// [Ingest] turns user supplied paths (picked, typed or dropped) into blobs,
// rejecting anything that does not sniff as a PDF unless configured otherwise.
package files
