// Package models defines domain entities and persistence interfaces for pdfx.
//
// The package contains two categories of types:
//
// 1. Selection types: what the user is about to merge
//   - [SelectedFile] : a [Blob] paired with a list-local [FileID]
//   - [PageNumbering] : optional page numbering request sent with a merge
//
// 2. Persistent entities: database-backed history
//   - [MergeRecord] : one merge attempt, succeeded or failed
//
// Persistent entities implement the [Model] interface; [Repository] defines standard CRUD operations.
package models
