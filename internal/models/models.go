package models

import (
	"io"
	"time"
)

// Model defines the base interface for all persistent models.
type Model interface {
	ID() string           // ID returns the unique identifier for this model
	CreatedAt() time.Time // CreatedAt returns when this model was created
	UpdatedAt() time.Time // UpdatedAt returns when this model was last updated
	Validate() error      // Validate checks if the model's data is valid and returns an error if not
}

// Repository defines the interface for data access operations.
type Repository[T Model] interface {
	Create(model T) error                      // Create inserts a new model into the database
	Get(id string) (T, error)                  // Get retrieves a model by its ID
	Update(model T) error                      // Update modifies an existing model in the database
	Delete(id string) error                    // Delete removes a model from the database by its ID
	List(criteria map[string]any) ([]T, error) // List retrieves all models matching the given criteria
}

// FileID identifies a [SelectedFile] within one file list. Never reused by that list.
type FileID uint64

// Blob is a named binary document selected for merging.
type Blob interface {
	Name() string                 // Name is the display/file name sent as the multipart filename
	Size() int64                  // Size in bytes, -1 if unknown
	Open() (io.ReadCloser, error) // Open returns a fresh reader over the content
}

// SelectedFile is a [Blob] tracked by the file list, in merge order.
type SelectedFile struct {
	ID   FileID
	File Blob
}

// Name returns the underlying blob name.
func (s SelectedFile) Name() string {
	if s.File == nil {
		return ""
	}
	return s.File.Name()
}
