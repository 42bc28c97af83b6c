package domain

import "time"

// Document is an uploaded source file. The payload lives in the object
// store; only metadata is kept here.
type Document struct {
	ID         string
	ProjectID  string
	Filename   string
	Mime       string
	StorageURI string
	Metadata   map[string]any
	IsDeleted  bool
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// DocumentVersion is one parsed revision of a document. Segment sets hang
// off a document version, not the document itself.
type DocumentVersion struct {
	ID          string
	DocumentID  string
	ContentHash string
	Params      map[string]any
	IsActive    bool
	IsDeleted   bool
	CreatedAt   time.Time
}
