package db

type Session struct {
	ID        string
	ProjectID string
	CreatedAt int64
}

// File is one saved version of a document. CreatedAt is in milliseconds.
type File struct {
	ID        string
	SessionID string
	URI       string
	Content   string
	Version   int64
	CreatedAt int64
}
