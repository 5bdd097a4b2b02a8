package documents

import "context"

// ListQuery narrows and orders a user's document listing.
type ListQuery struct {
	FileType  *FileType
	Processed *bool
	Search    string
	OrderBy   string // created_at, updated_at or title
	Ascending bool
	Limit     int
	Offset    int
}

// DocumentsRepo defines persistence operations for documents.
// Reads are scoped by owner so a caller can never observe another
// user's records; GetAnyByID is the one unscoped lookup and exists
// solely so delete can distinguish "not yours" from "not there".
type DocumentsRepo interface {
	Create(ctx context.Context, doc Document) error
	GetByID(ctx context.Context, userID, documentID string) (Document, error)
	GetAnyByID(ctx context.Context, documentID string) (Document, error)
	ListByUser(ctx context.Context, userID string, q ListQuery) ([]Document, error)
	Delete(ctx context.Context, documentID string) error
	MarkProcessed(ctx context.Context, documentID string) error
}
