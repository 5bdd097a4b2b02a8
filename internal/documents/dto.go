package documents

import "time"

// DocumentResponse is the outward-facing representation of a document.
type DocumentResponse struct {
	DocumentID      string    `json:"documentId"`
	Title           string    `json:"title"`
	Description     string    `json:"description,omitempty"`
	FileName        string    `json:"fileName"`
	ContentType     string    `json:"contentType"`
	FileType        FileType  `json:"fileType"`
	FileTypeDisplay string    `json:"fileTypeDisplay"`
	SizeBytes       int64     `json:"sizeBytes"`
	Processed       bool      `json:"processed"`
	UploadDate      time.Time `json:"uploadDate"`
	CreatedAt       time.Time `json:"createdAt"`
	UpdatedAt       time.Time `json:"updatedAt"`

	// Scans is populated on the detail view only.
	Scans any `json:"scans,omitempty"`
}

func toResponse(doc Document) DocumentResponse {
	return DocumentResponse{
		DocumentID:      doc.ID,
		Title:           doc.Title,
		Description:     doc.Description,
		FileName:        doc.FileName,
		ContentType:     doc.ContentType,
		FileType:        doc.FileType,
		FileTypeDisplay: doc.FileType.Display(),
		SizeBytes:       doc.SizeBytes,
		Processed:       doc.Processed,
		UploadDate:      doc.UploadDate,
		CreatedAt:       doc.CreatedAt,
		UpdatedAt:       doc.UpdatedAt,
	}
}
