package documents

import "time"

// MaxFileSizeBytes is the upload size ceiling (10 MiB).
const MaxFileSizeBytes = 10 << 20

// FileType is the closed set of accepted document types.
type FileType string

const (
	FileTypePDF  FileType = "pdf"
	FileTypeJPEG FileType = "jpeg"
	FileTypePNG  FileType = "png"
)

// ParseFileType validates a raw file type value.
func ParseFileType(raw string) (FileType, bool) {
	switch FileType(raw) {
	case FileTypePDF, FileTypeJPEG, FileTypePNG:
		return FileType(raw), true
	}
	return "", false
}

// FileTypeForContentType maps an accepted content type to its file type.
func FileTypeForContentType(contentType string) (FileType, bool) {
	switch contentType {
	case "application/pdf":
		return FileTypePDF, true
	case "image/jpeg":
		return FileTypeJPEG, true
	case "image/png":
		return FileTypePNG, true
	}
	return "", false
}

// Display returns the human-readable label for the file type.
func (t FileType) Display() string {
	switch t {
	case FileTypePDF:
		return "PDF Document"
	case FileTypeJPEG:
		return "JPEG Image"
	case FileTypePNG:
		return "PNG Image"
	}
	return string(t)
}

// Document represents an uploaded document owned by a user.
type Document struct {
	ID              string
	UserID          string
	Title           string
	Description     string
	FileName        string
	ContentType     string
	FileType        FileType
	SizeBytes       int64
	StorageProvider string
	StorageKey      string
	Processed       bool
	UploadDate      time.Time
	CreatedAt       time.Time
	UpdatedAt       time.Time
}
