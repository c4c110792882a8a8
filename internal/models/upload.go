package models

import "time"

// UploadKind categorises stored files.
type UploadKind string

const (
	UploadKindReceipt UploadKind = "RECEIPT"
	UploadKindBanner  UploadKind = "BANNER"
)

// Valid reports whether the kind is a known value.
func (k UploadKind) Valid() bool {
	switch k {
	case UploadKindReceipt, UploadKindBanner:
		return true
	}
	return false
}

// UploadedFile represents stored file metadata.
type UploadedFile struct {
	ID           string     `db:"id" json:"id"`
	Kind         UploadKind `db:"kind" json:"kind"`
	OriginalName string     `db:"original_name" json:"original_name"`
	FilePath     string     `db:"file_path" json:"-"`
	MimeType     string     `db:"mime_type" json:"mime_type"`
	SizeBytes    int64      `db:"size_bytes" json:"size_bytes"`
	UploadedBy   *string    `db:"uploaded_by" json:"uploaded_by,omitempty"`
	CreatedAt    time.Time  `db:"created_at" json:"created_at"`
}

// UploadFilter narrows uploaded file listings.
type UploadFilter struct {
	Kind     string
	Page     int
	PageSize int
}
