package storage

import (
	"io"
	"path/filepath"

	"github.com/google/uuid"
)

type UsageStats struct {
	TotalBytes uint64
	FreeBytes  uint64
}

// Storage is the blob store backing uploaded document files. Records reference
// blobs by the relative paths produced by the *Path helpers below.
type Storage interface {
	Read(path string) (io.ReadCloser, error)

	Write(path string, data io.Reader) error

	Delete(path string) error

	Exists(path string) (bool, error)

	List(path string) ([]string, error)

	Size(path string) (int64, error)

	Usage() (UsageStats, error)

	Location() string
}

func HRDocumentPath(documentId uuid.UUID, filename string) string {
	return filepath.Join("hr_documents", documentId.String(), filename)
}

func ProjectDocumentPath(documentId uuid.UUID, filename string) string {
	return filepath.Join("project_documents", documentId.String(), filename)
}

func ContractorDocumentPath(contractorId uuid.UUID, filename string) string {
	return filepath.Join("contractor_documents", contractorId.String(), filename)
}
