package indexer

import (
	"crypto/sha256"
	"encoding/hex"
)

// Stats tracks statistics about one indexing run.
type Stats struct {
	FilesIndexed          int     `json:"files_indexed"`
	BlobsAdded            int     `json:"blobs_added"`
	BlobsRemoved          int     `json:"blobs_removed"`
	BlobsUnchanged        int     `json:"blobs_unchanged"`
	TotalBytes            int64   `json:"total_bytes"`
	ProcessingTimeSeconds float64 `json:"processing_time_seconds"`
}

// BlobName identifies a file version: hex SHA-256 of the '/'-separated
// relative path, a NUL byte, then the content. The same content at a
// different path is a different blob.
func BlobName(relPath string, content []byte) string {
	h := sha256.New()
	h.Write([]byte(relPath))
	h.Write([]byte{0})
	h.Write(content)
	return hex.EncodeToString(h.Sum(nil))
}
