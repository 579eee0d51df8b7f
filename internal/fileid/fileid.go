// Package fileid derives stable document and chunk IDs.
package fileid

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"path/filepath"
	"strings"
)

const prefix = "file:"

// FileDocID returns a stable document ID for the given absolute path.
// Re-indexing the same path updates the same document.
func FileDocID(absolutePath string) string {
	normalized := filepath.Clean(absolutePath)
	hash := sha256.Sum256([]byte(normalized))
	return prefix + hex.EncodeToString(hash[:16])
}

// IsFileDocID reports whether id was produced by FileDocID.
func IsFileDocID(id string) bool {
	return strings.HasPrefix(id, prefix)
}

// ChunkID returns the ID of the n-th chunk of a document.
func ChunkID(docID string, n int) string {
	return fmt.Sprintf("%s_%d", docID, n)
}
