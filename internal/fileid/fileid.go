// Package fileid derives deterministic identifiers from uploaded file content.
package fileid

import (
	"crypto/sha256"
	"encoding/hex"
)

const prefix = "sha256:"

// ContentID returns a stable identifier for content. Identical bytes always yield the
// same ID, so re-uploading a transcript can be recognised regardless of its file name.
func ContentID(content []byte) string {
	hash := sha256.Sum256(content)
	return prefix + hex.EncodeToString(hash[:])
}
