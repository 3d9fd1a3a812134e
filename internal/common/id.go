package common

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// NewDocumentID generates a unique document ID with the "doc_" prefix
// Format: doc_<uuid>
func NewDocumentID() string {
	return "doc_" + uuid.New().String()
}

// NewQueryID generates a unique query ID with the "qry_" prefix
func NewQueryID() string {
	return "qry_" + uuid.New().String()
}

// DocumentIDFromPath derives a stable document id from a source path so
// re-ingesting the same file supersedes the prior version instead of
// duplicating it. The base name is kept for readability, suffixed with
// a short digest of the full path.
func DocumentIDFromPath(path string) string {
	base := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	base = strings.ToLower(strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return r
		default:
			return '-'
		}
	}, base))
	sum := sha256.Sum256([]byte(path))
	return fmt.Sprintf("doc_%s_%s", base, hex.EncodeToString(sum[:4]))
}

// Fingerprint hashes normalized document text together with the chunking
// parameters. Identical fingerprints mean re-ingestion would produce an
// identical chunk set and can be skipped.
func Fingerprint(text string, maxTokens, overlapTokens int) string {
	h := sha256.New()
	fmt.Fprintf(h, "%d:%d:", maxTokens, overlapTokens)
	h.Write([]byte(text))
	return hex.EncodeToString(h.Sum(nil))
}
