package common

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewDocumentID(t *testing.T) {
	a := NewDocumentID()
	b := NewDocumentID()

	assert.True(t, strings.HasPrefix(a, "doc_"))
	assert.NotEqual(t, a, b)
}

func TestDocumentIDFromPath_Stable(t *testing.T) {
	a := DocumentIDFromPath("/contracts/Master Agreement (v2).PDF")
	b := DocumentIDFromPath("/contracts/Master Agreement (v2).PDF")
	c := DocumentIDFromPath("/archive/Master Agreement (v2).PDF")

	assert.Equal(t, a, b, "same path must map to the same id")
	assert.NotEqual(t, a, c, "different paths must not collide")
	assert.True(t, strings.HasPrefix(a, "doc_master-agreement--v2-_"))
}

func TestFingerprint(t *testing.T) {
	base := Fingerprint("some document text", 2000, 200)

	assert.Equal(t, base, Fingerprint("some document text", 2000, 200))
	assert.NotEqual(t, base, Fingerprint("other document text", 2000, 200))
	// Chunking parameters are part of the identity: a parameter change
	// must trigger re-ingestion even for identical text
	assert.NotEqual(t, base, Fingerprint("some document text", 1000, 200))
	assert.NotEqual(t, base, Fingerprint("some document text", 2000, 100))
}
