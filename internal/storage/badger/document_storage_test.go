package badger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"
	"github.com/timshannon/badgerhold/v4"

	"github.com/responsa-ai/responsa/internal/interfaces"
	"github.com/responsa-ai/responsa/internal/models"
)

func newTestStorage(t *testing.T) interfaces.DocumentStorage {
	t.Helper()

	tmpDir := t.TempDir()
	options := badgerhold.DefaultOptions
	options.Dir = tmpDir
	options.ValueDir = tmpDir
	options.Logger = nil

	store, err := badgerhold.Open(options)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	db := &BadgerDB{store: store}
	return NewDocumentStorage(db, arbor.NewLogger())
}

func testDoc(id, status string) *models.Document {
	return &models.Document{
		ID:     id,
		Name:   id + ".txt",
		Format: models.FormatText,
		Text:   "body of " + id,
		Status: status,
	}
}

func TestDocumentRoundTrip(t *testing.T) {
	storage := newTestStorage(t)

	doc := testDoc("doc_a", models.StatusPending)
	require.NoError(t, storage.SaveDocument(doc))
	assert.False(t, doc.CreatedAt.IsZero())

	loaded, err := storage.GetDocument("doc_a")
	require.NoError(t, err)
	assert.Equal(t, doc.Name, loaded.Name)
	assert.Equal(t, doc.Text, loaded.Text)
	assert.Equal(t, models.StatusPending, loaded.Status)

	// Saving again updates in place
	doc.Status = models.StatusReady
	require.NoError(t, storage.SaveDocument(doc))
	loaded, err = storage.GetDocument("doc_a")
	require.NoError(t, err)
	assert.Equal(t, models.StatusReady, loaded.Status)
}

func TestGetDocument_NotFound(t *testing.T) {
	storage := newTestStorage(t)

	_, err := storage.GetDocument("doc_missing")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}

func TestListDocuments_FiltersByStatus(t *testing.T) {
	storage := newTestStorage(t)

	require.NoError(t, storage.SaveDocument(testDoc("doc_a", models.StatusReady)))
	require.NoError(t, storage.SaveDocument(testDoc("doc_b", models.StatusPending)))
	require.NoError(t, storage.SaveDocument(testDoc("doc_c", models.StatusPending)))

	pending, err := storage.ListDocuments(&interfaces.ListOptions{Status: models.StatusPending})
	require.NoError(t, err)
	assert.Len(t, pending, 2)

	all, err := storage.ListDocuments(nil)
	require.NoError(t, err)
	assert.Len(t, all, 3)

	limited, err := storage.ListDocuments(&interfaces.ListOptions{Status: models.StatusPending, Limit: 1})
	require.NoError(t, err)
	assert.Len(t, limited, 1)
}

func TestChunkRoundTrip(t *testing.T) {
	storage := newTestStorage(t)

	chunks := []*models.Chunk{
		{ID: models.ChunkID("doc_a", 0), DocumentID: "doc_a", Seq: 0, Text: "first"},
		{ID: models.ChunkID("doc_a", 1), DocumentID: "doc_a", Seq: 1, Text: "second", PrevID: models.ChunkID("doc_a", 0)},
	}
	require.NoError(t, storage.SaveChunks(chunks))

	chunk, err := storage.GetChunk("doc_a:0001")
	require.NoError(t, err)
	assert.Equal(t, "second", chunk.Text)
	assert.Equal(t, "doc_a:0000", chunk.PrevID)
}

func TestGetChunksByDocument_OrderedBySeq(t *testing.T) {
	storage := newTestStorage(t)

	// Saved out of order
	require.NoError(t, storage.SaveChunks([]*models.Chunk{
		{ID: models.ChunkID("doc_a", 2), DocumentID: "doc_a", Seq: 2, Text: "third"},
		{ID: models.ChunkID("doc_a", 0), DocumentID: "doc_a", Seq: 0, Text: "first"},
		{ID: models.ChunkID("doc_a", 1), DocumentID: "doc_a", Seq: 1, Text: "second"},
		{ID: models.ChunkID("doc_b", 0), DocumentID: "doc_b", Seq: 0, Text: "other doc"},
	}))

	chunks, err := storage.GetChunksByDocument("doc_a")
	require.NoError(t, err)
	require.Len(t, chunks, 3)
	for i, c := range chunks {
		assert.Equal(t, i, c.Seq)
	}
}

func TestDeleteDocument_RemovesChunks(t *testing.T) {
	storage := newTestStorage(t)

	require.NoError(t, storage.SaveDocument(testDoc("doc_a", models.StatusReady)))
	require.NoError(t, storage.SaveChunks([]*models.Chunk{
		{ID: models.ChunkID("doc_a", 0), DocumentID: "doc_a", Seq: 0, Text: "first"},
		{ID: models.ChunkID("doc_a", 1), DocumentID: "doc_a", Seq: 1, Text: "second"},
	}))

	require.NoError(t, storage.DeleteDocument("doc_a"))

	_, err := storage.GetDocument("doc_a")
	assert.Error(t, err)

	chunks, err := storage.GetChunksByDocument("doc_a")
	require.NoError(t, err)
	assert.Empty(t, chunks)

	// Deleting again is a no-op
	assert.NoError(t, storage.DeleteDocument("doc_a"))
}

func TestSaveChunks_ReplacesOnSameID(t *testing.T) {
	storage := newTestStorage(t)

	require.NoError(t, storage.SaveChunks([]*models.Chunk{
		{ID: models.ChunkID("doc_a", 0), DocumentID: "doc_a", Seq: 0, Text: "original"},
	}))
	require.NoError(t, storage.SaveChunks([]*models.Chunk{
		{ID: models.ChunkID("doc_a", 0), DocumentID: "doc_a", Seq: 0, Text: "replaced"},
	}))

	chunks, err := storage.GetChunksByDocument("doc_a")
	require.NoError(t, err)
	require.Len(t, chunks, 1)
	assert.Equal(t, "replaced", chunks[0].Text)
}
