// -----------------------------------------------------------------------
// Ingest service - orchestrates load, chunk, embed and index so a
// document only becomes queryable once every chunk is indexed
// -----------------------------------------------------------------------

package ingest

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/responsa-ai/responsa/internal/common"
	"github.com/responsa-ai/responsa/internal/interfaces"
	"github.com/responsa-ai/responsa/internal/models"
)

// Service runs the ingestion pipeline. Ingestion of the same document
// is serialized: a second caller gets IngestInProgressError instead of
// racing the first.
type Service struct {
	loader     interfaces.DocumentLoader
	chunker    interfaces.Chunker
	embeddings interfaces.EmbeddingClient
	index      interfaces.VectorIndex
	storage    interfaces.DocumentStorage
	chunkCfg   *common.ChunkerConfig
	logger     arbor.ILogger

	docLocks sync.Map // document id -> *sync.Mutex
}

// NewService wires the ingestion dependencies.
func NewService(loader interfaces.DocumentLoader, chunker interfaces.Chunker, embeddings interfaces.EmbeddingClient, index interfaces.VectorIndex, storage interfaces.DocumentStorage, chunkCfg *common.ChunkerConfig, logger arbor.ILogger) *Service {
	return &Service{
		loader:     loader,
		chunker:    chunker,
		embeddings: embeddings,
		index:      index,
		storage:    storage,
		chunkCfg:   chunkCfg,
		logger:     logger,
	}
}

// IngestFile loads a file and runs it through the full pipeline. An
// unchanged document that is already indexed is skipped unless force is
// set. The returned document carries its final status.
func (s *Service) IngestFile(ctx context.Context, path string, force bool) (*models.Document, error) {
	doc, err := s.loader.Load(ctx, path)
	if err != nil {
		return nil, err
	}
	return s.ingest(ctx, doc, force)
}

// IngestBytes ingests in-memory content under a caller-chosen name.
func (s *Service) IngestBytes(ctx context.Context, name string, data []byte, force bool) (*models.Document, error) {
	doc, err := s.loader.LoadBytes(ctx, name, data)
	if err != nil {
		return nil, err
	}
	return s.ingest(ctx, doc, force)
}

func (s *Service) ingest(ctx context.Context, doc *models.Document, force bool) (*models.Document, error) {
	lock := s.lockFor(doc.ID)
	if !lock.TryLock() {
		return nil, &models.IngestInProgressError{DocumentID: doc.ID}
	}
	defer lock.Unlock()

	start := time.Now()
	doc.Fingerprint = common.Fingerprint(doc.Text, s.chunkCfg.MaxTokens, s.chunkCfg.OverlapTokens)

	if !force {
		if existing, err := s.storage.GetDocument(doc.ID); err == nil &&
			existing.Status == models.StatusReady && existing.Fingerprint == doc.Fingerprint {
			s.logger.Info().
				Str("doc_id", doc.ID).
				Msg("Document unchanged and already indexed, skipping")
			return existing, nil
		}
	}

	doc.Status = models.StatusPending
	if err := s.storage.SaveDocument(doc); err != nil {
		return nil, err
	}

	chunks, err := s.chunker.Chunk(doc)
	if err != nil {
		return nil, err
	}

	if err := s.indexChunks(ctx, doc, chunks); err != nil {
		return doc, err
	}

	s.logger.Info().
		Str("doc_id", doc.ID).
		Str("name", doc.Name).
		Int("chunks", len(chunks)).
		Dur("duration", time.Since(start)).
		Msg("Document ingested")

	return doc, nil
}

// indexChunks embeds every chunk, then replaces the document's stored
// chunks and index points. Embedding completes for the whole document
// before anything is written, so a failed embed leaves the previous
// chunk generation fully intact in both storage and index; the
// document stays pending for the sweep to retry.
func (s *Service) indexChunks(ctx context.Context, doc *models.Document, chunks []*models.Chunk) error {
	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Text
	}

	vectors, err := s.embeddings.Embed(ctx, texts)
	if err != nil {
		var provErr *models.EmbeddingProviderError
		if errors.As(err, &provErr) {
			provErr.DocumentID = doc.ID
			return provErr
		}
		if _, ok := err.(*models.DimensionMismatchError); ok {
			return err
		}
		return &models.EmbeddingProviderError{DocumentID: doc.ID, Err: err}
	}

	if err := s.storage.DeleteChunksByDocument(doc.ID); err != nil {
		return err
	}
	if err := s.storage.SaveChunks(chunks); err != nil {
		return err
	}

	// Stale points from a previous version go first so a shrunk
	// document leaves no orphans behind
	if err := s.index.DeleteDocument(ctx, doc.ID); err != nil {
		return err
	}

	records := make([]*models.EmbeddingRecord, len(chunks))
	for i, c := range chunks {
		records[i] = &models.EmbeddingRecord{
			ChunkID: c.ID,
			Vector:  vectors[i],
			Metadata: models.ChunkMetadata{
				DocumentID:   doc.ID,
				DocumentName: doc.Name,
				Seq:          c.Seq,
				Page:         c.Page,
				Start:        c.Start,
				End:          c.End,
				Text:         c.Text,
			},
		}
	}
	if err := s.index.Upsert(ctx, records); err != nil {
		return err
	}

	doc.Status = models.StatusReady
	return s.storage.SaveDocument(doc)
}

// ProcessPending retries documents stuck in pending, typically after an
// embedding outage interrupted their first ingestion. Document text
// persists across restarts, so the chunk, embed and index stages rerun
// from storage. Limit bounds one sweep; zero means no bound.
func (s *Service) ProcessPending(ctx context.Context, limit int) (int, error) {
	docs, err := s.storage.ListDocuments(&interfaces.ListOptions{
		Status: models.StatusPending,
		Limit:  limit,
	})
	if err != nil {
		return 0, err
	}

	processed := 0
	for _, doc := range docs {
		if err := ctx.Err(); err != nil {
			return processed, err
		}
		if err := s.reprocess(ctx, doc); err != nil {
			s.logger.Warn().
				Str("doc_id", doc.ID).
				Err(err).
				Msg("Pending document reprocess failed, will retry next sweep")
			continue
		}
		processed++
	}
	return processed, nil
}

func (s *Service) reprocess(ctx context.Context, doc *models.Document) error {
	lock := s.lockFor(doc.ID)
	if !lock.TryLock() {
		return &models.IngestInProgressError{DocumentID: doc.ID}
	}
	defer lock.Unlock()

	chunks, err := s.chunker.Chunk(doc)
	if err != nil {
		return err
	}
	return s.indexChunks(ctx, doc, chunks)
}

// DeleteDocument removes a document from the index and storage.
func (s *Service) DeleteDocument(ctx context.Context, documentID string) error {
	lock := s.lockFor(documentID)
	if !lock.TryLock() {
		return &models.IngestInProgressError{DocumentID: documentID}
	}
	defer lock.Unlock()

	if err := s.index.DeleteDocument(ctx, documentID); err != nil {
		return err
	}
	if err := s.storage.DeleteDocument(documentID); err != nil {
		return err
	}

	s.logger.Info().Str("doc_id", documentID).Msg("Document deleted")
	return nil
}

func (s *Service) lockFor(documentID string) *sync.Mutex {
	lock, _ := s.docLocks.LoadOrStore(documentID, &sync.Mutex{})
	return lock.(*sync.Mutex)
}
