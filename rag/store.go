// Package rag implements the local knowledge base behind the assistant:
// document chunking, embeddings from an OpenAI-compatible endpoint, and a
// Badger-persisted vector index searched by cosine similarity.
package rag

import (
	"context"
	"fmt"
	"log"
	"path/filepath"
	"strings"
	"sync"

	badger "github.com/dgraph-io/badger/v4"
	"github.com/vmihailenco/msgpack/v5"
)

// Search defaults: up to DefaultTopK chunks, dropping matches whose
// cosine similarity falls below SearchThreshold.
const (
	DefaultTopK     = 3
	SearchThreshold = 0.5
)

var chunkPrefix = []byte("chunk/")

// Hit is one knowledge-base chunk matched by a search.
type Hit struct {
	Text   string
	Source string
	Score  float32
}

type chunkRecord struct {
	ID     string    `msgpack:"id"`
	Source string    `msgpack:"source"`
	Index  int       `msgpack:"index"`
	Text   string    `msgpack:"text"`
	Vector []float32 `msgpack:"vector"`
}

// Store persists embedded document chunks in Badger and serves
// similarity searches from an in-memory index rebuilt on open.
type Store struct {
	db    *badger.DB
	embed Embedder

	mu    sync.RWMutex
	index *Index
}

// OpenStore opens the knowledge base at dir, loading any persisted
// chunks into the index. An empty dir runs Badger in memory, which is
// how tests use it.
func OpenStore(dir string, embed Embedder) (*Store, error) {
	opts := badger.DefaultOptions(dir).WithLogger(badgerLogger{})
	if dir == "" {
		opts = opts.WithInMemory(true)
	}
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open knowledge base: %w", err)
	}
	s := &Store{db: db, embed: embed, index: NewIndex()}
	if err := s.load(); err != nil {
		db.Close()
		return nil, fmt.Errorf("load knowledge base: %w", err)
	}
	return s, nil
}

func (s *Store) load() error {
	var ids []string
	var vectors [][]float32
	err := s.db.View(func(txn *badger.Txn) error {
		iterOpts := badger.DefaultIteratorOptions
		iterOpts.Prefix = chunkPrefix
		it := txn.NewIterator(iterOpts)
		defer it.Close()
		for it.Seek(chunkPrefix); it.ValidForPrefix(chunkPrefix); it.Next() {
			val, err := it.Item().ValueCopy(nil)
			if err != nil {
				return err
			}
			var rec chunkRecord
			if err := msgpack.Unmarshal(val, &rec); err != nil {
				return err
			}
			ids = append(ids, rec.ID)
			vectors = append(vectors, rec.Vector)
		}
		return nil
	})
	if err != nil {
		return err
	}
	return s.index.BatchInsert(ids, vectors)
}

// AddChunks embeds the given chunks of one source document and upserts
// them. Chunk ids derive from the source name, so re-ingesting a file
// replaces its previous chunks. Returns the number of chunks stored.
func (s *Store) AddChunks(ctx context.Context, source string, texts []string) (int, error) {
	if len(texts) == 0 {
		return 0, nil
	}
	vectors, err := s.embed.EmbedBatch(ctx, texts)
	if err != nil {
		return 0, fmt.Errorf("embed %s: %w", source, err)
	}

	stem := strings.TrimSuffix(source, filepath.Ext(source))
	ids := make([]string, len(texts))
	wb := s.db.NewWriteBatch()
	defer wb.Cancel()
	for i, text := range texts {
		ids[i] = fmt.Sprintf("%s_%d", stem, i)
		rec := chunkRecord{
			ID:     ids[i],
			Source: source,
			Index:  i,
			Text:   text,
			Vector: vectors[i],
		}
		val, err := msgpack.Marshal(rec)
		if err != nil {
			return 0, err
		}
		if err := wb.Set(chunkKey(ids[i]), val); err != nil {
			return 0, err
		}
	}
	if err := wb.Flush(); err != nil {
		return 0, fmt.Errorf("persist %s: %w", source, err)
	}

	s.mu.RLock()
	idx := s.index
	s.mu.RUnlock()
	if err := idx.BatchInsert(ids, vectors); err != nil {
		return 0, err
	}
	return len(texts), nil
}

// Search embeds the query and returns the closest chunks with a
// similarity score of at least SearchThreshold, best first.
func (s *Store) Search(ctx context.Context, query string, topK int) ([]Hit, error) {
	vec, err := s.embed.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	s.mu.RLock()
	idx := s.index
	s.mu.RUnlock()

	var hits []Hit
	for _, m := range idx.Search(vec, topK) {
		score := 1 - m.Distance
		if score < SearchThreshold {
			continue
		}
		rec, err := s.getRecord(m.ID)
		if err != nil {
			return nil, err
		}
		hits = append(hits, Hit{Text: rec.Text, Source: rec.Source, Score: score})
	}
	return hits, nil
}

func (s *Store) getRecord(id string) (chunkRecord, error) {
	var rec chunkRecord
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(chunkKey(id))
		if err != nil {
			return err
		}
		val, err := item.ValueCopy(nil)
		if err != nil {
			return err
		}
		return msgpack.Unmarshal(val, &rec)
	})
	if err != nil {
		return chunkRecord{}, fmt.Errorf("read chunk %s: %w", id, err)
	}
	return rec, nil
}

// Drop deletes every stored chunk and resets the index.
func (s *Store) Drop() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.db.DropAll(); err != nil {
		return err
	}
	s.index = NewIndex()
	return nil
}

// Len returns the number of indexed chunks.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.index.Len()
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

func chunkKey(id string) []byte {
	return append(append([]byte(nil), chunkPrefix...), id...)
}

// badgerLogger keeps badger quiet except for real problems.
type badgerLogger struct{}

func (badgerLogger) Errorf(f string, v ...interface{})   { log.Printf("[badger] ERROR: "+f, v...) }
func (badgerLogger) Warningf(f string, v ...interface{}) { log.Printf("[badger] WARN: "+f, v...) }
func (badgerLogger) Infof(string, ...interface{})        {}
func (badgerLogger) Debugf(string, ...interface{})       {}
