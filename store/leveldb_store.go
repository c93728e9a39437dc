package store

import (
	"bytes"
	"context"
	"encoding/binary"
	"encoding/gob"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/iterator"
	"github.com/syndtr/goleveldb/leveldb/opt"
	"github.com/syndtr/goleveldb/leveldb/util"
)

// KVStore is the minimal subset of *leveldb.DB this package needs. Both
// *leveldb.DB and memstore.MemStore implement it, the same substitution the
// teacher's levelgraph.DB relies on for its own in-memory test backend.
type KVStore interface {
	Get(key []byte, ro *opt.ReadOptions) ([]byte, error)
	Put(key, value []byte, wo *opt.WriteOptions) error
	Delete(key []byte, wo *opt.WriteOptions) error
	Write(batch *leveldb.Batch, wo *opt.WriteOptions) error
	NewIterator(slice *util.Range, ro *opt.ReadOptions) iterator.Iterator
	Close() error
}

// ErrNotFound mirrors leveldb.ErrNotFound so callers don't need to import
// goleveldb directly to compare against it.
var ErrNotFound = leveldb.ErrNotFound

// ErrUniqueConstraint is returned by CreateVertex when externalID already
// has a vertex.
var ErrUniqueConstraint = errors.New("store: external id already indexed")

// OpenLevelDB opens (creating if absent) a LevelDB database at path and
// wraps it as a GraphStore, the way the teacher's openLevelDB does in
// storage.go.
func OpenLevelDB(path string, logger *slog.Logger) (*LevelDBStore, error) {
	db, err := leveldb.OpenFile(path, nil)
	if err != nil {
		return nil, fmt.Errorf("store: open leveldb: %w", err)
	}
	return NewLevelDBStore(db, logger), nil
}

// LevelDBStore is the reference GraphStore adapter (spec.md C10):
// vertices, the external-id secondary index, and per-layer edges are all
// encoded as key ranges over a KVStore, generalizing the teacher's
// hexastore scheme in pkg/index/index.go from SPO triples to this
// module's record kinds.
type LevelDBStore struct {
	db     KVStore
	logger *slog.Logger

	// idMu serializes VertexID allocation; this is storage-engine
	// bookkeeping, not the HNSW algorithm's global lock, analogous to the
	// teacher's atomic journal-sequence counter in journal.go.
	idMu sync.Mutex
}

// NewLevelDBStore wraps an already-open KVStore (a *leveldb.DB or a
// memstore.MemStore in tests).
func NewLevelDBStore(db KVStore, logger *slog.Logger) *LevelDBStore {
	return &LevelDBStore{db: db, logger: logger}
}

func (s *LevelDBStore) logDebug(msg string, args ...any) {
	if s.logger != nil {
		s.logger.Debug(msg, args...)
	}
}

// vertexRecord is the gob-encoded payload stored under vertexKey(id).
type vertexRecord struct {
	ExternalID []byte
	Vector     []float32
	MaxLevel   int
}

func encodeVertexRecord(r vertexRecord) ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(r); err != nil {
		return nil, fmt.Errorf("store: encode vertex: %w", err)
	}
	return buf.Bytes(), nil
}

func decodeVertexRecord(data []byte) (vertexRecord, error) {
	var r vertexRecord
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&r); err != nil {
		return r, fmt.Errorf("store: decode vertex: %w", err)
	}
	return r, nil
}

func (s *LevelDBStore) nextVertexID() (VertexID, error) {
	s.idMu.Lock()
	defer s.idMu.Unlock()

	raw, err := s.db.Get(nextIDKey, nil)
	var next uint64 = 1
	if err != nil {
		if !errors.Is(err, leveldb.ErrNotFound) {
			return 0, fmt.Errorf("store: read id counter: %w", err)
		}
	} else {
		next = binary.BigEndian.Uint64(raw) + 1
	}
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], next)
	if err := s.db.Put(nextIDKey, buf[:], nil); err != nil {
		return 0, fmt.Errorf("store: persist id counter: %w", err)
	}
	return VertexID(next), nil
}

func (s *LevelDBStore) VertexByExternalID(ctx context.Context, externalID []byte) (*Vertex, bool, error) {
	raw, err := s.db.Get(externalIDKey(externalID), nil)
	if err != nil {
		if errors.Is(err, leveldb.ErrNotFound) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("store: lookup external id: %w", err)
	}
	id := VertexID(binary.BigEndian.Uint64(raw))
	v, err := s.ReadVertex(ctx, id)
	if err != nil {
		return nil, false, err
	}
	return v, true, nil
}

func (s *LevelDBStore) ReadVertex(ctx context.Context, id VertexID) (*Vertex, error) {
	raw, err := s.db.Get(vertexKey(id), nil)
	if err != nil {
		if errors.Is(err, leveldb.ErrNotFound) {
			return nil, fmt.Errorf("store: vertex %d: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("store: read vertex %d: %w", id, err)
	}
	rec, err := decodeVertexRecord(raw)
	if err != nil {
		return nil, err
	}
	return &Vertex{ID: id, ExternalID: rec.ExternalID, Vector: rec.Vector, MaxLevel: rec.MaxLevel}, nil
}

func (s *LevelDBStore) CreateVertex(ctx context.Context, externalID []byte, vector []float32) (*Vertex, error) {
	if _, ok, err := s.VertexByExternalID(ctx, externalID); err != nil {
		return nil, err
	} else if ok {
		return nil, fmt.Errorf("store: create vertex: %w", ErrUniqueConstraint)
	}

	id, err := s.nextVertexID()
	if err != nil {
		return nil, err
	}

	payload, err := encodeVertexRecord(vertexRecord{ExternalID: externalID, Vector: vector})
	if err != nil {
		return nil, err
	}

	batch := new(leveldb.Batch)
	batch.Put(vertexKey(id), payload)
	var idBuf [8]byte
	binary.BigEndian.PutUint64(idBuf[:], uint64(id))
	batch.Put(externalIDKey(externalID), idBuf[:])
	if err := s.db.Write(batch, nil); err != nil {
		return nil, fmt.Errorf("store: create vertex: %w", err)
	}
	s.logDebug("vertex created", "id", id)
	return &Vertex{ID: id, ExternalID: externalID, Vector: vector}, nil
}

func (s *LevelDBStore) WriteMaxLevel(ctx context.Context, id VertexID, level int) error {
	v, err := s.ReadVertex(ctx, id)
	if err != nil {
		return err
	}
	v.MaxLevel = level
	payload, err := encodeVertexRecord(vertexRecord{ExternalID: v.ExternalID, Vector: v.Vector, MaxLevel: level})
	if err != nil {
		return err
	}
	if err := s.db.Put(vertexKey(id), payload, nil); err != nil {
		return fmt.Errorf("store: write max level: %w", err)
	}
	return nil
}

func (s *LevelDBStore) scanOutNeighbors(level int, id VertexID) ([]VertexID, error) {
	prefix := edgePrefixKey(level, id)
	upper := edgeRangeUpperBound(prefix)
	it := s.db.NewIterator(&util.Range{Start: prefix, Limit: upper}, nil)
	defer it.Release()

	var out []VertexID
	for it.Next() {
		out = append(out, vertexIDFromEdgeKey(it.Key()))
	}
	if err := it.Error(); err != nil {
		return nil, fmt.Errorf("store: scan neighbors: %w", err)
	}
	return out, nil
}

func (s *LevelDBStore) OutNeighbors(ctx context.Context, id VertexID, level int) ([]VertexID, error) {
	return s.scanOutNeighbors(level, id)
}

func (s *LevelDBStore) OutDegree(ctx context.Context, id VertexID, level int) (int, error) {
	neighbors, err := s.scanOutNeighbors(level, id)
	if err != nil {
		return 0, err
	}
	return len(neighbors), nil
}

func (s *LevelDBStore) AddEdge(ctx context.Context, from, to VertexID, level int) error {
	if err := s.db.Put(edgeKey(level, from, to), []byte{}, nil); err != nil {
		return fmt.Errorf("store: add edge: %w", err)
	}
	return nil
}

func (s *LevelDBStore) ReplaceOutEdges(ctx context.Context, id VertexID, level int, neighbors []VertexID) error {
	existing, err := s.scanOutNeighbors(level, id)
	if err != nil {
		return err
	}
	batch := new(leveldb.Batch)
	for _, to := range existing {
		batch.Delete(edgeKey(level, id, to))
	}
	for _, to := range neighbors {
		batch.Put(edgeKey(level, id, to), []byte{})
	}
	if err := s.db.Write(batch, nil); err != nil {
		return fmt.Errorf("store: replace out edges: %w", err)
	}
	return nil
}

func (s *LevelDBStore) DeleteVertex(ctx context.Context, id VertexID) error {
	v, err := s.ReadVertex(ctx, id)
	if err != nil {
		return err
	}
	batch := new(leveldb.Batch)
	batch.Delete(vertexKey(id))
	batch.Delete(externalIDKey(v.ExternalID))
	// Edges are directed and not necessarily symmetric, so incoming edges
	// are found by scanning every edge key, not just id's own out-edges.
	prefix := []byte(edgePrefix + string(keySeparator))
	it := s.db.NewIterator(&util.Range{Start: prefix, Limit: edgeRangeUpperBound(prefix)}, nil)
	defer it.Release()
	for it.Next() {
		key := it.Key()
		from := VertexID(binary.BigEndian.Uint64(key[len(prefix)+4+1:]))
		if from == id || vertexIDFromEdgeKey(key) == id {
			batch.Delete(key)
		}
	}
	if err := it.Error(); err != nil {
		return fmt.Errorf("store: delete vertex: %w", err)
	}
	if epID, ok, err := s.EntryPoint(ctx); err != nil {
		return err
	} else if ok && epID == id {
		batch.Delete(entryPointKey)
	}
	if err := s.db.Write(batch, nil); err != nil {
		return fmt.Errorf("store: delete vertex: %w", err)
	}
	s.logDebug("vertex deleted", "id", id)
	return nil
}

func (s *LevelDBStore) EntryPoint(ctx context.Context) (VertexID, bool, error) {
	raw, err := s.db.Get(entryPointKey, nil)
	if err != nil {
		if errors.Is(err, leveldb.ErrNotFound) {
			return 0, false, nil
		}
		return 0, false, fmt.Errorf("store: read entry point: %w", err)
	}
	return VertexID(binary.BigEndian.Uint64(raw)), true, nil
}

func (s *LevelDBStore) SetEntryPoint(ctx context.Context, id VertexID) error {
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], uint64(id))
	if err := s.db.Put(entryPointKey, buf[:], nil); err != nil {
		return fmt.Errorf("store: set entry point: %w", err)
	}
	s.logDebug("entry point set", "id", id)
	return nil
}

func (s *LevelDBStore) Count(ctx context.Context) (int, error) {
	prefix := []byte(vertexPrefix + string(keySeparator))
	upper := edgeRangeUpperBound(prefix)
	it := s.db.NewIterator(&util.Range{Start: prefix, Limit: upper}, nil)
	defer it.Release()
	n := 0
	for it.Next() {
		n++
	}
	if err := it.Error(); err != nil {
		return 0, fmt.Errorf("store: count vertices: %w", err)
	}
	return n, nil
}

func (s *LevelDBStore) Close() error {
	return s.db.Close()
}

// BeginBatch implements Batcher, opening a fixed-size write batch for the
// bulk importer (spec.md §4.8). The teacher's equivalent is journal.go's
// per-entry batch plus GenerateBatch in levelgraph.go; here the whole batch
// is buffered in a *leveldb.Batch and committed in one Write.
func (s *LevelDBStore) BeginBatch(ctx context.Context) (Txn, error) {
	return &levelDBTxn{store: s, batch: new(leveldb.Batch)}, nil
}

type levelDBTxn struct {
	store *LevelDBStore
	batch *leveldb.Batch
}

func (t *levelDBTxn) CreateVertex(externalID []byte, vector []float32, maxLevel int) (VertexID, error) {
	id, err := t.store.nextVertexID()
	if err != nil {
		return 0, err
	}
	payload, err := encodeVertexRecord(vertexRecord{ExternalID: externalID, Vector: vector, MaxLevel: maxLevel})
	if err != nil {
		return 0, err
	}
	t.batch.Put(vertexKey(id), payload)
	var idBuf [8]byte
	binary.BigEndian.PutUint64(idBuf[:], uint64(id))
	t.batch.Put(externalIDKey(externalID), idBuf[:])
	return id, nil
}

func (t *levelDBTxn) AddEdge(from, to VertexID, level int) error {
	t.batch.Put(edgeKey(level, from, to), []byte{})
	return nil
}

func (t *levelDBTxn) Commit(ctx context.Context) error {
	if err := t.store.db.Write(t.batch, nil); err != nil {
		return fmt.Errorf("store: commit batch: %w", err)
	}
	t.batch = new(leveldb.Batch)
	return nil
}
