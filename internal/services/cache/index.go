package cache

import (
	"os"
	"path/filepath"
	"strings"

	badger "github.com/dgraph-io/badger/v4"
	"github.com/ternarybob/arbor"
)

// Index is the optional, rebuildable doc-id→path accelerator backing the
// local cache service (spec.md §4.10). It is never the system of record:
// the filesystem hierarchy under the download root always is, and every
// lookup that misses the index falls back to walking it directly.
type Index struct {
	db     *badger.DB
	logger arbor.ILogger
}

// OpenIndex opens (creating if absent) the badger index at path. A failure
// to open is non-fatal to callers: they should fall back to pure
// filesystem lookups rather than failing the whole cache service.
func OpenIndex(path string, logger arbor.ILogger) (*Index, error) {
	if err := os.MkdirAll(path, 0o755); err != nil {
		return nil, err
	}
	opts := badger.DefaultOptions(path).WithLogger(nil)
	db, err := badger.Open(opts)
	if err != nil {
		return nil, err
	}
	return &Index{db: db, logger: logger}, nil
}

func (idx *Index) Close() error {
	if idx == nil || idx.db == nil {
		return nil
	}
	return idx.db.Close()
}

// Put records docID's absolute path, overwriting any prior entry.
func (idx *Index) Put(docID, path string) error {
	return idx.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(docID), []byte(path))
	})
}

// Get returns the path recorded for docID, if any.
func (idx *Index) Get(docID string) (string, bool, error) {
	var path string
	err := idx.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(docID))
		if err == badger.ErrKeyNotFound {
			return nil
		}
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			path = string(val)
			return nil
		})
	})
	if err != nil {
		return "", false, err
	}
	return path, path != "", nil
}

// Rebuild re-walks root and repopulates the index from scratch, the
// documented recovery path for a deleted or corrupted index file.
func (idx *Index) Rebuild(root string) error {
	if err := idx.db.DropAll(); err != nil {
		return err
	}
	return filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.IsDir() || !strings.EqualFold(filepath.Ext(path), ".pdf") {
			return nil
		}
		docID := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
		if putErr := idx.Put(docID, path); putErr != nil {
			idx.logger.Warn().Err(putErr).Str("path", path).Msg("failed to index cached document")
		}
		return nil
	})
}
