package storage

import (
	"bytes"
	"encoding/gob"
	"sync"

	"github.com/golang/snappy"
	"github.com/liveevilll/massa/blockgraph"
	"github.com/liveevilll/massa/xlog"
	"github.com/syndtr/goleveldb/leveldb"
)

var log = xlog.Root.New("storage")

// LevelDB is the local archival backend, grounded on the teacher's
// core/rawdb leveldb-backed chain database: every value is
// snappy-compressed before it hits disk, and decompressed transparently
// on read.
type LevelDB struct {
	mu sync.Mutex
	db *leveldb.DB
}

// OpenLevelDB opens (creating if absent) a leveldb store at path.
func OpenLevelDB(path string) (*LevelDB, error) {
	db, err := leveldb.OpenFile(path, nil)
	if err != nil {
		return nil, err
	}
	return &LevelDB{db: db}, nil
}

func (l *LevelDB) GetBlock(id blockgraph.BlockID) (*blockgraph.Block, bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	raw, err := l.db.Get(id[:], nil)
	if err == leveldb.ErrNotFound {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	plain, err := snappy.Decode(nil, raw)
	if err != nil {
		return nil, false, err
	}
	var e encodedBlock
	if err := gob.NewDecoder(bytes.NewReader(plain)).Decode(&e); err != nil {
		return nil, false, err
	}
	return fromEncoded(e), true, nil
}

func (l *LevelDB) AddBlockBatch(blocks []*blockgraph.Block) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	batch := new(leveldb.Batch)
	for _, b := range blocks {
		var buf bytes.Buffer
		if err := gob.NewEncoder(&buf).Encode(toEncoded(b)); err != nil {
			return err
		}
		compressed := snappy.Encode(nil, buf.Bytes())
		batch.Put(b.ID().Bytes(), compressed)
	}
	if err := l.db.Write(batch, nil); err != nil {
		return err
	}
	log.Debug("archived block batch", "count", len(blocks))
	return nil
}

func (l *LevelDB) Close() error {
	return l.db.Close()
}
