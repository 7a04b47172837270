package storage

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"time"

	"github.com/wolfstacksystems/wolfstack/pkg/types"
	bolt "go.etcd.io/bbolt"
)

var (
	bucketNodeSnapshot = []byte("node_snapshot")
	bucketReconcileLog = []byte("reconcile_log")
)

// maxReconcileLogEntries bounds the history bucket so it never grows
// unbounded across a long-lived node's lifetime.
const maxReconcileLogEntries = 500

// Cache is the bbolt-backed sidecar. It is safe for concurrent use: bbolt
// serializes writers internally and allows concurrent readers.
type Cache struct {
	db *bolt.DB
}

// Open creates (or reopens) the cache database under dataDir.
func Open(dataDir string) (*Cache, error) {
	dbPath := filepath.Join(dataDir, "wolfstack-cache.db")
	db, err := bolt.Open(dbPath, 0600, &bolt.Options{Timeout: 2 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("open cache db: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		for _, bucket := range [][]byte{bucketNodeSnapshot, bucketReconcileLog} {
			if _, err := tx.CreateBucketIfNotExists(bucket); err != nil {
				return fmt.Errorf("create bucket %s: %w", bucket, err)
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, err
	}
	return &Cache{db: db}, nil
}

func (c *Cache) Close() error {
	return c.db.Close()
}

// SaveNodeSnapshot persists nodes as the last-known cluster registry state.
func (c *Cache) SaveNodeSnapshot(nodes []types.Node) error {
	return c.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketNodeSnapshot)
		cur := b.Cursor()
		for k, _ := cur.First(); k != nil; k, _ = cur.First() {
			if err := cur.Delete(); err != nil {
				return err
			}
		}
		for _, n := range nodes {
			data, err := json.Marshal(n)
			if err != nil {
				return fmt.Errorf("marshal node %s: %w", n.ID, err)
			}
			if err := b.Put([]byte(n.ID), data); err != nil {
				return err
			}
		}
		return nil
	})
}

// LoadNodeSnapshot returns the last saved cluster registry snapshot, used to
// seed the in-memory registry with a warm peer list at startup.
func (c *Cache) LoadNodeSnapshot() ([]types.Node, error) {
	var nodes []types.Node
	err := c.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketNodeSnapshot)
		return b.ForEach(func(_, v []byte) error {
			var n types.Node
			if err := json.Unmarshal(v, &n); err != nil {
				return err
			}
			nodes = append(nodes, n)
			return nil
		})
	})
	return nodes, err
}

// ReconcileRecord is one tick's bookkeeping entry.
type ReconcileRecord struct {
	Timestamp    int64  `json:"timestamp"`
	ServiceCount int    `json:"service_count"`
	Errors       int    `json:"errors"`
	DurationMS   int64  `json:"duration_ms"`
}

// AppendReconcileRecord records one tick's summary, trimming the oldest
// entries once the bucket passes maxReconcileLogEntries.
func (c *Cache) AppendReconcileRecord(rec ReconcileRecord) error {
	return c.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketReconcileLog)
		data, err := json.Marshal(rec)
		if err != nil {
			return err
		}
		key := []byte(fmt.Sprintf("%020d", rec.Timestamp))
		if err := b.Put(key, data); err != nil {
			return err
		}
		return trimOldest(b, maxReconcileLogEntries)
	})
}

// ReconcileHistory returns every recorded tick, oldest first.
func (c *Cache) ReconcileHistory() ([]ReconcileRecord, error) {
	var out []ReconcileRecord
	err := c.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketReconcileLog)
		return b.ForEach(func(_, v []byte) error {
			var rec ReconcileRecord
			if err := json.Unmarshal(v, &rec); err != nil {
				return err
			}
			out = append(out, rec)
			return nil
		})
	})
	return out, err
}

func trimOldest(b *bolt.Bucket, limit int) error {
	n := b.Stats().KeyN
	if n <= limit {
		return nil
	}
	c := b.Cursor()
	for k, _ := c.First(); k != nil && n > limit; k, _ = c.Next() {
		if err := c.Delete(); err != nil {
			return err
		}
		n--
	}
	return nil
}
