// Package store is the bbolt-backed persistence layer: shadows, time-series
// buckets, data-config records, and device metadata all live in one bucket
// of a single bbolt file, keyed by the schemes in keys.go. Grounded on
// original_source/src/db/mod.rs, adapted from RocksDB's OptimisticTransactionDB
// retry pattern to bbolt's single-writer transactions (see UpsertShadow).
package store

import (
	"errors"
	"time"

	"go.etcd.io/bbolt"

	"github.com/warthog618/shadowd/internal/apperrors"
)

// rootBucket holds every key this module writes; bbolt's own B+tree keeps
// lookups within it at O(log n) regardless, and a single bucket keeps the
// backup/restore story simple (one bucket to copy).
var rootBucket = []byte("shadowd")

// MaxTxnRetries bounds the optimistic upsert retry loop used by
// UpsertShadow and PutMetric. bbolt serializes writers internally, so a
// commit conflict is not something bbolt itself would ever report - the
// budget exists to match the storage contract this module was built
// against and to bound retries on transient bbolt errors (bbolt.ErrTimeout,
// the only error isTransient accepts).
const MaxTxnRetries = 5

// Store wraps a bbolt database file.
type Store struct {
	db *bbolt.DB
}

// Open opens (creating if necessary) a bbolt database at path and ensures
// rootBucket exists.
func Open(path string) (*Store, error) {
	db, err := bbolt.Open(path, 0600, &bbolt.Options{Timeout: 5 * time.Second})
	if err != nil {
		return nil, apperrors.Wrapf(err, apperrors.KindKv, "open database at %s", path)
	}
	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(rootBucket)
		return err
	})
	if err != nil {
		_ = db.Close()
		return nil, apperrors.Wrap(err, apperrors.KindKv, "create root bucket")
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// DB exposes the underlying bbolt handle. Code inside this package,
// backup.go's CopyFile snapshot included, uses s.db directly.
func (s *Store) DB() *bbolt.DB {
	return s.db
}

func (s *Store) view(fn func(b *bbolt.Bucket) error) error {
	return s.db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket(rootBucket)
		if b == nil {
			return apperrors.New(apperrors.KindKv, "root bucket missing")
		}
		return fn(b)
	})
}

// update retries fn against a fresh bbolt transaction up to MaxTxnRetries
// times, matching the optimistic-transaction retry budget the upsert paths
// were designed against. See the MaxTxnRetries doc comment for why a bbolt
// transaction practically never needs more than one attempt.
func (s *Store) update(fn func(b *bbolt.Bucket) error) error {
	var lastErr error
	for attempt := 0; attempt < MaxTxnRetries; attempt++ {
		lastErr = s.db.Update(func(tx *bbolt.Tx) error {
			b := tx.Bucket(rootBucket)
			if b == nil {
				return apperrors.New(apperrors.KindKv, "root bucket missing")
			}
			return fn(b)
		})
		if lastErr == nil {
			return nil
		}
		if !isTransient(lastErr) {
			return lastErr
		}
	}
	return apperrors.Wrap(lastErr, apperrors.KindTxnExhausted, "transaction did not commit within retry budget")
}

// isTransient reports whether err is worth retrying. bbolt's single-writer
// model means a lock-acquisition timeout is the only realistic case.
func isTransient(err error) bool {
	return errors.Is(err, bbolt.ErrTimeout)
}
