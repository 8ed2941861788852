package store

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/google/uuid"
	"go.etcd.io/bbolt"
	"go.uber.org/zap"

	"github.com/warthog618/shadowd/internal/apperrors"
)

// maxBackups is the retention count. Grounded on original_source's
// backup_db, which calls purge_old_backups(3).
const maxBackups = 3

// CreateBackup snapshots the database into backupDir as a timestamped bbolt
// file via a read-only transaction, then prunes older snapshots beyond
// maxBackups. Returns the path of the new snapshot.
func (s *Store) CreateBackup(backupDir string) (string, error) {
	if err := os.MkdirAll(backupDir, 0700); err != nil {
		return "", apperrors.Wrap(err, apperrors.KindKv, "create backup directory")
	}

	name := fmt.Sprintf("shadowd-%d-%s.bbolt", time.Now().UnixNano(), uuid.NewString())
	dest := filepath.Join(backupDir, name)

	err := s.db.View(func(tx *bbolt.Tx) error {
		return tx.CopyFile(dest, 0600)
	})
	if err != nil {
		return "", apperrors.Wrap(err, apperrors.KindKv, "write backup snapshot")
	}

	if err := pruneBackups(backupDir); err != nil {
		return dest, err
	}
	return dest, nil
}

func pruneBackups(backupDir string) error {
	entries, err := os.ReadDir(backupDir)
	if err != nil {
		return apperrors.Wrap(err, apperrors.KindKv, "list backup directory")
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if !e.IsDir() {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)
	if len(names) <= maxBackups {
		return nil
	}
	for _, name := range names[:len(names)-maxBackups] {
		if err := os.Remove(filepath.Join(backupDir, name)); err != nil {
			return apperrors.Wrap(err, apperrors.KindKv, "prune old backup")
		}
	}
	return nil
}

// BackupScheduler runs CreateBackup on a period and on demand, adapted from
// the teacher's Poller (refresh channel + ticker goroutine), repurposed
// here for database snapshots instead of sensor polling.
type BackupScheduler struct {
	store   *Store
	dir     string
	log     *zap.Logger
	refresh chan struct{}
	done    chan struct{}
}

// NewBackupScheduler starts a goroutine that snapshots store into dir every
// period, plus whenever Trigger is called.
func NewBackupScheduler(store *Store, dir string, period time.Duration, log *zap.Logger) *BackupScheduler {
	b := &BackupScheduler{
		store:   store,
		dir:     dir,
		log:     log,
		refresh: make(chan struct{}, 1),
		done:    make(chan struct{}),
	}
	go b.run(period)
	return b
}

func (b *BackupScheduler) run(period time.Duration) {
	t := time.NewTicker(period)
	defer t.Stop()
	for {
		select {
		case <-t.C:
			b.backupOnce()
		case <-b.refresh:
			b.backupOnce()
		case <-b.done:
			return
		}
	}
}

func (b *BackupScheduler) backupOnce() {
	path, err := b.store.CreateBackup(b.dir)
	if err != nil {
		b.log.Error("backup failed", zap.Error(err))
		return
	}
	b.log.Info("backup created", zap.String("path", path))
}

// Trigger requests an immediate backup without waiting for the next tick.
// Non-blocking: a backup already queued is not duplicated.
func (b *BackupScheduler) Trigger() {
	select {
	case b.refresh <- struct{}{}:
	default:
	}
}

func (b *BackupScheduler) Close() {
	close(b.done)
}
