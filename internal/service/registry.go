package service

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"dataguard/internal/types"
)

type (
	backupEntry struct {
		job     *types.BackupJob
		touched time.Time
	}

	restoreEntry struct {
		job     *types.RestoreJob
		touched time.Time
	}

	// jobRegistry keeps recent jobs in memory for status queries. Written by
	// the owning execution goroutine, read by concurrent callers.
	jobRegistry struct {
		mu       sync.RWMutex
		backups  map[uuid.UUID]*backupEntry
		restores map[uuid.UUID]*restoreEntry
	}
)

func newJobRegistry() *jobRegistry {
	return &jobRegistry{
		backups:  make(map[uuid.UUID]*backupEntry),
		restores: make(map[uuid.UUID]*restoreEntry),
	}
}

func (r *jobRegistry) putBackup(job *types.BackupJob) {
	copied := *job
	r.mu.Lock()
	r.backups[job.ID] = &backupEntry{job: &copied, touched: time.Now()}
	r.mu.Unlock()
}

func (r *jobRegistry) getBackup(id uuid.UUID) (*types.BackupJob, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	entry, ok := r.backups[id]
	if !ok {
		return nil, false
	}
	copied := *entry.job
	return &copied, true
}

func (r *jobRegistry) putRestore(job *types.RestoreJob) {
	copied := *job
	r.mu.Lock()
	r.restores[job.ID] = &restoreEntry{job: &copied, touched: time.Now()}
	r.mu.Unlock()
}

func (r *jobRegistry) getRestore(id uuid.UUID) (*types.RestoreJob, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	entry, ok := r.restores[id]
	if !ok {
		return nil, false
	}
	copied := *entry.job
	return &copied, true
}

// purge drops entries older than maxAge and returns how many were removed.
func (r *jobRegistry) purge(maxAge time.Duration) int {
	cutoff := time.Now().Add(-maxAge)
	removed := 0

	r.mu.Lock()
	defer r.mu.Unlock()
	for id, entry := range r.backups {
		if entry.touched.Before(cutoff) {
			delete(r.backups, id)
			removed++
		}
	}
	for id, entry := range r.restores {
		if entry.touched.Before(cutoff) {
			delete(r.restores, id)
			removed++
		}
	}
	return removed
}
