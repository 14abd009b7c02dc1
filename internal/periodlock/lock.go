// Package periodlock serializes invoice generation per (project, period).
// Two concurrent generate requests for the same pair could read the same
// unconsumed records and double-bill them; the lock spans the aggregation
// read through the assembler's commit. Previews never take the lock.
package periodlock

import (
	"fmt"
	"sync"
	"time"

	ierr "github.com/warebill/warebill/internal/errors"
)

// Manager hands out short-lived exclusive locks keyed by project and period.
// Acquisition is non-blocking: a second caller for a held key fails
// immediately rather than queueing, since the winner will either commit the
// period (making a retry a duplicate) or fail (making a blind retry unsafe).
type Manager struct {
	mu   sync.Mutex
	held map[string]struct{}
}

// NewManager creates a lock manager
func NewManager() *Manager {
	return &Manager{
		held: make(map[string]struct{}),
	}
}

func key(projectID string, periodStart, periodEnd time.Time) string {
	return fmt.Sprintf("%s:%s:%s",
		projectID,
		periodStart.UTC().Format("2006-01-02"),
		periodEnd.UTC().Format("2006-01-02"))
}

// Acquire takes the exclusive lock for (project, period). The returned
// release function must be called exactly once, normally deferred.
func (m *Manager) Acquire(projectID string, periodStart, periodEnd time.Time) (func(), error) {
	k := key(projectID, periodStart, periodEnd)

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.held[k]; exists {
		return nil, ierr.NewError("invoice generation already in progress").
			WithHint("Another generation for this project and period is running").
			WithReportableDetails(map[string]any{
				"project_id":   projectID,
				"period_start": periodStart,
				"period_end":   periodEnd,
			}).
			Mark(ierr.ErrDuplicatePeriod)
	}

	m.held[k] = struct{}{}

	var once sync.Once
	release := func() {
		once.Do(func() {
			m.mu.Lock()
			delete(m.held, k)
			m.mu.Unlock()
		})
	}
	return release, nil
}
