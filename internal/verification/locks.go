package verification

import (
	"sync"

	"github.com/google/uuid"
)

// subjectLocks serializes pipeline invocations per subject and record class.
// Two concurrent submissions for the same class would otherwise both pass the
// guard's read-then-check and race to persist; the mutex closes that window
// inside one process, and the repository's versioned writes close it across
// processes.
type subjectLocks struct {
	mu    sync.Mutex
	locks map[lockKey]*lockEntry
}

type lockKey struct {
	subjectID uuid.UUID
	class     RecordClass
}

type lockEntry struct {
	mu   sync.Mutex
	refs int
}

func newSubjectLocks() *subjectLocks {
	return &subjectLocks{locks: make(map[lockKey]*lockEntry)}
}

// acquire blocks until the subject/class lock is held and returns the release
// function. Entries are reference counted so the map does not grow with the
// subject population.
func (l *subjectLocks) acquire(subjectID uuid.UUID, class RecordClass) func() {
	key := lockKey{subjectID: subjectID, class: class}

	l.mu.Lock()
	entry, ok := l.locks[key]
	if !ok {
		entry = &lockEntry{}
		l.locks[key] = entry
	}
	entry.refs++
	l.mu.Unlock()

	entry.mu.Lock()

	return func() {
		entry.mu.Unlock()
		l.mu.Lock()
		entry.refs--
		if entry.refs == 0 {
			delete(l.locks, key)
		}
		l.mu.Unlock()
	}
}
