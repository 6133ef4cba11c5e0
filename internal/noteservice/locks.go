package noteservice

import (
	"strings"
	"sync"
)

// pathLocks serialises read-modify-write cycles per note. Keys are canonical
// absolute paths folded to lower case, matching the guard's comparison.
type pathLocks struct {
	mu    sync.Mutex
	locks map[string]*pathLock
}

type pathLock struct {
	mu   sync.Mutex
	refs int
}

func newPathLocks() *pathLocks {
	return &pathLocks{locks: make(map[string]*pathLock)}
}

// lock acquires the lock for abs and returns its release function.
func (p *pathLocks) lock(abs string) func() {
	key := strings.ToLower(abs)

	p.mu.Lock()
	l, ok := p.locks[key]
	if !ok {
		l = &pathLock{}
		p.locks[key] = l
	}
	l.refs++
	p.mu.Unlock()

	l.mu.Lock()
	return func() {
		l.mu.Unlock()

		p.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(p.locks, key)
		}
		p.mu.Unlock()
	}
}
