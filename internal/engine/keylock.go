package engine

import "sync"

// keyLock serializes mutation per (guild, user) pair. Command handlers and
// scheduler ticks both go through it, which closes the race between a manual
// unwarn and a concurrent decay of the same user. Different pairs proceed in
// parallel.
type keyLock struct {
	mu    sync.Mutex
	locks map[string]*entry
}

type entry struct {
	mu   sync.Mutex
	refs int
}

func newKeyLock() *keyLock {
	return &keyLock{locks: make(map[string]*entry)}
}

// Lock acquires the mutex for the pair and returns the unlock function.
// Entries are reference-counted so the map does not grow with every user
// ever moderated.
func (k *keyLock) Lock(guildID, userID string) func() {
	key := guildID + "\x00" + userID

	k.mu.Lock()
	e, ok := k.locks[key]
	if !ok {
		e = &entry{}
		k.locks[key] = e
	}
	e.refs++
	k.mu.Unlock()

	e.mu.Lock()

	return func() {
		e.mu.Unlock()

		k.mu.Lock()
		e.refs--
		if e.refs == 0 {
			delete(k.locks, key)
		}
		k.mu.Unlock()
	}
}
