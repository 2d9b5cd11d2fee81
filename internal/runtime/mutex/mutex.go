package mutex

import (
	"sync"

	cmap "github.com/orcaman/concurrent-map"
	log "github.com/sirupsen/logrus"
)

// Named mutexes for serializing access to storage slots. The proof store
// is read-then-replaced whole, so every read-modify-write cycle must run
// under the lock for its storage key.

var mutexMap cmap.ConcurrentMap

func init() {
	mutexMap = cmap.New()
}

// Lock locks a mutex in the mutexMap.
func Lock(s string) {
	log.Tracef("[Mutex] Attempt Lock %s", s)
	if m, ok := mutexMap.Get(s); ok {
		m.(*sync.Mutex).Lock()
		mutexMap.Set(s, m)
	} else {
		m := &sync.Mutex{}
		m.Lock()
		mutexMap.Set(s, m)
	}
	log.Tracef("[Mutex] Lock %s", s)
}

// Unlock unlocks a mutex in the mutexMap.
func Unlock(s string) {
	if m, ok := mutexMap.Get(s); ok {
		log.Tracef("[Mutex] Unlock %s", s)
		mutexMap.Remove(s)
		m.(*sync.Mutex).Unlock()
	} else {
		log.Errorf("[Mutex] Unlock %s not in mutexMap. Skip.", s)
	}
}
