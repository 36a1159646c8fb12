package storage

import (
	"fmt"
	"sync"
)

var (
	dialectMu sync.RWMutex
	dialects  = map[string]string{}
)

// RegisterDialect records which query dialect the backend for kind speaks.
// Backends call it from init next to Register.
func RegisterDialect(kind, dialect string) {
	dialectMu.Lock()
	defer dialectMu.Unlock()
	dialects[kind] = dialect
}

// DialectFor returns the query dialect registered for kind.
func DialectFor(kind string) (string, error) {
	dialectMu.RLock()
	d, ok := dialects[kind]
	dialectMu.RUnlock()
	if !ok {
		return "", fmt.Errorf("no query dialect registered for storage.kind=%q", kind)
	}
	return d, nil
}
