package bridge

import (
	"sync"

	"github.com/chazu/objbridge/config"
)

var (
	defaultMu     sync.Mutex
	defaultBridge *Bridge
)

// Init creates the process-wide bridge. Calling Init again before Cleanup
// keeps the existing bridge and ignores the arguments.
func Init(cfg *config.Config, opts ...Option) error {
	defaultMu.Lock()
	defer defaultMu.Unlock()
	if defaultBridge != nil {
		return nil
	}
	b, err := New(cfg, opts...)
	if err != nil {
		return err
	}
	defaultBridge = b
	return nil
}

// Self returns the process-wide bridge, or nil before Init.
func Self() *Bridge {
	defaultMu.Lock()
	defer defaultMu.Unlock()
	return defaultBridge
}

// Cleanup closes the process-wide bridge.
func Cleanup() {
	defaultMu.Lock()
	defer defaultMu.Unlock()
	if defaultBridge != nil {
		defaultBridge.Close()
		defaultBridge = nil
	}
}
