package server

import (
	"sync"

	"github.com/jimimatt/High-Pricision-AD-HAT/store"
)

// readingsManager synchronizes access to the most recent sample, which the
// acquisition loop writes and the handlers read.
type readingsManager struct {
	sample *store.Sample
	mu     *sync.RWMutex
}

func (r *readingsManager) Set(sample store.Sample) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.sample = &sample
}

// Latest returns the most recent sample, or false when no scan has
// completed yet.
func (r *readingsManager) Latest() (store.Sample, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.sample == nil {
		return store.Sample{}, false
	}
	return *r.sample, true
}

// configManager synchronizes access to the acquisition configuration so a
// PUT can swap it while the loop is mid-scan.
type configManager struct {
	config store.AcquisitionConfig
	mu     *sync.RWMutex
}

func (c *configManager) Set(config store.AcquisitionConfig) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.config = config
}

func (c *configManager) Config() store.AcquisitionConfig {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return c.config
}
