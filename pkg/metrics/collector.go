package metrics

import (
	"sync"
	"time"

	"github.com/cuemby/hostkeeper/pkg/types"
)

// DefaultCollectInterval is how often the inventory gauges are refreshed
const DefaultCollectInterval = 15 * time.Second

// ServerLister is the part of the store the collector reads
type ServerLister interface {
	ListServers() ([]*types.Server, error)
}

// Collector refreshes the server gauges from the store and reports the
// store's health as a side effect of reading it
type Collector struct {
	servers  ServerLister
	interval time.Duration

	stopOnce sync.Once
	stopCh   chan struct{}
	doneCh   chan struct{}
}

// NewCollector creates a collector running every DefaultCollectInterval
func NewCollector(servers ServerLister) *Collector {
	return &Collector{
		servers:  servers,
		interval: DefaultCollectInterval,
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}
}

// WithInterval overrides the refresh interval. Must be called before Start.
func (c *Collector) WithInterval(d time.Duration) *Collector {
	if d > 0 {
		c.interval = d
	}
	return c
}

// Start collects once, then on every tick until Stop
func (c *Collector) Start() {
	go func() {
		defer close(c.doneCh)
		ticker := time.NewTicker(c.interval)
		defer ticker.Stop()

		c.collect()
		for {
			select {
			case <-ticker.C:
				c.collect()
			case <-c.stopCh:
				return
			}
		}
	}()
}

// Stop ends collection and waits for an in-progress pass
func (c *Collector) Stop() {
	c.stopOnce.Do(func() {
		close(c.stopCh)
		<-c.doneCh
	})
}

func (c *Collector) collect() {
	servers, err := c.servers.ListServers()
	if err != nil {
		UpdateComponent(ComponentStore, false, err.Error())
		return
	}
	UpdateComponent(ComponentStore, true, "")

	total := make(map[types.ServerRole]int)
	notReady := make(map[types.ServerRole]int)
	for _, s := range servers {
		total[s.Role]++
		if !s.IsReady() {
			notReady[s.Role]++
		}
	}

	// Reset drops roles that no longer have servers
	ServersTotal.Reset()
	ServersNotReady.Reset()
	for role, n := range total {
		ServersTotal.WithLabelValues(string(role)).Set(float64(n))
		ServersNotReady.WithLabelValues(string(role)).Set(float64(notReady[role]))
	}
}
