package metrics

import (
	"time"

	"github.com/candig/fedsearch/pkg/schema"
	"github.com/candig/fedsearch/pkg/storage"
)

// Collector periodically refreshes the registry gauges from the store
type Collector struct {
	store  storage.Store
	stopCh chan struct{}
}

// NewCollector creates a new metrics collector
func NewCollector(store storage.Store) *Collector {
	return &Collector{
		store:  store,
		stopCh: make(chan struct{}),
	}
}

// Start begins collecting metrics
func (c *Collector) Start() {
	ticker := time.NewTicker(15 * time.Second)
	go func() {
		// Collect immediately on start
		c.collect()

		for {
			select {
			case <-ticker.C:
				c.collect()
			case <-c.stopCh:
				ticker.Stop()
				return
			}
		}
	}()
}

// Stop stops the collector
func (c *Collector) Stop() {
	close(c.stopCh)
}

func (c *Collector) collect() {
	c.collectPeerMetrics()
	c.collectCatalogMetrics()
}

func (c *Collector) collectPeerMetrics() {
	peers, err := c.store.ListPeers()
	if err != nil {
		return
	}

	var healthy, unhealthy float64
	for _, peer := range peers {
		if peer.Healthy {
			healthy++
		} else {
			unhealthy++
		}
	}
	PeersTotal.WithLabelValues("healthy").Set(healthy)
	PeersTotal.WithLabelValues("unhealthy").Set(unhealthy)
}

func (c *Collector) collectCatalogMetrics() {
	datasets, err := c.store.ListDatasets()
	if err == nil {
		DatasetsTotal.Set(float64(len(datasets)))
	}

	for _, entity := range schema.Entities {
		if entity.Name == "dataset" {
			continue
		}
		records, err := c.store.ListRecords(entity.Name)
		if err != nil {
			continue
		}
		RecordsTotal.WithLabelValues(entity.Name).Set(float64(len(records)))
	}
}
