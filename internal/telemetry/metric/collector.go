package metric

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"
)

// OwnerLister supplies the live owner directory, for Collector to report a
// gauge computed at scrape time instead of maintained incrementally.
// service.Registry satisfies this.
type OwnerLister interface {
	ListOwners(ctx context.Context) ([]string, error)
}

// Collector reports gauges whose correct value can only be known by asking
// the registry directly, rather than by incrementing/decrementing a
// maintained counter on every mutation.
type Collector struct {
	owners OwnerLister

	ownersDesc *prometheus.Desc
}

// NewCollector creates a Collector backed by owners.
func NewCollector(owners OwnerLister) *Collector {
	return &Collector{
		owners: owners,
		ownersDesc: prometheus.NewDesc(
			"tokenreg_owners_total",
			"Number of distinct token owners with at least one non-deleted token.",
			nil, nil,
		),
	}
}

// Describe implements prometheus.Collector.
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.ownersDesc
}

// Collect implements prometheus.Collector. It is called once per scrape, so
// the owner count it reports is never stale between scrapes the way an
// incrementally-maintained gauge could be if a decrement were ever missed.
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	owners, err := c.owners.ListOwners(context.Background())
	if err != nil {
		return
	}
	ch <- prometheus.MustNewConstMetric(c.ownersDesc, prometheus.GaugeValue, float64(len(owners)))
}
