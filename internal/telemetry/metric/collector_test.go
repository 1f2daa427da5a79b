package metric

import (
	"context"
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestCollector_Collect(t *testing.T) {
	c := NewCollector(stubOwnerLister{owners: []string{"alice", "bob", "carol"}})

	reg := prometheus.NewPedanticRegistry()
	reg.MustRegister(c)

	got, err := testutil.GatherAndCount(reg, "tokenreg_owners_total")
	if err != nil {
		t.Fatalf("GatherAndCount: %v", err)
	}
	if got != 1 {
		t.Fatalf("expected 1 sample, got %d", got)
	}
}

type erroringOwnerLister struct{}

func (erroringOwnerLister) ListOwners(context.Context) ([]string, error) {
	return nil, errors.New("boom")
}

func TestCollector_CollectSwallowsListerError(t *testing.T) {
	c := NewCollector(erroringOwnerLister{})

	reg := prometheus.NewPedanticRegistry()
	reg.MustRegister(c)

	got, err := testutil.GatherAndCount(reg, "tokenreg_owners_total")
	if err != nil {
		t.Fatalf("GatherAndCount: %v", err)
	}
	if got != 0 {
		t.Fatalf("expected 0 samples when the lister errors, got %d", got)
	}
}
