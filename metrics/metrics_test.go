package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestNewWithNilRegistererIsInertNoOp(t *testing.T) {
	require.NotPanics(t, func() {
		m := New(nil)
		m.IndexedDocs.WithLabelValues("books").Set(3)
	})
}

func TestNewRegistersCollectorsAgainstGivenRegistry(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)
	m.IndexedDocs.WithLabelValues("books").Set(5)

	got := testutil.ToFloat64(m.IndexedDocs.WithLabelValues("books"))
	require.Equal(t, 5.0, got)
}

func TestNewTwiceAgainstSameRegistryPanicsOnDuplicateRegistration(t *testing.T) {
	reg := prometheus.NewRegistry()
	New(reg)
	require.Panics(t, func() { New(reg) })
}
