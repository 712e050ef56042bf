package agentregistry

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestRegistryRoleIsTotalFunction(t *testing.T) {
	r := NewDefaultRegistry(10)
	for _, role := range AllRoles {
		a, err := r.ByRole(role)
		require.NoError(t, err)
		require.Equal(t, role, a.Role)
	}
}

func TestReRegisterReplacesHolder(t *testing.T) {
	r := NewDefaultRegistry(10)
	first, _ := r.ByRole(RoleCTO)
	second := NewAgent("cto-2", RoleCTO, "CTO v2", 10)
	r.Register(second)

	got, err := r.ByRole(RoleCTO)
	require.NoError(t, err)
	require.Equal(t, "cto-2", got.ID)
	require.NotEqual(t, first.ID, got.ID)
}

func TestMemoryRingTrims(t *testing.T) {
	a := NewAgent("a1", RoleSales, "Sales", 3)
	for i := 0; i < 5; i++ {
		a.Remember("user", "msg", nil)
	}
	require.Len(t, a.History(), 3)
}

func TestRecordQueryMetrics(t *testing.T) {
	a := NewAgent("a1", RoleCFO, "CFO", 10)
	a.RecordQuery(true, 100*time.Millisecond)
	a.RecordQuery(false, 300*time.Millisecond)

	snap := a.Snapshot()
	require.Equal(t, 2, snap.Metrics.TotalQueries)
	require.Equal(t, 1, snap.Metrics.Successful)
	require.Equal(t, 1, snap.Metrics.Failed)
	require.Equal(t, 200*time.Millisecond, snap.Metrics.AverageLatency())
}
