package config

import (
	"os"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	os.Clearenv()
	cfg := Load()
	require.Equal(t, 1000, cfg.ChunkSize)
	require.Equal(t, 200, cfg.ChunkOverlap)
	require.Equal(t, 10_000, cfg.MessageHistoryCapacity)
	require.InDelta(t, 0.4, cfg.DelegationThreshold, 1e-9)
	require.Equal(t, 3, cfg.MaxDelegationDepth)
	require.Equal(t, 120, cfg.LLMRequestTimeoutSeconds)
}

func TestLoadOverrides(t *testing.T) {
	os.Clearenv()
	os.Setenv("EXECTEAM_CHUNK_SIZE", "500")
	os.Setenv("EXECTEAM_DELEGATION_THRESHOLD", "0.6")
	os.Setenv("EXECTEAM_KAFKA_BROKERS", "broker1:9092, broker2:9092")
	cfg := Load()
	require.Equal(t, 500, cfg.ChunkSize)
	require.InDelta(t, 0.6, cfg.DelegationThreshold, 1e-9)
	require.Equal(t, []string{"broker1:9092", "broker2:9092"}, cfg.KafkaBrokers)
}
