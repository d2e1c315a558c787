package remote

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/cuemby/hostkeeper/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestDockerHostLocalDaemon runs the read-only queries against the local
// Docker daemon
func TestDockerHostLocalDaemon(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test")
	}
	if _, err := os.Stat("/var/run/docker.sock"); err != nil {
		t.Skip("No local Docker daemon")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	host, err := (&DockerConnector{}).Connect(ctx, &types.Server{
		ID:      "local",
		Address: "unix:///var/run/docker.sock",
	})
	require.NoError(t, err)
	defer host.Close()

	if err := host.Ping(ctx); err != nil {
		t.Skipf("Docker daemon not answering: %v", err)
	}

	snapshot, err := host.ListContainers(ctx)
	require.NoError(t, err)
	for _, rec := range snapshot {
		assert.NotEmpty(t, rec.Name())
		assert.NotEmpty(t, rec.Status())
	}

	_, err = host.PublishedPorts(ctx)
	assert.NoError(t, err)

	used, err := host.DiskUsage(ctx)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, used, int64(0))
}
