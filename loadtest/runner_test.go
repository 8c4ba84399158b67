package loadtest

import (
	"context"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xamogh/casbin-test/app"
	"github.com/xamogh/casbin-test/config"
	"github.com/xamogh/casbin-test/models"
)

func startGateway(t *testing.T) *httptest.Server {
	t.Helper()
	cfg := &config.Config{
		Auth: config.AuthConfig{
			SigningKey:     "harness-secret",
			TrustedAccount: "loadtest",
			TokenTTL:       60 * time.Second,
		},
	}
	gw, err := app.NewApp(cfg)
	require.NoError(t, err)

	srv := httptest.NewServer(gw.Router())
	t.Cleanup(srv.Close)
	return srv
}

func TestClientRoundtrip(t *testing.T) {
	srv := startGateway(t)
	client := NewClient(srv.URL, "harness-secret", "loadtest")
	ctx := context.Background()

	tuple := models.PolicyTuple{Sub: "alice", Obj: "doc1", Act: "read"}

	added, err := client.AddPolicy(ctx, tuple)
	require.NoError(t, err)
	assert.True(t, added)

	allowed, err := client.Enforce(ctx, tuple)
	require.NoError(t, err)
	assert.True(t, allowed)

	policies, err := client.GetFilteredPolicy(ctx, 0, "alice")
	require.NoError(t, err)
	assert.Equal(t, []models.PolicyTuple{tuple}, policies)

	removed, err := client.RemovePolicy(ctx, tuple)
	require.NoError(t, err)
	assert.True(t, removed)
}

func TestClientRejectedWithWrongSecret(t *testing.T) {
	srv := startGateway(t)
	client := NewClient(srv.URL, "wrong-secret", "loadtest")

	_, err := client.Enforce(context.Background(), models.PolicyTuple{Sub: "a", Obj: "b", Act: "read"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "401")
}

func TestRunnerCompletesAllIterations(t *testing.T) {
	srv := startGateway(t)
	runner := &Runner{
		Client:   NewClient(srv.URL, "harness-secret", "loadtest"),
		Clients:  10,
		Requests: 5,
	}

	stats := runner.Run(context.Background())

	assert.Equal(t, uint64(50), stats.Total())
	assert.Equal(t, uint64(0), stats.Failures.Load())
}

func TestRunnerSurvivesFailures(t *testing.T) {
	srv := startGateway(t)
	srv.Close() // every call will fail

	runner := &Runner{
		Client:   NewClient(srv.URL, "harness-secret", "loadtest"),
		Clients:  3,
		Requests: 4,
	}

	stats := runner.Run(context.Background())

	// every iteration still ran; failures were downgraded, not fatal
	assert.Equal(t, uint64(12), stats.Total())
	assert.Equal(t, uint64(12), stats.Failures.Load())
}
