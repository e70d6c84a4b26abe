package testutil

import (
	"context"
	"fmt"
	"time"

	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

// SetupTestRedis starts a Redis container and returns its redis:// URL.
func SetupTestRedis(ctx context.Context) (string, func(), error) {
	c, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "redis:7-alpine",
			ExposedPorts: []string{"6379/tcp"},
			WaitingFor:   wait.ForLog("Ready to accept connections").WithStartupTimeout(30 * time.Second),
		},
		Started: true,
	})
	if err != nil {
		return "", nil, fmt.Errorf("start redis: %w", err)
	}
	cleanup := func() { _ = c.Terminate(context.Background()) }

	endpoint, err := c.Endpoint(ctx, "")
	if err != nil {
		cleanup()
		return "", nil, err
	}
	return "redis://" + endpoint + "/0", cleanup, nil
}
