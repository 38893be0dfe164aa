//go:build integration

package stats

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"ocigenai-gateway/internal/migrations"
)

func startContainer(t *testing.T, req testcontainers.ContainerRequest, port string) string {
	t.Helper()
	ctx := context.Background()
	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Terminate(ctx) })

	host, err := container.Host(ctx)
	require.NoError(t, err)
	mapped, err := container.MappedPort(ctx, port)
	require.NoError(t, err)
	return fmt.Sprintf("%s:%s", host, mapped.Port())
}

func TestPostgresRecorderAgainstRealPostgres(t *testing.T) {
	requireDocker(t)
	addr := startContainer(t, testcontainers.ContainerRequest{
		Image:        "postgres:16-alpine",
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_USER":     "ocigw",
			"POSTGRES_PASSWORD": "ocigw",
			"POSTGRES_DB":       "ocigw",
		},
		WaitingFor: wait.ForLog("database system is ready to accept connections").
			WithOccurrence(2).WithStartupTimeout(60 * time.Second),
	}, "5432")
	dsn := fmt.Sprintf("postgres://ocigw:ocigw@%s/ocigw?sslmode=disable", addr)

	b, err := NewPostgresBackend(context.Background(), dsn)
	require.NoError(t, err)
	rec := NewRecorder(b)
	t.Cleanup(func() { _ = rec.Close() })

	version, dirty, err := migrations.PostgresVersion(dsn)
	require.NoError(t, err)
	require.False(t, dirty)
	require.EqualValues(t, 1, version)

	exerciseRecorder(t, rec)
}

func TestMongoRecorderAgainstRealMongo(t *testing.T) {
	requireDocker(t)
	addr := startContainer(t, testcontainers.ContainerRequest{
		Image:        "mongo:7",
		ExposedPorts: []string{"27017/tcp"},
		WaitingFor:   wait.ForLog("Waiting for connections").WithStartupTimeout(60 * time.Second),
	}, "27017")

	b, err := NewMongoBackend(context.Background(), "mongodb://"+addr, "ocigw_it")
	require.NoError(t, err)
	rec := NewRecorder(b)
	t.Cleanup(func() { _ = rec.Close() })

	exerciseRecorder(t, rec)
}
