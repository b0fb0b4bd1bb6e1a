package repositories

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"
	"waste-dispatch-service/internal/platform/db"

	"github.com/stretchr/testify/require"
	tc "github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

// TestPostgresLedger runs the ledger contract against a real PostgreSQL server.
func TestPostgresLedger(t *testing.T) {
	if os.Getenv("DOCKER_AVAILABLE") != "true" && os.Getenv("DOCKER_AVAILABLE") != "1" {
		t.Skip("docker not available")
	}
	ctx := context.Background()
	req := tc.ContainerRequest{
		Image:        "postgres:16-alpine",
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_USER":     "dispatch",
			"POSTGRES_PASSWORD": "dispatch",
			"POSTGRES_DB":       "dispatch",
		},
		WaitingFor: wait.ForLog("database system is ready to accept connections").
			WithOccurrence(2).
			WithStartupTimeout(60 * time.Second),
	}
	container, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Terminate(ctx) })

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "5432")
	require.NoError(t, err)

	dsn := fmt.Sprintf("postgres://dispatch:dispatch@%s:%s/dispatch?sslmode=disable", host, port.Port())
	conn, err := db.Open(db.DriverPostgres, dsn, 4)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	require.NoError(t, InitSchema(ctx, conn))
	require.NoError(t, SeedDB(ctx, conn, DialectPostgres, testSeed()))

	runLedgerContract(t, NewSQLLedger(conn, DialectPostgres))
}
