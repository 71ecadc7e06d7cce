package migrations

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	_ "github.com/jackc/pgx/v5/stdlib"
)

func getTestDB(t *testing.T) (*sql.DB, func()) {
	ctx := context.Background()

	pgContainer, err := postgres.Run(ctx,
		"postgres:15-alpine",
		postgres.WithDatabase("testdb"),
		postgres.WithUsername("user"),
		postgres.WithPassword("password"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(5*time.Second),
		),
	)
	require.NoError(t, err)

	dsn, err := pgContainer.ConnectionString(ctx)
	require.NoError(t, err)

	db, err := sql.Open("pgx", dsn)
	require.NoError(t, err)

	cleanup := func() {
		_ = db.Close()
		if err := pgContainer.Terminate(ctx); err != nil {
			t.Logf("failed to terminate container: %s", err)
		}
	}

	return db, cleanup
}

func getMigrationsPath(t *testing.T) string {
	projectRoot, err := filepath.Abs("../..")
	require.NoError(t, err)

	migrationsPath := filepath.Join(projectRoot, "migrations")
	t.Logf("Migrations path: %s", migrationsPath)
	return migrationsPath
}

func TestRunMigrations(t *testing.T) {
	db, cleanup := getTestDB(t)
	defer cleanup()

	migrationsPath := getMigrationsPath(t)

	err := Run(db, migrationsPath)
	require.NoError(t, err)

	for _, table := range []string{"plans", "accounts", "users", "permissions", "role_permissions", "user_permissions", "subscriptions"} {
		var exists bool
		err = db.QueryRow(`
			SELECT EXISTS (
				SELECT 1 FROM information_schema.tables
				WHERE table_schema = 'public' AND table_name = $1
			)
		`, table).Scan(&exists)
		require.NoError(t, err)
		require.True(t, exists, "Table %q should exist", table)
	}

	var exists bool
	err = db.QueryRow(`
		SELECT EXISTS (
			SELECT 1 FROM pg_indexes
			WHERE schemaname = 'public'
			AND tablename = 'subscriptions'
			AND indexname = 'subscriptions_one_trial_per_user'
		)
	`).Scan(&exists)
	require.NoError(t, err)
	require.True(t, exists, "Partial unique index on trials should exist")

	var permissionsCount int
	err = db.QueryRow("SELECT COUNT(*) FROM permissions").Scan(&permissionsCount)
	require.NoError(t, err)
	require.Equal(t, 40, permissionsCount, "Catalog should hold 8 pages times 5 actions")

	var plansCount int
	err = db.QueryRow("SELECT COUNT(*) FROM plans").Scan(&plansCount)
	require.NoError(t, err)
	require.Equal(t, 3, plansCount, "Should have seeded plans")

	var adminGrants int
	err = db.QueryRow("SELECT COUNT(*) FROM role_permissions WHERE role = 'admin' AND granted").Scan(&adminGrants)
	require.NoError(t, err)
	require.Equal(t, 40, adminGrants, "Admin should be granted the whole catalog")

	var utilisateurGrants int
	err = db.QueryRow("SELECT COUNT(*) FROM role_permissions WHERE role = 'utilisateur' AND granted").Scan(&utilisateurGrants)
	require.NoError(t, err)
	require.Equal(t, 1, utilisateurGrants, "Default role only reaches the dashboard")
}

func TestMigrationIdempotency(t *testing.T) {
	db, cleanup := getTestDB(t)
	defer cleanup()

	migrationsPath := getMigrationsPath(t)

	err := Run(db, migrationsPath)
	require.NoError(t, err)

	// Повторный запуск не должен падать и не должен дублировать данные
	err = Run(db, migrationsPath)
	require.NoError(t, err)

	var permissionsCount int
	err = db.QueryRow("SELECT COUNT(*) FROM permissions").Scan(&permissionsCount)
	require.NoError(t, err)
	require.Equal(t, 40, permissionsCount)
}
