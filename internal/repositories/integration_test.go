//go:build integration

package repository_test

import (
	"context"
	"database/sql"
	"log"
	"os"
	"testing"
	"time"

	repository "github.com/aaravmahajanofficial/itemstore/internal/repositories"
	"github.com/aaravmahajanofficial/itemstore/internal/testutils"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	_ "github.com/lib/pq"
)

var testDB *sql.DB

func setupTestDB() (func(context.Context, ...testcontainers.TerminateOption) error, error) {
	var (
		dbName = "itemstore"
		dbPwd  = "password"
		dbUser = "user"
	)

	ctx := context.Background()

	dbContainer, err := postgres.Run(
		ctx,
		"postgres:15",
		postgres.WithDatabase(dbName),
		postgres.WithUsername(dbUser),
		postgres.WithPassword(dbPwd),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second)),
	)
	if err != nil {
		return nil, err
	}

	connStr, err := dbContainer.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		return dbContainer.Terminate, err
	}

	testDB, err = sql.Open("postgres", connStr)
	if err != nil {
		return dbContainer.Terminate, err
	}

	if err := repository.Migrate(testDB); err != nil {
		return dbContainer.Terminate, err
	}

	return dbContainer.Terminate, nil
}

func TestMain(m *testing.M) {
	teardown, err := setupTestDB()
	if err != nil {
		log.Fatalf("could not start postgres container: %v", err)
	}

	code := m.Run()

	testDB.Close()
	if err := teardown(context.Background()); err != nil {
		log.Printf("could not terminate postgres container: %v", err)
	}

	os.Exit(code)
}

func TestPostgres_Ledger(t *testing.T) {
	testutils.RunLedgerSuite(t, repository.NewFromDB(testDB))
}
