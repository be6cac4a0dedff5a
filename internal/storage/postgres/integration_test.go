//go:build integration

package postgres

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/stretchr/testify/suite"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"news_pusher/internal/domain"
)

type PostgresIntegrationSuite struct {
	suite.Suite
	ctx       context.Context
	container *postgres.PostgresContainer
	db        *sqlx.DB
}

func (s *PostgresIntegrationSuite) SetupSuite() {
	s.ctx = context.Background()

	migrationsPath, err := filepath.Abs("../../../migrations")
	s.Require().NoError(err)

	container, err := postgres.Run(s.ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("test_db"),
		postgres.WithUsername("test"),
		postgres.WithPassword("test"),
		postgres.WithInitScripts(
			filepath.Join(migrationsPath, "001_create_seen_ids.up.sql"),
		),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	s.Require().NoError(err)
	s.container = container

	connStr, err := container.ConnectionString(s.ctx, "sslmode=disable")
	s.Require().NoError(err)

	db, err := sqlx.Connect("postgres", connStr)
	s.Require().NoError(err)
	s.db = db
}

func (s *PostgresIntegrationSuite) TearDownSuite() {
	if s.db != nil {
		s.db.Close()
	}
	if s.container != nil {
		_ = s.container.Terminate(s.ctx)
	}
}

func (s *PostgresIntegrationSuite) SetupTest() {
	_, _ = s.db.ExecContext(s.ctx, "DELETE FROM seen_ids")
}

func TestPostgresIntegrationSuite(t *testing.T) {
	suite.Run(t, new(PostgresIntegrationSuite))
}

func (s *PostgresIntegrationSuite) TestSeenStore_LoadEmpty() {
	store := NewSeenStore(s.db)

	set, err := store.Load(s.ctx)
	s.NoError(err)
	s.Equal(0, set.Len())
}

func (s *PostgresIntegrationSuite) TestSeenStore_SaveKeepsOrder() {
	store := NewSeenStore(s.db)

	s.Require().NoError(store.Save(s.ctx, domain.NewSeenSet([]string{"3", "1", "2"})))

	set, err := store.Load(s.ctx)
	s.NoError(err)
	s.Equal([]string{"3", "1", "2"}, set.IDs())
}

func (s *PostgresIntegrationSuite) TestSeenStore_SaveAppendsAndPrunes() {
	store := NewSeenStore(s.db)

	ids := make([]string, 10)
	for i := range ids {
		ids[i] = fmt.Sprintf("%d", i)
	}
	s.Require().NoError(store.Save(s.ctx, domain.NewSeenSet(ids)))

	set, err := store.Load(s.ctx)
	s.Require().NoError(err)
	set.Add("10")
	set.Add("11")
	s.Equal(2, set.Trim(10))

	s.Require().NoError(store.Save(s.ctx, set))

	loaded, err := store.Load(s.ctx)
	s.NoError(err)
	s.Equal(10, loaded.Len())
	s.False(loaded.Contains("0"))
	s.False(loaded.Contains("1"))
	s.Equal("2", loaded.IDs()[0])
	s.Equal("11", loaded.IDs()[9])
}

func (s *PostgresIntegrationSuite) TestTransactionManager_RollbackOnError() {
	tm := NewTransactionManager(s.db)

	err := tm.WithTransaction(s.ctx, func(txCtx context.Context) error {
		_, err := GetExecutor(txCtx, s.db).ExecContext(txCtx, "INSERT INTO seen_ids (id) VALUES ('rolled-back')")
		s.Require().NoError(err)
		return fmt.Errorf("abort")
	})
	s.Error(err)

	var count int
	s.NoError(s.db.GetContext(s.ctx, &count, "SELECT COUNT(*) FROM seen_ids"))
	s.Equal(0, count)
}
