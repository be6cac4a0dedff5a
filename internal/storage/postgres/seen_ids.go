package postgres

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"news_pusher/internal/domain"
)

// SeenStore keeps the seen set in the seen_ids table; seq preserves
// insertion order so the oldest rows are the first to go.
type SeenStore struct {
	db        *sqlx.DB
	txManager *TransactionManager
}

func NewSeenStore(db *sqlx.DB) *SeenStore {
	return &SeenStore{
		db:        db,
		txManager: NewTransactionManager(db),
	}
}

func (s *SeenStore) Load(ctx context.Context) (*domain.SeenSet, error) {
	var ids []string
	query := `SELECT id FROM seen_ids ORDER BY seq`

	if err := s.db.SelectContext(ctx, &ids, query); err != nil {
		return nil, fmt.Errorf("select seen ids: %w", err)
	}
	return domain.NewSeenSet(ids), nil
}

// Save makes the table match set: new ids are appended in order and ids no
// longer in the set (evicted by trimming) are removed.
func (s *SeenStore) Save(ctx context.Context, set *domain.SeenSet) error {
	ids := set.IDs()

	return s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		exec := GetExecutor(txCtx, s.db)

		insert := `
			INSERT INTO seen_ids (id)
			SELECT t.id FROM unnest($1::text[]) WITH ORDINALITY AS t(id, ord)
			ORDER BY t.ord
			ON CONFLICT (id) DO NOTHING`
		if _, err := exec.ExecContext(txCtx, insert, pq.Array(ids)); err != nil {
			return fmt.Errorf("insert seen ids: %w", err)
		}

		prune := `DELETE FROM seen_ids WHERE NOT (id = ANY($1::text[]))`
		if _, err := exec.ExecContext(txCtx, prune, pq.Array(ids)); err != nil {
			return fmt.Errorf("prune seen ids: %w", err)
		}

		return nil
	})
}
