package database

import (
	"context"
	"fmt"
)

// DeleteEntry removes entries matching title within the named category.
// Seasons, episodes and servers go with them through ON DELETE CASCADE.
func (s *CatalogStore) DeleteEntry(ctx context.Context, title, category string) (int64, error) {
	res, err := s.db.ExecContext(ctx, `
		DELETE FROM entries
		WHERE title = $1 AND category_id = (SELECT id FROM categories WHERE name = $2)`,
		title, category,
	)
	if err != nil {
		return 0, fmt.Errorf("delete entry: %w", err)
	}
	return res.RowsAffected()
}

// ClearAll deletes every server, episode, season and entry. Categories and
// subcategories are kept.
func (s *CatalogStore) ClearAll(ctx context.Context) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for _, table := range []string{"servers", "episodes", "seasons", "entries"} {
		if _, err := tx.ExecContext(ctx, `DELETE FROM `+table); err != nil {
			return fmt.Errorf("clear %s: %w", table, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit clear: %w", err)
	}
	return nil
}

// RemoveDuplicates deletes entries that repeat the title and year of a lower-id
// entry in the same category. It returns the number of entries removed.
func (s *CatalogStore) RemoveDuplicates(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(ctx, `
		DELETE FROM entries
		WHERE id IN (
			SELECT e.id
			FROM entries e
			JOIN entries k
				ON k.title = e.title
				AND k.year = e.year
				AND k.category_id = e.category_id
				AND k.id < e.id
		)`)
	if err != nil {
		return 0, fmt.Errorf("remove duplicates: %w", err)
	}
	return res.RowsAffected()
}
