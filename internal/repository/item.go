package repository

import (
	"context"
	"fmt"

	"github.com/amezhanin/skinstore/internal/model"
)

type ItemRepository interface {
	ReplaceAll(ctx context.Context, items []model.Item) error
	List(ctx context.Context) ([]model.Item, error)
}

type itemRepository struct {
	db *Database
}

func NewItemRepository(db *Database) ItemRepository {
	return &itemRepository{db: db}
}

// ReplaceAll swaps the whole catalog in one transaction. Each successful
// refresh cycle rewrites the table wholesale, there is no item-level merge.
func (r *itemRepository) ReplaceAll(ctx context.Context, items []model.Item) error {
	tx, err := r.db.BeginTx(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM items`); err != nil {
		return fmt.Errorf("failed to clear items: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO items (name, min_price_non_tradable, min_price_tradable) VALUES ($1, $2, $3)`)
	if err != nil {
		return fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, item := range items {
		if _, err := stmt.ExecContext(ctx, item.Name, item.MinPriceNonTradable, item.MinPriceTradable); err != nil {
			return fmt.Errorf("failed to insert item %q: %w", item.Name, err)
		}
	}

	return tx.Commit()
}

func (r *itemRepository) List(ctx context.Context) ([]model.Item, error) {
	query := `SELECT name, min_price_non_tradable, min_price_tradable FROM items ORDER BY id`
	rows, err := r.db.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []model.Item
	for rows.Next() {
		var item model.Item
		if err := rows.Scan(&item.Name, &item.MinPriceNonTradable, &item.MinPriceTradable); err != nil {
			return nil, err
		}
		items = append(items, item)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return items, nil
}
