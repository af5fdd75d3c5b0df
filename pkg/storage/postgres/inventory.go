package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/openbay/openbay/pkg/model"
	"github.com/openbay/openbay/pkg/storage"
)

type inventoryRepo struct {
	s *Store
}

const inventoryCols = "id, part_number, name, description, quantity, unit_price, reorder_threshold, created_at, updated_at"

func scanInventoryItem(row interface{ Scan(...any) error }) (*model.InventoryItem, error) {
	var item model.InventoryItem
	err := row.Scan(&item.ID, &item.PartNumber, &item.Name, &item.Description, &item.Quantity, &item.UnitPrice, &item.ReorderThreshold, &item.CreatedAt, &item.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, storage.ErrNotFound
		}
		return nil, err
	}
	return &item, nil
}

func (r *inventoryRepo) Create(ctx context.Context, item *model.InventoryItem) (err error) {
	start := time.Now()
	defer func() { r.s.observe("inventory", "create", start, err) }()
	if item.ID == "" {
		item.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	item.CreatedAt, item.UpdatedAt = now, now
	_, err = r.s.db.ExecContext(ctx,
		`INSERT INTO inventory_items (`+inventoryCols+`) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		item.ID, item.PartNumber, item.Name, item.Description, item.Quantity, item.UnitPrice, item.ReorderThreshold, item.CreatedAt, item.UpdatedAt)
	return err
}

func (r *inventoryRepo) Get(ctx context.Context, id string) (*model.InventoryItem, error) {
	row := r.s.db.QueryRowContext(ctx,
		`SELECT `+inventoryCols+` FROM inventory_items WHERE id = $1`, id)
	return scanInventoryItem(row)
}

func (r *inventoryRepo) Update(ctx context.Context, item *model.InventoryItem) (err error) {
	start := time.Now()
	defer func() { r.s.observe("inventory", "update", start, err) }()
	item.UpdatedAt = time.Now().UTC()
	err = r.s.execAffectingOne(ctx,
		`UPDATE inventory_items SET part_number = $2, name = $3, description = $4, quantity = $5, unit_price = $6, reorder_threshold = $7, updated_at = $8 WHERE id = $1`,
		item.ID, item.PartNumber, item.Name, item.Description, item.Quantity, item.UnitPrice, item.ReorderThreshold, item.UpdatedAt)
	return err
}

func (r *inventoryRepo) Delete(ctx context.Context, id string) (err error) {
	start := time.Now()
	defer func() { r.s.observe("inventory", "delete", start, err) }()
	err = r.s.execAffectingOne(ctx, `DELETE FROM inventory_items WHERE id = $1`, id)
	return err
}

func (r *inventoryRepo) List(ctx context.Context, opts storage.ListOptions) ([]*model.InventoryItem, error) {
	query := `SELECT ` + inventoryCols + ` FROM inventory_items ORDER BY part_number, id`
	clause, args := limitClause(opts, nil)
	query += clause

	rows, err := r.s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*model.InventoryItem
	for rows.Next() {
		item, err := scanInventoryItem(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, item)
	}
	return out, rows.Err()
}
