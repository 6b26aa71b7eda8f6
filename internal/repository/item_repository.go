package repository

import (
	"context"
	"receiptly/internal/models"

	"github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

type ItemRepository struct {
	db     *pgxpool.Pool
	logger *zap.Logger
}

func NewItemRepository(db *pgxpool.Pool, logger *zap.Logger) *ItemRepository {
	return &ItemRepository{
		db:     db,
		logger: logger,
	}
}

func (r *ItemRepository) CreateBatch(ctx context.Context, items []*models.ReceiptItem) error {
	if len(items) == 0 {
		return nil
	}

	builder := squirrel.Insert("receipt_items").
		Columns("id", "receipt_id", "category_id", "name", "quantity", "unit_price", "total_price", "currency", "created_at").
		PlaceholderFormat(squirrel.Dollar)

	for _, item := range items {
		builder = builder.Values(
			item.ID, item.ReceiptID, item.CategoryID, item.Name, item.Quantity,
			item.UnitPrice, item.TotalPrice, item.Currency, item.CreatedAt,
		)
	}

	sql, args, err := builder.ToSql()
	if err != nil {
		return err
	}

	_, err = r.db.Exec(ctx, sql, args...)
	return err
}

func (r *ItemRepository) ListByReceiptID(ctx context.Context, receiptID uuid.UUID) ([]*models.ReceiptItem, error) {
	query := squirrel.Select("id", "receipt_id", "category_id", "name", "quantity", "unit_price", "total_price", "currency", "created_at").
		From("receipt_items").
		Where(squirrel.Eq{"receipt_id": receiptID}).
		OrderBy("created_at ASC", "name ASC").
		PlaceholderFormat(squirrel.Dollar)

	sql, args, err := query.ToSql()
	if err != nil {
		return nil, err
	}

	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []*models.ReceiptItem
	for rows.Next() {
		var item models.ReceiptItem
		if err := rows.Scan(
			&item.ID, &item.ReceiptID, &item.CategoryID, &item.Name, &item.Quantity,
			&item.UnitPrice, &item.TotalPrice, &item.Currency, &item.CreatedAt,
		); err != nil {
			return nil, err
		}
		items = append(items, &item)
	}

	return items, nil
}

func (r *ItemRepository) DeleteByIDs(ctx context.Context, receiptID uuid.UUID, ids []uuid.UUID) error {
	if len(ids) == 0 {
		return nil
	}

	query := squirrel.Delete("receipt_items").
		Where(squirrel.Eq{"receipt_id": receiptID, "id": ids}).
		PlaceholderFormat(squirrel.Dollar)

	sql, args, err := query.ToSql()
	if err != nil {
		return err
	}

	_, err = r.db.Exec(ctx, sql, args...)
	return err
}

func (r *ItemRepository) DeleteByReceiptID(ctx context.Context, receiptID uuid.UUID) error {
	query := squirrel.Delete("receipt_items").
		Where(squirrel.Eq{"receipt_id": receiptID}).
		PlaceholderFormat(squirrel.Dollar)

	sql, args, err := query.ToSql()
	if err != nil {
		return err
	}

	_, err = r.db.Exec(ctx, sql, args...)
	return err
}
