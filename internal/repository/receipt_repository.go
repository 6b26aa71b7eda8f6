package repository

import (
	"context"
	"time"

	"receiptly/internal/models"

	"github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type ReceiptRepository struct {
	db     *pgxpool.Pool
	logger *zap.Logger
}

func NewReceiptRepository(db *pgxpool.Pool, logger *zap.Logger) *ReceiptRepository {
	return &ReceiptRepository{
		db:     db,
		logger: logger,
	}
}

var receiptColumns = []string{
	"id", "user_id", "status", "store_name", "total_amount", "currency",
	"purchased_at", "file_name", "image_path", "content_type", "created_at", "updated_at",
}

func scanReceipt(row squirrel.RowScanner) (*models.Receipt, error) {
	var receipt models.Receipt
	err := row.Scan(
		&receipt.ID, &receipt.UserID, &receipt.Status, &receipt.StoreName, &receipt.TotalAmount,
		&receipt.Currency, &receipt.PurchasedAt, &receipt.FileName, &receipt.ImagePath,
		&receipt.ContentType, &receipt.CreatedAt, &receipt.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &receipt, nil
}

func (r *ReceiptRepository) Create(ctx context.Context, receipt *models.Receipt) error {
	query := squirrel.Insert("receipts").
		Columns(receiptColumns...).
		Values(
			receipt.ID, receipt.UserID, receipt.Status, receipt.StoreName, receipt.TotalAmount,
			receipt.Currency, receipt.PurchasedAt, receipt.FileName, receipt.ImagePath,
			receipt.ContentType, receipt.CreatedAt, receipt.UpdatedAt,
		).
		PlaceholderFormat(squirrel.Dollar)

	sql, args, err := query.ToSql()
	if err != nil {
		return err
	}

	_, err = r.db.Exec(ctx, sql, args...)
	return err
}

func (r *ReceiptRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Receipt, error) {
	query := squirrel.Select(receiptColumns...).
		From("receipts").
		Where(squirrel.Eq{"id": id}).
		PlaceholderFormat(squirrel.Dollar)

	sql, args, err := query.ToSql()
	if err != nil {
		return nil, err
	}

	return scanReceipt(r.db.QueryRow(ctx, sql, args...))
}

func (r *ReceiptRepository) ListByUserID(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*models.Receipt, error) {
	query := squirrel.Select(receiptColumns...).
		From("receipts").
		Where(squirrel.Eq{"user_id": userID}).
		OrderBy("created_at DESC").
		Limit(uint64(limit)).
		Offset(uint64(offset)).
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

	var receipts []*models.Receipt
	for rows.Next() {
		receipt, err := scanReceipt(rows)
		if err != nil {
			return nil, err
		}
		receipts = append(receipts, receipt)
	}

	return receipts, nil
}

// ListProcessedBetween returns processed receipts purchased (or, lacking a
// purchase date, created) inside the half-open interval [from, to).
func (r *ReceiptRepository) ListProcessedBetween(ctx context.Context, userID uuid.UUID, from, to time.Time) ([]*models.Receipt, error) {
	query := squirrel.Select(receiptColumns...).
		From("receipts").
		Where(squirrel.Eq{"user_id": userID, "status": models.ReceiptStatusProcessed}).
		Where(squirrel.GtOrEq{"COALESCE(purchased_at, created_at)": from}).
		Where(squirrel.Lt{"COALESCE(purchased_at, created_at)": to}).
		OrderBy("COALESCE(purchased_at, created_at) ASC").
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

	var receipts []*models.Receipt
	for rows.Next() {
		receipt, err := scanReceipt(rows)
		if err != nil {
			return nil, err
		}
		receipts = append(receipts, receipt)
	}

	return receipts, nil
}

// UpdateExtraction stores the pipeline's output and flips the receipt to
// processed in one statement.
func (r *ReceiptRepository) UpdateExtraction(ctx context.Context, receipt *models.Receipt) error {
	query := squirrel.Update("receipts").
		Set("status", models.ReceiptStatusProcessed).
		Set("store_name", receipt.StoreName).
		Set("total_amount", receipt.TotalAmount).
		Set("currency", receipt.Currency).
		Set("purchased_at", receipt.PurchasedAt).
		Set("updated_at", squirrel.Expr("NOW()")).
		Where(squirrel.Eq{"id": receipt.ID, "user_id": receipt.UserID}).
		PlaceholderFormat(squirrel.Dollar)

	sql, args, err := query.ToSql()
	if err != nil {
		return err
	}

	_, err = r.db.Exec(ctx, sql, args...)
	return err
}

func (r *ReceiptRepository) Update(ctx context.Context, receipt *models.Receipt) error {
	query := squirrel.Update("receipts").
		Set("store_name", receipt.StoreName).
		Set("total_amount", receipt.TotalAmount).
		Set("currency", receipt.Currency).
		Set("purchased_at", receipt.PurchasedAt).
		Set("updated_at", squirrel.Expr("NOW()")).
		Where(squirrel.Eq{"id": receipt.ID, "user_id": receipt.UserID}).
		PlaceholderFormat(squirrel.Dollar)

	sql, args, err := query.ToSql()
	if err != nil {
		return err
	}

	_, err = r.db.Exec(ctx, sql, args...)
	return err
}

func (r *ReceiptRepository) Delete(ctx context.Context, userID, id uuid.UUID) error {
	query := squirrel.Delete("receipts").
		Where(squirrel.Eq{"id": id, "user_id": userID}).
		PlaceholderFormat(squirrel.Dollar)

	sql, args, err := query.ToSql()
	if err != nil {
		return err
	}

	_, err = r.db.Exec(ctx, sql, args...)
	return err
}

// SpendSummary aggregates processed receipts inside [from, to).
func (r *ReceiptRepository) SpendSummary(ctx context.Context, userID uuid.UUID, from, to time.Time) (decimal.Decimal, int, error) {
	query := squirrel.Select("COALESCE(SUM(total_amount), 0)", "COUNT(*)").
		From("receipts").
		Where(squirrel.Eq{"user_id": userID, "status": models.ReceiptStatusProcessed}).
		Where(squirrel.GtOrEq{"COALESCE(purchased_at, created_at)": from}).
		Where(squirrel.Lt{"COALESCE(purchased_at, created_at)": to}).
		PlaceholderFormat(squirrel.Dollar)

	sql, args, err := query.ToSql()
	if err != nil {
		return decimal.Zero, 0, err
	}

	var total decimal.Decimal
	var count int
	if err := r.db.QueryRow(ctx, sql, args...).Scan(&total, &count); err != nil {
		return decimal.Zero, 0, err
	}

	return total, count, nil
}

type MonthlySpend struct {
	Month        time.Time
	TotalSpend   decimal.Decimal
	ReceiptCount int
}

func (r *ReceiptRepository) MonthlyTrends(ctx context.Context, userID uuid.UUID, months int) ([]MonthlySpend, error) {
	query := squirrel.Select(
		"date_trunc('month', COALESCE(purchased_at, created_at)) AS month",
		"COALESCE(SUM(total_amount), 0)",
		"COUNT(*)",
	).
		From("receipts").
		Where(squirrel.Eq{"user_id": userID, "status": models.ReceiptStatusProcessed}).
		Where(squirrel.Expr("COALESCE(purchased_at, created_at) >= date_trunc('month', NOW()) - make_interval(months => ?)", months-1)).
		GroupBy("month").
		OrderBy("month ASC").
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

	var trends []MonthlySpend
	for rows.Next() {
		var m MonthlySpend
		if err := rows.Scan(&m.Month, &m.TotalSpend, &m.ReceiptCount); err != nil {
			return nil, err
		}
		trends = append(trends, m)
	}

	return trends, nil
}

type StoreSpend struct {
	StoreName    string
	TotalSpend   decimal.Decimal
	ReceiptCount int
}

func (r *ReceiptRepository) TopStores(ctx context.Context, userID uuid.UUID, limit int) ([]StoreSpend, error) {
	query := squirrel.Select("store_name", "COALESCE(SUM(total_amount), 0)", "COUNT(*)").
		From("receipts").
		Where(squirrel.Eq{"user_id": userID, "status": models.ReceiptStatusProcessed}).
		GroupBy("store_name").
		OrderBy("SUM(total_amount) DESC").
		Limit(uint64(limit)).
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

	var stores []StoreSpend
	for rows.Next() {
		var s StoreSpend
		if err := rows.Scan(&s.StoreName, &s.TotalSpend, &s.ReceiptCount); err != nil {
			return nil, err
		}
		stores = append(stores, s)
	}

	return stores, nil
}

type CategorySpend struct {
	CategoryID uuid.UUID
	Category   string
	TotalSpend decimal.Decimal
	ItemCount  int
}

func (r *ReceiptRepository) CategoryBreakdown(ctx context.Context, userID uuid.UUID, from, to time.Time) ([]CategorySpend, error) {
	query := squirrel.Select(
		"c.id", "c.name", "COALESCE(SUM(i.total_price), 0)", "COUNT(i.id)",
	).
		From("receipt_items i").
		Join("receipts r ON r.id = i.receipt_id").
		Join("categories c ON c.id = i.category_id").
		Where(squirrel.Eq{"r.user_id": userID, "r.status": models.ReceiptStatusProcessed}).
		Where(squirrel.GtOrEq{"COALESCE(r.purchased_at, r.created_at)": from}).
		Where(squirrel.Lt{"COALESCE(r.purchased_at, r.created_at)": to}).
		GroupBy("c.id", "c.name").
		OrderBy("SUM(i.total_price) DESC").
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

	var breakdown []CategorySpend
	for rows.Next() {
		var c CategorySpend
		if err := rows.Scan(&c.CategoryID, &c.Category, &c.TotalSpend, &c.ItemCount); err != nil {
			return nil, err
		}
		breakdown = append(breakdown, c)
	}

	return breakdown, nil
}
