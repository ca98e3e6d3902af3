package repository

import (
	"context"
	"errors"
	"time"

	"campuswallet/internal/model"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

var (
	ErrEntryNotFound      = errors.New("ledger entry not found")
	ErrEntryStatusInvalid = errors.New("ledger entry status transition not allowed")
)

// EntryRepository is the append-only transaction log. Entries are created
// inside the same scoped transaction as the balance write they record;
// afterwards only the administrative status override may touch them.
type EntryRepository struct {
	db *gorm.DB
}

func NewEntryRepository(db *gorm.DB) *EntryRepository {
	return &EntryRepository{db: db}
}

func (r *EntryRepository) Create(ctx context.Context, tx *gorm.DB, entry *model.LedgerEntry) error {
	if tx == nil {
		tx = r.db
	}
	return tx.WithContext(ctx).Create(entry).Error
}

func (r *EntryRepository) GetByEntryID(ctx context.Context, entryID string) (*model.LedgerEntry, error) {
	var entry model.LedgerEntry
	err := r.db.WithContext(ctx).Where("entry_id = ?", entryID).First(&entry).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrEntryNotFound
		}
		return nil, err
	}
	return &entry, nil
}

// GetByTransferNo returns the entry pair produced by one transfer.
func (r *EntryRepository) GetByTransferNo(ctx context.Context, transferNo string) ([]*model.LedgerEntry, error) {
	var entries []*model.LedgerEntry
	err := r.db.WithContext(ctx).
		Where("transfer_no = ?", transferNo).
		Order("kind DESC"). // TRANSFER_OUT before TRANSFER_IN
		Find(&entries).Error
	return entries, err
}

// HistoryFilter narrows a history query. Zero values mean "no filter".
type HistoryFilter struct {
	Kind   string
	Status string
	From   time.Time
	To     time.Time // exclusive
}

// ListByAccount returns the account's entries newest first.
func (r *EntryRepository) ListByAccount(ctx context.Context, accountID string, filter HistoryFilter, page, pageSize int) ([]*model.LedgerEntry, int64, error) {
	var entries []*model.LedgerEntry
	var total int64

	query := r.db.WithContext(ctx).Model(&model.LedgerEntry{}).Where("account_id = ?", accountID)
	if filter.Kind != "" {
		query = query.Where("kind = ?", filter.Kind)
	}
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if !filter.From.IsZero() {
		query = query.Where("created_at >= ?", filter.From)
	}
	if !filter.To.IsZero() {
		query = query.Where("created_at < ?", filter.To)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := query.
		Order("created_at DESC, id DESC").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&entries).Error

	return entries, total, err
}

// UpdateStatus applies an administrative status override. It validates the
// transition and guards the write with the expected current status; it never
// touches amounts or balances.
func (r *EntryRepository) UpdateStatus(ctx context.Context, entryID string, fromStatus, toStatus string) error {
	if !model.CanTransitionEntryStatus(fromStatus, toStatus) {
		return ErrEntryStatusInvalid
	}

	result := r.db.WithContext(ctx).
		Model(&model.LedgerEntry{}).
		Where("entry_id = ? AND status = ?", entryID, fromStatus).
		Update("status", toStatus)

	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		if _, err := r.GetByEntryID(ctx, entryID); err != nil {
			return err
		}
		return ErrEntryStatusInvalid
	}
	return nil
}

// AggregateFilter narrows an aggregation query. Status defaults to COMPLETED
// so statistics only ever see committed money movement.
type AggregateFilter struct {
	AccountID string
	Status    string
	From      time.Time
	To        time.Time // exclusive
}

// KindAggregate is one aggregation row, grouped by entry kind.
type KindAggregate struct {
	Kind  string          `json:"kind"`
	Count int64           `json:"count"`
	Total decimal.Decimal `json:"total"`
	Avg   decimal.Decimal `json:"avg"`
	Min   decimal.Decimal `json:"min"`
	Max   decimal.Decimal `json:"max"`
}

// Aggregate computes count/sum/avg/min/max of entry amounts per kind.
func (r *EntryRepository) Aggregate(ctx context.Context, filter AggregateFilter) ([]KindAggregate, error) {
	status := filter.Status
	if status == "" {
		status = model.EntryStatusCompleted
	}

	query := r.db.WithContext(ctx).
		Model(&model.LedgerEntry{}).
		Where("status = ?", status)
	if filter.AccountID != "" {
		query = query.Where("account_id = ?", filter.AccountID)
	}
	if !filter.From.IsZero() {
		query = query.Where("created_at >= ?", filter.From)
	}
	if !filter.To.IsZero() {
		query = query.Where("created_at < ?", filter.To)
	}

	var rows []KindAggregate
	err := query.
		Select("kind, COUNT(*) AS count, SUM(amount) AS total, AVG(amount) AS avg, MIN(amount) AS min, MAX(amount) AS max").
		Group("kind").
		Order("kind ASC").
		Scan(&rows).Error
	return rows, err
}

// SumByAccount derives the account's balance from its entries: credits count
// positive, debits negative. CANCELLED entries still count: the
// administrative override never re-applies a balance change, so a cancelled
// entry's money movement remains in the stored balance. Only PENDING and
// FAILED entries, which never moved money, are excluded. The result must
// always equal the stored balance; the reconcile job checks exactly that.
func (r *EntryRepository) SumByAccount(ctx context.Context, accountID string) (decimal.Decimal, error) {
	var row struct {
		Total decimal.NullDecimal
	}
	err := r.db.WithContext(ctx).
		Model(&model.LedgerEntry{}).
		Select("SUM(CASE WHEN kind IN (?, ?) THEN amount ELSE -amount END) AS total",
			model.KindTopUp, model.KindTransferIn).
		Where("account_id = ? AND status IN (?, ?)",
			accountID, model.EntryStatusCompleted, model.EntryStatusCancelled).
		Scan(&row).Error
	if err != nil {
		return decimal.Zero, err
	}
	if !row.Total.Valid {
		return decimal.Zero, nil
	}
	return row.Total.Decimal, nil
}
