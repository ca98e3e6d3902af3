package service

import (
	"context"
	"time"

	"campuswallet/internal/model"
	"campuswallet/internal/repository"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// StatsService is read-only: it aggregates committed ledger entries and
// never participates in a mutation sequence, so it takes no locks.
type StatsService struct {
	entryRepo *repository.EntryRepository
}

func NewStatsService(db *gorm.DB) *StatsService {
	return &StatsService{
		entryRepo: repository.NewEntryRepository(db),
	}
}

type Summary struct {
	Kinds         []repository.KindAggregate `json:"kinds"`
	Count         int64                      `json:"count"`
	TotalCredited decimal.Decimal            `json:"total_credited"`
	TotalDebited  decimal.Decimal            `json:"total_debited"`
}

// Aggregate summarizes entry amounts per kind plus overall credit/debit
// totals.
func (s *StatsService) Aggregate(ctx context.Context, filter repository.AggregateFilter) (*Summary, error) {
	rows, err := s.entryRepo.Aggregate(ctx, filter)
	if err != nil {
		return nil, err
	}

	summary := &Summary{
		Kinds:         rows,
		TotalCredited: decimal.Zero,
		TotalDebited:  decimal.Zero,
	}
	for _, row := range rows {
		summary.Count += row.Count
		if model.IsCredit(row.Kind) {
			summary.TotalCredited = summary.TotalCredited.Add(row.Total)
		} else {
			summary.TotalDebited = summary.TotalDebited.Add(row.Total)
		}
	}
	return summary, nil
}

type DailySummary struct {
	Date             string          `json:"date"`
	Count            int64           `json:"count"`
	TotalTopUp       decimal.Decimal `json:"total_top_up"`
	TotalPurchase    decimal.Decimal `json:"total_purchase"`
	TotalTransferOut decimal.Decimal `json:"total_transfer_out"`
	TotalTransferIn  decimal.Decimal `json:"total_transfer_in"`
}

// DailySummary aggregates one calendar day of committed entries.
func (s *StatsService) DailySummary(ctx context.Context, date time.Time) (*DailySummary, error) {
	dayStart := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, date.Location())
	dayEnd := dayStart.Add(24 * time.Hour)

	rows, err := s.entryRepo.Aggregate(ctx, repository.AggregateFilter{
		From: dayStart,
		To:   dayEnd,
	})
	if err != nil {
		return nil, err
	}

	summary := &DailySummary{
		Date:             dayStart.Format("2006-01-02"),
		TotalTopUp:       decimal.Zero,
		TotalPurchase:    decimal.Zero,
		TotalTransferOut: decimal.Zero,
		TotalTransferIn:  decimal.Zero,
	}
	for _, row := range rows {
		summary.Count += row.Count
		switch row.Kind {
		case model.KindTopUp:
			summary.TotalTopUp = row.Total
		case model.KindPurchase:
			summary.TotalPurchase = row.Total
		case model.KindTransferOut:
			summary.TotalTransferOut = row.Total
		case model.KindTransferIn:
			summary.TotalTransferIn = row.Total
		}
	}
	return summary, nil
}
