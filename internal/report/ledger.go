package report

import (
	"bytes"
	"fmt"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/Spok95/coffee-club/internal/domain/subscriptions"
)

const ContentTypeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// LedgerXLSX выгружает журнал погашений подписки, время в часовом поясе loc.
func LedgerXLSX(sub *subscriptions.Subscription, rows []subscriptions.Redemption, loc *time.Location) ([]byte, error) {
	if sub == nil {
		return nil, fmt.Errorf("ledger: nil subscription")
	}
	if loc == nil {
		loc = time.UTC
	}

	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	sheet := f.GetSheetName(f.GetActiveSheetIndex())

	summary := [][]interface{}{
		{"subscription_id", sub.ID},
		{"user_id", sub.UserID},
		{"daily_drinks_remaining", sub.DailyDrinksRemaining},
		{"last_reset_date", sub.LastResetDate.In(loc).Format(time.DateTime)},
		{"redemptions", len(rows)},
	}
	row := 1
	for _, line := range summary {
		cell, err := excelize.CoordinatesToCellName(1, row)
		if err != nil {
			return nil, err
		}
		if err := f.SetSheetRow(sheet, cell, &line); err != nil {
			return nil, fmt.Errorf("ledger summary: %w", err)
		}
		row++
	}
	row++

	header := []interface{}{"redemption_id", "created_at", "redeemed_by", "idempotency_key"}
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return nil, err
	}
	if err := f.SetSheetRow(sheet, cell, &header); err != nil {
		return nil, fmt.Errorf("ledger header: %w", err)
	}
	row++

	for _, r := range rows {
		line := []interface{}{
			r.ID,
			r.CreatedAt.In(loc).Format(time.DateTime),
			r.RedeemedBy,
			r.IdempotencyKey,
		}
		cell, err := excelize.CoordinatesToCellName(1, row)
		if err != nil {
			return nil, err
		}
		if err := f.SetSheetRow(sheet, cell, &line); err != nil {
			return nil, fmt.Errorf("ledger row: %w", err)
		}
		row++
	}
	_ = f.SetColWidth(sheet, "A", "D", 38)

	buf := &bytes.Buffer{}
	if err := f.Write(buf); err != nil {
		return nil, fmt.Errorf("ledger write: %w", err)
	}
	return buf.Bytes(), nil
}

// LedgerFileName: имя файла выгрузки.
func LedgerFileName(userID string, at time.Time) string {
	return fmt.Sprintf("ledger_%s_%s.xlsx", userID, at.Format("20060102_150405"))
}
