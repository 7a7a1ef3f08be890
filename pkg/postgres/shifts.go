package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/jakechorley/salon-bookings/pkg/core/finance"
	"github.com/jakechorley/salon-bookings/pkg/core/model"
	"github.com/jakechorley/salon-bookings/pkg/db"
)

// Numerics are read as text and parsed into decimals so no precision is lost
const shiftColumns = `
	id, staff_id, biz_id, shift_date, status, opened_at, closed_at,
	total_amount::text, consumables_amount::text, master_share::text, salon_share::text,
	percent_master::text, percent_salon::text,
	hourly_rate::text, hours_worked::text, guaranteed_amount::text, topup_amount::text`

const itemColumns = `
	id, client_name, service_name, service_amount::text, consumables_amount::text, booking_id, created_at`

// OpenShift opens the staff member's shift for date, or returns the existing one
func (d *DB) OpenShift(ctx context.Context, staffID, bizID string, date time.Time, split db.ShiftSplit) (*model.Shift, error) {
	var hourlyRate *string
	if split.HourlyRate != nil {
		s := split.HourlyRate.String()
		hourlyRate = &s
	}

	shiftDate := date.Format("2006-01-02")
	row := d.pool.QueryRow(ctx, `
		INSERT INTO staff_shifts (id, staff_id, biz_id, shift_date, percent_master, percent_salon, hourly_rate)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (staff_id, shift_date) DO NOTHING
		RETURNING `+shiftColumns,
		uuid.New().String(), staffID, bizID, shiftDate,
		split.PercentMaster.String(), split.PercentSalon.String(), hourlyRate,
	)
	shift, err := scanShift(row)
	if isNoRows(err) {
		d.logger.Debug("Shift already exists",
			zap.String("staff_id", staffID),
			zap.String("shift_date", shiftDate))
		return d.getShiftByDate(ctx, staffID, shiftDate)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open shift: %w", err)
	}

	d.logger.Info("Opened shift",
		zap.String("shift_id", shift.ID),
		zap.String("staff_id", staffID),
		zap.String("shift_date", shiftDate))
	return shift, nil
}

// GetShift returns db.ErrShiftNotFound when the shift does not exist
func (d *DB) GetShift(ctx context.Context, shiftID string) (*model.Shift, error) {
	shift, err := scanShift(d.pool.QueryRow(ctx, `SELECT `+shiftColumns+` FROM staff_shifts WHERE id = $1`, shiftID))
	if isNoRows(err) {
		return nil, db.ErrShiftNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query shift: %w", err)
	}
	return shift, nil
}

func (d *DB) getShiftByDate(ctx context.Context, staffID, shiftDate string) (*model.Shift, error) {
	shift, err := scanShift(d.pool.QueryRow(ctx,
		`SELECT `+shiftColumns+` FROM staff_shifts WHERE staff_id = $1 AND shift_date = $2`,
		staffID, shiftDate))
	if isNoRows(err) {
		return nil, db.ErrShiftNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query shift: %w", err)
	}
	return shift, nil
}

// GetShiftItems returns the shift's items ordered by creation time
func (d *DB) GetShiftItems(ctx context.Context, shiftID string) ([]model.ShiftItem, error) {
	return getShiftItems(ctx, d.pool, shiftID)
}

// ReplaceShiftItems makes the shift's persisted items exactly match items:
// items with an id are upserted, new items get an id and everything else is
// deleted. Running totals on the shift are refreshed in the same transaction.
func (d *DB) ReplaceShiftItems(ctx context.Context, shiftID string, items []model.ShiftItem) ([]model.ShiftItem, error) {
	var saved []model.ShiftItem

	err := d.inTx(ctx, func(tx pgx.Tx) error {
		if _, err := lockOpenShift(ctx, tx, shiftID); err != nil {
			return err
		}

		ids := make([]string, 0, len(items))
		now := time.Now().UTC()
		for _, item := range items {
			id := uuid.New().String()
			if item.IsSaved() {
				id = *item.ID
			}
			createdAt := item.CreatedAt
			if createdAt.IsZero() {
				createdAt = now
			}

			_, err := tx.Exec(ctx, `
				INSERT INTO staff_shift_items (id, shift_id, client_name, service_name, service_amount, consumables_amount, booking_id, created_at)
				VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
				ON CONFLICT (id) DO UPDATE SET
					client_name = EXCLUDED.client_name,
					service_name = EXCLUDED.service_name,
					service_amount = EXCLUDED.service_amount,
					consumables_amount = EXCLUDED.consumables_amount,
					booking_id = EXCLUDED.booking_id
				WHERE staff_shift_items.shift_id = EXCLUDED.shift_id
			`, id, shiftID, item.ClientName, item.ServiceName,
				item.ServiceAmount.String(), item.ConsumablesAmount.String(), item.BookingID, createdAt)
			if err != nil {
				return fmt.Errorf("failed to upsert shift item: %w", err)
			}
			ids = append(ids, id)
		}

		tag, err := tx.Exec(ctx, `
			DELETE FROM staff_shift_items
			WHERE shift_id = $1 AND NOT (id = ANY($2::uuid[]))
		`, shiftID, ids)
		if err != nil {
			return fmt.Errorf("failed to delete removed shift items: %w", err)
		}

		total, consumables := finance.Totals(items)
		_, err = tx.Exec(ctx, `
			UPDATE staff_shifts SET total_amount = $2, consumables_amount = $3 WHERE id = $1
		`, shiftID, total.String(), consumables.String())
		if err != nil {
			return fmt.Errorf("failed to update shift totals: %w", err)
		}

		saved, err = getShiftItems(ctx, tx, shiftID)
		if err != nil {
			return err
		}

		d.logger.Debug("Replaced shift items",
			zap.String("shift_id", shiftID),
			zap.Int("upserted", len(ids)),
			zap.Int64("deleted", tag.RowsAffected()))
		return nil
	})
	if err != nil {
		return nil, err
	}
	return saved, nil
}

// CloseShift freezes the shift's totals, shares and guarantee top-up
func (d *DB) CloseShift(ctx context.Context, shiftID string, hoursWorked decimal.Decimal) (*model.Shift, error) {
	err := d.inTx(ctx, func(tx pgx.Tx) error {
		shift, err := lockOpenShift(ctx, tx, shiftID)
		if err != nil {
			return err
		}

		items, err := getShiftItems(ctx, tx, shiftID)
		if err != nil {
			return err
		}

		totals := finance.ComputeCloseTotals(items, shift.PercentMaster, shift.PercentSalon, shift.HourlyRate, hoursWorked)

		var guaranteed, topup *string
		if shift.HourlyRate != nil {
			g, t := totals.GuaranteedAmount.String(), totals.TopupAmount.String()
			guaranteed, topup = &g, &t
		}

		_, err = tx.Exec(ctx, `
			UPDATE staff_shifts SET
				status = 'closed',
				closed_at = NOW(),
				total_amount = $2,
				consumables_amount = $3,
				master_share = $4,
				salon_share = $5,
				hours_worked = $6,
				guaranteed_amount = $7,
				topup_amount = $8
			WHERE id = $1
		`, shiftID, totals.TotalAmount.String(), totals.ConsumablesAmount.String(),
			totals.MasterShare.String(), totals.SalonShare.String(),
			hoursWorked.String(), guaranteed, topup)
		if err != nil {
			return fmt.Errorf("failed to close shift: %w", err)
		}

		d.logger.Info("Closed shift",
			zap.String("shift_id", shiftID),
			zap.String("total", totals.TotalAmount.String()),
			zap.String("master_share", totals.MasterShare.String()),
			zap.String("salon_share", totals.SalonShare.String()),
			zap.String("topup", totals.TopupAmount.String()))
		return nil
	})
	if err != nil {
		return nil, err
	}

	return d.GetShift(ctx, shiftID)
}

// lockOpenShift row-locks the shift and fails if it is missing or closed
func lockOpenShift(ctx context.Context, tx pgx.Tx, shiftID string) (*model.Shift, error) {
	shift, err := scanShift(tx.QueryRow(ctx, `SELECT `+shiftColumns+` FROM staff_shifts WHERE id = $1 FOR UPDATE`, shiftID))
	if isNoRows(err) {
		return nil, db.ErrShiftNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to lock shift: %w", err)
	}
	if !shift.IsOpen() {
		return nil, db.ErrShiftClosed
	}
	return shift, nil
}

type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

func getShiftItems(ctx context.Context, q querier, shiftID string) ([]model.ShiftItem, error) {
	rows, err := q.Query(ctx, `
		SELECT `+itemColumns+`
		FROM staff_shift_items
		WHERE shift_id = $1
		ORDER BY created_at, id
	`, shiftID)
	if err != nil {
		return nil, fmt.Errorf("failed to query shift items: %w", err)
	}
	defer rows.Close()

	var items []model.ShiftItem
	for rows.Next() {
		var item model.ShiftItem
		var id string
		var serviceAmount, consumablesAmount string
		if err := rows.Scan(&id, &item.ClientName, &item.ServiceName, &serviceAmount, &consumablesAmount, &item.BookingID, &item.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan shift item: %w", err)
		}
		item.ID = &id
		if item.ServiceAmount, err = decimal.NewFromString(serviceAmount); err != nil {
			return nil, fmt.Errorf("failed to parse service amount: %w", err)
		}
		if item.ConsumablesAmount, err = decimal.NewFromString(consumablesAmount); err != nil {
			return nil, fmt.Errorf("failed to parse consumables amount: %w", err)
		}
		items = append(items, item)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating shift items: %w", err)
	}

	return items, nil
}

func scanShift(row pgx.Row) (*model.Shift, error) {
	var s model.Shift
	var shiftDate time.Time
	var status string
	var total, consumables, master, salon, pm, ps string
	var hourlyRate, hoursWorked, guaranteed, topup *string

	err := row.Scan(
		&s.ID, &s.StaffID, &s.BizID, &shiftDate, &status, &s.OpenedAt, &s.ClosedAt,
		&total, &consumables, &master, &salon, &pm, &ps,
		&hourlyRate, &hoursWorked, &guaranteed, &topup,
	)
	if err != nil {
		return nil, err
	}

	s.ShiftDate = shiftDate.Format("2006-01-02")
	s.Status = model.ShiftStatus(status)

	for _, f := range []struct {
		src string
		dst *decimal.Decimal
	}{
		{total, &s.TotalAmount},
		{consumables, &s.ConsumablesAmount},
		{master, &s.MasterShare},
		{salon, &s.SalonShare},
		{pm, &s.PercentMaster},
		{ps, &s.PercentSalon},
	} {
		v, err := decimal.NewFromString(f.src)
		if err != nil {
			return nil, fmt.Errorf("failed to parse shift amount %q: %w", f.src, err)
		}
		*f.dst = v
	}

	if s.HourlyRate, err = optDecimal(hourlyRate); err != nil {
		return nil, err
	}
	if s.HoursWorked, err = optDecimal(hoursWorked); err != nil {
		return nil, err
	}
	if s.GuaranteedAmount, err = optDecimal(guaranteed); err != nil {
		return nil, err
	}
	if s.TopupAmount, err = optDecimal(topup); err != nil {
		return nil, err
	}

	return &s, nil
}

func optDecimal(v *string) (*decimal.Decimal, error) {
	if v == nil {
		return nil, nil
	}
	d, err := decimal.NewFromString(*v)
	if err != nil {
		return nil, fmt.Errorf("failed to parse amount %q: %w", *v, err)
	}
	return &d, nil
}
