package finance

import (
	"github.com/shopspring/decimal"

	"github.com/jakechorley/salon-bookings/pkg/core/model"
)

var hundred = decimal.NewFromInt(100)

// CalculateShiftFinancials computes the financial summary shown for a shift.
//
// While the shift is open the summary is computed live from items, with the
// master's share floored at currentGuaranteedAmount when an hourly rate applies.
// Once closed, the persisted snapshot on shift is returned unchanged (shares
// rounded to 2 dp) and items are ignored.
func CalculateShiftFinancials(
	items []model.ShiftItem,
	shift *model.Shift,
	isOpen bool,
	percentMaster, percentSalon decimal.Decimal,
	hourlyRate, currentGuaranteedAmount *decimal.Decimal,
) model.FinancialSummary {
	if !isOpen && shift != nil {
		return model.FinancialSummary{
			TotalAmount:        shift.TotalAmount,
			TotalConsumables:   shift.ConsumablesAmount,
			MasterShare:        shift.MasterShare.Round(2),
			SalonShare:         shift.SalonShare.Round(2),
			DisplayTotalAmount: shift.TotalAmount,
		}
	}

	total, consumables := Totals(items)
	master, salon := BaseSplit(total, consumables, percentMaster, percentSalon)

	if isOpen && hasRate(hourlyRate) && currentGuaranteedAmount != nil {
		// The floor only raises the master's displayed share; the salon side
		// is settled as a top-up when the shift is closed.
		if currentGuaranteedAmount.GreaterThan(master) {
			master = *currentGuaranteedAmount
		}
	}

	return model.FinancialSummary{
		TotalAmount:        total,
		TotalConsumables:   consumables,
		MasterShare:        master,
		SalonShare:         salon,
		DisplayTotalAmount: total,
	}
}

// Totals sums service and consumables amounts exactly
func Totals(items []model.ShiftItem) (total, consumables decimal.Decimal) {
	total, consumables = decimal.Zero, decimal.Zero
	for _, item := range items {
		total = total.Add(item.ServiceAmount)
		consumables = consumables.Add(item.ConsumablesAmount)
	}
	return total, consumables
}

// BaseSplit divides revenue by percentage. Consumables accrue entirely to the salon.
func BaseSplit(total, consumables, percentMaster, percentSalon decimal.Decimal) (master, salon decimal.Decimal) {
	master = total.Mul(percentMaster).Div(hundred)
	salon = total.Mul(percentSalon).Div(hundred).Add(consumables)
	return master, salon
}

// GuaranteedAmount is the hourly-rate payout floor for the hours worked
func GuaranteedAmount(hourlyRate, hoursWorked decimal.Decimal) decimal.Decimal {
	if hourlyRate.LessThanOrEqual(decimal.Zero) || hoursWorked.LessThanOrEqual(decimal.Zero) {
		return decimal.Zero
	}
	return hourlyRate.Mul(hoursWorked).Round(2)
}

// Topup is what the salon pays on top of the base share to meet the guarantee
func Topup(guaranteed, baseMaster decimal.Decimal) decimal.Decimal {
	diff := guaranteed.Sub(baseMaster)
	if diff.IsNegative() {
		return decimal.Zero
	}
	return diff
}

// CloseTotals are the values frozen onto a shift when it is closed
type CloseTotals struct {
	TotalAmount       decimal.Decimal
	ConsumablesAmount decimal.Decimal
	MasterShare       decimal.Decimal
	SalonShare        decimal.Decimal
	GuaranteedAmount  decimal.Decimal
	TopupAmount       decimal.Decimal
}

// ComputeCloseTotals computes the snapshot persisted at close time. The top-up
// moves from the salon share to the master share.
func ComputeCloseTotals(items []model.ShiftItem, percentMaster, percentSalon decimal.Decimal, hourlyRate *decimal.Decimal, hoursWorked decimal.Decimal) CloseTotals {
	total, consumables := Totals(items)
	master, salon := BaseSplit(total, consumables, percentMaster, percentSalon)

	guaranteed := decimal.Zero
	if hasRate(hourlyRate) {
		guaranteed = GuaranteedAmount(*hourlyRate, hoursWorked)
	}
	topup := Topup(guaranteed, master)

	return CloseTotals{
		TotalAmount:       total,
		ConsumablesAmount: consumables,
		MasterShare:       master.Add(topup).Round(2),
		SalonShare:        salon.Sub(topup).Round(2),
		GuaranteedAmount:  guaranteed,
		TopupAmount:       topup.Round(2),
	}
}

func hasRate(rate *decimal.Decimal) bool {
	return rate != nil && rate.GreaterThan(decimal.Zero)
}
