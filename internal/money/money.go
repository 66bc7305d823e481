package money

import "fmt"

// Amount is a currency value in minor units (paise for INR).
// All arithmetic in this package is plain integer math so that the same cart
// always produces the same total, with no floating-point drift between the
// amount shown locally and the amount sent to the payment gateway.
type Amount int64

const CurrencyINR = "INR"

// MinorPerMajor is the number of minor units in one major unit (paise per rupee).
const MinorPerMajor = 100

// Line returns unitPrice * quantity.
func Line(unitPrice Amount, quantity int) Amount {
	return unitPrice * Amount(quantity)
}

// TaxAt computes tax on subtotal at the given rate in basis points
// (500 bps = 5%). Truncating division keeps the result deterministic.
func TaxAt(subtotal Amount, bps int) Amount {
	return subtotal * Amount(bps) / 10000
}

// TotalWithTax returns subtotal plus tax at the given basis-point rate.
func TotalWithTax(subtotal Amount, bps int) Amount {
	return subtotal + TaxAt(subtotal, bps)
}

// Rupees formats the amount in major units for display, e.g. 10500 -> "105.00".
func (a Amount) Rupees() string {
	sign := ""
	v := a
	if v < 0 {
		sign = "-"
		v = -v
	}
	return fmt.Sprintf("%s%d.%02d", sign, v/MinorPerMajor, v%MinorPerMajor)
}
