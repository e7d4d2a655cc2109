package domain

import "fmt"

const (
	CounterOrder    = "order"
	CounterCustomer = "customer"
	CounterSKU      = "sku"
)

const (
	PrefixOrder    = "OD-"
	PrefixCustomer = "CUST"
	PrefixSKU      = "SKU"
)

// Format renders n zero-padded to five digits after prefix. Wider values
// keep every digit.
func Format(prefix string, n int64) string {
	return fmt.Sprintf("%s%05d", prefix, n)
}

func FormatOrderID(n int64) string    { return Format(PrefixOrder, n) }
func FormatCustomerID(n int64) string { return Format(PrefixCustomer, n) }
func FormatSKUID(n int64) string      { return Format(PrefixSKU, n) }
