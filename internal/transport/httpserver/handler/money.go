package handler

import "github.com/shopspring/decimal"

// money is an amount written as a bare JSON number with cent precision.
type money decimal.Decimal

func (m money) MarshalJSON() ([]byte, error) {
	return []byte(decimal.Decimal(m).StringFixed(2)), nil
}

func toMoneyMap(values map[string]decimal.Decimal) map[string]money {
	result := make(map[string]money, len(values))
	for key, value := range values {
		result[key] = money(value)
	}
	return result
}
