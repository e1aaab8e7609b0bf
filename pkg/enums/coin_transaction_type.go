package enums

import "fmt"

// CoinTransactionType labels entries in the append-only wallet ledger.
type CoinTransactionType string

const (
	CoinTxOrderReward     CoinTransactionType = "order_reward"
	CoinTxAdminAdjustment CoinTransactionType = "admin_adjustment"
	CoinTxRedemption      CoinTransactionType = "redemption"
)

var validCoinTransactionTypes = []CoinTransactionType{
	CoinTxOrderReward,
	CoinTxAdminAdjustment,
	CoinTxRedemption,
}

// String implements fmt.Stringer.
func (c CoinTransactionType) String() string {
	return string(c)
}

// IsValid reports whether the value is a known CoinTransactionType.
func (c CoinTransactionType) IsValid() bool {
	for _, candidate := range validCoinTransactionTypes {
		if candidate == c {
			return true
		}
	}
	return false
}

// ParseCoinTransactionType converts raw input into a CoinTransactionType.
func ParseCoinTransactionType(value string) (CoinTransactionType, error) {
	for _, candidate := range validCoinTransactionTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid coin transaction type %q", value)
}
