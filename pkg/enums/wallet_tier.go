package enums

import "fmt"

// WalletTier is the loyalty classification attached to a user's wallet.
type WalletTier string

const (
	WalletTierBronze WalletTier = "bronze"
	WalletTierSilver WalletTier = "silver"
	WalletTierGold   WalletTier = "gold"
)

var validWalletTiers = []WalletTier{
	WalletTierBronze,
	WalletTierSilver,
	WalletTierGold,
}

// String implements fmt.Stringer.
func (w WalletTier) String() string {
	return string(w)
}

// IsValid reports whether the value is a known WalletTier.
func (w WalletTier) IsValid() bool {
	for _, candidate := range validWalletTiers {
		if candidate == w {
			return true
		}
	}
	return false
}

// ParseWalletTier converts raw input into a WalletTier.
func ParseWalletTier(value string) (WalletTier, error) {
	for _, candidate := range validWalletTiers {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid wallet tier %q", value)
}
