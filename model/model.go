package model

import (
	"fmt"
	"math/big"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// GenerateUUIDWithSuffix generates a UUID with a given module name as a prefix.
// This is useful for creating unique identifiers with context-specific prefixes.
func GenerateUUIDWithSuffix(module string) string {
	id := uuid.New()
	uuidStr := id.String()
	idWithSuffix := fmt.Sprintf("%s_%s", module, uuidStr)
	return idWithSuffix
}

// ToSmallestUnit converts a human-unit amount to the asset's smallest-unit
// integer representation. Amounts cross the privacy-transfer boundary in
// human units; everything that touches the chain is smallest-unit.
func ToSmallestUnit(amount decimal.Decimal, decimals int) (uint64, error) {
	shifted := amount.Shift(int32(decimals))
	if shifted.Cmp(shifted.Floor()) != 0 {
		return 0, fmt.Errorf("amount %s has more than %d decimal places", amount.String(), decimals)
	}
	if shifted.Sign() < 0 {
		return 0, fmt.Errorf("amount %s is negative", amount.String())
	}
	bi := shifted.BigInt()
	if !bi.IsUint64() {
		return 0, fmt.Errorf("amount %s overflows the smallest-unit range", amount.String())
	}
	return bi.Uint64(), nil
}

// FromSmallestUnit converts a smallest-unit integer back to a human-unit amount.
func FromSmallestUnit(value uint64, decimals int) decimal.Decimal {
	bi := new(big.Int).SetUint64(value)
	return decimal.NewFromBigInt(bi, 0).Shift(int32(-decimals))
}

// ToLamports converts a native-asset human amount to lamports.
func ToLamports(amount decimal.Decimal) (uint64, error) {
	return ToSmallestUnit(amount, 9)
}

// FromLamports converts lamports to a native-asset human amount.
func FromLamports(lamports uint64) decimal.Decimal {
	return FromSmallestUnit(lamports, 9)
}
