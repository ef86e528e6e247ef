package ledger

import (
	"strings"

	"github.com/shopspring/decimal"
)

// Tolerance absorbs rounding when comparing money amounts.
var Tolerance = decimal.New(1, -2)

// MaxAmount is the first amount that no longer fits numeric(12,2).
var MaxAmount = decimal.New(1, 10)

// checkAmount rounds amount to cents and keeps it inside (0, MaxAmount).
func checkAmount(amount decimal.Decimal) (decimal.Decimal, error) {
	amount = amount.Round(2)
	if !amount.IsPositive() {
		return decimal.Zero, ErrAmountNotPositive
	}
	if !amount.LessThan(MaxAmount) {
		return decimal.Zero, ErrAmountTooLarge
	}
	return amount, nil
}

// equalSplit divides amount into len(involved) cent-exact shares. Leftover
// cents go to the first users in involved order.
func equalSplit(amount decimal.Decimal, involved []string) map[string]decimal.Decimal {
	split := make(map[string]decimal.Decimal, len(involved))
	if len(involved) == 0 {
		return split
	}

	cent := decimal.New(1, -2)
	count := decimal.NewFromInt(int64(len(involved)))
	base := amount.Div(count).RoundDown(2)
	leftover := amount.Sub(base.Mul(count)).Div(cent).IntPart()

	for i, userID := range involved {
		share := base
		if int64(i) < leftover {
			share = share.Add(cent)
		}
		split[userID] = share
	}
	return split
}

func validateCustomSplit(amount decimal.Decimal, involved []string, split map[string]decimal.Decimal) (map[string]decimal.Decimal, error) {
	normalized := make(map[string]decimal.Decimal, len(split))
	sum := decimal.Zero
	for userID, share := range split {
		if !containsID(involved, userID) {
			return nil, ErrSplitUserNotInvolved
		}
		if share.IsNegative() {
			return nil, ErrNegativeShare
		}
		share = share.Round(2)
		normalized[userID] = share
		sum = sum.Add(share)
	}

	if sum.Sub(amount).Abs().GreaterThan(Tolerance) {
		return nil, ErrSplitSumMismatch
	}
	return normalized, nil
}

func buildSplit(input CreateExpenseInput, involved []string) (string, map[string]decimal.Decimal, error) {
	splitType := strings.ToLower(strings.TrimSpace(input.SplitType))
	if splitType == "" {
		if len(input.Split) > 0 {
			splitType = SplitCustom
		} else {
			splitType = SplitEqual
		}
	}

	switch splitType {
	case SplitEqual:
		return splitType, equalSplit(input.Amount, involved), nil
	case SplitCustom:
		split, err := validateCustomSplit(input.Amount, involved, input.Split)
		if err != nil {
			return "", nil, err
		}
		return splitType, split, nil
	default:
		return "", nil, ErrUnknownSplitType
	}
}

func normalizeIDs(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	result := make([]string, 0, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		result = append(result, id)
	}
	return result
}
