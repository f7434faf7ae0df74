package events

import (
	"math/big"
	"strconv"
	"strings"
)

func joinTokens(tokens []string) string {
	return strings.Join(tokens, ",")
}

func amountString(amount *big.Int) string {
	if amount == nil {
		return "0"
	}
	return amount.String()
}

func uintString(v uint64) string {
	return strconv.FormatUint(v, 10)
}

func intString(v int64) string {
	return strconv.FormatInt(v, 10)
}
