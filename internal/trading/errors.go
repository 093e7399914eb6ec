package trading

import "errors"

// Rejection reasons. Reduce wraps one of these with detail; match with errors.Is.
var (
	ErrUnknownAsset        = errors.New("unknown asset")
	ErrInvalidQuantity     = errors.New("quantity must be positive")
	ErrInvalidPrice        = errors.New("price must be positive")
	ErrInvalidSide         = errors.New("side must be buy or sell")
	ErrInsufficientBalance = errors.New("insufficient balance")
	ErrDuplicateTrade      = errors.New("duplicate trade id")
	ErrUnknownTrade        = errors.New("unknown trade")
	ErrTradeClosed         = errors.New("trade already closed")
)

var reasonCodes = []struct {
	err  error
	code string
}{
	{ErrUnknownAsset, "UnknownAsset"},
	{ErrInvalidQuantity, "InvalidQuantity"},
	{ErrInvalidPrice, "InvalidPrice"},
	{ErrInvalidSide, "InvalidSide"},
	{ErrInsufficientBalance, "InsufficientBalance"},
	{ErrDuplicateTrade, "DuplicateTrade"},
	{ErrUnknownTrade, "UnknownTrade"},
	{ErrTradeClosed, "TradeClosed"},
}

// ReasonCode maps a rejection to its stable code. Errors that are not
// rejections map to the empty string.
func ReasonCode(err error) string {
	for _, rc := range reasonCodes {
		if errors.Is(err, rc.err) {
			return rc.code
		}
	}
	return ""
}

// IsRejection reports whether err is a validation refusal rather than a failure.
func IsRejection(err error) bool {
	return ReasonCode(err) != ""
}
