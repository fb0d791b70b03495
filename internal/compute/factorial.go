// Package compute holds the numeric operations behind the API. Results that
// can outgrow a machine word are returned as *big.Int.
package compute

import (
	"errors"
	"math/big"
)

// ErrNegative is returned for a negative index or operand
var ErrNegative = errors.New("compute: negative input")

// Factorial returns n! exactly. Factorial(0) is 1.
func Factorial(n int64) (*big.Int, error) {
	if n < 0 {
		return nil, ErrNegative
	}
	if n < 2 {
		return big.NewInt(1), nil
	}
	return new(big.Int).MulRange(1, n), nil
}
