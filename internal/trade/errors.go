// internal/trade/errors.go
package trade

import "fmt"

// InvalidPriceError is returned when an order is placed at a price that
// cannot be traded. No order is created.
type InvalidPriceError struct {
	Price float64
}

func (e *InvalidPriceError) Error() string {
	return fmt.Sprintf("invalid entry price %v: must be a positive finite number", e.Price)
}

// InvalidParametersError is returned when trade parameters are inconsistent.
type InvalidParametersError struct {
	Field  string
	Reason string
}

func (e *InvalidParametersError) Error() string {
	return fmt.Sprintf("invalid trade parameters: %s %s", e.Field, e.Reason)
}
