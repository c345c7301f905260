package strategy

import (
	"errors"
	"fmt"
)

// ErrNoData is returned when the provider has no candles for a symbol.
var ErrNoData = errors.New("no market data")

// AnalysisError wraps a failed single-symbol analysis.
type AnalysisError struct {
	Symbol string
	Reason string
	Err    error
}

func (e *AnalysisError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("analyze %s: %s: %v", e.Symbol, e.Reason, e.Err)
	}
	return fmt.Sprintf("analyze %s: %s", e.Symbol, e.Reason)
}

func (e *AnalysisError) Unwrap() error { return e.Err }
