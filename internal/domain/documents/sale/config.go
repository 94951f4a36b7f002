package sale

import "rentory/internal/core/numerator"

const (
	// NumeratorStrategy defines the numbering strategy for this document type.
	// Sale invoices are primary accounting documents, so Strict (no gaps).
	NumeratorStrategy = numerator.StrategyStrict

	// NumeratorPrefix for generated document numbers.
	NumeratorPrefix = "SI"
)
