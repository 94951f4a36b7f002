package rental

import "rentory/internal/core/numerator"

const (
	// NumeratorStrategy defines the numbering strategy for this document type.
	// Rental orders are internal documents; cached ranges are fine.
	NumeratorStrategy = numerator.StrategyCached

	// NumeratorPrefix for generated document numbers.
	NumeratorPrefix = "RO"
)
