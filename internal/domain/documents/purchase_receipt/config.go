package purchase_receipt

import "rentory/internal/core/numerator"

const (
	// NumeratorStrategy defines the numbering strategy for this document type.
	// Purchase receipts are primary accounting documents, so Strict.
	NumeratorStrategy = numerator.StrategyStrict

	// NumeratorPrefix for generated document numbers.
	NumeratorPrefix = "PR"
)
