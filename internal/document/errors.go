package document

import "errors"

// Sentinel errors for document operations. Check with errors.Is().
var (
	// ErrNotFound is returned for documents that do not exist or belong
	// to a different user. The two cases are deliberately
	// indistinguishable so document IDs cannot be probed across users.
	ErrNotFound = errors.New("document not found")

	// ErrInvalidTransition is returned when a status update matched no
	// row, meaning the document was not in the expected prior state.
	ErrInvalidTransition = errors.New("invalid document status transition")
)
