package ai

// Summary is display metadata generated for a document.
type Summary struct {
	// Title is a short human-readable document name, a few words long.
	Title string

	// Description is a one-to-three sentence summary of the document,
	// capped at 500 characters.
	Description string
}
