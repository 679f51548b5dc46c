package orchestrate

// TurnResult is the user-visible outcome of one conversational turn.
// Document is non-nil when the turn produced a merged PDF; the text still
// carries the model's natural-language followup.
type TurnResult struct {
	Text     string
	Document []byte
}

// InitResult is the outcome of session initiation.
type InitResult struct {
	Greeting string
}
