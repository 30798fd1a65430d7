package tools

// Result is the unified return type from tool execution. Failures are
// carried as text so the model can read them and self-correct; nothing
// past the dispatcher boundary throws.
type Result struct {
	Text    string `json:"text"`
	IsError bool   `json:"is_error"`
}

func NewResult(text string) *Result {
	return &Result{Text: text}
}

func ErrorResult(message string) *Result {
	return &Result{Text: message, IsError: true}
}
