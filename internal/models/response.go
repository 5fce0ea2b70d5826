package models

// Usage reports token accounting returned by the completion service
type Usage struct {
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
}

// Choice is a single generated alternative
type Choice struct {
	Index        int
	Content      string
	FinishReason string
}

// ChatCompletion is the parsed success response of a completion call
type ChatCompletion struct {
	ID      string
	Model   string
	Choices []Choice
	Usage   Usage
}

// Text returns the first choice's content, or "" when the service returned
// no choice.
func (c *ChatCompletion) Text() string {
	if c == nil || len(c.Choices) == 0 {
		return ""
	}
	return c.Choices[0].Content
}

// FinishReason returns the first choice's finish reason, or "".
func (c *ChatCompletion) FinishReason() string {
	if c == nil || len(c.Choices) == 0 {
		return ""
	}
	return c.Choices[0].FinishReason
}
