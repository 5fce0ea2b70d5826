package panel

import "github.com/diogo/waychat/internal/format"

// EntryKind tags a rendered message list item
type EntryKind string

const (
	EntryUser      EntryKind = "user"
	EntryAssistant EntryKind = "assistant"
	EntryPending   EntryKind = "pending"
	EntryError     EntryKind = "error"
)

// Entry is one item of the rendered message list. HTML is always safe to
// inject: user and error text is escaped, assistant text goes through the
// formatter.
type Entry struct {
	ID   int       `json:"id"`
	Kind EntryKind `json:"kind"`
	Text string    `json:"text"`
	HTML string    `json:"html"`
}

// View is an immutable snapshot of everything a front end draws
type View struct {
	Revision    uint64  `json:"revision"`
	Open        bool    `json:"open"`
	Input       string  `json:"input"`
	Entries     []Entry `json:"entries"`
	Pending     bool    `json:"pending"`
	ScrollToEnd bool    `json:"scroll_to_end"`
}

// Renderer receives a View after every mutation. Implementations must not
// block and must not call back into the controller.
type Renderer interface {
	Render(View)
}

// RenderFunc adapts a function to Renderer
type RenderFunc func(View)

// Render calls f(v)
func (f RenderFunc) Render(v View) {
	f(v)
}

func userEntry(id int, text string) Entry {
	return Entry{ID: id, Kind: EntryUser, Text: text, HTML: format.Escape(text)}
}

func assistantEntry(id int, text string) Entry {
	return Entry{ID: id, Kind: EntryAssistant, Text: text, HTML: format.HTML(text)}
}

func pendingEntry(id int) Entry {
	return Entry{ID: id, Kind: EntryPending}
}

func errorEntry(id int, text string) Entry {
	return Entry{ID: id, Kind: EntryError, Text: text, HTML: format.Escape(text)}
}
