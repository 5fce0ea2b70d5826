// Package panel implements the chat panel session: open/closed state, the
// conversation transcript and the rendered message list.
package panel

import (
	"context"
	"strings"
	"sync"

	"github.com/rs/zerolog"

	"github.com/diogo/waychat/internal/api"
	apierrors "github.com/diogo/waychat/internal/errors"
	"github.com/diogo/waychat/internal/models"
	"github.com/diogo/waychat/internal/transcript"
)

// Target identifies where a click landed
type Target string

const (
	TargetToggle  Target = "toggle"
	TargetPanel   Target = "panel"
	TargetOutside Target = "outside"
)

// Outcome reports what Resolve did with a response
type Outcome int

const (
	OutcomeReplied Outcome = iota
	OutcomeFailed
	OutcomeDiscarded
)

func (o Outcome) String() string {
	switch o {
	case OutcomeReplied:
		return "replied"
	case OutcomeFailed:
		return "failed"
	case OutcomeDiscarded:
		return "discarded"
	default:
		return "unknown"
	}
}

// Request is an in-flight submission. Token orders submissions within a
// controller; only the latest token's response is applied.
type Request struct {
	Token      uint64
	Transcript []models.Message

	placeholderID int
}

// Controller is one widget instance. All mutations are serialized, and the
// completion call runs outside the lock so toggles and new input are handled
// while a reply is outstanding.
type Controller struct {
	mu         sync.Mutex
	client     api.Completer
	transcript *transcript.Store
	logger     zerolog.Logger

	open     bool
	input    string
	entries  []Entry
	nextID   int
	revision uint64

	latestToken uint64
	inflight    map[uint64]int // token -> placeholder entry id

	renderers map[int]Renderer
	nextSubID int
}

// Option configures a Controller
type Option func(*Controller)

// WithLogger sets the diagnostic logger
func WithLogger(logger zerolog.Logger) Option {
	return func(c *Controller) {
		c.logger = logger
	}
}

// WithRenderer subscribes r from construction on
func WithRenderer(r Renderer) Option {
	return func(c *Controller) {
		c.renderers[c.nextSubID] = r
		c.nextSubID++
	}
}

// New creates a closed panel whose transcript is seeded with systemPrompt.
// A nil client makes submissions a no-op.
func New(client api.Completer, systemPrompt string, opts ...Option) *Controller {
	c := &Controller{
		client:     client,
		transcript: transcript.New(systemPrompt),
		logger:     zerolog.Nop(),
		inflight:   make(map[uint64]int),
		renderers:  make(map[int]Renderer),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Subscribe registers r for every subsequent View. The returned function
// removes the subscription.
func (c *Controller) Subscribe(r Renderer) func() {
	c.mu.Lock()
	defer c.mu.Unlock()

	id := c.nextSubID
	c.nextSubID++
	c.renderers[id] = r

	return func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		delete(c.renderers, id)
	}
}

// IsOpen reports the panel state
func (c *Controller) IsOpen() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.open
}

// Toggle flips the panel between open and closed
func (c *Controller) Toggle() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.open = !c.open
	c.emitLocked()
}

// Click applies a click at target. Only a click outside both the panel and
// the toggle control closes an open panel; a click on the toggle control is
// handled by Toggle.
func (c *Controller) Click(target Target) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.open && target == TargetOutside {
		c.open = false
		c.emitLocked()
	}
}

// SetInput replaces the pending input text
func (c *Controller) SetInput(text string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.input = text
	c.emitLocked()
}

// Input returns the pending input text
func (c *Controller) Input() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.input
}

// Begin starts a submission from the current input. It renders the user
// entry, clears the input, appends the user message and renders a pending
// placeholder. It returns false, changing nothing, when the trimmed input is
// empty or the controller has no completion client.
//
// A newer submission supersedes older ones: their placeholders are removed
// and their responses will be discarded.
func (c *Controller) Begin() (*Request, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.beginLocked(c.input)
}

// BeginText starts a submission of text, bypassing the input field. The
// trim, render and append happen under one lock, so concurrent callers each
// get their own user entry even when one supersedes the other.
func (c *Controller) BeginText(text string) (*Request, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.beginLocked(text)
}

func (c *Controller) beginLocked(raw string) (*Request, bool) {
	text := strings.TrimSpace(raw)
	if text == "" || c.client == nil {
		return nil, false
	}

	c.entries = append(c.entries, userEntry(c.newIDLocked(), text))
	c.input = ""
	if err := c.transcript.Append(models.RoleUser, text); err != nil {
		c.logger.Error().Err(err).Msg("failed to append user message")
	}

	for token, placeholderID := range c.inflight {
		c.removeEntryLocked(placeholderID)
		c.inflight[token] = -1
	}

	placeholderID := c.newIDLocked()
	c.entries = append(c.entries, pendingEntry(placeholderID))

	c.latestToken++
	req := &Request{
		Token:         c.latestToken,
		Transcript:    c.transcript.Snapshot(),
		placeholderID: placeholderID,
	}
	c.inflight[req.Token] = placeholderID

	c.emitLocked()
	return req, true
}

// Resolve applies the result of req. On success the placeholder is replaced
// by the formatted reply and the raw reply is appended to the transcript. On
// failure the placeholder shows a generic error and the transcript is left
// unchanged. Responses to superseded requests are dropped.
func (c *Controller) Resolve(req *Request, reply string, err error) Outcome {
	c.mu.Lock()
	defer c.mu.Unlock()

	placeholderID, ok := c.inflight[req.Token]
	delete(c.inflight, req.Token)

	if !ok || req.Token != c.latestToken {
		if ok && placeholderID >= 0 {
			c.removeEntryLocked(placeholderID)
			c.emitLocked()
		}
		c.logger.Warn().
			Uint64("token", req.Token).
			Uint64("latest", c.latestToken).
			Msg("discarding response to superseded request")
		return OutcomeDiscarded
	}

	if err != nil {
		c.logFailure(err)
		if idx := c.indexOfLocked(placeholderID); idx >= 0 {
			c.entries[idx] = errorEntry(placeholderID, models.ErrorReplyText)
		} else {
			c.entries = append(c.entries, errorEntry(c.newIDLocked(), models.ErrorReplyText))
		}
		c.emitLocked()
		return OutcomeFailed
	}

	c.removeEntryLocked(placeholderID)
	c.entries = append(c.entries, assistantEntry(c.newIDLocked(), reply))
	if appendErr := c.transcript.Append(models.RoleAssistant, reply); appendErr != nil {
		c.logger.Error().Err(appendErr).Msg("failed to append assistant message")
	}
	c.emitLocked()
	return OutcomeReplied
}

// Send runs a full turn for the current input: Begin, one completion call
// with the transcript snapshot, then Resolve. It returns the completion
// error, if any; an empty input is not an error.
func (c *Controller) Send(ctx context.Context) error {
	req, ok := c.Begin()
	return c.run(ctx, req, ok)
}

// Submit runs a full turn for text. Unlike SetInput followed by Send, two
// concurrent Submits can never overwrite each other's text.
func (c *Controller) Submit(ctx context.Context, text string) error {
	req, ok := c.BeginText(text)
	return c.run(ctx, req, ok)
}

func (c *Controller) run(ctx context.Context, req *Request, ok bool) error {
	if !ok {
		return nil
	}

	reply, err := c.client.Complete(ctx, req.Transcript)
	c.Resolve(req, reply, err)
	return err
}

// Complete calls the completion client for req without touching state.
// Front ends that resolve asynchronously use it between Begin and Resolve.
func (c *Controller) Complete(ctx context.Context, req *Request) (string, error) {
	return c.client.Complete(ctx, req.Transcript)
}

// Render returns the current View
func (c *Controller) Render() View {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.viewLocked()
}

// Transcript returns a snapshot of the conversation
func (c *Controller) Transcript() []models.Message {
	return c.transcript.Snapshot()
}

// TranscriptLen returns the number of transcript messages, system entry included
func (c *Controller) TranscriptLen() int {
	return c.transcript.Len()
}

// LastReply returns the most recent assistant message, or "".
func (c *Controller) LastReply() string {
	messages := c.transcript.Snapshot()
	for i := len(messages) - 1; i >= 0; i-- {
		if messages[i].Role == models.RoleAssistant {
			return messages[i].Content
		}
	}
	return ""
}

func (c *Controller) logFailure(err error) {
	event := c.logger.Error().Err(err)
	switch {
	case apierrors.IsRemoteError(err):
		event = event.Str("kind", "remote").
			Int("status", apierrors.GetHTTPStatus(err)).
			Str("body", apierrors.GetResponseBody(err))
	case apierrors.IsTransportError(err):
		event = event.Str("kind", "transport")
	}
	event.Msg("completion failed")
}

func (c *Controller) newIDLocked() int {
	c.nextID++
	return c.nextID
}

func (c *Controller) indexOfLocked(id int) int {
	for i, e := range c.entries {
		if e.ID == id {
			return i
		}
	}
	return -1
}

func (c *Controller) removeEntryLocked(id int) {
	if idx := c.indexOfLocked(id); idx >= 0 {
		c.entries = append(c.entries[:idx], c.entries[idx+1:]...)
	}
}

func (c *Controller) viewLocked() View {
	entries := make([]Entry, len(c.entries))
	copy(entries, c.entries)

	pending := false
	for _, e := range entries {
		if e.Kind == EntryPending {
			pending = true
			break
		}
	}

	return View{
		Revision:    c.revision,
		Open:        c.open,
		Input:       c.input,
		Entries:     entries,
		Pending:     pending,
		ScrollToEnd: true,
	}
}

// emitLocked bumps the revision and hands the new View to every renderer
func (c *Controller) emitLocked() {
	c.revision++
	if len(c.renderers) == 0 {
		return
	}
	view := c.viewLocked()
	for _, r := range c.renderers {
		r.Render(view)
	}
}
