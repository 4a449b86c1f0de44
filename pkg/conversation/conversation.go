// Package conversation runs the text chat: it keeps the transcript and the
// session state, sends each message through the dispatcher, and learns the
// last mentioned book from the reply.
//
// Only one message is answered at a time. Starting a new chat discards the
// transcript and the session state; a reply that arrives after that is
// dropped.
package conversation

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/teslashibe/go-librarian/pkg/catalog"
	"github.com/teslashibe/go-librarian/pkg/entity"
	"github.com/teslashibe/go-librarian/pkg/inference"
	"github.com/teslashibe/go-librarian/pkg/session"
	"github.com/teslashibe/go-librarian/pkg/watchlist"
)

// Sender identifies who wrote a message.
type Sender string

const (
	SenderUser Sender = "user"
	SenderBot  Sender = "bot"
)

// Message is one transcript entry.
type Message struct {
	ID      string `json:"id"`
	Text    string `json:"text"`
	Sender  Sender `json:"sender"`
	IsError bool   `json:"isError,omitempty"`
}

// Reply is the outcome of Send.
type Reply struct {
	Message Message        `json:"message"`
	Offers  []catalog.Book `json:"offers"`
	Session session.State  `json:"session"`
}

// Dispatcher answers one message given the session state.
type Dispatcher interface {
	Send(ctx context.Context, message string, st session.State) (string, error)
}

// Option configures a Controller.
type Option func(*Controller)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Controller) { c.logger = l }
}

// WithClock overrides time.Now for bookmark timestamps.
func WithClock(now func() time.Time) Option {
	return func(c *Controller) { c.now = now }
}

// Controller owns one conversation.
type Controller struct {
	cat        *catalog.Catalog
	dispatcher Dispatcher
	store      watchlist.Store
	logger     *slog.Logger
	now        func() time.Time

	mu       sync.Mutex
	messages []Message
	state    *session.State
	busy     bool
	gen      uint64
}

// New creates a controller and starts a chat.
func New(cat *catalog.Catalog, d Dispatcher, store watchlist.Store, opts ...Option) *Controller {
	c := &Controller{
		cat:        cat,
		dispatcher: d,
		store:      store,
		now:        time.Now,
		state:      session.New(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.logger == nil {
		c.logger = slog.Default()
	}
	c.logger = c.logger.With("component", "conversation")
	c.NewChat()
	return c
}

// NewChat resets the session and starts the transcript with a welcome
// message, which it returns.
func (c *Controller) NewChat() Message {
	welcome := Message{ID: uuid.NewString(), Text: c.cat.RandomWelcome(), Sender: SenderBot}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.messages = []Message{welcome}
	c.state.Reset()
	c.busy = false
	c.gen++
	return welcome
}

// Send answers text. On dispatch failure an error message is added to the
// transcript and returned in the Reply along with the error.
func (c *Controller) Send(ctx context.Context, text string) (Reply, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return Reply{}, ErrEmptyMessage
	}

	c.mu.Lock()
	if c.busy {
		c.mu.Unlock()
		return Reply{}, ErrBusy
	}
	c.busy = true
	gen := c.gen
	c.messages = append(c.messages, Message{ID: uuid.NewString(), Text: text, Sender: SenderUser})
	st := c.state.Snapshot()
	c.mu.Unlock()

	answer, err := c.dispatcher.Send(ctx, text, st)

	c.mu.Lock()
	defer c.mu.Unlock()

	stale := gen != c.gen
	if !stale {
		c.busy = false
	}

	if err != nil {
		c.logger.Warn("message failed", "error", err)
		msg := Message{ID: uuid.NewString(), Text: c.errorText(err), Sender: SenderBot, IsError: true}
		if !stale {
			c.messages = append(c.messages, msg)
		}
		return Reply{Message: msg, Offers: []catalog.Book{}, Session: c.state.Snapshot()}, err
	}

	msg := Message{ID: uuid.NewString(), Text: answer, Sender: SenderBot}
	offers := c.Offers(answer)
	if stale {
		c.logger.Debug("dropping reply for a previous chat")
		return Reply{Message: msg, Offers: offers, Session: c.state.Snapshot()}, nil
	}

	c.messages = append(c.messages, msg)
	if book, ok := entity.First(answer, c.cat); ok {
		c.state.SetEntity(book.ID, book.Title)
		c.state.AddTopic(book.List)
	}
	return Reply{Message: msg, Offers: offers, Session: c.state.Snapshot()}, nil
}

// errorText picks the transcript text for a failed dispatch.
func (c *Controller) errorText(err error) string {
	if errors.Is(err, inference.ErrNoCredentials) || errors.Is(err, inference.ErrServiceBusy) {
		return inference.UserMessage(err)
	}
	if t := c.cat.Templates().Error; t != "" {
		return t
	}
	return inference.UserMessage(err)
}

// Offers returns the catalog books mentioned in text, for bookmark buttons.
// The result is never nil.
func (c *Controller) Offers(text string) []catalog.Book {
	if books := entity.All(text, c.cat); books != nil {
		return books
	}
	return []catalog.Book{}
}

// Bookmark adds a catalog book to the watchlist.
func (c *Controller) Bookmark(ctx context.Context, bookID string) ([]watchlist.Entry, error) {
	book, ok := c.cat.Lookup(bookID)
	if !ok {
		return nil, ErrUnknownBook
	}
	return c.store.Add(ctx, watchlist.NewEntry(book, c.now()))
}

// Watchlist returns the underlying store.
func (c *Controller) Watchlist() watchlist.Store {
	return c.store
}

// Messages returns a copy of the transcript.
func (c *Controller) Messages() []Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Message(nil), c.messages...)
}

// Session returns a copy of the session state.
func (c *Controller) Session() session.State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state.Snapshot()
}

// Busy reports whether a message is being answered.
func (c *Controller) Busy() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.busy
}
