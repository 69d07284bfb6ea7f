// Package chat holds the conversation shown in the chat surface. Replies
// come from a Responder; the only one available today is a canned reply.
package chat

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"
)

const (
	DefaultReplyDelay = 500 * time.Millisecond
	DefaultCooldown   = 2 * time.Second

	// CannedReply stands in for a real assistant until one is integrated.
	CannedReply = "AI is still not integrated so this will be the default response"
)

var (
	ErrEmptyMessage = errors.New("message is empty")
	ErrCoolingDown  = errors.New("please wait before sending another message")
	ErrClosed       = errors.New("conversation is closed")
)

// Entry is one line of the conversation.
type Entry struct {
	Text   string
	IsUser bool
	At     time.Time
}

// Responder produces the bot side of the conversation.
type Responder interface {
	Reply(ctx context.Context, text string) (string, error)
}

// CannedResponder always answers with CannedReply.
type CannedResponder struct{}

func (CannedResponder) Reply(context.Context, string) (string, error) {
	return CannedReply, nil
}

// Options tunes a Conversation. Zero values take the defaults; a negative
// Cooldown turns the cooldown off.
type Options struct {
	ReplyDelay time.Duration
	Cooldown   time.Duration
	Responder  Responder
	// OnEntry is called, outside the lock, for every appended entry.
	OnEntry func(Entry)
	// OnError is called when the responder fails.
	OnError func(error)
	now     func() time.Time
}

// Conversation is an append-only list of entries with a delayed bot reply
// after each user message. Close cancels replies that have not arrived yet.
type Conversation struct {
	opts   Options
	ctx    context.Context
	cancel context.CancelFunc

	mu            sync.Mutex
	entries       []Entry
	cooldownUntil time.Time
	pending       map[uint64]*time.Timer
	nextID        uint64
	closed        bool
	wg            sync.WaitGroup
}

func NewConversation(opts Options) *Conversation {
	if opts.ReplyDelay <= 0 {
		opts.ReplyDelay = DefaultReplyDelay
	}
	if opts.Cooldown < 0 {
		opts.Cooldown = 0
	} else if opts.Cooldown == 0 {
		opts.Cooldown = DefaultCooldown
	}
	if opts.Responder == nil {
		opts.Responder = CannedResponder{}
	}
	if opts.now == nil {
		opts.now = time.Now
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Conversation{
		opts:    opts,
		ctx:     ctx,
		cancel:  cancel,
		pending: make(map[uint64]*time.Timer),
	}
}

// Send appends the user's message at once and schedules the reply. Blank
// messages are ignored and sends during the cooldown are refused.
func (c *Conversation) Send(text string) error {
	if strings.TrimSpace(text) == "" {
		return ErrEmptyMessage
	}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClosed
	}
	now := c.opts.now()
	if now.Before(c.cooldownUntil) {
		c.mu.Unlock()
		return ErrCoolingDown
	}
	c.cooldownUntil = now.Add(c.opts.Cooldown)

	entry := Entry{Text: text, IsUser: true, At: now}
	c.entries = append(c.entries, entry)

	id := c.nextID
	c.nextID++
	c.wg.Add(1)
	c.pending[id] = time.AfterFunc(c.opts.ReplyDelay, func() {
		defer c.wg.Done()
		c.reply(id, text)
	})
	c.mu.Unlock()

	c.notify(entry)
	return nil
}

func (c *Conversation) reply(id uint64, text string) {
	c.mu.Lock()
	if _, ok := c.pending[id]; !ok || c.closed {
		c.mu.Unlock()
		return
	}
	c.mu.Unlock()

	answer, err := c.opts.Responder.Reply(c.ctx, text)

	c.mu.Lock()
	delete(c.pending, id)
	if c.closed {
		c.mu.Unlock()
		return
	}
	if err != nil {
		c.mu.Unlock()
		if c.opts.OnError != nil {
			c.opts.OnError(err)
		}
		return
	}
	entry := Entry{Text: answer, IsUser: false, At: c.opts.now()}
	c.entries = append(c.entries, entry)
	c.mu.Unlock()

	c.notify(entry)
}

func (c *Conversation) notify(entry Entry) {
	if c.opts.OnEntry != nil {
		c.opts.OnEntry(entry)
	}
}

// Entries returns the conversation oldest first.
func (c *Conversation) Entries() []Entry {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Entry, len(c.entries))
	copy(out, c.entries)
	return out
}

// View returns the conversation newest first, the order it is rendered in.
func (c *Conversation) View() []Entry {
	entries := c.Entries()
	for i, j := 0, len(entries)-1; i < j; i, j = i+1, j-1 {
		entries[i], entries[j] = entries[j], entries[i]
	}
	return entries
}

// InputDisabled reports whether the send cooldown is still running.
func (c *Conversation) InputDisabled() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return !c.closed && c.opts.now().Before(c.cooldownUntil)
}

// Pending returns the number of replies not yet delivered.
func (c *Conversation) Pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.pending)
}

// Close cancels every scheduled reply and waits for running ones to stop.
// Nothing is appended after Close returns.
func (c *Conversation) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	for id, timer := range c.pending {
		if timer.Stop() {
			c.wg.Done()
		}
		delete(c.pending, id)
	}
	c.mu.Unlock()

	c.cancel()
	c.wg.Wait()
}
