package client

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/notewave/notewave/internal/relay"
)

// State is the controller lifecycle phase.
type State int

const (
	StateLoading State = iota
	StateReady
	StateEditing
	StateIdle
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateLoading:
		return "loading"
	case StateReady:
		return "ready"
	case StateEditing:
		return "editing"
	case StateIdle:
		return "idle"
	case StateClosed:
		return "closed"
	}
	return "unknown"
}

var ErrClosed = errors.New("controller closed")

// Store is the persistence surface the controller saves through.
type Store interface {
	GetNote(ctx context.Context, id string) (*Note, error)
	UpdateNote(ctx context.Context, id string, title *string, content json.RawMessage, userID string) (*Note, error)
	RestoreVersion(ctx context.Context, id, versionID, userID string) (*Note, error)
}

// RelaySession is one joined presence in a note room.
type RelaySession interface {
	Events() <-chan relay.Event
	SendContent(content json.RawMessage) error
	SendTitle(title string) error
	SendTyping(isTyping bool) error
	Leave() error
}

// ControllerConfig tunes debounce windows and wires optional hooks.
// Zero durations take the defaults below.
type ControllerConfig struct {
	ContentDebounce time.Duration
	TitleDebounce   time.Duration
	TypingIdle      time.Duration

	// OnSaveError fires when a debounced flush fails. The pending edit is
	// kept and retried on the next flush.
	OnSaveError func(err error)
	// OnRemoteChange fires after a remote edit has been applied locally.
	OnRemoteChange func(ev relay.Event)
	// OnRoster fires with the room membership whenever it changes.
	OnRoster func(members []relay.Member)
	// OnPresence fires for typing and cursor events from other sessions.
	OnPresence func(ev relay.Event)
}

const (
	defaultContentDebounce = 2 * time.Second
	defaultTitleDebounce   = time.Second
	defaultTypingIdle      = time.Second
)

// Controller keeps one note's local view in sync with the store and the
// relay. Local edits broadcast immediately and persist after a debounce
// window; remote edits overwrite the local view last-write-wins, with the
// controller's own echoes discarded by editor id.
type Controller struct {
	cfg     ControllerConfig
	store   Store
	session RelaySession
	noteID  string
	userID  string

	mu      sync.Mutex
	state   State
	title   string
	content json.RawMessage

	pendingContent json.RawMessage
	pendingTitle   *string
	saveTimer      *time.Timer

	typingOn    bool
	typingTimer *time.Timer

	done     chan struct{}
	loopDone chan struct{}
}

// OpenController loads the note and starts consuming the session's events.
// A load failure closes nothing: the caller still owns the session.
func OpenController(ctx context.Context, store Store, session RelaySession, noteID, userID string, cfg ControllerConfig) (*Controller, error) {
	if cfg.ContentDebounce <= 0 {
		cfg.ContentDebounce = defaultContentDebounce
	}
	if cfg.TitleDebounce <= 0 {
		cfg.TitleDebounce = defaultTitleDebounce
	}
	if cfg.TypingIdle <= 0 {
		cfg.TypingIdle = defaultTypingIdle
	}
	c := &Controller{
		cfg:      cfg,
		store:    store,
		session:  session,
		noteID:   noteID,
		userID:   userID,
		state:    StateLoading,
		done:     make(chan struct{}),
		loopDone: make(chan struct{}),
	}
	n, err := store.GetNote(ctx, noteID)
	if err != nil {
		return nil, err
	}
	c.title = n.Title
	c.content = n.Content
	c.state = StateReady
	go c.eventLoop()
	return c, nil
}

func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

func (c *Controller) Title() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.title
}

func (c *Controller) Content() json.RawMessage {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.content
}

// EditContent records a local content edit: broadcast now, persist after the
// content debounce window. A newer edit supersedes the scheduled flush.
func (c *Controller) EditContent(content json.RawMessage) error {
	c.mu.Lock()
	if c.state == StateClosed {
		c.mu.Unlock()
		return ErrClosed
	}
	c.content = content
	c.pendingContent = content
	c.resetSaveTimerLocked(c.cfg.ContentDebounce)
	c.mu.Unlock()
	return c.session.SendContent(content)
}

// EditTitle records a local title edit, with the shorter title window.
func (c *Controller) EditTitle(title string) error {
	c.mu.Lock()
	if c.state == StateClosed {
		c.mu.Unlock()
		return ErrClosed
	}
	c.title = title
	t := title
	c.pendingTitle = &t
	c.resetSaveTimerLocked(c.cfg.TitleDebounce)
	c.mu.Unlock()
	return c.session.SendTitle(title)
}

// Focus marks the editor active and announces typing once per focus span.
func (c *Controller) Focus() error {
	c.mu.Lock()
	if c.state == StateClosed {
		c.mu.Unlock()
		return ErrClosed
	}
	c.state = StateEditing
	if c.typingTimer != nil {
		c.typingTimer.Stop()
		c.typingTimer = nil
	}
	already := c.typingOn
	c.typingOn = true
	c.mu.Unlock()
	if already {
		return nil
	}
	return c.session.SendTyping(true)
}

// Blur clears the typing signal after the idle window, so brief focus
// bounces do not flap the indicator.
func (c *Controller) Blur() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == StateClosed || !c.typingOn {
		return
	}
	if c.typingTimer != nil {
		c.typingTimer.Stop()
	}
	c.typingTimer = time.AfterFunc(c.cfg.TypingIdle, func() {
		c.mu.Lock()
		if c.state == StateClosed || !c.typingOn {
			c.mu.Unlock()
			return
		}
		c.typingOn = false
		c.state = StateIdle
		c.mu.Unlock()
		_ = c.session.SendTyping(false)
	})
}

// Save flushes any pending edit immediately, bypassing the debounce.
func (c *Controller) Save(ctx context.Context) error {
	c.mu.Lock()
	if c.state == StateClosed {
		c.mu.Unlock()
		return ErrClosed
	}
	if c.saveTimer != nil {
		c.saveTimer.Stop()
		c.saveTimer = nil
	}
	title, content, dirty := c.takePendingLocked()
	c.mu.Unlock()
	if !dirty {
		return nil
	}
	return c.persist(ctx, title, content)
}

// Restore reverts the note to an earlier version. The store appends the
// restored content as a new version; the result is applied locally and
// rebroadcast so every session converges.
func (c *Controller) Restore(ctx context.Context, versionID string) error {
	c.mu.Lock()
	if c.state == StateClosed {
		c.mu.Unlock()
		return ErrClosed
	}
	c.mu.Unlock()

	n, err := c.store.RestoreVersion(ctx, c.noteID, versionID, c.userID)
	if err != nil {
		return err
	}
	c.mu.Lock()
	c.title = n.Title
	c.content = n.Content
	// a restore supersedes whatever edit was waiting to flush
	c.pendingContent = nil
	c.pendingTitle = nil
	if c.saveTimer != nil {
		c.saveTimer.Stop()
		c.saveTimer = nil
	}
	c.mu.Unlock()

	if err := c.session.SendContent(n.Content); err != nil {
		return err
	}
	return c.session.SendTitle(n.Title)
}

// Close flushes nothing: it cancels timers, clears the typing signal and
// leaves the room. Callers wanting durability call Save first.
func (c *Controller) Close() error {
	c.mu.Lock()
	if c.state == StateClosed {
		c.mu.Unlock()
		return nil
	}
	c.state = StateClosed
	if c.saveTimer != nil {
		c.saveTimer.Stop()
		c.saveTimer = nil
	}
	if c.typingTimer != nil {
		c.typingTimer.Stop()
		c.typingTimer = nil
	}
	wasTyping := c.typingOn
	c.typingOn = false
	close(c.done)
	c.mu.Unlock()

	if wasTyping {
		_ = c.session.SendTyping(false)
	}
	err := c.session.Leave()
	<-c.loopDone
	return err
}

// resetSaveTimerLocked supersedes any scheduled flush with a fresh window.
func (c *Controller) resetSaveTimerLocked(d time.Duration) {
	if c.saveTimer != nil {
		c.saveTimer.Stop()
	}
	c.saveTimer = time.AfterFunc(d, c.flush)
}

func (c *Controller) flush() {
	c.mu.Lock()
	if c.state == StateClosed {
		c.mu.Unlock()
		return
	}
	c.saveTimer = nil
	title, content, dirty := c.takePendingLocked()
	c.mu.Unlock()
	if !dirty {
		return
	}
	if err := c.persist(context.Background(), title, content); err != nil {
		c.mu.Lock()
		// keep the edit for the next cycle
		if content != nil && c.pendingContent == nil {
			c.pendingContent = content
		}
		if title != nil && c.pendingTitle == nil {
			c.pendingTitle = title
		}
		c.mu.Unlock()
		if c.cfg.OnSaveError != nil {
			c.cfg.OnSaveError(err)
		}
	}
}

func (c *Controller) takePendingLocked() (title *string, content json.RawMessage, dirty bool) {
	title = c.pendingTitle
	content = c.pendingContent
	c.pendingTitle = nil
	c.pendingContent = nil
	return title, content, title != nil || content != nil
}

func (c *Controller) persist(ctx context.Context, title *string, content json.RawMessage) error {
	_, err := c.store.UpdateNote(ctx, c.noteID, title, content, c.userID)
	return err
}

func (c *Controller) eventLoop() {
	defer close(c.loopDone)
	for {
		select {
		case <-c.done:
			return
		case ev := <-c.session.Events():
			c.apply(ev)
		}
	}
}

// apply folds a remote event into the local view. The controller's own
// broadcasts come back through the relay on other instances; they are
// discarded here by editor id so a session never reapplies its own edit.
func (c *Controller) apply(ev relay.Event) {
	switch ev.Type {
	case relay.EventContentEdit:
		if ev.UserID == c.userID {
			return
		}
		c.mu.Lock()
		c.content = ev.Content
		c.mu.Unlock()
		if c.cfg.OnRemoteChange != nil {
			c.cfg.OnRemoteChange(ev)
		}
	case relay.EventTitleEdit:
		if ev.UserID == c.userID {
			return
		}
		c.mu.Lock()
		c.title = ev.Title
		c.mu.Unlock()
		if c.cfg.OnRemoteChange != nil {
			c.cfg.OnRemoteChange(ev)
		}
	case relay.EventRoster:
		if c.cfg.OnRoster != nil {
			c.cfg.OnRoster(ev.Members)
		}
	case relay.EventTyping, relay.EventCursor:
		if ev.UserID == c.userID {
			return
		}
		if c.cfg.OnPresence != nil {
			c.cfg.OnPresence(ev)
		}
	}
}
