package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/notewave/notewave/internal/relay"
)

type storeCall struct {
	Title   *string
	Content json.RawMessage
	UserID  string
}

type fakeStore struct {
	mu        sync.Mutex
	note      *Note
	updates   []storeCall
	updateErr error
	restored  *Note
}

func (f *fakeStore) GetNote(_ context.Context, id string) (*Note, error) {
	if f.note == nil {
		return nil, ErrNotFound
	}
	return f.note, nil
}

func (f *fakeStore) UpdateNote(_ context.Context, id string, title *string, content json.RawMessage, userID string) (*Note, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.updateErr != nil {
		return nil, f.updateErr
	}
	f.updates = append(f.updates, storeCall{Title: title, Content: content, UserID: userID})
	return f.note, nil
}

func (f *fakeStore) RestoreVersion(_ context.Context, id, versionID, userID string) (*Note, error) {
	if f.restored == nil {
		return nil, ErrNotFound
	}
	return f.restored, nil
}

func (f *fakeStore) updateCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.updates)
}

func (f *fakeStore) lastUpdate() storeCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.updates[len(f.updates)-1]
}

func (f *fakeStore) setUpdateErr(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.updateErr = err
}

type fakeSession struct {
	mu       sync.Mutex
	events   chan relay.Event
	contents []json.RawMessage
	titles   []string
	typing   []bool
	left     bool
}

func newFakeSession() *fakeSession {
	return &fakeSession{events: make(chan relay.Event, 16)}
}

func (f *fakeSession) Events() <-chan relay.Event { return f.events }

func (f *fakeSession) SendContent(content json.RawMessage) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.contents = append(f.contents, content)
	return nil
}

func (f *fakeSession) SendTitle(title string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.titles = append(f.titles, title)
	return nil
}

func (f *fakeSession) SendTyping(isTyping bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.typing = append(f.typing, isTyping)
	return nil
}

func (f *fakeSession) Leave() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.left = true
	return nil
}

func (f *fakeSession) typingSignals() []bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]bool, len(f.typing))
	copy(out, f.typing)
	return out
}

func (f *fakeSession) contentCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.contents)
}

func (f *fakeSession) hasLeft() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.left
}

func testNote() *Note {
	return &Note{
		ID:      "n1",
		Title:   "Standup notes",
		Content: json.RawMessage(`{"text":"hello"}`),
	}
}

func openTestController(t *testing.T, store *fakeStore, session *fakeSession, cfg ControllerConfig) *Controller {
	t.Helper()
	if cfg.ContentDebounce == 0 {
		cfg.ContentDebounce = 40 * time.Millisecond
	}
	if cfg.TitleDebounce == 0 {
		cfg.TitleDebounce = 25 * time.Millisecond
	}
	if cfg.TypingIdle == 0 {
		cfg.TypingIdle = 25 * time.Millisecond
	}
	c, err := OpenController(context.Background(), store, session, "n1", "u1", cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func TestOpenController(t *testing.T) {
	store := &fakeStore{note: testNote()}
	c := openTestController(t, store, newFakeSession(), ControllerConfig{})

	assert.Equal(t, StateReady, c.State())
	assert.Equal(t, "Standup notes", c.Title())
	assert.JSONEq(t, `{"text":"hello"}`, string(c.Content()))
}

func TestOpenControllerLoadFailure(t *testing.T) {
	store := &fakeStore{}
	_, err := OpenController(context.Background(), store, newFakeSession(), "missing", "u1", ControllerConfig{})
	require.ErrorIs(t, err, ErrNotFound)
}

func TestContentDebounceCoalesces(t *testing.T) {
	store := &fakeStore{note: testNote()}
	session := newFakeSession()
	c := openTestController(t, store, session, ControllerConfig{})

	for i := 1; i <= 10; i++ {
		payload := json.RawMessage(fmt.Sprintf(`{"rev":%d}`, i))
		require.NoError(t, c.EditContent(payload))
		time.Sleep(2 * time.Millisecond)
	}

	// every keystroke broadcasts, but only one save lands
	assert.Equal(t, 10, session.contentCount())
	require.Eventually(t, func() bool {
		return store.updateCount() == 1
	}, time.Second, 5*time.Millisecond)

	last := store.lastUpdate()
	assert.JSONEq(t, `{"rev":10}`, string(last.Content))
	assert.Nil(t, last.Title)
	assert.Equal(t, "u1", last.UserID)

	// nothing further once the window has drained
	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, 1, store.updateCount())
}

func TestTitleEditPersists(t *testing.T) {
	store := &fakeStore{note: testNote()}
	session := newFakeSession()
	c := openTestController(t, store, session, ControllerConfig{})

	require.NoError(t, c.EditTitle("Retro notes"))
	require.Eventually(t, func() bool {
		return store.updateCount() == 1
	}, time.Second, 5*time.Millisecond)

	last := store.lastUpdate()
	require.NotNil(t, last.Title)
	assert.Equal(t, "Retro notes", *last.Title)
	assert.Nil(t, last.Content)
}

func TestSaveBypassesDebounce(t *testing.T) {
	store := &fakeStore{note: testNote()}
	c := openTestController(t, store, newFakeSession(), ControllerConfig{ContentDebounce: time.Hour})

	require.NoError(t, c.EditContent(json.RawMessage(`{"rev":1}`)))
	require.NoError(t, c.Save(context.Background()))
	assert.Equal(t, 1, store.updateCount())

	// the pending edit was consumed, a second save is a no-op
	require.NoError(t, c.Save(context.Background()))
	assert.Equal(t, 1, store.updateCount())
}

func TestRemoteEditWins(t *testing.T) {
	store := &fakeStore{note: testNote()}
	session := newFakeSession()
	var remote []relay.Event
	var mu sync.Mutex
	c := openTestController(t, store, session, ControllerConfig{
		OnRemoteChange: func(ev relay.Event) {
			mu.Lock()
			remote = append(remote, ev)
			mu.Unlock()
		},
	})

	session.events <- relay.Event{
		Type:    relay.EventContentEdit,
		NoteID:  "n1",
		UserID:  "u2",
		Content: json.RawMessage(`{"text":"theirs"}`),
	}
	require.Eventually(t, func() bool {
		return string(c.Content()) == `{"text":"theirs"}`
	}, time.Second, 5*time.Millisecond)

	mu.Lock()
	require.Len(t, remote, 1)
	assert.Equal(t, "u2", remote[0].UserID)
	mu.Unlock()
}

func TestOwnEchoDiscarded(t *testing.T) {
	store := &fakeStore{note: testNote()}
	session := newFakeSession()
	fired := false
	c := openTestController(t, store, session, ControllerConfig{
		OnRemoteChange: func(relay.Event) { fired = true },
	})

	session.events <- relay.Event{
		Type:    relay.EventContentEdit,
		NoteID:  "n1",
		UserID:  "u1",
		Content: json.RawMessage(`{"text":"echo"}`),
	}
	time.Sleep(50 * time.Millisecond)

	assert.JSONEq(t, `{"text":"hello"}`, string(c.Content()))
	assert.False(t, fired)
}

func TestTypingLifecycle(t *testing.T) {
	store := &fakeStore{note: testNote()}
	session := newFakeSession()
	c := openTestController(t, store, session, ControllerConfig{})

	require.NoError(t, c.Focus())
	require.NoError(t, c.Focus())
	assert.Equal(t, StateEditing, c.State())
	assert.Equal(t, []bool{true}, session.typingSignals())

	c.Blur()
	require.Eventually(t, func() bool {
		sig := session.typingSignals()
		return len(sig) == 2 && !sig[1]
	}, time.Second, 5*time.Millisecond)
	assert.Equal(t, StateIdle, c.State())
}

func TestRefocusCancelsTypingTimeout(t *testing.T) {
	store := &fakeStore{note: testNote()}
	session := newFakeSession()
	c := openTestController(t, store, session, ControllerConfig{TypingIdle: 40 * time.Millisecond})

	require.NoError(t, c.Focus())
	c.Blur()
	require.NoError(t, c.Focus())

	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, []bool{true}, session.typingSignals())
	assert.Equal(t, StateEditing, c.State())
}

func TestCloseCancelsPendingSave(t *testing.T) {
	store := &fakeStore{note: testNote()}
	session := newFakeSession()
	c := openTestController(t, store, session, ControllerConfig{ContentDebounce: 30 * time.Millisecond})

	require.NoError(t, c.Focus())
	require.NoError(t, c.EditContent(json.RawMessage(`{"rev":1}`)))
	require.NoError(t, c.Close())

	time.Sleep(80 * time.Millisecond)
	assert.Equal(t, 0, store.updateCount())
	assert.True(t, session.hasLeft())
	assert.Equal(t, []bool{true, false}, session.typingSignals())
	assert.Equal(t, StateClosed, c.State())

	require.ErrorIs(t, c.EditContent(json.RawMessage(`{"rev":2}`)), ErrClosed)
	require.ErrorIs(t, c.Save(context.Background()), ErrClosed)
}

func TestFailedSaveRetries(t *testing.T) {
	store := &fakeStore{note: testNote()}
	session := newFakeSession()
	errCh := make(chan error, 1)
	c := openTestController(t, store, session, ControllerConfig{
		ContentDebounce: 20 * time.Millisecond,
		OnSaveError:     func(err error) { errCh <- err },
	})

	store.setUpdateErr(errors.New("connection reset"))
	require.NoError(t, c.EditContent(json.RawMessage(`{"rev":1}`)))

	select {
	case err := <-errCh:
		require.EqualError(t, err, "connection reset")
	case <-time.After(time.Second):
		t.Fatal("save error never surfaced")
	}
	assert.Equal(t, 0, store.updateCount())

	// the edit is kept; once the store recovers an explicit save lands it
	store.setUpdateErr(nil)
	require.NoError(t, c.Save(context.Background()))
	require.Equal(t, 1, store.updateCount())
	assert.JSONEq(t, `{"rev":1}`, string(store.lastUpdate().Content))
}

func TestRestoreAppliesAndRebroadcasts(t *testing.T) {
	store := &fakeStore{
		note: testNote(),
		restored: &Note{
			ID:      "n1",
			Title:   "Standup notes",
			Content: json.RawMessage(`{"text":"older"}`),
		},
	}
	session := newFakeSession()
	c := openTestController(t, store, session, ControllerConfig{ContentDebounce: time.Hour})

	// a pending edit is superseded by the restore
	require.NoError(t, c.EditContent(json.RawMessage(`{"rev":1}`)))
	require.NoError(t, c.Restore(context.Background(), "v1"))

	assert.JSONEq(t, `{"text":"older"}`, string(c.Content()))
	session.mu.Lock()
	assert.JSONEq(t, `{"text":"older"}`, string(session.contents[len(session.contents)-1]))
	assert.Equal(t, []string{"Standup notes"}, session.titles)
	session.mu.Unlock()

	require.NoError(t, c.Save(context.Background()))
	assert.Equal(t, 0, store.updateCount())
}
