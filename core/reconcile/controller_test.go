package reconcile

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"integrity-monitor/core/baseline"
	"integrity-monitor/core/verify"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockDecider struct {
	mock.Mock
}

func (m *mockDecider) Confirm(ctx context.Context, tally verify.Tally) (bool, error) {
	args := m.Called(ctx, tally)
	return args.Bool(0), args.Error(1)
}

type failingStore struct {
	err error
}

func (s *failingStore) Load(context.Context) (*baseline.Snapshot, error)  { return nil, s.err }
func (s *failingStore) Replace(context.Context, *baseline.Snapshot) error { return s.err }
func (s *failingStore) Location() string                                  { return "failing" }

func snapshot(digest string) *baseline.Snapshot {
	return baseline.NewSnapshot([]baseline.FileRecord{
		{Path: "/bin/ls", Digest: digest, ModTime: time.Unix(1700000000, 0), Size: 42},
	})
}

// seededStore writes an initial baseline and returns the store plus its bytes.
func seededStore(t *testing.T) (*baseline.FileStore, []byte) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "baseline.csv")
	store := baseline.NewFileStore(path, nil)
	require.NoError(t, store.Replace(context.Background(), snapshot("aa")))
	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	return store, raw
}

func comparing(t *testing.T, c *Controller) {
	t.Helper()
	require.NoError(t, c.Transition(StateScanning))
	require.NoError(t, c.Transition(StateComparing))
}

func TestController_Decide(t *testing.T) {
	modified := verify.Tally{FilesProcessed: 1, FilesModified: 1}
	added := verify.Tally{FilesProcessed: 1, FilesUnchanged: 1, FilesAdded: 1}

	tests := []struct {
		name       string
		opts       Options
		tally      verify.Tally
		answer     *bool
		want       State
		replaced   bool
		wantForced bool
	}{
		{name: "no changes refreshes", tally: verify.Tally{FilesProcessed: 1, FilesUnchanged: 1}, want: StateUnchanged, replaced: true},
		{name: "override forces", opts: Options{Override: true}, tally: modified, want: StateReplaced, replaced: true, wantForced: true},
		{name: "confirmed", tally: modified, answer: ptr(true), want: StateReplaced, replaced: true},
		{name: "declined", tally: modified, answer: ptr(false), want: StateCancelled},
		{name: "added ignored by default", tally: added, want: StateUnchanged, replaced: true},
		{name: "added counts when strict", opts: Options{StrictMembership: true}, tally: added, answer: ptr(false), want: StateCancelled},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store, before := seededStore(t)
			decider := &mockDecider{}
			if tt.answer != nil {
				decider.On("Confirm", mock.Anything, tt.tally).Return(*tt.answer, nil).Once()
			}

			c := New(store, decider, tt.opts, nil)
			comparing(t, c)

			state, err := c.Decide(context.Background(), tt.tally, snapshot("bb"))
			require.NoError(t, err)
			assert.Equal(t, tt.want, state)
			assert.Equal(t, tt.want, c.State())
			assert.Equal(t, tt.wantForced, c.Forced())
			decider.AssertExpectations(t)

			after, err := os.ReadFile(store.Location())
			require.NoError(t, err)
			if tt.replaced {
				assert.NotEqual(t, before, after)
				loaded, err := store.Load(context.Background())
				require.NoError(t, err)
				rec, _ := loaded.Lookup("/bin/ls")
				assert.Equal(t, "bb", rec.Digest)
			} else {
				assert.Equal(t, before, after, "declined run must leave the baseline byte-identical")
			}
		})
	}
}

func TestController_OverrideNeverAsks(t *testing.T) {
	store, _ := seededStore(t)
	decider := &mockDecider{}

	c := New(store, decider, Options{Override: true, StrictMembership: true}, nil)
	comparing(t, c)

	state, err := c.Decide(context.Background(), verify.Tally{FilesRemoved: 3, FilesAdded: 2}, snapshot("cc"))
	require.NoError(t, err)
	assert.Equal(t, StateReplaced, state)
	decider.AssertNotCalled(t, "Confirm", mock.Anything, mock.Anything)
}

func TestController_DeciderError(t *testing.T) {
	store, before := seededStore(t)
	decider := &mockDecider{}
	decider.On("Confirm", mock.Anything, mock.Anything).Return(false, errors.New("tty closed"))

	c := New(store, decider, Options{}, nil)
	comparing(t, c)

	_, err := c.Decide(context.Background(), verify.Tally{FilesModified: 1}, snapshot("bb"))
	assert.ErrorContains(t, err, "tty closed")
	assert.Equal(t, StateDeciding, c.State())

	after, err := os.ReadFile(store.Location())
	require.NoError(t, err)
	assert.Equal(t, before, after)
}

func TestController_ReplaceErrorPropagates(t *testing.T) {
	diskFull := errors.New("no space left on device")
	c := New(&failingStore{err: diskFull}, nil, Options{}, nil)
	comparing(t, c)

	_, err := c.Decide(context.Background(), verify.Tally{}, snapshot("bb"))
	assert.ErrorIs(t, err, diskFull)
	assert.Equal(t, StateDeciding, c.State())
}

func TestController_NilDeciderDeclines(t *testing.T) {
	store, _ := seededStore(t)
	c := New(store, nil, Options{}, nil)
	comparing(t, c)

	state, err := c.Decide(context.Background(), verify.Tally{FilesModified: 2}, snapshot("bb"))
	require.NoError(t, err)
	assert.Equal(t, StateCancelled, state)
}

func TestController_Create(t *testing.T) {
	path := filepath.Join(t.TempDir(), "baseline.csv")
	store := baseline.NewFileStore(path, nil)

	c := New(store, nil, Options{}, nil)
	require.NoError(t, c.Transition(StateScanning))

	state, err := c.Create(context.Background(), snapshot("aa"))
	require.NoError(t, err)
	assert.Equal(t, StateCreated, state)
	assert.True(t, state.Terminal())

	loaded, err := store.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, loaded.Len())
}

func TestController_Transitions(t *testing.T) {
	store, _ := seededStore(t)
	c := New(store, nil, Options{}, nil)

	err := c.Transition(StateDeciding)
	assert.ErrorIs(t, err, ErrInvalidTransition)

	comparing(t, c)
	_, err = c.Decide(context.Background(), verify.Tally{}, snapshot("aa"))
	require.NoError(t, err)

	var path []State
	for _, tr := range c.Transitions() {
		path = append(path, tr.To)
	}
	assert.Equal(t, []State{StateScanning, StateComparing, StateDeciding, StateUnchanged}, path)

	assert.ErrorIs(t, c.Transition(StateScanning), ErrInvalidTransition)
}

func TestDeciderFunc(t *testing.T) {
	d := DeciderFunc(func(_ context.Context, tally verify.Tally) (bool, error) {
		return tally.FilesModified < 2, nil
	})

	ok, err := d.Confirm(context.Background(), verify.Tally{FilesModified: 1})
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = Decline.Confirm(context.Background(), verify.Tally{})
	require.NoError(t, err)
	assert.False(t, ok)
}

func ptr[T any](v T) *T { return &v }
