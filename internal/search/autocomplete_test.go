package search

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeProvider answers suggestion fetches with canned results, optionally
// delaying individual queries to provoke out-of-order completions.
type fakeProvider struct {
	mu        sync.Mutex
	calls     []string
	responses map[string][]string
	delays    map[string]time.Duration
	err       error
}

func (f *fakeProvider) Suggest(query string) ([]string, error) {
	f.mu.Lock()
	f.calls = append(f.calls, query)
	delay := f.delays[query]
	response := f.responses[query]
	err := f.err
	f.mu.Unlock()

	if delay > 0 {
		time.Sleep(delay)
	}
	if err != nil {
		return nil, err
	}
	return response, nil
}

func (f *fakeProvider) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func (f *fakeProvider) calledWith() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

func TestDebounceCollapsesRapidKeystrokes(t *testing.T) {
	provider := &fakeProvider{
		responses: map[string][]string{
			"lapt": {"laptop", "laptop stand"},
		},
	}
	ac := NewAutocomplete(provider, 50*time.Millisecond)

	ac.Type("la")
	time.Sleep(10 * time.Millisecond)
	ac.Type("lap")
	time.Sleep(10 * time.Millisecond)

	result := ac.TypeAndWait("lapt")
	require.False(t, result.Stale)

	// Only the last keystroke survived the quiet period.
	assert.Equal(t, []string{"lapt"}, provider.calledWith())
	assert.Equal(t, []string{"laptop", "laptop stand"}, result.State.Suggestions)
	assert.Equal(t, "lapt", result.State.Query)
}

func TestShortQueryClearsWithoutFetching(t *testing.T) {
	provider := &fakeProvider{
		responses: map[string][]string{"tv": {"tv stand"}},
	}
	ac := NewAutocomplete(provider, 5*time.Millisecond)

	result := ac.TypeAndWait("tv")
	require.False(t, result.Stale)
	require.NotEmpty(t, result.State.Suggestions)

	// Deleting down to one character clears the box immediately, no fetch.
	before := provider.callCount()
	ac.Type("t")
	state := ac.Snapshot()
	assert.Empty(t, state.Suggestions)
	assert.Equal(t, "t", state.Query)
	assert.Equal(t, before, provider.callCount())
}

func TestStaleResponseNeverOverridesNewer(t *testing.T) {
	provider := &fakeProvider{
		responses: map[string][]string{
			"first":  {"first result"},
			"second": {"second result"},
		},
		delays: map[string]time.Duration{
			"first":  150 * time.Millisecond,
			"second": 10 * time.Millisecond,
		},
	}
	ac := NewAutocomplete(provider, 10*time.Millisecond)

	// Issue the slow fetch, then supersede it before it completes.
	ac.Type("first")
	time.Sleep(30 * time.Millisecond)

	result := ac.TypeAndWait("second")
	require.False(t, result.Stale)
	assert.Equal(t, []string{"second result"}, result.State.Suggestions)

	// The first response arrives only now; it must be dropped silently.
	time.Sleep(200 * time.Millisecond)
	state := ac.Snapshot()
	assert.Equal(t, []string{"second result"}, state.Suggestions)
	assert.Equal(t, "second", state.Query)
}

func TestTypeAndWaitReportsSupersededKeystroke(t *testing.T) {
	provider := &fakeProvider{
		responses: map[string][]string{
			"slow query": {"never shown"},
			"fast query": {"shown"},
		},
		delays: map[string]time.Duration{
			"slow query": 200 * time.Millisecond,
		},
	}
	ac := NewAutocomplete(provider, 5*time.Millisecond)

	results := make(chan Result, 1)
	go func() {
		results <- ac.TypeAndWait("slow query")
	}()
	time.Sleep(30 * time.Millisecond)

	second := ac.TypeAndWait("fast query")
	require.False(t, second.Stale)

	first := <-results
	assert.True(t, first.Stale)
}

func TestFetchFailureIsUserVisibleNotFatal(t *testing.T) {
	provider := &fakeProvider{err: fmt.Errorf("connection refused")}
	ac := NewAutocomplete(provider, 5*time.Millisecond)

	result := ac.TypeAndWait("router")
	require.False(t, result.Stale)
	assert.Empty(t, result.State.Suggestions)
	assert.Equal(t, "failed to load suggestions", result.State.Err)

	// A later successful fetch clears the error.
	provider.mu.Lock()
	provider.err = nil
	provider.responses = map[string][]string{"router x": {"router xr500"}}
	provider.mu.Unlock()

	result = ac.TypeAndWait("router x")
	require.False(t, result.Stale)
	assert.Empty(t, result.State.Err)
	assert.Equal(t, []string{"router xr500"}, result.State.Suggestions)
}

func TestResetBlocksInFlightResult(t *testing.T) {
	provider := &fakeProvider{
		responses: map[string][]string{"camera": {"camera tripod"}},
		delays:    map[string]time.Duration{"camera": 100 * time.Millisecond},
	}
	ac := NewAutocomplete(provider, 5*time.Millisecond)

	ac.Type("camera")
	time.Sleep(30 * time.Millisecond) // fetch is now in flight

	ac.Reset()

	time.Sleep(150 * time.Millisecond)
	state := ac.Snapshot()
	assert.Empty(t, state.Suggestions)
	assert.Empty(t, state.Query)
}

func TestSnapshotIsACopy(t *testing.T) {
	provider := &fakeProvider{
		responses: map[string][]string{"tablet": {"tablet case", "tablet pen"}},
	}
	ac := NewAutocomplete(provider, 5*time.Millisecond)

	result := ac.TypeAndWait("tablet")
	require.False(t, result.Stale)

	snapshot := ac.Snapshot()
	snapshot.Suggestions[0] = "mutated"
	assert.Equal(t, "tablet case", ac.Snapshot().Suggestions[0])
}
