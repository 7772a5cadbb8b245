package search

import (
	"log"
	"strings"
	"sync"
	"time"
)

// DefaultDebounce is the quiet period after the last keystroke before a
// suggestion fetch is issued.
const DefaultDebounce = 300 * time.Millisecond

// Suggestions are only fetched once the trimmed query is longer than one
// character.
const minQueryLength = 2

// SuggestionProvider fetches autocomplete suggestions for a query.
type SuggestionProvider interface {
	Suggest(query string) ([]string, error)
}

// State is a read-only snapshot of the suggestion box. Seq is the sequence
// number of the fetch whose result is currently displayed.
type State struct {
	Query       string   `json:"query"`
	Suggestions []string `json:"suggestions"`
	Seq         uint64   `json:"seq"`
	Err         string   `json:"error,omitempty"`
}

func (s State) clone() State {
	out := s
	out.Suggestions = append([]string(nil), s.Suggestions...)
	return out
}

// Result is what a waiting caller gets back for its keystroke. Stale means
// a newer keystroke superseded this one and its outcome was discarded.
type Result struct {
	State State `json:"state"`
	Stale bool  `json:"stale"`
}

// Autocomplete drives the debounced suggestion fetches for one search box.
//
// Every keystroke restarts the debounce timer; when the timer fires, the
// fetch is issued with the next sequence number. A completed fetch may
// only update the state while its sequence is still the latest issued;
// anything older is dropped silently. That staleness comparison, not
// transport-level cancellation, is what keeps out-of-order responses from
// clobbering newer ones.
type Autocomplete struct {
	provider SuggestionProvider
	debounce time.Duration

	mu        sync.Mutex
	timer     *time.Timer
	seq       uint64 // latest issued fetch
	keystroke uint64 // latest keystroke
	settled   uint64 // highest keystroke whose outcome is decided
	state     State
	waiters   map[uint64][]chan Result // keyed by keystroke
}

func NewAutocomplete(provider SuggestionProvider, debounce time.Duration) *Autocomplete {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	return &Autocomplete{
		provider: provider,
		debounce: debounce,
		waiters:  make(map[uint64][]chan Result),
	}
}

// Type records one keystroke. Short queries clear the suggestion box
// immediately; longer ones schedule a fetch after the quiet period,
// cancelling any fetch still pending from earlier keystrokes.
func (a *Autocomplete) Type(query string) {
	a.keypress(query)
}

// TypeAndWait records the keystroke and blocks until its fetch lands or a
// newer keystroke supersedes it (Stale true in that case).
func (a *Autocomplete) TypeAndWait(query string) Result {
	key, done := a.keypress(query)

	a.mu.Lock()
	if done || key != a.keystroke || key <= a.settled {
		result := Result{State: a.state.clone(), Stale: key != a.keystroke}
		a.mu.Unlock()
		return result
	}
	ch := make(chan Result, 1)
	a.waiters[key] = append(a.waiters[key], ch)
	a.mu.Unlock()

	return <-ch
}

// Snapshot returns a copy of the current suggestion state.
func (a *Autocomplete) Snapshot() State {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.state.clone()
}

// Reset clears the suggestion box, e.g. right after a search is committed.
// The sequence is bumped so an in-flight fetch can never repopulate the
// box afterwards.
func (a *Autocomplete) Reset() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.keystroke++
	a.seq++
	a.stopTimerLocked()
	a.releaseStaleWaitersLocked()
	a.state = State{Seq: a.seq}
}

func (a *Autocomplete) keypress(query string) (key uint64, settled bool) {
	trimmed := strings.TrimSpace(query)

	a.mu.Lock()
	defer a.mu.Unlock()

	a.keystroke++
	key = a.keystroke
	a.stopTimerLocked()
	a.releaseStaleWaitersLocked()
	a.state.Query = trimmed

	if len([]rune(trimmed)) < minQueryLength {
		a.state.Suggestions = nil
		a.state.Err = ""
		a.settled = key
		return key, true
	}

	a.timer = time.AfterFunc(a.debounce, func() {
		a.fetch(trimmed, key)
	})
	return key, false
}

func (a *Autocomplete) fetch(query string, key uint64) {
	a.mu.Lock()
	if key != a.keystroke {
		// Superseded between the timer firing and this call.
		a.mu.Unlock()
		return
	}
	a.seq++
	seq := a.seq
	a.mu.Unlock()

	suggestions, err := a.provider.Suggest(query)

	a.mu.Lock()
	defer a.mu.Unlock()

	if seq != a.seq {
		// A newer fetch has been issued since; drop this result silently.
		a.resolveLocked(key, Result{State: a.state.clone(), Stale: true})
		return
	}

	a.state.Seq = seq
	if err != nil {
		log.Printf("suggestion fetch failed for %q: %v", query, err)
		a.state.Suggestions = nil
		a.state.Err = "failed to load suggestions"
	} else {
		a.state.Suggestions = suggestions
		a.state.Err = ""
	}
	a.resolveLocked(key, Result{State: a.state.clone()})
}

func (a *Autocomplete) stopTimerLocked() {
	if a.timer != nil {
		a.timer.Stop()
		a.timer = nil
	}
}

// releaseStaleWaitersLocked answers every caller still waiting on an older
// keystroke: their outcome can no longer win.
func (a *Autocomplete) releaseStaleWaitersLocked() {
	for key, chans := range a.waiters {
		if key >= a.keystroke {
			continue
		}
		for _, ch := range chans {
			ch <- Result{State: a.state.clone(), Stale: true}
		}
		delete(a.waiters, key)
	}
	if a.keystroke > 0 && a.keystroke-1 > a.settled {
		a.settled = a.keystroke - 1
	}
}

func (a *Autocomplete) resolveLocked(key uint64, result Result) {
	if key > a.settled {
		a.settled = key
	}
	for _, ch := range a.waiters[key] {
		ch <- result
	}
	delete(a.waiters, key)
}
