package watchers

import (
	"time"
)

// DisplayWatcher refreshes internal panel state whenever the backlight
// changes outside of wilux (hotkeys, power profiles, other tools).
type DisplayWatcher struct {
	// Events opens the change source; it must close its channel once stop closes.
	Events func(stop <-chan struct{}) <-chan struct{}
	// Refresh is called once at start and after every change, debounced.
	Refresh  func()
	Debounce time.Duration
}

func (w DisplayWatcher) Run(stop <-chan struct{}) {
	w.Refresh()

	events := w.Events(stop)
	var pending <-chan time.Time

	for {
		select {
		case <-stop:
			return
		case _, ok := <-events:
			if !ok {
				// source is gone; idle until stopped
				events = nil
				continue
			}
			if w.Debounce <= 0 {
				w.Refresh()
				continue
			}
			if pending == nil {
				pending = time.After(w.Debounce)
			}
		case <-pending:
			pending = nil
			w.Refresh()
		}
	}
}
