package browser

import "sync"

// Navigator performs a hard navigation, discarding in-memory page state.
type Navigator interface {
	Navigate(location string)
}

// RecordingNavigator remembers every navigation; hosts without a page use it
// to observe reloads.
type RecordingNavigator struct {
	mutex      sync.Mutex
	locations  []string
	onNavigate func(string)
}

// NewRecordingNavigator constructs a navigator that calls onNavigate, when
// provided, after recording each location.
func NewRecordingNavigator(onNavigate func(string)) *RecordingNavigator {
	return &RecordingNavigator{onNavigate: onNavigate}
}

// Navigate implements Navigator.
func (navigator *RecordingNavigator) Navigate(location string) {
	navigator.mutex.Lock()
	navigator.locations = append(navigator.locations, location)
	callback := navigator.onNavigate
	navigator.mutex.Unlock()
	if callback != nil {
		callback(location)
	}
}

// Locations returns the recorded navigations in order.
func (navigator *RecordingNavigator) Locations() []string {
	navigator.mutex.Lock()
	defer navigator.mutex.Unlock()
	clone := make([]string, len(navigator.locations))
	copy(clone, navigator.locations)
	return clone
}
