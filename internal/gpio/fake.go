package gpio

import "sync"

// FakeWriter records the values written to it.
type FakeWriter struct {
	mu sync.Mutex

	// Values contains every value passed to Set, in order.
	Values []bool

	// Closed tracks if Close was called.
	Closed bool

	// SetError, if set, will be returned by Set.
	SetError error
}

// NewFakeWriter creates a FakeWriter.
func NewFakeWriter() *FakeWriter {
	return &FakeWriter{}
}

// Set records on.
func (f *FakeWriter) Set(on bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.SetError != nil {
		return f.SetError
	}
	f.Values = append(f.Values, on)
	return nil
}

// Close marks the writer as closed.
func (f *FakeWriter) Close() error {
	f.mu.Lock()
	f.Closed = true
	f.mu.Unlock()
	return nil
}

// Last returns the most recent value and whether any was written.
func (f *FakeWriter) Last() (bool, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.Values) == 0 {
		return false, false
	}
	return f.Values[len(f.Values)-1], true
}
