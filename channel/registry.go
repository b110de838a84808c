package channel

import (
	"errors"

	"github.com/puzpuzpuz/xsync/v3"
)

// OpenFunc opens the device at path.
type OpenFunc func(path string) (*Channel, error)

// Registry keeps at most one open Channel per device path.
//
// It is safe for concurrent use: the interactive shell acquires channels on
// the main goroutine while the interrupt handler closes them from another.
type Registry struct {
	open     OpenFunc
	channels *xsync.MapOf[string, *Channel]
}

// NewRegistry creates a Registry that opens devices with open.
func NewRegistry(open OpenFunc) *Registry {
	return &Registry{
		open:     open,
		channels: xsync.NewMapOf[string, *Channel](),
	}
}

// Acquire returns the open channel for path, opening it when there is none
// or the previous one was closed.
func (r *Registry) Acquire(path string) (*Channel, error) {
	var openErr error

	ch, _ := r.channels.Compute(path, func(old *Channel, loaded bool) (*Channel, bool) {
		if loaded && !old.IsClosed() {
			return old, false
		}

		ch, err := r.open(path)
		if err != nil {
			openErr = err
			return nil, true
		}

		return ch, false
	})
	if openErr != nil {
		return nil, openErr
	}

	return ch, nil
}

// Release closes and forgets the channel for path.
func (r *Registry) Release(path string) error {
	ch, ok := r.channels.LoadAndDelete(path)
	if !ok {
		return nil
	}

	return ch.Close()
}

// CloseAll closes every registered channel.
func (r *Registry) CloseAll() error {
	var errs []error

	r.channels.Range(func(path string, _ *Channel) bool {
		if err := r.Release(path); err != nil {
			errs = append(errs, err)
		}
		return true
	})

	return errors.Join(errs...)
}

// Len returns the number of registered channels.
func (r *Registry) Len() int {
	return r.channels.Size()
}
