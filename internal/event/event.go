// Package event provides multi-cast events. Listeners run synchronously on
// the goroutine that calls Invoke, in the order they were added.
package event

// Handle identifies a listener so it can be removed later.
type Handle uint64

type listener[F any] struct {
	handle Handle
	fn     F
}

// list is the listener bookkeeping shared by both event kinds.
type list[F any] struct {
	listeners []listener[F]
	next      Handle
}

func (l *list[F]) add(fn F) Handle {
	l.next++
	l.listeners = append(l.listeners, listener[F]{handle: l.next, fn: fn})
	return l.next
}

func (l *list[F]) remove(h Handle) bool {
	for i, ls := range l.listeners {
		if ls.handle == h {
			// Copy so an Invoke in progress keeps iterating its own slice
			l.listeners = append(l.listeners[:i:i], l.listeners[i+1:]...)
			return true
		}
	}
	return false
}

// Event fires with one argument.
type Event[T any] struct {
	list[func(T)]
}

// AddListener adds a callback to be invoked when the event fires.
// A nil callback is ignored and yields the zero handle.
func (e *Event[T]) AddListener(callback func(T)) Handle {
	if callback == nil {
		return 0
	}
	return e.add(callback)
}

// RemoveListener removes the listener registered under h.
func (e *Event[T]) RemoveListener(h Handle) bool {
	return e.remove(h)
}

// RemoveAllListeners clears all listeners
func (e *Event[T]) RemoveAllListeners() {
	e.listeners = nil
}

// Invoke calls all registered listeners
func (e *Event[T]) Invoke(arg T) {
	for _, ls := range e.listeners {
		ls.fn(arg)
	}
}

// GetListenerCount returns the number of registered listeners (for debugging)
func (e *Event[T]) GetListenerCount() int {
	return len(e.listeners)
}

// Event2 fires with two arguments, such as the bodies of a colliding pair.
type Event2[A, B any] struct {
	list[func(A, B)]
}

func (e *Event2[A, B]) AddListener(callback func(A, B)) Handle {
	if callback == nil {
		return 0
	}
	return e.add(callback)
}

func (e *Event2[A, B]) RemoveListener(h Handle) bool {
	return e.remove(h)
}

func (e *Event2[A, B]) RemoveAllListeners() {
	e.listeners = nil
}

func (e *Event2[A, B]) Invoke(a A, b B) {
	for _, ls := range e.listeners {
		ls.fn(a, b)
	}
}

func (e *Event2[A, B]) GetListenerCount() int {
	return len(e.listeners)
}
