package auth

import "sync"

// Event reports a sign-in (Claims set) or a sign-out (Claims nil).
type Event struct {
	TeacherID string
	Claims    *Claims
}

// SignedOut reports whether the event ends the teacher's session.
func (e Event) SignedOut() bool { return e.Claims == nil }

// Broker fans auth state changes out to subscribers.
type Broker struct {
	mu     sync.Mutex
	nextID int
	subs   map[int]func(Event)
}

// NewBroker creates a broker without subscribers.
func NewBroker() *Broker {
	return &Broker{subs: make(map[int]func(Event))}
}

// Subscribe registers handler and returns the function that removes it.
// Calling the returned function more than once is harmless.
func (b *Broker) Subscribe(handler func(Event)) (unsubscribe func()) {
	b.mu.Lock()
	id := b.nextID
	b.nextID++
	b.subs[id] = handler
	b.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.subs, id)
			b.mu.Unlock()
		})
	}
}

// Publish calls every current subscriber synchronously, outside the lock.
func (b *Broker) Publish(evt Event) {
	b.mu.Lock()
	handlers := make([]func(Event), 0, len(b.subs))
	for _, h := range b.subs {
		handlers = append(handlers, h)
	}
	b.mu.Unlock()

	for _, h := range handlers {
		h(evt)
	}
}

// SignedIn publishes a sign-in.
func (b *Broker) SignedIn(claims Claims) {
	b.Publish(Event{TeacherID: claims.Subject, Claims: &claims})
}

// SignedOut publishes a sign-out.
func (b *Broker) SignedOut(teacherID string) {
	b.Publish(Event{TeacherID: teacherID})
}
