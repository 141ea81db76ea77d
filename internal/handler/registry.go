package handler

import (
	"sync"
	"time"

	"classattend/internal/attendance"
	"classattend/internal/auth"
)

// DefaultSessionTTL is how long an untouched draft session is kept.
const DefaultSessionTTL = 2 * time.Hour

type sessionKey struct {
	teacherID string
	classID   string
}

type registryEntry struct {
	session *attendance.Session
	touched time.Time
}

// Registry holds the draft session of each teacher per class. Sessions of a
// teacher are dropped as soon as the teacher signs out; sessions idle for
// longer than the TTL are evicted on the next access.
type Registry struct {
	svc         *attendance.Service
	ttl         time.Duration
	now         func() time.Time
	mu          sync.Mutex
	sessions    map[sessionKey]*registryEntry
	unsubscribe func()
}

// NewRegistry creates a registry listening to broker for sign-outs. A
// non-positive ttl uses DefaultSessionTTL.
func NewRegistry(svc *attendance.Service, broker *auth.Broker, ttl time.Duration) *Registry {
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	r := &Registry{
		svc:      svc,
		ttl:      ttl,
		now:      time.Now,
		sessions: make(map[sessionKey]*registryEntry),
	}
	r.unsubscribe = broker.Subscribe(func(evt auth.Event) {
		if evt.SignedOut() {
			r.DropTeacher(evt.TeacherID)
		}
	})
	return r
}

// Session returns the session of a teacher on a class, creating it on first
// use, and marks it as touched.
func (r *Registry) Session(teacherID, classID string) *attendance.Session {
	k := sessionKey{teacherID, classID}
	r.mu.Lock()
	defer r.mu.Unlock()
	now := r.now()
	r.evictIdleLocked(now)
	e, ok := r.sessions[k]
	if !ok {
		e = &registryEntry{session: r.svc.NewSession(classID, teacherID)}
		r.sessions[k] = e
	}
	e.touched = now
	return e.session
}

// Drop forgets one session and its draft.
func (r *Registry) Drop(teacherID, classID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sessions, sessionKey{teacherID, classID})
}

// DropTeacher forgets every session of a teacher.
func (r *Registry) DropTeacher(teacherID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for k := range r.sessions {
		if k.teacherID == teacherID {
			delete(r.sessions, k)
		}
	}
}

// EvictIdle drops sessions untouched for longer than the TTL and returns how
// many were dropped.
func (r *Registry) EvictIdle() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.evictIdleLocked(r.now())
}

func (r *Registry) evictIdleLocked(now time.Time) int {
	n := 0
	for k, e := range r.sessions {
		if now.Sub(e.touched) > r.ttl {
			delete(r.sessions, k)
			n++
		}
	}
	return n
}

// Len is the number of open sessions.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

// Close stops listening for auth events.
func (r *Registry) Close() {
	r.unsubscribe()
}
