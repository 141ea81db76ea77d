package roster

import (
	"context"
	"sync"
	"time"

	"github.com/pkg/errors"
)

// Memory is an in-process Provider for development and tests.
type Memory struct {
	mu      sync.RWMutex
	classes map[string][]Student
}

// NewMemory creates an empty roster.
func NewMemory() *Memory {
	return &Memory{classes: make(map[string][]Student)}
}

// Enroll appends a student to a class, replacing an existing enrollment in place.
func (m *Memory) Enroll(_ context.Context, classID string, st Student) error {
	if classID == "" || st.ID == "" {
		return errors.New("class and student required")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if st.EnrolledAt.IsZero() {
		st.EnrolledAt = time.Now().UTC()
	}
	list := m.classes[classID]
	for i := range list {
		if list[i].ID == st.ID {
			list[i] = st
			return nil
		}
	}
	m.classes[classID] = append(list, st)
	return nil
}

// Deactivate marks an enrollment inactive.
func (m *Memory) Deactivate(_ context.Context, classID, studentID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.classes[classID] {
		if m.classes[classID][i].ID == studentID {
			m.classes[classID][i].IsActive = false
		}
	}
	return nil
}

// ActiveStudents implements Provider.
func (m *Memory) ActiveStudents(_ context.Context, classID string) ([]Student, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := []Student{}
	for _, st := range m.classes[classID] {
		if st.IsActive {
			out = append(out, st)
		}
	}
	return out, nil
}
