package membership

import (
	"context"
	"sync"
)

// MemoryRepository keeps members in process, in registration order.
type MemoryRepository struct {
	mu          sync.RWMutex
	order       []string
	members     map[string]Member
	credentials map[string]Credential
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		members:     make(map[string]Member),
		credentials: make(map[string]Credential),
	}
}

func (r *MemoryRepository) Insert(_ context.Context, member *Member, credential *Credential) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.emailTaken(member.Email, "") {
		return ErrDuplicateEmail
	}
	r.members[member.ID] = *member
	r.credentials[member.ID] = *credential
	r.order = append(r.order, member.ID)
	return nil
}

func (r *MemoryRepository) Get(_ context.Context, id string) (*Member, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	m, ok := r.members[id]
	if !ok {
		return nil, ErrMemberNotFound
	}
	return &m, nil
}

func (r *MemoryRepository) Exists(_ context.Context, id string) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	_, ok := r.members[id]
	return ok, nil
}

func (r *MemoryRepository) List(_ context.Context) ([]*Member, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*Member, 0, len(r.order))
	for _, id := range r.order {
		m := r.members[id]
		out = append(out, &m)
	}
	return out, nil
}

func (r *MemoryRepository) UpdateProfile(_ context.Context, id string, profile Profile) (*Member, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	m, ok := r.members[id]
	if !ok {
		return nil, ErrMemberNotFound
	}
	if r.emailTaken(profile.Email, id) {
		return nil, ErrDuplicateEmail
	}
	m.FirstName, m.LastName, m.Email = profile.FirstName, profile.LastName, profile.Email
	r.members[id] = m
	return &m, nil
}

func (r *MemoryRepository) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.members[id]; !ok {
		return ErrMemberNotFound
	}
	delete(r.members, id)
	delete(r.credentials, id)
	for i, existing := range r.order {
		if existing == id {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	return nil
}

func (r *MemoryRepository) GetByEmail(_ context.Context, email string) (*Member, *Credential, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for id, m := range r.members {
		if m.Email == email {
			c := r.credentials[id]
			return &m, &c, nil
		}
	}
	return nil, nil, ErrMemberNotFound
}

func (r *MemoryRepository) emailTaken(email, except string) bool {
	for id, m := range r.members {
		if id != except && m.Email == email {
			return true
		}
	}
	return false
}
