package net

// SessionStore tracks live sessions. Game loop only.
type SessionStore struct {
	sessions map[uint64]*Session
	order    []uint64
}

func NewSessionStore() *SessionStore {
	return &SessionStore{sessions: make(map[uint64]*Session)}
}

func (st *SessionStore) Add(s *Session) {
	if _, ok := st.sessions[s.ID]; ok {
		return
	}
	st.sessions[s.ID] = s
	st.order = append(st.order, s.ID)
}

func (st *SessionStore) Remove(id uint64) {
	if _, ok := st.sessions[id]; !ok {
		return
	}
	delete(st.sessions, id)
	for i, v := range st.order {
		if v == id {
			st.order = append(st.order[:i], st.order[i+1:]...)
			break
		}
	}
}

func (st *SessionStore) Get(id uint64) *Session {
	return st.sessions[id]
}

// ForEach visits sessions in connection order. fn must not add or remove.
func (st *SessionStore) ForEach(fn func(*Session)) {
	for _, id := range st.order {
		fn(st.sessions[id])
	}
}

// Snapshot returns the sessions in connection order; safe to mutate the
// store while iterating the result.
func (st *SessionStore) Snapshot() []*Session {
	out := make([]*Session, 0, len(st.order))
	for _, id := range st.order {
		out = append(out, st.sessions[id])
	}
	return out
}

func (st *SessionStore) Count() int {
	return len(st.sessions)
}
