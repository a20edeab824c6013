package queue

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryStore хранит очередь в упорядоченном срезе. Atomically держит мьютекс
// всю единицу и восстанавливает прежнее состояние, если fn вернул ошибку.
type MemoryStore struct {
	mu    sync.Mutex
	state memState
}

type memState struct {
	entries []Entry
	nextID  uint
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{state: memState{nextID: 1}}
}

func (s *MemoryStore) Atomically(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot := memState{entries: append([]Entry(nil), s.state.entries...), nextID: s.state.nextID}
	if err := fn(ctx, &s.state); err != nil {
		s.state = snapshot
		return err
	}
	return nil
}

func (s *MemoryStore) Insert(ctx context.Context, userID string, joinedAt time.Time) (*Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Insert(ctx, userID, joinedAt)
}

func (s *MemoryStore) DeleteByUser(ctx context.Context, userID string) (*Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.DeleteByUser(ctx, userID)
}

func (s *MemoryStore) DeleteByID(ctx context.Context, id uint) (*Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.DeleteByID(ctx, id)
}

func (s *MemoryStore) FindOldest(ctx context.Context) (*Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.FindOldest(ctx)
}

func (s *MemoryStore) FindByUser(ctx context.Context, userID string) (*Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.FindByUser(ctx, userID)
}

func (s *MemoryStore) CountJoinedAtOrBefore(ctx context.Context, e Entry) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.CountJoinedAtOrBefore(ctx, e)
}

func (s *MemoryStore) ListOrdered(ctx context.Context) ([]Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.ListOrdered(ctx)
}

func (m *memState) Insert(_ context.Context, userID string, joinedAt time.Time) (*Entry, error) {
	if m.indexOfUser(userID) >= 0 {
		return nil, ErrDuplicateUser
	}
	e := Entry{ID: m.nextID, UserID: userID, JoinedAt: joinedAt}
	m.nextID++

	i := sort.Search(len(m.entries), func(i int) bool { return e.Before(m.entries[i]) })
	m.entries = append(m.entries, Entry{})
	copy(m.entries[i+1:], m.entries[i:])
	m.entries[i] = e
	return &e, nil
}

func (m *memState) DeleteByUser(_ context.Context, userID string) (*Entry, error) {
	return m.removeAt(m.indexOfUser(userID)), nil
}

func (m *memState) DeleteByID(_ context.Context, id uint) (*Entry, error) {
	for i := range m.entries {
		if m.entries[i].ID == id {
			return m.removeAt(i), nil
		}
	}
	return nil, nil
}

func (m *memState) FindOldest(context.Context) (*Entry, error) {
	if len(m.entries) == 0 {
		return nil, nil
	}
	e := m.entries[0]
	return &e, nil
}

func (m *memState) FindByUser(_ context.Context, userID string) (*Entry, error) {
	i := m.indexOfUser(userID)
	if i < 0 {
		return nil, nil
	}
	e := m.entries[i]
	return &e, nil
}

func (m *memState) CountJoinedAtOrBefore(_ context.Context, e Entry) (int, error) {
	return sort.Search(len(m.entries), func(i int) bool { return e.Before(m.entries[i]) }), nil
}

func (m *memState) ListOrdered(context.Context) ([]Entry, error) {
	return append([]Entry(nil), m.entries...), nil
}

func (m *memState) indexOfUser(userID string) int {
	for i := range m.entries {
		if m.entries[i].UserID == userID {
			return i
		}
	}
	return -1
}

func (m *memState) removeAt(i int) *Entry {
	if i < 0 {
		return nil
	}
	e := m.entries[i]
	m.entries = append(m.entries[:i], m.entries[i+1:]...)
	return &e
}

// MemoryChats — ChatFactory, который только запоминает участников. Нужен для
// запуска одного экземпляра без базы данных.
type MemoryChats struct {
	mu    sync.Mutex
	chats map[string][]string
}

func NewMemoryChats() *MemoryChats {
	return &MemoryChats{chats: make(map[string][]string)}
}

func (m *MemoryChats) CreateChat(_ context.Context, participantIDs []string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	id := uuid.NewString()
	m.chats[id] = append([]string(nil), participantIDs...)
	return id, nil
}

func (m *MemoryChats) Participants(chatID string) []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.chats[chatID]...)
}
