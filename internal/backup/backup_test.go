package backup_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"gitstack.dev/gitstack/internal/backup"
	"gitstack.dev/gitstack/internal/vcs"
)

type memStore struct {
	data map[string][]byte
}

func newMemStore() *memStore { return &memStore{data: make(map[string][]byte)} }

func (m *memStore) WriteRef(name string, data []byte) error {
	cp := make([]byte, len(data))
	copy(cp, data)
	m.data[name] = cp
	return nil
}

func (m *memStore) ReadRef(name string) ([]byte, bool, error) {
	v, ok := m.data[name]
	return v, ok, nil
}

func (m *memStore) DeleteRef(name string) error {
	delete(m.data, name)
	return nil
}

func (m *memStore) ListRefs(prefix string) ([]string, error) {
	var out []string
	for k := range m.data {
		if len(k) >= len(prefix) && k[:len(prefix)] == prefix {
			out = append(out, k)
		}
	}
	return out, nil
}

var _ vcs.RefStore = (*memStore)(nil)

func commitID(b byte) vcs.CommitID {
	var id vcs.CommitID
	id[0] = b
	return id
}

func TestStack_PushPopRoundTrip(t *testing.T) {
	store := newMemStore()
	s := backup.NewStack(store, "git-stack", 10)

	require.NoError(t, s.Push(map[string]vcs.CommitID{"main": commitID(1), "feature": commitID(2)}))

	entry, ok, err := s.Pop()
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, commitID(1), entry.Branches["main"])
	require.Equal(t, commitID(2), entry.Branches["feature"])

	_, ok, err = s.Pop()
	require.NoError(t, err)
	require.False(t, ok, "stack must be empty after popping its only entry")
}

func TestStack_ListReturnsNewestFirst(t *testing.T) {
	store := newMemStore()
	s := backup.NewStack(store, "git-stack", 10)

	require.NoError(t, s.Push(map[string]vcs.CommitID{"main": commitID(1)}))
	require.NoError(t, s.Push(map[string]vcs.CommitID{"main": commitID(2)}))
	require.NoError(t, s.Push(map[string]vcs.CommitID{"main": commitID(3)}))

	entries, err := s.List()
	require.NoError(t, err)
	require.Len(t, entries, 3)
	require.Equal(t, commitID(3), entries[0].Branches["main"])
	require.Equal(t, commitID(2), entries[1].Branches["main"])
	require.Equal(t, commitID(1), entries[2].Branches["main"])
}

func TestStack_CapacityDropsOldest(t *testing.T) {
	store := newMemStore()
	s := backup.NewStack(store, "git-stack", 2)

	require.NoError(t, s.Push(map[string]vcs.CommitID{"main": commitID(1)}))
	require.NoError(t, s.Push(map[string]vcs.CommitID{"main": commitID(2)}))
	require.NoError(t, s.Push(map[string]vcs.CommitID{"main": commitID(3)}))

	entries, err := s.List()
	require.NoError(t, err)
	require.Len(t, entries, 2, "capacity of 2 must keep only the two most recent entries")
	require.Equal(t, commitID(3), entries[0].Branches["main"])
	require.Equal(t, commitID(2), entries[1].Branches["main"])
}

func TestStack_PopOnEmptyStack(t *testing.T) {
	store := newMemStore()
	s := backup.NewStack(store, "git-stack", 10)

	_, ok, err := s.Pop()
	require.NoError(t, err)
	require.False(t, ok)
}
