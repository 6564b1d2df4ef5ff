// Package backup implements a bounded, named ring of pre-mutation ref
// snapshots (§4.9), letting an operator undo a rebase by hand or with
// `gitstack backup pop`.
package backup

import (
	"encoding/hex"
	"encoding/json"
	"fmt"

	gserr "gitstack.dev/gitstack/internal/errors"
	"gitstack.dev/gitstack/internal/vcs"
)

// DefaultCapacity is used when config does not set an explicit ring size.
const DefaultCapacity = 10

// Entry is a snapshot of every local branch's commit id at one point in
// time, linked to the entry it superseded.
type Entry struct {
	Branches map[string]vcs.CommitID
	Parent   *int
}

type entryWire struct {
	Branches map[string]string `json:"branches"`
	Parent   *int              `json:"parent"`
}

func toWire(e Entry) entryWire {
	w := entryWire{Branches: make(map[string]string, len(e.Branches)), Parent: e.Parent}
	for name, id := range e.Branches {
		w.Branches[name] = id.String()
	}
	return w
}

func fromWire(w entryWire) (Entry, error) {
	e := Entry{Branches: make(map[string]vcs.CommitID, len(w.Branches)), Parent: w.Parent}
	for name, hex := range w.Branches {
		id, err := parseHexCommitID(hex)
		if err != nil {
			return Entry{}, err
		}
		e.Branches[name] = id
	}
	return e, nil
}

func parseHexCommitID(s string) (vcs.CommitID, error) {
	var id vcs.CommitID
	decoded, err := hex.DecodeString(s)
	if err != nil || len(decoded) != len(id) {
		return id, gserr.Repof("backup: malformed commit id %q", s)
	}
	copy(id[:], decoded)
	return id, nil
}

type metaState struct {
	Head   *int `json:"head"`
	NextID int  `json:"next_id"`
	Count  int  `json:"count"`
}

// Stack is a bounded ring of Entry, persisted under a caller-supplied
// namespace via the repo's RefStore. Pushing past capacity silently drops
// the oldest entry.
type Stack struct {
	store     vcs.RefStore
	namespace string
	capacity  int
}

// NewStack returns a Stack rooted at refs/branch-stash/<namespace>.
func NewStack(store vcs.RefStore, namespace string, capacity int) *Stack {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Stack{store: store, namespace: namespace, capacity: capacity}
}

func (s *Stack) metaRef() string {
	return fmt.Sprintf("refs/branch-stash/%s/meta", s.namespace)
}

func (s *Stack) entryRef(id int) string {
	return fmt.Sprintf("refs/branch-stash/%s/entries/%d", s.namespace, id)
}

func (s *Stack) loadMeta() (metaState, error) {
	data, ok, err := s.store.ReadRef(s.metaRef())
	if err != nil {
		return metaState{}, err
	}
	if !ok {
		return metaState{}, nil
	}
	var m metaState
	if err := json.Unmarshal(data, &m); err != nil {
		return metaState{}, gserr.Repof("backup: corrupt meta ref: %w", err)
	}
	return m, nil
}

func (s *Stack) saveMeta(m metaState) error {
	data, err := json.Marshal(m)
	if err != nil {
		return gserr.Repof("backup: encode meta: %w", err)
	}
	return s.store.WriteRef(s.metaRef(), data)
}

// Push snapshots branches onto the stack.
func (s *Stack) Push(branches map[string]vcs.CommitID) error {
	m, err := s.loadMeta()
	if err != nil {
		return err
	}

	id := m.NextID
	data, err := json.Marshal(toWire(Entry{Branches: branches, Parent: m.Head}))
	if err != nil {
		return gserr.Repof("backup: encode entry: %w", err)
	}
	if err := s.store.WriteRef(s.entryRef(id), data); err != nil {
		return err
	}

	head := id
	m.Head = &head
	m.NextID++
	m.Count++

	if m.Count > s.capacity {
		oldestID, found, err := s.oldestID(m)
		if err != nil {
			return err
		}
		if found {
			_ = s.store.DeleteRef(s.entryRef(oldestID))
		}
		m.Count = s.capacity
	}

	return s.saveMeta(m)
}

// oldestID walks the parent chain from head down m.Count-1 steps to find the
// id that Push is about to evict.
func (s *Stack) oldestID(m metaState) (int, bool, error) {
	if m.Head == nil {
		return 0, false, nil
	}
	id := *m.Head
	for i := 0; i < s.capacity; i++ {
		data, ok, err := s.store.ReadRef(s.entryRef(id))
		if err != nil {
			return 0, false, err
		}
		if !ok {
			return 0, false, nil
		}
		var w entryWire
		if err := json.Unmarshal(data, &w); err != nil {
			return 0, false, gserr.Repof("backup: corrupt entry %d: %w", id, err)
		}
		if w.Parent == nil {
			return id, true, nil
		}
		id = *w.Parent
	}
	return id, true, nil
}

// Pop removes and returns the most recently pushed entry, or ok=false if the stack is empty.
func (s *Stack) Pop() (Entry, bool, error) {
	m, err := s.loadMeta()
	if err != nil {
		return Entry{}, false, err
	}
	if m.Head == nil || m.Count == 0 {
		return Entry{}, false, nil
	}

	id := *m.Head
	data, ok, err := s.store.ReadRef(s.entryRef(id))
	if err != nil {
		return Entry{}, false, err
	}
	if !ok {
		return Entry{}, false, nil
	}
	var w entryWire
	if err := json.Unmarshal(data, &w); err != nil {
		return Entry{}, false, gserr.Repof("backup: corrupt entry %d: %w", id, err)
	}
	entry, err := fromWire(w)
	if err != nil {
		return Entry{}, false, err
	}

	if err := s.store.DeleteRef(s.entryRef(id)); err != nil {
		return Entry{}, false, err
	}
	m.Head = w.Parent
	m.Count--
	if err := s.saveMeta(m); err != nil {
		return Entry{}, false, err
	}
	return entry, true, nil
}

// List returns every live entry, most recently pushed first.
func (s *Stack) List() ([]Entry, error) {
	m, err := s.loadMeta()
	if err != nil {
		return nil, err
	}
	var out []Entry
	id := m.Head
	for i := 0; i < m.Count && id != nil; i++ {
		data, ok, err := s.store.ReadRef(s.entryRef(*id))
		if err != nil {
			return nil, err
		}
		if !ok {
			break
		}
		var w entryWire
		if err := json.Unmarshal(data, &w); err != nil {
			return nil, gserr.Repof("backup: corrupt entry %d: %w", *id, err)
		}
		entry, err := fromWire(w)
		if err != nil {
			return nil, err
		}
		out = append(out, entry)
		id = w.Parent
	}
	return out, nil
}
