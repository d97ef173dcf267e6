package followcache

import (
	"reflect"
	"testing"

	"space/internal/localstore"
)

// memStore is an in-memory localstore.Store for tests.
type memStore struct {
	data map[string][]byte
}

func newMemStore() *memStore {
	return &memStore{data: make(map[string][]byte)}
}

func (m *memStore) Set(key string, value []byte) error {
	m.data[key] = append([]byte(nil), value...)
	return nil
}

func (m *memStore) Get(key string) ([]byte, error) {
	v, ok := m.data[key]
	if !ok {
		return nil, localstore.ErrNotFound
	}
	return v, nil
}

func (m *memStore) Delete(key string) error {
	delete(m.data, key)
	return nil
}

func (m *memStore) Exists(key string) (bool, error) {
	_, ok := m.data[key]
	return ok, nil
}

func (m *memStore) Close() error { return nil }

func TestLoadEmpty(t *testing.T) {
	c, err := Load(newMemStore())
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if c.Contains("anyone") {
		t.Error("fresh cache contains an entry")
	}
	if got := c.All(); len(got) != 0 {
		t.Errorf("All = %v, want empty", got)
	}
}

func TestAddRemovePersist(t *testing.T) {
	st := newMemStore()
	c, err := Load(st)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}

	if err := c.Add("u2"); err != nil {
		t.Fatalf("Add returned error: %v", err)
	}
	if err := c.Add("u1"); err != nil {
		t.Fatalf("Add returned error: %v", err)
	}
	if !c.Contains("u1") || !c.Contains("u2") {
		t.Error("added followees not reported by Contains")
	}

	// A second cache over the same store sees the persisted set.
	c2, err := Load(st)
	if err != nil {
		t.Fatalf("reload returned error: %v", err)
	}
	if got, want := c2.All(), []string{"u1", "u2"}; !reflect.DeepEqual(got, want) {
		t.Errorf("All after reload = %v, want %v", got, want)
	}

	if err := c.Remove("u1"); err != nil {
		t.Fatalf("Remove returned error: %v", err)
	}
	c3, _ := Load(st)
	if c3.Contains("u1") {
		t.Error("removed followee survived reload")
	}
	if !c3.Contains("u2") {
		t.Error("unrelated followee lost on Remove")
	}
}

func TestAddRemoveIdempotent(t *testing.T) {
	c, _ := Load(newMemStore())

	if err := c.Add("u1"); err != nil {
		t.Fatalf("Add returned error: %v", err)
	}
	if err := c.Add("u1"); err != nil {
		t.Errorf("repeated Add returned error: %v", err)
	}
	if got := c.All(); len(got) != 1 {
		t.Errorf("All = %v, want one entry", got)
	}

	if err := c.Remove("absent"); err != nil {
		t.Errorf("Remove of absent followee returned error: %v", err)
	}
}

func TestReplaceAll(t *testing.T) {
	st := newMemStore()
	c, _ := Load(st)
	c.Add("old")

	if err := c.ReplaceAll([]string{"a", "b"}); err != nil {
		t.Fatalf("ReplaceAll returned error: %v", err)
	}
	if c.Contains("old") {
		t.Error("stale entry survived ReplaceAll")
	}
	if got, want := c.All(), []string{"a", "b"}; !reflect.DeepEqual(got, want) {
		t.Errorf("All = %v, want %v", got, want)
	}

	c2, _ := Load(st)
	if got, want := c2.All(), []string{"a", "b"}; !reflect.DeepEqual(got, want) {
		t.Errorf("All after reload = %v, want %v", got, want)
	}
}

func TestLoadCorruptCacheDropped(t *testing.T) {
	st := newMemStore()
	st.Set("following", []byte("{not json array"))

	c, err := Load(st)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if got := c.All(); len(got) != 0 {
		t.Errorf("All = %v, want empty after corrupt load", got)
	}
}
