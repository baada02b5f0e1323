package meta

import (
	"context"
	"testing"

	"github.com/google/uuid"
)

func TestRegisterAndLookup(t *testing.T) {
	r := NewRegistry()
	cfg := ObjectConfig{
		Name:   "Item",
		Build:  func() Record { return nil },
		Update: func(Host, string, Record, bool) bool { return true },
	}
	if err := r.Register(cfg); err != nil {
		t.Fatalf("register: %v", err)
	}
	got, ok := r.Lookup("Item")
	if !ok || got.Name != "Item" {
		t.Fatalf("lookup failed, got %+v ok=%v", got, ok)
	}
}

func TestRegisterRejectsDuplicate(t *testing.T) {
	r := NewRegistry()
	cfg := ObjectConfig{
		Name:   "Item",
		Build:  func() Record { return nil },
		Update: func(Host, string, Record, bool) bool { return true },
	}
	if err := r.Register(cfg); err != nil {
		t.Fatalf("first register: %v", err)
	}
	if err := r.Register(cfg); err == nil {
		t.Fatal("want AlreadyRegistered on re-registration")
	}
}

func TestRegisterValidatesTransientRequiresBuildAndUpdate(t *testing.T) {
	r := NewRegistry()
	if err := r.Register(ObjectConfig{Name: "NoBuild", Update: func(Host, string, Record, bool) bool { return true }}); err == nil {
		t.Fatal("want an error for a transient type with no Build function")
	}
	if err := r.Register(ObjectConfig{Name: "NoUpdate", Build: func() Record { return nil }}); err == nil {
		t.Fatal("want an error for a transient type with no Update function")
	}
}

func TestUnregisterIsIdempotent(t *testing.T) {
	r := NewRegistry()
	r.Unregister("never-registered")

	cfg := ObjectConfig{Name: "Item", Build: func() Record { return nil }, Update: func(Host, string, Record, bool) bool { return true }}
	_ = r.Register(cfg)
	r.Unregister("Item")
	r.Unregister("Item")

	if _, ok := r.Lookup("Item"); ok {
		t.Fatal("want Item gone after unregister")
	}
}

func TestPersistentTypeNeedsNeitherBuildNorUpdate(t *testing.T) {
	r := NewRegistry()
	if err := r.Register(ObjectConfig{Name: "Character", Store: fakeLoader{}}); err != nil {
		t.Fatalf("persistent type with no Build/Update should register: %v", err)
	}
}

type fakeLoader struct{}

func (fakeLoader) Load(_ context.Context, _ string, _ uuid.UUID) (Record, bool, error) {
	return nil, false, nil
}
