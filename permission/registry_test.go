package permission

import (
	"fmt"
	"reflect"
	"testing"
)

func TestRegistryAssignsSequentialBits(t *testing.T) {
	r := NewRegistry()
	for i, name := range []string{"stories.read", "stories.write", "users.manage"} {
		bit, err := r.Register(name)
		if err != nil {
			t.Fatalf("register %s: %v", name, err)
		}
		if bit != i {
			t.Fatalf("expected bit %d for %s, got %d", i, name, bit)
		}
	}

	if _, err := r.Register("stories.read"); err == nil {
		t.Fatal("expected duplicate registration to fail")
	}

	r.Freeze()
	if _, err := r.Register("late"); err == nil {
		t.Fatal("expected frozen registry to reject registration")
	}
}

func TestRegistryLimit(t *testing.T) {
	r := NewRegistry()
	for i := 0; i < MaxBits; i++ {
		if _, err := r.Register(fmt.Sprintf("p%d", i)); err != nil {
			t.Fatalf("register p%d: %v", i, err)
		}
	}
	if _, err := r.Register("overflow"); err == nil {
		t.Fatal("expected registry to reject capability beyond mask width")
	}
}

func TestMaskOfAndNames(t *testing.T) {
	r := NewRegistry()
	for _, name := range []string{"a", "b", "c"} {
		if _, err := r.Register(name); err != nil {
			t.Fatalf("register: %v", err)
		}
	}

	mask, err := r.MaskOf([]string{"c", "a"})
	if err != nil {
		t.Fatalf("mask of: %v", err)
	}
	if !mask.Has(0) || mask.Has(1) || !mask.Has(2) {
		t.Fatalf("unexpected mask %b", mask.Raw())
	}
	if got := r.Names(mask); !reflect.DeepEqual(got, []string{"a", "c"}) {
		t.Fatalf("unexpected names %v", got)
	}

	if _, err := r.MaskOf([]string{"missing"}); err == nil {
		t.Fatal("expected unknown capability to fail")
	}
}

func TestRoleManager(t *testing.T) {
	r := NewRegistry()
	for _, name := range []string{"read", "write", "admin.panel"} {
		if _, err := r.Register(name); err != nil {
			t.Fatalf("register: %v", err)
		}
	}
	r.Freeze()

	rm := NewRoleManager(r)
	if err := rm.RegisterRole("user", []string{"read"}); err != nil {
		t.Fatalf("register role: %v", err)
	}
	if err := rm.RegisterRole("admin", []string{"read", "write", "admin.panel"}); err != nil {
		t.Fatalf("register role: %v", err)
	}
	if err := rm.RegisterRole("ghost", []string{"nope"}); err == nil {
		t.Fatal("expected role with unknown capability to fail")
	}
	rm.Freeze()

	perms, ok := rm.Permissions("admin")
	if !ok || len(perms) != 3 {
		t.Fatalf("unexpected admin permissions %v", perms)
	}
	if rm.Has("editor") {
		t.Fatal("unregistered role must not resolve")
	}
	if got := rm.Roles(); !reflect.DeepEqual(got, []string{"admin", "user"}) {
		t.Fatalf("unexpected roles %v", got)
	}
	if err := rm.RegisterRole("late", nil); err == nil {
		t.Fatal("expected frozen role manager to reject registration")
	}
}
