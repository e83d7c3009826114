package model

import (
	"testing"
)

func TestRegistry(t *testing.T) {
	t.Run("register and get", func(t *testing.T) {
		registry := NewRegistry()
		d, _ := FromStruct(Person{})

		if err := registry.Register(d); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		got, ok := registry.Get(d.Name())
		if !ok || got != Descriptor(d) {
			t.Fatal("descriptor should be found by fully-qualified name")
		}
		got, ok = registry.Get("person")
		if !ok || got != Descriptor(d) {
			t.Fatal("descriptor should be found by short name, case-insensitively")
		}
		if _, ok := registry.Get("Team"); ok {
			t.Error("unexpected descriptor for Team")
		}
	})

	t.Run("duplicate registration", func(t *testing.T) {
		registry := NewRegistry()
		d, _ := FromStruct(Person{})

		_ = registry.Register(d)
		if err := registry.Register(d); err == nil {
			t.Error("expected error for duplicate registration")
		}
	})

	t.Run("registration order", func(t *testing.T) {
		m, err := ParseManifest([]byte(testManifest))
		if err != nil {
			t.Fatal(err)
		}
		invoice, _ := FromStruct(Invoice{})

		registry := NewRegistry()
		if err := registry.RegisterAll(append([]Descriptor{invoice}, m.Descriptors()...)...); err != nil {
			t.Fatal(err)
		}

		all := registry.All()
		if len(all) != 3 || registry.Len() != 3 {
			t.Fatalf("expected 3 descriptors, got %d", len(all))
		}
		want := []string{"Invoice", "Person", "Team"}
		for i, d := range all {
			if d.ShortName() != want[i] {
				t.Errorf("position %d: expected %s, got %s", i, want[i], d.ShortName())
			}
		}
		if !registry.ShortNames()["Team"] {
			t.Error("expected Team in short names")
		}
	})
}
