package extension

import "testing"

func TestRegistryLookupArity(t *testing.T) {
	r := NewRegistry()
	if err := r.Register(NewSockets()); err != nil {
		t.Fatalf("Register(sockets): %v", err)
	}

	arity, ok := r.LookupArity("sockopen")
	if !ok {
		t.Fatal("expected sockopen to be found")
	}
	if arity != 3 {
		t.Errorf("sockopen arity = %d, want 3", arity)
	}

	if _, ok := r.LookupArity("nosuchkeyword"); ok {
		t.Error("expected an unregistered keyword to report ok=false")
	}
}

func TestRegistryIgnoresDuplicateExtensionName(t *testing.T) {
	r := NewRegistry()
	if err := r.Register(NewSockets()); err != nil {
		t.Fatalf("Register(sockets): %v", err)
	}
	if err := r.Register(NewSockets()); err != nil {
		t.Errorf("re-registering the same extension by name should be a no-op, got: %v", err)
	}
}
