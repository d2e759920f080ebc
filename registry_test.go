package framebridge

import (
	"errors"
	"testing"
)

func stubFactory(b GraphicsBackend) BackendFactory {
	return func(BackendOptions) (GraphicsBackend, error) {
		return b, nil
	}
}

func TestRegistryPriorityOrder(t *testing.T) {
	r := NewRegistry()
	r.Register("software", 10, stubFactory(newMockBackend()), nil)
	r.Register("wgpu", 100, stubFactory(newMockBackend()), nil)

	got := r.List()
	want := []string{"wgpu", "software"}
	if len(got) != len(want) {
		t.Fatalf("List() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("List() = %v, want %v", got, want)
		}
	}
}

func TestRegistryAvailableFiltersUnavailable(t *testing.T) {
	r := NewRegistry()
	r.Register("software", 10, stubFactory(newMockBackend()), nil)
	r.Register("wgpu", 100, stubFactory(newMockBackend()), func() bool { return false })

	got := r.Available()
	if len(got) != 1 || got[0] != "software" {
		t.Errorf("Available() = %v, want [software]", got)
	}
}

func TestRegistryNewBackendPicksBestAvailable(t *testing.T) {
	soft := newMockBackend()
	gpu := newMockBackend()
	r := NewRegistry()
	r.Register("software", 10, stubFactory(soft), nil)
	r.Register("wgpu", 100, stubFactory(gpu), nil)

	b, err := r.NewBackend(BackendOptions{})
	if err != nil {
		t.Fatalf("NewBackend: %v", err)
	}
	if b != GraphicsBackend(gpu) {
		t.Error("NewBackend did not pick the highest-priority backend")
	}
}

func TestRegistryNewBackendFallsThroughFailingFactory(t *testing.T) {
	soft := newMockBackend()
	r := NewRegistry()
	r.Register("software", 10, stubFactory(soft), nil)
	r.Register("wgpu", 100, func(BackendOptions) (GraphicsBackend, error) {
		return nil, errors.New("no adapter")
	}, nil)

	b, err := r.NewBackend(BackendOptions{})
	if err != nil {
		t.Fatalf("NewBackend: %v", err)
	}
	if b != GraphicsBackend(soft) {
		t.Error("NewBackend did not fall through to the software backend")
	}
}

func TestRegistryNewBackendNoneRegistered(t *testing.T) {
	r := NewRegistry()
	if _, err := r.NewBackend(BackendOptions{}); !errors.Is(err, ErrNoBackendAvailable) {
		t.Errorf("err = %v, want ErrNoBackendAvailable", err)
	}
}

func TestRegistryNewBackendByNameNotFound(t *testing.T) {
	r := NewRegistry()
	_, err := r.NewBackendByName("metal", BackendOptions{})
	var notFound *BackendNotFoundError
	if !errors.As(err, &notFound) {
		t.Fatalf("err = %v, want *BackendNotFoundError", err)
	}
	if notFound.Name != "metal" {
		t.Errorf("Name = %q, want %q", notFound.Name, "metal")
	}
}

func TestRegistryNewBackendByNameUnavailable(t *testing.T) {
	r := NewRegistry()
	r.Register("wgpu", 100, stubFactory(newMockBackend()), func() bool { return false })

	_, err := r.NewBackendByName("wgpu", BackendOptions{})
	var unavailable *BackendUnavailableError
	if !errors.As(err, &unavailable) {
		t.Fatalf("err = %v, want *BackendUnavailableError", err)
	}
}

func TestRegistryUnregister(t *testing.T) {
	r := NewRegistry()
	r.Register("software", 10, stubFactory(newMockBackend()), nil)
	r.Unregister("software")

	if _, ok := r.Get("software"); ok {
		t.Error("Get returned an unregistered backend")
	}
	if got := r.List(); len(got) != 0 {
		t.Errorf("List() = %v after Unregister, want empty", got)
	}
}

func TestRegistryReplaceEntry(t *testing.T) {
	r := NewRegistry()
	r.Register("software", 10, stubFactory(newMockBackend()), nil)
	r.Register("software", 20, stubFactory(newMockBackend()), nil)

	entry, ok := r.Get("software")
	if !ok {
		t.Fatal("Get returned no entry")
	}
	if entry.Priority != 20 {
		t.Errorf("Priority = %d after re-register, want 20", entry.Priority)
	}
}
