package registry

import (
	"errors"
	"sync"
	"testing"
)

type testItem struct {
	ID   string
	Name string
}

func TestBaseRegistry_Register(t *testing.T) {
	registry := NewBaseRegistry[testItem]()

	tests := []struct {
		name    string
		item    testItem
		wantErr error
	}{
		{"register valid item", testItem{ID: "a", Name: "A"}, nil},
		{"register item with empty name", testItem{ID: "", Name: "none"}, ErrEmptyName},
		{"register duplicate item", testItem{ID: "a", Name: "A again"}, ErrDuplicate},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := registry.Register(tt.item.ID, tt.item)
			if tt.wantErr == nil && err != nil {
				t.Fatalf("Register() unexpected error = %v", err)
			}
			if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
				t.Fatalf("Register() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestBaseRegistry_Order(t *testing.T) {
	registry := NewBaseRegistry[int]()
	for i, name := range []string{"file_operations", "code_executor", "web_search", "codebase_search"} {
		if err := registry.Register(name, i); err != nil {
			t.Fatal(err)
		}
	}

	if err := registry.Remove("code_executor"); err != nil {
		t.Fatal(err)
	}

	got := registry.Names()
	want := []string{"file_operations", "web_search", "codebase_search"}
	if len(got) != len(want) {
		t.Fatalf("Names() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Names()[%d] = %s, want %s", i, got[i], want[i])
		}
	}

	list := registry.List()
	if list[0] != 0 || list[1] != 2 || list[2] != 3 {
		t.Errorf("List() = %v, want [0 2 3]", list)
	}
}

func TestBaseRegistry_RemoveMissing(t *testing.T) {
	registry := NewBaseRegistry[int]()
	if err := registry.Remove("ghost"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Remove() error = %v, want ErrNotFound", err)
	}
}

func TestBaseRegistry_Clear(t *testing.T) {
	registry := NewBaseRegistry[int]()
	_ = registry.Register("a", 1)
	_ = registry.Register("b", 2)

	registry.Clear()

	if registry.Count() != 0 || len(registry.Names()) != 0 {
		t.Errorf("Clear() left %d items", registry.Count())
	}
	if _, ok := registry.Get("a"); ok {
		t.Error("Get() found item after Clear()")
	}
}

func TestBaseRegistry_Concurrent(t *testing.T) {
	registry := NewBaseRegistry[int]()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_ = registry.Register(string(rune('a'+i%26))+string(rune('A'+i/26)), i)
			registry.List()
		}(i)
	}
	wg.Wait()

	if registry.Count() != 50 {
		t.Errorf("Count() = %d, want 50", registry.Count())
	}
}
