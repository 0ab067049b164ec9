package conversation

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
)

func TestValidate(t *testing.T) {
	good := []Conversation{
		Start(KindRegistration, AwaitingName),
		{Kind: KindRegistration, State: AwaitingPhone, Scratch: NamePending{Name: "Alice"}},
		Start(KindRegistration, BrowsingMenu),
		Start(KindAdminMenu, AtMenu),
		Start(KindAddVideo, AwaitingTitle),
		{Kind: KindAddVideo, State: AwaitingLink, Scratch: TitlePending{Title: "T"}},
	}
	for _, c := range good {
		if err := c.Validate(); err != nil {
			t.Fatalf("%+v: %v", c, err)
		}
	}

	bad := []Conversation{
		{},
		Start(KindAdminMenu, AwaitingName),
		Start(KindRegistration, AwaitingPhone),
		{Kind: KindAddVideo, State: AwaitingLink, Scratch: NamePending{Name: "x"}},
		{Kind: KindAdminMenu, State: AtMenu, Scratch: TitlePending{Title: "x"}},
	}
	for _, c := range bad {
		if err := c.Validate(); err == nil {
			t.Fatalf("%+v: expected error", c)
		}
	}
}

func TestScratchAccessors(t *testing.T) {
	c := Conversation{Kind: KindRegistration, State: AwaitingPhone, Scratch: NamePending{Name: "Alice"}}
	if name, ok := c.Name(); !ok || name != "Alice" {
		t.Fatalf("Name() = %q, %v", name, ok)
	}
	if _, ok := c.Title(); ok {
		t.Fatal("registration scratch has no title")
	}
}

func TestJSONRestoresScratchVariant(t *testing.T) {
	in := Conversation{Kind: KindAddVideo, State: AwaitingLink, Scratch: TitlePending{Title: "Intro"}}
	data, err := json.Marshal(in)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var out Conversation
	if err := json.Unmarshal(data, &out); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if title, ok := out.Title(); !ok || title != "Intro" || out.State != AwaitingLink {
		t.Fatalf("out = %+v", out)
	}

	if err := json.Unmarshal([]byte(`{"kind":"admin_menu","state":"awaiting_link"}`), &out); err == nil {
		t.Fatal("expected error for a state outside its flow")
	}
}

func TestMemoryRegistrySupersedes(t *testing.T) {
	ctx := context.Background()
	r := NewMemoryRegistry()
	_ = r.Set(ctx, 1, Conversation{Kind: KindRegistration, State: AwaitingPhone, Scratch: NamePending{Name: "Alice"}})
	if err := r.Set(ctx, 1, Start(KindAdminMenu, AtMenu)); err != nil {
		t.Fatalf("Set: %v", err)
	}
	got, ok, _ := r.Get(ctx, 1)
	if !ok || got.Kind != KindAdminMenu || got.State != AtMenu || got.Scratch != nil {
		t.Fatalf("got %+v", got)
	}
	if r.Len() != 1 {
		t.Fatalf("Len = %d", r.Len())
	}
	_ = r.Clear(ctx, 1)
	if _, ok, _ := r.Get(ctx, 1); ok {
		t.Fatal("entry survived Clear")
	}
}

func TestMemoryRegistryRejectsInvalid(t *testing.T) {
	r := NewMemoryRegistry()
	if err := r.Set(context.Background(), 1, Start(KindRegistration, AwaitingPhone)); err == nil {
		t.Fatal("expected validation error")
	}
	if r.Len() != 0 {
		t.Fatal("invalid conversation stored")
	}
}

func TestMemoryRegistryConcurrentSenders(t *testing.T) {
	ctx := context.Background()
	r := NewMemoryRegistry()
	var wg sync.WaitGroup
	for i := int64(1); i <= 50; i++ {
		wg.Add(1)
		go func(id int64) {
			defer wg.Done()
			for j := 0; j < 20; j++ {
				_ = r.Set(ctx, id, Start(KindAddVideo, AwaitingTitle))
				_, _, _ = r.Get(ctx, id)
			}
			if id%2 == 0 {
				_ = r.Clear(ctx, id)
			}
		}(i)
	}
	wg.Wait()
	if r.Len() != 25 {
		t.Fatalf("Len = %d, want 25", r.Len())
	}
}
