package store

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"go.mongodb.org/mongo-driver/bson"

	herrors "github.com/matzehuels/halftone/pkg/errors"
	"github.com/matzehuels/halftone/pkg/graph"
)

func testPreset(name string, tags ...string) *Preset {
	g := graph.Chain(graph.Step{Algorithm: "floydSteinberg", Params: graph.Params{"palette": "nes", "serpentine": true}})
	return &Preset{Name: name, Description: "test " + name, Tags: tags, Graph: g.Describe()}
}

func newFileStore(t *testing.T) *FileStore {
	t.Helper()
	s, err := NewFileStore(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	return s
}

func TestFileStoreRoundTrip(t *testing.T) {
	s := newFileStore(t)
	ctx := context.Background()

	p := testPreset("gameboy-look", "retro")
	if err := s.Put(ctx, p); err != nil {
		t.Fatal(err)
	}
	got, err := s.Get(ctx, "gameboy-look")
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(p, got); diff != "" {
		t.Errorf("preset mismatch (-want +got):\n%s", diff)
	}

	want, _ := p.Graph.Build()
	built, err := got.Graph.Build()
	if err != nil {
		t.Fatal(err)
	}
	a, _ := graph.Canonical(want)
	b, _ := graph.Canonical(built)
	if string(a) != string(b) {
		t.Errorf("graph changed on disk:\n%s\n%s", a, b)
	}
}

func TestFileStoreKeepsCreatedAt(t *testing.T) {
	s := newFileStore(t)
	ctx := context.Background()
	clock := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return clock }

	if err := s.Put(ctx, testPreset("p")); err != nil {
		t.Fatal(err)
	}
	clock = clock.Add(time.Hour)
	p := testPreset("p")
	p.Description = "edited"
	if err := s.Put(ctx, p); err != nil {
		t.Fatal(err)
	}

	got, err := s.Get(ctx, "p")
	if err != nil {
		t.Fatal(err)
	}
	if !got.CreatedAt.Equal(clock.Add(-time.Hour)) {
		t.Errorf("CreatedAt = %v, want first save time", got.CreatedAt)
	}
	if !got.UpdatedAt.Equal(clock) {
		t.Errorf("UpdatedAt = %v, want %v", got.UpdatedAt, clock)
	}
	if got.Description != "edited" {
		t.Errorf("Description = %q", got.Description)
	}
}

func TestFileStoreNotFound(t *testing.T) {
	s := newFileStore(t)
	ctx := context.Background()

	_, err := s.Get(ctx, "missing")
	if !IsNotFound(err) {
		t.Errorf("Get() = %v, want not found", err)
	}
	if !herrors.Is(err, herrors.ErrCodeNotFound) {
		t.Errorf("Get() code = %q", herrors.GetCode(err))
	}
	if err := s.Delete(ctx, "missing"); !IsNotFound(err) {
		t.Errorf("Delete() = %v, want not found", err)
	}
}

func TestFileStoreDelete(t *testing.T) {
	s := newFileStore(t)
	ctx := context.Background()
	if err := s.Put(ctx, testPreset("gone")); err != nil {
		t.Fatal(err)
	}
	if err := s.Delete(ctx, "gone"); err != nil {
		t.Fatal(err)
	}
	if _, err := s.Get(ctx, "gone"); !IsNotFound(err) {
		t.Errorf("Get after Delete = %v", err)
	}
}

func TestFileStoreRejectsBadNames(t *testing.T) {
	s := newFileStore(t)
	ctx := context.Background()
	for _, name := range []string{"", "../escape", "a/b", `a\b`, ".hidden", "tab\tname"} {
		if err := s.Put(ctx, testPreset(name)); !herrors.Is(err, herrors.ErrCodeInvalidName) {
			t.Errorf("Put(%q) = %v, want %s", name, err, herrors.ErrCodeInvalidName)
		}
		if _, err := s.Get(ctx, name); !herrors.Is(err, herrors.ErrCodeInvalidName) {
			t.Errorf("Get(%q) = %v, want %s", name, err, herrors.ErrCodeInvalidName)
		}
	}
	if entries, _ := os.ReadDir(filepath.Dir(s.Path())); len(entries) != 1 {
		t.Errorf("files escaped the preset dir: %v", entries)
	}
}

func TestFileStoreRejectsBadGraph(t *testing.T) {
	s := newFileStore(t)
	p := &Preset{Name: "broken", Graph: graph.Description{
		Nodes: []graph.NodeDesc{{ID: "a", Kind: graph.KindInput}},
		Edges: []graph.EdgeDesc{{Source: "a", Target: "nowhere"}},
	}}
	if err := s.Put(context.Background(), p); !herrors.Is(err, herrors.ErrCodeInvalidGraph) {
		t.Errorf("Put() = %v, want %s", err, herrors.ErrCodeInvalidGraph)
	}
}

func TestFileStoreList(t *testing.T) {
	s := newFileStore(t)
	ctx := context.Background()
	for _, p := range []*Preset{
		testPreset("retro-nes", "retro"),
		testPreset("print", "mono"),
		testPreset("retro-c64", "retro"),
		testPreset("glitchy"),
	} {
		if err := s.Put(ctx, p); err != nil {
			t.Fatal(err)
		}
	}
	// Stray files are ignored.
	_ = os.WriteFile(filepath.Join(s.Path(), "notes.txt"), []byte("x"), 0600)
	_ = os.WriteFile(filepath.Join(s.Path(), "corrupt.json"), []byte("{"), 0600)

	tests := []struct {
		name string
		opts ListOptions
		want []string
	}{
		{"All", ListOptions{}, []string{"glitchy", "print", "retro-c64", "retro-nes"}},
		{"Prefix", ListOptions{Prefix: "retro-"}, []string{"retro-c64", "retro-nes"}},
		{"Tag", ListOptions{Tag: "mono"}, []string{"print"}},
		{"Limit", ListOptions{Limit: 2}, []string{"glitchy", "print"}},
		{"NoMatch", ListOptions{Tag: "none"}, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			list, err := s.List(ctx, tt.opts)
			if err != nil {
				t.Fatal(err)
			}
			var names []string
			for _, p := range list {
				names = append(names, p.Name)
			}
			if diff := cmp.Diff(tt.want, names); diff != "" {
				t.Errorf("names mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestListFilter(t *testing.T) {
	tests := []struct {
		name string
		opts ListOptions
		want bson.M
	}{
		{"Empty", ListOptions{}, bson.M{}},
		{"Prefix", ListOptions{Prefix: "a.b"}, bson.M{"name": bson.M{"$regex": `^a\.b`}}},
		{"Tag", ListOptions{Tag: "retro"}, bson.M{"tags": "retro"}},
		{"Both", ListOptions{Prefix: "x", Tag: "y", Limit: 5}, bson.M{"name": bson.M{"$regex": "^x"}, "tags": "y"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if diff := cmp.Diff(tt.want, listFilter(tt.opts)); diff != "" {
				t.Errorf("filter mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestUpsertPreset(t *testing.T) {
	now := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)
	p := testPreset("p")
	p.Tags = nil

	filter, update := upsertPreset(p, now)
	if diff := cmp.Diff(bson.M{"name": "p"}, filter); diff != "" {
		t.Errorf("filter mismatch:\n%s", diff)
	}
	set := update["$set"].(bson.M)
	if set["description"] != "test p" || set["updated_at"] != now {
		t.Errorf("$set = %v", set)
	}
	if diff := cmp.Diff(bson.M{"created_at": now}, update["$setOnInsert"]); diff != "" {
		t.Errorf("$setOnInsert mismatch:\n%s", diff)
	}
	if diff := cmp.Diff(bson.M{"tags": ""}, update["$unset"]); diff != "" {
		t.Errorf("$unset mismatch:\n%s", diff)
	}
}

func TestPresetValidateDoesNotMutate(t *testing.T) {
	p := &Preset{Name: "n", Graph: graph.Description{
		Nodes: []graph.NodeDesc{{ID: "in", Kind: graph.KindInput}},
	}}
	if err := p.Validate(); err != nil {
		t.Fatal(err)
	}
	if p.Graph.Version != 0 {
		t.Error("Validate rewrote the graph")
	}
}
