package pack_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/felixgeelhaar/sqlanalyst/domain/pack"
	"github.com/felixgeelhaar/sqlanalyst/domain/tool"
)

// mockTool implements tool.Tool for testing
type mockTool struct {
	name string
}

func (m mockTool) Name() string                  { return m.name }
func (m mockTool) Description() string           { return "mock tool" }
func (m mockTool) Annotations() tool.Annotations { return tool.Annotations{} }
func (m mockTool) InputSchema() tool.Schema      { return tool.Schema{} }
func (m mockTool) Execute(context.Context, json.RawMessage) (tool.Result, error) {
	return tool.Result{}, nil
}

// mapRegistry is a minimal tool.Registry for install tests.
type mapRegistry struct {
	tools map[string]tool.Tool
	order []string
}

func newMapRegistry() *mapRegistry {
	return &mapRegistry{tools: make(map[string]tool.Tool)}
}

func (r *mapRegistry) Register(t tool.Tool) error {
	if _, ok := r.tools[t.Name()]; ok {
		return tool.ErrToolExists
	}
	r.tools[t.Name()] = t
	r.order = append(r.order, t.Name())
	return nil
}

func (r *mapRegistry) Get(name string) (tool.Tool, bool) {
	t, ok := r.tools[name]
	return t, ok
}

func (r *mapRegistry) List() []tool.Tool {
	out := make([]tool.Tool, 0, len(r.order))
	for _, n := range r.order {
		out = append(out, r.tools[n])
	}
	return out
}

func (r *mapRegistry) Names() []string { return r.order }

func (r *mapRegistry) Has(name string) bool {
	_, ok := r.tools[name]
	return ok
}

func (r *mapRegistry) Unregister(name string) error {
	delete(r.tools, name)
	return nil
}

func TestPack_ToolNames(t *testing.T) {
	t.Parallel()

	t.Run("returns empty slice for pack with no tools", func(t *testing.T) {
		t.Parallel()

		p := &pack.Pack{}
		if names := p.ToolNames(); len(names) != 0 {
			t.Errorf("ToolNames() len = %d, want 0", len(names))
		}
	})

	t.Run("returns all tool names in order", func(t *testing.T) {
		t.Parallel()

		p := &pack.Pack{
			Tools: []tool.Tool{
				mockTool{name: "list-tables"},
				mockTool{name: "get-table-schema"},
				mockTool{name: "run-query"},
			},
		}

		names := p.ToolNames()
		want := []string{"list-tables", "get-table-schema", "run-query"}
		if len(names) != len(want) {
			t.Fatalf("ToolNames() len = %d, want %d", len(names), len(want))
		}
		for i := range want {
			if names[i] != want[i] {
				t.Errorf("ToolNames()[%d] = %s, want %s", i, names[i], want[i])
			}
		}
	})
}

func TestPack_GetTool(t *testing.T) {
	t.Parallel()

	p := pack.NewBuilder("analytics").
		AddTools(mockTool{name: "calculate-metrics"}, mockTool{name: "rank-entities"}).
		Build()

	if got, ok := p.GetTool("rank-entities"); !ok || got.Name() != "rank-entities" {
		t.Errorf("GetTool(rank-entities) = %v, %v", got, ok)
	}
	if _, ok := p.GetTool("compare-data"); ok {
		t.Error("GetTool(compare-data) should not be found")
	}
}

func TestBuilder(t *testing.T) {
	t.Parallel()

	p := pack.NewBuilder("database").
		WithDescription("Schema inspection").
		WithVersion("1.0.0").
		AddTool(mockTool{name: "list-tables"}).
		WithMetadata("dialect", "sqlite").
		Build()

	if p.Name != "database" || p.Description != "Schema inspection" || p.Version != "1.0.0" {
		t.Errorf("pack = %+v", p)
	}
	if len(p.Tools) != 1 {
		t.Errorf("Tools len = %d, want 1", len(p.Tools))
	}
	if p.Metadata["dialect"] != "sqlite" {
		t.Errorf("Metadata[dialect] = %q", p.Metadata["dialect"])
	}
}

func TestInstall(t *testing.T) {
	t.Parallel()

	t.Run("registers every tool", func(t *testing.T) {
		t.Parallel()

		reg := newMapRegistry()
		db := pack.NewBuilder("database").AddTools(mockTool{name: "list-tables"}, mockTool{name: "run-query"}).Build()
		an := pack.NewBuilder("analytics").AddTool(mockTool{name: "rank-entities"}).Build()

		if err := pack.Install(reg, db, an); err != nil {
			t.Fatalf("Install() error = %v", err)
		}
		for _, name := range []string{"list-tables", "run-query", "rank-entities"} {
			if !reg.Has(name) {
				t.Errorf("registry missing %s", name)
			}
		}
	})

	t.Run("duplicate tool fails", func(t *testing.T) {
		t.Parallel()

		reg := newMapRegistry()
		a := pack.NewBuilder("a").AddTool(mockTool{name: "run-query"}).Build()
		b := pack.NewBuilder("b").AddTool(mockTool{name: "run-query"}).Build()

		if err := pack.Install(reg, a, b); !errors.Is(err, tool.ErrToolExists) {
			t.Errorf("Install() error = %v, want ErrToolExists", err)
		}
	})

	t.Run("invalid pack", func(t *testing.T) {
		t.Parallel()

		if err := pack.Install(newMapRegistry(), nil); !errors.Is(err, pack.ErrInvalidPack) {
			t.Errorf("Install(nil) error = %v, want ErrInvalidPack", err)
		}
		if err := pack.Install(newMapRegistry(), &pack.Pack{}); !errors.Is(err, pack.ErrInvalidPack) {
			t.Errorf("Install(unnamed) error = %v, want ErrInvalidPack", err)
		}
	})
}
