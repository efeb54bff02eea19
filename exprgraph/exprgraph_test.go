package exprgraph

import "testing"

func TestBuildSimpleGraph(t *testing.T) {
	g, err := Build(`
		x = var 1.0
		y = var 2.0
		z = add x y
	`)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if g.Top() == nil {
		t.Fatal("Top() is nil")
	}
	if g.Top().Name() != "z" {
		t.Errorf("Top().Name() = %q, want %q", g.Top().Name(), "z")
	}
	if len(g.Names()) != 3 {
		t.Errorf("Names() = %v, want 3 entries", g.Names())
	}
}

func TestBuildExplicitTop(t *testing.T) {
	g, err := Build(`
		a = var 1.0
		b = var 2.0
		s = sum a
		top b
	`)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if g.Top().Name() != "b" {
		t.Errorf("Top().Name() = %q, want %q", g.Top().Name(), "b")
	}
}

func TestBuildCategorical(t *testing.T) {
	g, err := Build("cat = categorical 1 signal background")
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	n, ok := g.Node("cat")
	if !ok {
		t.Fatal("cat not found")
	}
	if n.Class() != "Categorical" {
		t.Errorf("Class() = %q, want Categorical", n.Class())
	}
}

func TestBuildRejectsUndeclaredServer(t *testing.T) {
	_, err := Build("z = add x y")
	if err == nil {
		t.Fatal("expected error for undeclared servers")
	}
}

func TestBuildRejectsDuplicateName(t *testing.T) {
	_, err := Build(`
		x = var 1.0
		x = var 2.0
	`)
	if err == nil {
		t.Fatal("expected error for duplicate declaration")
	}
}

func TestBuildRejectsEmptySpec(t *testing.T) {
	_, err := Build("# just a comment\n\n")
	if err == nil {
		t.Fatal("expected error for empty spec")
	}
}

func TestBuildRejectsUnknownKind(t *testing.T) {
	_, err := Build("x = frobnicate 1")
	if err == nil {
		t.Fatal("expected error for unknown node kind")
	}
}
