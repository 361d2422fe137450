package category

import (
	"testing"

	"github.com/tripatlas/place-comb/app/source"
)

func TestClassifier_DetectFromName(t *testing.T) {
	classifier, err := NewClassifier()
	if err != nil {
		t.Fatalf("failed to build classifier: %v", err)
	}

	cases := []struct {
		name string
		want string
	}{
		{"Notre-Dame Cathedral", "religious"},
		{"Musée d'Orsay", "museum"},
		{"Museo del Prado", "museum"},
		{"Neuschwanstein Castle", "castle"},
		{"Bibliothèque nationale de France", "library"},
		{"Harvard University", "university"},
		{"Hotel Ritz", "hotel"},
		{"Café de Flore", "cafe"},
		{"Restaurant Le Meurice", "restaurant"},
		{"Eiffel Tower", "landmark"},
	}

	for _, c := range cases {
		if got := classifier.DetectFromName(c.name, "landmark"); got != c.want {
			t.Errorf("DetectFromName(%q) = %q, want %q", c.name, got, c.want)
		}
	}
}

func TestClassifier_FirstMatchWins(t *testing.T) {
	classifier, err := NewClassifier()
	if err != nil {
		t.Fatalf("failed to build classifier: %v", err)
	}

	// "church" outranks "museum" in the rule order.
	if got := classifier.DetectFromName("Church Museum of Iceland", "landmark"); got != "religious" {
		t.Errorf("expected religious for church+museum name, got %q", got)
	}
}

func TestClassifier_Assign_FixedDataset(t *testing.T) {
	classifier, err := NewClassifier()
	if err != nil {
		t.Fatalf("failed to build classifier: %v", err)
	}

	// Cemetery datasets get the cemetery category regardless of name.
	for _, name := range []string{"Highgate Cemetery", "Old Church Burial Ground"} {
		cat, err := classifier.Assign(source.TypeCemetery, name)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if cat.Slug != "cemetery" {
			t.Errorf("Assign(cemetery, %q) = %q, want cemetery", name, cat.Slug)
		}
	}
}

func TestClassifier_Assign_Defaults(t *testing.T) {
	classifier, err := NewClassifier()
	if err != nil {
		t.Fatalf("failed to build classifier: %v", err)
	}

	cat, err := classifier.Assign(source.TypeArchitecture, "Unité d'Habitation")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cat.Slug != "architecture" {
		t.Errorf("expected architecture default, got %q", cat.Slug)
	}

	cat, err = classifier.Assign(source.TypeAttraction, "Trevi Fountain")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cat.Slug != "landmark" {
		t.Errorf("expected landmark default, got %q", cat.Slug)
	}
}

func TestClassifier_Assign_UnknownDataset(t *testing.T) {
	classifier, err := NewClassifier()
	if err != nil {
		t.Fatalf("failed to build classifier: %v", err)
	}

	if _, err := classifier.Assign("parks", "Hyde Park"); err == nil {
		t.Errorf("expected error for unknown dataset type")
	}
}

func TestCategoryTable_Consistency(t *testing.T) {
	// Every assignment must produce one of the fixed table's rows, with
	// all three fields coming from the same row.
	classifier, err := NewClassifier()
	if err != nil {
		t.Fatalf("failed to build classifier: %v", err)
	}

	names := []string{"Louvre Museum", "Westminster Abbey", "Eiffel Tower", "Caffè Greco"}
	for _, name := range names {
		cat, err := classifier.Assign(source.TypeAttraction, name)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		fixed, ok := Lookup(cat.Slug)
		if !ok {
			t.Errorf("assignment produced unknown slug %q", cat.Slug)
			continue
		}
		if cat != fixed {
			t.Errorf("assignment for %q diverged from table row: %+v != %+v", name, cat, fixed)
		}
	}
}
