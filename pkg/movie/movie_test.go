package movie

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"
)

func TestNormalizeTitle(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"Inception", "inception"},
		{"inception ", "inception"},
		{"  INCEPTION\t", "inception"},
		{"", ""},
		{"Amélie", "amélie"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := NormalizeTitle(tt.input); got != tt.want {
				t.Errorf("NormalizeTitle(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestCatalogKey(t *testing.T) {
	if got := CatalogKey(27205); got != "catalog-27205" {
		t.Errorf("CatalogKey() = %q, want catalog-27205", got)
	}
}

func TestBare(t *testing.T) {
	r := Bare("Foo")

	if r.Title != "Foo" {
		t.Errorf("Title = %q, want Foo", r.Title)
	}
	if r.CurrentTier != DefaultTier {
		t.Errorf("CurrentTier = %q, want %q", r.CurrentTier, DefaultTier)
	}
	if r.Genres == nil || len(r.Genres) != 0 {
		t.Errorf("Genres = %v, want empty non-nil slice", r.Genres)
	}
	if r.HasCatalogID() || r.PosterURL != nil || r.ReleaseYear != nil {
		t.Error("bare record should carry no catalog fields")
	}
}

func TestRecordJSON_NullFields(t *testing.T) {
	data, err := json.Marshal(Bare("Foo"))
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}

	out := string(data)
	for _, want := range []string{`"posterUrl":null`, `"catalogId":null`, `"releaseYear":null`, `"genres":[]`, `"currentTier":"uncategorized"`} {
		if !strings.Contains(out, want) {
			t.Errorf("JSON %s missing %s", out, want)
		}
	}
}

func TestResultConstructors(t *testing.T) {
	cause := errors.New("boom")

	if r := NoMatch("Foo"); r.Outcome != OutcomeNoMatch || r.Err != nil || r.Record.Title != "Foo" {
		t.Errorf("NoMatch() = %+v", r)
	}
	if r := Matched(Record{ID: "catalog-1"}); r.Outcome != OutcomeMatched || r.Err != nil {
		t.Errorf("Matched() = %+v", r)
	}
	if r := Failed(Bare("Foo"), cause); r.Outcome != OutcomeFailed || !errors.Is(r.Err, cause) {
		t.Errorf("Failed() = %+v", r)
	}
}

func TestRecordClone(t *testing.T) {
	poster := "https://image.tmdb.org/t/p/w500/heat.jpg"
	id := int64(949)
	year := 1995
	orig := Record{
		ID:          CatalogKey(id),
		Title:       "Heat",
		PosterURL:   &poster,
		CatalogID:   &id,
		ReleaseYear: &year,
		Genres:      []int{28, 80},
		CurrentTier: DefaultTier,
	}

	clone := orig.Clone()
	*clone.PosterURL = "changed"
	*clone.CatalogID = 1
	*clone.ReleaseYear = 2000
	clone.Genres[0] = 99

	if *orig.PosterURL != poster || *orig.CatalogID != 949 || *orig.ReleaseYear != 1995 {
		t.Errorf("original pointers changed through clone: %+v", orig)
	}
	if orig.Genres[0] != 28 {
		t.Errorf("original Genres changed through clone: %v", orig.Genres)
	}

	bare := Bare("x").Clone()
	if bare.Genres == nil || bare.PosterURL != nil || bare.CatalogID != nil {
		t.Errorf("Bare().Clone() = %+v, want empty genres and nil catalog fields", bare)
	}
}
