package catalog

import (
	"strings"
	"testing"
)

func ptr(f float64) *float64 { return &f }

// fullProduct returns a record with every optional field populated.
func fullProduct() Product {
	return Product{
		ID:          "65a1f0c2e4b0a1b2c3d4e5f6",
		Name:        "Trail Runner 2",
		Description: "Lightweight running shoe",
		Category:    "Footwear",
		Brand:       "Acme",
		Price:       ptr(129.99),
		Features:    []string{"breathable mesh", "rock plate"},
		Specifications: []Spec{
			{Key: "weight", Value: "240g"},
			{Key: "drop", Value: "6mm"},
		},
		Tags: []string{"running", "trail"},
	}
}

func TestFlatten_AllFields(t *testing.T) {
	t.Parallel()

	want := strings.Join([]string{
		"Product: Trail Runner 2",
		"Description: Lightweight running shoe",
		"Category: Footwear",
		"Brand: Acme",
		"Price: $129.99",
		"Features: breathable mesh, rock plate",
		"Specifications: weight: 240g, drop: 6mm",
		"Tags: running, trail",
	}, "\n")

	if got := Flatten(fullProduct()); got != want {
		t.Errorf("Flatten mismatch\nwant:\n%s\ngot:\n%s", want, got)
	}
}

func TestFlatten_Deterministic(t *testing.T) {
	t.Parallel()

	p := fullProduct()
	first := Flatten(p)
	for range 5 {
		if got := Flatten(p); got != first {
			t.Fatalf("Flatten is not deterministic:\n%q\n%q", first, got)
		}
	}
}

func TestFlatten_FixedOrder(t *testing.T) {
	t.Parallel()

	// Field assignment order is irrelevant to the output.
	p := Product{Price: ptr(10), Brand: "Acme", Name: "X"}
	want := "Product: X\nBrand: Acme\nPrice: $10"
	if got := Flatten(p); got != want {
		t.Errorf("want %q, got %q", want, got)
	}
}

func TestFlatten_OmittingEachField(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		mutate func(*Product)
		absent string
	}{
		{"no name", func(p *Product) { p.Name = "" }, "Product:"},
		{"no description", func(p *Product) { p.Description = "" }, "Description:"},
		{"no category", func(p *Product) { p.Category = "" }, "Category:"},
		{"no brand", func(p *Product) { p.Brand = "" }, "Brand:"},
		{"no price", func(p *Product) { p.Price = nil }, "Price:"},
		{"no features", func(p *Product) { p.Features = nil }, "Features:"},
		{"no specifications", func(p *Product) { p.Specifications = nil }, "Specifications:"},
		{"no tags", func(p *Product) { p.Tags = nil }, "Tags:"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			p := fullProduct()
			tc.mutate(&p)
			got := Flatten(p)
			if strings.Contains(got, tc.absent) {
				t.Errorf("expected %q to be omitted, got:\n%s", tc.absent, got)
			}
			if strings.Count(got, "\n") != 6 {
				t.Errorf("expected 7 lines, got:\n%s", got)
			}
		})
	}
}

func TestFlatten_EmptyRecord(t *testing.T) {
	t.Parallel()
	if got := Flatten(Product{}); got != "" {
		t.Errorf("expected empty string, got %q", got)
	}
}

func TestFlatten_EmptyListsArePresent(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		p    Product
		want string
	}{
		{"empty features", Product{Features: []string{}}, "Features: "},
		{"empty specifications", Product{Specifications: []Spec{}}, "Specifications: "},
		{"empty features and tags", Product{Features: []string{}, Tags: []string{}}, "Features: \nTags: "},
		{"nil lists are absent", Product{Name: "X", Features: nil, Tags: nil}, "Product: X"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			if got := Flatten(tc.p); got != tc.want {
				t.Errorf("want %q, got %q", tc.want, got)
			}
		})
	}
}

func TestFlatten_ZeroPriceIsPresent(t *testing.T) {
	t.Parallel()
	if got := Flatten(Product{Price: ptr(0)}); got != "Price: $0" {
		t.Errorf("want %q, got %q", "Price: $0", got)
	}
}

func TestBuildMetadata(t *testing.T) {
	t.Parallel()

	p := fullProduct()
	m := BuildMetadata(p)

	if m.ID != p.ID {
		t.Errorf("ID: want %q, got %q", p.ID, m.ID)
	}
	if m.Name != p.Name || m.Category != p.Category || m.Brand != p.Brand {
		t.Errorf("unexpected descriptive fields: %+v", m)
	}
	if m.Price == nil || *m.Price != 129.99 {
		t.Errorf("Price: want 129.99, got %v", m.Price)
	}
	if m.Text != Flatten(p) {
		t.Errorf("Text does not match Flatten output")
	}
}

func TestBuildMetadata_IDResolution(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		p    Product
		want string
	}{
		{"database id wins", Product{ID: "db-1", AltID: "alt-1"}, "db-1"},
		{"alternate id", Product{AltID: "alt-1"}, "alt-1"},
		{"no id", Product{Name: "nameless"}, ""},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			if got := BuildMetadata(tc.p).ID; got != tc.want {
				t.Errorf("want %q, got %q", tc.want, got)
			}
		})
	}
}

func TestResolveID(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		p     Product
		index int
		want  string
	}{
		{"database id", Product{ID: "db-1", AltID: "alt-1"}, 3, "db-1"},
		{"alternate id", Product{AltID: "alt-1"}, 3, "alt-1"},
		{"positional fallback", Product{Name: "n"}, 4, "product_4"},
		{"first position", Product{}, 0, "product_0"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			if got := ResolveID(tc.p, tc.index); got != tc.want {
				t.Errorf("want %q, got %q", tc.want, got)
			}
		})
	}
}

func TestFormatScalar(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   any
		want string
	}{
		{"abc", "abc"},
		{true, "true"},
		{int32(7), "7"},
		{int64(-3), "-3"},
		{2.5, "2.5"},
		{float64(3), "3"},
		{nil, ""},
	}

	for _, tc := range tests {
		if got := FormatScalar(tc.in); got != tc.want {
			t.Errorf("FormatScalar(%v): want %q, got %q", tc.in, tc.want, got)
		}
	}
}
