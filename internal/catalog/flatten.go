package catalog

import (
	"fmt"
	"strings"
)

// Flatten renders p as newline-separated "Label: value" lines in a fixed
// order: name, description, category, brand, price, features,
// specifications, tags. Absent fields are skipped; a list that is present but
// empty (non-nil, zero length) is kept as an empty "Label: " line. The output depends only on
// the field values, so re-flattening a record always yields the same text and
// therefore the same embedding input.
func Flatten(p Product) string {
	lines := make([]string, 0, 8)

	if p.Name != "" {
		lines = append(lines, "Product: "+p.Name)
	}
	if p.Description != "" {
		lines = append(lines, "Description: "+p.Description)
	}
	if p.Category != "" {
		lines = append(lines, "Category: "+p.Category)
	}
	if p.Brand != "" {
		lines = append(lines, "Brand: "+p.Brand)
	}
	if p.Price != nil {
		lines = append(lines, "Price: $"+FormatPrice(*p.Price))
	}
	if p.Features != nil {
		lines = append(lines, "Features: "+strings.Join(p.Features, ", "))
	}
	if p.Specifications != nil {
		parts := make([]string, 0, len(p.Specifications))
		for _, s := range p.Specifications {
			parts = append(parts, s.Key+": "+s.Value)
		}
		lines = append(lines, "Specifications: "+strings.Join(parts, ", "))
	}
	if p.Tags != nil {
		lines = append(lines, "Tags: "+strings.Join(p.Tags, ", "))
	}

	return strings.Join(lines, "\n")
}

// BuildMetadata derives the stored metadata for p. The id is the database
// identifier, else the alternate id, else empty: positional fallbacks are
// applied by [ResolveID], never here.
func BuildMetadata(p Product) Metadata {
	id := p.ID
	if id == "" {
		id = p.AltID
	}
	return Metadata{
		ID:       id,
		Name:     p.Name,
		Category: p.Category,
		Brand:    p.Brand,
		Price:    p.Price,
		Text:     Flatten(p),
	}
}

// ResolveID returns the identifier p is indexed under. When the record has
// neither a database id nor an alternate id, the batch position is used:
// the record at index 4 becomes "product_4".
func ResolveID(p Product, index int) string {
	if p.ID != "" {
		return p.ID
	}
	if p.AltID != "" {
		return p.AltID
	}
	return fmt.Sprintf("product_%d", index)
}
