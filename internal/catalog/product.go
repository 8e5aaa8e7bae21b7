// Package catalog turns product records into the text and metadata that get
// embedded and indexed. Everything here is pure: no I/O, no logging.
package catalog

import (
	"fmt"
	"strconv"
)

// Spec is a single key/value entry of a product's specifications.
// Specifications are kept as an ordered slice so flattening is deterministic.
type Spec struct {
	// Key is the specification name (e.g. "weight").
	Key string
	// Value is the scalar value rendered as text (e.g. "1.2kg").
	Value string
}

// Product is a heterogeneous catalogue record. No field is guaranteed to be
// present; zero values mean "absent" except for Price, which is a pointer so
// that a real price of 0 can be told apart from a missing one.
type Product struct {
	// ID is the database identifier (the document's _id), coerced to text.
	ID string
	// AltID is the record's own "id" field, used when ID is absent.
	AltID string
	// Name is the product name.
	Name string
	// Description is free-form marketing text.
	Description string
	// Category is the catalogue category.
	Category string
	// Brand is the manufacturer or brand name.
	Brand string
	// Price is the numeric price. Nil when absent.
	Price *float64
	// Features is the ordered list of feature bullet points. Nil means the
	// field is absent; an empty slice means it is present but empty. The
	// same holds for Specifications and Tags.
	Features []string
	// Specifications is the ordered list of technical specifications.
	Specifications []Spec
	// Tags is the ordered list of search tags.
	Tags []string
}

// Metadata is the compact record stored alongside each vector.
type Metadata struct {
	// ID is the product identifier the document is indexed under.
	ID string `json:"id"`
	// Name is the product name.
	Name string `json:"name,omitempty"`
	// Category is the catalogue category.
	Category string `json:"category,omitempty"`
	// Brand is the brand name.
	Brand string `json:"brand,omitempty"`
	// Price is the numeric price, omitted when absent.
	Price *float64 `json:"price,omitempty"`
	// Text is the flattened text that was embedded.
	Text string `json:"text"`
}

// FormatPrice renders a price without trailing zeros: 10 → "10", 10.5 → "10.5".
func FormatPrice(p float64) string {
	return strconv.FormatFloat(p, 'f', -1, 64)
}

// FormatScalar renders a scalar specification value as text. Unknown types
// fall back to their default fmt representation.
func FormatScalar(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case bool:
		return strconv.FormatBool(x)
	case int:
		return strconv.Itoa(x)
	case int32:
		return strconv.FormatInt(int64(x), 10)
	case int64:
		return strconv.FormatInt(x, 10)
	case float32:
		return strconv.FormatFloat(float64(x), 'f', -1, 32)
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case fmt.Stringer:
		return x.String()
	default:
		return fmt.Sprint(x)
	}
}
