package source

import (
	"sort"
	"strconv"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/54b3r/catalograg-go/internal/catalog"
)

// ProductFromDocument maps a raw catalogue document onto a Product. Unknown
// fields are ignored and fields of an unexpected type are treated as absent,
// so any document converts.
func ProductFromDocument(doc bson.D) catalog.Product {
	var p catalog.Product
	for _, e := range doc {
		switch e.Key {
		case "_id":
			p.ID = idString(e.Value)
		case "id":
			p.AltID = idString(e.Value)
		case "name":
			p.Name = scalar(e.Value)
		case "description":
			p.Description = scalar(e.Value)
		case "category":
			p.Category = scalar(e.Value)
		case "brand":
			p.Brand = scalar(e.Value)
		case "price":
			p.Price = number(e.Value)
		case "features":
			p.Features = stringList(e.Value)
		case "specifications":
			p.Specifications = specs(e.Value)
		case "tags":
			p.Tags = stringList(e.Value)
		}
	}
	return p
}

func idString(v any) string {
	switch x := v.(type) {
	case primitive.ObjectID:
		return x.Hex()
	case string:
		return x
	default:
		return scalar(v)
	}
}

// scalar renders strings, numbers and booleans; composite values are absent.
func scalar(v any) string {
	switch x := v.(type) {
	case primitive.D, primitive.M, primitive.A, map[string]any, []any, primitive.Null, primitive.Undefined:
		return ""
	case primitive.Decimal128:
		return x.String()
	case primitive.ObjectID:
		return x.Hex()
	case primitive.DateTime:
		return x.Time().UTC().Format(time.RFC3339)
	default:
		return catalog.FormatScalar(x)
	}
}

// number reads a numeric price. Numeric strings are accepted.
func number(v any) *float64 {
	var f float64
	switch x := v.(type) {
	case float64:
		f = x
	case float32:
		f = float64(x)
	case int32:
		f = float64(x)
	case int64:
		f = float64(x)
	case int:
		f = float64(x)
	case primitive.Decimal128:
		parsed, err := strconv.ParseFloat(x.String(), 64)
		if err != nil {
			return nil
		}
		f = parsed
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(x), 64)
		if err != nil {
			return nil
		}
		f = parsed
	default:
		return nil
	}
	return &f
}

// stringList converts an array of scalars. Non-arrays are absent.
func stringList(v any) []string {
	var items []any
	switch x := v.(type) {
	case primitive.A:
		items = x
	case []any:
		items = x
	default:
		return nil
	}
	out := make([]string, 0, len(items))
	for _, it := range items {
		out = append(out, scalarOrText(it))
	}
	return out
}

// specs converts a sub-document to ordered key/value pairs. Ordered documents
// keep their stored order; unordered maps are sorted by key.
func specs(v any) []catalog.Spec {
	switch x := v.(type) {
	case primitive.D:
		out := make([]catalog.Spec, 0, len(x))
		for _, e := range x {
			out = append(out, catalog.Spec{Key: e.Key, Value: scalarOrText(e.Value)})
		}
		return out
	case primitive.M:
		return specsFromMap(x)
	case map[string]any:
		return specsFromMap(x)
	default:
		return nil
	}
}

func specsFromMap(m map[string]any) []catalog.Spec {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([]catalog.Spec, 0, len(keys))
	for _, k := range keys {
		out = append(out, catalog.Spec{Key: k, Value: scalarOrText(m[k])})
	}
	return out
}

// scalarOrText renders nested composites as extended JSON so nothing is
// silently dropped inside lists and specifications.
func scalarOrText(v any) string {
	switch v.(type) {
	case primitive.D, primitive.M, primitive.A, map[string]any, []any:
		b, err := bson.MarshalExtJSON(bson.M{"v": v}, false, false)
		if err != nil {
			return ""
		}
		s := string(b)
		// Strip the {"v": ...} wrapper.
		s = strings.TrimPrefix(s, `{"v":`)
		return strings.TrimSuffix(s, "}")
	default:
		return scalar(v)
	}
}
