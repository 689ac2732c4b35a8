package netquery

import (
	"encoding/json"
	"maps"
)

// Condition maps a field name to a predicate. A predicate is a literal
// (equality), an In or Like operator, or a []any holding merged predicates.
type Condition map[string]any

// In matches when the field value is a member of the set.
type In []any

// MarshalJSON encodes the operator as {"$in": [...]}.
func (in In) MarshalJSON() ([]byte, error) {
	values := []any(in)
	if values == nil {
		values = []any{}
	}
	return json.Marshal(map[string][]any{"$in": values})
}

// Like matches the field against a pattern using % as wildcard.
type Like string

// MarshalJSON encodes the operator as {"$like": "..."}.
func (l Like) MarshalJSON() ([]byte, error) {
	return json.Marshal(map[string]string{"$like": string(l)})
}

// Contains returns a Like predicate matching term anywhere in the value.
func Contains(term string) Like {
	return Like("%" + term + "%")
}

// Merge attaches predicate p to field. An absent field is set to p as is.
// A present field is turned into a sequence (if it is not one already) and
// p is appended, so earlier predicates are never dropped or reordered.
func (c Condition) Merge(field string, p any) {
	existing, ok := c[field]
	if !ok {
		c[field] = p
		return
	}

	seq, isSeq := existing.([]any)
	if !isSeq {
		seq = []any{existing}
	}
	c[field] = append(seq, p)
}

// Clone returns a copy that can be merged into without affecting c.
// Sequences and In sets are copied; literals are shared.
func (c Condition) Clone() Condition {
	if c == nil {
		return Condition{}
	}
	out := make(Condition, len(c))
	for field, p := range c {
		out[field] = clonePredicate(p)
	}
	return out
}

func clonePredicate(p any) any {
	switch v := p.(type) {
	case []any:
		seq := make([]any, len(v))
		for i, item := range v {
			seq[i] = clonePredicate(item)
		}
		return seq
	case In:
		return append(In(nil), v...)
	case Condition:
		return v.Clone()
	case map[string]any:
		return maps.Clone(v)
	default:
		return v
	}
}

// Key returns the canonical JSON encoding of the condition. Structurally
// equal conditions produce the same key, which makes it usable for caching.
func (c Condition) Key() string {
	if len(c) == 0 {
		return "{}"
	}
	b, err := json.Marshal(c)
	if err != nil {
		// Only non-encodable literals (channels, funcs) end up here.
		return ""
	}
	return string(b)
}

// Predicates returns the predicates attached to field as a flat list.
func (c Condition) Predicates(field string) []any {
	p, ok := c[field]
	if !ok {
		return nil
	}
	if seq, isSeq := p.([]any); isSeq {
		return seq
	}
	return []any{p}
}
