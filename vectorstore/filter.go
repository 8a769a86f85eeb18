package vectorstore

import (
	"encoding/json"
	"strings"

	"hn-insight/apperrors"
	"hn-insight/models"
)

// Op is the closed operator set of the filter language.
type Op string

const (
	OpEq  Op = "$eq"
	OpGte Op = "$gte"
	OpLte Op = "$lte"
	OpGt  Op = "$gt"
	OpLt  Op = "$lt"
	OpIn  Op = "$in"
)

var knownOps = map[Op]bool{
	OpEq: true, OpGte: true, OpLte: true, OpGt: true, OpLt: true, OpIn: true,
}

// Predicate is one field constraint: an operator and its operand.
type Predicate struct {
	Op    Op
	Value any
}

// Filter maps field names to predicates. All entries are AND-ed. Unknown
// fields evaluate as opaque equality against the metadata extra map.
type Filter map[string]Predicate

func Eq(v any) Predicate  { return Predicate{Op: OpEq, Value: v} }
func Gte(v any) Predicate { return Predicate{Op: OpGte, Value: v} }
func Lte(v any) Predicate { return Predicate{Op: OpLte, Value: v} }
func Gt(v any) Predicate  { return Predicate{Op: OpGt, Value: v} }
func Lt(v any) Predicate  { return Predicate{Op: OpLt, Value: v} }

func In[T any](vs []T) Predicate {
	out := make([]any, len(vs))
	for i, v := range vs {
		out[i] = v
	}
	return Predicate{Op: OpIn, Value: out}
}

// numericFields are the known fields range operators apply to.
var numericFields = map[string]bool{
	"score": true, "timestamp": true, "chunk_index": true,
}

// scalarFields are the known string-valued fields.
var scalarFields = map[string]bool{
	"topic": true, "doc_type": true, "article_id": true,
	"source": true, "title": true, "author": true, "comment_author": true,
}

// ParseFilter decodes the wire form: {field: literal} for equality and
// {field: {"$op": value}} for operators.
func ParseFilter(raw []byte) (Filter, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, apperrors.Validation("filter is not a JSON object: %v", err)
	}
	f := make(Filter, len(fields))
	for name, rawVal := range fields {
		pred, err := parsePredicate(name, rawVal)
		if err != nil {
			return nil, err
		}
		f[name] = pred
	}
	if err := f.Validate(); err != nil {
		return nil, err
	}
	return f, nil
}

func parsePredicate(field string, raw json.RawMessage) (Predicate, error) {
	trimmed := strings.TrimSpace(string(raw))
	if strings.HasPrefix(trimmed, "{") {
		var obj map[string]any
		if err := json.Unmarshal(raw, &obj); err != nil {
			return Predicate{}, apperrors.Validation("filter field %q: %v", field, err)
		}
		if len(obj) != 1 {
			return Predicate{}, apperrors.Validation("filter field %q must carry exactly one operator", field)
		}
		for op, val := range obj {
			if !knownOps[Op(op)] {
				return Predicate{}, apperrors.Validation("filter field %q uses unknown operator %q", field, op)
			}
			return Predicate{Op: Op(op), Value: val}, nil
		}
	}
	var lit any
	if err := json.Unmarshal(raw, &lit); err != nil {
		return Predicate{}, apperrors.Validation("filter field %q: %v", field, err)
	}
	return Predicate{Op: OpEq, Value: lit}, nil
}

// MarshalJSON emits the wire form, collapsing $eq to a bare literal.
func (f Filter) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(f))
	for name, pred := range f {
		if pred.Op == OpEq {
			out[name] = pred.Value
		} else {
			out[name] = map[string]any{string(pred.Op): pred.Value}
		}
	}
	return json.Marshal(out)
}

// Validate rejects unknown operators and operator/field type mismatches.
func (f Filter) Validate() error {
	for field, pred := range f {
		if !knownOps[pred.Op] {
			return apperrors.Validation("filter field %q uses unknown operator %q", field, pred.Op)
		}
		switch pred.Op {
		case OpGte, OpLte, OpGt, OpLt:
			if !numericFields[field] {
				return apperrors.Validation("filter field %q does not support range operator %s", field, pred.Op)
			}
			if _, ok := toFloat(pred.Value); !ok {
				return apperrors.Validation("filter field %q: %s operand must be numeric", field, pred.Op)
			}
		case OpIn:
			if _, ok := pred.Value.([]any); !ok {
				return apperrors.Validation("filter field %q: $in operand must be an array", field)
			}
			if scalarFields[field] || numericFields[field] || field == "tags" {
				continue
			}
			return apperrors.Validation("filter field %q only supports equality", field)
		case OpEq:
			// Equality applies to every field, known or passthrough.
		}
	}
	return nil
}

// Matches evaluates the filter against a document's metadata. The filter must
// have been validated; evaluation itself never fails.
func (f Filter) Matches(doc models.Document) bool {
	for field, pred := range f {
		if !matchField(doc, field, pred) {
			return false
		}
	}
	return true
}

func matchField(doc models.Document, field string, pred Predicate) bool {
	if field == "tags" {
		return matchTags(doc.Metadata.Tags, pred)
	}
	val, known := fieldValue(doc, field)
	if !known {
		val = nil
		if doc.Metadata.Extra != nil {
			val = doc.Metadata.Extra[field]
		}
	}
	switch pred.Op {
	case OpEq:
		return equal(val, pred.Value)
	case OpIn:
		list, _ := pred.Value.([]any)
		for _, candidate := range list {
			if equal(val, candidate) {
				return true
			}
		}
		return false
	case OpGte, OpLte, OpGt, OpLt:
		have, ok1 := toFloat(val)
		want, ok2 := toFloat(pred.Value)
		if !ok1 || !ok2 {
			return false
		}
		switch pred.Op {
		case OpGte:
			return have >= want
		case OpLte:
			return have <= want
		case OpGt:
			return have > want
		default:
			return have < want
		}
	}
	return false
}

// matchTags treats tags as a set: equality means containment, $in means a
// non-empty intersection.
func matchTags(tags []string, pred Predicate) bool {
	switch pred.Op {
	case OpEq:
		for _, t := range tags {
			if equal(t, pred.Value) {
				return true
			}
		}
		return false
	case OpIn:
		list, _ := pred.Value.([]any)
		for _, t := range tags {
			for _, candidate := range list {
				if equal(t, candidate) {
					return true
				}
			}
		}
		return false
	default:
		return false
	}
}

func fieldValue(doc models.Document, field string) (any, bool) {
	m := doc.Metadata
	switch field {
	case "article_id":
		return m.ArticleID, true
	case "doc_type":
		return string(m.DocType), true
	case "topic":
		return m.Topic, true
	case "score":
		return m.Score, true
	case "timestamp":
		return m.Timestamp, true
	case "source":
		return m.Source, true
	case "title":
		return m.Title, true
	case "author":
		return m.Author, true
	case "comment_author":
		return m.CommentAuthor, true
	case "chunk_index":
		return doc.ChunkIndex, true
	default:
		return nil, false
	}
}

func equal(a, b any) bool {
	if fa, ok := toFloat(a); ok {
		if fb, ok := toFloat(b); ok {
			return fa == fb
		}
		return false
	}
	sa, okA := a.(string)
	sb, okB := b.(string)
	if okA && okB {
		return sa == sb
	}
	return a == b
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, true
	default:
		return 0, false
	}
}
