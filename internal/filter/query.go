package filter

import (
	"fmt"

	"mcpmux/pkg/mcperr"
)

// ParseQuery compiles a MongoDB-style tag query document into a Predicate.
// Supported shapes: {"tag": "value"}, {"$or": [...]}, {"$and": [...]},
// {"$advanced": "<dsl expression>"}. An empty/nil query yields MatchAll.
func ParseQuery(query map[string]any) (Predicate, error) {
	if len(query) == 0 {
		return MatchAll, nil
	}
	var preds []Predicate
	for key, val := range query {
		switch key {
		case "$or":
			sub, err := parseQueryList(val, "$or")
			if err != nil {
				return nil, err
			}
			preds = append(preds, orAll(sub))
		case "$and":
			sub, err := parseQueryList(val, "$and")
			if err != nil {
				return nil, err
			}
			preds = append(preds, andAll(sub))
		case "$advanced":
			expr, ok := val.(string)
			if !ok {
				return nil, mcperr.New(mcperr.KindInvalidFilter, "$advanced value must be a string expression")
			}
			pred, err := ParseDSL(expr)
			if err != nil {
				return nil, err
			}
			preds = append(preds, pred)
		default:
			// {tag: v} matches iff the tag set contains v (spec §4.5); key
			// is just the query-document field name, the value is the tag.
			tagVal, ok := val.(string)
			if !ok {
				return nil, mcperr.New(mcperr.KindInvalidFilter, "tag query value for %q must be a string", key)
			}
			v := tagVal
			preds = append(preds, PredicateFunc(func(ts TagSet) bool { return ts.has(v) }))
		}
	}
	return andAll(preds), nil
}

func parseQueryList(val any, op string) ([]Predicate, error) {
	list, ok := val.([]any)
	if !ok {
		return nil, mcperr.New(mcperr.KindInvalidFilter, "%s value must be a list", op)
	}
	preds := make([]Predicate, 0, len(list))
	for _, item := range list {
		sub, ok := item.(map[string]any)
		if !ok {
			return nil, mcperr.New(mcperr.KindInvalidFilter, "%s list entries must be query documents, got %v", op, fmt.Sprintf("%T", item))
		}
		pred, err := ParseQuery(sub)
		if err != nil {
			return nil, err
		}
		preds = append(preds, pred)
	}
	return preds, nil
}

func andAll(preds []Predicate) Predicate {
	if len(preds) == 0 {
		return MatchAll
	}
	return PredicateFunc(func(ts TagSet) bool {
		for _, p := range preds {
			if !p.Match(ts) {
				return false
			}
		}
		return true
	})
}

func orAll(preds []Predicate) Predicate {
	if len(preds) == 0 {
		return MatchAll
	}
	return PredicateFunc(func(ts TagSet) bool {
		for _, p := range preds {
			if p.Match(ts) {
				return true
			}
		}
		return false
	})
}
