// Package changes decides whether book conversion may be skipped because
// nothing it depends on has changed since the previous successful run.
package changes

import (
	"encoding/json"
	"fmt"
	"reflect"
	"strings"

	"pkbuild/appdef"
)

// Fields lists collection properties book conversion depends on.
var Fields = map[string]struct{}{
	"id":           {},
	"books":        {},
	"languageCode": {},
}

// Tree converts value to generic form: []any, map[string]any, string,
// float64, bool or nil.
func Tree(v any) (any, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("unable to convert to tree: %w", err)
	}
	var res any
	if err := json.Unmarshal(data, &res); err != nil {
		return nil, fmt.Errorf("unable to convert to tree: %w", err)
	}
	return res, nil
}

// Equal compares two generic trees. Arrays are compared element by element
// using the same include set. For objects only keys from include are
// compared, nil include means all keys and key sets must match. Values of
// included keys are always compared in full.
func Equal(a, b any, include map[string]struct{}) bool {
	if reflect.TypeOf(a) != reflect.TypeOf(b) {
		return false
	}
	switch av := a.(type) {
	case []any:
		bv := b.([]any)
		if len(av) != len(bv) {
			return false
		}
		for i := range av {
			if !Equal(av[i], bv[i], include) {
				return false
			}
		}
		return true
	case map[string]any:
		bv := b.(map[string]any)
		if include == nil {
			if len(av) != len(bv) {
				return false
			}
			for k, x := range av {
				y, ok := bv[k]
				if !ok || !Equal(x, y, nil) {
					return false
				}
			}
			return true
		}
		for k := range include {
			x, xok := av[k]
			y, yok := bv[k]
			if xok != yok {
				return false
			}
			if xok && !Equal(x, y, nil) {
				return false
			}
		}
		return true
	case nil:
		return true
	}
	return a == b
}

// ShouldSkip reports whether conversion of current collections may be
// skipped. Nil last means there was no previous run. Any modified path
// under prefix invalidates previous results.
func ShouldSkip(last, current []appdef.Collection, modified []string, prefix string) (bool, error) {
	if last == nil {
		return false, nil
	}
	for _, p := range modified {
		if strings.HasPrefix(p, prefix) {
			return false, nil
		}
	}
	a, err := Tree(last)
	if err != nil {
		return false, err
	}
	b, err := Tree(current)
	if err != nil {
		return false, err
	}
	return Equal(a, b, Fields), nil
}
