package client

import (
	"encoding/json"
	"fmt"
	"net/url"
	"slices"
	"strconv"
	"strings"

	"github.com/diwise/parse-adapter/pkg/parse/types"
	"github.com/diwise/parse-adapter/pkg/parse/types/pointers"
)

type RequestDecoratorFunc func(url.Values) url.Values

const (
	QueryWhere   string = "where"
	QueryOrder   string = "order"
	QueryLimit   string = "limit"
	QuerySkip    string = "skip"
	QueryKeys    string = "keys"
	QueryInclude string = "include"
	QueryCount   string = "count"
)

var queryKeys = []string{QueryWhere, QueryOrder, QueryLimit, QuerySkip, QueryKeys, QueryInclude, QueryCount}

// decoratorFailure carries an error out of a decorator. It never reaches the backend.
const decoratorFailure string = "\x00failure"

// Where adds a where clause. Strings are sent as they are; anything else is JSON encoded.
// A clause that can not be encoded fails the request instead of dropping the filter.
func Where(clause any) RequestDecoratorFunc {
	return func(params url.Values) url.Values {
		s, err := encodeWhere(clause)
		if err != nil {
			params.Add(decoratorFailure, err.Error())
			return params
		}
		params.Set(QueryWhere, s)
		return params
	}
}

// RelatedTo restricts a query to the members of the relation key on owner
func RelatedTo(owner types.Reference, key string) RequestDecoratorFunc {
	return Where(map[string]any{
		"$relatedTo": map[string]any{
			"object": pointers.Encode(owner),
			"key":    key,
		},
	})
}

func Order(fields ...string) RequestDecoratorFunc {
	return func(params url.Values) url.Values {
		params.Set(QueryOrder, strings.Join(fields, ","))
		return params
	}
}

func Limit(limit int) RequestDecoratorFunc {
	return func(params url.Values) url.Values {
		params.Set(QueryLimit, strconv.Itoa(limit))
		return params
	}
}

func Skip(skip int) RequestDecoratorFunc {
	return func(params url.Values) url.Values {
		params.Set(QuerySkip, strconv.Itoa(skip))
		return params
	}
}

func Keys(keys ...string) RequestDecoratorFunc {
	return func(params url.Values) url.Values {
		params.Set(QueryKeys, strings.Join(keys, ","))
		return params
	}
}

func Include(keys ...string) RequestDecoratorFunc {
	return func(params url.Values) url.Values {
		params.Set(QueryInclude, strings.Join(keys, ","))
		return params
	}
}

// Count asks the backend to report the total number of matches
func Count() RequestDecoratorFunc {
	return func(params url.Values) url.Values {
		params.Set(QueryCount, "1")
		return params
	}
}

// QueryFromMap converts a query object into request parameters. A map that holds
// none of the recognized query keys is treated as an implicit where clause.
func QueryFromMap(query map[string]any) (url.Values, error) {
	params := url.Values{}

	if len(query) == 0 {
		return params, nil
	}

	implicit := true
	for key := range query {
		if slices.Contains(queryKeys, key) {
			implicit = false
			break
		}
	}

	if implicit {
		where, err := encodeWhere(query)
		if err != nil {
			return nil, err
		}
		params.Set(QueryWhere, where)
		return params, nil
	}

	for key, value := range query {
		if !slices.Contains(queryKeys, key) {
			return nil, fmt.Errorf("unknown query key %q mixed with query keys", key)
		}

		if key == QueryWhere {
			where, err := encodeWhere(value)
			if err != nil {
				return nil, err
			}
			params.Set(QueryWhere, where)
			continue
		}

		if key == QueryCount {
			if countRequested(value) {
				params.Set(QueryCount, "1")
			}
			continue
		}

		s, err := paramValue(value)
		if err != nil {
			return nil, fmt.Errorf("bad value for query key %s: %w", key, err)
		}
		params.Set(key, s)
	}

	return params, nil
}

func encodeWhere(clause any) (string, error) {
	if s, ok := clause.(string); ok {
		return s, nil
	}

	b, err := json.Marshal(clause)
	if err != nil {
		return "", fmt.Errorf("failed to encode where clause: %w", err)
	}

	return string(b), nil
}

func paramValue(value any) (string, error) {
	switch v := value.(type) {
	case string:
		return v, nil
	case int:
		return strconv.Itoa(v), nil
	case int64:
		return strconv.FormatInt(v, 10), nil
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64), nil
	case []string:
		return strings.Join(v, ","), nil
	case []any:
		parts := make([]string, 0, len(v))
		for _, p := range v {
			s, err := paramValue(p)
			if err != nil {
				return "", err
			}
			parts = append(parts, s)
		}
		return strings.Join(parts, ","), nil
	default:
		return "", fmt.Errorf("unsupported type %T", value)
	}
}

func countRequested(value any) bool {
	switch v := value.(type) {
	case bool:
		return v
	case int:
		return v != 0
	case float64:
		return v != 0
	case string:
		return v == "1" || v == "true"
	default:
		return false
	}
}
