// Pagelist - Page List Journal and Ordered List Materialization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/pagelist

package script

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/casbin/govaluate"
)

// DefaultDateLayout sorts lexically in time order.
const DefaultDateLayout = "2006-01-02T15:04:05Z"

var functions = map[string]govaluate.ExpressionFunction{
	"has_prefix": func(args ...interface{}) (interface{}, error) {
		s, p, err := twoStrings("has_prefix", args)
		if err != nil {
			return nil, err
		}
		return strings.HasPrefix(s, p), nil
	},
	"has_suffix": func(args ...interface{}) (interface{}, error) {
		s, p, err := twoStrings("has_suffix", args)
		if err != nil {
			return nil, err
		}
		return strings.HasSuffix(s, p), nil
	},
	"lower": func(args ...interface{}) (interface{}, error) {
		if len(args) != 1 {
			return nil, arity("lower", 1, len(args))
		}
		return strings.ToLower(toString(args[0])), nil
	},
	"upper": func(args ...interface{}) (interface{}, error) {
		if len(args) != 1 {
			return nil, arity("upper", 1, len(args))
		}
		return strings.ToUpper(toString(args[0])), nil
	},
	"segment": func(args ...interface{}) (interface{}, error) {
		if len(args) != 2 {
			return nil, arity("segment", 2, len(args))
		}
		n, ok := args[1].(float64)
		if !ok {
			return nil, fmt.Errorf("segment: index must be a number")
		}
		parts := segments(toString(args[0]))
		i := int(n)
		if i < 0 {
			i += len(parts)
		}
		if i < 0 || i >= len(parts) {
			return "", nil
		}
		return parts[i], nil
	},
	"depth": func(args ...interface{}) (interface{}, error) {
		if len(args) != 1 {
			return nil, arity("depth", 1, len(args))
		}
		return float64(len(segments(toString(args[0])))), nil
	},
	"parent": func(args ...interface{}) (interface{}, error) {
		if len(args) != 1 {
			return nil, arity("parent", 1, len(args))
		}
		parts := segments(toString(args[0]))
		if len(parts) <= 1 {
			return "", nil
		}
		return strings.Join(parts[:len(parts)-1], "/"), nil
	},
	"pad": func(args ...interface{}) (interface{}, error) {
		if len(args) != 2 {
			return nil, arity("pad", 2, len(args))
		}
		width, ok := args[1].(float64)
		if !ok {
			return nil, fmt.Errorf("pad: width must be a number")
		}
		s := toString(args[0])
		if n := int(width) - len(s); n > 0 {
			s = strings.Repeat("0", n) + s
		}
		return s, nil
	},
	"date": func(args ...interface{}) (interface{}, error) {
		if len(args) < 1 || len(args) > 2 {
			return nil, arity("date", 1, len(args))
		}
		us, ok := args[0].(float64)
		if !ok {
			return nil, fmt.Errorf("date: timestamp must be a number")
		}
		layout := DefaultDateLayout
		if len(args) == 2 {
			layout = toString(args[1])
		}
		return time.UnixMicro(int64(us)).UTC().Format(layout), nil
	},
}

func twoStrings(name string, args []interface{}) (string, string, error) {
	if len(args) != 2 {
		return "", "", arity(name, 2, len(args))
	}
	return toString(args[0]), toString(args[1]), nil
}

func arity(name string, want, got int) error {
	return fmt.Errorf("%s: expected %d arguments, got %d", name, want, got)
}

func segments(path string) []string {
	return strings.FieldsFunc(path, func(r rune) bool { return r == '/' })
}

// toString renders a govaluate value as text. Integral numbers print
// without a fractional part.
func toString(v interface{}) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case bool:
		return strconv.FormatBool(x)
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	default:
		return fmt.Sprint(x)
	}
}
