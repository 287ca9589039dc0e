package storage

import (
	"strings"

	"github.com/lukeryannetnz/quartz-dynamo/errors"
)

// Eval evaluates a filter expression against a record. Drivers without a
// native expression engine (the in-memory driver) use this; the DynamoDB
// driver passes expressions through to the service.
//
// Supported grammar, AND-joined:
//
//	attr = :val
//	attr <> :val
//	attribute_exists(attr)
//	attribute_not_exists(attr)
//
// attr may be a #placeholder resolved through names. An empty expression
// matches everything.
func Eval(expression string, names map[string]string, values map[string]Value, rec Record) (bool, error) {
	expression = strings.TrimSpace(expression)
	if expression == "" {
		return true, nil
	}

	for _, clause := range strings.Split(expression, " AND ") {
		ok, err := evalClause(strings.TrimSpace(clause), names, values, rec)
		if err != nil {
			return false, err
		}
		if !ok {
			return false, nil
		}
	}
	return true, nil
}

func evalClause(clause string, names map[string]string, values map[string]Value, rec Record) (bool, error) {
	switch {
	case strings.HasPrefix(clause, "attribute_not_exists(") && strings.HasSuffix(clause, ")"):
		attr := resolveName(clause[len("attribute_not_exists("):len(clause)-1], names)
		return !rec.Has(attr), nil

	case strings.HasPrefix(clause, "attribute_exists(") && strings.HasSuffix(clause, ")"):
		attr := resolveName(clause[len("attribute_exists("):len(clause)-1], names)
		return rec.Has(attr), nil

	case strings.Contains(clause, "<>"):
		attr, val, err := operands(clause, "<>", names, values)
		if err != nil {
			return false, err
		}
		return !rec.Get(attr).Equal(val), nil

	case strings.Contains(clause, "="):
		attr, val, err := operands(clause, "=", names, values)
		if err != nil {
			return false, err
		}
		return rec.Get(attr).Equal(val), nil

	default:
		return false, errors.Newf("unsupported filter clause: %q", clause)
	}
}

func operands(clause, op string, names map[string]string, values map[string]Value) (string, Value, error) {
	parts := strings.SplitN(clause, op, 2)
	attr := resolveName(strings.TrimSpace(parts[0]), names)
	placeholder := strings.TrimSpace(parts[1])
	val, ok := values[placeholder]
	if !ok {
		return "", Value{}, errors.Newf("filter value %q not supplied", placeholder)
	}
	return attr, val, nil
}

func resolveName(attr string, names map[string]string) string {
	if strings.HasPrefix(attr, "#") {
		if resolved, ok := names[attr]; ok {
			return resolved
		}
	}
	return attr
}
