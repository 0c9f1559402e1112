// Package filter provides AIP-160 filter expressions as timeline visibility rules.
package filter

import (
	"fmt"
	"strings"

	"go.einride.tech/aip/filtering"
	expr "google.golang.org/genproto/googleapis/api/expr/v1alpha1"

	"github.com/louisbranch/campuswalk/internal/services/viewer/domain/timeline"
)

// Identifiers available to every expression.
const (
	IdentName        = "name"
	IdentYear        = "year"
	IdentHasGeometry = "has_geometry"
	// MetaPrefix prefixes identifiers bound to entity metadata values.
	MetaPrefix = "meta_"
)

// Declarations returns the identifier declarations for visibility filtering.
// Each metadata key is exposed as meta_<key> with string type.
func Declarations(metaKeys ...string) (*filtering.Declarations, error) {
	opts := []filtering.DeclarationOption{
		filtering.DeclareStandardFunctions(),
		filtering.DeclareIdent(IdentName, filtering.TypeString),
		filtering.DeclareIdent(IdentYear, filtering.TypeInt),
		filtering.DeclareIdent(IdentHasGeometry, filtering.TypeBool),
	}
	for _, key := range metaKeys {
		key = strings.TrimSpace(key)
		if key == "" {
			continue
		}
		opts = append(opts, filtering.DeclareIdent(MetaPrefix+key, filtering.TypeString))
	}
	return filtering.NewDeclarations(opts...)
}

// Rule evaluates a parsed expression for every key of a year domain.
type Rule struct {
	source   string
	domain   []int
	metaKeys []string
	root     *expr.Expr
}

// NewRule parses expression over domain. An empty expression shows every
// entity at every domain key.
func NewRule(expression string, domain []int, metaKeys ...string) (*Rule, error) {
	rule := &Rule{
		source:   strings.TrimSpace(expression),
		domain:   append([]int(nil), domain...),
		metaKeys: append([]string(nil), metaKeys...),
	}
	if rule.source == "" {
		return rule, nil
	}

	decls, err := Declarations(metaKeys...)
	if err != nil {
		return nil, fmt.Errorf("create declarations: %w", err)
	}
	parsed, err := filtering.ParseFilterString(rule.source, decls)
	if err != nil {
		return nil, fmt.Errorf("parse filter: %w", err)
	}
	if parsed.CheckedExpr != nil {
		rule.root = parsed.CheckedExpr.GetExpr()
	}
	return rule, nil
}

// String returns the source expression.
func (r *Rule) String() string {
	return r.source
}

// Domain returns the declared years.
func (r *Rule) Domain() []int {
	return append([]int(nil), r.domain...)
}

// Keys returns the domain years for which the expression holds. Evaluation
// errors count as not visible.
func (r *Rule) Keys(entity timeline.EntityInfo) []int {
	var keys []int
	for _, year := range r.domain {
		ok, err := r.Match(entity, year)
		if err != nil || !ok {
			continue
		}
		keys = append(keys, year)
	}
	return keys
}

// Match evaluates the expression for entity at year.
func (r *Rule) Match(entity timeline.EntityInfo, year int) (bool, error) {
	if r.root == nil {
		return true, nil
	}
	env := map[string]any{
		IdentName:        entity.Name,
		IdentYear:        int64(year),
		IdentHasGeometry: entity.HasGeometry,
	}
	for _, key := range r.metaKeys {
		env[MetaPrefix+key] = entity.Metadata[key]
	}
	value, err := evalExpr(r.root, env)
	if err != nil {
		return false, err
	}
	result, ok := value.(bool)
	if !ok {
		return false, fmt.Errorf("filter must evaluate to bool, got %T", value)
	}
	return result, nil
}

// evalExpr evaluates a checked CEL expression against env.
func evalExpr(e *expr.Expr, env map[string]any) (any, error) {
	if e == nil {
		return nil, fmt.Errorf("nil expression")
	}

	switch kind := e.ExprKind.(type) {
	case *expr.Expr_ConstExpr:
		return constValue(kind.ConstExpr)
	case *expr.Expr_IdentExpr:
		value, ok := env[kind.IdentExpr.Name]
		if !ok {
			return nil, fmt.Errorf("unknown field: %s", kind.IdentExpr.Name)
		}
		return value, nil
	case *expr.Expr_CallExpr:
		return evalCall(kind.CallExpr, env)
	default:
		return nil, fmt.Errorf("unsupported expression type: %T", kind)
	}
}

func evalCall(call *expr.Expr_Call, env map[string]any) (any, error) {
	switch call.Function {
	case "_&&_", "AND":
		return evalLogical(call.Args, env, true)
	case "_||_", "OR":
		return evalLogical(call.Args, env, false)
	case "_!_", "NOT":
		if len(call.Args) != 1 {
			return nil, fmt.Errorf("NOT requires 1 argument")
		}
		value, err := evalBool(call.Args[0], env)
		if err != nil {
			return nil, err
		}
		return !value, nil
	case ":":
		return evalHas(call.Args, env)
	case "_==_", "=", "_!=_", "!=", "_<_", "<", "_<=_", "<=", "_>_", ">", "_>=_", ">=":
		return evalComparison(call.Function, call.Args, env)
	default:
		return nil, fmt.Errorf("unsupported function: %s", call.Function)
	}
}

func evalLogical(args []*expr.Expr, env map[string]any, and bool) (any, error) {
	if len(args) < 2 {
		return nil, fmt.Errorf("logical operator requires 2 arguments")
	}
	for _, arg := range args {
		value, err := evalBool(arg, env)
		if err != nil {
			return nil, err
		}
		if and && !value {
			return false, nil
		}
		if !and && value {
			return true, nil
		}
	}
	return and, nil
}

func evalBool(e *expr.Expr, env map[string]any) (bool, error) {
	value, err := evalExpr(e, env)
	if err != nil {
		return false, err
	}
	result, ok := value.(bool)
	if !ok {
		return false, fmt.Errorf("expected bool, got %T", value)
	}
	return result, nil
}

// evalHas implements the ":" operator as substring containment.
func evalHas(args []*expr.Expr, env map[string]any) (any, error) {
	if len(args) != 2 {
		return nil, fmt.Errorf("has requires 2 arguments")
	}
	left, err := evalExpr(args[0], env)
	if err != nil {
		return nil, err
	}
	right, err := evalExpr(args[1], env)
	if err != nil {
		return nil, err
	}
	haystack, ok := left.(string)
	if !ok {
		return nil, fmt.Errorf("has requires string field, got %T", left)
	}
	needle, ok := right.(string)
	if !ok {
		return nil, fmt.Errorf("has requires string value, got %T", right)
	}
	return strings.Contains(haystack, needle), nil
}

func evalComparison(function string, args []*expr.Expr, env map[string]any) (any, error) {
	if len(args) != 2 {
		return nil, fmt.Errorf("comparison requires 2 arguments")
	}
	left, err := evalExpr(args[0], env)
	if err != nil {
		return nil, err
	}
	right, err := evalExpr(args[1], env)
	if err != nil {
		return nil, err
	}
	cmp, err := compare(left, right)
	if err != nil {
		return nil, err
	}

	switch function {
	case "_==_", "=":
		return cmp == 0, nil
	case "_!=_", "!=":
		return cmp != 0, nil
	case "_<_", "<":
		return cmp < 0, nil
	case "_<=_", "<=":
		return cmp <= 0, nil
	case "_>_", ">":
		return cmp > 0, nil
	default:
		return cmp >= 0, nil
	}
}

func compare(left, right any) (int, error) {
	switch l := left.(type) {
	case int64:
		switch r := right.(type) {
		case int64:
			return compareOrdered(l, r), nil
		case float64:
			return compareOrdered(float64(l), r), nil
		}
	case float64:
		switch r := right.(type) {
		case float64:
			return compareOrdered(l, r), nil
		case int64:
			return compareOrdered(l, float64(r)), nil
		}
	case string:
		if r, ok := right.(string); ok {
			return strings.Compare(l, r), nil
		}
	case bool:
		if r, ok := right.(bool); ok {
			if l == r {
				return 0, nil
			}
			if !l {
				return -1, nil
			}
			return 1, nil
		}
	}
	return 0, fmt.Errorf("cannot compare %T with %T", left, right)
}

func compareOrdered[T int64 | float64](l, r T) int {
	switch {
	case l < r:
		return -1
	case l > r:
		return 1
	default:
		return 0
	}
}

func constValue(c *expr.Constant) (any, error) {
	if c == nil {
		return nil, fmt.Errorf("nil constant")
	}

	switch kind := c.ConstantKind.(type) {
	case *expr.Constant_StringValue:
		return kind.StringValue, nil
	case *expr.Constant_Int64Value:
		return kind.Int64Value, nil
	case *expr.Constant_Uint64Value:
		return int64(kind.Uint64Value), nil
	case *expr.Constant_DoubleValue:
		return kind.DoubleValue, nil
	case *expr.Constant_BoolValue:
		return kind.BoolValue, nil
	default:
		return nil, fmt.Errorf("unsupported constant type: %T", kind)
	}
}

var (
	_ timeline.Rule[int]     = (*Rule)(nil)
	_ timeline.Domained[int] = (*Rule)(nil)
)
