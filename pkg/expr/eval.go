package expr

import (
	"fmt"
	"math"
)

// Eval reduces expr against env, resolving every Variable and dispatching
// every List call form. Evaluation is pure: given the same (expr, env) it
// always produces the same Value or the same EvalError.Kind.
func Eval(v Value, env *Environment) (Value, error) {
	switch v.Kind() {
	case KindVariable:
		name, _ := v.AsVariable()
		return env.Get(name)
	case KindList:
		items, _ := v.Items()
		if len(items) == 0 {
			return v, nil
		}
		head := items[0]
		op, isVar := head.AsVariable()
		if !isVar {
			// A list whose head is not an operator name is data, not a call.
			return v, nil
		}
		return evalCall(op, items[1:], env)
	default:
		// Scalars, Vec, and Unit evaluate to themselves.
		return v, nil
	}
}

func evalCall(op string, args []Value, env *Environment) (Value, error) {
	switch op {
	case "and":
		return evalAnd(args, env)
	case "or":
		return evalOr(args, env)
	case "not":
		return evalNot(args, env)
	case "if":
		return evalIf(args, env)
	case "+":
		return evalArithFold(args, env, 0, func(acc, x int64) (int64, error) { return checkedAdd(acc, x) })
	case "*":
		return evalArithFold(args, env, 1, func(acc, x int64) (int64, error) { return checkedMul(acc, x) })
	case "-":
		return evalArithReduce(args, env, func(acc, x int64) (int64, error) { return checkedSub(acc, x) })
	case "/":
		return evalArithReduce(args, env, func(acc, x int64) (int64, error) {
			if x == 0 {
				return 0, typeErr("division by zero")
			}
			if acc == math.MinInt64 && x == -1 {
				return 0, &EvalError{Kind: Overflow, Detail: fmt.Sprintf("%d / %d", acc, x)}
			}
			return acc / x, nil
		})
	case "=", "eq?":
		return evalEquality(args, env, true)
	case "!=", "ne?":
		return evalEquality(args, env, false)
	case "in", "member":
		return evalMember(args, env)
	default:
		return Value{}, &EvalError{Kind: UnknownFn, Detail: op}
	}
}

func evalAnd(args []Value, env *Environment) (Value, error) {
	for _, a := range args {
		v, err := Eval(a, env)
		if err != nil {
			return Value{}, err
		}
		b, ok := v.AsBool()
		if !ok {
			return Value{}, typeErr("and: operand is not bool")
		}
		if !b {
			return Bool(false), nil
		}
	}
	return Bool(true), nil
}

func evalOr(args []Value, env *Environment) (Value, error) {
	for _, a := range args {
		v, err := Eval(a, env)
		if err != nil {
			return Value{}, err
		}
		b, ok := v.AsBool()
		if !ok {
			return Value{}, typeErr("or: operand is not bool")
		}
		if b {
			return Bool(true), nil
		}
	}
	return Bool(false), nil
}

func evalNot(args []Value, env *Environment) (Value, error) {
	if len(args) != 1 {
		return Value{}, typeErr("not: requires exactly one operand")
	}
	v, err := Eval(args[0], env)
	if err != nil {
		return Value{}, err
	}
	b, ok := v.AsBool()
	if !ok {
		return Value{}, typeErr("not: operand is not bool")
	}
	return Bool(!b), nil
}

func evalIf(args []Value, env *Environment) (Value, error) {
	if len(args) != 3 {
		return Value{}, typeErr("if: requires (test, then, else)")
	}
	t, err := Eval(args[0], env)
	if err != nil {
		return Value{}, err
	}
	b, ok := t.AsBool()
	if !ok {
		return Value{}, typeErr("if: test is not bool")
	}
	if b {
		return Eval(args[1], env)
	}
	return Eval(args[2], env)
}

func evalArithFold(args []Value, env *Environment, identity int64, step func(acc, x int64) (int64, error)) (Value, error) {
	acc := identity
	for _, a := range args {
		v, err := Eval(a, env)
		if err != nil {
			return Value{}, err
		}
		n, ok := v.AsInt()
		if !ok {
			return Value{}, typeErr("arithmetic operand is not int")
		}
		acc, err = step(acc, n)
		if err != nil {
			return Value{}, err
		}
	}
	return Int(acc), nil
}

func evalArithReduce(args []Value, env *Environment, step func(acc, x int64) (int64, error)) (Value, error) {
	if len(args) == 0 {
		return Value{}, typeErr("arithmetic operator requires at least one operand")
	}
	first, err := Eval(args[0], env)
	if err != nil {
		return Value{}, err
	}
	acc, ok := first.AsInt()
	if !ok {
		return Value{}, typeErr("arithmetic operand is not int")
	}
	for _, a := range args[1:] {
		v, err := Eval(a, env)
		if err != nil {
			return Value{}, err
		}
		n, ok := v.AsInt()
		if !ok {
			return Value{}, typeErr("arithmetic operand is not int")
		}
		acc, err = step(acc, n)
		if err != nil {
			return Value{}, err
		}
	}
	return Int(acc), nil
}

func evalEquality(args []Value, env *Environment, wantEqual bool) (Value, error) {
	evaluated := make([]Value, len(args))
	for i, a := range args {
		v, err := Eval(a, env)
		if err != nil {
			return Value{}, err
		}
		evaluated[i] = v
	}
	if len(evaluated) <= 1 {
		return Bool(true), nil
	}
	allEqual := true
	for i := 1; i < len(evaluated); i++ {
		if !evaluated[0].Equal(evaluated[i]) {
			allEqual = false
			break
		}
	}
	if !wantEqual {
		allEqual = !allEqual
	}
	return Bool(allEqual), nil
}

func evalMember(args []Value, env *Environment) (Value, error) {
	if len(args) != 2 {
		return Value{}, typeErr("in/member: requires (x, xs)")
	}
	x, err := Eval(args[0], env)
	if err != nil {
		return Value{}, err
	}
	xsVal, err := Eval(args[1], env)
	if err != nil {
		return Value{}, err
	}
	if xsVal.Kind() != KindVec {
		return Value{}, typeErr("in/member: second operand is not a vec")
	}
	items, _ := xsVal.Items()
	for _, it := range items {
		if x.Equal(it) {
			return Bool(true), nil
		}
	}
	return Bool(false), nil
}

func checkedAdd(a, b int64) (int64, error) {
	sum := a + b
	if (b > 0 && sum < a) || (b < 0 && sum > a) {
		return 0, &EvalError{Kind: Overflow, Detail: fmt.Sprintf("%d + %d", a, b)}
	}
	return sum, nil
}

func checkedSub(a, b int64) (int64, error) {
	diff := a - b
	if (b < 0 && diff < a) || (b > 0 && diff > a) {
		return 0, &EvalError{Kind: Overflow, Detail: fmt.Sprintf("%d - %d", a, b)}
	}
	return diff, nil
}

func checkedMul(a, b int64) (int64, error) {
	if a == 0 || b == 0 {
		return 0, nil
	}
	product := a * b
	if product/b != a || (a == math.MinInt64 && b == -1) || (b == math.MinInt64 && a == -1) {
		return 0, &EvalError{Kind: Overflow, Detail: fmt.Sprintf("%d * %d", a, b)}
	}
	return product, nil
}
