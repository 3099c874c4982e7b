//go:build property
// +build property

package expr_test

import (
	"testing"

	"github.com/trustmesh/node/pkg/expr"
	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

// TestEvalDeterminism verifies that evaluating the same (expr, env) pair
// twice always yields the same result or the same failure kind.
func TestEvalDeterminism(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	properties.Property("arithmetic expressions evaluate deterministically", prop.ForAll(
		func(nums []int64) bool {
			if len(nums) == 0 {
				return true
			}
			env := expr.NewEnvironment()
			args := make([]expr.Value, len(nums))
			for i, n := range nums {
				args[i] = expr.Int(n % 1000)
			}
			e := expr.List(append([]expr.Value{expr.Variable("+")}, args...)...)

			r1, err1 := expr.Eval(e, env)
			r2, err2 := expr.Eval(e, env)

			if (err1 == nil) != (err2 == nil) {
				return false
			}
			if err1 != nil {
				return err1.Error() == err2.Error()
			}
			return r1.Equal(r2)
		},
		gen.SliceOf(gen.Int64Range(-1000, 1000)),
	))

	properties.Property("evaluating the same parsed equality expression twice gives equal results", prop.ForAll(
		func(role string) bool {
			if role == "" {
				return true
			}
			env := expr.NewEnvironment()
			env.Set("subject.role", expr.String(role))

			e, err := expr.Parse(`(= subject.role "editor")`)
			if err != nil {
				return false
			}
			r1, err1 := expr.Eval(e, env)
			r2, err2 := expr.Eval(e, env)
			if err1 != nil || err2 != nil {
				return false
			}
			return r1.Equal(r2)
		},
		gen.AlphaString(),
	))

	properties.TestingRun(t)
}
