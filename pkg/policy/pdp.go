package policy

import (
	"context"
	"fmt"

	"github.com/trustmesh/node/pkg/expr"
)

// Backend identifies which evaluation engine a PolicyDecisionPoint uses.
// Native is the language specified in §4.1 of the trust fabric and is
// the only backend every node must carry; other backends are optional,
// pluggable alternates for deployments that already maintain policy in
// another language.
type Backend string

const (
	BackendNative Backend = "native"
	BackendCEL    Backend = "cel"
)

// DecisionRequest is the structured input to a policy evaluation: the
// resource/action pair to look up, plus the attribute bindings the
// expression may reference.
type DecisionRequest struct {
	Resource   Resource
	Action     Action
	Attributes map[string]expr.Value
}

// DecisionResponse is the outcome of a policy evaluation.
type DecisionResponse struct {
	Allow  bool
	Reason string
}

// PolicyDecisionPoint evaluates a DecisionRequest against the entry the
// Store holds for (resource, action). Every implementation MUST be
// fail-closed: any lookup miss or evaluation error yields Allow == false.
type PolicyDecisionPoint interface {
	Evaluate(ctx context.Context, req DecisionRequest) (DecisionResponse, error)
	Backend() Backend
}

// NativePDP is the required backend: it parses and evaluates expressions
// with pkg/expr exactly per §4.1's semantics.
type NativePDP struct {
	store *Store
}

// NewNativePDP wraps store with the native expression evaluator.
func NewNativePDP(store *Store) *NativePDP {
	return &NativePDP{store: store}
}

func (p *NativePDP) Backend() Backend { return BackendNative }

func (p *NativePDP) Evaluate(_ context.Context, req DecisionRequest) (DecisionResponse, error) {
	source, ok := p.store.Get(req.Resource, req.Action)
	if !ok {
		return DecisionResponse{Allow: false, Reason: "no policy entry"}, nil
	}

	ast, err := expr.Parse(source)
	if err != nil {
		return DecisionResponse{Allow: false, Reason: "parse error"}, fmt.Errorf("policy: parse %s/%s: %w", req.Resource, req.Action, err)
	}

	env := expr.NewEnvironment()
	for name, v := range req.Attributes {
		env.Set(name, v)
	}

	result, err := expr.Eval(ast, env)
	if err != nil {
		return DecisionResponse{Allow: false, Reason: "evaluation error"}, fmt.Errorf("policy: eval %s/%s: %w", req.Resource, req.Action, err)
	}

	allow, ok := result.AsBool()
	if !ok {
		return DecisionResponse{Allow: false, Reason: "expression did not evaluate to bool"},
			fmt.Errorf("policy: %s/%s evaluated to non-bool result", req.Resource, req.Action)
	}

	return DecisionResponse{Allow: allow}, nil
}
