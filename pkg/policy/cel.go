package policy

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/cel-go/cel"
)

// CELPDP is an optional, never-default alternate PolicyDecisionPoint for
// deployments that already author policy in CEL rather than the native
// expression language. It is never consulted unless a caller explicitly
// constructs one; the native backend remains the only one every node must
// carry.
type CELPDP struct {
	store *Store

	mu       sync.RWMutex
	programs map[string]cel.Program
	env      *cel.Env
}

// NewCELPDP builds a CEL evaluation environment exposing "subject" and
// "resource" as dynamic maps, matching the attribute naming convention
// ("subject.name", "resource.version") the native language uses.
func NewCELPDP(store *Store) (*CELPDP, error) {
	env, err := cel.NewEnv(
		cel.Variable("subject", cel.DynType),
		cel.Variable("resource", cel.DynType),
	)
	if err != nil {
		return nil, fmt.Errorf("policy: cel environment: %w", err)
	}
	return &CELPDP{
		store:    store,
		programs: make(map[string]cel.Program),
		env:      env,
	}, nil
}

func (p *CELPDP) Backend() Backend { return BackendCEL }

func (p *CELPDP) Evaluate(_ context.Context, req DecisionRequest) (DecisionResponse, error) {
	source, ok := p.store.Get(req.Resource, req.Action)
	if !ok {
		return DecisionResponse{Allow: false, Reason: "no policy entry"}, nil
	}

	prg, err := p.compile(source)
	if err != nil {
		return DecisionResponse{Allow: false, Reason: "compile error"}, fmt.Errorf("policy: cel compile %s/%s: %w", req.Resource, req.Action, err)
	}

	subject := map[string]any{}
	resource := map[string]any{}
	for name, v := range req.Attributes {
		splitAttr(name, subject, resource, v)
	}

	out, _, err := prg.Eval(map[string]any{"subject": subject, "resource": resource})
	if err != nil {
		return DecisionResponse{Allow: false, Reason: "eval error"}, fmt.Errorf("policy: cel eval %s/%s: %w", req.Resource, req.Action, err)
	}

	allow, ok := out.Value().(bool)
	if !ok {
		return DecisionResponse{Allow: false, Reason: "expression did not evaluate to bool"},
			fmt.Errorf("policy: cel %s/%s evaluated to non-bool result", req.Resource, req.Action)
	}

	return DecisionResponse{Allow: allow}, nil
}

func (p *CELPDP) compile(source string) (cel.Program, error) {
	p.mu.RLock()
	prg, ok := p.programs[source]
	p.mu.RUnlock()
	if ok {
		return prg, nil
	}

	ast, issues := p.env.Compile(source)
	if issues != nil && issues.Err() != nil {
		return nil, issues.Err()
	}
	prg, err := p.env.Program(ast)
	if err != nil {
		return nil, err
	}

	p.mu.Lock()
	p.programs[source] = prg
	p.mu.Unlock()
	return prg, nil
}

// splitAttr files an attribute bound under a dotted "subject.x" or
// "resource.x" name into the matching CEL input map, stripping the
// prefix so CEL expressions read "subject.x" naturally.
func splitAttr(name string, subject, resource map[string]any, v interface {
	AsString() (string, bool)
	AsInt() (int64, bool)
	AsBool() (bool, bool)
}) {
	const subjPrefix = "subject."
	const resPrefix = "resource."

	var target map[string]any
	var key string
	switch {
	case len(name) > len(subjPrefix) && name[:len(subjPrefix)] == subjPrefix:
		target, key = subject, name[len(subjPrefix):]
	case len(name) > len(resPrefix) && name[:len(resPrefix)] == resPrefix:
		target, key = resource, name[len(resPrefix):]
	default:
		return
	}

	if s, ok := v.AsString(); ok {
		target[key] = s
		return
	}
	if n, ok := v.AsInt(); ok {
		target[key] = n
		return
	}
	if b, ok := v.AsBool(); ok {
		target[key] = b
		return
	}
}
