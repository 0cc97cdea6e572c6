// Package alerts evaluates CEL rules against every saved snapshot and
// notifies webhooks when a rule fires or resolves.
package alerts

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/cel-go/cel"

	"github.com/okian/soe/internal/domain/model"
)

// ErrInvalidRule reports a rule that does not compile to a boolean expression.
var ErrInvalidRule = errors.New("invalid alert rule")

// Rule is a named boolean CEL expression over a snapshot. Expressions see
// three variables:
//
//	score   map: overall, availability, reliability, efficiency, performance
//	metrics map: uptime, errorRate, cpuUtilization, memoryUtilization, throughput, responseTime
//	name    string: the snapshot's system name
type Rule struct {
	Name     string
	Expr     string
	Severity string
	Cooldown time.Duration
}

// Webhook is a notification target. Type is "http" (raw alert JSON) or
// "slack" (incoming-webhook text payload).
type Webhook struct {
	URL  string
	Type string
}

type compiledRule struct {
	Rule
	prg cel.Program
}

func newEnv() (*cel.Env, error) {
	env, err := cel.NewEnv(
		cel.Variable("score", cel.MapType(cel.StringType, cel.DoubleType)),
		cel.Variable("metrics", cel.MapType(cel.StringType, cel.DoubleType)),
		cel.Variable("name", cel.StringType),
		cel.CrossTypeNumericComparisons(true),
	)
	if err != nil {
		return nil, fmt.Errorf("create CEL env: %w", err)
	}
	return env, nil
}

func compile(env *cel.Env, r Rule) (compiledRule, error) {
	if r.Name == "" {
		return compiledRule{}, fmt.Errorf("%w: missing name", ErrInvalidRule)
	}
	ast, issues := env.Compile(r.Expr)
	if issues != nil && issues.Err() != nil {
		return compiledRule{}, fmt.Errorf("%w: %s: %v", ErrInvalidRule, r.Name, issues.Err())
	}
	if !ast.OutputType().IsExactType(cel.BoolType) {
		return compiledRule{}, fmt.Errorf("%w: %s: expression is %v, want bool", ErrInvalidRule, r.Name, ast.OutputType())
	}
	prg, err := env.Program(ast)
	if err != nil {
		return compiledRule{}, fmt.Errorf("%w: %s: %v", ErrInvalidRule, r.Name, err)
	}
	return compiledRule{Rule: r, prg: prg}, nil
}

func activation(s model.Snapshot) map[string]any {
	c, m := s.Score.Categories, s.Metrics
	return map[string]any{
		"score": map[string]float64{
			"overall":      s.Score.Overall,
			"availability": c.Availability,
			"reliability":  c.Reliability,
			"efficiency":   c.Efficiency,
			"performance":  c.Performance,
		},
		"metrics": map[string]float64{
			"uptime":            m.Uptime,
			"errorRate":         m.ErrorRate,
			"cpuUtilization":    m.CPUUtilization,
			"memoryUtilization": m.MemoryUtilization,
			"throughput":        m.Throughput,
			"responseTime":      m.ResponseTime,
		},
		"name": s.Name,
	}
}

func (r compiledRule) eval(s model.Snapshot) (bool, error) {
	out, _, err := r.prg.Eval(activation(s))
	if err != nil {
		return false, fmt.Errorf("CEL eval error: %w", err)
	}
	fires, ok := out.Value().(bool)
	if !ok {
		return false, fmt.Errorf("result not boolean")
	}
	return fires, nil
}
