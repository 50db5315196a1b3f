package override

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/cel-go/cel"
	"gopkg.in/yaml.v3"

	"github.com/stelliberty/stelliberty/internal/canonconf"
)

// scriptCostLimit, scriptEvalTimeout and scriptMaxExpressionLength mirror
// the teacher's policy evaluator's hardening limits (cost-exhaustion and
// runaway-evaluation guards), applied here to a config-transform rather
// than a boolean policy decision.
const (
	scriptCostLimit           = 100_000
	scriptEvalTimeout         = 5 * time.Second
	scriptMaxExpressionLength = 16 * 1024
)

// scriptEnv builds the CEL environment a Script override rule runs in: a
// single `config` variable of dynamic type holding the working document
// decoded to its JSON-equivalent shape, and nothing else — no network,
// filesystem, or host variables are exposed, matching the sandboxing the
// original's embedded JS engine provided via js_executor.rs's restricted
// `main(config)` contract.
func scriptEnv() (*cel.Env, error) {
	return cel.NewEnv(
		cel.Variable("config", cel.DynType),
	)
}

// EvaluateScript runs a Script override rule's CEL expression against
// doc, replacing its contents with the expression's result.
//
// The document round-trips YAML -> JSON-shaped dynamic value -> CEL
// evaluation -> JSON-shaped result -> YAML, the same round trip
// js_executor.rs performed through its `main(config)` JS entry point;
// CEL substitutes for the JS sandbox per the spec's note that no
// general-purpose scripting runtime is required, only a deterministic,
// bounded config transform.
func EvaluateScript(doc *canonconf.Document, source string) error {
	if len(source) > scriptMaxExpressionLength {
		return fmt.Errorf("script override too long: %d bytes (max %d)", len(source), scriptMaxExpressionLength)
	}

	env, err := scriptEnv()
	if err != nil {
		return fmt.Errorf("build script environment: %w", err)
	}

	ast, issues := env.Compile(source)
	if issues != nil && issues.Err() != nil {
		return fmt.Errorf("compile script: %w", issues.Err())
	}
	prg, err := env.Program(ast, cel.EvalOptions(cel.OptOptimize), cel.CostLimit(scriptCostLimit))
	if err != nil {
		return fmt.Errorf("build script program: %w", err)
	}

	input, err := documentToDynamicValue(doc)
	if err != nil {
		return fmt.Errorf("encode config for script: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), scriptEvalTimeout)
	defer cancel()
	out, _, err := prg.ContextEval(ctx, map[string]any{"config": input})
	if err != nil {
		return fmt.Errorf("evaluate script: %w", err)
	}

	return applyDynamicValue(doc, out.Value())
}

// documentToDynamicValue serialises doc to YAML then decodes it as JSON-
// shaped data (map[string]interface{}/[]interface{}/scalars) for CEL.
func documentToDynamicValue(doc *canonconf.Document) (any, error) {
	raw, err := doc.Bytes()
	if err != nil {
		return nil, err
	}
	var generic any
	if err := yaml.Unmarshal(raw, &generic); err != nil {
		return nil, err
	}
	return normalizeYAMLValue(generic), nil
}

// normalizeYAMLValue converts yaml.v3's map[string]interface{} decode
// shape (it already uses string keys for mapping-node scalars) into a
// form safe for JSON round-tripping and CEL's dynamic typing.
func normalizeYAMLValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, val := range t {
			out[k] = normalizeYAMLValue(val)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, val := range t {
			out[i] = normalizeYAMLValue(val)
		}
		return out
	default:
		return v
	}
}

// applyDynamicValue re-encodes a CEL-produced value back into doc's
// underlying yaml.Node tree via a JSON round trip.
func applyDynamicValue(doc *canonconf.Document, value any) error {
	jsonBytes, err := json.Marshal(value)
	if err != nil {
		return err
	}
	var node yaml.Node
	if err := yaml.Unmarshal(jsonBytes, &node); err != nil {
		return err
	}
	doc.Root = &node
	return nil
}
