package workflow

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/ChamsBouzaiene/flowsmith/internal/engine"
)

// Intrinsic function names.
const (
	FnDefine        = "function_define"
	FnRewriteParams = "function_rewrite_params"
	FnImplement     = "workflow_implement"
	FnAskUser       = "ask_user_help"
	FnSubmit        = "task_submit"
)

func (b *Builder) intrinsics() engine.FunctionRegistry {
	reg := make(engine.FunctionRegistry)
	reg.Register(engine.Function{
		Name:        FnDefine,
		Description: "Declare a workflow node that calls one integration operation from the catalog.",
		SchemaJSON: `{
			"type": "object",
			"properties": {
				"name": {"type": "string", "pattern": "^[A-Za-z_][A-Za-z0-9_]*$", "description": "Identifier of the node"},
				"integration": {"type": "string", "description": "Integration name from the catalog"},
				"operation": {"type": "string", "description": "Operation of that integration"},
				"comment": {"type": "string", "description": "What the node is for"}
			},
			"required": ["name", "integration", "operation"]
		}`,
		Fn:          b.define,
	})
	reg.Register(engine.Function{
		Name:        FnRewriteParams,
		Description: "Replace the parameters of a declared node.",
		SchemaJSON: `{
			"type": "object",
			"properties": {
				"name": {"type": "string", "description": "Node to update"},
				"params": {"type": "object", "description": "Full parameter object for the node"}
			},
			"required": ["name", "params"]
		}`,
		Fn:          b.rewriteParams,
	})
	reg.Register(engine.Function{
		Name:        FnImplement,
		Description: "Write the body of main(), which wires the declared nodes together.",
		SchemaJSON: `{
			"type": "object",
			"properties": {
				"code": {"type": "string", "description": "Body of main() without the def line"}
			},
			"required": ["code"]
		}`,
		Fn:          b.implement,
	})
	reg.Register(engine.Function{
		Name:        FnAskUser,
		Description: "Ask the user for information the goal does not provide.",
		SchemaJSON: `{
			"type": "object",
			"properties": {
				"question": {"type": "string", "minLength": 1}
			},
			"required": ["question"]
		}`,
		Fn:          b.askUser,
	})
	reg.Register(engine.Function{
		Name:        FnSubmit,
		Description: "Submit the finished workflow. Call this only when the workflow fully implements the goal.",
		SchemaJSON: `{
			"type": "object",
			"properties": {
				"summary": {"type": "string", "description": "One paragraph describing the workflow"}
			},
			"required": ["summary"]
		}`,
		Fn:          b.submit,
	})
	return reg
}

func (b *Builder) define(ctx context.Context, content string, args map[string]any) (engine.Action, error) {
	name, _ := args["name"].(string)
	integration, _ := args["integration"].(string)
	operation, _ := args["operation"].(string)
	comment, _ := args["comment"].(string)

	op, ok := b.catalog.Lookup(integration, operation)
	if !ok {
		return engine.Action{}, fmt.Errorf("%s.%s is not in the integration catalog", integration, operation)
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if name == "main" {
		return engine.Action{}, fmt.Errorf("node name %q is reserved", name)
	}
	if _, exists := b.wf.node(name); exists {
		return engine.Action{}, fmt.Errorf("node %q already exists; use %s to change it", name, FnRewriteParams)
	}
	b.wf.Nodes = append(b.wf.Nodes, Node{
		Name:        name,
		Integration: integration,
		Operation:   operation,
		Comment:     comment,
	})

	out := fmt.Sprintf("Defined %s as %s.%s.", name, integration, operation)
	if req := requiredParams(op); len(req) > 0 {
		out += " Required params: " + strings.Join(req, ", ") + "."
	}
	return engine.Action{ToolOutput: out}, nil
}

func (b *Builder) rewriteParams(ctx context.Context, content string, args map[string]any) (engine.Action, error) {
	name, _ := args["name"].(string)
	params, _ := args["params"].(map[string]any)

	b.mu.Lock()
	defer b.mu.Unlock()
	n, ok := b.wf.node(name)
	if !ok {
		return engine.Action{}, fmt.Errorf("no node named %q; define it with %s first", name, FnDefine)
	}
	op, _ := b.catalog.Lookup(n.Integration, n.Operation)
	if len(op.Params) > 0 {
		known := make(map[string]bool, len(op.Params))
		for _, p := range op.Params {
			known[p.Name] = true
		}
		var unknown []string
		for k := range params {
			if !known[k] {
				unknown = append(unknown, k)
			}
		}
		if len(unknown) > 0 {
			sort.Strings(unknown)
			return engine.Action{}, fmt.Errorf("%s.%s has no params %s", n.Integration, n.Operation, strings.Join(unknown, ", "))
		}
	}
	n.Params = params

	out := fmt.Sprintf("Updated params of %s.", name)
	if missing := missingParams(op, params); len(missing) > 0 {
		out += " Still missing required params: " + strings.Join(missing, ", ") + "."
	}
	return engine.Action{ToolOutput: out}, nil
}

func (b *Builder) implement(ctx context.Context, content string, args map[string]any) (engine.Action, error) {
	code, _ := args["code"].(string)
	if strings.TrimSpace(code) == "" {
		return engine.Action{}, fmt.Errorf("code is empty")
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	b.wf.Main = code
	lines := strings.Count(strings.TrimRight(code, "\n"), "\n") + 1
	return engine.Action{ToolOutput: fmt.Sprintf("main() updated (%d lines).", lines)}, nil
}

func (b *Builder) askUser(ctx context.Context, content string, args map[string]any) (engine.Action, error) {
	question, _ := args["question"].(string)

	b.mu.Lock()
	defer b.mu.Unlock()
	b.wf.Questions = append(b.wf.Questions, question)
	return engine.Action{
		ToolOutput: "Question recorded for the user: " + question + "\nContinue with what you can do; answers arrive as additional requirements.",
	}, nil
}

func (b *Builder) submit(ctx context.Context, content string, args map[string]any) (engine.Action, error) {
	summary, _ := args["summary"].(string)

	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.wf.Nodes) == 0 {
		return engine.Action{}, fmt.Errorf("cannot submit: no nodes defined")
	}
	if strings.TrimSpace(b.wf.Main) == "" {
		return engine.Action{}, fmt.Errorf("cannot submit: main() is not implemented")
	}
	for _, n := range b.wf.Nodes {
		op, _ := b.catalog.Lookup(n.Integration, n.Operation)
		if missing := missingParams(op, n.Params); len(missing) > 0 {
			return engine.Action{}, fmt.Errorf("cannot submit: %s is missing required params %s", n.Name, strings.Join(missing, ", "))
		}
	}

	b.wf.Summary = summary
	b.wf.Submitted = true
	return engine.Action{
		ToolOutput: fmt.Sprintf("Workflow submitted with %d nodes.", len(b.wf.Nodes)),
		Done:       true,
	}, nil
}

func requiredParams(op Operation) []string {
	var req []string
	for _, p := range op.Params {
		if p.Required {
			req = append(req, p.Name)
		}
	}
	return req
}

func missingParams(op Operation, params map[string]any) []string {
	var missing []string
	for _, name := range requiredParams(op) {
		if _, ok := params[name]; !ok {
			missing = append(missing, name)
		}
	}
	return missing
}
