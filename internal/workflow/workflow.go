package workflow

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Node is one integration call declared by the model.
type Node struct {
	Name        string         `json:"name"`
	Integration string         `json:"integration"`
	Operation   string         `json:"operation"`
	Comment     string         `json:"comment,omitempty"`
	Params      map[string]any `json:"params,omitempty"`
}

// Workflow is the program under construction.
type Workflow struct {
	Nodes     []Node   `json:"nodes"`
	Main      string   `json:"main,omitempty"`
	Questions []string `json:"questions,omitempty"`
	Summary   string   `json:"summary,omitempty"`
	Submitted bool     `json:"submitted,omitempty"`
}

func (w *Workflow) node(name string) (*Node, bool) {
	for i := range w.Nodes {
		if w.Nodes[i].Name == name {
			return &w.Nodes[i], true
		}
	}
	return nil, false
}

// Render returns the workflow as Python-like source, indenting blocks by
// indent spaces.
func (w *Workflow) Render(indent int) string {
	if indent <= 0 {
		indent = 4
	}
	pad := strings.Repeat(" ", indent)

	var b strings.Builder
	if len(w.Nodes) == 0 && w.Main == "" {
		b.WriteString("# empty workflow\n")
	}

	for _, n := range w.Nodes {
		fmt.Fprintf(&b, "def %s():\n", n.Name)
		fmt.Fprintf(&b, "%s\"\"\"%s.%s", pad, n.Integration, n.Operation)
		if n.Comment != "" {
			fmt.Fprintf(&b, ": %s", n.Comment)
		}
		b.WriteString("\"\"\"\n")
		fmt.Fprintf(&b, "%sparams = %s\n", pad, pyLiteral(n.Params, pad, 1))
		fmt.Fprintf(&b, "%sreturn call(%q, %q, params)\n\n", pad, n.Integration, n.Operation)
	}

	b.WriteString("def main():\n")
	if strings.TrimSpace(w.Main) == "" {
		fmt.Fprintf(&b, "%spass\n", pad)
	} else {
		for _, line := range strings.Split(strings.TrimRight(w.Main, "\n"), "\n") {
			if strings.TrimSpace(line) == "" {
				b.WriteString("\n")
				continue
			}
			b.WriteString(pad + line + "\n")
		}
	}
	return strings.TrimRight(b.String(), "\n")
}

// pyLiteral renders decoded JSON as a Python literal.
func pyLiteral(v any, pad string, depth int) string {
	switch t := v.(type) {
	case nil:
		return "None"
	case bool:
		if t {
			return "True"
		}
		return "False"
	case string:
		return strconv.Quote(t)
	case json.Number:
		return t.String()
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case int:
		return strconv.Itoa(t)
	case []any:
		if len(t) == 0 {
			return "[]"
		}
		parts := make([]string, len(t))
		for i, item := range t {
			parts[i] = pyLiteral(item, pad, depth+1)
		}
		return "[" + strings.Join(parts, ", ") + "]"
	case map[string]any:
		if len(t) == 0 {
			return "{}"
		}
		keys := make([]string, 0, len(t))
		for k := range t {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		inner := strings.Repeat(pad, depth+1)
		var b strings.Builder
		b.WriteString("{\n")
		for _, k := range keys {
			fmt.Fprintf(&b, "%s%s: %s,\n", inner, strconv.Quote(k), pyLiteral(t[k], pad, depth+1))
		}
		b.WriteString(strings.Repeat(pad, depth) + "}")
		return b.String()
	default:
		return fmt.Sprintf("%v", t)
	}
}
