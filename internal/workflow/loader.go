package workflow

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/valgraph/valgraph/pkg/domain"
)

var varPattern = regexp.MustCompile(`\$\{([^}]+)\}`)

// Loader loads workflow definitions from YAML documents.
//
// Documents may declare a vars block; ${VAR} references in node configs
// resolve against that block first, then the process environment.
// Unresolvable references are left untouched.
type Loader struct {
	dir                 string
	defaultIterationCap int
	validator           *Validator
}

// NewLoader creates a workflow loader rooted at dir.
func NewLoader(dir string, defaultIterationCap int) *Loader {
	return &Loader{
		dir:                 dir,
		defaultIterationCap: defaultIterationCap,
		validator:           NewValidator(),
	}
}

type rawDocument struct {
	Vars  map[string]string `yaml:"vars"`
	Graph rawGraph          `yaml:"graph"`
}

type rawGraph struct {
	ID            string    `yaml:"id"`
	Description   string    `yaml:"description"`
	MaxIterations int       `yaml:"max_iterations"`
	Start         []string  `yaml:"start"`
	End           []string  `yaml:"end"`
	Nodes         []rawNode `yaml:"nodes"`
	Edges         []rawEdge `yaml:"edges"`
}

type rawNode struct {
	ID            string    `yaml:"id"`
	Kind          string    `yaml:"kind"`
	Description   string    `yaml:"description"`
	ContextWindow int       `yaml:"context_window"`
	Config        yaml.Node `yaml:"config"`
}

type rawEdge struct {
	From           string            `yaml:"from"`
	To             string            `yaml:"to"`
	CarriesContext bool              `yaml:"carries_context"`
	Condition      *domain.Condition `yaml:"condition"`
}

type rawComputationalConfig struct {
	Assumptions *domain.ValuationInputs `yaml:"assumptions"`
}

// Load loads and validates a workflow by name (without .yaml extension).
func (l *Loader) Load(name string) (*domain.Graph, error) {
	return l.LoadFile(filepath.Join(l.dir, name+".yaml"))
}

// LoadFile loads and validates a workflow from an explicit path.
func (l *Loader) LoadFile(path string) (*domain.Graph, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, domain.NewConfigurationError("workflow not found: %s", path)
	}
	g, err := l.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return g, nil
}

// Parse decodes, resolves variables in, and validates a workflow
// document.
func (l *Loader) Parse(data []byte) (*domain.Graph, error) {
	var raw rawDocument
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, domain.NewConfigurationError("invalid workflow document: %v", err)
	}

	vars := l.expandVars(raw.Vars)
	lookup := func(name string) (string, bool) {
		if v, ok := vars[name]; ok {
			return v, true
		}
		return os.LookupEnv(name)
	}

	nodes := make([]domain.NodeSpec, 0, len(raw.Graph.Nodes))
	for i := range raw.Graph.Nodes {
		rn := &raw.Graph.Nodes[i]
		substituteScalars(&rn.Config, lookup)

		node := domain.NodeSpec{
			ID:            rn.ID,
			Kind:          domain.NodeKind(rn.Kind),
			Description:   rn.Description,
			ContextWindow: rn.ContextWindow,
		}

		if err := decodeNodeConfig(rn, &node); err != nil {
			return nil, err
		}
		nodes = append(nodes, node)
	}

	edges := make([]domain.EdgeSpec, 0, len(raw.Graph.Edges))
	for _, re := range raw.Graph.Edges {
		edge := domain.EdgeSpec{
			From:           re.From,
			To:             re.To,
			CarriesContext: re.CarriesContext,
			Condition:      domain.Condition{Type: domain.ConditionAlways},
		}
		if re.Condition != nil {
			edge.Condition = *re.Condition
			if edge.Condition.Type == domain.ConditionKeyword && edge.Condition.Mode == "" {
				edge.Condition.Mode = domain.KeywordModeAny
			}
		}
		edges = append(edges, edge)
	}

	cap := raw.Graph.MaxIterations
	if cap == 0 {
		cap = l.defaultIterationCap
	}

	g := &domain.Graph{
		ID:            raw.Graph.ID,
		Description:   raw.Graph.Description,
		Nodes:         nodes,
		Edges:         edges,
		StartNodes:    raw.Graph.Start,
		TerminalNodes: raw.Graph.End,
		IterationCap:  cap,
	}

	if err := l.validator.Validate(g); err != nil {
		return nil, err
	}
	return g, nil
}

// List returns all workflow names under the loader's directory,
// skipping files whose name starts with an underscore.
func (l *Loader) List() []string {
	matches, err := filepath.Glob(filepath.Join(l.dir, "*.yaml"))
	if err != nil {
		return nil
	}

	var names []string
	for _, m := range matches {
		base := filepath.Base(m)
		if strings.HasPrefix(base, "_") {
			continue
		}
		names = append(names, strings.TrimSuffix(base, ".yaml"))
	}
	return names
}

// decodeNodeConfig maps the opaque config block to the node's typed
// per-kind configuration. Unknown kinds pass through here and are
// rejected by the validator.
func decodeNodeConfig(rn *rawNode, node *domain.NodeSpec) error {
	switch domain.NodeKind(rn.Kind) {
	case domain.NodeKindGenerative:
		if rn.Config.IsZero() {
			return domain.NewConfigurationError("node %s: generative node requires a config", rn.ID)
		}
		var gc domain.GenerativeConfig
		if err := rn.Config.Decode(&gc); err != nil {
			return domain.NewConfigurationError("node %s: invalid generative config: %v", rn.ID, err)
		}
		node.Generative = &gc

	case domain.NodeKindComputational:
		if rn.Config.IsZero() {
			return domain.NewConfigurationError("node %s: computational node requires an assumptions block", rn.ID)
		}
		var cc rawComputationalConfig
		if err := rn.Config.Decode(&cc); err != nil {
			return domain.NewConfigurationError("node %s: invalid valuation config: %v", rn.ID, err)
		}
		if cc.Assumptions == nil {
			return domain.NewConfigurationError("node %s: computational node requires an assumptions block", rn.ID)
		}
		node.Valuation = cc.Assumptions

	case domain.NodeKindPassthrough:
		if !rn.Config.IsZero() {
			return domain.NewConfigurationError("node %s: passthrough node takes no config", rn.ID)
		}
	}
	return nil
}

// expandVars resolves ${VAR} references inside the vars block against
// the process environment.
func (l *Loader) expandVars(vars map[string]string) map[string]string {
	out := make(map[string]string, len(vars))
	for k, v := range vars {
		out[k] = substitute(v, func(name string) (string, bool) {
			return os.LookupEnv(name)
		})
	}
	return out
}

// substituteScalars walks a YAML node tree replacing ${VAR} references
// in every string scalar.
func substituteScalars(n *yaml.Node, lookup func(string) (string, bool)) {
	if n == nil {
		return
	}
	if n.Kind == yaml.ScalarNode && n.Tag == "!!str" {
		n.Value = substitute(n.Value, lookup)
		return
	}
	for _, child := range n.Content {
		substituteScalars(child, lookup)
	}
}

func substitute(s string, lookup func(string) (string, bool)) string {
	return varPattern.ReplaceAllStringFunc(s, func(match string) string {
		name := match[2 : len(match)-1]
		if v, ok := lookup(name); ok {
			return v
		}
		return match
	})
}
