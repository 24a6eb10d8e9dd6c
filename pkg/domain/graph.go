package domain

// NodeKind identifies the capability of a node.
type NodeKind string

const (
	NodeKindGenerative    NodeKind = "generative"
	NodeKindComputational NodeKind = "computational"
	NodeKindPassthrough   NodeKind = "passthrough"
)

// ConditionType identifies how an edge condition is evaluated.
type ConditionType string

const (
	ConditionAlways    ConditionType = "always"
	ConditionKeyword   ConditionType = "keyword"
	ConditionThreshold ConditionType = "threshold"
)

// KeywordMode selects between requiring all terms or any term.
type KeywordMode string

const (
	KeywordModeAny KeywordMode = "any"
	KeywordModeAll KeywordMode = "all"
)

// Comparator is the relational operator of a threshold condition.
type Comparator string

const (
	ComparatorGT  Comparator = "gt"
	ComparatorGTE Comparator = "gte"
	ComparatorLT  Comparator = "lt"
	ComparatorLTE Comparator = "lte"
	ComparatorEQ  Comparator = "eq"
)

// Condition is the routing predicate attached to an edge.
//
// Exactly one shape is populated depending on Type:
//   - always: no fields
//   - keyword: Terms + Mode, matched case-insensitively against result text
//   - threshold: Field + Comparator + Value against a numeric result field
type Condition struct {
	Type       ConditionType `json:"type" yaml:"type"`
	Terms      []string      `json:"terms,omitempty" yaml:"terms,omitempty"`
	Mode       KeywordMode   `json:"mode,omitempty" yaml:"mode,omitempty"`
	Field      string        `json:"field,omitempty" yaml:"field,omitempty"`
	Comparator Comparator    `json:"comparator,omitempty" yaml:"comparator,omitempty"`
	Value      float64       `json:"value,omitempty" yaml:"value,omitempty"`
}

// GenerativeConfig configures a node that delegates to the external
// text-generation service.
type GenerativeConfig struct {
	Provider    string  `json:"provider" yaml:"provider"`
	Model       string  `json:"model" yaml:"model"`
	Role        string  `json:"role" yaml:"role"`
	MaxTokens int `json:"max_tokens,omitempty" yaml:"max_tokens,omitempty"`

	// Temperature is a pointer so an explicit 0 is sent to the service
	// rather than being mistaken for an unset field.
	Temperature *float64 `json:"temperature,omitempty" yaml:"temperature,omitempty"`
}

// NodeSpec declares a single node of the workflow graph.
//
// ContextWindow bounds how many prior context entries a generative node
// sees; 0 means only the entries carried by inbound edges this iteration.
type NodeSpec struct {
	ID            string            `json:"id" yaml:"id"`
	Kind          NodeKind          `json:"kind" yaml:"kind"`
	Description   string            `json:"description,omitempty" yaml:"description,omitempty"`
	ContextWindow int               `json:"context_window,omitempty" yaml:"context_window,omitempty"`
	Generative    *GenerativeConfig `json:"generative,omitempty" yaml:"generative,omitempty"`
	Valuation     *ValuationInputs  `json:"valuation,omitempty" yaml:"valuation,omitempty"`
}

// EdgeSpec declares a directed, conditionally-fired link between nodes.
type EdgeSpec struct {
	From           string    `json:"from" yaml:"from"`
	To             string    `json:"to" yaml:"to"`
	Condition      Condition `json:"condition" yaml:"condition"`
	CarriesContext bool      `json:"carries_context" yaml:"carries_context"`
}

// Graph is the immutable workflow topology. It is loaded once per run
// and never mutated afterwards.
type Graph struct {
	ID            string     `json:"id" yaml:"id"`
	Description   string     `json:"description,omitempty" yaml:"description,omitempty"`
	Nodes         []NodeSpec `json:"nodes" yaml:"nodes"`
	Edges         []EdgeSpec `json:"edges" yaml:"edges"`
	StartNodes    []string   `json:"start" yaml:"start"`
	TerminalNodes []string   `json:"end" yaml:"end"`
	IterationCap  int        `json:"max_iterations" yaml:"max_iterations"`
}

// Node returns the spec for a node id.
func (g *Graph) Node(id string) (NodeSpec, bool) {
	for _, n := range g.Nodes {
		if n.ID == id {
			return n, true
		}
	}
	return NodeSpec{}, false
}

// OutgoingEdges returns all edges whose source is the given node.
func (g *Graph) OutgoingEdges(from string) []EdgeSpec {
	var out []EdgeSpec
	for _, e := range g.Edges {
		if e.From == from {
			out = append(out, e)
		}
	}
	return out
}

// IsTerminal reports whether the node id is a declared terminal node.
func (g *Graph) IsTerminal(id string) bool {
	for _, t := range g.TerminalNodes {
		if t == id {
			return true
		}
	}
	return false
}
