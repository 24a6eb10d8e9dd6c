package workflow

import (
	"github.com/valgraph/valgraph/internal/valuation"
	"github.com/valgraph/valgraph/pkg/domain"
)

// Validator validates graph structures and per-kind node configuration.
// Everything it rejects is a *domain.ConfigurationError raised before
// any execution.
type Validator struct{}

// NewValidator creates a new graph validator.
func NewValidator() *Validator {
	return &Validator{}
}

// Validate validates a graph structure.
func (v *Validator) Validate(g *domain.Graph) error {
	if g == nil {
		return domain.NewConfigurationError("graph is nil")
	}
	if g.ID == "" {
		return domain.NewConfigurationError("graph ID is required")
	}
	if len(g.Nodes) == 0 {
		return domain.NewConfigurationError("graph must have at least one node")
	}
	if g.IterationCap < 1 {
		return domain.NewConfigurationError("iteration cap must be at least 1")
	}

	nodeIDs := make(map[string]bool, len(g.Nodes))
	for _, node := range g.Nodes {
		if node.ID == "" {
			return domain.NewConfigurationError("node without an id")
		}
		if nodeIDs[node.ID] {
			return domain.NewConfigurationError("duplicate node ID: %s", node.ID)
		}
		nodeIDs[node.ID] = true

		if err := v.validateNode(node); err != nil {
			return err
		}
	}

	for _, edge := range g.Edges {
		if !nodeIDs[edge.From] {
			return domain.NewConfigurationError("edge references undeclared source node: %s", edge.From)
		}
		if !nodeIDs[edge.To] {
			return domain.NewConfigurationError("edge references undeclared target node: %s", edge.To)
		}
		if err := v.validateCondition(edge); err != nil {
			return err
		}
	}

	if len(g.StartNodes) == 0 {
		return domain.NewConfigurationError("graph must declare at least one start node")
	}
	for _, id := range g.StartNodes {
		if !nodeIDs[id] {
			return domain.NewConfigurationError("start node %s not found in graph", id)
		}
	}
	for _, id := range g.TerminalNodes {
		if !nodeIDs[id] {
			return domain.NewConfigurationError("terminal node %s not found in graph", id)
		}
	}

	return nil
}

// validateNode enforces the per-kind configuration schema.
func (v *Validator) validateNode(node domain.NodeSpec) error {
	if node.ContextWindow < 0 {
		return domain.NewConfigurationError("node %s: context window must not be negative", node.ID)
	}

	switch node.Kind {
	case domain.NodeKindGenerative:
		gc := node.Generative
		if gc == nil {
			return domain.NewConfigurationError("node %s: generative node requires a config", node.ID)
		}
		if gc.Provider != "anthropic" && gc.Provider != "openai" {
			return domain.NewConfigurationError("node %s: unsupported provider %q", node.ID, gc.Provider)
		}
		if gc.Model == "" {
			return domain.NewConfigurationError("node %s: generative node requires a model", node.ID)
		}
		if gc.Role == "" {
			return domain.NewConfigurationError("node %s: generative node requires a role", node.ID)
		}
		if node.Valuation != nil {
			return domain.NewConfigurationError("node %s: generative node carries valuation config", node.ID)
		}

	case domain.NodeKindComputational:
		if node.Generative != nil {
			return domain.NewConfigurationError("node %s: computational node carries generative config", node.ID)
		}
		if err := valuation.ValidateInputs(node.Valuation); err != nil {
			return domain.NewConfigurationError("node %s: %v", node.ID, err)
		}

	case domain.NodeKindPassthrough:
		if node.Generative != nil || node.Valuation != nil {
			return domain.NewConfigurationError("node %s: passthrough node takes no config", node.ID)
		}

	default:
		return domain.NewConfigurationError("node %s: unknown kind %q", node.ID, node.Kind)
	}

	return nil
}

// validateCondition checks an edge's routing predicate.
func (v *Validator) validateCondition(edge domain.EdgeSpec) error {
	c := edge.Condition
	switch c.Type {
	case domain.ConditionAlways:
		return nil

	case domain.ConditionKeyword:
		if len(c.Terms) == 0 {
			return domain.NewConfigurationError("edge %s->%s: keyword condition without terms", edge.From, edge.To)
		}
		if c.Mode != domain.KeywordModeAny && c.Mode != domain.KeywordModeAll {
			return domain.NewConfigurationError("edge %s->%s: invalid keyword mode %q", edge.From, edge.To, c.Mode)
		}
		return nil

	case domain.ConditionThreshold:
		if c.Field == "" {
			return domain.NewConfigurationError("edge %s->%s: threshold condition without field", edge.From, edge.To)
		}
		switch c.Comparator {
		case domain.ComparatorGT, domain.ComparatorGTE, domain.ComparatorLT, domain.ComparatorLTE, domain.ComparatorEQ:
			return nil
		default:
			return domain.NewConfigurationError("edge %s->%s: invalid comparator %q", edge.From, edge.To, c.Comparator)
		}

	default:
		return domain.NewConfigurationError("edge %s->%s: unknown condition type %q", edge.From, edge.To, c.Type)
	}
}
