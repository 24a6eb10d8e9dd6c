package workflow

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/valgraph/valgraph/pkg/domain"
)

func genNode(id string) domain.NodeSpec {
	return domain.NodeSpec{
		ID:   id,
		Kind: domain.NodeKindGenerative,
		Generative: &domain.GenerativeConfig{
			Provider: "anthropic",
			Model:    "claude-sonnet-4-20250514",
			Role:     "You are an equity analyst.",
		},
	}
}

func validGraph() *domain.Graph {
	return &domain.Graph{
		ID: "test-flow",
		Nodes: []domain.NodeSpec{
			genNode("a"),
			{ID: "b", Kind: domain.NodeKindPassthrough},
		},
		Edges: []domain.EdgeSpec{
			{From: "a", To: "b", Condition: domain.Condition{Type: domain.ConditionAlways}},
		},
		StartNodes:    []string{"a"},
		TerminalNodes: []string{"b"},
		IterationCap:  10,
	}
}

func TestValidateAcceptsWellFormedGraph(t *testing.T) {
	require.NoError(t, NewValidator().Validate(validGraph()))
}

func TestValidateRejections(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(g *domain.Graph)
		wantMsg string
	}{
		{
			"nil graph handled separately", nil, "",
		},
		{
			"missing id",
			func(g *domain.Graph) { g.ID = "" },
			"graph ID is required",
		},
		{
			"no nodes",
			func(g *domain.Graph) { g.Nodes = nil },
			"at least one node",
		},
		{
			"iteration cap below one",
			func(g *domain.Graph) { g.IterationCap = 0 },
			"iteration cap",
		},
		{
			"duplicate node ids",
			func(g *domain.Graph) { g.Nodes = append(g.Nodes, genNode("a")) },
			"duplicate node ID",
		},
		{
			"dangling edge source",
			func(g *domain.Graph) { g.Edges[0].From = "ghost" },
			"undeclared source node",
		},
		{
			"dangling edge target",
			func(g *domain.Graph) { g.Edges[0].To = "ghost" },
			"undeclared target node",
		},
		{
			"unknown node kind",
			func(g *domain.Graph) { g.Nodes[1].Kind = "quantum" },
			"unknown kind",
		},
		{
			"generative without model",
			func(g *domain.Graph) { g.Nodes[0].Generative.Model = "" },
			"requires a model",
		},
		{
			"generative with bad provider",
			func(g *domain.Graph) { g.Nodes[0].Generative.Provider = "oracle" },
			"unsupported provider",
		},
		{
			"passthrough with config",
			func(g *domain.Graph) { g.Nodes[1].Generative = &domain.GenerativeConfig{} },
			"takes no config",
		},
		{
			"computational without assumptions",
			func(g *domain.Graph) {
				g.Nodes[1].Kind = domain.NodeKindComputational
			},
			"valuation inputs are nil",
		},
		{
			"keyword without terms",
			func(g *domain.Graph) {
				g.Edges[0].Condition = domain.Condition{Type: domain.ConditionKeyword, Mode: domain.KeywordModeAny}
			},
			"keyword condition without terms",
		},
		{
			"keyword with bad mode",
			func(g *domain.Graph) {
				g.Edges[0].Condition = domain.Condition{Type: domain.ConditionKeyword, Terms: []string{"x"}, Mode: "some"}
			},
			"invalid keyword mode",
		},
		{
			"threshold without field",
			func(g *domain.Graph) {
				g.Edges[0].Condition = domain.Condition{Type: domain.ConditionThreshold, Comparator: domain.ComparatorGT}
			},
			"threshold condition without field",
		},
		{
			"threshold with bad comparator",
			func(g *domain.Graph) {
				g.Edges[0].Condition = domain.Condition{Type: domain.ConditionThreshold, Field: "x", Comparator: "near"}
			},
			"invalid comparator",
		},
		{
			"unknown condition type",
			func(g *domain.Graph) {
				g.Edges[0].Condition = domain.Condition{Type: "lunar"}
			},
			"unknown condition type",
		},
		{
			"no start nodes",
			func(g *domain.Graph) { g.StartNodes = nil },
			"at least one start node",
		},
		{
			"start node not declared",
			func(g *domain.Graph) { g.StartNodes = []string{"ghost"} },
			"start node ghost not found",
		},
		{
			"terminal node not declared",
			func(g *domain.Graph) { g.TerminalNodes = []string{"ghost"} },
			"terminal node ghost not found",
		},
	}

	v := NewValidator()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.mutate == nil {
				err := v.Validate(nil)
				require.Error(t, err)
				return
			}

			g := validGraph()
			tt.mutate(g)

			err := v.Validate(g)
			require.Error(t, err)

			var cfgErr *domain.ConfigurationError
			assert.ErrorAs(t, err, &cfgErr)
			assert.Contains(t, err.Error(), tt.wantMsg)
		})
	}
}
