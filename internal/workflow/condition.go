package workflow

import (
	"fmt"
	"math"
	"strings"

	"go.uber.org/zap"

	"github.com/valgraph/valgraph/pkg/domain"
)

// Outcome is the result of evaluating one edge condition against one
// node result. MarkerMissing and ParseFailure are surfaced so the
// scheduler can publish them as first-class events; a condition that
// does not fire is never a silent branch.
type Outcome struct {
	Fired         bool
	MarkerMissing bool
	ParseFailure  bool
	Detail        string
}

// Evaluator evaluates edge conditions against node run results.
// Evaluation is pure: the same condition and result always produce the
// same outcome.
type Evaluator struct {
	logger *zap.Logger
}

// NewEvaluator creates a condition evaluator.
func NewEvaluator(logger *zap.Logger) *Evaluator {
	return &Evaluator{logger: logger}
}

// Evaluate reports whether the condition fires for the given result.
func (e *Evaluator) Evaluate(cond domain.Condition, result domain.NodeRunResult) Outcome {
	switch cond.Type {
	case domain.ConditionAlways:
		return Outcome{Fired: true}
	case domain.ConditionKeyword:
		return e.evaluateKeyword(cond, result)
	case domain.ConditionThreshold:
		return e.evaluateThreshold(cond, result)
	default:
		// Unknown types are rejected at load time; reaching here means
		// the graph bypassed validation.
		e.logger.Error("unknown condition type",
			zap.String("type", string(cond.Type)),
			zap.String("node_id", result.NodeID))
		return Outcome{Detail: fmt.Sprintf("unknown condition type %q", cond.Type)}
	}
}

// evaluateKeyword matches terms case-insensitively against the result
// text. Marker absence is the dominant failure mode when control flow
// rides on generated text, so it is reported, not swallowed.
func (e *Evaluator) evaluateKeyword(cond domain.Condition, result domain.NodeRunResult) Outcome {
	text := strings.ToLower(result.Text)

	matched := 0
	var missing []string
	for _, term := range cond.Terms {
		if strings.Contains(text, strings.ToLower(term)) {
			matched++
		} else {
			missing = append(missing, term)
		}
	}

	fired := matched == len(cond.Terms)
	if cond.Mode == domain.KeywordModeAny {
		fired = matched > 0
	}

	if !fired {
		detail := fmt.Sprintf("expected marker(s) %v absent from output of %s", missing, result.NodeID)
		e.logger.Warn("keyword marker missing",
			zap.String("node_id", result.NodeID),
			zap.Int("iteration", result.Iteration),
			zap.Strings("missing", missing),
			zap.String("mode", string(cond.Mode)))
		return Outcome{MarkerMissing: true, Detail: detail}
	}

	return Outcome{Fired: true}
}

// evaluateThreshold compares a structured numeric field of the result.
// A missing or non-numeric field evaluates false and records a parse
// failure; it is never coerced to zero.
func (e *Evaluator) evaluateThreshold(cond domain.Condition, result domain.NodeRunResult) Outcome {
	value, ok := result.Fields[cond.Field]
	if !ok || math.IsNaN(value) {
		detail := fmt.Sprintf("result of %s carries no numeric field %q", result.NodeID, cond.Field)
		e.logger.Warn("threshold field parse failure",
			zap.String("node_id", result.NodeID),
			zap.Int("iteration", result.Iteration),
			zap.String("field", cond.Field))
		return Outcome{ParseFailure: true, Detail: detail}
	}

	var fired bool
	switch cond.Comparator {
	case domain.ComparatorGT:
		fired = value > cond.Value
	case domain.ComparatorGTE:
		fired = value >= cond.Value
	case domain.ComparatorLT:
		fired = value < cond.Value
	case domain.ComparatorLTE:
		fired = value <= cond.Value
	case domain.ComparatorEQ:
		fired = value == cond.Value
	}

	return Outcome{Fired: fired}
}
