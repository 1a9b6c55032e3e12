package rules

// evaluator interface to support swappable implementations
type Evaluator interface {
	EvaluateGroup(group *Group, record Facts, userID string) bool
	FindAllMatches(group *Group, records []Facts, userID string) []Facts
}

type DefaultEvaluator struct {
	Vars Variables
}

func NewEvaluator(vars Variables) *DefaultEvaluator {
	return &DefaultEvaluator{Vars: vars}
}

// EvaluateGroup evaluates the whole tree against one record. A nil group is
// a malformed alert and never matches.
func (e *DefaultEvaluator) EvaluateGroup(group *Group, record Facts, userID string) bool {
	if group == nil {
		return false
	}
	return e.evaluateGroup(group, record, userID)
}

// FindAllMatches keeps the records for which the full tree holds. Conditions
// of an AND group are always satisfied by the same record.
func (e *DefaultEvaluator) FindAllMatches(group *Group, records []Facts, userID string) []Facts {
	matches := make([]Facts, 0)
	for _, r := range records {
		if e.EvaluateGroup(group, r, userID) {
			matches = append(matches, r)
		}
	}
	return matches
}

func (e *DefaultEvaluator) evaluateGroup(group *Group, record Facts, userID string) bool {
	if len(group.Rules) == 0 {
		return true
	}

	switch group.Operator {
	case CONNECTOR_AND:
		for _, n := range group.Rules {
			if !e.evaluateNode(n, record, userID) {
				return false
			}
		}
		return true
	case CONNECTOR_OR:
		for _, n := range group.Rules {
			if e.evaluateNode(n, record, userID) {
				return true
			}
		}
		return false
	}
	return false
}

func (e *DefaultEvaluator) evaluateNode(n Node, record Facts, userID string) bool {
	switch t := n.(type) {
	case *Group:
		return t != nil && e.evaluateGroup(t, record, userID)
	case *Condition:
		return EvaluateCondition(e.Vars, t, record, userID)
	}
	return false
}

// IsTriggered applies the alert threshold to the number of matching records.
// Without a threshold any match triggers; an unknown operator never does.
func IsTriggered(count int, trigger *Trigger) bool {
	if trigger == nil {
		return count > 0
	}
	return compareInt(count, trigger.Value, trigger.Operator)
}
