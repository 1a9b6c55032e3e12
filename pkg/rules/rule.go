package rules

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/tidwall/gjson"
)

const (
	CONNECTOR_AND string = "AND"
	CONNECTOR_OR  string = "OR"

	COMPARER_EQUAL            string = "EQ"
	COMPARER_NOT_EQUAL        string = "NEQ"
	COMPARER_GREATER          string = "GT"
	COMPARER_GREATER_OR_EQUAL string = "GTE"
	COMPARER_LESS             string = "LT"
	COMPARER_LESS_OR_EQUAL    string = "LTE"
	COMPARER_CONTAINS         string = "CONTAINS"

	VALUETYPE_LITERAL  string = "LITERAL"
	VALUETYPE_VARIABLE string = "VARIABLE"
)

// Node is either a *Condition or a *Group.
type Node interface {
	node()
}

// Condition compares one record field against a literal or a user variable.
type Condition struct {
	Field     string      `json:"field"`
	Operator  string      `json:"operator"`
	Value     interface{} `json:"value"`
	ValueType string      `json:"valueType,omitempty"`
}

// Group combines its child nodes with AND or OR. An empty group matches
// every record.
type Group struct {
	Operator string `json:"operator"`
	Rules    []Node `json:"rules"`
}

func (*Condition) node() {}
func (*Group) node()     {}

func NewGroup(operator string, nodes ...Node) *Group {
	return &Group{Operator: operator, Rules: nodes}
}

func And(nodes ...Node) *Group {
	return NewGroup(CONNECTOR_AND, nodes...)
}

func Or(nodes ...Node) *Group {
	return NewGroup(CONNECTOR_OR, nodes...)
}

func Literal(field, operator string, value interface{}) *Condition {
	return &Condition{Field: field, Operator: operator, Value: value, ValueType: VALUETYPE_LITERAL}
}

func Variable(field, operator, key string) *Condition {
	return &Condition{Field: field, Operator: operator, Value: key, ValueType: VALUETYPE_VARIABLE}
}

var errNodeNotObject = errors.New("rule node must be a json object")

func (g *Group) UnmarshalJSON(data []byte) error {
	var raw struct {
		Operator string            `json:"operator"`
		Rules    []json.RawMessage `json:"rules"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	g.Operator = raw.Operator
	g.Rules = make([]Node, 0, len(raw.Rules))
	for i, r := range raw.Rules {
		n, err := DecodeNode(r)
		if err != nil {
			return fmt.Errorf("rules[%d]: %w", i, err)
		}
		g.Rules = append(g.Rules, n)
	}
	return nil
}

func (g *Group) MarshalJSON() ([]byte, error) {
	rules := g.Rules
	if rules == nil {
		rules = []Node{}
	}
	return json.Marshal(&struct {
		Operator string `json:"operator"`
		Rules    []Node `json:"rules"`
	}{g.Operator, rules})
}

// DecodeNode decodes one serialized node. Objects carrying a "rules" key are
// groups, everything else is a condition.
func DecodeNode(data []byte) (Node, error) {
	res := gjson.ParseBytes(data)
	if !res.IsObject() {
		return nil, errNodeNotObject
	}
	if res.Get("rules").Exists() {
		g := &Group{}
		if err := json.Unmarshal(data, g); err != nil {
			return nil, err
		}
		return g, nil
	}
	c := &Condition{}
	if err := json.Unmarshal(data, c); err != nil {
		return nil, err
	}
	return c, nil
}

// Clone returns a deep copy of the tree. Literal values are shared.
func (g *Group) Clone() *Group {
	if g == nil {
		return nil
	}
	out := &Group{Operator: g.Operator, Rules: make([]Node, 0, len(g.Rules))}
	for _, n := range g.Rules {
		switch t := n.(type) {
		case *Group:
			out.Rules = append(out.Rules, t.Clone())
		case *Condition:
			c := *t
			out.Rules = append(out.Rules, &c)
		}
	}
	return out
}

// Trigger is a threshold applied to the number of matching records.
type Trigger struct {
	Operator string `json:"operator"`
	Value    int    `json:"value"`
}
