// $ go test -v pkg/rules/*.go

package rules

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func abGroup(operator string) *Group {
	return NewGroup(operator,
		Literal("a", COMPARER_EQUAL, 1),
		Literal("b", COMPARER_EQUAL, 2),
	)
}

func TestEmptyGroupMatchesEverything(t *testing.T) {
	e := NewEvaluator(nil)
	for _, op := range []string{CONNECTOR_AND, CONNECTOR_OR} {
		g := NewGroup(op)
		assert.True(t, e.EvaluateGroup(g, NewFacts(`{}`), ""))
		assert.True(t, e.EvaluateGroup(g, NewFacts(`{"a":1}`), ""))
	}
}

func TestAndGroup(t *testing.T) {
	e := NewEvaluator(nil)
	g := abGroup(CONNECTOR_AND)
	assert.False(t, e.EvaluateGroup(g, NewFacts(`{"a":1,"b":3}`), ""))
	assert.True(t, e.EvaluateGroup(g, NewFacts(`{"a":1,"b":2}`), ""))
}

func TestOrGroup(t *testing.T) {
	e := NewEvaluator(nil)
	g := abGroup(CONNECTOR_OR)
	assert.True(t, e.EvaluateGroup(g, NewFacts(`{"a":1,"b":3}`), ""))
	assert.False(t, e.EvaluateGroup(g, NewFacts(`{"a":7,"b":3}`), ""))
}

func TestNestedGroups(t *testing.T) {
	e := NewEvaluator(nil)
	// marca CONTAINS dell AND (estado EQ ASIGNADO OR estado EQ REPARACION)
	g := And(
		Literal("marca", COMPARER_CONTAINS, "dell"),
		Or(
			Literal("estado", COMPARER_EQUAL, "ASIGNADO"),
			Literal("estado", COMPARER_EQUAL, "REPARACION"),
		),
	)
	assert.True(t, e.EvaluateGroup(g, NewFacts(`{"marca":"Dell","estado":"reparacion"}`), ""))
	assert.False(t, e.EvaluateGroup(g, NewFacts(`{"marca":"Dell","estado":"DISPONIBLE"}`), ""))
	assert.False(t, e.EvaluateGroup(g, NewFacts(`{"marca":"HP","estado":"ASIGNADO"}`), ""))
}

func TestUnknownGroupOperator(t *testing.T) {
	e := NewEvaluator(nil)
	g := abGroup("XOR")
	assert.False(t, e.EvaluateGroup(g, NewFacts(`{"a":1,"b":2}`), ""))
	assert.False(t, e.EvaluateGroup(nil, NewFacts(`{"a":1}`), ""))
}

func TestFindAllMatchesNoCrossRecordLeakage(t *testing.T) {
	e := NewEvaluator(nil)
	records := []Facts{
		NewFacts(`{"a":1,"b":9}`),
		NewFacts(`{"a":9,"b":2}`),
	}
	assert.Empty(t, e.FindAllMatches(abGroup(CONNECTOR_AND), records, ""))
	assert.Len(t, e.FindAllMatches(abGroup(CONNECTOR_OR), records, ""), 2)
}

func TestFindAllMatches(t *testing.T) {
	e := NewEvaluator(nil)
	records := []Facts{
		NewFacts(`{"serial":"PC01","marca":"Dell","estado":"ASIGNADO"}`),
		NewFacts(`{"serial":"PC02","marca":"HP","estado":"DISPONIBLE"}`),
		NewFacts(`{"serial":"PC03","marca":"Dell","estado":"DISPONIBLE"}`),
	}
	g := And(Literal("estado", COMPARER_EQUAL, "disponible"))
	m := e.FindAllMatches(g, records, "")
	if assert.Len(t, m, 2) {
		assert.Equal(t, "PC02", m[0].Get("serial").String())
		assert.Equal(t, "PC03", m[1].Get("serial").String())
	}
	assert.Empty(t, e.FindAllMatches(g, nil, ""))
}

func TestIsTriggered(t *testing.T) {
	assert.False(t, IsTriggered(0, nil))
	assert.True(t, IsTriggered(1, nil))

	gte := &Trigger{Operator: COMPARER_GREATER_OR_EQUAL, Value: 3}
	assert.False(t, IsTriggered(2, gte))
	assert.True(t, IsTriggered(3, gte))

	assert.True(t, IsTriggered(4, &Trigger{Operator: COMPARER_GREATER, Value: 3}))
	assert.True(t, IsTriggered(0, &Trigger{Operator: COMPARER_LESS, Value: 1}))
	assert.True(t, IsTriggered(2, &Trigger{Operator: COMPARER_LESS_OR_EQUAL, Value: 2}))
	assert.True(t, IsTriggered(2, &Trigger{Operator: COMPARER_EQUAL, Value: 2}))
	assert.False(t, IsTriggered(2, &Trigger{Operator: COMPARER_NOT_EQUAL, Value: 1}))
	assert.False(t, IsTriggered(2, &Trigger{Operator: COMPARER_CONTAINS, Value: 2}))
}
