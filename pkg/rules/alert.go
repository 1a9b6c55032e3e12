package rules

import (
	"fmt"
	"time"
)

const (
	MODULE_LOANS     = "PRESTAMOS"
	MODULE_INVENTORY = "INVENTARIO"
	MODULE_HANDOVER  = "ACTAS"
	MODULE_GENERAL   = "GENERAL"

	KIND_GENERAL  = "GENERAL"
	KIND_SPECIFIC = "ESPECIFICA"
)

var Modules = []string{MODULE_LOANS, MODULE_INVENTORY, MODULE_HANDOVER, MODULE_GENERAL}

type AlertConfig struct {
	ID       string     `json:"id"`
	Name     string     `json:"nombre"`
	Message  string     `json:"mensaje"`
	Module   string     `json:"modulo"`
	Kind     string     `json:"tipo"`
	Target   string     `json:"target,omitempty"`
	StartAt  string     `json:"horaInicio"`
	Active   bool       `json:"activo"`
	IsGlobal bool       `json:"isGlobal"`
	UserID   string     `json:"userId,omitempty"`
	RootRule *Group     `json:"rootRule"`
	Trigger  *Trigger   `json:"triggerCondition,omitempty"`
	LastRun  *time.Time `json:"ultimaEjecucion,omitempty"`
}

func (a *AlertConfig) Clone() *AlertConfig {
	if a == nil {
		return nil
	}
	c := *a
	c.RootRule = a.RootRule.Clone()
	if a.Trigger != nil {
		t := *a.Trigger
		c.Trigger = &t
	}
	if a.LastRun != nil {
		l := *a.LastRun
		c.LastRun = &l
	}
	return &c
}

// VisibleTo reports whether the alert is global or owned by userID.
func (a *AlertConfig) VisibleTo(userID string) bool {
	return a.IsGlobal || (userID != "" && a.UserID == userID)
}

// Notification renders the text shown when the alert fires. Quantitative
// alerts append the number of matching records.
func (a *AlertConfig) Notification(count int) string {
	if a.Trigger != nil {
		return fmt.Sprintf("%s (Detectados: %d)", a.Message, count)
	}
	return a.Message
}

const (
	VARTYPE_NUMBER  = "NUMBER"
	VARTYPE_STRING  = "STRING"
	VARTYPE_BOOLEAN = "BOOLEAN"
)

// UserVariable is a named value a user can reference from conditions.
type UserVariable struct {
	ID          string      `json:"id"`
	Key         string      `json:"key"`
	Value       interface{} `json:"value"`
	Type        string      `json:"type"`
	Description string      `json:"description,omitempty"`
	UserID      string      `json:"userId"`
}
