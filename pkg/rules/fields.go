package rules

// FieldDefinition describes a record field available for condition building.
type FieldDefinition struct {
	Key     string   `json:"key"`
	Label   string   `json:"label"`
	Type    string   `json:"type"` // "string", "number", "boolean" or "date"
	Options []string `json:"options,omitempty"`
}

// OperatorDefinition describes a condition operator for rule builders.
type OperatorDefinition struct {
	Name  string `json:"name"`
	Label string `json:"label"`
}

var (
	loanFields = []FieldDefinition{
		{Key: "usuarioSolicitante", Label: "Usuario Solicitante", Type: "string"},
		{Key: "estado", Label: "Estado", Type: "string", Options: []string{"ACTIVO", "FINALIZADO"}},
		{Key: "fechaPrestamo", Label: "Fecha Préstamo", Type: "date"},
		{Key: "observaciones", Label: "Observaciones", Type: "string"},
	}

	inventoryFields = []FieldDefinition{
		{Key: "serial", Label: "Serial", Type: "string"},
		{Key: "tipo", Label: "Tipo Equipo", Type: "string"},
		{Key: "marca", Label: "Marca", Type: "string"},
		{Key: "modelo", Label: "Modelo", Type: "string"},
		{Key: "proyecto", Label: "Proyecto", Type: "string"},
		{Key: "usuarioAsignado", Label: "Usuario Asignado", Type: "string"},
		{Key: "estado", Label: "Estado", Type: "string", Options: []string{"DISPONIBLE", "ASIGNADO", "REPARACION", "BAJA"}},
		{Key: "fechaAsignacion", Label: "Fecha Asignación", Type: "date"},
	}

	handoverFields = []FieldDefinition{
		{Key: "usuarioSolicitante", Label: "Usuario Solicitante", Type: "string"},
		{Key: "tipoActa", Label: "Tipo Acta", Type: "string", Options: []string{"ASIGNACION", "DEVOLUCION"}},
		{Key: "estado", Label: "Estado", Type: "string", Options: []string{"PENDIENTE", "APROBADA"}},
		{Key: "fecha", Label: "Fecha Creación", Type: "date"},
	}
)

// Fields returns the field catalog of a module, nil for GENERAL or unknown modules.
func Fields(module string) []FieldDefinition {
	switch module {
	case MODULE_LOANS:
		return loanFields
	case MODULE_INVENTORY:
		return inventoryFields
	case MODULE_HANDOVER:
		return handoverFields
	}
	return nil
}

func Operators() []OperatorDefinition {
	return []OperatorDefinition{
		{Name: COMPARER_EQUAL, Label: "igual a"},
		{Name: COMPARER_NOT_EQUAL, Label: "distinto de"},
		{Name: COMPARER_GREATER, Label: "mayor que"},
		{Name: COMPARER_LESS, Label: "menor que"},
		{Name: COMPARER_GREATER_OR_EQUAL, Label: "mayor o igual que"},
		{Name: COMPARER_LESS_OR_EQUAL, Label: "menor o igual que"},
		{Name: COMPARER_CONTAINS, Label: "contiene"},
	}
}
