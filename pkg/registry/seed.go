package registry

import "github.com/moonwalker/assetwatch/pkg/rules"

// DefaultAlerts are created when the repository is empty on first load.
func DefaultAlerts() []*rules.AlertConfig {
	return []*rules.AlertConfig{
		{
			ID:       "1",
			Name:     "Cierre de Préstamos",
			Message:  "Hay préstamos activos pendientes de devolución.",
			Module:   rules.MODULE_LOANS,
			Kind:     rules.KIND_GENERAL,
			StartAt:  "16:00",
			Active:   true,
			IsGlobal: true,
			RootRule: rules.And(
				rules.Literal("estado", rules.COMPARER_EQUAL, "ACTIVO"),
			),
		},
	}
}
