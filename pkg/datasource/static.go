package datasource

import (
	"context"
	"sync"

	"github.com/moonwalker/assetwatch/pkg/rules"
)

// Static serves fixed record sets, by default a small sample of each module.
type Static struct {
	sync.RWMutex
	records map[string][]rules.Facts
}

func NewStatic() *Static {
	s := &Static{records: make(map[string][]rules.Facts)}
	for module, records := range sampleRecords {
		s.Set(module, records...)
	}
	return s
}

// Set replaces the records of module. Records may be JSON strings, bytes,
// Facts or any value encoding to a JSON object.
func (s *Static) Set(module string, records ...interface{}) {
	facts := make([]rules.Facts, 0, len(records))
	for _, r := range records {
		if f := rules.NewFacts(r); f != nil {
			facts = append(facts, f)
		}
	}

	s.Lock()
	s.records[module] = facts
	s.Unlock()
}

func (s *Static) FetchRecords(ctx context.Context, module string) ([]rules.Facts, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.RLock()
	defer s.RUnlock()

	src := s.records[module]
	res := make([]rules.Facts, len(src))
	for i, f := range src {
		res[i] = append(rules.Facts(nil), f...)
	}
	return res, nil
}

type accessories struct {
	Teclado bool   `json:"teclado"`
	Mouse   bool   `json:"mouse"`
	Base    bool   `json:"base"`
	Diadema string `json:"diadema,omitempty"`
}

type equipment struct {
	Serial          string      `json:"serial"`
	Tipo            string      `json:"tipo"`
	Marca           string      `json:"marca"`
	Modelo          string      `json:"modelo"`
	Proyecto        string      `json:"proyecto,omitempty"`
	UsuarioAsignado string      `json:"usuarioAsignado,omitempty"`
	Estado          string      `json:"estado"`
	Accesorios      accessories `json:"accesorios"`
	FechaAsignacion string      `json:"fechaAsignacion,omitempty"`
}

type loanItem struct {
	ID        string `json:"id"`
	Nombre    string `json:"nombre"`
	EsActivo  bool   `json:"esActivo"`
	Serial    string `json:"serial,omitempty"`
	Categoria string `json:"categoria"`
}

type loan struct {
	ID                 string     `json:"id"`
	UsuarioSolicitante string     `json:"usuarioSolicitante"`
	Items              []loanItem `json:"items"`
	FechaPrestamo      string     `json:"fechaPrestamo"`
	Estado             string     `json:"estado"`
	Observaciones      string     `json:"observaciones,omitempty"`
}

type pendingHandover struct {
	ID                 string   `json:"id"`
	Fecha              string   `json:"fecha"`
	UsuarioSolicitante string   `json:"usuarioSolicitante"`
	TipoActa           string   `json:"tipoActa"`
	Seriales           []string `json:"seriales"`
	Estado             string   `json:"estado"`
	PdfTemporal        string   `json:"pdfTemporal,omitempty"`
}

var sampleRecords = map[string][]interface{}{
	rules.MODULE_INVENTORY: {
		equipment{Serial: "PC-001", Tipo: "Portátil", Marca: "Dell", Modelo: "Latitude 5420", Proyecto: "Desarrollo Web", UsuarioAsignado: "juan.perez", Estado: "ASIGNADO", Accesorios: accessories{true, true, true, "HS-101"}, FechaAsignacion: "2023-01-15T09:00:00Z"},
		equipment{Serial: "PC-002", Tipo: "Portátil", Marca: "HP", Modelo: "EliteBook 840", Estado: "DISPONIBLE", Accesorios: accessories{false, true, false, ""}},
		equipment{Serial: "PC-003", Tipo: "Monitor", Marca: "Samsung", Modelo: "24 inch", Proyecto: "Soporte", UsuarioAsignado: "maria.gomez", Estado: "ASIGNADO", FechaAsignacion: "2023-03-10T14:30:00Z"},
		equipment{Serial: "PC-004", Tipo: "Portátil", Marca: "Lenovo", Modelo: "ThinkPad T14", Estado: "REPARACION", Accesorios: accessories{true, true, false, ""}},
		equipment{Serial: "PC-005", Tipo: "Portátil", Marca: "Dell", Modelo: "Latitude 3420", Proyecto: "Desarrollo Web", UsuarioAsignado: "carlos.rodriguez", Estado: "ASIGNADO", Accesorios: accessories{true, true, true, ""}, FechaAsignacion: "2023-05-20T08:15:00Z"},
	},
	rules.MODULE_LOANS: {
		loan{ID: "pr-1", UsuarioSolicitante: "juan.perez", Items: []loanItem{{ID: "EP-778", Nombre: "Proyector Epson", EsActivo: true, Serial: "EP-778", Categoria: "EQUIPO"}}, FechaPrestamo: "2024-02-01T10:00:00Z", Estado: "ACTIVO"},
		loan{ID: "pr-2", UsuarioSolicitante: "maria.gomez", Items: []loanItem{{ID: "hdmi-1", Nombre: "Cable HDMI", Categoria: "PERIFERICO"}}, FechaPrestamo: "2024-01-20T15:30:00Z", Estado: "FINALIZADO", Observaciones: "devuelto completo"},
	},
	rules.MODULE_HANDOVER: {
		pendingHandover{ID: "pend-1", Fecha: "2024-02-02T09:00:00Z", UsuarioSolicitante: "admin@akpo.com", TipoActa: "ASIGNACION", Seriales: []string{"SN12345", "SN67890"}, Estado: "PENDIENTE", PdfTemporal: "/assets/mock-temp.pdf"},
		pendingHandover{ID: "pend-2", Fecha: "2024-02-01T09:00:00Z", UsuarioSolicitante: "user@akpo.com", TipoActa: "DEVOLUCION", Seriales: []string{"SN11111"}, Estado: "PENDIENTE"},
	},
}
