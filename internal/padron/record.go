// Package padron models SUNAT padrón reducido records: the 15-field
// pipe-delimited taxpayer entries published in the registry extract, plus the
// line parsing and value cleaning needed to load them.
package padron

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
)

// FieldCount is the number of logical fields in one padrón record.
const FieldCount = 15

// Columns lists the destination table columns in file order.
var Columns = []string{
	"ruc",
	"nombre_razon_social",
	"estado_contribuyente",
	"condicion_domicilio",
	"ubigeo",
	"tipo_via",
	"nombre_via",
	"codigo_zona",
	"tipo_zona",
	"numero",
	"interior",
	"lote",
	"departamento",
	"manzana",
	"kilometro",
}

// Contribuyente is one taxpayer entry. RUC is the primary key; every other
// field is nullable (nil = absent in the source file).
type Contribuyente struct {
	RUC                 string  `json:"ruc"`
	NombreRazonSocial   *string `json:"nombre_razon_social"`
	EstadoContribuyente *string `json:"estado_contribuyente"`
	CondicionDomicilio  *string `json:"condicion_domicilio"`
	Ubigeo              *string `json:"ubigeo"`
	TipoVia             *string `json:"tipo_via"`
	NombreVia           *string `json:"nombre_via"`
	CodigoZona          *string `json:"codigo_zona"`
	TipoZona            *string `json:"tipo_zona"`
	Numero              *string `json:"numero"`
	Interior            *string `json:"interior"`
	Lote                *string `json:"lote"`
	Departamento        *string `json:"departamento"`
	Manzana             *string `json:"manzana"`
	Kilometro           *string `json:"kilometro"`
}

// Values returns the record as insert arguments in Columns order.
// Nil pointers become SQL NULLs.
func (c *Contribuyente) Values() []any {
	ptrs := []*string{
		c.NombreRazonSocial, c.EstadoContribuyente, c.CondicionDomicilio,
		c.Ubigeo, c.TipoVia, c.NombreVia, c.CodigoZona, c.TipoZona,
		c.Numero, c.Interior, c.Lote, c.Departamento, c.Manzana, c.Kilometro,
	}
	vals := make([]any, 0, FieldCount)
	vals = append(vals, c.RUC)
	for _, p := range ptrs {
		if p == nil {
			vals = append(vals, nil)
		} else {
			vals = append(vals, *p)
		}
	}
	return vals
}

// deref returns the pointed-to string or "" for nil.
func deref(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}

// DireccionCompleta assembles the full street address from the nine address
// sub-fields, skipping absent parts.
func (c *Contribuyente) DireccionCompleta() string {
	var partes []string
	if c.TipoVia != nil && c.NombreVia != nil {
		partes = append(partes, *c.TipoVia+" "+*c.NombreVia)
	}
	if c.Numero != nil {
		partes = append(partes, "NRO "+*c.Numero)
	}
	if c.Interior != nil {
		partes = append(partes, "INT "+*c.Interior)
	}
	if c.Lote != nil {
		partes = append(partes, "LOTE "+*c.Lote)
	}
	if c.Departamento != nil {
		partes = append(partes, "DPTO "+*c.Departamento)
	}
	if c.Manzana != nil {
		partes = append(partes, "MZA "+*c.Manzana)
	}
	if c.Kilometro != nil {
		partes = append(partes, "KM "+*c.Kilometro)
	}
	if len(partes) == 0 {
		return "SIN DIRECCIÓN"
	}
	return strings.Join(partes, ", ")
}

// DireccionSimple is the short form (tipo + nombre + número) when all three
// parts are present, otherwise the full address.
func (c *Contribuyente) DireccionSimple() string {
	if c.TipoVia != nil && c.NombreVia != nil && c.Numero != nil {
		return *c.TipoVia + " " + *c.NombreVia + " " + *c.Numero
	}
	return c.DireccionCompleta()
}

// exportPairs returns the field name/value pairs used by the CSV and text
// export formats, in a stable order.
func (c *Contribuyente) exportPairs() [][2]string {
	return [][2]string{
		{"ruc", c.RUC},
		{"nombre_razon_social", deref(c.NombreRazonSocial)},
		{"estado_contribuyente", deref(c.EstadoContribuyente)},
		{"condicion_domicilio", deref(c.CondicionDomicilio)},
		{"ubigeo", deref(c.Ubigeo)},
		{"direccion_completa", c.DireccionCompleta()},
		{"direccion_simple", c.DireccionSimple()},
		{"tipo_via", deref(c.TipoVia)},
		{"nombre_via", deref(c.NombreVia)},
		{"codigo_zona", deref(c.CodigoZona)},
		{"tipo_zona", deref(c.TipoZona)},
		{"numero", deref(c.Numero)},
		{"interior", deref(c.Interior)},
		{"lote", deref(c.Lote)},
		{"departamento", deref(c.Departamento)},
		{"manzana", deref(c.Manzana)},
		{"kilometro", deref(c.Kilometro)},
	}
}

// ToJSON renders the record as indented JSON, including the derived address
// fields.
func (c *Contribuyente) ToJSON() (string, error) {
	out := make(map[string]any, FieldCount+2)
	raw, err := json.Marshal(c)
	if err != nil {
		return "", err
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return "", err
	}
	out["direccion_completa"] = c.DireccionCompleta()
	out["direccion_simple"] = c.DireccionSimple()
	b, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// Export renders the record in the requested format: "json", "csv", or
// "texto". Unknown formats fall back to JSON.
func (c *Contribuyente) Export(format string) (string, error) {
	switch strings.ToLower(format) {
	case "csv":
		var sb strings.Builder
		w := csv.NewWriter(&sb)
		for _, kv := range c.exportPairs() {
			if err := w.Write([]string{kv[0], kv[1]}); err != nil {
				return "", err
			}
		}
		w.Flush()
		if err := w.Error(); err != nil {
			return "", err
		}
		return strings.TrimRight(sb.String(), "\n"), nil
	case "texto", "text":
		var lines []string
		for _, kv := range c.exportPairs() {
			lines = append(lines, kv[0]+": "+kv[1])
		}
		return strings.Join(lines, "\n"), nil
	default:
		return c.ToJSON()
	}
}

var rucJunkRe = regexp.MustCompile(`[\s\-.]`)
var digitsRe = regexp.MustCompile(`^[0-9]{11}$`)

// NormalizeRUC strips spaces, dashes and dots, and validates that the result
// is an 11-digit Peruvian RUC.
func NormalizeRUC(ruc string) (string, error) {
	cleaned := rucJunkRe.ReplaceAllString(ruc, "")
	if !digitsRe.MatchString(cleaned) {
		return "", fmt.Errorf("invalid RUC %q: must be 11 digits", ruc)
	}
	return cleaned, nil
}
