package padron

import "strings"

// Delimiter separates fields in the padrón extract.
const Delimiter = "|"

// mojibake fixes the recurring two-character artifacts left by UTF-8 text
// that was decoded as Windows-1252 somewhere upstream of the published
// extract (each pair is the cp1252 reading of one UTF-8 code point).
// Replacement outputs never contain a replacement input, so cleaning is
// idempotent.
var mojibake = strings.NewReplacer(
	"Ã‘", "Ñ",
	"Ã±", "ñ",
	"Ã", "Á",
	"Ã¡", "á",
	"Ã‰", "É",
	"Ã©", "é",
	"Ã", "Í",
	"Ã­", "í",
	"Ã“", "Ó",
	"Ã³", "ó",
	"Ãš", "Ú",
	"Ãº", "ú",
	"Ã¼", "ü",
	"Â°", "°",
	"Âº", "º",
	"Âª", "ª",
)

// CleanValue trims a raw field, maps empty and lone-dash placeholders to
// null, and applies the mojibake substitution table.
func CleanValue(raw string) *string {
	v := strings.TrimSpace(raw)
	if v == "" || v == "-" {
		return nil
	}
	v = mojibake.Replace(v)
	return &v
}

// ParseLine converts one raw, already-decoded line into a record.
//
// Lines with fewer than 15 fields are padded with nulls. Lines with more than
// 15 fields are assumed to carry the delimiter inside the free-text name:
// everything past field 15 is space-joined back into the name field. This is
// a recovery heuristic, not a guaranteed-correct parse; genuinely malformed
// rows can be mis-merged.
//
// Returns (nil, false) for blank lines and for lines whose identifier field
// is absent; the identifier is the only mandatory field.
func ParseLine(line string) (*Contribuyente, bool) {
	line = strings.TrimRight(line, " \t\r\n")
	if line == "" {
		return nil, false
	}

	fields := strings.Split(line, Delimiter)
	if len(fields) > FieldCount {
		// Overflow fields belong to the name. With an empty name the extras
		// cannot be a split name, so they are discarded instead.
		if fields[1] != "" {
			merged := append([]string{fields[1]}, fields[FieldCount:]...)
			fields[1] = strings.Join(merged, " ")
		}
		fields = fields[:FieldCount]
	}
	for len(fields) < FieldCount {
		fields = append(fields, "")
	}

	vals := make([]*string, FieldCount)
	for i, f := range fields {
		vals[i] = CleanValue(f)
	}
	if vals[0] == nil {
		return nil, false
	}

	return &Contribuyente{
		RUC:                 *vals[0],
		NombreRazonSocial:   vals[1],
		EstadoContribuyente: vals[2],
		CondicionDomicilio:  vals[3],
		Ubigeo:              vals[4],
		TipoVia:             vals[5],
		NombreVia:           vals[6],
		CodigoZona:          vals[7],
		TipoZona:            vals[8],
		Numero:              vals[9],
		Interior:            vals[10],
		Lote:                vals[11],
		Departamento:        vals[12],
		Manzana:             vals[13],
		Kilometro:           vals[14],
	}, true
}
