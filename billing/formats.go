/*
Package billing parses billing extracts and loads them into the ledger.

PURPOSE:
  The upstream reporting tool has produced three layouts of the same
  semicolon-delimited extract over time. This package recognizes which one
  a file uses, turns its rows into core.BillingRecord values and hands them
  to the ledger with the write semantics that layout calls for.

FORMATS:
  Legacy:      Spanish headers, first columns describe the company ("EMPRESA")
  BulkRefresh: Portuguese snake_case headers, reports whole periods
  Headerless:  Legacy column order without a header line

WRITE SEMANTICS:
  Legacy and Headerless rows are appended by content hash (re-reading a file
  is a no-op). BulkRefresh files are authoritative for every period they
  mention: those periods are deleted and reloaded in one transaction.

SEE ALSO:
  - core/ledger.go: Append / ReplacePeriods
  - source/delimited.go: Encoding detection
*/
package billing

import "strings"

// Format identifies the layout of a billing extract.
type Format int

const (
	FormatLegacy Format = iota
	FormatBulkRefresh
	FormatHeaderless
)

func (f Format) String() string {
	switch f {
	case FormatLegacy:
		return "legacy"
	case FormatBulkRefresh:
		return "bulk-refresh"
	case FormatHeaderless:
		return "headerless"
	default:
		return "unknown"
	}
}

// ReplacesPeriods reports whether files of this format are authoritative
// for the periods they contain.
func (f Format) ReplacesPeriods() bool {
	return f == FormatBulkRefresh
}

// legacyMarkerColumns is how many leading columns are checked for the
// company marker.
const legacyMarkerColumns = 5

// Detect classifies an extract by its first line.
func Detect(header []string) Format {
	cols := make(map[string]bool, len(header))
	for _, h := range header {
		cols[strings.ToUpper(strings.TrimSpace(h))] = true
	}
	if cols["COD_VENDEDOR"] && cols["VAL_TOTAL_ITEM"] {
		return FormatBulkRefresh
	}
	for i, h := range header {
		if i >= legacyMarkerColumns {
			break
		}
		if strings.Contains(strings.ToUpper(h), "EMPRESA") {
			return FormatLegacy
		}
	}
	return FormatHeaderless
}

// columns names the fields a format is read from.
type columns struct {
	dates     []string // first present column wins
	client    string
	vendor    string
	product   string
	quantity  string
	amount    string
	warehouse string
}

var legacyColumns = columns{
	dates:     []string{"FECHA EMISION"},
	client:    "COD CENTRALIZADOR",
	vendor:    "COD VENDEDOR",
	product:   "COD PRODUCTO VENTA",
	quantity:  "CANTIDAD KG",
	amount:    "VALOR",
	warehouse: "NOMBRE DEPOSITO",
}

var bulkRefreshColumns = columns{
	dates:     []string{"DTA_ENTRADA", "DATA_EMISSAO"},
	client:    "COD_CENTRALIZADOR",
	vendor:    "COD_VENDEDOR",
	product:   "COD_ITEM",
	quantity:  "QTD_KG_FATURADA",
	amount:    "VAL_TOTAL_ITEM",
	warehouse: "DEPOSITO",
}

// LegacyHeader is the column order of legacy extracts. Headerless files are
// read with it.
var LegacyHeader = []string{
	"COD EMPRESA", "NOM EMPRESA", "NUM OFICIAL", "FECHA EMISION", "DIA", "HORA", "FECHA",
	"COD VENDEDOR", "NOM VENDEDOR", "COD CENTRALIZADOR", "NOM CENTRALIZADOR",
	"COD CLIENTE", "NOM CLIENTE", "COD PRODUCTO VENTA", "NOM PRODUCTO VENTA",
	"COD GRUPO COMERCIAL", "NOM GRUPO COMERCIAL", "COD SUBGRUPO COMERCIAL",
	"NOM SUBGRUPO COMERCIAL", "COD CLASE COMERCIAL", "NOM CLASE COMERCIAL",
	"COD FAMILIA COMERCIAL", "NOM FAMILIA COMERCIAL", "COD PRODUCTO DOCUMENTO",
	"NOM PRODUCTO DOCUMENTO", "UNIDAD MEDIDA", "CANTIDAD DOCUMENTO", "CANTIDAD KG",
	"VALOR", "VALOR NETO GRAVADO", "MONEDA", "COD TIPO NATUREZA", "NOM TIPO NATUREZA",
	"ORIGEN DOCUMENTO", "NOM TEMPLATE", "PESO PADRON", "NUM PEDIDO", "COD.DEPOSITO",
	"NOMBRE DEPOSITO", "VENCIMIENTO", "DESC. CONDICION DE PAGO", "CONDICION DE PAGO",
	"CANTIDAD KG BRUTO", "PRECIO PEDIDO", "PRECIO TABELA", "COD. TABELA PRECO",
	"NOM. TABELA PRECO", "ORIGEN PEDIDO", "XCONTENT NRO PUNTO REMITO",
	"XCONTENT NRO OFICIAL REMITO", "XCONTENT FECHA DE RENDICION",
	"COD. TRANSPORTISTA", "NOM. TRANSPORTISTA", "EXTRA",
}
