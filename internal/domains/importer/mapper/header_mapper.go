// Package mapper normalizes human-written spreadsheet column headers into
// canonical field keys. Mapping is best-effort: a header matching no known
// synonym is kept under its normalized key and simply ignored downstream.
package mapper

import (
	"regexp"
	"strings"
)

// LogicalField is a canonical, business-meaningful column concept,
// independent of how it was spelled in the source file.
type LogicalField = string

const (
	FieldCompanyName     LogicalField = "company_name"
	FieldSiret           LogicalField = "siret"
	FieldAddress         LogicalField = "address"
	FieldPostalCode      LogicalField = "postal_code"
	FieldCity            LogicalField = "city"
	FieldPhone           LogicalField = "phone"
	FieldMobile          LogicalField = "mobile"
	FieldEmail           LogicalField = "email"
	FieldCommercialEmail LogicalField = "commercial_email"
	FieldFirstName       LogicalField = "first_name"
	FieldLastName        LogicalField = "last_name"
	FieldRole            LogicalField = "role"
	FieldEnergyCode      LogicalField = "energy_code"
	FieldEnergyType      LogicalField = "energy_type"
	FieldProvider        LogicalField = "provider"
	FieldContractEnd     LogicalField = "contract_end"
	FieldMonthlyBudget   LogicalField = "monthly_budget"
)

// synonyms lists, per logical field, the normalized header spellings seen in
// customer files. Keys on the right must already be in normalized form.
var synonyms = map[LogicalField][]string{
	FieldCompanyName:     {"company_name", "raison_sociale", "societe", "entreprise", "nom_societe"},
	FieldSiret:           {"siret", "numero_siret", "n_siret"},
	FieldAddress:         {"address", "adresse"},
	FieldPostalCode:      {"postal_code", "code_postal", "cp"},
	FieldCity:            {"city", "ville", "commune"},
	FieldPhone:           {"phone", "telephone", "tel", "telephone_fixe"},
	FieldMobile:          {"mobile", "portable", "telephone_mobile"},
	FieldEmail:           {"email", "mail", "e_mail", "adresse_email"},
	FieldCommercialEmail: {"commercial_email", "commercial", "email_commercial"},
	FieldFirstName:       {"first_name", "prenom"},
	FieldLastName:        {"last_name", "nom", "nom_contact"},
	FieldRole:            {"role", "fonction", "poste"},
	FieldEnergyCode:      {"energy_code", "pdl_pce", "pdl", "pce", "point_de_livraison"},
	FieldEnergyType:      {"energy_type", "type", "energie", "type_energie", "type_d_energie"},
	FieldProvider:        {"provider", "fournisseur"},
	FieldContractEnd:     {"contract_end", "echeance", "date_fin", "fin_de_contrat", "date_echeance"},
	FieldMonthlyBudget:   {"monthly_budget", "budget", "budget_mensuel", "montant_mensuel"},
}

var (
	fieldBySynonym = map[string]LogicalField{}
	logicalFields  = map[LogicalField]bool{}
)

func init() {
	for field, names := range synonyms {
		logicalFields[field] = true
		for _, name := range names {
			fieldBySynonym[name] = field
		}
	}
}

// transliterations maps accented letters to their closest ASCII base
// letters. Letters are mapped, never dropped: "é" becomes "e".
var transliterations = map[rune]string{
	'à': "a", 'á': "a", 'â': "a", 'ä': "a", 'ã': "a",
	'ç': "c",
	'è': "e", 'é': "e", 'ê': "e", 'ë': "e",
	'ì': "i", 'í': "i", 'î': "i", 'ï': "i",
	'ñ': "n",
	'ò': "o", 'ó': "o", 'ô': "o", 'ö': "o", 'õ': "o",
	'ù': "u", 'ú': "u", 'û': "u", 'ü': "u",
	'ý': "y", 'ÿ': "y",
	'œ': "oe", 'æ': "ae",
	'À': "a", 'Á': "a", 'Â': "a", 'Ä': "a", 'Ã': "a",
	'Ç': "c",
	'È': "e", 'É': "e", 'Ê': "e", 'Ë': "e",
	'Ì': "i", 'Í': "i", 'Î': "i", 'Ï': "i",
	'Ñ': "n",
	'Ò': "o", 'Ó': "o", 'Ô': "o", 'Ö': "o", 'Õ': "o",
	'Ù': "u", 'Ú': "u", 'Û': "u", 'Ü': "u",
	'Ý': "y",
	'Œ': "oe", 'Æ': "ae",
}

var separatorRun = regexp.MustCompile(`[^a-z0-9]+`)

// Normalize converts a raw header into its canonical key: lowercase,
// diacritics transliterated to ASCII, every run of whitespace and
// punctuation (including "/") collapsed to a single underscore. Separators
// are inserted at word boundaries, never removed: "PDL/PCE" -> "pdl_pce",
// "Échéance" -> "echeance". Idempotent.
func Normalize(raw string) string {
	lower := strings.ToLower(raw)

	var b strings.Builder
	b.Grow(len(lower))
	for _, r := range lower {
		if ascii, ok := transliterations[r]; ok {
			b.WriteString(ascii)
		} else {
			b.WriteRune(r)
		}
	}

	key := separatorRun.ReplaceAllString(b.String(), "_")
	return strings.Trim(key, "_")
}

// Field resolves a raw header to its logical field through the synonym
// table. The second return is false for unknown headers; that is not an
// error, the column is just not mapped.
func Field(raw string) (LogicalField, bool) {
	field, ok := fieldBySynonym[Normalize(raw)]
	return field, ok
}

// Fields holds one row's values keyed by canonical key: logical field names
// for recognized columns, normalized header keys for everything else.
type Fields map[string]string

// MapRow maps a raw row (cell values keyed by raw header) into Fields.
// Values are trimmed; a recognized column whose value is empty does not
// overwrite a non-empty value from a synonym column.
func MapRow(row map[string]string) Fields {
	fields := make(Fields, len(row))
	for rawHeader, value := range row {
		key := Normalize(rawHeader)
		if field, ok := fieldBySynonym[key]; ok {
			key = field
		}
		trimmed := strings.TrimSpace(value)
		if existing, ok := fields[key]; ok && existing != "" && trimmed == "" {
			continue
		}
		fields[key] = trimmed
	}
	return fields
}

// Get returns the value for a logical field, "" when absent.
func (f Fields) Get(field LogicalField) string {
	return f[field]
}

// Has reports whether the field is present and non-empty.
func (f Fields) Has(field LogicalField) bool {
	return f[field] != ""
}

// AllBlank reports whether every recognized logical field is empty. Unmapped
// passthrough columns do not count: a row carrying only unknown columns is
// still blank for import purposes.
func (f Fields) AllBlank() bool {
	for key, value := range f {
		if logicalFields[key] && value != "" {
			return false
		}
	}
	return true
}
