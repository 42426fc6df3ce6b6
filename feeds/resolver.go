package feeds

import (
	"strings"

	"instaplan/models"
)

// Field is a semantic slot of the post model that a source column can fill
type Field string

const (
	FieldTitle   Field = "title"
	FieldDate    Field = "date"
	FieldMedia   Field = "media"
	FieldCaption Field = "caption"
	FieldType    Field = "type"
	FieldStatus  Field = "status"
	FieldAccount Field = "account"
)

// FieldSpec maps a semantic field to the column names and value types that may carry it
type FieldSpec struct {
	Field Field
	// Name fragments, matched case-insensitively by containment in either direction
	Fragments []string
	// Value types accepted when no column name matches. Fields sharing a
	// value type with another field leave this empty.
	Types []models.PropertyType
}

// DefaultFields covers the English and French column names seen in content calendars
var DefaultFields = []FieldSpec{
	{
		Field:     FieldTitle,
		Fragments: []string{"titre", "title", "name", "nom", "post"},
		Types:     []models.PropertyType{models.PropertyTitle},
	},
	{
		Field:     FieldDate,
		Fragments: []string{"date", "published", "publish", "publication"},
		Types:     []models.PropertyType{models.PropertyDate},
	},
	{
		Field:     FieldMedia,
		Fragments: []string{"couverture", "contenu", "content", "media", "média", "files", "fichiers", "images", "image", "cover"},
		Types:     []models.PropertyType{models.PropertyFiles},
	},
	{
		Field:     FieldCaption,
		Fragments: []string{"caption", "légende", "legende", "description", "texte", "text"},
		Types:     []models.PropertyType{models.PropertyRichText},
	},
	{
		Field:     FieldType,
		Fragments: []string{"type", "category", "catégorie", "categorie", "format"},
	},
	{
		Field:     FieldStatus,
		Fragments: []string{"statut", "status", "état", "etat"},
		Types:     []models.PropertyType{models.PropertyStatus},
	},
	{
		Field:     FieldAccount,
		Fragments: []string{"compte", "account", "instagram"},
	},
}

// Resolver finds the column carrying each semantic field of a row
type Resolver struct {
	specs map[Field]FieldSpec
}

// NewResolver builds a resolver from a field table. Without specs the
// default table is used.
func NewResolver(specs ...FieldSpec) *Resolver {
	if len(specs) == 0 {
		specs = DefaultFields
	}
	r := &Resolver{specs: make(map[Field]FieldSpec, len(specs))}
	for _, spec := range specs {
		r.specs[spec.Field] = spec
	}
	return r
}

// Resolve returns the property filling field, or false when the row has none
func (r *Resolver) Resolve(row models.RawRow, field Field) (models.Property, bool) {
	spec, ok := r.specs[field]
	if !ok {
		return models.Property{}, false
	}
	return Resolve(row, spec)
}

// Resolve matches column names against the field fragments first, then falls
// back to the first column of an accepted type. Ties go to the column the
// row enumerates first.
func Resolve(row models.RawRow, spec FieldSpec) (models.Property, bool) {
	for _, prop := range row.Properties {
		if nameMatches(prop.Name, spec.Fragments) {
			return prop, true
		}
	}
	for _, prop := range row.Properties {
		for _, t := range spec.Types {
			if prop.Type == t {
				return prop, true
			}
		}
	}
	return models.Property{}, false
}

func nameMatches(column string, fragments []string) bool {
	name := strings.ToLower(strings.TrimSpace(column))
	if name == "" {
		return false
	}
	for _, fragment := range fragments {
		fragment = strings.ToLower(fragment)
		if strings.Contains(name, fragment) || strings.Contains(fragment, name) {
			return true
		}
	}
	return false
}
