package models

// PropertyType is the value type of a source column
type PropertyType string

const (
	PropertyTitle       PropertyType = "title"
	PropertyRichText    PropertyType = "rich_text"
	PropertySelect      PropertyType = "select"
	PropertyMultiSelect PropertyType = "multi_select"
	PropertyStatus      PropertyType = "status"
	PropertyFiles       PropertyType = "files"
	PropertyDate        PropertyType = "date"
	PropertyUrl         PropertyType = "url"
)

// MediaRef points to one attached file. Hosted files win over external links.
type MediaRef struct {
	Name        string `json:"name,omitempty"`
	FileUrl     string `json:"fileUrl,omitempty"`
	ExternalUrl string `json:"externalUrl,omitempty"`
}

// Url returns the hosted url, falling back to the external one
func (m MediaRef) Url() string {
	if m.FileUrl != "" {
		return m.FileUrl
	}
	return m.ExternalUrl
}

// Property is one typed column value of a row
type Property struct {
	Name  string
	Type  PropertyType
	Text  string
	Date  string
	Files []MediaRef
}

// RawRow is an unprocessed source record. Properties keep the order in
// which the source enumerated its columns.
type RawRow struct {
	Id         string
	Properties []Property
}

// Lookup returns the property with the exact column name
func (r RawRow) Lookup(name string) (Property, bool) {
	for _, p := range r.Properties {
		if p.Name == name {
			return p, true
		}
	}
	return Property{}, false
}
