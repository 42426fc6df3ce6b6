package notion

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"instaplan/models"
)

// page is a database row as returned by the query endpoint
type page struct {
	Id         string            `json:"id"`
	Properties orderedProperties `json:"properties"`
}

func (p page) toRow() models.RawRow {
	return models.RawRow{Id: p.Id, Properties: p.Properties}
}

// orderedProperties decodes the properties object keeping the key order of
// the payload, which a map would lose.
type orderedProperties []models.Property

func (o *orderedProperties) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		*o = nil
		return nil
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("properties: expected object, got %v", tok)
	}

	props := make([]models.Property, 0)
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		name, ok := tok.(string)
		if !ok {
			return fmt.Errorf("properties: expected key, got %v", tok)
		}

		var value propertyValue
		if err := dec.Decode(&value); err != nil {
			return fmt.Errorf("properties: decoding %q: %w", name, err)
		}
		props = append(props, value.toProperty(name))
	}

	if _, err := dec.Token(); err != nil {
		return err
	}

	*o = props
	return nil
}

type richText struct {
	PlainText string `json:"plain_text"`
	Text      *struct {
		Content string `json:"content"`
	} `json:"text"`
}

type option struct {
	Name string `json:"name"`
}

type fileObject struct {
	Name string `json:"name"`
	Type string `json:"type"`
	File *struct {
		Url string `json:"url"`
	} `json:"file"`
	External *struct {
		Url string `json:"url"`
	} `json:"external"`
}

type propertyValue struct {
	Type        string       `json:"type"`
	Title       []richText   `json:"title"`
	RichText    []richText   `json:"rich_text"`
	Select      *option      `json:"select"`
	MultiSelect []option     `json:"multi_select"`
	Status      *option      `json:"status"`
	Files       []fileObject `json:"files"`
	Url         *string      `json:"url"`
	Date        *struct {
		Start string `json:"start"`
	} `json:"date"`
}

func (v propertyValue) toProperty(name string) models.Property {
	prop := models.Property{Name: name, Type: models.PropertyType(v.Type)}

	switch prop.Type {
	case models.PropertyTitle:
		prop.Text = joinText(v.Title)
	case models.PropertyRichText:
		prop.Text = joinText(v.RichText)
	case models.PropertySelect:
		if v.Select != nil {
			prop.Text = v.Select.Name
		}
	case models.PropertyStatus:
		if v.Status != nil {
			prop.Text = v.Status.Name
		}
	case models.PropertyMultiSelect:
		if len(v.MultiSelect) > 0 {
			prop.Text = v.MultiSelect[0].Name
		}
	case models.PropertyUrl:
		if v.Url != nil {
			prop.Text = *v.Url
		}
	case models.PropertyDate:
		if v.Date != nil {
			prop.Date = v.Date.Start
		}
	case models.PropertyFiles:
		prop.Files = make([]models.MediaRef, 0, len(v.Files))
		for _, f := range v.Files {
			ref := models.MediaRef{Name: f.Name}
			if f.File != nil {
				ref.FileUrl = f.File.Url
			}
			if f.External != nil {
				ref.ExternalUrl = f.External.Url
			}
			prop.Files = append(prop.Files, ref)
		}
	}

	return prop
}

func joinText(parts []richText) string {
	var sb strings.Builder
	for _, part := range parts {
		if part.PlainText != "" {
			sb.WriteString(part.PlainText)
		} else if part.Text != nil {
			sb.WriteString(part.Text.Content)
		}
	}
	return sb.String()
}
