package catalog

import (
	"encoding/xml"
	"fmt"

	"github.com/okian/meeple/internal/domain/model"
)

const (
	linkMechanic = "boardgamemechanic"
	linkCategory = "boardgamecategory"
	namePrimary  = "primary"
)

type thingResponse struct {
	Items []thingItem `xml:"item"`
}

type thingItem struct {
	Names  []typedValue `xml:"name"`
	Links  []typedValue `xml:"link"`
	Weight textValue    `xml:"statistics>ratings>averageweight"`
}

type typedValue struct {
	Type  string `xml:"type,attr"`
	Value string `xml:"value,attr"`
}

type textValue struct {
	Value string `xml:"value,attr"`
	Text  string `xml:",chardata"`
}

func (v textValue) String() string {
	if v.Value != "" {
		return v.Value
	}
	return v.Text
}

func parseThing(body []byte) (model.Detail, error) {
	var resp thingResponse
	if err := xml.Unmarshal(body, &resp); err != nil {
		return model.Detail{}, fmt.Errorf("decode: %w", err)
	}
	if len(resp.Items) == 0 {
		return model.Detail{}, ErrNoItem
	}
	item := resp.Items[0]

	name := primaryName(item.Names)
	if name == "" {
		return model.Detail{}, ErrNoPrimaryName
	}

	d := model.Detail{
		Name:       name,
		Mechanics:  []string{},
		Categories: []string{},
		Weight:     parseWeight(item.Weight.String()),
	}
	for _, l := range item.Links {
		switch l.Type {
		case linkMechanic:
			d.Mechanics = append(d.Mechanics, l.Value)
		case linkCategory:
			d.Categories = append(d.Categories, l.Value)
		}
	}
	return d, nil
}

// primaryName uses the only name when there is one, else the primary one.
func primaryName(names []typedValue) string {
	if len(names) == 1 {
		return names[0].Value
	}
	for _, n := range names {
		if n.Type == namePrimary {
			return n.Value
		}
	}
	return ""
}
