package storage

import (
	"fmt"

	"github.com/Alia5/padmap/buttonmap"
	"github.com/Alia5/padmap/device"
)

// document is the on-disk layout shared by every format.
type document struct {
	Device      *deviceHeader   `json:"device,omitempty" yaml:"device,omitempty" toml:"device,omitempty"`
	Controllers []controllerDoc `json:"controllers" yaml:"controllers" toml:"controllers"`
}

type deviceHeader struct {
	Name        string `json:"name" yaml:"name" toml:"name"`
	Provider    string `json:"provider" yaml:"provider" toml:"provider"`
	VendorID    string `json:"vid,omitempty" yaml:"vid,omitempty" toml:"vid,omitempty"`
	ProductID   string `json:"pid,omitempty" yaml:"pid,omitempty" toml:"pid,omitempty"`
	ButtonCount uint   `json:"buttons" yaml:"buttons" toml:"buttons"`
	HatCount    uint   `json:"hats" yaml:"hats" toml:"hats"`
	AxisCount   uint   `json:"axes" yaml:"axes" toml:"axes"`
	MotorCount  uint   `json:"motors" yaml:"motors" toml:"motors"`
}

type controllerDoc struct {
	ID       string       `json:"id" yaml:"id" toml:"id"`
	Features []featureDoc `json:"features" yaml:"features" toml:"features"`
}

type featureDoc struct {
	Name       string            `json:"name" yaml:"name" toml:"name"`
	Type       string            `json:"type" yaml:"type" toml:"type"`
	Primitives map[string]string `json:"primitives,omitempty" yaml:"primitives,omitempty" toml:"primitives,omitempty"`
}

func newHeader(info device.Info) *deviceHeader {
	h := &deviceHeader{
		Name:        info.Name,
		Provider:    info.Provider,
		ButtonCount: info.ButtonCount,
		HatCount:    info.HatCount,
		AxisCount:   info.AxisCount,
		MotorCount:  info.MotorCount,
	}
	if info.VendorID != 0 || info.ProductID != 0 {
		h.VendorID = fmt.Sprintf("%04x", info.VendorID)
		h.ProductID = fmt.Sprintf("%04x", info.ProductID)
	}
	return h
}

func encodeDocument(m buttonmap.ButtonMap, header *deviceHeader) (document, error) {
	doc := document{Device: header, Controllers: []controllerDoc{}}
	for _, id := range m.Profiles() {
		features := m[id]
		if len(features) == 0 {
			continue
		}
		c := controllerDoc{ID: id, Features: make([]featureDoc, 0, len(features))}
		for _, f := range features {
			fd := featureDoc{Name: f.Name, Type: f.Type.String(), Primitives: map[string]string{}}
			for i, slot := range f.Type.SlotNames() {
				p := f.Primitive(i)
				if p.IsUnknown() {
					continue
				}
				text, err := p.MarshalText()
				if err != nil {
					return document{}, fmt.Errorf("feature %s slot %s: %w", f.Name, slot, err)
				}
				fd.Primitives[slot] = string(text)
			}
			c.Features = append(c.Features, fd)
		}
		doc.Controllers = append(doc.Controllers, c)
	}
	return doc, nil
}

func decodeDocument(doc document) (buttonmap.ButtonMap, error) {
	m := buttonmap.ButtonMap{}
	for _, c := range doc.Controllers {
		if c.ID == "" {
			return nil, fmt.Errorf("%w: controller without id", ErrCorrupt)
		}
		features := make(buttonmap.FeatureVector, 0, len(c.Features))
		for _, fd := range c.Features {
			ft, err := buttonmap.ParseFeatureType(fd.Type)
			if err != nil {
				return nil, fmt.Errorf("%w: %s/%s: %w", ErrCorrupt, c.ID, fd.Name, err)
			}
			f := buttonmap.Feature{Name: fd.Name, Type: ft}
			for slot, text := range fd.Primitives {
				i, ok := ft.SlotIndex(slot)
				if !ok {
					return nil, fmt.Errorf("%w: %s/%s: no slot %q for %s", ErrCorrupt, c.ID, fd.Name, slot, ft)
				}
				p, err := buttonmap.ParsePrimitive(text)
				if err != nil {
					return nil, fmt.Errorf("%w: %s/%s: %w", ErrCorrupt, c.ID, fd.Name, err)
				}
				f.Primitives[i] = p
			}
			features = append(features, f)
		}
		m[c.ID] = append(m[c.ID], features...)
	}
	return m, nil
}
