package models

import (
	"fmt"
	"slices"
)

// DocumentVersion версия формата состояния редактора.
const DocumentVersion = 1

type ObjectType string

const (
	ObjectText  ObjectType = "text"
	ObjectImage ObjectType = "image"
)

// Document состояние холста: глобальный блок и слайды.
type Document struct {
	Version int            `json:"version"`
	Global  DocumentGlobal `json:"global"`
	Slides  []Slide        `json:"slides"`
}

type DocumentGlobal struct {
	LayoutID   string     `json:"layoutId"`
	Layout     Layout     `json:"layout"`
	Palette    Palette    `json:"palette"`
	Typography Typography `json:"typography"`
	Background Background `json:"background"`
}

type Background struct {
	Color   string   `json:"color"`
	Overlay *Overlay `json:"overlay,omitempty"`
}

type Slide struct {
	ID         string     `json:"id"`
	Width      int        `json:"width"`
	Height     int        `json:"height"`
	Background Background `json:"background"`
	Objects    []Object   `json:"objects"`
}

// Object объединение text и image, различается по Type.
type Object struct {
	Type   ObjectType `json:"type"`
	ID     string     `json:"id"`
	X      float64    `json:"x"`
	Y      float64    `json:"y"`
	Width  float64    `json:"width"`
	Height float64    `json:"height"`
	Hidden bool       `json:"hidden"`

	// text
	Variant       string  `json:"variant,omitempty"`
	Text          string  `json:"text,omitempty"`
	FontFamily    string  `json:"fontFamily,omitempty"`
	FontSize      int     `json:"fontSize,omitempty"`
	FontWeight    int     `json:"fontWeight,omitempty"`
	Fill          string  `json:"fill,omitempty"`
	Align         string  `json:"align,omitempty"`
	LineHeight    float64 `json:"lineHeight,omitempty"`
	LetterSpacing float64 `json:"letterSpacing,omitempty"`

	// image
	SlotID  string  `json:"slotId,omitempty"`
	AssetID *string `json:"assetId,omitempty"`
}

// SlideKey ключ слайда в наборе блокировок, индекс с единицы.
func SlideKey(index int) string {
	return fmt.Sprintf("slide_%d", index)
}

// ImageObjectID id объекта изображения, привязанного к слоту.
func ImageObjectID(slotID string) string {
	return "image_" + slotID
}

// Object возвращает указатель на объект слайда по id.
func (s *Slide) Object(id string) *Object {
	for i := range s.Objects {
		if s.Objects[i].ID == id {
			return &s.Objects[i]
		}
	}
	return nil
}

// SlideAt слайд по индексу с единицы.
func (d *Document) SlideAt(index int) *Slide {
	if index < 1 || index > len(d.Slides) {
		return nil
	}
	return &d.Slides[index-1]
}

// AssetIDs все ссылки на ассеты в документе, в порядке появления.
func (d *Document) AssetIDs() []string {
	var ids []string
	for _, s := range d.Slides {
		for _, o := range s.Objects {
			if o.AssetID != nil && *o.AssetID != "" {
				ids = append(ids, *o.AssetID)
			}
		}
	}
	return ids
}

// Clone глубокая копия документа.
func (d *Document) Clone() *Document {
	if d == nil {
		return nil
	}
	out := *d
	out.Global.Layout = d.Global.Layout.Clone()
	out.Global.Background = d.Global.Background.clone()
	out.Slides = make([]Slide, len(d.Slides))
	for i, s := range d.Slides {
		s.Background = s.Background.clone()
		s.Objects = slices.Clone(s.Objects)
		for j := range s.Objects {
			if id := s.Objects[j].AssetID; id != nil {
				v := *id
				s.Objects[j].AssetID = &v
			}
		}
		out.Slides[i] = s
	}
	return &out
}

func (b Background) clone() Background {
	if b.Overlay != nil {
		o := *b.Overlay
		b.Overlay = &o
	}
	return b
}
