package models

import "slices"

// Rect прямоугольник в долях холста или слота, все значения в [0,1].
type Rect struct {
	X float64 `json:"x" validate:"gte=0,lte=1"`
	Y float64 `json:"y" validate:"gte=0,lte=1"`
	W float64 `json:"w" validate:"gt=0,lte=1"`
	H float64 `json:"h" validate:"gt=0,lte=1"`
}

// Fits проверяет, что прямоугольник не выходит за единичный квадрат.
func (r Rect) Fits() bool {
	const eps = 1e-9
	return r.X >= 0 && r.Y >= 0 && r.W > 0 && r.H > 0 && r.X+r.W <= 1+eps && r.Y+r.H <= 1+eps
}

// Names of text zones. They double as text object ids and variants.
const (
	ZoneTitle   = "title"
	ZoneTagline = "tagline"
	ZoneBody    = "body"
	ZoneCTA     = "cta"
)

// TextVariants порядок, в котором текстовые объекты выводятся на слайд.
var TextVariants = []string{ZoneTitle, ZoneTagline, ZoneBody, ZoneCTA}

type SlotKind string

const (
	SlotKindBackground SlotKind = "background"
	SlotKindSlot       SlotKind = "slot"
)

// ImageSlot место под изображение. Safe zones заданы относительно самого слота.
type ImageSlot struct {
	ID        string   `json:"id"`
	Kind      SlotKind `json:"kind"`
	Bounds    Rect     `json:"bounds"`
	SafeZones []Rect   `json:"safeZones,omitempty"`
}

type Canvas struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

// Typography нулевые значения означают "не задано" и участвуют в цепочке fallback.
type Typography struct {
	HeadingFont   string  `json:"headingFont,omitempty" validate:"omitempty,max=80"`
	BodyFont      string  `json:"bodyFont,omitempty" validate:"omitempty,max=80"`
	TitleSize     int     `json:"titleSize,omitempty" validate:"omitempty,gte=8,lte=400"`
	BodySize      int     `json:"bodySize,omitempty" validate:"omitempty,gte=8,lte=400"`
	TitleWeight   int     `json:"titleWeight,omitempty" validate:"omitempty,gte=100,lte=900"`
	BodyWeight    int     `json:"bodyWeight,omitempty" validate:"omitempty,gte=100,lte=900"`
	LineHeight    float64 `json:"lineHeight,omitempty" validate:"omitempty,gte=0.8,lte=3"`
	LetterSpacing float64 `json:"letterSpacing,omitempty" validate:"omitempty,gte=-5,lte=20"`
	Align         string  `json:"align,omitempty" validate:"omitempty,oneof=left center right"`
}

type Spacing struct {
	Padding int `json:"padding,omitempty" validate:"omitempty,gte=0,lte=400"`
	Gap     int `json:"gap,omitempty" validate:"omitempty,gte=0,lte=400"`
}

// Overlay затемнение поверх фонового изображения.
type Overlay struct {
	Color   string  `json:"color" validate:"required,hexcolor"`
	Opacity float64 `json:"opacity" validate:"gte=0,lte=0.95"`
}

// Palette три цвета документа.
type Palette struct {
	Background string `json:"background" validate:"required,hexcolor"`
	Text       string `json:"text" validate:"required,hexcolor"`
	Accent     string `json:"accent" validate:"required,hexcolor"`
}

type LayoutDefaults struct {
	Typography Typography `json:"typography"`
	Spacing    Spacing    `json:"spacing"`
	Overlay    *Overlay   `json:"overlay,omitempty"`
	Palette    *Palette   `json:"palette,omitempty"`
}

// Layout нормализованное описание шаблона.
type Layout struct {
	ID         string          `json:"id"`
	Name       string          `json:"name"`
	Canvas     Canvas          `json:"canvas"`
	Zones      map[string]Rect `json:"zones"`
	ImageSlots []ImageSlot     `json:"imageSlots"`
	Defaults   LayoutDefaults  `json:"defaults"`
}

// Slot ищет слот по id.
func (l Layout) Slot(id string) (ImageSlot, bool) {
	for _, s := range l.ImageSlots {
		if s.ID == id {
			return s, true
		}
	}
	return ImageSlot{}, false
}

// Clone глубокая копия, резолвер отдает только копии.
func (l Layout) Clone() Layout {
	out := l
	if l.Zones != nil {
		out.Zones = make(map[string]Rect, len(l.Zones))
		for k, v := range l.Zones {
			out.Zones[k] = v
		}
	}
	if l.ImageSlots != nil {
		out.ImageSlots = make([]ImageSlot, len(l.ImageSlots))
		for i, s := range l.ImageSlots {
			s.SafeZones = slices.Clone(s.SafeZones)
			out.ImageSlots[i] = s
		}
	}
	if l.Defaults.Overlay != nil {
		o := *l.Defaults.Overlay
		out.Defaults.Overlay = &o
	}
	if l.Defaults.Palette != nil {
		p := *l.Defaults.Palette
		out.Defaults.Palette = &p
	}
	return out
}

// ResolvedLayout результат резолвера шаблонов.
type ResolvedLayout struct {
	Layout                Layout
	AuthoringInstructions string
	VisualSkeleton        *Document
	Source                string
	Fallback              bool
	FallbackReason        string
}

type LayoutKind string

const (
	LayoutKindLayout LayoutKind = "layout"
	LayoutKindVisual LayoutKind = "visual"
)

// VisualLayoutPayload хранимая запись вида visual.
type VisualLayoutPayload struct {
	Layout       Layout    `json:"layout"`
	Skeleton     *Document `json:"skeleton,omitempty"`
	Instructions string    `json:"instructions,omitempty"`
}
