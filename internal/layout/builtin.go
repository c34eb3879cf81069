package layout

import (
	"sort"

	"carousel-server/internal/models"
)

const (
	BuiltinPrefix = "builtin/"
	CustomPrefix  = "custom/"

	// DefaultLayoutID шаблон, на который резолвер откатывается при любой проблеме.
	DefaultLayoutID = "builtin/background-overlay"
)

var defaultCanvas = models.Canvas{Width: 1080, Height: 1350}

var defaultTypography = models.Typography{
	HeadingFont:   "Inter",
	BodyFont:      "Inter",
	TitleSize:     84,
	BodySize:      36,
	TitleWeight:   800,
	BodyWeight:    400,
	LineHeight:    1.2,
	LetterSpacing: 0,
	Align:         "left",
}

var builtins = map[string]models.Layout{
	DefaultLayoutID: {
		ID:     DefaultLayoutID,
		Name:   "Background with overlay",
		Canvas: defaultCanvas,
		Zones: map[string]models.Rect{
			models.ZoneTagline: {X: 0.08, Y: 0.10, W: 0.84, H: 0.06},
			models.ZoneTitle:   {X: 0.08, Y: 0.18, W: 0.84, H: 0.28},
			models.ZoneBody:    {X: 0.08, Y: 0.50, W: 0.84, H: 0.28},
			models.ZoneCTA:     {X: 0.08, Y: 0.84, W: 0.84, H: 0.08},
		},
		ImageSlots: []models.ImageSlot{{
			ID:        "background",
			Kind:      models.SlotKindBackground,
			Bounds:    models.Rect{X: 0, Y: 0, W: 1, H: 1},
			SafeZones: []models.Rect{{X: 0.05, Y: 0.08, W: 0.9, H: 0.42}},
		}},
		Defaults: models.LayoutDefaults{
			Typography: defaultTypography,
			Spacing:    models.Spacing{Padding: 86, Gap: 24},
			Overlay:    &models.Overlay{Color: "#000000", Opacity: 0.45},
			Palette:    &models.Palette{Background: "#111111", Text: "#FFFFFF", Accent: "#FFD60A"},
		},
	},
	"builtin/split-image": {
		ID:     "builtin/split-image",
		Name:   "Image on top, text below",
		Canvas: defaultCanvas,
		Zones: map[string]models.Rect{
			models.ZoneTagline: {X: 0.08, Y: 0.53, W: 0.84, H: 0.05},
			models.ZoneTitle:   {X: 0.08, Y: 0.59, W: 0.84, H: 0.15},
			models.ZoneBody:    {X: 0.08, Y: 0.75, W: 0.84, H: 0.13},
			models.ZoneCTA:     {X: 0.08, Y: 0.90, W: 0.84, H: 0.06},
		},
		ImageSlots: []models.ImageSlot{{
			ID:     "hero",
			Kind:   models.SlotKindSlot,
			Bounds: models.Rect{X: 0, Y: 0, W: 1, H: 0.5},
		}},
		Defaults: models.LayoutDefaults{
			Typography: defaultTypography,
			Spacing:    models.Spacing{Padding: 86, Gap: 20},
			Palette:    &models.Palette{Background: "#FAF7F2", Text: "#1D1D1F", Accent: "#E4572E"},
		},
	},
	"builtin/text-only": {
		ID:     "builtin/text-only",
		Name:   "Text only",
		Canvas: defaultCanvas,
		Zones: map[string]models.Rect{
			models.ZoneTagline: {X: 0.08, Y: 0.12, W: 0.84, H: 0.06},
			models.ZoneTitle:   {X: 0.08, Y: 0.20, W: 0.84, H: 0.30},
			models.ZoneBody:    {X: 0.08, Y: 0.52, W: 0.84, H: 0.28},
			models.ZoneCTA:     {X: 0.08, Y: 0.84, W: 0.84, H: 0.08},
		},
		Defaults: models.LayoutDefaults{
			Typography: defaultTypography,
			Spacing:    models.Spacing{Padding: 86, Gap: 24},
			Palette:    &models.Palette{Background: "#0B132B", Text: "#F5F5F5", Accent: "#5BC0BE"},
		},
	},
	"builtin/quote": {
		ID:     "builtin/quote",
		Name:   "Quote over image",
		Canvas: defaultCanvas,
		Zones: map[string]models.Rect{
			models.ZoneTitle: {X: 0.10, Y: 0.30, W: 0.80, H: 0.30},
			models.ZoneBody:  {X: 0.10, Y: 0.62, W: 0.80, H: 0.10},
		},
		ImageSlots: []models.ImageSlot{{
			ID:        "background",
			Kind:      models.SlotKindBackground,
			Bounds:    models.Rect{X: 0, Y: 0, W: 1, H: 1},
			SafeZones: []models.Rect{{X: 0.08, Y: 0.25, W: 0.84, H: 0.5}},
		}},
		Defaults: models.LayoutDefaults{
			Typography: models.Typography{
				HeadingFont: "Playfair Display", BodyFont: "Inter",
				TitleSize: 64, BodySize: 30, TitleWeight: 700, BodyWeight: 400,
				LineHeight: 1.3, Align: "center",
			},
			Spacing: models.Spacing{Padding: 96, Gap: 24},
			Overlay: &models.Overlay{Color: "#000000", Opacity: 0.55},
			Palette: &models.Palette{Background: "#1B1B1B", Text: "#FFFFFF", Accent: "#F4D35E"},
		},
	},
}

// Default копия шаблона по умолчанию.
func Default() models.Layout {
	return builtins[DefaultLayoutID].Clone()
}

// Builtin копия встроенного шаблона.
func Builtin(id string) (models.Layout, bool) {
	l, ok := builtins[id]
	if !ok {
		return models.Layout{}, false
	}
	return l.Clone(), true
}

// Builtins все встроенные шаблоны, отсортированные по id.
func Builtins() []models.Layout {
	out := make([]models.Layout, 0, len(builtins))
	for _, l := range builtins {
		out = append(out, l.Clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
