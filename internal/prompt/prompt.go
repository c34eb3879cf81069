// Package prompt собирает инструкции для текстовой модели и дописывает промпты изображений.
// Все функции чистые: одинаковый вход дает одинаковый текст.
package prompt

import (
	"encoding/json"
	"fmt"
	"math"
	"strings"

	"carousel-server/internal/models"
)

// Prompt системная и пользовательская части запроса к текстовой модели.
type Prompt struct {
	System string
	User   string
}

// ReferenceEntry строка манифеста референсов. Сами изображения передаются вложениями.
type ReferenceEntry struct {
	Name string
	Role models.AssetRole
}

// Manifest манифест в том порядке, в котором изображения прикладываются к запросу.
func Manifest(refs []models.ReferenceImage) []ReferenceEntry {
	out := make([]ReferenceEntry, 0, len(refs))
	for _, r := range refs {
		out = append(out, ReferenceEntry{Name: r.Name, Role: r.Role})
	}
	return out
}

func percent(v float64) int {
	return int(math.Round(v * 100))
}

// DescribeRect прямоугольник в процентах холста.
func DescribeRect(r models.Rect) string {
	return fmt.Sprintf("x %d%% to %d%%, y %d%% to %d%%",
		percent(r.X), percent(r.X+r.W), percent(r.Y), percent(r.Y+r.H))
}

// regionName грубое словесное название области по ее центру.
func regionName(r models.Rect) string {
	cx, cy := r.X+r.W/2, r.Y+r.H/2
	vertical := "middle"
	switch {
	case cy < 0.34:
		vertical = "top"
	case cy > 0.66:
		vertical = "bottom"
	}
	horizontal := "center"
	switch {
	case cx < 0.34:
		horizontal = "left"
	case cx > 0.66:
		horizontal = "right"
	}
	if r.W >= 0.8 {
		return vertical + " band"
	}
	if vertical == "middle" && horizontal == "center" {
		return "center"
	}
	return vertical + "-" + horizontal
}

// DescribeSafeZones человекочитаемое описание спокойных областей изображения.
func DescribeSafeZones(zones []models.Rect) string {
	if len(zones) == 0 {
		return ""
	}
	parts := make([]string, 0, len(zones))
	for _, z := range zones {
		parts = append(parts, fmt.Sprintf("the %s (%s)", regionName(z), DescribeRect(z)))
	}
	return "Keep " + strings.Join(parts, " and ") +
		" visually calm: low detail, even tones, no focal subjects there, because text is overlaid on it."
}

func mustJSON(v any) string {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		// все типы ниже сериализуемы
		panic(err)
	}
	return string(b)
}

func writeSection(sb *strings.Builder, title, body string) {
	if strings.TrimSpace(body) == "" {
		return
	}
	sb.WriteString(title)
	sb.WriteString(":\n")
	sb.WriteString(strings.TrimRight(body, "\n"))
	sb.WriteString("\n\n")
}

func writeLayout(sb *strings.Builder, l models.Layout) {
	var b strings.Builder
	fmt.Fprintf(&b, "Layout id: %s\n", l.ID)
	fmt.Fprintf(&b, "Canvas: %dx%d px\n", l.Canvas.Width, l.Canvas.Height)
	for _, variant := range models.TextVariants {
		if z, ok := l.Zones[variant]; ok {
			fmt.Fprintf(&b, "Text zone %s: %s\n", variant, DescribeRect(z))
		}
	}
	if len(l.ImageSlots) == 0 {
		b.WriteString("Image slots: none, do not request images\n")
	}
	for _, s := range l.ImageSlots {
		fmt.Fprintf(&b, "Image slot %q (%s): %s\n", s.ID, s.Kind, DescribeRect(s.Bounds))
		for _, z := range s.SafeZones {
			fmt.Fprintf(&b, "  safe zone: %s\n", DescribeRect(z))
		}
	}
	writeSection(sb, "Layout", b.String())

	d := l.Defaults
	var s strings.Builder
	if d.Palette != nil {
		fmt.Fprintf(&s, "Palette: background %s, text %s, accent %s\n", d.Palette.Background, d.Palette.Text, d.Palette.Accent)
	}
	t := d.Typography
	if t.HeadingFont != "" || t.BodyFont != "" {
		fmt.Fprintf(&s, "Fonts: heading %s, body %s\n", t.HeadingFont, t.BodyFont)
	}
	if t.TitleSize > 0 {
		fmt.Fprintf(&s, "Sizes: title %dpx, body %dpx\n", t.TitleSize, t.BodySize)
	}
	if d.Overlay != nil {
		fmt.Fprintf(&s, "Overlay: %s at opacity %.2f\n", d.Overlay.Color, d.Overlay.Opacity)
	}
	writeSection(sb, "Style defaults", s.String())
}

func writeBrief(sb *strings.Builder, brief models.Brief) {
	var b strings.Builder
	if brief.Topic != "" {
		fmt.Fprintf(&b, "Topic: %s\n", brief.Topic)
	}
	if brief.Prompt != "" {
		fmt.Fprintf(&b, "Request: %s\n", brief.Prompt)
	}
	if brief.Tone != "" {
		fmt.Fprintf(&b, "Tone: %s\n", brief.Tone)
	}
	if brief.Audience != "" {
		fmt.Fprintf(&b, "Audience: %s\n", brief.Audience)
	}
	if brief.Language != "" {
		fmt.Fprintf(&b, "Language of all slide text: %s\n", brief.Language)
	}
	fmt.Fprintf(&b, "Slides: %d\n", brief.SlidesCount)
	if p := brief.Palette; p != nil {
		fmt.Fprintf(&b, "Requested palette: background %s, text %s, accent %s\n", p.Background, p.Text, p.Accent)
	}
	writeSection(sb, "Brief", b.String())
}
