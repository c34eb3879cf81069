package compositor

import (
	"math"
	"slices"
	"sort"
	"strconv"

	"carousel-server/internal/layout"
	"carousel-server/internal/models"
)

// MergeOptions настройки слияния плана со скелетом.
type MergeOptions struct {
	// KeepUnrequestedAssets сбрасывать assetId только у слотов, для которых план запросил новое изображение.
	KeepUnrequestedAssets bool
}

// FromScratch строит документ по плану. Одинаковый вход дает побайтно одинаковый документ.
func FromScratch(plan *models.PlannerOutput, l models.Layout, style ResolvedStyle) *models.Document {
	doc := &models.Document{
		Version: models.DocumentVersion,
		Global:  newGlobal(l, style),
		Slides:  make([]models.Slide, 0, len(plan.Slides)),
	}
	for _, sp := range sortedSlides(plan) {
		slide := models.Slide{
			ID:         models.SlideKey(sp.Index),
			Width:      l.Canvas.Width,
			Height:     l.Canvas.Height,
			Background: newBackground(style),
			Objects:    imageObjects(l),
		}
		for _, variant := range models.TextVariants {
			content := sp.Text.Field(variant)
			if content == "" {
				continue
			}
			slide.Objects = append(slide.Objects, textObject(variant, content, l, style))
		}
		doc.Slides = append(doc.Slides, slide)
	}
	return doc
}

// Merge накладывает план на существующий документ: число слайдов, id и геометрия объектов сохраняются.
// Текст перезаписывается, а пропавшие поля скрываются вместо удаления, чтобы не терять ручное позиционирование.
func Merge(skeleton *models.Document, plan *models.PlannerOutput, l models.Layout, style ResolvedStyle, opts MergeOptions) *models.Document {
	doc := skeleton.Clone()
	doc.Version = models.DocumentVersion
	doc.Global = newGlobal(l, style)

	byIndex := make(map[int]*models.SlidePlan, len(plan.Slides))
	for i := range plan.Slides {
		byIndex[plan.Slides[i].Index] = &plan.Slides[i]
	}

	for i := range doc.Slides {
		slide := &doc.Slides[i]
		sp := byIndex[i+1]
		slide.Background = newBackground(style)
		mergeText(slide, sp, l, style)
		mergeImages(slide, sp, l, opts)
	}
	return doc
}

func mergeText(slide *models.Slide, sp *models.SlidePlan, l models.Layout, style ResolvedStyle) {
	present := make(map[string]bool, len(models.TextVariants))
	for j := range slide.Objects {
		obj := &slide.Objects[j]
		if obj.Type != models.ObjectText {
			continue
		}
		variant := obj.Variant
		if variant == "" {
			variant = obj.ID
		}
		// Подписи шаблона вне полей плана (handle, номер слайда) остаются как есть
		if !slices.Contains(models.TextVariants, variant) {
			continue
		}
		content := ""
		if sp != nil {
			content = sp.Text.Field(variant)
		}
		present[variant] = true
		if content != "" {
			obj.Text = content
			obj.Hidden = false
		} else {
			obj.Text = ""
			obj.Hidden = true
		}
	}
	if sp == nil {
		return
	}
	for _, variant := range models.TextVariants {
		content := sp.Text.Field(variant)
		if content == "" || present[variant] {
			continue
		}
		obj := textObject(variant, content, l, style)
		obj.ID = uniqueID(slide, obj.ID)
		slide.Objects = append(slide.Objects, obj)
	}
}

func mergeImages(slide *models.Slide, sp *models.SlidePlan, l models.Layout, opts MergeOptions) {
	requested := map[string]bool{}
	if sp != nil {
		for _, req := range sp.Images {
			if req.SlotID != "" {
				requested[req.SlotID] = true
			}
		}
	}

	bound := map[string]bool{}
	for j := range slide.Objects {
		obj := &slide.Objects[j]
		if obj.Type != models.ObjectImage || obj.SlotID == "" {
			continue
		}
		if _, ok := l.Slot(obj.SlotID); !ok {
			// Слот исчез из шаблона: объект остается, но теряет привязку
			obj.SlotID = ""
			continue
		}
		bound[obj.SlotID] = true
		if opts.KeepUnrequestedAssets && !requested[obj.SlotID] {
			continue
		}
		obj.AssetID = nil
	}

	var missing []models.Object
	for _, obj := range imageObjects(l) {
		if bound[obj.SlotID] {
			continue
		}
		obj.ID = uniqueID(slide, obj.ID)
		missing = append(missing, obj)
	}
	if len(missing) > 0 {
		slide.Objects = append(missing, slide.Objects...)
	}
}

// CleanupPlaceholders удаляет привязанные к слотам изображения без ассета. Возвращает число удаленных объектов.
func CleanupPlaceholders(doc *models.Document) (*models.Document, int) {
	out := doc.Clone()
	removed := 0
	for i := range out.Slides {
		kept := out.Slides[i].Objects[:0]
		for _, obj := range out.Slides[i].Objects {
			if obj.Type == models.ObjectImage && obj.SlotID != "" && (obj.AssetID == nil || *obj.AssetID == "") {
				removed++
				continue
			}
			kept = append(kept, obj)
		}
		out.Slides[i].Objects = kept
	}
	return out, removed
}

func newGlobal(l models.Layout, style ResolvedStyle) models.DocumentGlobal {
	return models.DocumentGlobal{
		LayoutID:   l.ID,
		Layout:     l.Clone(),
		Palette:    style.Palette,
		Typography: style.Typography,
		Background: newBackground(style),
	}
}

func newBackground(style ResolvedStyle) models.Background {
	bg := models.Background{Color: style.Palette.Background}
	if style.Overlay != nil {
		o := *style.Overlay
		bg.Overlay = &o
	}
	return bg
}

// imageObjects незаполненные объекты для всех слотов шаблона, фоновые слоты первыми.
func imageObjects(l models.Layout) []models.Object {
	slots := make([]models.ImageSlot, len(l.ImageSlots))
	copy(slots, l.ImageSlots)
	sort.SliceStable(slots, func(i, j int) bool {
		return slots[i].Kind == models.SlotKindBackground && slots[j].Kind != models.SlotKindBackground
	})
	objs := make([]models.Object, 0, len(slots))
	for _, s := range slots {
		x, y, w, h := toPixels(s.Bounds, l.Canvas)
		objs = append(objs, models.Object{
			Type:   models.ObjectImage,
			ID:     models.ImageObjectID(s.ID),
			X:      x,
			Y:      y,
			Width:  w,
			Height: h,
			SlotID: s.ID,
		})
	}
	return objs
}

func textObject(variant, content string, l models.Layout, style ResolvedStyle) models.Object {
	x, y, w, h := toPixels(zoneRect(l, variant), l.Canvas)
	t := style.Typography
	obj := models.Object{
		Type:          models.ObjectText,
		ID:            variant,
		Variant:       variant,
		X:             x,
		Y:             y,
		Width:         w,
		Height:        h,
		Text:          content,
		FontFamily:    t.BodyFont,
		FontSize:      t.BodySize,
		FontWeight:    t.BodyWeight,
		Fill:          style.Palette.Text,
		Align:         t.Align,
		LineHeight:    t.LineHeight,
		LetterSpacing: t.LetterSpacing,
	}
	switch variant {
	case models.ZoneTitle:
		obj.FontFamily = t.HeadingFont
		obj.FontSize = t.TitleSize
		obj.FontWeight = max(t.TitleWeight, minTitleWeight)
		obj.Fill = style.Palette.Accent
	case models.ZoneTagline:
		obj.FontSize = int(math.Round(float64(t.BodySize) * 0.8))
	case models.ZoneCTA:
		obj.FontWeight = max(t.BodyWeight, 600)
	}
	return obj
}

// zoneRect зона шаблона или, если шаблон ее не объявил, зона шаблона по умолчанию.
func zoneRect(l models.Layout, variant string) models.Rect {
	if z, ok := l.Zones[variant]; ok && z.W > 0 && z.H > 0 {
		return z
	}
	return layout.Default().Zones[variant]
}

func toPixels(r models.Rect, c models.Canvas) (x, y, w, h float64) {
	cw, ch := float64(c.Width), float64(c.Height)
	return math.Round(r.X * cw), math.Round(r.Y * ch), math.Round(r.W * cw), math.Round(r.H * ch)
}

func uniqueID(slide *models.Slide, id string) string {
	if slide.Object(id) == nil {
		return id
	}
	for n := 2; ; n++ {
		candidate := id + "_" + strconv.Itoa(n)
		if slide.Object(candidate) == nil {
			return candidate
		}
	}
}

func sortedSlides(plan *models.PlannerOutput) []models.SlidePlan {
	slides := make([]models.SlidePlan, len(plan.Slides))
	copy(slides, plan.Slides)
	sort.SliceStable(slides, func(i, j int) bool { return slides[i].Index < slides[j].Index })
	return slides
}

// SlotSize размер слота в пикселях холста шаблона.
func SlotSize(l models.Layout, slot models.ImageSlot) (width, height int) {
	_, _, w, h := toPixels(slot.Bounds, l.Canvas)
	return int(w), int(h)
}
