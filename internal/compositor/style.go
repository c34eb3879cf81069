package compositor

import "carousel-server/internal/models"

// Последний уровень цепочки fallback, если ни план, ни скелет, ни шаблон не задали значение.
var (
	hardPalette = models.Palette{Background: "#111111", Text: "#FFFFFF", Accent: "#FFD60A"}

	hardTypography = models.Typography{
		HeadingFont: "Inter",
		BodyFont:    "Inter",
		TitleSize:   80,
		BodySize:    36,
		TitleWeight: 800,
		BodyWeight:  400,
		LineHeight:  1.2,
		Align:       "left",
	}

	hardSpacing = models.Spacing{Padding: 80, Gap: 24}
)

// minTitleWeight заголовок всегда жирный.
const minTitleWeight = 700

// ResolvedStyle итоговый стиль документа после разрешения fallback цепочки.
type ResolvedStyle struct {
	Palette    models.Palette
	Typography models.Typography
	Spacing    models.Spacing
	Overlay    *models.Overlay
}

// ResolveStyle разрешает стиль по полям в порядке: план модели, скелет, умолчания шаблона, встроенные значения.
func ResolveStyle(draft *models.GlobalStyle, skeleton *models.DocumentGlobal, layout models.Layout) ResolvedStyle {
	var (
		draftPalette, skeletonPalette, layoutPalette models.Palette
		draftTypo, skeletonTypo                      models.Typography
		draftSpacing                                 models.Spacing
		overlay                                      *models.Overlay
	)
	if draft != nil {
		draftPalette = draft.Palette
		draftTypo = draft.Typography
		draftSpacing = draft.Spacing
		overlay = draft.Overlay
	}
	if skeleton != nil {
		skeletonPalette = skeleton.Palette
		skeletonTypo = skeleton.Typography
		if overlay == nil {
			overlay = skeleton.Background.Overlay
		}
	}
	if layout.Defaults.Palette != nil {
		layoutPalette = *layout.Defaults.Palette
	}
	if overlay == nil {
		overlay = layout.Defaults.Overlay
	}

	style := ResolvedStyle{
		Palette: models.Palette{
			Background: firstString(draftPalette.Background, skeletonPalette.Background, layoutPalette.Background, hardPalette.Background),
			Text:       firstString(draftPalette.Text, skeletonPalette.Text, layoutPalette.Text, hardPalette.Text),
			Accent:     firstString(draftPalette.Accent, skeletonPalette.Accent, layoutPalette.Accent, hardPalette.Accent),
		},
		Typography: mergeTypography(draftTypo, skeletonTypo, layout.Defaults.Typography, hardTypography),
		Spacing: models.Spacing{
			Padding: firstInt(draftSpacing.Padding, layout.Defaults.Spacing.Padding, hardSpacing.Padding),
			Gap:     firstInt(draftSpacing.Gap, layout.Defaults.Spacing.Gap, hardSpacing.Gap),
		},
	}
	if overlay != nil {
		o := *overlay
		style.Overlay = &o
	}
	return style
}

func mergeTypography(levels ...models.Typography) models.Typography {
	var out models.Typography
	for _, t := range levels {
		out.HeadingFont = firstString(out.HeadingFont, t.HeadingFont)
		out.BodyFont = firstString(out.BodyFont, t.BodyFont)
		out.TitleSize = firstInt(out.TitleSize, t.TitleSize)
		out.BodySize = firstInt(out.BodySize, t.BodySize)
		out.TitleWeight = firstInt(out.TitleWeight, t.TitleWeight)
		out.BodyWeight = firstInt(out.BodyWeight, t.BodyWeight)
		out.LineHeight = firstFloat(out.LineHeight, t.LineHeight)
		out.Align = firstString(out.Align, t.Align)
	}
	// 0 валидное межбуквенное расстояние, поэтому берется только из первого уровня, где оно задано ненулевым
	for _, t := range levels {
		if t.LetterSpacing != 0 {
			out.LetterSpacing = t.LetterSpacing
			break
		}
	}
	return out
}

func firstString(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}

func firstInt(vals ...int) int {
	for _, v := range vals {
		if v != 0 {
			return v
		}
	}
	return 0
}

func firstFloat(vals ...float64) float64 {
	for _, v := range vals {
		if v != 0 {
			return v
		}
	}
	return 0
}
