package prompt

import (
	"fmt"
	"strings"

	"carousel-server/internal/models"
)

// FirstDraftInput вход для первого черновика.
type FirstDraftInput struct {
	Brief                 models.Brief
	Layout                models.Layout
	AuthoringInstructions string
	References            []ReferenceEntry
	StyleSimilarity       int
	// SlidesCount число слайдов существующего скелета. Если больше нуля, заменяет Brief.SlidesCount.
	SlidesCount int
}

const plannerSystem = `You are a senior social media designer and copywriter.
You plan multi-slide carousels and answer with exactly one JSON object and nothing else.`

// plannerExample пример контракта. Сериализуется из тех же типов, которые потом проверяются.
func plannerExample() models.PlannerOutput {
	return models.PlannerOutput{
		Version: models.PlannerContractVersion,
		GlobalStyle: models.GlobalStyle{
			Palette:    models.Palette{Background: "#0F172A", Text: "#F8FAFC", Accent: "#F59E0B"},
			Typography: models.Typography{HeadingFont: "Inter", BodyFont: "Inter", TitleSize: 84, BodySize: 36, TitleWeight: 800, BodyWeight: 400},
			Spacing:    models.Spacing{Padding: 64, Gap: 24},
			Overlay:    &models.Overlay{Color: "#000000", Opacity: 0.4},
			LayoutID:   "builtin/background-overlay",
		},
		Slides: []models.SlidePlan{
			{
				Index: 1,
				Text:  models.SlideText{Title: "Short hook title", Tagline: "Optional supporting line"},
				Images: []models.ImageRequest{{
					SlotID:       "background",
					Purpose:      "mood background",
					Prompt:       "Top-down photo of a tidy wooden desk with a laptop, soft morning light",
					ContainsText: false,
					AspectRatio:  "4:5",
					StyleHints:   []string{"editorial photography"},
					Avoid:        []string{"people's faces"},
				}},
			},
			{
				Index: 2,
				Text:  models.SlideText{Title: "Second point", Body: "One or two short sentences.", CTA: "Save this post"},
			},
		},
	}
}

func plannerRules(slides int) string {
	rules := []string{
		fmt.Sprintf("Produce exactly %d slides with indices 1 to %d, in order, each index used once.", slides, slides),
		fmt.Sprintf("Set \"version\" to %d.", models.PlannerContractVersion),
		"Use only the keys shown in the example. Unknown keys make the answer invalid.",
		"Every slide needs a non-empty title. Omit tagline, body or cta when the slide does not need them.",
		"Colors are hex strings like #1A2B3C. Overlay opacity is between 0 and 0.95.",
		"Image prompts describe the picture only. Never include drawing instructions such as boxes, guides, blur regions, arrows, grids or coordinates inside an image prompt.",
		"Set containsText to true only when the picture itself must show legible words. Otherwise it is false and the image will contain no text.",
		"Bind an image to a layout slot with slotId when the layout has slots. Keep requested safe zones calm.",
		"Aspect ratio, when given, is one of 1:1, 4:5, 3:4, 9:16, 16:9, 4:3.",
	}
	var b strings.Builder
	for i, r := range rules {
		fmt.Fprintf(&b, "%d. %s\n", i+1, r)
	}
	return b.String()
}

func writeReferences(sb *strings.Builder, refs []ReferenceEntry, similarity int) {
	if len(refs) == 0 {
		return
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%d reference images are attached in this order.\n", len(refs))
	for i, r := range refs {
		fmt.Fprintf(&b, "%d. %q, role %s\n", i+1, r.Name, r.Role)
	}
	fmt.Fprintf(&b, "Style similarity: %d/100. ", similarity)
	switch {
	case similarity >= 70:
		b.WriteString("Follow the style references closely in palette, lighting and composition.\n")
	case similarity >= 30:
		b.WriteString("Borrow the overall mood of the style references but keep your own composition.\n")
	default:
		b.WriteString("Use the style references only as loose inspiration.\n")
	}
	b.WriteString("Content references show subjects that should appear in the image prompts.\n")
	writeSection(sb, "References", b.String())
}

// FirstDraft промпт первого черновика.
func FirstDraft(in FirstDraftInput) Prompt {
	brief := in.Brief
	if in.SlidesCount > 0 {
		brief.SlidesCount = in.SlidesCount
	}
	var sb strings.Builder
	writeBrief(&sb, brief)
	writeLayout(&sb, in.Layout)
	writeSection(&sb, "Authoring instructions", in.AuthoringInstructions)
	writeReferences(&sb, in.References, in.StyleSimilarity)
	writeSection(&sb, "Rules", plannerRules(brief.SlidesCount))
	writeSection(&sb, "Example of the exact answer shape", mustJSON(plannerExample()))
	return Prompt{System: plannerSystem, User: strings.TrimSpace(sb.String())}
}

// AestheticReview промпт второго прохода: только визуальная доводка без смены содержания.
func AestheticReview(brief models.Brief, l models.Layout, plan *models.PlannerOutput) Prompt {
	var sb strings.Builder
	writeBrief(&sb, brief)
	writeLayout(&sb, l)
	writeSection(&sb, "Current plan", mustJSON(plan))

	rules := []string{
		"Review the current plan for legibility and safe-zone respect and return the full revised plan in the same JSON shape.",
		"You may change only the palette, the overlay, image prompts and the length of texts (trimming).",
		"Do not change the meaning of any text, do not add new facts, do not add or remove slides and do not change slide indices.",
		"Make sure text color contrasts with the background and overlay.",
		"Image prompts must keep the safe zones calm and must not contain drawing instructions or coordinates.",
		"Use only the documented keys. If nothing needs to change, return the current plan unchanged.",
	}
	var b strings.Builder
	for i, r := range rules {
		fmt.Fprintf(&b, "%d. %s\n", i+1, r)
	}
	writeSection(&sb, "Rules", b.String())
	return Prompt{System: plannerSystem, User: strings.TrimSpace(sb.String())}
}
