package compositor

import (
	"encoding/json"
	"testing"

	"carousel-server/internal/layout"
	"carousel-server/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func samplePlan() *models.PlannerOutput {
	return &models.PlannerOutput{
		Version: models.PlannerContractVersion,
		GlobalStyle: models.GlobalStyle{
			Palette:    models.Palette{Background: "#101820", Text: "#F2F2F2", Accent: "#FEE715"},
			Typography: models.Typography{HeadingFont: "Archivo", TitleSize: 90},
		},
		Slides: []models.SlidePlan{
			{Index: 2, Text: models.SlideText{Title: "Keep it short", Body: "Three sentences max."}},
			{Index: 1, Text: models.SlideText{Title: "Cold email tips", Tagline: "Get replies"},
				Images: []models.ImageRequest{{SlotID: "background", Prompt: "desk at dawn"}}},
		},
	}
}

func strPtr(s string) *string { return &s }

func TestFromScratch(t *testing.T) {
	l := layout.Default()
	plan := samplePlan()
	style := ResolveStyle(&plan.GlobalStyle, nil, l)

	doc := FromScratch(plan, l, style)
	require.Len(t, doc.Slides, 2)

	s1 := doc.Slides[0]
	assert.Equal(t, "slide_1", s1.ID)
	assert.Equal(t, 1080, s1.Width)
	assert.Equal(t, 1350, s1.Height)
	assert.Equal(t, "#101820", s1.Background.Color)
	require.NotNil(t, s1.Background.Overlay, "layout default overlay applied")

	img := s1.Object("image_background")
	require.NotNil(t, img)
	assert.Equal(t, models.ObjectImage, img.Type)
	assert.Equal(t, "background", img.SlotID)
	assert.Nil(t, img.AssetID)
	assert.Equal(t, 0, indexOf(s1, "image_background"), "background image stacked first")

	title := s1.Object("title")
	require.NotNil(t, title)
	assert.Equal(t, "Cold email tips", title.Text)
	assert.Equal(t, "#FEE715", title.Fill, "title uses accent")
	assert.Equal(t, "Archivo", title.FontFamily)
	assert.Equal(t, 90, title.FontSize)
	assert.GreaterOrEqual(t, title.FontWeight, 700)
	zone := l.Zones[models.ZoneTitle]
	assert.Equal(t, float64(86), title.X) // 0.08 * 1080 = 86.4
	assert.InDelta(t, zone.Y*1350, title.Y, 0.5)

	tagline := s1.Object("tagline")
	require.NotNil(t, tagline)
	assert.Equal(t, "#F2F2F2", tagline.Fill, "non-title text uses text color")

	assert.Nil(t, s1.Object("body"), "absent optional fields produce no object")
	assert.Nil(t, s1.Object("cta"))
	assert.NotNil(t, doc.Slides[1].Object("body"))
}

func TestFromScratch_Idempotent(t *testing.T) {
	l := layout.Default()
	plan := samplePlan()
	style := ResolveStyle(&plan.GlobalStyle, nil, l)

	a, err := json.Marshal(FromScratch(plan, l, style))
	require.NoError(t, err)
	b, err := json.Marshal(FromScratch(plan, l, style))
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func geometry(doc *models.Document) map[string][4]float64 {
	out := map[string][4]float64{}
	for _, s := range doc.Slides {
		for _, o := range s.Objects {
			out[s.ID+"/"+o.ID] = [4]float64{o.X, o.Y, o.Width, o.Height}
		}
	}
	return out
}

func editedSkeleton(t *testing.T) *models.Document {
	t.Helper()
	l := layout.Default()
	plan := samplePlan()
	doc := FromScratch(plan, l, ResolveStyle(&plan.GlobalStyle, nil, l))
	// Ручные правки пользователя: сдвиг заголовка, назначенные изображения, лишний объект
	doc.Slides[0].Object("title").X = 300
	doc.Slides[0].Object("title").Y = 40
	doc.Slides[0].Object("image_background").AssetID = strPtr("asset-1")
	doc.Slides[1].Object("image_background").AssetID = strPtr("asset-2")
	doc.Slides[1].Objects = append(doc.Slides[1].Objects, models.Object{
		Type: models.ObjectImage, ID: "sticker", X: 10, Y: 10, Width: 50, Height: 50, SlotID: "removed-slot", AssetID: strPtr("asset-3"),
	})
	return doc
}

func TestMerge_PreservesGeometryAndHidesAbsent(t *testing.T) {
	l := layout.Default()
	skeleton := editedSkeleton(t)
	before := geometry(skeleton)

	next := &models.PlannerOutput{
		Version: models.PlannerContractVersion,
		Slides: []models.SlidePlan{
			{Index: 1, Text: models.SlideText{Title: "New title", Body: "Now with body"}},
			{Index: 2, Text: models.SlideText{Title: "Second"}},
			{Index: 3, Text: models.SlideText{Title: "Dropped, skeleton has two slides"}},
		},
	}
	merged := Merge(skeleton, next, l, ResolveStyle(&next.GlobalStyle, &skeleton.Global, l), MergeOptions{})

	require.Len(t, merged.Slides, 2, "slide count comes from the skeleton")
	for key, g := range before {
		slideID, objID := splitKey(key)
		obj := slideByID(merged, slideID).Object(objID)
		require.NotNil(t, obj, key)
		assert.Equal(t, g, [4]float64{obj.X, obj.Y, obj.Width, obj.Height}, "geometry of %s must not change", key)
	}

	s1 := merged.Slides[0]
	assert.Equal(t, "New title", s1.Object("title").Text)
	assert.Equal(t, float64(300), s1.Object("title").X)
	tagline := s1.Object("tagline")
	assert.True(t, tagline.Hidden, "absent field is hidden, not deleted")
	assert.Empty(t, tagline.Text)
	body := s1.Object("body")
	require.NotNil(t, body, "new field gets an object from zone geometry")
	assert.Equal(t, "Now with body", body.Text)

	s2 := merged.Slides[1]
	assert.True(t, s2.Object("body").Hidden)
	assert.Nil(t, s1.Object("image_background").AssetID, "assets reset for slots still declared")
	assert.Nil(t, s2.Object("image_background").AssetID)

	sticker := s2.Object("sticker")
	assert.Empty(t, sticker.SlotID, "binding to a vanished slot is dropped")
	assert.Equal(t, "asset-3", *sticker.AssetID)

	assert.Equal(t, "asset-1", *skeleton.Slides[0].Object("image_background").AssetID, "input is not mutated")
}

func TestMerge_KeepUnrequestedAssets(t *testing.T) {
	l := layout.Default()
	skeleton := editedSkeleton(t)
	next := &models.PlannerOutput{
		Version: models.PlannerContractVersion,
		Slides: []models.SlidePlan{
			{Index: 1, Text: models.SlideText{Title: "A"}, Images: []models.ImageRequest{{SlotID: "background", Prompt: "new"}}},
			{Index: 2, Text: models.SlideText{Title: "B"}},
		},
	}
	merged := Merge(skeleton, next, l, ResolveStyle(nil, &skeleton.Global, l), MergeOptions{KeepUnrequestedAssets: true})
	assert.Nil(t, merged.Slides[0].Object("image_background").AssetID, "requested slot is reset")
	require.NotNil(t, merged.Slides[1].Object("image_background").AssetID)
	assert.Equal(t, "asset-2", *merged.Slides[1].Object("image_background").AssetID, "unrequested slot keeps the user's image")
}

func TestMerge_AddsMissingSlotObjects(t *testing.T) {
	textOnly, ok := layout.Builtin("builtin/text-only")
	require.True(t, ok)
	plan := samplePlan()
	skeleton := FromScratch(plan, textOnly, ResolveStyle(&plan.GlobalStyle, nil, textOnly))
	require.Nil(t, skeleton.Slides[0].Object("image_background"))

	l := layout.Default()
	merged := Merge(skeleton, plan, l, ResolveStyle(&plan.GlobalStyle, nil, l), MergeOptions{})
	img := merged.Slides[0].Object("image_background")
	require.NotNil(t, img)
	assert.Equal(t, "background", img.SlotID)
	assert.Equal(t, 0, indexOf(merged.Slides[0], "image_background"))
}

func TestMerge_LeavesTemplateLabelsAlone(t *testing.T) {
	l := layout.Default()
	skeleton := editedSkeleton(t)
	for i := range skeleton.Slides {
		skeleton.Slides[i].Objects = append(skeleton.Slides[i].Objects, models.Object{
			Type: models.ObjectText, ID: "handle", Variant: "handle", X: 86, Y: 1280, Width: 400, Height: 40,
			Text: "@brand swipe ->", FontSize: 24,
		})
	}

	next := &models.PlannerOutput{
		Version: models.PlannerContractVersion,
		Slides:  []models.SlidePlan{{Index: 1, Text: models.SlideText{Title: "Only a title"}}},
	}
	merged := Merge(skeleton, next, l, ResolveStyle(nil, &skeleton.Global, l), MergeOptions{})

	for _, slide := range merged.Slides {
		handle := slide.Object("handle")
		require.NotNil(t, handle, slide.ID)
		assert.Equal(t, "@brand swipe ->", handle.Text, slide.ID)
		assert.False(t, handle.Hidden, slide.ID)
	}
	assert.Equal(t, "Only a title", merged.Slides[0].Object("title").Text)
	assert.True(t, merged.Slides[0].Object("tagline").Hidden)
}

func TestResolveStyle_Precedence(t *testing.T) {
	l := layout.Default()
	skeleton := &models.DocumentGlobal{
		Palette:    models.Palette{Background: "#222222", Text: "#EEEEEE"},
		Typography: models.Typography{BodyFont: "Lora", BodySize: 40},
		Background: models.Background{Overlay: &models.Overlay{Color: "#333333", Opacity: 0.2}},
	}
	draft := &models.GlobalStyle{Palette: models.Palette{Background: "#000000"}, Typography: models.Typography{BodySize: 44}}

	style := ResolveStyle(draft, skeleton, l)
	assert.Equal(t, "#000000", style.Palette.Background, "draft wins")
	assert.Equal(t, "#EEEEEE", style.Palette.Text, "then skeleton")
	assert.Equal(t, "#FFD60A", style.Palette.Accent, "then layout default")
	assert.Equal(t, 44, style.Typography.BodySize)
	assert.Equal(t, "Lora", style.Typography.BodyFont)
	assert.Equal(t, "Inter", style.Typography.HeadingFont)
	require.NotNil(t, style.Overlay)
	assert.Equal(t, "#333333", style.Overlay.Color, "skeleton overlay beats layout default")

	bare := ResolveStyle(nil, nil, models.Layout{})
	assert.Equal(t, hardPalette, bare.Palette, "built-in values close the chain")
	assert.Equal(t, hardTypography.TitleWeight, bare.Typography.TitleWeight)
	assert.Nil(t, bare.Overlay)
}

func TestCleanupPlaceholders(t *testing.T) {
	doc := editedSkeleton(t)
	doc.Slides[1].Object("image_background").AssetID = nil

	cleaned, removed := CleanupPlaceholders(doc)
	assert.Equal(t, 1, removed)
	assert.Nil(t, cleaned.Slides[1].Object("image_background"))
	assert.NotNil(t, cleaned.Slides[0].Object("image_background"))
	assert.NotNil(t, doc.Slides[1].Object("image_background"), "input untouched")
}

func indexOf(s models.Slide, id string) int {
	for i, o := range s.Objects {
		if o.ID == id {
			return i
		}
	}
	return -1
}

func splitKey(key string) (string, string) {
	for i := 0; i < len(key); i++ {
		if key[i] == '/' {
			return key[:i], key[i+1:]
		}
	}
	return key, ""
}

func slideByID(doc *models.Document, id string) *models.Slide {
	for i := range doc.Slides {
		if doc.Slides[i].ID == id {
			return &doc.Slides[i]
		}
	}
	return nil
}
