package editpatch_test

import (
	"encoding/json"
	"fmt"
	"strings"
	"testing"

	"carousel-server/internal/editpatch"
	"carousel-server/internal/models"
	"carousel-server/internal/schemas"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ptr[T any](v T) *T { return &v }

func testDocument(slides int) *models.Document {
	doc := &models.Document{Version: models.DocumentVersion}
	for i := 1; i <= slides; i++ {
		doc.Slides = append(doc.Slides, models.Slide{
			ID:     models.SlideKey(i),
			Width:  1080,
			Height: 1350,
			Objects: []models.Object{
				{Type: models.ObjectImage, ID: "image_background", Width: 1080, Height: 1350, SlotID: "background"},
				{Type: models.ObjectText, ID: "title", Variant: "title", X: 86, Y: 135, Width: 907, Height: 270,
					Text: "Title", FontWeight: 700, FontSize: 84},
				{Type: models.ObjectText, ID: "body", Variant: "body", X: 86, Y: 540, Width: 907, Height: 400,
					Text: strings.Repeat("long body ", 20), FontWeight: 400, FontSize: 36},
			},
		})
	}
	return doc
}

func boldAllTitles(slides int) *models.EditPatch {
	p := &models.EditPatch{Summary: "Made titles bolder"}
	for i := 1; i <= slides; i++ {
		p.Operations = append(p.Operations, models.PatchOperation{
			Op: models.OpSetStyle, SlideIndex: i, ObjectID: "title",
			Style: &models.StyleDelta{FontWeight: ptr(900)},
		})
	}
	return p
}

func TestApply_LockedTitleUnchanged(t *testing.T) {
	doc := testDocument(5)
	locks := models.LockSet{"slide_1": {"title": true}}

	res := editpatch.Apply(doc, boldAllTitles(5), locks, 0)

	assert.Equal(t, 4, res.Applied)
	assert.Equal(t, 1, res.SkippedLocked)
	assert.Equal(t, 0, res.SkippedMissing)
	assert.Equal(t, "Made titles bolder", res.Summary)
	assert.Equal(t, 700, res.Document.Slides[0].Object("title").FontWeight)
	for i := 1; i < 5; i++ {
		assert.Equal(t, 900, res.Document.Slides[i].Object("title").FontWeight)
	}
	assert.Equal(t, 700, doc.Slides[1].Object("title").FontWeight, "input document is not mutated")
}

func TestApply_LockInviolability(t *testing.T) {
	doc := testDocument(2)
	locks := models.LockSet{
		"slide_1": {"title": true, "body": true, "image_background": true},
		"slide_2": {"body": true},
	}
	patch := &models.EditPatch{Operations: []models.PatchOperation{
		{Op: models.OpSetText, SlideIndex: 1, ObjectID: "title", Text: ptr("hacked")},
		{Op: models.OpSetStyle, SlideIndex: 1, ObjectID: "body", Style: &models.StyleDelta{Fill: ptr("#FF0000")}},
		{Op: models.OpMove, SlideIndex: 1, ObjectID: "image_background", X: ptr(10.0), Y: ptr(10.0)},
		{Op: models.OpMove, SlideIndex: 2, ObjectID: "body", X: ptr(0.0), Y: ptr(0.0)},
		{Op: models.OpSetText, SlideIndex: 2, ObjectID: "title", Text: ptr("fine")},
	}}

	before, err := json.Marshal(doc.Slides[0])
	require.NoError(t, err)

	res := editpatch.Apply(doc, patch, locks, 0)
	assert.Equal(t, 4, res.SkippedLocked)
	assert.Equal(t, 1, res.Applied)

	after, err := json.Marshal(res.Document.Slides[0])
	require.NoError(t, err)
	assert.JSONEq(t, string(before), string(after))
	assert.Equal(t, float64(540), res.Document.Slides[1].Object("body").Y)
	assert.Equal(t, "fine", res.Document.Slides[1].Object("title").Text)
	assert.Equal(t, []editpatch.Outcome{
		editpatch.OutcomeSkippedLocked, editpatch.OutcomeSkippedLocked, editpatch.OutcomeSkippedLocked,
		editpatch.OutcomeSkippedLocked, editpatch.OutcomeApplied,
	}, res.Outcomes)
}

func TestApply_MissingTargets(t *testing.T) {
	tests := []struct {
		name   string
		op     models.PatchOperation
		target int
	}{
		{"slide out of range", models.PatchOperation{Op: models.OpSetText, SlideIndex: 9, ObjectID: "title", Text: ptr("x")}, 0},
		{"unknown object", models.PatchOperation{Op: models.OpSetText, SlideIndex: 1, ObjectID: "subtitle", Text: ptr("x")}, 0},
		{"text op on image", models.PatchOperation{Op: models.OpSetText, SlideIndex: 1, ObjectID: "image_background", Text: ptr("x")}, 0},
		{"style op on image", models.PatchOperation{Op: models.OpSetStyle, SlideIndex: 1, ObjectID: "image_background", Style: &models.StyleDelta{Fill: ptr("#000000")}}, 0},
		{"other slide than target", models.PatchOperation{Op: models.OpSetText, SlideIndex: 1, ObjectID: "title", Text: ptr("x")}, 2},
		{"unknown op", models.PatchOperation{Op: "delete", SlideIndex: 1, ObjectID: "title"}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc := testDocument(2)
			before, err := json.Marshal(doc)
			require.NoError(t, err)

			res := editpatch.Apply(doc, &models.EditPatch{Operations: []models.PatchOperation{tt.op}}, nil, tt.target)
			assert.Equal(t, 1, res.SkippedMissing)
			assert.Zero(t, res.Applied)

			after, err := json.Marshal(res.Document)
			require.NoError(t, err)
			assert.JSONEq(t, string(before), string(after))
		})
	}
}

func TestApply_LockedCountsBeforeOtherSkipReasons(t *testing.T) {
	locks := models.LockSet{"slide_1": {"image_background": true, "title": true}}
	patch := &models.EditPatch{Operations: []models.PatchOperation{
		{Op: models.OpSetStyle, SlideIndex: 1, ObjectID: "image_background", Style: &models.StyleDelta{Fill: ptr("#000000")}},
		{Op: models.OpSetText, SlideIndex: 1, ObjectID: "image_background", Text: ptr("x")},
		{Op: models.OpSetStyle, SlideIndex: 1, ObjectID: "title", Style: &models.StyleDelta{FontWeight: ptr(900)}},
	}}

	for _, target := range []int{0, 1, 2} {
		t.Run(fmt.Sprintf("target %d", target), func(t *testing.T) {
			res := editpatch.Apply(testDocument(2), patch, locks, target)
			assert.Equal(t, 3, res.SkippedLocked)
			assert.Zero(t, res.SkippedMissing)
			assert.Zero(t, res.Applied)
		})
	}
}

func TestApply_OutOfRangeSlideIndexFromModel(t *testing.T) {
	patch, err := schemas.ParseEditPatch([]byte(`{"operations":[
		{"op":"set_text","slideIndex":1,"objectId":"title","text":"Kept"},
		{"op":"set_text","slideIndex":0,"objectId":"title","text":"Lost"},
		{"op":"set_text","slideIndex":-3,"objectId":"title","text":"Lost"}
	]}`))
	require.NoError(t, err)

	doc := testDocument(2)
	res := editpatch.Apply(doc, patch, nil, 0)
	assert.Equal(t, 1, res.Applied)
	assert.Equal(t, 2, res.SkippedMissing)
	assert.Equal(t, "Kept", res.Document.Slides[0].Object("title").Text)
	assert.Equal(t, "Title", res.Document.Slides[1].Object("title").Text)
}

func TestApply_Operations(t *testing.T) {
	doc := testDocument(1)
	doc.Slides[0].Object("body").Hidden = true
	patch := &models.EditPatch{Operations: []models.PatchOperation{
		{Op: models.OpSetText, SlideIndex: 1, ObjectID: "body", Text: ptr("Back again")},
		{Op: models.OpMove, SlideIndex: 1, ObjectID: "title", X: ptr(5000.0), Y: ptr(-20.0)},
		{Op: models.OpSetStyle, SlideIndex: 1, ObjectID: "title", Style: &models.StyleDelta{
			FontFamily: ptr("Lora"), FontSize: ptr(96), Fill: ptr("#FFFFFF"), Align: ptr("center"),
			LineHeight: ptr(1.1), LetterSpacing: ptr(0.5),
		}},
	}}

	res := editpatch.Apply(doc, patch, models.LockSet{}, 1)
	require.Equal(t, 3, res.Applied)

	slide := res.Document.Slides[0]
	body := slide.Object("body")
	assert.Equal(t, "Back again", body.Text)
	assert.False(t, body.Hidden)

	title := slide.Object("title")
	assert.Equal(t, float64(1080-907), title.X, "move keeps the object on the canvas")
	assert.Equal(t, float64(0), title.Y)
	assert.Equal(t, float64(907), title.Width, "move never resizes")
	assert.Equal(t, "Lora", title.FontFamily)
	assert.Equal(t, 96, title.FontSize)
	assert.Equal(t, 700, title.FontWeight, "unset style fields are kept")
	assert.Equal(t, "center", title.Align)
	assert.Equal(t, res.EditResult(), models.EditResult{Applied: 3})
}

func TestApply_NilPatch(t *testing.T) {
	res := editpatch.Apply(testDocument(1), nil, nil, 0)
	assert.Zero(t, res.Applied+res.SkippedLocked+res.SkippedMissing)
	require.NotNil(t, res.Document)
}

func TestSummarize(t *testing.T) {
	doc := testDocument(3)
	doc.Slides[0].Objects[0].AssetID = ptr("asset-1")

	all := editpatch.Summarize(doc, 0)
	require.Len(t, all, 3)
	assert.Equal(t, "slide_2", all[1].Key)
	assert.Equal(t, 2, all[1].Index)

	first := all[0]
	require.Len(t, first.Objects, 3)
	assert.True(t, first.Objects[0].HasImg)
	assert.Empty(t, first.Objects[0].Text)
	assert.Equal(t, "title", first.Objects[1].Variant)
	assert.Equal(t, 86, first.Objects[1].X)
	assert.LessOrEqual(t, len([]rune(first.Objects[2].Text)), 81, "long text is truncated")
	assert.True(t, strings.HasSuffix(first.Objects[2].Text, "…"))

	only := editpatch.Summarize(doc, 3)
	require.Len(t, only, 1)
	assert.Equal(t, 3, only[0].Index)

	assert.Nil(t, editpatch.Summarize(nil, 0))
}
