package schemas

import (
	"errors"
	"strings"
	"testing"

	"carousel-server/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const validPlan = `{
  "version": 1,
  "globalStyle": {
    "palette": {"background": "#101820", "text": "#F2F2F2", "accent": "#FEE715"},
    "typography": {"headingFont": "Inter", "titleSize": 72, "titleWeight": 800},
    "spacing": {"padding": 64},
    "overlay": {"color": "#000000", "opacity": 0.45},
    "layoutId": "builtin/background-overlay"
  },
  "slides": [
    {"index": 2, "text": {"title": "Keep it short", "body": "Three sentences max."}},
    {"index": 1, "text": {"title": "Cold email tips", "tagline": "Get replies"},
     "images": [{"slotId": "background", "purpose": "hero", "prompt": "A calm desk at dawn", "containsText": false, "aspectRatio": "4:5"}]}
  ]
}`

func TestParsePlannerOutput_Valid(t *testing.T) {
	out, err := ParsePlannerOutput([]byte(validPlan))
	require.NoError(t, err)
	require.Len(t, out.Slides, 2)
	assert.Equal(t, 1, out.Slides[0].Index, "slides are sorted by index")
	assert.Equal(t, "Cold email tips", out.FirstTitle())
	assert.Equal(t, 1, out.ImageRequestCount())
}

func TestParsePlannerOutput_Rejects(t *testing.T) {
	tests := []struct {
		name    string
		replace [2]string
		want    string
	}{
		{"wrong version", [2]string{`"version": 1`, `"version": 2`}, "version"},
		{"bad hex", [2]string{`"#101820"`, `"navy"`}, "not a hex color"},
		{"opacity too high", [2]string{`"opacity": 0.45`, `"opacity": 0.96`}, "opacity"},
		{"negative opacity", [2]string{`"opacity": 0.45`, `"opacity": -0.1`}, "opacity"},
		{"missing title", [2]string{`"title": "Keep it short", `, ``}, "title"},
		{"blank title", [2]string{`"Keep it short"`, `"   "`}, "title"},
		{"duplicate index", [2]string{`"index": 2`, `"index": 1`}, "duplicate"},
		{"gap in indices", [2]string{`"index": 2`, `"index": 3`}, "contiguous"},
		{"zero index", [2]string{`"index": 2`, `"index": 0`}, "index"},
		{"unknown key", [2]string{`"spacing"`, `"margins"`}, "unknown field"},
		{"bad aspect ratio", [2]string{`"4:5"`, `"5:4"`}, "aspectRatio"},
		{"empty prompt", [2]string{`"A calm desk at dawn"`, `""`}, "prompt"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			raw := strings.Replace(validPlan, tt.replace[0], tt.replace[1], 1)
			require.NotEqual(t, validPlan, raw, "fixture replacement must apply")

			_, err := ParsePlannerOutput([]byte(raw))
			require.Error(t, err)
			assert.True(t, errors.Is(err, models.ErrContractViolation))

			var ce *models.ContractError
			require.True(t, errors.As(err, &ce))
			assert.Equal(t, raw, ce.Raw, "raw text preserved for diagnosis")
			assert.Contains(t, strings.Join(ce.Violations, "; "), tt.want)
		})
	}
}

func TestParsePlannerOutput_EmptySlides(t *testing.T) {
	_, err := ParsePlannerOutput([]byte(`{"version":1,"globalStyle":{"palette":{"background":"#000","text":"#fff","accent":"#f00"},"typography":{},"spacing":{}},"slides":[]}`))
	assert.True(t, errors.Is(err, models.ErrContractViolation))
}

func TestParseEditPatch(t *testing.T) {
	t.Run("valid", func(t *testing.T) {
		patch, err := ParseEditPatch([]byte(`{"operations":[
			{"op":"set_style","slideIndex":1,"objectId":"title","style":{"fontWeight":900}},
			{"op":"set_text","slideIndex":2,"objectId":"body","text":"Shorter"},
			{"op":"move","slideIndex":2,"objectId":"cta","x":10,"y":20}
		],"summary":"Bolder titles"}`))
		require.NoError(t, err)
		require.Len(t, patch.Operations, 3)
		assert.Equal(t, models.OpSetStyle, patch.Operations[0].Op)
		assert.Equal(t, 900, *patch.Operations[0].Style.FontWeight)
		assert.Equal(t, "Bolder titles", patch.Summary)
	})

	rejects := map[string]string{
		"unknown op":          `{"operations":[{"op":"delete","slideIndex":1,"objectId":"title"}]}`,
		"set_text w/o text":   `{"operations":[{"op":"set_text","slideIndex":1,"objectId":"title"}]}`,
		"empty style":         `{"operations":[{"op":"set_style","slideIndex":1,"objectId":"title","style":{}}]}`,
		"move without y":      `{"operations":[{"op":"move","slideIndex":1,"objectId":"title","x":1}]}`,
		"bad fill":            `{"operations":[{"op":"set_style","slideIndex":1,"objectId":"title","style":{"fill":"red"}}]}`,
		"weight out of range": `{"operations":[{"op":"set_style","slideIndex":1,"objectId":"title","style":{"fontWeight":1000}}]}`,
		"unknown field":       `{"operations":[],"note":"x"}`,
		"mixed fields":        `{"operations":[{"op":"move","slideIndex":1,"objectId":"title","x":1,"y":2,"text":"x"}]}`,
	}
	for name, raw := range rejects {
		t.Run(name, func(t *testing.T) {
			_, err := ParseEditPatch([]byte(raw))
			assert.True(t, errors.Is(err, models.ErrContractViolation), "got %v", err)
		})
	}
}

func TestValidateLayout(t *testing.T) {
	l := &models.Layout{
		ID:     "custom/x",
		Canvas: models.Canvas{Width: 1080, Height: 1350},
		Zones:  map[string]models.Rect{"title": {X: 0.1, Y: 0.1, W: 0.8, H: 0.2}},
		ImageSlots: []models.ImageSlot{
			{ID: "bg", Kind: models.SlotKindBackground, Bounds: models.Rect{X: 0, Y: 0, W: 1, H: 1}},
		},
	}
	assert.Empty(t, ValidateLayout(l))

	l.Zones["footer"] = models.Rect{X: 0, Y: 0, W: 1, H: 0.1}
	l.ImageSlots = append(l.ImageSlots, models.ImageSlot{ID: "bg", Kind: "poster", Bounds: models.Rect{X: 0.5, Y: 0, W: 0.6, H: 1}})
	violations := strings.Join(ValidateLayout(l), "; ")
	assert.Contains(t, violations, "zones.footer")
	assert.Contains(t, violations, "duplicate slot")
	assert.Contains(t, violations, "must be background or slot")
	assert.Contains(t, violations, "bounds")
}
