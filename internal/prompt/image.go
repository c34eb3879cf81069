package prompt

import (
	"fmt"
	"strings"

	"carousel-server/internal/models"
)

// ImagePromptInput данные для промпта одного изображения.
type ImagePromptInput struct {
	Request models.ImageRequest
	// Width и Height размер слота в пикселях, 0 если запрос не привязан к слоту.
	Width       int
	Height      int
	AspectRatio string
	SafeZones   []models.Rect
	Palette     models.Palette
	Tone        string
}

// ImagePrompt дописывает к промпту модели детерминированные ограничения.
func ImagePrompt(in ImagePromptInput) string {
	parts := []string{strings.TrimSpace(in.Request.Prompt)}
	if len(in.Request.StyleHints) > 0 {
		parts = append(parts, "Style: "+strings.Join(in.Request.StyleHints, ", ")+".")
	}
	if len(in.Request.Avoid) > 0 {
		parts = append(parts, "Avoid: "+strings.Join(in.Request.Avoid, ", ")+".")
	}

	if in.Width > 0 && in.Height > 0 {
		parts = append(parts, fmt.Sprintf("Compose for a %dx%d px frame.", in.Width, in.Height))
	} else if in.AspectRatio != "" {
		parts = append(parts, fmt.Sprintf("Compose for a %s aspect ratio.", in.AspectRatio))
	}
	if sz := DescribeSafeZones(in.SafeZones); sz != "" {
		parts = append(parts, sz)
	}
	parts = append(parts, "Do not draw guides, boxes, frames, grids, labels or coordinates.")
	if in.Palette.Background != "" {
		parts = append(parts, fmt.Sprintf("Color palette: %s, %s, %s.", in.Palette.Background, in.Palette.Text, in.Palette.Accent))
	}
	if in.Tone != "" {
		parts = append(parts, fmt.Sprintf("Tone: %s.", in.Tone))
	}
	if !in.Request.ContainsText {
		parts = append(parts, "No text, letters, logos or watermarks in the image.")
	}
	return strings.Join(parts, " ")
}
