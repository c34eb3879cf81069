package editpatch

import (
	"math"

	"carousel-server/internal/models"
)

const summaryTextLimit = 80

// SlideSummary сокращенное представление слайда для промпта правки.
// Стили не передаются, только идентификаторы, тип, короткий текст и позиция.
type SlideSummary struct {
	Index   int             `json:"index"`
	Key     string          `json:"key"`
	Objects []ObjectSummary `json:"objects"`
}

type ObjectSummary struct {
	ID      string            `json:"id"`
	Type    models.ObjectType `json:"type"`
	Variant string            `json:"variant,omitempty"`
	Text    string            `json:"text,omitempty"`
	X       int               `json:"x"`
	Y       int               `json:"y"`
	Hidden  bool              `json:"hidden,omitempty"`
	HasImg  bool              `json:"hasImage,omitempty"`
}

// Summarize строит сводку документа. targetSlide > 0 оставляет только этот слайд.
func Summarize(doc *models.Document, targetSlide int) []SlideSummary {
	if doc == nil {
		return nil
	}
	out := make([]SlideSummary, 0, len(doc.Slides))
	for i, s := range doc.Slides {
		index := i + 1
		if targetSlide > 0 && index != targetSlide {
			continue
		}
		summary := SlideSummary{Index: index, Key: models.SlideKey(index), Objects: make([]ObjectSummary, 0, len(s.Objects))}
		for _, o := range s.Objects {
			os := ObjectSummary{
				ID:     o.ID,
				Type:   o.Type,
				X:      int(math.Round(o.X)),
				Y:      int(math.Round(o.Y)),
				Hidden: o.Hidden,
			}
			if o.Type == models.ObjectText {
				os.Variant = o.Variant
				os.Text = truncate(o.Text, summaryTextLimit)
			} else {
				os.HasImg = o.AssetID != nil
			}
			summary.Objects = append(summary.Objects, os)
		}
		out = append(out, summary)
	}
	return out
}

func truncate(s string, limit int) string {
	r := []rune(s)
	if len(r) <= limit {
		return s
	}
	return string(r[:limit]) + "…"
}
