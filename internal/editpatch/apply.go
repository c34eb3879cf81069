// Package editpatch применяет к документу правки, полученные из текстовой инструкции.
// Блокировки проверяются здесь независимо от того, что сказала модель.
package editpatch

import (
	"math"

	"carousel-server/internal/models"
)

// Outcome итог одной операции.
type Outcome string

const (
	OutcomeApplied        Outcome = "applied"
	OutcomeSkippedLocked  Outcome = "skipped_locked"
	OutcomeSkippedMissing Outcome = "skipped_missing"
)

// Result документ после правки и счетчики.
type Result struct {
	Document       *models.Document
	Applied        int
	SkippedLocked  int
	SkippedMissing int
	Summary        string
	Outcomes       []Outcome
}

// EditResult счетчики для ответа пользователю.
func (r Result) EditResult() models.EditResult {
	return models.EditResult{
		Applied:        r.Applied,
		SkippedLocked:  r.SkippedLocked,
		SkippedMissing: r.SkippedMissing,
		Summary:        r.Summary,
	}
}

// Apply применяет patch к копии doc. Исходный документ не изменяется.
// targetSlide > 0 ограничивает правку одним слайдом.
func Apply(doc *models.Document, patch *models.EditPatch, locks models.LockSet, targetSlide int) Result {
	res := Result{Document: doc.Clone()}
	if res.Document == nil {
		res.Document = &models.Document{Version: models.DocumentVersion}
	}
	if patch == nil {
		return res
	}
	res.Summary = patch.Summary
	res.Outcomes = make([]Outcome, 0, len(patch.Operations))

	for _, op := range patch.Operations {
		outcome := applyOne(res.Document, op, locks, targetSlide)
		switch outcome {
		case OutcomeApplied:
			res.Applied++
		case OutcomeSkippedLocked:
			res.SkippedLocked++
		default:
			res.SkippedMissing++
		}
		res.Outcomes = append(res.Outcomes, outcome)
	}
	return res
}

func applyOne(doc *models.Document, op models.PatchOperation, locks models.LockSet, targetSlide int) Outcome {
	slide := doc.SlideAt(op.SlideIndex)
	if slide == nil {
		return OutcomeSkippedMissing
	}
	obj := slide.Object(op.ObjectID)
	if obj == nil {
		return OutcomeSkippedMissing
	}
	// Блокировка важнее остальных причин пропуска: заблокированный объект всегда считается skipped_locked
	if locks.IsLocked(models.SlideKey(op.SlideIndex), op.ObjectID) {
		return OutcomeSkippedLocked
	}
	if targetSlide > 0 && op.SlideIndex != targetSlide {
		return OutcomeSkippedMissing
	}
	if !compatible(op, obj) {
		return OutcomeSkippedMissing
	}

	switch op.Op {
	case models.OpSetText:
		obj.Text = *op.Text
		// непустой текст возвращает скрытый объект
		if obj.Text != "" {
			obj.Hidden = false
		}
	case models.OpSetStyle:
		applyStyle(obj, op.Style)
	case models.OpMove:
		maxX := math.Max(0, float64(slide.Width)-obj.Width)
		maxY := math.Max(0, float64(slide.Height)-obj.Height)
		obj.X = clamp(*op.X, 0, maxX)
		obj.Y = clamp(*op.Y, 0, maxY)
	default:
		return OutcomeSkippedMissing
	}
	return OutcomeApplied
}

// compatible текстовые операции не применяются к изображениям.
func compatible(op models.PatchOperation, obj *models.Object) bool {
	switch op.Op {
	case models.OpSetText:
		return obj.Type == models.ObjectText && op.Text != nil
	case models.OpSetStyle:
		return obj.Type == models.ObjectText && op.Style != nil
	case models.OpMove:
		return op.X != nil && op.Y != nil
	}
	return false
}

func applyStyle(obj *models.Object, s *models.StyleDelta) {
	if s.FontFamily != nil {
		obj.FontFamily = *s.FontFamily
	}
	if s.FontSize != nil {
		obj.FontSize = *s.FontSize
	}
	if s.FontWeight != nil {
		obj.FontWeight = *s.FontWeight
	}
	if s.Fill != nil {
		obj.Fill = *s.Fill
	}
	if s.Align != nil {
		obj.Align = *s.Align
	}
	if s.LineHeight != nil {
		obj.LineHeight = *s.LineHeight
	}
	if s.LetterSpacing != nil {
		obj.LetterSpacing = *s.LetterSpacing
	}
}

func clamp(v, lo, hi float64) float64 {
	return math.Min(math.Max(v, lo), hi)
}
