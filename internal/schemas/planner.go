package schemas

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"

	"carousel-server/internal/models"
)

// decodeClosed декодирует JSON и отвергает неизвестные ключи и лишние данные после объекта.
func decodeClosed(raw []byte, dst any) error {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return err
	}
	if dec.More() {
		return fmt.Errorf("unexpected data after json object")
	}
	return nil
}

// ParsePlannerOutput разбирает и проверяет ответ планировщика.
// Любое несоответствие схеме возвращается как *models.ContractError.
func ParsePlannerOutput(raw []byte) (*models.PlannerOutput, error) {
	var out models.PlannerOutput
	if err := decodeClosed(raw, &out); err != nil {
		return nil, &models.ContractError{Raw: string(raw), Violations: []string{err.Error()}}
	}
	if violations := ValidatePlannerOutput(&out); len(violations) > 0 {
		return nil, &models.ContractError{Raw: string(raw), Violations: violations}
	}
	sort.SliceStable(out.Slides, func(i, j int) bool { return out.Slides[i].Index < out.Slides[j].Index })
	return &out, nil
}

// ValidatePlannerOutput возвращает список нарушений, пустой список означает валидный план.
func ValidatePlannerOutput(p *models.PlannerOutput) []string {
	violations := Struct(p)

	seen := make(map[int]bool, len(p.Slides))
	maxIndex := 0
	for i, s := range p.Slides {
		if seen[s.Index] {
			violations = append(violations, fmt.Sprintf("slides[%d].index: duplicate index %d", i, s.Index))
		}
		seen[s.Index] = true
		if s.Index > maxIndex {
			maxIndex = s.Index
		}
		for j, img := range s.Images {
			for k, z := range img.SafeZones {
				if !z.Fits() {
					violations = append(violations, fmt.Sprintf("slides[%d].images[%d].safeZones[%d]: rect exceeds unit square", i, j, k))
				}
			}
		}
	}
	if len(p.Slides) > 0 && (maxIndex != len(p.Slides) || len(seen) != len(p.Slides)) {
		violations = append(violations, fmt.Sprintf("slides: indices must be contiguous from 1 to %d", len(p.Slides)))
	}
	return violations
}

// ParseEditPatch разбирает и проверяет правку, полученную от модели.
func ParseEditPatch(raw []byte) (*models.EditPatch, error) {
	var patch models.EditPatch
	if err := decodeClosed(raw, &patch); err != nil {
		return nil, &models.ContractError{Raw: string(raw), Violations: []string{err.Error()}}
	}
	violations := Struct(&patch)
	for i, op := range patch.Operations {
		switch op.Op {
		case models.OpSetText:
			if op.Text == nil {
				violations = append(violations, fmt.Sprintf("operations[%d]: set_text requires text", i))
			}
			if op.Style != nil || op.X != nil || op.Y != nil {
				violations = append(violations, fmt.Sprintf("operations[%d]: set_text accepts only text", i))
			}
		case models.OpSetStyle:
			if op.Style == nil || *op.Style == (models.StyleDelta{}) {
				violations = append(violations, fmt.Sprintf("operations[%d]: set_style requires a non-empty style", i))
			}
			if op.Text != nil || op.X != nil || op.Y != nil {
				violations = append(violations, fmt.Sprintf("operations[%d]: set_style accepts only style", i))
			}
		case models.OpMove:
			if op.X == nil || op.Y == nil {
				violations = append(violations, fmt.Sprintf("operations[%d]: move requires x and y", i))
			}
			if op.Text != nil || op.Style != nil {
				violations = append(violations, fmt.Sprintf("operations[%d]: move accepts only x and y", i))
			}
		}
	}
	if len(violations) > 0 {
		return nil, &models.ContractError{Raw: string(raw), Violations: violations}
	}
	return &patch, nil
}
