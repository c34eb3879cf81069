package schemas

import (
	"fmt"

	"carousel-server/internal/models"
)

// ValidateLayout проверяет пользовательский шаблон перед сохранением.
func ValidateLayout(l *models.Layout) []string {
	violations := Struct(l)
	if l.Canvas.Width <= 0 || l.Canvas.Height <= 0 || l.Canvas.Width > 8192 || l.Canvas.Height > 8192 {
		violations = append(violations, "canvas: width and height must be in 1..8192")
	}
	for name, z := range l.Zones {
		if !isZoneName(name) {
			violations = append(violations, fmt.Sprintf("zones.%s: unknown zone", name))
			continue
		}
		if !z.Fits() {
			violations = append(violations, fmt.Sprintf("zones.%s: rect exceeds unit square", name))
		}
	}
	ids := make(map[string]bool, len(l.ImageSlots))
	for i, s := range l.ImageSlots {
		if s.ID == "" {
			violations = append(violations, fmt.Sprintf("imageSlots[%d].id: is required", i))
		}
		if ids[s.ID] {
			violations = append(violations, fmt.Sprintf("imageSlots[%d].id: duplicate slot %q", i, s.ID))
		}
		ids[s.ID] = true
		if s.Kind != models.SlotKindBackground && s.Kind != models.SlotKindSlot {
			violations = append(violations, fmt.Sprintf("imageSlots[%d].kind: must be background or slot", i))
		}
		if !s.Bounds.Fits() {
			violations = append(violations, fmt.Sprintf("imageSlots[%d].bounds: rect exceeds unit square", i))
		}
		for j, z := range s.SafeZones {
			if !z.Fits() {
				violations = append(violations, fmt.Sprintf("imageSlots[%d].safeZones[%d]: rect exceeds unit square", i, j))
			}
		}
	}
	return violations
}

func isZoneName(name string) bool {
	for _, v := range models.TextVariants {
		if v == name {
			return true
		}
	}
	return false
}
