package prompt

import (
	"fmt"
	"slices"
	"strings"

	"carousel-server/internal/editpatch"
	"carousel-server/internal/models"
)

// EditInput вход для промпта правки.
type EditInput struct {
	Instruction string
	Slides      []editpatch.SlideSummary
	Locks       models.LockSet
	TargetSlide int
}

const editSystem = `You edit an existing carousel document on request.
You answer with exactly one JSON object describing a list of operations and nothing else.`

func editExample() models.EditPatch {
	text := "Shorter, punchier title"
	weight := 800
	fill := "#FFD60A"
	x, y := 86.0, 120.0
	return models.EditPatch{
		Operations: []models.PatchOperation{
			{Op: models.OpSetText, SlideIndex: 1, ObjectID: "title", Text: &text},
			{Op: models.OpSetStyle, SlideIndex: 2, ObjectID: "title", Style: &models.StyleDelta{FontWeight: &weight, Fill: &fill}},
			{Op: models.OpMove, SlideIndex: 3, ObjectID: "cta", X: &x, Y: &y},
		},
		Summary: "Shortened the first title, emphasised slide 2 and moved the call to action.",
	}
}

// lockedList блокировки в детерминированном порядке.
func lockedList(locks models.LockSet) map[string][]string {
	out := map[string][]string{}
	for key, objs := range locks {
		for id, locked := range objs {
			if locked {
				out[key] = append(out[key], id)
			}
		}
		slices.Sort(out[key])
	}
	return out
}

// Edit промпт правки документа по текстовой инструкции.
func Edit(in EditInput) Prompt {
	var sb strings.Builder
	writeSection(&sb, "Instruction", in.Instruction)
	writeSection(&sb, "Document", mustJSON(in.Slides))

	locked := lockedList(in.Locks)
	if len(locked) > 0 {
		writeSection(&sb, "Locked objects (slide key to object ids)", mustJSON(locked))
	}
	if in.TargetSlide > 0 {
		writeSection(&sb, "Target", fmt.Sprintf("Change only slide %d (%s).", in.TargetSlide, models.SlideKey(in.TargetSlide)))
	}

	rules := []string{
		"Allowed operations: set_text (text), set_style (style with fontFamily, fontSize, fontWeight, fill, align, lineHeight, letterSpacing), move (x, y in pixels).",
		"slideIndex is 1-based. objectId must be an id from the document above.",
		"Never target locked ids. Operations on locked objects are ignored.",
		"set_text and set_style apply to text objects only.",
		"Use only the keys shown in the example. Add a one-sentence summary of what you changed.",
	}
	var b strings.Builder
	for i, r := range rules {
		fmt.Fprintf(&b, "%d. %s\n", i+1, r)
	}
	writeSection(&sb, "Rules", b.String())
	writeSection(&sb, "Example of the exact answer shape", mustJSON(editExample()))
	return Prompt{System: editSystem, User: strings.TrimSpace(sb.String())}
}
