package models

type PatchOp string

const (
	OpSetText  PatchOp = "set_text"
	OpSetStyle PatchOp = "set_style"
	OpMove     PatchOp = "move"
)

// StyleDelta изменяемые поля стиля. nil = не менять.
type StyleDelta struct {
	FontFamily    *string  `json:"fontFamily,omitempty" validate:"omitempty,min=1,max=80"`
	FontSize      *int     `json:"fontSize,omitempty" validate:"omitempty,gte=8,lte=400"`
	FontWeight    *int     `json:"fontWeight,omitempty" validate:"omitempty,gte=100,lte=900"`
	Fill          *string  `json:"fill,omitempty" validate:"omitempty,hexcolor"`
	Align         *string  `json:"align,omitempty" validate:"omitempty,oneof=left center right"`
	LineHeight    *float64 `json:"lineHeight,omitempty" validate:"omitempty,gte=0.8,lte=3"`
	LetterSpacing *float64 `json:"letterSpacing,omitempty" validate:"omitempty,gte=-5,lte=20"`
}

// PatchOperation одна операция правки. Набор полей зависит от Op.
type PatchOperation struct {
	Op         PatchOp     `json:"op" validate:"required,oneof=set_text set_style move"`
	SlideIndex int         `json:"slideIndex"`
	ObjectID   string      `json:"objectId" validate:"required,max=64"`
	Text       *string     `json:"text,omitempty" validate:"omitempty,max=1200"`
	Style      *StyleDelta `json:"style,omitempty"`
	X          *float64    `json:"x,omitempty"`
	Y          *float64    `json:"y,omitempty"`
}

// EditPatch правка, полученная из текстовой инструкции.
type EditPatch struct {
	Operations []PatchOperation `json:"operations" validate:"max=200,dive"`
	Summary    string           `json:"summary,omitempty" validate:"max=1000"`
}

// EditResult видимые пользователю счетчики применения правки.
type EditResult struct {
	Applied        int    `json:"applied"`
	SkippedLocked  int    `json:"skippedLocked"`
	SkippedMissing int    `json:"skippedMissing"`
	Summary        string `json:"summary"`
}

// LockSet ключ слайда -> id защищенных объектов.
type LockSet map[string]map[string]bool

func (l LockSet) IsLocked(slideKey, objectID string) bool {
	if l == nil {
		return false
	}
	return l[slideKey][objectID]
}

// Count число заблокированных объектов.
func (l LockSet) Count() int {
	n := 0
	for _, objs := range l {
		for _, locked := range objs {
			if locked {
				n++
			}
		}
	}
	return n
}
