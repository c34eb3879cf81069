package models

// PlannerContractVersion текущая версия контракта ответа текстовой модели.
const PlannerContractVersion = 1

// PlannerOutput результат генерации: глобальный стиль и план слайдов.
type PlannerOutput struct {
	Version     int         `json:"version" validate:"eq=1"`
	GlobalStyle GlobalStyle `json:"globalStyle"`
	Slides      []SlidePlan `json:"slides" validate:"required,min=1,max=30,dive"`
}

type GlobalStyle struct {
	Palette    Palette    `json:"palette"`
	Typography Typography `json:"typography"`
	Spacing    Spacing    `json:"spacing"`
	Overlay    *Overlay   `json:"overlay,omitempty"`
	LayoutID   string     `json:"layoutId,omitempty" validate:"omitempty,max=120"`
}

type SlidePlan struct {
	Index  int            `json:"index" validate:"gte=1"`
	Text   SlideText      `json:"text"`
	Images []ImageRequest `json:"images,omitempty" validate:"max=4,dive"`
}

// SlideText пустая строка в необязательном поле значит "поле отсутствует".
type SlideText struct {
	Title   string `json:"title" validate:"required,notblank,max=200"`
	Tagline string `json:"tagline,omitempty" validate:"max=200"`
	Body    string `json:"body,omitempty" validate:"max=1200"`
	CTA     string `json:"cta,omitempty" validate:"max=120"`
}

// Field возвращает текст по имени зоны.
func (t SlideText) Field(variant string) string {
	switch variant {
	case ZoneTitle:
		return t.Title
	case ZoneTagline:
		return t.Tagline
	case ZoneBody:
		return t.Body
	case ZoneCTA:
		return t.CTA
	}
	return ""
}

type ImageRequest struct {
	SlotID       string   `json:"slotId,omitempty" validate:"max=64"`
	Purpose      string   `json:"purpose,omitempty" validate:"max=200"`
	Prompt       string   `json:"prompt" validate:"required,notblank,max=4000"`
	ContainsText bool     `json:"containsText"`
	AspectRatio  string   `json:"aspectRatio,omitempty" validate:"omitempty,oneof=1:1 4:5 3:4 9:16 16:9 4:3"`
	SafeZones    []Rect   `json:"safeZones,omitempty" validate:"max=6,dive"`
	StyleHints   []string `json:"styleHints,omitempty" validate:"max=10,dive,max=120"`
	Avoid        []string `json:"avoid,omitempty" validate:"max=10,dive,max=120"`
}

// ImageRequestCount общее число запросов изображений во всех слайдах.
func (p *PlannerOutput) ImageRequestCount() int {
	n := 0
	for _, s := range p.Slides {
		n += len(s.Images)
	}
	return n
}

// FirstTitle заголовок первого слайда, используется как название задачи.
func (p *PlannerOutput) FirstTitle() string {
	for _, s := range p.Slides {
		if s.Index == 1 {
			return s.Text.Title
		}
	}
	if len(p.Slides) > 0 {
		return p.Slides[0].Text.Title
	}
	return ""
}
