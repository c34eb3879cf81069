package schemas

import (
	"encoding/json"
	"errors"
	"strings"

	"github.com/kaptinlin/jsonrepair"
)

// ErrNoJSONObject в тексте нет ни одного JSON объекта.
var ErrNoJSONObject = errors.New("no json object found in text")

// ExtractJSONObject возвращает первый корректный JSON объект из ответа модели.
// Ответ может содержать поясняющий текст и markdown ограждения вокруг JSON.
// При repair=true незакрытый или слегка сломанный объект пропускается через jsonrepair.
func ExtractJSONObject(text string, repair bool) (string, error) {
	var firstCandidate string
	for start := strings.IndexByte(text, '{'); start >= 0; {
		end := balancedEnd(text, start)
		if end < 0 {
			if firstCandidate == "" {
				firstCandidate = text[start:]
			}
			break
		}
		candidate := text[start : end+1]
		if json.Valid([]byte(candidate)) {
			return candidate, nil
		}
		if firstCandidate == "" {
			firstCandidate = candidate
		}
		next := strings.IndexByte(text[start+1:], '{')
		if next < 0 {
			break
		}
		start += next + 1
	}

	if repair && firstCandidate != "" {
		fixed, err := jsonrepair.JSONRepair(firstCandidate)
		if err == nil && strings.HasPrefix(strings.TrimSpace(fixed), "{") && json.Valid([]byte(fixed)) {
			return fixed, nil
		}
	}
	return "", ErrNoJSONObject
}

// balancedEnd индекс закрывающей скобки для '{' в позиции start, -1 если объект не закрыт.
// Скобки внутри строк не учитываются.
func balancedEnd(text string, start int) int {
	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(text); i++ {
		c := text[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}
