package service

import (
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

// allowedImageTypes форматы, которые конвейер принимает от моделей и пользователей.
var allowedImageTypes = map[string]string{
	"image/png":  "png",
	"image/jpeg": "jpg",
	"image/webp": "webp",
	"image/gif":  "gif",
}

// NormalizeMIME приводит content type к каноническому виду: нижний регистр, без параметров, jpg -> jpeg.
func NormalizeMIME(contentType string) string {
	ct := strings.ToLower(strings.TrimSpace(contentType))
	if i := strings.IndexByte(ct, ';'); i >= 0 {
		ct = strings.TrimSpace(ct[:i])
	}
	switch ct {
	case "image/jpg", "image/pjpeg":
		return "image/jpeg"
	case "image/x-png":
		return "image/png"
	}
	return ct
}

// SniffMIME определяет формат по сигнатуре. Пустая строка, если формат не изображение из списка.
func SniffMIME(data []byte) string {
	detected := NormalizeMIME(mimetype.Detect(data).String())
	if _, ok := allowedImageTypes[detected]; !ok {
		return ""
	}
	return detected
}

// ResolveMIME заявленный тип, а если он пустой или octet-stream, то тип по сигнатуре.
func ResolveMIME(claimed string, data []byte) string {
	ct := NormalizeMIME(claimed)
	if ct == "" || ct == "application/octet-stream" || ct == "binary/octet-stream" {
		return SniffMIME(data)
	}
	return ct
}

// IsAllowedImage true для поддерживаемых форматов изображений.
func IsAllowedImage(contentType string) bool {
	_, ok := allowedImageTypes[NormalizeMIME(contentType)]
	return ok
}

// extensionFor расширение файла для формата.
func extensionFor(contentType string) string {
	if ext, ok := allowedImageTypes[NormalizeMIME(contentType)]; ok {
		return ext
	}
	return "bin"
}
