package utils

import (
	"net/http"
	"strings"
)

// IsImage определяет тип по сигнатуре данных, а не по заголовкам ответа
func IsImage(data []byte) bool {
	if len(data) == 0 {
		return false
	}
	return strings.HasPrefix(http.DetectContentType(data), "image/")
}
