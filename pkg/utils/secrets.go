package utils

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// SecretsDir путь Docker Secrets. Переменная, чтобы тесты могли подменить каталог.
var SecretsDir = "/run/secrets"

// ReadSecret читает секрет из файла в каталоге Docker Secrets.
func ReadSecret(secretName string) (string, error) {
	filePath := filepath.Join(SecretsDir, secretName)
	secretBytes, err := os.ReadFile(filePath)
	if err != nil {
		return "", fmt.Errorf("failed to read secret file %s: %w", filePath, err)
	}
	secret := strings.TrimSpace(string(secretBytes))
	if secret == "" {
		return "", fmt.Errorf("secret file %s is empty", filePath)
	}
	return secret, nil
}

// SecretOrValue возвращает current, если оно задано, иначе пробует прочитать секрет.
// Отсутствие файла не ошибка: возвращается пустая строка и false.
func SecretOrValue(current, secretName string) (string, bool) {
	if strings.TrimSpace(current) != "" {
		return current, true
	}
	secret, err := ReadSecret(secretName)
	if err != nil {
		return "", false
	}
	return secret, true
}
