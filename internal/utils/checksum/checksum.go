// Package checksum вычисляет версионированный хэш содержимого сохранения.
//
// Формат: "<версия>:<hex>". Версия v1 - SHA-256 от канонического представления:
// валидный JSON в UTF-8 без повторяющихся ключей перекодируется с отсортированными
// ключами и без пробелов. Остальные данные хэшируются как есть: перекодирование
// заменило бы битые байты на U+FFFD и схлопнуло бы дубли ключей.
package checksum

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"
)

const (
	V1      = "v1"
	Current = V1
)

var (
	ErrMismatch       = errors.New("checksum mismatch")
	ErrUnknownVersion = errors.New("unknown checksum version")
	ErrMalformed      = errors.New("malformed checksum")
)

// Canonical возвращает каноническое байтовое представление data.
func Canonical(data []byte) []byte {
	if !utf8.Valid(data) || !json.Valid(data) || !uniqueKeys(json.NewDecoder(bytes.NewReader(data))) {
		return data
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var v interface{}
	if err := dec.Decode(&v); err != nil {
		return data
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return data
	}

	return bytes.TrimRight(buf.Bytes(), "\n")
}

// uniqueKeys читает одно значение и проверяет, что ни в одном объекте ключи не повторяются.
func uniqueKeys(dec *json.Decoder) bool {
	tok, err := dec.Token()
	if err != nil {
		return false
	}

	switch tok {
	case json.Delim('{'):
		seen := make(map[string]struct{})
		for dec.More() {
			kt, err := dec.Token()
			if err != nil {
				return false
			}
			key, ok := kt.(string)
			if !ok {
				return false
			}
			if _, dup := seen[key]; dup {
				return false
			}
			seen[key] = struct{}{}
			if !uniqueKeys(dec) {
				return false
			}
		}
	case json.Delim('['):
		for dec.More() {
			if !uniqueKeys(dec) {
				return false
			}
		}
	default:
		return true
	}

	_, err = dec.Token()
	return err == nil
}

// Sum считает контрольную сумму текущей версии.
func Sum(data []byte) string {
	return sumV1(data)
}

// Verify пересчитывает сумму той версией, что указана в sum.
func Verify(data []byte, sum string) error {
	version, _, ok := strings.Cut(sum, ":")
	if !ok {
		return ErrMalformed
	}

	var actual string
	switch version {
	case V1:
		actual = sumV1(data)
	default:
		return fmt.Errorf("%w: %s", ErrUnknownVersion, version)
	}

	if actual != sum {
		return ErrMismatch
	}
	return nil
}

func sumV1(data []byte) string {
	h := sha256.Sum256(Canonical(data))
	return V1 + ":" + hex.EncodeToString(h[:])
}
