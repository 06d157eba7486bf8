package slug

import (
	"strings"
	"unicode"
)

// Make строит URL-слаг из названия товара: нижний регистр, пробелы
// заменяются дефисами, всё кроме букв, цифр, '_' и '-' отбрасывается,
// серии дефисов схлопываются в один.
func Make(text string) string {
	var b strings.Builder
	lastDash := true // подавляет ведущие дефисы

	for _, r := range strings.TrimSpace(strings.ToLower(text)) {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_':
			b.WriteRune(r)
			lastDash = false
		case unicode.IsSpace(r) || r == '-':
			if !lastDash {
				b.WriteByte('-')
				lastDash = true
			}
		}
	}

	return strings.TrimRight(b.String(), "-")
}
