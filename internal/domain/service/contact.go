package service

import (
	"regexp"
	"unicode"
)

var (
	emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
	phonePattern = regexp.MustCompile(`^\+?[0-9().\-\s]+$`)
)

// minPhoneDigits 電話番号として扱う最小桁数
const minPhoneDigits = 10

// ValidateEmail local@domain.tld 形式か検証
func ValidateEmail(email string) bool {
	return emailPattern.MatchString(email)
}

// ValidatePhone 括弧・ハイフン・ドット・空白・先頭の+を許可し、数字が10桁以上あるか検証
func ValidatePhone(phone string) bool {
	if !phonePattern.MatchString(phone) {
		return false
	}

	digits := 0
	for _, r := range phone {
		if unicode.IsDigit(r) {
			digits++
		}
	}
	return digits >= minPhoneDigits
}
