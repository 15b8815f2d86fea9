package service

import (
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrLogoEmpty ロゴデータが空
	ErrLogoEmpty = errors.New("logo data is empty")
	// ErrLogoTooLarge ロゴが上限サイズを超えている
	ErrLogoTooLarge = errors.New("logo file size exceeds limit")
)

// ValidateLogoData ロゴのサイズのみ検証（画像の中身はデコードしない）
func ValidateLogoData(data []byte, maxBytes int64) error {
	if len(data) == 0 {
		return ErrLogoEmpty
	}

	if int64(len(data)) > maxBytes {
		return fmt.Errorf("%w: %d bytes (max %d)", ErrLogoTooLarge, len(data), maxBytes)
	}

	return nil
}

// EncodeLogoDataURL 不透明な data URL 文字列に変換
func EncodeLogoDataURL(data []byte) string {
	mimeType := http.DetectContentType(data)
	return "data:" + mimeType + ";base64," + base64.StdEncoding.EncodeToString(data)
}
