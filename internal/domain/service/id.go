package service

import "github.com/google/uuid"

// GenerateID セッション内で一意な不透明ID
func GenerateID() string {
	return uuid.NewString()
}
