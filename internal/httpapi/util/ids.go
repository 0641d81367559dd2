package util

import (
	"fmt"

	"github.com/google/uuid"
)

// NewID genera ids tipo "rnd_<uuid>" para recursos del API.
func NewID(prefix string) string {
	return fmt.Sprintf("%s_%s", prefix, uuid.NewString())
}
