package xid

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

func New(prefix string) string {
	return fmt.Sprintf("%s-%s", prefix, uuid.NewString())
}

// NewFor builds an id that encodes the id of the entity it came from.
func NewFor(prefix string, source string) string {
	if source == "" {
		return New(prefix)
	}
	short := strings.ReplaceAll(uuid.NewString(), "-", "")[:12]
	return fmt.Sprintf("%s-%s~%s", prefix, source, short)
}

// Encodes reports whether id was built by NewFor with the same source.
func Encodes(id string, prefix string, source string) bool {
	if source == "" {
		return false
	}
	return strings.HasPrefix(id, prefix+"-"+source+"~")
}
