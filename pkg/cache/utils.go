package cache

import (
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"strings"
)

// GenerateKey joins a prefix and parameters with colons.
func GenerateKey(prefix string, params ...interface{}) string {
	var b strings.Builder
	b.WriteString(prefix)
	for _, p := range params {
		b.WriteByte(':')
		fmt.Fprint(&b, p)
	}
	return b.String()
}

// HashKey shortens an arbitrary string into a fixed-width key component.
func HashKey(key string) string {
	sum := sha1.Sum([]byte(key))
	return hex.EncodeToString(sum[:])
}
