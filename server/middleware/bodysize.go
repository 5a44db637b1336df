package middleware

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
)

const defaultMaxBodySize = 1 << 20 // 1MB

// BodySizeLimit restricts request bodies to maxSize ("512KB", "1MB", "2GB"
// or a plain byte count). Unparseable values fall back to 1MB.
func BodySizeLimit(maxSize string) Middleware {
	size := parseSize(maxSize, defaultMaxBodySize)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.ContentLength > size {
				http.Error(w, http.StatusText(http.StatusRequestEntityTooLarge), http.StatusRequestEntityTooLarge)
				return
			}
			r.Body = http.MaxBytesReader(w, r.Body, size)
			next.ServeHTTP(w, r)
		})
	}
}

// ParseSize reads a byte size such as "512KB", "1MB", "2 GB" or a plain
// count. Units are binary and case-insensitive.
func ParseSize(s string) (int64, error) {
	num := strings.ToUpper(strings.TrimSpace(s))
	multiplier := int64(1)
	for _, unit := range []struct {
		suffix string
		mult   int64
	}{
		{"GB", 1 << 30},
		{"MB", 1 << 20},
		{"KB", 1 << 10},
		{"B", 1},
	} {
		if strings.HasSuffix(num, unit.suffix) {
			multiplier = unit.mult
			num = strings.TrimSpace(strings.TrimSuffix(num, unit.suffix))
			break
		}
	}
	n, err := strconv.ParseInt(num, 10, 64)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("invalid size %q", s)
	}
	return n * multiplier, nil
}

func parseSize(s string, fallback int64) int64 {
	n, err := ParseSize(s)
	if err != nil {
		return fallback
	}
	return n
}
