package base64

import (
	"encoding/base64"
	"strings"
)

// EncodeToBase64 encodes the input string to a base64 string
func EncodeToBase64(input string) string {
	return base64.StdEncoding.EncodeToString([]byte(input))
}

// DecodeFromBase64 decodes standard or URL-safe base64, padded or not.
func DecodeFromBase64(input string) (string, error) {
	input = strings.TrimSpace(input)
	for _, enc := range []*base64.Encoding{base64.StdEncoding, base64.RawStdEncoding, base64.URLEncoding, base64.RawURLEncoding} {
		if data, err := enc.DecodeString(input); err == nil {
			return string(data), nil
		}
	}
	data, err := base64.StdEncoding.DecodeString(input)
	if err != nil {
		return "", err
	}
	return string(data), nil
}
