package share

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"strings"

	qrcode "github.com/skip2/go-qrcode"
)

const (
	CodeLength = 5
	alphabet   = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"
	qrSize     = 256
)

// GenerateCode returns a random code of n characters from [A-Za-z0-9].
func GenerateCode(n int) (string, error) {
	var b strings.Builder
	b.Grow(n)
	max := big.NewInt(int64(len(alphabet)))
	for i := 0; i < n; i++ {
		idx, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", fmt.Errorf("failed to generate share code: %w", err)
		}
		b.WriteByte(alphabet[idx.Int64()])
	}
	return b.String(), nil
}

// Link is the public URL a share code resolves at.
func Link(publicBaseURL, code string) string {
	return strings.TrimRight(publicBaseURL, "/") + "/share/" + code
}

// QRCode renders the share link as a PNG.
func QRCode(publicBaseURL, code string) ([]byte, error) {
	png, err := qrcode.Encode(Link(publicBaseURL, code), qrcode.Medium, qrSize)
	if err != nil {
		return nil, fmt.Errorf("failed to encode share QR code: %w", err)
	}
	return png, nil
}
