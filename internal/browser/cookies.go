package browser

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"
)

// Cookies are persisted encrypted so a warmed session can be reused across
// runs without keeping plaintext session tokens at rest. Credentials are
// never stored, only cookies.

var cookieKey = []byte("0123456789abcdef0123456789abcdef") // 32 bytes, demo default

func init() {
	if key := os.Getenv("COOKIE_ENCRYPTION_KEY"); len(key) == 32 {
		cookieKey = []byte(key)
	}
}

// ExportCookies reads the page's cookies and returns them as a hex-encoded
// AES-GCM ciphertext suitable for storage.
func ExportCookies(page *rod.Page) (string, error) {
	cookies, err := page.Cookies(nil)
	if err != nil {
		return "", fmt.Errorf("failed to read cookies: %w", err)
	}

	data, err := json.Marshal(cookies)
	if err != nil {
		return "", err
	}

	return seal(data)
}

// ImportCookies decrypts a previously exported blob and installs the
// cookies on the page.
func ImportCookies(page *rod.Page, encrypted string) error {
	plaintext, err := open(encrypted)
	if err != nil {
		return err
	}

	var cookies []*proto.NetworkCookie
	if err := json.Unmarshal(plaintext, &cookies); err != nil {
		return fmt.Errorf("failed to decode cookies: %w", err)
	}

	params := make([]*proto.NetworkCookieParam, 0, len(cookies))
	for _, c := range cookies {
		params = append(params, &proto.NetworkCookieParam{
			Name:     c.Name,
			Value:    c.Value,
			Domain:   c.Domain,
			Path:     c.Path,
			Secure:   c.Secure,
			HTTPOnly: c.HTTPOnly,
			SameSite: c.SameSite,
			Expires:  c.Expires,
		})
	}

	return page.SetCookies(params)
}

func seal(data []byte) (string, error) {
	gcm, err := newGCM()
	if err != nil {
		return "", err
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", err
	}

	return hex.EncodeToString(gcm.Seal(nonce, nonce, data, nil)), nil
}

func open(encrypted string) ([]byte, error) {
	data, err := hex.DecodeString(encrypted)
	if err != nil {
		return nil, fmt.Errorf("cookie blob is not valid hex: %w", err)
	}

	gcm, err := newGCM()
	if err != nil {
		return nil, err
	}

	nonceSize := gcm.NonceSize()
	if len(data) < nonceSize {
		return nil, fmt.Errorf("cookie blob too short")
	}

	plaintext, err := gcm.Open(nil, data[:nonceSize], data[nonceSize:], nil)
	if err != nil {
		return nil, fmt.Errorf("failed to decrypt cookies: %w", err)
	}

	return plaintext, nil
}

func newGCM() (cipher.AEAD, error) {
	block, err := aes.NewCipher(cookieKey)
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}
