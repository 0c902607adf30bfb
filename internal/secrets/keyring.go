// Package secrets seals model credentials at rest with age so the .env
// and config files never hold an API key in clear text.
package secrets

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"filippo.io/age"

	"github.com/dohr-michael/askbetter/internal/config"
)

const (
	sealedPrefix = "ENC[age:"
	sealedSuffix = "]"
)

// ErrNoKey is returned when a sealed value is found but no key file exists.
var ErrNoKey = errors.New("no age key: run 'askbetter secret set' first")

// KeyPath returns the key file location: $ASKBETTER_PATH/.age-key.
func KeyPath() string {
	return filepath.Join(config.HomePath(), ".age-key")
}

// Keyring holds the X25519 identity used to seal and open credentials.
type Keyring struct {
	id *age.X25519Identity
}

// CreateKeyring loads the key at path, generating it (mode 0600) when the
// file does not exist yet.
func CreateKeyring(path string) (*Keyring, error) {
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		id, err := age.GenerateX25519Identity()
		if err != nil {
			return nil, fmt.Errorf("generate age identity: %w", err)
		}
		content := fmt.Sprintf("# askbetter credential key\n# public key: %s\n%s\n", id.Recipient(), id)
		if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
			return nil, fmt.Errorf("create key directory: %w", err)
		}
		if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
			return nil, fmt.Errorf("write age key: %w", err)
		}
		return &Keyring{id: id}, nil
	}
	return OpenKeyring(path)
}

// OpenKeyring loads an existing key file.
func OpenKeyring(path string) (*Keyring, error) {
	f, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, ErrNoKey
	}
	if err != nil {
		return nil, fmt.Errorf("open age key: %w", err)
	}
	defer f.Close()

	ids, err := age.ParseIdentities(f)
	if err != nil {
		return nil, fmt.Errorf("parse age key: %w", err)
	}
	for _, id := range ids {
		if x, ok := id.(*age.X25519Identity); ok {
			return &Keyring{id: x}, nil
		}
	}
	return nil, fmt.Errorf("no X25519 identity in %s", path)
}

// Recipient returns the public key values are sealed to.
func (k *Keyring) Recipient() string { return k.id.Recipient().String() }

// Seal encrypts plaintext into an ENC[age:...] value.
func (k *Keyring) Seal(plaintext string) (string, error) {
	var buf bytes.Buffer
	w, err := age.Encrypt(&buf, k.id.Recipient())
	if err != nil {
		return "", fmt.Errorf("age encrypt: %w", err)
	}
	if _, err := io.WriteString(w, plaintext); err != nil {
		return "", fmt.Errorf("age encrypt: %w", err)
	}
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("age encrypt: %w", err)
	}
	return sealedPrefix + base64.StdEncoding.EncodeToString(buf.Bytes()) + sealedSuffix, nil
}

// Open decrypts a sealed value. Plain values are returned unchanged.
func (k *Keyring) Open(value string) (string, error) {
	if !IsSealed(value) {
		return value, nil
	}
	raw, err := base64.StdEncoding.DecodeString(value[len(sealedPrefix) : len(value)-len(sealedSuffix)])
	if err != nil {
		return "", fmt.Errorf("decode sealed value: %w", err)
	}
	r, err := age.Decrypt(bytes.NewReader(raw), k.id)
	if err != nil {
		return "", fmt.Errorf("age decrypt: %w", err)
	}
	out, err := io.ReadAll(r)
	if err != nil {
		return "", fmt.Errorf("age decrypt: %w", err)
	}
	return string(out), nil
}

// IsSealed reports whether s is an ENC[age:...] value.
func IsSealed(s string) bool {
	return strings.HasPrefix(s, sealedPrefix) && strings.HasSuffix(s, sealedSuffix)
}

// Reveal opens value with the key at KeyPath when it is sealed.
func Reveal(value string) (string, error) {
	if !IsSealed(value) {
		return value, nil
	}
	k, err := OpenKeyring(KeyPath())
	if err != nil {
		return "", err
	}
	return k.Open(value)
}
