package session

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
)

// FileStore keeps the bearer token in a 0600 file with AES-GCM obfuscation.
// Not a replacement for OS keychains but avoids a plain-text token on disk.
type FileStore struct {
	path string
}

type tokenFile struct {
	Token   string `json:"token"` // base64(nonce|ciphertext)
	SavedAt string `json:"savedAt"`
}

func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Load returns the stored token, or "" when nothing has been saved.
func (f *FileStore) Load() (string, error) {
	data, err := os.ReadFile(f.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", nil
		}
		return "", err
	}
	var tf tokenFile
	if err := json.Unmarshal(data, &tf); err != nil {
		return "", fmt.Errorf("decode session file: %w", err)
	}
	if tf.Token == "" {
		return "", nil
	}
	raw, err := base64.StdEncoding.DecodeString(tf.Token)
	if err != nil {
		return "", fmt.Errorf("decode session token: %w", err)
	}
	pt, err := decrypt(raw)
	if err != nil {
		return "", fmt.Errorf("decrypt session token: %w", err)
	}
	return string(pt), nil
}

func (f *FileStore) Save(token string, savedAt string) error {
	if err := os.MkdirAll(filepath.Dir(f.path), 0o700); err != nil { // restrict directory
		return err
	}
	ct, err := encrypt([]byte(token))
	if err != nil {
		return err
	}
	data, err := json.MarshalIndent(tokenFile{
		Token:   base64.StdEncoding.EncodeToString(ct),
		SavedAt: savedAt,
	}, "", "  ")
	if err != nil {
		return err
	}
	tmp := f.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return err
	}
	return os.Rename(tmp, f.path)
}

// Clear removes the file. Clearing an empty store is not an error.
func (f *FileStore) Clear() error {
	if err := os.Remove(f.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

func masterKey() []byte {
	base := fmt.Sprintf("hrdesk-%s-%s", runtime.GOOS, os.Getenv("USER"))
	hash := sha256.Sum256([]byte(base))
	return hash[:]
}

func newGCM() (cipher.AEAD, error) {
	block, err := aes.NewCipher(masterKey())
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}

func encrypt(plain []byte) ([]byte, error) {
	gcm, err := newGCM()
	if err != nil {
		return nil, err
	}
	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, err
	}
	return gcm.Seal(nonce, nonce, plain, nil), nil
}

func decrypt(ciphertext []byte) ([]byte, error) {
	gcm, err := newGCM()
	if err != nil {
		return nil, err
	}
	if len(ciphertext) < gcm.NonceSize() {
		return nil, fmt.Errorf("ciphertext too short")
	}
	nonce := ciphertext[:gcm.NonceSize()]
	body := ciphertext[gcm.NonceSize():]
	return gcm.Open(nil, nonce, body, nil)
}
