package sessions

import (
	"crypto/sha256"
	"fmt"
	"io"

	"golang.org/x/crypto/hkdf"
)

const (
	hashKeyLength  = 64
	blockKeyLength = 32
)

// DeriveKeys expands one configured secret into independent signing and
// encryption keys for securecookie.
func DeriveKeys(secret []byte) (hashKey, blockKey []byte, err error) {
	hashKey = make([]byte, hashKeyLength)
	if _, err := io.ReadFull(hkdf.New(sha256.New, secret, nil, []byte("ir-portal cookie hash")), hashKey); err != nil {
		return nil, nil, fmt.Errorf("derive hash key: %w", err)
	}
	blockKey = make([]byte, blockKeyLength)
	if _, err := io.ReadFull(hkdf.New(sha256.New, secret, nil, []byte("ir-portal cookie block")), blockKey); err != nil {
		return nil, nil, fmt.Errorf("derive block key: %w", err)
	}
	return hashKey, blockKey, nil
}
