package crypto

import (
	"crypto/sha256"
	"io"

	"golang.org/x/crypto/hkdf"
)

// DeriveKey derives a key of the specified length using HKDF-SHA256.
// salt can be nil (uses zero salt), info provides context binding.
func DeriveKey(secret, salt, info []byte, length int) ([]byte, error) {
	hk := hkdf.New(sha256.New, secret, salt, info)
	key := make([]byte, length)
	if _, err := io.ReadFull(hk, key); err != nil {
		return nil, err
	}
	return key, nil
}

// DeriveSessionKey derives the 32-byte symmetric session key from the
// agreement secret. The context includes both public keys so the key
// is bound to this specific exchange; for the hybrid agreement the
// secret already concatenates the ECDH and KEM shared secrets.
func DeriveSessionKey(secret []byte, initiatorPub, responderPub [32]byte) ([]byte, error) {
	info := make([]byte, 0, 64+len("pqbench-session-key"))
	info = append(info, []byte("pqbench-session-key")...)
	info = append(info, initiatorPub[:]...)
	info = append(info, responderPub[:]...)
	return DeriveKey(secret, nil, info, 32)
}
