package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"errors"
	"io"

	"golang.org/x/crypto/chacha20poly1305"
)

var (
	ErrCiphertextTooShort = errors.New("crypto: ciphertext too short")
	ErrDecryptionFailed   = errors.New("crypto: decryption failed")
	ErrInvalidKeySize     = errors.New("crypto: key must be 32 bytes")
)

const megolmIVSize = aes.BlockSize

// Seal encrypts plaintext under a fresh random nonce/IV.
// Output format: nonce/IV || ciphertext (|| tag for the AEADs).
func Seal(c Cipher, key, plaintext []byte) ([]byte, error) {
	if len(key) != 32 {
		return nil, ErrInvalidKeySize
	}
	switch c {
	case CipherAESGCM:
		block, err := aes.NewCipher(key)
		if err != nil {
			return nil, err
		}
		aead, err := cipher.NewGCM(block)
		if err != nil {
			return nil, err
		}
		return sealAEAD(aead, plaintext)
	case CipherChaCha20Poly1305:
		aead, err := chacha20poly1305.New(key)
		if err != nil {
			return nil, err
		}
		return sealAEAD(aead, plaintext)
	case CipherMegolm:
		return sealMegolm(key, plaintext)
	default:
		return nil, ErrUnknownCipher
	}
}

// Open decrypts the output of Seal. For the AEAD ciphers a forged or
// corrupted input fails authentication; Megolm (CTR) has no integrity
// and only length errors are detectable.
func Open(c Cipher, key, sealed []byte) ([]byte, error) {
	if len(key) != 32 {
		return nil, ErrInvalidKeySize
	}
	switch c {
	case CipherAESGCM:
		block, err := aes.NewCipher(key)
		if err != nil {
			return nil, err
		}
		aead, err := cipher.NewGCM(block)
		if err != nil {
			return nil, err
		}
		return openAEAD(aead, sealed)
	case CipherChaCha20Poly1305:
		aead, err := chacha20poly1305.New(key)
		if err != nil {
			return nil, err
		}
		return openAEAD(aead, sealed)
	case CipherMegolm:
		return openMegolm(key, sealed)
	default:
		return nil, ErrUnknownCipher
	}
}

func sealAEAD(aead cipher.AEAD, plaintext []byte) ([]byte, error) {
	nonce := make([]byte, aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, err
	}
	return aead.Seal(nonce, nonce, plaintext, nil), nil
}

func openAEAD(aead cipher.AEAD, sealed []byte) ([]byte, error) {
	if len(sealed) < aead.NonceSize()+aead.Overhead() {
		return nil, ErrCiphertextTooShort
	}
	nonce := sealed[:aead.NonceSize()]
	plaintext, err := aead.Open(nil, nonce, sealed[aead.NonceSize():], nil)
	if err != nil {
		return nil, ErrDecryptionFailed
	}
	return plaintext, nil
}

func sealMegolm(key, plaintext []byte) ([]byte, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	out := make([]byte, megolmIVSize+len(plaintext))
	iv := out[:megolmIVSize]
	if _, err := io.ReadFull(rand.Reader, iv); err != nil {
		return nil, err
	}
	cipher.NewCTR(block, iv).XORKeyStream(out[megolmIVSize:], plaintext)
	return out, nil
}

func openMegolm(key, sealed []byte) ([]byte, error) {
	if len(sealed) < megolmIVSize {
		return nil, ErrCiphertextTooShort
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	iv := sealed[:megolmIVSize]
	plaintext := make([]byte, len(sealed)-megolmIVSize)
	cipher.NewCTR(block, iv).XORKeyStream(plaintext, sealed[megolmIVSize:])
	return plaintext, nil
}
