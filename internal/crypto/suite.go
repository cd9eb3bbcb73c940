package crypto

import (
	"crypto/subtle"
	"errors"
	"fmt"
	"time"

	"github.com/cloudflare/circl/kem"
	"github.com/cloudflare/circl/kem/kyber/kyber768"
)

var (
	ErrUnknownAgreement      = errors.New("crypto: unknown key agreement")
	ErrUnknownCipher         = errors.New("crypto: unknown cipher")
	ErrDecapsulationMismatch = errors.New("crypto: KEM shared secrets do not match")
)

// Agreement selects the key-agreement protocol for a session.
type Agreement uint8

const (
	// AgreementClassical is ephemeral X25519 ECDH only.
	AgreementClassical Agreement = iota
	// AgreementHybrid combines X25519 ECDH with a Kyber768 KEM
	// encapsulation, mixing both shared secrets through HKDF.
	AgreementHybrid
)

func (a Agreement) String() string {
	switch a {
	case AgreementClassical:
		return "Olm-Classical"
	case AgreementHybrid:
		return "Olm-Hybrid"
	default:
		return fmt.Sprintf("Agreement(%d)", uint8(a))
	}
}

// Agreements returns all agreement variants in enumeration order.
func Agreements() []Agreement {
	return []Agreement{AgreementClassical, AgreementHybrid}
}

// Cipher selects the symmetric cipher used for message payloads.
type Cipher uint8

const (
	CipherAESGCM Cipher = iota
	CipherChaCha20Poly1305
	// CipherMegolm is AES-256-CTR without authentication, matching
	// the Matrix Megolm construction.
	CipherMegolm
)

func (c Cipher) String() string {
	switch c {
	case CipherAESGCM:
		return "AES-GCM"
	case CipherChaCha20Poly1305:
		return "ChaCha20"
	case CipherMegolm:
		return "Megolm-Like"
	default:
		return fmt.Sprintf("Cipher(%d)", uint8(c))
	}
}

// Ciphers returns all cipher variants in enumeration order.
func Ciphers() []Cipher {
	return []Cipher{CipherAESGCM, CipherChaCha20Poly1305, CipherMegolm}
}

// AgreeResult is the outcome of one key agreement: the derived session
// key, the measured wall-clock latency, and the bytes a real exchange
// would have put on the wire.
type AgreeResult struct {
	Key     [32]byte
	Latency time.Duration
	Bytes   int
}

// CipherResult is the outcome of one encrypt+decrypt round-trip.
type CipherResult struct {
	Latency         time.Duration
	CiphertextBytes int
}

// Provider is the primitive surface the session runner consumes. The
// production implementation is Suite; tests substitute failing or
// counting providers.
type Provider interface {
	Agree(a Agreement) (AgreeResult, error)
	RoundTrip(c Cipher, key, plaintext []byte) (CipherResult, error)
}

// Suite holds the long-lived responder keys a session peer would
// publish: a static X25519 public key and a Kyber768 KEM keypair.
// Each Agree call plays the initiator against those keys.
type Suite struct {
	respX25519 X25519KeyPair
	kyber      kem.Scheme
	kyberPub   kem.PublicKey
	kyberPriv  kem.PrivateKey
}

// NewSuite generates fresh responder keys.
func NewSuite() (*Suite, error) {
	xkp, err := GenerateX25519()
	if err != nil {
		return nil, fmt.Errorf("crypto: generate X25519 responder key: %w", err)
	}
	scheme := kyber768.Scheme()
	pub, priv, err := scheme.GenerateKeyPair()
	if err != nil {
		return nil, fmt.Errorf("crypto: generate Kyber768 responder key: %w", err)
	}
	return &Suite{
		respX25519: xkp,
		kyber:      scheme,
		kyberPub:   pub,
		kyberPriv:  priv,
	}, nil
}

// Agree performs one key agreement against the responder keys and
// reports the derived session key, latency and byte cost.
func (s *Suite) Agree(a Agreement) (AgreeResult, error) {
	start := time.Now()

	eph, err := GenerateX25519()
	if err != nil {
		return AgreeResult{}, fmt.Errorf("crypto: ephemeral keypair: %w", err)
	}
	shared, err := ECDH(eph.PrivateKey, s.respX25519.PublicKey)
	if err != nil {
		return AgreeResult{}, fmt.Errorf("crypto: ECDH: %w", err)
	}

	var secret []byte
	var bytes int
	switch a {
	case AgreementClassical:
		secret = shared
		bytes = len(eph.PublicKey)
	case AgreementHybrid:
		ct, encapSecret, err := s.kyber.Encapsulate(s.kyberPub)
		if err != nil {
			return AgreeResult{}, fmt.Errorf("crypto: Kyber768 encapsulate: %w", err)
		}
		decapSecret, err := s.kyber.Decapsulate(s.kyberPriv, ct)
		if err != nil {
			return AgreeResult{}, fmt.Errorf("crypto: Kyber768 decapsulate: %w", err)
		}
		if subtle.ConstantTimeCompare(encapSecret, decapSecret) != 1 {
			return AgreeResult{}, ErrDecapsulationMismatch
		}
		secret = append(append([]byte{}, shared...), encapSecret...)
		bytes = len(eph.PublicKey) + s.kyber.CiphertextSize() + s.kyber.PublicKeySize()
	default:
		return AgreeResult{}, ErrUnknownAgreement
	}

	key, err := DeriveSessionKey(secret, eph.PublicKey, s.respX25519.PublicKey)
	if err != nil {
		return AgreeResult{}, err
	}

	res := AgreeResult{Latency: time.Since(start), Bytes: bytes}
	copy(res.Key[:], key)
	return res, nil
}

// RoundTrip encrypts and then decrypts plaintext under key with the
// selected cipher, reporting the combined latency and the ciphertext
// size including nonce/IV overhead.
func (s *Suite) RoundTrip(c Cipher, key, plaintext []byte) (CipherResult, error) {
	start := time.Now()
	sealed, err := Seal(c, key, plaintext)
	if err != nil {
		return CipherResult{}, err
	}
	if _, err := Open(c, key, sealed); err != nil {
		return CipherResult{}, err
	}
	return CipherResult{
		Latency:         time.Since(start),
		CiphertextBytes: len(sealed),
	}, nil
}
