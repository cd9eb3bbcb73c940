// Package crypto implements the primitive layer exercised by the
// benchmark: key agreements and symmetric ciphers, each reported with
// the wall-clock latency and wire byte cost of one operation.
//
// Agreements and ciphers are closed enumerations, not open
// hierarchies. Adding an algorithm means adding a variant and its
// arm in the Suite, which keeps the factor sets of the experiment
// explicit.
//
//   - AgreementClassical: ephemeral X25519 ECDH (32 bytes on the wire)
//   - AgreementHybrid: X25519 ECDH combined with a Kyber768 KEM
//     encapsulation (2304 bytes on the wire)
//   - CipherAESGCM, CipherChaCha20Poly1305: AEAD round-trips
//   - CipherMegolm: AES-256-CTR, Matrix Megolm style, unauthenticated
package crypto
