// Package digest computes content fingerprints for monitored files.
//
// A digest is the lowercase hex encoding of a cryptographic hash over the full
// byte stream of a file. The supported algorithms form a closed set:
//
//   - md5
//   - sha1
//   - sha224
//   - sha256 (default)
//   - sha384
//   - sha512
//
// Any other name resolves to sha256, so a typo in configuration never disables
// hashing.
//
// # Usage
//
//	alg := digest.Parse(cfg.Monitor.Algorithm)
//	sum, err := digest.File("/usr/bin/ls", alg)
package digest
