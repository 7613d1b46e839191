// Package rsakeys holds the RSA key pair used to encrypt login passwords in
// debug environments.
package rsakeys

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/base64"
	"encoding/pem"
	"errors"
	"fmt"
)

const DefaultBits = 2048

var ErrDecrypt = errors.New("cannot decrypt payload")

type KeyPair struct {
	priv *rsa.PrivateKey
}

func Generate(bits int) (*KeyPair, error) {
	if bits <= 0 {
		bits = DefaultBits
	}
	priv, err := rsa.GenerateKey(rand.Reader, bits)
	if err != nil {
		return nil, fmt.Errorf("generate rsa key: %w", err)
	}
	return &KeyPair{priv: priv}, nil
}

// Parse accepts a PKCS#1 ("RSA PRIVATE KEY") or PKCS#8 ("PRIVATE KEY") PEM block.
func Parse(pemData []byte) (*KeyPair, error) {
	block, _ := pem.Decode(pemData)
	if block == nil {
		return nil, errors.New("rsa key: no PEM block found")
	}

	switch block.Type {
	case "RSA PRIVATE KEY":
		priv, err := x509.ParsePKCS1PrivateKey(block.Bytes)
		if err != nil {
			return nil, fmt.Errorf("rsa key: %w", err)
		}
		return &KeyPair{priv: priv}, nil
	case "PRIVATE KEY":
		key, err := x509.ParsePKCS8PrivateKey(block.Bytes)
		if err != nil {
			return nil, fmt.Errorf("rsa key: %w", err)
		}
		priv, ok := key.(*rsa.PrivateKey)
		if !ok {
			return nil, fmt.Errorf("rsa key: unsupported key type %T", key)
		}
		return &KeyPair{priv: priv}, nil
	default:
		return nil, fmt.Errorf("rsa key: unexpected PEM type %q", block.Type)
	}
}

func (k *KeyPair) PrivatePEM() []byte {
	return pem.EncodeToMemory(&pem.Block{
		Type:  "RSA PRIVATE KEY",
		Bytes: x509.MarshalPKCS1PrivateKey(k.priv),
	})
}

func (k *KeyPair) PublicPEM() ([]byte, error) {
	der, err := x509.MarshalPKIXPublicKey(&k.priv.PublicKey)
	if err != nil {
		return nil, fmt.Errorf("marshal public key: %w", err)
	}
	return pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: der}), nil
}

// Encrypt is the client side of Decrypt: PKCS#1 v1.5, then standard base64.
func (k *KeyPair) Encrypt(plain string) (string, error) {
	return EncryptWith(&k.priv.PublicKey, plain)
}

func EncryptWith(pub *rsa.PublicKey, plain string) (string, error) {
	ct, err := rsa.EncryptPKCS1v15(rand.Reader, pub, []byte(plain))
	if err != nil {
		return "", fmt.Errorf("encrypt: %w", err)
	}
	return base64.StdEncoding.EncodeToString(ct), nil
}

func (k *KeyPair) Decrypt(encoded string) (string, error) {
	ct, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrDecrypt, err)
	}
	plain, err := rsa.DecryptPKCS1v15(rand.Reader, k.priv, ct)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrDecrypt, err)
	}
	return string(plain), nil
}
