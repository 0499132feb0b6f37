package auth

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"fmt"
	"io"

	"golang.org/x/crypto/pbkdf2"

	"github.com/BaSui01/dbflow/types"
)

// 加密参数：PBKDF2(SHA-256) 推导 AES-256-GCM 密钥
const (
	saltLength       = 16
	keyLength        = 32
	pbkdf2Iterations = 100_000
)

// EncryptedBlob 承载加密后的认证描述符：密文、推导盐与迭代次数。
// 本层从不持久化它，落盘与否由调用方决定。
type EncryptedBlob struct {
	Ciphertext []byte `json:"ciphertext"`
	Salt       []byte `json:"salt"`
	Iterations int    `json:"iterations"`
}

// deriveKey 由密钥材料与盐推导对称密钥
func deriveKey(material, salt []byte, iterations int) []byte {
	return pbkdf2.Key(material, salt, iterations, keyLength, sha256.New)
}

// seal 用随机盐推导密钥并加密明文，nonce 前置在密文中
func seal(plaintext, material []byte) (EncryptedBlob, error) {
	salt := make([]byte, saltLength)
	if _, err := io.ReadFull(rand.Reader, salt); err != nil {
		return EncryptedBlob{}, fmt.Errorf("failed to generate salt: %w", err)
	}

	gcm, err := newGCM(deriveKey(material, salt, pbkdf2Iterations))
	if err != nil {
		return EncryptedBlob{}, err
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return EncryptedBlob{}, fmt.Errorf("failed to generate nonce: %w", err)
	}

	return EncryptedBlob{
		Ciphertext: gcm.Seal(nonce, nonce, plaintext, nil),
		Salt:       salt,
		Iterations: pbkdf2Iterations,
	}, nil
}

// open 解密并校验认证标签。任何标签失配都是 DecryptionError，
// 绝不返回静默的空结果。
func open(blob EncryptedBlob, material []byte) ([]byte, error) {
	if len(blob.Salt) == 0 || len(blob.Ciphertext) == 0 {
		return nil, types.NewDecryptionError("encrypted blob is missing salt or ciphertext")
	}
	iterations := blob.Iterations
	if iterations <= 0 {
		iterations = pbkdf2Iterations
	}

	gcm, err := newGCM(deriveKey(material, blob.Salt, iterations))
	if err != nil {
		return nil, err
	}
	if len(blob.Ciphertext) < gcm.NonceSize() {
		return nil, types.NewDecryptionError("encrypted blob is truncated")
	}

	nonce, ciphertext := blob.Ciphertext[:gcm.NonceSize()], blob.Ciphertext[gcm.NonceSize():]
	plaintext, err := gcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, types.NewDecryptionError("credential blob authentication failed").WithCause(err)
	}
	return plaintext, nil
}

func newGCM(key []byte) (cipher.AEAD, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize GCM: %w", err)
	}
	return gcm, nil
}
