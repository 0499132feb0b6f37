// Package auth 将认证描述符规范化为驱动连接参数。
//
// 支持六种认证方案：静态用户名密码、环境变量、操作系统凭据库、
// 客户端证书、Bearer Token 与云角色直通。描述符可经 PBKDF2 + AES-GCM
// 加密后静态存放，密钥材料在 Resolver 生命周期内缓存。
package auth

import (
	"context"
	"crypto/rand"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sync"

	"go.uber.org/zap"

	"github.com/BaSui01/dbflow/internal/tlsutil"
	"github.com/BaSui01/dbflow/types"
)

// Resolver 解析认证描述符并管理其加密形态。
// 并发安全；一个进程通常只需要一个实例。
type Resolver struct {
	logger *zap.Logger

	mu          sync.Mutex
	keyMaterial []byte // Encrypt 未显式给密钥时生成并缓存
}

// Option 配置 Resolver
type Option func(*Resolver)

// WithLogger 注入日志器
func WithLogger(logger *zap.Logger) Option {
	return func(r *Resolver) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// WithKeyMaterial 预置加密密钥材料，跳过首次加密时的随机生成
func WithKeyMaterial(material []byte) Option {
	return func(r *Resolver) {
		r.keyMaterial = append([]byte(nil), material...)
	}
}

// NewResolver 创建凭据解析器
func NewResolver(opts ...Option) *Resolver {
	r := &Resolver{logger: zap.NewNop()}
	for _, opt := range opts {
		opt(r)
	}
	r.logger = r.logger.With(zap.String("component", "auth_resolver"))
	return r
}

// Resolve 将描述符规范化为驱动参数。每个变体映射到恰好一种参数形态；
// 未知或不完整的描述符是配置错误，绝不静默忽略。
func (r *Resolver) Resolve(ctx context.Context, d types.AuthDescriptor) (types.DriverParams, error) {
	if err := d.Validate(); err != nil {
		return types.DriverParams{}, err
	}

	var (
		params types.DriverParams
		err    error
	)
	switch d.Type {
	case types.AuthBasic:
		params = types.DriverParams{Username: d.Basic.Username, Password: d.Basic.Password}
	case types.AuthEnvironment:
		params, err = r.resolveEnvironment(d.Environment)
	case types.AuthCredentialStore:
		params, err = r.resolveCredentialStore(d.CredentialStore)
	case types.AuthCertificate:
		params, err = r.resolveCertificate(d.Certificate)
	case types.AuthToken:
		// 许多 SQL 驱动在 TLS 之上接受 bearer token 作为密码
		params = types.DriverParams{Password: d.Token.Token}
	case types.AuthCloudRole:
		params = types.DriverParams{ConnectArgs: map[string]any{
			"aws_role_arn": d.CloudRole.RoleARN,
			"aws_region":   d.CloudRole.Region,
		}}
	default:
		err = types.NewConfigurationError(fmt.Sprintf("unknown auth type: %q", d.Type))
	}
	if err != nil {
		return types.DriverParams{}, err
	}

	r.logger.Debug("credentials resolved", zap.String("auth_type", string(d.Type)))
	return params, nil
}

// resolveEnvironment 从进程环境读取两个变量，缺失时指名变量以便排障
func (r *Resolver) resolveEnvironment(env *types.EnvironmentAuth) (types.DriverParams, error) {
	if env.UsernameVar == "" || env.PasswordVar == "" {
		return types.DriverParams{}, types.NewConfigurationError(
			"environment auth requires both username_var and password_var")
	}

	username, ok := os.LookupEnv(env.UsernameVar)
	if !ok || username == "" {
		return types.DriverParams{}, types.NewCredentialsNotFoundError(
			fmt.Sprintf("environment variable %s is not set", env.UsernameVar))
	}
	password, ok := os.LookupEnv(env.PasswordVar)
	if !ok || password == "" {
		return types.DriverParams{}, types.NewCredentialsNotFoundError(
			fmt.Sprintf("environment variable %s is not set", env.PasswordVar))
	}
	return types.DriverParams{Username: username, Password: password}, nil
}

// resolveCertificate 先校验所有给定路径存在，失败发生在任何网络尝试之前。
// 产出嵌套的 ssl 参数块，仅包含提供了的键。
func (r *Resolver) resolveCertificate(cert *types.CertificateAuth) (types.DriverParams, error) {
	if cert.CertPath == "" {
		return types.DriverParams{}, types.NewConfigurationError(
			"certificate auth requires cert_path")
	}

	ssl := map[string]any{}
	for name, path := range map[string]string{
		"cert": cert.CertPath,
		"key":  cert.KeyPath,
		"ca":   cert.CAPath,
	} {
		if path == "" {
			continue
		}
		if _, err := os.Stat(path); err != nil {
			return types.DriverParams{}, types.NewConfigurationError(
				fmt.Sprintf("certificate file not found: %s", path)).WithCause(err)
		}
		ssl[name] = path
	}

	return types.DriverParams{ConnectArgs: map[string]any{"ssl": ssl}}, nil
}

// ClientTLS 将证书变体实化为加固的 *tls.Config，供支持自定义 TLS 的驱动
// 在组合根注册使用。材料不可解析时返回配置错误。
func ClientTLS(cert types.CertificateAuth) (*tls.Config, error) {
	cfg, err := tlsutil.ClientTLSConfig(cert.CertPath, cert.KeyPath, cert.CAPath)
	if err != nil {
		return nil, types.NewConfigurationError(
			fmt.Sprintf("invalid certificate material: %v", err)).WithCause(err)
	}
	return cfg, nil
}

// Encrypt 序列化描述符并加密。material 为 nil 时使用（必要时生成并缓存的）
// 实例密钥材料，同一 Resolver 的后续 Decrypt 无需重复提供。
func (r *Resolver) Encrypt(d types.AuthDescriptor, material []byte) (EncryptedBlob, error) {
	if err := d.Validate(); err != nil {
		return EncryptedBlob{}, err
	}
	if material == nil {
		var err error
		if material, err = r.ensureKeyMaterial(); err != nil {
			return EncryptedBlob{}, err
		}
	}

	plaintext, err := json.Marshal(d)
	if err != nil {
		return EncryptedBlob{}, fmt.Errorf("failed to serialize descriptor: %w", err)
	}
	return seal(plaintext, material)
}

// Decrypt 是 Encrypt 的精确逆操作。material 为 nil 时使用缓存的实例密钥。
// 错误密钥或被篡改的密文返回 DecryptionError。
func (r *Resolver) Decrypt(blob EncryptedBlob, material []byte) (types.AuthDescriptor, error) {
	if material == nil {
		r.mu.Lock()
		material = r.keyMaterial
		r.mu.Unlock()
		if material == nil {
			return types.AuthDescriptor{}, types.NewDecryptionError(
				"no key material supplied and none cached on this resolver")
		}
	}

	plaintext, err := open(blob, material)
	if err != nil {
		return types.AuthDescriptor{}, err
	}

	var d types.AuthDescriptor
	if err := json.Unmarshal(plaintext, &d); err != nil {
		return types.AuthDescriptor{}, types.NewDecryptionError(
			"decrypted payload is not a valid descriptor").WithCause(err)
	}
	return d, nil
}

// ensureKeyMaterial 惰性生成随机密钥材料并缓存至实例生命周期结束
func (r *Resolver) ensureKeyMaterial() ([]byte, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.keyMaterial != nil {
		return r.keyMaterial, nil
	}

	material := make([]byte, keyLength)
	if _, err := io.ReadFull(rand.Reader, material); err != nil {
		return nil, fmt.Errorf("failed to generate key material: %w", err)
	}
	r.keyMaterial = material
	r.logger.Debug("generated encryption key material")
	return material, nil
}
