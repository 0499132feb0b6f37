package types

import (
	"encoding/json"
	"fmt"
)

// AuthType discriminates AuthDescriptor variants.
type AuthType string

// Supported authentication schemes.
const (
	AuthBasic           AuthType = "basic"
	AuthEnvironment     AuthType = "environment"
	AuthCredentialStore AuthType = "credential_store"
	AuthCertificate     AuthType = "certificate"
	AuthToken           AuthType = "token"
	AuthCloudRole       AuthType = "cloud_role"
)

// BasicAuth carries a static username/password pair.
type BasicAuth struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// EnvironmentAuth names the environment variables holding the credentials.
// The secret is fetched from the process environment at resolve time.
type EnvironmentAuth struct {
	UsernameVar string `json:"username_var"`
	PasswordVar string `json:"password_var"`
}

// CredentialStoreAuth addresses a secret in the OS credential store by
// service name and username.
type CredentialStoreAuth struct {
	Service  string `json:"service"`
	Username string `json:"username"`
}

// CertificateAuth references TLS client material on disk. KeyPath and CAPath
// are optional; every provided path must exist at resolve time.
type CertificateAuth struct {
	CertPath string `json:"cert_path"`
	KeyPath  string `json:"key_path,omitempty"`
	CAPath   string `json:"ca_path,omitempty"`
}

// TokenAuth carries an opaque bearer token. Many SQL drivers accept bearer
// tokens in the password slot over TLS, which is how it is resolved.
type TokenAuth struct {
	Token string `json:"token"`
}

// CloudRoleAuth carries cloud role parameters. They are passed through to
// the driver verbatim; the STS exchange itself happens elsewhere.
type CloudRoleAuth struct {
	RoleARN string `json:"role_arn"`
	Region  string `json:"region"`
}

// AuthDescriptor is a closed tagged union over the supported authentication
// schemes. Exactly one variant field is set and it matches Type; Validate
// enforces this. The zero value is invalid.
type AuthDescriptor struct {
	Type            AuthType             `json:"type"`
	Basic           *BasicAuth           `json:"basic,omitempty"`
	Environment     *EnvironmentAuth     `json:"environment,omitempty"`
	CredentialStore *CredentialStoreAuth `json:"credential_store,omitempty"`
	Certificate     *CertificateAuth     `json:"certificate,omitempty"`
	Token           *TokenAuth           `json:"token,omitempty"`
	CloudRole       *CloudRoleAuth       `json:"cloud_role,omitempty"`
}

// NewBasicAuth builds a basic username/password descriptor.
func NewBasicAuth(username, password string) AuthDescriptor {
	return AuthDescriptor{Type: AuthBasic, Basic: &BasicAuth{Username: username, Password: password}}
}

// NewEnvironmentAuth builds a descriptor resolved from environment variables.
func NewEnvironmentAuth(usernameVar, passwordVar string) AuthDescriptor {
	return AuthDescriptor{Type: AuthEnvironment, Environment: &EnvironmentAuth{UsernameVar: usernameVar, PasswordVar: passwordVar}}
}

// NewCredentialStoreAuth builds a descriptor resolved from the OS credential
// store.
func NewCredentialStoreAuth(service, username string) AuthDescriptor {
	return AuthDescriptor{Type: AuthCredentialStore, CredentialStore: &CredentialStoreAuth{Service: service, Username: username}}
}

// NewCertificateAuth builds a TLS client-certificate descriptor. keyPath and
// caPath may be empty.
func NewCertificateAuth(certPath, keyPath, caPath string) AuthDescriptor {
	return AuthDescriptor{Type: AuthCertificate, Certificate: &CertificateAuth{CertPath: certPath, KeyPath: keyPath, CAPath: caPath}}
}

// NewTokenAuth builds a bearer-token descriptor.
func NewTokenAuth(token string) AuthDescriptor {
	return AuthDescriptor{Type: AuthToken, Token: &TokenAuth{Token: token}}
}

// NewCloudRoleAuth builds a cloud-role descriptor.
func NewCloudRoleAuth(roleARN, region string) AuthDescriptor {
	return AuthDescriptor{Type: AuthCloudRole, CloudRole: &CloudRoleAuth{RoleARN: roleARN, Region: region}}
}

// variantCount counts the non-nil variant fields.
func (d AuthDescriptor) variantCount() int {
	n := 0
	if d.Basic != nil {
		n++
	}
	if d.Environment != nil {
		n++
	}
	if d.CredentialStore != nil {
		n++
	}
	if d.Certificate != nil {
		n++
	}
	if d.Token != nil {
		n++
	}
	if d.CloudRole != nil {
		n++
	}
	return n
}

// Validate checks that exactly one variant is set and that it matches Type.
// Violations are configuration errors, never silently ignored.
func (d AuthDescriptor) Validate() error {
	if d.variantCount() != 1 {
		return NewError(ErrCodeConfiguration,
			fmt.Sprintf("auth descriptor must carry exactly one variant, got %d", d.variantCount()))
	}
	ok := false
	switch d.Type {
	case AuthBasic:
		ok = d.Basic != nil
	case AuthEnvironment:
		ok = d.Environment != nil
	case AuthCredentialStore:
		ok = d.CredentialStore != nil
	case AuthCertificate:
		ok = d.Certificate != nil
	case AuthToken:
		ok = d.Token != nil
	case AuthCloudRole:
		ok = d.CloudRole != nil
	default:
		return NewError(ErrCodeConfiguration, fmt.Sprintf("unknown auth type: %q", d.Type))
	}
	if !ok {
		return NewError(ErrCodeConfiguration,
			fmt.Sprintf("auth descriptor variant does not match type %q", d.Type))
	}
	return nil
}

// String implements fmt.Stringer with all secret material masked.
func (d AuthDescriptor) String() string {
	switch d.Type {
	case AuthBasic:
		if d.Basic != nil {
			return fmt.Sprintf("AuthDescriptor{basic, Username:%s, Password:%s}", d.Basic.Username, maskedValue)
		}
	case AuthEnvironment:
		if d.Environment != nil {
			return fmt.Sprintf("AuthDescriptor{environment, UsernameVar:%s, PasswordVar:%s}", d.Environment.UsernameVar, d.Environment.PasswordVar)
		}
	case AuthCredentialStore:
		if d.CredentialStore != nil {
			return fmt.Sprintf("AuthDescriptor{credential_store, Service:%s, Username:%s}", d.CredentialStore.Service, d.CredentialStore.Username)
		}
	case AuthCertificate:
		if d.Certificate != nil {
			return fmt.Sprintf("AuthDescriptor{certificate, Cert:%s}", d.Certificate.CertPath)
		}
	case AuthToken:
		return fmt.Sprintf("AuthDescriptor{token, Token:%s}", maskedValue)
	case AuthCloudRole:
		if d.CloudRole != nil {
			return fmt.Sprintf("AuthDescriptor{cloud_role, RoleARN:%s, Region:%s}", d.CloudRole.RoleARN, d.CloudRole.Region)
		}
	}
	return fmt.Sprintf("AuthDescriptor{%s}", d.Type)
}

// DriverParams are resolved, driver-ready connection parameters. Basic-style
// schemes fill Username/Password; certificate and cloud-role schemes fill
// ConnectArgs with nested driver options.
type DriverParams struct {
	Username    string
	Password    string
	ConnectArgs map[string]any
}

// HasCredentials reports whether params carry a username/password pair.
func (p DriverParams) HasCredentials() bool {
	return p.Username != "" || p.Password != ""
}

// String implements fmt.Stringer with the password masked.
func (p DriverParams) String() string {
	return fmt.Sprintf("DriverParams{Username:%s, Password:%s, ConnectArgs:%d keys}",
		p.Username, maskedValue, len(p.ConnectArgs))
}

// MarshalJSON masks the password and sanitizes connect args, so params can
// be logged or echoed without leaking secrets.
func (p DriverParams) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Username    string         `json:"username,omitempty"`
		Password    string         `json:"password,omitempty"`
		ConnectArgs map[string]any `json:"connect_args,omitempty"`
	}{
		Username:    p.Username,
		Password:    maskIfSet(p.Password),
		ConnectArgs: SanitizeContext(p.ConnectArgs),
	})
}

func maskIfSet(s string) string {
	if s == "" {
		return ""
	}
	return maskedValue
}
