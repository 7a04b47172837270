package security

import (
	"crypto/rand"
	"crypto/subtle"
	"fmt"
	"os"
	"path/filepath"
)

// DefaultSecretPath is where the cluster shared secret is persisted.
const DefaultSecretPath = "/etc/wolfstack/cluster.key"

// SecretLength is the byte length of a generated cluster secret.
const SecretLength = 32

// ClusterSecret is the bearer value every node presents on its
// X-Cluster-Secret header to authenticate peer-to-peer calls.
type ClusterSecret struct {
	path  string
	bytes []byte
}

// LoadOrGenerateSecret reads the secret at path, generating and persisting
// a fresh one (mode 0600) if the file does not exist.
func LoadOrGenerateSecret(path string) (*ClusterSecret, error) {
	if path == "" {
		path = DefaultSecretPath
	}

	data, err := os.ReadFile(path)
	if err == nil {
		return &ClusterSecret{path: path, bytes: data}, nil
	}
	if !os.IsNotExist(err) {
		return nil, fmt.Errorf("read cluster secret: %w", err)
	}

	secret := make([]byte, SecretLength)
	if _, err := rand.Read(secret); err != nil {
		return nil, fmt.Errorf("generate cluster secret: %w", err)
	}

	cs := &ClusterSecret{path: path, bytes: secret}
	if err := cs.persist(); err != nil {
		return nil, err
	}
	return cs, nil
}

func (cs *ClusterSecret) persist() error {
	if err := os.MkdirAll(filepath.Dir(cs.path), 0o755); err != nil {
		return fmt.Errorf("create cluster secret dir: %w", err)
	}
	if err := os.WriteFile(cs.path, cs.bytes, 0o600); err != nil {
		return fmt.Errorf("write cluster secret: %w", err)
	}
	return nil
}

// Rotate generates a new secret and persists it in place of the old one.
func (cs *ClusterSecret) Rotate() error {
	secret := make([]byte, SecretLength)
	if _, err := rand.Read(secret); err != nil {
		return fmt.Errorf("generate cluster secret: %w", err)
	}
	cs.bytes = secret
	return cs.persist()
}

// String renders the secret as its raw bytes for transmission in a header.
func (cs *ClusterSecret) String() string {
	return string(cs.bytes)
}

// Equal reports whether candidate matches the secret, in constant time.
func (cs *ClusterSecret) Equal(candidate string) bool {
	return subtle.ConstantTimeCompare(cs.bytes, []byte(candidate)) == 1
}
