package client

import (
	"crypto/tls"
	"crypto/x509"
	"encoding/base64"
	"encoding/pem"
	"fmt"

	"golang.org/x/crypto/pkcs12"

	"github.com/marlink/accountant/pkg/config"
	pkgerrors "github.com/marlink/accountant/pkg/errors"
)

// Credentials holds the decoded client certificate used for the mutually
// authenticated channel. Loaded once per run and shared read-only.
type Credentials struct {
	Certificate tls.Certificate
}

// LoadCredentials decodes the configured certificate material. A PKCS#12
// bundle takes precedence; otherwise the separate PEM pair is used. The
// passphrase applies to the bundle or to an encrypted PEM key.
func LoadCredentials(cfg config.KSeFConfig) (*Credentials, error) {
	if !cfg.HasCertMaterial() {
		return nil, pkgerrors.New(pkgerrors.CodeConfiguration, "ksef certificate material missing")
	}

	if cfg.CertBundleB64 != "" {
		return credentialsFromBundle(cfg.CertBundleB64, cfg.CertPassword)
	}
	return credentialsFromPEMPair(cfg.CertPEMB64, cfg.KeyPEMB64, cfg.CertPassword)
}

func credentialsFromBundle(bundleB64, password string) (*Credentials, error) {
	der, err := base64.StdEncoding.DecodeString(bundleB64)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeConfiguration, err, "decoding certificate bundle")
	}

	blocks, err := pkcs12.ToPEM(der, password)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeConfiguration, err, "parsing PKCS#12 bundle")
	}

	var certPEM, keyPEM []byte
	for _, block := range blocks {
		encoded := pem.EncodeToMemory(block)
		switch block.Type {
		case "CERTIFICATE":
			certPEM = append(certPEM, encoded...)
		case "PRIVATE KEY", "RSA PRIVATE KEY", "EC PRIVATE KEY":
			keyPEM = append(keyPEM, encoded...)
		}
	}
	if len(certPEM) == 0 || len(keyPEM) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeConfiguration, "bundle missing certificate or key")
	}

	cert, err := tls.X509KeyPair(certPEM, keyPEM)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeConfiguration, err, "building keypair from bundle")
	}
	return &Credentials{Certificate: cert}, nil
}

func credentialsFromPEMPair(certB64, keyB64, password string) (*Credentials, error) {
	certPEM, err := base64.StdEncoding.DecodeString(certB64)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeConfiguration, err, "decoding certificate pem")
	}
	keyPEM, err := base64.StdEncoding.DecodeString(keyB64)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeConfiguration, err, "decoding key pem")
	}

	if password != "" {
		keyPEM, err = decryptKeyPEM(keyPEM, password)
		if err != nil {
			return nil, err
		}
	}

	cert, err := tls.X509KeyPair(certPEM, keyPEM)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeConfiguration, err, "building keypair from pem pair")
	}
	return &Credentials{Certificate: cert}, nil
}

func decryptKeyPEM(keyPEM []byte, password string) ([]byte, error) {
	block, _ := pem.Decode(keyPEM)
	if block == nil {
		return nil, pkgerrors.New(pkgerrors.CodeConfiguration, "key pem contains no block")
	}
	if !x509.IsEncryptedPEMBlock(block) {
		return keyPEM, nil
	}
	der, err := x509.DecryptPEMBlock(block, []byte(password))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeConfiguration, err, "decrypting key pem")
	}
	return pem.EncodeToMemory(&pem.Block{Type: block.Type, Bytes: der}), nil
}

// TLSConfig builds the client TLS configuration carrying the certificate.
func (c *Credentials) TLSConfig() *tls.Config {
	return &tls.Config{
		Certificates: []tls.Certificate{c.Certificate},
		MinVersion:   tls.VersionTLS12,
	}
}

func (c *Credentials) String() string {
	return fmt.Sprintf("credentials(certs=%d)", len(c.Certificate.Certificate))
}
