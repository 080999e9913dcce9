package collective

import (
	"crypto/tls"
	"encoding/pem"
	"fmt"
	"os"

	"github.com/pion/dtls/v2/pkg/crypto/selfsign"
	"google.golang.org/grpc/credentials"
)

// CertName is the DNS name the hub certificate is issued for. Ranks
// verify the hub against it whatever address they dial.
const CertName = "mpibench"

// NewCertificate generates a self-signed hub certificate.
func NewCertificate() (tls.Certificate, error) {
	return selfsign.GenerateSelfSignedWithDNS(CertName)
}

// WriteCertificate stores the public part of cert as PEM so that spawned
// ranks can trust the hub.
func WriteCertificate(path string, cert tls.Certificate) error {
	if len(cert.Certificate) == 0 {
		return fmt.Errorf("certificate has no DER blocks")
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600)
	if err != nil {
		return err
	}
	if err := pem.Encode(f, &pem.Block{Type: "CERTIFICATE", Bytes: cert.Certificate[0]}); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// ServerCredentials serves the hub with cert.
func ServerCredentials(cert tls.Certificate) credentials.TransportCredentials {
	return credentials.NewServerTLSFromCert(&cert)
}

// ClientCredentials trusts the hub certificate stored at caFile.
func ClientCredentials(caFile string) (credentials.TransportCredentials, error) {
	creds, err := credentials.NewClientTLSFromFile(caFile, CertName)
	if err != nil {
		return nil, fmt.Errorf("loading hub certificate: %w", err)
	}
	return creds, nil
}
