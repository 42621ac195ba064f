// Copyright (c) 2013-2015 The btcsuite developers
// Copyright (c) 2024 The Ironpeer developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package certgen generates self-signed TLS certificate/key pairs for
// the node's RPC server, used when an operator hasn't supplied their
// own certificate.
package certgen

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"fmt"
	"math/big"
	"net"
	"os"
	"time"
)

// NewTLSCertPair returns a PEM-encoded certificate and private key,
// self-signed for the given organization, expiring at validUntil, and
// valid for every hostname/IP in extraHosts plus the machine's own
// hostname.
func NewTLSCertPair(organization string, validUntil time.Time, extraHosts []string) (cert, key []byte, err error) {
	priv, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		return nil, nil, fmt.Errorf("certgen: generating key: %w", err)
	}

	host, err := os.Hostname()
	if err != nil {
		host = "localhost"
	}

	dnsNames := make([]string, 0, len(extraHosts)+1)
	var ipAddresses []net.IP
	addHost := func(h string) {
		if ip := net.ParseIP(h); ip != nil {
			ipAddresses = append(ipAddresses, ip)
			return
		}
		dnsNames = append(dnsNames, h)
	}
	addHost(host)
	for _, h := range extraHosts {
		addHost(h)
	}
	if len(dnsNames) == 0 {
		dnsNames = append(dnsNames, "localhost")
	}

	serialLimit := new(big.Int).Lsh(big.NewInt(1), 128)
	serialNumber, err := rand.Int(rand.Reader, serialLimit)
	if err != nil {
		return nil, nil, fmt.Errorf("certgen: generating serial number: %w", err)
	}

	template := x509.Certificate{
		SerialNumber: serialNumber,
		Subject: pkix.Name{
			Organization: []string{organization},
			CommonName:   dnsNames[0],
		},
		NotBefore: time.Now().Add(-time.Hour),
		NotAfter:  validUntil,

		KeyUsage:              x509.KeyUsageKeyEncipherment | x509.KeyUsageDigitalSignature | x509.KeyUsageCertSign,
		ExtKeyUsage:           []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth},
		BasicConstraintsValid: true,
		IsCA:                  true,
		DNSNames:              dnsNames,
		IPAddresses:           ipAddresses,
	}

	derBytes, err := x509.CreateCertificate(rand.Reader, &template, &template, &priv.PublicKey, priv)
	if err != nil {
		return nil, nil, fmt.Errorf("certgen: creating certificate: %w", err)
	}

	certBuf := pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: derBytes})
	if certBuf == nil {
		return nil, nil, fmt.Errorf("certgen: failed to encode certificate")
	}

	keyBytes, err := x509.MarshalECPrivateKey(priv)
	if err != nil {
		return nil, nil, fmt.Errorf("certgen: marshaling key: %w", err)
	}
	keyBuf := pem.EncodeToMemory(&pem.Block{Type: "EC PRIVATE KEY", Bytes: keyBytes})
	if keyBuf == nil {
		return nil, nil, fmt.Errorf("certgen: failed to encode key")
	}

	return certBuf, keyBuf, nil
}
