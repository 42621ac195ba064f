// Copyright (c) 2013-2015 The btcsuite developers
// Copyright (c) 2024 The Ironpeer developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package certgen_test

import (
	"crypto/x509"
	"encoding/pem"
	"testing"
	"time"

	"github.com/ironpeer/coreward/certgen"
)

func TestNewTLSCertPair(t *testing.T) {
	validUntil := time.Unix(time.Now().Add(10*365*24*time.Hour).Unix(), 0)
	org := "coreward autogenerated cert"
	extraHosts := []string{"testtlscert.bogus", "localhost", "127.0.0.1"}

	cert, key, err := certgen.NewTLSCertPair(org, validUntil, extraHosts)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	pemCert, _ := pem.Decode(cert)
	if pemCert == nil {
		t.Fatal("pem.Decode was unable to decode the certificate")
	}
	pemKey, _ := pem.Decode(key)
	if pemKey == nil {
		t.Fatal("pem.Decode was unable to decode the key")
	}
	if _, err := x509.ParseECPrivateKey(pemKey.Bytes); err != nil {
		t.Fatalf("unexpected error parsing key: %v", err)
	}

	x509Cert, err := x509.ParseCertificate(pemCert.Bytes)
	if err != nil {
		t.Fatalf("unexpected error parsing certificate: %v", err)
	}
	if got := x509Cert.Subject.Organization; len(got) == 0 || got[0] != org {
		t.Fatalf("organization mismatch: got %v, want %v", got, org)
	}
	if !x509Cert.NotAfter.Equal(validUntil) {
		t.Fatalf("NotAfter mismatch: got %v, want %v", x509Cert.NotAfter, validUntil)
	}
	for _, host := range extraHosts {
		if err := x509Cert.VerifyHostname(host); err != nil {
			t.Fatalf("failed to verify extra host %q: %v", host, err)
		}
	}
}
