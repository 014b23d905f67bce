package tls

import (
	"crypto/x509"
	"net/http"
)

// ExtractClientIdentity reads the identity of a client certificate from
// the field named by source: "subject.CN" (default), "subject.OU",
// "subject.O" or "SAN" (first DNS name). It returns "" when the field is
// empty.
func ExtractClientIdentity(cert *x509.Certificate, source string) string {
	if cert == nil {
		return ""
	}

	switch source {
	case "subject.CN", "":
		return cert.Subject.CommonName
	case "subject.OU":
		if len(cert.Subject.OrganizationalUnit) > 0 {
			return cert.Subject.OrganizationalUnit[0]
		}
	case "subject.O":
		if len(cert.Subject.Organization) > 0 {
			return cert.Subject.Organization[0]
		}
	case "SAN":
		if len(cert.DNSNames) > 0 {
			return cert.DNSNames[0]
		}
	}
	return ""
}

// ClientIdentity returns the identity of the request's client certificate,
// or "" for plain HTTP and connections without one.
func ClientIdentity(r *http.Request, source string) string {
	if r.TLS == nil || len(r.TLS.PeerCertificates) == 0 {
		return ""
	}
	return ExtractClientIdentity(r.TLS.PeerCertificates[0], source)
}
