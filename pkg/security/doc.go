// Package security groups the transport and access controls of the HTTP
// bridge: HTTPS with certificate reloading in security/tls and scoped API
// key authentication in security/auth.
package security
