/*
Package tls serves the HTTP bridge over HTTPS.

A CertificateReloader loads the configured certificate pair and polls the
files for changes, so a renewed certificate is picked up without a
restart. ServerConfig turns the server.tls section into a *tls.Config
using the reloader, including client certificate verification when
client_auth is set:

	reloader, err := tls.NewCertificateReloader(cfg.CertFile, cfg.KeyFile, cfg.ReloadInterval, logger)
	if err != nil {
		return err
	}
	go reloader.Run(ctx)

	tlsConfig, err := tls.ServerConfig(cfg, reloader)

With mutual TLS the identity of the client certificate is available to
request logging through ClientIdentity.
*/
package tls
