/*
Package auth provides API key authentication for the HTTP bridge.

Keys come from the server.auth section of the configuration. Each key
carries a set of scopes and every protected route requires one of them:

	validator := auth.FromConfig(&cfg.Server.Auth)
	mw := auth.NewAPIKeyMiddleware(validator, auth.SourcesFromConfig(cfg.Server.Auth.Sources), logger, nil)
	mux.Handle("POST /v1/evaluate", mw.Require(auth.ScopeEvaluate, evaluateHandler))

Keys are read from the configured sources in order, by default a bearer
token in the Authorization header and then the X-API-Key header. Missing
or unknown keys are rejected with 401, keys lacking the route's scope
with 403. The authenticated key is available to handlers through
GetAPIKeyInfo.
*/
package auth
