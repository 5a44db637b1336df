// Package auth authenticates callers of the execution API.
//
// Callers present a signed bearer token whose subject is the user id and
// whose role claim names the caller's role. The top-level contracts are:
//
//   - TokenValidator  turns a token string into an Identity
//   - TokenService    issues and parses HMAC or RSA signed tokens
//   - WithIdentity / IdentityFrom  carry the Identity through a request context
//
// Config follows the usual ApplyDefaults()/Validate() shape with mapstructure
// tags for loading from config.yml:
//
//	auth:
//	  enabled: true
//	  secret: "change-me"
//	  method: "HS256"
//	  issuer: "flowengine"
//	  token_ttl: "1h"
//
// The role claim is informational: ownership checks in the engine resolve
// the caller's role through its own user directory.
package auth
