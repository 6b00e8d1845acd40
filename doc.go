// Package auth resolves bearer tokens issued to the seven credential classes
// of the school platform into a single authenticated principal.
//
// Role resolution:
//   - Every role signs its tokens with its own secret. RoleAuthenticator peeks
//     at the unverified `Rol` claim (or uses the `Rol` query hint) to pick a
//     candidate role and then verifies the token with that role's secret only.
//     The peeked value selects a secret, it never grants access.
//   - Role specific behaviour (secret, TTL, account store, status and
//     structural rules) lives in RoleDescriptor values collected in a
//     RoleTable that must cover every role exactly once.
//
// Outcomes:
//   - Resolve always returns one AuthOutcome: an authenticated Principal or an
//     AuthError with a closed ErrorKind. Finalize maps it to an HTTP status
//     and JSON body without doing any I/O, and NewMiddleware plugs it into
//     fiber.
//
// Lockouts:
//   - LockoutGate answers whether a role is administratively blocked. Store
//     failures degrade to "not locked" and are logged.
//
// Activity sinks:
//   - ActivitySink is a light-weight audit emitter used by the authenticator
//     and LoginService. Sinks run best-effort (errors are logged) so you can
//     forward to a database or queue without blocking authentication.
package auth
