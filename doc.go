// Package auth implements the authentication and authorization core of the
// salespoint point-of-sale system: stateless signed-token sessions, role
// based access control for the user management surface, and the self-service
// password reset flow.
//
// The package is storage agnostic. Handlers and providers consume the
// UserStore contract; a bun backed reference implementation lives in
// repo_users.go. Token signing uses HMAC over JWT so verification stays
// possible in constrained request-handling runtimes.
package auth
