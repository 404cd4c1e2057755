// Package auth provides the identity and role model plus the credentials used
// by the passwordless signup flow.
//
// # Roles
//
// Every account carries exactly one role tag:
//
//	RoleUser      - default for self-registered accounts
//	RoleModerator - may edit or delete any review or comment
//	RoleAdmin     - full access, including catalog and user administration
//
// Capability checks are pure methods on *User:
//
//	user.IsAdmin()     // role == admin OR superuser
//	user.IsModerator() // role == moderator
//	user.IsUser()      // role == user
//
// Stored values outside the canonical set are treated as RoleUser.
//
// # Confirmation Codes
//
// CodeGenerator issues 12-character one-time codes. Only the bcrypt hash and
// an expiry are persisted:
//
//	gen := auth.NewCodeGenerator(24 * time.Hour)
//	code, hash, expiresAt, err := gen.Generate()
//	err = gen.Verify(submitted, hash, &expiresAt)
//
// # Access Tokens
//
// TokenIssuer signs HS256 JWTs whose subject is the user id:
//
//	ti := auth.NewTokenIssuer(secret, 24*time.Hour)
//	token, err := ti.Issue(user)
//	claims, err := ti.Verify(token)
//
// # Related Packages
//
//   - pkg/rbac: Policy predicates over *User
//   - pkg/middleware: Bearer token authentication
//   - pkg/enrollment: Signup and code exchange
package auth
