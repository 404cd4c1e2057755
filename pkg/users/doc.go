// Package users implements account administration and the self-profile
// endpoints.
//
// Administrators list, create, update and delete accounts keyed by username,
// and may change any account's role. Every other authenticated caller may
// only read and patch their own profile through GetProfile and
// UpdateProfile; the role column is restored after the patch is applied, so
// a submitted role is silently ignored.
//
// Role changes and admin actions are written to the audit trail taken from
// the request context.
//
// The same Store backs the enrollment flow, which keeps the bcrypt hash of
// the outstanding confirmation code on the user row.
package users
