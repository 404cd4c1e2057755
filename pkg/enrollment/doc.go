// Package enrollment implements the passwordless signup flow.
//
//	POST /auth/signup {username, email}
//	    -> account created (or reused for the exact pair)
//	    -> confirmation code mailed, only its bcrypt hash stored
//	POST /auth/token  {username, confirmation_code}
//	    -> code verified and cleared
//	    -> signed access token returned
//
// A username already registered with a different email, or an email already
// registered with a different username, is a conflict. Mail delivery
// failures are logged and do not fail the request; the caller may request a
// new code.
//
// An unknown username on exchange is not found, while a wrong or expired
// code is a validation error on the confirmation_code field.
package enrollment
