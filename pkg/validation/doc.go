// Package validation checks request payloads with go-playground/validator and
// reports failures as *apperrors.ValidationError keyed by JSON field name.
//
// # Custom Tags
//
//	username    - Unicode letters and digits plus . @ + - _, matching ^[\p{L}\p{N}_.@+-]+\z
//	notme       - rejects the reserved username "me" in any case
//	slug        - matches ^[-a-zA-Z0-9_]+$
//	notfuture   - integer year not later than the current year
//	role        - one of user, moderator, admin
//
// # Usage Example
//
//	type SignupRequest struct {
//		Username string `json:"username" validate:"required,max=150,username,notme"`
//		Email    string `json:"email" validate:"required,max=254,email"`
//	}
//
//	if err := validation.Struct(&req); err != nil {
//		return err // *apperrors.ValidationError, maps to HTTP 400
//	}
package validation
