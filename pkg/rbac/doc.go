// Package rbac decides who may read, write and delete each resource.
//
// The policy is two pure predicates over the acting user and the HTTP method.
// They take no framework types, so services can call them after loading a
// target object and the transport can call them before dispatching.
//
// # Collection Rules
//
//	Category, Genre, Title   safe methods open; writes need an admin
//	User                     admin only, any method
//	Profile (/users/me)      any authenticated user
//	Review, Comment          safe methods open; create needs authentication
//
// # Object Rules
//
//	safe methods open; writes need the author, a moderator or an admin
//
// Admin means role admin OR superuser; see auth.User.IsAdmin.
//
// # Usage Example
//
//	if err := rbac.AuthorizeObject(actor, http.MethodDelete, review); err != nil {
//		return err // apperrors.ErrUnauthenticated or apperrors.ErrForbidden
//	}
//
//	router.Handle("/categories", pm.RequireCollection(rbac.ResourceCategory)(handler))
package rbac
