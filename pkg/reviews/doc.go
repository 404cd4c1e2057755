// Package reviews implements the feedback ledger: scored reviews of titles
// and comments on those reviews.
//
// Every operation is scoped to its parent. A review is addressed as
// (title, review) and a comment as (title, review, comment); a child that
// does not belong to the parent in the path is reported as not found.
//
// Each author may review a title once. The service checks for an existing
// review first to give a clean conflict, and the store maps the
// reviews_author_title_key unique violation to the same conflict for the
// window between the check and the insert.
//
// Edits and deletions go through rbac.AuthorizeObject: the author, any
// moderator and any admin may act. When the actor is not the author the
// action is written to the audit trail.
package reviews
