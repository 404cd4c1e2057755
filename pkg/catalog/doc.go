// Package catalog implements the content catalog: categories, genres and the
// titles that reference them.
//
// Titles are read and written in two shapes. TitleView nests the full
// category and genre objects and carries the rating, computed on every read
// as the average review score (null when a title has no reviews). TitleWrite
// references category and genres by slug, which is how clients submit them.
//
// # Deletion
//
//	DeleteCategory  titles keep existing with a null category
//	DeleteGenre     only the genre_title links are removed
//	DeleteTitle     reviews, comments and links cascade
//
// A title row and its genre links are always written in one transaction.
package catalog
