// Package listing implements the listing ("listagem") workflow: an operator
// opens a listing, types process numbers into it one by one, and any number
// that exists in the permanent registry is claimed for that listing instead
// of being added as an ordinary item.
//
// Listings belong to their creator; only the creator may view, edit, or
// print them.
package listing
