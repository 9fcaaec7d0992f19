// Package org loads the organizational hierarchy document and builds the
// path-keyed organization index.
//
// Unit display names are not unique across a large hierarchy; full paths
// are. The index therefore keys every business unit by its canonical path
// string and keeps name-based lookups strictly for user-facing search.
// The index is built once at startup (or on an explicit refresh) and
// published with an atomic pointer swap, so concurrent readers never
// observe a partially built index and need no locking.
package org
