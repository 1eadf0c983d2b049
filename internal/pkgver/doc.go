// Package pkgver orders package version strings and resolves the latest
// version of a set. The order is semantic-version-like: dot-separated numeric
// components compared left-to-right with missing trailing components treated
// as zero.
package pkgver
