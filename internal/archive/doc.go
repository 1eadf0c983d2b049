// Package archive builds and extracts versioned package archives (tar + gzip,
// directory contents preserved, executable bits preserved) and defines the
// canonical <app>-<version>.tar.gz naming.
package archive
