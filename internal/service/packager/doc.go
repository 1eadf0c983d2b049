// Package packager turns application source trees into versioned archives and
// ships them to deployment targets. Creation never touches a target; upload
// never touches dist/.
package packager
