// Package maildir provides a Maildir-backed encrypted file store.
//
// Every owner gets a maildir; every stored file is one message in it, so
// writes are crash-safe (tmp/ then rename into new/) and never need locking
// against other writers:
//
//	basePath/
//	└── alice@example.com/
//	    ├── new/     # Freshly stored records
//	    ├── cur/     # Records that have been listed or read
//	    └── tmp/     # Temporary files during delivery
//
// A message holds the file name, tenant, upload time, wrapped content key, IV and
// ciphertext. Plaintext never reaches the disk.
//
// The package registers itself with the filevault registry under the name
// "maildir". Import it with a blank identifier to enable maildir support:
//
//	import _ "github.com/infodancer/filevault/maildir"
//
// Then open a maildir store:
//
//	store, err := filevault.Open(filevault.StoreConfig{
//	    Type:     "maildir",
//	    BasePath: "/var/lib/filevault/files",
//	})
package maildir
