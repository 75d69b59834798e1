package maildir

import (
	"github.com/infodancer/filevault"
	"github.com/infodancer/filevault/errors"
)

func init() {
	filevault.Register("maildir", func(config filevault.StoreConfig) (filevault.FileStore, error) {
		if config.BasePath == "" {
			return nil, errors.ErrStoreConfigInvalid
		}
		// maildir_subdir specifies the subdirectory under each owner (e.g., "Vault")
		maildirSubdir := config.Options["maildir_subdir"]
		// path_template transforms owner names using {domain}, {localpart}, {email}
		// e.g., "{domain}/users/{localpart}" transforms alice@example.com to example.com/users/alice
		pathTemplate := config.Options["path_template"]
		return NewStore(config.BasePath, maildirSubdir, pathTemplate), nil
	})
}
