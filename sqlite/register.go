package sqlite

import (
	"github.com/infodancer/filevault"
	"github.com/infodancer/filevault/errors"
)

func init() {
	filevault.RegisterKeyStore("sqlite", func(config filevault.KeyStoreConfig) (filevault.KeyStore, error) {
		if config.Path == "" {
			return nil, errors.ErrKeyStoreConfigInvalid
		}
		return NewStore(config.Path)
	})

	filevault.Register("sqlite", func(config filevault.StoreConfig) (filevault.FileStore, error) {
		if config.BasePath == "" {
			return nil, errors.ErrStoreConfigInvalid
		}
		return NewStore(config.BasePath)
	})
}
