package keydir

import (
	"github.com/infodancer/filevault"
	"github.com/infodancer/filevault/errors"
)

func init() {
	filevault.RegisterKeyStore("keydir", func(config filevault.KeyStoreConfig) (filevault.KeyStore, error) {
		if config.Path == "" {
			return nil, errors.ErrKeyStoreConfigInvalid
		}
		return NewStore(config.Path)
	})
}
