// Package all wires the built-in storage backends into the storage factory.
//
// This package exists purely for side effects: a blank import runs the init
// functions of each backend, which register their factories with the storage
// package. Binaries that only need one backend can blank-import it directly
// instead.
package all

import (
	_ "saferoad/internal/storage/postgres"
	_ "saferoad/internal/storage/sqlite"
)
