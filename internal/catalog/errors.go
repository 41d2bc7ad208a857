package catalog

import "errors"

// ErrLoadCatalog is returned when a catalog file cannot be read or parsed.
var ErrLoadCatalog = errors.New("load level catalog failed")
