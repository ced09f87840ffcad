package coldrun

import "github.com/xraph/coldrun/id"

// ID is the primary identifier type for all coldrun entities.
type ID = id.ID

// Prefix identifies the entity type encoded in a TypeID.
type Prefix = id.Prefix
