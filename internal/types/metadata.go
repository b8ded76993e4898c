package types

import "gorm.io/datatypes"

// NormalizeMetadata returns m, or an empty non-nil map when m is nil.
// Metadata columns are jsonb NOT NULL; a nil JSONMap would serialize to
// SQL NULL and violate that.
func NormalizeMetadata(m datatypes.JSONMap) datatypes.JSONMap {
	if m == nil {
		return datatypes.JSONMap{}
	}
	return m
}
