package schema

// FilterTier returns a copy of the record's wire form with every attribute
// whose configured tier exceeds the caller's tier removed. Common
// identifying fields survive regardless of tier, so a record with zero
// accessible unique fields is still emitted.
//
// Tiering runs before serialization and therefore before federation
// merging; a peer cannot leak a field simply because another peer would
// have revealed it.
func (e *Entity) FilterTier(rec map[string]any, tier int) map[string]any {
	out := make(map[string]any, len(rec))
	for name, value := range rec {
		if IsCommonField(name) {
			out[name] = value
			continue
		}
		fd, ok := e.Field(name)
		if !ok {
			// Attributes outside the schema are never exposed.
			continue
		}
		if fd.Tier <= tier {
			out[name] = value
		}
	}
	return out
}
