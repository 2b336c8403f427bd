package usage

// CategoryMap assigns app package identifiers to categories.
// Identifiers without an entry fall back to CategoryOther.
type CategoryMap map[string]Category

// Lookup returns the category for an app identifier.
func (m CategoryMap) Lookup(identifier string) Category {
	if c, ok := m[identifier]; ok && c != "" {
		return c
	}
	return CategoryOther
}
