package result

// StageKey returns the cache key for a staged result identifier.
// All staged entries live under the single "query:" namespace.
func StageKey(id string) string {
	return "query:" + id
}
