package availability

// Diff returns the candidates whose identity key is absent from the
// existing key set. Duplicate keys within the batch itself collapse to the
// first occurrence. Existing keys must come from a consistent snapshot read
// taken inside the same transaction that persists the result — the store
// owns that guarantee.
func Diff(candidates []SlotRecord, existing map[SlotKey]struct{}) []SlotRecord {
	seen := make(map[SlotKey]struct{}, len(candidates))
	var fresh []SlotRecord

	for _, c := range candidates {
		key := c.Key()
		if _, ok := existing[key]; ok {
			continue
		}
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		fresh = append(fresh, c)
	}
	return fresh
}
