package filter

// ToStringSet converts a slice of strings to a set for O(1) membership checks.
func ToStringSet(ss []string) map[string]struct{} {
	if len(ss) == 0 {
		return nil
	}
	set := make(map[string]struct{}, len(ss))
	for _, s := range ss {
		set[s] = struct{}{}
	}
	return set
}

// Without returns the elements of ss not present in drop, keeping order.
// A nil or empty drop set returns ss unchanged.
func Without(ss []string, drop map[string]struct{}) []string {
	if len(drop) == 0 {
		return ss
	}
	out := make([]string, 0, len(ss))
	for _, s := range ss {
		if _, ok := drop[s]; ok {
			continue
		}
		out = append(out, s)
	}
	return out
}
