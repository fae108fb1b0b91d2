package movie

// Identifiable is anything with a stable identifier.
type Identifiable interface {
	Identity() string
}

// Merge flattens lists into one sequence with each identifier kept once.
// The first appearance wins and keeps its position; later duplicates are
// dropped.
func Merge[T Identifiable](lists ...[]T) []T {
	total := 0
	for _, l := range lists {
		total += len(l)
	}

	seen := make(map[string]struct{}, total)
	out := make([]T, 0, total)
	for _, l := range lists {
		for _, item := range l {
			id := item.Identity()
			if _, dup := seen[id]; dup {
				continue
			}
			seen[id] = struct{}{}
			out = append(out, item)
		}
	}
	return out
}
