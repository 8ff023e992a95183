package manifest

// Select returns the entries flagged as ready for release, in manifest order.
// The input slice is left untouched.
func Select(entries []Entry) []Entry {
	selected := make([]Entry, 0, len(entries))
	for _, entry := range entries {
		if entry.ReadyToDeploy {
			selected = append(selected, entry)
		}
	}
	return selected
}
