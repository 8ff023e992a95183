package manifest

// ClearFlags returns a copy of the manifest where the readiness flag of every listed
// application is cleared. The second return value reports whether any flag changed;
// when it is false the returned manifest is identical to the input and need not be written.
func ClearFlags(m *Manifest, apps []string) (*Manifest, bool) {
	targets := make(map[string]bool, len(apps))
	for _, app := range apps {
		targets[app] = true
	}

	out := &Manifest{
		Entries:         make([]Entry, len(m.Entries)),
		trailingNewline: m.trailingNewline,
	}
	changed := false

	for i, entry := range m.Entries {
		out.Entries[i] = entry
		if !targets[entry.App] || !entry.ReadyToDeploy {
			continue
		}

		fields := make([]field, len(entry.fields))
		copy(fields, entry.fields)
		for j := range fields {
			if fields[j].key == entry.readyKey {
				fields[j].value = clearedFlag(fields[j].value)
			}
		}

		out.Entries[i].fields = fields
		out.Entries[i].ReadyToDeploy = false
		changed = true
	}

	return out, changed
}
