package configwatch

// Diff is the three-way diff between an active config and a newly loaded
// one, computed by name (spec §4.6).
type Diff struct {
	Added    []UpstreamDescriptor
	Removed  []UpstreamDescriptor
	Modified []ModifiedEntry
}

// ModifiedEntry pairs the old and new descriptor for a name present in both
// configs, carrying which fields changed so the connection manager can skip
// transport recreation for cosmetic-only changes.
type ModifiedEntry struct {
	Name          string
	Old, New      UpstreamDescriptor
	FieldsChanged []string
	// TransportChanged is true when a transport-affecting field differs,
	// meaning the connection manager must recreate the transport rather
	// than mutate metadata in place.
	TransportChanged bool
}

// Empty reports whether the diff carries no changes at all.
func (d Diff) Empty() bool {
	return len(d.Added) == 0 && len(d.Removed) == 0 && len(d.Modified) == 0
}

// ComputeDiff compares old and new configs by name.
func ComputeDiff(old, new *Config) Diff {
	var d Diff
	oldServers := map[string]UpstreamDescriptor{}
	if old != nil {
		oldServers = old.Servers
	}
	newServers := map[string]UpstreamDescriptor{}
	if new != nil {
		newServers = new.Servers
	}

	for name, nd := range newServers {
		od, existed := oldServers[name]
		if !existed {
			d.Added = append(d.Added, nd)
			continue
		}
		fields := changedFields(od, nd)
		if len(fields) == 0 {
			continue
		}
		d.Modified = append(d.Modified, ModifiedEntry{
			Name:             name,
			Old:              od,
			New:              nd,
			FieldsChanged:    fields,
			TransportChanged: !TransportFieldsEqual(od, nd),
		})
	}
	for name, od := range oldServers {
		if _, stillPresent := newServers[name]; !stillPresent {
			d.Removed = append(d.Removed, od)
		}
	}
	return d
}

func changedFields(a, b UpstreamDescriptor) []string {
	var fields []string
	if !TransportFieldsEqual(a, b) {
		fields = append(fields, "transport")
	}
	if !stringSliceEqual(a.Tags, b.Tags) {
		fields = append(fields, "tags")
	}
	if a.Disabled != b.Disabled {
		fields = append(fields, "disabled")
	}
	return fields
}

func stringSliceEqual(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
