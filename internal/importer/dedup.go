package importer

import "sync"

// Dedup tracks attendee names already taken, either in storage or earlier
// in the current upload.
type Dedup struct {
	mu    sync.Mutex
	names map[string]struct{}
}

func NewDedup(existing []string) *Dedup {
	d := &Dedup{names: make(map[string]struct{}, len(existing))}
	for _, n := range existing {
		d.names[n] = struct{}{}
	}
	return d
}

// Admit reserves name and reports whether it was free.
func (d *Dedup) Admit(name string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.names[name]; ok {
		return false
	}
	d.names[name] = struct{}{}
	return true
}

// Release frees a reservation for a row that was dropped after Admit.
func (d *Dedup) Release(name string) {
	d.mu.Lock()
	delete(d.names, name)
	d.mu.Unlock()
}

func (d *Dedup) Len() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.names)
}
