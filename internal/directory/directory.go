package directory

import "time"

// Record is one registered server's full state.
type Record struct {
	Addr Addr

	AddTime     time.Time
	RefreshTime time.Time

	Verified       bool
	NeedsHolePunch bool

	Metadata     *Metadata
	MetadataTime time.Time
}

// Directory is the sole owner of server records. It performs no
// locking of its own: every method must be called from the single
// goroutine that owns it (the protocol engine's event loop). Anything
// outside that goroutine — the HTTP dashboard included — must go
// through a message passed to that goroutine rather than touch a
// Directory or a *Record directly; see internal/engine.Engine.Snapshot.
type Directory struct {
	records map[string]*Record
}

// New returns an empty Directory.
func New() *Directory {
	return &Directory{records: make(map[string]*Record)}
}

// Get looks up the record for addr, if any.
func (d *Directory) Get(addr Addr) (*Record, bool) {
	r, ok := d.records[addr.String()]
	return r, ok
}

// Upsert creates a new UNVERIFIED record for addr if one doesn't exist,
// or bumps RefreshTime on an existing one. It reports whether a new
// record was created.
func (d *Directory) Upsert(addr Addr, now time.Time) (*Record, bool) {
	key := addr.String()
	if r, ok := d.records[key]; ok {
		r.RefreshTime = now
		return r, false
	}
	r := &Record{
		Addr:        addr,
		AddTime:     now,
		RefreshTime: now,
	}
	d.records[key] = r
	return r, true
}

// Remove deletes the record for addr, if present.
func (d *Directory) Remove(addr Addr) {
	delete(d.records, addr.String())
}

// VerifiedSnapshot returns every currently verified record. Only
// verified records are visible to clients, per invariant 4.
func (d *Directory) VerifiedSnapshot() []*Record {
	out := make([]*Record, 0, len(d.records))
	for _, r := range d.records {
		if r.Verified {
			out = append(out, r)
		}
	}
	return out
}

// AllSnapshot returns every record, verified or not, for use by the
// aging pass.
func (d *Directory) AllSnapshot() []*Record {
	out := make([]*Record, 0, len(d.records))
	for _, r := range d.records {
		out = append(out, r)
	}
	return out
}
