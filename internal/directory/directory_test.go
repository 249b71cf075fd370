package directory

import (
	"testing"
	"time"
)

func TestUpsertCreatesThenRefreshes(t *testing.T) {
	d := New()
	addr := Addr{Host: "203.0.113.5", Port: 2342}
	t0 := time.Now()

	r, created := d.Upsert(addr, t0)
	if !created {
		t.Fatal("expected first upsert to create a record")
	}
	if r.AddTime != t0 || r.RefreshTime != t0 {
		t.Fatalf("unexpected timestamps: %+v", r)
	}

	t1 := t0.Add(5 * time.Second)
	r2, created2 := d.Upsert(addr, t1)
	if created2 {
		t.Fatal("expected second upsert to refresh, not create")
	}
	if r2 != r {
		t.Fatal("expected same record pointer on refresh")
	}
	if r2.RefreshTime != t1 {
		t.Fatalf("refresh time not updated: %v", r2.RefreshTime)
	}
	if r2.AddTime != t0 {
		t.Fatalf("add time should be unchanged: %v", r2.AddTime)
	}
	if !r2.AddTime.Before(r2.RefreshTime) && r2.AddTime != r2.RefreshTime {
		t.Fatalf("invariant add_time <= refresh_time violated")
	}
}

func TestRemove(t *testing.T) {
	d := New()
	addr := Addr{Host: "203.0.113.5", Port: 2342}
	d.Upsert(addr, time.Now())
	d.Remove(addr)
	if _, ok := d.Get(addr); ok {
		t.Fatal("expected record to be removed")
	}
}

func TestVerifiedSnapshotOnlyVerified(t *testing.T) {
	d := New()
	a := Addr{Host: "a", Port: 1}
	b := Addr{Host: "b", Port: 2}
	ra, _ := d.Upsert(a, time.Now())
	d.Upsert(b, time.Now())
	ra.Verified = true

	snap := d.VerifiedSnapshot()
	if len(snap) != 1 || snap[0].Addr != a {
		t.Fatalf("expected only verified record a, got %+v", snap)
	}
}

func TestAllSnapshotIncludesUnverified(t *testing.T) {
	d := New()
	d.Upsert(Addr{Host: "a", Port: 1}, time.Now())
	d.Upsert(Addr{Host: "b", Port: 2}, time.Now())
	if len(d.AllSnapshot()) != 2 {
		t.Fatalf("expected 2 records, got %d", len(d.AllSnapshot()))
	}
}

func TestAddrString(t *testing.T) {
	a := Addr{Host: "203.0.113.5", Port: 2342}
	if a.String() != "203.0.113.5:2342" {
		t.Fatalf("got %q", a.String())
	}
}
