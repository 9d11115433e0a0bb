package domain

import (
	"testing"
	"time"
)

func ann(id string, kind Kind, plannedAt time.Time, seq int64) Announcement {
	return Announcement{
		ID:        id,
		PageID:    "page",
		Kind:      kind,
		PlannedAt: plannedAt,
		Title:     id,
		Content:   id,
		CreatedAt: plannedAt,
		Seq:       seq,
	}
}

func TestClassify(t *testing.T) {
	now := time.Date(2026, 3, 14, 15, 0, 0, 0, time.UTC)

	tests := []struct {
		name   string
		policy SchedulePolicy
		a      Announcement
		want   Phase
	}{
		{
			name:   "future incident is upcoming",
			policy: DefaultSchedulePolicy(),
			a:      ann("a", KindIncident, now.Add(time.Minute), 1),
			want:   PhaseUpcoming,
		},
		{
			name:   "future maintenance is upcoming",
			policy: DefaultSchedulePolicy(),
			a:      ann("a", KindMaintenance, now.Add(48*time.Hour), 1),
			want:   PhaseUpcoming,
		},
		{
			name:   "started incident is active",
			policy: DefaultSchedulePolicy(),
			a:      ann("a", KindIncident, now.Add(-time.Hour), 1),
			want:   PhaseActive,
		},
		{
			name:   "incident started weeks ago is still active",
			policy: DefaultSchedulePolicy(),
			a:      ann("a", KindIncident, now.AddDate(0, 0, -30), 1),
			want:   PhaseActive,
		},
		{
			name:   "incident planned exactly now is active",
			policy: DefaultSchedulePolicy(),
			a:      ann("a", KindIncident, now, 1),
			want:   PhaseActive,
		},
		{
			name:   "maintenance earlier today is active",
			policy: DefaultSchedulePolicy(),
			a:      ann("a", KindMaintenance, time.Date(2026, 3, 14, 0, 30, 0, 0, time.UTC), 1),
			want:   PhaseActive,
		},
		{
			name:   "maintenance yesterday is past",
			policy: DefaultSchedulePolicy(),
			a:      ann("a", KindMaintenance, time.Date(2026, 3, 13, 23, 59, 0, 0, time.UTC), 1),
			want:   PhasePast,
		},
		{
			// 00:30 UTC on the 14th is still the 13th at UTC-10, where now is the 14th
			name:   "calendar day follows the policy location",
			policy: SchedulePolicy{Location: time.FixedZone("UTC-10", -10*3600)},
			a:      ann("a", KindMaintenance, time.Date(2026, 3, 14, 0, 30, 0, 0, time.UTC), 1),
			want:   PhasePast,
		},
		{
			name:   "fixed window keeps maintenance active across midnight",
			policy: SchedulePolicy{MaintenanceWindow: 24 * time.Hour},
			a:      ann("a", KindMaintenance, time.Date(2026, 3, 13, 18, 0, 0, 0, time.UTC), 1),
			want:   PhaseActive,
		},
		{
			name:   "fixed window expires",
			policy: SchedulePolicy{MaintenanceWindow: 2 * time.Hour},
			a:      ann("a", KindMaintenance, now.Add(-2*time.Hour), 1),
			want:   PhasePast,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.policy.Classify(tt.a, now); got != tt.want {
				t.Errorf("Classify() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestClassifyDefault(t *testing.T) {
	now := time.Date(2026, 3, 14, 15, 0, 0, 0, time.UTC)
	if got := Classify(ann("a", KindMaintenance, now.Add(-time.Hour), 1), now); got != PhaseActive {
		t.Errorf("Classify() = %v, want active", got)
	}
}

func TestActive(t *testing.T) {
	now := time.Date(2026, 3, 14, 15, 0, 0, 0, time.UTC)
	anns := []Announcement{
		ann("upcoming", KindIncident, now.Add(time.Hour), 1),
		ann("incident", KindIncident, now.Add(-time.Hour), 2),
		ann("old-maintenance", KindMaintenance, now.AddDate(0, 0, -2), 3),
		ann("maintenance", KindMaintenance, now.Add(-time.Minute), 4),
	}

	active := DefaultSchedulePolicy().Active(anns, now)
	if len(active) != 2 {
		t.Fatalf("Active() returned %d announcements, want 2", len(active))
	}
	if active[0].ID != "incident" || active[1].ID != "maintenance" {
		t.Errorf("Active() = [%s %s], want [incident maintenance]", active[0].ID, active[1].ID)
	}
}

func TestBucketByDayIsOrderedPartition(t *testing.T) {
	base := time.Date(2026, 3, 14, 0, 0, 0, 0, time.UTC)
	anns := []Announcement{
		ann("a", KindIncident, base.Add(2*time.Hour), 1),
		ann("b", KindMaintenance, base.AddDate(0, 0, -3).Add(9*time.Hour), 2),
		ann("c", KindIncident, base.Add(20*time.Hour), 3),
		ann("d", KindMaintenance, base.AddDate(0, 0, 2), 4),
		ann("e", KindIncident, base.AddDate(0, 0, -3).Add(10*time.Hour), 5),
	}

	buckets := BucketByDay(anns, time.UTC)

	seen := make(map[string]int)
	for i, b := range buckets {
		if i > 0 && !b.Day.Before(buckets[i-1].Day) {
			t.Errorf("bucket %d (%s) is not older than bucket %d (%s)", i, b.Key(), i-1, buckets[i-1].Key())
		}
		for _, a := range b.Announcements {
			seen[a.ID]++
			if !StartOfDay(a.PlannedAt, time.UTC).Equal(b.Day) {
				t.Errorf("announcement %s is in bucket %s", a.ID, b.Key())
			}
		}
	}
	for _, a := range anns {
		if seen[a.ID] != 1 {
			t.Errorf("announcement %s appears %d times, want 1", a.ID, seen[a.ID])
		}
	}

	wantKeys := []string{"2026-03-16", "2026-03-14", "2026-03-11"}
	if len(buckets) != len(wantKeys) {
		t.Fatalf("BucketByDay() returned %d buckets, want %d", len(buckets), len(wantKeys))
	}
	for i, k := range wantKeys {
		if buckets[i].Key() != k {
			t.Errorf("bucket %d key = %s, want %s", i, buckets[i].Key(), k)
		}
	}

	today := buckets[1].Announcements
	if today[0].ID != "c" || today[1].ID != "a" {
		t.Errorf("today bucket = [%s %s], want [c a]", today[0].ID, today[1].ID)
	}
}

func TestBucketByDayKeepsIdenticalTimestamps(t *testing.T) {
	at := time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)
	anns := []Announcement{
		ann("first", KindIncident, at, 1),
		ann("second", KindIncident, at, 2),
		ann("third", KindIncident, at, 3),
	}

	buckets := BucketByDay(anns, time.UTC)
	if len(buckets) != 1 {
		t.Fatalf("BucketByDay() returned %d buckets, want 1", len(buckets))
	}
	got := buckets[0].Announcements
	if len(got) != 3 {
		t.Fatalf("bucket holds %d announcements, want 3", len(got))
	}
	for i, want := range []string{"third", "second", "first"} {
		if got[i].ID != want {
			t.Errorf("announcement %d = %s, want %s", i, got[i].ID, want)
		}
	}
}

func TestBucketByDayUsesLocation(t *testing.T) {
	paris := time.FixedZone("CET", 3600)
	// 23:30 UTC on the 13th is 00:30 on the 14th in CET
	a := ann("late", KindIncident, time.Date(2026, 3, 13, 23, 30, 0, 0, time.UTC), 1)

	if got := BucketByDay([]Announcement{a}, time.UTC)[0].Key(); got != "2026-03-13" {
		t.Errorf("UTC key = %s, want 2026-03-13", got)
	}
	if got := BucketByDay([]Announcement{a}, paris)[0].Key(); got != "2026-03-14" {
		t.Errorf("CET key = %s, want 2026-03-14", got)
	}
}

func TestBucketByDayEmpty(t *testing.T) {
	if got := BucketByDay(nil, nil); len(got) != 0 {
		t.Errorf("BucketByDay(nil) = %v, want empty", got)
	}
}

func TestSortNewestFirstDoesNotMutateInput(t *testing.T) {
	at := time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)
	anns := []Announcement{ann("old", KindIncident, at, 1), ann("new", KindIncident, at.Add(time.Hour), 2)}

	sorted := SortNewestFirst(anns)
	if sorted[0].ID != "new" {
		t.Errorf("SortNewestFirst()[0] = %s, want new", sorted[0].ID)
	}
	if anns[0].ID != "old" {
		t.Error("SortNewestFirst() mutated its input")
	}
}
