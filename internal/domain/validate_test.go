package domain

import (
	"errors"
	"testing"
	"time"
)

func TestAnnouncementValidate(t *testing.T) {
	now := time.Date(2026, 3, 14, 15, 0, 0, 0, time.UTC)

	tests := []struct {
		name       string
		a          *Announcement
		wantFields []string
	}{
		{
			name: "valid maintenance",
			a:    NewMaintenance("page", now, "Upgrade", "Database upgrade", now),
		},
		{
			name: "valid incident",
			a:    NewIncident("page", now, "Outage", "We are investigating", now),
		},
		{
			name:       "missing title and content",
			a:          NewIncident("page", now, "  ", "", now),
			wantFields: []string{"title", "content"},
		},
		{
			name:       "missing planned_at",
			a:          NewMaintenance("page", time.Time{}, "Upgrade", "Database upgrade", now),
			wantFields: []string{"planned_at"},
		},
		{
			name:       "unknown kind",
			a:          &Announcement{Kind: "party", PlannedAt: now, Title: "t", Content: "c"},
			wantFields: []string{"type"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.a.Validate()
			if len(tt.wantFields) == 0 {
				if err != nil {
					t.Fatalf("Validate() = %v, want nil", err)
				}
				return
			}

			var verr *ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("Validate() = %v, want *ValidationError", err)
			}
			if len(verr.Fields) != len(tt.wantFields) {
				t.Errorf("Validate() fields = %v, want %v", verr.Fields, tt.wantFields)
			}
			for _, f := range tt.wantFields {
				if _, ok := verr.Fields[f]; !ok {
					t.Errorf("Validate() missing field %s", f)
				}
			}
		})
	}
}

func TestParsePlannedAt(t *testing.T) {
	paris := time.FixedZone("CET", 3600)

	tests := []struct {
		name  string
		input string
		loc   *time.Location
		want  time.Time
	}{
		{
			name:  "datetime-local in utc",
			input: "2026-03-14T09:30",
			want:  time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC),
		},
		{
			name:  "datetime-local in location",
			input: "2026-03-14T09:30",
			loc:   paris,
			want:  time.Date(2026, 3, 14, 8, 30, 0, 0, time.UTC),
		},
		{
			name:  "rfc3339",
			input: "2026-03-14T09:30:00+02:00",
			want:  time.Date(2026, 3, 14, 7, 30, 0, 0, time.UTC),
		},
		{
			name:  "garbage",
			input: "next tuesday",
			want:  time.Time{},
		},
		{
			name:  "empty",
			input: "",
			want:  time.Time{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ParsePlannedAt(tt.input, tt.loc); !got.Equal(tt.want) {
				t.Errorf("ParsePlannedAt(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestParseKind(t *testing.T) {
	if k, ok := ParseKind("Maintenance"); !ok || k != KindMaintenance {
		t.Errorf("ParseKind(Maintenance) = %v, %v", k, ok)
	}
	if k, ok := ParseKind("incident"); !ok || k != KindIncident {
		t.Errorf("ParseKind(incident) = %v, %v", k, ok)
	}
	if _, ok := ParseKind("other"); ok {
		t.Error("ParseKind(other) should not be ok")
	}
}

func TestPageValidate(t *testing.T) {
	now := time.Date(2026, 3, 14, 15, 0, 0, 0, time.UTC)

	p := NewPage("My services", now)
	if err := p.Validate(); err != nil {
		t.Fatalf("Validate() = %v, want nil", err)
	}
	if p.Locale != DefaultLocale {
		t.Errorf("Locale = %s, want %s", p.Locale, DefaultLocale)
	}

	bad := NewPage("", now)
	bad.Locale = "klingon"
	bad.Hostname = "status example.com"

	var verr *ValidationError
	if !errors.As(bad.Validate(), &verr) {
		t.Fatal("Validate() should return a *ValidationError")
	}
	for _, f := range []string{"title", "locale", "hostname"} {
		if _, ok := verr.Fields[f]; !ok {
			t.Errorf("Validate() missing field %s", f)
		}
	}
}

func TestServerAndDomainValidate(t *testing.T) {
	now := time.Date(2026, 3, 14, 15, 0, 0, 0, time.UTC)

	if err := NewServer("web-1.example.com", now).Validate(); err != nil {
		t.Errorf("server Validate() = %v, want nil", err)
	}
	if err := NewServer(" ", now).Validate(); err == nil {
		t.Error("server with empty hostname should be invalid")
	}
	if err := NewDomain("Status.Example.com", now).Validate(); err != nil {
		t.Errorf("domain Validate() = %v, want nil", err)
	}
	if d := NewDomain("Status.Example.com", now); d.Name != "status.example.com" {
		t.Errorf("domain name = %s, want lowercase", d.Name)
	}
	if err := NewDomain("", now).Validate(); err == nil {
		t.Error("domain with empty name should be invalid")
	}
}

func TestStoreErrorMatchesUnavailable(t *testing.T) {
	cause := errors.New("connection refused")
	err := Unavailable("get page", cause)

	if !errors.Is(err, ErrStoreUnavailable) {
		t.Error("errors.Is(err, ErrStoreUnavailable) = false")
	}
	if !errors.Is(err, cause) {
		t.Error("StoreError should unwrap to its cause")
	}
	if Unavailable("noop", nil) != nil {
		t.Error("Unavailable(nil) should be nil")
	}
	if !errors.Is(NotFoundf("page %s", "x"), ErrNotFound) {
		t.Error("NotFoundf should match ErrNotFound")
	}
}
