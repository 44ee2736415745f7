package storage

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/rewired-gh/fxcorr/internal/models"
)

var (
	start = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	end   = time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC)
	now   = time.Date(2024, 2, 1, 12, 0, 0, 0, time.UTC)
)

func newTestStorage(t *testing.T) *Storage {
	t.Helper()
	s, err := New(":memory:")
	if err != nil {
		t.Fatalf("failed to create test storage: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func testSeries(id string, closes ...float64) models.PriceSeries {
	s := models.PriceSeries{Instrument: id, Provenance: models.ProvenanceRetrieved}
	for i, c := range closes {
		s.Points = append(s.Points, models.PricePoint{Date: start.AddDate(0, 0, i), Close: c})
	}
	return s
}

func TestStorage_SaveAndLoad(t *testing.T) {
	s := newTestStorage(t)
	want := testSeries("USD-INR", 83.0, 83.2, 82.9)

	if err := s.SaveSeries(want, start, end, now); err != nil {
		t.Fatalf("SaveSeries: %v", err)
	}
	got, ok, err := s.LoadSeries("USD-INR", start, end, time.Hour, now.Add(time.Minute))
	if err != nil {
		t.Fatalf("LoadSeries: %v", err)
	}
	if !ok {
		t.Fatal("expected cache hit")
	}
	if got.Provenance != models.ProvenanceRetrieved {
		t.Errorf("Provenance = %s, want retrieved", got.Provenance)
	}
	if len(got.Points) != len(want.Points) {
		t.Fatalf("got %d points, want %d", len(got.Points), len(want.Points))
	}
	for i := range want.Points {
		if !got.Points[i].Date.Equal(want.Points[i].Date) || got.Points[i].Close != want.Points[i].Close {
			t.Errorf("point %d = %+v, want %+v", i, got.Points[i], want.Points[i])
		}
	}
}

func TestStorage_LoadMiss(t *testing.T) {
	s := newTestStorage(t)
	if err := s.SaveSeries(testSeries("USD-INR", 83.0), start, end, now); err != nil {
		t.Fatalf("SaveSeries: %v", err)
	}

	tests := []struct {
		name       string
		instrument string
		start, end time.Time
	}{
		{"other instrument", "EUR-INR", start, end},
		{"other start", "USD-INR", start.AddDate(0, 0, 1), end},
		{"other end", "USD-INR", start, end.AddDate(0, 0, 1)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, ok, err := s.LoadSeries(tt.instrument, tt.start, tt.end, time.Hour, now)
			if err != nil {
				t.Fatalf("LoadSeries: %v", err)
			}
			if ok {
				t.Error("expected cache miss")
			}
		})
	}
}

func TestStorage_Expired(t *testing.T) {
	s := newTestStorage(t)
	if err := s.SaveSeries(testSeries("USD-INR", 83.0), start, end, now); err != nil {
		t.Fatalf("SaveSeries: %v", err)
	}

	if _, ok, _ := s.LoadSeries("USD-INR", start, end, time.Hour, now.Add(time.Hour)); !ok {
		t.Error("entry exactly at TTL should still be served")
	}
	if _, ok, _ := s.LoadSeries("USD-INR", start, end, time.Hour, now.Add(time.Hour+time.Second)); ok {
		t.Error("expired entry should miss")
	}
}

func TestStorage_SaveReplaces(t *testing.T) {
	s := newTestStorage(t)
	if err := s.SaveSeries(testSeries("USD-INR", 83.0, 84.0), start, end, now); err != nil {
		t.Fatalf("SaveSeries: %v", err)
	}
	if err := s.SaveSeries(testSeries("USD-INR", 90.0), start, end, now.Add(time.Minute)); err != nil {
		t.Fatalf("SaveSeries: %v", err)
	}

	got, ok, err := s.LoadSeries("USD-INR", start, end, time.Hour, now.Add(time.Minute))
	if err != nil || !ok {
		t.Fatalf("LoadSeries: ok=%v err=%v", ok, err)
	}
	if len(got.Points) != 1 || got.Points[0].Close != 90.0 {
		t.Errorf("got %+v, want a single point at 90", got.Points)
	}
	if n, _ := s.Count(); n != 1 {
		t.Errorf("Count() = %d, want 1", n)
	}
}

func TestStorage_RejectsSynthetic(t *testing.T) {
	s := newTestStorage(t)
	series := testSeries("USD-INR", 83.0)
	series.Provenance = models.ProvenanceSynthetic

	if err := s.SaveSeries(series, start, end, now); err == nil {
		t.Error("expected error caching a synthetic series")
	}
}

func TestStorage_RejectsInvalid(t *testing.T) {
	s := newTestStorage(t)
	series := testSeries("USD-INR", 83.0, -1)

	if err := s.SaveSeries(series, start, end, now); err == nil {
		t.Error("expected error caching an invalid series")
	}
}

func TestStorage_EmptySeries(t *testing.T) {
	s := newTestStorage(t)
	if err := s.SaveSeries(testSeries("USD-INR"), start, end, now); err != nil {
		t.Fatalf("SaveSeries: %v", err)
	}
	got, ok, err := s.LoadSeries("USD-INR", start, end, time.Hour, now)
	if err != nil || !ok {
		t.Fatalf("LoadSeries: ok=%v err=%v", ok, err)
	}
	if got.Points == nil || len(got.Points) != 0 {
		t.Errorf("Points = %#v, want empty non-nil slice", got.Points)
	}
}

func TestStorage_PruneCascades(t *testing.T) {
	s := newTestStorage(t)
	if err := s.SaveSeries(testSeries("USD-INR", 83.0, 84.0), start, end, now.Add(-2*time.Hour)); err != nil {
		t.Fatalf("SaveSeries: %v", err)
	}
	if err := s.SaveSeries(testSeries("EUR-INR", 90.0), start, end, now); err != nil {
		t.Fatalf("SaveSeries: %v", err)
	}

	n, err := s.Prune(time.Hour, now)
	if err != nil {
		t.Fatalf("Prune: %v", err)
	}
	if n != 1 {
		t.Errorf("Prune() removed %d, want 1", n)
	}

	var orphans int
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM quotes WHERE fetch_id NOT IN (SELECT id FROM fetches)`).Scan(&orphans); err != nil {
		t.Fatalf("count orphans: %v", err)
	}
	if orphans != 0 {
		t.Errorf("found %d orphaned quotes after prune", orphans)
	}
	if _, ok, _ := s.LoadSeries("EUR-INR", start, end, time.Hour, now); !ok {
		t.Error("fresh entry should survive prune")
	}
}

func TestStorage_FileBacked(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "cache.db")
	s, err := New(path)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := s.SaveSeries(testSeries("TCS.NS", 3500), start, end, now); err != nil {
		t.Fatalf("SaveSeries: %v", err)
	}
	_ = s.Close()

	s, err = New(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer s.Close()
	if _, ok, _ := s.LoadSeries("TCS.NS", start, end, time.Hour, now); !ok {
		t.Error("expected entry to persist across reopen")
	}
}
