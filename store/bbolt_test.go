package store

import (
	"path/filepath"
	"reflect"
	"testing"
	"time"
)

func openTestStore(t *testing.T) Store {
	t.Helper()
	s, err := OpenBBolt(filepath.Join(t.TempDir(), "adhat.db"), 0600, nil)
	if err != nil {
		t.Fatalf("unable to open store: %s", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestAcquisitionConfigRoundTrip(t *testing.T) {
	s := openTestStore(t)

	want := AcquisitionConfig{
		Channels:  []int{0, 1, 2, 3, 4},
		Reference: 5.08,
		PeriodMS:  1000,
	}
	if err := s.PutAcquisitionConfig(want); err != nil {
		t.Fatalf("unexpected error: %s", err)
	}

	got, err := s.AcquisitionConfig()
	if err != nil {
		t.Fatalf("unexpected error: %s", err)
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("got %+v, want %+v", got, want)
	}
}

func TestAcquisitionConfigMissing(t *testing.T) {
	s := openTestStore(t)

	if _, err := s.AcquisitionConfig(); err == nil {
		t.Fatal("expected an error when no config was stored")
	}
}

func TestRecentSamples(t *testing.T) {
	s := openTestStore(t)

	base := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		sample := Sample{
			Time: base.Add(time.Duration(i) * time.Second),
			Readings: []Reading{
				{Channel: 0, Raw: uint32(i), Voltage: float64(i) * 0.5},
			},
		}
		if err := s.PutSample(sample); err != nil {
			t.Fatalf("unexpected error: %s", err)
		}
	}

	samples, err := s.RecentSamples(3)
	if err != nil {
		t.Fatalf("unexpected error: %s", err)
	}
	if len(samples) != 3 {
		t.Fatalf("got %d samples, want 3", len(samples))
	}

	// newest first
	for i, want := range []uint32{4, 3, 2} {
		if got := samples[i].Readings[0].Raw; got != want {
			t.Errorf("sample %d has raw %d, want %d", i, got, want)
		}
	}
}

func TestRecentSamplesEmpty(t *testing.T) {
	s := openTestStore(t)

	samples, err := s.RecentSamples(10)
	if err != nil {
		t.Fatalf("unexpected error: %s", err)
	}
	if len(samples) != 0 {
		t.Errorf("got %d samples from an empty store, want 0", len(samples))
	}
}

func TestRecentSamplesMoreThanStored(t *testing.T) {
	s := openTestStore(t)

	sample := Sample{
		Time:     time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC),
		Readings: []Reading{{Channel: 2, Raw: 99, Voltage: 1.25}},
	}
	if err := s.PutSample(sample); err != nil {
		t.Fatalf("unexpected error: %s", err)
	}

	samples, err := s.RecentSamples(10)
	if err != nil {
		t.Fatalf("unexpected error: %s", err)
	}
	if len(samples) != 1 {
		t.Fatalf("got %d samples, want 1", len(samples))
	}
	if samples[0].Readings[0].Channel != 2 {
		t.Errorf("got channel %d, want 2", samples[0].Readings[0].Channel)
	}
}
