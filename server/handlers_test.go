package server

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/jimimatt/High-Pricision-AD-HAT/store"
	"github.com/julienschmidt/httprouter"
	"github.com/sirupsen/logrus"
)

// fakeStore is an in-memory Store for handler tests.
type fakeStore struct {
	config    *store.AcquisitionConfig
	samples   []store.Sample
	putConfig int
}

var _ store.Store = &fakeStore{}

func (f *fakeStore) AcquisitionConfig() (store.AcquisitionConfig, error) {
	if f.config == nil {
		return store.AcquisitionConfig{}, fmt.Errorf("acquisition config does not exist")
	}
	return *f.config, nil
}

func (f *fakeStore) PutAcquisitionConfig(c store.AcquisitionConfig) error {
	f.config = &c
	f.putConfig++
	return nil
}

func (f *fakeStore) PutSample(s store.Sample) error {
	f.samples = append(f.samples, s)
	return nil
}

func (f *fakeStore) RecentSamples(n int) ([]store.Sample, error) {
	if n > len(f.samples) {
		n = len(f.samples)
	}
	out := make([]store.Sample, 0, n)
	for i := len(f.samples) - 1; i >= 0 && len(out) < n; i-- {
		out = append(out, f.samples[i])
	}
	return out, nil
}

func (f *fakeStore) Close() error { return nil }

func testServer(t *testing.T, st store.Store) (*Server, http.Handler) {
	t.Helper()

	logger := logrus.New()
	logger.SetOutput(io.Discard)

	s := &Server{Store: st, Logger: logger}
	if err := s.init(); err != nil {
		t.Fatalf("unable to initialize server: %s", err)
	}

	mux := httprouter.New()
	mux.HandlerFunc(http.MethodGet, "/channels", s.getChannels)
	mux.HandlerFunc(http.MethodGet, "/channels/:channel", s.getChannel)
	mux.HandlerFunc(http.MethodGet, "/config", s.getConfig)
	mux.HandlerFunc(http.MethodPut, "/config", s.putConfig)
	mux.HandlerFunc(http.MethodGet, "/samples", s.getSamples)

	return s, mux
}

func testSample() store.Sample {
	return store.Sample{
		Time: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC),
		Readings: []store.Reading{
			{Channel: 0, Raw: 1073741824, Voltage: 2.54},
			{Channel: 3, Raw: 2147483647, Voltage: 5.08},
		},
	}
}

func TestGetChannelsNoSample(t *testing.T) {
	_, mux := testServer(t, &fakeStore{})

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/channels", nil))

	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("got status %d, want %d", rec.Code, http.StatusServiceUnavailable)
	}
}

func TestGetChannels(t *testing.T) {
	s, mux := testServer(t, &fakeStore{})
	s.readingsManager.Set(testSample())

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/channels", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("got status %d, want %d", rec.Code, http.StatusOK)
	}

	var sample store.Sample
	if err := json.NewDecoder(rec.Body).Decode(&sample); err != nil {
		t.Fatalf("unable to decode response: %s", err)
	}
	if len(sample.Readings) != 2 {
		t.Fatalf("got %d readings, want 2", len(sample.Readings))
	}
	if sample.Readings[1].Channel != 3 {
		t.Errorf("got channel %d, want 3", sample.Readings[1].Channel)
	}
}

func TestGetChannel(t *testing.T) {
	s, mux := testServer(t, &fakeStore{})
	s.readingsManager.Set(testSample())

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/channels/3", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("got status %d, want %d", rec.Code, http.StatusOK)
	}

	var reading store.Reading
	if err := json.NewDecoder(rec.Body).Decode(&reading); err != nil {
		t.Fatalf("unable to decode response: %s", err)
	}
	if reading.Raw != 2147483647 {
		t.Errorf("got raw %d, want 2147483647", reading.Raw)
	}
}

func TestGetChannelNotScanned(t *testing.T) {
	s, mux := testServer(t, &fakeStore{})
	s.readingsManager.Set(testSample())

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/channels/7", nil))

	if rec.Code != http.StatusNotFound {
		t.Errorf("got status %d, want %d", rec.Code, http.StatusNotFound)
	}
}

func TestGetChannelInvalid(t *testing.T) {
	s, mux := testServer(t, &fakeStore{})
	s.readingsManager.Set(testSample())

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/channels/abc", nil))

	if rec.Code != http.StatusUnprocessableEntity {
		t.Errorf("got status %d, want %d", rec.Code, http.StatusUnprocessableEntity)
	}
}

func TestGetConfigDefaults(t *testing.T) {
	_, mux := testServer(t, &fakeStore{})

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/config", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("got status %d, want %d", rec.Code, http.StatusOK)
	}

	var config store.AcquisitionConfig
	if err := json.NewDecoder(rec.Body).Decode(&config); err != nil {
		t.Fatalf("unable to decode response: %s", err)
	}
	if config.Reference != defaultConfig.Reference || config.PeriodMS != defaultConfig.PeriodMS {
		t.Errorf("got %+v, want defaults %+v", config, defaultConfig)
	}
}

func TestInitSeedsStoredConfig(t *testing.T) {
	stored := store.AcquisitionConfig{Channels: []int{7}, Reference: 2.5, PeriodMS: 250}
	s, _ := testServer(t, &fakeStore{config: &stored})

	if got := s.configManager.Config(); got.Reference != 2.5 || got.PeriodMS != 250 {
		t.Errorf("got %+v, want the stored config", got)
	}
}

func TestPutConfig(t *testing.T) {
	st := &fakeStore{}
	s, mux := testServer(t, st)

	body, _ := json.Marshal(store.AcquisitionConfig{
		Channels:  []int{0, 1},
		Reference: 3.3,
		PeriodMS:  500,
	})

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodPut, "/config", bytes.NewReader(body)))

	if rec.Code != http.StatusNoContent {
		t.Fatalf("got status %d, want %d", rec.Code, http.StatusNoContent)
	}
	if st.putConfig != 1 {
		t.Errorf("config persisted %d times, want 1", st.putConfig)
	}
	if got := s.configManager.Config(); got.Reference != 3.3 {
		t.Errorf("got reference %f, want 3.3", got.Reference)
	}
}

func TestPutConfigInvalid(t *testing.T) {
	cases := []struct {
		name string
		body string
	}{
		{"not json", "{"},
		{"no channels", `{"channels":[],"reference":5.08,"periodMS":1000}`},
		{"zero reference", `{"channels":[0],"reference":0,"periodMS":1000}`},
		{"negative period", `{"channels":[0],"reference":5.08,"periodMS":-1}`},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			st := &fakeStore{}
			_, mux := testServer(t, st)

			rec := httptest.NewRecorder()
			mux.ServeHTTP(rec, httptest.NewRequest(http.MethodPut, "/config",
				bytes.NewReader([]byte(c.body))))

			if rec.Code != http.StatusUnprocessableEntity {
				t.Errorf("got status %d, want %d", rec.Code, http.StatusUnprocessableEntity)
			}
			if st.putConfig != 0 {
				t.Error("an invalid config must not be persisted")
			}
		})
	}
}

func TestGetSamples(t *testing.T) {
	st := &fakeStore{}
	for i := 0; i < 5; i++ {
		st.PutSample(store.Sample{
			Time:     time.Date(2024, 3, 1, 12, 0, i, 0, time.UTC),
			Readings: []store.Reading{{Channel: 0, Raw: uint32(i)}},
		})
	}
	_, mux := testServer(t, st)

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/samples?n=2", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("got status %d, want %d", rec.Code, http.StatusOK)
	}

	var samples []store.Sample
	if err := json.NewDecoder(rec.Body).Decode(&samples); err != nil {
		t.Fatalf("unable to decode response: %s", err)
	}
	if len(samples) != 2 {
		t.Fatalf("got %d samples, want 2", len(samples))
	}
	if samples[0].Readings[0].Raw != 4 {
		t.Errorf("got raw %d first, want the newest sample", samples[0].Readings[0].Raw)
	}
}

func TestGetSamplesInvalidCount(t *testing.T) {
	_, mux := testServer(t, &fakeStore{})

	for _, q := range []string{"n=0", "n=-3", "n=abc"} {
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/samples?"+q, nil))

		if rec.Code != http.StatusUnprocessableEntity {
			t.Errorf("%s: got status %d, want %d", q, rec.Code, http.StatusUnprocessableEntity)
		}
	}
}
