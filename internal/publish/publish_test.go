package publish

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pfrederiksen/show-scraper/internal/event"
	"github.com/pfrederiksen/show-scraper/internal/scraper"
	"github.com/pfrederiksen/show-scraper/internal/storage"
	"github.com/pfrederiksen/show-scraper/internal/venue"
)

var (
	now    = time.Date(2025, time.March, 1, 12, 0, 0, 0, time.UTC)
	bottom = venue.Venue{
		Name:         "BottomOfTheHill",
		CommonName:   "Bottom of the Hill",
		Region:       venue.SanFrancisco,
		Website:      "https://www.bottomofthehill.com",
		DefaultImage: "default.png",
		Location:     &venue.LatLng{Lat: 37.765, Lng: -122.396},
	}
	fox = venue.Venue{Name: "FoxTheater", CommonName: "Fox Theater", Region: venue.EastBay}
)

func testResult(t *testing.T) *scraper.Result {
	t.Helper()
	result := scraper.NewResult("run-1", bottom, fox)

	entry, ok := result.Get("BottomOfTheHill")
	require.True(t, ok)
	entry.Events = []event.Event{
		{Date: event.NewDay(2025, time.March, 7), Title: "The Mummies", URL: "https://example.com/1", Img: "default.png", Source: bottom},
		{Date: event.NewDay(0, time.April, 2), Title: "Yearless Show", Source: bottom},
	}

	entry, ok = result.Get("FoxTheater")
	require.True(t, ok)
	entry.Err = errors.New("timeout")
	entry.Events = []event.Event{{Date: event.NewDay(2025, time.March, 8), Title: "partial", Source: fox}}
	return result
}

func TestDirSinkPutGet(t *testing.T) {
	ctx := context.Background()
	sink, err := NewDirSink(filepath.Join(t.TempDir(), "out"))
	require.NoError(t, err)

	_, err = sink.Get(ctx, "latest.json")
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, sink.Put(ctx, "latest.json", []byte(`{"a":1}`), jsonType))
	require.NoError(t, sink.Put(ctx, "latest.json", []byte(`{"a":2}`), jsonType))

	data, err := sink.Get(ctx, "latest.json")
	require.NoError(t, err)
	assert.Equal(t, `{"a":2}`, string(data))

	// No temp files are left behind.
	entries, err := os.ReadDir(sink.Dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "latest.json", entries[0].Name())

	info, err := os.Stat(filepath.Join(sink.Dir, "latest.json"))
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0644), info.Mode().Perm())
}

func TestDirSinkRejectsPaths(t *testing.T) {
	sink, err := NewDirSink(t.TempDir())
	require.NoError(t, err)

	for _, key := range []string{"", "..", "../escape.json", "a/b.json"} {
		err := sink.Put(context.Background(), key, []byte("x"), jsonType)
		assert.Error(t, err, "key %q", key)
	}
}

func TestDirSinkConcurrentReadersSeeWholeFiles(t *testing.T) {
	ctx := context.Background()
	sink, err := NewDirSink(t.TempDir())
	require.NoError(t, err)

	small := []byte(strings.Repeat("a", 10))
	large := []byte(strings.Repeat("b", 1<<20))
	require.NoError(t, sink.Put(ctx, "blob", small, jsonType))

	var wg sync.WaitGroup
	stop := make(chan struct{})
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < 20; i++ {
			data := large
			if i%2 == 0 {
				data = small
			}
			assert.NoError(t, sink.Put(ctx, "blob", data, jsonType))
		}
		close(stop)
	}()

	for {
		select {
		case <-stop:
			wg.Wait()
			return
		default:
		}
		data, err := sink.Get(ctx, "blob")
		require.NoError(t, err)
		if len(data) != len(small) && len(data) != len(large) {
			t.Fatalf("read a partial file of %d bytes", len(data))
		}
	}
}

func TestStaticPublish(t *testing.T) {
	ctx := context.Background()
	sink, err := NewDirSink(t.TempDir())
	require.NoError(t, err)

	opts := DefaultStaticOptions()
	opts.Now = func() time.Time { return now }
	p := NewStatic(sink, opts)
	require.NoError(t, p.Publish(ctx, testResult(t)))

	data, err := sink.Get(ctx, LatestKey)
	require.NoError(t, err)

	var latest map[string][]map[string]any
	require.NoError(t, json.Unmarshal(data, &latest))
	require.Len(t, latest, 2)
	assert.Empty(t, latest["FoxTheater"], "failed venue publishes no events")
	require.Len(t, latest["BottomOfTheHill"], 2)
	assert.Equal(t, "2025-03-07", latest["BottomOfTheHill"][0]["date"])
	assert.Equal(t, "--04-02", latest["BottomOfTheHill"][1]["date"])

	// Keys keep registry order.
	assert.Less(t, strings.Index(string(data), "BottomOfTheHill"), strings.Index(string(data), "FoxTheater"))

	data, err = sink.Get(ctx, "FoxTheater.json")
	require.NoError(t, err)
	assert.Equal(t, "[]\n", string(data))

	data, err = sink.Get(ctx, SourcesKey)
	require.NoError(t, err)
	var sources []map[string]any
	require.NoError(t, json.Unmarshal(data, &sources))
	require.Len(t, sources, 2)
	assert.Equal(t, "Bottom of the Hill", sources[0]["commonName"])
	assert.Equal(t, "San Francisco", sources[0]["region"])
	assert.Equal(t, "default.png", sources[0]["image"])
	assert.Equal(t, "37.765,-122.396", sources[0]["latlng"])
	assert.NotContains(t, sources[1], "latlng")

	data, err = sink.Get(ctx, CalendarKey)
	require.NoError(t, err)
	ics := string(data)
	assert.Equal(t, 2, strings.Count(ics, "BEGIN:VEVENT"))
	assert.NotContains(t, ics, "partial")
}

// recordingSink remembers the order of writes.
type recordingSink struct {
	mu      sync.Mutex
	objects map[string][]byte
	order   []string
}

func (s *recordingSink) Put(_ context.Context, key string, data []byte, _ string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.objects == nil {
		s.objects = make(map[string][]byte)
	}
	s.objects[key] = data
	s.order = append(s.order, key)
	return nil
}

func (s *recordingSink) Get(_ context.Context, key string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, ok := s.objects[key]
	if !ok {
		return nil, ErrNotFound
	}
	return data, nil
}

func TestStaticWritesLatestLast(t *testing.T) {
	sink := &recordingSink{}
	p := NewStatic(sink, DefaultStaticOptions())
	require.NoError(t, p.Publish(context.Background(), testResult(t)))

	assert.Equal(t, []string{
		"BottomOfTheHill.json",
		"FoxTheater.json",
		SourcesKey,
		CalendarKey,
		LatestKey,
	}, sink.order)

	// A second run reads the previous result and still overwrites it.
	require.NoError(t, p.Publish(context.Background(), scraper.NewResult("run-2", bottom)))
	assert.Equal(t, LatestKey, sink.order[len(sink.order)-1])
	assert.JSONEq(t, `{"BottomOfTheHill":[]}`, string(sink.objects[LatestKey]))
}

func TestStaticMinimal(t *testing.T) {
	sink := &recordingSink{}
	p := NewStatic(sink, StaticOptions{})
	require.NoError(t, p.Publish(context.Background(), testResult(t)))
	assert.Equal(t, []string{SourcesKey, LatestKey}, sink.order)
}

type failingSink struct{ recordingSink }

func (s *failingSink) Put(ctx context.Context, key string, data []byte, ct string) error {
	if key == CalendarKey {
		return errors.New("disk full")
	}
	return s.recordingSink.Put(ctx, key, data, ct)
}

func TestStaticStopsBeforeLatestOnError(t *testing.T) {
	sink := &failingSink{}
	err := NewStatic(sink, DefaultStaticOptions()).Publish(context.Background(), testResult(t))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "calendar.ics")
	_, err = sink.Get(context.Background(), LatestKey)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestHTTPSink(t *testing.T) {
	var (
		mu      sync.Mutex
		objects = map[string][]byte{}
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer s3cret" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		mu.Lock()
		defer mu.Unlock()
		switch r.Method {
		case http.MethodPut:
			if r.Header.Get("Cache-Control") != CacheControl {
				w.WriteHeader(http.StatusBadRequest)
				return
			}
			body, _ := io.ReadAll(r.Body)
			objects[r.URL.Path] = body
			w.WriteHeader(http.StatusOK)
		case http.MethodGet:
			body, ok := objects[r.URL.Path]
			if !ok {
				w.WriteHeader(http.StatusNotFound)
				return
			}
			w.Write(body)
		}
	}))
	defer srv.Close()

	ctx := context.Background()
	sink := NewHTTPSink(srv.URL+"/shows/", "s3cret")

	_, err := sink.Get(ctx, LatestKey)
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, sink.Put(ctx, LatestKey, []byte(`{}`), jsonType))
	data, err := sink.Get(ctx, LatestKey)
	require.NoError(t, err)
	assert.Equal(t, `{}`, string(data))

	mu.Lock()
	_, ok := objects["/shows/latest.json"]
	mu.Unlock()
	assert.True(t, ok)

	unauthorized := NewHTTPSink(srv.URL, "")
	assert.Error(t, unauthorized.Put(ctx, LatestKey, []byte(`{}`), jsonType))
}

func TestIncrementalIsIdempotent(t *testing.T) {
	ctx := context.Background()
	db, err := storage.Open(":memory:", "")
	require.NoError(t, err)
	defer db.Close()
	require.NoError(t, storage.Migrate(ctx, db))
	store := storage.NewStore(db)

	result := testResult(t)
	entry, _ := result.Get("BottomOfTheHill")

	for run := 0; run < 2; run++ {
		p := NewIncremental(store, nil)
		for _, ev := range entry.Events {
			require.NoError(t, p.OnEvent(ctx, ev))
		}
		require.NoError(t, p.Publish(ctx, result))

		inserted, updated, failed := p.Totals()
		assert.Zero(t, failed)
		if run == 0 {
			assert.Equal(t, 2, inserted)
		} else {
			assert.Equal(t, 0, inserted)
			assert.Equal(t, 2, updated)
		}
	}

	n, err := store.CountEvents(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestIncrementalCountsFailures(t *testing.T) {
	ctx := context.Background()
	db, err := storage.Open(":memory:", "")
	require.NoError(t, err)
	defer db.Close()
	require.NoError(t, storage.Migrate(ctx, db))

	p := NewIncremental(storage.NewStore(db), nil)
	err = p.OnEvent(ctx, event.Event{Title: "no date", Source: bottom})
	require.Error(t, err)
	_, _, failed := p.Totals()
	assert.Equal(t, 1, failed)
}

func TestMulti(t *testing.T) {
	a, b := &recordingSink{}, &failingSink{}
	err := Multi{NewStatic(a, StaticOptions{}), NewStatic(b, DefaultStaticOptions()), Nop{}}.
		Publish(context.Background(), testResult(t))
	require.Error(t, err)
	assert.Contains(t, a.order, LatestKey)
}
