package gallery

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"

	"wallview/pkg/models"
)

type fetchCall struct {
	search   bool
	category int
	start    int
	keyword  string
}

type fetchResult struct {
	env *models.Envelope
	err error
}

// fakeFetcher serves queued results in order and records every call.
type fakeFetcher struct {
	mu      sync.Mutex
	calls   []fetchCall
	results []fetchResult
	onFetch func(ctx context.Context, c fetchCall)
}

func (f *fakeFetcher) FetchByCategory(ctx context.Context, categoryID, start int) (*models.Envelope, error) {
	return f.fetch(ctx, fetchCall{category: categoryID, start: start})
}

func (f *fakeFetcher) FetchBySearch(ctx context.Context, start int, keyword string) (*models.Envelope, error) {
	return f.fetch(ctx, fetchCall{search: true, start: start, keyword: keyword})
}

func (f *fakeFetcher) fetch(ctx context.Context, c fetchCall) (*models.Envelope, error) {
	f.mu.Lock()
	f.calls = append(f.calls, c)
	var res fetchResult
	if len(f.results) > 0 {
		res = f.results[0]
		f.results = f.results[1:]
	} else {
		res = fetchResult{err: errors.New("no result queued")}
	}
	hook := f.onFetch
	f.mu.Unlock()

	if hook != nil {
		hook(ctx, c)
	}
	return res.env, res.err
}

func (f *fakeFetcher) queue(results ...fetchResult) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.results = append(f.results, results...)
}

func (f *fakeFetcher) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func (f *fakeFetcher) call(i int) fetchCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[i]
}

func page(prefix string, n, total int) fetchResult {
	data := make([]models.Wallpaper, n)
	for i := range data {
		data[i] = models.Wallpaper{
			ID:  fmt.Sprintf("%s-%d", prefix, i),
			URL: fmt.Sprintf("https://img.test/%s/%d.jpg", prefix, i),
		}
	}
	return fetchResult{env: &models.Envelope{
		Errno: "0",
		Data:  data,
		Total: models.Count{Value: total, Known: true},
	}}
}

func newTestState(f Fetcher) *State {
	return New(f, WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))
}

func TestNewDefaults(t *testing.T) {
	s := newTestState(&fakeFetcher{})
	snap := s.Snapshot()

	if snap.Category != DefaultCategory {
		t.Errorf("Category = %d, want %d", snap.Category, DefaultCategory)
	}
	if snap.Total() != 0 || snap.Start != 0 {
		t.Errorf("collection = %d, start = %d, want empty", snap.Total(), snap.Start)
	}
	if !snap.HasMore || snap.Loading || snap.SearchMode || snap.Err != "" {
		t.Errorf("unexpected initial flags: %+v", snap)
	}
}

func TestWithDefaultCategory(t *testing.T) {
	s := New(&fakeFetcher{}, WithDefaultCategory(36))
	if got := s.Snapshot().Category; got != 36 {
		t.Errorf("Category = %d, want 36", got)
	}
}

func TestLoadPaginatesUntilExhausted(t *testing.T) {
	f := &fakeFetcher{}
	f.queue(page("a", 5, 12), page("b", 7, 12))
	s := newTestState(f)
	ctx := context.Background()

	if err := s.ChangeCategory(ctx, 10); err != nil {
		t.Fatalf("first load: %v", err)
	}
	snap := s.Snapshot()
	if snap.Total() != 5 || snap.Start != 5 || !snap.HasMore {
		t.Fatalf("after first page: total=%d start=%d hasMore=%v", snap.Total(), snap.Start, snap.HasMore)
	}
	if c := f.call(0); c.search || c.category != 10 || c.start != 0 {
		t.Errorf("first call = %+v, want category 10 start 0", c)
	}

	if err := s.Load(ctx); err != nil {
		t.Fatalf("second load: %v", err)
	}
	snap = s.Snapshot()
	if snap.Total() != 12 || snap.Start != 12 || snap.HasMore {
		t.Fatalf("after second page: total=%d start=%d hasMore=%v", snap.Total(), snap.Start, snap.HasMore)
	}
	if c := f.call(1); c.start != 5 {
		t.Errorf("second call start = %d, want 5", c.start)
	}
	if snap.Wallpapers[0].ID != "a-0" || snap.Wallpapers[5].ID != "b-0" || snap.Wallpapers[11].ID != "b-6" {
		t.Errorf("records out of order: first=%s sixth=%s last=%s",
			snap.Wallpapers[0].ID, snap.Wallpapers[5].ID, snap.Wallpapers[11].ID)
	}

	if err := s.Load(ctx); err != nil {
		t.Fatalf("third load: %v", err)
	}
	if f.callCount() != 2 {
		t.Errorf("fetch calls = %d, want 2 after exhaustion", f.callCount())
	}
	if got := s.Snapshot(); got.Total() != 12 || got.Start != 12 {
		t.Errorf("exhausted state changed: total=%d start=%d", got.Total(), got.Start)
	}
}

func TestCursorTracksLoadedRecords(t *testing.T) {
	sizes := []int{3, 1, 4, 1, 5}
	f := &fakeFetcher{}
	for i, n := range sizes {
		f.queue(page(fmt.Sprintf("p%d", i), n, 100))
	}
	s := newTestState(f)

	sum := 0
	for i, n := range sizes {
		if err := s.Load(context.Background()); err != nil {
			t.Fatalf("load %d: %v", i, err)
		}
		sum += n
		snap := s.Snapshot()
		if snap.Start != sum || snap.Total() != sum {
			t.Fatalf("after load %d: start=%d total=%d, want %d", i, snap.Start, snap.Total(), sum)
		}
		if c := f.call(i); c.start != sum-n {
			t.Errorf("call %d start = %d, want %d", i, c.start, sum-n)
		}
	}
}

func TestLoadWhileLoadingIsNoop(t *testing.T) {
	entered := make(chan struct{})
	release := make(chan struct{})
	f := &fakeFetcher{}
	f.queue(page("a", 2, 10), page("b", 2, 10))
	f.onFetch = func(ctx context.Context, c fetchCall) {
		if c.start == 0 {
			close(entered)
			<-release
		}
	}
	s := newTestState(f)

	done := make(chan error, 1)
	go func() { done <- s.Load(context.Background()) }()
	<-entered

	if !s.Snapshot().Loading {
		t.Fatal("Loading = false while fetch is in flight")
	}
	if err := s.Load(context.Background()); err != nil {
		t.Fatalf("concurrent load: %v", err)
	}
	if f.callCount() != 1 {
		t.Errorf("fetch calls = %d, want 1", f.callCount())
	}
	if snap := s.Snapshot(); snap.Start != 0 || snap.Total() != 0 {
		t.Errorf("state changed by no-op load: start=%d total=%d", snap.Start, snap.Total())
	}

	close(release)
	if err := <-done; err != nil {
		t.Fatalf("first load: %v", err)
	}
	snap := s.Snapshot()
	if snap.Loading || snap.Total() != 2 {
		t.Errorf("after load: loading=%v total=%d", snap.Loading, snap.Total())
	}
}

func TestLoadErrorCapture(t *testing.T) {
	f := &fakeFetcher{}
	f.queue(page("a", 3, 10), fetchResult{err: errors.New("timeout")})
	s := newTestState(f)
	ctx := context.Background()

	if err := s.Load(ctx); err != nil {
		t.Fatalf("first load: %v", err)
	}
	before := s.Snapshot()

	err := s.Load(ctx)
	if err == nil || err.Error() != "timeout" {
		t.Fatalf("Load() error = %v, want timeout", err)
	}
	snap := s.Snapshot()
	if snap.Err != "timeout" {
		t.Errorf("Err = %q, want timeout", snap.Err)
	}
	if snap.Loading {
		t.Error("Loading = true after failed load")
	}
	if snap.Total() != before.Total() || snap.Start != before.Start || !snap.HasMore {
		t.Errorf("failed load changed collection: %+v", snap)
	}

	f.queue(page("b", 2, 10))
	if err := s.Load(ctx); err != nil {
		t.Fatalf("retry: %v", err)
	}
	snap = s.Snapshot()
	if snap.Err != "" || snap.Total() != 5 {
		t.Errorf("after retry: err=%q total=%d", snap.Err, snap.Total())
	}
}

func TestApplicationErrorIsSurfaced(t *testing.T) {
	f := &fakeFetcher{}
	f.queue(fetchResult{env: &models.Envelope{Errno: "1003", Errmsg: "bad category"}})
	s := newTestState(f)

	err := s.Load(context.Background())
	var apiErr *models.APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("Load() error = %v, want *models.APIError", err)
	}
	snap := s.Snapshot()
	if snap.Err != "api error 1003: bad category" {
		t.Errorf("Err = %q", snap.Err)
	}
	if snap.Loading || !snap.HasMore || snap.Total() != 0 {
		t.Errorf("unexpected state after api error: %+v", snap)
	}
}

func TestNilEnvelopeIsAnError(t *testing.T) {
	f := &fakeFetcher{}
	f.queue(fetchResult{})
	s := newTestState(f)

	if err := s.Load(context.Background()); !errors.Is(err, errEmptyResponse) {
		t.Fatalf("Load() error = %v, want errEmptyResponse", err)
	}
}

func TestEmptyPageEndsPagination(t *testing.T) {
	tests := []struct {
		name string
		env  *models.Envelope
	}{
		{"missing data", &models.Envelope{Errno: "0", Total: models.Count{Value: 50, Known: true}}},
		{"empty data", &models.Envelope{Errno: "0", Data: []models.Wallpaper{}, Total: models.Count{Value: 50, Known: true}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := &fakeFetcher{}
			f.queue(fetchResult{env: tt.env})
			s := newTestState(f)

			if err := s.Load(context.Background()); err != nil {
				t.Fatalf("Load() error = %v", err)
			}
			snap := s.Snapshot()
			if snap.HasMore {
				t.Error("HasMore = true after empty page")
			}
			if snap.Start != 0 || snap.Err != "" {
				t.Errorf("unexpected state: %+v", snap)
			}
		})
	}
}

func TestTotalDecidesHasMore(t *testing.T) {
	tests := []struct {
		name        string
		body        string
		wantHasMore bool
	}{
		{"missing total", `{"errno":"0","data":[{"id":"1"},{"id":"2"}]}`, false},
		{"null total", `{"errno":"0","total":null,"data":[{"id":"1"},{"id":"2"}]}`, false},
		{"garbage total", `{"errno":"0","total":"abc","data":[{"id":"1"},{"id":"2"}]}`, false},
		{"total equals loaded", `{"errno":"0","total":"2","data":[{"id":"1"},{"id":"2"}]}`, false},
		{"larger total", `{"errno":"0","total":"4","data":[{"id":"1"},{"id":"2"}]}`, true},
		{"huge total", `{"errno":"0","total":1e30,"data":[{"id":"1"},{"id":"2"}]}`, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var env models.Envelope
			if err := json.Unmarshal([]byte(tt.body), &env); err != nil {
				t.Fatalf("unmarshal: %v", err)
			}
			f := &fakeFetcher{}
			f.queue(fetchResult{env: &env}, fetchResult{env: &env})
			s := newTestState(f)
			ctx := context.Background()

			if err := s.Load(ctx); err != nil {
				t.Fatalf("Load() error = %v", err)
			}
			if got := s.Snapshot().HasMore; got != tt.wantHasMore {
				t.Fatalf("HasMore = %v, want %v", got, tt.wantHasMore)
			}

			// A second Load only reaches the fetcher while more is expected.
			_ = s.Load(ctx)
			wantCalls := 1
			if tt.wantHasMore {
				wantCalls = 2
			}
			if got := len(f.calls); got != wantCalls {
				t.Errorf("fetches = %d, want %d", got, wantCalls)
			}
		})
	}
}

func TestChangeCategoryResetsBeforeLoad(t *testing.T) {
	f := &fakeFetcher{}
	f.queue(page("a", 3, 10), fetchResult{err: errors.New("boom")})
	s := newTestState(f)
	ctx := context.Background()

	if err := s.SearchWallpapers(ctx, "cat"); err != nil {
		t.Fatalf("search: %v", err)
	}
	_ = s.Load(ctx)

	var atFetch Snapshot
	f.onFetch = func(context.Context, fetchCall) { atFetch = s.Snapshot() }
	f.queue(page("b", 2, 2))

	if err := s.ChangeCategory(ctx, 26); err != nil {
		t.Fatalf("ChangeCategory: %v", err)
	}
	if atFetch.Total() != 0 || atFetch.Start != 0 {
		t.Errorf("collection at fetch: total=%d start=%d, want empty", atFetch.Total(), atFetch.Start)
	}
	if !atFetch.HasMore || atFetch.SearchMode || atFetch.Category != 26 {
		t.Errorf("flags at fetch: %+v", atFetch)
	}
	if c := f.call(f.callCount() - 1); c.search || c.category != 26 || c.start != 0 {
		t.Errorf("fetch call = %+v, want category 26 start 0", c)
	}
	snap := s.Snapshot()
	if snap.Total() != 2 || snap.Wallpapers[0].ID != "b-0" {
		t.Errorf("after change: %+v", snap)
	}
}

func TestChangeCategoryRecoversExhaustedState(t *testing.T) {
	f := &fakeFetcher{}
	f.queue(page("a", 2, 2), page("b", 2, 9))
	s := newTestState(f)
	ctx := context.Background()

	_ = s.Load(ctx)
	if s.Snapshot().HasMore {
		t.Fatal("expected exhausted collection")
	}
	if err := s.ChangeCategory(ctx, 5); err != nil {
		t.Fatalf("ChangeCategory: %v", err)
	}
	if snap := s.Snapshot(); !snap.HasMore || snap.Total() != 2 {
		t.Errorf("after change: hasMore=%v total=%d", snap.HasMore, snap.Total())
	}
}

func TestSearchWallpapers(t *testing.T) {
	f := &fakeFetcher{}
	f.queue(page("a", 4, 10), page("s", 3, 3))
	s := newTestState(f)
	ctx := context.Background()

	_ = s.Load(ctx)
	if err := s.SearchWallpapers(ctx, "cat"); err != nil {
		t.Fatalf("search: %v", err)
	}

	if f.callCount() != 2 {
		t.Fatalf("fetch calls = %d, want 2", f.callCount())
	}
	c := f.call(1)
	if !c.search || c.keyword != "cat" || c.start != 0 {
		t.Errorf("search call = %+v, want keyword cat start 0", c)
	}
	snap := s.Snapshot()
	if !snap.SearchMode || snap.Keyword != "cat" {
		t.Errorf("mode = %v keyword = %q", snap.SearchMode, snap.Keyword)
	}
	if snap.Total() != 3 || snap.Start != 3 || snap.Wallpapers[0].ID != "s-0" {
		t.Errorf("search collection: total=%d start=%d", snap.Total(), snap.Start)
	}

	f.queue(page("x", 1, 1))
	_ = s.Load(ctx)
	if f.callCount() != 2 {
		t.Error("exhausted search issued another fetch")
	}
}

func TestStaleResponseIsDiscarded(t *testing.T) {
	entered := make(chan struct{})
	release := make(chan struct{})
	f := &fakeFetcher{}
	f.queue(page("old", 5, 50), page("new", 2, 20))
	f.onFetch = func(ctx context.Context, c fetchCall) {
		if c.category == DefaultCategory {
			close(entered)
			<-release
		}
	}
	s := newTestState(f)

	done := make(chan error, 1)
	go func() { done <- s.Load(context.Background()) }()
	<-entered

	if err := s.ChangeCategory(context.Background(), 7); err != nil {
		t.Fatalf("ChangeCategory: %v", err)
	}
	close(release)
	if err := <-done; err != nil {
		t.Fatalf("stale load returned %v, want nil", err)
	}

	snap := s.Snapshot()
	if snap.Total() != 2 || snap.Start != 2 {
		t.Fatalf("total=%d start=%d, want 2", snap.Total(), snap.Start)
	}
	for _, w := range snap.Wallpapers {
		if w.ID[:3] == "old" {
			t.Errorf("stale record %s appended", w.ID)
		}
	}
	if snap.Loading || snap.Category != 7 {
		t.Errorf("unexpected state: loading=%v category=%d", snap.Loading, snap.Category)
	}
}

func TestChangeCategoryCancelsInFlightFetch(t *testing.T) {
	entered := make(chan struct{})
	cancelled := make(chan struct{})
	f := &fakeFetcher{}
	f.queue(page("old", 5, 50), page("new", 1, 1))
	f.onFetch = func(ctx context.Context, c fetchCall) {
		if c.category == DefaultCategory {
			close(entered)
			<-ctx.Done()
			close(cancelled)
		}
	}
	s := newTestState(f)

	done := make(chan error, 1)
	go func() { done <- s.Load(context.Background()) }()
	<-entered

	if err := s.ChangeCategory(context.Background(), 3); err != nil {
		t.Fatalf("ChangeCategory: %v", err)
	}
	<-cancelled
	<-done
}

func TestReset(t *testing.T) {
	f := &fakeFetcher{}
	f.queue(page("s", 3, 3), fetchResult{err: errors.New("x")})
	s := newTestState(f)
	ctx := context.Background()

	_ = s.SearchWallpapers(ctx, "dog")
	s.Reset()

	snap := s.Snapshot()
	want := Snapshot{Category: DefaultCategory, HasMore: true}
	if snap.Total() != 0 || snap.Category != want.Category || snap.Keyword != "" ||
		snap.Start != 0 || snap.Loading || !snap.HasMore || snap.SearchMode || snap.Err != "" {
		t.Errorf("after reset: %+v", snap)
	}
}

func TestSubscribeSeesLoadingTransitions(t *testing.T) {
	f := &fakeFetcher{}
	f.queue(page("a", 2, 4))
	s := newTestState(f)

	var loading []bool
	var totals []int
	cancel := s.Subscribe(func(snap Snapshot) {
		loading = append(loading, snap.Loading)
		totals = append(totals, snap.Total())
	})
	defer cancel()

	_ = s.Load(context.Background())

	if len(loading) != 2 || !loading[0] || loading[1] {
		t.Errorf("loading transitions = %v, want [true false]", loading)
	}
	if totals[len(totals)-1] != 2 {
		t.Errorf("last published total = %d, want 2", totals[len(totals)-1])
	}
}

func TestLoadingMore(t *testing.T) {
	tests := []struct {
		name string
		snap Snapshot
		want bool
	}{
		{"idle", Snapshot{}, false},
		{"initial load", Snapshot{Loading: true}, false},
		{"loading more", Snapshot{Loading: true, Wallpapers: make([]models.Wallpaper, 1)}, true},
		{"idle with records", Snapshot{Wallpapers: make([]models.Wallpaper, 1)}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.snap.LoadingMore(); got != tt.want {
				t.Errorf("LoadingMore() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestSnapshotIsACopy(t *testing.T) {
	f := &fakeFetcher{}
	f.queue(page("a", 2, 4))
	s := newTestState(f)
	_ = s.Load(context.Background())

	snap := s.Snapshot()
	snap.Wallpapers[0].ID = "mutated"
	if s.Snapshot().Wallpapers[0].ID != "a-0" {
		t.Error("snapshot shares backing array with state")
	}
}
