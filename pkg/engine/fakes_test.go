package engine

import (
	"bytes"
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/openfroyo/ppactl/pkg/launchpad"
	"github.com/openfroyo/ppactl/pkg/telemetry"
)

const apiRoot = "https://api.launchpad.net/devel/"

var (
	testProposed = ArchiveRef{Owner: "learningequality", Name: "kolibri-proposed"}
	testRelease  = ArchiveRef{Owner: "learningequality", Name: "kolibri"}
)

func archiveLink(ref ArchiveRef) string {
	return fmt.Sprintf("%s~%s/+archive/ubuntu/%s", apiRoot, ref.Owner, ref.Name)
}

func seriesLink(name string) string {
	return apiRoot + "ubuntu/" + name
}

// pub builds a publication of name at version in series of the proposed archive.
func pub(name, version, series string, status launchpad.PublicationStatus) launchpad.SourcePublication {
	return launchpad.SourcePublication{
		SourcePackageName:    name,
		SourcePackageVersion: version,
		Status:               status,
		Pocket:               launchpad.PocketRelease,
		DistroSeriesLink:     seriesLink(series),
		ArchiveLink:          archiveLink(testProposed),
		SelfLink:             fmt.Sprintf("%s/+sourcepub/%s-%s-%s-%s", archiveLink(testProposed), name, version, series, status),
	}
}

func build(arch string, state launchpad.BuildState) launchpad.Build {
	return launchpad.Build{
		ArchTag:    arch,
		BuildState: state,
		WebLink:    "https://launchpad.net/builds/" + arch,
	}
}

// fakeService is an in-memory ArchiveService.
type fakeService struct {
	mu sync.Mutex

	// sources holds publications per archive self link.
	sources map[string][]launchpad.SourcePublication
	// builds holds builds per publication self link.
	builds map[string][]launchpad.Build

	// sourcesHook, when set, replaces the stored sources for waiter-style queries.
	sourcesHook func(call int) []launchpad.SourcePublication
	// buildsHook, when set, replaces the stored builds.
	buildsHook func(call int, source launchpad.SourcePublication) []launchpad.Build

	syncErr error
	copyErr func(req launchpad.CopyPackageRequest) error

	calls       map[string]int
	syncCalls   []launchpad.SyncSourcesRequest
	copyCalls   []launchpad.CopyPackageRequest
	copyTargets []string
}

func newFakeService() *fakeService {
	return &fakeService{
		sources: make(map[string][]launchpad.SourcePublication),
		builds:  make(map[string][]launchpad.Build),
		calls:   make(map[string]int),
	}
}

func (f *fakeService) addSources(ref ArchiveRef, sources ...launchpad.SourcePublication) {
	link := archiveLink(ref)
	f.sources[link] = append(f.sources[link], sources...)
}

func (f *fakeService) setBuilds(source launchpad.SourcePublication, builds ...launchpad.Build) {
	f.builds[source.SelfLink] = builds
}

func (f *fakeService) count(op string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[op]
}

func (f *fakeService) record(op string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls[op]++
	return f.calls[op]
}

func (f *fakeService) GetArchive(ctx context.Context, owner, name string) (*launchpad.Archive, error) {
	f.record("getArchive")
	ref := ArchiveRef{Owner: owner, Name: name}
	return &launchpad.Archive{Name: name, SelfLink: archiveLink(ref)}, nil
}

func (f *fakeService) GetSeries(ctx context.Context, name string) (*launchpad.Series, error) {
	f.record("getSeries")
	return &launchpad.Series{Name: name, SelfLink: seriesLink(name)}, nil
}

func (f *fakeService) GetPublishedSources(ctx context.Context, archive *launchpad.Archive, filter launchpad.SourceFilter) ([]launchpad.SourcePublication, error) {
	call := f.record("getPublishedSources")
	if f.sourcesHook != nil {
		return f.sourcesHook(call), nil
	}

	var out []launchpad.SourcePublication
	for _, s := range f.sources[archive.SelfLink] {
		if filter.SeriesLink != "" && s.DistroSeriesLink != filter.SeriesLink {
			continue
		}
		if filter.Status != "" && s.Status != filter.Status {
			continue
		}
		if filter.SourceName != "" && s.SourcePackageName != filter.SourceName {
			continue
		}
		if filter.Version != "" && s.SourcePackageVersion != filter.Version {
			continue
		}
		out = append(out, s)
	}
	return out, nil
}

func (f *fakeService) GetBuilds(ctx context.Context, source launchpad.SourcePublication) ([]launchpad.Build, error) {
	call := f.record("getBuilds")
	if f.buildsHook != nil {
		return f.buildsHook(call, source), nil
	}
	return f.builds[source.SelfLink], nil
}

func (f *fakeService) CopyPackage(ctx context.Context, archive *launchpad.Archive, req launchpad.CopyPackageRequest) error {
	f.record("copyPackage")
	f.copyCalls = append(f.copyCalls, req)
	f.copyTargets = append(f.copyTargets, archive.SelfLink)
	if f.copyErr != nil {
		return f.copyErr(req)
	}
	return nil
}

func (f *fakeService) SyncSources(ctx context.Context, archive *launchpad.Archive, req launchpad.SyncSourcesRequest) error {
	f.record("syncSources")
	f.syncCalls = append(f.syncCalls, req)
	return f.syncErr
}

// fakeDetector is a fixed distro.Detector.
type fakeDetector struct {
	current   string
	supported []string
	err       error
}

func (d *fakeDetector) CurrentSeries(ctx context.Context) (string, error) {
	return d.current, d.err
}

func (d *fakeDetector) SupportedSeries(ctx context.Context) ([]string, error) {
	return d.supported, d.err
}

type testEngine struct {
	*Engine
	service *fakeService
	clock   *clockwork.FakeClock
	logs    *bytes.Buffer
	events  []telemetry.Event
}

func newTestEngine(t *testing.T, service *fakeService, mutate func(*Options)) *testEngine {
	t.Helper()

	te := &testEngine{
		service: service,
		clock:   clockwork.NewFakeClock(),
		logs:    &bytes.Buffer{},
	}
	publisher := telemetry.NewEventPublisher("test-run")
	publisher.Subscribe(func(e telemetry.Event) {
		te.events = append(te.events, e)
	}, nil)

	opts := Options{
		Service:   service,
		Detector:  &fakeDetector{current: "jammy", supported: []string{"focal", "jammy", "noble"}},
		Proposed:  testProposed,
		Release:   testRelease,
		Whitelist: []string{"kolibri-server"},
		Clock:     te.clock,
		Logger:    telemetry.NewWriterLogger(&lockedWriter{buf: te.logs}, "debug"),
		Events:    publisher,
	}
	if mutate != nil {
		mutate(&opts)
	}

	e, err := NewEngine(opts)
	if err != nil {
		t.Fatalf("NewEngine failed: %v", err)
	}
	te.Engine = e
	return te
}

func (te *testEngine) eventsOfType(typ string) []telemetry.Event {
	var out []telemetry.Event
	for _, e := range te.events {
		if e.Type == typ {
			out = append(out, e)
		}
	}
	return out
}

// lockedWriter serializes writes from the waiter goroutine and test reads.
type lockedWriter struct {
	mu  sync.Mutex
	buf *bytes.Buffer
}

func (w *lockedWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.buf.Write(p)
}

type waitResult struct {
	code int
	err  error
}

// runWaiter runs WaitForBuilds in the background, advancing the fake clock by
// interval every time the waiter sleeps, until it returns.
func runWaiter(t *testing.T, te *testEngine, opts WaitOptions) (waitResult, time.Duration) {
	t.Helper()

	start := te.clock.Now()
	done := make(chan waitResult, 1)
	go func() {
		code, err := te.WaitForBuilds(context.Background(), opts)
		done <- waitResult{code: code, err: err}
	}()

	for i := 0; i < 1000; i++ {
		select {
		case res := <-done:
			return res, te.clock.Since(start)
		default:
		}

		ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
		err := te.clock.BlockUntilContext(ctx, 1)
		cancel()
		if err != nil {
			continue
		}
		te.clock.Advance(opts.Interval)
	}
	t.Fatal("waiter did not finish")
	return waitResult{}, 0
}
