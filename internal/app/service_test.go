package service_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/okian/wrchecker/internal/adapters/repository"
	service "github.com/okian/wrchecker/internal/app"
	"github.com/okian/wrchecker/internal/catalog"
	"github.com/okian/wrchecker/internal/domain/model"
	"github.com/okian/wrchecker/internal/domain/record"
	"github.com/okian/wrchecker/internal/domain/weekly"
	"github.com/okian/wrchecker/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

type mockStore struct {
	mu           sync.Mutex
	best         map[string]model.Score
	appended     []model.Score
	provisioned  int
	provisionErr error
	appendErr    error
}

func (m *mockStore) Provision(context.Context, []catalog.Level) error {
	m.provisioned++
	return m.provisionErr
}

func (m *mockStore) GetBest(_ context.Context, level string) (model.Score, error) {
	s, ok := m.best[level]
	if !ok {
		return model.Score{}, repository.ErrNotFound
	}
	return s, nil
}

func (m *mockStore) AppendScore(_ context.Context, s model.Score) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.appendErr != nil {
		return m.appendErr
	}
	m.appended = append(m.appended, s)
	return nil
}

type mockBackend struct {
	best     map[string]model.Score
	bestErr  error
	fetched  []model.Score
	failures map[string]error
}

func (m *mockBackend) FetchBest(_ context.Context, level string) (model.Score, error) {
	if m.bestErr != nil {
		return model.Score{}, m.bestErr
	}
	return m.best[level], nil
}

func (m *mockBackend) FetchBests(context.Context, []string) ([]model.Score, map[string]error) {
	return m.fetched, m.failures
}

type mockNotifier struct {
	calls [][]record.Announcement
}

func (m *mockNotifier) NewRecords(_ context.Context, as []record.Announcement) {
	m.calls = append(m.calls, as)
}

type mockWeekly struct {
	outcome weekly.Outcome
	err     error
	calls   int
}

func (m *mockWeekly) Check(context.Context) (weekly.Outcome, error) {
	m.calls++
	return m.outcome, m.err
}

type mockHeartbeat struct {
	pushes int
	err    error
}

func (m *mockHeartbeat) Enabled() bool { return true }

func (m *mockHeartbeat) Push(context.Context) error {
	m.pushes++
	return m.err
}

func sc(level string, t float64) model.Score {
	return model.Score{LevelID: level, Time: t, Username: "marble"}
}

type fixture struct {
	store     *mockStore
	backend   *mockBackend
	notifier  *mockNotifier
	weekly    *mockWeekly
	heartbeat *mockHeartbeat
	svc       *service.Service
}

func newFixture() *fixture {
	f := &fixture{
		store:     &mockStore{best: map[string]model.Score{"SP_1": sc("SP_1", 32.5)}},
		backend:   &mockBackend{best: map[string]model.Score{"SP_2": sc("SP_2", 50)}},
		notifier:  &mockNotifier{},
		weekly:    &mockWeekly{},
		heartbeat: &mockHeartbeat{},
	}
	cat := catalog.New([]string{"1", "2"}, map[string]string{"1": "Learning to Roll"})
	f.svc = service.New(f.store, f.backend, f.notifier, f.weekly, cat,
		service.WithLogger(logger.Discard()),
		service.WithHeartbeat(f.heartbeat))
	return f
}

func TestService_Seed(t *testing.T) {
	ctx := context.Background()

	Convey("Given a store with one of two levels", t, func() {
		f := newFixture()

		Convey("Seed provisions, bootstraps and publishes the records", func() {
			So(f.svc.Seed(ctx), ShouldBeNil)
			So(f.store.provisioned, ShouldEqual, 1)
			So(f.store.appended, ShouldHaveLength, 1)

			records := f.svc.Records()
			So(records, ShouldHaveLength, 2)
			So(records["SP_2"].Time, ShouldEqual, 50)
			So(f.svc.GetStats()["bootstrapped"], ShouldEqual, 1)
		})

		Convey("A provisioning failure is fatal", func() {
			f.store.provisionErr = errors.New("read-only")
			err := f.svc.Seed(ctx)
			So(service.IsFatal(err), ShouldBeTrue)
			So(service.KindOf(err), ShouldEqual, service.KindFatal)
		})

		Convey("A failed bootstrap is fatal", func() {
			f.backend.bestErr = errors.New("timeout")
			err := f.svc.Seed(ctx)
			So(service.IsFatal(err), ShouldBeTrue)
			So(errors.Is(err, record.ErrSeed), ShouldBeTrue)
		})
	})
}

func TestService_Tick(t *testing.T) {
	ctx := context.Background()

	Convey("Given a seeded service", t, func() {
		f := newFixture()
		So(f.svc.Seed(ctx), ShouldBeNil)

		Convey("A faster time is persisted, announced and published", func() {
			f.backend.fetched = []model.Score{sc("SP_1", 31.9), sc("SP_2", 50)}
			report := f.svc.Tick(ctx)

			So(report.ID, ShouldNotBeEmpty)
			So(report.Fetched, ShouldEqual, 2)
			So(report.Announced, ShouldHaveLength, 1)
			So(report.Errors, ShouldBeEmpty)
			So(f.notifier.calls, ShouldHaveLength, 1)
			So(f.store.appended[len(f.store.appended)-1].Time, ShouldEqual, 31.9)
			So(f.svc.Records()["SP_1"].Time, ShouldEqual, 31.9)
			So(f.weekly.calls, ShouldEqual, 1)
			So(f.heartbeat.pushes, ShouldEqual, 1)

			stats := f.svc.GetStats()
			So(stats["ticks"], ShouldEqual, 1)
			So(stats["records_announced"], ShouldEqual, 1)
			So(stats["last_tick_id"], ShouldEqual, report.ID)
		})

		Convey("Nothing is announced without an improvement", func() {
			f.backend.fetched = []model.Score{sc("SP_1", 32.5)}
			report := f.svc.Tick(ctx)

			So(report.Announced, ShouldBeEmpty)
			So(f.notifier.calls, ShouldBeEmpty)
		})

		Convey("Fetch failures are transient and the tick continues", func() {
			f.backend.failures = map[string]error{"SP_2": errors.New("timeout")}
			f.backend.fetched = []model.Score{sc("SP_1", 30)}
			report := f.svc.Tick(ctx)

			So(report.Announced, ShouldHaveLength, 1)
			So(report.Errors, ShouldHaveLength, 1)
			So(service.KindOf(report.Errors[0]), ShouldEqual, service.KindTransient)
			So(f.weekly.calls, ShouldEqual, 1)
		})

		Convey("Unknown levels are reported as inconsistencies", func() {
			f.backend.fetched = []model.Score{sc("SP_9", 1)}
			report := f.svc.Tick(ctx)

			So(report.Announced, ShouldBeEmpty)
			So(report.Errors, ShouldHaveLength, 1)
			So(service.KindOf(report.Errors[0]), ShouldEqual, service.KindInconsistency)
		})

		Convey("A failed write still announces the record", func() {
			f.store.appendErr = errors.New("disk full")
			f.backend.fetched = []model.Score{sc("SP_2", 49)}
			report := f.svc.Tick(ctx)

			So(report.Announced, ShouldHaveLength, 1)
			So(f.notifier.calls, ShouldHaveLength, 1)
			So(f.svc.Records()["SP_2"].Time, ShouldEqual, 49)

			So(report.Errors, ShouldHaveLength, 1)
			So(service.KindOf(report.Errors[0]), ShouldEqual, service.KindPersistence)
			So(errors.Is(report.Errors[0], record.ErrPersist), ShouldBeTrue)
			So(report.Errors[0].Error(), ShouldContainSubstring, "persist SP_2")
			So(service.IsFatal(report.Errors[0]), ShouldBeFalse)
		})

		Convey("A weekly cursor write failure is a persistence error", func() {
			f.weekly.err = weekly.ErrPersist
			report := f.svc.Tick(ctx)

			So(report.Errors, ShouldHaveLength, 1)
			So(service.KindOf(report.Errors[0]), ShouldEqual, service.KindPersistence)
			So(service.IsFatal(report.Errors[0]), ShouldBeFalse)
		})

		Convey("A failed heartbeat is reported", func() {
			f.heartbeat.err = errors.New("down")
			report := f.svc.Tick(ctx)

			So(report.Errors, ShouldHaveLength, 1)
			So(report.Errors[0].Error(), ShouldContainSubstring, "heartbeat")
		})
	})
}

func TestKind(t *testing.T) {
	Convey("Kinds have names and unclassified errors have none", t, func() {
		So(service.KindFatal.String(), ShouldEqual, "fatal")
		So(service.KindOf(errors.New("plain")), ShouldEqual, service.Kind(0))
		So(service.Kind(0).String(), ShouldEqual, "unknown")

		err := &service.Error{Kind: service.KindPersistence, Op: "append", Err: context.DeadlineExceeded}
		So(errors.Is(err, context.DeadlineExceeded), ShouldBeTrue)
		So(err.Error(), ShouldEqual, "append (persistence): context deadline exceeded")
	})

	Convey("Records is a copy", t, func() {
		f := newFixture()
		So(f.svc.Seed(context.Background()), ShouldBeNil)
		r := f.svc.Records()
		r["SP_1"] = sc("SP_1", 1)
		So(f.svc.Records()["SP_1"].Time, ShouldEqual, 32.5)
	})
}
