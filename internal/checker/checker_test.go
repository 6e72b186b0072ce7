package checker

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/samims/hwbot/internal/clock"
	appErr "github.com/samims/hwbot/internal/errors"
	"github.com/samims/hwbot/pkg/tracing"
)

type mockFetcher struct {
	mock.Mock
}

func (m *mockFetcher) Fetch(ctx context.Context, fromDate int64) (interface{}, error) {
	args := m.Called(ctx, fromDate)
	return args.Get(0), args.Error(1)
}

type mockNotifier struct {
	mock.Mock
}

func (m *mockNotifier) Notify(ctx context.Context, text string) error {
	args := m.Called(ctx, text)
	return args.Error(0)
}

var epoch = time.Unix(1000, 0)

func payload(t *testing.T, body string) interface{} {
	t.Helper()
	dec := json.NewDecoder(strings.NewReader(body))
	dec.UseNumber()
	var v interface{}
	require.NoError(t, dec.Decode(&v))
	return v
}

func newChecker(f Fetcher, n Notifier, c clock.Clock) *HomeworkChecker {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewHomeworkChecker(f, n, c, 10*time.Minute, logger, tracing.NewTracer(tracing.GetTracer("test")))
}

func TestNewHomeworkCheckerStartsAtNow(t *testing.T) {
	hc := newChecker(&mockFetcher{}, &mockNotifier{}, clock.NewFake(epoch))
	assert.Equal(t, int64(1000), hc.Cursor())
	assert.True(t, hc.LastCycle().IsZero())
}

func TestRunCycleApprovedHomework(t *testing.T) {
	fetcher := &mockFetcher{}
	notifier := &mockNotifier{}
	fetcher.On("Fetch", mock.Anything, int64(1000)).
		Return(payload(t, `{"homeworks":[{"homework_name":"hw1","status":"approved"}],"current_date":2000}`), nil).Once()
	notifier.On("Notify", mock.Anything, `Изменился статус проверки работы "hw1". Review done: No points to fix`).
		Return(nil).Once()

	hc := newChecker(fetcher, notifier, clock.NewFake(epoch))

	require.NoError(t, hc.RunCycle(context.Background()))
	assert.Equal(t, int64(2000), hc.Cursor())
	assert.False(t, hc.LastCycle().IsZero())
	fetcher.AssertExpectations(t)
	notifier.AssertExpectations(t)
}

func TestRunCycleOnlyLatestHomeworkReported(t *testing.T) {
	fetcher := &mockFetcher{}
	notifier := &mockNotifier{}
	fetcher.On("Fetch", mock.Anything, int64(1000)).
		Return(payload(t, `{"homeworks":[
			{"homework_name":"new","status":"rejected"},
			{"homework_name":"old","status":"approved"}
		],"current_date":1500}`), nil)
	notifier.On("Notify", mock.Anything, `Изменился статус проверки работы "new". Review done: There are some points to fix.`).
		Return(nil).Once()

	hc := newChecker(fetcher, notifier, clock.NewFake(epoch))

	require.NoError(t, hc.RunCycle(context.Background()))
	notifier.AssertNumberOfCalls(t, "Notify", 1)
}

func TestRunCycleEmptyHomeworks(t *testing.T) {
	fetcher := &mockFetcher{}
	notifier := &mockNotifier{}
	fetcher.On("Fetch", mock.Anything, int64(1000)).
		Return(payload(t, `{"homeworks":[],"current_date":3000}`), nil)

	hc := newChecker(fetcher, notifier, clock.NewFake(epoch))

	require.NoError(t, hc.RunCycle(context.Background()))
	assert.Equal(t, int64(3000), hc.Cursor())
	notifier.AssertNotCalled(t, "Notify", mock.Anything, mock.Anything)
}

func TestRunCycleDomainErrorsAreNotReported(t *testing.T) {
	tests := []struct {
		name      string
		setup     func(f *mockFetcher, n *mockNotifier)
		wantErr   error
		wantCalls int
	}{
		{
			name: "server unavailable",
			setup: func(f *mockFetcher, n *mockNotifier) {
				f.On("Fetch", mock.Anything, int64(1000)).
					Return(nil, appErr.NewServerUnavailable("unexpected status %d", 500))
			},
			wantErr: appErr.ErrServerUnavailable,
		},
		{
			name: "verdict not delivered",
			setup: func(f *mockFetcher, n *mockNotifier) {
				f.On("Fetch", mock.Anything, int64(1000)).
					Return(payload(t, `{"homeworks":[{"homework_name":"hw1","status":"reviewing"}],"current_date":2000}`), nil)
				n.On("Notify", mock.Anything, mock.Anything).
					Return(appErr.NewSendFailed("chat not found"))
			},
			wantErr:   appErr.ErrSendFailed,
			wantCalls: 1,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fetcher := &mockFetcher{}
			notifier := &mockNotifier{}
			tt.setup(fetcher, notifier)

			hc := newChecker(fetcher, notifier, clock.NewFake(epoch))

			err := hc.RunCycle(context.Background())
			require.ErrorIs(t, err, tt.wantErr)
			assert.Equal(t, appErr.KindDomain, appErr.Classify(err))
			notifier.AssertNumberOfCalls(t, "Notify", tt.wantCalls)
		})
	}
}

func TestRunCycleUnexpectedErrorsAreReported(t *testing.T) {
	tests := []struct {
		name       string
		body       interface{}
		fetchErr   error
		wantErr    error
		wantCursor int64
	}{
		{
			name:       "unknown status",
			body:       payload(t, `{"homeworks":[{"homework_name":"hw1","status":"cancelled"}],"current_date":2000}`),
			wantErr:    appErr.ErrUnknownStatus,
			wantCursor: 2000,
		},
		{
			name:       "homework name missing",
			body:       payload(t, `{"homeworks":[{"status":"approved"}],"current_date":2000}`),
			wantErr:    appErr.ErrMissingKey,
			wantCursor: 2000,
		},
		{
			name:       "body is a list",
			body:       payload(t, `[{"homework_name":"hw1"}]`),
			wantErr:    appErr.ErrTypeMismatch,
			wantCursor: 1000,
		},
		{
			name:       "homeworks not a list",
			body:       payload(t, `{"homeworks":"none","current_date":2000}`),
			wantErr:    appErr.ErrTypeMismatch,
			wantCursor: 1000,
		},
		{
			name:       "current date missing",
			body:       payload(t, `{"homeworks":[]}`),
			wantErr:    appErr.ErrMissingKey,
			wantCursor: 1000,
		},
		{
			name:       "body not json",
			fetchErr:   appErr.NewTypeMismatch("response body is not JSON"),
			wantErr:    appErr.ErrTypeMismatch,
			wantCursor: 1000,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fetcher := &mockFetcher{}
			notifier := &mockNotifier{}
			fetcher.On("Fetch", mock.Anything, int64(1000)).Return(tt.body, tt.fetchErr)
			notifier.On("Notify", mock.Anything, mock.MatchedBy(func(text string) bool {
				return strings.HasPrefix(text, "Неизвестный сбой в работе программы: ")
			})).Return(nil).Once()

			hc := newChecker(fetcher, notifier, clock.NewFake(epoch))

			err := hc.RunCycle(context.Background())
			require.ErrorIs(t, err, tt.wantErr)
			assert.Equal(t, appErr.KindUnexpected, appErr.Classify(err))
			assert.Equal(t, tt.wantCursor, hc.Cursor())
			notifier.AssertExpectations(t)
		})
	}
}

func TestRunCycleFailureReportErrorIsSwallowed(t *testing.T) {
	fetcher := &mockFetcher{}
	notifier := &mockNotifier{}
	fetcher.On("Fetch", mock.Anything, int64(1000)).
		Return(payload(t, `{"homeworks":[{"homework_name":"hw1","status":"lost"}],"current_date":2000}`), nil)
	notifier.On("Notify", mock.Anything, "Неизвестный сбой в работе программы: unknown homework status: lost").
		Return(appErr.NewSendFailed("telegram down")).Once()

	hc := newChecker(fetcher, notifier, clock.NewFake(epoch))

	err := hc.RunCycle(context.Background())
	require.ErrorIs(t, err, appErr.ErrUnknownStatus)
	assert.NotErrorIs(t, err, appErr.ErrSendFailed)
	notifier.AssertExpectations(t)
}

func TestRunCycleRecoversPanic(t *testing.T) {
	fetcher := &mockFetcher{}
	notifier := &mockNotifier{}
	fetcher.On("Fetch", mock.Anything, int64(1000)).Run(func(mock.Arguments) {
		panic("nil map")
	}).Return(nil, nil)
	notifier.On("Notify", mock.Anything, mock.Anything).Return(nil).Once()

	hc := newChecker(fetcher, notifier, clock.NewFake(epoch))

	err := hc.RunCycle(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "nil map")
	assert.Equal(t, appErr.KindUnexpected, appErr.Classify(err))
}

func TestRunCycleSurvivesPanickingFailureReport(t *testing.T) {
	fetcher := &mockFetcher{}
	notifier := &mockNotifier{}
	fetcher.On("Fetch", mock.Anything, int64(1000)).
		Return(payload(t, `{"homeworks":[],"current_date":"soon"}`), nil)
	notifier.On("Notify", mock.Anything, mock.Anything).Run(func(mock.Arguments) {
		panic("closed channel")
	}).Return(nil).Once()

	hc := newChecker(fetcher, notifier, clock.NewFake(epoch))

	var err error
	assert.NotPanics(t, func() { err = hc.RunCycle(context.Background()) })
	require.ErrorIs(t, err, appErr.ErrTypeMismatch)
	assert.Equal(t, int64(1000), hc.Cursor())
	notifier.AssertExpectations(t)
}

func TestStartKeepsCadenceAcrossFailures(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	fetcher := &mockFetcher{}
	notifier := &mockNotifier{}
	fetcher.On("Fetch", mock.Anything, int64(1000)).
		Return(nil, appErr.NewServerUnavailable("connection refused")).Once()
	fetcher.On("Fetch", mock.Anything, int64(1000)).
		Return(payload(t, `{"homeworks":[],"current_date":1600}`), nil).Once()
	fetcher.On("Fetch", mock.Anything, int64(1600)).
		Return(payload(t, `{"homeworks":[{"homework_name":"hw1","status":"approved"}],"current_date":2200}`), nil).Once()
	fetcher.On("Fetch", mock.Anything, int64(2200)).Run(func(mock.Arguments) {
		cancel()
	}).Return(nil, context.Canceled).Once()
	notifier.On("Notify", mock.Anything, `Изменился статус проверки работы "hw1". Review done: No points to fix`).
		Return(nil).Once()

	fake := clock.NewFake(epoch)
	hc := newChecker(fetcher, notifier, fake)

	err := hc.Start(ctx)
	require.ErrorIs(t, err, context.Canceled)

	fetcher.AssertExpectations(t)
	notifier.AssertExpectations(t)
	assert.Equal(t, int64(2200), hc.Cursor())
	// the fourth wait is registered while shutdown is already in progress
	assert.Len(t, fake.Waits(), 4)
	for _, d := range fake.Waits() {
		assert.Equal(t, 10*time.Minute, d)
	}
}

func TestStartReturnsWhenContextAlreadyCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	fetcher := &mockFetcher{}
	notifier := &mockNotifier{}
	fetcher.On("Fetch", mock.Anything, int64(1000)).
		Return(nil, appErr.NewServerUnavailable("GET: %w", context.Canceled)).Once()

	hc := newChecker(fetcher, notifier, clock.NewFake(epoch))

	err := hc.Start(ctx)
	assert.True(t, errors.Is(err, context.Canceled))
	notifier.AssertNotCalled(t, "Notify", mock.Anything, mock.Anything)
}
