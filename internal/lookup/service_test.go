package lookup

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/goodtune/timeleak/internal/metrics"
	"github.com/goodtune/timeleak/internal/phone"
	"github.com/goodtune/timeleak/internal/storage"
	"github.com/goodtune/timeleak/internal/usage"
)

type fakeStore struct {
	mu      sync.Mutex
	records map[string]storage.UsageRecord
	err     error
	calls   []string
}

func (f *fakeStore) query(ctx context.Context, phoneNumber string) (*storage.UsageRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, phoneNumber)

	if f.err != nil {
		return nil, f.err
	}
	rec, ok := f.records[phoneNumber]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return &rec, nil
}

func newTestService(store *fakeStore) *Service {
	return NewService(store.query, Options{
		Transformer: usage.NewTransformer(usage.CategoryMap{
			"com.instagram": usage.CategorySocialMedia,
		}, time.UTC, ""),
		Backend: "fake",
	}, zerolog.Nop())
}

func TestLookup_Success(t *testing.T) {
	store := &fakeStore{records: map[string]storage.UsageRecord{
		"+15551234567": {
			PhoneNumber:         "+15551234567",
			Date:                "2024-03-09",
			TotalScreenTimeMs:   16_620_000,
			SocialMediaTimeMs:   7_800_000,
			EntertainmentTimeMs: 4_800_000,
			AppUsage:            storage.AppUsage{{Package: "com.instagram", Ms: 5_100_000}},
		},
	}}

	agg, err := newTestService(store).Lookup(context.Background(), "555-123-4567", "1")
	require.NoError(t, err)

	assert.Equal(t, []string{"+15551234567"}, store.calls)
	assert.Equal(t, "+15551234567", agg.PhoneNumber)
	assert.Equal(t, "March 9, 2024", agg.DisplayDate)
	assert.Equal(t, 277, agg.TotalScreenTimeMinutes)
	assert.Equal(t, 130, agg.CategoryBreakdown[usage.CategorySocialMedia])
	assert.Equal(t, 80, agg.CategoryBreakdown[usage.CategoryEntertainment])
	assert.Equal(t, 67, agg.CategoryBreakdown[usage.CategoryOther])
	require.Len(t, agg.Apps, 1)
	assert.Equal(t, usage.App{Name: "com.instagram", TimeSpentMinutes: 85, Category: usage.CategorySocialMedia}, agg.Apps[0])
}

func TestLookup_InvalidNumberNeverQueries(t *testing.T) {
	store := &fakeStore{}
	svc := newTestService(store)

	for _, input := range []string{"123", "", "not a number", "+"} {
		agg, err := svc.Lookup(context.Background(), input, "1")
		assert.Nil(t, agg)
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrInvalidPhoneNumber, "input %q", input)
		assert.ErrorIs(t, err, phone.ErrInvalidPhoneNumber, "input %q", input)

		var le *Error
		require.ErrorAs(t, err, &le)
		assert.Equal(t, StageValidating, le.Stage)
	}

	assert.Empty(t, store.calls)
}

func TestLookup_ImplausibleNumberNeverQueries(t *testing.T) {
	store := &fakeStore{}
	svc := newTestService(store)

	for _, input := range []string{"555-1234", "1234567", "000-000-0000", "0000000000"} {
		_, err := svc.Lookup(context.Background(), input, "1")
		assert.ErrorIs(t, err, ErrInvalidPhoneNumber, "input %q", input)
		assert.Equal(t, CodeInvalidPhoneNumber, CodeOf(err), "input %q", input)
	}

	assert.Empty(t, store.calls)
}

func TestLookup_NoData(t *testing.T) {
	store := &fakeStore{}

	agg, err := newTestService(store).Lookup(context.Background(), "5551234567", "1")
	assert.Nil(t, agg)
	assert.ErrorIs(t, err, ErrNoDataFound)
	assert.ErrorIs(t, err, storage.ErrNotFound)
	assert.NotErrorIs(t, err, ErrStoreUnavailable)
	assert.Equal(t, CodeNoDataFound, CodeOf(err))
	assert.Len(t, store.calls, 1)
}

func TestLookup_NilRecordIsNoData(t *testing.T) {
	svc := NewService(func(ctx context.Context, phoneNumber string) (*storage.UsageRecord, error) {
		return nil, nil
	}, Options{}, zerolog.Nop())

	_, err := svc.Lookup(context.Background(), "5551234567", "1")
	assert.ErrorIs(t, err, ErrNoDataFound)
}

func TestLookup_StoreUnavailable(t *testing.T) {
	cause := errors.New("rpc error: code = Unavailable")
	store := &fakeStore{err: fmt.Errorf("query usage: %w", cause)}

	agg, err := newTestService(store).Lookup(context.Background(), "5551234567", "1")
	assert.Nil(t, agg)
	assert.ErrorIs(t, err, ErrStoreUnavailable)
	assert.ErrorIs(t, err, cause)
	assert.NotErrorIs(t, err, ErrNoDataFound)

	var le *Error
	require.ErrorAs(t, err, &le)
	assert.Equal(t, StageQuerying, le.Stage)
	assert.Equal(t, CodeStoreUnavailable, le.Code)

	// One attempt, no retries.
	assert.Len(t, store.calls, 1)
}

func TestLookup_CancelledContext(t *testing.T) {
	svc := NewService(func(ctx context.Context, phoneNumber string) (*storage.UsageRecord, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	}, Options{}, zerolog.Nop())

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	_, err := svc.Lookup(ctx, "5551234567", "1")
	assert.ErrorIs(t, err, ErrStoreUnavailable)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestLookup_InconsistentRecord(t *testing.T) {
	store := &fakeStore{records: map[string]storage.UsageRecord{
		"+15551234567": {
			TotalScreenTimeMs: 600_000,
			SocialMediaTimeMs: 900_000,
		},
	}}
	before := testutil.ToFloat64(metrics.InconsistentRecords)

	agg, err := newTestService(store).Lookup(context.Background(), "5551234567", "1")
	require.NoError(t, err)

	assert.True(t, agg.Inconsistent)
	assert.Equal(t, -5, agg.CategoryBreakdown[usage.CategoryOther])
	assert.Equal(t, "+15551234567", agg.PhoneNumber)
	assert.Equal(t, before+1, testutil.ToFloat64(metrics.InconsistentRecords))
}

func TestLookup_CountsOutcomes(t *testing.T) {
	store := &fakeStore{}
	svc := newTestService(store)
	before := testutil.ToFloat64(metrics.LookupsTotal.WithLabelValues(string(CodeNoDataFound)))

	_, _ = svc.Lookup(context.Background(), "5551234567", "1")

	assert.Equal(t, before+1, testutil.ToFloat64(metrics.LookupsTotal.WithLabelValues(string(CodeNoDataFound))))
}

func TestCodeOfAndMessage(t *testing.T) {
	tests := []struct {
		err  error
		code Code
	}{
		{nil, CodeOK},
		{&Error{Stage: StageValidating, Code: CodeInvalidPhoneNumber}, CodeInvalidPhoneNumber},
		{fmt.Errorf("wrapped: %w", ErrNoDataFound), CodeNoDataFound},
		{errors.New("boom"), CodeStoreUnavailable},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.code, CodeOf(tt.err))
	}

	assert.Empty(t, Message(nil))
	assert.Contains(t, Message(&Error{Code: CodeInvalidPhoneNumber}), "valid phone number")
	assert.Contains(t, Message(&Error{Code: CodeNoDataFound}), "No screen time data")
}

func TestError_Message(t *testing.T) {
	err := &Error{Stage: StageQuerying, Code: CodeStoreUnavailable, Err: errors.New("dial tcp: refused")}
	assert.Equal(t, "lookup failed while querying: usage store unavailable: dial tcp: refused", err.Error())
}
