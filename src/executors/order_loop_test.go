package executors

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"c2cexecutor/src/connectors"
	"c2cexecutor/src/model"
	"c2cexecutor/src/notify"
)

// fakeClient stands in for the exchange client on both loops.
type fakeClient struct {
	mu sync.Mutex

	offers    []json.RawMessage
	total     int
	searchErr error
	searches  int

	placeFn func(req connectors.PlaceOrderRequest) (*connectors.OrderConfirmation, error)
	placed  []connectors.PlaceOrderRequest
}

func (f *fakeClient) SearchAds(_ context.Context, _, _ string, _, _ int, _ string) ([]json.RawMessage, int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.searches++
	if f.searchErr != nil {
		return nil, 0, f.searchErr
	}
	return f.offers, f.total, nil
}

func (f *fakeClient) PlaceOrder(_ context.Context, req connectors.PlaceOrderRequest) (*connectors.OrderConfirmation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.placed = append(f.placed, req)
	if f.placeFn != nil {
		return f.placeFn(req)
	}
	return &connectors.OrderConfirmation{
		OrderNumber: "order-1",
		Raw:         json.RawMessage(`{"orderNumber":"order-1"}`),
	}, nil
}

func (f *fakeClient) searchCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.searches
}

// fakeAdStore stands in for the ad repository.
type fakeAdStore struct {
	mu sync.Mutex

	ads      []model.Ad
	queryErr error

	upserted  int
	upsertErr error

	recorded  map[string]string
	recordErr error
}

// The store fakes honor their context the way gorm does: a cancelled
// context fails the call before any work happens.
func (f *fakeAdStore) UpsertBatch(ctx context.Context, offers []json.RawMessage) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.upsertErr != nil {
		return 0, f.upsertErr
	}
	f.upserted += len(offers)
	return 0, nil
}

func (f *fakeAdStore) QueryMatching(ctx context.Context, _ model.ExtraFilter) ([]model.Ad, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.queryErr != nil {
		return nil, f.queryErr
	}
	out := make([]model.Ad, len(f.ads))
	copy(out, f.ads)
	return out, nil
}

func (f *fakeAdStore) RecordResponse(ctx context.Context, advNo, code, _ string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.recordErr != nil {
		return f.recordErr
	}
	if f.recorded == nil {
		f.recorded = map[string]string{}
	}
	f.recorded[advNo] = code
	return nil
}

// fakeAttempts stands in for the attempt audit log.
type fakeAttempts struct {
	mu   sync.Mutex
	rows []model.OrderAttempt
	err  error
}

func (f *fakeAttempts) Create(ctx context.Context, attempt *model.OrderAttempt) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.rows = append(f.rows, *attempt)
	return nil
}

// fakeNotifier records delivered notifications.
type fakeNotifier struct {
	mu    sync.Mutex
	kinds []notify.Kind
	texts []string
}

func (f *fakeNotifier) Notify(_ context.Context, kind notify.Kind, text string, _ interface{}) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.kinds = append(f.kinds, kind)
	f.texts = append(f.texts, text)
	return nil
}

func (f *fakeNotifier) kindCount(kind notify.Kind) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, k := range f.kinds {
		if k == kind {
			n++
		}
	}
	return n
}

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func makeAd(advNo, price, minAmt, maxAmt, surplus string) model.Ad {
	return model.Ad{
		AdvNo:                advNo,
		TradeType:            model.TradeTypeBuy,
		Asset:                "USDT",
		FiatUnit:             "INR",
		Price:                dec(price),
		SurplusAmount:        dec(surplus),
		MinSingleTransAmount: dec(minAmt),
		MaxSingleTransAmount: dec(maxAmt),
	}
}

func testSession(budget string, orders int) *model.TradeConfig {
	cfg := model.DefaultTradeConfig()
	cfg.TotalAmountToInvest = dec(budget)
	cfg.NoOfOrders = orders
	return &cfg
}

func newTestExecutor(client *fakeClient, ads *fakeAdStore, attempts *fakeAttempts, n *fakeNotifier, cfg *model.TradeConfig) *OrderExecutor {
	return &OrderExecutor{
		client:       client,
		ads:          ads,
		attempts:     attempts,
		notifier:     n,
		session:      func() *model.TradeConfig { return cfg },
		state:        NewExecutionState(cfg.TotalAmountToInvest),
		interval:     time.Millisecond,
		orderSpacing: time.Millisecond,
	}
}

func TestCycleStopsAtOrderCount(t *testing.T) {
	client := &fakeClient{}
	ads := &fakeAdStore{ads: []model.Ad{
		makeAd("adv-1", "80", "100", "1000", "50"),
		makeAd("adv-2", "81", "100", "1000", "50"),
	}}
	attempts := &fakeAttempts{}
	n := &fakeNotifier{}

	e := newTestExecutor(client, ads, attempts, n, testSession("10000", 1))

	require.NoError(t, e.cycle(context.Background()))

	assert.Len(t, client.placed, 1)
	assert.Equal(t, 1, e.state.OrdersPlaced)
	require.Len(t, attempts.rows, 1)
	assert.Equal(t, model.OrderAttemptStatusPlaced, attempts.rows[0].Status)
	assert.Equal(t, "order-1", attempts.rows[0].OrderNumber)
	assert.Equal(t, 1, n.kindCount(notify.KindSuccess))
}

func TestCycleClampsFinalOrderToBudget(t *testing.T) {
	client := &fakeClient{}
	// Both offers size to 100 fiat: surplus 50 * price 10 > max 100.
	ads := &fakeAdStore{ads: []model.Ad{
		makeAd("adv-1", "10", "10", "100", "50"),
		makeAd("adv-2", "10", "10", "100", "50"),
	}}
	attempts := &fakeAttempts{}
	n := &fakeNotifier{}

	e := newTestExecutor(client, ads, attempts, n, testSession("150", 5))

	require.NoError(t, e.cycle(context.Background()))

	require.Len(t, client.placed, 2)
	assert.Equal(t, "100", client.placed[0].Amount.String())
	assert.Equal(t, "50", client.placed[1].Amount.String())
	assert.True(t, e.state.RemainingBudget.IsZero())
	assert.Equal(t, 2, e.state.OrdersPlaced)
}

func TestCycleSkipsOfferBelowCounterpartyMinimum(t *testing.T) {
	client := &fakeClient{}
	// Remaining budget 50 after the first order; second offer requires 80.
	ads := &fakeAdStore{ads: []model.Ad{
		makeAd("adv-1", "10", "10", "100", "50"),
		makeAd("adv-2", "10", "80", "100", "50"),
	}}
	attempts := &fakeAttempts{}
	n := &fakeNotifier{}

	e := newTestExecutor(client, ads, attempts, n, testSession("150", 5))

	require.NoError(t, e.cycle(context.Background()))

	require.Len(t, client.placed, 1)
	assert.Equal(t, "adv-1", client.placed[0].AdvOrderNumber)
	assert.Equal(t, 1, n.kindCount(notify.KindInfo))
	assert.Equal(t, "50", e.state.RemainingBudget.String())
}

func TestCycleRecordsRejectionAndContinues(t *testing.T) {
	client := &fakeClient{
		placeFn: func(req connectors.PlaceOrderRequest) (*connectors.OrderConfirmation, error) {
			if req.AdvOrderNumber == "adv-1" {
				return nil, &connectors.APIError{Code: "83999", Message: "The price has been changed."}
			}
			return &connectors.OrderConfirmation{OrderNumber: "order-2", Raw: json.RawMessage(`{}`)}, nil
		},
	}
	ads := &fakeAdStore{ads: []model.Ad{
		makeAd("adv-1", "80", "100", "1000", "50"),
		makeAd("adv-2", "81", "100", "1000", "50"),
	}}
	attempts := &fakeAttempts{}
	n := &fakeNotifier{}

	e := newTestExecutor(client, ads, attempts, n, testSession("10000", 1))

	require.NoError(t, e.cycle(context.Background()))

	assert.Equal(t, "83999", ads.recorded["adv-1"])
	require.Len(t, attempts.rows, 2)
	assert.Equal(t, model.OrderAttemptStatusRejected, attempts.rows[0].Status)
	assert.Equal(t, "83999", attempts.rows[0].ErrorCode)
	assert.Equal(t, model.OrderAttemptStatusPlaced, attempts.rows[1].Status)
	assert.Equal(t, 1, e.state.OrdersPlaced)
	assert.Equal(t, 1, n.kindCount(notify.KindFailure))
}

func TestCycleRecordsNetworkErrorCode(t *testing.T) {
	client := &fakeClient{
		placeFn: func(connectors.PlaceOrderRequest) (*connectors.OrderConfirmation, error) {
			return nil, errors.New("dial tcp: connection refused")
		},
	}
	ads := &fakeAdStore{ads: []model.Ad{
		makeAd("adv-1", "80", "100", "1000", "50"),
	}}
	attempts := &fakeAttempts{}
	n := &fakeNotifier{}

	e := newTestExecutor(client, ads, attempts, n, testSession("10000", 1))

	require.NoError(t, e.cycle(context.Background()))

	assert.Equal(t, networkErrorCode, ads.recorded["adv-1"])
	require.Len(t, attempts.rows, 1)
	assert.Equal(t, model.OrderAttemptStatusError, attempts.rows[0].Status)
	assert.Equal(t, 0, e.state.OrdersPlaced)
}

func TestCycleSkipsDegenerateOffer(t *testing.T) {
	client := &fakeClient{}
	ads := &fakeAdStore{ads: []model.Ad{
		makeAd("adv-1", "0", "100", "1000", "50"),
	}}
	attempts := &fakeAttempts{}
	n := &fakeNotifier{}

	e := newTestExecutor(client, ads, attempts, n, testSession("10000", 1))

	require.NoError(t, e.cycle(context.Background()))
	assert.Empty(t, client.placed)
	assert.Empty(t, attempts.rows)
}

func TestCycleStorageFailuresAreFatal(t *testing.T) {
	t.Run("query", func(t *testing.T) {
		ads := &fakeAdStore{queryErr: errors.New("db down")}
		e := newTestExecutor(&fakeClient{}, ads, &fakeAttempts{}, &fakeNotifier{}, testSession("10000", 1))

		err := e.cycle(context.Background())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "ad cache read failed")
	})

	t.Run("record response", func(t *testing.T) {
		client := &fakeClient{
			placeFn: func(connectors.PlaceOrderRequest) (*connectors.OrderConfirmation, error) {
				return nil, &connectors.APIError{Code: "83999", Message: "gone"}
			},
		}
		ads := &fakeAdStore{
			ads:       []model.Ad{makeAd("adv-1", "80", "100", "1000", "50")},
			recordErr: errors.New("db down"),
		}
		e := newTestExecutor(client, ads, &fakeAttempts{}, &fakeNotifier{}, testSession("10000", 1))

		err := e.cycle(context.Background())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "ad cache write failed")
	})

	t.Run("attempt log", func(t *testing.T) {
		ads := &fakeAdStore{ads: []model.Ad{makeAd("adv-1", "80", "100", "1000", "50")}}
		attempts := &fakeAttempts{err: errors.New("db down")}
		e := newTestExecutor(&fakeClient{}, ads, attempts, &fakeNotifier{}, testSession("10000", 1))

		err := e.cycle(context.Background())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "attempt log write failed")
	})
}

// A stop landing while a submission is in flight lets the submission finish
// and its outcome be recorded; it must never surface as a storage failure.
func TestStopMidSubmissionStillRecordsOutcome(t *testing.T) {
	t.Run("rejection", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		client := &fakeClient{
			placeFn: func(connectors.PlaceOrderRequest) (*connectors.OrderConfirmation, error) {
				cancel()
				return nil, &connectors.APIError{Code: "83420", Message: "The price has been changed."}
			},
		}
		ads := &fakeAdStore{ads: []model.Ad{
			makeAd("adv-1", "80", "100", "1000", "50"),
		}}
		attempts := &fakeAttempts{}
		n := &fakeNotifier{}

		e := newTestExecutor(client, ads, attempts, n, testSession("10000", 1))

		require.NoError(t, e.cycle(ctx))

		assert.Equal(t, "83420", ads.recorded["adv-1"])
		require.Len(t, attempts.rows, 1)
		assert.Equal(t, model.OrderAttemptStatusRejected, attempts.rows[0].Status)
		assert.Equal(t, 1, n.kindCount(notify.KindFailure))
	})

	t.Run("success", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		client := &fakeClient{
			placeFn: func(connectors.PlaceOrderRequest) (*connectors.OrderConfirmation, error) {
				cancel()
				return &connectors.OrderConfirmation{OrderNumber: "order-1", Raw: json.RawMessage(`{}`)}, nil
			},
		}
		ads := &fakeAdStore{ads: []model.Ad{
			makeAd("adv-1", "80", "100", "1000", "50"),
		}}
		attempts := &fakeAttempts{}
		n := &fakeNotifier{}

		e := newTestExecutor(client, ads, attempts, n, testSession("10000", 1))

		require.NoError(t, e.cycle(ctx))

		require.Len(t, attempts.rows, 1)
		assert.Equal(t, model.OrderAttemptStatusPlaced, attempts.rows[0].Status)
		assert.Equal(t, "order-1", attempts.rows[0].OrderNumber)
		assert.Equal(t, 1, e.state.OrdersPlaced)
		assert.Equal(t, 1, n.kindCount(notify.KindSuccess))
	})
}

// A cancellation landing between the loop-top check and the cache read is a
// normal stop, not a storage failure.
func TestCycleCancelledQueryIsNotFatal(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	ads := &fakeAdStore{ads: []model.Ad{
		makeAd("adv-1", "80", "100", "1000", "50"),
	}}
	e := newTestExecutor(&fakeClient{}, ads, &fakeAttempts{}, &fakeNotifier{}, testSession("10000", 1))

	assert.NoError(t, e.cycle(ctx))
}

func TestRunStopsPromptlyOnCancel(t *testing.T) {
	client := &fakeClient{}
	ads := &fakeAdStore{}
	e := newTestExecutor(client, ads, &fakeAttempts{}, &fakeNotifier{}, testSession("10000", 1))
	e.interval = 5 * time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- e.Run(ctx) }()

	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("order loop did not stop after cancellation")
	}
}

func TestDescribeOfferIncludesSpotPremium(t *testing.T) {
	e := &OrderExecutor{spot: staticSpot{price: dec("80")}}
	ad := makeAd("adv-1", "88", "100", "1000", "50")

	text := e.describeOffer(&ad, dec("1000"))
	assert.Contains(t, text, "Premium vs spot: 10.00%")
}

type staticSpot struct{ price decimal.Decimal }

func (s staticSpot) LastPrice() (decimal.Decimal, bool) { return s.price, true }
