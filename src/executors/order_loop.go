package executors

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	logger "github.com/sirupsen/logrus"

	"c2cexecutor/src/connectors"
	"c2cexecutor/src/model"
	"c2cexecutor/src/notify"
	"c2cexecutor/src/sizing"
)

type adMatcher interface {
	QueryMatching(ctx context.Context, filter model.ExtraFilter) ([]model.Ad, error)
	RecordResponse(ctx context.Context, advNo, code, message string) error
}

type orderPlacer interface {
	PlaceOrder(ctx context.Context, req connectors.PlaceOrderRequest) (*connectors.OrderConfirmation, error)
}

type attemptWriter interface {
	Create(ctx context.Context, attempt *model.OrderAttempt) error
}

type spotPricer interface {
	LastPrice() (decimal.Decimal, bool)
}

// networkErrorCode marks offers whose submission failed before the exchange
// could answer. Like any recorded code it is cleared when the offer's payload
// changes.
const networkErrorCode = "NETWORK_ERROR"

// OrderExecutor is the periodic task that turns cached ads into orders.
// Candidates are processed freshest-first; budget and order-count ceilings
// are re-checked after every individual submission.
type OrderExecutor struct {
	client   orderPlacer
	ads      adMatcher
	attempts attemptWriter
	notifier notifier
	spot     spotPricer // optional, nil when no reference stream is running

	session func() *model.TradeConfig
	state   *ExecutionState

	interval     time.Duration
	orderSpacing time.Duration
	onCycle      func(time.Time)
}

// Run executes order cycles until the context is cancelled. Counters persist
// across cycles within the run. A non-nil return means the backing store
// failed and the whole run must stop.
func (e *OrderExecutor) Run(ctx context.Context) error {
	if err := e.cycle(ctx); err != nil {
		return err
	}

	ticker := time.NewTicker(e.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Info("order loop stopped")
			return nil

		case <-ticker.C:
			if ctx.Err() != nil {
				logger.Info("order loop stopped")
				return nil
			}
			if err := e.cycle(ctx); err != nil {
				return err
			}
		}
	}
}

func (e *OrderExecutor) cycle(ctx context.Context) error {
	defer func() {
		if e.onCycle != nil {
			e.onCycle(time.Now())
		}
	}()

	cfg := e.session()

	candidates, err := e.ads.QueryMatching(ctx, cfg.ExtraFilter)
	if err != nil {
		if ctx.Err() != nil {
			return nil
		}
		return fmt.Errorf("ad cache read failed: %w", err)
	}

	logger.WithFields(map[string]interface{}{
		"candidates":       len(candidates),
		"orders_placed":    e.state.OrdersPlaced,
		"remaining_budget": e.state.RemainingBudget.String(),
	}).Info("order cycle started")

	for i := range candidates {
		if ctx.Err() != nil {
			return nil
		}

		ad := candidates[i]

		amount, err := sizing.ComputeOrderAmount(
			ad.Price,
			ad.MinSingleTransAmount,
			ad.MaxSingleTransAmount,
			ad.SurplusAmount,
		)
		if err != nil {
			logger.WithFields(map[string]interface{}{
				"adv_no": ad.AdvNo,
				"price":  ad.Price.String(),
			}).WithError(err).Warn("degenerate offer, skipping")
			continue
		}

		if amount.GreaterThan(e.state.RemainingBudget) {
			if e.state.RemainingBudget.GreaterThan(ad.MinSingleTransAmount) {
				amount = e.state.RemainingBudget
			} else {
				logger.WithFields(map[string]interface{}{
					"adv_no":           ad.AdvNo,
					"remaining_budget": e.state.RemainingBudget.String(),
					"min_trans_amount": ad.MinSingleTransAmount.String(),
				}).Info("remaining budget below counterparty minimum, skipping offer")

				e.notify(ctx, notify.KindInfo,
					fmt.Sprintf("🛑 Inappropriate Amount 🛑\n\n%s", e.describeOffer(&ad, amount)), nil)
				continue
			}
		}

		done, err := e.submit(ctx, cfg, &ad, amount)
		if err != nil {
			return err
		}

		if done ||
			e.state.OrdersPlaced >= cfg.NoOfOrders ||
			e.state.AmountSpent.GreaterThan(cfg.TotalAmountToInvest) {
			logger.WithFields(map[string]interface{}{
				"orders_placed": e.state.OrdersPlaced,
				"amount_spent":  e.state.AmountSpent.String(),
			}).Info("order limit reached, stopping further orders this run")
			break
		}

		if i < len(candidates)-1 {
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(e.orderSpacing):
			}
		}
	}

	return nil
}

// submit places one order and settles its bookkeeping. The returned bool is
// true when the session limits are exhausted. A non-nil error is a storage
// failure; submission failures are absorbed here.
func (e *OrderExecutor) submit(
	ctx context.Context,
	cfg *model.TradeConfig,
	ad *model.Ad,
	amount decimal.Decimal,
) (bool, error) {

	req := connectors.PlaceOrderRequest{
		AdvOrderNumber: ad.AdvNo,
		Asset:          cfg.Asset,
		FiatUnit:       cfg.Fiat,
		Amount:         amount,
		MatchPrice:     ad.Price,
		TradeType:      cfg.TradeType,
	}

	confirmation, err := e.client.PlaceOrder(ctx, req)

	// Stop() may have cancelled the run while the submission was in flight.
	// Its outcome is still recorded before the loop observes cancellation,
	// so the bookkeeping below must not die with the run context.
	bg := context.WithoutCancel(ctx)

	if err != nil {
		code, message := networkErrorCode, err.Error()
		status := model.OrderAttemptStatusError

		var apiErr *connectors.APIError
		if errors.As(err, &apiErr) {
			code, message = apiErr.Code, apiErr.Message
			if message == "" {
				message = connectors.GetErrorMsg(code)
			}
			status = model.OrderAttemptStatusRejected
		}

		logger.WithFields(map[string]interface{}{
			"adv_no":  ad.AdvNo,
			"code":    code,
			"message": message,
		}).Error("order submission failed")

		if err := e.ads.RecordResponse(bg, ad.AdvNo, code, message); err != nil {
			return false, fmt.Errorf("ad cache write failed: %w", err)
		}

		if err := e.attempts.Create(bg, &model.OrderAttempt{
			SessionID:    e.state.SessionID,
			AdvNo:        ad.AdvNo,
			Asset:        cfg.Asset,
			FiatUnit:     cfg.Fiat,
			TradeType:    cfg.TradeType,
			Amount:       amount,
			MatchPrice:   ad.Price,
			Status:       status,
			ErrorCode:    code,
			ErrorMessage: message,
		}); err != nil {
			return false, fmt.Errorf("attempt log write failed: %w", err)
		}

		// Forward the original request context for audit/replay.
		e.notify(bg, notify.KindFailure,
			fmt.Sprintf("%s\nERR CODE: %s\nERR MSG: %s", e.describeOffer(ad, amount), code, message),
			map[string]interface{}{
				"advOrderNumber": ad.AdvNo,
				"asset":          cfg.Asset,
				"fiatUnit":       cfg.Fiat,
				"matchPrice":     ad.Price.String(),
				"totalAmount":    amount.String(),
				"tradeType":      cfg.TradeType,
				"buyType":        "BY_MONEY",
				"origin":         "MAKE_TAKE",
			})

		return false, nil
	}

	e.state.OrdersPlaced++
	e.state.AmountSpent = e.state.AmountSpent.Add(amount)
	e.state.RemainingBudget = e.state.RemainingBudget.Sub(amount)

	logger.WithFields(map[string]interface{}{
		"adv_no":           ad.AdvNo,
		"order_number":     confirmation.OrderNumber,
		"amount":           amount.String(),
		"orders_placed":    e.state.OrdersPlaced,
		"remaining_budget": e.state.RemainingBudget.String(),
	}).Info("order placed")

	if err := e.attempts.Create(bg, &model.OrderAttempt{
		SessionID:   e.state.SessionID,
		AdvNo:       ad.AdvNo,
		Asset:       cfg.Asset,
		FiatUnit:    cfg.Fiat,
		TradeType:   cfg.TradeType,
		Amount:      amount,
		MatchPrice:  ad.Price,
		Status:      model.OrderAttemptStatusPlaced,
		OrderNumber: confirmation.OrderNumber,
	}); err != nil {
		return false, fmt.Errorf("attempt log write failed: %w", err)
	}

	e.notify(bg, notify.KindSuccess, e.describeOffer(ad, amount), confirmation.Raw)

	exhausted := e.state.OrdersPlaced >= cfg.NoOfOrders ||
		e.state.AmountSpent.GreaterThan(cfg.TotalAmountToInvest)
	return exhausted, nil
}

func (e *OrderExecutor) describeOffer(ad *model.Ad, amount decimal.Decimal) string {
	text := fmt.Sprintf(
		"📄 Order Number: %s\n💰 Match Price: %s\n📦 Surplus Amount: %s\n🔢 Transaction Limits: %s - %s\n💴 Total Amount: %s",
		ad.AdvNo,
		ad.Price.StringFixed(2),
		ad.SurplusAmount.StringFixed(2),
		ad.MinSingleTransAmount.StringFixed(2),
		ad.MaxSingleTransAmount.StringFixed(2),
		amount.String(),
	)

	if e.spot != nil {
		if spot, ok := e.spot.LastPrice(); ok && spot.IsPositive() {
			premium := ad.Price.Sub(spot).Div(spot).Mul(decimal.NewFromInt(100))
			text += fmt.Sprintf("\n📈 Premium vs spot: %s%%", premium.StringFixed(2))
		}
	}

	return text
}

func (e *OrderExecutor) notify(ctx context.Context, kind notify.Kind, text string, structuredContext interface{}) {
	if err := e.notifier.Notify(ctx, kind, text, structuredContext); err != nil {
		logger.WithError(err).Warn("could not deliver order notification")
	}
}
