// Package sim implements the simulator step loop: the orchestrator
// that ties the market-data adapter, fill engine, order book, position
// machine, portfolio, strategy, and metric framework together one
// calendar day at a time.
//
// The single most important invariant here is ordering: within one
// step, fills from previously submitted orders are applied before the
// strategy runs; orders the strategy emits are submitted after fill
// application and first become fill-eligible on the next step. This
// prevents same-day lookahead.
package sim

import (
	"time"

	"github.com/kestrelquant/backtest/internal/config"
	"github.com/kestrelquant/backtest/internal/fillengine"
	"github.com/kestrelquant/backtest/internal/logger"
	"github.com/kestrelquant/backtest/internal/market"
	"github.com/kestrelquant/backtest/internal/metric"
	"github.com/kestrelquant/backtest/internal/orderbook"
	"github.com/kestrelquant/backtest/internal/portfolio"
	"github.com/kestrelquant/backtest/internal/position"
	"github.com/kestrelquant/backtest/internal/result"
	"github.com/kestrelquant/backtest/internal/status"
	"github.com/kestrelquant/backtest/internal/strategy"
	"github.com/kestrelquant/backtest/internal/trade"
)

// Simulator owns every piece of mutable run state: the market adapter,
// order book, portfolio, position map, and the strategy callback. Its
// Step/Run methods are the only mutators.
type Simulator struct {
	adapter    *market.Adapter
	book       *orderbook.Book
	portfolio  *portfolio.Portfolio
	positions  map[string]position.Position
	strat      strategy.Strategy
	commission config.Commission
	watchlist  []string
	metricCfg  metric.Config
	computers  []metric.Computer

	currentDate time.Time
	endDate     time.Time
	steps       []result.StepResult
}

// New builds a Simulator over adapter's market data, running strat
// across cfg's watchlist and date range, computing computers at the end
// of the run.
func New(adapter *market.Adapter, strat strategy.Strategy, cfg *config.Config, computers []metric.Computer) *Simulator {
	return &Simulator{
		adapter:    adapter,
		book:       orderbook.NewBook(),
		portfolio:  portfolio.New(cfg.InitialCash),
		positions:  make(map[string]position.Position),
		strat:      strat,
		commission: cfg.Commission,
		watchlist:  cfg.Watchlist,
		metricCfg:  metric.Config{RiskFreeRate: cfg.RiskFreeRate, InitialCash: cfg.InitialCash},
		computers:  computers,

		currentDate: cfg.Start,
		endDate:     cfg.End,
	}
}

// Done reports whether the simulator has stepped past its end date.
func (s *Simulator) Done() bool {
	return s.currentDate.After(s.endDate)
}

// Positions returns a read-only snapshot of the current position map,
// safe for a strategy or caller to range over without mutating sim
// state.
func (s *Simulator) Positions() map[string]position.Position {
	out := make(map[string]position.Position, len(s.positions))
	for k, v := range s.positions {
		out[k] = v
	}
	return out
}

// Portfolio exposes the current portfolio snapshot.
func (s *Simulator) Portfolio() *portfolio.Portfolio { return s.portfolio }

// Step advances the simulator by exactly one calendar day. It returns
// the day's StepResult; if the simulator was already past its end date,
// ok is false and no work is done.
func (s *Simulator) Step() (result.StepResult, bool, error) {
	if s.Done() {
		return result.StepResult{}, false, nil
	}
	today := s.currentDate
	logger.Debugf("sim: stepping %s", today.Format("2006-01-02"))

	// 2. Assemble today's bars; absent bars are silently skipped.
	bars := make(map[string]market.Bar, len(s.watchlist))
	for _, sym := range s.watchlist {
		if bar, ok := s.adapter.Price(sym, today); ok {
			bars[sym] = bar
		}
	}

	// 3. Match active orders against today's intraday paths.
	trades, err := s.matchFills(bars, today)
	if err != nil {
		return result.StepResult{}, false, err
	}

	// 4. Apply fills to positions.
	if err := s.applyFillsToPositions(trades, today); err != nil {
		return result.StepResult{}, false, err
	}

	// 5. Apply trades to the portfolio.
	if err := s.portfolio.ApplyTrades(trades); err != nil {
		return result.StepResult{}, false, err
	}

	// 6. Call the strategy.
	transitions, err := s.strat.OnMarketClose(s.priceFunc(today), s.indicatorFunc(today), s.Positions())
	if err != nil {
		return result.StepResult{}, false, err
	}

	// 7. Apply CreateEntering and TriggerExit; every other kind is
	// ignored at this stage (driven by fills in step 4).
	if err := s.applyStrategyTransitions(transitions, today); err != nil {
		return result.StepResult{}, false, err
	}

	// 8. Generate and submit orders for tomorrow.
	newOrders, err := strategy.GenerateOrders(transitions, s.positions, today)
	if err != nil {
		return result.StepResult{}, false, err
	}
	if errs := s.book.Submit(newOrders...); anyError(errs) {
		return result.StepResult{}, false, status.New(status.Internal, "order submission failed")
	}

	// 9. Compute portfolio value using today's closes.
	closes := make(map[string]float64, len(bars))
	for sym, b := range bars {
		closes[sym] = b.Close
	}
	value, err := portfolio.Value(s.portfolio.Lots, s.portfolio.Cash, closes)
	if err != nil {
		return result.StepResult{}, false, err
	}

	s.finalizeClosedPeriods(today)

	step := result.StepResult{
		Date:            today,
		PortfolioValue:  value,
		Cash:            s.portfolio.Cash,
		Trades:          trades,
		OrdersSubmitted: newOrders,
	}
	s.steps = append(s.steps, step)
	s.currentDate = s.currentDate.AddDate(0, 0, 1)
	return step, true, nil
}

func anyError(errs []error) bool {
	for _, e := range errs {
		if e != nil {
			return true
		}
	}
	return false
}

func (s *Simulator) matchFills(bars map[string]market.Bar, today time.Time) ([]trade.Trade, error) {
	var trades []trade.Trade
	for _, o := range s.book.List(orderbook.ActiveOnly) {
		bar, ok := bars[o.Symbol]
		if !ok {
			continue
		}
		path := fillengine.BuildPath(bar)
		fr, filled := fillengine.WouldFill(path, o.Type, o.Side)
		if !filled {
			continue
		}
		commission := s.commission.Compute(o.Quantity)
		tr := trade.New(o.ID, o.Symbol, o.Side, o.Quantity, fr.Price, commission, today)
		trades = append(trades, tr)
		o.MarkFilled(fr.Price)
		if err := s.book.Update(o); err != nil {
			return nil, err
		}
		logger.Tracef("sim: filled order %s (%s %s x%.2f @ %.2f)", o.ID, o.Symbol, sideName(o.Side), o.Quantity, fr.Price)
	}
	return trades, nil
}

func sideName(side orderbook.Side) string {
	if side == orderbook.Sell {
		return "sell"
	}
	return "buy"
}

// applyFillsToPositions matches each trade to a position by symbol and
// state: a trade for a symbol whose position is Entering applies as
// EntryFill+EntryComplete; Exiting applies as ExitFill+ExitComplete.
// Entry fills set risk params to all-None (placing protective orders is
// a documented future extension, not required here).
func (s *Simulator) applyFillsToPositions(trades []trade.Trade, today time.Time) error {
	for _, tr := range trades {
		for id, pos := range s.positions {
			if pos.Symbol != tr.Symbol {
				continue
			}
			switch pos.State.Kind {
			case position.Entering:
				filled, err := position.Apply(pos, position.Transition{
					Kind: position.EntryFill, PositionID: pos.ID,
					FilledQty: tr.Quantity, FillPrice: tr.Price, Date: today,
				})
				if err != nil {
					return err
				}
				completed, err := position.Apply(filled, position.Transition{
					Kind: position.EntryComplete, PositionID: pos.ID, Date: today,
				})
				if err != nil {
					return err
				}
				s.positions[id] = completed
			case position.Exiting:
				filled, err := position.Apply(pos, position.Transition{
					Kind: position.ExitFill, PositionID: pos.ID,
					FilledQty: tr.Quantity, FillPrice: tr.Price, Date: today,
				})
				if err != nil {
					return err
				}
				completed, err := position.Apply(filled, position.Transition{
					Kind: position.ExitComplete, PositionID: pos.ID, Date: today,
				})
				if err != nil {
					return err
				}
				s.positions[id] = completed
			default:
				continue
			}
			break
		}
	}
	return nil
}

func (s *Simulator) applyStrategyTransitions(transitions []position.Transition, today time.Time) error {
	for _, t := range transitions {
		t.Date = today
		switch t.Kind {
		case position.CreateEntering:
			np, err := position.NewEntering(t)
			if err != nil {
				return err
			}
			s.positions[np.ID] = np
			logger.Infof("sim: opened %s position for %s target=%.2f@%.2f", sideLabel(t.Side), t.Symbol, t.TargetQty, t.EntryPrice)
		case position.TriggerExit:
			pos, ok := s.positions[t.PositionID]
			if !ok {
				// A TriggerExit for an unknown position id is
				// silently ignored rather than surfaced as an error.
				logger.Debugf("sim: TriggerExit for unknown position %s ignored", t.PositionID)
				continue
			}
			next, err := position.Apply(pos, t)
			if err != nil {
				return err
			}
			s.positions[t.PositionID] = next
		}
	}
	return nil
}

func sideLabel(side position.Side) string {
	if side == position.Short {
		return "short"
	}
	return "long"
}

func (s *Simulator) priceFunc(today time.Time) strategy.PriceFunc {
	return func(symbol string) (market.Bar, bool) {
		return s.adapter.Price(symbol, today)
	}
}

func (s *Simulator) indicatorFunc(today time.Time) strategy.IndicatorFunc {
	return func(symbol, name string, period int, cadence market.Cadence) (float64, bool) {
		return s.adapter.Indicator(symbol, name, period, cadence, today)
	}
}

// finalizeClosedPeriods evicts provisional indicator cache entries for
// any cadence whose period today just closed, so strategies never see a
// stale intra-period value once the period finalizes.
func (s *Simulator) finalizeClosedPeriods(today time.Time) {
	for _, cadence := range []market.Cadence{market.Weekly, market.Monthly} {
		if market.IsPeriodEnd(cadence, today) {
			s.adapter.Manager().FinalizePeriod(cadence, today)
		}
	}
}

// Run steps the simulator to completion, then folds every metric
// computer over the accumulated steps.
func (s *Simulator) Run() (result.RunResult, error) {
	for {
		_, ok, err := s.Step()
		if err != nil {
			return result.RunResult{}, err
		}
		if !ok {
			break
		}
	}

	finalLots := make(map[string]float64, len(s.portfolio.Lots))
	for symbol := range s.portfolio.Lots {
		finalLots[symbol] = s.portfolio.Quantity(symbol)
	}

	var finalPortfolio float64
	if len(s.steps) > 0 {
		finalPortfolio = s.steps[len(s.steps)-1].PortfolioValue
	} else {
		finalPortfolio = s.portfolio.Cash
	}

	metrics := metric.RunAll(s.metricCfg, s.steps, s.computers)
	logger.Infof("sim: run complete, %d steps, final portfolio value %.2f", len(s.steps), finalPortfolio)

	return result.RunResult{
		Steps:          s.steps,
		FinalCash:      s.portfolio.Cash,
		FinalLots:      finalLots,
		FinalPortfolio: finalPortfolio,
		Metrics:        metrics,
	}, nil
}
