package services

import (
	"context"
	"fmt"
	"time"

	"sentinel/models"
	"sentinel/observability"

	"github.com/alpacahq/alpaca-trade-api-go/v3/alpaca"
	"github.com/alpacahq/alpaca-trade-api-go/v3/marketdata"
	"github.com/shopspring/decimal"
)

// alpacaTradeClient defines the trading API surface we use (for testing)
type alpacaTradeClient interface {
	GetAccount() (*alpaca.Account, error)
	GetPositions() ([]alpaca.Position, error)
	PlaceOrder(req alpaca.PlaceOrderRequest) (*alpaca.Order, error)
}

// alpacaDataClient defines the market data API surface we use (for testing)
type alpacaDataClient interface {
	GetLatestQuote(symbol string, req marketdata.GetLatestQuoteRequest) (*marketdata.Quote, error)
	GetLatestTrade(symbol string, req marketdata.GetLatestTradeRequest) (*marketdata.Trade, error)
	GetBars(symbol string, req marketdata.GetBarsRequest) ([]marketdata.Bar, error)
}

// AlpacaService handles communication with Alpaca for account state, market
// data, and order submission
type AlpacaService struct {
	tradeClient alpacaTradeClient
	dataClient  alpacaDataClient
}

// NewAlpacaService creates a new AlpacaService instance
func NewAlpacaService(apiKey, apiSecret, baseURL string) *AlpacaService {
	tradeClient := alpaca.NewClient(alpaca.ClientOpts{
		APIKey:    apiKey,
		APISecret: apiSecret,
		BaseURL:   baseURL,
	})

	dataClient := marketdata.NewClient(marketdata.ClientOpts{
		APIKey:    apiKey,
		APISecret: apiSecret,
	})

	return &AlpacaService{
		tradeClient: tradeClient,
		dataClient:  dataClient,
	}
}

// GetPortfolioState assembles the account snapshot from the brokerage. Cash,
// buying power, and positions come straight from the account API; nothing is
// reconstructed from local history.
func (s *AlpacaService) GetPortfolioState(ctx context.Context) (*models.PortfolioState, error) {
	metrics := observability.GetMetrics()
	metrics.RecordExternalAPIRequest(BreakerAlpaca, "portfolio_state")
	timer := metrics.NewTimer()

	state, err := WithCircuitBreaker(ctx, BreakerAlpaca, func() (*models.PortfolioState, error) {
		account, err := s.tradeClient.GetAccount()
		if err != nil {
			return nil, fmt.Errorf("failed to get account: %w", err)
		}

		alpacaPositions, err := s.tradeClient.GetPositions()
		if err != nil {
			return nil, fmt.Errorf("failed to get positions: %w", err)
		}

		positions := make([]models.Position, 0, len(alpacaPositions))
		for _, p := range alpacaPositions {
			pos := models.Position{
				Ticker:        p.Symbol,
				Quantity:      p.Qty,
				AvgEntryPrice: p.AvgEntryPrice,
			}
			if p.CurrentPrice != nil {
				pos.CurrentPrice = *p.CurrentPrice
			}
			if p.MarketValue != nil {
				pos.MarketValue = *p.MarketValue
			} else {
				pos.MarketValue = pos.CurrentPrice.Mul(pos.Quantity)
			}
			positions = append(positions, pos)
		}

		return models.NewPortfolioState(account.Cash, account.BuyingPower, positions), nil
	})

	timer.ObserveExternalAPI(BreakerAlpaca, "portfolio_state")
	if err != nil {
		metrics.RecordExternalAPIError(BreakerAlpaca, "portfolio_state", categorizeAPIError(err))
	}
	return state, err
}

// GetQuote returns the latest quote for a ticker
func (s *AlpacaService) GetQuote(ctx context.Context, ticker string) (*models.Quote, error) {
	return WithCircuitBreaker(ctx, BreakerAlpaca, func() (*models.Quote, error) {
		quote, err := s.dataClient.GetLatestQuote(ticker, marketdata.GetLatestQuoteRequest{})
		if err != nil {
			return nil, fmt.Errorf("failed to get quote for %s: %w", ticker, err)
		}

		return &models.Quote{
			Ticker:    ticker,
			Bid:       decimal.NewFromFloat(quote.BidPrice),
			Ask:       decimal.NewFromFloat(quote.AskPrice),
			BidSize:   int64(quote.BidSize),
			AskSize:   int64(quote.AskSize),
			Timestamp: quote.Timestamp,
		}, nil
	})
}

// GetLatestTrade returns the latest trade for a ticker
func (s *AlpacaService) GetLatestTrade(ctx context.Context, ticker string) (*models.Quote, error) {
	return WithCircuitBreaker(ctx, BreakerAlpaca, func() (*models.Quote, error) {
		trade, err := s.dataClient.GetLatestTrade(ticker, marketdata.GetLatestTradeRequest{})
		if err != nil {
			return nil, fmt.Errorf("failed to get trade for %s: %w", ticker, err)
		}

		return &models.Quote{
			Ticker:    ticker,
			Last:      decimal.NewFromFloat(trade.Price),
			Volume:    int64(trade.Size),
			Timestamp: trade.Timestamp,
		}, nil
	})
}

// GetBars returns historical bars for a ticker
func (s *AlpacaService) GetBars(ctx context.Context, ticker string, start, end time.Time, timeframe marketdata.TimeFrame) ([]models.Bar, error) {
	return WithCircuitBreaker(ctx, BreakerAlpaca, func() ([]models.Bar, error) {
		bars, err := s.dataClient.GetBars(ticker, marketdata.GetBarsRequest{
			TimeFrame: timeframe,
			Start:     start,
			End:       end,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to get bars for %s: %w", ticker, err)
		}

		result := make([]models.Bar, 0, len(bars))
		for _, bar := range bars {
			result = append(result, models.Bar{
				Ticker:    ticker,
				Timestamp: bar.Timestamp,
				Open:      decimal.NewFromFloat(bar.Open),
				High:      decimal.NewFromFloat(bar.High),
				Low:       decimal.NewFromFloat(bar.Low),
				Close:     decimal.NewFromFloat(bar.Close),
				Volume:    int64(bar.Volume),
				VWAP:      decimal.NewFromFloat(bar.VWAP),
			})
		}

		return result, nil
	})
}

// GetDailyBars returns daily bars for the last N days
func (s *AlpacaService) GetDailyBars(ctx context.Context, ticker string, days int) ([]models.Bar, error) {
	end := time.Now()
	start := end.AddDate(0, 0, -days)

	return s.GetBars(ctx, ticker, start, end, marketdata.OneDay)
}

// SubmitOrder places a market order with the brokerage and returns the
// broker's order ID. Only accepted orders reach this point; validation and
// approval happen upstream.
func (s *AlpacaService) SubmitOrder(ctx context.Context, order *models.Order) (string, error) {
	metrics := observability.GetMetrics()
	metrics.RecordExternalAPIRequest(BreakerAlpaca, "submit_order")
	timer := metrics.NewTimer()

	brokerID, err := WithCircuitBreaker(ctx, BreakerAlpaca, func() (string, error) {
		side := alpaca.Buy
		if order.Action == models.OrderActionSell {
			side = alpaca.Sell
		}

		orderType := alpaca.Market
		var limitPrice *decimal.Decimal
		if order.OrderType == models.OrderTypeLimit && !order.LimitPrice.IsZero() {
			orderType = alpaca.Limit
			lp := order.LimitPrice
			limitPrice = &lp
		}

		qty := order.Quantity
		placed, err := s.tradeClient.PlaceOrder(alpaca.PlaceOrderRequest{
			Symbol:      order.Ticker,
			Qty:         &qty,
			Side:        side,
			Type:        orderType,
			LimitPrice:  limitPrice,
			TimeInForce: alpaca.Day,
		})
		if err != nil {
			return "", fmt.Errorf("failed to place %s order for %s: %w", order.Action, order.Ticker, err)
		}

		return placed.ID, nil
	})

	timer.ObserveExternalAPI(BreakerAlpaca, "submit_order")
	if err != nil {
		metrics.RecordExternalAPIError(BreakerAlpaca, "submit_order", categorizeAPIError(err))
	}
	return brokerID, err
}
