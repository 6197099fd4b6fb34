package services

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"sentinel/models"

	"github.com/shopspring/decimal"
)

// FMPService handles communication with Financial Modeling Prep API
type FMPService struct {
	apiKey     string
	httpClient *http.Client
	baseURL    string
}

// NewFMPService creates a new FMPService instance
func NewFMPService(apiKey string) *FMPService {
	return &FMPService{
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		baseURL:    "https://financialmodelingprep.com/api/v3",
	}
}

// fmpScreenerResponse represents a single result from the FMP stock screener API
type fmpScreenerResponse struct {
	Symbol             string  `json:"symbol"`
	CompanyName        string  `json:"companyName"`
	MarketCap          int64   `json:"marketCap"`
	Sector             string  `json:"sector"`
	Industry           string  `json:"industry"`
	Beta               float64 `json:"beta"`
	Price              float64 `json:"price"`
	LastAnnualDividend float64 `json:"lastAnnualDividend"`
	Volume             int64   `json:"volume"`
	Exchange           string  `json:"exchange"`
	ExchangeShortName  string  `json:"exchangeShortName"`
	Country            string  `json:"country"`
	IsEtf              bool    `json:"isEtf"`
	IsActivelyTrading  bool    `json:"isActivelyTrading"`
}

// fmpProfileResponse represents a company profile from the FMP API
type fmpProfileResponse struct {
	Symbol            string  `json:"symbol"`
	CompanyName       string  `json:"companyName"`
	Price             float64 `json:"price"`
	Beta              float64 `json:"beta"`
	MktCap            int64   `json:"mktCap"`
	Range             string  `json:"range"`
	Sector            string  `json:"sector"`
	Industry          string  `json:"industry"`
	Description       string  `json:"description"`
	IsEtf             bool    `json:"isEtf"`
	IsActivelyTrading bool    `json:"isActivelyTrading"`
}

// fmpRatiosResponse represents key TTM ratios from the FMP API
type fmpRatiosResponse struct {
	Symbol                  string  `json:"symbol"`
	PERatio                 float64 `json:"peRatioTTM"`
	PriceToBookRatio        float64 `json:"priceToBookRatioTTM"`
	DividendYieldPercentage float64 `json:"dividendYieldPercentageTTM"`
	EPS                     float64 `json:"netIncomePerShareTTM"`
}

// GetFundamentals returns fundamental data for a ticker, assembled from the
// company profile and TTM ratio endpoints. The research desk and the
// allocator's sector caps both depend on the Sector field being populated.
func (s *FMPService) GetFundamentals(ctx context.Context, ticker string) (*models.Fundamentals, error) {
	return WithCircuitBreaker(ctx, BreakerFMP, func() (*models.Fundamentals, error) {
		var fundamentals *models.Fundamentals

		err := WithRetry(ctx, DefaultRetryConfig, func() error {
			profile, err := s.getProfile(ctx, ticker)
			if err != nil {
				return err
			}

			fundamentals = &models.Fundamentals{
				Ticker:      profile.Symbol,
				CompanyName: profile.CompanyName,
				Sector:      profile.Sector,
				Industry:    profile.Industry,
				MarketCap:   decimal.NewFromInt(profile.MktCap),
				Beta:        profile.Beta,
				UpdatedAt:   time.Now(),
			}

			ratios, err := s.getRatios(ctx, ticker)
			if err != nil {
				// Profile data alone is still useful; ratios are best-effort.
				return nil
			}
			fundamentals.PERatio = ratios.PERatio
			fundamentals.PBRatio = ratios.PriceToBookRatio
			fundamentals.DividendYield = ratios.DividendYieldPercentage
			fundamentals.EPS = decimal.NewFromFloat(ratios.EPS)

			return nil
		})

		if err != nil {
			return nil, err
		}

		return fundamentals, nil
	})
}

// Screen searches for stocks matching the given criteria. The FMP screener
// endpoint does not filter on P/E or P/B directly, so those filters run
// client-side against the TTM ratios endpoint.
func (s *FMPService) Screen(ctx context.Context, criteria models.ScreenerCriteria) ([]models.ScreenerCandidate, error) {
	return WithCircuitBreaker(ctx, BreakerFMP, func() ([]models.ScreenerCandidate, error) {
		var results []models.ScreenerCandidate

		err := WithRetry(ctx, DefaultRetryConfig, func() error {
			params := url.Values{}
			params.Set("apikey", s.apiKey)

			if criteria.MarketCapMin > 0 {
				params.Set("marketCapMoreThan", strconv.FormatInt(criteria.MarketCapMin, 10))
			}
			if criteria.Sector != "" {
				params.Set("sector", criteria.Sector)
			}
			if criteria.Limit > 0 {
				params.Set("limit", strconv.Itoa(criteria.Limit))
			}

			reqURL := s.baseURL + "/stock-screener?" + params.Encode()

			req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
			if err != nil {
				return fmt.Errorf("failed to create request: %w", err)
			}

			resp, err := s.httpClient.Do(req)
			if err != nil {
				return fmt.Errorf("failed to fetch screener results: %w", err)
			}
			defer resp.Body.Close()

			if resp.StatusCode != http.StatusOK {
				return fmt.Errorf("screener API returned status %d", resp.StatusCode)
			}

			var screenerResp []fmpScreenerResponse
			if err := json.NewDecoder(resp.Body).Decode(&screenerResp); err != nil {
				return fmt.Errorf("failed to decode screener response: %w", err)
			}

			results = make([]models.ScreenerCandidate, 0, len(screenerResp))
			for _, stock := range screenerResp {
				// Skip ETFs and inactive stocks
				if stock.IsEtf || !stock.IsActivelyTrading {
					continue
				}

				results = append(results, models.ScreenerCandidate{
					Ticker:        stock.Symbol,
					CompanyName:   stock.CompanyName,
					MarketCap:     stock.MarketCap,
					Sector:        stock.Sector,
					Industry:      stock.Industry,
					Price:         stock.Price,
					Beta:          stock.Beta,
					DividendYield: stock.LastAnnualDividend,
				})
			}

			return nil
		})

		if err != nil {
			return nil, err
		}

		if criteria.PERatioMax > 0 || criteria.PBRatioMax > 0 {
			results = s.enrichAndFilter(ctx, results, criteria)
		}

		return results, nil
	})
}

// enrichAndFilter fetches ratios for screener results and applies the P/E and
// P/B filters. Stocks whose ratios cannot be fetched are skipped rather than
// failing the whole screen.
func (s *FMPService) enrichAndFilter(ctx context.Context, results []models.ScreenerCandidate, criteria models.ScreenerCriteria) []models.ScreenerCandidate {
	filtered := make([]models.ScreenerCandidate, 0, len(results))

	for _, result := range results {
		ratios, err := s.getRatios(ctx, result.Ticker)
		if err != nil {
			continue
		}

		if criteria.PERatioMax > 0 && (ratios.PERatio <= 0 || ratios.PERatio > criteria.PERatioMax) {
			continue
		}
		if criteria.PBRatioMax > 0 && (ratios.PriceToBookRatio <= 0 || ratios.PriceToBookRatio > criteria.PBRatioMax) {
			continue
		}

		result.PERatio = ratios.PERatio
		result.PBRatio = ratios.PriceToBookRatio
		result.DividendYield = ratios.DividendYieldPercentage

		filtered = append(filtered, result)
	}

	return filtered
}

// getProfile fetches the company profile for a ticker
func (s *FMPService) getProfile(ctx context.Context, ticker string) (*fmpProfileResponse, error) {
	reqURL := fmt.Sprintf("%s/profile/%s?apikey=%s", s.baseURL, url.PathEscape(ticker), s.apiKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create profile request: %w", err)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch company profile: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("profile API returned status %d", resp.StatusCode)
	}

	var profileResp []fmpProfileResponse
	if err := json.NewDecoder(resp.Body).Decode(&profileResp); err != nil {
		return nil, fmt.Errorf("failed to decode profile response: %w", err)
	}

	if len(profileResp) == 0 {
		return nil, fmt.Errorf("no profile data for ticker %s", ticker)
	}

	return &profileResp[0], nil
}

// getRatios fetches key TTM ratios for a ticker
func (s *FMPService) getRatios(ctx context.Context, ticker string) (*fmpRatiosResponse, error) {
	reqURL := fmt.Sprintf("%s/ratios-ttm/%s?apikey=%s", s.baseURL, url.PathEscape(ticker), s.apiKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create ratios request: %w", err)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch ratios: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("ratios API returned status %d", resp.StatusCode)
	}

	var ratiosResp []fmpRatiosResponse
	if err := json.NewDecoder(resp.Body).Decode(&ratiosResp); err != nil {
		return nil, fmt.Errorf("failed to decode ratios response: %w", err)
	}

	if len(ratiosResp) == 0 {
		return nil, fmt.Errorf("no ratios data for ticker %s", ticker)
	}

	return &ratiosResp[0], nil
}
