package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/Cheertaboi/shipping-service/internal/cache"
	"github.com/Cheertaboi/shipping-service/internal/concurrency"
	"github.com/Cheertaboi/shipping-service/internal/geo"
	"github.com/Cheertaboi/shipping-service/internal/metrics"
	"github.com/Cheertaboi/shipping-service/internal/models"
)

// MaxSimulateZipCodes caps a single simulation request.
const MaxSimulateZipCodes = 100

// ActiveRateSource is the read side used at checkout (use interfaces to allow mocking).
type ActiveRateSource interface {
	ListActive(ctx context.Context) ([]models.ShippingRate, error)
}

type ShippingService struct {
	rates     ActiveRateSource
	cache     cache.RateCache
	resolver  *geo.Resolver
	estimator *geo.Estimator
	logger    *zap.Logger
	metrics   *metrics.Metrics
	workers   int
}

func NewShippingService(rates ActiveRateSource, rc cache.RateCache, resolver *geo.Resolver, logger *zap.Logger, m *metrics.Metrics) *ShippingService {
	if rc == nil {
		rc = cache.NoopRateCache{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if m == nil {
		m = metrics.Nop()
	}
	return &ShippingService{
		rates:     rates,
		cache:     rc,
		resolver:  resolver,
		estimator: geo.NewEstimator(resolver),
		logger:    logger.Named("shipping"),
		metrics:   m,
		workers:   4,
	}
}

// SetSimulationWorkers bounds the goroutines used by Simulate.
func (s *ShippingService) SetSimulationWorkers(n int) {
	if n > 0 {
		s.workers = n
	}
}

func (s *ShippingService) activeRates(ctx context.Context) ([]models.ShippingRate, error) {
	rates, gen, ok, err := s.cache.GetActive(ctx)
	if err != nil {
		s.logger.Warn("rate cache read failed", zap.Error(err))
	}
	if ok {
		s.metrics.CacheResults.WithLabelValues("hit").Inc()
		return rates, nil
	}
	s.metrics.CacheResults.WithLabelValues("miss").Inc()

	rates, err = s.rates.ListActive(ctx)
	if err != nil {
		s.logger.Error("failed to load active shipping rates", zap.Error(err))
		return nil, fmt.Errorf("load active rates: %w", err)
	}

	if err := s.cache.SetActive(ctx, gen, rates); err != nil {
		s.logger.Warn("rate cache write failed", zap.Error(err))
	}
	return rates, nil
}

// Calculate resolves a raw postal code to the shipping options offered for
// it. An unknown prefix yields an empty option list, not an error.
func (s *ShippingService) Calculate(ctx context.Context, zip string) (models.CalculationResult, error) {
	loc := s.resolver.Locate(zip)
	res := models.CalculationResult{
		Location: loc,
		Options:  []models.CalculationRate{},
		Delivery: s.estimator.ForState(loc.State),
	}

	if loc.State == "" {
		s.metrics.Lookups.WithLabelValues("unknown_zip").Inc()
		s.logger.Debug("unknown zip prefix", zap.String("zip_code", loc.ZipCode))
		return res, nil
	}

	rates, err := s.activeRates(ctx)
	if err != nil {
		s.metrics.Lookups.WithLabelValues("error").Inc()
		return models.CalculationResult{}, err
	}

	matched, tierName := selectTier(rates, loc)
	s.metrics.Lookups.WithLabelValues(tierName).Inc()

	res.Options = buildOptions(cheapestPerService(matched), loc)

	s.logger.Debug("shipping options resolved",
		zap.String("zip_code", loc.ZipCode),
		zap.String("state", loc.State),
		zap.String("region", loc.Region),
		zap.String("tier", tierName),
		zap.Int("options", len(res.Options)),
	)
	return res, nil
}

// Quote prices an order once the customer has picked a service type.
func (s *ShippingService) Quote(ctx context.Context, zip, serviceType string, subtotal decimal.Decimal) (models.Quote, error) {
	if subtotal.IsNegative() {
		return models.Quote{}, ErrInvalidSubtotal
	}

	res, err := s.Calculate(ctx, zip)
	if err != nil {
		return models.Quote{}, err
	}

	for _, opt := range res.Options {
		if !strings.EqualFold(opt.ServiceType, strings.TrimSpace(serviceType)) {
			continue
		}
		return models.Quote{
			ZipCode:  res.ZipCode,
			Subtotal: subtotal,
			Shipping: opt.Rate,
			Total:    subtotal.Add(opt.Rate).Round(2),
			Option:   opt,
			Delivery: res.Delivery,
		}, nil
	}

	return models.Quote{}, fmt.Errorf("%w: %s to %s", ErrServiceUnavailable, serviceType, res.ZipCode)
}

// Simulate runs Calculate for each zip code, keeping input order.
func (s *ShippingService) Simulate(ctx context.Context, zips []string) ([]models.CalculationResult, error) {
	if len(zips) > MaxSimulateZipCodes {
		return nil, fmt.Errorf("%w: %d > %d", ErrTooManyZipCodes, len(zips), MaxSimulateZipCodes)
	}
	if len(zips) == 0 {
		return []models.CalculationResult{}, nil
	}

	// warm the cache once instead of letting every worker miss
	if _, err := s.activeRates(ctx); err != nil {
		return nil, err
	}

	results := make([]models.CalculationResult, len(zips))
	err := concurrency.ForEach(ctx, s.workers, len(zips), func(ctx context.Context, i int) error {
		r, err := s.Calculate(ctx, zips[i])
		if err != nil {
			return err
		}
		results[i] = r
		return nil
	})
	if err != nil {
		return nil, err
	}
	return results, nil
}

// DeliveryForState exposes the delivery estimator by state.
func (s *ShippingService) DeliveryForState(state string) geo.DeliveryTimeRange {
	return s.estimator.ForState(state)
}

// MaxDeliveryDaysForZip exposes the zip-only estimator path.
func (s *ShippingService) MaxDeliveryDaysForZip(zip string) int {
	return s.estimator.MaxDaysForZip(zip)
}
