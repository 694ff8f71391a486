package service

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/Cheertaboi/shipping-service/internal/cache"
	"github.com/Cheertaboi/shipping-service/internal/geo"
	"github.com/Cheertaboi/shipping-service/internal/models"
)

// RateStore is the persistence used by the back office.
type RateStore interface {
	List(ctx context.Context, f models.RateFilter) ([]models.ShippingRate, error)
	GetByID(ctx context.Context, id uuid.UUID) (*models.ShippingRate, error)
	Create(ctx context.Context, rate *models.ShippingRate) error
	Update(ctx context.Context, id uuid.UUID, mutate func(*models.ShippingRate) error) (*models.ShippingRate, error)
	SetActive(ctx context.Context, id uuid.UUID, active bool) (bool, error)
	Delete(ctx context.Context, id uuid.UUID) (bool, error)
}

// RateService manages shipping_rates on behalf of administrators. Every
// write drops the checkout cache.
type RateService struct {
	store    RateStore
	cache    cache.RateCache
	validate *validator.Validate
	logger   *zap.Logger
}

func NewRateService(store RateStore, rc cache.RateCache, table *geo.Table, logger *zap.Logger) *RateService {
	if rc == nil {
		rc = cache.NoopRateCache{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if table == nil {
		table = geo.DefaultTable()
	}
	return &RateService{
		store:    store,
		cache:    rc,
		validate: newRateValidator(table),
		logger:   logger.Named("rates"),
	}
}

func newRateValidator(table *geo.Table) *validator.Validate {
	v := validator.New()

	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	v.RegisterCustomTypeFunc(func(field reflect.Value) interface{} {
		if d, ok := field.Interface().(decimal.Decimal); ok {
			return d.InexactFloat64()
		}
		return nil
	}, decimal.Decimal{})

	_ = v.RegisterValidation("uf_or_wildcard", func(fl validator.FieldLevel) bool {
		s := fl.Field().String()
		return s == geo.Wildcard || table.IsState(s)
	})
	_ = v.RegisterValidation("region_or_wildcard", func(fl validator.FieldLevel) bool {
		s := fl.Field().String()
		if s == geo.Wildcard {
			return true
		}
		for _, r := range geo.Regions {
			if s == r {
				return true
			}
		}
		return false
	})

	return v
}

func canonicalRegion(s string) string {
	s = strings.TrimSpace(s)
	for _, r := range geo.Regions {
		if strings.EqualFold(s, r) {
			return r
		}
	}
	return s
}

func (s *RateService) check(in *models.RateInput) error {
	in.State = strings.ToUpper(strings.TrimSpace(in.State))
	in.Region = canonicalRegion(in.Region)
	in.ServiceType = strings.ToUpper(strings.TrimSpace(in.ServiceType))

	fields := map[string]string{}
	if err := s.validate.Struct(in); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return fmt.Errorf("validate rate: %w", err)
		}
		for _, fe := range verrs {
			fields[fe.Field()] = validationMessage(fe)
		}
	}
	if in.State == "" && in.Region == "" {
		fields["state"] = "state or region is required"
	}
	if len(fields) > 0 {
		return &ValidationError{Fields: fields}
	}
	return nil
}

func validationMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "uf_or_wildcard":
		return "must be a state code or *"
	case "region_or_wildcard":
		return "must be one of " + strings.Join(geo.Regions, ", ") + " or *"
	case "gte":
		return "must be at least " + fe.Param()
	case "min", "max":
		return "must be between 1 and 60"
	default:
		return "is invalid"
	}
}

func (s *RateService) Create(ctx context.Context, in models.RateInput) (*models.ShippingRate, error) {
	if err := s.check(&in); err != nil {
		return nil, err
	}

	rate := &models.ShippingRate{
		ID:            uuid.New(),
		State:         in.State,
		Region:        in.Region,
		ServiceType:   in.ServiceType,
		FlatRate:      in.FlatRate.Round(2),
		EstimatedDays: in.EstimatedDays,
		IsActive:      in.IsActive == nil || *in.IsActive,
	}
	if err := s.store.Create(ctx, rate); err != nil {
		return nil, err
	}

	s.invalidate(ctx)
	s.logger.Info("shipping rate created",
		zap.String("id", rate.ID.String()),
		zap.String("state", rate.State),
		zap.String("region", rate.Region),
		zap.String("service_type", rate.ServiceType),
		zap.String("flat_rate", rate.FlatRate.StringFixed(2)),
	)
	return rate, nil
}

// Update replaces the writable fields of a rate. IsActive is left alone when
// the input omits it.
func (s *RateService) Update(ctx context.Context, id uuid.UUID, in models.RateInput) (*models.ShippingRate, error) {
	if err := s.check(&in); err != nil {
		return nil, err
	}

	rate, err := s.store.Update(ctx, id, func(r *models.ShippingRate) error {
		r.State = in.State
		r.Region = in.Region
		r.ServiceType = in.ServiceType
		r.FlatRate = in.FlatRate.Round(2)
		r.EstimatedDays = in.EstimatedDays
		if in.IsActive != nil {
			r.IsActive = *in.IsActive
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if rate == nil {
		return nil, ErrRateNotFound
	}

	s.invalidate(ctx)
	s.logger.Info("shipping rate updated", zap.String("id", id.String()))
	return rate, nil
}

func (s *RateService) Get(ctx context.Context, id uuid.UUID) (*models.ShippingRate, error) {
	rate, err := s.store.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if rate == nil {
		return nil, ErrRateNotFound
	}
	return rate, nil
}

func (s *RateService) List(ctx context.Context, f models.RateFilter) ([]models.ShippingRate, error) {
	f.State = strings.ToUpper(strings.TrimSpace(f.State))
	f.ServiceType = strings.ToUpper(strings.TrimSpace(f.ServiceType))
	return s.store.List(ctx, f)
}

func (s *RateService) Deactivate(ctx context.Context, id uuid.UUID) error {
	ok, err := s.store.SetActive(ctx, id, false)
	if err != nil {
		return err
	}
	if !ok {
		return ErrRateNotFound
	}
	s.invalidate(ctx)
	s.logger.Info("shipping rate deactivated", zap.String("id", id.String()))
	return nil
}

func (s *RateService) Delete(ctx context.Context, id uuid.UUID) error {
	ok, err := s.store.Delete(ctx, id)
	if err != nil {
		return err
	}
	if !ok {
		return ErrRateNotFound
	}
	s.invalidate(ctx)
	s.logger.Info("shipping rate deleted", zap.String("id", id.String()))
	return nil
}

func (s *RateService) invalidate(ctx context.Context) {
	if err := s.cache.Invalidate(ctx); err != nil {
		s.logger.Warn("rate cache invalidation failed", zap.Error(err))
	}
}
