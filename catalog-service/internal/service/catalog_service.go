package service

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/fjod/fitcoach/catalog-service/internal/domain"
	"github.com/fjod/fitcoach/catalog-service/internal/repository"
	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"
)

var ErrNotFound = errors.New("not found")

type CatalogService struct {
	backend repository.Backend
	sfg     singleflight.Group
	log     zerolog.Logger
}

func NewCatalogService(backend repository.Backend, log zerolog.Logger) *CatalogService {
	return &CatalogService{backend: backend, log: log}
}

// ListProducts returns every product, or those in category when it is set.
func (s *CatalogService) ListProducts(ctx context.Context, category string) ([]domain.Product, error) {
	filters := repository.Filters{}
	if category != "" {
		filters["category"] = category
	}
	rows, err := s.get(ctx, repository.TableProducts, filters)
	if err != nil {
		return nil, err
	}
	out := make([]domain.Product, 0, len(rows))
	for _, row := range rows {
		out = append(out, toProduct(row))
	}
	return out, nil
}

func (s *CatalogService) GetProduct(ctx context.Context, id string) (*domain.Product, error) {
	rows, err := s.get(ctx, repository.TableProducts, repository.Filters{"id": id})
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("product %s: %w", id, ErrNotFound)
	}
	p := toProduct(rows[0])
	return &p, nil
}

// ListMemberships returns the active tiers, cheapest first.
func (s *CatalogService) ListMemberships(ctx context.Context) ([]domain.Membership, error) {
	rows, err := s.get(ctx, repository.TableMemberships, repository.Filters{"status": domain.StatusActive})
	if err != nil {
		return nil, err
	}
	out := make([]domain.Membership, 0, len(rows))
	for _, row := range rows {
		m := toMembership(row)
		if !m.IsActive() {
			continue
		}
		out = append(out, m)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].PriceMonthly.LessThan(out[j].PriceMonthly)
	})
	return out, nil
}

// GetMembership treats an inactive tier as missing.
func (s *CatalogService) GetMembership(ctx context.Context, id string) (*domain.Membership, error) {
	rows, err := s.get(ctx, repository.TableMemberships, repository.Filters{"id": id})
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("membership %s: %w", id, ErrNotFound)
	}
	m := toMembership(rows[0])
	if !m.IsActive() {
		return nil, fmt.Errorf("membership %s: %w", id, ErrNotFound)
	}
	return &m, nil
}

func (s *CatalogService) CompareMemberships(ctx context.Context) (domain.FeatureMatrix, error) {
	ms, err := s.ListMemberships(ctx)
	if err != nil {
		return domain.FeatureMatrix{}, err
	}
	return domain.CompareFeatures(ms), nil
}

func (s *CatalogService) ListPrograms(ctx context.Context) ([]domain.Program, error) {
	rows, err := s.get(ctx, repository.TablePrograms, repository.Filters{})
	if err != nil {
		return nil, err
	}
	out := make([]domain.Program, 0, len(rows))
	for _, row := range rows {
		out = append(out, toProgram(row))
	}
	return out, nil
}

// get collapses identical concurrent reads into one backend call.
func (s *CatalogService) get(ctx context.Context, table string, filters repository.Filters) ([]repository.Row, error) {
	v, err, shared := s.sfg.Do(flightKey(table, filters), func() (interface{}, error) {
		return s.backend.Get(ctx, table, filters)
	})
	if err != nil {
		s.log.Error().Err(err).Str("table", table).Msg("catalog backend error")
		return nil, err
	}
	if shared {
		s.log.Debug().Str("table", table).Msg("shared catalog read")
	}
	return v.([]repository.Row), nil
}

func flightKey(table string, filters repository.Filters) string {
	keys := make([]string, 0, len(filters))
	for k := range filters {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	key := table
	for _, k := range keys {
		key += fmt.Sprintf("|%s=%v", k, filters[k])
	}
	return key
}
