package services

import (
	"context"

	"github.com/seanokelly/analogmarket/internal/domain/entities"
	"github.com/seanokelly/analogmarket/internal/domain/repositories"
	apperrors "github.com/seanokelly/analogmarket/pkg/errors"
)

// ProductCompleteness flags the enrichable fields a single product is
// still missing.
type ProductCompleteness struct {
	ProductID       string `json:"productId"`
	Name            string `json:"name"`
	Category        string `json:"category,omitempty"`
	MissingBrand    bool   `json:"missingBrand"`
	MissingYear     bool   `json:"missingYear"`
	MissingCategory bool   `json:"missingCategory"`
	MissingCopy     bool   `json:"missingCopy"`
	Rationalized    bool   `json:"rationalized"`
}

// CatalogStatus aggregates completeness over the active catalog.
type CatalogStatus struct {
	TotalProducts    int                   `json:"totalProducts"`
	Complete         int                   `json:"complete"`
	NeedingAttention int                   `json:"needingAttention"`
	MissingBrand     int                   `json:"missingBrand"`
	MissingYear      int                   `json:"missingYear"`
	MissingCategory  int                   `json:"missingCategory"`
	MissingCopy      int                   `json:"missingCopy"`
	Rationalized     int                   `json:"rationalized"`
	Products         []ProductCompleteness `json:"products"`
}

// CatalogStatusService reports which products still need rationalization.
// It only reads, never writes.
type CatalogStatusService struct {
	productRepo repositories.ProductRepository
	pageSize    int
}

func NewCatalogStatusService(productRepo repositories.ProductRepository, settings PipelineSettings) *CatalogStatusService {
	settings = settings.withDefaults()
	return &CatalogStatusService{
		productRepo: productRepo,
		pageSize:    settings.PageSize,
	}
}

// Status walks a page of active products and reports per-product and
// aggregate completeness.
func (s *CatalogStatusService) Status(ctx context.Context) (*CatalogStatus, error) {
	products, err := s.productRepo.ListActive(ctx, s.pageSize)
	if err != nil {
		return nil, apperrors.NewInternalError("failed to list active products", err)
	}

	status := &CatalogStatus{Products: []ProductCompleteness{}}
	for _, product := range products {
		pc := completenessFor(product)
		status.TotalProducts++
		if pc.MissingBrand {
			status.MissingBrand++
		}
		if pc.MissingYear {
			status.MissingYear++
		}
		if pc.MissingCategory {
			status.MissingCategory++
		}
		if pc.MissingCopy {
			status.MissingCopy++
		}
		if pc.Rationalized {
			status.Rationalized++
		}
		if pc.MissingBrand || pc.MissingYear || pc.MissingCategory || pc.MissingCopy {
			status.NeedingAttention++
			status.Products = append(status.Products, pc)
		} else {
			status.Complete++
		}
	}

	return status, nil
}

func completenessFor(product *entities.Product) ProductCompleteness {
	return ProductCompleteness{
		ProductID:       product.ID,
		Name:            product.Name,
		Category:        product.Meta(entities.MetaCategory),
		MissingBrand:    product.MetaMissing(entities.MetaBrand),
		MissingYear:     product.MetaMissing(entities.MetaYear),
		MissingCategory: product.MetaMissing(entities.MetaCategory),
		MissingCopy:     product.MetaMissing(entities.MetaLongDescription),
		Rationalized:    !product.MetaMissing(entities.MetaRationalizedAt),
	}
}
