package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/paylink-cm/paylink/internal/domain"
	"github.com/paylink-cm/paylink/pkg/database"
	apperrors "github.com/paylink-cm/paylink/pkg/errors"
)

// PageRepository implements repository.PageRepository using PostgreSQL.
type PageRepository struct {
	db database.DBTX
}

// NewPageRepository creates a new PostgreSQL-backed page repository.
func NewPageRepository(db database.DBTX) *PageRepository {
	return &PageRepository{db: db}
}

const pageColumns = `id, user_id, slug, title, description, template_type, status, pricing_mode, logo_url, primary_color, template_data, view_count, published_at, created_at, updated_at`

// Create inserts a new page into the database.
func (r *PageRepository) Create(ctx context.Context, p *domain.Page) error {
	query := `
		INSERT INTO pages (id, user_id, slug, title, description, template_type, status, pricing_mode, logo_url, primary_color, template_data, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`

	_, err := r.db.Exec(ctx, query,
		p.ID,
		p.UserID,
		p.Slug,
		p.Title,
		p.Description,
		p.TemplateType,
		p.Status,
		p.PricingMode,
		p.LogoURL,
		p.PrimaryColor,
		p.TemplateData,
		p.CreatedAt,
		p.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperrors.AlreadyExists("page", "slug", p.Slug)
		}
		return fmt.Errorf("insert page: %w", err)
	}

	return nil
}

// GetByID retrieves a page by its ID.
func (r *PageRepository) GetByID(ctx context.Context, id string) (*domain.Page, error) {
	query := `SELECT ` + pageColumns + ` FROM pages WHERE id = $1`
	return r.scanPage(ctx, query, id)
}

// GetBySlug retrieves a page by its slug, regardless of status.
func (r *PageRepository) GetBySlug(ctx context.Context, slug string) (*domain.Page, error) {
	query := `SELECT ` + pageColumns + ` FROM pages WHERE slug = $1`
	return r.scanPage(ctx, query, slug)
}

// ListByUserID returns all pages owned by the given user, newest first.
func (r *PageRepository) ListByUserID(ctx context.Context, userID string) ([]domain.Page, error) {
	query := `SELECT ` + pageColumns + ` FROM pages WHERE user_id = $1 ORDER BY created_at DESC`

	rows, err := r.db.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("query pages: %w", err)
	}
	defer rows.Close()

	var pages []domain.Page
	for rows.Next() {
		var p domain.Page
		if err := scanPageRow(rows, &p); err != nil {
			return nil, fmt.Errorf("scan page: %w", err)
		}
		pages = append(pages, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate pages: %w", err)
	}

	return pages, nil
}

// CountByUserID returns the number of pages owned by the given user.
func (r *PageRepository) CountByUserID(ctx context.Context, userID string) (int, error) {
	var count int
	err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM pages WHERE user_id = $1`, userID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count pages: %w", err)
	}
	return count, nil
}

// SlugExists reports whether any page already uses the slug.
func (r *PageRepository) SlugExists(ctx context.Context, slug string) (bool, error) {
	var exists bool
	err := r.db.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM pages WHERE slug = $1)`, slug).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check slug: %w", err)
	}
	return exists, nil
}

// Update modifies an existing page in the database.
func (r *PageRepository) Update(ctx context.Context, p *domain.Page) error {
	p.UpdatedAt = time.Now().UTC()

	query := `
		UPDATE pages
		SET slug = $1, title = $2, description = $3, status = $4, pricing_mode = $5,
		    logo_url = $6, primary_color = $7, template_data = $8, published_at = $9, updated_at = $10
		WHERE id = $11`

	ct, err := r.db.Exec(ctx, query,
		p.Slug,
		p.Title,
		p.Description,
		p.Status,
		p.PricingMode,
		p.LogoURL,
		p.PrimaryColor,
		p.TemplateData,
		p.PublishedAt,
		p.UpdatedAt,
		p.ID,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperrors.AlreadyExists("page", "slug", p.Slug)
		}
		return fmt.Errorf("update page: %w", err)
	}

	if ct.RowsAffected() == 0 {
		return apperrors.NotFound("page", p.ID)
	}

	return nil
}

// Delete removes a page from the database by its ID.
func (r *PageRepository) Delete(ctx context.Context, id string) error {
	ct, err := r.db.Exec(ctx, `DELETE FROM pages WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete page: %w", err)
	}

	if ct.RowsAffected() == 0 {
		return apperrors.NotFound("page", id)
	}

	return nil
}

// IncrementViewCount adds one public view to the page's durable counter.
func (r *PageRepository) IncrementViewCount(ctx context.Context, id string) error {
	_, err := r.db.Exec(ctx, `UPDATE pages SET view_count = view_count + 1 WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("increment view count: %w", err)
	}
	return nil
}

func (r *PageRepository) scanPage(ctx context.Context, query string, args ...any) (*domain.Page, error) {
	var p domain.Page
	err := scanPageRow(r.db.QueryRow(ctx, query, args...), &p)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("scan page: %w", err)
	}
	return &p, nil
}

// scanPageRow scans the pageColumns set from either a Row or Rows.
func scanPageRow(row pgx.Row, p *domain.Page) error {
	return row.Scan(
		&p.ID,
		&p.UserID,
		&p.Slug,
		&p.Title,
		&p.Description,
		&p.TemplateType,
		&p.Status,
		&p.PricingMode,
		&p.LogoURL,
		&p.PrimaryColor,
		&p.TemplateData,
		&p.ViewCount,
		&p.PublishedAt,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
}

// --- Service Repository ---

// ServiceRepository implements repository.ServiceRepository using PostgreSQL.
type ServiceRepository struct {
	db database.DBTX
}

// NewServiceRepository creates a new PostgreSQL-backed service repository.
func NewServiceRepository(db database.DBTX) *ServiceRepository {
	return &ServiceRepository{db: db}
}

const serviceColumns = `id, page_id, name, description, price, display_price, net_price, is_active, position, created_at, updated_at`

// Create inserts a new service into the database.
func (r *ServiceRepository) Create(ctx context.Context, s *domain.Service) error {
	query := `
		INSERT INTO page_services (id, page_id, name, description, price, display_price, net_price, is_active, position, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`

	_, err := r.db.Exec(ctx, query,
		s.ID,
		s.PageID,
		s.Name,
		s.Description,
		s.Price,
		s.DisplayPrice,
		s.NetPrice,
		s.IsActive,
		s.Position,
		s.CreatedAt,
		s.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert service: %w", err)
	}

	return nil
}

// GetByID retrieves a service by its ID.
func (r *ServiceRepository) GetByID(ctx context.Context, id string) (*domain.Service, error) {
	query := `SELECT ` + serviceColumns + ` FROM page_services WHERE id = $1`

	var s domain.Service
	err := scanServiceRow(r.db.QueryRow(ctx, query, id), &s)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("scan service: %w", err)
	}

	return &s, nil
}

// ListByPageID returns all services on the given page, in position order.
func (r *ServiceRepository) ListByPageID(ctx context.Context, pageID string) ([]domain.Service, error) {
	query := `SELECT ` + serviceColumns + ` FROM page_services WHERE page_id = $1 ORDER BY position, created_at`

	rows, err := r.db.Query(ctx, query, pageID)
	if err != nil {
		return nil, fmt.Errorf("query services: %w", err)
	}
	defer rows.Close()

	var services []domain.Service
	for rows.Next() {
		var s domain.Service
		if err := scanServiceRow(rows, &s); err != nil {
			return nil, fmt.Errorf("scan service: %w", err)
		}
		services = append(services, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate services: %w", err)
	}

	return services, nil
}

// Update modifies an existing service in the database.
func (r *ServiceRepository) Update(ctx context.Context, s *domain.Service) error {
	s.UpdatedAt = time.Now().UTC()

	query := `
		UPDATE page_services
		SET name = $1, description = $2, price = $3, display_price = $4, net_price = $5, is_active = $6, position = $7, updated_at = $8
		WHERE id = $9`

	ct, err := r.db.Exec(ctx, query,
		s.Name,
		s.Description,
		s.Price,
		s.DisplayPrice,
		s.NetPrice,
		s.IsActive,
		s.Position,
		s.UpdatedAt,
		s.ID,
	)
	if err != nil {
		return fmt.Errorf("update service: %w", err)
	}

	if ct.RowsAffected() == 0 {
		return apperrors.NotFound("service", s.ID)
	}

	return nil
}

// Delete removes a service from the database by its ID.
func (r *ServiceRepository) Delete(ctx context.Context, id string) error {
	ct, err := r.db.Exec(ctx, `DELETE FROM page_services WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete service: %w", err)
	}

	if ct.RowsAffected() == 0 {
		return apperrors.NotFound("service", id)
	}

	return nil
}

func scanServiceRow(row pgx.Row, s *domain.Service) error {
	return row.Scan(
		&s.ID,
		&s.PageID,
		&s.Name,
		&s.Description,
		&s.Price,
		&s.DisplayPrice,
		&s.NetPrice,
		&s.IsActive,
		&s.Position,
		&s.CreatedAt,
		&s.UpdatedAt,
	)
}
