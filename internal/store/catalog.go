package store

import (
	"context"

	"digitalstore/internal/models"
)

const productColumns = `id, slug, name, short_description, price, type, category,
	is_active, access_duration, created_at, updated_at`

func scanProduct(row interface{ Scan(...any) error }) (models.Product, error) {
	var p models.Product
	err := row.Scan(&p.ID, &p.Slug, &p.Name, &p.ShortDescription, &p.Price, &p.Type,
		&p.Category, &p.IsActive, &p.AccessDuration, &p.CreatedAt, &p.UpdatedAt)
	return p, err
}

func (s *Store) ListActiveProducts(ctx context.Context) ([]models.Product, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+productColumns+`
		FROM products WHERE is_active = true
		ORDER BY created_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var products []models.Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		products = append(products, p)
	}
	return products, rows.Err()
}

func (s *Store) FindActiveProducts(ctx context.Context, ids []string) ([]models.Product, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+productColumns+`
		FROM products WHERE is_active = true AND id = ANY($1)`, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var products []models.Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		products = append(products, p)
	}
	return products, rows.Err()
}

func (s *Store) GetProduct(ctx context.Context, id string) (models.Product, error) {
	p, err := scanProduct(s.pool.QueryRow(ctx, `
		SELECT `+productColumns+`
		FROM products WHERE id = $1`, id))
	return p, notFound(err)
}

func (s *Store) GetModule(ctx context.Context, id string) (models.ProductModule, error) {
	var m models.ProductModule
	err := s.pool.QueryRow(ctx, `
		SELECT id, product_id, title, COALESCE(description, ''), position, created_at, updated_at
		FROM product_modules WHERE id = $1`, id,
	).Scan(&m.ID, &m.ProductID, &m.Title, &m.Description, &m.Position, &m.CreatedAt, &m.UpdatedAt)
	return m, notFound(err)
}

func (s *Store) ListModules(ctx context.Context, productID string) ([]models.ProductModule, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, product_id, title, COALESCE(description, ''), position, created_at, updated_at
		FROM product_modules WHERE product_id = $1
		ORDER BY position, created_at`, productID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var modules []models.ProductModule
	for rows.Next() {
		var m models.ProductModule
		if err := rows.Scan(&m.ID, &m.ProductID, &m.Title, &m.Description, &m.Position, &m.CreatedAt, &m.UpdatedAt); err != nil {
			return nil, err
		}
		modules = append(modules, m)
	}
	return modules, rows.Err()
}

func (s *Store) GetMaterial(ctx context.Context, id string) (models.ProductMaterial, error) {
	var m models.ProductMaterial
	err := s.pool.QueryRow(ctx, `
		SELECT id, module_id, type, title, COALESCE(description, ''),
			COALESCE(video_url, ''), COALESCE(file_url, ''), COALESCE(file_name, ''),
			position, created_at, updated_at
		FROM product_materials WHERE id = $1`, id,
	).Scan(&m.ID, &m.ModuleID, &m.Type, &m.Title, &m.Description,
		&m.VideoURL, &m.FileURL, &m.FileName, &m.Position, &m.CreatedAt, &m.UpdatedAt)
	return m, notFound(err)
}

func (s *Store) ListMaterials(ctx context.Context, moduleID string) ([]models.ProductMaterial, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, module_id, type, title, COALESCE(description, ''),
			COALESCE(video_url, ''), COALESCE(file_url, ''), COALESCE(file_name, ''),
			position, created_at, updated_at
		FROM product_materials WHERE module_id = $1
		ORDER BY position, created_at`, moduleID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var materials []models.ProductMaterial
	for rows.Next() {
		var m models.ProductMaterial
		if err := rows.Scan(&m.ID, &m.ModuleID, &m.Type, &m.Title, &m.Description,
			&m.VideoURL, &m.FileURL, &m.FileName, &m.Position, &m.CreatedAt, &m.UpdatedAt); err != nil {
			return nil, err
		}
		materials = append(materials, m)
	}
	return materials, rows.Err()
}
