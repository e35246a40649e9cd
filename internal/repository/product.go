package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/bigkaa/catalogstore/catalog-module/internal/domain/model"
)

// Ключи сортировки списка записей.
// Whitelist: значение подставляется в ORDER BY и обязано быть именем колонки.
const (
	SortByScheduledDate = "scheduled_date"
	SortByTitle         = "title"
	SortByStatus        = "status"
	SortByCreatedAt     = "created_at"
)

// sortColumns — допустимые ключи сортировки.
var sortColumns = map[string]bool{
	SortByScheduledDate: true,
	SortByTitle:         true,
	SortByStatus:        true,
	SortByCreatedAt:     true,
}

// ProductRepository — интерфейс CRUD для таблицы products.
type ProductRepository interface {
	// Create создаёт новую запись каталога.
	Create(ctx context.Context, p *model.Product) error
	// GetByID возвращает запись по UUID.
	GetByID(ctx context.Context, id string) (*model.Product, error)
	// List возвращает все записи каталога с сортировкой.
	List(ctx context.Context, sortKey, direction string) ([]*model.Product, error)
	// ListByOwner возвращает записи владельца с сортировкой.
	ListByOwner(ctx context.Context, ownerID, sortKey, direction string) ([]*model.Product, error)
	// Update обновляет мутируемые поля записи.
	Update(ctx context.Context, p *model.Product) error
	// Delete удаляет запись. Если ownerFilter != nil, удаление происходит
	// только при совпадении owner_id; иначе затрагивается 0 строк.
	// Возвращает количество удалённых строк.
	Delete(ctx context.Context, id string, ownerFilter *string) (int64, error)
	// AssetLocators возвращает локаторы ассетов всех живых записей
	// (для reconcile-обхода хранилища).
	AssetLocators(ctx context.Context) ([]string, error)
}

// productRepo — реализация ProductRepository.
type productRepo struct {
	db DBTX
}

// NewProductRepository создаёт репозиторий записей каталога.
func NewProductRepository(db DBTX) ProductRepository {
	return &productRepo{db: db}
}

// productColumns — список колонок для SELECT (единый порядок сканирования).
const productColumns = `id, owner_id, title, description, scheduled_date,
	status, asset_locator, asset_content_type, created_at, updated_at`

func (r *productRepo) Create(ctx context.Context, p *model.Product) error {
	query := `
		INSERT INTO products (id, owner_id, title, description, scheduled_date,
			status, asset_locator, asset_content_type)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING created_at, updated_at`

	err := r.db.QueryRow(ctx, query,
		p.ID, p.OwnerID, p.Title, p.Description, p.ScheduledDate,
		p.Status, p.AssetLocator, p.AssetContentType,
	).Scan(&p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: запись с таким ID уже существует", ErrConflict)
		}
		return fmt.Errorf("ошибка создания записи: %w", err)
	}
	return nil
}

func (r *productRepo) GetByID(ctx context.Context, id string) (*model.Product, error) {
	query := `SELECT ` + productColumns + ` FROM products WHERE id = $1`

	p := &model.Product{}
	err := r.db.QueryRow(ctx, query, id).Scan(
		&p.ID, &p.OwnerID, &p.Title, &p.Description, &p.ScheduledDate,
		&p.Status, &p.AssetLocator, &p.AssetContentType, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("ошибка получения записи: %w", err)
	}
	return p, nil
}

func (r *productRepo) List(ctx context.Context, sortKey, direction string) ([]*model.Product, error) {
	query := `SELECT ` + productColumns + ` FROM products ` + orderClause(sortKey, direction)

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("ошибка списка записей: %w", err)
	}
	defer rows.Close()

	return scanProducts(rows)
}

func (r *productRepo) ListByOwner(ctx context.Context, ownerID, sortKey, direction string) ([]*model.Product, error) {
	query := `SELECT ` + productColumns + ` FROM products WHERE owner_id = $1 ` +
		orderClause(sortKey, direction)

	rows, err := r.db.Query(ctx, query, ownerID)
	if err != nil {
		return nil, fmt.Errorf("ошибка списка записей владельца: %w", err)
	}
	defer rows.Close()

	return scanProducts(rows)
}

func (r *productRepo) Update(ctx context.Context, p *model.Product) error {
	// owner_id не обновляется: неизменяем после создания.
	query := `
		UPDATE products
		SET title = $2, description = $3, scheduled_date = $4, status = $5,
			asset_locator = $6, asset_content_type = $7, updated_at = now()
		WHERE id = $1
		RETURNING updated_at`

	err := r.db.QueryRow(ctx, query,
		p.ID, p.Title, p.Description, p.ScheduledDate, p.Status,
		p.AssetLocator, p.AssetContentType,
	).Scan(&p.UpdatedAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			return ErrNotFound
		}
		return fmt.Errorf("ошибка обновления записи: %w", err)
	}
	return nil
}

func (r *productRepo) Delete(ctx context.Context, id string, ownerFilter *string) (int64, error) {
	query := `DELETE FROM products WHERE id = $1`
	args := []any{id}

	if ownerFilter != nil {
		query += ` AND owner_id = $2`
		args = append(args, *ownerFilter)
	}

	tag, err := r.db.Exec(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("ошибка удаления записи: %w", err)
	}
	return tag.RowsAffected(), nil
}

func (r *productRepo) AssetLocators(ctx context.Context) ([]string, error) {
	rows, err := r.db.Query(ctx, `SELECT asset_locator FROM products`)
	if err != nil {
		return nil, fmt.Errorf("ошибка выборки локаторов: %w", err)
	}
	defer rows.Close()

	var locators []string
	for rows.Next() {
		var l string
		if err := rows.Scan(&l); err != nil {
			return nil, fmt.Errorf("ошибка сканирования локатора: %w", err)
		}
		locators = append(locators, l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ошибка обхода локаторов: %w", err)
	}
	return locators, nil
}

// orderClause строит ORDER BY из whitelisted ключа сортировки и направления.
// Неизвестный ключ заменяется на scheduled_date, направление — на ASC.
func orderClause(sortKey, direction string) string {
	if !sortColumns[sortKey] {
		sortKey = SortByScheduledDate
	}
	dir := "ASC"
	if strings.EqualFold(direction, "desc") {
		dir = "DESC"
	}
	return fmt.Sprintf("ORDER BY %s %s", sortKey, dir)
}

// scanProducts сканирует строки в слайс записей.
func scanProducts(rows pgx.Rows) ([]*model.Product, error) {
	var products []*model.Product
	for rows.Next() {
		p := &model.Product{}
		err := rows.Scan(
			&p.ID, &p.OwnerID, &p.Title, &p.Description, &p.ScheduledDate,
			&p.Status, &p.AssetLocator, &p.AssetContentType, &p.CreatedAt, &p.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("ошибка сканирования записи: %w", err)
		}
		products = append(products, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ошибка обхода записей: %w", err)
	}
	return products, nil
}
