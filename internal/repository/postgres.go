// Package repository содержит реализации хранилища записей витрины магазина.
package repository

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"

	"github.com/mmeshcher/storefront/internal/model"
	"github.com/mmeshcher/storefront/internal/validation"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// querier объединяет общие методы пула соединений и транзакции.
type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresRepository предоставляет доступ к хранилищу данных в PostgreSQL.
type PostgresRepository struct {
	pool   *pgxpool.Pool
	delays []time.Duration
}

// NewPostgresRepository создаёт новый репозиторий и инициализирует схему БД через миграции.
func NewPostgresRepository(ctx context.Context, dsn string) (*PostgresRepository, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse pool config: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	r := &PostgresRepository{
		pool:   pool,
		delays: []time.Duration{100 * time.Millisecond, 300 * time.Millisecond, 1 * time.Second},
	}

	if err := r.runMigrations(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	return r, nil
}

func (r *PostgresRepository) runMigrations(ctx context.Context) error {
	db := stdlib.OpenDBFromPool(r.pool)
	defer db.Close()

	goose.SetBaseFS(migrationsFS)

	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("set dialect: %w", err)
	}

	if err := goose.UpContext(ctx, db, "migrations"); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}

	return nil
}

// withRetry повторяет fn при конфликтах сериализации, взаимных блокировках и обрывах соединения.
func (r *PostgresRepository) withRetry(ctx context.Context, fn func() error) error {
	var err error

	for i := 0; i <= len(r.delays); i++ {
		err = fn()
		if err == nil {
			return nil
		}

		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return err
		}

		if !isRetryable(err) || i == len(r.delays) {
			break
		}

		timer := time.NewTimer(r.delays[i])
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
	return err
}

func isRetryable(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == pgerrcode.SerializationFailure || pgErr.Code == pgerrcode.DeadlockDetected
	}
	return isConnectionError(err)
}

func isConnectionError(err error) bool {
	return strings.Contains(err.Error(), "connection refused") ||
		strings.Contains(err.Error(), "broken pipe") ||
		strings.Contains(err.Error(), "connection reset by peer")
}

func pgErrorCode(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code
	}
	return ""
}

// Ping проверяет доступность БД.
func (r *PostgresRepository) Ping(ctx context.Context) error {
	return r.pool.Ping(ctx)
}

// Close закрывает пул соединений с БД.
func (r *PostgresRepository) Close() error {
	r.pool.Close()
	return nil
}

// CreateUser создаёт нового пользователя.
func (r *PostgresRepository) CreateUser(ctx context.Context, username, email, passwordHash string) (*model.User, error) {
	u := &model.User{
		ID:           validation.NewObjectID(),
		Username:     username,
		Email:        email,
		PasswordHash: passwordHash,
	}

	err := r.pool.QueryRow(ctx,
		`INSERT INTO users (id, username, email, password_hash) VALUES ($1, $2, $3, $4) RETURNING created_at`,
		u.ID, u.Username, u.Email, u.PasswordHash,
	).Scan(&u.CreatedAt)
	if err != nil {
		if pgErrorCode(err) == pgerrcode.UniqueViolation {
			return nil, fmt.Errorf("%w: %s", ErrUserExists, username)
		}
		return nil, fmt.Errorf("create user: %w", err)
	}

	return u, nil
}

// GetUserByEmail возвращает пользователя по email без учёта регистра.
func (r *PostgresRepository) GetUserByEmail(ctx context.Context, email string) (*model.User, error) {
	return r.getUser(ctx, `WHERE lower(email) = lower($1)`, email)
}

// GetUserByID возвращает пользователя по идентификатору.
func (r *PostgresRepository) GetUserByID(ctx context.Context, id string) (*model.User, error) {
	return r.getUser(ctx, `WHERE id = $1`, id)
}

func (r *PostgresRepository) getUser(ctx context.Context, where string, arg string) (*model.User, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT id, username, email, password_hash, created_at FROM users `+where,
		arg,
	)

	var u model.User
	err := row.Scan(&u.ID, &u.Username, &u.Email, &u.PasswordHash, &u.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("get user: %w", err)
	}

	return &u, nil
}

const categorySelect = `SELECT c.id, c.slug, c.name, c.description, c.image, c.created_at,
	(SELECT COUNT(*) FROM products p WHERE p.category_id = c.id)
	FROM categories c`

func scanCategory(row pgx.Row) (model.Category, error) {
	var c model.Category
	err := row.Scan(&c.ID, &c.Slug, &c.Name, &c.Description, &c.Image, &c.CreatedAt, &c.ProductCount)
	return c, err
}

// ListCategories возвращает все категории с количеством товаров в каждой.
func (r *PostgresRepository) ListCategories(ctx context.Context) ([]model.Category, error) {
	rows, err := r.pool.Query(ctx, categorySelect+` ORDER BY c.name`)
	if err != nil {
		return nil, fmt.Errorf("select categories: %w", err)
	}
	defer rows.Close()

	var res []model.Category
	for rows.Next() {
		c, err := scanCategory(rows)
		if err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		res = append(res, c)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return res, nil
}

// GetCategoryBySlug возвращает категорию по её slug.
func (r *PostgresRepository) GetCategoryBySlug(ctx context.Context, slug string) (*model.Category, error) {
	c, err := scanCategory(r.pool.QueryRow(ctx, categorySelect+` WHERE c.slug = $1`, slug))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrCategoryNotFound
		}
		return nil, fmt.Errorf("get category: %w", err)
	}
	return &c, nil
}

// CreateCategory сохраняет новую категорию. Пустой идентификатор генерируется.
func (r *PostgresRepository) CreateCategory(ctx context.Context, c *model.Category) error {
	if c.ID == "" {
		c.ID = validation.NewObjectID()
	}

	err := r.pool.QueryRow(ctx,
		`INSERT INTO categories (id, slug, name, description, image) VALUES ($1, $2, $3, $4, $5) RETURNING created_at`,
		c.ID, c.Slug, c.Name, c.Description, c.Image,
	).Scan(&c.CreatedAt)
	if err != nil {
		if pgErrorCode(err) == pgerrcode.UniqueViolation {
			return fmt.Errorf("%w: %s", ErrCategoryExists, c.Slug)
		}
		return fmt.Errorf("create category: %w", err)
	}

	return nil
}

const productColumns = `p.id, p.name, p.price, p.description, p.category_id, p.images, p.sizes, p.colors,
	p.features, p.stock, p.rating, p.num_reviews, p.created_at,
	c.id, c.slug, c.name, c.description, c.image, c.created_at`

const productSelect = `SELECT ` + productColumns + `
	FROM products p JOIN categories c ON c.id = p.category_id`

// scanProduct читает товар вместе с категорией; extra получает дополнительные колонки перед товарными.
func scanProduct(row pgx.Row, extra ...any) (model.Product, error) {
	var (
		p     model.Product
		c     model.Category
		price int64
	)

	dest := append(extra,
		&p.ID, &p.Name, &price, &p.Description, &p.CategoryID, &p.Images, &p.Sizes, &p.Colors,
		&p.Features, &p.Stock, &p.Rating, &p.NumReviews, &p.CreatedAt,
		&c.ID, &c.Slug, &c.Name, &c.Description, &c.Image, &c.CreatedAt,
	)
	if err := row.Scan(dest...); err != nil {
		return model.Product{}, err
	}

	p.Price = model.FromCents(price)
	p.Category = &c
	return p, nil
}

// ListProducts возвращает товары с категориями. Непустой categorySlug ограничивает выборку одной категорией.
func (r *PostgresRepository) ListProducts(ctx context.Context, categorySlug string) ([]model.Product, error) {
	query := productSelect
	var args []any
	if categorySlug != "" {
		query += ` WHERE c.slug = $1`
		args = append(args, categorySlug)
	}
	query += ` ORDER BY p.created_at, p.id`

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("select products: %w", err)
	}
	defer rows.Close()

	var res []model.Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("scan product: %w", err)
		}
		res = append(res, p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return res, nil
}

// GetProduct возвращает товар по идентификатору.
func (r *PostgresRepository) GetProduct(ctx context.Context, id string) (*model.Product, error) {
	p, err := scanProduct(r.pool.QueryRow(ctx, productSelect+` WHERE p.id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", ErrProductNotFound, id)
		}
		return nil, fmt.Errorf("get product: %w", err)
	}
	return &p, nil
}

// CountProducts возвращает количество товаров в каталоге.
func (r *PostgresRepository) CountProducts(ctx context.Context) (int, error) {
	var n int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM products`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count products: %w", err)
	}
	return n, nil
}

// CreateProduct сохраняет новый товар и возвращает его с заполненной категорией.
func (r *PostgresRepository) CreateProduct(ctx context.Context, p *model.Product) (*model.Product, error) {
	if p.ID == "" {
		p.ID = validation.NewObjectID()
	}

	_, err := r.pool.Exec(ctx,
		`INSERT INTO products (id, name, price, description, category_id, images, sizes, colors, features, stock, rating, num_reviews)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		p.ID, p.Name, model.ToCents(p.Price), p.Description, p.CategoryID,
		nonNil(p.Images), nonNil(p.Sizes), nonNil(p.Colors), nonNil(p.Features),
		p.Stock, p.Rating, p.NumReviews,
	)
	if err != nil {
		switch pgErrorCode(err) {
		case pgerrcode.ForeignKeyViolation:
			return nil, fmt.Errorf("%w: %s", ErrCategoryNotFound, p.CategoryID)
		case pgerrcode.UniqueViolation:
			return nil, fmt.Errorf("%w: %s", ErrProductExists, p.ID)
		}
		return nil, fmt.Errorf("create product: %w", err)
	}

	return r.GetProduct(ctx, p.ID)
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

// PlaceOrder резервирует остатки и сохраняет заказ в одной транзакции.
//
// Все товары заказа блокируются (SELECT ... FOR UPDATE) в порядке возрастания
// идентификаторов, после чего build проверяет остатки и собирает заказ.
// Любая ошибка откатывает и списание, и заказ целиком.
func (r *PostgresRepository) PlaceOrder(ctx context.Context, userID string, lines []model.OrderLine, build BuildOrderFunc) (*model.Order, error) {
	var order *model.Order
	err := r.withRetry(ctx, func() error {
		o, err := r.placeOrder(ctx, userID, lines, build)
		if err != nil {
			return err
		}
		order = o
		return nil
	})
	if err != nil {
		return nil, err
	}
	return order, nil
}

func (r *PostgresRepository) placeOrder(ctx context.Context, userID string, lines []model.OrderLine, build BuildOrderFunc) (*model.Order, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	ids := make([]string, 0, len(lines))
	seen := make(map[string]struct{}, len(lines))
	for _, l := range lines {
		if _, ok := seen[l.ProductID]; ok {
			continue
		}
		seen[l.ProductID] = struct{}{}
		ids = append(ids, l.ProductID)
	}
	sort.Strings(ids)

	rows, err := tx.Query(ctx,
		productSelect+` WHERE p.id = ANY($1) ORDER BY p.id FOR UPDATE OF p`,
		ids,
	)
	if err != nil {
		return nil, fmt.Errorf("lock products: %w", err)
	}

	products := make(map[string]model.Product, len(ids))
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan product: %w", err)
		}
		products[p.ID] = p
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	order, err := build(products)
	if err != nil {
		return nil, err
	}

	reserved, err := reservations(order.Items)
	if err != nil {
		return nil, err
	}
	remaining := make(map[string]int, len(reserved))
	for _, id := range ids {
		qty, ok := reserved[id]
		if !ok {
			continue
		}

		var stock int
		err := tx.QueryRow(ctx,
			`UPDATE products SET stock = stock - $2 WHERE id = $1 AND stock >= $2 RETURNING stock`,
			id, qty,
		).Scan(&stock)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return nil, fmt.Errorf("%w: %s", ErrStockConflict, id)
			}
			return nil, fmt.Errorf("update stock: %w", err)
		}
		remaining[id] = stock
	}

	order.ID = validation.NewObjectID()
	order.UserID = userID
	a := order.ShippingAddress

	err = tx.QueryRow(ctx,
		`INSERT INTO orders (id, user_id, full_name, address, city, state, postal_code, country, payment_method, payment_status, total_amount)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		 RETURNING created_at`,
		order.ID, order.UserID, a.FullName, a.Address, a.City, a.State, a.PostalCode, a.Country,
		string(order.PaymentMethod), string(order.PaymentStatus), model.ToCents(order.TotalAmount),
	).Scan(&order.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("insert order: %w", err)
	}

	batch := &pgx.Batch{}
	for i, it := range order.Items {
		batch.Queue(
			`INSERT INTO order_items (order_id, position, product_id, quantity, price) VALUES ($1, $2, $3, $4, $5)`,
			order.ID, i, it.ProductID, it.Quantity, model.ToCents(it.Price),
		)
	}
	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return nil, fmt.Errorf("insert order items: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}

	for i := range order.Items {
		if p := order.Items[i].Product; p != nil {
			p.Stock = remaining[p.ID]
		}
	}

	return order, nil
}

const orderSelect = `SELECT id, user_id, full_name, address, city, state, postal_code, country,
	payment_method, payment_status, total_amount, created_at
	FROM orders`

func scanOrder(row pgx.Row) (model.Order, error) {
	var (
		o             model.Order
		a             = &o.ShippingAddress
		method, state string
		total         int64
	)
	err := row.Scan(&o.ID, &o.UserID, &a.FullName, &a.Address, &a.City, &a.State, &a.PostalCode, &a.Country,
		&method, &state, &total, &o.CreatedAt)
	if err != nil {
		return model.Order{}, err
	}
	o.PaymentMethod = model.PaymentMethod(method)
	o.PaymentStatus = model.PaymentStatus(state)
	o.TotalAmount = model.FromCents(total)
	return o, nil
}

// GetOrdersByUser возвращает заказы пользователя от новых к старым с товарами в позициях.
func (r *PostgresRepository) GetOrdersByUser(ctx context.Context, userID string) ([]model.Order, error) {
	rows, err := r.pool.Query(ctx,
		orderSelect+` WHERE user_id = $1 ORDER BY created_at DESC, id DESC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("select orders: %w", err)
	}
	defer rows.Close()

	var orders []model.Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("scan order: %w", err)
		}
		orders = append(orders, o)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	if len(orders) == 0 {
		return orders, nil
	}

	ids := make([]string, 0, len(orders))
	for _, o := range orders {
		ids = append(ids, o.ID)
	}

	items, err := loadOrderItems(ctx, r.pool, ids)
	if err != nil {
		return nil, err
	}
	for i := range orders {
		orders[i].Items = items[orders[i].ID]
	}

	return orders, nil
}

// GetOrder возвращает заказ пользователя по идентификатору.
func (r *PostgresRepository) GetOrder(ctx context.Context, userID, orderID string) (*model.Order, error) {
	o, err := scanOrder(r.pool.QueryRow(ctx, orderSelect+` WHERE id = $1 AND user_id = $2`, orderID, userID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("get order: %w", err)
	}

	items, err := loadOrderItems(ctx, r.pool, []string{o.ID})
	if err != nil {
		return nil, err
	}
	o.Items = items[o.ID]

	return &o, nil
}

func loadOrderItems(ctx context.Context, q querier, orderIDs []string) (map[string][]model.OrderItem, error) {
	rows, err := q.Query(ctx,
		`SELECT oi.order_id, oi.quantity, oi.price, `+productColumns+`
		 FROM order_items oi
		 JOIN products p ON p.id = oi.product_id
		 JOIN categories c ON c.id = p.category_id
		 WHERE oi.order_id = ANY($1)
		 ORDER BY oi.order_id, oi.position`,
		orderIDs,
	)
	if err != nil {
		return nil, fmt.Errorf("select order items: %w", err)
	}
	defer rows.Close()

	res := make(map[string][]model.OrderItem, len(orderIDs))
	for rows.Next() {
		var (
			orderID  string
			quantity int
			price    int64
		)
		p, err := scanProduct(rows, &orderID, &quantity, &price)
		if err != nil {
			return nil, fmt.Errorf("scan order item: %w", err)
		}

		res[orderID] = append(res[orderID], model.OrderItem{
			ProductID: p.ID,
			Product:   &p,
			Quantity:  quantity,
			Price:     model.FromCents(price),
		})
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return res, nil
}
