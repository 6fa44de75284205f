package store

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"storefront-service/internal/models"

	"github.com/shopspring/decimal"
)

// Memory is an in-process Repository used by tests and by local runs
// without Postgres. Transactions run one at a time against a copy of the
// data that replaces the original on commit.
type Memory struct {
	mu   sync.Mutex
	data *memData
	now  func() time.Time
}

var _ Repository = (*Memory)(nil)

type memData struct {
	seq        map[string]int64
	customers  []models.Customer
	categories []models.Category
	products   []models.Product
	bills      []models.Bill
	orders     []models.Order
	lines      []models.OrderLine
}

// NewMemory creates an empty in-memory repository
func NewMemory() *Memory {
	return &Memory{
		data: &memData{seq: make(map[string]int64)},
		now:  time.Now,
	}
}

func (d *memData) clone() *memData {
	c := &memData{
		seq:        make(map[string]int64, len(d.seq)),
		customers:  append([]models.Customer(nil), d.customers...),
		categories: append([]models.Category(nil), d.categories...),
		products:   append([]models.Product(nil), d.products...),
		bills:      append([]models.Bill(nil), d.bills...),
		orders:     append([]models.Order(nil), d.orders...),
		lines:      append([]models.OrderLine(nil), d.lines...),
	}
	for k, v := range d.seq {
		c.seq[k] = v
	}
	return c
}

func (d *memData) next(table string) int64 {
	d.seq[table]++
	return d.seq[table]
}

func (d *memData) hasOrder(id int64) bool {
	for _, o := range d.orders {
		if o.ID == id {
			return true
		}
	}
	return false
}

func (d *memData) hasProduct(id int64) bool {
	for _, p := range d.products {
		if p.ID == id {
			return true
		}
	}
	return false
}

// InTx runs fn against a copy of the data and keeps the copy only when fn
// succeeds.
func (m *Memory) InTx(ctx context.Context, fn func(Repository) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	tx := &Memory{data: m.data.clone(), now: m.now}
	if err := fn(tx); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	m.data = tx.data
	return nil
}

func (m *Memory) GetCategoryByID(_ context.Context, id int64) (*models.Category, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, c := range m.data.categories {
		if c.ID == id {
			return &c, nil
		}
	}
	return nil, fmt.Errorf("category %d: %w", id, models.ErrNotFound)
}

func (m *Memory) GetCategoryByName(_ context.Context, name string) (*models.Category, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, c := range m.data.categories {
		if c.Name == name {
			return &c, nil
		}
	}
	return nil, nil
}

func (m *Memory) GetCategoryByKey(_ context.Context, key string) (*models.Category, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, c := range m.data.categories {
		if c.NameKey == key {
			return &c, nil
		}
	}
	return nil, nil
}

func (m *Memory) CreateCategory(_ context.Context, c *models.Category) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.data.categories {
		if existing.NameKey == c.NameKey {
			return false, nil
		}
	}
	c.ID = m.data.next("categories")
	c.CreatedAt = m.now()
	m.data.categories = append(m.data.categories, *c)
	return true, nil
}

func (m *Memory) ListCategories(_ context.Context) ([]models.Category, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := append([]models.Category{}, m.data.categories...)
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (m *Memory) ReassignProducts(_ context.Context, fromCategoryID, toCategoryID int64) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for i := range m.data.products {
		if m.data.products[i].CategoryID == fromCategoryID {
			m.data.products[i].CategoryID = toCategoryID
			n++
		}
	}
	return n, nil
}

func (m *Memory) DeleteCategory(_ context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range m.data.products {
		if p.CategoryID == id {
			return fmt.Errorf("failed to delete category: category %d still has products", id)
		}
	}
	for i, c := range m.data.categories {
		if c.ID == id {
			m.data.categories = append(m.data.categories[:i], m.data.categories[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("category %d: %w", id, models.ErrNotFound)
}

func (m *Memory) GetProductByID(_ context.Context, id int64) (*models.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range m.data.products {
		if p.ID == id {
			return m.withCategory(p), nil
		}
	}
	return nil, fmt.Errorf("product %d: %w", id, models.ErrNotFound)
}

func (m *Memory) GetProductByName(_ context.Context, name string) (*models.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range m.data.products {
		if p.Name == name {
			return m.withCategory(p), nil
		}
	}
	return nil, nil
}

func (m *Memory) GetProductByKey(_ context.Context, key string) (*models.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range m.data.products {
		if p.NameKey == key {
			return m.withCategory(p), nil
		}
	}
	return nil, nil
}

func (m *Memory) CreateProduct(_ context.Context, p *models.Product) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.categoryExists(p.CategoryID) {
		return fmt.Errorf("failed to create product: unknown category %d", p.CategoryID)
	}
	p.ID = m.data.next("products")
	p.CreatedAt = m.now()
	stored := *p
	stored.CategoryName = nil
	m.data.products = append(m.data.products, stored)
	return nil
}

func (m *Memory) UpdateProduct(_ context.Context, p *models.Product) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.categoryExists(p.CategoryID) {
		return fmt.Errorf("failed to update product: unknown category %d", p.CategoryID)
	}
	for i := range m.data.products {
		if m.data.products[i].ID == p.ID {
			stored := *p
			stored.CategoryName = nil
			stored.CreatedAt = m.data.products[i].CreatedAt
			m.data.products[i] = stored
			return nil
		}
	}
	return fmt.Errorf("product %d: %w", p.ID, models.ErrNotFound)
}

func (m *Memory) DeleteProduct(_ context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, p := range m.data.products {
		if p.ID == id {
			m.data.products = append(m.data.products[:i], m.data.products[i+1:]...)
			for j := range m.data.lines {
				if l := m.data.lines[j].ProductID; l != nil && *l == id {
					m.data.lines[j].ProductID = nil
				}
			}
			return nil
		}
	}
	return fmt.Errorf("product %d: %w", id, models.ErrNotFound)
}

func (m *Memory) ListProducts(_ context.Context, filter ProductFilter) ([]models.Product, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	query := strings.ToLower(filter.Query)
	matched := []models.Product{}
	for _, p := range m.data.products {
		if query != "" && !strings.Contains(strings.ToLower(p.Name), query) {
			continue
		}
		if filter.CategoryID != nil && p.CategoryID != *filter.CategoryID {
			continue
		}
		if filter.MinPrice != nil && p.Price.LessThan(*filter.MinPrice) {
			continue
		}
		if filter.MaxPrice != nil && p.Price.GreaterThan(*filter.MaxPrice) {
			continue
		}
		if filter.InStock && p.Stock <= 0 {
			continue
		}
		matched = append(matched, *m.withCategory(p))
	}

	sort.SliceStable(matched, productLess(matched, filter.Sort))

	total := len(matched)
	if filter.Limit > 0 {
		start := filter.Offset
		if start > total {
			start = total
		}
		end := start + filter.Limit
		if end > total {
			end = total
		}
		matched = matched[start:end]
	}
	return matched, total, nil
}

func productLess(ps []models.Product, order string) func(i, j int) bool {
	byID := func(i, j int, asc bool) bool {
		if asc {
			return ps[i].ID < ps[j].ID
		}
		return ps[i].ID > ps[j].ID
	}
	switch order {
	case SortNameAsc:
		return func(i, j int) bool {
			if ps[i].Name != ps[j].Name {
				return ps[i].Name < ps[j].Name
			}
			return byID(i, j, true)
		}
	case SortNameDesc:
		return func(i, j int) bool {
			if ps[i].Name != ps[j].Name {
				return ps[i].Name > ps[j].Name
			}
			return byID(i, j, false)
		}
	case SortPriceAsc:
		return func(i, j int) bool {
			if c := ps[i].Price.Cmp(ps[j].Price); c != 0 {
				return c < 0
			}
			return byID(i, j, true)
		}
	case SortPriceDesc:
		return func(i, j int) bool {
			if c := ps[i].Price.Cmp(ps[j].Price); c != 0 {
				return c > 0
			}
			return byID(i, j, false)
		}
	default:
		return func(i, j int) bool { return byID(i, j, false) }
	}
}

func (m *Memory) GetCustomerByEmail(_ context.Context, email string) (*models.Customer, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if c := m.customerByEmail(email); c != nil {
		found := *c
		return &found, nil
	}
	return nil, nil
}

func (m *Memory) CreateCustomer(_ context.Context, c *models.Customer) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.customerByEmail(c.Email) != nil {
		return fmt.Errorf("customer %s: %w", c.Email, models.ErrConflict)
	}
	c.ID = m.data.next("customers")
	c.CreatedAt = m.now()
	m.data.customers = append(m.data.customers, *c)
	return nil
}

func (m *Memory) UpdateCustomerPassword(_ context.Context, email, passwordHash string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c := m.customerByEmail(email)
	if c == nil {
		return fmt.Errorf("customer %s: %w", email, models.ErrNotFound)
	}
	c.PasswordHash = passwordHash
	return nil
}

func (m *Memory) ListCustomerSummaries(_ context.Context) ([]models.CustomerSummary, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	summaries := []models.CustomerSummary{}
	for _, c := range m.data.customers {
		s := models.CustomerSummary{Email: c.Email, Name: c.Name, Total: decimal.Zero}
		for _, b := range m.data.bills {
			if b.CustomerID == c.ID {
				s.Total = s.Total.Add(b.Total)
				s.BillCount++
			}
		}
		if s.BillCount > 0 {
			summaries = append(summaries, s)
		}
	}
	sort.SliceStable(summaries, func(i, j int) bool { return summaries[i].Email < summaries[j].Email })
	return summaries, nil
}

func (m *Memory) CreateBill(_ context.Context, b *models.Bill) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.data.bills {
		if existing.BillNumber == b.BillNumber {
			return fmt.Errorf("bill %s: %w", b.BillNumber, models.ErrConflict)
		}
	}
	if m.customerByID(b.CustomerID) == nil {
		return fmt.Errorf("failed to create bill: unknown customer %d", b.CustomerID)
	}
	b.ID = m.data.next("bills")
	m.data.bills = append(m.data.bills, *b)
	return nil
}

func (m *Memory) CreateOrder(_ context.Context, o *models.Order) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.billByID(o.BillID) == nil {
		return fmt.Errorf("failed to create order: unknown bill %d", o.BillID)
	}
	for _, existing := range m.data.orders {
		if existing.BillID == o.BillID {
			return fmt.Errorf("failed to create order: bill %d already has an order", o.BillID)
		}
	}
	o.ID = m.data.next("orders")
	m.data.orders = append(m.data.orders, *o)
	return nil
}

func (m *Memory) CreateOrderLine(_ context.Context, l *models.OrderLine) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if l.Quantity < 1 {
		return fmt.Errorf("failed to create order line: quantity %d", l.Quantity)
	}
	if !m.data.hasOrder(l.OrderID) {
		return fmt.Errorf("failed to create order line: order %d: %w", l.OrderID, models.ErrNotFound)
	}
	if l.ProductID != nil && !m.data.hasProduct(*l.ProductID) {
		return fmt.Errorf("failed to create order line: product %d: %w", *l.ProductID, models.ErrNotFound)
	}
	if l.ProductName == nil {
		empty := ""
		l.ProductName = &empty
	}
	l.ID = m.data.next("order_lines")
	m.data.lines = append(m.data.lines, *l)
	return nil
}

func (m *Memory) GetOrderDetails(_ context.Context, orderID int64) (*models.OrderDetails, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, o := range m.data.orders {
		if o.ID == orderID {
			d := m.details(o)
			return &d, nil
		}
	}
	return nil, fmt.Errorf("order %d: %w", orderID, models.ErrNotFound)
}

func (m *Memory) GetOrderDetailsByBillID(_ context.Context, billID int64) (*models.OrderDetails, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, o := range m.data.orders {
		if o.BillID == billID {
			d := m.details(o)
			return &d, nil
		}
	}
	return nil, fmt.Errorf("bill %d: %w", billID, models.ErrNotFound)
}

func (m *Memory) ListOrderDetails(_ context.Context, email string) ([]models.OrderDetails, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var customerID int64
	if email != "" {
		c := m.customerByEmail(email)
		if c == nil {
			return []models.OrderDetails{}, nil
		}
		customerID = c.ID
	}

	out := []models.OrderDetails{}
	for _, o := range m.data.orders {
		if email == "" || o.CustomerID == customerID {
			out = append(out, m.details(o))
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i].Order, out[j].Order
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.After(b.CreatedAt)
		}
		return a.ID > b.ID
	})
	return out, nil
}

func (m *Memory) UpdateOrderStatus(_ context.Context, orderID int64, status models.Status) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.data.orders {
		if m.data.orders[i].ID == orderID {
			m.data.orders[i].Status = status
			return nil
		}
	}
	return fmt.Errorf("order %d: %w", orderID, models.ErrNotFound)
}

// helpers below expect m.mu to be held

func (m *Memory) withCategory(p models.Product) *models.Product {
	for _, c := range m.data.categories {
		if c.ID == p.CategoryID {
			name := c.Name
			p.CategoryName = &name
			break
		}
	}
	return &p
}

func (m *Memory) categoryExists(id int64) bool {
	for _, c := range m.data.categories {
		if c.ID == id {
			return true
		}
	}
	return false
}

func (m *Memory) customerByEmail(email string) *models.Customer {
	email = strings.ToLower(strings.TrimSpace(email))
	for i := range m.data.customers {
		if strings.ToLower(m.data.customers[i].Email) == email {
			return &m.data.customers[i]
		}
	}
	return nil
}

func (m *Memory) customerByID(id int64) *models.Customer {
	for i := range m.data.customers {
		if m.data.customers[i].ID == id {
			return &m.data.customers[i]
		}
	}
	return nil
}

func (m *Memory) billByID(id int64) *models.Bill {
	for i := range m.data.bills {
		if m.data.bills[i].ID == id {
			return &m.data.bills[i]
		}
	}
	return nil
}

func (m *Memory) details(o models.Order) models.OrderDetails {
	d := models.OrderDetails{Order: o}
	if b := m.billByID(o.BillID); b != nil {
		bill := *b
		d.Bill = &bill
	}
	if c := m.customerByID(o.CustomerID); c != nil {
		customer := *c
		d.Customer = &customer
	}
	for _, l := range m.data.lines {
		if l.OrderID != o.ID {
			continue
		}
		if l.ProductID != nil {
			for _, p := range m.data.products {
				if p.ID == *l.ProductID {
					name := p.Name
					l.ProductName = &name
					break
				}
			}
		}
		d.Lines = append(d.Lines, l)
	}
	return d
}
