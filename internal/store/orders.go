package store

import (
	"context"
	"fmt"

	"storefront-service/internal/models"

	"github.com/jmoiron/sqlx"
)

const orderSelect = `
	SELECT o.id, o.created_at, o.total, o.delivery_method, o.status, o.customer_id, o.bill_id,
	       b.id AS "bill.id", b.bill_number AS "bill.bill_number", b.discount AS "bill.discount",
	       b.issued_on AS "bill.issued_on", b.total AS "bill.total",
	       b.payment_method AS "bill.payment_method", b.customer_id AS "bill.customer_id",
	       c.id AS "customer.id", c.name AS "customer.name", c.email AS "customer.email",
	       c.phone AS "customer.phone", c.created_at AS "customer.created_at"
	FROM orders o
	JOIN bills b ON b.id = o.bill_id
	JOIN customers c ON c.id = o.customer_id`

type orderRow struct {
	models.Order
	Bill     models.Bill     `db:"bill"`
	Customer models.Customer `db:"customer"`
}

// CreateBill creates a new bill
func (s *Store) CreateBill(ctx context.Context, b *models.Bill) error {
	query := `
		INSERT INTO bills (bill_number, discount, issued_on, total, payment_method, customer_id)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id`

	err := s.q.GetContext(ctx, &b.ID, query,
		b.BillNumber, b.Discount, b.IssuedOn, b.Total, b.PaymentMethod, b.CustomerID)
	if isUniqueViolation(err) {
		return fmt.Errorf("bill %s: %w", b.BillNumber, models.ErrConflict)
	}
	if err != nil {
		return fmt.Errorf("failed to create bill: %w", err)
	}
	return nil
}

// CreateOrder creates a new order
func (s *Store) CreateOrder(ctx context.Context, o *models.Order) error {
	query := `
		INSERT INTO orders (created_at, total, delivery_method, status, customer_id, bill_id)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id`

	err := s.q.GetContext(ctx, &o.ID, query,
		o.CreatedAt, o.Total, o.DeliveryMethod, o.Status, o.CustomerID, o.BillID)
	if err != nil {
		return fmt.Errorf("failed to create order: %w", err)
	}
	return nil
}

// CreateOrderLine creates a new order line
func (s *Store) CreateOrderLine(ctx context.Context, l *models.OrderLine) error {
	query := `
		INSERT INTO order_lines (order_id, product_id, product_name, quantity, unit_price)
		VALUES ($1, $2, COALESCE($3, ''), $4, $5)
		RETURNING id`

	err := s.q.GetContext(ctx, &l.ID, query, l.OrderID, l.ProductID, l.ProductName, l.Quantity, l.UnitPrice)
	if err != nil {
		return fmt.Errorf("failed to create order line: %w", err)
	}
	return nil
}

// GetOrderDetails loads an order with its bill, customer and lines
func (s *Store) GetOrderDetails(ctx context.Context, orderID int64) (*models.OrderDetails, error) {
	return s.getDetails(ctx, orderSelect+" WHERE o.id = $1", "order", orderID)
}

// GetOrderDetailsByBillID loads the order attached to a bill
func (s *Store) GetOrderDetailsByBillID(ctx context.Context, billID int64) (*models.OrderDetails, error) {
	return s.getDetails(ctx, orderSelect+" WHERE o.bill_id = $1", "bill", billID)
}

// ListOrderDetails retrieves orders newest first, optionally for one customer
func (s *Store) ListOrderDetails(ctx context.Context, email string) ([]models.OrderDetails, error) {
	var rows []orderRow
	var err error
	if email == "" {
		err = s.q.SelectContext(ctx, &rows, orderSelect+" ORDER BY o.created_at DESC, o.id DESC")
	} else {
		err = s.q.SelectContext(ctx, &rows,
			orderSelect+" WHERE lower(c.email) = lower($1) ORDER BY o.created_at DESC, o.id DESC", email)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to list orders: %w", err)
	}
	return s.attachLines(ctx, rows)
}

// UpdateOrderStatus updates order status
func (s *Store) UpdateOrderStatus(ctx context.Context, orderID int64, status models.Status) error {
	res, err := s.q.ExecContext(ctx, "UPDATE orders SET status = $1 WHERE id = $2", status, orderID)
	if err != nil {
		return fmt.Errorf("failed to update order status: %w", err)
	}
	return requireAffected(res, "order", orderID)
}

func (s *Store) getDetails(ctx context.Context, query, what string, id int64) (*models.OrderDetails, error) {
	var row orderRow
	found, err := s.getOne(ctx, &row, query, id)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, fmt.Errorf("%s %d: %w", what, id, models.ErrNotFound)
	}

	details, err := s.attachLines(ctx, []orderRow{row})
	if err != nil {
		return nil, err
	}
	return &details[0], nil
}

// attachLines loads the lines of every row in one query
func (s *Store) attachLines(ctx context.Context, rows []orderRow) ([]models.OrderDetails, error) {
	details := make([]models.OrderDetails, 0, len(rows))
	if len(rows) == 0 {
		return details, nil
	}

	ids := make([]int64, len(rows))
	for i, r := range rows {
		ids[i] = r.Order.ID
	}

	query, args, err := sqlx.In(`
		SELECT l.id, l.order_id, l.product_id, COALESCE(p.name, l.product_name) AS product_name, l.quantity, l.unit_price
		FROM order_lines l
		LEFT JOIN products p ON p.id = l.product_id
		WHERE l.order_id IN (?)
		ORDER BY l.id`, ids)
	if err != nil {
		return nil, err
	}

	var lines []models.OrderLine
	if err := s.q.SelectContext(ctx, &lines, s.q.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("failed to load order lines: %w", err)
	}

	byOrder := make(map[int64][]models.OrderLine, len(rows))
	for _, l := range lines {
		byOrder[l.OrderID] = append(byOrder[l.OrderID], l)
	}

	for _, r := range rows {
		bill := r.Bill
		customer := r.Customer
		details = append(details, models.OrderDetails{
			Order:    r.Order,
			Bill:     &bill,
			Customer: &customer,
			Lines:    byOrder[r.Order.ID],
		})
	}
	return details, nil
}
