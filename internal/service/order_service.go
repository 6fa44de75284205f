package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"storefront-service/internal/models"
	"storefront-service/internal/notify"
	"storefront-service/internal/store"
	"storefront-service/internal/textkey"
	"storefront-service/internal/util"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const (
	defaultCustomerName  = "Customer"
	defaultCustomerPhone = "0000000"
)

// Dispatcher hands notifications off without waiting for delivery
type Dispatcher interface {
	Dispatch(n *models.Notification)
}

// OrderService records purchases: customer, bill, order and lines
type OrderService struct {
	repo       store.Repository
	catalog    *CatalogService
	dispatcher Dispatcher
	numbers    *BillNumberer
	now        func() time.Time
	logger     *zap.Logger
}

// NewOrderService creates a new order service
func NewOrderService(repo store.Repository, catalog *CatalogService, dispatcher Dispatcher) *OrderService {
	if dispatcher == nil {
		dispatcher = notify.NewDispatcher(nil, 0)
	}
	return &OrderService{
		repo:       repo,
		catalog:    catalog,
		dispatcher: dispatcher,
		numbers:    NewBillNumberer(time.Now),
		now:        time.Now,
		logger:     util.GetLogger(),
	}
}

// LineItem is one purchased product as sent by the storefront
type LineItem struct {
	Name     string          `json:"name"`
	Quantity int             `json:"quantity"`
	Price    decimal.Decimal `json:"price"`
}

// CreateOrderRequest represents a checkout
type CreateOrderRequest struct {
	Email string           `json:"email" binding:"required"`
	Name  string           `json:"name"`
	Lines []LineItem       `json:"products"`
	Total *decimal.Decimal `json:"total"`
}

// ReceiptLine is a line as shown on a receipt
type ReceiptLine struct {
	Name     string          `json:"name"`
	Quantity int             `json:"quantity"`
	Price    decimal.Decimal `json:"price"`
}

// Receipt is the projection of an order returned to clients
type Receipt struct {
	ID         string          `json:"id"`
	Email      string          `json:"email"`
	Name       string          `json:"name"`
	Products   []ReceiptLine   `json:"products"`
	Total      decimal.Decimal `json:"total"`
	Date       string          `json:"date"`
	Time       string          `json:"time"`
	Status     string          `json:"status"`
	BillNumber string          `json:"bill_number,omitempty"`
}

// CreateOrder records a purchase and returns its receipt. The customer is
// upserted first; bill, order and lines are written in one transaction.
// The notification goes out only after commit and never fails the order.
func (s *OrderService) CreateOrder(ctx context.Context, req *CreateOrderRequest) (*Receipt, error) {
	ctx, span := util.StartSpan(ctx, "OrderService.CreateOrder")
	defer span.End()

	started := time.Now()
	defer func() { util.OrderCreateLatency.Observe(time.Since(started).Seconds()) }()

	email := strings.ToLower(strings.TrimSpace(req.Email))
	if email == "" {
		util.OrdersFailedTotal.WithLabelValues("validation").Inc()
		return nil, fmt.Errorf("%w: email is required", models.ErrValidation)
	}
	name := textkey.Clean(req.Name)
	if name == "" {
		name = defaultCustomerName
	}

	customer, err := s.upsertCustomer(ctx, email, name)
	if err != nil {
		util.OrdersFailedTotal.WithLabelValues("customer").Inc()
		return nil, util.RecordError(span, fmt.Errorf("failed to upsert customer: %w", err))
	}

	declared := decimal.Zero
	if req.Total != nil {
		declared = *req.Total
	}

	var orderID int64
	var created int
	err = s.repo.InTx(ctx, func(tx store.Repository) error {
		now := s.now()
		bill := &models.Bill{
			BillNumber:    s.numbers.Next(),
			Discount:      decimal.Zero,
			IssuedOn:      now,
			Total:         declared,
			PaymentMethod: models.PaymentMethodCard,
			CustomerID:    customer.ID,
		}
		if err := tx.CreateBill(ctx, bill); err != nil {
			return err
		}

		order := &models.Order{
			CreatedAt:      now,
			Total:          req.Total,
			DeliveryMethod: models.DeliveryMethodHome,
			Status:         models.StatusPending,
			CustomerID:     customer.ID,
			BillID:         bill.ID,
		}
		if err := tx.CreateOrder(ctx, order); err != nil {
			return err
		}

		for _, item := range req.Lines {
			itemName := textkey.Clean(item.Name)
			line := &models.OrderLine{
				OrderID:     order.ID,
				ProductName: &itemName,
				Quantity:    floorQuantity(item.Quantity),
				UnitPrice:   item.Price,
			}

			// An unnamed line is kept without a product reference.
			if itemName != "" {
				product, isNew, err := s.catalog.resolveProduct(ctx, tx, itemName, item.Price)
				if err != nil {
					return fmt.Errorf("resolve product %q: %w", itemName, err)
				}
				if isNew {
					created++
				}
				line.ProductID = &product.ID
				line.ProductName = &product.Name
			}

			if err := tx.CreateOrderLine(ctx, line); err != nil {
				return err
			}
		}

		orderID = order.ID
		return nil
	})
	if err != nil {
		util.OrdersFailedTotal.WithLabelValues("db_error").Inc()
		return nil, util.RecordError(span, fmt.Errorf("failed to create order: %w", err))
	}

	util.OrdersCreatedTotal.Inc()
	util.ProductsAutoCreatedTotal.Add(float64(created))

	details, err := s.repo.GetOrderDetails(ctx, orderID)
	if err != nil {
		return nil, util.RecordError(span, fmt.Errorf("failed to reload order: %w", err))
	}
	receipt := s.Receipt(details)

	s.logger.Info("Order created",
		zap.Int64("order_id", orderID),
		zap.String("bill_number", receipt.BillNumber),
		zap.String("email", email),
		zap.Int("lines", len(req.Lines)),
		zap.Int("products_created", created))

	s.dispatcher.Dispatch(notify.NewNotification(models.EventTypeOrderPlaced, email,
		orderPlacedPayload(name, receipt, req.Lines, declared)))

	return &receipt, nil
}

// ListReceipts returns a customer's receipts, newest first
func (s *OrderService) ListReceipts(ctx context.Context, email string) ([]Receipt, error) {
	ctx, span := util.StartSpan(ctx, "OrderService.ListReceipts")
	defer span.End()

	email = strings.TrimSpace(email)
	if email == "" {
		return nil, fmt.Errorf("%w: email is required", models.ErrValidation)
	}
	return s.listReceipts(ctx, email)
}

// ListAllReceipts returns every receipt, newest first
func (s *OrderService) ListAllReceipts(ctx context.Context) ([]Receipt, error) {
	ctx, span := util.StartSpan(ctx, "OrderService.ListAllReceipts")
	defer span.End()

	return s.listReceipts(ctx, "")
}

// ListCustomerSummaries returns purchase totals for customers with bills
func (s *OrderService) ListCustomerSummaries(ctx context.Context) ([]models.CustomerSummary, error) {
	ctx, span := util.StartSpan(ctx, "OrderService.ListCustomerSummaries")
	defer span.End()

	summaries, err := s.repo.ListCustomerSummaries(ctx)
	if err != nil {
		return nil, util.RecordError(span, err)
	}
	for i := range summaries {
		if summaries[i].Name == "" {
			summaries[i].Name = defaultCustomerName
		}
	}
	return summaries, nil
}

// UpdateStatus sets the status of the order attached to billID from an
// administrative label. Unknown labels fall back to UnknownLabelPolicy and
// transitions are not enforced; both cases are logged.
func (s *OrderService) UpdateStatus(ctx context.Context, billID int64, label string) (*Receipt, error) {
	ctx, span := util.StartSpan(ctx, "OrderService.UpdateStatus")
	defer span.End()

	details, err := s.repo.GetOrderDetailsByBillID(ctx, billID)
	if err != nil {
		return nil, util.RecordError(span, err)
	}

	status, known := models.StatusFromLabel(label)
	if !known {
		util.UnknownStatusLabelsTotal.Inc()
		s.logger.Warn("Unknown status label, applying default",
			zap.Int64("bill_id", billID),
			zap.String("label", label),
			zap.String("status", string(status)))
	}

	from := details.Order.Status
	if !models.CanTransition(from, status) {
		s.logger.Warn("Unusual status transition",
			zap.Int64("bill_id", billID),
			zap.String("from", string(from)),
			zap.String("to", string(status)))
	}

	if err := s.repo.UpdateOrderStatus(ctx, details.Order.ID, status); err != nil {
		return nil, util.RecordError(span, err)
	}
	util.OrderStatusUpdatesTotal.WithLabelValues(string(status)).Inc()

	details.Order.Status = status
	receipt := s.Receipt(details)

	s.logger.Info("Order status updated",
		zap.Int64("order_id", details.Order.ID),
		zap.String("from", string(from)),
		zap.String("to", string(status)))
	return &receipt, nil
}

// Receipt projects an order loaded with its relations
func (s *OrderService) Receipt(d *models.OrderDetails) Receipt {
	r := Receipt{
		ID:       strconv.FormatInt(d.Order.ID, 10),
		Name:     defaultCustomerName,
		Products: make([]ReceiptLine, 0, len(d.Lines)),
		Total:    decimal.Zero,
		Date:     d.Order.CreatedAt.Format("2006-01-02"),
		Time:     d.Order.CreatedAt.Format("15:04"),
		Status:   d.Order.Status.Label(),
	}

	if d.Bill != nil {
		r.ID = strconv.FormatInt(d.Bill.ID, 10)
		r.BillNumber = d.Bill.BillNumber
		r.Total = d.Bill.Total
	}
	if d.Order.Total != nil && !d.Order.Total.IsZero() {
		r.Total = *d.Order.Total
	}
	if d.Customer != nil {
		r.Email = d.Customer.Email
		if d.Customer.Name != "" {
			r.Name = d.Customer.Name
		}
	}

	for _, l := range d.Lines {
		name := "Product"
		switch {
		case l.ProductName != nil && *l.ProductName != "":
			name = *l.ProductName
		case l.ProductID != nil:
			name = fmt.Sprintf("Product #%d", *l.ProductID)
		}
		r.Products = append(r.Products, ReceiptLine{Name: name, Quantity: l.Quantity, Price: l.UnitPrice})
	}
	return r
}

func (s *OrderService) listReceipts(ctx context.Context, email string) ([]Receipt, error) {
	orders, err := s.repo.ListOrderDetails(ctx, email)
	if err != nil {
		return nil, err
	}

	receipts := make([]Receipt, 0, len(orders))
	for i := range orders {
		receipts = append(receipts, s.Receipt(&orders[i]))
	}
	return receipts, nil
}

// upsertCustomer finds the customer by email or creates one. A concurrent
// creator winning the unique index is resolved by reading its row.
func (s *OrderService) upsertCustomer(ctx context.Context, email, name string) (*models.Customer, error) {
	customer, err := s.repo.GetCustomerByEmail(ctx, email)
	if err != nil || customer != nil {
		return customer, err
	}

	customer = &models.Customer{Name: name, Email: email, Phone: defaultCustomerPhone}
	err = s.repo.CreateCustomer(ctx, customer)
	if err == nil {
		s.logger.Info("Customer created from purchase", zap.Int64("customer_id", customer.ID), zap.String("email", email))
		return customer, nil
	}
	if !errors.Is(err, models.ErrConflict) {
		return nil, err
	}

	customer, err = s.repo.GetCustomerByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if customer == nil {
		return nil, fmt.Errorf("customer %s vanished after conflicting insert", email)
	}
	return customer, nil
}

func orderPlacedPayload(name string, r Receipt, items []LineItem, total decimal.Decimal) models.OrderPlacedPayload {
	lines := make([]models.NotifiedLine, 0, len(items))
	for _, item := range items {
		qty := floorQuantity(item.Quantity)
		lines = append(lines, models.NotifiedLine{
			Name:     textkey.Clean(item.Name),
			Quantity: qty,
			Price:    item.Price,
			Subtotal: item.Price.Mul(decimal.NewFromInt(int64(qty))),
		})
	}

	billID, _ := strconv.ParseInt(r.ID, 10, 64)
	return models.OrderPlacedPayload{
		CustomerName: name,
		BillID:       billID,
		BillNumber:   r.BillNumber,
		Date:         r.Date,
		Time:         r.Time,
		Lines:        lines,
		Total:        total,
		Status:       models.StatusPending.Label(),
	}
}

func floorQuantity(q int) int {
	if q < 1 {
		return 1
	}
	return q
}

// BillNumberer issues bill numbers of the form B-YYYYMMDDHHMMSSffffff.
// Numbers are strictly increasing within a process even when the clock
// stalls or steps back.
type BillNumberer struct {
	mu   sync.Mutex
	now  func() time.Time
	last time.Time
}

// NewBillNumberer creates a numberer reading the given clock
func NewBillNumberer(now func() time.Time) *BillNumberer {
	return &BillNumberer{now: now}
}

// Next returns the next bill number
func (b *BillNumberer) Next() string {
	b.mu.Lock()
	defer b.mu.Unlock()

	t := b.now().UTC().Truncate(time.Microsecond)
	if !t.After(b.last) {
		t = b.last.Add(time.Microsecond)
	}
	b.last = t
	return "B-" + strings.Replace(t.Format("20060102150405.000000"), ".", "", 1)
}
