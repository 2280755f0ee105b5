package order

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"vinylstore-be/internal/apperr"
	"vinylstore-be/internal/db"
	"vinylstore-be/internal/logger"
	"vinylstore-be/internal/pricing"

	"github.com/lib/pq"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type Repository interface {
	// CreateOrderTx re-checks the frozen prices, writes the order, its items
	// and initial statuses, decrements stock and consumes the cart rows in
	// one serializable transaction. Nothing is persisted on error.
	CreateOrderTx(ctx context.Context, params CreateOrderParams) (*Order, error)

	// GetOrder loads an order with every item and its full status history.
	GetOrder(ctx context.Context, orderID int64) (*Order, error)
	ListByCustomer(ctx context.Context, customerID int64) ([]Order, error)
	ListVendorItems(ctx context.Context, vendorID int64) ([]VendorItem, error)

	// AppendStatus locks the item, checks that vendorID sells it, validates
	// the change against the current status and appends the record.
	AppendStatus(ctx context.Context, vendorID, orderItemID int64, change StatusChange) (*StatusRecord, error)
}

type repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) Repository {
	return &repository{db: db}
}

// checkoutErr maps a failed checkout onto a domain error. A serialization
// conflict usually means another checkout took the stock first, so live
// stock decides between InsufficientStock and CheckoutFailed.
func (r *repository) checkoutErr(ctx context.Context, lines []CheckoutLine, err error) error {
	var appErr *apperr.Error
	if errors.As(err, &appErr) {
		return err
	}
	if db.IsPgError(err, db.PgSerializationFailure, db.PgDeadlockDetected) {
		short, readErr := r.stockShortfall(ctx, lines)
		if readErr != nil {
			logger.FromCtx(ctx).Error("failed to re-read stock after conflict", zap.Error(readErr))
			return fmt.Errorf("%w: %v", ErrCheckoutFailed, err)
		}
		if short {
			return ErrInsufficientStock
		}
		return fmt.Errorf("%w: %v", ErrCheckoutFailed, err)
	}
	if db.IsPgError(err, db.PgCheckViolation) {
		return fmt.Errorf("%w: %v", ErrCheckoutFailed, err)
	}
	return err
}

// stockShortfall reports whether committed stock no longer covers lines.
func (r *repository) stockShortfall(ctx context.Context, lines []CheckoutLine) (bool, error) {
	want := make(map[int64]int, len(lines))
	for _, line := range lines {
		want[line.ProductID] += line.Quantity
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT id, stock_quantity
		FROM products
		WHERE id = ANY($1)
	`, pq.Array(productIDs(lines)))
	if err != nil {
		return false, fmt.Errorf("read stock: %w", err)
	}
	defer rows.Close()

	have := make(map[int64]int, len(want))
	for rows.Next() {
		var (
			id    int64
			stock int
		)
		if err := rows.Scan(&id, &stock); err != nil {
			return false, fmt.Errorf("scan stock: %w", err)
		}
		have[id] = stock
	}
	if err := rows.Err(); err != nil {
		return false, err
	}

	for id, qty := range want {
		if have[id] < qty {
			return true, nil
		}
	}
	return false, nil
}

func productIDs(lines []CheckoutLine) []int64 {
	ids := make([]int64, 0, len(lines))
	for _, line := range lines {
		ids = append(ids, line.ProductID)
	}
	return ids
}

func (r *repository) CreateOrderTx(ctx context.Context, params CreateOrderParams) (*Order, error) {
	log := logger.FromCtx(ctx).With(
		zap.String("layer", "repository"),
		zap.String("method", "CreateOrderTx"),
		zap.Int64("customer_id", params.CustomerID),
		zap.Int("line_count", len(params.Lines)),
	)

	log.Debug("starting checkout transaction")

	tx, err := r.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		log.Error("failed to begin transaction", zap.Error(err))
		return nil, err
	}

	o, err := r.writeOrder(ctx, tx, params)
	if err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			log.Error("failed to rollback transaction", zap.Error(rbErr))
		} else {
			log.Debug("transaction rolled back")
		}
		return nil, r.checkoutErr(ctx, params.Lines, err)
	}

	if err := tx.Commit(); err != nil {
		log.Error("failed to commit checkout transaction", zap.Error(err))
		return nil, r.checkoutErr(ctx, params.Lines, err)
	}

	log.Info("checkout transaction committed", zap.Int64("order_id", o.ID))
	return o, nil
}

// verifyPrices locks the products in id order and checks every frozen
// price against the list price and promotions visible to tx.
func verifyPrices(ctx context.Context, tx *sql.Tx, params CreateOrderParams) error {
	log := logger.FromCtx(ctx)
	ids := productIDs(params.Lines)

	rows, err := tx.QueryContext(ctx, `
		SELECT id, price, is_available
		FROM products
		WHERE id = ANY($1)
		ORDER BY id
		FOR UPDATE
	`, pq.Array(ids))
	if err != nil {
		return fmt.Errorf("lock products: %w", err)
	}

	type listed struct {
		price     decimal.Decimal
		available bool
	}
	products := make(map[int64]listed, len(ids))
	for rows.Next() {
		var (
			id int64
			p  listed
		)
		if err := rows.Scan(&id, &p.price, &p.available); err != nil {
			rows.Close()
			return fmt.Errorf("scan locked product: %w", err)
		}
		products[id] = p
	}
	err = rows.Err()
	rows.Close()
	if err != nil {
		return err
	}

	rows, err = tx.QueryContext(ctx, `
		SELECT id, product_id, discount_rate, start_time, end_time, status, created_at
		FROM promotions
		WHERE product_id = ANY($1)
		ORDER BY product_id, id
	`, pq.Array(ids))
	if err != nil {
		return fmt.Errorf("load promotions: %w", err)
	}
	defer rows.Close()

	promos := make(map[int64][]pricing.Promotion, len(ids))
	for rows.Next() {
		var p pricing.Promotion
		if err := rows.Scan(&p.ID, &p.ProductID, &p.DiscountRate, &p.StartTime, &p.EndTime, &p.Status, &p.CreatedAt); err != nil {
			return fmt.Errorf("scan promotion: %w", err)
		}
		promos[p.ProductID] = append(promos[p.ProductID], p)
	}
	if err := rows.Err(); err != nil {
		return err
	}

	for _, line := range params.Lines {
		p, ok := products[line.ProductID]
		if !ok || !p.available {
			log.Warn("product withdrawn during checkout", zap.Int64("product_id", line.ProductID))
			return ErrProductWithdrawn
		}
		current := pricing.EffectivePrice(p.price, promos[line.ProductID], params.PricedAt)
		if !current.Equal(line.PaidPrice) {
			log.Warn("price changed during checkout",
				zap.Int64("product_id", line.ProductID),
				zap.String("frozen", line.PaidPrice.StringFixed(2)),
				zap.String("current", current.StringFixed(2)),
			)
			return ErrPriceChanged
		}
	}
	return nil
}

func (r *repository) writeOrder(ctx context.Context, tx *sql.Tx, params CreateOrderParams) (*Order, error) {
	log := logger.FromCtx(ctx).With(
		zap.String("layer", "repository"),
		zap.String("method", "CreateOrderTx"),
	)

	if err := verifyPrices(ctx, tx, params); err != nil {
		return nil, err
	}

	o := &Order{
		CustomerID:      params.CustomerID,
		ShippingAddress: params.ShippingAddress,
		TotalAmount:     params.TotalAmount,
		Items:           make([]OrderItem, 0, len(params.Lines)),
	}

	// Insert order
	err := tx.QueryRowContext(ctx, `
		INSERT INTO orders (customer_id, shipping_address, total_amount)
		VALUES ($1, $2, $3)
		RETURNING id, created_at
	`, o.CustomerID, o.ShippingAddress, o.TotalAmount).Scan(&o.ID, &o.CreatedAt)
	if err != nil {
		log.Error("failed to insert order", zap.Error(err))
		return nil, err
	}

	// Insert items, each with its initial status
	for i, line := range params.Lines {
		item := OrderItem{
			OrderID:       o.ID,
			ProductID:     line.ProductID,
			Quantity:      line.Quantity,
			PaidPrice:     line.PaidPrice,
			CurrentStatus: StatusProcessing,
		}

		err = tx.QueryRowContext(ctx, `
			INSERT INTO order_items (order_id, product_id, quantity, paid_price)
			VALUES ($1, $2, $3, $4)
			RETURNING id
		`, o.ID, line.ProductID, line.Quantity, line.PaidPrice).Scan(&item.ID)
		if err != nil {
			log.Error("failed to insert order item",
				zap.Int("item_index", i),
				zap.Int64("product_id", line.ProductID),
				zap.Error(err),
			)
			return nil, err
		}

		rec := StatusRecord{OrderItemID: item.ID, Status: StatusProcessing}
		err = tx.QueryRowContext(ctx, `
			INSERT INTO order_statuses (order_item_id, status, created_at)
			VALUES ($1, $2, clock_timestamp())
			RETURNING id, created_at
		`, item.ID, StatusProcessing).Scan(&rec.ID, &rec.CreatedAt)
		if err != nil {
			log.Error("failed to insert initial status", zap.Int64("order_item_id", item.ID), zap.Error(err))
			return nil, err
		}
		item.History = []StatusRecord{rec}

		o.Items = append(o.Items, item)
	}

	log.Debug("order items inserted")

	// Decrement stock
	for _, line := range params.Lines {
		res, err := tx.ExecContext(ctx, `
			UPDATE products
			SET stock_quantity = stock_quantity - $1,
			    updated_at = NOW()
			WHERE id = $2 AND stock_quantity >= $1
		`, line.Quantity, line.ProductID)
		if err != nil {
			log.Error("failed to decrement stock", zap.Int64("product_id", line.ProductID), zap.Error(err))
			return nil, err
		}

		n, err := res.RowsAffected()
		if err != nil {
			return nil, err
		}
		if n == 0 {
			log.Warn("insufficient stock at commit",
				zap.Int64("product_id", line.ProductID),
				zap.Int("quantity", line.Quantity),
			)
			return nil, ErrInsufficientStock
		}
	}

	// Consume cart rows exactly as snapshotted
	for _, line := range params.Lines {
		res, err := tx.ExecContext(ctx, `
			DELETE FROM cart_items
			WHERE id = $1 AND customer_id = $2 AND quantity = $3
		`, line.CartItemID, params.CustomerID, line.Quantity)
		if err != nil {
			log.Error("failed to delete cart row", zap.Int64("cart_item_id", line.CartItemID), zap.Error(err))
			return nil, err
		}

		n, err := res.RowsAffected()
		if err != nil {
			return nil, err
		}
		if n == 0 {
			log.Warn("cart changed during checkout", zap.Int64("cart_item_id", line.CartItemID))
			return nil, ErrCheckoutFailed
		}
	}

	return o, nil
}

func (r *repository) GetOrder(ctx context.Context, orderID int64) (*Order, error) {
	log := logger.FromCtx(ctx).With(
		zap.String("layer", "repository"),
		zap.String("method", "GetOrder"),
		zap.Int64("order_id", orderID),
	)

	var o Order
	err := r.db.QueryRowContext(ctx, `
		SELECT id, customer_id, shipping_address, total_amount, created_at
		FROM orders
		WHERE id = $1
	`, orderID).Scan(&o.ID, &o.CustomerID, &o.ShippingAddress, &o.TotalAmount, &o.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrOrderNotFound
	}
	if err != nil {
		log.Error("failed to load order", zap.Error(err))
		return nil, fmt.Errorf("get order %d: %w", orderID, err)
	}

	byOrder, err := r.itemsByOrders(ctx, []int64{o.ID})
	if err != nil {
		return nil, err
	}
	o.Items = byOrder[o.ID]

	itemIDs := make([]int64, 0, len(o.Items))
	for _, it := range o.Items {
		itemIDs = append(itemIDs, it.ID)
	}

	history, err := r.historyByItems(ctx, itemIDs)
	if err != nil {
		return nil, err
	}
	for i := range o.Items {
		o.Items[i].History = history[o.Items[i].ID]
	}

	return &o, nil
}

func (r *repository) ListByCustomer(ctx context.Context, customerID int64) ([]Order, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, customer_id, shipping_address, total_amount, created_at
		FROM orders
		WHERE customer_id = $1
		ORDER BY created_at DESC, id DESC
	`, customerID)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	defer rows.Close()

	orders := []Order{}
	ids := []int64{}
	for rows.Next() {
		var o Order
		if err := rows.Scan(&o.ID, &o.CustomerID, &o.ShippingAddress, &o.TotalAmount, &o.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan order: %w", err)
		}
		orders = append(orders, o)
		ids = append(ids, o.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(orders) == 0 {
		return orders, nil
	}

	byOrder, err := r.itemsByOrders(ctx, ids)
	if err != nil {
		return nil, err
	}
	for i := range orders {
		orders[i].Items = byOrder[orders[i].ID]
	}
	return orders, nil
}

// currentStatusJoin picks the last appended status row per item. Append
// order is id order: appends to one item are serialized by its row lock.
const currentStatusJoin = `
	LEFT JOIN LATERAL (
		SELECT os.status
		FROM order_statuses os
		WHERE os.order_item_id = oi.id
		ORDER BY os.id DESC
		LIMIT 1
	) cur ON TRUE
`

func (r *repository) itemsByOrders(ctx context.Context, orderIDs []int64) (map[int64][]OrderItem, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT oi.id, oi.order_id, oi.product_id, p.name, oi.quantity, oi.paid_price,
		       COALESCE(cur.status, '')
		FROM order_items oi
		JOIN products p ON p.id = oi.product_id
	`+currentStatusJoin+`
		WHERE oi.order_id = ANY($1)
		ORDER BY oi.order_id, oi.id
	`, pq.Array(orderIDs))
	if err != nil {
		return nil, fmt.Errorf("list order items: %w", err)
	}
	defer rows.Close()

	out := make(map[int64][]OrderItem, len(orderIDs))
	for rows.Next() {
		var it OrderItem
		if err := rows.Scan(
			&it.ID,
			&it.OrderID,
			&it.ProductID,
			&it.ProductName,
			&it.Quantity,
			&it.PaidPrice,
			&it.CurrentStatus,
		); err != nil {
			return nil, fmt.Errorf("scan order item: %w", err)
		}
		out[it.OrderID] = append(out[it.OrderID], it)
	}
	return out, rows.Err()
}

func (r *repository) historyByItems(ctx context.Context, itemIDs []int64) (map[int64][]StatusRecord, error) {
	out := make(map[int64][]StatusRecord, len(itemIDs))
	if len(itemIDs) == 0 {
		return out, nil
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT os.id, os.order_item_id, os.status, ci.reason, os.created_at
		FROM order_statuses os
		LEFT JOIN cancelled_items ci ON ci.status_id = os.id
		WHERE os.order_item_id = ANY($1)
		ORDER BY os.order_item_id, os.id
	`, pq.Array(itemIDs))
	if err != nil {
		return nil, fmt.Errorf("list status history: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			rec    StatusRecord
			reason sql.NullString
		)
		if err := rows.Scan(&rec.ID, &rec.OrderItemID, &rec.Status, &reason, &rec.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan status: %w", err)
		}
		if reason.Valid {
			cr := CancelReason(reason.String)
			rec.CancelReason = &cr
		}
		out[rec.OrderItemID] = append(out[rec.OrderItemID], rec)
	}
	return out, rows.Err()
}

func (r *repository) ListVendorItems(ctx context.Context, vendorID int64) ([]VendorItem, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT oi.id, oi.order_id, oi.product_id, p.name, oi.quantity, oi.paid_price,
		       COALESCE(cur.status, ''), o.customer_id, o.shipping_address, o.created_at
		FROM order_items oi
		JOIN orders o ON o.id = oi.order_id
		JOIN products p ON p.id = oi.product_id
		JOIN stores s ON s.id = p.store_id
	`+currentStatusJoin+`
		WHERE s.vendor_id = $1
		ORDER BY o.created_at DESC, oi.id
	`, vendorID)
	if err != nil {
		return nil, fmt.Errorf("list vendor items: %w", err)
	}
	defer rows.Close()

	items := []VendorItem{}
	for rows.Next() {
		var it VendorItem
		if err := rows.Scan(
			&it.ID,
			&it.OrderID,
			&it.ProductID,
			&it.ProductName,
			&it.Quantity,
			&it.PaidPrice,
			&it.CurrentStatus,
			&it.CustomerID,
			&it.ShippingAddress,
			&it.OrderedAt,
		); err != nil {
			return nil, fmt.Errorf("scan vendor item: %w", err)
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

func (r *repository) AppendStatus(
	ctx context.Context,
	vendorID, orderItemID int64,
	change StatusChange,
) (*StatusRecord, error) {

	log := logger.FromCtx(ctx).With(
		zap.String("layer", "repository"),
		zap.String("method", "AppendStatus"),
		zap.Int64("order_item_id", orderItemID),
		zap.String("status", string(change.Status())),
	)

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		log.Error("failed to begin transaction", zap.Error(err))
		return nil, err
	}

	committed := false
	defer func() {
		if !committed {
			if rbErr := tx.Rollback(); rbErr != nil {
				log.Error("failed to rollback transaction", zap.Error(rbErr))
			}
		}
	}()

	// Lock the item and resolve the selling vendor
	var ownerID int64
	err = tx.QueryRowContext(ctx, `
		SELECT s.vendor_id
		FROM order_items oi
		JOIN products p ON p.id = oi.product_id
		JOIN stores s ON s.id = p.store_id
		WHERE oi.id = $1
		FOR UPDATE OF oi
	`, orderItemID).Scan(&ownerID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrOrderItemNotFound
	}
	if err != nil {
		log.Error("failed to lock order item", zap.Error(err))
		return nil, err
	}
	if ownerID != vendorID {
		log.Warn("vendor does not sell this item", zap.Int64("vendor_id", vendorID))
		return nil, ErrNotItemVendor
	}

	var current Status
	err = tx.QueryRowContext(ctx, `
		SELECT status
		FROM order_statuses
		WHERE order_item_id = $1
		ORDER BY id DESC
		LIMIT 1
	`, orderItemID).Scan(&current)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		log.Error("failed to read current status", zap.Error(err))
		return nil, err
	}

	if err := ValidateTransition(current, change); err != nil {
		log.Warn("rejected status change", zap.String("from", string(current)))
		return nil, err
	}

	rec := &StatusRecord{OrderItemID: orderItemID, Status: change.Status()}
	err = tx.QueryRowContext(ctx, `
		INSERT INTO order_statuses (order_item_id, status, created_at)
		VALUES ($1, $2, clock_timestamp())
		RETURNING id, created_at
	`, orderItemID, change.Status()).Scan(&rec.ID, &rec.CreatedAt)
	if err != nil {
		log.Error("failed to insert status", zap.Error(err))
		return nil, err
	}

	if reason, ok := change.Reason(); ok {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO cancelled_items (status_id, reason)
			VALUES ($1, $2)
		`, rec.ID, reason); err != nil {
			log.Error("failed to insert cancelled item", zap.Error(err))
			return nil, err
		}
		rec.CancelReason = &reason
	}

	if err := tx.Commit(); err != nil {
		log.Error("failed to commit status change", zap.Error(err))
		return nil, err
	}
	committed = true

	log.Info("status appended", zap.String("from", string(current)), zap.Int64("status_id", rec.ID))
	return rec, nil
}
