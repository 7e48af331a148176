// Package domain defines the persistence models for the retail ledger:
// products, orders, clients, employees, and the append-only side tables
// (audit records, notifications, activity events) maintained by the order
// mutation pipeline. These types are mapped with GORM and form the core
// data layer of the application.
package domain

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

// Notification types.
const (
	NotificationPromotion   = "promotion"
	NotificationOrderUpdate = "order_update"
	NotificationSystem      = "system"
	NotificationMarketing   = "marketing"
)

// Activity event types.
const (
	ActivityView       = "view"
	ActivityBrowse     = "browse"
	ActivitySearch     = "search"
	ActivityCartAdd    = "cart_add"
	ActivityCartRemove = "cart_remove"
)

// Audit actions.
const (
	AuditInsert = "insert"
	AuditUpdate = "update"
	AuditDelete = "delete"
)

// Product represents a sellable item with stock. Stock is mutated exclusively
// by the order mutation pipeline (decrement on order insert); products are
// never deleted while orders reference them.
//
// Fields:
//   - ID: stable UUID primary key (char(36)).
//   - Name / Category: catalog attributes; category is normalized on create.
//   - BuyPrice / SellPrice: unit prices; sell >= buy is enforced at catalog time.
//   - Stock: integer on-hand count; never driven below zero by the pipeline.
type Product struct {
	ID        string          `json:"id"         gorm:"type:char(36);primaryKey"`
	Name      string          `json:"name"       gorm:"type:varchar(255);not null"`
	Category  string          `json:"category"   gorm:"type:varchar(100);not null;index"`
	BuyPrice  decimal.Decimal `json:"buy_price"  gorm:"type:decimal(12,2);not null"`
	SellPrice decimal.Decimal `json:"sell_price" gorm:"type:decimal(12,2);not null"`
	Stock     int             `json:"stock"      gorm:"not null;default:0;check:stock >= 0"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// TableName returns the database table name for Product.
func (Product) TableName() string { return "products" }

// Client represents a customer able to place orders and generate activity.
type Client struct {
	ID        string    `json:"id"    gorm:"type:char(36);primaryKey"`
	Name      string    `json:"name"  gorm:"type:varchar(255);not null"`
	Email     string    `json:"email" gorm:"type:varchar(255);not null;uniqueIndex"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName returns the database table name for Client.
func (Client) TableName() string { return "clients" }

// Employee represents a staff member. Role selects low-stock alert
// recipients (inventory/sales management) and commission is computed over
// the orders an employee handled.
type Employee struct {
	ID        string    `json:"id"    gorm:"type:char(36);primaryKey"`
	Name      string    `json:"name"  gorm:"type:varchar(255);not null"`
	Email     string    `json:"email" gorm:"type:varchar(255);not null;uniqueIndex"`
	Role      string    `json:"role"  gorm:"type:varchar(64);not null;index"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName returns the database table name for Employee.
func (Employee) TableName() string { return "employees" }

// Address is a mailing address attached to a client.
type Address struct {
	ID        string    `json:"id"        gorm:"type:char(36);primaryKey"`
	ClientID  string    `json:"client_id" gorm:"type:char(36);not null;index"`
	Street    string    `json:"street"    gorm:"type:varchar(255);not null"`
	City      string    `json:"city"      gorm:"type:varchar(100);not null"`
	Country   string    `json:"country"   gorm:"type:varchar(100);not null"`
	Zip       string    `json:"zip"       gorm:"type:varchar(20);not null"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Client is the owning customer. Addresses are cascade-deleted if the
	// client is removed.
	Client Client `json:"-" gorm:"foreignKey:ClientID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}

// TableName returns the database table name for Address.
func (Address) TableName() string { return "addresses" }

// Order represents a committed sale. Quantity must be positive and cost
// non-negative; the pipeline reconciles cost against sell_price*quantity
// (±1% tolerance band) before the row is durably stored. Updates and deletes
// are rare administrative actions and only produce audit records.
type Order struct {
	ID         string          `json:"id"          gorm:"type:char(36);primaryKey"`
	ProductID  string          `json:"product_id"  gorm:"type:char(36);not null;index"`
	ClientID   string          `json:"client_id"   gorm:"type:char(36);not null;index"`
	EmployeeID string          `json:"employee_id" gorm:"type:char(36);not null;index"`
	Quantity   int             `json:"quantity"    gorm:"not null;check:quantity > 0"`
	Cost       decimal.Decimal `json:"cost"        gorm:"type:decimal(12,2);not null"`
	Date       time.Time       `json:"date"        gorm:"not null;index"`
	CreatedAt  time.Time       `json:"created_at"`
	UpdatedAt  time.Time       `json:"updated_at"`

	Product  Product  `json:"-" gorm:"foreignKey:ProductID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:RESTRICT"`
	Client   Client   `json:"-" gorm:"foreignKey:ClientID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:RESTRICT"`
	Employee Employee `json:"-" gorm:"foreignKey:EmployeeID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:RESTRICT"`
}

// TableName returns the database table name for Order.
func (Order) TableName() string { return "orders" }

// AuditRecord is the immutable history of one order mutation. Exactly one row
// is written per insert/update/delete, in the same transaction as the
// mutation. OldState/NewState are JSON snapshots of the order's field values;
// either may be null depending on the action.
type AuditRecord struct {
	ID        string            `json:"id"       gorm:"type:char(36);primaryKey"`
	OrderID   string            `json:"order_id" gorm:"type:char(36);not null;index"`
	Action    string            `json:"action"   gorm:"type:varchar(16);not null;check:action IN ('insert','update','delete')"`
	OldState  datatypes.JSONMap `json:"old_state,omitempty" gorm:"type:json"`
	NewState  datatypes.JSONMap `json:"new_state,omitempty" gorm:"type:json"`
	CreatedAt time.Time         `json:"created_at" gorm:"index"`
}

// TableName returns the database table name for AuditRecord.
func (AuditRecord) TableName() string { return "audit_records" }

// Notification is a message addressed to a client or employee. The pipeline
// and the activity fan-out stage create rows; only the Read flag is mutated
// afterwards, by the consuming caller. Notifications never write back into
// activity_events, which is what bounds the fan-out to a single hop.
type Notification struct {
	ID          string    `json:"id"           gorm:"type:char(36);primaryKey"`
	RecipientID string    `json:"recipient_id" gorm:"type:char(36);not null;index"`
	Message     string    `json:"message"      gorm:"type:text;not null"`
	Type        string    `json:"type"         gorm:"type:varchar(32);not null;check:type IN ('promotion','order_update','system','marketing')"`
	Read        bool      `json:"read"         gorm:"not null;default:false"`
	CreatedAt   time.Time `json:"created_at"   gorm:"index"`
}

// TableName returns the database table name for Notification.
func (Notification) TableName() string { return "notifications" }

// ActivityEvent is a behavioral or system log entry. Client and product
// references are nullable: the pipeline's own metrics events carry a product
// but no client. Events are never mutated after insertion.
type ActivityEvent struct {
	ID         string            `json:"id"         gorm:"type:char(36);primaryKey"`
	ClientID   *string           `json:"client_id,omitempty"  gorm:"type:char(36);index"`
	ProductID  *string           `json:"product_id,omitempty" gorm:"type:char(36);index"`
	Type       string            `json:"type"       gorm:"type:varchar(32);not null;check:type IN ('view','browse','search','cart_add','cart_remove')"`
	Properties datatypes.JSONMap `json:"properties" gorm:"type:json"`
	CreatedAt  time.Time         `json:"created_at" gorm:"index"`

	Client  *Client  `json:"-" gorm:"foreignKey:ClientID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:SET NULL"`
	Product *Product `json:"-" gorm:"foreignKey:ProductID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:SET NULL"`
}

// TableName returns the database table name for ActivityEvent.
func (ActivityEvent) TableName() string { return "activity_events" }

// Snapshot flattens an order into the JSON shape stored in audit records.
func (o *Order) Snapshot() datatypes.JSONMap {
	if o == nil {
		return nil
	}
	return datatypes.JSONMap{
		"id":          o.ID,
		"product_id":  o.ProductID,
		"client_id":   o.ClientID,
		"employee_id": o.EmployeeID,
		"quantity":    o.Quantity,
		"cost":        o.Cost.String(),
		"date":        o.Date.UTC().Format(time.RFC3339),
	}
}
