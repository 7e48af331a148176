// Package services – ActivityService
//
// This file implements the activity fan-out stage. Recording an activity
// event, whether from a customer interaction or from the order pipeline's
// own metrics stage, invokes the fan-out rules exactly once, as an ordinary
// function call:
//
//   - view events on a product priced above the promo threshold, by a client
//     with enough historical orders, produce one promotional notification;
//   - cart_add events produce one marketing reminder;
//   - everything else produces nothing.
//
// The recursion guard is structural: fan-out writes notifications, and
// notifications never write back into activity, so the chain terminates
// after one hop no matter who recorded the originating event.
package services

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/tbourn/go-retail-backend/internal/domain"
	"github.com/tbourn/go-retail-backend/internal/repo"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Promo rule defaults: a view qualifies when the product sells above
// DefaultPromoMinPrice AND the client has strictly more than
// DefaultPromoMinOrders historical orders.
const (
	DefaultPromoMinOrders = 3
)

// DefaultPromoMinPrice is the exclusive sell-price floor for promo fan-out.
var DefaultPromoMinPrice = decimal.NewFromInt(50)

var validActivityTypes = map[string]struct{}{
	domain.ActivityView:       {},
	domain.ActivityBrowse:     {},
	domain.ActivitySearch:     {},
	domain.ActivityCartAdd:    {},
	domain.ActivityCartRemove: {},
}

// ActivityService records activity events and runs the fan-out stage.
type ActivityService struct {
	DB *gorm.DB

	// PromoMinPrice overrides DefaultPromoMinPrice when positive.
	PromoMinPrice decimal.Decimal
	// PromoMinOrders overrides DefaultPromoMinOrders when positive.
	PromoMinOrders int
}

// NewActivityService constructs an ActivityService with the default rule
// thresholds.
func NewActivityService(db *gorm.DB) *ActivityService {
	return &ActivityService{
		DB:             db,
		PromoMinPrice:  DefaultPromoMinPrice,
		PromoMinOrders: DefaultPromoMinOrders,
	}
}

// Record persists one activity event and runs the fan-out rules in the same
// transaction. It is the public entry point used by customer interactions
// and by scheduler-invoked jobs.
func (s *ActivityService) Record(ctx context.Context, clientID, productID *string, typ string, props map[string]any) (*domain.ActivityEvent, error) {
	tr := otel.Tracer("services/ActivityService")
	ctx, span := tr.Start(ctx, "Record",
		trace.WithAttributes(attribute.String("activity.type", typ)),
	)
	defer span.End()

	var out *domain.ActivityEvent
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		ev, err := s.recordIn(ctx, tx, clientID, productID, typ, props)
		if err != nil {
			return err
		}
		out = ev
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// recordIn inserts the event and runs fan-out inside the caller's
// transaction. The order pipeline's metrics stage calls this directly so its
// activity write shares the mutation's transaction.
func (s *ActivityService) recordIn(ctx context.Context, tx *gorm.DB, clientID, productID *string, typ string, props map[string]any) (*domain.ActivityEvent, error) {
	if _, ok := validActivityTypes[typ]; !ok {
		return nil, ErrInvalidActivityType
	}
	if clientID != nil {
		if _, err := repo.GetClient(ctx, tx, *clientID); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, ErrClientNotFound
			}
			return nil, err
		}
	}
	if productID != nil {
		if _, err := repo.GetProduct(ctx, tx, *productID); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, ErrProductNotFound
			}
			return nil, err
		}
	}

	ev, err := repo.CreateActivity(ctx, tx, clientID, productID, typ, datatypes.JSONMap(props))
	if err != nil {
		return nil, err
	}
	if err := s.fanOut(ctx, tx, ev); err != nil {
		return nil, err
	}
	return ev, nil
}

// fanOut applies the notification rules to one freshly inserted event. Rules
// that do not match are silent no-ops. This function writes notifications
// only, never activity, which is what bounds the recursion to one hop.
func (s *ActivityService) fanOut(ctx context.Context, tx *gorm.DB, ev *domain.ActivityEvent) error {
	switch ev.Type {
	case domain.ActivityView:
		if ev.ClientID == nil || ev.ProductID == nil {
			return nil
		}
		p, err := repo.GetProduct(ctx, tx, *ev.ProductID)
		if err != nil {
			return err
		}
		if !p.SellPrice.GreaterThan(s.promoMinPrice()) {
			return nil
		}
		count, err := repo.CountOrders(ctx, tx, *ev.ClientID)
		if err != nil {
			return err
		}
		if count <= int64(s.promoMinOrders()) {
			return nil
		}
		msg := "You might like " + p.Name + ", a special offer for our regulars"
		_, err = repo.CreateNotification(ctx, tx, *ev.ClientID, msg, domain.NotificationPromotion)
		return err

	case domain.ActivityCartAdd:
		if ev.ClientID == nil {
			return nil
		}
		msg := "You left something in your cart. Complete your order today"
		_, err := repo.CreateNotification(ctx, tx, *ev.ClientID, msg, domain.NotificationMarketing)
		return err
	}
	return nil
}

// ListPage returns a page of a client's activity and the total count.
func (s *ActivityService) ListPage(ctx context.Context, clientID string, page, pageSize int) ([]domain.ActivityEvent, int64, error) {
	if page < 1 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = 20
	}
	offset := (page - 1) * pageSize

	total, err := repo.CountActivities(ctx, s.DB, clientID)
	if err != nil {
		return nil, 0, err
	}
	if total == 0 {
		return []domain.ActivityEvent{}, 0, nil
	}
	items, err := repo.ListActivitiesPage(ctx, s.DB, clientID, offset, pageSize)
	return items, total, err
}

func (s *ActivityService) promoMinPrice() decimal.Decimal {
	if s.PromoMinPrice.IsPositive() {
		return s.PromoMinPrice
	}
	return DefaultPromoMinPrice
}

func (s *ActivityService) promoMinOrders() int {
	if s.PromoMinOrders > 0 {
		return s.PromoMinOrders
	}
	return DefaultPromoMinOrders
}
