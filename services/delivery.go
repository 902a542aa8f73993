package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/ray-remotestate/delivery/database/dbhelper"
	"github.com/ray-remotestate/delivery/models"
	"github.com/ray-remotestate/delivery/store"
)

type DeliveryService struct {
	gw       DeliveryGateway
	sessions *store.Sessions
	now      func() time.Time
}

func NewDeliveryService(gw DeliveryGateway, sessions *store.Sessions) *DeliveryService {
	return &DeliveryService{gw: gw, sessions: sessions, now: time.Now}
}

// ToggleOnline reads the current flag and writes its negation.
func (s *DeliveryService) ToggleOnline(ctx context.Context, id uuid.UUID) (models.DeliveryPerson, error) {
	dp, err := s.gw.GetDeliveryPerson(ctx, id)
	if err != nil {
		return models.DeliveryPerson{}, translate(err)
	}
	return s.SetOnline(ctx, id, !dp.IsOnline)
}

func (s *DeliveryService) SetOnline(ctx context.Context, id uuid.UUID, online bool) (models.DeliveryPerson, error) {
	dp, err := s.gw.UpdateDeliveryPerson(ctx, id, dbhelper.Fields{"is_online": online})
	if err != nil {
		logrus.WithError(err).WithField("delivery_person_id", id).Error("failed to change availability")
		return models.DeliveryPerson{}, translate(err)
	}
	s.sessions.Apply(id, store.DeliveryPersonChanged(dp))
	return dp, nil
}

type DeliveryProfile struct {
	Name    *string
	Phone   *string
	Vehicle *string
}

func (s *DeliveryService) UpdateProfile(ctx context.Context, id uuid.UUID, p DeliveryProfile) (models.DeliveryPerson, error) {
	fields := dbhelper.Fields{}
	if p.Name != nil {
		name := strings.TrimSpace(*p.Name)
		if name == "" {
			return models.DeliveryPerson{}, fmt.Errorf("%w: name is required", ErrInvalidInput)
		}
		fields["name"] = name
	}
	if p.Phone != nil {
		fields["phone"] = strings.TrimSpace(*p.Phone)
	}
	if p.Vehicle != nil {
		fields["vehicle"] = strings.TrimSpace(*p.Vehicle)
	}
	dp, err := s.gw.UpdateDeliveryPerson(ctx, id, fields)
	if err != nil {
		return models.DeliveryPerson{}, translate(err)
	}
	s.sessions.Apply(id, store.DeliveryPersonChanged(dp))
	return dp, nil
}

// Overview is the delivery person's dashboard read from their session mirror.
func (s *DeliveryService) Overview(ctx context.Context, id uuid.UUID) (store.DeliveryView, error) {
	m, err := s.sessions.Ensure(ctx, id)
	if err != nil {
		return store.DeliveryView{}, err
	}
	snap, state := m.Snapshot()
	return store.BuildDeliveryView(snap, state, id, s.now()), nil
}

// AvailableOrders lists ready orders nobody has claimed.
func (s *DeliveryService) AvailableOrders(ctx context.Context, id uuid.UUID) ([]models.Order, error) {
	m, err := s.sessions.Ensure(ctx, id)
	if err != nil {
		return nil, err
	}
	snap, _ := m.Snapshot()
	return store.AvailableOrders(snap.Orders), nil
}

// Reconcile recomputes earnings and the delivery count from the delivered
// order history and stores them.
func (s *DeliveryService) Reconcile(ctx context.Context, adminID, id uuid.UUID) (models.DeliveryPerson, error) {
	orders, err := s.gw.DeliveredOrdersFor(ctx, id)
	if err != nil {
		return models.DeliveryPerson{}, translate(err)
	}
	var earnings float64
	for _, o := range orders {
		earnings += o.Commission()
	}
	dp, err := s.gw.UpdateDeliveryPerson(ctx, id, dbhelper.Fields{
		"earnings":         models.RoundCents(earnings),
		"total_deliveries": len(orders),
	})
	if err != nil {
		return models.DeliveryPerson{}, translate(err)
	}
	logrus.WithFields(logrus.Fields{
		"delivery_person_id": id,
		"deliveries":         len(orders),
		"earnings":           dp.Earnings,
	}).Info("delivery totals reconciled")
	s.sessions.Apply(adminID, store.DeliveryPersonChanged(dp))
	return dp, nil
}
