package dbhelper

import (
	"context"
	"database/sql"

	"github.com/google/uuid"

	"github.com/ray-remotestate/delivery/database"
	"github.com/ray-remotestate/delivery/models"
)

// Gateway binds the collection helpers to a connection pool and owns the
// multi-statement operations that must commit together.
type Gateway struct {
	db *sql.DB
}

func NewGateway(db *sql.DB) *Gateway {
	return &Gateway{db: db}
}

func (g *Gateway) DB() *sql.DB { return g.db }

func (g *Gateway) ListBusinesses(ctx context.Context) ([]models.Business, error) {
	return ListBusinesses(ctx, g.db)
}

func (g *Gateway) ListOrders(ctx context.Context) ([]models.Order, error) {
	return ListOrders(ctx, g.db)
}

func (g *Gateway) ListProducts(ctx context.Context) ([]models.Product, error) {
	return ListProducts(ctx, g.db)
}

func (g *Gateway) ListDeliveryPersons(ctx context.Context) ([]models.DeliveryPerson, error) {
	return ListDeliveryPersons(ctx, g.db)
}

func (g *Gateway) ListClients(ctx context.Context) ([]models.Client, error) {
	return ListClients(ctx, g.db)
}

func (g *Gateway) GetOrder(ctx context.Context, id uuid.UUID) (models.Order, error) {
	return GetOrder(ctx, g.db, id)
}

func (g *Gateway) GetBusiness(ctx context.Context, id uuid.UUID) (models.Business, error) {
	return GetBusiness(ctx, g.db, id)
}

func (g *Gateway) GetProduct(ctx context.Context, id uuid.UUID) (models.Product, error) {
	return GetProduct(ctx, g.db, id)
}

func (g *Gateway) GetDeliveryPerson(ctx context.Context, id uuid.UUID) (models.DeliveryPerson, error) {
	return GetDeliveryPerson(ctx, g.db, id)
}

func (g *Gateway) GetClient(ctx context.Context, id uuid.UUID) (models.Client, error) {
	return GetClient(ctx, g.db, id)
}

func (g *Gateway) ProductsByIDs(ctx context.Context, ids []uuid.UUID) ([]models.Product, error) {
	return ProductsByIDs(ctx, g.db, ids)
}

func (g *Gateway) InsertOrder(ctx context.Context, o models.Order) (models.Order, error) {
	return InsertOrder(ctx, g.db, o)
}

func (g *Gateway) InsertBusiness(ctx context.Context, b models.Business) (models.Business, error) {
	return InsertBusiness(ctx, g.db, b)
}

func (g *Gateway) UpdateBusiness(ctx context.Context, id uuid.UUID, fields Fields) (models.Business, error) {
	return UpdateBusiness(ctx, g.db, id, fields)
}

func (g *Gateway) InsertProduct(ctx context.Context, p models.Product) (models.Product, error) {
	return InsertProduct(ctx, g.db, p)
}

func (g *Gateway) UpdateProduct(ctx context.Context, id uuid.UUID, fields Fields) (models.Product, error) {
	return UpdateProduct(ctx, g.db, id, fields)
}

func (g *Gateway) InsertDeliveryPerson(ctx context.Context, d models.DeliveryPerson) (models.DeliveryPerson, error) {
	return InsertDeliveryPerson(ctx, g.db, d)
}

func (g *Gateway) UpdateDeliveryPerson(ctx context.Context, id uuid.UUID, fields Fields) (models.DeliveryPerson, error) {
	return UpdateDeliveryPerson(ctx, g.db, id, fields)
}

func (g *Gateway) InsertClient(ctx context.Context, c models.Client) (models.Client, error) {
	return InsertClient(ctx, g.db, c)
}

func (g *Gateway) UpdateClient(ctx context.Context, id uuid.UUID, fields Fields) (models.Client, error) {
	return UpdateClient(ctx, g.db, id, fields)
}

// Remove deletes a profile record. For the three account collections the
// matching login is archived in the same transaction.
func (g *Gateway) Remove(ctx context.Context, c Collection, id uuid.UUID) error {
	if c == Orders || c == Products {
		return Remove(ctx, g.db, c, id)
	}
	return database.TxContext(ctx, g.db, func(tx *sql.Tx) error {
		if err := Remove(ctx, tx, c, id); err != nil {
			return err
		}
		return ArchiveUser(ctx, tx, id)
	})
}

func (g *Gateway) DeliveredOrdersFor(ctx context.Context, deliveryPersonID uuid.UUID) ([]models.Order, error) {
	return DeliveredOrdersFor(ctx, g.db, deliveryPersonID)
}

func (g *Gateway) StatusHistory(ctx context.Context, orderID uuid.UUID) ([]models.StatusLog, error) {
	return StatusHistory(ctx, g.db, orderID)
}

// ClaimOrder runs the conditional claim and logs ready -> delivering.
func (g *Gateway) ClaimOrder(ctx context.Context, orderID, deliveryPersonID uuid.UUID) (models.Order, error) {
	var claimed models.Order
	err := database.TxContext(ctx, g.db, func(tx *sql.Tx) error {
		o, err := ClaimOrder(ctx, tx, orderID, deliveryPersonID)
		if err != nil {
			return err
		}
		claimed = o
		return InsertStatusLog(ctx, tx, orderID, models.StatusReady, models.StatusDelivering, deliveryPersonID)
	})
	return claimed, err
}

// TransitionOrder locks the order, lets guard veto the change, validates the
// lifecycle edge and writes the new status with its log row.
func (g *Gateway) TransitionOrder(ctx context.Context, orderID uuid.UUID, to models.OrderStatus, changedBy uuid.UUID, guard func(models.Order) error) (models.Order, models.OrderStatus, error) {
	var (
		updated models.Order
		from    models.OrderStatus
	)
	err := database.TxContext(ctx, g.db, func(tx *sql.Tx) error {
		current, err := GetOrderForUpdate(ctx, tx, orderID)
		if err != nil {
			return err
		}
		if guard != nil {
			if err := guard(current); err != nil {
				return err
			}
		}
		if err := models.ValidateTransition(current.Status, to); err != nil {
			return err
		}
		from = current.Status
		updated, err = UpdateOrder(ctx, tx, orderID, Fields{"status": to})
		if err != nil {
			return err
		}
		return InsertStatusLog(ctx, tx, orderID, from, to, changedBy)
	})
	return updated, from, err
}

// EditOrder locks the order and writes whatever fields edit derives from its
// current row. A status change in those fields gets its log row; edit is
// trusted to have checked it.
func (g *Gateway) EditOrder(ctx context.Context, orderID, changedBy uuid.UUID, edit func(models.Order) (Fields, error)) (models.Order, models.OrderStatus, error) {
	var (
		updated models.Order
		from    models.OrderStatus
	)
	err := database.TxContext(ctx, g.db, func(tx *sql.Tx) error {
		current, err := GetOrderForUpdate(ctx, tx, orderID)
		if err != nil {
			return err
		}
		from = current.Status
		fields, err := edit(current)
		if err != nil {
			return err
		}
		updated, err = UpdateOrder(ctx, tx, orderID, fields)
		if err != nil {
			return err
		}
		if updated.Status == from {
			return nil
		}
		return InsertStatusLog(ctx, tx, orderID, from, updated.Status, changedBy)
	})
	return updated, from, err
}

// CompleteDelivery marks the order delivered and credits the commission to
// the delivery person in a single transaction.
func (g *Gateway) CompleteDelivery(ctx context.Context, orderID, deliveryPersonID uuid.UUID, guard func(models.Order) error) (models.Order, models.DeliveryPerson, error) {
	var (
		order  models.Order
		person models.DeliveryPerson
	)
	err := database.TxContext(ctx, g.db, func(tx *sql.Tx) error {
		current, err := GetOrderForUpdate(ctx, tx, orderID)
		if err != nil {
			return err
		}
		if guard != nil {
			if err := guard(current); err != nil {
				return err
			}
		}
		if err := models.ValidateTransition(current.Status, models.StatusDelivered); err != nil {
			return err
		}
		order, err = UpdateOrder(ctx, tx, orderID, Fields{"status": models.StatusDelivered})
		if err != nil {
			return err
		}
		person, err = CreditDelivery(ctx, tx, deliveryPersonID, current.Commission())
		if err != nil {
			return err
		}
		return InsertStatusLog(ctx, tx, orderID, current.Status, models.StatusDelivered, deliveryPersonID)
	})
	return order, person, err
}

// CreateAccount inserts the login and its role profile together.
func (g *Gateway) CreateAccount(ctx context.Context, name, email, hashedPassword string, role models.Role, phone string) (uuid.UUID, error) {
	var userID uuid.UUID
	err := database.TxContext(ctx, g.db, func(tx *sql.Tx) error {
		var err error
		userID, err = CreateUser(ctx, tx, name, email, hashedPassword, role)
		if err != nil {
			return err
		}
		switch role {
		case models.RoleClient:
			_, err = InsertClient(ctx, tx, models.Client{ID: userID, Name: name, Email: email, Phone: phone, IsActive: true})
		case models.RoleBusiness:
			_, err = InsertBusiness(ctx, tx, models.Business{ID: userID, Name: name, Email: email, Phone: phone, IsActive: true, IsOpen: true})
		case models.RoleDelivery:
			_, err = InsertDeliveryPerson(ctx, tx, models.DeliveryPerson{ID: userID, Name: name, Email: email, Phone: phone, IsActive: true})
		}
		return err
	})
	return userID, err
}

func (g *Gateway) IsUserExists(ctx context.Context, email string) (bool, error) {
	return IsUserExists(ctx, g.db, email)
}

func (g *Gateway) Authenticate(ctx context.Context, email, password string) (models.User, error) {
	return GetUserByPassword(ctx, g.db, email, password)
}

func (g *Gateway) GetUser(ctx context.Context, id uuid.UUID) (models.User, error) {
	return GetUserByID(ctx, g.db, id)
}

func (g *Gateway) EnsureAdmin(ctx context.Context, email, hashedPassword string) (bool, error) {
	return EnsureAdmin(ctx, g.db, "Administrador", email, hashedPassword)
}
