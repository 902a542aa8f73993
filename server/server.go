package server

import (
	"context"
	"io"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/ray-remotestate/delivery/handlers"
	"github.com/ray-remotestate/delivery/middlewares"
	"github.com/ray-remotestate/delivery/models"
)

type Server struct {
	Router *mux.Router
	server *http.Server
}

const (
	readTimeout       = 5 * time.Minute
	readHeaderTimeout = 30 * time.Second
	writeTimeout      = 5 * time.Minute
)

func SetupRoutes(h *handlers.Handler) *Server {
	router := mux.NewRouter()
	router.Use(middlewares.RequestLogger)

	router.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		io.WriteString(w, `{"alive": true}`)
	}).Methods("GET")
	router.HandleFunc("/register", h.Register).Methods("POST")
	router.HandleFunc("/refresh", h.RefreshToken).Methods("POST")
	router.HandleFunc("/login", h.Login).Methods("POST")

	authRoutes := router.PathPrefix("/api").Subrouter()
	authRoutes.Use(middlewares.AuthMiddleware)
	authRoutes.HandleFunc("/logout", h.Logout).Methods("POST")
	authRoutes.HandleFunc("/me", h.Me).Methods("GET")
	authRoutes.HandleFunc("/geocode/search", handlers.WithActor(h.GeocodeSearch)).Methods("GET")
	authRoutes.HandleFunc("/geocode/reverse", handlers.WithActor(h.GeocodeReverse)).Methods("GET")

	client := authRoutes.PathPrefix("/cliente").Subrouter()
	client.Use(middlewares.RoleBasedMiddleware(models.RoleClient))
	client.HandleFunc("/dashboard", handlers.WithActor(h.ClientDashboard)).Methods("GET")
	client.HandleFunc("/businesses", handlers.WithActor(h.ListBusinesses)).Methods("GET")
	client.HandleFunc("/businesses/{id}/products", handlers.WithActor(h.BusinessProducts)).Methods("GET")
	client.HandleFunc("/businesses/{id}/distance", handlers.WithActor(h.BusinessDistance)).Methods("GET")
	client.HandleFunc("/cart", handlers.WithActor(h.GetCart)).Methods("GET")
	client.HandleFunc("/cart", handlers.WithActor(h.ClearCart)).Methods("DELETE")
	client.HandleFunc("/cart/items", handlers.WithActor(h.AddToCart)).Methods("POST")
	client.HandleFunc("/cart/items/{productId}", handlers.WithActor(h.ChangeCartQuantity)).Methods("PATCH")
	client.HandleFunc("/cart/items/{productId}", handlers.WithActor(h.RemoveFromCart)).Methods("DELETE")
	client.HandleFunc("/address", handlers.WithActor(h.LastAddress)).Methods("GET")
	client.HandleFunc("/checkout", handlers.WithActor(h.Checkout)).Methods("POST")
	client.HandleFunc("/orders", handlers.WithActor(h.ClientOrders)).Methods("GET")
	client.HandleFunc("/orders/{id}/cancel", handlers.WithActor(h.CancelOrder)).Methods("POST")
	client.HandleFunc("/profile", handlers.WithActor(h.UpdateClientProfile)).Methods("PATCH")

	business := authRoutes.PathPrefix("/negocio").Subrouter()
	business.Use(middlewares.RoleBasedMiddleware(models.RoleBusiness))
	business.HandleFunc("/dashboard", handlers.WithActor(h.BusinessDashboard)).Methods("GET")
	business.HandleFunc("/orders", handlers.WithActor(h.BusinessOrders)).Methods("GET")
	business.HandleFunc("/orders/{id}/status", handlers.WithActor(h.UpdateOrderStatus)).Methods("PATCH")
	business.HandleFunc("/profile", handlers.WithActor(h.UpdateBusinessProfile)).Methods("PATCH")
	business.HandleFunc("/products", handlers.WithActor(h.CreateProduct)).Methods("POST")
	business.HandleFunc("/products/{id}", handlers.WithActor(h.UpdateProduct)).Methods("PATCH")
	business.HandleFunc("/products/{id}", handlers.WithActor(h.DeleteProduct)).Methods("DELETE")

	delivery := authRoutes.PathPrefix("/repartidor").Subrouter()
	delivery.Use(middlewares.RoleBasedMiddleware(models.RoleDelivery))
	delivery.HandleFunc("/dashboard", handlers.WithActor(h.DeliveryDashboard)).Methods("GET")
	delivery.HandleFunc("/orders/available", handlers.WithActor(h.AvailableOrders)).Methods("GET")
	delivery.HandleFunc("/orders/active", handlers.WithActor(h.ActiveDeliveries)).Methods("GET")
	delivery.HandleFunc("/orders/{id}/claim", handlers.WithActor(h.ClaimOrder)).Methods("POST")
	delivery.HandleFunc("/orders/{id}/complete", handlers.WithActor(h.CompleteDelivery)).Methods("POST")
	delivery.HandleFunc("/online", handlers.WithActor(h.ToggleOnline)).Methods("POST")
	delivery.HandleFunc("/profile", handlers.WithActor(h.UpdateDeliveryProfile)).Methods("PATCH")

	// admin only
	admin := authRoutes.PathPrefix("/admin").Subrouter()
	admin.Use(middlewares.RoleBasedMiddleware(models.RoleAdmin))
	admin.HandleFunc("/dashboard", handlers.WithActor(h.AdminDashboard)).Methods("GET")
	admin.HandleFunc("/orders", handlers.WithActor(h.AdminOrders)).Methods("GET")
	admin.HandleFunc("/orders/map", handlers.WithActor(h.AdminOrderMap)).Methods("GET")
	admin.HandleFunc("/orders/{id}", handlers.WithActor(h.AdminUpdateOrder)).Methods("PATCH")
	admin.HandleFunc("/orders/{id}/status", handlers.WithActor(h.UpdateOrderStatus)).Methods("PATCH")
	admin.HandleFunc("/businesses/{id}", handlers.WithActor(h.AdminUpdateBusiness)).Methods("PATCH")
	admin.HandleFunc("/delivery-persons/{id}/reconcile", handlers.WithActor(h.ReconcileDeliveryPerson)).Methods("POST")
	admin.HandleFunc("/users", handlers.WithActor(h.ListUsers)).Methods("GET")
	admin.HandleFunc("/users", handlers.WithActor(h.CreateUser)).Methods("POST")
	admin.HandleFunc("/users/{type}/{id}", handlers.WithActor(h.UpdateUser)).Methods("PATCH")
	admin.HandleFunc("/users/{type}/{id}", handlers.WithActor(h.DeleteUser)).Methods("DELETE")
	admin.HandleFunc("/users/{type}/{id}/toggle", handlers.WithActor(h.ToggleUserActive)).Methods("POST")

	tracking := authRoutes.PathPrefix("/seguimiento").Subrouter()
	tracking.Use(middlewares.RoleBasedMiddleware(models.RoleClient, models.RoleAdmin))
	tracking.HandleFunc("/{orderId}", handlers.WithActor(h.TrackOrder)).Methods("GET")
	tracking.HandleFunc("/{orderId}/ws", handlers.WithActor(h.TrackOrderWS)).Methods("GET")

	return &Server{
		Router: router,
	}
}

func (svr *Server) Run(port string) error {
	svr.server = &http.Server{
		Addr:              port,
		Handler:           svr.Router,
		ReadTimeout:       readTimeout,
		ReadHeaderTimeout: readHeaderTimeout,
		WriteTimeout:      writeTimeout,
	}
	return svr.server.ListenAndServe()
}

func (svr *Server) Shutdown(timeout time.Duration) error {
	if svr.server == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	return svr.server.Shutdown(ctx)
}
