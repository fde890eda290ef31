package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"gorm.io/gorm"

	"github.com/denvolkov/playcart-backend/api/controllers"
	"github.com/denvolkov/playcart-backend/api/middleware"
	internalauth "github.com/denvolkov/playcart-backend/internal/auth"
	"github.com/denvolkov/playcart-backend/internal/missions"
	"github.com/denvolkov/playcart-backend/internal/orders"
	"github.com/denvolkov/playcart-backend/internal/products"
	"github.com/denvolkov/playcart-backend/internal/promos"
	"github.com/denvolkov/playcart-backend/internal/reviews"
	"github.com/denvolkov/playcart-backend/internal/rewards"
	"github.com/denvolkov/playcart-backend/internal/topup"
	internalusers "github.com/denvolkov/playcart-backend/internal/users"
	"github.com/denvolkov/playcart-backend/internal/wheel"
	"github.com/denvolkov/playcart-backend/pkg/auth/session"
	"github.com/denvolkov/playcart-backend/pkg/config"
	"github.com/denvolkov/playcart-backend/pkg/enums"
	"github.com/denvolkov/playcart-backend/pkg/logger"
	"github.com/denvolkov/playcart-backend/pkg/metrics"
	"github.com/denvolkov/playcart-backend/pkg/redis"
)

// Deps bundles everything the HTTP surface needs. Repositories appear
// alongside services where admin CRUD goes straight to storage.
type Deps struct {
	Cfg  *config.Config
	Logg *logger.Logger

	DB       *gorm.DB
	Redis    *redis.Client
	Sessions session.AccessSessionChecker

	HTTPMetrics *metrics.HTTPMetrics
	Gatherer    prometheus.Gatherer

	AuthService     internalauth.Service
	UsersService    internalusers.Service
	OrdersService   orders.Service
	OrdersRepo      orders.Repository
	ProductsRepo    products.Repository
	PromosRepo      promos.Repository
	ReviewsService  reviews.Service
	WheelService    wheel.Service
	WheelRepo       wheel.Repository
	RewardsService  rewards.Service
	RewardsRepo     rewards.Repository
	MissionsService missions.Service
	MissionsRepo    missions.Repository
	TopUpService    topup.Service
}

func NewRouter(d Deps) http.Handler {
	cfg := d.Cfg
	logg := d.Logg

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.Metrics(d.HTTPMetrics),
		middleware.CORS(),
	)

	loginPolicy := middleware.NewAuthRateLimitPolicy(
		"login",
		cfg.AuthRateLimit.LoginWindow,
		cfg.AuthRateLimit.LoginIPLimit,
		cfg.AuthRateLimit.LoginUsernameLimit,
	)
	registerPolicy := middleware.NewAuthRateLimitPolicy(
		"register",
		cfg.AuthRateLimit.RegisterWindow,
		cfg.AuthRateLimit.RegisterIPLimit,
		cfg.AuthRateLimit.RegisterUsernameLimit,
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.Live())
		r.Get("/ready", controllers.Ready(d.DB, d.Redis, logg))
	})
	r.Method(http.MethodGet, "/metrics", metrics.Handler(d.Gatherer))

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			r.With(middleware.AuthRateLimit(registerPolicy, d.Redis, logg)).Post("/register", controllers.Register(d.AuthService, logg))
			r.With(middleware.AuthRateLimit(loginPolicy, d.Redis, logg)).Post("/login", controllers.Login(d.AuthService, logg))

			r.Group(func(r chi.Router) {
				r.Use(middleware.Auth(cfg.JWT, d.Sessions, logg))
				r.Post("/logout", controllers.Logout(d.AuthService, logg))
				r.Get("/me", controllers.Me(d.UsersService, logg))
			})
		})

		r.Route("/products", func(r chi.Router) {
			r.Get("/", controllers.ListProducts(d.ProductsRepo, logg))
			r.Get("/{productId}", controllers.ProductDetail(d.ProductsRepo, logg))
		})
		r.Get("/reviews/{productId}", controllers.ListProductReviews(d.ReviewsService, logg))

		r.Group(func(r chi.Router) {
			r.Use(middleware.Auth(cfg.JWT, d.Sessions, logg))
			r.Use(middleware.Idempotency(d.Redis, logg))

			r.Route("/orders", func(r chi.Router) {
				r.Post("/", controllers.CreateOrder(d.OrdersService, logg))
				r.Get("/", controllers.ListMyOrders(d.OrdersService, logg))
				r.Get("/{orderId}/track", controllers.TrackOrder(d.OrdersService, logg))
				r.Post("/{orderId}/return-request", controllers.RequestReturn(d.OrdersService, logg))
			})

			r.Route("/wheel", func(r chi.Router) {
				r.Post("/spin", controllers.SpinWheel(d.WheelService, logg))
				r.Get("/prizes", controllers.ListWheelPrizes(d.WheelService, logg))
			})

			r.Route("/rewards", func(r chi.Router) {
				r.Get("/", controllers.ListRewards(d.RewardsService, logg))
				r.Post("/claim/{level}", controllers.ClaimReward(d.RewardsService, logg))
			})

			r.Route("/missions", func(r chi.Router) {
				r.Get("/", controllers.ListMissions(d.MissionsService, logg))
				r.Post("/{missionId}/claim", controllers.ClaimMission(d.MissionsService, logg))
			})

			r.Post("/promo/validate", controllers.ValidatePromo(d.PromosRepo, logg))
			r.Post("/reviews", controllers.CreateReview(d.ReviewsService, logg))

			r.Route("/topup", func(r chi.Router) {
				r.Post("/redeem", controllers.RedeemTopUpCode(d.TopUpService, logg))
				r.Post("/request", controllers.RequestTopUp(d.TopUpService, logg))
				r.Get("/requests", controllers.ListMyTopUpRequests(d.TopUpService, logg))
			})

			r.Route("/delivery", func(r chi.Router) {
				r.Use(middleware.RequirePermission(enums.PermFulfillOrders, logg))
				r.Get("/orders", controllers.ListClaimableOrders(d.OrdersService, logg))
				r.Get("/orders/assigned", controllers.ListAssignedOrders(d.OrdersService, logg))
				r.Post("/orders/{orderId}/take", controllers.TakeOrder(d.OrdersService, logg))
			})

			r.Route("/admin", func(r chi.Router) {
				r.Route("/orders", func(r chi.Router) {
					r.Use(middleware.RequirePermission(enums.PermManageOrders, logg))
					r.Get("/", controllers.ListAllOrders(d.OrdersService, logg))
					r.Get("/{orderId}", controllers.AdminOrderDetail(d.OrdersRepo, logg))
					r.Put("/{orderId}/status", controllers.UpdateOrderStatus(d.OrdersService, logg))

					r.Group(func(r chi.Router) {
						r.Use(middleware.RequireRole(enums.RoleAdmin, logg))
						r.Post("/{orderId}/approve-return", controllers.ApproveReturn(d.OrdersService, logg))
						r.Delete("/{orderId}", controllers.DeleteOrder(d.OrdersService, logg))
					})
				})

				r.Route("/products", func(r chi.Router) {
					r.Use(middleware.RequirePermission(enums.PermManageCatalog, logg))
					r.Post("/", controllers.CreateProduct(d.ProductsRepo, logg))
					r.Put("/{productId}", controllers.UpdateProduct(d.ProductsRepo, logg))
					r.Delete("/{productId}", controllers.DeleteProduct(d.ProductsRepo, logg))
				})

				r.Route("/wheel/prizes", func(r chi.Router) {
					r.Use(middleware.RequirePermission(enums.PermManageCatalog, logg))
					r.Post("/", controllers.CreateWheelPrize(d.WheelRepo, logg))
					r.Put("/{prizeId}", controllers.UpdateWheelPrize(d.WheelRepo, logg))
					r.Delete("/{prizeId}", controllers.DeleteWheelPrize(d.WheelRepo, logg))
				})

				r.Route("/rewards", func(r chi.Router) {
					r.Use(middleware.RequirePermission(enums.PermManageCatalog, logg))
					r.Post("/", controllers.CreateReward(d.RewardsRepo, logg))
					r.Put("/{rewardId}", controllers.UpdateReward(d.RewardsRepo, logg))
					r.Delete("/{rewardId}", controllers.DeleteReward(d.RewardsRepo, logg))
				})

				r.Route("/missions", func(r chi.Router) {
					r.Use(middleware.RequirePermission(enums.PermManageCatalog, logg))
					r.Post("/", controllers.CreateMission(d.MissionsRepo, logg))
					r.Put("/{missionId}", controllers.UpdateMission(d.MissionsRepo, logg))
					r.Delete("/{missionId}", controllers.DeleteMission(d.MissionsRepo, logg))
				})

				r.Route("/promos", func(r chi.Router) {
					r.Use(middleware.RequirePermission(enums.PermManageCatalog, logg))
					r.Get("/", controllers.ListPromos(d.PromosRepo, logg))
					r.Post("/", controllers.CreatePromo(d.PromosRepo, logg))
					r.Put("/{promoId}", controllers.UpdatePromo(d.PromosRepo, logg))
					r.Delete("/{promoId}", controllers.DeletePromo(d.PromosRepo, logg))
				})

				r.Route("/topup-requests", func(r chi.Router) {
					r.Use(middleware.RequirePermission(enums.PermManageFinance, logg))
					r.Get("/", controllers.ListTopUpRequests(d.TopUpService, logg))
					r.Put("/{requestId}/approve", controllers.ResolveTopUpRequest(d.TopUpService, true, logg))
					r.Put("/{requestId}/reject", controllers.ResolveTopUpRequest(d.TopUpService, false, logg))
				})

				r.Route("/topup-codes", func(r chi.Router) {
					r.Use(middleware.RequirePermission(enums.PermManageFinance, logg))
					r.Get("/", controllers.ListTopUpCodes(d.TopUpService, logg))
					r.Post("/", controllers.CreateTopUpCode(d.TopUpService, logg))
				})

				r.Route("/users", func(r chi.Router) {
					r.Use(middleware.RequirePermission(enums.PermManageUsers, logg))
					r.Get("/", controllers.ListUsers(d.UsersService, logg))
					r.Get("/{userId}", controllers.GetUser(d.UsersService, logg))
					r.Put("/{userId}/role", controllers.UpdateUserRole(d.UsersService, logg))
					r.Put("/{userId}/active", controllers.SetUserActive(d.UsersService, logg))
					r.Post("/{userId}/balance", controllers.AdjustUserBalance(d.UsersService, logg))
					r.Post("/{userId}/xp", controllers.GrantUserXP(d.UsersService, logg))

					r.With(middleware.RequireRole(enums.RoleAdmin, logg)).Delete("/{userId}", controllers.DeleteUser(d.UsersService, logg))
				})
			})
		})
	})

	return r
}
