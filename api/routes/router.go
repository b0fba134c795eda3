package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/avalonhealth/carehub-backend/api/controllers"
	"github.com/avalonhealth/carehub-backend/api/middleware"
	"github.com/avalonhealth/carehub-backend/internal/auth"
	"github.com/avalonhealth/carehub-backend/internal/hospitals"
	"github.com/avalonhealth/carehub-backend/internal/inventory"
	"github.com/avalonhealth/carehub-backend/internal/pharmacy"
	"github.com/avalonhealth/carehub-backend/internal/records"
	"github.com/avalonhealth/carehub-backend/internal/reports"
	"github.com/avalonhealth/carehub-backend/internal/users"
	"github.com/avalonhealth/carehub-backend/pkg/auth/session"
	"github.com/avalonhealth/carehub-backend/pkg/config"
	"github.com/avalonhealth/carehub-backend/pkg/db"
	"github.com/avalonhealth/carehub-backend/pkg/enums"
	"github.com/avalonhealth/carehub-backend/pkg/logger"
	"github.com/avalonhealth/carehub-backend/pkg/redis"
)

// RouterParams bundles everything the HTTP router needs.
type RouterParams struct {
	Config           *config.Config
	Logger           *logger.Logger
	DB               db.Pinger
	Redis            *redis.Client
	SessionChecker   session.AccessSessionChecker
	AuthService      auth.Service
	RegisterService  auth.RegisterService
	UsersService     users.Service
	HospitalService  hospitals.Service
	InventoryService inventory.Service
	PharmacyService  pharmacy.Service
	RecordsService   records.Service
	ReportsService   reports.Service
}

func NewRouter(p RouterParams) http.Handler {
	cfg := p.Config
	logg := p.Logger

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(),
	)

	loginPolicy := middleware.NewAuthRateLimitPolicy(
		"login",
		cfg.AuthRateLimit.LoginWindow,
		cfg.AuthRateLimit.LoginIPLimit,
		cfg.AuthRateLimit.LoginEmailLimit,
	)
	registerPolicy := middleware.NewAuthRateLimitPolicy(
		"register",
		cfg.AuthRateLimit.RegisterWindow,
		cfg.AuthRateLimit.RegisterIPLimit,
		cfg.AuthRateLimit.RegisterEmailLimit,
	)

	// A nil *redis.Client must become a nil interface so the idempotency
	// middleware disengages instead of calling through a nil client.
	var idemStore redis.IdempotencyStore
	if p.Redis != nil {
		idemStore = p.Redis
	}

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, p.DB, p.Redis, logg))
	})

	r.Route("/api/v1/auth", func(r chi.Router) {
		r.With(middleware.AuthRateLimit(loginPolicy, p.Redis, logg)).Post("/login", controllers.AuthLogin(p.AuthService, logg))
		r.With(middleware.AuthRateLimit(registerPolicy, p.Redis, logg)).Post("/register", controllers.AuthRegister(p.RegisterService, logg))
		r.Post("/refresh", controllers.AuthRefresh(p.AuthService, logg))
		r.Post("/logout", controllers.AuthLogout(p.AuthService, cfg.JWT, logg))
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, p.SessionChecker, logg))
		r.Use(middleware.Idempotency(idemStore, logg))

		r.Get("/me", controllers.Me(p.UsersService, logg))

		r.Route("/inventory", func(r chi.Router) {
			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireRole(logg, enums.UserRoleAdmin, enums.UserRoleStaff))
				r.Route("/medications", func(r chi.Router) {
					r.Post("/", controllers.CreateMedication(p.InventoryService, logg))
					r.Get("/", controllers.ListMedications(p.InventoryService, logg))
					r.Get("/{medicationID}", controllers.GetMedication(p.InventoryService, logg))
					r.Patch("/{medicationID}", controllers.UpdateMedication(p.InventoryService, logg))
					r.Delete("/{medicationID}", controllers.DeleteMedication(p.InventoryService, logg))
				})
				r.Route("/supplies", func(r chi.Router) {
					r.Post("/", controllers.CreateSupply(p.InventoryService, logg))
					r.Get("/", controllers.ListSupplies(p.InventoryService, logg))
					r.Get("/{supplyID}", controllers.GetSupply(p.InventoryService, logg))
					r.Patch("/{supplyID}", controllers.UpdateSupply(p.InventoryService, logg))
					r.Delete("/{supplyID}", controllers.DeleteSupply(p.InventoryService, logg))
				})
				r.Route("/equipment", func(r chi.Router) {
					r.Post("/", controllers.CreateEquipment(p.InventoryService, logg))
					r.Get("/", controllers.ListEquipment(p.InventoryService, logg))
					r.Get("/{equipmentID}", controllers.GetEquipment(p.InventoryService, logg))
					r.Patch("/{equipmentID}", controllers.UpdateEquipment(p.InventoryService, logg))
					r.Delete("/{equipmentID}", controllers.DeleteEquipment(p.InventoryService, logg))
				})
				r.Route("/alerts", func(r chi.Router) {
					r.Get("/", controllers.ListStockAlerts(p.InventoryService, logg))
					r.Post("/{alertID}/read", controllers.MarkStockAlertRead(p.InventoryService, logg))
				})
			})
		})

		r.Route("/pharmacy", func(r chi.Router) {
			r.Get("/catalog", controllers.PharmacyCatalog(p.PharmacyService, logg))
			r.Post("/purchases", controllers.PurchaseMedication(p.PharmacyService, logg))
			r.Get("/purchases", controllers.PurchaseHistory(p.PharmacyService, logg))
			r.Route("/prescriptions", func(r chi.Router) {
				r.Post("/", controllers.IssuePrescription(p.PharmacyService, logg))
				r.Get("/", controllers.ListPrescriptions(p.PharmacyService, logg))
				r.Post("/{prescriptionID}/redeem", controllers.RedeemPrescription(p.PharmacyService, logg))
			})
		})

		r.Route("/records", func(r chi.Router) {
			r.Route("/profiles", func(r chi.Router) {
				r.Post("/", controllers.CreatePatientProfile(p.RecordsService, logg))
				r.Get("/", controllers.ListPatientProfiles(p.RecordsService, logg))
				r.Get("/me", controllers.GetOwnPatientProfile(p.RecordsService, logg))
				r.Get("/{profileID}", controllers.GetPatientProfile(p.RecordsService, logg))
				r.Patch("/{profileID}", controllers.UpdatePatientProfile(p.RecordsService, logg))
				r.Get("/{profileID}/entries", controllers.ListMedicalRecords(p.RecordsService, logg))
			})
			r.Route("/entries", func(r chi.Router) {
				r.Post("/", controllers.CreateMedicalRecord(p.RecordsService, logg))
				r.Patch("/{recordID}", controllers.UpdateMedicalRecord(p.RecordsService, logg))
				r.Delete("/{recordID}", controllers.DeleteMedicalRecord(p.RecordsService, logg))
				r.Post("/{recordID}/comments", controllers.AddRecordComment(p.RecordsService, logg))
				r.Get("/{recordID}/comments", controllers.ListRecordComments(p.RecordsService, logg))
			})
		})

		r.Route("/reports", func(r chi.Router) {
			r.Use(middleware.RequireRole(logg, enums.UserRoleAdmin, enums.UserRoleStaff))
			r.Post("/", controllers.CreateReport(p.ReportsService, logg))
			r.Get("/", controllers.ListReports(p.ReportsService, logg))
			r.Get("/summaries", controllers.PurchaseSummaries(p.ReportsService, logg))
			r.Get("/{reportID}", controllers.GetReport(p.ReportsService, logg))
			r.Patch("/{reportID}", controllers.UpdateReport(p.ReportsService, logg))
			r.Delete("/{reportID}", controllers.DeleteReport(p.ReportsService, logg))
		})
	})

	r.Route("/api/admin/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, p.SessionChecker, logg))
		r.Use(middleware.RequireRole(logg, enums.UserRoleAdmin))
		r.Use(middleware.Idempotency(idemStore, logg))

		r.Route("/hospitals", func(r chi.Router) {
			r.Post("/", controllers.CreateHospital(p.HospitalService, logg))
			r.Get("/", controllers.ListHospitals(p.HospitalService, logg))
			r.Get("/{hospitalID}", controllers.GetHospital(p.HospitalService, logg))
			r.Patch("/{hospitalID}", controllers.UpdateHospital(p.HospitalService, logg))
			r.Delete("/{hospitalID}", controllers.DeleteHospital(p.HospitalService, logg))
			r.Get("/{hospitalID}/overview", controllers.HospitalOverview(p.HospitalService, logg))
			r.Route("/{hospitalID}/departments", func(r chi.Router) {
				r.Post("/", controllers.CreateDepartment(p.HospitalService, logg))
				r.Get("/", controllers.ListDepartments(p.HospitalService, logg))
				r.Patch("/{departmentID}", controllers.UpdateDepartment(p.HospitalService, logg))
				r.Delete("/{departmentID}", controllers.DeleteDepartment(p.HospitalService, logg))
			})
		})

		r.Route("/users", func(r chi.Router) {
			r.Post("/", controllers.CreateUser(p.UsersService, logg))
			r.Get("/", controllers.ListUsers(p.UsersService, logg))
			r.Get("/{userID}", controllers.GetUser(p.UsersService, logg))
			r.Patch("/{userID}", controllers.UpdateUser(p.UsersService, logg))
		})
	})

	return r
}
