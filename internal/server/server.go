package server

import (
	"context"
	"net/http"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/tokomart/tokomart/internal/adminops"
	admindomain "github.com/tokomart/tokomart/internal/adminops/domain"
	"github.com/tokomart/tokomart/internal/audit"
	auditdomain "github.com/tokomart/tokomart/internal/audit/domain"
	"github.com/tokomart/tokomart/internal/authorization"
	"github.com/tokomart/tokomart/internal/config"
	"github.com/tokomart/tokomart/internal/entitlement"
	entitlementdomain "github.com/tokomart/tokomart/internal/entitlement/domain"
	"github.com/tokomart/tokomart/internal/locks"
	"github.com/tokomart/tokomart/internal/manager"
	managerdomain "github.com/tokomart/tokomart/internal/manager/domain"
	"github.com/tokomart/tokomart/internal/payment"
	"github.com/tokomart/tokomart/internal/userdirectory"
	userdomain "github.com/tokomart/tokomart/internal/userdirectory/domain"
)

var Module = fx.Module("http.server",
	fx.Provide(registerGin),
	authorization.Module,
	audit.Module,
	locks.Module,
	payment.Module,
	entitlement.Module,
	userdirectory.Module,
	manager.Module,
	adminops.Module,
	fx.Invoke(NewServer),
	fx.Invoke(run),
)

func NewEngine(log *zap.Logger) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(RequestLogger(log))
	r.Use(ShopContext())
	r.Use(UserContext())
	r.Use(ErrorHandlingMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}

func registerGin(log *zap.Logger) *gin.Engine {
	return NewEngine(log.Named("http"))
}

func run(lc fx.Lifecycle, r *gin.Engine, cfg config.Config) {
	srv := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: r,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					panic(err)
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	})
}

type Server struct {
	engine *gin.Engine
	cfg    config.Config
	db     *gorm.DB
	genID  *snowflake.Node

	entitlementSvc entitlementdomain.Service
	managerSvc     managerdomain.Service
	userSvc        userdomain.Service
	adminSvc       admindomain.Service
	authzSvc       authorization.Service
	auditSvc       auditdomain.Service
}

type ServerParams struct {
	fx.In

	Gin   *gin.Engine
	Cfg   config.Config
	DB    *gorm.DB
	GenID *snowflake.Node

	EntitlementSvc entitlementdomain.Service
	ManagerSvc     managerdomain.Service
	UserSvc        userdomain.Service
	AdminSvc       admindomain.Service
	AuthzSvc       authorization.Service
	AuditSvc       auditdomain.Service
}

func NewServer(p ServerParams) *Server {
	svc := &Server{
		engine: p.Gin,
		cfg:    p.Cfg,
		db:     p.DB,
		genID:  p.GenID,

		entitlementSvc: p.EntitlementSvc,
		managerSvc:     p.ManagerSvc,
		userSvc:        p.UserSvc,
		adminSvc:       p.AdminSvc,
		authzSvc:       p.AuthzSvc,
		auditSvc:       p.AuditSvc,
	}

	svc.registerAPIRoutes()
	svc.registerAdminRoutes()

	return svc
}

func (s *Server) Engine() *gin.Engine {
	return s.engine
}

func (s *Server) registerAPIRoutes() {
	api := s.engine.Group("/api/service", ShopRequired())

	api.GET("/my-entitlement", s.GetMyEntitlement)
	api.POST("/create-purchase", s.CreatePurchase)
	api.POST("/activate", s.ActivateService)

	api.GET("/manager", s.GetManager)
	api.POST("/assign-manager", s.AssignManager)
	api.POST("/create-manager-account", s.CreateManagerAccount)
	api.POST("/remove-manager", s.RemoveManager)
	api.GET("/search-users", s.SearchUsers)
}

func (s *Server) registerAdminRoutes() {
	admin := s.engine.Group("/admin")

	admin.GET("/all-entitlements",
		s.authorizeAction(authorization.ObjectAdminPanel, authorization.ActionAdminPanelView),
		s.ListEntitlements)
	admin.GET("/entitlements/summary",
		s.authorizeAction(authorization.ObjectAdminPanel, authorization.ActionAdminPanelView),
		s.EntitlementSummary)
	admin.PUT("/toggle-suspension/:id",
		s.authorizeAction(authorization.ObjectAdminPanel, authorization.ActionAdminPanelAct),
		s.ToggleSuspension)
	admin.POST("/grant-free",
		s.authorizeAction(authorization.ObjectAdminPanel, authorization.ActionAdminPanelAct),
		s.GrantFree)
	admin.GET("/audit-logs",
		s.authorizeAction(authorization.ObjectAuditLog, authorization.ActionAuditLogView),
		s.ListAuditLogs)
}
