package server

import (
	"context"
	"net/http"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/qualitrace/qualitrace/internal/audit"
	auditdomain "github.com/qualitrace/qualitrace/internal/audit/domain"
	"github.com/qualitrace/qualitrace/internal/auth"
	authdomain "github.com/qualitrace/qualitrace/internal/auth/domain"
	"github.com/qualitrace/qualitrace/internal/authorization"
	"github.com/qualitrace/qualitrace/internal/changerequest"
	crdomain "github.com/qualitrace/qualitrace/internal/changerequest/domain"
	"github.com/qualitrace/qualitrace/internal/clock"
	"github.com/qualitrace/qualitrace/internal/config"
	"github.com/qualitrace/qualitrace/internal/document"
	docdomain "github.com/qualitrace/qualitrace/internal/document/domain"
	"github.com/qualitrace/qualitrace/internal/events"
	"github.com/qualitrace/qualitrace/internal/notifications"
	"github.com/qualitrace/qualitrace/internal/observability"
	obsmiddleware "github.com/qualitrace/qualitrace/internal/observability/logger"
	obsmetrics "github.com/qualitrace/qualitrace/internal/observability/metrics"
	obstracing "github.com/qualitrace/qualitrace/internal/observability/tracing"
	"github.com/qualitrace/qualitrace/internal/providers"
	"github.com/qualitrace/qualitrace/internal/providers/drafts"
	"github.com/qualitrace/qualitrace/internal/risk"
	riskdomain "github.com/qualitrace/qualitrace/internal/risk/domain"
	"github.com/qualitrace/qualitrace/internal/system"
	systemdomain "github.com/qualitrace/qualitrace/internal/system/domain"
	"github.com/qualitrace/qualitrace/internal/tenant"
	tenantdomain "github.com/qualitrace/qualitrace/internal/tenant/domain"
	"github.com/qualitrace/qualitrace/internal/traceability"
	tracedomain "github.com/qualitrace/qualitrace/internal/traceability/domain"
	"github.com/qualitrace/qualitrace/internal/validationproject"
	projectdomain "github.com/qualitrace/qualitrace/internal/validationproject/domain"
	pkgdb "github.com/qualitrace/qualitrace/pkg/db"
	"go.uber.org/fx"
	"gorm.io/gorm"
)

var Module = fx.Module("http.server",
	config.Module,
	observability.Module,
	pkgdb.Module,
	clock.Module,
	fx.Provide(registerGin),
	events.Module,
	audit.Module,
	auth.Module,
	authorization.Module,
	tenant.Module,
	system.Module,
	risk.Module,
	validationproject.Module,
	changerequest.Module,
	document.Module,
	traceability.Module,
	providers.Module,
	notifications.Module,
	fx.Invoke(NewServer),
	fx.Invoke(run),
)

func NewEngine(obsCfg observability.Config, httpMetrics *obsmetrics.HTTPMetrics) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(obsmiddleware.GinMiddleware(obsmiddleware.MiddlewareConfig{
		Debug:           obsCfg.Debug(),
		ErrorClassifier: classifyErrorForLog,
	}))
	r.Use(obstracing.GinMiddleware())
	r.Use(obsmetrics.GinMiddleware(httpMetrics))
	r.Use(ErrorHandlingMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}

func registerGin(obsCfg observability.Config, httpMetrics *obsmetrics.HTTPMetrics) *gin.Engine {
	return NewEngine(obsCfg, httpMetrics)
}

func run(lc fx.Lifecycle, r *gin.Engine) {
	srv := &http.Server{
		Addr:    ":8080",
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
	engine           *gin.Engine
	cfg              config.Config
	db               *gorm.DB
	genID            *snowflake.Node
	authSvc          authdomain.Service
	authzSvc         authorization.Service
	auditSvc         auditdomain.Service
	tenantSvc        tenantdomain.Service
	systemSvc        systemdomain.Service
	projectSvc       projectdomain.Service
	changeRequestSvc crdomain.Service
	documentSvc      docdomain.Service
	riskSvc          riskdomain.Service
	traceabilitySvc  tracedomain.Service
	draftsProvider   drafts.Provider
}

type ServerParams struct {
	fx.In

	Gin              *gin.Engine
	Cfg              config.Config
	DB               *gorm.DB
	GenID            *snowflake.Node
	AuthSvc          authdomain.Service
	AuthzSvc         authorization.Service
	AuditSvc         auditdomain.Service
	TenantSvc        tenantdomain.Service
	SystemSvc        systemdomain.Service
	ProjectSvc       projectdomain.Service
	ChangeRequestSvc crdomain.Service
	DocumentSvc      docdomain.Service
	RiskSvc          riskdomain.Service
	TraceabilitySvc  tracedomain.Service
	DraftsProvider   drafts.Provider
}

func NewServer(p ServerParams) *Server {
	svc := &Server{
		engine:           p.Gin,
		cfg:              p.Cfg,
		db:               p.DB,
		genID:            p.GenID,
		authSvc:          p.AuthSvc,
		authzSvc:         p.AuthzSvc,
		auditSvc:         p.AuditSvc,
		tenantSvc:        p.TenantSvc,
		systemSvc:        p.SystemSvc,
		projectSvc:       p.ProjectSvc,
		changeRequestSvc: p.ChangeRequestSvc,
		documentSvc:      p.DocumentSvc,
		riskSvc:          p.RiskSvc,
		traceabilitySvc:  p.TraceabilitySvc,
		draftsProvider:   p.DraftsProvider,
	}

	svc.registerAuthRoutes()
	svc.registerAPIRoutes()

	return svc
}

func (s *Server) Engine() *gin.Engine {
	return s.engine
}

func (s *Server) registerAuthRoutes() {
	auth := s.engine.Group("/auth")

	auth.POST("/signup", s.Signup)
	auth.POST("/login", s.Login)
	auth.POST("/logout", s.Logout)
	auth.GET("/me", s.AuthRequired(), s.Me)

	user := auth.Group("/user", s.AuthRequired())
	{
		user.GET("/companies", s.ListUserCompanies)
		user.POST("/companies", s.CreateCompany)
		user.POST("/using/:companyId", s.SwitchCompany)
	}
}

func (s *Server) registerAPIRoutes() {
	api := s.engine.Group("/api")

	// Every resource route runs under the session and the active tenant.
	api.Use(s.AuthRequired())
	api.Use(s.CompanyContext())

	// -------- Memberships --------
	api.POST("/memberships", s.AddMembership)
	api.DELETE("/memberships/:userId", s.RemoveMembership)

	// -------- Systems --------
	api.GET("/systems", s.ListSystems)
	api.POST("/systems", s.CreateSystem)
	api.GET("/systems/:id", s.GetSystem)
	api.PATCH("/systems/:id", s.UpdateSystem)
	api.DELETE("/systems/:id", s.DeleteSystem)

	// -------- Validation projects --------
	api.GET("/validation_projects", s.ListProjects)
	api.POST("/validation_projects", s.CreateProject)
	api.GET("/validation_projects/:id", s.GetProject)
	api.PATCH("/validation_projects/:id", s.UpdateProject)
	api.POST("/validation_projects/:id/submit", s.SubmitProject)
	api.POST("/validation_projects/:id/approve", s.ApproveProject)
	api.POST("/validation_projects/:id/reject", s.RejectProject)
	api.POST("/validation_projects/:id/complete", s.CompleteProject)
	api.POST("/validation_projects/:id/cancel", s.CancelProject)

	// -------- Change requests --------
	api.GET("/change_requests", s.ListChangeRequests)
	api.POST("/change_requests", s.CreateChangeRequest)
	api.GET("/change_requests/:id", s.GetChangeRequest)
	api.POST("/change_requests/:id/advance", s.AdvanceChangeRequest)

	// -------- Documents --------
	api.GET("/documents", s.ListDocuments)
	api.POST("/documents", s.CreateDocument)
	api.POST("/documents/draft", s.DraftDocument)
	api.GET("/documents/:id", s.GetDocument)
	api.PATCH("/documents/:id/content", s.UpdateDocumentContent)
	api.GET("/documents/:id/versions", s.ListDocumentVersions)
	api.POST("/documents/:id/submit", s.SubmitDocument)
	api.POST("/documents/:id/approve", s.ApproveDocument)
	api.POST("/documents/:id/reject", s.RejectDocument)

	// -------- Risk assessments --------
	api.GET("/risk_assessments", s.ListAssessments)
	api.POST("/risk_assessments", s.CreateAssessment)
	api.GET("/risk_assessments/:id", s.GetAssessment)
	api.PATCH("/risk_assessments/:id/factors", s.UpdateAssessmentFactors)
	api.POST("/risk_assessments/:id/submit", s.SubmitAssessment)
	api.POST("/risk_assessments/:id/approve", s.ApproveAssessment)
	api.POST("/risk_assessments/:id/reject", s.RejectAssessment)
	api.POST("/risk_assessments/:id/complete", s.CompleteAssessment)
	api.GET("/risk_assessments/:id/mitigations", s.ListMitigations)
	api.POST("/risk_assessments/:id/mitigations", s.AddMitigation)
	api.POST("/mitigations/:mitigationId/complete", s.CompleteMitigation)

	// -------- Traceability --------
	api.GET("/requirements", s.ListRequirements)
	api.POST("/requirements", s.CreateRequirement)
	api.GET("/test_cases", s.ListTestCases)
	api.POST("/test_cases", s.CreateTestCase)
	api.POST("/test_cases/:id/result", s.RecordTestResult)
	api.GET("/rtm_links", s.ListRTMLinks)
	api.POST("/rtm_links", s.AddRTMLink)
	api.DELETE("/rtm_links/:id", s.RemoveRTMLink)
	api.GET("/rtm_links/coverage", s.RTMCoverage)

	// -------- Audit trail --------
	api.GET("/audit_logs", s.ListAuditLogs)
}
