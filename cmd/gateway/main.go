package main

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/Luks9/SMS/internal/actionplan"
	api "github.com/Luks9/SMS/internal/api/http"
	"github.com/Luks9/SMS/internal/audit"
	auth "github.com/Luks9/SMS/internal/auth/middleware"
	"github.com/Luks9/SMS/internal/company"
	"github.com/Luks9/SMS/internal/config"
	"github.com/Luks9/SMS/internal/db"
	"github.com/Luks9/SMS/internal/evaluation"
	"github.com/Luks9/SMS/internal/rbac"
	"github.com/Luks9/SMS/internal/rem"
	"github.com/Luks9/SMS/internal/storage"
)

func main() {
	cfg := config.FromEnv()

	// --- DB ---
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	dbh, err := db.Open(ctx, db.Driver(cfg.DBDriver), cfg.DBDSN)
	if err != nil {
		log.Fatalf("db open failed: %v", err)
	}

	// --- Stores and domain services ---
	evalStore := evaluation.NewSQLStore(dbh, cfg.DBDriver)
	companyStore := company.NewSQLStore(dbh)
	remStore := rem.NewSQLStore(dbh)
	events := audit.NewEventRepo(dbh, cfg.SiteID)

	machine := evaluation.NewStatusMachine(evalStore, evaluation.WithRecorder(events))
	scorer := evaluation.NewScorer(evalStore)
	plans := actionplan.NewService(actionplan.NewSQLStore(dbh))

	bs, err := storage.NewFSStore(cfg.BlobBasePath)
	if err != nil {
		log.Fatalf("blob store: %v", err)
	}

	authSvc := auth.NewAuthService(cfg.AuthSecret)
	checker := rbac.NewChecker(nil)

	// --- Router ---
	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP, middleware.Logger, middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Post("/auth/login", auth.LoginHandler(authSvc, dbh, auth.AdminFallback{
		Username: cfg.AdminUser,
		PassHash: cfg.AdminPassHash,
	}))

	// Protected API (JWT → DB role + company in context → RBAC)
	r.Group(func(pr chi.Router) {
		pr.Use(auth.JWTMiddleware(authSvc))
		pr.Use(auth.AttachRoleFromDB(dbh, true))

		// Catalog (evaluators and admins)
		pr.With(rbac.Require(checker, "catalog:edit")).
			Post("/categories", api.PutCategoryHandler(evalStore))
		pr.With(rbac.Require(checker, "catalog:edit")).
			Put("/categories/{categoryID}", api.PutCategoryHandler(evalStore))
		pr.With(rbac.Require(checker, "catalog:view")).
			Get("/categories", api.ListCategoriesHandler(evalStore))
		pr.With(rbac.Require(checker, "catalog:edit")).
			Post("/subcategories", api.PutSubcategoryHandler(evalStore))
		pr.With(rbac.Require(checker, "catalog:edit")).
			Put("/subcategories/{subcategoryID}", api.PutSubcategoryHandler(evalStore))
		pr.With(rbac.Require(checker, "catalog:view")).
			Get("/subcategories", api.ListSubcategoriesHandler(evalStore))
		pr.With(rbac.Require(checker, "catalog:edit")).
			Post("/questions", api.PutQuestionHandler(evalStore))
		pr.With(rbac.Require(checker, "catalog:edit")).
			Put("/questions/{questionID}", api.PutQuestionHandler(evalStore))
		pr.With(rbac.Require(checker, "catalog:view")).
			Get("/questions", api.ListQuestionsHandler(evalStore))
		pr.With(rbac.Require(checker, "catalog:edit")).
			Post("/forms", api.PutFormHandler(evalStore))
		pr.With(rbac.Require(checker, "catalog:edit")).
			Put("/forms/{formID}", api.PutFormHandler(evalStore))
		pr.With(rbac.Require(checker, "catalog:view")).
			Get("/forms", api.ListFormsHandler(evalStore))
		pr.With(rbac.Require(checker, "catalog:view")).
			Get("/forms/{formID}", api.GetFormHandler(evalStore))

		// Companies
		pr.With(rbac.Require(checker, "company:edit")).
			Post("/companies", api.PutCompanyHandler(companyStore))
		pr.With(rbac.Require(checker, "company:edit")).
			Put("/companies/{companyID}", api.PutCompanyHandler(companyStore))
		pr.With(rbac.Require(checker, "company:list")).
			Get("/companies", api.ListCompaniesHandler(companyStore))
		pr.With(rbac.RequireAny(checker, "company:list", "evaluation:view-own")).
			Get("/companies/{companyID}", api.GetCompanyHandler(companyStore))

		// Evaluations
		pr.With(rbac.Require(checker, "evaluation:create")).
			Post("/evaluations", api.CreateEvaluationHandler(evalStore))
		pr.With(rbac.RequireAny(checker, "evaluation:view-all", "evaluation:view-own", "evaluation:create")).
			Get("/evaluations", api.ListEvaluationsHandler(evalStore))
		pr.With(rbac.RequireAny(checker, "evaluation:view-all", "evaluation:view-own", "evaluation:create")).
			Get("/evaluations/{evaluationID}", api.GetEvaluationHandler(evalStore))
		pr.With(rbac.RequireAny(checker, "evaluation:view-all", "evaluation:view-own", "evaluation:create")).
			Get("/evaluations/{evaluationID}/details", api.EvaluationDetailsHandler(evalStore))
		pr.With(rbac.RequireAny(checker, "evaluation:view-all", "evaluation:view-own", "evaluation:create")).
			Get("/evaluations/{evaluationID}/progress", api.EvaluationProgressHandler(evalStore))
		pr.With(rbac.Require(checker, "evaluation:score")).
			Post("/evaluations/{evaluationID}/calculate-score", api.CalculateScoreHandler(scorer))
		pr.With(rbac.RequireAny(checker, "evaluation:refresh", "evaluation:view-own")).
			Post("/evaluations/{evaluationID}/refresh-status", api.RefreshStatusHandler(machine))
		pr.With(rbac.Require(checker, "evaluation:edit")).
			Put("/evaluations/{evaluationID}/active", api.SetEvaluationActiveHandler(evalStore))
		pr.With(rbac.Require(checker, "evaluation:cancel")).
			Post("/evaluations/{evaluationID}/cancel", api.CancelEvaluationHandler(evalStore))
		pr.With(rbac.Require(checker, "evaluation:cancel")).
			Post("/evaluations/{evaluationID}/uncancel", api.UncancelEvaluationHandler(evalStore, machine))
		pr.With(rbac.RequireAny(checker, "evaluation:view-all", "evaluation:view-own")).
			Get("/companies/{companyID}/evaluations", api.EvaluationsByCompanyHandler(evalStore, machine))

		// Answers
		pr.With(rbac.Require(checker, "answer:respond")).
			Post("/answers", api.CreateAnswerHandler(evalStore, machine))
		pr.With(rbac.Require(checker, "answer:respond")).
			Put("/answers/{answerID}", api.UpdateAnswerHandler(evalStore, machine))
		pr.With(rbac.RequireAny(checker, "answer:view-all", "answer:view-own")).
			Get("/evaluations/{evaluationID}/answers", api.ListAnswersHandler(evalStore))
		pr.With(rbac.Require(checker, "answer:respond")).
			Put("/answers/{answerID}/attachment", api.UploadAnswerAttachmentHandler(evalStore, bs))
		pr.With(rbac.RequireAny(checker, "answer:view-all", "answer:view-own")).
			Get("/answers/{answerID}/attachment", api.DownloadAnswerAttachmentHandler(evalStore, bs))

		// Action plans
		pr.With(rbac.Require(checker, "actionplan:create")).
			Post("/action-plans", api.CreateActionPlanHandler(plans))
		pr.With(rbac.RequireAny(checker, "actionplan:view-all", "actionplan:view-own")).
			Get("/action-plans/{planID}", api.GetActionPlanHandler(plans))
		pr.With(rbac.Require(checker, "actionplan:respond")).
			Post("/action-plans/{planID}/respond", api.RespondActionPlanHandler(plans, bs))
		pr.With(rbac.Require(checker, "actionplan:edit")).
			Put("/action-plans/{planID}", api.UpdateActionPlanHandler(plans))
		pr.With(rbac.RequireAny(checker, "actionplan:view-all", "actionplan:view-own")).
			Get("/companies/{companyID}/action-plans", api.ListActionPlansByCompanyHandler(plans))
		pr.With(rbac.Require(checker, "actionplan:view-all")).
			Get("/evaluations/{evaluationID}/action-plans", api.ListActionPlansByEvaluationHandler(plans))
		pr.With(rbac.RequireAny(checker, "actionplan:view-all", "actionplan:view-own")).
			Get("/action-plans/{planID}/attachment", api.DownloadActionPlanAttachmentHandler(plans, bs))

		// REM monthly reports
		pr.With(rbac.Require(checker, "rem:submit")).
			Post("/rem", api.CreateREMHandler(remStore))
		pr.With(rbac.Require(checker, "rem:submit")).
			Put("/rem/{reportID}", api.UpdateREMHandler(remStore))
		pr.With(rbac.RequireAny(checker, "rem:view-all", "rem:view-own")).
			Get("/rem", api.ListREMHandler(remStore))
		pr.With(rbac.RequireAny(checker, "rem:view-all", "rem:view-own")).
			Get("/rem/{reportID}", api.GetREMHandler(remStore))
		pr.With(rbac.Require(checker, "rem:delete")).
			Delete("/rem/{reportID}", api.DeleteREMHandler(remStore))

		// Users (admin)
		pr.With(rbac.Require(checker, "users:create")).
			Post("/users", api.CreateUserHandler(dbh, companyStore, cfg.PrivilegedDomains))
		pr.With(rbac.Require(checker, "users:list")).
			Get("/users", api.ListUsersHandler(dbh))
		pr.With(rbac.Require(checker, "users:edit")).
			Put("/users/{userID}/role", api.UpdateUserRoleHandler(dbh))
		pr.Put("/users/{userID}/password", api.UpdateUserPasswordHandler(dbh))

		// Event log (admin)
		pr.With(rbac.Require(checker, "events:view")).
			Get("/events", api.ListEventsHandler(events))
	})

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(200) })
	r.Get("/readyz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(200) })

	log.Printf("listening on %s (db=%s)", cfg.HTTPAddr, cfg.DBDriver)
	log.Fatal(http.ListenAndServe(cfg.HTTPAddr, r))
}
