package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"EMS-backend/internal/attendance"
	"EMS-backend/internal/audit"
	"EMS-backend/internal/departments"
	"EMS-backend/internal/employees"
	"EMS-backend/internal/platform/auth"
	"EMS-backend/internal/platform/db"
	"EMS-backend/internal/projects"
)

func main() {
	// 設定読み込み
	cfg, err := db.LoadConfig("config/config.yaml")
	if err != nil {
		panic(err)
	}

	mode := cfg.Mode
	log.Printf("[INFO] mode:%s\n", mode)
	if mode != "dev" && mode != "release" {
		log.Fatal("config.mode must be dev or release")
	}
	if cfg.Server.JWTSecret == "" {
		log.Fatal("config.server.jwt_secret is required")
	}

	loc, err := cfg.Location()
	if err != nil {
		log.Fatal(err)
	}
	log.Printf("[INFO] work-day timezone: %s", loc)

	conn, err := db.Connect(cfg.DB)
	if err != nil {
		panic(err)
	}
	defer conn.Close()
	log.Printf("[INFO] connected to DB: %s", cfg.DB.DBName)

	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Logger(), gin.Recovery())
	_ = r.SetTrustedProxies(nil)

	if mode == "dev" {
		// CORS（開発中のみ必要）
		r.Use(cors.New(cors.Config{
			AllowOrigins:     []string{"http://localhost:3000"},
			AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
			ExposeHeaders:    []string{"Content-Length", "Content-Disposition"},
			AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
			AllowCredentials: true,
		}))
		r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	// ヘルス
	r.GET("/healthz", func(c *gin.Context) { c.String(http.StatusOK, "ok") })

	// サービス組み立て
	authSvc := auth.NewService(conn, []byte(cfg.Server.JWTSecret))
	empSvc := employees.NewService(conn)
	deptSvc := departments.NewService(conn)
	projSvc := projects.NewService(conn)
	auditSvc := audit.NewService(conn)
	attSvc := attendance.NewService(conn, employees.NewDirectory(empSvc), auditSvc, loc)

	// /api/v1
	api := r.Group("/api/v1")
	auth.RegisterRoutes(api, authSvc)

	authed := api.Group("")
	authed.Use(auth.RequireAuth([]byte(cfg.Server.JWTSecret)))
	auth.RegisterAccountRoutes(authed, authSvc)
	attendance.RegisterRoutes(authed, attSvc)
	employees.RegisterRoutes(authed, empSvc)
	departments.RegisterRoutes(authed, deptSvc)
	projects.RegisterRoutes(authed, projSvc)

	admin := authed.Group("/admin")
	admin.Use(auth.RequireRole(auth.RoleAdmin))
	auth.RegisterAdminRoutes(admin, authSvc)
	attendance.RegisterAdminRoutes(admin, attSvc)
	employees.RegisterAdminRoutes(admin, empSvc)
	departments.RegisterAdminRoutes(admin, deptSvc)
	audit.RegisterAdminRoutes(admin, auditSvc)

	srv := &http.Server{
		Addr:    cfg.Server.Addr,
		Handler: r,
	}

	go func() {
		log.Printf("[INFO] listening on %s", cfg.Server.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal(err)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt)
	<-quit
	log.Println("[INFO] shutting down...")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal(err)
	}
}
