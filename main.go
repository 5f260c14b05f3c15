package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	_ "github.com/go-sql-driver/mysql"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/goncho07/PeeposAsistencia-sub001/docs"
	"github.com/goncho07/PeeposAsistencia-sub001/internal/attendance"
	"github.com/goncho07/PeeposAsistencia-sub001/internal/calendar"
	"github.com/goncho07/PeeposAsistencia-sub001/internal/justification"
	"github.com/goncho07/PeeposAsistencia-sub001/internal/notification"
	"github.com/goncho07/PeeposAsistencia-sub001/internal/platform/auth"
	"github.com/goncho07/PeeposAsistencia-sub001/internal/platform/db"
	"github.com/goncho07/PeeposAsistencia-sub001/internal/report"
	"github.com/goncho07/PeeposAsistencia-sub001/internal/roster"
	"github.com/goncho07/PeeposAsistencia-sub001/internal/schedule"
	"github.com/goncho07/PeeposAsistencia-sub001/internal/sweep"
)

// @title    PeeposAsistencia API
// @version  1.0
// @BasePath /api/v1

func main() {
	// 設定読み込み
	cfg, err := db.LoadConfig("config/config.yaml")
	if err != nil {
		panic(err)
	}

	// 動作モード取得
	mode := cfg.Mode
	log.Printf("[INFO] mode:%s\n", mode)

	if cfg.Mode != "dev" && cfg.Mode != "release" {
		fmt.Println("Usage: go run main.go [dev|release]")
		return
	}

	loc, err := time.LoadLocation(cfg.Sweep.Timezone)
	if err != nil {
		panic(err)
	}

	conn, err := db.Connect(cfg.DB)
	if err != nil {
		panic(err)
	}
	defer conn.Close()

	log.Printf("[INFO] connected to DB: %s", cfg.DB.DBName)

	// ===== サービス組み立て =====

	calSvc := calendar.NewService(conn)
	schedSvc := schedule.NewService(schedule.NewStore(conn))
	rosterStore := roster.NewStore(conn)
	justifSvc := justification.NewService(conn)

	attStore := attendance.NewStore(conn)
	dispatcher := notification.NewDispatcher(notification.LogTransport{}, attStore, 0)
	defer dispatcher.Close()

	attSvc := attendance.NewService(conn, attendance.Deps{
		Calendar: calSvc,
		Windows:  schedSvc,
		Roster:   rosterStore,
		Justif:   justifSvc.Finder(),
		Notifier: dispatcher,
		Location: loc,
	})
	sweepSvc := sweep.NewService(conn, sweep.Deps{
		Calendar: calSvc,
		Roster:   rosterStore,
		Justif:   justifSvc.Finder(),
		Ledger:   attStore,
		Notifier: dispatcher,
	})
	reportSvc := report.NewService(conn, report.Deps{
		Calendar: calSvc,
		Roster:   rosterStore,
		Location: loc,
	})
	authSvc := auth.NewService(conn, []byte(cfg.Auth.JWTSecret), time.Duration(cfg.Auth.TokenTTL)*time.Hour)

	// 自動スイープ（最終下校時刻 + 猶予で当日分を起動）
	schedCtx, stopScheduler := context.WithCancel(context.Background())
	defer stopScheduler()
	if cfg.Sweep.Enabled {
		sc := sweep.NewScheduler(
			sweepSvc,
			sweep.NewStore(conn),
			schedSvc,
			loc,
			time.Duration(cfg.Sweep.CheckEvery)*time.Minute,
			time.Duration(cfg.Sweep.GraceAfter)*time.Minute,
			cfg.Sweep.MaxRetries,
		)
		sc.Start(schedCtx)
	}

	// ===== HTTP =====

	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Logger(), gin.Recovery())
	_ = r.SetTrustedProxies(nil)

	if mode == "dev" {
		// CORS（開発中のみ必要）
		r.Use(cors.New(cors.Config{
			AllowOrigins:     []string{"http://localhost:3000"},
			AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", "Idempotency-Key"},
			ExposeHeaders:    []string{"Content-Length", "Content-Disposition"},
			AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
			AllowCredentials: true,
		}))
		r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	// ヘルス
	r.GET("/healthz", func(c *gin.Context) { c.String(http.StatusOK, "ok") })

	// /api/v1
	api := r.Group("/api/v1")
	auth.RegisterPublicRoutes(api, authSvc)

	protected := api.Group("", auth.RequireAuth([]byte(cfg.Auth.JWTSecret)))
	calendar.RegisterRoutes(protected, calSvc)
	schedule.RegisterRoutes(protected, schedSvc)
	justification.RegisterRoutes(protected, justifSvc)
	attendance.RegisterRoutes(protected, attSvc)
	report.RegisterRoutes(protected, reportSvc)

	admin := api.Group("", auth.RequireAuth([]byte(cfg.Auth.JWTSecret)), auth.RequireRole("admin"))
	sweep.RegisterRoutes(admin, sweepSvc)
	auth.RegisterAdminRoutes(admin, authSvc)

	// TLS起動
	srv := &http.Server{
		Addr:    cfg.Server.Addr,
		Handler: r,
	}

	var certFile, keyFile string
	if mode == "dev" {
		//開発用
		certFile = fmt.Sprintf("config/tls/dev/%s", cfg.Certificate.Cert)
		keyFile = fmt.Sprintf("config/tls/dev/%s", cfg.Certificate.Key)
	} else {
		//本番用
		certFile = fmt.Sprintf("config/tls/release/%s", cfg.Certificate.Cert)
		keyFile = fmt.Sprintf("config/tls/release/%s", cfg.Certificate.Key)
	}

	go func() {
		log.Printf("[INFO] listening on https://0.0.0.0%s", cfg.Server.Addr)
		if err := srv.ListenAndServeTLS(certFile, keyFile); err != nil && err != http.ErrServerClosed {
			log.Fatal(err)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt)
	<-quit
	log.Println("[INFO] shutting down...")
	stopScheduler()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal(err)
	}
}
