package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/wonny/compounder/internal/api"
	"github.com/wonny/compounder/internal/api/handlers"
	"github.com/wonny/compounder/internal/pipeline"
	"github.com/wonny/compounder/internal/screen"
	"github.com/wonny/compounder/internal/valuation"
	"github.com/wonny/compounder/pkg/database"
	"github.com/wonny/compounder/pkg/logger"
)

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "결과 조회 API 서버 실행",
	Long: `파이프라인이 남긴 기록(런, 스크리닝, 점수, 밸류에이션)을
읽기 전용 REST API로 노출합니다. 공급자 호출은 하지 않습니다.

Example:
  go run ./cmd/compounder serve
  go run ./cmd/compounder serve --port 9090`,
	RunE: runServe,
}

var servePort string

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringVar(&servePort, "port", "", "리슨 포트 (기본: config)")
}

func runServe(cmd *cobra.Command, args []string) error {
	fmt.Println("=== Compounder API Server ===")

	// 1. 설정 로드
	cfg, err := initConfig()
	if err != nil {
		return err
	}
	if servePort != "" {
		cfg.Port = servePort
	}

	// 2. 로거 초기화
	log := logger.New(cfg)

	// 3. 데이터베이스 연결
	db, err := database.New(cfg)
	if err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}
	defer db.Close()
	log.Info("Database connected")

	// 4. 리포지토리: 조회 전용이라 게이트웨이/공급자는 안 엮는다
	checkpoint := pipeline.NewCheckpointRepository(db.Pool)
	screenRepo := screen.NewResultRepository(db.Pool)
	valRepo := valuation.NewResultRepository(db.Pool)

	// 5. 핸들러 & 라우터
	records := handlers.NewRecordsHandler(checkpoint, screenRepo, screenRepo, valRepo, log)
	router := api.NewRouter(records, log)

	// 6. 서버 기동
	server := api.New(cfg, log, router)
	go func() {
		if err := server.Start(); err != nil {
			log.WithError(err).Fatal("API server stopped")
		}
	}()
	fmt.Printf("🚀 Listening on :%s (env: %s)\n", cfg.Port, cfg.Env)

	// 7. 종료 시그널 대기
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	// 8. 그레이스풀 셧다운
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	log.Info("Server stopped")
	return nil
}
