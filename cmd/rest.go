package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	campaignApp "github.com/zapleads/zapleads/campaign/application"
	campaignRepo "github.com/zapleads/zapleads/campaign/repository"
	"github.com/zapleads/zapleads/core/config"
	coreDB "github.com/zapleads/zapleads/core/database"
	crmApp "github.com/zapleads/zapleads/crm/application"
	crmRepo "github.com/zapleads/zapleads/crm/repository"
	followupApp "github.com/zapleads/zapleads/followup/application"
	followupRepo "github.com/zapleads/zapleads/followup/repository"
	"github.com/zapleads/zapleads/gateway"
	gatewayRepo "github.com/zapleads/zapleads/gateway/repository"
	"github.com/zapleads/zapleads/infrastructure/valkey"
	"github.com/zapleads/zapleads/notify"
	"github.com/zapleads/zapleads/pkg/crypto"
	"github.com/zapleads/zapleads/pkg/scanworker"
	"github.com/zapleads/zapleads/pkg/tick"
	"github.com/zapleads/zapleads/ui/rest"
)

var restCmd = &cobra.Command{
	Use:   "rest",
	Short: "Run the API server and the background schedulers",
	Run:   restServer,
}

func init() {
	rootCmd.AddCommand(restCmd)
}

func restServer(_ *cobra.Command, _ []string) {
	cfg := config.Global
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.App.SecretKey != "" {
		if err := crypto.SetEncryptionKey(cfg.App.SecretKey); err != nil {
			logrus.WithError(err).Fatalln("Invalid APP_SECRET_KEY")
		}
	} else {
		logrus.Warn("APP_SECRET_KEY not set, provider tokens are stored in plain text")
	}

	db, err := coreDB.NewDatabase(cfg)
	if err != nil {
		logrus.WithError(err).Fatalln("Database connection failed")
	}

	// Repositories
	crmStore := crmRepo.NewCrmGormRepository(db)
	messageStore := crmRepo.NewMessageGormRepository(db)
	routineStore := followupRepo.NewRoutineGormRepository(db)
	stateStore := followupRepo.NewRoutineStateGormRepository(db)
	campaignStore := campaignRepo.NewCampaignGormRepository(db)
	sessionStore := gatewayRepo.NewSessionGormRepository(db)

	for _, repo := range []interface {
		Init(ctx context.Context) error
	}{crmStore, routineStore, campaignStore, sessionStore} {
		if err := repo.Init(ctx); err != nil {
			logrus.WithError(err).Fatalln("Database migration failed")
		}
	}

	// Optional Valkey: tick locks and event fan-out
	var vkClient *valkey.Client
	var sink notify.ISink = notify.NewMemoryHub(64)
	var lockFunc followupApp.LockFunc
	if cfg.Database.ValkeyEnabled {
		vkClient, err = valkey.NewClient(valkey.Config{
			Address:   cfg.Database.ValkeyAddress,
			Password:  cfg.Database.ValkeyPassword,
			DB:        cfg.Database.ValkeyDB,
			KeyPrefix: cfg.Database.ValkeyKeyPrefix,
		})
		if err != nil {
			logrus.WithError(err).Fatalln("Valkey connection failed")
		}
		defer vkClient.Close()
		sink = notify.NewValkeySink(vkClient)
		lockFunc = func(ctx context.Context, key string, expiration time.Duration) bool {
			return vkClient.AcquireLock(ctx, key, expiration)
		}
	}

	// Gateway + outbound path
	gwClient := gateway.NewHTTPClient(cfg.Gateway.BaseURL, cfg.Gateway.Timeout)
	outbox := crmApp.NewOutbox(crmStore, messageStore, gwClient)

	// Follow-up engine + scheduler
	engine := followupApp.NewEngine(crmStore, messageStore, stateStore, outbox, sink)
	pool := scanworker.NewPool(cfg.Scheduler.WorkerPoolSize, cfg.Scheduler.WorkerQueueSize)
	pool.Start(ctx)
	defer pool.Stop()

	followupScheduler := followupApp.NewScheduler(engine, crmStore, routineStore, sessionStore, pool, lockFunc)
	tick.NewRunner("followup", cfg.Scheduler.FollowUpInterval, followupScheduler.Tick).Start(ctx)

	// Campaign dispatcher
	dispatcher := campaignApp.NewDispatcher(campaignStore, crmStore, outbox, sessionStore, cfg.Scheduler.SendDelay)
	tick.NewRunner("campaign", cfg.Scheduler.CampaignInterval, dispatcher.Tick).Start(ctx)

	// Services + REST surface
	followupService := followupApp.NewService(routineStore, stateStore, engine)
	campaignService := campaignApp.NewService(campaignStore, crmStore)

	app, apiGroup := rest.NewApp(cfg)
	rest.InitRestHealth(apiGroup, db, vkClient)
	rest.InitRestRoutine(apiGroup, followupService)
	rest.InitRestCampaign(apiGroup, campaignService)

	go func() {
		<-ctx.Done()
		logrus.Info("Shutting down...")
		_ = app.ShutdownWithTimeout(10 * time.Second)
	}()

	if err := app.Listen(":" + cfg.App.Port); err != nil {
		logrus.WithError(err).Fatalln("Server stopped")
	}
}
