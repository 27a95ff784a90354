package engine

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"

	"c2cexecutor/src/connectors"
	"c2cexecutor/src/database"
	"c2cexecutor/src/executors"
	"c2cexecutor/src/model"
	"c2cexecutor/src/notify"
	"c2cexecutor/src/repository"
	"c2cexecutor/src/security"
)

// Engine bundles the wired scheduler with the repositories the status
// surface needs.
type Engine struct {
	Scheduler *executors.JobScheduler
	Ads       *repository.AdRepository
	Session   *model.TradeConfig
}

// Build wires the engine from the operator's stored configuration.
// database.InitMainDB must have been called first. When the spot stream is
// enabled it starts consuming immediately and stops with ctx.
func Build(ctx context.Context) (*Engine, error) {
	config := GetConfig()

	if config.OperatorID == 0 {
		return nil, errors.New("ALLOWED_USER not set")
	}

	userRep := repository.NewUserRepository()
	session, err := userRep.TradeConfig(ctx, config.OperatorID)
	if err != nil {
		logrus.WithError(err).Error("Failed to load operator trade config")
		return nil, err
	}

	if session.APIKey == "" || session.APISecret == "" {
		return nil, errors.New("no API credentials configured for operator")
	}

	apiKey, err := security.DecryptString(session.APIKey)
	if err != nil {
		logrus.WithError(err).Error("Failed to decrypt API Key")
		return nil, err
	}
	apiSecret, err := security.DecryptString(session.APISecret)
	if err != nil {
		logrus.WithError(err).Error("Failed to decrypt API Secret")
		return nil, err
	}

	connConfig := connectors.GetConfig()
	client := connectors.NewC2CClient(apiKey, apiSecret, connConfig.BaseURL)
	notifier := notify.NewTelegramNotifier()

	ads := repository.NewAdRepository()
	attempts := repository.NewOrderAttemptRepository()
	exceptions := repository.NewExceptionRepository()

	var scheduler *executors.JobScheduler
	if config.EnableSpotStream {
		spot := connectors.NewSpotStream(connConfig.SpotStreamURL, connConfig.SpotSymbol)
		go spot.Run(ctx)
		scheduler = executors.NewJobScheduler(client, ads, attempts, exceptions, notifier, spot)
	} else {
		scheduler = executors.NewJobScheduler(client, ads, attempts, exceptions, notifier, nil)
	}

	return &Engine{
		Scheduler: scheduler,
		Ads:       ads,
		Session:   session,
	}, nil
}

// Runner is the CLI entry: run the engine headless until SIGINT/SIGTERM.
type Runner struct{}

func (t *Runner) Start() error {
	ctx, stop := signal.NotifyContext(
		context.Background(),
		os.Interrupt,
		syscall.SIGTERM,
	)
	defer stop()

	if err := database.InitMainDB(); err != nil {
		logrus.WithError(err).Fatal("Failed to connect to main database")
		return err
	}

	eng, err := Build(ctx)
	if err != nil {
		logrus.WithError(err).Error("Failed to build engine")
		return err
	}

	logrus.WithFields(logrus.Fields{
		"asset":     eng.Session.Asset,
		"fiat":      eng.Session.Fiat,
		"tradeType": eng.Session.TradeType,
	}).Info("Starting C2C executor")

	eng.Scheduler.Start(ctx, eng.Session)

	<-ctx.Done()
	eng.Scheduler.Stop()

	return nil
}
