package main

import (
	"context"
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/urfave/cli"

	"c2cexecutor/cmd/engine"
	"c2cexecutor/cmd/spotprice"
	"c2cexecutor/src/database"
	"c2cexecutor/src/repository"
	"c2cexecutor/src/security"
)

var Version string

func main() {
	app := cli.NewApp()
	app.Name = "C2C Executor CMD"
	app.Usage = "The C2C executor command line interface"

	app.Commands = []cli.Command{
		engineCMD,
		spotPriceCMD,
		resetAdsCMD,
		sealCredsCMD,
	}

	if err := app.Run(os.Args); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var (
	engineCMD = cli.Command{
		Name:        "engine",
		Usage:       "run the ad-matching engine",
		Action:      engineAction,
		ArgsUsage:   "",
		Flags:       []cli.Flag{},
		Description: `Run the fetch and order loops until interrupted`,
	}
	spotPriceCMD = cli.Command{
		Name:        "spotprice",
		Usage:       "pull spot reference klines",
		Action:      spotPriceAction,
		ArgsUsage:   "",
		Flags:       []cli.Flag{},
		Description: `Persist spot candles for the reference pair`,
	}
	resetAdsCMD = cli.Command{
		Name:        "resetads",
		Usage:       "delete all cached ads",
		Action:      resetAdsAction,
		ArgsUsage:   "",
		Flags:       []cli.Flag{},
		Description: `Administrative reset of the ad cache`,
	}
	sealCredsCMD = cli.Command{
		Name:      "sealcreds",
		Usage:     "encrypt an API credential for storage",
		Action:    sealCredsAction,
		ArgsUsage: "<plaintext>",
		Flags:     []cli.Flag{},
		Description: `Print the sealed form of a credential so it can be
   placed into an operator's bot_config`,
	}
)

func engineAction(_ *cli.Context) error {

	logrus.Info("Starting engine CMD")

	runner := &engine.Runner{}
	err := runner.Start()
	if err != nil {
		logrus.WithError(err).Error("Starting cmd")
		return err
	}

	return nil
}

func spotPriceAction(_ *cli.Context) error {

	logrus.Info("Starting spotprice CMD")
	if err := database.InitMainDB(); err != nil {
		logrus.WithError(err).Fatal("Failed to connect to database")
	}

	sp := &spotprice.SpotPrice{
		Log: logrus.WithField("cmd", "spotprice"),
		DB:  database.MainDB,
	}

	err := sp.Start()
	if err != nil {
		logrus.WithError(err).Error("Starting spotprice cmd")
		return err
	}

	return nil
}

func resetAdsAction(_ *cli.Context) error {

	logrus.Info("Starting resetads CMD")
	if err := database.InitMainDB(); err != nil {
		logrus.WithError(err).Fatal("Failed to connect to database")
	}

	if err := repository.NewAdRepository().Clear(context.Background()); err != nil {
		logrus.WithError(err).Error("Failed to clear ad cache")
		return err
	}

	logrus.Info("Ad cache cleared")
	return nil
}

func sealCredsAction(c *cli.Context) error {
	plain := c.Args().First()
	if plain == "" {
		return cli.NewExitError("usage: sealcreds <plaintext>", 1)
	}

	sealed, err := security.EncryptString(plain)
	if err != nil {
		return err
	}

	fmt.Println(sealed)
	return nil
}
