package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/alecthomas/kong"

	"tally/internal/cli"
	"tally/internal/config"
	"tally/internal/log"
)

var (
	// Version is set via ldflags when building.
	Version = ""

	commands struct {
		Version kong.VersionFlag `help:"Show version information."`
		cli.Commands
	}
)

func main() {
	ctx := kong.Parse(&commands,
		kong.Vars{"version": buildVersion()},
		kong.Name("tally"),
		kong.Description("Personal ledger: debts, spending, balance and budgets."),
		kong.UsageOnError(),
	)

	cli.LoadEnvFile(commands.EnvFile)
	cfg := config.Load()
	logger := cli.SetupLogger(cliLogLevel(cfg.LogLevel), log.ComponentApp)
	if err := cfg.Validate(); err != nil {
		cli.PrintError(os.Stderr, err.Error())
		os.Exit(1)
	}

	runCtx := context.Background()
	ledger, res, err := cli.NewLedger(runCtx, cfg, logger)
	ctx.FatalIfErrorf(err)
	defer res.Close()

	app := &cli.App{
		Ctx:      runCtx,
		Ledger:   ledger,
		Currency: cfg.Currency,
		Out:      os.Stdout,
		Now:      time.Now,
	}
	if cfg.DataBackend == "sqlite" {
		app.DBPath = cfg.SQLiteDBPath
	}

	if err := ctx.Run(app); err != nil {
		cli.PrintError(os.Stderr, err.Error())
		_ = res.Close()
		os.Exit(1)
	}
}

// cliLogLevel keeps operation logs off the terminal unless debugging.
func cliLogLevel(level string) string {
	if level == "debug" {
		return level
	}
	return "error"
}

func buildVersion() string {
	if Version == "" {
		return "dev"
	}
	return fmt.Sprintf("tally %s", Version)
}
