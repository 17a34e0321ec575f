package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"escrow_wallet/internal/app/bootstrap"
	"escrow_wallet/internal/domain/entity"
	"escrow_wallet/internal/infrastructure/configloader"
	"escrow_wallet/internal/infrastructure/terminal"
	"escrow_wallet/internal/pkg/logger"
)

func main() {
	configPath := flag.String("config", "config/config.yml", "path to the YAML configuration")
	logLevel := flag.String("log-level", "warn", "log level (debug, info, warn, error)")
	ensName := flag.String("ens-name", "", "display name to show instead of the collapsed address")
	ensAvatar := flag.String("ens-avatar", "", "avatar URL to show instead of the generated one")
	flag.Parse()

	if p := os.Getenv("CONFIG_PATH"); p != "" && !isFlagSet("config") {
		*configPath = p
	}

	cfg, err := configloader.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration from %s: %v\n", *configPath, err)
		os.Exit(1)
	}

	zapLogger, err := logger.InitZap(*logLevel, false)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = zapLogger.Sync() }()

	app, err := bootstrap.Build(cfg, zapLogger)
	if err != nil {
		logger.Fatal("Failed to initialize services", "error", err)
	}
	defer app.Close()

	signer := app.Contract.SignerAddress()
	if signer == "" {
		fmt.Fprintf(os.Stderr, "no signing key configured; set %s\n", configloader.PrivateKeyEnv)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	identity := entity.Identity{Address: signer, ENSName: *ensName, ENSAvatar: *ensAvatar}
	snapshot := app.Reader.Snapshot(ctx, signer)

	prompter := terminal.NewPrompter(os.Stdin, os.Stdout, app.Reader)
	prompter.PrintProfile(app.Reader.ProfileFromSnapshot(ctx, identity, snapshot))

	if _, err := prompter.Run(ctx, app.NewWorkflow(), snapshot); err != nil {
		if errors.Is(err, terminal.ErrCancelled) {
			fmt.Fprintln(os.Stdout, "Cancelled.")
			return
		}
		logger.Error("Allowance prompt failed", "error", err)
		os.Exit(1)
	}

	fmt.Fprintln(os.Stdout)
	prompter.PrintProfile(app.Reader.Profile(ctx, identity))
}

func isFlagSet(name string) bool {
	set := false
	flag.Visit(func(f *flag.Flag) {
		if f.Name == name {
			set = true
		}
	})
	return set
}
