package main

import (
	"context"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/tendermint/lightcore/cmd/light/commands"
	"github.com/tendermint/lightcore/config"
	"github.com/tendermint/lightcore/libs/cli"
	"github.com/tendermint/lightcore/libs/log"
)

func main() {
	conf := config.DefaultConfig()
	logger := log.MustNewDefaultLogger(log.LogFormatPlain, log.LogLevelInfo)

	rcmd := commands.RootCommand(conf, &logger)
	rcmd.AddCommand(
		commands.MakeInitCommand(conf),
		commands.MakeImportCommand(conf, &logger),
		commands.MakeTrustCommand(conf, &logger),
		commands.MakeVerifyCommand(conf, &logger),
		commands.MakeStatusCommand(conf),
	)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	cmd := cli.PrepareBaseCmd(rcmd, "LC", os.ExpandEnv(filepath.Join("$HOME", config.DefaultLightDir)))
	if err := cmd.ExecuteContext(ctx); err != nil {
		cancel()
		os.Exit(1)
	}
}
