package main

import (
	"context"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/viper"

	"code-intelligence.com/sanreport/internal/cmd/root"
	"code-intelligence.com/sanreport/pkg/storage"
)

func init() {
	viper.SetEnvPrefix("SANREPORT")
	viper.AutomaticEnv()
	// need to make SANREPORT_MY_VAR available as viper.Get("my-var")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	root.Execute(ctx, storage.WrapFileSystem())
}
