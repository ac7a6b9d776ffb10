package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/jcqlabs/futrun/internal/api"
	"github.com/jcqlabs/futrun/internal/metrics"
)

func runServe(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	listen, _ := cmd.Flags().GetString("listen")
	if listen == "" {
		listen = cfg.API.Listen
	}

	store, err := openStore(ctx)
	if err != nil {
		return err
	}
	if store != nil {
		defer store.Close()
	}

	server := api.NewServer(store, metrics.NewCollector())
	err = server.Run(ctx, listen)
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}
