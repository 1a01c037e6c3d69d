package cli

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"taskflow/internal/backup"
	"taskflow/internal/ics"
	appLog "taskflow/internal/log"
	"taskflow/internal/suggest"
	"taskflow/internal/web"
)

const shutdownTimeout = 10 * time.Second

func newServeCommand(opts *rootOptions) *cobra.Command {
	var listen string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API and the backup schedule",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			conf, err := opts.loadConfig()
			if err != nil {
				return err
			}
			if listen != "" {
				conf.Listen = listen
			}

			appLog.Info("effective config",
				"listen", conf.Listen,
				"data_dir", conf.DataDir,
				"store", conf.Store,
				"week_start", conf.WeekStart,
				"horizon", conf.Horizon,
				"backup_cron", conf.Backup.Cron,
				"suggest_enabled", conf.Suggest.Endpoint != "",
			)

			ctx := cmd.Context()
			mgr, st, err := openManager(ctx, conf)
			if err != nil {
				return err
			}
			defer st.Close()

			loc, err := conf.Location()
			if err != nil {
				appLog.Error("failed to load timezone; falling back to local", err, "name", conf.Timezone)
			}

			backups := backup.New(mgr, conf.Backup.Dir, conf.Backup.Keep)
			svc := web.Services{
				Tasks:    mgr,
				Importer: ics.NewImporter(ics.NewFetcher(conf.ICSCacheDir, 0), mgr, loc),
				Backups:  backups,
			}
			if conf.Suggest.Endpoint != "" {
				client := suggest.NewClient(conf.Suggest.Endpoint, conf.Suggest.APIKey, conf.Suggest.Timeout())
				svc.Optimizer = suggest.NewOptimizer(client, mgr)
			}

			if err := backups.Start(conf.Backup.Cron); err != nil {
				appLog.Error("backup schedule not started", err)
			}

			ln, err := net.Listen("tcp", conf.Listen)
			if err != nil {
				return err
			}
			server := &http.Server{
				Handler:           web.NewServer(conf, svc).Handler(),
				ReadHeaderTimeout: 10 * time.Second,
			}

			errCh := make(chan error, 1)
			go func() {
				appLog.Info("starting HTTP server", "listen", "http://"+ln.Addr().String())
				if err := server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
					errCh <- err
				}
				close(errCh)
			}()

			var serveErr error
			select {
			case <-ctx.Done():
				appLog.Info("shutting down", "reason", context.Cause(ctx).Error())
			case serveErr = <-errCh:
				appLog.Error("http server failed", serveErr)
			}

			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			if err := server.Shutdown(shutdownCtx); err != nil {
				appLog.Error("http shutdown failed", err)
			}
			backups.Stop(shutdownCtx)
			return serveErr
		},
	}

	cmd.Flags().StringVar(&listen, "listen", "", "HTTP listen address (overrides config if set)")
	return cmd
}
