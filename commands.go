package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sort"
	"text/tabwriter"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"agenda_scrooper/fetcher"
	"agenda_scrooper/geo"
	"agenda_scrooper/httputil"
	"agenda_scrooper/relay"
	"agenda_scrooper/scraper"
	"agenda_scrooper/storage"
)

func newScrapeCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "scrape [site...]",
		Short: "Scrape the given sites, or every configured site",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg, logger := a.cfg, a.logger

			if cfg.DatabaseURL == "" {
				return errors.New("DATABASE_URL is not set")
			}
			events, err := storage.NewEventStore(ctx, cfg.DatabaseURL)
			if err != nil {
				return fmt.Errorf("connect to event store: %w", err)
			}
			defer events.Close()
			logger.Info("connected to event store", zap.String("dsn", maskConnectionString(cfg.DatabaseURL)))
			if err := events.EnsureSchema(ctx); err != nil {
				return fmt.Errorf("ensure schema: %w", err)
			}

			runs, err := storage.NewRunStore(cfg.RunsDBPath)
			if err != nil {
				return fmt.Errorf("open run journal: %w", err)
			}
			defer runs.Close()

			clients := httputil.NewClients()
			deps := scraper.Deps{
				Config:  cfg,
				Fetcher: fetcher.NewStaticFetcher(clients.Scraping),
				Locator: geo.NewCached(geo.NewNominatimClient(clients.API, cfg.Geocoder.URL, cfg.Geocoder.MapURL)),
				Logger:  logger,
			}
			orchestrator := scraper.NewOrchestrator(cfg, deps, events, runs)

			if len(args) == 0 {
				logger.Info("scraping all sites", zap.Strings("sites", orchestrator.SiteIDs()))
				return orchestrator.RunAll(ctx)
			}
			var errs []error
			for _, site := range args {
				if err := orchestrator.RunSite(ctx, site); err != nil {
					logger.Error("site run failed", zap.String("site", site), zap.Error(err))
					errs = append(errs, err)
				}
			}
			return errors.Join(errs...)
		},
	}
}

func newRelayCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "relay",
		Short: "Serve event images through the image relay",
		RunE: func(cmd *cobra.Command, args []string) error {
			gin.SetMode(gin.ReleaseMode)
			r := gin.New()
			r.Use(gin.Recovery())
			relay.NewServer(httputil.NewClients().Scraping, a.logger).SetupRoutes(r)

			srv := &http.Server{Addr: a.cfg.Relay.Addr, Handler: r}
			errCh := make(chan error, 1)
			go func() {
				a.logger.Info("relay listening", zap.String("addr", srv.Addr))
				errCh <- srv.ListenAndServe()
			}()

			select {
			case err := <-errCh:
				return err
			case <-cmd.Context().Done():
			}

			a.logger.Info("shutting down relay")
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			return srv.Shutdown(ctx)
		},
	}
}

func newSitesCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "sites",
		Short: "List configured sites",
		RunE: func(cmd *cobra.Command, args []string) error {
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tHANDLER\tNAME\tURLS")
			for _, id := range a.cfg.SiteIDs() {
				site := a.cfg.Sites[id]
				var urls []string
				for _, l := range site.Listings {
					urls = append(urls, orMissing(l.URL, l.URLEnv))
				}
				if site.Calendar != nil {
					urls = append(urls, orMissing(site.Calendar.URL, site.Calendar.URLEnv))
				}
				fmt.Fprintf(w, "%s\t%s\t%s\t%v\n", site.ID, site.Handler, site.Name, urls)
			}
			return w.Flush()
		},
	}
}

func newRunsCmd(a *app) *cobra.Command {
	var (
		limit    int
		showLogs bool
	)
	cmd := &cobra.Command{
		Use:   "runs [site]",
		Short: "Show recent scrape runs",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			site := ""
			if len(args) == 1 {
				site = args[0]
			}
			runs, err := storage.NewRunStore(a.cfg.RunsDBPath)
			if err != nil {
				return err
			}
			defer runs.Close()

			list, err := runs.RecentRuns(site, limit)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tSITE\tSTARTED\tSTATUS\tFOUND\tSAVED\tDUP\tSKIPPED\tERRORS")
			for _, r := range list {
				fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%d\t%d\t%d\t%d\t%d\n",
					r.ID, r.SiteID, r.StartedAt.Format(time.DateTime), r.Status,
					r.EventsFound, r.EventsSaved, r.EventsDuplicated, r.EventsSkipped, r.ErrorsCount)
			}
			if err := w.Flush(); err != nil {
				return err
			}
			if !showLogs {
				return nil
			}

			for _, r := range list {
				logs, err := runs.RunLogs(r.ID)
				if err != nil {
					return fmt.Errorf("logs of run %d: %w", r.ID, err)
				}
				fmt.Fprintf(out, "\nrun %d (%s)\n", r.ID, r.SiteID)
				for _, l := range logs {
					fmt.Fprintf(out, "  %s %-5s %s\n", l.Timestamp.Format(time.DateTime), l.Level, l.Message)
				}
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 10, "Number of runs to show")
	cmd.Flags().BoolVar(&showLogs, "logs", false, "Print the log lines of each run")
	return cmd
}

func newEventsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "events [full_link]",
		Short: "Count stored events per source, or show the event stored under a link",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if a.cfg.DatabaseURL == "" {
				return errors.New("DATABASE_URL is not set")
			}
			events, err := storage.NewEventStore(ctx, a.cfg.DatabaseURL)
			if err != nil {
				return fmt.Errorf("connect to event store: %w", err)
			}
			defer events.Close()

			out := cmd.OutOrStdout()
			if len(args) == 1 {
				e, err := events.EventByLink(ctx, args[0])
				if err != nil {
					return err
				}
				if e == nil {
					return fmt.Errorf("no event stored for %s", args[0])
				}
				start, _ := e.StartDate()
				last, _ := e.LastDate()
				fmt.Fprintf(out, "%s\n  source:   %s\n  category: %s\n  dates:    %s - %s\n  location: %s %s\n  image:    %s\n",
					e.Title, e.Source, e.Category, start.Format(time.DateOnly), last.Format(time.DateOnly),
					e.Location, e.PostalCode, e.ImgURL)
				return nil
			}

			counts, err := events.CountBySource(ctx)
			if err != nil {
				return err
			}
			return printCounts(out, counts)
		},
	}
}

// printCounts writes one line per source in source order.
func printCounts(out io.Writer, counts map[string]int) error {
	sources := make([]string, 0, len(counts))
	for s := range counts {
		sources = append(sources, s)
	}
	sort.Strings(sources)

	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "SOURCE\tEVENTS")
	for _, s := range sources {
		fmt.Fprintf(w, "%s\t%d\n", s, counts[s])
	}
	return w.Flush()
}

func orMissing(url, env string) string {
	if url != "" {
		return url
	}
	return "<unset " + env + ">"
}
