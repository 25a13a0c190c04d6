package main

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/dealmachine-cli/internal/audit"
	"github.com/sells-group/dealmachine-cli/internal/config"
	"github.com/sells-group/dealmachine-cli/internal/export"
	"github.com/sells-group/dealmachine-cli/internal/model"
	"github.com/sells-group/dealmachine-cli/internal/proxy"
	"github.com/sells-group/dealmachine-cli/internal/resilience"
	"github.com/sells-group/dealmachine-cli/internal/scraper"
	"github.com/sells-group/dealmachine-cli/pkg/dealmachine"
)

var scrapeCmd = &cobra.Command{
	Use:   "scrape",
	Short: "Export wireless phone numbers from the lead list",
	Long: "Pages through the DealMachine \"all leads\" list, keeps wireless numbers, " +
		"writes the export file, and reports the run to the scrape log.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		applyScrapeFlags(cmd, cfg)
		if err := cfg.Validate("scrape"); err != nil {
			return err
		}

		driver := scraper.NewDriver(newPageSource(cfg), scraper.Options{
			PageSize:  cfg.DealMachine.PageSize,
			PageDelay: time.Duration(cfg.DealMachine.PageDelayMs) * time.Millisecond,
		})
		out := driver.Run(ctx, cfg.DealMachine.Token)

		if out.Kind == model.OutcomeSuccess {
			if _, err := deliverArtifact(ctx, cfg, out, time.Now()); err != nil {
				zap.L().Error("scrape: export failed", zap.Error(err))
				out = model.Failure(model.ErrInternal, err.Error())
			}
		}

		sender, closeSender := newAuditSender(ctx, cfg)
		defer closeSender()
		audit.NewReporter(sender, time.Duration(cfg.Audit.TimeoutSecs)*time.Second).Report(ctx, out)

		result := audit.Invocation(out)
		if err := writeResult(cmd.OutOrStdout(), result); err != nil {
			return err
		}
		if out.Failed() {
			return eris.New(result.Error)
		}
		return nil
	},
}

func init() {
	addScrapeFlags(scrapeCmd)
	rootCmd.AddCommand(scrapeCmd)
}

func addScrapeFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.String("token", "", "DealMachine site token (default from config)")
	f.String("auth", "", "bearer token for the proxy and scrape log endpoints")
	f.Int("page-size", 0, "leads per page (default from config)")
	f.String("output-dir", "", "directory for the export file (default from config)")
	f.String("format", "", "export format: csv or xlsx (default from config)")
	f.String("via-proxy", "", "fetch pages through this dealmachine-cli server URL")
}

// applyScrapeFlags copies explicitly set flags over the loaded config.
func applyScrapeFlags(cmd *cobra.Command, c *config.Config) {
	f := cmd.Flags()
	if f.Changed("token") {
		c.DealMachine.Token, _ = f.GetString("token")
	}
	if f.Changed("auth") {
		auth, _ := f.GetString("auth")
		c.Proxy.AuthToken = auth
	}
	if f.Changed("page-size") {
		c.DealMachine.PageSize, _ = f.GetInt("page-size")
	}
	if f.Changed("output-dir") {
		c.Export.Dir, _ = f.GetString("output-dir")
	}
	if f.Changed("format") {
		c.Export.Format, _ = f.GetString("format")
	}
	if f.Changed("via-proxy") {
		c.Proxy.URL, _ = f.GetString("via-proxy")
	}
}

// newPageSource fetches through the proxy server when one is configured and
// from DealMachine directly otherwise.
func newPageSource(c *config.Config) scraper.PageSource {
	if c.Proxy.URL != "" {
		return proxy.NewClient(c.Proxy.URL, c.Proxy.AuthToken, proxy.WithHTTPClient(dealMachineHTTPClient(c)))
	}
	return newDealMachineClient(c)
}

// newDealMachineClient builds the direct DealMachine client shared by scrape
// and serve, paced by dealmachine.rate_limit_rps.
func newDealMachineClient(c *config.Config) dealmachine.Client {
	return dealmachine.NewClient(
		dealmachine.WithBaseURL(c.DealMachine.BaseURL),
		dealmachine.WithHTTPClient(dealMachineHTTPClient(c)),
		dealmachine.WithRateLimit(c.DealMachine.RateLimitRPS),
	)
}

func dealMachineHTTPClient(c *config.Config) *http.Client {
	timeout := time.Duration(c.DealMachine.TimeoutSecs) * time.Second
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &http.Client{Timeout: timeout}
}

// newAuditSender posts to audit.url when set. Otherwise runs are recorded in
// the local store; if that cannot be opened the summary is only logged.
func newAuditSender(ctx context.Context, c *config.Config) (audit.Sender, func()) {
	if c.Audit.URL != "" {
		retry := resilience.DefaultRetryConfig()
		if c.Audit.MaxAttempts > 0 {
			retry.MaxAttempts = c.Audit.MaxAttempts
		}
		return audit.NewHTTPSender(c.Audit.URL,
			audit.WithBearer(c.Proxy.AuthToken),
			audit.WithRetry(retry),
		), func() {}
	}

	st, err := initStore(ctx, c)
	if err != nil {
		zap.L().Warn("scrape: scrape log store unavailable", zap.Error(err))
		return nil, func() {}
	}
	return audit.RecorderSender{Recorder: st}, func() { st.Close() } //nolint:errcheck
}

// deliverArtifact renders the export and hands it to every configured
// destination. It returns the delivered locations.
func deliverArtifact(ctx context.Context, c *config.Config, out model.RunOutcome, at time.Time) ([]string, error) {
	artifact, err := export.Build(export.Format(c.Export.Format), out, at)
	if err != nil {
		return nil, err
	}

	deliverers := []export.Deliverer{export.DirDeliverer{Dir: c.Export.Dir}}
	if c.Export.FTPURL != "" {
		deliverers = append(deliverers, export.NewFTPDeliverer(c.Export.FTPURL, export.FTPOptions{
			User:     c.Export.FTPUser,
			Password: c.Export.FTPPassword,
		}))
	}

	locations := make([]string, 0, len(deliverers))
	for _, d := range deliverers {
		loc, err := d.Deliver(ctx, artifact)
		if err != nil {
			return locations, err
		}
		locations = append(locations, loc)
	}
	return locations, nil
}

func writeResult(w io.Writer, result model.InvocationResult) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return eris.Wrap(enc.Encode(result), "write result")
}
