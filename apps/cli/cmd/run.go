package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	"github.com/caseflow/caseflow/packages/config"
	"github.com/caseflow/caseflow/packages/db"
	"github.com/caseflow/caseflow/packages/httpclient"
	"github.com/caseflow/caseflow/packages/notify"
	"github.com/caseflow/caseflow/packages/output"
	"github.com/caseflow/caseflow/packages/report"
	"github.com/caseflow/caseflow/packages/runner"
	"github.com/caseflow/caseflow/packages/suite"
)

var (
	flagBaseURL    string
	flagTimeout    time.Duration
	flagRetries    int
	flagInsecure   bool
	flagProxy      string
	flagOutput     string
	flagOutFile    string
	flagBail       bool
	flagWatch      bool
	flagReportDir  string
	flagDatabase   string
	flagNotifyMode string
)

var runCmd = &cobra.Command{
	Use:   "run <suite-file-or-directory>",
	Short: "Run test suites",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		mergeRunFlags(cmd)

		if flagWatch {
			return watchAndRun(args[0])
		}

		summary, err := runSuites(args[0])
		if err != nil {
			return err
		}
		if !summary.OK() {
			// Failed assertions are a result, not a usage error; exit
			// silently with a failing code.
			os.Exit(1)
		}
		return nil
	},
}

// mergeRunFlags overlays explicitly set flags onto the file config.
func mergeRunFlags(cmd *cobra.Command) {
	overlay := &config.Config{}
	if cmd.Flags().Changed("base-url") || cfg.BaseURL == "" {
		overlay.BaseURL = flagBaseURL
	}
	if cmd.Flags().Changed("timeout") {
		overlay.Timeout = flagTimeout.String()
	}
	if cmd.Flags().Changed("retries") {
		overlay.Retries = config.IntPtr(flagRetries)
	}
	if cmd.Flags().Changed("insecure") {
		overlay.Insecure = config.BoolPtr(flagInsecure)
	}
	if cmd.Flags().Changed("proxy") {
		overlay.Proxy = flagProxy
	}
	if cmd.Flags().Changed("output") || cfg.Output == "" {
		overlay.Output = flagOutput
	}
	if cmd.Flags().Changed("report-dir") {
		overlay.ReportDir = flagReportDir
	}
	if cmd.Flags().Changed("db") {
		overlay.Database = flagDatabase
	}
	if cmd.Flags().Changed("notify") {
		overlay.Notify.Mode = flagNotifyMode
	}
	cfg.Merge(overlay)
}

func runSuites(path string) (*runner.Summary, error) {
	suites, err := loadSuites(path)
	if err != nil {
		return nil, err
	}
	if cfg.BaseURL != "" {
		for _, s := range suites {
			if s.BaseURL == "" {
				s.BaseURL = cfg.BaseURL
			}
		}
	}

	writer, closeWriter, err := outputWriter()
	if err != nil {
		return nil, err
	}
	defer closeWriter()

	formatter, err := output.New(cfg.Output, output.Options{
		Writer:  writer,
		Verbose: flagVerbose,
		NoColor: flagNoColor,
	})
	if err != nil {
		return nil, err
	}

	opts := []runner.Option{
		runner.WithClient(buildClient()),
		runner.WithLogger(log),
		runner.WithBail(flagBail),
		runner.WithCaseHook(formatter.CaseResult),
	}

	if cfg.Database != "" {
		dbClient, err := db.NewClient(cfg.Database)
		if err != nil {
			return nil, err
		}
		defer dbClient.Close()
		opts = append(opts, runner.WithDB(dbClient))
	}

	if cfg.ReportDir != "" {
		cleaner := report.NewCleaner(cfg.ReportDir, log)
		opts = append(opts, runner.WithCleanup(cleaner.Hook()))
	}

	manager, err := buildNotifyManager()
	if err != nil {
		return nil, err
	}
	if manager.Len() > 0 {
		opts = append(opts, runner.WithNotifier(manager))
	}

	summary, err := runner.NewSession(opts...).Run(suites)
	if err != nil {
		return nil, err
	}

	formatter.Summary(summary)
	if f, ok := formatter.(output.Flushable); ok {
		if err := f.Flush(); err != nil {
			return nil, err
		}
	}
	return summary, nil
}

func loadSuites(path string) ([]*suite.Suite, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	if info.IsDir() {
		return suite.LoadDir(path)
	}
	s, err := suite.Load(path)
	if err != nil {
		return nil, err
	}
	return []*suite.Suite{s}, nil
}

func buildClient() *httpclient.Client {
	opts := []httpclient.ClientOption{
		httpclient.WithTimeout(cfg.TimeoutDuration(httpclient.DefaultTimeout)),
	}
	if cfg.Retries != nil && *cfg.Retries > 0 {
		opts = append(opts, httpclient.WithRetries(*cfg.Retries))
	}
	if cfg.Insecure != nil && *cfg.Insecure {
		opts = append(opts, httpclient.WithValidateSSL(false))
	}
	if cfg.Proxy != "" {
		opts = append(opts, httpclient.WithProxy(cfg.Proxy))
	}
	for k, v := range cfg.Headers {
		opts = append(opts, httpclient.WithDefaultHeader(k, v))
	}
	return httpclient.NewClient(opts...)
}

func buildNotifyManager() (*notify.Manager, error) {
	mode := notify.NotifyOnFailure
	if cfg.Notify.Mode != "" {
		parsed, err := notify.ParseMode(cfg.Notify.Mode)
		if err != nil {
			return nil, err
		}
		mode = parsed
	}

	manager := notify.NewManager(notify.WithMode(mode), notify.WithLogger(log))
	if url := cfg.Notify.Slack.WebhookURL; url != "" {
		var opts []notify.SlackOption
		if cfg.Notify.Slack.Channel != "" {
			opts = append(opts, notify.WithSlackChannel(cfg.Notify.Slack.Channel))
		}
		if cfg.Notify.Slack.Username != "" {
			opts = append(opts, notify.WithSlackUsername(cfg.Notify.Slack.Username))
		}
		manager.Add(notify.NewSlack(url, opts...))
	}
	if url := cfg.Notify.DingTalk.WebhookURL; url != "" {
		manager.Add(notify.NewDingTalk(url,
			notify.WithDingTalkSecret(cfg.Notify.DingTalk.Secret),
			notify.WithDingTalkAtAll(cfg.Notify.DingTalk.AtAll),
		))
	}
	if email := cfg.Notify.Email; email.Host != "" && email.From != "" && len(email.To) > 0 {
		port := email.Port
		if port == 0 {
			port = 25
		}
		var opts []notify.EmailOption
		if email.Username != "" {
			opts = append(opts, notify.WithEmailAuth(email.Username, email.Password))
		}
		if email.Subject != "" {
			opts = append(opts, notify.WithEmailSubject(email.Subject))
		}
		manager.Add(notify.NewEmail(email.Host, port, email.From, email.To, opts...))
	}
	return manager, nil
}

func outputWriter() (*os.File, func(), error) {
	if flagOutFile == "" {
		return os.Stdout, func() {}, nil
	}
	f, err := os.Create(flagOutFile)
	if err != nil {
		return nil, nil, fmt.Errorf("create output file: %w", err)
	}
	return f, func() { f.Close() }, nil
}

// watchAndRun reruns the suites whenever a YAML file under the target
// changes. Edits often arrive as bursts of events, so reruns are debounced.
func watchAndRun(path string) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer watcher.Close()

	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	watchTarget := path
	if !info.IsDir() {
		watchTarget = filepath.Dir(path)
	}
	if err := watcher.Add(watchTarget); err != nil {
		return fmt.Errorf("watch %s: %w", watchTarget, err)
	}

	run := func() {
		if summary, err := runSuites(path); err != nil {
			log.WithError(err).Error("run failed")
		} else if summary.OK() {
			log.Info("all cases passed")
		}
		fmt.Println("\nWatching for changes... (ctrl-c to quit)")
	}
	run()

	var debounce *time.Timer
	for {
		select {
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			ext := filepath.Ext(event.Name)
			if ext != ".yaml" && ext != ".yml" {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			if debounce != nil {
				debounce.Stop()
			}
			debounce = time.AfterFunc(300*time.Millisecond, run)
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			log.WithError(err).Warn("watch error")
		}
	}
}

func init() {
	runCmd.Flags().StringVarP(&flagBaseURL, "base-url", "b", envOr("CASEFLOW_BASE_URL", ""), "base URL joined onto relative case URLs")
	runCmd.Flags().DurationVarP(&flagTimeout, "timeout", "t", httpclient.DefaultTimeout, "per-request timeout")
	runCmd.Flags().IntVar(&flagRetries, "retries", 0, "retry transient failures this many times")
	runCmd.Flags().BoolVarP(&flagInsecure, "insecure", "k", false, "skip TLS certificate verification")
	runCmd.Flags().StringVar(&flagProxy, "proxy", envOr("CASEFLOW_PROXY", ""), "proxy URL")
	runCmd.Flags().StringVarP(&flagOutput, "output", "o", "console", "output format (console, json, junit)")
	runCmd.Flags().StringVar(&flagOutFile, "out-file", "", "write output to a file instead of stdout")
	runCmd.Flags().BoolVar(&flagBail, "bail", false, "stop at the first failed case")
	runCmd.Flags().BoolVarP(&flagWatch, "watch", "w", false, "rerun on suite file changes")
	runCmd.Flags().StringVar(&flagReportDir, "report-dir", "", "report directory, cleaned of stale files at start")
	runCmd.Flags().StringVar(&flagDatabase, "db", envOr("CASEFLOW_DB", ""), "database connection string for db rules")
	runCmd.Flags().StringVar(&flagNotifyMode, "notify", "", "when to notify webhooks (always, failure, success)")
	rootCmd.AddCommand(runCmd)
}
