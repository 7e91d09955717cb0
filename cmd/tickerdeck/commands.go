package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"github.com/five82/tickerdeck/internal/api"
	"github.com/five82/tickerdeck/internal/app"
	"github.com/five82/tickerdeck/internal/form"
	"github.com/five82/tickerdeck/internal/notify"
	"github.com/five82/tickerdeck/internal/report"
	"github.com/five82/tickerdeck/internal/session"
)

type cli struct {
	in      io.Reader
	out     io.Writer
	errOut  io.Writer
	version string

	configPath string
	prefsPath  string
	apiURL     string
	logLevel   string
}

func (c *cli) options() app.Options {
	return app.Options{
		ConfigPath: c.configPath,
		PrefsPath:  c.prefsPath,
		APIURL:     c.apiURL,
		LogLevel:   c.logLevel,
		Version:    c.version,
		Console:    c.logLevel == "debug",
	}
}

// backend is what a one-shot subcommand needs.
type backend struct {
	env    *app.Env
	client *api.Client
	auth   *session.Auth
}

func (c *cli) connect() (*backend, error) {
	env, err := app.Setup(c.options())
	if err != nil {
		return nil, err
	}
	client, err := env.Client(&notify.Writer{Out: c.errOut, Log: env.Logger})
	if err != nil {
		_ = env.Close()
		return nil, err
	}
	return &backend{env: env, client: client, auth: env.Auth(client)}, nil
}

func (b *backend) close() {
	_ = b.env.Close()
}

// withBackend adapts a subcommand body that needs a connected backend.
func (c *cli) withBackend(fn func(cmd *cobra.Command, args []string, b *backend) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		b, err := c.connect()
		if err != nil {
			return err
		}
		defer b.close()
		return fn(cmd, args, b)
	}
}

func newRootCmd(c *cli) *cobra.Command {
	root := &cobra.Command{
		Use:   "tickerdeck",
		Short: "Terminal dashboard for the stock data backend",
		Long: `tickerdeck is a thin client for the stock data backend.

Without a subcommand it starts the terminal dashboard. The subcommands run
one backend call each and print the result.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		Version:       c.version,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDashboard(cmd, c)
		},
	}
	root.SetIn(c.in)
	root.SetOut(c.out)
	root.SetErr(c.errOut)

	flags := root.PersistentFlags()
	flags.StringVar(&c.configPath, "config", "", "config file (default ~/.config/tickerdeck/config.toml)")
	flags.StringVar(&c.prefsPath, "prefs", "", "preferences file (default ~/.config/tickerdeck/prefs.toml)")
	flags.StringVar(&c.apiURL, "api", "", "backend API root, e.g. http://127.0.0.1:8000/api")
	flags.StringVar(&c.logLevel, "log-level", "", "debug, info, warn or error")

	root.AddCommand(
		&cobra.Command{
			Use:   "tui",
			Short: "Start the terminal dashboard",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return runDashboard(cmd, c)
			},
		},
		newLoginCmd(c),
		newRegisterCmd(c),
		newLogoutCmd(c),
		newWhoamiCmd(c),
		newDatesCmd(c),
		newSummaryCmd(c),
		newHistoryCmd(c),
		newSearchCmd(c),
		newProfileCmd(c),
		newCompaniesCmd(c),
	)
	return root
}

func runDashboard(cmd *cobra.Command, c *cli) error {
	opts := c.options()
	opts.Console = false
	if dir, err := os.Getwd(); err == nil {
		opts.ExportDir = dir
	}
	return app.Run(cmd.Context(), opts)
}

// credentials returns the username and password from flags, reading the
// password from stdin when the flag is empty.
func credentials(cmd *cobra.Command, username, password string) (string, string, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return "", "", errors.New("--username is required")
	}
	if password != "" {
		return username, password, nil
	}
	fmt.Fprint(cmd.ErrOrStderr(), "Password: ")
	line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", "", fmt.Errorf("read password: %w", err)
	}
	password = strings.TrimRight(line, "\r\n")
	if password == "" {
		return "", "", errors.New("password is required")
	}
	return username, password, nil
}

func newLoginCmd(c *cli) *cobra.Command {
	var username, password string
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in and store the session token",
		Args:  cobra.NoArgs,
		RunE: c.withBackend(func(cmd *cobra.Command, _ []string, b *backend) error {
			u, p, err := credentials(cmd, username, password)
			if err != nil {
				return err
			}
			if err := b.auth.Login(cmd.Context(), u, p); err != nil {
				return err
			}
			st := b.env.Session.State()
			fmt.Fprintf(cmd.OutOrStdout(), "signed in as %s\n", st.User.DisplayName())
			if !st.ExpiresAt.IsZero() {
				fmt.Fprintf(cmd.OutOrStdout(), "session valid until %s\n", st.ExpiresAt.Local().Format(time.DateTime))
			}
			return nil
		}),
	}
	cmd.Flags().StringVarP(&username, "username", "u", "", "account name")
	cmd.Flags().StringVarP(&password, "password", "p", "", "password (read from stdin when empty)")
	return cmd
}

func newRegisterCmd(c *cli) *cobra.Command {
	var username, password string
	cmd := &cobra.Command{
		Use:   "register",
		Short: "Create an account",
		Args:  cobra.NoArgs,
		RunE: c.withBackend(func(cmd *cobra.Command, _ []string, b *backend) error {
			u, p, err := credentials(cmd, username, password)
			if err != nil {
				return err
			}
			req := api.RegisterRequest{Username: u, Password: p}
			if fields := form.Check(req); len(fields) > 0 {
				return errors.New(form.Summary(fields))
			}
			if err := b.auth.Register(cmd.Context(), u, p); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "account %s created, run tickerdeck login to sign in\n", u)
			return nil
		}),
	}
	cmd.Flags().StringVarP(&username, "username", "u", "", "account name (3-50 characters)")
	cmd.Flags().StringVarP(&password, "password", "p", "", "password, at least 6 characters (read from stdin when empty)")
	return cmd
}

func newLogoutCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the stored session token",
		Args:  cobra.NoArgs,
		RunE: c.withBackend(func(cmd *cobra.Command, _ []string, b *backend) error {
			if err := b.auth.Logout(); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "signed out")
			return nil
		}),
	}
}

func newWhoamiCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the signed-in user",
		Args:  cobra.NoArgs,
		RunE: c.withBackend(func(cmd *cobra.Command, _ []string, b *backend) error {
			if !b.env.Session.State().SignedIn {
				return errors.New("not signed in, run tickerdeck login")
			}
			if err := b.auth.FetchUser(cmd.Context()); err != nil {
				return err
			}
			st := b.env.Session.State()
			u := st.User
			rows := [][]string{
				{"username", u.Username},
				{"nickname", u.Nickname},
				{"email", u.Email},
				{"phone", u.Phone},
				{"signature", u.Signature},
				{"avatar", u.Avatar},
				{"created", u.CreatedAt},
			}
			if !st.ExpiresAt.IsZero() {
				rows = append(rows, []string{"session until", st.ExpiresAt.Local().Format(time.DateTime)})
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable(nil, rows))
			return nil
		}),
	}
}

func newDatesCmd(c *cli) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "dates",
		Short: "List recent trading dates",
		Args:  cobra.NoArgs,
		RunE: c.withBackend(func(cmd *cobra.Command, _ []string, b *backend) error {
			dates, err := b.client.TradeDates(cmd.Context())
			if err != nil {
				return err
			}
			today := time.Now().Format("20060102")
			var past []string
			for _, d := range dates {
				if d <= today {
					past = append(past, d)
				}
			}
			if limit > 0 && len(past) > limit {
				past = past[len(past)-limit:]
			}
			for _, d := range past {
				fmt.Fprintln(cmd.OutOrStdout(), d)
			}
			return nil
		}),
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 10, "number of dates to print, 0 for all")
	return cmd
}

func newSummaryCmd(c *cli) *cobra.Command {
	var date string
	cmd := &cobra.Command{
		Use:   "summary",
		Short: "Print the exchange daily summary",
		Args:  cobra.NoArgs,
		RunE: c.withBackend(func(cmd *cobra.Command, _ []string, b *backend) error {
			s, err := b.client.DailySummary(cmd.Context(), date)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			status := s.Status
			if status == "" {
				status = api.SummaryOK
			}
			fmt.Fprintf(out, "%s  %s\n", s.Date, status)
			if s.Message != "" {
				fmt.Fprintln(out, s.Message)
			}
			if s.LastOpenDate != "" && s.LastOpenDate != s.Date {
				fmt.Fprintf(out, "last open date: %s\n", s.LastOpenDate)
			}
			if len(s.Data) == 0 {
				return nil
			}
			cols := s.Columns()
			rows := make([][]string, 0, len(s.Data))
			for _, rec := range s.Data {
				row := make([]string, len(cols))
				for i, col := range cols {
					row[i] = api.FormatValue(rec[col])
				}
				rows = append(rows, row)
			}
			fmt.Fprintln(out, renderTable(cols, rows))
			return nil
		}),
	}
	cmd.Flags().StringVarP(&date, "date", "d", "", "trading date YYYYMMDD (default latest)")
	return cmd
}

func newHistoryCmd(c *cli) *cobra.Command {
	var (
		q       api.HistoryQuery
		pdfPath string
	)
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Print or export daily bars of one stock",
		Args:  cobra.NoArgs,
		RunE: c.withBackend(func(cmd *cobra.Command, _ []string, b *backend) error {
			q.Code = strings.TrimSpace(q.Code)
			if err := q.Validate(); err != nil {
				return err
			}
			bars, err := b.client.History(cmd.Context(), q)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if pdfPath != "" {
				return writeHistoryPDF(out, pdfPath, q, bars)
			}
			rows := make([][]string, 0, len(bars))
			for _, bar := range bars {
				rows = append(rows, []string{
					bar.Date,
					bar.Open.StringFixed(2),
					bar.High.StringFixed(2),
					bar.Low.StringFixed(2),
					bar.Close.StringFixed(2),
					bar.Volume.String(),
					bar.ChangePct.StringFixed(2) + "%",
				})
			}
			fmt.Fprintln(out, renderTable([]string{"date", "open", "high", "low", "close", "volume", "change"}, rows))
			if st := report.Summarize(bars); st.Rows > 0 {
				fmt.Fprintf(out, "%d rows %s..%s  close %s -> %s (%s%%)\n",
					st.Rows, st.From, st.To, st.FirstClose.StringFixed(2), st.LastClose.StringFixed(2), st.ChangePct.StringFixed(2))
			}
			return nil
		}),
	}
	f := cmd.Flags()
	f.StringVarP(&q.Code, "code", "c", "", "security code, e.g. 600519")
	f.StringVar(&q.StartDate, "start", "", "first date YYYYMMDD")
	f.StringVar(&q.EndDate, "end", "", "last date YYYYMMDD")
	f.StringVar(&q.Adjust, "adjust", "", "price adjustment: qfq, hfq or empty")
	f.StringVar(&q.Source, "source", "", "data source: eastmoney, sina or tencent")
	f.StringVar(&pdfPath, "pdf", "", "write a PDF report to this path instead of printing")
	_ = cmd.MarkFlagRequired("code")
	return cmd
}

func writeHistoryPDF(out io.Writer, path string, q api.HistoryQuery, bars []api.Bar) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create pdf: %w", err)
	}
	if err := report.HistoryPDF(file, report.HistoryTitle(q), q, bars); err != nil {
		_ = file.Close()
		_ = os.Remove(path)
		return err
	}
	if err := file.Close(); err != nil {
		return fmt.Errorf("write pdf: %w", err)
	}
	fmt.Fprintf(out, "wrote %d rows to %s\n", len(bars), path)
	return nil
}

func newSearchCmd(c *cli) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Autocomplete stock codes and names",
		Args:  cobra.MinimumNArgs(1),
		RunE: c.withBackend(func(cmd *cobra.Command, args []string, b *backend) error {
			hits, err := b.client.SearchStocks(cmd.Context(), strings.Join(args, " "), limit)
			if err != nil {
				return err
			}
			if len(hits) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "no matches")
				return nil
			}
			rows := make([][]string, 0, len(hits))
			for _, h := range hits {
				rows = append(rows, []string{h.Code.String(), h.Name, h.Market})
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable([]string{"code", "name", "market"}, rows))
			return nil
		}),
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 10, "maximum suggestions")
	return cmd
}

func newProfileCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "profile <code or name>",
		Short: "Show a company profile",
		Args:  cobra.ExactArgs(1),
		RunE: c.withBackend(func(cmd *cobra.Command, args []string, b *backend) error {
			p, err := b.client.CompanyProfile(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			rows := make([][]string, 0, len(p.Fields))
			for _, f := range p.Fields {
				rows = append(rows, []string{f.Item, f.Value})
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable(nil, rows))
			return nil
		}),
	}
}

func newCompaniesCmd(c *cli) *cobra.Command {
	var q api.CompanyQuery
	cmd := &cobra.Command{
		Use:   "companies <query>",
		Short: "Search companies page by page",
		Args:  cobra.MinimumNArgs(1),
		RunE: c.withBackend(func(cmd *cobra.Command, args []string, b *backend) error {
			q.Query = strings.Join(args, " ")
			res, err := b.client.SearchCompanies(cmd.Context(), q)
			if err != nil {
				return err
			}
			rows := make([][]string, 0, len(res.Data))
			for _, co := range res.Data {
				rows = append(rows, []string{co.Code(), co.Name(), co.Industry()})
			}
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, renderTable([]string{"code", "name", "industry"}, rows))
			pages := 0
			if q.PageSize > 0 {
				pages = (res.Total + q.PageSize - 1) / q.PageSize
			}
			fmt.Fprintf(out, "page %d of %d, %d companies\n", q.Page, pages, res.Total)
			return nil
		}),
	}
	f := cmd.Flags()
	f.IntVar(&q.Page, "page", 1, "page number")
	f.IntVar(&q.PageSize, "size", 20, "page size")
	f.StringVar(&q.Industry, "industry", "", "only companies in this industry")
	return cmd
}

var headerStyle = lipgloss.NewStyle().Bold(true).Padding(0, 1)
var cellStyle = lipgloss.NewStyle().Padding(0, 1)

// renderTable draws rows with a header when headers is non-empty.
func renderTable(headers []string, rows [][]string) string {
	t := table.New().
		Border(lipgloss.NormalBorder()).
		StyleFunc(func(row, _ int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return cellStyle
		}).
		Rows(rows...)
	if len(headers) > 0 {
		t = t.Headers(headers...)
	}
	return t.String()
}
