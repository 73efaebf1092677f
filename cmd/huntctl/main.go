// huntctl is the command-line client for the huntlab platform: hunters
// submit and manage vulnerability reports, analysts review the shared
// queue. Every protected command runs through the navigation guard, so
// token refresh and role gating behave exactly as in the web client.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"huntlab.org/internal/api"
	"huntlab.org/internal/config"
	"huntlab.org/internal/guard"
	"huntlab.org/internal/obs"
	"huntlab.org/internal/reports"
	"huntlab.org/internal/routes"
	"huntlab.org/internal/session"
)

var (
	version = "0.3.1"
	commit  = "dev"
)

func main() {
	obs.Init()
	obs.InitBuildInfo(version, commit)

	if len(os.Args) < 2 {
		usage()
	}
	if os.Args[1] == "version" {
		fmt.Printf("huntctl %s (%s)\n", version, commit)
		return
	}

	cfg, err := config.Load()
	if err != nil {
		fail(err)
	}

	a, err := newApp(cfg)
	if err != nil {
		fail(err)
	}
	defer a.Close()

	if cfg.MetricsAddr != "" {
		go serveMetrics(cfg.MetricsAddr)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	switch os.Args[1] {
	case "login":
		err = a.login(ctx, os.Args[2:])
	case "register":
		err = a.register(ctx, os.Args[2:])
	case "logout":
		err = a.logout(ctx)
	case "whoami":
		err = a.whoami(ctx)
	case "reports":
		err = a.listReports(ctx, os.Args[2:])
	case "review":
		err = a.review(ctx, os.Args[2:])
	case "submit":
		err = a.submit(ctx, os.Args[2:])
	case "delete":
		err = a.remove(ctx, os.Args[2:])
	default:
		usage()
	}
	if err != nil {
		fail(err)
	}
}

func fail(err error) {
	fmt.Fprintf(os.Stderr, "huntctl: %v\n", err)
	os.Exit(1)
}

func usage() {
	fmt.Fprintf(os.Stderr, `usage: %s <command> [flags]

commands:
  login     -u <username> -p <password>
  register  -u <username> -e <email> -p <password> [-phone <number>] [-role hunter|analyst]
  logout
  whoami
  reports   [-status <new|in_review|resolved|rejected|all>] [-q <search>] [-mine]
  review    -id <report> [-status <value>] [-rating <0..5>] [-discard]
  submit    -title <t> -target <host> [-cwe <id>] [-cvss <score>] [-desc <text>] [-impact <text>] [-poc <file>]
  delete    -id <report> [-yes]
  version
`, os.Args[0])
	os.Exit(1)
}

func serveMetrics(addr string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", obs.Handler())
	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	log.Printf("metrics on %s", addr)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Printf("metrics listener: %v", err)
	}
}

// app wires the session store, the backend client and the guard together
// for the lifetime of one command.
type app struct {
	cfg    *config.Config
	store  *session.SQLiteStore
	client *api.Client
	guard  *guard.Guard
}

func newApp(cfg *config.Config) (*app, error) {
	store, err := session.Open(cfg.StatePath)
	if err != nil {
		return nil, err
	}
	client := api.New(cfg.BaseURL,
		api.WithTimeout(cfg.HTTPTimeout),
		api.WithRateLimit(cfg.RatePerSec, cfg.RateBurst),
		api.WithTokenSource(func() string {
			sess, ok, err := store.Get()
			if err != nil || !ok {
				return ""
			}
			return sess.AccessToken
		}),
	)
	return &app{
		cfg:    cfg,
		store:  store,
		client: client,
		guard:  guard.New(store, client),
	}, nil
}

func (a *app) Close() {
	if a.store != nil {
		_ = a.store.Close()
	}
}

// requireAuth runs the guard for dest and turns its redirect semantics
// into command-line errors.
func (a *app) requireAuth(ctx context.Context, dest routes.Destination) error {
	dec := a.guard.Evaluate(ctx, dest)
	if dec.Status != guard.StatusAuthenticated {
		return errors.New("not logged in (run: huntctl login)")
	}
	if dec.Redirect != "" {
		return fmt.Errorf("role %q may not access %s (home: %s)", dec.Role, dest, dec.Redirect)
	}
	return nil
}

func (a *app) login(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("login", flag.ExitOnError)
	username := fs.String("u", "", "username")
	password := fs.String("p", "", "password")
	_ = fs.Parse(args)

	pair, err := a.client.Login(ctx, *username, *password)
	if err != nil {
		return err
	}
	sess := session.Session{AccessToken: pair.Access, RefreshToken: pair.Refresh}

	// The profile fetch is opportunistic; login succeeds without it.
	if profile, err := a.client.Me(ctx); err == nil {
		sess.MergeUser(profile)
	}
	if err := a.store.Set(sess); err != nil {
		return err
	}

	role := sess.Role()
	fmt.Printf("logged in as %s (%s), home: %s\n", *username, role, routes.Home(role))
	return nil
}

func (a *app) register(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("register", flag.ExitOnError)
	username := fs.String("u", "", "username")
	email := fs.String("e", "", "email")
	password := fs.String("p", "", "password")
	phone := fs.String("phone", "", "phone number")
	role := fs.String("role", string(session.RoleHunter), "account role")
	_ = fs.Parse(args)

	profile, err := a.client.Register(ctx, api.Registration{
		Username:    *username,
		Email:       *email,
		Password:    *password,
		PhoneNumber: *phone,
		Role:        session.NormalizeRole(*role),
	})
	if err != nil {
		return err
	}
	fmt.Printf("registered %s (%s); log in with: huntctl login -u %s\n", profile.Username, profile.Role, profile.Username)
	return nil
}

func (a *app) logout(ctx context.Context) error {
	// Server-side invalidation is best effort; local state always goes.
	if sess, ok, _ := a.store.Get(); ok && sess.Valid() {
		if err := a.client.Logout(ctx); err != nil {
			log.Printf("server logout failed: %v", err)
		}
	}
	if err := a.store.Clear(); err != nil {
		return err
	}
	fmt.Println("logged out")
	return nil
}

func (a *app) whoami(ctx context.Context) error {
	if err := a.requireAuth(ctx, routes.DestProfile); err != nil {
		return err
	}

	profile, err := a.client.Me(ctx)
	if err != nil {
		return err
	}
	if sess, ok, getErr := a.store.Get(); getErr == nil && ok {
		sess.MergeUser(profile)
		if err := a.store.Set(sess); err != nil {
			log.Printf("profile cache update failed: %v", err)
		}
	}

	fmt.Printf("username: %s\nemail:    %s\nrole:     %s\n", profile.Username, profile.Email, profile.Role)
	if profile.PhoneNumber != "" {
		fmt.Printf("phone:    %s\n", profile.PhoneNumber)
	}
	if profile.Rating > 0 {
		fmt.Printf("rating:   %.1f\n", profile.Rating)
	}
	return nil
}

func (a *app) listReports(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("reports", flag.ExitOnError)
	status := fs.String("status", string(reports.StatusAll), "status filter")
	query := fs.String("q", "", "search in title, target and CWE")
	mine := fs.Bool("mine", false, "only my own submissions")
	_ = fs.Parse(args)

	filter := reports.Status(strings.ToLower(strings.TrimSpace(*status)))
	if filter != reports.StatusAll && !filter.Known() {
		return fmt.Errorf("unknown status %q", *status)
	}

	dest := routes.DestAnalyst
	if *mine {
		dest = routes.DestDashboard
	}
	if err := a.requireAuth(ctx, dest); err != nil {
		return err
	}

	c := reports.NewCollection(a.client)
	var err error
	if *mine {
		err = c.LoadMine(ctx)
	} else {
		err = c.Load(ctx, filter)
	}
	if err != nil {
		return err
	}

	printRecords(c.Project(*query, filter))
	return nil
}

func printRecords(recs []reports.Record) {
	if len(recs) == 0 {
		fmt.Println("no reports")
		return
	}
	w := tabwriter.NewWriter(os.Stdout, 2, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tTITLE\tTARGET\tSEVERITY\tSTATUS\tRATING\tCREATED")
	for _, r := range recs {
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\t%d/5\t%s\n",
			r.ID, r.Title, r.Target, reports.SeverityLabel(r.CVSSScore),
			r.Status.Label(), r.Rating, r.CreatedAt.Format("2006-01-02"))
	}
	_ = w.Flush()
}

func (a *app) review(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("review", flag.ExitOnError)
	id := fs.Int64("id", 0, "report id")
	status := fs.String("status", "", "new status")
	rating := fs.Float64("rating", -1, "new rating (0..5)")
	discard := fs.Bool("discard", false, "drop local edits and refetch")
	_ = fs.Parse(args)

	if *id == 0 {
		return errors.New("review: -id is required")
	}
	if err := a.requireAuth(ctx, routes.DestAnalyst); err != nil {
		return err
	}

	c := reports.NewCollection(a.client)
	if err := c.Load(ctx, reports.StatusAll); err != nil {
		return err
	}

	if *discard {
		if err := c.Discard(ctx, *id); err != nil {
			return err
		}
		rec, _ := c.Record(*id)
		fmt.Printf("report %d restored: status=%s rating=%d\n", rec.ID, rec.Status, rec.Rating)
		return nil
	}

	var patch reports.Patch
	if *status != "" {
		st := reports.Status(strings.ToLower(strings.TrimSpace(*status)))
		if !st.Known() {
			return fmt.Errorf("unknown status %q", *status)
		}
		patch.Status = &st
	}
	if *rating >= 0 {
		r := reports.ClampRating(*rating)
		patch.Rating = &r
	}
	if patch.Status == nil && patch.Rating == nil {
		return errors.New("review: nothing to change (use -status and/or -rating)")
	}

	if err := c.MarkDirty(*id, patch); err != nil {
		return err
	}
	if err := c.Save(ctx, *id); err != nil {
		return err
	}
	rec, _ := c.Record(*id)
	fmt.Printf("report %d saved: status=%s rating=%d\n", rec.ID, rec.Status, rec.Rating)
	return nil
}

func (a *app) submit(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("submit", flag.ExitOnError)
	title := fs.String("title", "", "report title")
	target := fs.String("target", "", "affected host or asset")
	cwe := fs.String("cwe", "", "CWE identifier")
	cvss := fs.String("cvss", "", "CVSS v3.1 score")
	desc := fs.String("desc", "", "description")
	impact := fs.String("impact", "", "impact statement")
	pocPath := fs.String("poc", "", "proof-of-concept attachment")
	_ = fs.Parse(args)

	if strings.TrimSpace(*title) == "" || strings.TrimSpace(*target) == "" {
		return errors.New("submit: -title and -target are required")
	}
	if err := a.requireAuth(ctx, routes.DestDashboard); err != nil {
		return err
	}

	draft := reports.Draft{
		Title:       strings.TrimSpace(*title),
		Target:      strings.TrimSpace(*target),
		CWE:         strings.TrimSpace(*cwe),
		CVSSScore:   strings.TrimSpace(*cvss),
		Description: *desc,
		Impact:      *impact,
	}
	if *pocPath != "" {
		data, err := os.ReadFile(*pocPath)
		if err != nil {
			return fmt.Errorf("submit: read poc: %w", err)
		}
		draft.POCName = filepath.Base(*pocPath)
		draft.POC = data
	}

	c := reports.NewCollection(a.client)
	if err := c.LoadMine(ctx); err != nil {
		return err
	}
	rec, err := c.Create(ctx, draft)
	if err != nil {
		return err
	}
	fmt.Printf("report %d submitted: %s\n", rec.ID, rec.Title)
	return nil
}

func (a *app) remove(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("delete", flag.ExitOnError)
	id := fs.Int64("id", 0, "report id")
	yes := fs.Bool("yes", false, "confirm deletion")
	_ = fs.Parse(args)

	if *id == 0 {
		return errors.New("delete: -id is required")
	}
	if err := a.requireAuth(ctx, routes.DestDashboard); err != nil {
		return err
	}

	c := reports.NewCollection(a.client)
	if err := c.LoadMine(ctx); err != nil {
		return err
	}
	if err := c.Remove(ctx, *id, *yes); err != nil {
		if errors.Is(err, reports.ErrNotConfirmed) {
			return fmt.Errorf("delete: pass -yes to confirm removing report %d", *id)
		}
		return err
	}
	fmt.Printf("report %d deleted\n", *id)
	return nil
}
