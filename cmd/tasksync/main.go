// Command tasksync is the CLI over the task sync client.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/closerbase/tasksync/cache"
	"github.com/closerbase/tasksync/client"
	"github.com/closerbase/tasksync/config"
	"github.com/closerbase/tasksync/internal/version"
	"github.com/closerbase/tasksync/task"
)

func main() {
	var (
		configPath = flag.String("config", "", "path to YAML config file")
		serverURL  = flag.String("server", "", "task API URL (overrides config)")
		session    = flag.String("session", os.Getenv("TASKSYNC_SESSION"), "session token (or $TASKSYNC_SESSION)")
	)
	flag.Usage = usage
	flag.Parse()

	args := flag.Args()
	if len(args) == 0 {
		usage()
		os.Exit(1)
	}

	cfg := config.DefaultConfig()
	if *configPath != "" {
		loaded, err := config.Load(*configPath)
		if err != nil {
			fatal(err)
		}
		cfg = loaded
	}
	if *serverURL != "" {
		cfg.API.BaseURL = strings.TrimRight(*serverURL, "/")
	}

	cmd := args[0]
	rest := args[1:]

	if cmd == "version" {
		fmt.Printf("tasksync %s (commit %s, built %s)\n",
			version.Version, version.Commit, version.BuildDate)
		return
	}
	if cmd == "login" {
		if err := cmdLogin(cfg, rest); err != nil {
			fatal(err)
		}
		return
	}

	store, err := openCache(cfg)
	if err != nil {
		fatal(err)
	}
	defer store.Close()

	c := client.New(client.Config{
		BaseURL:    cfg.API.BaseURL,
		HTTPClient: httpClient(cfg, *session),
		Cache:      store,
		Cooldown:   time.Duration(cfg.Sync.CooldownSeconds) * time.Second,
	})

	ctx := context.Background()
	switch cmd {
	case "list":
		err = cmdList(ctx, c, rest)
	case "add":
		err = cmdAdd(ctx, c, rest)
	case "done":
		err = cmdDone(ctx, c, rest, true)
	case "reopen":
		err = cmdDone(ctx, c, rest, false)
	case "snooze":
		err = cmdSnooze(ctx, c, rest)
	case "unsnooze":
		err = cmdUnsnooze(ctx, c, rest)
	case "sync":
		err = cmdSync(ctx, c)
	case "push":
		err = cmdPush(ctx, c)
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n", cmd)
		usage()
		os.Exit(1)
	}
	if err != nil {
		fatal(err)
	}
}

func usage() {
	fmt.Fprint(os.Stderr, `tasksync — follow-up task CLI

Usage:
  tasksync [flags] <command> [args]

Flags:
  --config  <path>   YAML config file
  --server  <url>    task API URL (overrides config)
  --session <token>  session token (or $TASKSYNC_SESSION)

Commands:
  version                  print version
  login <email>            obtain a session token (password read from $TASKSYNC_PASSWORD)
  list [--status s]        list tasks (open, done, all)
  add <title...>           create a task
  done <id>                mark a task done
  reopen <id>              mark a task not done
  snooze <id> <mode>       snooze (1h, tomorrow, nextweek, or a timestamp)
  unsnooze <id>            clear a snooze
  sync                     trigger ingestion from recent summaries
  push                     re-submit locally queued offline tasks
`)
}

func fatal(err error) {
	fmt.Fprintf(os.Stderr, "error: %v\n", err)
	os.Exit(1)
}

func openCache(cfg *config.Config) (cache.Store, error) {
	if cfg.Cache.Path == "" {
		return cache.NewMemory(), nil
	}
	if err := os.MkdirAll(dirOf(cfg.Cache.Path), 0o700); err != nil {
		return nil, err
	}
	return cache.Open(cfg.Cache.Path)
}

func dirOf(path string) string {
	i := strings.LastIndexByte(path, os.PathSeparator)
	if i <= 0 {
		return "."
	}
	return path[:i]
}

// httpClient returns a client that attaches the session cookie to every
// request, standing in for the browser's cookie jar.
func httpClient(cfg *config.Config, session string) *http.Client {
	var timeout time.Duration
	if cfg.API.TimeoutSeconds > 0 {
		timeout = time.Duration(cfg.API.TimeoutSeconds) * time.Second
	}
	return &http.Client{
		Timeout:   timeout,
		Transport: &sessionTransport{session: session, base: http.DefaultTransport},
	}
}

type sessionTransport struct {
	session string
	base    http.RoundTripper
}

func (t *sessionTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if t.session != "" {
		req.AddCookie(&http.Cookie{Name: "session", Value: t.session})
	}
	return t.base.RoundTrip(req)
}

// --- commands ---

func cmdLogin(cfg *config.Config, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: tasksync login <email>")
	}
	password := os.Getenv("TASKSYNC_PASSWORD")
	if password == "" {
		return fmt.Errorf("set $TASKSYNC_PASSWORD before logging in")
	}

	body, _ := json.Marshal(map[string]string{"email": args[0], "password": password})
	resp, err := http.Post(cfg.API.BaseURL+"/api/auth/login", "application/json", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("login request failed: %w", err)
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("login failed: status %d", resp.StatusCode)
	}
	for _, c := range resp.Cookies() {
		if c.Name == "session" {
			fmt.Printf("export TASKSYNC_SESSION=%s\n", c.Value)
			return nil
		}
	}
	return fmt.Errorf("login succeeded but no session cookie was set")
}

func cmdList(ctx context.Context, c *client.Client, args []string) error {
	fs := flag.NewFlagSet("list", flag.ContinueOnError)
	status := fs.String("status", "open", "open, done, or all")
	source := fs.String("source", "", "filter by source type (call, space, manual)")
	limit := fs.Int("limit", 0, "max tasks to list")
	if err := fs.Parse(args); err != nil {
		return err
	}

	list, err := c.FetchTasks(ctx, task.Filter{
		Status:     task.Status(*status),
		SourceType: task.SourceType(*source),
		Limit:      *limit,
	})
	if err != nil && !list.Offline {
		return err
	}
	if list.Offline {
		fmt.Fprintln(os.Stderr, "offline: showing locally queued tasks")
	}

	for _, t := range list.Tasks {
		id := t.ID
		if t.Provisional() {
			id = "local:" + t.LocalID
		}
		mark := " "
		if t.Done {
			mark = "x"
		}
		fmt.Printf("[%s] %-38s %-6s %s\n", mark, id, t.Priority, t.Title)
	}
	return nil
}

func cmdAdd(ctx context.Context, c *client.Client, args []string) error {
	fs := flag.NewFlagSet("add", flag.ContinueOnError)
	priority := fs.String("priority", "", "low, medium, or high")
	details := fs.String("details", "", "free-text annotation")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() == 0 {
		return fmt.Errorf("usage: tasksync add <title...>")
	}

	created, err := c.CreateTask(ctx, client.Draft{
		Title:    strings.Join(fs.Args(), " "),
		Priority: task.Priority(*priority),
		Details:  *details,
	})
	if err != nil {
		return err
	}
	if created.Offline {
		fmt.Printf("queued locally (offline): %s\n", created.Task.LocalID)
		return nil
	}
	fmt.Printf("created: %s\n", created.Task.ID)
	return nil
}

func cmdDone(ctx context.Context, c *client.Client, args []string, done bool) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: tasksync done|reopen <id>")
	}
	t, err := c.MarkTaskDone(ctx, args[0], done)
	if err != nil {
		return err
	}
	fmt.Printf("updated: %s done=%v\n", t.ID, t.Done)
	return nil
}

func cmdSnooze(ctx context.Context, c *client.Client, args []string) error {
	if len(args) != 2 {
		return fmt.Errorf("usage: tasksync snooze <id> <1h|tomorrow|nextweek|timestamp>")
	}
	t, err := c.SnoozeTask(ctx, args[0], args[1])
	if err != nil {
		return err
	}
	fmt.Printf("snoozed %s until %s\n", t.ID, t.SnoozedUntil.Format(time.RFC3339))
	return nil
}

func cmdUnsnooze(ctx context.Context, c *client.Client, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: tasksync unsnooze <id>")
	}
	t, err := c.UnsnoozeTask(ctx, args[0])
	if err != nil {
		return err
	}
	fmt.Printf("unsnoozed %s\n", t.ID)
	return nil
}

func cmdSync(ctx context.Context, c *client.Client) error {
	res, err := c.SyncTasks(ctx)
	if err != nil {
		return err
	}
	if res.Throttled {
		fmt.Println("sync skipped: cooldown has not elapsed")
		return nil
	}
	fmt.Printf("sync: %d created, %d skipped\n", res.Created, res.Skipped)
	return nil
}

func cmdPush(ctx context.Context, c *client.Client) error {
	res, err := c.FlushLocal(ctx)
	if err != nil {
		fmt.Printf("push stopped: %d submitted, %d dropped, %d remaining\n",
			res.Submitted, res.Dropped, res.Remaining)
		return err
	}
	fmt.Printf("push: %d submitted, %d dropped, %d remaining\n",
		res.Submitted, res.Dropped, res.Remaining)
	return nil
}
