package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"os"
	"sort"
	"strings"
	"time"

	cli "github.com/urfave/cli/v3"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"profilecard/internal/api"
	"profilecard/internal/avatar"
	"profilecard/internal/config"
	"profilecard/internal/hostpage"
	"profilecard/internal/kv"
	"profilecard/internal/prefs"
	"profilecard/internal/proxy"
	"profilecard/internal/render"
	"profilecard/internal/restore"
	"profilecard/internal/style"
)

// openPrefs opens the configured storage and loads the preference record.
func openPrefs(ctx context.Context, e *env) (kv.Store, *prefs.Store, error) {
	store, err := kv.Open(ctx, e.Cfg.Storage)
	if err != nil {
		return nil, nil, fmt.Errorf("unable to open storage: %w", err)
	}
	return store, prefs.Open(ctx, store, e.Log.Named("prefs")), nil
}

// newPipeline builds the data client and the pipeline on top of p.
func newPipeline(e *env, p *prefs.Store, opts render.Options) (*api.Client, *restore.Pipeline, error) {
	client, err := api.New(e.Cfg.API.Config, nil, e.Log.Named("api"))
	if err != nil {
		return nil, nil, err
	}
	if opts.Language, err = e.Cfg.Render.Tag(); err != nil {
		return nil, nil, err
	}
	if opts.Location, err = e.Cfg.Render.Location(); err != nil {
		return nil, nil, err
	}
	pipeline := restore.New(client, p, e.Log,
		restore.WithCollectiblesWait(e.Cfg.API.CollectiblesWait),
		restore.WithRenderOptions(opts))
	return client, pipeline, nil
}

func newFetcher(e *env) (hostpage.Fetcher, io.Closer) {
	up := e.Cfg.Upstream
	if up.FetchMode == config.FetchBrowser {
		b := hostpage.NewBrowserFetcher(hostpage.BrowserOptions{
			Timeout:      up.Timeout,
			WaitSelector: up.WaitSelector,
			Settle:       up.Settle,
		}, e.Log)
		return b, b
	}
	return hostpage.NewHTTPFetcher(up.Timeout), nil
}

// closeAll closes every non-nil closer in order.
func closeAll(closers ...io.Closer) (err error) {
	for _, c := range closers {
		if c != nil {
			err = multierr.Append(err, c.Close())
		}
	}
	return err
}

func runServe(ctx context.Context, cmd *cli.Command) error {
	e := envFromContext(ctx)
	addr := e.Cfg.Server.Addr
	if a := cmd.String("addr"); a != "" {
		addr = a
	}

	store, p, err := openPrefs(ctx, e)
	if err != nil {
		return err
	}
	client, pipeline, err := newPipeline(e, p, render.Options{
		SettingsURL: "/settings",
		AvatarURL:   func(id string) string { return "/avatar/" + url.PathEscape(id) },
	})
	if err != nil {
		return multierr.Append(err, store.Close())
	}
	fetcher, fetcherCloser := newFetcher(e)
	srv, err := proxy.New(proxy.Config{
		Upstream:  e.Cfg.Upstream.Base,
		Fetcher:   fetcher,
		Pipeline:  pipeline,
		Prefs:     p,
		Avatars:   avatar.New(&http.Client{Timeout: e.Cfg.API.Timeout}, e.Log),
		AvatarURL: client.AvatarURL,
		Logger:    e.Log,
		Closers:   []io.Closer{fetcherCloser, store},
	})
	if err != nil {
		return multierr.Append(err, closeAll(fetcherCloser, store))
	}

	hs := &http.Server{
		Addr:              addr,
		Handler:           srv,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      2 * time.Minute,
		IdleTimeout:       60 * time.Second,
		ErrorLog:          zap.NewStdLog(e.Log.Named("http")),
	}
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return multierr.Append(fmt.Errorf("listen on %s: %w", addr, err), srv.Close())
	}
	e.Log.Info("Listening",
		zap.String("addr", ln.Addr().String()),
		zap.String("upstream", e.Cfg.Upstream.Base),
		zap.String("fetch", e.Cfg.Upstream.FetchMode),
		zap.String("storage", e.Cfg.Storage.Kind))

	served := make(chan error, 1)
	go func() { served <- hs.Serve(ln) }()

	select {
	case err = <-served:
	case <-ctx.Done():
		e.Log.Info("Shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		err = hs.Shutdown(shutdownCtx)
		cancel()
	}
	if errors.Is(err, http.ErrServerClosed) {
		err = nil
	}
	return multierr.Append(err, srv.Close())
}

func runRender(ctx context.Context, cmd *cli.Command) (err error) {
	e := envFromContext(ctx)
	src := cmd.Args().Get(0)
	if src == "" {
		return fmt.Errorf("missing SOURCE")
	}
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("unable to open source: %w", err)
	}
	defer in.Close()

	path := cmd.String("path")
	doc, err := hostpage.Parse(in, strings.TrimRight(e.Cfg.Upstream.Base, "/")+path)
	if err != nil {
		return err
	}

	store, p, err := openPrefs(ctx, e)
	if err != nil {
		return err
	}
	defer func() { err = multierr.Append(err, store.Close()) }()

	_, pipeline, err := newPipeline(e, p, render.Options{})
	if err != nil {
		return err
	}
	res := pipeline.Run(ctx, path, doc.Root)
	e.Log.Info("Page processed",
		zap.String("outcome", res.Outcome.String()),
		zap.String("id", res.ID.String()),
		zap.String("strategy", res.Strategy),
		zap.Error(res.Err))

	out := io.Writer(os.Stdout)
	if dst := cmd.Args().Get(1); dst != "" {
		f, ferr := os.Create(dst)
		if ferr != nil {
			return fmt.Errorf("unable to create destination file '%s': %w", dst, ferr)
		}
		defer func() { err = multierr.Append(err, f.Close()) }()
		out = f
	}
	return doc.Render(out)
}

func runPrefsShow(ctx context.Context, _ *cli.Command) (err error) {
	store, p, err := openPrefs(ctx, envFromContext(ctx))
	if err != nil {
		return err
	}
	defer func() { err = multierr.Append(err, store.Close()) }()

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(p.Current())
}

func runPrefsSet(ctx context.Context, cmd *cli.Command) (err error) {
	values := url.Values{}
	for _, arg := range cmd.Args().Slice() {
		k, v, ok := strings.Cut(arg, "=")
		if !ok || strings.TrimSpace(k) == "" {
			return fmt.Errorf("malformed argument %q, want KEY=VALUE", arg)
		}
		values.Set(strings.TrimSpace(k), v)
	}
	if len(values) == 0 {
		return fmt.Errorf("nothing to set")
	}
	store, p, err := openPrefs(ctx, envFromContext(ctx))
	if err != nil {
		return err
	}
	defer func() { err = multierr.Append(err, store.Close()) }()

	next, err := p.Update(ctx, values)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(next)
}

func runStyle(ctx context.Context, cmd *cli.Command) (err error) {
	store, p, err := openPrefs(ctx, envFromContext(ctx))
	if err != nil {
		return err
	}
	defer func() { err = multierr.Append(err, store.Close()) }()

	css := style.Generate(p.Current())
	if !cmd.Bool("vars") {
		_, err = io.WriteString(os.Stdout, css)
		return err
	}
	vars, err := style.Variables(css)
	if err != nil {
		return err
	}
	names := make([]string, 0, len(vars))
	for name := range vars {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Fprintf(os.Stdout, "%s: %s\n", name, vars[name])
	}
	return nil
}
