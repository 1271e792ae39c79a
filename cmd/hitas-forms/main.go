package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/goliatone/go-hitasforms/internal/config"
	"github.com/goliatone/go-hitasforms/internal/logging/gologger"
	"github.com/goliatone/go-hitasforms/internal/server"
	"github.com/goliatone/go-hitasforms/pkg/dispatcher"
	"github.com/goliatone/go-hitasforms/pkg/form"
	"github.com/goliatone/go-hitasforms/pkg/formdef"
	"github.com/goliatone/go-hitasforms/pkg/hitasapi"
	"github.com/goliatone/go-hitasforms/pkg/logging"
	"github.com/goliatone/go-hitasforms/pkg/openapi"
	"github.com/goliatone/go-hitasforms/pkg/render"
	"github.com/goliatone/go-hitasforms/pkg/renderers/html"
	"github.com/goliatone/go-hitasforms/pkg/renderers/tui"
)

func main() {
	configPath := flag.String("config", "", "YAML configuration file")
	formName := flag.String("form", "housing_company", "form to open")
	mode := flag.String("mode", "tui", "tui, html or serve")
	draftPath := flag.String("draft", "", "JSON file with the initial draft")
	recordID := flag.String("id", "", "record id; set to update instead of create")
	output := flag.String("output", "", "output file (stdout if empty)")
	list := flag.Bool("list", false, "list the available forms and exit")
	pretty := flag.Bool("pretty", false, "print the tui result as text instead of JSON")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	provider, err := gologger.NewProvider(cfg.Logger())
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	logger := logging.ModuleLogger(provider, "hitas-forms")

	forms, err := loadForms(ctx, cfg.Forms, logger)
	if err != nil {
		log.Fatalf("forms: %v", err)
	}
	if *list {
		for _, name := range forms.Names() {
			fmt.Printf("%s\t%s\n", name, forms.Source(name))
		}
		return
	}

	client := hitasapi.New(cfg.Client(), hitasapi.WithLogger(logging.ModuleLogger(provider, "hitasapi")))
	renderers, err := newRenderers(*pretty)
	if err != nil {
		log.Fatalf("renderers: %v", err)
	}

	switch strings.ToLower(*mode) {
	case "serve":
		err = serve(ctx, cfg, forms, renderers, client, logging.ModuleLogger(provider, "server"))
	case "html", "tui":
		err = runOnce(ctx, runRequest{
			mode:      strings.ToLower(*mode),
			forms:     forms,
			renderers: renderers,
			client:    client,
			logger:    logger,
			formName:  *formName,
			draft:     *draftPath,
			recordID:  *recordID,
			output:    *output,
			pretty:    *pretty,
		})
	default:
		err = fmt.Errorf("unknown mode %q", *mode)
	}
	if err != nil && !errors.Is(err, tui.ErrAborted) {
		log.Fatalf("hitas-forms: %v", err)
	}
}

// loadForms merges the builtin definitions with forms.dir and the request
// bodies of forms.openapi, later sources replacing earlier ones.
func loadForms(ctx context.Context, cfg config.FormsConfig, logger logging.Logger) (*formdef.Registry, error) {
	forms, err := formdef.Builtin()
	if err != nil {
		return nil, err
	}
	if cfg.Dir != "" {
		if err := forms.Load(os.DirFS(cfg.Dir), "."); err != nil {
			return nil, err
		}
	}
	if cfg.OpenAPI == "" {
		return forms, nil
	}

	raw, err := os.ReadFile(cfg.OpenAPI)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", cfg.OpenAPI, err)
	}
	ops, err := openapi.Operations(ctx, raw)
	if err != nil {
		return nil, err
	}
	deriver := openapi.NewDeriver()
	for _, op := range ops {
		schema, err := deriver.Schema(ctx, raw, op)
		if err != nil {
			return nil, fmt.Errorf("operation %s: %w", op, err)
		}
		if err := forms.Add(schema, cfg.OpenAPI+"#"+op); err != nil {
			return nil, err
		}
	}
	logger.Info("derived forms from openapi", "source", cfg.OpenAPI, "operations", len(ops))
	return forms, nil
}

func newRenderers(pretty bool) (*render.Registry, error) {
	format := tui.OutputFormatJSON
	if pretty {
		format = tui.OutputFormatPrettyText
	}
	htmlRenderer, err := html.New()
	if err != nil {
		return nil, err
	}
	renderers := render.NewRegistry()
	renderers.MustRegister(htmlRenderer)
	renderers.MustRegister(tui.New(tui.WithOutputFormat(format)))
	return renderers, nil
}

type runRequest struct {
	mode      string
	forms     *formdef.Registry
	renderers *render.Registry
	client    *hitasapi.Client
	logger    logging.Logger
	formName  string
	draft     string
	recordID  string
	output    string
	pretty    bool
}

func runOnce(ctx context.Context, req runRequest) error {
	schema, err := req.forms.Get(req.formName)
	if err != nil {
		return err
	}
	draft, err := readDraft(req.draft)
	if err != nil {
		return err
	}
	f, err := form.New(schema, draft,
		form.WithDispatcher(dispatcher.New(dispatcher.WithSearcher(req.client), dispatcher.WithLogger(req.logger))),
		form.WithLogger(req.logger),
	)
	if err != nil {
		return err
	}

	renderer, err := req.renderers.Get(req.mode)
	if err != nil {
		return err
	}
	var out []byte
	if renderer.Name() == html.Name {
		out, err = renderer.Render(ctx, f, render.RenderOptions{Method: http.MethodPost})
	} else {
		out, err = edit(ctx, f, renderer, req)
	}
	if err != nil {
		return err
	}

	if req.output == "" {
		fmt.Println(string(out))
		return nil
	}
	if err := os.WriteFile(req.output, out, 0o644); err != nil {
		return err
	}
	fmt.Printf("Written to %s\n", req.output)
	return nil
}

// edit prompts through the form, submits it and re-prompts the fields the
// backend rejects.
func edit(ctx context.Context, f *form.Form, renderer render.Renderer, req runRequest) ([]byte, error) {
	out, err := renderer.Render(ctx, f, render.RenderOptions{})
	if err != nil {
		return nil, err
	}
	for attempt := 0; attempt < tui.DefaultMaxAttempts; attempt++ {
		saved, err := req.client.Save(ctx, f.Resource(), req.recordID, f.Payload())
		serverErr, rejected := hitasapi.ServerError(err)
		if !rejected {
			if err != nil {
				return nil, err
			}
			f.ApplyServerError(nil)
			req.logger.Info("saved", "form", f.Name(), "resource", f.Resource())
			if req.pretty {
				return out, nil
			}
			return json.MarshalIndent(saved, "", "  ")
		}

		f.ApplyServerError(serverErr)
		for _, msg := range f.FormErrors() {
			fmt.Fprintln(os.Stderr, msg)
		}
		for _, invalid := range f.Invalid() {
			if out, err = renderer.Render(ctx, f, render.RenderOptions{Field: invalid.Path}); err != nil {
				return nil, err
			}
		}
	}
	return nil, tui.ErrTooManyAttempts
}

func readDraft(path string) (map[string]any, error) {
	if path == "" {
		return nil, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var draft map[string]any
	if err := json.Unmarshal(data, &draft); err != nil {
		return nil, fmt.Errorf("draft %s: %w", path, err)
	}
	return draft, nil
}

func serve(ctx context.Context, cfg *config.Config, forms *formdef.Registry, renderers *render.Registry, client *hitasapi.Client, logger logging.Logger) error {
	renderer, err := renderers.Get(html.Name)
	if err != nil {
		return err
	}
	srv, err := server.New(server.Options{
		Forms:      forms,
		Renderer:   renderer,
		Searcher:   client,
		Saver:      client,
		Logger:     logger,
		SessionTTL: cfg.Server.SessionTTL,
	})
	if err != nil {
		return err
	}
	defer srv.Close()

	httpServer := &http.Server{
		Addr:         cfg.Server.Address,
		Handler:      srv.Handler(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}
	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening", "address", cfg.Server.Address)
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		logger.Info("shutting down")
		return httpServer.Shutdown(context.Background())
	}
}
