// Command hoot streams a conversation with a model provider, running the
// built-in tools the model asks for.
//
//	hoot -provider anthropic "What's the weather in Lisbon for 3 days?"
//	hoot -config hoot.yaml            # interactive
//	hoot -publish "roll a die"        # also publish the stream to NATS
//	hoot -listen hoot.stream          # render a stream published elsewhere
//
// Without configuration the offline lorem provider answers.
package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"time"

	_ "github.com/joho/godotenv/autoload"

	"github.com/casualjim/hoot/config"
	"github.com/casualjim/hoot/conversation"
	"github.com/casualjim/hoot/internal/broker"
	"github.com/casualjim/hoot/pkg/natsx"
	"github.com/casualjim/hoot/pkg/slogx"
	"github.com/casualjim/hoot/provider"
	_ "github.com/casualjim/hoot/provider/anthropic"
	_ "github.com/casualjim/hoot/provider/lorem"
	_ "github.com/casualjim/hoot/provider/openai"
	"github.com/charmbracelet/glamour"
	"github.com/fatih/color"
	"github.com/k0kubun/pp/v3"
	"github.com/phsym/zeroslog"
	"github.com/rs/zerolog"
)

const (
	defaultSubject = "hoot.stream"

	// renderTimeout bounds how far the console may lag behind the stream.
	renderTimeout = 30 * time.Second
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	err := run(ctx, os.Args[1:], os.Stdin, os.Stdout, os.Stderr)
	if err == nil || errors.Is(err, flag.ErrHelp) {
		return
	}
	slog.Error("hoot failed", slogx.Error(err))
	stop()
	os.Exit(1)
}

type flags struct {
	config    string
	provider  string
	model     string
	system    string
	steps     int
	tools     string
	markdown  bool
	dump      bool
	publish   bool
	listen    string
	listTools bool
}

func parseFlags(args []string, stderr io.Writer) (*flags, []string, map[string]bool, error) {
	var f flags
	fs := flag.NewFlagSet("hoot", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVar(&f.config, "config", "", "YAML configuration file")
	fs.StringVar(&f.provider, "provider", "", "provider backend: "+strings.Join(provider.Backends(), ", "))
	fs.StringVar(&f.model, "model", "", "model name")
	fs.StringVar(&f.system, "system", "", "system prompt")
	fs.IntVar(&f.steps, "steps", 0, "maximum continuation steps after tool use")
	fs.StringVar(&f.tools, "tools", "", "comma separated glob patterns of the tools to offer")
	fs.BoolVar(&f.markdown, "markdown", false, "render answers as markdown")
	fs.BoolVar(&f.dump, "dump", false, "dump the collected result to stderr")
	fs.BoolVar(&f.publish, "publish", false, "publish the stream to NATS")
	fs.StringVar(&f.listen, "listen", "", "render the stream published on a NATS subject and exit")
	fs.BoolVar(&f.listTools, "list-tools", false, "list the built-in tools and exit")
	if err := fs.Parse(args); err != nil {
		return nil, nil, nil, err
	}
	set := map[string]bool{}
	fs.Visit(func(fl *flag.Flag) { set[fl.Name] = true })
	return &f, fs.Args(), set, nil
}

func (f *flags) apply(cfg *config.Config, set map[string]bool) error {
	if set["provider"] {
		cfg.Provider = f.provider
	}
	if set["model"] {
		cfg.Model = f.model
	}
	if set["system"] {
		cfg.System = f.system
	}
	if set["steps"] {
		cfg.MaxSteps = &f.steps
	}
	if set["tools"] {
		cfg.Tools = strings.Split(f.tools, ",")
	}
	return cfg.Validate()
}

func run(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) error {
	f, rest, set, err := parseFlags(args, stderr)
	if err != nil {
		return err
	}
	cfg, err := config.Load(f.config)
	if err != nil {
		return err
	}
	if err := f.apply(cfg, set); err != nil {
		return err
	}
	setupLogging(stderr, cfg.LogLevel())

	var md *glamour.TermRenderer
	if f.markdown {
		md, err = glamour.NewTermRenderer(glamour.WithAutoStyle())
		if err != nil {
			return fmt.Errorf("markdown renderer: %w", err)
		}
	}
	registry, err := builtinTools()
	if err != nil {
		return err
	}
	if f.listTools {
		for _, def := range registry.Definitions() {
			fmt.Fprintf(stdout, "%s\t%s\n", color.YellowString(def.Name), def.Description)
		}
		return nil
	}
	tools, err := cfg.SelectTools(registry)
	if err != nil {
		return err
	}

	subject := cfg.NATS.Subject
	if subject == "" {
		subject = defaultSubject
	}
	if f.listen != "" {
		return listen(ctx, cfg.NATS.URL, f.listen, newConsole(stdout, md))
	}

	// the console follows the stream through an in-process topic
	thread := conversation.New()
	turns := broker.Local().WithSlowSubscriberTimeout(renderTimeout).Topic(ctx, thread.ID().String())
	tty := &screen{topic: turns, w: stdout, md: md}

	options := []provider.Option{provider.WithHook(broker.NewPublisher(turns))}
	if cfg.LogLevel() <= zerolog.DebugLevel {
		options = append(options, provider.WithHook(provider.LoggingHook()))
	}
	if f.publish {
		nc, err := natsx.NewClient(cfg.NATS.URL)
		if err != nil {
			return fmt.Errorf("connect to nats: %w", err)
		}
		defer nc.Close()
		options = append(options, provider.WithHook(broker.NewPublisher(broker.NATS(nc).Topic(ctx, subject))))
		slog.Info("publishing stream", "subject", subject)
	}

	engine, err := cfg.Open(options...)
	if err != nil {
		return err
	}

	if len(rest) > 0 {
		return tty.render(ctx, func() error {
			return ask(ctx, engine, thread, tools, strings.Join(rest, " "), f.dump, stderr)
		})
	}

	scanner := bufio.NewScanner(stdin)
	for {
		fmt.Fprintf(stdout, "%s: ", color.CyanString("User"))
		if !scanner.Scan() {
			fmt.Fprintln(stdout)
			return scanner.Err()
		}
		input := strings.TrimSpace(scanner.Text())
		if input == "" {
			continue
		}
		if strings.EqualFold(input, "exit") {
			return nil
		}
		// failures were rendered; the conversation goes on
		_ = tty.render(ctx, func() error {
			return ask(ctx, engine, thread, tools, input, f.dump, stderr)
		})
		if ctx.Err() != nil {
			return ctx.Err()
		}
	}
}

func ask(ctx context.Context, engine *provider.Engine, thread *conversation.Thread, tools provider.ToolResolver, prompt string, dump bool, stderr io.Writer) error {
	thread.Append(conversation.User(prompt))
	res, err := provider.Collect(engine.Stream(ctx, thread, tools))
	if dump {
		pp.Fprintln(stderr, res)
	}
	if err != nil {
		return err
	}
	slog.Debug("answer complete", "turns", res.Turns, "input_tokens", res.Usage.InputTokens, "output_tokens", res.Usage.OutputTokens)
	return nil
}

// screen prints the turns published on topic.
type screen struct {
	topic broker.Topic
	w     io.Writer
	md    *glamour.TermRenderer
}

// render subscribes a fresh console, runs fn and returns once the console
// printed the outcome of the stream.
func (t *screen) render(ctx context.Context, fn func() error) error {
	out := newConsole(t.w, t.md)
	sub, err := t.topic.Subscribe(ctx, out)
	if err != nil {
		return err
	}
	defer sub.Unsubscribe()

	err = fn()
	select {
	case <-out.Done():
	case <-ctx.Done():
	case <-time.After(renderTimeout):
		slog.Warn("console fell behind the stream")
	}
	return err
}

// listen renders one stream published on subject.
func listen(ctx context.Context, url, subject string, out *console) error {
	nc, err := natsx.NewClient(url)
	if err != nil {
		return fmt.Errorf("connect to nats: %w", err)
	}
	defer nc.Close()

	sub, err := broker.NATS(nc).Topic(ctx, subject).Subscribe(ctx, out)
	if err != nil {
		return err
	}
	defer sub.Unsubscribe()
	slog.Info("listening", "subject", subject)

	select {
	case <-out.Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func setupLogging(w io.Writer, level zerolog.Level) {
	output := zerolog.ConsoleWriter{Out: w, TimeFormat: time.Stamp}
	log := zerolog.New(output).Level(level).With().Timestamp().Logger()
	slog.SetDefault(slog.New(
		zeroslog.NewHandler(log, &zeroslog.HandlerOptions{Level: slogLevel(level)}),
	))
}

func slogLevel(level zerolog.Level) slog.Level {
	switch level {
	case zerolog.TraceLevel, zerolog.DebugLevel:
		return slog.LevelDebug
	case zerolog.InfoLevel, zerolog.NoLevel:
		return slog.LevelInfo
	case zerolog.WarnLevel:
		return slog.LevelWarn
	case zerolog.Disabled:
		return slog.LevelError + 4
	default:
		return slog.LevelError
	}
}
