package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/joho/godotenv"

	"ytai/internal/config"
	"ytai/internal/domain"
	"ytai/internal/library"
	"ytai/internal/logging"
	"ytai/internal/service"
	"ytai/internal/store"
	"ytai/internal/tui"
	"ytai/internal/youtube"
)

const usage = `Usage: ytai [--config=config.yaml] <command> [flags] [args]

Commands:
  info <url>                     show title and channel of a video
  summarize [flags] <url>        summarize a video or answer a custom instruction
  process [flags] <url>          index the transcript of a video for questions
  ask [flags] <video> <question> answer one question about a processed video
  chat <video>                   open the interactive chat about a processed video
  library [flags]                list, export or delete saved summaries and answers
  models [flags]                 list available models or pull one into ollama

<video> is a YouTube url or video id.`

func main() {
	_ = godotenv.Load()

	var cfgPath string
	flag.StringVar(&cfgPath, "config", "", "Path to YAML config file (optional; uses ~/.config/ytai/config.yaml if not provided)")
	flag.Usage = func() { fmt.Fprintln(os.Stderr, usage) }
	flag.Parse()
	args := flag.Args()
	if len(args) == 0 {
		flag.Usage()
		os.Exit(1)
	}

	var cfg *config.AppConfig
	var err error
	if cfgPath == "" {
		cfg, _, err = config.LoadDefault()
	} else {
		cfg, err = config.Load(cfgPath)
	}
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	if err := cfg.ApplyEnv(os.LookupEnv); err != nil {
		log.Fatalf("invalid configuration: %v", err)
	}
	if cfg.Production() {
		cfg.Log.Format = "json"
	}
	logger, err := logging.New(logging.Config{Level: cfg.Log.Level, Format: cfg.Log.Format})
	if err != nil {
		log.Fatalf("invalid log configuration: %v", err)
	}
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	a, err := newApp(ctx, cfg, logger)
	if err != nil {
		log.Fatalf("failed to start: %v", err)
	}
	defer a.Close()

	cmd, rest := args[0], args[1:]
	var runErr error
	switch cmd {
	case "info":
		runErr = a.info(ctx, rest)
	case "summarize":
		runErr = a.summarize(ctx, rest)
	case "process":
		runErr = a.process(ctx, rest)
	case "ask":
		runErr = a.ask(ctx, rest)
	case "chat":
		runErr = a.chat(ctx, rest)
	case "library":
		runErr = a.library(ctx, rest)
	case "models":
		runErr = a.models(ctx, rest)
	default:
		flag.Usage()
		os.Exit(1)
	}
	if runErr != nil {
		logger.Error("command failed",
			slog.String("command", cmd),
			slog.String("model", a.session.Model),
			slog.String("args", strings.Join(rest, " ")),
			slog.String("error", runErr.Error()),
		)
		fmt.Fprintln(os.Stderr, service.UserMessage(runErr))
		a.Close()
		os.Exit(1)
	}
}

var errUsage = fmt.Errorf("%w: wrong arguments, run ytai without arguments for help", domain.ErrInvalidInput)

// videoID accepts a url or a bare 11 character id.
func videoID(arg string) (string, error) {
	if id, err := youtube.ExtractVideoID(arg); err == nil {
		return id, nil
	}
	if len(arg) == 11 && !strings.ContainsAny(arg, "/.?=&") {
		return arg, nil
	}
	return "", fmt.Errorf("%w: %q is neither a YouTube url nor a video id", domain.ErrInvalidInput, arg)
}

func (a *app) info(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return errUsage
	}
	meta, err := a.svc.VideoInfo(ctx, args[0])
	if err != nil {
		return err
	}
	fmt.Printf("%s\n%s (%s)\n", meta.Title, meta.Channel, meta.Provider)
	return nil
}

func (a *app) summarize(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("summarize", flag.ContinueOnError)
	instruction := fs.String("instruction", "", "custom instruction instead of the default summary")
	save := fs.Bool("save", false, "save the summary to the library")
	download := fs.Bool("download", false, "write the summary as markdown into the output directory")
	if err := fs.Parse(args); err != nil || fs.NArg() != 1 {
		return errUsage
	}
	url := fs.Arg(0)
	out, err := a.svc.Summarize(ctx, a.session, url, *instruction)
	if err != nil {
		return err
	}
	fmt.Println(out)

	if *save {
		// Library entries belong to a stored video.
		res, err := a.svc.Process(ctx, a.session, url, service.ProcessOptions{ChunkSize: a.cfg.Chunker.ChunkSize})
		if err != nil {
			return err
		}
		if _, err := a.svc.SaveSummary(ctx, res.Video.YouTubeID, out); err != nil {
			return err
		}
		fmt.Fprintln(os.Stderr, "Summary saved to the library.")
	}
	if *download {
		meta, err := a.svc.VideoInfo(ctx, url)
		if err != nil {
			return err
		}
		path, err := library.SaveFile(a.cfg.OutputDir, meta.Title, out, library.KindMarkdown)
		if err != nil {
			return err
		}
		fmt.Fprintln(os.Stderr, "Saved", path)
	}
	return nil
}

func (a *app) process(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("process", flag.ContinueOnError)
	chunkSize := fs.Int("chunk-size", a.cfg.Chunker.ChunkSize, "chunk size in tokens (1024, 512, 256 or 128)")
	preprocess := fs.Bool("preprocess", a.cfg.Chunker.Preprocess, "clean up the transcript with the chat model before indexing")
	if err := fs.Parse(args); err != nil || fs.NArg() != 1 {
		return errUsage
	}
	res, err := a.svc.Process(ctx, a.session, fs.Arg(0), service.ProcessOptions{ChunkSize: *chunkSize, Preprocess: *preprocess})
	if err != nil {
		return err
	}
	if res.Chunks == 0 {
		fmt.Printf("%q was already processed (chunk size %d).\n", res.Video.Title, res.Transcript.ChunkSize)
		return nil
	}
	fmt.Printf("Processed %q into %d chunks. You can now ask questions with: ytai chat %s\n",
		res.Video.Title, res.Chunks, res.Video.YouTubeID)
	for _, h := range res.Highlights {
		fmt.Println("  -", h)
	}
	return nil
}

func (a *app) ask(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("ask", flag.ContinueOnError)
	save := fs.Bool("save", false, "save the answer to the library")
	sources := fs.Bool("sources", false, "print the excerpts the answer is based on")
	if err := fs.Parse(args); err != nil || fs.NArg() < 2 {
		return errUsage
	}
	id, err := videoID(fs.Arg(0))
	if err != nil {
		return err
	}
	question := strings.Join(fs.Args()[1:], " ")
	ans, err := a.svc.Ask(ctx, a.session, id, question)
	if err != nil {
		return err
	}
	fmt.Println(ans.Text)
	if *sources {
		for i, s := range ans.Sources {
			fmt.Printf("\n--- excerpt %d (score %.3f)\n%s\n", i+1, s.Score, s.Text)
		}
	}
	if *save {
		if _, err := a.svc.SaveAnswer(ctx, id, question, ans.Text); err != nil {
			return err
		}
		fmt.Fprintln(os.Stderr, "Answer saved to the library.")
	}
	return nil
}

func (a *app) chat(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return errUsage
	}
	id, err := videoID(args[0])
	if err != nil {
		return err
	}
	video, err := a.db.VideoByYouTubeID(ctx, id)
	if err != nil {
		return err
	}
	intro := fmt.Sprintf("%s · %s · %s", video.Channel, a.session.Provider, a.session.Model)
	m := tui.New(ctx, a.svc, a.session, video, intro)
	_, err = tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx)).Run()
	return err
}

func (a *app) library(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("library", flag.ContinueOnError)
	kind := fs.String("type", "", "S for summaries, A for answers")
	channel := fs.String("channel", "", "only entries of this channel")
	title := fs.String("title", "", "only entries of the video with this title")
	export := fs.Bool("export", false, "write the matching answers as one markdown file into the output directory")
	deleteEntry := fs.Int64("delete", 0, "delete the library entry with this id")
	deleteVideo := fs.String("delete-video", "", "delete a video with its transcript, entries and index")
	if err := fs.Parse(args); err != nil || fs.NArg() != 0 {
		return errUsage
	}

	switch {
	case *deleteEntry != 0:
		return a.svc.DeleteEntry(ctx, *deleteEntry)
	case *deleteVideo != "":
		id, err := videoID(*deleteVideo)
		if err != nil {
			return err
		}
		return a.svc.DeleteVideo(ctx, id)
	}

	filter := store.LibraryFilter{Type: domain.EntryType(strings.ToUpper(*kind)), Channel: *channel, VideoTitle: *title}
	if *export {
		filter.Type = domain.EntryAnswer
	}
	entries, err := a.svc.Library(ctx, filter)
	if err != nil {
		return err
	}
	if *export {
		name := *title
		if name == "" {
			name = "answers"
		}
		path, err := library.SaveFile(a.cfg.OutputDir, name, library.ExportAnswers(entries), library.KindMarkdown)
		if err != nil {
			return err
		}
		fmt.Println("Exported", len(entries), "answers to", path)
		return nil
	}
	for _, e := range entries {
		head := e.VideoTitle
		if e.Type == domain.EntryAnswer {
			head += " · " + e.Question
		}
		fmt.Printf("[%d] %s  %s  %s\n%s\n\n", e.ID, e.Type, e.CreatedAt.Format("2006-01-02"), head, e.Text)
	}
	return nil
}

func (a *app) models(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("models", flag.ContinueOnError)
	provider := fs.String("provider", a.cfg.LLM.Provider, "openai, ollama or gemini")
	kind := fs.String("kind", string(domain.ModelChat), "chat or embedding")
	pull := fs.String("pull", "", "download a model into the local ollama server")
	if err := fs.Parse(args); err != nil || fs.NArg() != 0 {
		return errUsage
	}
	if *pull != "" {
		if !a.ollama.Available(ctx) {
			return domain.ProviderErrorf("ollama is not reachable at %s", a.cfg.Ollama.URL)
		}
		if err := a.ollama.Pull(ctx, *pull); err != nil {
			return err
		}
		fmt.Println("Pulled", *pull)
		return nil
	}
	ids, err := a.svc.AvailableModels(ctx, *provider, domain.ModelKind(*kind))
	if err != nil {
		return err
	}
	if len(ids) == 0 {
		return errors.New("no models available for " + *provider)
	}
	for i, id := range ids {
		fmt.Println(strconv.Itoa(i+1)+".", id)
	}
	return nil
}
