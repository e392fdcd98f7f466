// Command auditchat runs a conversational audit session over stdin/stdout.
// Each line is one user turn; the orchestrator replies, records any audit
// the model requests, and persists the exchange.
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
	"syscall"

	"github.com/junctionhq/auditline/internal/config"
	"github.com/junctionhq/auditline/internal/store"
	"github.com/junctionhq/auditline/pkg/audit"
	"github.com/junctionhq/auditline/pkg/chat"
	"github.com/junctionhq/auditline/pkg/core"
	"github.com/junctionhq/auditline/pkg/core/providers/openai"
	"github.com/junctionhq/auditline/pkg/core/types"
)

type options struct {
	session     string
	create      bool
	org         int64
	location    int64
	auditor     int64
	auditorName string
	image       string
	lat         float64
	lng         float64
	hasLocation bool
}

func main() {
	os.Exit(runMain())
}

func runMain() int {
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	var opt options
	flag.StringVar(&opt.session, "session", "", "audit session reference (uuid)")
	flag.BoolVar(&opt.create, "new", false, "create a new audit session")
	flag.Int64Var(&opt.org, "org", 0, "organization id (with -new)")
	flag.Int64Var(&opt.location, "location", 0, "location id (with -new)")
	flag.Int64Var(&opt.auditor, "auditor", 0, "auditor id (with -new)")
	flag.StringVar(&opt.auditorName, "auditor-name", "", "auditor display name (with -new)")
	flag.StringVar(&opt.image, "image", "", "image URL to attach to the next turn")
	flag.Float64Var(&opt.lat, "lat", 0, "turn latitude")
	flag.Float64Var(&opt.lng, "lng", 0, "turn longitude")
	flag.Parse()
	opt.hasLocation = flagWasSet("lat") && flagWasSet("lng")

	cfg, err := config.Load()
	if err != nil {
		logger.Error("load config", "error", err)
		return 1
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.Database.Migrate {
		if err := store.Migrate(ctx, cfg.Database.DSN); err != nil {
			logger.Error("migrate database", "error", err)
			return 1
		}
	}

	pool, err := store.NewPool(ctx, cfg.Database.DSN)
	if err != nil {
		logger.Error("connect database", "error", err)
		return 1
	}
	defer pool.Close()
	st := store.New(pool)

	sessionRef, err := resolveSessionRef(ctx, st, opt)
	if err != nil {
		logger.Error("resolve session", "error", err)
		return 1
	}

	client := openai.New(cfg.OpenAI.APIKey)
	orchestrator := chat.NewOrchestrator(
		chat.NewAssembler(st, st),
		audit.NewCommitter(st),
		client,
		st,
		chat.WithModel(cfg.OpenAI.ChatModel),
		chat.WithMaxTokens(cfg.OpenAI.MaxTokens),
		chat.WithContextBuilder(chat.NewContextBuilder(st)),
	)

	if err := orchestrator.PrimeSession(ctx, sessionRef); err != nil {
		logger.Error("prime session", "error", err)
		return 1
	}

	fmt.Printf("session %s ready; type a message, ctrl-d to quit\n", sessionRef)
	return chatLoop(ctx, logger, orchestrator, sessionRef, opt)
}

func chatLoop(ctx context.Context, logger *slog.Logger, orchestrator *chat.Orchestrator, sessionRef string, opt options) int {
	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			break
		}
		text := strings.TrimSpace(scanner.Text())
		if text == "" {
			continue
		}

		input := chat.Input{Text: text, ImageURL: opt.image}
		if opt.hasLocation {
			input.Location = &chat.Geolocation{Latitude: opt.lat, Longitude: opt.lng}
		}
		// Attachments apply to the first turn only.
		opt.image = ""
		opt.hasLocation = false

		result, err := orchestrator.RunTurn(ctx, sessionRef, input)
		if err != nil {
			logger.Error("turn failed", "error", err)
			if result == nil {
				continue
			}
		}
		fmt.Println(result.Reply)
		if result.ItemAuditID != 0 {
			logger.Info("item audit recorded", "item_audit_id", result.ItemAuditID)
		}
	}
	if err := scanner.Err(); err != nil && !errors.Is(err, io.EOF) {
		logger.Error("read stdin", "error", err)
		return 1
	}
	return 0
}

func resolveSessionRef(ctx context.Context, st *store.Store, opt options) (string, error) {
	if opt.create {
		if opt.org == 0 || opt.location == 0 || opt.auditor == 0 {
			return "", core.NewValidationError("-new requires -org, -location and -auditor", "")
		}
		session, err := st.CreateAuditSession(ctx, types.AuditSession{
			OrganizationID: opt.org,
			LocationID:     opt.location,
			AuditorID:      opt.auditor,
			AuditorName:    opt.auditorName,
		})
		if err != nil {
			return "", err
		}
		return session.UUID, nil
	}
	if opt.session == "" {
		return "", core.NewValidationError("-session or -new is required", "")
	}
	return opt.session, nil
}

func flagWasSet(name string) bool {
	set := false
	flag.Visit(func(f *flag.Flag) {
		if f.Name == name {
			set = true
		}
	})
	return set
}
