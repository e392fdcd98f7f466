// Command auditvoice runs a duplex voice audit session against the realtime
// API. Microphone audio is read as raw 16-bit mono PCM from -in and
// assistant audio is written as raw PCM to -out, so any capture pipeline
// (arecord, ffmpeg, a FIFO) can feed it.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/junctionhq/auditline/internal/config"
	"github.com/junctionhq/auditline/internal/store"
	"github.com/junctionhq/auditline/pkg/audit"
	"github.com/junctionhq/auditline/pkg/core"
	"github.com/junctionhq/auditline/pkg/live"
	"github.com/junctionhq/auditline/pkg/realtime"
)

type options struct {
	session string
	in      string
	out     string
	mute    bool
}

func main() {
	os.Exit(runMain())
}

func runMain() int {
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	var opt options
	flag.StringVar(&opt.session, "session", "", "audit session reference (uuid); required")
	flag.StringVar(&opt.in, "in", "-", "raw PCM16 input path, - for stdin")
	flag.StringVar(&opt.out, "out", "-", "raw PCM16 output path, - for stdout")
	flag.BoolVar(&opt.mute, "mute", false, "start with capture muted")
	flag.Parse()

	if opt.session == "" {
		logger.Error("missing -session")
		return 1
	}

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

	session, err := st.GetAuditSessionByUUID(ctx, opt.session)
	if err != nil {
		logger.Error("load session", "error", err)
		return 1
	}
	if session == nil {
		logger.Error("session not found", "session", opt.session)
		return 1
	}

	history, err := st.ListTurns(ctx, session.ID, false)
	if err != nil {
		logger.Error("load history", "error", err)
		return 1
	}

	capture, err := openCapture(opt.in, cfg.Voice.SampleRate)
	if err != nil {
		logger.Error("open capture", "error", err)
		return 1
	}
	playback, err := openPlayback(opt.out)
	if err != nil {
		logger.Error("open playback", "error", err)
		return 1
	}

	manager := live.NewManager(
		live.SessionConfig{
			SessionID:          session.ID,
			History:            history,
			Voice:              cfg.Voice.Voice,
			TranscriptionModel: cfg.Voice.TranscriptionModel,
			SampleRate:         cfg.Voice.SampleRate,
		},
		func(ctx context.Context) (live.Transport, error) {
			return realtime.Dial(ctx, realtime.DialOptions{
				APIKey: cfg.OpenAI.APIKey,
				Model:  cfg.Voice.Model,
			})
		},
		live.Deps{
			Committer: audit.NewCommitter(st),
			Turns:     st,
			Capture:   capture,
			Playback:  playback,
		},
	)

	if opt.mute {
		manager.Mute()
	}
	if err := manager.Connect(ctx); err != nil {
		logger.Error("connect realtime", "error", err)
		return 1
	}
	defer manager.Close()

	go func() {
		<-ctx.Done()
		manager.Close()
	}()

	logger.Info("voice session started", "session", opt.session)
	for event := range manager.Events() {
		switch e := event.(type) {
		case *live.UserTranscriptEvent:
			fmt.Fprintf(os.Stderr, "you: %s\n", e.Transcript)
		case *live.AssistantTranscriptEvent:
			fmt.Fprintf(os.Stderr, "assistant: %s\n", e.Transcript)
		case *live.AuditCommittedEvent:
			logger.Info("item audit recorded", "item_audit_id", e.ItemAuditID, "duplicate", e.Duplicate)
		case *live.InterruptedEvent:
			logger.Info("assistant interrupted", "item", e.ItemID, "heard_ms", e.AudioEndMS)
		case *live.ErrorEvent:
			if core.IsType(e.Err, core.ErrTransport) {
				logger.Error("transport error", "error", e.Err)
			} else {
				logger.Warn("session error", "error", e.Err)
			}
		case *live.SessionClosedEvent:
			logger.Info("session closed")
		}
	}
	return 0
}
