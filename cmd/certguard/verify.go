package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/gabriel-vasile/mimetype"
	"github.com/spf13/cobra"

	"certguard/internal/platform/config"
	"certguard/internal/session"
	"certguard/internal/verification"
)

func verifyCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "verify <file>...",
		Short: "Verify documents offline and print the outcomes as JSON",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			log := commonRun()
			return verifyRun(cmd.Context(), globalConfig, log, cmd.OutOrStdout(), args)
		},
	}
}

type verifyResult struct {
	File    string                `json:"file"`
	Outcome *verification.Outcome `json:"outcome,omitempty"`
	Failure *session.Failure      `json:"failure,omitempty"`
}

// verifyRun pushes each file through the session pipeline in turn, without
// stage latency.
func verifyRun(ctx context.Context, cfg config.Config, log *slog.Logger, out io.Writer, paths []string) error {
	p, err := buildPipeline(ctx, cfg, log)
	if err != nil {
		return err
	}

	sc := cfg.SessionConfig()
	sc.StageDelayMin, sc.StageDelayMax = 0, 0
	tracker := session.NewTracker(len(paths))
	mgr := session.NewManager(sc, p.provider, p.ledger, p.records,
		session.WithLogger(log),
		session.WithSink(tracker),
	)
	defer func() { _ = mgr.Close(context.WithoutCancel(ctx)) }()

	results := make([]verifyResult, 0, len(paths))
	for _, path := range paths {
		res, err := verifyFile(ctx, mgr, tracker, path)
		if err != nil {
			return err
		}
		results = append(results, res)
	}

	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(results)
}

func verifyFile(ctx context.Context, mgr *session.Manager, tracker *session.Tracker, path string) (verifyResult, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return verifyResult{}, fmt.Errorf("read %s: %w", path, err)
	}
	res := verifyResult{File: path}

	sess, err := mgr.Submit(ctx, session.File{
		Name:     filepath.Base(path),
		Size:     int64(len(data)),
		MIMEType: mimetype.Detect(data).String(),
		Bytes:    data,
	})
	if err != nil {
		res.Failure = session.FailureOf(err)
		return res, nil
	}

	view, err := tracker.Wait(ctx, sess.Token)
	if err != nil {
		return verifyResult{}, fmt.Errorf("wait for %s: %w", path, err)
	}
	res.Outcome = view.Outcome
	res.Failure = view.Failure
	return res, nil
}
