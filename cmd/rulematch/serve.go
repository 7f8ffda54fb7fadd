package main

import (
	"fmt"
	"net"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/danielpatrickdp/rulecard-match/internal/eval"
	"github.com/danielpatrickdp/rulecard-match/internal/match"
	"github.com/danielpatrickdp/rulecard-match/internal/rpc"
	"github.com/danielpatrickdp/rulecard-match/internal/sanitize"
	"github.com/danielpatrickdp/rulecard-match/internal/service"
	"github.com/danielpatrickdp/rulecard-match/internal/store"
)

var serveRaw bool

// serveCmd runs the gRPC MatchService
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve MatchService over gRPC",
	Long: `Loads the corpus, builds the index once and serves
rulematch.v1.MatchService/Match plus the standard gRPC health service.
Every request is recorded with its per-section provenance.

Card ids are scrubbed from returned text unless --raw is set.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().BoolVar(&serveRaw, "raw", false, "return reports without scrubbing card ids")
}

func runServe(cmd *cobra.Command, args []string) error {
	cards, idx, err := loadCorpus()
	if err != nil {
		return err
	}
	engine, err := match.NewEngine(idx, cfg.Match, logger.Named("match"))
	if err != nil {
		return err
	}

	st, err := store.NewStore(cfg.Store.Path)
	if err != nil {
		return fmt.Errorf("failed to open store: %w", err)
	}
	defer st.Close()

	svc := service.New(engine, eval.NewEvalHarness(cfg.Eval),
		service.WithRecorder(st),
		service.WithBatchLimit(cfg.Server.BatchLimit),
		service.WithLogger(logger.Named("service")),
	)

	var scrubber *sanitize.Scrubber
	if !serveRaw {
		scrubber = sanitize.NewScrubber(cardIDs(cards))
	}
	gs, hs := rpc.NewGRPCServer(rpc.NewServer(svc, scrubber, logger.Named("rpc")))

	lis, err := net.Listen("tcp", cfg.Server.Addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", cfg.Server.Addr, err)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() { errCh <- gs.Serve(lis) }()
	logger.Info("rulematch serving",
		zap.String("addr", lis.Addr().String()),
		zap.String("db", cfg.Store.Path),
		zap.Int("cards", idx.Len()),
	)

	select {
	case <-ctx.Done():
		logger.Info("shutting down")
		hs.SetServingStatus(rpc.ServiceName, healthpb.HealthCheckResponse_NOT_SERVING)
		gs.GracefulStop()
		return nil
	case err := <-errCh:
		return fmt.Errorf("serve: %w", err)
	}
}
