package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/leave-agent-poc-v1/server/internal/agent/graph/nodes"
	"github.com/leave-agent-poc-v1/server/internal/backend/policy"
	"github.com/leave-agent-poc-v1/server/internal/backend/server"
	"github.com/leave-agent-poc-v1/server/internal/backend/store"
	logx "github.com/leave-agent-poc-v1/server/pkg/logger"
)

var serveSeed bool

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the demo HR backend (directory, balances, cases, policy RAG)",
	Args:  cobra.NoArgs,
	RunE:  runServeCommand,
}

func init() {
	serveCmd.Flags().BoolVar(&serveSeed, "seed", true, "insert demo employees and balances into empty tables on start")
	rootCmd.AddCommand(serveCmd)
}

func openStore() (*store.SQLiteStore, error) {
	st, err := store.NewSQLiteStore(appCfg.Backend.DBPath)
	if err != nil {
		return nil, fmt.Errorf("open HR store %s: %w", appCfg.Backend.DBPath, err)
	}
	return st, nil
}

// newPolicyService embeds with Gemini. Without an API key the service is
// still built, and policy calls fail when they reach the embedder.
func newPolicyService(ctx context.Context, st *store.SQLiteStore) (*policy.Service, error) {
	if appCfg.APIKey == "" {
		logx.Warn().Msg("GEMINI_API_KEY not set, policy ingest and retrieve will fail")
		return policy.NewService(st, missingKeyEmbedder{}), nil
	}
	client, err := nodes.NewGenaiClient(ctx, appCfg.APIKey, appCfg.BaseURL)
	if err != nil {
		return nil, err
	}
	return policy.NewService(st, policy.NewGeminiEmbedder(client, appCfg.Backend.Embedder)), nil
}

type missingKeyEmbedder struct{}

func (missingKeyEmbedder) EmbedDocuments(context.Context, []string) ([][]float32, error) {
	return nil, requireAPIKey()
}

func (missingKeyEmbedder) EmbedQuery(context.Context, string) ([]float32, error) {
	return nil, requireAPIKey()
}

func runServeCommand(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	st, err := openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	if serveSeed {
		res, err := st.Seed(ctx)
		if err != nil {
			return err
		}
		logx.Info().Int("employees", res.Employees).Int("balances", res.Balances).Msg("demo data seeded")
	}

	policies, err := newPolicyService(ctx, st)
	if err != nil {
		return err
	}

	srv := server.New(appCfg.Backend.Server, st, policies)
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	return srv.Shutdown(context.Background())
}
