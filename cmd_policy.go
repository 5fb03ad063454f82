package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/leave-agent-poc-v1/server/internal/agent/graph/nodes"
	"github.com/leave-agent-poc-v1/server/internal/agent/policyrag"
	"github.com/leave-agent-poc-v1/server/internal/hrapi"
	"github.com/leave-agent-poc-v1/server/internal/turnlog"
)

var (
	policyQuery string
	policyGroup string
	policyTopK  int
	policyDebug bool
)

var policyRagCmd = &cobra.Command{
	Use:   "policy-rag",
	Short: "Extract a structured leave policy determination for a question",
	Args:  cobra.NoArgs,
	RunE:  runPolicyRagCommand,
}

func init() {
	policyRagCmd.Flags().StringVar(&policyQuery, "query", policyrag.DefaultQuery, "policy question")
	policyRagCmd.Flags().StringVar(&policyGroup, "policy-group", policyrag.DefaultPolicyGroup, "policy group to search")
	policyRagCmd.Flags().IntVar(&policyTopK, "top-k", policyrag.DefaultTopK, "number of chunks to retrieve (1-10)")
	policyRagCmd.Flags().BoolVar(&policyDebug, "debug-log", false, "write the prompt and raw result to a markdown log in CONVERSATION_LOG_DIR")
	rootCmd.AddCommand(policyRagCmd)
}

func runPolicyRagCommand(cmd *cobra.Command, _ []string) error {
	if err := requireAPIKey(); err != nil {
		return err
	}
	ctx := cmd.Context()

	client, err := nodes.NewGenaiClient(ctx, appCfg.APIKey, appCfg.BaseURL)
	if err != nil {
		return err
	}

	var opts []policyrag.Option
	if policyDebug {
		path := turnlog.SessionPath(appCfg.Conversation.LogDir, "policy_rag", time.Now())
		debugLog := turnlog.New(turnlog.NewFileSink(path))
		opts = append(opts, policyrag.WithDebugHook(debugLog.Text))
		fmt.Fprintf(cmd.ErrOrStderr(), "[Debug Log] %s\n", path)
	}

	extractor := policyrag.NewExtractor(
		hrapi.NewClient(appCfg.HRAPI),
		policyrag.NewGeminiGenerator(client, appCfg.Extraction),
		opts...,
	)

	res, err := extractor.Extract(ctx, policyQuery, policyGroup, policyTopK)
	if err != nil {
		return err
	}

	out, err := policyrag.Pretty(res)
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), out)
	return nil
}
