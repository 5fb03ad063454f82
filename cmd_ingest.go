package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/leave-agent-poc-v1/server/internal/agent/model"
	"github.com/leave-agent-poc-v1/server/internal/agent/policyrag"
	"github.com/leave-agent-poc-v1/server/internal/backend/policy"
	"github.com/leave-agent-poc-v1/server/internal/hrapi"
)

var (
	ingestGroup  string
	ingestDoc    string
	ingestRemote bool
)

var ingestCmd = &cobra.Command{
	Use:   "ingest",
	Short: "Chunk, embed and store a policy document",
	Long: "Chunk, embed and store a markdown policy document for a policy group.\n" +
		"Without --doc the bundled " + policy.DefaultDocName + " is ingested.",
	Args: cobra.NoArgs,
	RunE: runIngestCommand,
}

func init() {
	ingestCmd.Flags().StringVar(&ingestGroup, "policy-group", policyrag.DefaultPolicyGroup, "policy group the chunks belong to")
	ingestCmd.Flags().StringVar(&ingestDoc, "doc", "", "markdown document path (defaults to the bundled annual leave policy)")
	ingestCmd.Flags().BoolVar(&ingestRemote, "remote", false, "ingest through the running backend at API_BASE instead of the local database")
	rootCmd.AddCommand(ingestCmd)
}

func runIngestCommand(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	var (
		res *model.PolicyIngestResult
		err error
	)
	if ingestRemote {
		res, err = hrapi.NewClient(appCfg.HRAPI).IngestPolicy(ctx, model.PolicyIngestRequest{
			PolicyGroup: ingestGroup,
			DocPath:     ingestDoc,
		})
	} else {
		if err := requireAPIKey(); err != nil {
			return err
		}
		st, openErr := openStore()
		if openErr != nil {
			return openErr
		}
		defer st.Close()

		svc, svcErr := newPolicyService(ctx, st)
		if svcErr != nil {
			return svcErr
		}
		res, err = svc.Ingest(ctx, ingestGroup, ingestDoc)
	}
	if err != nil {
		return err
	}

	out, err := json.MarshalIndent(res, "", "  ")
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), string(out))
	return nil
}
