package main

import (
	"context"
	"encoding/json"
	"os"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/resolve-cli/internal/ingest"
	"github.com/sells-group/resolve-cli/internal/merge"
	"github.com/sells-group/resolve-cli/internal/model"
	"github.com/sells-group/resolve-cli/internal/resilience"
	"github.com/sells-group/resolve-cli/internal/store"
)

// slugNamespace seeds deterministic entity identifiers so repeated runs
// over the same batch upsert the same rows.
var slugNamespace = uuid.MustParse("8f7d9a52-4c1e-4b7a-9a83-6f2f6de11a3b")

var mergeUpsert bool

var mergeCmd = &cobra.Command{
	Use:   "merge <batch.jsonl>",
	Short: "Match and merge a batch of source records",
	Long:  "Reads schema-normalized source records (one JSON object per line), groups records describing the same entity, and resolves each group into one canonical record. Prints results as JSONL, or upserts them with --upsert.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		records, err := ingest.ReadBatchFile(args[0])
		if err != nil {
			return err
		}
		if len(records) == 0 {
			zap.L().Info("merge: empty batch, nothing to do")
			return nil
		}

		env, err := initEngine(cfg)
		if err != nil {
			return err
		}

		groups := env.matcher.Match(records)
		entities, err := merge.All(ctx, env.coordinator, groups, env.workers)
		if err != nil {
			return err
		}

		zap.L().Info("merge: batch complete",
			zap.Int("records", len(records)),
			zap.Int("entities", len(entities)),
		)

		if !mergeUpsert {
			enc := json.NewEncoder(os.Stdout)
			for _, ent := range entities {
				if err := enc.Encode(ent); err != nil {
					return eris.Wrap(err, "merge: encode entity")
				}
			}
			return nil
		}

		st, err := store.New(ctx, cfg.Store)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		if err := st.Migrate(ctx); err != nil {
			return err
		}

		retryCfg := resilience.DefaultRetryConfig()
		retryCfg.OnRetry = resilience.RetryLogger("upsert_entity")

		for _, ent := range entities {
			slug := slugFor(ent)
			row := &store.Entity{
				ID:         uuid.NewSHA1(slugNamespace, []byte("id:"+slug)).String(),
				Slug:       slug,
				EntityType: ent.EntityType,
				Merged:     *ent,
			}
			err := resilience.Do(ctx, retryCfg, func(ctx context.Context) error {
				return st.UpsertEntity(ctx, row)
			})
			if err != nil {
				return err
			}
		}

		zap.L().Info("merge: upsert complete", zap.Int("entities", len(entities)))
		return nil
	},
}

// slugFor derives a stable identifier for an entity. A slug field supplied
// by the extraction stage wins; otherwise the identifier is a SHA1 UUID of
// the canonical field encoding, which is deterministic for a given merge
// output.
func slugFor(ent *model.MergedEntity) string {
	if s, ok := ent.Fields["slug"].(string); ok && s != "" {
		return s
	}
	payload, err := json.Marshal(map[string]any{
		"entity_type": ent.EntityType,
		"fields":      ent.Fields,
	})
	if err != nil {
		payload = nil
	}
	return uuid.NewSHA1(slugNamespace, payload).String()
}

func init() {
	mergeCmd.Flags().BoolVar(&mergeUpsert, "upsert", false, "upsert merged entities into the configured store instead of printing")
	rootCmd.AddCommand(mergeCmd)
}
