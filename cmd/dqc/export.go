package main

import (
	"bytes"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/entanglab/dqc/internal/export"
	"github.com/entanglab/dqc/internal/store/postgres"
)

var (
	exportOut string
	exportS3  bool
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export recorded runs as JSONL",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if cfg.DatabaseURL == "" {
			return fmt.Errorf("DQC_DATABASE_URL is not set; no run ledger to export")
		}
		ledger, err := postgres.New(cfg.DatabaseURL)
		if err != nil {
			return fmt.Errorf("opening run ledger: %w", err)
		}
		defer ledger.Close()

		ctx := cmd.Context()
		if exportS3 {
			if cfg.ExportS3Bucket == "" {
				return fmt.Errorf("DQC_EXPORT_S3_BUCKET is not set")
			}
			var buf bytes.Buffer
			sum, err := export.ExportRuns(ctx, ledger, &buf)
			if err != nil {
				return err
			}
			dest, err := export.NewS3Destination(ctx, cfg.ExportS3Bucket, cfg.ExportS3Region, cfg.ExportS3Endpoint, slog.Default())
			if err != nil {
				return fmt.Errorf("configuring S3 destination: %w", err)
			}
			key := export.ObjectKey(cfg.ExportS3Key, time.Now())
			if err := dest.Put(ctx, key, buf.Bytes(), sum); err != nil {
				return fmt.Errorf("uploading export: %w", err)
			}
			fmt.Printf("Exported %d runs to s3://%s/%s\n", sum.Runs, cfg.ExportS3Bucket, key)
			return nil
		}

		if exportOut != "" {
			f, err := os.Create(exportOut)
			if err != nil {
				return fmt.Errorf("creating %s: %w", exportOut, err)
			}
			defer f.Close()
			_, err = export.ExportRuns(ctx, ledger, f)
			return err
		}
		_, err = export.ExportRuns(ctx, ledger, os.Stdout)
		return err
	},
}

func init() {
	exportCmd.Flags().StringVarP(&exportOut, "out", "o", "", "write export to file instead of stdout")
	exportCmd.Flags().BoolVar(&exportS3, "s3", false, "upload the export to the configured S3 bucket")
}
