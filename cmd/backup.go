package cmd

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"trading-dashboard/internal/dto"
	"trading-dashboard/pkg/logger"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

const (
	formatJSON = "json"
	formatYAML = "yaml"
)

var (
	backupOut    string
	backupIn     string
	backupFormat string
	backupTables []string
	backupClear  bool
)

var backupCmd = &cobra.Command{
	Use:   "backup",
	Short: "Export or restore user data",
}

var backupExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Write a backup document of every user-owned table",
	RunE: func(cmd *cobra.Command, args []string) error {
		appDep, err := NewAppDependency(cmd.Context())
		if err != nil {
			return err
		}
		defer appDep.Close()

		services := appDep.Services(appDep.Repository())
		doc, err := services.BackupService.CreateBackup(cmd.Context())
		if err != nil {
			return err
		}

		format := resolveFormat(backupFormat, backupOut)
		raw, err := encodeBackup(doc, format)
		if err != nil {
			return err
		}

		out := backupOut
		if out == "" {
			out = fmt.Sprintf("trading-dashboard-backup-%s.%s", time.Now().UTC().Format("20060102-150405"), format)
		}
		if err := os.WriteFile(out, raw, 0o600); err != nil {
			return fmt.Errorf("failed to write backup file: %w", err)
		}
		appDep.log.Info("Backup exported",
			logger.StringField("file", out),
			logger.Field("record_counts", doc.Metadata.RecordCounts),
		)
		return nil
	},
}

var backupRestoreCmd = &cobra.Command{
	Use:   "restore",
	Short: "Restore a backup document into the database",
	RunE: func(cmd *cobra.Command, args []string) error {
		if backupIn == "" {
			return errors.New("--in is required")
		}
		raw, err := os.ReadFile(backupIn)
		if err != nil {
			return fmt.Errorf("failed to read backup file: %w", err)
		}
		doc, err := decodeBackup(raw, resolveFormat(backupFormat, backupIn))
		if err != nil {
			return err
		}

		appDep, err := NewAppDependency(cmd.Context())
		if err != nil {
			return err
		}
		defer appDep.Close()

		req := dto.RestoreRequest{Document: *doc, ClearExisting: backupClear}
		if len(backupTables) > 0 {
			req.SelectOnly(backupTables...)
		}

		services := appDep.Services(appDep.Repository())
		result, err := services.BackupService.RestoreBackup(cmd.Context(), req)
		if err != nil {
			return err
		}
		appDep.log.Info("Backup restored", logger.Field("records_restored", result.RecordsRestored))
		if !result.Success {
			for _, tableErr := range result.Errors {
				appDep.log.Error("Table restore failed",
					logger.StringField("table", tableErr.Table),
					logger.StringField("error", tableErr.Error),
				)
			}
			return fmt.Errorf("restore finished with %d table error(s)", len(result.Errors))
		}
		return nil
	},
}

// resolveFormat prefers the explicit flag, then the file extension.
func resolveFormat(flag, path string) string {
	if flag != "" {
		return strings.ToLower(flag)
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return formatYAML
	}
	return formatJSON
}

// encodeBackup goes through a generic map for yaml so the json field names
// and time layout of the document are kept.
func encodeBackup(doc *dto.BackupDocument, format string) ([]byte, error) {
	raw, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode backup: %w", err)
	}
	switch format {
	case formatJSON:
		return raw, nil
	case formatYAML:
		var generic interface{}
		if err := json.Unmarshal(raw, &generic); err != nil {
			return nil, fmt.Errorf("failed to encode backup: %w", err)
		}
		return yaml.Marshal(generic)
	}
	return nil, fmt.Errorf("unsupported backup format %q", format)
}

func decodeBackup(raw []byte, format string) (*dto.BackupDocument, error) {
	switch format {
	case formatJSON:
	case formatYAML:
		var generic interface{}
		if err := yaml.Unmarshal(raw, &generic); err != nil {
			return nil, fmt.Errorf("failed to parse yaml backup: %w", err)
		}
		converted, err := json.Marshal(generic)
		if err != nil {
			return nil, fmt.Errorf("failed to parse yaml backup: %w", err)
		}
		raw = converted
	default:
		return nil, fmt.Errorf("unsupported backup format %q", format)
	}

	doc := new(dto.BackupDocument)
	if err := json.Unmarshal(raw, doc); err != nil {
		return nil, fmt.Errorf("failed to parse backup: %w", err)
	}
	return doc, nil
}

func init() {
	backupExportCmd.Flags().StringVar(&backupOut, "out", "", "output file (defaults to a timestamped name)")
	backupExportCmd.Flags().StringVar(&backupFormat, "format", "", "json or yaml (defaults to the file extension)")

	backupRestoreCmd.Flags().StringVar(&backupIn, "in", "", "backup file to restore")
	backupRestoreCmd.Flags().StringVar(&backupFormat, "format", "", "json or yaml (defaults to the file extension)")
	backupRestoreCmd.Flags().StringSliceVar(&backupTables, "tables", nil, "restore only these tables")
	backupRestoreCmd.Flags().BoolVar(&backupClear, "clear", false, "clear selected tables before restoring")

	backupCmd.AddCommand(backupExportCmd)
	backupCmd.AddCommand(backupRestoreCmd)
}
