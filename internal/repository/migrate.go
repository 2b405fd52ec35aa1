package repository

import (
	"context"
	"fmt"

	"entgo.io/ent/dialect/sql/schema"
	"entgo.io/ent/schema/field"
)

const runsTable = "analysis_runs"

// AnalysisRunsTable describes the run ledger for the ent migrator.
var AnalysisRunsTable = func() *schema.Table {
	id := &schema.Column{Name: "id", Type: field.TypeString, Size: 36}
	t := schema.NewTable(runsTable).
		AddPrimary(id).
		AddColumn(&schema.Column{Name: "file_path", Type: field.TypeString, Size: 2048}).
		AddColumn(&schema.Column{Name: "request_id", Type: field.TypeString, Size: 64, Nullable: true}).
		AddColumn(&schema.Column{Name: "status", Type: field.TypeString, Size: 16}).
		AddColumn(&schema.Column{Name: "started_at", Type: field.TypeTime}).
		AddColumn(&schema.Column{Name: "finished_at", Type: field.TypeTime, Nullable: true}).
		AddColumn(&schema.Column{Name: "method", Type: field.TypeString, Size: 16, Nullable: true}).
		AddColumn(&schema.Column{Name: "pages", Type: field.TypeInt, Default: 0}).
		AddColumn(&schema.Column{Name: "ocr_pages", Type: field.TypeInt, Default: 0}).
		AddColumn(&schema.Column{Name: "text_chars", Type: field.TypeInt, Default: 0}).
		AddColumn(&schema.Column{Name: "sufficient", Type: field.TypeBool, Default: false}).
		AddColumn(&schema.Column{Name: "extracted_text", Type: field.TypeString, Size: 2147483647, Nullable: true}).
		AddColumn(&schema.Column{Name: "analysis", Type: field.TypeJSON, Nullable: true}).
		AddColumn(&schema.Column{Name: "model_name", Type: field.TypeString, Size: 128, Nullable: true}).
		AddColumn(&schema.Column{Name: "error_message", Type: field.TypeString, Size: 2147483647, Nullable: true})
	t.AddIndex("analysisrun_status_started_at", false, []string{"status", "started_at"})
	t.AddIndex("analysisrun_file_path", false, []string{"file_path"})
	return t
}()

// Migrate creates or updates the run ledger table and its indexes.
func (d *DB) Migrate(ctx context.Context) error {
	m, err := schema.NewMigrate(d.Driver)
	if err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	if err := m.Create(ctx, AnalysisRunsTable); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}
