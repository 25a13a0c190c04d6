package export

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/dealmachine-cli/internal/model"
)

// Format is an export file format.
type Format string

const (
	FormatCSV  Format = "csv"
	FormatXLSX Format = "xlsx"
)

// Artifact is a rendered export ready for delivery.
type Artifact struct {
	Name        string
	ContentType string
	Data        []byte
	Rows        int
}

// Build renders the successful outcome in the requested format. The name
// embeds the date of at and the row count.
func Build(format Format, out model.RunOutcome, at time.Time) (*Artifact, error) {
	if out.Kind != model.OutcomeSuccess {
		return nil, eris.Errorf("export: nothing to export for %s outcome", out.Kind)
	}

	switch format {
	case FormatCSV, "":
		text := out.CSV
		if text == "" {
			text = EncodeRows(out.Rows)
		}
		return &Artifact{
			Name:        FileName(at, out.RowCount, "csv"),
			ContentType: "text/csv;charset=utf-8",
			Data:        []byte(text),
			Rows:        out.RowCount,
		}, nil
	case FormatXLSX:
		data, err := EncodeXLSX(out.Rows)
		if err != nil {
			return nil, err
		}
		return &Artifact{
			Name:        FileName(at, out.RowCount, "xlsx"),
			ContentType: "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
			Data:        data,
			Rows:        out.RowCount,
		}, nil
	default:
		return nil, eris.Errorf("export: unknown format %q", format)
	}
}

// Deliverer places an artifact somewhere and returns its location.
type Deliverer interface {
	Deliver(ctx context.Context, a *Artifact) (string, error)
}

// DirDeliverer writes artifacts into a local directory.
type DirDeliverer struct {
	Dir string
}

// Deliver writes the artifact to Dir, creating it if needed.
func (d DirDeliverer) Deliver(_ context.Context, a *Artifact) (string, error) {
	dir := d.Dir
	if dir == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", eris.Wrapf(err, "export: create dir %s", dir)
	}

	path := filepath.Join(dir, a.Name)
	if err := os.WriteFile(path, a.Data, 0o644); err != nil {
		return "", eris.Wrapf(err, "export: write %s", path)
	}

	zap.L().Info("export: wrote artifact",
		zap.String("path", path),
		zap.Int("rows", a.Rows),
		zap.Int("bytes", len(a.Data)),
	)
	return path, nil
}
