package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/mattn/go-isatty"

	dombatch "github.com/kailas-cloud/indexsync/internal/domain/batch"
	"github.com/kailas-cloud/indexsync/internal/usecase/rebuild"
)

// isTTY reports whether w is an interactive terminal.
func isTTY(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// progress prints rebuild events: plain sentences on a terminal, one JSON
// object per line otherwise.
type progress struct {
	w    io.Writer
	json bool
	enc  *json.Encoder
}

func newProgress(w io.Writer, forceJSON bool) *progress {
	return &progress{w: w, json: forceJSON || !isTTY(w), enc: json.NewEncoder(w)}
}

type progressLine struct {
	Event       string `json:"event"`
	ContentType string `json:"content_type,omitempty"`
	Mapping     string `json:"mapping,omitempty"`
	PK          int64  `json:"pk,omitempty"`
	Error       string `json:"error,omitempty"`
}

// Observe is a rebuild.Observer.
func (p *progress) Observe(e rebuild.Event) {
	if p.json {
		line := progressLine{Event: e.Kind.String(), ContentType: e.ContentType, Mapping: e.MappingName, PK: e.PK}
		if e.Err != nil {
			line.Error = e.Err.Error()
		}
		_ = p.enc.Encode(line)
		return
	}
	switch e.Kind {
	case rebuild.EventMappingSaved:
		fmt.Fprintf(p.w, "Saved mapping %s\n", e.MappingName)
	case rebuild.EventDocumentIndexed:
		fmt.Fprintf(p.w, "Document with id %d indexed.\n", e.PK)
	case rebuild.EventDocumentFailed:
		fmt.Fprintf(p.w, "Document with id %d failed: %v\n", e.PK, e.Err)
	}
}

type summaryLine struct {
	Event      string                `json:"event"`
	RunID      string                `json:"run_id"`
	DurationMS int64                 `json:"duration_ms"`
	Indexed    int                   `json:"indexed"`
	Failed     int                   `json:"failed"`
	Types      []dombatch.TypeCounts `json:"types"`
}

// Summary prints the final report.
func (p *progress) Summary(r *dombatch.Report) {
	failed := len(r.Failures())
	if p.json {
		_ = p.enc.Encode(summaryLine{
			Event:      "rebuild_finished",
			RunID:      r.RunID(),
			DurationMS: r.Duration().Milliseconds(),
			Indexed:    r.Indexed(),
			Failed:     failed,
			Types:      r.Types(),
		})
		return
	}
	fmt.Fprintf(p.w, "\nRebuild %s finished in %s: %d indexed, %d failed\n", r.RunID(), r.Duration(), r.Indexed(), failed)
	for _, tc := range r.Types() {
		fmt.Fprintf(p.w, "  %-40s %6d indexed %6d failed\n", tc.ContentType, tc.Indexed, tc.Failed)
	}
}
