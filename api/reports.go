package api

import (
	"bytes"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/warp/homeschool-tracker/report"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// DownloadReport renders a report as an XLSX attachment. The range defaults
// to the school year, like GetSummary.
// GET /api/reports/{kind}?start=&end=
func (h *Handler) DownloadReport(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	kind, err := report.ParseKind(chi.URLParam(r, "kind"))
	if err != nil {
		h.writeDomainError(w, "Unknown report", err)
		return
	}
	rng, err := h.resolveRange(r)
	if err != nil {
		h.writeDomainError(w, "Invalid date range", err)
		return
	}
	sums, err := h.Tracker.Summarize(ctx, rng.Start, rng.End)
	if err != nil {
		h.writeDomainError(w, "Failed to summarize", err)
		return
	}
	subjects, err := h.Tracker.ListSubjects(ctx)
	if err != nil {
		h.writeDomainError(w, "Failed to list subjects", err)
		return
	}

	now := h.Now()
	doc, err := report.Build(kind, sums, subjects, report.Options{Range: rng, ExportedAt: now})
	if err != nil {
		h.writeDomainError(w, "Failed to build report", err)
		return
	}

	// Render fully before writing headers so a failure can still be a 500.
	var buf bytes.Buffer
	if err := report.WriteXLSX(&buf, doc); err != nil {
		h.Logger.Printf("render %s report: %v", kind, err)
		writeError(w, http.StatusInternalServerError, "Failed to render report", err)
		return
	}

	w.Header().Set("Content-Type", xlsxContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", report.FileName(kind, now)))
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.WriteHeader(http.StatusOK)
	buf.WriteTo(w)
}
