package api

import (
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"threatdesk/internal/export"
)

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	format, err := export.ParseFormat(r.URL.Query().Get("format"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	window := resolveWindow(r, s.now())
	list, err := s.fetchWindow(r.Context(), window)
	if err != nil {
		s.tel.RecordError(r.Context(), err)
		writeError(w, http.StatusBadGateway, "alert query failed")
		return
	}

	if m := s.tel.Metrics(); m != nil {
		m.ExportsTotal.WithLabelValues(string(format)).Inc()
	}

	filename := fmt.Sprintf("alerts_%s.%s", window.Start.Format("2006-01-02"), format)
	w.Header().Set("Content-Type", format.ContentType())
	w.Header().Set("Content-Disposition", `attachment; filename="`+filename+`"`)
	w.WriteHeader(http.StatusOK)

	if err := export.Write(w, format, list); err != nil {
		// Headers are already sent; the write error can only be logged.
		s.logger.Error("export write failed", zap.Error(err))
	}
}
