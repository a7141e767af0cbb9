package handler

import (
	"net/http"

	"github.com/fintrack-api/internal/application/report"
	"github.com/fintrack-api/internal/domain"
)

type ReportHandler struct {
	svc report.Service
}

func NewReportHandler(svc report.Service) *ReportHandler { return &ReportHandler{svc: svc} }

func (h *ReportHandler) Dashboard(w http.ResponseWriter, r *http.Request) {
	uid, ok := userID(w, r)
	if !ok {
		return
	}
	d, err := h.svc.Dashboard(r.Context(), uid)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, d)
}

func (h *ReportHandler) Generate(w http.ResponseWriter, r *http.Request) {
	uid, ok := userID(w, r)
	if !ok {
		return
	}
	var req domain.ReportRequest
	if !decode(w, r, &req) {
		return
	}
	rep, err := h.svc.Generate(r.Context(), uid, req)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rep)
}

func (h *ReportHandler) Export(w http.ResponseWriter, r *http.Request) {
	uid, ok := userID(w, r)
	if !ok {
		return
	}
	var req domain.ReportRequest
	if !decode(w, r, &req) {
		return
	}
	exp, err := h.svc.Export(r.Context(), uid, req)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, exp)
}
