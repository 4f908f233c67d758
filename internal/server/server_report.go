package server

import (
	"context"
	"fmt"
	"net/http"

	"tranquiltaiwan/internal/domain/entity"
	"tranquiltaiwan/pkg/httpx/reply"
	"tranquiltaiwan/pkg/httpx/req"
	"tranquiltaiwan/pkg/rest"
)

type reportService interface {
	CreateReport(ctx context.Context, addressID int64) (*entity.Report, error)
	GetReport(ctx context.Context, id string) (*entity.Report, error)
}

type ReportServer struct {
	reportService reportService
}

func NewReportServer(reportService reportService) ReportServer {
	return ReportServer{
		reportService: reportService,
	}
}

func (s ReportServer) postReport(w http.ResponseWriter, r *http.Request) error {
	ctx := r.Context()

	var request rest.ReportRequest

	if err := req.Read(r, &request); err != nil {
		return fmt.Errorf("req.Read: %w", err)
	}

	report, err := s.reportService.CreateReport(ctx, request.AddressID)
	if err != nil {
		return fmt.Errorf("reportService.CreateReport: %w", err)
	}

	reply.JSON(ctx, w, http.StatusCreated, newRESTReport(*report))

	return nil
}

func (s ReportServer) getReport(w http.ResponseWriter, r *http.Request) error {
	ctx := r.Context()

	report, err := s.reportService.GetReport(ctx, r.PathValue("id"))
	if err != nil {
		return fmt.Errorf("reportService.GetReport: %w", err)
	}

	reply.JSON(ctx, w, http.StatusOK, newRESTReport(*report))

	return nil
}
