package server

import (
	"context"
	"fmt"
	"net/http"
	"strconv"

	"git.appkode.ru/pub/go/failure"

	"tranquiltaiwan/internal/domain/entity"
	"tranquiltaiwan/pkg/errcodes"
	"tranquiltaiwan/pkg/httpx/reply"
	"tranquiltaiwan/pkg/httpx/req"
	"tranquiltaiwan/pkg/rest"
)

type scoreService interface {
	ScoreAddress(ctx context.Context, raw string, refresh bool) (*entity.Address, *entity.Score, error)
	GetScore(ctx context.Context, addressID int64) (*entity.Address, *entity.Score, error)
	Recalculate(ctx context.Context, addressID int64) (string, error)
}

type ScoreServer struct {
	scoreService scoreService
}

func NewScoreServer(scoreService scoreService) ScoreServer {
	return ScoreServer{
		scoreService: scoreService,
	}
}

func (s ScoreServer) postScore(w http.ResponseWriter, r *http.Request) error {
	ctx := r.Context()

	var request rest.ScoreRequest

	if err := req.Read(r, &request); err != nil {
		return fmt.Errorf("req.Read: %w", err)
	}

	addr, score, err := s.scoreService.ScoreAddress(ctx, request.Address, request.Refresh)
	if err != nil {
		return fmt.Errorf("scoreService.ScoreAddress: %w", err)
	}

	reply.JSON(ctx, w, http.StatusOK, newRESTScore(*addr, *score))

	return nil
}

func (s ScoreServer) getScore(w http.ResponseWriter, r *http.Request) error {
	ctx := r.Context()

	addressID, err := parseAddressID(r.PathValue("addressID"))
	if err != nil {
		return err
	}

	addr, score, err := s.scoreService.GetScore(ctx, addressID)
	if err != nil {
		return fmt.Errorf("scoreService.GetScore: %w", err)
	}

	reply.JSON(ctx, w, http.StatusOK, newRESTScore(*addr, *score))

	return nil
}

func (s ScoreServer) postScoreRecalculate(w http.ResponseWriter, r *http.Request) error {
	ctx := r.Context()

	var request rest.RecalculateRequest

	if err := req.Read(r, &request); err != nil {
		return fmt.Errorf("req.Read: %w", err)
	}

	taskID, err := s.scoreService.Recalculate(ctx, request.AddressID)
	if err != nil {
		return fmt.Errorf("scoreService.Recalculate: %w", err)
	}

	reply.JSON(ctx, w, http.StatusAccepted, rest.RecalculateResponse{
		AddressID: request.AddressID,
		TaskID:    taskID,
	})

	return nil
}

func parseAddressID(raw string) (int64, error) {
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, failure.NewInvalidArgumentError(
			fmt.Sprintf("invalid address id: %q", raw),
			failure.WithCode(errcodes.InvalidAddressID),
			failure.WithDescription("Address id must be a positive integer"),
		)
	}

	return id, nil
}
