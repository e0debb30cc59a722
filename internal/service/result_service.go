package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/stemsi/mtq-judge/internal/model"
	"github.com/stemsi/mtq-judge/internal/rubric"
)

// ErrScaleUnknown is returned when a recorded total cannot be converted
// because the competition API did not state its scale.
var ErrScaleUnknown = errors.New("score scale unknown")

// ResultService reads recorded results from the competition API.
type ResultService struct {
	judging *JudgingService
}

// NewResultService creates a new ResultService.
func NewResultService(judging *JudgingService) *ResultService {
	return &ResultService{judging: judging}
}

// ScoreDetail returns a candidate's recorded result in a round. When scale
// is positive the total is converted to it.
func (s *ResultService) ScoreDetail(ctx context.Context, sess *JudgeSession, candidateID, roundID int, scale float64) (*model.ScoreDetail, error) {
	d, err := s.judging.API(sess).GetScoreDetail(ctx, candidateID, roundID)
	if err != nil {
		return nil, err
	}
	return ConvertDetail(d, scale)
}

// ConvertDetail rescales d.Total to scale. The stated scale of d is
// mandatory even when no conversion is asked for.
func ConvertDetail(d *model.ScoreDetail, scale float64) (*model.ScoreDetail, error) {
	if d.ScaleMax <= 0 {
		return nil, ErrScaleUnknown
	}
	if scale <= 0 || scale == d.ScaleMax {
		return d, nil
	}

	total, err := rubric.Rescale(d.Total, d.ScaleMax, scale)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrScaleUnknown, err)
	}
	out := *d
	out.Total = total
	out.ScaleMax = scale
	return &out, nil
}
