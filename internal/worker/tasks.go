package worker

import (
	"fmt"

	"github.com/hibiken/asynq"
	jsoniter "github.com/json-iterator/go"

	"tranquiltaiwan/pkg/contextx"
)

// TaskScoreRecalculate refetches environment signals for one address and
// rescores it.
const TaskScoreRecalculate = "score:recalculate"

var logger = contextx.LoggerFromContextOrDefault //nolint:gochecknoglobals
var json = jsoniter.ConfigCompatibleWithStandardLibrary //nolint:gochecknoglobals // skip

type RecalculatePayload struct {
	AddressID int64 `json:"address_id"`
}

func NewRecalculateTask(addressID int64) (*asynq.Task, error) {
	payload, err := json.Marshal(RecalculatePayload{AddressID: addressID})
	if err != nil {
		return nil, fmt.Errorf("marshal recalculate payload: %w", err)
	}

	return asynq.NewTask(TaskScoreRecalculate, payload), nil
}
