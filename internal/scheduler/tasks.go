package scheduler

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

const TaskInactivitySweep = "status.inactivity_sweep"

const TaskSignalsExpire = "signals.expire"

// InactivitySweepPayload is empty today; the sweep scans all tenants. Kept
// as a struct so scoping it later does not change the wire format.
type InactivitySweepPayload struct{}

// SignalsExpirePayload carries the window the expiry sweep covers, as a
// duration string.
type SignalsExpirePayload struct {
	Window string `json:"window"`
}

func NewInactivitySweepTask() (*asynq.Task, error) {
	data, err := json.Marshal(InactivitySweepPayload{})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskInactivitySweep, data), nil
}

func NewSignalsExpireTask(payload SignalsExpirePayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskSignalsExpire, data), nil
}

func ParseSignalsExpirePayload(task *asynq.Task) (SignalsExpirePayload, error) {
	var payload SignalsExpirePayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return SignalsExpirePayload{}, err
	}
	return payload, nil
}
