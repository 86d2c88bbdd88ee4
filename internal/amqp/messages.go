package amqp

import (
	"encoding/json"
	"time"
)

// LedgerEvent announces a committed ledger or plan mutation. Consumers fetch
// the current row themselves, so the event carries only identity, not state.
type LedgerEvent struct {
	Entity   string    `json:"entity"` // income, expense, budget_plan
	Action   string    `json:"action"` // created, updated, deleted
	ID       int64     `json:"id"`
	Occurred time.Time `json:"occurred"`
}

func NewLedgerEvent(entity, action string, id int64) *LedgerEvent {
	return &LedgerEvent{
		Entity:   entity,
		Action:   action,
		ID:       id,
		Occurred: time.Now(),
	}
}

func (e *LedgerEvent) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

func LedgerEventFromJSON(data []byte) (*LedgerEvent, error) {
	var e LedgerEvent
	if err := json.Unmarshal(data, &e); err != nil {
		return nil, err
	}
	return &e, nil
}
