package events

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"spendtracker/internal/core"
)

type EventType string

const (
	EventExpenseAdded   EventType = "expense.added"
	EventExpenseRemoved EventType = "expense.removed"
)

// EntryPayload is the wire form of a ledger entry. Amounts travel as decimal
// strings so consumers never see float rounding.
type EntryPayload struct {
	ID       int64         `json:"id" yaml:"id"`
	Name     string        `json:"name" yaml:"name"`
	Category core.Category `json:"category" yaml:"category"`
	Amount   string        `json:"amount" yaml:"amount"`
}

// ExpenseEvent is published after every successful ledger mutation and
// carries the category totals as they stand after it.
type ExpenseEvent struct {
	ID        uuid.UUID                `json:"id" yaml:"id"`
	Type      EventType                `json:"type" yaml:"type"`
	Entry     EntryPayload             `json:"entry" yaml:"entry"`
	Totals    map[core.Category]string `json:"totals" yaml:"totals"`
	Version   int64                    `json:"version" yaml:"version"`
	Timestamp time.Time                `json:"timestamp" yaml:"timestamp"`
}

func NewExpenseEvent(typ EventType, e core.Entry, totals core.Totals, version int64) *ExpenseEvent {
	wire := make(map[core.Category]string, len(totals))
	for c, m := range totals {
		wire[c] = m.String()
	}
	return &ExpenseEvent{
		ID:   uuid.New(),
		Type: typ,
		Entry: EntryPayload{
			ID:       e.ID,
			Name:     e.Name,
			Category: e.Category,
			Amount:   e.Amount.String(),
		},
		Totals:    wire,
		Version:   version,
		Timestamp: time.Now().UTC(),
	}
}

// RoutingKey is "<prefix>.<type>", e.g. "spendtracker.expense.added".
func (ev *ExpenseEvent) RoutingKey(prefix string) string {
	if prefix == "" {
		return string(ev.Type)
	}
	return prefix + "." + string(ev.Type)
}

func (ev *ExpenseEvent) ToJSON() ([]byte, error) {
	return json.Marshal(ev)
}

func ExpenseEventFromJSON(data []byte) (*ExpenseEvent, error) {
	var ev ExpenseEvent
	if err := json.Unmarshal(data, &ev); err != nil {
		return nil, err
	}
	return &ev, nil
}
