package main

import (
	"bytes"
	"encoding/json"
	"testing"
	"time"

	"github.com/fatih/color"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"spendtracker/internal/core"
	"spendtracker/internal/events"
)

func sampleEvent() *events.ExpenseEvent {
	totals := core.NewTotals()
	totals[core.Food] = core.MustMoney("50")
	ev := events.NewExpenseEvent(events.EventExpenseAdded,
		core.Entry{ID: 1, Name: "Coffee", Category: core.Food, Amount: core.MustMoney("50")},
		totals, 3)
	ev.ID = uuid.MustParse("5f0c1a8e-2b7d-4c1e-9a3f-0d6b8e2f4a71")
	ev.Timestamp = time.Date(2024, 6, 1, 9, 30, 0, 0, time.UTC)
	return ev
}

func TestWriteEventText(t *testing.T) {
	color.NoColor = true
	t.Cleanup(func() { color.NoColor = false })

	var buf bytes.Buffer
	require.NoError(t, writeEvent(&buf, sampleEvent(), "text"))

	out := buf.String()
	assert.Contains(t, out, "09:30:00 + added   #1 Coffee 50.00 (Food)")
	assert.Contains(t, out, "v3 Food=50.00 Transport=0.00")

	ev := sampleEvent()
	ev.Type = events.EventExpenseRemoved
	buf.Reset()
	require.NoError(t, writeEvent(&buf, ev, "text"))
	assert.Contains(t, buf.String(), "- removed #1")
}

func TestWriteEventJSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, writeEvent(&buf, sampleEvent(), "json"))

	var decoded events.ExpenseEvent
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	assert.Equal(t, events.EventExpenseAdded, decoded.Type)
	assert.Equal(t, "50.00", decoded.Totals[core.Food])
}

func TestWriteEventYAML(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, writeEvent(&buf, sampleEvent(), "yaml"))

	out := buf.String()
	assert.True(t, bytes.HasPrefix(buf.Bytes(), []byte("---\n")))
	assert.Contains(t, out, "id: 5f0c1a8e-2b7d-4c1e-9a3f-0d6b8e2f4a71")
	assert.Contains(t, out, "type: expense.added")

	var decoded map[string]any
	require.NoError(t, yaml.Unmarshal(buf.Bytes()[4:], &decoded))
	assert.Equal(t, "Coffee", decoded["entry"].(map[string]any)["name"])
}

func TestRootCommand(t *testing.T) {
	root := newRootCmd()
	names := map[string]bool{}
	for _, c := range root.Commands() {
		names[c.Name()] = true
	}
	for _, want := range []string{"serve", "tui", "events"} {
		assert.True(t, names[want], "missing subcommand %q", want)
	}
	assert.NotNil(t, root.RunE)
	assert.NotNil(t, root.Flags().Lookup("port"))
}

func TestEventsRejectsUnknownFormat(t *testing.T) {
	root := newRootCmd()
	root.SetArgs([]string{"events", "-o", "xml"})
	root.SetOut(&bytes.Buffer{})
	root.SetErr(&bytes.Buffer{})
	err := root.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown output format")
}
