package triage

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		text string
		want Urgency
	}{
		{"critical uppercase", "Urgency: CRITICAL", UrgencyCritical},
		{"critical lowercase", "this looks critical", UrgencyCritical},
		{"emergency mixed case", "Go to the Emergency room", UrgencyCritical},
		{"immediate", "needs immediate care", UrgencyCritical},
		{"substring inside word", "immediately", UrgencyCritical},
		{"negation still critical", "this is NOT an emergency", UrgencyCritical},
		{"low", "Urgency: LOW. Rest and hydrate.", UrgencyNormal},
		{"medium", "Urgency: MEDIUM", UrgencyNormal},
		{"severe is not a trigger", "severe pain", UrgencyNormal},
		{"empty", "", UrgencyNormal},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.text))
		})
	}
}

func TestClassifyScenarios(t *testing.T) {
	mild := "Likely causes: tension headache, dehydration, eye strain. Urgency: LOW. Rest and hydrate."
	assert.Equal(t, UrgencyNormal, Classify(mild))

	chest := "...this requires IMMEDIATE medical attention, possible CRITICAL cardiac event..."
	assert.Equal(t, UrgencyCritical, Classify(chest))
}

func TestClassifyDeterministic(t *testing.T) {
	text := "Possible EMERGENCY"
	first := Classify(text)
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, Classify(text))
	}
}

func TestTriggerWordsIsCopy(t *testing.T) {
	words := TriggerWords()
	assert.Equal(t, []string{"CRITICAL", "EMERGENCY", "IMMEDIATE"}, words)
	words[0] = "MUTATED"
	assert.Equal(t, "CRITICAL", TriggerWords()[0])
}

func TestParseMode(t *testing.T) {
	m, err := ParseMode("", ModeDirect)
	assert.NoError(t, err)
	assert.Equal(t, ModeDirect, m)

	m, err = ParseMode("agents", ModeDirect)
	assert.NoError(t, err)
	assert.Equal(t, ModeAgents, m)

	_, err = ParseMode("graph", ModeDirect)
	assert.ErrorIs(t, err, ErrInvalidMode)
}

func TestNewResultDerivesUrgency(t *testing.T) {
	r := NewResult("id-1", "call emergency services", ModeDirect, "grok-beta", nil, time.Time{})
	assert.Equal(t, UrgencyCritical, r.Urgency)
	assert.Equal(t, "Unknown", UrgencyUnknown.String())
}
