package triage

import "strings"

// triggerWords is the fixed set scanned by Classify. Changing it changes behaviour.
var triggerWords = []string{"CRITICAL", "EMERGENCY", "IMMEDIATE"}

// TriggerWords returns a copy of the words that mark an analysis as critical.
func TriggerWords() []string {
	out := make([]string, len(triggerWords))
	copy(out, triggerWords)
	return out
}

// Classify is a keyword heuristic: the text is uppercased and searched for any
// trigger word as a plain substring. It does not understand negation, so
// "this is NOT an emergency" is Critical.
func Classify(analysis string) Urgency {
	upper := strings.ToUpper(analysis)
	for _, w := range triggerWords {
		if strings.Contains(upper, w) {
			return UrgencyCritical
		}
	}
	return UrgencyNormal
}
