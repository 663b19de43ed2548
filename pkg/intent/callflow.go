package intent

import "strings"

// CallFlowClassifier detects what the caller wants to happen with the call
// itself. It runs on every turn regardless of primary-intent confidence.
type CallFlowClassifier struct {
	patterns []callFlowPattern
}

type callFlowPattern struct {
	flow       CallFlow
	confidence float64
	words      []string
}

// Order matters: unsubscribe outranks the softer call-handling requests so
// "stop calling and email me instead" is treated as an unsubscribe.
func NewCallFlowClassifier() *CallFlowClassifier {
	return &CallFlowClassifier{patterns: []callFlowPattern{
		{CallFlowUnsubscribe, 0.95, []string{
			"stop calling", "don't call", "do not call", "take me off", "remove me from",
			"off your list", "unsubscribe", "quit calling", "never call",
		}},
		{CallFlowCallback, 0.9, []string{
			"call me back", "call back later", "call me later", "call another time",
			"try me tomorrow", "not a good time to talk",
		}},
		{CallFlowEmail, 0.9, []string{
			"send me an email", "email me", "send it by email", "put it in an email", "send the details",
		}},
		{CallFlowReschedule, 0.9, []string{
			"reschedule", "move my appointment", "change my appointment", "different day", "push it back",
		}},
		{CallFlowAppointment, 0.85, []string{
			"book an appointment", "make an appointment", "schedule an appointment", "set up a time", "come in for",
		}},
		{CallFlowInformation, 0.75, []string{
			"tell me more", "more information", "what are your hours", "how much does", "what does it cost", "send me information",
		}},
	}}
}

// Classify returns the detected call-flow intent and its confidence.
func (c *CallFlowClassifier) Classify(text string) (CallFlow, float64) {
	lower := normalize(text)
	for _, p := range c.patterns {
		for _, w := range p.words {
			if strings.Contains(lower, w) {
				return p.flow, p.confidence
			}
		}
	}
	return CallFlowNone, 0
}
