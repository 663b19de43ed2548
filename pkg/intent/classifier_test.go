package intent

import "testing"

func TestClassifyGreeting(t *testing.T) {
	eng := NewEngine(EngineConfig{})
	got := eng.Classify("hi", Meta{Confidence: 0.9})
	if got.Primary != PrimaryGreeting {
		t.Fatalf("expected greeting, got %s", got.Primary)
	}
	if got.Confidence < 0.9 {
		t.Fatalf("expected confidence >= 0.9, got %.2f", got.Confidence)
	}
	if got.RequiresClarification {
		t.Fatalf("greeting must not require clarification")
	}
}

func TestClassifyEmptyForcesClarification(t *testing.T) {
	eng := NewEngine(EngineConfig{})
	for _, in := range []string{"", "   ", "[inaudible]"} {
		got := eng.Classify(in, Meta{})
		if got.Primary != PrimaryUnknown {
			t.Fatalf("%q: expected unknown, got %s", in, got.Primary)
		}
		if got.Confidence != 0 {
			t.Fatalf("%q: expected zero confidence, got %.2f", in, got.Confidence)
		}
		if !got.RequiresClarification {
			t.Fatalf("%q: expected clarification required", in)
		}
	}
}

func TestClassifyInaudibleMetaBypassesPatterns(t *testing.T) {
	eng := NewEngine(EngineConfig{})
	got := eng.Classify("hi", Meta{Inaudible: true})
	if got.Primary != PrimaryUnknown || !got.RequiresClarification {
		t.Fatalf("inaudible meta must force clarification, got %+v", got)
	}
}

func TestClassifyUnsubscribe(t *testing.T) {
	eng := NewEngine(EngineConfig{})
	got := eng.Classify("stop calling me, take me off your list", Meta{Confidence: 0.9})
	if got.CallFlow != CallFlowUnsubscribe {
		t.Fatalf("expected wants_unsubscribe, got %s", got.CallFlow)
	}
	if got.CallFlowConfidence < 0.9 {
		t.Fatalf("expected call-flow confidence >= 0.9, got %.2f", got.CallFlowConfidence)
	}
}

func TestCallFlowNotBlockedByLowPrimaryConfidence(t *testing.T) {
	eng := NewEngine(EngineConfig{})
	// Two words: below the statement classifier's length heuristic, so the
	// primary intent stays unknown while call flow still fires.
	got := eng.Classify("unsubscribe please", Meta{Confidence: 0.9})
	if got.Primary != PrimaryUnknown {
		t.Fatalf("expected unknown primary, got %s", got.Primary)
	}
	if got.CallFlow != CallFlowUnsubscribe {
		t.Fatalf("expected unsubscribe call flow, got %s", got.CallFlow)
	}
}

func TestClassifyEmotion(t *testing.T) {
	eng := NewEngine(EngineConfig{})
	cases := map[string]EmotionalState{
		"this is ridiculous, I'm sick of these calls": EmotionAngry,
		"sorry, I'm really busy right now":            EmotionStressed,
		"wait what do you mean by that":               EmotionConfused,
		"the weather is nice today":                   EmotionNeutral,
	}
	for in, want := range cases {
		if got := eng.Classify(in, Meta{Confidence: 0.9}); got.Emotion != want {
			t.Fatalf("%q: expected %s, got %s", in, want, got.Emotion)
		}
	}
}

func TestClassifyQuestionPriority(t *testing.T) {
	eng := NewEngine(EngineConfig{})
	got := eng.Classify("what are your hours?", Meta{Confidence: 0.9})
	if got.Primary != PrimaryQuestionInfo {
		t.Fatalf("expected question_information, got %s", got.Primary)
	}
	if got.CallFlow != CallFlowInformation {
		t.Fatalf("expected wants_information, got %s", got.CallFlow)
	}
}

func TestClassifyAgreement(t *testing.T) {
	eng := NewEngine(EngineConfig{})
	got := eng.Classify("yeah sounds good", Meta{Confidence: 0.9})
	if got.Primary != PrimaryAgreement {
		t.Fatalf("expected agreement, got %s", got.Primary)
	}
}
