package scenario

import "testing"

func TestDetectLowSTTConfidence(t *testing.T) {
	d := NewDetector(Config{})
	got := d.Detect(Signals{Transcript: "something", STTConfidence: 0.2})
	if got.Category != CategoryAudio {
		t.Fatalf("expected audio_technical, got %s", got.Category)
	}
	if got.Severity != SeverityHigh {
		t.Fatalf("expected high severity, got %s", got.Severity)
	}
	if !got.RequiresImmediateAction {
		t.Fatalf("expected immediate action")
	}
}

func TestDetectUnsubscribeIsBusinessLogic(t *testing.T) {
	d := NewDetector(Config{})
	got := d.Detect(Signals{Transcript: "stop calling me, take me off your list", STTConfidence: 0.9})
	if got.Category != CategoryBusinessLogic {
		t.Fatalf("expected business_logic, got %s", got.Category)
	}
	if got.Subtype != "do_not_call" {
		t.Fatalf("expected do_not_call subtype, got %s", got.Subtype)
	}
	if !got.RequiresImmediateAction {
		t.Fatalf("expected immediate action")
	}
}

func TestLegalThreatOutranksConfusion(t *testing.T) {
	d := NewDetector(Config{})
	got := d.Detect(Signals{
		Transcript:    "I'm a bit confused, and honestly my lawyer will hear about this",
		STTConfidence: 0.9,
	})
	if got.Category != CategoryBusinessLogic || got.Subtype != "legal_threat" {
		t.Fatalf("expected legal_threat business_logic, got %s/%s", got.Category, got.Subtype)
	}
}

func TestComplianceOutranksAudioTrouble(t *testing.T) {
	d := NewDetector(Config{})
	got := d.Detect(Signals{Transcript: "do not call me again", STTConfidence: 0.2})
	if got.Category != CategoryBusinessLogic {
		t.Fatalf("compliance must win over audio, got %s", got.Category)
	}
}

func TestEmergencyOutranksDistress(t *testing.T) {
	d := NewDetector(Config{})
	got := d.Detect(Signals{Transcript: "I think I'm having chest pain", STTConfidence: 0.9})
	if got.Category != CategoryEmotional || got.Subtype != "emergency" {
		t.Fatalf("expected emotional emergency, got %s/%s", got.Category, got.Subtype)
	}
	if !got.RequiresImmediateAction {
		t.Fatalf("expected immediate action")
	}
}

func TestNormalWhenNothingFires(t *testing.T) {
	d := NewDetector(Config{})
	got := d.Detect(Signals{Transcript: "sure, that works for me", STTConfidence: 0.9})
	if got.Category != CategoryNormal {
		t.Fatalf("expected normal, got %s", got.Category)
	}
}

func TestBehavioralOnlyWhenCountersReached(t *testing.T) {
	d := NewDetector(Config{})
	got := d.Detect(Signals{Transcript: "anyway as I was saying", STTConfidence: 0.9, LongResponses: 2, TopicSwitches: 2})
	if got.Category != CategoryBehavioral || got.Subtype != "talkative" {
		t.Fatalf("expected behavioral talkative, got %s/%s", got.Category, got.Subtype)
	}
	got = d.Detect(Signals{Transcript: "anyway", STTConfidence: 0.9, LongResponses: 1, TopicSwitches: 1})
	if got.Category != CategoryNormal {
		t.Fatalf("expected normal below counters, got %s", got.Category)
	}
}

func TestVoicemailImmediate(t *testing.T) {
	d := NewDetector(Config{})
	got := d.Detect(Signals{VoicemailDetected: true})
	if got.Category != CategoryAudio || got.Subtype != "voicemail" || !got.RequiresImmediateAction {
		t.Fatalf("expected immediate voicemail scenario, got %+v", got)
	}
}
