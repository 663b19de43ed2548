package phrase

// Catalog IDs. The orchestrator addresses every scripted utterance through
// these; custom libraries may override any of them via WithEntries.
const (
	IDGreeting = "greeting"
	IDPurpose  = "purpose"

	IDClarifyRepeat   = "clarify.repeat"
	IDClarifyRephrase = "clarify.rephrase"

	IDConnectionTrouble = "connection.trouble"
	IDConnectionEnding  = "connection.ending"

	IDSilenceShort  = "silence.short"
	IDSilenceMedium = "silence.medium"
	IDSilenceLong   = "silence.long"

	IDRedirect = "redirect"

	IDClosingStandard   = "closing.standard"
	IDClosingUpset      = "closing.upset"
	IDClosingConnection = "closing.connection"
	IDCheckInNeeds      = "checkin.needs"

	IDComplianceDNC       = "compliance.dnc"
	IDComplianceEmergency = "compliance.emergency"
	IDComplianceLegal     = "compliance.legal"
	IDComplianceMinor     = "compliance.minor"

	IDIdentityVerify      = "identity.verify"
	IDIdentityWrongPerson = "identity.wrong_person"
	IDVoicemail           = "voicemail"

	IDKnowledgeDeferral = "knowledge.deferral"
	IDHumanCallback     = "callback.human"

	IDFiller    = "filler"
	IDSafetyNet = "safety_net"
)

// EmpathyID returns the catalog id for a leading empathy statement keyed by
// emotional state, e.g. "empathy.angry".
func EmpathyID(emotion string) string {
	return "empathy." + emotion
}

func defaultEntries() map[string]Entry {
	list := []Entry{
		{ID: IDGreeting, Texts: []string{
			"Hi, this is {agent_name} calling from {business_name}. How are you today?",
			"Hello! This is {agent_name} with {business_name}. Am I catching you at an okay time?",
		}},
		{ID: IDPurpose, Texts: []string{
			"I'm reaching out on behalf of {business_name} to follow up with you.",
			"I wanted to touch base quickly on behalf of {business_name}.",
		}},
		{ID: IDClarifyRepeat, Texts: []string{
			"I'm sorry, I didn't quite catch that. Could you say it again?",
			"Sorry, I missed that. Would you mind repeating it?",
		}},
		{ID: IDClarifyRephrase, Texts: []string{
			"I want to make sure I understand. Could you put that another way?",
			"Just so I get this right, could you rephrase that for me?",
		}},
		{ID: IDConnectionTrouble, Texts: []string{
			"I'm sorry, the connection seems a little rough. Could you repeat that?",
			"It sounds like the line is breaking up. Can you hear me alright?",
		}},
		{ID: IDConnectionEnding, Texts: []string{
			"I'm having real trouble hearing you, so I'll let you go and try again another time. Sorry about that!",
		}},
		{ID: IDSilenceShort, Texts: []string{
			"Are you still there?",
			"Hello, can you hear me?",
		}},
		{ID: IDSilenceMedium, Texts: []string{
			"I haven't heard anything for a bit. Is now still a good time to talk?",
		}},
		{ID: IDSilenceLong, Texts: []string{
			"It seems like we may have lost each other, so I'll let you go for now. Feel free to call {business_name} back at {business_phone}. Take care!",
		}},
		{ID: IDRedirect, Texts: []string{
			"That makes sense. So I don't take up too much of your time, let me get back to why I called.",
			"I hear you. Just so I'm respectful of your time, let me circle back to the reason for my call.",
		}},
		{ID: IDClosingStandard, Texts: []string{
			"Thanks so much for your time today. Have a great rest of your day!",
			"I appreciate you taking my call. Take care!",
		}},
		{ID: IDClosingUpset, Texts: []string{
			"I'm sorry again for the trouble. Thank you for your patience, and I'll let you go now.",
		}},
		{ID: IDClosingConnection, Texts: []string{
			"Since the line isn't cooperating, I'll let you go. Thanks for bearing with me!",
		}},
		{ID: IDCheckInNeeds, Texts: []string{
			"Before I let you go, is there anything else I can help you with?",
			"Was there anything else you wanted to ask before we wrap up?",
		}},
		{ID: IDComplianceDNC, Texts: []string{
			"Understood. I'll make sure you're removed from our call list right away. Sorry for the bother, and have a good day.",
		}},
		{ID: IDComplianceEmergency, Texts: []string{
			"This sounds urgent, so please hang up and dial 911 right away. I'll end the call now so your line is free.",
		}},
		{ID: IDComplianceLegal, Texts: []string{
			"I understand. I'll note your request and make sure the right people at {business_name} follow up. You can also reach us at {business_phone}.",
		}},
		{ID: IDComplianceMinor, Texts: []string{
			"It sounds like I may not be speaking with an adult, so I'll end the call here. Sorry for the interruption.",
		}},
		{ID: IDIdentityVerify, Texts: []string{
			"Just to make sure I have the right person, am I speaking with {caller_name}?",
		}},
		{ID: IDIdentityWrongPerson, Texts: []string{
			"My apologies, it sounds like I've reached the wrong person. Sorry to bother you, have a good day.",
		}},
		{ID: IDVoicemail, Texts: []string{
			"Hi, this is {agent_name} from {business_name}. Sorry I missed you! You can reach us back at {business_phone}. Have a great day.",
		}},
		{ID: IDKnowledgeDeferral, Texts: []string{
			"That's a great question, and I want to get you an accurate answer. Let me have someone from {business_name} follow up with the details.",
		}},
		{ID: IDHumanCallback, Texts: []string{
			"I don't want to keep guessing at this. Let me arrange for someone from {business_name} to give you a call back and sort it out properly.",
		}},
		{ID: IDFiller, Texts: []string{
			"One moment.",
			"Let me see.",
			"Okay, just a second.",
			"Mm-hmm, let me check.",
		}},
		{ID: IDSafetyNet, Texts: []string{
			"I'm sorry, could you give me just a moment?",
		}},
		{ID: EmpathyID("angry"), Texts: []string{
			"I completely understand your frustration, and I'm sorry about that.",
			"You're right to be upset, and I apologize.",
		}},
		{ID: EmpathyID("upset"), Texts: []string{
			"I'm really sorry to hear that.",
			"That sounds hard, and I'm sorry.",
		}},
		{ID: EmpathyID("stressed"), Texts: []string{
			"I hear you, and I'll keep this quick.",
			"I understand you have a lot going on.",
		}},
		{ID: EmpathyID("frustrated"), Texts: []string{
			"I understand how frustrating that is.",
		}},
		{ID: EmpathyID("confused"), Texts: []string{
			"No problem at all, let me explain that more clearly.",
		}},
	}
	out := make(map[string]Entry, len(list))
	for _, e := range list {
		out[e.ID] = e
	}
	return out
}
