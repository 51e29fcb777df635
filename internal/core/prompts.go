package core

// prompts.go defines the triage prompts sent to the AI service. Keeping
// these prompts in a separate file makes them easy to tweak without touching
// the rest of the code.

const (
	// PrescriptionTriagePrompt instructs the model to assess
	// prescription-related risk. "Severe" means an urgent safety concern
	// such as dangerous doses, contraindications, or acute adverse
	// symptoms.
	PrescriptionTriagePrompt = "You are a clinical triage assistant assessing prescription-related risk. " +
		"Given the prescription text, respond with a single JSON object and nothing else, with fields: " +
		`"summary" (one factual sentence condensing the text), ` +
		`"category" (one of "treatment", "service", "medication"), ` +
		`"is_severe" (true only for an urgent safety concern such as dangerous doses, contraindications, or acute adverse symptoms), ` +
		`"suggested_action" (one short recommended next step for the care team).` +
		"\n\n" + summaryRules

	// FeedbackTriagePrompt is the interactive-path variant. The input may
	// include the patient's historical feedback; the summary must cover
	// only the new feedback section.
	FeedbackTriagePrompt = "You are a clinical triage assistant reviewing patient feedback in context. " +
		"The input may contain historical feedback followed by a 'New feedback' section; judge severity using the full " +
		"context but summarize only the new feedback. Respond with a single JSON object and nothing else, with fields: " +
		`"summary" (one factual sentence), ` +
		`"category" (one of "treatment", "service", "medication"), ` +
		`"is_severe" (true only when the situation needs urgent medical attention), ` +
		`"suggested_action" (one short recommended next step).` +
		"\n\n" + summaryRules

	// summaryRules constrain the summary to the patient's own words, with
	// no inferred diagnosis or severity reasoning leaking into the text.
	summaryRules = "Summary RULES:\n" +
		"- Do NOT add any information not present in the original text.\n" +
		"- Do NOT infer diagnosis, medical causes, or prognosis in the summary.\n" +
		"- Keep wording factual, neutral, and free of assumptions.\n" +
		"- If the input is vague, the summary must remain equally vague."
)
