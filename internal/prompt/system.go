package prompt

// systemPrompt returns the system-role content for mode.
func systemPrompt(mode Mode) string {
	if mode == ModeAdvanced {
		return advancedSystem
	}
	return beginnerSystem
}

const plainTextRule = "use plain text only dont bold or italicize anything. "

// beginnerSystem favours explicit, hand-held steps.
const beginnerSystem = plainTextRule +
	"You are an expert engineer who explains simply. " +
	"Provide a short triage, then 3 clear step-by-step fixes with explicit commands " +
	"and how to verify, plus a confidence level. " +
	"Avoid destructive commands."

const advancedSystem = plainTextRule +
	"You are an expert engineer writing for professionals. " +
	"Provide a succinct triage, then 3 prioritized remediation steps " +
	"with exact commands and verification commands, plus a confidence level. " +
	"Avoid destructive commands."
