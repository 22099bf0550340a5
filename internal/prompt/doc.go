// Package prompt builds the chat messages sent to an LLM for a
// troubleshooting request.
//
// Two audiences are supported. [ModeBeginner] asks for a short triage and
// three explicit step-by-step fixes with verification; [ModeAdvanced] asks
// for prioritized remediation with exact commands. Both ask for plain text,
// a confidence level and no destructive commands.
//
//	msgs, err := prompt.Build(prompt.ParseMode(req.Mode), prompt.BuildOptions{
//	    Log:      redacted,
//	    Metadata: map[string]string{"service": "api"},
//	})
//	if err != nil {
//	    return err
//	}
//	resp, err := provider.Chat(ctx, msgs, chatOpts)
//
// Callers must redact the log before building a prompt.
package prompt
