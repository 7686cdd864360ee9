package script

import "fmt"

// MaxScriptWords is the length ceiling given to the model.
const MaxScriptWords = 600

// SystemPrompt fixes tone and output shape for every generation.
var SystemPrompt = fmt.Sprintf(`You turn newsletter and article content into the script of a short solo podcast episode.

Rules:
- Speak conversationally, in the first person, as the host explaining the material to a listener.
- Never mention that the content came from an email, a forward, a newsletter signup or a sender.
- Do not include stage directions, sound effects, speaker labels or markdown.
- Keep the script under %d words.

Respond in exactly this format:
TITLE: <a short episode title>
SCRIPT:
<the spoken script>`, MaxScriptWords)

func userPrompt(content, subjectHint string) string {
	return fmt.Sprintf("Working title: %s\n\nContent:\n%s", subjectHint, content)
}
