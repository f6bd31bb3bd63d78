package collab

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

// AssemblePrompt renders a structured request into the prompt text sent to
// the provider. Each action gets its own instruction block; the request
// context is embedded as labelled JSON sections so the model sees exactly
// the data the caller selected, nothing more.
func AssemblePrompt(req Request) (string, error) {
	switch req.Action {
	case ActionSummarizeChapter:
		return assembleSummarizePrompt(req), nil
	case ActionUpdateKnowledge:
		return assembleKnowledgePrompt(req), nil
	case ActionRetrieveContext:
		return assembleRetrievePrompt(req), nil
	default:
		return "", fmt.Errorf("%w: unknown action %q", ErrInvalidConfig, req.Action)
	}
}

func assembleSummarizePrompt(req Request) string {
	var b strings.Builder

	b.WriteString("You are a continuity editor for a long-form fiction project. ")
	b.WriteString("Your task is to distill one chapter into a structured summary that a ")
	b.WriteString("future writing session can rely on for narrative consistency.\n\n")

	writeContextSections(&b, req.Context)

	b.WriteString("# Task\n\n")
	b.WriteString("Return ONLY a JSON object with these fields:\n")
	b.WriteString("- summary: 2-4 sentence narrative summary of the chapter\n")
	b.WriteString("- keyEvents: array of concrete events that occurred\n")
	b.WriteString("- charactersPresent: array of character names appearing in the chapter\n")
	b.WriteString("- locationsUsed: array of locations the chapter takes place in\n")
	b.WriteString("- emotionalBeats: array of emotional shifts or moments\n")
	b.WriteString("- plotBeatsAdvanced: array of main-plot developments\n")
	b.WriteString("- subplotsTouched: array of subplot names advanced here\n")
	b.WriteString("- foreshadowing: array of setups that must pay off later\n")
	b.WriteString("- payoffs: array of earlier setups resolved in this chapter\n")
	b.WriteString("- cliffhanger: the chapter-ending hook, or null if none\n")
	b.WriteString("- openQuestions: array of questions the chapter leaves open\n\n")
	b.WriteString("Base every field strictly on the chapter text. Do not invent events, ")
	b.WriteString("names, or locations that do not appear in it. Output the JSON object ")
	b.WriteString("with no surrounding prose or code fences.\n")

	return b.String()
}

func assembleKnowledgePrompt(req Request) string {
	var b strings.Builder

	b.WriteString("You are a continuity editor tracking what each character knows, ")
	b.WriteString("believes, and wants. Update one character's epistemic state after ")
	b.WriteString("the events of a new chapter.\n\n")

	writeContextSections(&b, req.Context)

	b.WriteString("# Task\n\n")
	b.WriteString("Starting from previousKnowledgeState (if present), fold in what this ")
	b.WriteString("character experienced or learned in the new chapter. Knowledge is ")
	b.WriteString("cumulative: carry forward everything still true, revise beliefs that ")
	b.WriteString("events contradicted, and only include information this character could ")
	b.WriteString("plausibly have witnessed or been told.\n\n")
	b.WriteString("Return ONLY a JSON object with these fields:\n")
	b.WriteString("- knownFacts: array of facts the character now knows\n")
	b.WriteString("- beliefs: array of things the character believes (possibly wrongly)\n")
	b.WriteString("- secrets: array of things the character knows but conceals\n")
	b.WriteString("- relationships: object mapping other character ids to a short descriptor\n")
	b.WriteString("- emotionalState: one-line description of current emotional state\n")
	b.WriteString("- activeGoals: array of goals currently driving the character\n")
	b.WriteString("- recentExperiences: array of experiences from the latest chapter\n\n")
	b.WriteString("Output the JSON object with no surrounding prose or code fences.\n")

	return b.String()
}

func assembleRetrievePrompt(req Request) string {
	var b strings.Builder

	b.WriteString("You are a continuity editor selecting which stored narrative state is ")
	b.WriteString("relevant to an upcoming piece of prose. You select by identifier only; ")
	b.WriteString("you never restate or rewrite the stored content.\n\n")

	writeContextSections(&b, req.Context)

	b.WriteString("# Task\n\n")
	b.WriteString("Pick the entries most relevant to the described writing task. Prefer ")
	b.WriteString("recent chapters, the point-of-view character, and any character, fact, ")
	b.WriteString("or subplot the task mentions. Keep each list small and high-signal.\n\n")
	b.WriteString("Return ONLY a JSON object with these fields:\n")
	b.WriteString("- relevantSummaryIds: array of chapter summary ids\n")
	b.WriteString("- relevantCharacterStateIds: array of character ids whose state matters\n")
	b.WriteString("- relevantFactIds: array of fact ids\n")
	b.WriteString("- relevantWorldbuildingIds: array of worldbuilding entry ids\n")
	b.WriteString("- activeSubplotIds: array of subplot ids\n")
	b.WriteString("- openQuestions: array of open narrative questions to keep in mind\n")
	b.WriteString("- recentEmotionalBeats: array of recent emotional beats to honor\n")
	b.WriteString("- unresolvedSetups: array of setups still awaiting payoff\n\n")
	b.WriteString("Use only ids that appear in the inventory above. Output the JSON object ")
	b.WriteString("with no surrounding prose or code fences.\n")

	return b.String()
}

// writeContextSections renders each context entry as a titled section.
// Strings are written verbatim; everything else is marshalled as JSON.
// Keys are sorted so prompts are stable for a given request.
func writeContextSections(b *strings.Builder, context map[string]any) {
	if len(context) == 0 {
		return
	}

	keys := make([]string, 0, len(context))
	for k := range context {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, key := range keys {
		value := context[key]
		if value == nil {
			continue
		}

		b.WriteString(fmt.Sprintf("# %s\n\n", key))

		switch v := value.(type) {
		case string:
			if v == "" {
				b.WriteString("(none)\n\n")
				continue
			}
			b.WriteString(v)
			b.WriteString("\n\n")
		default:
			encoded, err := json.MarshalIndent(v, "", "  ")
			if err != nil {
				b.WriteString("(unrenderable)\n\n")
				continue
			}
			b.WriteString("```json\n")
			b.Write(encoded)
			b.WriteString("\n```\n\n")
		}
	}
}
