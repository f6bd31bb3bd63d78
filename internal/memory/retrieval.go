package memory

import (
	"context"
	"sort"

	"github.com/driftwood-studio/loom/internal/collab"
	"github.com/driftwood-studio/loom/internal/project"
	"github.com/driftwood-studio/loom/internal/story"
)

// Fallback selection bounds.
const (
	maxFallbackSummaries     = 3
	maxFallbackFacts         = 20
	maxFallbackWorldbuilding = 10
	maxFallbackQuestions     = 5
	maxFallbackSetups        = 5
)

// Engine selects a bounded, relevant subset of stored narrative state for
// a generation request. It prefers AI-assisted selection, where the
// collaborator returns identifier lists that are materialized strictly by
// filtering local collections; the collaborator never supplies content, so
// a hallucinated reply can at worst select badly, not fabricate state.
// Any collaborator failure degrades silently to a deterministic heuristic.
type Engine struct {
	store  project.Store
	collab collab.Collaborator
}

// NewEngine creates a context retrieval engine.
func NewEngine(store project.Store, c collab.Collaborator) *Engine {
	return &Engine{store: store, collab: c}
}

// ContextOptions describes the generation request needing context.
type ContextOptions struct {
	ProjectID            string
	CurrentChapterNumber int
	CurrentScene         string // optional
	POVCharacterID       string // optional
	TaskDescription      string // optional
	Focus                string // optional
}

// retrieveReply is the collaborator's JSON shape for retrieve-context.
// All relevant* fields are identifier lists, never content.
type retrieveReply struct {
	RelevantSummaryIds        []string `json:"relevantSummaryIds"`
	RelevantCharacterStateIds []string `json:"relevantCharacterStateIds"`
	RelevantFactIds           []string `json:"relevantFactIds"`
	RelevantWorldbuildingIds  []string `json:"relevantWorldbuildingIds"`
	ActiveSubplotIds          []string `json:"activeSubplotIds"`
	OpenQuestions             []string `json:"openQuestions"`
	RecentEmotionalBeats      []string `json:"recentEmotionalBeats"`
	UnresolvedSetups          []string `json:"unresolvedSetups"`
}

// annotatedState pairs a character's latest snapshot with its name so the
// collaborator can reason about who is who.
type annotatedState struct {
	CharacterName string                        `json:"characterName"`
	State         story.CharacterKnowledgeState `json:"state"`
}

// RelevantContext assembles the story memory context for a generation
// request. The returned context is always valid: collaborator failures of
// any kind fall back to BuildBasicContext and are not surfaced. The only
// error path is failing to load the project itself.
func (e *Engine) RelevantContext(ctx context.Context, gate *collab.Gate, opts ContextOptions) (*story.StoryMemoryContext, error) {
	p, err := e.store.GetProject(ctx, opts.ProjectID)
	if err != nil {
		return nil, err
	}

	selected, ok := e.selectWithCollaborator(ctx, gate, p, opts)
	if !ok {
		basic := BuildBasicContext(p, opts)
		return &basic, nil
	}
	return selected, nil
}

// selectWithCollaborator runs the AI-assisted tier. The bool result is
// false on any failure: call error, empty reply, or unparsable JSON.
func (e *Engine) selectWithCollaborator(ctx context.Context, gate *collab.Gate, p *story.Project, opts ContextOptions) (*story.StoryMemoryContext, bool) {
	latest := latestStatesAnnotated(p)

	var reply string
	err := gate.Do(func() error {
		var callErr error
		reply, callErr = e.collab.Complete(ctx, collab.Request{
			Target: collab.TargetStoryMemory,
			Action: collab.ActionRetrieveContext,
			Context: map[string]any{
				"request": map[string]any{
					"currentChapterNumber": opts.CurrentChapterNumber,
					"currentScene":         opts.CurrentScene,
					"povCharacterId":       opts.POVCharacterID,
					"taskDescription":      opts.TaskDescription,
					"focus":                opts.Focus,
				},
				"chapterSummaries": p.ChapterSummaries,
				"characterStates":  latest,
				"facts":            p.FactAssertions,
				"activeSubplots":   p.ActiveSubplots(),
				"worldbuilding":    p.WikiEntries,
			},
		})
		return callErr
	})
	if err != nil || reply == "" {
		return nil, false
	}

	var parsed retrieveReply
	if err := collab.DecodeReply(reply, &parsed); err != nil {
		return nil, false
	}

	return materialize(p, parsed), true
}

// materialize builds the context strictly by filtering local collections
// against the reply's identifier lists. Free-form fields pass through as
// they have no stored counterpart to resolve against.
func materialize(p *story.Project, reply retrieveReply) *story.StoryMemoryContext {
	out := &story.StoryMemoryContext{
		RelevantSummaries:       []story.ChapterSummary{},
		RelevantCharacterStates: []story.CharacterKnowledgeState{},
		RelevantFacts:           []story.FactAssertion{},
		RelevantWorldbuilding:   []story.WikiEntry{},
		ActiveSubplots:          []story.Subplot{},
		OpenQuestions:           orEmpty(reply.OpenQuestions),
		RecentEmotionalBeats:    orEmpty(reply.RecentEmotionalBeats),
		UnresolvedSetups:        orEmpty(reply.UnresolvedSetups),
	}

	summaryIDs := toSet(reply.RelevantSummaryIds)
	for _, s := range p.ChapterSummaries {
		if summaryIDs[s.ID] {
			out.RelevantSummaries = append(out.RelevantSummaries, s)
		}
	}

	for _, characterID := range reply.RelevantCharacterStateIds {
		if state := CurrentState(p.CharacterKnowledge, characterID); state != nil {
			out.RelevantCharacterStates = append(out.RelevantCharacterStates, *state)
		}
	}

	factIDs := toSet(reply.RelevantFactIds)
	for _, f := range p.FactAssertions {
		if factIDs[f.ID] {
			out.RelevantFacts = append(out.RelevantFacts, f)
		}
	}

	wikiIDs := toSet(reply.RelevantWorldbuildingIds)
	for _, w := range p.WikiEntries {
		if wikiIDs[w.ID] {
			out.RelevantWorldbuilding = append(out.RelevantWorldbuilding, w)
		}
	}

	subplotIDs := toSet(reply.ActiveSubplotIds)
	for _, sp := range p.Subplots {
		if subplotIDs[sp.ID] && sp.IsActive() {
			out.ActiveSubplots = append(out.ActiveSubplots, sp)
		}
	}

	return out
}

// BuildBasicContext is the deterministic fallback selection. It is a pure
// function of the aggregate and the request, independent of any network
// call, and always respects the fallback bounds.
func BuildBasicContext(p *story.Project, opts ContextOptions) story.StoryMemoryContext {
	out := story.StoryMemoryContext{
		RelevantSummaries:       []story.ChapterSummary{},
		RelevantCharacterStates: []story.CharacterKnowledgeState{},
		RelevantFacts:           []story.FactAssertion{},
		RelevantWorldbuilding:   []story.WikiEntry{},
		ActiveSubplots:          []story.Subplot{},
		OpenQuestions:           []string{},
		RecentEmotionalBeats:    []string{}, // only the AI-assisted tier fills this
		UnresolvedSetups:        []string{},
	}

	// The 3 most recent summaries at or before the current chapter.
	eligible := []story.ChapterSummary{}
	for _, s := range p.ChapterSummaries {
		if s.ChapterNumber <= opts.CurrentChapterNumber {
			eligible = append(eligible, s)
		}
	}
	sort.SliceStable(eligible, func(i, j int) bool {
		return eligible[i].ChapterNumber > eligible[j].ChapterNumber
	})
	if len(eligible) > maxFallbackSummaries {
		eligible = eligible[:maxFallbackSummaries]
	}
	out.RelevantSummaries = eligible

	// Current snapshot for every character that has any snapshot,
	// in first-seen order.
	seen := map[string]bool{}
	for _, state := range p.CharacterKnowledge {
		if seen[state.CharacterID] {
			continue
		}
		seen[state.CharacterID] = true
		if current := CurrentState(p.CharacterKnowledge, state.CharacterID); current != nil {
			out.RelevantCharacterStates = append(out.RelevantCharacterStates, *current)
		}
	}

	for i, f := range p.FactAssertions {
		if i >= maxFallbackFacts {
			break
		}
		out.RelevantFacts = append(out.RelevantFacts, f)
	}

	for i, w := range p.WikiEntries {
		if i >= maxFallbackWorldbuilding {
			break
		}
		out.RelevantWorldbuilding = append(out.RelevantWorldbuilding, w)
	}

	out.ActiveSubplots = p.ActiveSubplots()

	for _, s := range out.RelevantSummaries {
		out.OpenQuestions = appendUnique(out.OpenQuestions, s.OpenQuestions, maxFallbackQuestions)
		out.UnresolvedSetups = appendUnique(out.UnresolvedSetups, s.Foreshadowing, maxFallbackSetups)
	}

	return out
}

// latestStatesAnnotated returns the current snapshot of every character
// that has one, annotated with the character's roster name.
func latestStatesAnnotated(p *story.Project) []annotatedState {
	out := []annotatedState{}
	seen := map[string]bool{}
	for _, state := range p.CharacterKnowledge {
		if seen[state.CharacterID] {
			continue
		}
		seen[state.CharacterID] = true
		current := CurrentState(p.CharacterKnowledge, state.CharacterID)
		if current == nil {
			continue
		}
		name := current.CharacterID
		if c := p.CharacterByID(current.CharacterID); c != nil {
			name = c.Name
		}
		out = append(out, annotatedState{CharacterName: name, State: *current})
	}
	return out
}

func toSet(ids []string) map[string]bool {
	set := make(map[string]bool, len(ids))
	for _, id := range ids {
		set[id] = true
	}
	return set
}

// appendUnique appends values not already present, up to the cap.
func appendUnique(dst, values []string, limit int) []string {
	existing := toSet(dst)
	for _, v := range values {
		if len(dst) >= limit {
			break
		}
		if v == "" || existing[v] {
			continue
		}
		existing[v] = true
		dst = append(dst, v)
	}
	return dst
}
