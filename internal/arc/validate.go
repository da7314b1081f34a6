package arc

import (
	"fmt"
	"strings"

	"saga-server/internal/story"
)

// IssueKind classifies a structural validation finding.
type IssueKind string

const (
	IssueEmptyArc            IssueKind = "empty_arc"
	IssueDuplicateChapter    IssueKind = "duplicate_chapter"
	IssueDeadEnd             IssueKind = "dead_end"
	IssueUnreachable         IssueKind = "unreachable"
	IssueMissingPrerequisite IssueKind = "missing_prerequisite"
	IssueUnknownArc          IssueKind = "unknown_arc_reference"
	IssueCircularPrereq      IssueKind = "circular_prerequisite"
)

// Issue is one collected validation finding. Findings never abort startup;
// the registry stays operable and operators act on the log.
type Issue struct {
	Kind      IssueKind
	ArcID     string
	ChapterID string
	Detail    string
}

func (i Issue) String() string {
	return fmt.Sprintf("%s arc=%s chapter=%s: %s", i.Kind, i.ArcID, i.ChapterID, i.Detail)
}

// ValidateStructure runs the per-arc and cross-arc structural checks.
//
// Circular prerequisite detection is first-order only (A requires B which
// directly requires A); longer cycles are a known limitation.
func (m *Manager) ValidateStructure() []Issue {
	var issues []Issue

	seen := make(map[string]string) // chapter id -> owning arc
	for _, a := range m.arcs {
		if len(a.defs) == 0 {
			issues = append(issues, Issue{Kind: IssueEmptyArc, ArcID: a.ID, Detail: "arc owns no chapters"})
			continue
		}

		for _, chapterID := range a.order {
			if owner, dup := seen[chapterID]; dup {
				issues = append(issues, Issue{
					Kind: IssueDuplicateChapter, ArcID: a.ID, ChapterID: chapterID,
					Detail: fmt.Sprintf("already defined in arc %q", owner),
				})
			} else {
				seen[chapterID] = a.ID
			}

			def := a.defs[chapterID]
			if def.Next.IsZero() && len(def.Branches) == 0 && !def.Terminal {
				issues = append(issues, Issue{
					Kind: IssueDeadEnd, ArcID: a.ID, ChapterID: chapterID,
					Detail: "no next_chapter and no branches, not marked terminal",
				})
			}

			if def.Requirements != nil {
				for _, prereq := range def.Requirements.Chapters {
					if !m.resolves(prereq) {
						issues = append(issues, Issue{
							Kind: IssueMissingPrerequisite, ArcID: a.ID, ChapterID: chapterID,
							Detail: fmt.Sprintf("prerequisite %q resolves to nothing", prereq),
						})
					} else if m.directCycle(chapterID, prereq) {
						issues = append(issues, Issue{
							Kind: IssueCircularPrereq, ArcID: a.ID, ChapterID: chapterID,
							Detail: fmt.Sprintf("requires %q which directly requires %q back", prereq, chapterID),
						})
					}
				}
			}
		}

		issues = append(issues, m.checkReachability(a)...)
	}

	for _, a := range m.arcs {
		gate, ok := a.Gate.(ProgressGate)
		if !ok {
			continue
		}
		for prefix := range gate.Thresholds {
			if !m.prefixKnown(prefix) {
				issues = append(issues, Issue{
					Kind: IssueUnknownArc, ArcID: a.ID,
					Detail: fmt.Sprintf("required-progress prefix %q matches no known chapter", prefix),
				})
			}
		}
	}

	return issues
}

// resolves reports whether an id lands on a definition, including the
// suffix-synthesis fallback.
func (m *Manager) resolves(id string) bool {
	_, err := m.GetChapter(id)
	return err == nil
}

// directCycle detects A-requires-B-requires-A pairs only.
func (m *Manager) directCycle(chapterID, prereq string) bool {
	for _, a := range m.arcs {
		def, ok := a.Definition(prereq)
		if !ok || def.Requirements == nil {
			continue
		}
		for _, back := range def.Requirements.Chapters {
			if back == chapterID {
				return true
			}
		}
	}
	return false
}

// prefixKnown reports whether any registered chapter id starts with the
// given progress-gate prefix.
func (m *Manager) prefixKnown(prefix string) bool {
	for _, a := range m.arcs {
		for _, id := range a.order {
			if strings.HasPrefix(id, prefix) {
				return true
			}
		}
	}
	return false
}

// checkReachability walks next-chapter references and branch targets from
// the arc entry and flags unvisited chapters.
func (m *Manager) checkReachability(a *Arc) []Issue {
	if _, ok := a.defs[a.Entry]; !ok {
		return nil
	}
	visited := make(map[string]bool, len(a.defs))
	queue := []string{a.Entry}
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		if visited[id] {
			continue
		}
		visited[id] = true

		def, ok := a.defs[id]
		if !ok {
			// A suffixed variant resolves onto its base definition, so the
			// base counts as reached and its outgoing references are walked.
			if idx := strings.LastIndex(id, "_"); idx > 0 {
				queue = append(queue, id[:idx])
			}
			continue
		}
		var targets []string
		if def.Next.ID != "" {
			targets = append(targets, story.InheritPrefix(id, def.Next.ID))
		}
		for _, next := range def.Next.ByOutcome {
			targets = append(targets, next)
		}
		for _, next := range def.Next.ByClub {
			targets = append(targets, next)
		}
		for _, branch := range def.Branches {
			targets = append(targets, branch.NextChapter)
		}
		if def.SecretChapter != "" {
			targets = append(targets, def.SecretChapter)
		}
		queue = append(queue, targets...)
	}

	var issues []Issue
	for _, chapterID := range a.order {
		if !visited[chapterID] {
			issues = append(issues, Issue{
				Kind: IssueUnreachable, ArcID: a.ID, ChapterID: chapterID,
				Detail: fmt.Sprintf("not reachable from entry %q", a.Entry),
			})
		}
	}
	return issues
}
