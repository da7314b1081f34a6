package story

import (
	"saga-server/internal/models"
	"saga-server/internal/progress"
)

// challengeChapter adds outcome-dependent rewards, failure consequences and
// the optional secret alternate chapter on top of the base behavior.
type challengeChapter struct {
	baseChapter
}

func (c *challengeChapter) Start(p *models.StoryProgress) (*models.StoryProgress, models.Presentation) {
	next, pres := c.start(p, c.dialogueSequence())
	if p.CompletedChallenges[c.id] {
		pres.AlreadyCompleted = true
	}
	if p.FailedChallenges[c.id] {
		pres.AlreadyFailed = true
	}
	return next, pres
}

func (c *challengeChapter) Advance(p *models.StoryProgress, choiceIndex int) (*models.StoryProgress, models.Presentation) {
	return c.advance(p, c.dialogueSequence(), choiceIndex)
}

func (c *challengeChapter) Choices(p *models.StoryProgress) []models.Choice {
	return choicesAt(c.def, c.dialogueSequence(), p.DialogueIndex)
}

func (c *challengeChapter) Presentation(p *models.StoryProgress) models.Presentation {
	pres := c.presentationAt(p, c.dialogueSequence())
	if p.CompletedChallenges[c.id] {
		pres.AlreadyCompleted = true
	}
	return pres
}

// Complete routes the reward by the challenge outcome: the reward table is
// consulted first (exact outcome key, then default), falling back to the
// chapter's flat rewards. A failure outcome records the failed challenge
// and applies the failure-consequence attribute deltas instead.
func (c *challengeChapter) Complete(p *models.StoryProgress) *models.StoryProgress {
	if progress.IsChapterCompleted(p, c.id) || p.FailedChallenges[c.id] {
		return p.Clone()
	}

	outcome := p.ChallengeOutcome
	if outcome == models.OutcomeFailure {
		next := progress.FailChallenge(p, c.id)
		for attr, delta := range c.def.FailureConsequences {
			next.Attributes[attr] += delta
		}
		return next
	}

	next := progress.CompleteChapter(p, c.id)
	next = progress.GrantRewards(next, c.rewardsFor(outcome))
	if outcome == models.OutcomeSuccess && c.def.SecretChapter != "" {
		next = progress.DiscoverSecret(next, c.def.SecretChapter)
	}
	return next
}

func (c *challengeChapter) rewardsFor(outcome string) models.RewardSet {
	if rewards, ok := c.def.RewardTable[outcome]; ok {
		return rewards
	}
	if rewards, ok := c.def.RewardTable[models.OutcomeDefault]; ok {
		return rewards
	}
	return c.def.Rewards
}

func (c *challengeChapter) ResolveNext(p *models.StoryProgress) (string, bool) {
	return resolveNext(c.id, c.def, p)
}
