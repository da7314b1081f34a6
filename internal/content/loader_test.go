package content_test

import (
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"saga-server/internal/arc"
	"saga-server/internal/content"
	"saga-server/internal/models"
)

const firstYearYAML = `
id: first_year
name: First Year
entry: "1_1"
chapters:
  - id: "1_1"
    type: story
    title: Arrival
    description: The gates open.
    dialogues:
      - text: A porter waves you in.
        choices:
          - text: Nod
            moral: neutral
          - text: Slip a coin
            faction_effects:
              undercroft: 10
    next_chapter: "2"
  - id: "1_2"
    type: challenge
    title: The Proving Ground
    description: Chalk rings on the floor.
    dialogues:
      - text: The proctor raises a hand.
    reward_table:
      success:
        experience: 50
      default:
        experience: 10
    next_chapter:
      success: "1_3"
      failure: "1_2_remedial"
      default: "1_3"
  - id: "1_3"
    type: story
    title: Clubs
    description: Recruitment day.
    dialogues:
      - text: Banners everywhere.
    next_chapter:
      duelists: "1_4_duel"
      default: "1_4"
  - id: "1_4"
    type: story
    title: Closing
    description: The day ends.
    dialogues:
      - text: Lights out.
    terminal: true
  - id: 1_4_duel
    type: story
    title: Closing Duel
    description: One last bout.
    dialogues:
      - text: Steel rings.
    terminal: true
  - id: 1_2_remedial
    type: story
    title: Remedial
    description: Extra drills.
    dialogues:
      - text: Again.
    next_chapter: "3"
`

func TestLoadArc(t *testing.T) {
	loader := content.NewLoader(zap.NewNop())
	a, err := loader.LoadArc([]byte(firstYearYAML))
	require.NoError(t, err)
	assert.Equal(t, "first_year", a.ID)
	assert.Equal(t, "1_1", a.Entry)
	assert.Len(t, a.ChapterIDs(), 6)

	t.Run("Literal next chapter", func(t *testing.T) {
		def, ok := a.Definition("1_1")
		require.True(t, ok)
		assert.Equal(t, "2", def.Next.ID)
		assert.Empty(t, def.Next.ByOutcome)
	})

	t.Run("Outcome table recognized by its keys", func(t *testing.T) {
		def, ok := a.Definition("1_2")
		require.True(t, ok)
		assert.Equal(t, "1_2_remedial", def.Next.ByOutcome[models.OutcomeFailure])
		assert.Empty(t, def.Next.ByClub)
		assert.Equal(t, 50, def.RewardTable[models.OutcomeSuccess].Experience)
	})

	t.Run("Any other key set becomes a club table", func(t *testing.T) {
		def, ok := a.Definition("1_3")
		require.True(t, ok)
		assert.Equal(t, "1_4_duel", def.Next.ByClub["duelists"])
		assert.Equal(t, "1_4", def.Next.ByClub["default"])
		assert.Empty(t, def.Next.ByOutcome)
	})

	t.Run("Choice metadata survives", func(t *testing.T) {
		def, ok := a.Definition("1_1")
		require.True(t, ok)
		choices := def.Dialogues[0].Choices
		require.Len(t, choices, 2)
		assert.Equal(t, "neutral", choices[0].Moral)
		assert.Equal(t, 10, choices[1].FactionEffects["undercroft"])
	})
}

func TestLoadArcSkipsInvalidChapters(t *testing.T) {
	raw := []byte(`
id: broken
chapters:
  - id: "1_1"
    type: story
    title: Fine
    description: ok
    dialogues:
      - text: Still standing.
    terminal: true
  - id: "1_2"
    type: waltz
    title: Broken kind
    description: bad
`)
	loader := content.NewLoader(zap.NewNop())
	a, err := loader.LoadArc(raw)
	require.NoError(t, err)
	assert.Equal(t, []string{"1_1"}, a.ChapterIDs())
}

func TestLoadArcSkipsContentlessChapters(t *testing.T) {
	loader := content.NewLoader(zap.NewNop())

	t.Run("Story without dialogues or choices is skipped", func(t *testing.T) {
		raw := []byte(`
id: hollow
chapters:
  - id: "1_1"
    type: story
    title: Empty
    description: Nothing to play.
    terminal: true
  - id: "1_2"
    type: story
    title: Choice only
    description: No narration needed.
    choices:
      - text: Go on
    terminal: true
`)
		a, err := loader.LoadArc(raw)
		require.NoError(t, err)
		assert.Equal(t, []string{"1_2"}, a.ChapterIDs())
	})

	t.Run("Branching with only scenes is accepted", func(t *testing.T) {
		raw := []byte(`
id: forked
chapters:
  - id: "3_1"
    type: branching
    title: The Fork
    description: Two stairs.
    scenes:
      - id: landing
        dialogues:
          - text: The torch gutters.
    terminal: true
`)
		a, err := loader.LoadArc(raw)
		require.NoError(t, err)
		assert.Equal(t, []string{"3_1"}, a.ChapterIDs())
	})

	t.Run("Scenes do not save a story chapter", func(t *testing.T) {
		raw := []byte(`
id: hollow
chapters:
  - id: "1_1"
    type: story
    title: Misfiled
    description: Scenes on a story chapter.
    scenes:
      - id: landing
        dialogues:
          - text: Unreachable.
    terminal: true
`)
		_, err := loader.LoadArc(raw)
		assert.ErrorIs(t, err, models.ErrInvalidContent)
	})
}

func TestLoadArcErrors(t *testing.T) {
	loader := content.NewLoader(zap.NewNop())

	t.Run("Unparseable file", func(t *testing.T) {
		_, err := loader.LoadArc([]byte("{not yaml"))
		assert.ErrorIs(t, err, models.ErrInvalidContent)
	})

	t.Run("Missing arc id", func(t *testing.T) {
		_, err := loader.LoadArc([]byte("name: x\nchapters:\n  - id: \"1_1\"\n    type: story\n    title: t\n    description: d\n"))
		assert.ErrorIs(t, err, models.ErrInvalidContent)
	})

	t.Run("All chapters invalid", func(t *testing.T) {
		_, err := loader.LoadArc([]byte("id: x\nchapters:\n  - id: \"1_1\"\n    type: waltz\n    title: t\n    description: d\n"))
		assert.ErrorIs(t, err, models.ErrInvalidContent)
	})
}

func TestLoadArcGates(t *testing.T) {
	loader := content.NewLoader(zap.NewNop())

	t.Run("Club gate", func(t *testing.T) {
		raw := []byte(`
id: duel_track
gate:
  kind: club
  club_id: duelists
  required_level: 2
chapters:
  - id: "5_1"
    type: story
    title: t
    description: d
    dialogues:
      - text: En garde.
    terminal: true
`)
		a, err := loader.LoadArc(raw)
		require.NoError(t, err)
		gate, ok := a.Gate.(arc.ClubGate)
		require.True(t, ok)
		assert.Equal(t, "duelists", gate.ClubID)
		assert.Equal(t, 2, gate.RequiredLevel)
	})

	t.Run("Progress gate", func(t *testing.T) {
		raw := []byte(`
id: second_year
gate:
  kind: progress
  thresholds:
    "1_": 4
chapters:
  - id: "2_1"
    type: story
    title: t
    description: d
    dialogues:
      - text: The keep again.
    terminal: true
`)
		a, err := loader.LoadArc(raw)
		require.NoError(t, err)
		gate, ok := a.Gate.(arc.ProgressGate)
		require.True(t, ok)
		assert.Equal(t, 4, gate.Thresholds["1_"])
	})

	t.Run("Unknown gate kind", func(t *testing.T) {
		raw := []byte(`
id: x
gate:
  kind: moonphase
chapters:
  - id: "1_1"
    type: story
    title: t
    description: d
    dialogues:
      - text: Moonrise.
    terminal: true
`)
		_, err := loader.LoadArc(raw)
		assert.Error(t, err)
	})
}

func TestLoadDir(t *testing.T) {
	loader := content.NewLoader(zap.NewNop())

	t.Run("Loads every yaml file", func(t *testing.T) {
		fsys := fstest.MapFS{
			"first.yaml": {Data: []byte(firstYearYAML)},
			"notes.txt":  {Data: []byte("ignored")},
			"second.yml": {Data: []byte("id: second\nchapters:\n  - id: \"2_1\"\n    type: story\n    title: t\n    description: d\n    dialogues:\n      - text: Anew.\n    terminal: true\n")},
		}
		arcs, err := loader.LoadDir(fsys)
		require.NoError(t, err)
		assert.Len(t, arcs, 2)
	})

	t.Run("Empty directory is an error", func(t *testing.T) {
		_, err := loader.LoadDir(fstest.MapFS{})
		assert.ErrorIs(t, err, models.ErrInvalidContent)
	})
}
