package models

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// outcome keys recognized in a conditional next_chapter table; any other
// key set is treated as a club table.
var outcomeKeys = map[string]bool{
	OutcomeSuccess: true,
	OutcomeFailure: true,
	OutcomeDefault: true,
}

// UnmarshalYAML accepts the two authored forms of next_chapter: a literal
// chapter id, or a mapping. A mapping whose keys are all outcome keys is an
// outcome table; anything else is a club table.
func (l *ChapterLink) UnmarshalYAML(value *yaml.Node) error {
	switch value.Kind {
	case yaml.ScalarNode:
		var id string
		if err := value.Decode(&id); err != nil {
			return err
		}
		*l = ChapterLink{ID: id}
		return nil

	case yaml.MappingNode:
		table := map[string]string{}
		if err := value.Decode(&table); err != nil {
			return err
		}
		byOutcome := true
		for key := range table {
			if !outcomeKeys[key] {
				byOutcome = false
				break
			}
		}
		if byOutcome {
			*l = ChapterLink{ByOutcome: table}
		} else {
			*l = ChapterLink{ByClub: table}
		}
		return nil

	default:
		return fmt.Errorf("next_chapter: ожидается строка или таблица, получен узел kind=%d", value.Kind)
	}
}
