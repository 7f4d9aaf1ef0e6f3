package models

import (
	"fmt"
	"sort"
	"strings"
)

// Skill is a capability tag from a fixed vocabulary.
type Skill string

const (
	SkillTeaching      Skill = "teaching"
	SkillMedical       Skill = "medical"
	SkillConstruction  Skill = "construction"
	SkillCooking       Skill = "cooking"
	SkillDriving       Skill = "driving"
	SkillTechnology    Skill = "technology"
	SkillFundraising   Skill = "fundraising"
	SkillEventPlanning Skill = "event_planning"
	SkillCounseling    Skill = "counseling"
	SkillTranslation   Skill = "translation"
	SkillAnimalCare    Skill = "animal_care"
	SkillEnvironmental Skill = "environmental"
)

// AllSkills is the complete vocabulary, in display order.
var AllSkills = []Skill{
	SkillTeaching,
	SkillMedical,
	SkillConstruction,
	SkillCooking,
	SkillDriving,
	SkillTechnology,
	SkillFundraising,
	SkillEventPlanning,
	SkillCounseling,
	SkillTranslation,
	SkillAnimalCare,
	SkillEnvironmental,
}

var knownSkills = func() map[Skill]struct{} {
	m := make(map[Skill]struct{}, len(AllSkills))
	for _, s := range AllSkills {
		m[s] = struct{}{}
	}
	return m
}()

// IsValidSkill reports whether s is part of the vocabulary.
func IsValidSkill(s string) bool {
	_, ok := knownSkills[Skill(s)]
	return ok
}

// SkillSet is a sorted, de-duplicated list of skills.
type SkillSet []Skill

// ParseSkills validates raw tags against the vocabulary and returns a
// normalized set. Tags are trimmed and lowercased; an unknown tag is an error.
func ParseSkills(raw []string) (SkillSet, error) {
	seen := make(map[Skill]struct{}, len(raw))
	out := make(SkillSet, 0, len(raw))
	for _, r := range raw {
		tag := strings.ToLower(strings.TrimSpace(r))
		if tag == "" {
			continue
		}
		if !IsValidSkill(tag) {
			return nil, fmt.Errorf("unknown skill %q", r)
		}
		s := Skill(tag)
		if _, dup := seen[s]; dup {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out, nil
}

// Has reports whether the set contains s.
func (ss SkillSet) Has(s Skill) bool {
	for _, x := range ss {
		if x == s {
			return true
		}
	}
	return false
}
