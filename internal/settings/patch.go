package settings

import "slices"

// Patch is a partial ModSettings. A nil block or nil leaf keeps the prior
// value; a non-nil list replaces the prior list wholesale.
type Patch struct {
	SpamFilter     *SpamFilterPatch     `json:"spamFilter,omitempty"`
	LinkPolicy     *LinkPolicyPatch     `json:"linkPolicy,omitempty"`
	BannedWords    *BannedWordsPatch    `json:"bannedWords,omitempty"`
	ToxicityFilter *ToxicityFilterPatch `json:"toxicityFilter,omitempty"`
	RaidGuard      *RaidGuardPatch      `json:"raidGuard,omitempty"`
}

type SpamFilterPatch struct {
	Enabled       *bool    `json:"enabled,omitempty"`
	MaxRepeats    *int     `json:"maxRepeats,omitempty"`
	CapsThreshold *float64 `json:"capsThreshold,omitempty"`
	EmoteLimit    *int     `json:"emoteLimit,omitempty"`
	MinInterval   *float64 `json:"minInterval,omitempty"`
}

type LinkPolicyPatch struct {
	Enabled   *bool    `json:"enabled,omitempty"`
	BlockAll  *bool    `json:"blockAll,omitempty"`
	Whitelist []string `json:"whitelist,omitempty"`
}

type BannedWordsPatch struct {
	Enabled       *bool    `json:"enabled,omitempty"`
	Words         []string `json:"words,omitempty"`
	RegexPatterns []string `json:"regexPatterns,omitempty"`
}

type ToxicityFilterPatch struct {
	Enabled   *bool           `json:"enabled,omitempty"`
	Threshold *float64        `json:"threshold,omitempty"`
	Action    *ToxicityAction `json:"action,omitempty"`
}

type RaidGuardPatch struct {
	Enabled   *bool       `json:"enabled,omitempty"`
	Threshold *int        `json:"threshold,omitempty"`
	Action    *RaidAction `json:"action,omitempty"`
}

// Ptr returns a pointer to v, for building patches.
func Ptr[T any](v T) *T { return &v }

func set[T any](dst *T, src *T) {
	if src != nil {
		*dst = *src
	}
}

func setList(dst *[]string, src []string) {
	if src != nil {
		*dst = slices.Clone(src)
	}
}

// Merge applies p block by block and returns the result; s is not modified.
func (s ModSettings) Merge(p Patch) ModSettings {
	out := s.Clone()
	if b := p.SpamFilter; b != nil {
		set(&out.SpamFilter.Enabled, b.Enabled)
		set(&out.SpamFilter.MaxRepeats, b.MaxRepeats)
		set(&out.SpamFilter.CapsThreshold, b.CapsThreshold)
		set(&out.SpamFilter.EmoteLimit, b.EmoteLimit)
		set(&out.SpamFilter.MinInterval, b.MinInterval)
	}
	if b := p.LinkPolicy; b != nil {
		set(&out.LinkPolicy.Enabled, b.Enabled)
		set(&out.LinkPolicy.BlockAll, b.BlockAll)
		setList(&out.LinkPolicy.Whitelist, b.Whitelist)
	}
	if b := p.BannedWords; b != nil {
		set(&out.BannedWords.Enabled, b.Enabled)
		setList(&out.BannedWords.Words, b.Words)
		setList(&out.BannedWords.RegexPatterns, b.RegexPatterns)
	}
	if b := p.ToxicityFilter; b != nil {
		set(&out.ToxicityFilter.Enabled, b.Enabled)
		set(&out.ToxicityFilter.Threshold, b.Threshold)
		set(&out.ToxicityFilter.Action, b.Action)
	}
	if b := p.RaidGuard; b != nil {
		set(&out.RaidGuard.Enabled, b.Enabled)
		set(&out.RaidGuard.Threshold, b.Threshold)
		set(&out.RaidGuard.Action, b.Action)
	}
	return out
}

// MatchedBy reports whether every field p specifies already holds in s.
func (p Patch) MatchedBy(s ModSettings) bool {
	return s.Merge(p).Equal(s)
}

// requireComplete reports the first leaf missing from a full snapshot.
func (p Patch) requireComplete() error {
	missing := func(field string) error {
		return &ValidationError{Field: field, Reason: "missing from snapshot"}
	}
	if p.SpamFilter == nil {
		return missing("spamFilter")
	}
	if b := p.SpamFilter; b.Enabled == nil || b.MaxRepeats == nil || b.CapsThreshold == nil || b.EmoteLimit == nil || b.MinInterval == nil {
		return missing("spamFilter.*")
	}
	if p.LinkPolicy == nil {
		return missing("linkPolicy")
	}
	if b := p.LinkPolicy; b.Enabled == nil || b.BlockAll == nil {
		return missing("linkPolicy.*")
	}
	if p.BannedWords == nil {
		return missing("bannedWords")
	}
	if p.BannedWords.Enabled == nil {
		return missing("bannedWords.enabled")
	}
	if p.ToxicityFilter == nil {
		return missing("toxicityFilter")
	}
	if b := p.ToxicityFilter; b.Enabled == nil || b.Threshold == nil || b.Action == nil {
		return missing("toxicityFilter.*")
	}
	if p.RaidGuard == nil {
		return missing("raidGuard")
	}
	if b := p.RaidGuard; b.Enabled == nil || b.Threshold == nil || b.Action == nil {
		return missing("raidGuard.*")
	}
	return nil
}
