package settings

// Preset names, in the order they are tried when re-deriving the active preset.
const (
	PresetChill    = "chill"
	PresetBalanced = "balanced"
	PresetParty    = "party"
	PresetLockdown = "lockdown"
)

var presetOrder = []string{PresetChill, PresetBalanced, PresetParty, PresetLockdown}

// Presets leave word lists and the link whitelist alone so that applying one
// never discards a channel's curated lists.
var presets = map[string]Patch{
	PresetChill: {
		SpamFilter: &SpamFilterPatch{
			Enabled: Ptr(true), MaxRepeats: Ptr(5), CapsThreshold: Ptr(90.0), EmoteLimit: Ptr(15), MinInterval: Ptr(0.5),
		},
		LinkPolicy:     &LinkPolicyPatch{Enabled: Ptr(true), BlockAll: Ptr(false)},
		BannedWords:    &BannedWordsPatch{Enabled: Ptr(true)},
		ToxicityFilter: &ToxicityFilterPatch{Enabled: Ptr(true), Threshold: Ptr(0.9), Action: Ptr(ToxicityWarn)},
		RaidGuard:      &RaidGuardPatch{Enabled: Ptr(true), Threshold: Ptr(100), Action: Ptr(RaidSlowMode)},
	},
	PresetBalanced: {
		SpamFilter: &SpamFilterPatch{
			Enabled: Ptr(true), MaxRepeats: Ptr(3), CapsThreshold: Ptr(70.0), EmoteLimit: Ptr(5), MinInterval: Ptr(1.0),
		},
		LinkPolicy:     &LinkPolicyPatch{Enabled: Ptr(true), BlockAll: Ptr(false)},
		BannedWords:    &BannedWordsPatch{Enabled: Ptr(true)},
		ToxicityFilter: &ToxicityFilterPatch{Enabled: Ptr(true), Threshold: Ptr(0.7), Action: Ptr(ToxicityTimeout)},
		RaidGuard:      &RaidGuardPatch{Enabled: Ptr(true), Threshold: Ptr(50), Action: Ptr(RaidSlowMode)},
	},
	PresetParty: {
		SpamFilter: &SpamFilterPatch{
			Enabled: Ptr(true), MaxRepeats: Ptr(6), CapsThreshold: Ptr(95.0), EmoteLimit: Ptr(30), MinInterval: Ptr(0.25),
		},
		LinkPolicy:     &LinkPolicyPatch{Enabled: Ptr(true), BlockAll: Ptr(false)},
		ToxicityFilter: &ToxicityFilterPatch{Enabled: Ptr(true), Threshold: Ptr(0.8), Action: Ptr(ToxicityWarn)},
		RaidGuard:      &RaidGuardPatch{Enabled: Ptr(true), Threshold: Ptr(150), Action: Ptr(RaidSlowMode)},
	},
	PresetLockdown: {
		SpamFilter: &SpamFilterPatch{
			Enabled: Ptr(true), MaxRepeats: Ptr(2), CapsThreshold: Ptr(50.0), EmoteLimit: Ptr(3), MinInterval: Ptr(3.0),
		},
		LinkPolicy:     &LinkPolicyPatch{Enabled: Ptr(true), BlockAll: Ptr(true)},
		BannedWords:    &BannedWordsPatch{Enabled: Ptr(true)},
		ToxicityFilter: &ToxicityFilterPatch{Enabled: Ptr(true), Threshold: Ptr(0.5), Action: Ptr(ToxicityBan)},
		RaidGuard:      &RaidGuardPatch{Enabled: Ptr(true), Threshold: Ptr(20), Action: Ptr(RaidLockdown)},
	},
}

// PresetNames lists the known presets.
func PresetNames() []string {
	return append([]string(nil), presetOrder...)
}

// LookupPreset returns the named preset patch.
func LookupPreset(name string) (Patch, bool) {
	p, ok := presets[name]
	return p, ok
}

// matchPreset returns the preset that s agrees with, preferring current.
func matchPreset(s ModSettings, current string) string {
	if p, ok := presets[current]; ok && p.MatchedBy(s) {
		return current
	}
	for _, name := range presetOrder {
		if presets[name].MatchedBy(s) {
			return name
		}
	}
	return ""
}
