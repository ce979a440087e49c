package bot

// SkillLevel is a named difficulty tier.
type SkillLevel string

const (
	SkillEasy   SkillLevel = "easy"
	SkillMedium SkillLevel = "medium"
	SkillHard   SkillLevel = "hard"
	SkillExpert SkillLevel = "expert"
)

// Archetype is a named play style layered on top of a skill level.
type Archetype string

const (
	ArchetypeBalanced Archetype = "balanced"
	ArchetypeHauler   Archetype = "hauler"
	ArchetypeBuilder  Archetype = "builder"
	ArchetypeRacer    Archetype = "racer"
	ArchetypeBlocker  Archetype = "blocker"
)

// Config selects the personality for one bot. Supplied by the caller
// and immutable for the engine's purposes.
type Config struct {
	Skill     SkillLevel `json:"skill"`
	Archetype Archetype  `json:"archetype"`
}

// SkillProfile defines a tier's base dimension weights plus the two
// randomization percentages. Both percentages are in [0,100] and their
// sum stays at or below 100; the remainder is optimal play.
type SkillProfile struct {
	BaseWeights          Weights
	RandomChoicePercent  float64
	SuboptimalityPercent float64
}

// ArchetypeProfile scales the skill tier's base weights per dimension.
// Multipliers scale, never replace: a neutral dimension is 1.0.
type ArchetypeProfile struct {
	Name        string
	Description string
	Multipliers Weights
}

// Dimension order in the weight literals below follows the Dimension
// constants: income, income/dist, multi-delivery, network, victory,
// blocking, risk, scarcity, upgrade ROI, backbone, combination,
// major-city proximity.

var skillProfiles = map[SkillLevel]SkillProfile{
	SkillEasy: {
		BaseWeights:          Weights{5, 2, 1, 3, 2, 0.5, 1, 0.5, 1, 1, 0.5, 2},
		RandomChoicePercent:  30,
		SuboptimalityPercent: 30,
	},
	SkillMedium: {
		BaseWeights:          Weights{6, 3, 2, 4, 4, 1, 2, 1, 2, 2, 1, 3},
		RandomChoicePercent:  15,
		SuboptimalityPercent: 25,
	},
	SkillHard: {
		BaseWeights:          Weights{7, 5, 4, 5, 6, 2, 3, 2, 3, 3, 2, 4},
		RandomChoicePercent:  5,
		SuboptimalityPercent: 15,
	},
	SkillExpert: {
		BaseWeights:          Weights{8, 6, 5, 5, 8, 3, 4, 3, 4, 4, 3, 5},
		RandomChoicePercent:  0,
		SuboptimalityPercent: 5,
	},
}

var archetypeProfiles = map[Archetype]ArchetypeProfile{
	ArchetypeBalanced: {
		Name:        "balanced",
		Description: "No pronounced preference; plays the weights as given.",
		Multipliers: Weights{1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1},
	},
	ArchetypeHauler: {
		Name:        "hauler",
		Description: "Chases payments; favors deliveries and efficient routes over expansion.",
		Multipliers: Weights{1.6, 1.4, 1.3, 0.8, 1, 0.7, 1, 1.2, 1, 0.9, 1.3, 0.8},
	},
	ArchetypeBuilder: {
		Name:        "builder",
		Description: "Lays track early and often; values the network over the next payout.",
		Multipliers: Weights{0.8, 0.9, 1, 1.7, 1.1, 0.8, 0.9, 1, 1.1, 1.5, 1, 1.4},
	},
	ArchetypeRacer: {
		Name:        "racer",
		Description: "Beelines for the victory conditions; discounts anything indirect.",
		Multipliers: Weights{1.2, 1.1, 0.9, 1, 1.8, 0.6, 0.8, 0.9, 1.2, 1, 0.9, 1.6},
	},
	ArchetypeBlocker: {
		Name:        "blocker",
		Description: "Plays the opponents; grabs scarce loads and contested ground first.",
		Multipliers: Weights{1, 1, 1, 1.1, 0.9, 1.8, 1.2, 1.6, 0.9, 1, 1, 1},
	},
}

// SkillProfileFor resolves a skill level, defaulting to medium for
// unknown values so a misconfigured bot still plays.
func SkillProfileFor(level SkillLevel) SkillProfile {
	if p, ok := skillProfiles[level]; ok {
		return p
	}
	return skillProfiles[SkillMedium]
}

// ArchetypeProfileFor resolves an archetype, defaulting to balanced.
func ArchetypeProfileFor(a Archetype) ArchetypeProfile {
	if p, ok := archetypeProfiles[a]; ok {
		return p
	}
	return archetypeProfiles[ArchetypeBalanced]
}

// SkillLevels lists the configured tiers.
func SkillLevels() []SkillLevel {
	return []SkillLevel{SkillEasy, SkillMedium, SkillHard, SkillExpert}
}

// Archetypes lists the configured play styles.
func Archetypes() []Archetype {
	return []Archetype{ArchetypeBalanced, ArchetypeHauler, ArchetypeBuilder, ArchetypeRacer, ArchetypeBlocker}
}
