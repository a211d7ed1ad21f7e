package academic

// Academic levels.
const (
	Level100 = 100
	Level200 = 200
	Level300 = 300
	Level400 = 400
)

type levelThreshold struct {
	level   int
	credits int
}

// Ordered ascending by credits.
var levelThresholds = []levelThreshold{
	{level: Level100, credits: 0},
	{level: Level200, credits: 24},
	{level: Level300, credits: 60},
	{level: Level400, credits: 96},
}

// ResolveLevel returns the highest level whose credit threshold is met.
func ResolveLevel(creditsEarned int) int {
	level := Level100
	for _, t := range levelThresholds {
		if creditsEarned >= t.credits {
			level = t.level
		}
	}
	return level
}

// CreditsToNextLevel returns the credits still needed to reach the next
// level, or 0 when already at the top level.
func CreditsToNextLevel(creditsEarned int) int {
	for _, t := range levelThresholds {
		if creditsEarned < t.credits {
			return t.credits - creditsEarned
		}
	}
	return 0
}

// IsValidLevel reports whether level is one of the defined levels.
func IsValidLevel(level int) bool {
	for _, t := range levelThresholds {
		if t.level == level {
			return true
		}
	}
	return false
}
