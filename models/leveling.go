package models

import "math"

// BaseXPPerLevel anchors the level curve: reaching level n+1 from n costs
// floor(BaseXPPerLevel * n^1.15) XP. The curve is strictly positive and
// non-decreasing in n.
const BaseXPPerLevel = 100

// XPToNextLevel returns the XP needed to go from currentLevel to currentLevel+1.
func XPToNextLevel(currentLevel int) int64 {
	if currentLevel < 1 {
		currentLevel = 1
	}
	return int64(float64(BaseXPPerLevel) * math.Pow(float64(currentLevel), 1.15))
}

// RankTier maps a level band to a display rank.
type RankTier struct {
	Tier     int    `json:"tier"`
	MinLevel int    `json:"min_level"`
	Name     string `json:"name"`
	Color    string `json:"color"`
	Icon     string `json:"icon"`
}

// RankTiers is ordered by ascending MinLevel; the highest band whose MinLevel
// the user's level reaches wins.
var RankTiers = []RankTier{
	{Tier: 1, MinLevel: 1, Name: "Rookie", Color: "#9e9e9e", Icon: "🌱"},
	{Tier: 2, MinLevel: 5, Name: "Bronze", Color: "#cd7f32", Icon: "🥉"},
	{Tier: 3, MinLevel: 10, Name: "Silver", Color: "#c0c0c0", Icon: "🥈"},
	{Tier: 4, MinLevel: 25, Name: "Gold", Color: "#ffd700", Icon: "🥇"},
	{Tier: 5, MinLevel: 50, Name: "Platinum", Color: "#e5e4e2", Icon: "💎"},
	{Tier: 6, MinLevel: 100, Name: "Diamond", Color: "#b9f2ff", Icon: "👑"},
}

// RankForLevel resolves the display rank for a level.
func RankForLevel(level int) RankTier {
	best := RankTiers[0]
	for _, rt := range RankTiers {
		if level >= rt.MinLevel {
			best = rt
		}
	}
	return best
}
