package services

import (
	"fmt"
	"sort"

	"game-progression-service/models"

	"gorm.io/gorm"
)

// LeaderboardService ranks the aggregate mirrors on demand. Nothing is cached
// or incrementally maintained; every call sees the current aggregates.
type LeaderboardService struct {
	DB *gorm.DB
}

func NewLeaderboardService(db *gorm.DB) *LeaderboardService {
	return &LeaderboardService{DB: db}
}

// Valid leaderboard metrics.
const (
	MetricLevel    = "level"
	MetricPoints   = "points"
	MetricMissions = "missions"
	MetricStreak   = "streak"
)

// LeaderboardEntry is one ranked user.
type LeaderboardEntry struct {
	Rank              int    `json:"rank"`
	ExternalUserID    string `json:"external_user_id"`
	Username          string `json:"username"`
	Level             int    `json:"level"`
	TotalXP           int64  `json:"total_xp"`
	TotalPoints       int64  `json:"total_points"`
	RankTitle         string `json:"rank_title"`
	CurrentStreak     int    `json:"current_streak"`
	MissionsCompleted int64  `json:"total_missions_completed"`
}

// LeaderboardView pairs the page with the caller's own rank, computed over the
// full ordering even when the caller falls outside the page.
type LeaderboardView struct {
	Leaderboard []LeaderboardEntry `json:"leaderboard"`
	UserRank    int                `json:"user_rank"` // 0 when the caller has no profile yet
	Metric      string             `json:"metric"`
}

// Rank orders all profiles by the chosen metric with lifetime XP then user id
// as tie-breaks, producing dense ranks 1..N.
func (s *LeaderboardService) Rank(metric string, limit int, callerID string) (*LeaderboardView, error) {
	switch metric {
	case MetricLevel, MetricPoints, MetricMissions, MetricStreak:
	case "":
		metric = MetricLevel
	default:
		return nil, fmt.Errorf("%w: unknown leaderboard metric %q", ErrValidation, metric)
	}
	if limit < 1 || limit > 100 {
		limit = 50
	}

	var profiles []models.UserProfile
	if err := s.DB.Find(&profiles).Error; err != nil {
		return nil, err
	}

	key := func(p *models.UserProfile) int64 {
		switch metric {
		case MetricPoints:
			return p.TotalPoints
		case MetricMissions:
			return p.TotalMissionsCompleted
		case MetricStreak:
			return int64(p.CurrentStreak)
		default:
			return int64(p.Level)
		}
	}

	sort.SliceStable(profiles, func(i, j int) bool {
		ki, kj := key(&profiles[i]), key(&profiles[j])
		if ki != kj {
			return ki > kj
		}
		if profiles[i].TotalXP != profiles[j].TotalXP {
			return profiles[i].TotalXP > profiles[j].TotalXP
		}
		return profiles[i].ExternalUserID < profiles[j].ExternalUserID
	})

	view := &LeaderboardView{Metric: metric, Leaderboard: []LeaderboardEntry{}}
	pageIDs := make([]string, 0, limit)
	for i := range profiles {
		p := &profiles[i]
		if p.ExternalUserID == callerID {
			view.UserRank = i + 1
		}
		if i < limit {
			pageIDs = append(pageIDs, p.ExternalUserID)
			view.Leaderboard = append(view.Leaderboard, LeaderboardEntry{
				Rank:              i + 1,
				ExternalUserID:    p.ExternalUserID,
				Level:             p.Level,
				TotalXP:           p.TotalXP,
				TotalPoints:       p.TotalPoints,
				RankTitle:         p.RankTitle,
				CurrentStreak:     p.CurrentStreak,
				MissionsCompleted: p.TotalMissionsCompleted,
			})
		}
	}

	usernames, err := usernamesFor(s.DB, pageIDs)
	if err != nil {
		return nil, err
	}
	for i := range view.Leaderboard {
		view.Leaderboard[i].Username = usernames[view.Leaderboard[i].ExternalUserID]
	}
	return view, nil
}

// usernamesFor resolves display names for a page of user IDs in one query.
func usernamesFor(db *gorm.DB, ids []string) (map[string]string, error) {
	names := make(map[string]string, len(ids))
	if len(ids) == 0 {
		return names, nil
	}
	var users []models.GameUser
	if err := db.Where("external_user_id IN ?", ids).Find(&users).Error; err != nil {
		return nil, err
	}
	for _, u := range users {
		names[u.ExternalUserID] = u.Username
	}
	return names, nil
}
