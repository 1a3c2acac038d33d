package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	appContext "github.com/alphabatem/common/context"
	"github.com/lac-hong-legacy/tutor_api/dto"
	"github.com/lac-hong-legacy/tutor_api/model"
	"github.com/lac-hong-legacy/tutor_api/services/repositories"
	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

const (
	LEADERBOARD_SVC = "leaderboard_svc"

	DefaultLeaderboardLimit = 10
	MaxLeaderboardLimit     = 100

	leaderboardCacheTTL    = 30 * time.Second
	leaderboardCachePrefix = "leaderboard:top:"
)

type LeaderboardService struct {
	appContext.DefaultService

	repo     *repositories.LeaderboardRepository
	userRepo *repositories.UserRepository
	redisSvc *RedisService
}

func (svc LeaderboardService) Id() string {
	return LEADERBOARD_SVC
}

func NewLeaderboardService(db *gorm.DB, redisSvc *RedisService) *LeaderboardService {
	return &LeaderboardService{
		repo:     repositories.NewLeaderboardRepository(db),
		userRepo: repositories.NewUserRepository(db),
		redisSvc: redisSvc,
	}
}

func (svc *LeaderboardService) Configure(ctx *appContext.Context) error {
	return svc.DefaultService.Configure(ctx)
}

func (svc *LeaderboardService) Start() error {
	db := svc.Service(DATABASE_SVC).(*DatabaseService).Db()
	svc.repo = repositories.NewLeaderboardRepository(db)
	svc.userRepo = repositories.NewUserRepository(db)
	svc.redisSvc = svc.Service(REDIS_SVC).(*RedisService)
	return nil
}

// RecordLessonResult credits a finished lesson to the user.
func (svc *LeaderboardService) RecordLessonResult(userID string, correct int) error {
	username := ""
	if user, err := svc.userRepo.GetUser(userID); err == nil {
		username = user.Username
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return HandleDBError(err)
	}

	if err := svc.repo.AddResult(userID, username, correct); err != nil {
		return HandleDBError(err)
	}

	svc.invalidate()
	return nil
}

// RemoveUser drops the user's entry, used when an account is deleted.
func (svc *LeaderboardService) RemoveUser(userID string) error {
	if err := svc.repo.DeleteEntry(userID); err != nil {
		return HandleDBError(err)
	}
	svc.invalidate()
	return nil
}

// Top returns the highest scores and, when currentUserID is set, that user's
// own rank even if it falls outside the list.
func (svc *LeaderboardService) Top(limit int, currentUserID string) (*dto.LeaderboardResponse, error) {
	if limit <= 0 {
		limit = DefaultLeaderboardLimit
	}
	if limit > MaxLeaderboardLimit {
		limit = MaxLeaderboardLimit
	}

	topUsers, err := svc.cachedTop(limit)
	if err != nil {
		return nil, err
	}

	response := &dto.LeaderboardResponse{TopUsers: topUsers}
	if currentUserID == "" {
		return response, nil
	}

	for i := range topUsers {
		if topUsers[i].UserID == currentUserID {
			current := topUsers[i]
			response.CurrentUser = &current
			return response, nil
		}
	}

	entry, err := svc.repo.GetEntry(currentUserID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return response, nil
		}
		return nil, HandleDBError(err)
	}

	rank, err := svc.repo.Rank(entry.Score)
	if err != nil {
		return nil, HandleDBError(err)
	}
	current := toLeaderboardUser(*entry, rank)
	response.CurrentUser = &current
	return response, nil
}

func (svc *LeaderboardService) cachedTop(limit int) ([]dto.LeaderboardUserResponse, error) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	key := fmt.Sprintf("%s%d", leaderboardCachePrefix, limit)

	var cached []dto.LeaderboardUserResponse
	if found, err := svc.redisSvc.GetJSON(ctx, key, &cached); err == nil && found {
		return cached, nil
	} else if err != nil && !errors.Is(err, ErrRedisUnavailable) {
		log.WithError(err).Warn("Leaderboard cache read failed")
	}

	entries, err := svc.repo.Top(limit)
	if err != nil {
		return nil, HandleDBError(err)
	}

	topUsers := make([]dto.LeaderboardUserResponse, 0, len(entries))
	rank := 0
	for i, entry := range entries {
		// equal scores share a rank
		if i == 0 || entry.Score != entries[i-1].Score {
			rank = i + 1
		}
		topUsers = append(topUsers, toLeaderboardUser(entry, rank))
	}

	if err := svc.redisSvc.SetJSON(ctx, key, topUsers, leaderboardCacheTTL); err != nil && !errors.Is(err, ErrRedisUnavailable) {
		log.WithError(err).Warn("Leaderboard cache write failed")
	}
	return topUsers, nil
}

func (svc *LeaderboardService) invalidate() {
	if !svc.redisSvc.Available() {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	var keys []string
	iter := svc.redisSvc.GetClient().Scan(ctx, 0, leaderboardCachePrefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		log.WithError(err).Warn("Leaderboard cache scan failed")
		return
	}
	if len(keys) == 0 {
		return
	}
	if err := svc.redisSvc.Delete(ctx, keys...); err != nil {
		log.WithError(err).Warn("Leaderboard cache invalidation failed")
	}
}

func toLeaderboardUser(entry model.LeaderboardEntry, rank int) dto.LeaderboardUserResponse {
	return dto.LeaderboardUserResponse{
		UserID:           entry.UserID,
		Username:         entry.Username,
		Score:            entry.Score,
		LessonsCompleted: entry.LessonsCompleted,
		Rank:             rank,
	}
}
