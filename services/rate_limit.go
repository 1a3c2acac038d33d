package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	appContext "github.com/alphabatem/common/context"
	"github.com/lac-hong-legacy/tutor_api/dto"
	log "github.com/sirupsen/logrus"
)

type RateLimitService struct {
	appContext.DefaultService

	configs map[string]*RateLimitConfig
	mutex   sync.RWMutex

	redisSvc *RedisService
}

// RateLimitConfig is a fixed window: at most MaxRequests per WindowSize.
type RateLimitConfig struct {
	EndpointType string
	MaxRequests  int
	WindowSize   time.Duration
	Description  string
}

const RATE_LIMIT_SVC = "rate_limit_svc"

const (
	LimitLogin    = "login"
	LimitRegister = "register"
	LimitRefresh  = "refresh"
	LimitChat     = "chat"
	LimitAnalyze  = "analyze"
	LimitSendMail = "send_mail"
)

func (svc RateLimitService) Id() string {
	return RATE_LIMIT_SVC
}

// NewRateLimitService builds a limiter with the default windows.
func NewRateLimitService(redisSvc *RedisService) *RateLimitService {
	svc := &RateLimitService{redisSvc: redisSvc}
	svc.initDefaultConfigs()
	return svc
}

func (svc *RateLimitService) Configure(ctx *appContext.Context) error {
	svc.configs = make(map[string]*RateLimitConfig)
	return svc.DefaultService.Configure(ctx)
}

func (svc *RateLimitService) Start() error {
	svc.redisSvc = svc.Service(REDIS_SVC).(*RedisService)
	svc.initDefaultConfigs()
	return nil
}

// ==================== CONFIGURATION MANAGEMENT ====================

func (svc *RateLimitService) initDefaultConfigs() {
	svc.mutex.Lock()
	defer svc.mutex.Unlock()

	svc.configs = map[string]*RateLimitConfig{
		LimitLogin: {
			EndpointType: LimitLogin,
			MaxRequests:  10,
			WindowSize:   15 * time.Minute,
			Description:  "Login attempts per IP and email",
		},
		LimitRegister: {
			EndpointType: LimitRegister,
			MaxRequests:  5,
			WindowSize:   time.Hour,
			Description:  "Registrations per IP",
		},
		LimitRefresh: {
			EndpointType: LimitRefresh,
			MaxRequests:  30,
			WindowSize:   15 * time.Minute,
			Description:  "Token refreshes per IP",
		},
		LimitChat: {
			EndpointType: LimitChat,
			MaxRequests:  60,
			WindowSize:   time.Minute,
			Description:  "Chat turns per user",
		},
		LimitAnalyze: {
			EndpointType: LimitAnalyze,
			MaxRequests:  10,
			WindowSize:   time.Hour,
			Description:  "Lesson analyses per user",
		},
		LimitSendMail: {
			EndpointType: LimitSendMail,
			MaxRequests:  20,
			WindowSize:   time.Hour,
			Description:  "Emails per user",
		},
	}
}

func (svc *RateLimitService) SetConfig(config RateLimitConfig) {
	svc.mutex.Lock()
	defer svc.mutex.Unlock()
	svc.configs[config.EndpointType] = &config
}

// IsAllowed counts one request for identifier. Unknown endpoint types and an
// unavailable redis both allow the request.
func (svc *RateLimitService) IsAllowed(ctx context.Context, identifier, endpointType string) (*dto.RateLimitInfo, error) {
	svc.mutex.RLock()
	config, exists := svc.configs[endpointType]
	svc.mutex.RUnlock()

	if !exists {
		return &dto.RateLimitInfo{Allowed: true, Remaining: -1}, nil
	}

	key := fmt.Sprintf("ratelimit:%s:%s", endpointType, identifier)
	count, ttl, err := svc.redisSvc.IncrementWindow(ctx, key, config.WindowSize)
	if err != nil {
		if errors.Is(err, ErrRedisUnavailable) {
			return &dto.RateLimitInfo{Allowed: true, Remaining: -1}, nil
		}
		return nil, err
	}

	if ttl <= 0 {
		ttl = config.WindowSize
	}
	reset := time.Now().Add(ttl)

	remaining := config.MaxRequests - int(count)
	if remaining < 0 {
		remaining = 0
	}

	info := &dto.RateLimitInfo{
		Allowed:   int(count) <= config.MaxRequests,
		Remaining: remaining,
		ResetTime: &reset,
	}

	if !info.Allowed {
		log.WithFields(log.Fields{
			"endpoint_type": endpointType,
			"identifier":    identifier,
			"count":         count,
		}).Warn("Rate limit exceeded")
	}

	return info, nil
}

func (svc *RateLimitService) ResetRateLimit(ctx context.Context, identifier, endpointType string) error {
	err := svc.redisSvc.Delete(ctx, fmt.Sprintf("ratelimit:%s:%s", endpointType, identifier))
	if errors.Is(err, ErrRedisUnavailable) {
		return nil
	}
	return err
}
