package middleware

import (
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/anoixa/eatinator/api/common"
	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

type clientLimiter struct {
	limiter  *rate.Limiter
	lastSeen atomic.Int64
}

// IPRateLimiter 按客户端 IP 的令牌桶限流
type IPRateLimiter struct {
	limit      rate.Limit    // 每秒补充令牌数
	burst      int           // 令牌桶的容量
	expireTime time.Duration // 过期时间
	message    string
	limiterMap *sync.Map
	stopChan   chan struct{}
	stopOnce   sync.Once
}

// NewIPRateLimiter Create new IP-based rate limits
func NewIPRateLimiter(rps float64, burst int, expireTime time.Duration) *IPRateLimiter {
	return newIPRateLimiter(rate.Limit(rps), burst, expireTime, "Too many requests")
}

// NewHourlyRateLimiter 每小时最多 perHour 次，令牌按 1h/perHour 匀速补充
func NewHourlyRateLimiter(perHour int, expireTime time.Duration, message string) *IPRateLimiter {
	if perHour <= 0 {
		perHour = 1
	}
	if expireTime < time.Hour {
		expireTime = time.Hour
	}
	return newIPRateLimiter(rate.Every(time.Hour/time.Duration(perHour)), perHour, expireTime, message)
}

func newIPRateLimiter(limit rate.Limit, burst int, expireTime time.Duration, message string) *IPRateLimiter {
	if burst <= 0 {
		burst = 1
	}
	if expireTime <= 0 {
		expireTime = time.Hour
	}
	limiter := &IPRateLimiter{
		limit:      limit,
		burst:      burst,
		expireTime: expireTime,
		message:    message,
		limiterMap: &sync.Map{},
		stopChan:   make(chan struct{}),
	}

	// 启动后台清理 goroutine
	go limiter.cleanupStaleClients()

	return limiter
}

// Allow 消耗 ip 的一个令牌
func (rl *IPRateLimiter) Allow(ip string) bool {
	val, ok := rl.limiterMap.Load(ip)
	if !ok {
		val, _ = rl.limiterMap.LoadOrStore(ip, &clientLimiter{
			limiter: rate.NewLimiter(rl.limit, rl.burst),
		})
	}

	client := val.(*clientLimiter)
	client.lastSeen.Store(time.Now().UnixNano())
	return client.limiter.Allow()
}

// Middleware Return a Gin middleware handler
func (rl *IPRateLimiter) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !rl.Allow(common.ClientIP(c)) {
			common.RespondErrorAbort(c, http.StatusTooManyRequests, rl.message)
			return
		}
		c.Next()
	}
}

// MiddlewareFor 只对指定方法限流
func (rl *IPRateLimiter) MiddlewareFor(methods ...string) gin.HandlerFunc {
	set := make(map[string]struct{}, len(methods))
	for _, m := range methods {
		set[m] = struct{}{}
	}
	limit := rl.Middleware()
	return func(c *gin.Context) {
		if _, ok := set[c.Request.Method]; !ok {
			c.Next()
			return
		}
		limit(c)
	}
}

func (rl *IPRateLimiter) StopCleanup() {
	rl.stopOnce.Do(func() {
		close(rl.stopChan)
	})
}

func (rl *IPRateLimiter) cleanupStaleClients() {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			// 遍历 sync.Map，删除过期的条目
			now := time.Now().UnixNano()
			rl.limiterMap.Range(func(key, value interface{}) bool {
				client := value.(*clientLimiter)
				if time.Duration(now-client.lastSeen.Load()) > rl.expireTime {
					rl.limiterMap.Delete(key)
				}
				return true
			})
		case <-rl.stopChan:
			return
		}
	}
}
